package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lavish-fashion/lavish-backend/pkg/enums"
	"github.com/lavish-fashion/lavish-backend/pkg/types"
)

// Order is the immutable record of a checkout. Money columns are written once
// by CalculateTotals in the orders package.
type Order struct {
	ID                uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber       string                  `gorm:"column:order_number;not null;uniqueIndex:orders_order_number_key"`
	UserID            uuid.UUID               `gorm:"column:user_id;type:uuid;not null;index:orders_user_id_idx"`
	Items             []OrderItem             `gorm:"foreignKey:OrderID"`
	Subtotal          decimal.Decimal         `gorm:"column:subtotal;type:numeric(12,2);not null"`
	ShippingMethod    string                  `gorm:"column:shipping_method;not null;default:'standard'"`
	ShippingCost      decimal.Decimal         `gorm:"column:shipping_cost;type:numeric(12,2);not null"`
	TrackingNumber    *string                 `gorm:"column:tracking_number"`
	Carrier           *string                 `gorm:"column:carrier"`
	TrackingStatus    enums.TrackingStatus    `gorm:"column:tracking_status;type:text;not null;default:'pending'"`
	Tax               decimal.Decimal         `gorm:"column:tax;type:numeric(12,2);not null"`
	DiscountCode      *string                 `gorm:"column:discount_code"`
	DiscountAmount    decimal.Decimal         `gorm:"column:discount_amount;type:numeric(12,2);not null;default:0"`
	Total             decimal.Decimal         `gorm:"column:total;type:numeric(12,2);not null"`
	Status            enums.OrderStatus       `gorm:"column:status;type:text;not null;default:'pending';index:orders_status_idx"`
	PaymentStatus     enums.PaymentStatus     `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	PaymentMethod     enums.PaymentMethod     `gorm:"column:payment_method;type:text;not null"`
	FulfillmentStatus enums.FulfillmentStatus `gorm:"column:fulfillment_status;type:text;not null;default:'unfulfilled'"`
	ShippingAddress   types.Address           `gorm:"column:shipping_address;type:jsonb;serializer:json;not null"`
	BillingAddress    types.Address           `gorm:"column:billing_address;type:jsonb;serializer:json;not null"`
	Notes             *string                 `gorm:"column:notes"`
	ReturnStatus      enums.ReturnStatus      `gorm:"column:return_status;type:text;not null;default:'none'"`
	ReturnReason      *string                 `gorm:"column:return_reason"`
	ReturnRequestedAt *time.Time              `gorm:"column:return_requested_at"`
	ConfirmedAt       *time.Time              `gorm:"column:confirmed_at"`
	ShippedAt         *time.Time              `gorm:"column:shipped_at"`
	DeliveredAt       *time.Time              `gorm:"column:delivered_at"`
	CancelledAt       *time.Time              `gorm:"column:cancelled_at"`
	RefundedAt        *time.Time              `gorm:"column:refunded_at"`
	CancelReason      *string                 `gorm:"column:cancel_reason"`
	CreatedAt         time.Time               `gorm:"column:created_at;autoCreateTime;index:orders_created_at_idx"`
	UpdatedAt         time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	assignID(&o.ID)
	return nil
}

// StockAllocation records how many units were taken from one variant.
type StockAllocation struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

// OrderItem snapshots the product at purchase time.
type OrderItem struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderID     uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index:order_items_order_id_idx"`
	ProductID   uuid.UUID         `gorm:"column:product_id;type:uuid;not null;index:order_items_product_id_idx"`
	ProductName string            `gorm:"column:product_name;not null"`
	ProductSlug string            `gorm:"column:product_slug;not null"`
	Image       *string           `gorm:"column:image"`
	SKU         *string           `gorm:"column:sku"`
	Size        *string           `gorm:"column:size"`
	Color       *string           `gorm:"column:color"`
	Quantity    int               `gorm:"column:quantity;not null"`
	UnitPrice   decimal.Decimal   `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Total       decimal.Decimal   `gorm:"column:total;type:numeric(12,2);not null"`
	Allocations []StockAllocation `gorm:"column:allocations;type:jsonb;serializer:json;not null"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	assignID(&i.ID)
	return nil
}
