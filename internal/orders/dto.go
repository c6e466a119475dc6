package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lavish-fashion/lavish-backend/pkg/db/models"
	"github.com/lavish-fashion/lavish-backend/pkg/enums"
	"github.com/lavish-fashion/lavish-backend/pkg/types"
)

// Actor is the authenticated caller acting on an order.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// OrderItemInput selects a product, optionally a variant by sku, and a quantity.
type OrderItemInput struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	SKU       string    `json:"sku,omitempty" validate:"max=64"`
	Quantity  int       `json:"quantity" validate:"required,min=1,max=99"`
}

// CreateOrderInput is the POST /api/orders payload.
type CreateOrderInput struct {
	Items           []OrderItemInput    `json:"items" validate:"required,min=1,max=50,dive"`
	ShippingAddress types.Address       `json:"shippingAddress"`
	BillingAddress  *types.Address      `json:"billingAddress,omitempty"`
	PaymentMethod   enums.PaymentMethod `json:"paymentMethod" validate:"required,oneof=card paypal apple_pay bank_transfer cash_on_delivery"`
	Notes           *string             `json:"notes,omitempty" validate:"omitempty,max=1000"`
	ClearCart       bool                `json:"clearCart"`
}

// UpdateStatusInput is the admin status transition payload.
type UpdateStatusInput struct {
	Status         enums.OrderStatus `json:"status" validate:"required,oneof=pending confirmed processing shipped delivered cancelled refunded returned"`
	TrackingNumber *string           `json:"trackingNumber,omitempty" validate:"omitempty,max=100"`
	Carrier        *string           `json:"carrier,omitempty" validate:"omitempty,max=60"`
}

// CancelInput optionally explains a cancellation.
type CancelInput struct {
	Reason string `json:"reason,omitempty" validate:"max=500"`
}

// ReturnInput is the customer return request.
type ReturnInput struct {
	Reason string `json:"reason" validate:"required,min=3,max=1000"`
}

// ListInput carries page/limit and an optional status filter.
type ListInput struct {
	Status string
	Page   int
	Limit  int
}

type OrderItemDTO struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"productId"`
	ProductName string          `json:"productName"`
	ProductSlug string          `json:"productSlug"`
	Image       *string         `json:"image,omitempty"`
	SKU         *string         `json:"sku,omitempty"`
	Size        *string         `json:"size,omitempty"`
	Color       *string         `json:"color,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Total       decimal.Decimal `json:"total"`
}

type ShippingDTO struct {
	Method         string               `json:"method"`
	Cost           decimal.Decimal      `json:"cost"`
	TrackingNumber *string              `json:"trackingNumber,omitempty"`
	Carrier        *string              `json:"carrier,omitempty"`
	TrackingStatus enums.TrackingStatus `json:"trackingStatus"`
}

type DiscountDTO struct {
	Code   *string         `json:"code,omitempty"`
	Amount decimal.Decimal `json:"amount"`
}

type ReturnDTO struct {
	Status      enums.ReturnStatus `json:"status"`
	Reason      *string            `json:"reason,omitempty"`
	RequestedAt *time.Time         `json:"requestedAt,omitempty"`
}

// OrderDTO is the order response, including derived eligibility flags.
type OrderDTO struct {
	ID                uuid.UUID               `json:"id"`
	OrderNumber       string                  `json:"orderNumber"`
	UserID            uuid.UUID               `json:"userId"`
	Items             []OrderItemDTO          `json:"items"`
	Subtotal          decimal.Decimal         `json:"subtotal"`
	Shipping          ShippingDTO             `json:"shipping"`
	Tax               decimal.Decimal         `json:"tax"`
	Discount          DiscountDTO             `json:"discount"`
	Total             decimal.Decimal         `json:"total"`
	Status            enums.OrderStatus       `json:"status"`
	PaymentStatus     enums.PaymentStatus     `json:"paymentStatus"`
	PaymentMethod     enums.PaymentMethod     `json:"paymentMethod"`
	FulfillmentStatus enums.FulfillmentStatus `json:"fulfillmentStatus"`
	ShippingAddress   types.Address           `json:"shippingAddress"`
	BillingAddress    types.Address           `json:"billingAddress"`
	Notes             *string                 `json:"notes,omitempty"`
	Return            ReturnDTO               `json:"return"`
	CanBeCancelled    bool                    `json:"canBeCancelled"`
	CanBeReturned     bool                    `json:"canBeReturned"`
	ConfirmedAt       *time.Time              `json:"confirmedAt,omitempty"`
	ShippedAt         *time.Time              `json:"shippedAt,omitempty"`
	DeliveredAt       *time.Time              `json:"deliveredAt,omitempty"`
	CancelledAt       *time.Time              `json:"cancelledAt,omitempty"`
	RefundedAt        *time.Time              `json:"refundedAt,omitempty"`
	CancelReason      *string                 `json:"cancelReason,omitempty"`
	CreatedAt         time.Time               `json:"createdAt"`
	UpdatedAt         time.Time               `json:"updatedAt"`
}

// NewOrderDTO maps an order row and evaluates eligibility at now.
func NewOrderDTO(o *models.Order, pricing Pricing, now time.Time) OrderDTO {
	items := make([]OrderItemDTO, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemDTO{
			ID:          it.ID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			ProductSlug: it.ProductSlug,
			Image:       it.Image,
			SKU:         it.SKU,
			Size:        it.Size,
			Color:       it.Color,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Total:       it.Total,
		})
	}
	return OrderDTO{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		UserID:      o.UserID,
		Items:       items,
		Subtotal:    o.Subtotal,
		Shipping: ShippingDTO{
			Method:         o.ShippingMethod,
			Cost:           o.ShippingCost,
			TrackingNumber: o.TrackingNumber,
			Carrier:        o.Carrier,
			TrackingStatus: o.TrackingStatus,
		},
		Tax:               o.Tax,
		Discount:          DiscountDTO{Code: o.DiscountCode, Amount: o.DiscountAmount},
		Total:             o.Total,
		Status:            o.Status,
		PaymentStatus:     o.PaymentStatus,
		PaymentMethod:     o.PaymentMethod,
		FulfillmentStatus: o.FulfillmentStatus,
		ShippingAddress:   o.ShippingAddress,
		BillingAddress:    o.BillingAddress,
		Notes:             o.Notes,
		Return: ReturnDTO{
			Status:      o.ReturnStatus,
			Reason:      o.ReturnReason,
			RequestedAt: o.ReturnRequestedAt,
		},
		CanBeCancelled: CanBeCancelled(o),
		CanBeReturned:  pricing.CanBeReturned(o, now),
		ConfirmedAt:    o.ConfirmedAt,
		ShippedAt:      o.ShippedAt,
		DeliveredAt:    o.DeliveredAt,
		CancelledAt:    o.CancelledAt,
		RefundedAt:     o.RefundedAt,
		CancelReason:   o.CancelReason,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
}
