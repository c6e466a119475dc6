package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lavish-fashion/lavish-backend/pkg/enums"
)

// OrderCreatedEvent is emitted once the order row and its stock movements commit.
type OrderCreatedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	OrderNumber   string              `json:"order_number"`
	UserID        uuid.UUID           `json:"user_id"`
	Total         decimal.Decimal     `json:"total"`
	ItemCount     int                 `json:"item_count"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
}

// OrderStatusChangedEvent carries a single status transition.
type OrderStatusChangedEvent struct {
	OrderID        uuid.UUID         `json:"order_id"`
	OrderNumber    string            `json:"order_number"`
	UserID         uuid.UUID         `json:"user_id"`
	From           enums.OrderStatus `json:"from"`
	To             enums.OrderStatus `json:"to"`
	TrackingNumber *string           `json:"tracking_number,omitempty"`
	Carrier        *string           `json:"carrier,omitempty"`
	ChangedAt      time.Time         `json:"changed_at"`
}

// OrderCancelledEvent lists the stock returned to inventory.
type OrderCancelledEvent struct {
	OrderID       uuid.UUID         `json:"order_id"`
	OrderNumber   string            `json:"order_number"`
	UserID        uuid.UUID         `json:"user_id"`
	Reason        string            `json:"reason,omitempty"`
	RestoredUnits int               `json:"restored_units"`
	PreviousState enums.OrderStatus `json:"previous_status"`
}

// OrderReturnRequestedEvent is emitted when a customer opens a return.
type OrderReturnRequestedEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	UserID      uuid.UUID `json:"user_id"`
	Reason      string    `json:"reason"`
	RequestedAt time.Time `json:"requested_at"`
}

// ProductLowStockEvent fires when an order drains a product below the configured threshold.
type ProductLowStockEvent struct {
	ProductID  uuid.UUID `json:"product_id"`
	Slug       string    `json:"slug"`
	TotalStock int       `json:"total_stock"`
	Threshold  int       `json:"threshold"`
}
