package orders

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/lavish-fashion/lavish-backend/pkg/config"
	"github.com/lavish-fashion/lavish-backend/pkg/db/models"
	"github.com/lavish-fashion/lavish-backend/pkg/enums"
)

// Pricing holds the shipping, tax and return rules applied to orders.
type Pricing struct {
	TaxRate               decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	FlatShippingFee       decimal.Decimal
	ReturnWindow          time.Duration
}

// NewPricing reads the pricing rules from commerce config.
func NewPricing(cfg config.CommerceConfig) Pricing {
	return Pricing{
		TaxRate:               cfg.TaxRate,
		FreeShippingThreshold: cfg.FreeShippingThreshold,
		FlatShippingFee:       cfg.FlatShippingFee,
		ReturnWindow:          time.Duration(cfg.ReturnWindowDays) * 24 * time.Hour,
	}
}

// ShippingCost is free at or above the threshold, otherwise the flat fee.
func (p Pricing) ShippingCost(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(p.FreeShippingThreshold) {
		return decimal.Zero
	}
	return p.FlatShippingFee
}

// Tax is TaxRate of the subtotal, rounded to cents.
func (p Pricing) Tax(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(p.TaxRate).Round(2)
}

// Price sets subtotal, shipping and tax from the items, then calls CalculateTotals.
func (p Pricing) Price(o *models.Order) {
	CalculateTotals(o)
	o.ShippingCost = p.ShippingCost(o.Subtotal)
	o.Tax = p.Tax(o.Subtotal)
	CalculateTotals(o)
}

// CalculateTotals re-derives Subtotal from the item totals and
// Total = Subtotal + ShippingCost + Tax - DiscountAmount.
func CalculateTotals(o *models.Order) {
	subtotal := decimal.Zero
	for _, item := range o.Items {
		subtotal = subtotal.Add(item.Total)
	}
	o.Subtotal = subtotal
	o.Total = subtotal.Add(o.ShippingCost).Add(o.Tax).Sub(o.DiscountAmount)
}

// LineTotal is unit price times quantity.
func LineTotal(unit decimal.Decimal, qty int) decimal.Decimal {
	return unit.Mul(decimal.NewFromInt(int64(qty)))
}

// LoyaltyPoints awards one point per whole currency unit spent.
func LoyaltyPoints(total decimal.Decimal) int {
	if total.IsNegative() {
		return 0
	}
	return int(total.Floor().IntPart())
}

// CanBeCancelled reports whether the order has not progressed past confirmation.
func CanBeCancelled(o *models.Order) bool {
	return o.Status == enums.OrderStatusPending || o.Status == enums.OrderStatusConfirmed
}

// CanBeReturned reports whether a delivered order is still inside the return
// window. The window end is inclusive.
func (p Pricing) CanBeReturned(o *models.Order, now time.Time) bool {
	if o.Status != enums.OrderStatusDelivered || o.DeliveredAt == nil {
		return false
	}
	return now.Sub(*o.DeliveredAt) <= p.ReturnWindow
}

// Tracking carries the optional carrier details sent with a status change.
type Tracking struct {
	TrackingNumber *string
	Carrier        *string
}

// ApplyStatus sets the status and stamps the matching timestamp. Any status
// may follow any other.
func ApplyStatus(o *models.Order, status enums.OrderStatus, tracking Tracking, now time.Time) {
	o.Status = status
	switch status {
	case enums.OrderStatusConfirmed:
		o.ConfirmedAt = &now
	case enums.OrderStatusShipped:
		o.ShippedAt = &now
		o.FulfillmentStatus = enums.FulfillmentStatusFulfilled
		o.TrackingStatus = enums.TrackingStatusInTransit
	case enums.OrderStatusDelivered:
		o.DeliveredAt = &now
		o.TrackingStatus = enums.TrackingStatusDelivered
	case enums.OrderStatusCancelled:
		o.CancelledAt = &now
	case enums.OrderStatusRefunded:
		o.RefundedAt = &now
	}
	if tracking.TrackingNumber != nil {
		o.TrackingNumber = tracking.TrackingNumber
	}
	if tracking.Carrier != nil {
		o.Carrier = tracking.Carrier
	}
}
