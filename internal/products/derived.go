package products

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lavish-fashion/lavish-backend/pkg/db/models"
)

// Recompute refreshes TotalStock from the loaded variants. Products without
// variants carry their stock in TotalStock directly and are left untouched.
func Recompute(p *models.Product) {
	if p == nil || len(p.Variants) == 0 {
		return
	}
	total := 0
	for _, v := range p.Variants {
		total += v.Stock
	}
	p.TotalStock = total
}

// SaleActive reports whether the sale price applies at now. Open-ended
// windows (nil start or end) are unbounded on that side.
func SaleActive(p *models.Product, now time.Time) bool {
	if p == nil || !p.IsOnSale || !p.SalePrice.Valid {
		return false
	}
	if !p.SalePrice.Decimal.LessThan(p.BasePrice) {
		return false
	}
	if p.SaleStartDate != nil && now.Before(*p.SaleStartDate) {
		return false
	}
	if p.SaleEndDate != nil && now.After(*p.SaleEndDate) {
		return false
	}
	return true
}

// CurrentPrice is the effective unit price at now.
func CurrentPrice(p *models.Product, now time.Time) decimal.Decimal {
	if SaleActive(p, now) {
		return p.SalePrice.Decimal
	}
	return p.BasePrice
}

// RatingSummary averages ratings to one decimal place.
func RatingSummary(ratings []int) (float64, int) {
	if len(ratings) == 0 {
		return 0, 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	avg := float64(sum) / float64(len(ratings))
	return math.Round(avg*10) / 10, len(ratings)
}

// FindVariant returns the variant with sku, if loaded.
func FindVariant(p *models.Product, sku string) *models.ProductVariant {
	if p == nil || sku == "" {
		return nil
	}
	for i := range p.Variants {
		if p.Variants[i].SKU == sku {
			return &p.Variants[i]
		}
	}
	return nil
}

// AvailableStock is the stock a line with the given sku can draw from: the
// variant's stock when sku is set, otherwise the product total. ok is false
// when sku does not match a variant.
func AvailableStock(p *models.Product, sku string) (stock int, ok bool) {
	if sku == "" {
		return p.TotalStock, true
	}
	v := FindVariant(p, sku)
	if v == nil {
		return 0, false
	}
	return v.Stock, true
}
