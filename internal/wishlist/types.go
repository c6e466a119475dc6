package wishlist

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lavish-fashion/lavish-backend/internal/products"
	"github.com/lavish-fashion/lavish-backend/pkg/db/models"
	"github.com/lavish-fashion/lavish-backend/pkg/enums"
)

// ProductSummary is the product card rendered in a wishlist row.
type ProductSummary struct {
	ID           uuid.UUID           `json:"id"`
	Name         string              `json:"name"`
	Slug         string              `json:"slug"`
	Brand        string              `json:"brand"`
	Image        *string             `json:"image,omitempty"`
	BasePrice    decimal.Decimal     `json:"basePrice"`
	CurrentPrice decimal.Decimal     `json:"currentPrice"`
	Status       enums.ProductStatus `json:"status"`
	InStock      bool                `json:"inStock"`
}

// WishlistItemDTO wraps the product summary included in a wishlist row.
type WishlistItemDTO struct {
	Product ProductSummary `json:"product"`
	AddedAt time.Time      `json:"addedAt"`
}

// AddResult reports whether the add created a new entry.
type AddResult struct {
	ProductID uuid.UUID `json:"productId"`
	Added     bool      `json:"added"`
}

func newItemDTO(item models.WishlistItem, now time.Time) WishlistItemDTO {
	dto := WishlistItemDTO{AddedAt: item.CreatedAt}
	p := item.Product
	if p == nil {
		dto.Product = ProductSummary{ID: item.ProductID}
		return dto
	}
	summary := ProductSummary{
		ID:           p.ID,
		Name:         p.Name,
		Slug:         p.Slug,
		Brand:        p.Brand,
		BasePrice:    p.BasePrice,
		CurrentPrice: products.CurrentPrice(p, now),
		Status:       p.Status,
		InStock:      p.TotalStock > 0,
	}
	if len(p.Images) > 0 {
		image := p.Images[0]
		summary.Image = &image
	}
	dto.Product = summary
	return dto
}
