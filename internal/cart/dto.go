package cart

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lavish-fashion/lavish-backend/pkg/db/models"
)

// Owner identifies a cart by user or, for guests, by the X-Session-Id header.
type Owner struct {
	UserID    *uuid.UUID
	SessionID string
}

// IsZero reports whether neither identity is set.
func (o Owner) IsZero() bool {
	return o.UserID == nil && strings.TrimSpace(o.SessionID) == ""
}

// AddItemInput is the POST /api/cart/add payload.
type AddItemInput struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	SKU       string    `json:"sku,omitempty" validate:"max=64"`
	Quantity  int       `json:"quantity" validate:"required,min=1,max=99"`
}

// UpdateItemInput is the PUT /api/cart/update/{itemId} payload.
type UpdateItemInput struct {
	Quantity int `json:"quantity" validate:"required,min=1,max=99"`
}

type CartItemDTO struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"productId"`
	ProductName string          `json:"productName,omitempty"`
	ProductSlug string          `json:"productSlug,omitempty"`
	Image       string          `json:"image,omitempty"`
	SKU         string          `json:"sku,omitempty"`
	Size        string          `json:"size,omitempty"`
	Color       string          `json:"color,omitempty"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	LineTotal   decimal.Decimal `json:"lineTotal"`
}

// CartDTO is the cart response; ItemCount and Subtotal come from price snapshots.
type CartDTO struct {
	ID        *uuid.UUID      `json:"id,omitempty"`
	Items     []CartItemDTO   `json:"items"`
	ItemCount int             `json:"itemCount"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	ExpiresAt *time.Time      `json:"expiresAt,omitempty"`
}

func emptyCart() *CartDTO {
	return &CartDTO{Items: []CartItemDTO{}, Subtotal: decimal.Zero}
}

// NewCartDTO maps a cart row, including its preloaded items.
func NewCartDTO(c *models.Cart) *CartDTO {
	if c == nil {
		return emptyCart()
	}
	id := c.ID
	expires := c.ExpiresAt
	dto := &CartDTO{ID: &id, Items: make([]CartItemDTO, 0, len(c.Items)), Subtotal: decimal.Zero, ExpiresAt: &expires}
	for _, item := range c.Items {
		line := item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		row := CartItemDTO{
			ID:        item.ID,
			ProductID: item.ProductID,
			SKU:       item.SKU,
			Size:      item.Size,
			Color:     item.Color,
			Quantity:  item.Quantity,
			Price:     item.Price,
			LineTotal: line,
		}
		if item.Product != nil {
			row.ProductName = item.Product.Name
			row.ProductSlug = item.Product.Slug
			if len(item.Product.Images) > 0 {
				row.Image = item.Product.Images[0]
			}
		}
		dto.Items = append(dto.Items, row)
		dto.ItemCount += item.Quantity
		dto.Subtotal = dto.Subtotal.Add(line)
	}
	return dto
}
