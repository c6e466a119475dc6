package products

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lavish-fashion/lavish-backend/pkg/db/models"
	"github.com/lavish-fashion/lavish-backend/pkg/enums"
)

// VariantInput is one size/colour row in a product write.
type VariantInput struct {
	Size      string           `json:"size" validate:"max=20"`
	Color     string           `json:"color" validate:"max=40"`
	SKU       string           `json:"sku" validate:"required,max=64"`
	Price     *decimal.Decimal `json:"price,omitempty"`
	SalePrice *decimal.Decimal `json:"salePrice,omitempty"`
	Stock     int              `json:"stock" validate:"gte=0"`
}

// CreateProductInput is the admin create payload.
type CreateProductInput struct {
	Name          string              `json:"name" validate:"required,min=2,max=200"`
	Description   string              `json:"description" validate:"max=5000"`
	Brand         string              `json:"brand" validate:"max=100"`
	CategoryID    uuid.UUID           `json:"categoryId" validate:"required"`
	Gender        enums.Gender        `json:"gender" validate:"omitempty,oneof=women men unisex kids"`
	BasePrice     decimal.Decimal     `json:"basePrice"`
	SalePrice     *decimal.Decimal    `json:"salePrice,omitempty"`
	IsOnSale      bool                `json:"isOnSale"`
	SaleStartDate *time.Time          `json:"saleStartDate,omitempty"`
	SaleEndDate   *time.Time          `json:"saleEndDate,omitempty"`
	Images        []string            `json:"images" validate:"max=20,dive,required,url"`
	Tags          []string            `json:"tags" validate:"max=30,dive,required,max=40"`
	Status        enums.ProductStatus `json:"status" validate:"omitempty,oneof=draft active inactive discontinued"`
	IsFeatured    bool                `json:"isFeatured"`
	Stock         int                 `json:"stock" validate:"gte=0"`
	Variants      []VariantInput      `json:"variants" validate:"max=100,dive"`
}

// UpdateProductInput changes only the fields that are set. Variants, when
// present, replace the whole variant set.
type UpdateProductInput struct {
	Name          *string              `json:"name,omitempty" validate:"omitempty,min=2,max=200"`
	Description   *string              `json:"description,omitempty" validate:"omitempty,max=5000"`
	Brand         *string              `json:"brand,omitempty" validate:"omitempty,max=100"`
	CategoryID    *uuid.UUID           `json:"categoryId,omitempty"`
	Gender        *enums.Gender        `json:"gender,omitempty" validate:"omitempty,oneof=women men unisex kids"`
	BasePrice     *decimal.Decimal     `json:"basePrice,omitempty"`
	SalePrice     *decimal.Decimal     `json:"salePrice,omitempty"`
	ClearSale     bool                 `json:"clearSale,omitempty"`
	IsOnSale      *bool                `json:"isOnSale,omitempty"`
	SaleStartDate *time.Time           `json:"saleStartDate,omitempty"`
	SaleEndDate   *time.Time           `json:"saleEndDate,omitempty"`
	Images        *[]string            `json:"images,omitempty" validate:"omitempty,max=20,dive,required,url"`
	Tags          *[]string            `json:"tags,omitempty" validate:"omitempty,max=30,dive,required,max=40"`
	Status        *enums.ProductStatus `json:"status,omitempty" validate:"omitempty,oneof=draft active inactive discontinued"`
	IsFeatured    *bool                `json:"isFeatured,omitempty"`
	Stock         *int                 `json:"stock,omitempty" validate:"omitempty,gte=0"`
	Variants      *[]VariantInput      `json:"variants,omitempty" validate:"omitempty,max=100,dive"`
}

// StockInput sets the absolute stock of one variant, or of the product when
// it has no variants.
type StockInput struct {
	SKU   string `json:"sku" validate:"max=64"`
	Stock int    `json:"stock" validate:"gte=0"`
}

// ListInput carries raw list filters from the query string.
type ListInput struct {
	CategorySlug string
	Gender       string
	Brand        string
	Size         string
	Color        string
	MinPrice     *decimal.Decimal
	MaxPrice     *decimal.Decimal
	Search       string
	Featured     *bool
	OnSale       *bool
	Status       string
	Sort         string
	Page         int
	Limit        int
	// IncludeHidden lets staff list non-active products.
	IncludeHidden bool
}

type CategorySummary struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Slug string    `json:"slug"`
}

type VariantDTO struct {
	ID        uuid.UUID        `json:"id"`
	Size      string           `json:"size"`
	Color     string           `json:"color"`
	SKU       string           `json:"sku"`
	Price     decimal.Decimal  `json:"price"`
	SalePrice *decimal.Decimal `json:"salePrice,omitempty"`
	Stock     int              `json:"stock"`
}

// ProductDTO is the product payload returned to clients.
type ProductDTO struct {
	ID            uuid.UUID           `json:"id"`
	Name          string              `json:"name"`
	Slug          string              `json:"slug"`
	Description   string              `json:"description"`
	Brand         string              `json:"brand"`
	CategoryID    uuid.UUID           `json:"categoryId"`
	Category      *CategorySummary    `json:"category,omitempty"`
	Gender        enums.Gender        `json:"gender"`
	BasePrice     decimal.Decimal     `json:"basePrice"`
	SalePrice     *decimal.Decimal    `json:"salePrice,omitempty"`
	CurrentPrice  decimal.Decimal     `json:"currentPrice"`
	IsOnSale      bool                `json:"isOnSale"`
	SaleActive    bool                `json:"saleActive"`
	SaleStartDate *time.Time          `json:"saleStartDate,omitempty"`
	SaleEndDate   *time.Time          `json:"saleEndDate,omitempty"`
	Images        []string            `json:"images"`
	Tags          []string            `json:"tags"`
	Status        enums.ProductStatus `json:"status"`
	IsFeatured    bool                `json:"isFeatured"`
	TotalStock    int                 `json:"totalStock"`
	InStock       bool                `json:"inStock"`
	ViewCount     int                 `json:"viewCount"`
	PurchaseCount int                 `json:"purchaseCount"`
	AverageRating float64             `json:"averageRating"`
	TotalReviews  int                 `json:"totalReviews"`
	Variants      []VariantDTO        `json:"variants"`
	CreatedAt     time.Time           `json:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt"`
}

// NewProductDTO builds a DTO with prices evaluated at now.
func NewProductDTO(p *models.Product, now time.Time) ProductDTO {
	dto := ProductDTO{
		ID:            p.ID,
		Name:          p.Name,
		Slug:          p.Slug,
		Description:   p.Description,
		Brand:         p.Brand,
		CategoryID:    p.CategoryID,
		Gender:        p.Gender,
		BasePrice:     p.BasePrice,
		CurrentPrice:  CurrentPrice(p, now),
		IsOnSale:      p.IsOnSale,
		SaleActive:    SaleActive(p, now),
		SaleStartDate: p.SaleStartDate,
		SaleEndDate:   p.SaleEndDate,
		Images:        append([]string{}, p.Images...),
		Tags:          append([]string{}, p.Tags...),
		Status:        p.Status,
		IsFeatured:    p.IsFeatured,
		TotalStock:    p.TotalStock,
		InStock:       p.TotalStock > 0,
		ViewCount:     p.ViewCount,
		PurchaseCount: p.PurchaseCount,
		AverageRating: p.AverageRating,
		TotalReviews:  p.TotalReviews,
		Variants:      make([]VariantDTO, 0, len(p.Variants)),
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
	if p.SalePrice.Valid {
		sale := p.SalePrice.Decimal
		dto.SalePrice = &sale
	}
	if p.Category != nil {
		dto.Category = &CategorySummary{ID: p.Category.ID, Name: p.Category.Name, Slug: p.Category.Slug}
	}
	for _, v := range p.Variants {
		vd := VariantDTO{ID: v.ID, Size: v.Size, Color: v.Color, SKU: v.SKU, Price: v.Price, Stock: v.Stock}
		if v.SalePrice.Valid {
			sale := v.SalePrice.Decimal
			vd.SalePrice = &sale
		}
		dto.Variants = append(dto.Variants, vd)
	}
	return dto
}

func newProductDTOs(rows []models.Product, now time.Time) []ProductDTO {
	out := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		out = append(out, NewProductDTO(&rows[i], now))
	}
	return out
}
