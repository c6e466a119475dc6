package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lavish-fashion/lavish-backend/pkg/enums"
)

// Product is a catalog entry. TotalStock, AverageRating and TotalReviews are
// cached aggregates maintained by explicit recompute calls.
type Product struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	Name          string              `gorm:"column:name;not null"`
	Slug          string              `gorm:"column:slug;not null;uniqueIndex:products_slug_key"`
	Description   string              `gorm:"column:description;not null;default:''"`
	Brand         string              `gorm:"column:brand;not null;default:''"`
	CategoryID    uuid.UUID           `gorm:"column:category_id;type:uuid;not null;index:products_category_id_idx"`
	Category      *Category           `gorm:"foreignKey:CategoryID"`
	Gender        enums.Gender        `gorm:"column:gender;type:text;not null;default:'unisex'"`
	BasePrice     decimal.Decimal     `gorm:"column:base_price;type:numeric(12,2);not null"`
	SalePrice     decimal.NullDecimal `gorm:"column:sale_price;type:numeric(12,2)"`
	IsOnSale      bool                `gorm:"column:is_on_sale;not null;default:false"`
	SaleStartDate *time.Time          `gorm:"column:sale_start_date"`
	SaleEndDate   *time.Time          `gorm:"column:sale_end_date"`
	Images        pq.StringArray      `gorm:"column:images;type:text[]"`
	Tags          pq.StringArray      `gorm:"column:tags;type:text[]"`
	Status        enums.ProductStatus `gorm:"column:status;type:text;not null;default:'draft'"`
	IsFeatured    bool                `gorm:"column:is_featured;not null;default:false"`
	TotalStock    int                 `gorm:"column:total_stock;not null;default:0"`
	ViewCount     int                 `gorm:"column:view_count;not null;default:0"`
	PurchaseCount int                 `gorm:"column:purchase_count;not null;default:0"`
	AverageRating float64             `gorm:"column:average_rating;not null;default:0"`
	TotalReviews  int                 `gorm:"column:total_reviews;not null;default:0"`
	Variants      []ProductVariant    `gorm:"foreignKey:ProductID"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}

// ProductVariant is a purchasable size/colour combination.
type ProductVariant struct {
	ID        uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	ProductID uuid.UUID           `gorm:"column:product_id;type:uuid;not null;index:product_variants_product_id_idx"`
	Size      string              `gorm:"column:size;not null;default:''"`
	Color     string              `gorm:"column:color;not null;default:''"`
	SKU       string              `gorm:"column:sku;not null;uniqueIndex:product_variants_sku_key"`
	Price     decimal.Decimal     `gorm:"column:price;type:numeric(12,2);not null"`
	SalePrice decimal.NullDecimal `gorm:"column:sale_price;type:numeric(12,2)"`
	Stock     int                 `gorm:"column:stock;not null;default:0"`
	Position  int                 `gorm:"column:position;not null;default:0"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (v *ProductVariant) BeforeCreate(*gorm.DB) error {
	assignID(&v.ID)
	return nil
}
