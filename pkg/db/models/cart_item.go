package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CartItem is one (product, sku) line. SKU is empty when the shopper did not
// pick a variant. Price is the snapshot taken on the last add.
type CartItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	CartID    uuid.UUID       `gorm:"column:cart_id;type:uuid;not null;uniqueIndex:cart_items_cart_product_sku_key"`
	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;not null;uniqueIndex:cart_items_cart_product_sku_key"`
	Product   *Product        `gorm:"foreignKey:ProductID"`
	SKU       string          `gorm:"column:sku;not null;default:'';uniqueIndex:cart_items_cart_product_sku_key"`
	Size      string          `gorm:"column:size;not null;default:''"`
	Color     string          `gorm:"column:color;not null;default:''"`
	Quantity  int             `gorm:"column:quantity;not null"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *CartItem) BeforeCreate(*gorm.DB) error {
	assignID(&i.ID)
	return nil
}
