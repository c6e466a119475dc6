package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Review is a single rating left by a user on a product.
type Review struct {
	ID               uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ProductID        uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:reviews_product_user_key"`
	UserID           uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:reviews_product_user_key"`
	User             *User     `gorm:"foreignKey:UserID"`
	Rating           int       `gorm:"column:rating;not null"`
	Title            string    `gorm:"column:title;not null;default:''"`
	Comment          string    `gorm:"column:comment;not null;default:''"`
	VerifiedPurchase bool      `gorm:"column:verified_purchase;not null;default:false"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *Review) BeforeCreate(*gorm.DB) error {
	assignID(&r.ID)
	return nil
}
