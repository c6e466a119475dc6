package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Cart belongs to exactly one of UserID or SessionID.
type Cart struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	UserID    *uuid.UUID `gorm:"column:user_id;type:uuid;uniqueIndex:carts_user_id_key"`
	SessionID *string    `gorm:"column:session_id;uniqueIndex:carts_session_id_key"`
	Items     []CartItem `gorm:"foreignKey:CartID"`
	ExpiresAt time.Time  `gorm:"column:expires_at;not null;index:carts_expires_at_idx"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Cart) BeforeCreate(*gorm.DB) error {
	assignID(&c.ID)
	return nil
}
