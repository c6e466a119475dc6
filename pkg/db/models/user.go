package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lavish-fashion/lavish-backend/pkg/enums"
	"github.com/lavish-fashion/lavish-backend/pkg/types"
)

// User represents a shopper or staff account.
type User struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	Email          string            `gorm:"column:email;type:text;not null;uniqueIndex:users_email_key"`
	PasswordHash   string            `gorm:"column:password_hash;not null"`
	FirstName      string            `gorm:"column:first_name;not null"`
	LastName       string            `gorm:"column:last_name;not null"`
	Phone          *string           `gorm:"column:phone"`
	Role           enums.UserRole    `gorm:"column:role;type:text;not null;default:'customer'"`
	IsActive       bool              `gorm:"column:is_active;not null"`
	TotalOrders    int               `gorm:"column:total_orders;not null;default:0"`
	TotalSpent     decimal.Decimal   `gorm:"column:total_spent;type:numeric(12,2);not null;default:0"`
	LoyaltyPoints  int               `gorm:"column:loyalty_points;not null;default:0"`
	LoyaltyTier    enums.LoyaltyTier `gorm:"column:loyalty_tier;type:text;not null;default:'bronze'"`
	DefaultAddress *types.Address    `gorm:"column:default_address;type:jsonb;serializer:json"`
	LastLoginAt    *time.Time        `gorm:"column:last_login_at"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	assignID(&u.ID)
	return nil
}
