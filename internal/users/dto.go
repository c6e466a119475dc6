package users

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lavish-fashion/lavish-backend/pkg/db/models"
	"github.com/lavish-fashion/lavish-backend/pkg/enums"
	"github.com/lavish-fashion/lavish-backend/pkg/types"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID             uuid.UUID         `json:"id"`
	Email          string            `json:"email"`
	FirstName      string            `json:"firstName"`
	LastName       string            `json:"lastName"`
	Phone          *string           `json:"phone,omitempty"`
	Role           enums.UserRole    `json:"role"`
	IsActive       bool              `json:"isActive"`
	TotalOrders    int               `json:"totalOrders"`
	TotalSpent     decimal.Decimal   `json:"totalSpent"`
	LoyaltyPoints  int               `json:"loyaltyPoints"`
	Tier           enums.LoyaltyTier `json:"tier"`
	DefaultAddress *types.Address    `json:"defaultAddress,omitempty"`
	LastLoginAt    *time.Time        `json:"lastLoginAt,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Phone        *string
	Role         enums.UserRole
}

// UpdateProfileInput is the self-service profile payload.
type UpdateProfileInput struct {
	FirstName      *string        `json:"firstName,omitempty" validate:"omitempty,min=1,max=100"`
	LastName       *string        `json:"lastName,omitempty" validate:"omitempty,min=1,max=100"`
	Phone          *string        `json:"phone,omitempty" validate:"omitempty,max=30"`
	DefaultAddress *types.Address `json:"defaultAddress,omitempty"`
}

// ChangePasswordInput carries the current and replacement passwords.
type ChangePasswordInput struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,max=128"`
}

// AdminListInput filters GET /api/admin/users.
type AdminListInput struct {
	Role   string
	Search string
	Page   int
	Limit  int
}

// SetRoleInput is the superadmin role change payload.
type SetRoleInput struct {
	Role enums.UserRole `json:"role" validate:"required,oneof=customer admin superadmin"`
}

// SetStatusInput activates or deactivates an account.
type SetStatusInput struct {
	IsActive *bool `json:"isActive" validate:"required"`
}

// FromModel maps a user row to its DTO. Tier is derived from TotalSpent
// rather than read from the stored column.
func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:             u.ID,
		Email:          u.Email,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Phone:          u.Phone,
		Role:           u.Role,
		IsActive:       u.IsActive,
		TotalOrders:    u.TotalOrders,
		TotalSpent:     u.TotalSpent,
		LoyaltyPoints:  u.LoyaltyPoints,
		Tier:           TierFor(u.TotalSpent),
		DefaultAddress: u.DefaultAddress,
		LastLoginAt:    u.LastLoginAt,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	role := c.Role
	if role == "" {
		role = enums.UserRoleCustomer
	}
	return &models.User{
		Email:        NormalizeEmail(c.Email),
		PasswordHash: c.PasswordHash,
		FirstName:    c.FirstName,
		LastName:     c.LastName,
		Phone:        c.Phone,
		Role:         role,
		IsActive:     true,
		TotalSpent:   decimal.Zero,
		LoyaltyTier:  enums.LoyaltyTierBronze,
	}
}
