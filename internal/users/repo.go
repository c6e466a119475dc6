package users

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lavish-fashion/lavish-backend/pkg/db/models"
	"github.com/lavish-fashion/lavish-backend/pkg/enums"
	"github.com/lavish-fashion/lavish-backend/pkg/pagination"
)

// ListQuery filters the admin user listing.
type ListQuery struct {
	Role       *enums.UserRole
	Search     string
	Pagination pagination.Params
}

// Repository exposes user-related persistence operations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, user *models.User) error
	Save(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	List(ctx context.Context, q ListQuery) ([]models.User, int64, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
	SetRole(ctx context.Context, id uuid.UUID, role enums.UserRole) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	AddOrderStats(ctx context.Context, id uuid.UUID, spent decimal.Decimal, points int) error
	RefreshTier(ctx context.Context, id uuid.UUID) (enums.LoyaltyTier, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

// Create inserts a new user.
func (r *repository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *repository) Save(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

// FindByEmail retrieves the user matching the provided email, case-insensitively.
func (r *repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID loads a user by their UUID.
func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) List(ctx context.Context, q ListQuery) ([]models.User, int64, error) {
	tx := r.db.WithContext(ctx).Model(&models.User{})
	if q.Role != nil {
		tx = tx.Where("role = ?", *q.Role)
	}
	if term := strings.ToLower(strings.TrimSpace(q.Search)); term != "" {
		like := "%" + term + "%"
		tx = tx.Where("(email LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ?)", like, like, like)
	}

	var total int64
	if err := tx.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	page := q.Pagination.Normalize()
	var rows []models.User
	err := tx.Session(&gorm.Session{}).
		Order("created_at DESC").
		Order("id ASC").
		Limit(page.Limit).
		Offset(page.Offset()).
		Find(&rows).Error
	return rows, total, err
}

// UpdateLastLogin refreshes the user's last_login_at timestamp.
func (r *repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}

func (r *repository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("password_hash", hash).Error
}

func (r *repository) SetRole(ctx context.Context, id uuid.UUID, role enums.UserRole) error {
	return r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("role", role).Error
}

func (r *repository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("is_active", active).Error
}

// AddOrderStats bumps order count, spend and points in a single statement.
func (r *repository) AddOrderStats(ctx context.Context, id uuid.UUID, spent decimal.Decimal, points int) error {
	return r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{
			"total_orders":   gorm.Expr("total_orders + 1"),
			"total_spent":    gorm.Expr("total_spent + ?", spent),
			"loyalty_points": gorm.Expr("loyalty_points + ?", points),
		}).Error
}

// RefreshTier re-derives loyalty_tier from the stored total_spent.
func (r *repository) RefreshTier(ctx context.Context, id uuid.UUID) (enums.LoyaltyTier, error) {
	user, err := r.FindByID(ctx, id)
	if err != nil {
		return "", err
	}
	tier := TierFor(user.TotalSpent)
	if tier == user.LoyaltyTier {
		return tier, nil
	}
	err = r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).UpdateColumn("loyalty_tier", tier).Error
	return tier, err
}

// NormalizeEmail lowercases and trims an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
