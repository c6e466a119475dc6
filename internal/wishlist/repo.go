package wishlist

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lavish-fashion/lavish-backend/pkg/db/models"
	"github.com/lavish-fashion/lavish-backend/pkg/pagination"
)

// Repository encapsulates wishlist persistence.
type Repository interface {
	AddItem(ctx context.Context, userID, productID uuid.UUID) (bool, error)
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) error
	ListItems(ctx context.Context, userID uuid.UUID, page pagination.Params) ([]models.WishlistItem, int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository constructs a wishlist repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// AddItem inserts a wishlist entry and ignores duplicates. The bool reports
// whether a row was written.
func (r *repository) AddItem(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	if userID == uuid.Nil || productID == uuid.Nil {
		return false, gorm.ErrInvalidValue
	}
	item := models.WishlistItem{UserID: userID, ProductID: productID}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
			DoNothing: true,
		}).
		Omit(clause.Associations).
		Create(&item)
	return res.RowsAffected > 0, res.Error
}

// RemoveItem deletes the user-product entry if it exists.
func (r *repository) RemoveItem(ctx context.Context, userID, productID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&models.WishlistItem{}).
		Error
}

// ListItems returns the user's saved products, newest first.
func (r *repository) ListItems(ctx context.Context, userID uuid.UUID, page pagination.Params) ([]models.WishlistItem, int64, error) {
	page = page.Normalize()
	base := r.db.WithContext(ctx).Model(&models.WishlistItem{}).Where("user_id = ?", userID)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.WishlistItem
	err := base.Session(&gorm.Session{}).
		Preload("Product").
		Order("created_at DESC").
		Order("id DESC").
		Limit(page.Limit).
		Offset(page.Offset()).
		Find(&rows).Error
	return rows, total, err
}
