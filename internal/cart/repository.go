package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lavish-fashion/lavish-backend/pkg/db/models"
)

// Repository defines the persistence surface required by the cart service.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByOwner(ctx context.Context, owner Owner, now time.Time) (*models.Cart, error)
	DeleteExpiredForOwner(ctx context.Context, owner Owner, now time.Time) error
	Create(ctx context.Context, cart *models.Cart) error
	Touch(ctx context.Context, cartID uuid.UUID, expiresAt time.Time) error
	FindItem(ctx context.Context, cartID, itemID uuid.UUID) (*models.CartItem, error)
	FindLine(ctx context.Context, cartID, productID uuid.UUID, sku string) (*models.CartItem, error)
	CreateItem(ctx context.Context, item *models.CartItem) error
	SaveItem(ctx context.Context, item *models.CartItem) error
	DeleteItem(ctx context.Context, cartID, itemID uuid.UUID) (bool, error)
	ClearItems(ctx context.Context, cartID uuid.UUID) error
	ClearForUser(ctx context.Context, userID uuid.UUID) error
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func ownedBy(q *gorm.DB, owner Owner) *gorm.DB {
	if owner.UserID != nil {
		return q.Where("user_id = ?", *owner.UserID)
	}
	return q.Where("session_id = ?", owner.SessionID)
}

// FindByOwner loads the owner's unexpired cart with items and their products.
func (r *repository) FindByOwner(ctx context.Context, owner Owner, now time.Time) (*models.Cart, error) {
	q := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC").Order("id ASC") }).
		Preload("Items.Product")
	q = ownedBy(q, owner).Where("expires_at > ?", now)
	var cart models.Cart
	if err := q.First(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

// DeleteExpiredForOwner drops the owner's expired cart ahead of the purge job
// so a fresh cart can take its place.
func (r *repository) DeleteExpiredForOwner(ctx context.Context, owner Owner, now time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		expired := ownedBy(tx.Model(&models.Cart{}).Select("id"), owner).Where("expires_at <= ?", now)
		if err := tx.Where("cart_id IN (?)", expired).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		return ownedBy(tx, owner).Where("expires_at <= ?", now).Delete(&models.Cart{}).Error
	})
}

func (r *repository) Create(ctx context.Context, cart *models.Cart) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(cart).Error
}

// Touch extends the cart expiry after a write.
func (r *repository) Touch(ctx context.Context, cartID uuid.UUID, expiresAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ?", cartID).
		Updates(map[string]any{"expires_at": expiresAt, "updated_at": time.Now().UTC()}).Error
}

func (r *repository) FindItem(ctx context.Context, cartID, itemID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	if err := r.db.WithContext(ctx).Where("cart_id = ? AND id = ?", cartID, itemID).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// FindLine returns the item for a (product, sku) pair within the cart.
func (r *repository) FindLine(ctx context.Context, cartID, productID uuid.UUID, sku string) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ? AND sku = ?", cartID, productID, sku).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) CreateItem(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(item).Error
}

func (r *repository) SaveItem(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(item).Error
}

func (r *repository) DeleteItem(ctx context.Context, cartID, itemID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Where("cart_id = ? AND id = ?", cartID, itemID).Delete(&models.CartItem{})
	return res.RowsAffected > 0, res.Error
}

func (r *repository) ClearItems(ctx context.Context, cartID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error
}

// ClearForUser empties the user's cart if one exists.
func (r *repository) ClearForUser(ctx context.Context, userID uuid.UUID) error {
	sub := r.db.Model(&models.Cart{}).Select("id").Where("user_id = ?", userID)
	return r.db.WithContext(ctx).Where("cart_id IN (?)", sub).Delete(&models.CartItem{}).Error
}

// PurgeExpired deletes carts whose expiry is before the cutoff and returns how many went.
func (r *repository) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	var purged int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		expired := tx.Model(&models.Cart{}).Select("id").Where("expires_at < ?", before)
		if err := tx.Where("cart_id IN (?)", expired).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		res := tx.Where("expires_at < ?", before).Delete(&models.Cart{})
		purged = res.RowsAffected
		return res.Error
	})
	return purged, err
}
