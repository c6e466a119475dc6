package products

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lavish-fashion/lavish-backend/pkg/db"
	"github.com/lavish-fashion/lavish-backend/pkg/db/models"
	"github.com/lavish-fashion/lavish-backend/pkg/enums"
	"github.com/lavish-fashion/lavish-backend/pkg/pagination"
)

// SortOption names a supported list ordering.
type SortOption string

const (
	SortNewest    SortOption = "newest"
	SortPriceAsc  SortOption = "price_asc"
	SortPriceDesc SortOption = "price_desc"
	SortPopular   SortOption = "popular"
	SortRating    SortOption = "rating"
	SortName      SortOption = "name"
)

var sortClauses = map[SortOption]string{
	SortNewest:    "created_at DESC",
	SortPriceAsc:  "base_price ASC",
	SortPriceDesc: "base_price DESC",
	SortPopular:   "purchase_count DESC",
	SortRating:    "average_rating DESC",
	SortName:      "name ASC",
}

// ParseSort falls back to SortNewest for unknown values.
func ParseSort(value string) (SortOption, bool) {
	opt := SortOption(strings.ToLower(strings.TrimSpace(value)))
	if opt == "" {
		return SortNewest, true
	}
	if _, ok := sortClauses[opt]; ok {
		return opt, true
	}
	return SortNewest, false
}

// ListQuery is the resolved filter set for a product listing.
type ListQuery struct {
	CategoryIDs []uuid.UUID
	Gender      *enums.Gender
	Brand       string
	Size        string
	Color       string
	MinPrice    *decimal.Decimal
	MaxPrice    *decimal.Decimal
	Search      string
	Featured    *bool
	OnSale      *bool
	Statuses    []enums.ProductStatus
	ExcludeID   *uuid.UUID
	Sort        SortOption
	Pagination  pagination.Params
}

// Repository is the catalog persistence contract.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, product *models.Product) error
	Save(ctx context.Context, product *models.Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindBySlug(ctx context.Context, slug string) (*models.Product, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
	List(ctx context.Context, q ListQuery) ([]models.Product, int64, error)
	SlugExists(ctx context.Context, slug string, excludeID uuid.UUID) (bool, error)
	CountByCategory(ctx context.Context, categoryID uuid.UUID) (int64, error)

	ReplaceVariants(ctx context.Context, productID uuid.UUID, variants []models.ProductVariant) error
	SetStatus(ctx context.Context, id uuid.UUID, status enums.ProductStatus) error
	IncrementViewCount(ctx context.Context, id uuid.UUID) error
	AdjustPurchaseCount(ctx context.Context, id uuid.UUID, delta int) error
	SetRating(ctx context.Context, id uuid.UUID, average float64, total int) error

	SetVariantStock(ctx context.Context, productID uuid.UUID, sku string, stock int) (bool, error)
	SetProductStock(ctx context.Context, productID uuid.UUID, stock int) error
	TakeVariantStock(ctx context.Context, productID uuid.UUID, sku string, qty int) (bool, error)
	TakeProductStock(ctx context.Context, productID uuid.UUID, qty int) (bool, error)
	RestoreVariantStock(ctx context.Context, productID uuid.UUID, sku string, qty int) (bool, error)
	RestoreProductStock(ctx context.Context, productID uuid.UUID, qty int) (bool, error)
	RecomputeStock(ctx context.Context, productID uuid.UUID) (*models.Product, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a product repository bound to the provided DB.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{db: conn}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

func withVariants(q *gorm.DB) *gorm.DB {
	return q.Preload("Variants", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC").Order("sku ASC")
	}).Preload("Category")
}

func (r *repository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

// Save writes product columns only; variants go through ReplaceVariants.
func (r *repository) Save(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(product).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := withVariants(r.db.WithContext(ctx)).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) FindBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var product models.Product
	if err := withVariants(r.db.WithContext(ctx)).First(&product, "slug = ?", slug).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.Product
	err := withVariants(r.db.WithContext(ctx)).Where("id IN ?", ids).Find(&rows).Error
	return rows, err
}

func (r *repository) List(ctx context.Context, q ListQuery) ([]models.Product, int64, error) {
	base := r.applyFilters(r.db.WithContext(ctx).Model(&models.Product{}), q)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := q.Pagination.Normalize()
	order, ok := sortClauses[q.Sort]
	if !ok {
		order = sortClauses[SortNewest]
	}

	var rows []models.Product
	err := withVariants(base.Session(&gorm.Session{})).
		Order(order).
		Order("id ASC").
		Limit(page.Limit).
		Offset(page.Offset()).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *repository) applyFilters(tx *gorm.DB, q ListQuery) *gorm.DB {
	if len(q.Statuses) > 0 {
		tx = tx.Where("status IN ?", q.Statuses)
	}
	if len(q.CategoryIDs) > 0 {
		tx = tx.Where("category_id IN ?", q.CategoryIDs)
	}
	if q.Gender != nil {
		tx = tx.Where("gender = ?", *q.Gender)
	}
	if brand := strings.TrimSpace(q.Brand); brand != "" {
		tx = tx.Where("LOWER(brand) = ?", strings.ToLower(brand))
	}
	if size := strings.TrimSpace(q.Size); size != "" {
		tx = tx.Where("EXISTS (SELECT 1 FROM product_variants v WHERE v.product_id = products.id AND LOWER(v.size) = ?)", strings.ToLower(size))
	}
	if color := strings.TrimSpace(q.Color); color != "" {
		tx = tx.Where("EXISTS (SELECT 1 FROM product_variants v WHERE v.product_id = products.id AND LOWER(v.color) = ?)", strings.ToLower(color))
	}
	if q.MinPrice != nil {
		tx = tx.Where("base_price >= ?", *q.MinPrice)
	}
	if q.MaxPrice != nil {
		tx = tx.Where("base_price <= ?", *q.MaxPrice)
	}
	if q.Featured != nil {
		tx = tx.Where("is_featured = ?", *q.Featured)
	}
	if q.OnSale != nil {
		tx = tx.Where("is_on_sale = ?", *q.OnSale)
	}
	if q.ExcludeID != nil {
		tx = tx.Where("id <> ?", *q.ExcludeID)
	}
	if term := strings.ToLower(strings.TrimSpace(q.Search)); term != "" {
		like := "%" + term + "%"
		tags := "LOWER(tags)"
		if r.db.Dialector.Name() == db.DriverPostgres {
			tags = "LOWER(array_to_string(tags, ' '))"
		}
		tx = tx.Where("(LOWER(name) LIKE ? OR LOWER(description) LIKE ? OR LOWER(brand) LIKE ? OR "+tags+" LIKE ?)", like, like, like, like)
	}
	return tx
}

func (r *repository) SlugExists(ctx context.Context, slug string, excludeID uuid.UUID) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&models.Product{}).Where("slug = ?", slug)
	if excludeID != uuid.Nil {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) CountByCategory(ctx context.Context, categoryID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Product{}).Where("category_id = ?", categoryID).Count(&count).Error
	return count, err
}

// ReplaceVariants syncs variants by sku. Rows whose sku survives are updated in
// place and keep their id, new skus are inserted, and dropped skus are deleted.
func (r *repository) ReplaceVariants(ctx context.Context, productID uuid.UUID, variants []models.ProductVariant) error {
	tx := r.db.WithContext(ctx)
	var existing []models.ProductVariant
	if err := tx.Where("product_id = ?", productID).Find(&existing).Error; err != nil {
		return err
	}
	bySKU := make(map[string]models.ProductVariant, len(existing))
	for _, v := range existing {
		bySKU[v.SKU] = v
	}

	keep := make(map[string]struct{}, len(variants))
	for i := range variants {
		v := &variants[i]
		v.ProductID = productID
		keep[v.SKU] = struct{}{}
		cur, ok := bySKU[v.SKU]
		if !ok {
			if err := tx.Create(v).Error; err != nil {
				return err
			}
			continue
		}
		v.ID = cur.ID
		v.CreatedAt = cur.CreatedAt
		if err := tx.Model(&models.ProductVariant{}).Where("id = ?", cur.ID).Updates(map[string]any{
			"size":       v.Size,
			"color":      v.Color,
			"price":      v.Price,
			"sale_price": v.SalePrice,
			"stock":      v.Stock,
			"position":   v.Position,
		}).Error; err != nil {
			return err
		}
	}

	stale := make([]uuid.UUID, 0)
	for _, v := range existing {
		if _, ok := keep[v.SKU]; !ok {
			stale = append(stale, v.ID)
		}
	}
	if len(stale) == 0 {
		return nil
	}
	return tx.Where("id IN ?", stale).Delete(&models.ProductVariant{}).Error
}

func (r *repository) SetStatus(ctx context.Context, id uuid.UUID, status enums.ProductStatus) error {
	return r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Update("status", status).Error
}

func (r *repository) IncrementViewCount(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error
}

// AdjustPurchaseCount adds delta, never letting the counter drop below zero.
func (r *repository) AdjustPurchaseCount(ctx context.Context, id uuid.UUID, delta int) error {
	return r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", id).
		UpdateColumn("purchase_count", gorm.Expr("CASE WHEN purchase_count + ? < 0 THEN 0 ELSE purchase_count + ? END", delta, delta)).Error
}

func (r *repository) SetRating(ctx context.Context, id uuid.UUID, average float64, total int) error {
	return r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{"average_rating": average, "total_reviews": total}).Error
}

func (r *repository) SetVariantStock(ctx context.Context, productID uuid.UUID, sku string, stock int) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.ProductVariant{}).
		Where("product_id = ? AND sku = ?", productID, sku).
		Update("stock", stock)
	return res.RowsAffected > 0, res.Error
}

func (r *repository) SetProductStock(ctx context.Context, productID uuid.UUID, stock int) error {
	return r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", productID).
		UpdateColumn("total_stock", stock).Error
}

// TakeVariantStock decrements only when enough stock remains; false means the
// guard rejected the update.
func (r *repository) TakeVariantStock(ctx context.Context, productID uuid.UUID, sku string, qty int) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.ProductVariant{}).
		Where("product_id = ? AND sku = ? AND stock >= ?", productID, sku, qty).
		UpdateColumn("stock", gorm.Expr("stock - ?", qty))
	return res.RowsAffected == 1, res.Error
}

func (r *repository) TakeProductStock(ctx context.Context, productID uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND total_stock >= ?", productID, qty).
		UpdateColumn("total_stock", gorm.Expr("total_stock - ?", qty))
	return res.RowsAffected == 1, res.Error
}

// RestoreVariantStock returns units to a variant; false means the sku no
// longer exists on the product.
func (r *repository) RestoreVariantStock(ctx context.Context, productID uuid.UUID, sku string, qty int) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.ProductVariant{}).
		Where("product_id = ? AND sku = ?", productID, sku).
		UpdateColumn("stock", gorm.Expr("stock + ?", qty))
	return res.RowsAffected == 1, res.Error
}

func (r *repository) RestoreProductStock(ctx context.Context, productID uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", productID).
		UpdateColumn("total_stock", gorm.Expr("total_stock + ?", qty))
	return res.RowsAffected == 1, res.Error
}

// RecomputeStock reloads the product, applies Recompute and persists the
// cached total.
func (r *repository) RecomputeStock(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	product, err := r.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	Recompute(product)
	if err := r.SetProductStock(ctx, productID, product.TotalStock); err != nil {
		return nil, err
	}
	return product, nil
}
