package products

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lavish-fashion/lavish-backend/pkg/db"
	"github.com/lavish-fashion/lavish-backend/pkg/db/models"
	"github.com/lavish-fashion/lavish-backend/pkg/enums"
	pkgerrors "github.com/lavish-fashion/lavish-backend/pkg/errors"
	"github.com/lavish-fashion/lavish-backend/pkg/pagination"
	"github.com/lavish-fashion/lavish-backend/pkg/slugs"
	"github.com/lavish-fashion/lavish-backend/pkg/types"
	"github.com/lavish-fashion/lavish-backend/pkg/visibility"
)

const (
	constraintSlug = "products_slug_key"
	constraintSKU  = "product_variants_sku_key"

	// DefaultRelatedLimit caps related and featured listings.
	DefaultRelatedLimit = 8
)

// Service exposes catalog reads and admin product management.
type Service interface {
	List(ctx context.Context, input ListInput) (*types.Page[ProductDTO], error)
	GetBySlug(ctx context.Context, slug string, includeHidden bool) (*ProductDTO, error)
	GetByID(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	Featured(ctx context.Context, limit int) ([]ProductDTO, error)
	Related(ctx context.Context, id uuid.UUID, limit int) ([]ProductDTO, error)
	Create(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
	SetStock(ctx context.Context, id uuid.UUID, input StockInput) (*ProductDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// CategoryReader resolves categories for filters and write validation.
type CategoryReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
	FindBySlug(ctx context.Context, slug string) (*models.Category, error)
	ChildIDs(ctx context.Context, parentID uuid.UUID) ([]uuid.UUID, error)
}

type service struct {
	repo       Repository
	tx         txRunner
	categories CategoryReader
	now        func() time.Time
}

// NewService constructs a product service instance.
func NewService(repo Repository, tx txRunner, categories CategoryReader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("db client required")
	}
	if categories == nil {
		return nil, fmt.Errorf("category reader required")
	}
	return &service{repo: repo, tx: tx, categories: categories, now: time.Now}, nil
}

func (s *service) List(ctx context.Context, input ListInput) (*types.Page[ProductDTO], error) {
	q, err := s.resolveListQuery(ctx, input)
	if err != nil {
		return nil, err
	}
	rows, total, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	page := q.Pagination.Normalize()
	return &types.Page[ProductDTO]{
		Items:      newProductDTOs(rows, s.now()),
		Page:       page.Page,
		Limit:      page.Limit,
		Total:      total,
		TotalPages: pagination.TotalPages(total, page.Limit),
	}, nil
}

func (s *service) resolveListQuery(ctx context.Context, input ListInput) (ListQuery, error) {
	q := ListQuery{
		Brand:      input.Brand,
		Size:       input.Size,
		Color:      input.Color,
		MinPrice:   input.MinPrice,
		MaxPrice:   input.MaxPrice,
		Search:     input.Search,
		Featured:   input.Featured,
		OnSale:     input.OnSale,
		Pagination: pagination.Params{Page: input.Page, Limit: input.Limit}.Normalize(),
	}

	sort, ok := ParseSort(input.Sort)
	if !ok {
		return q, pkgerrors.Fields("invalid sort", pkgerrors.FieldError{Field: "sort", Message: "unsupported sort option"})
	}
	q.Sort = sort

	if input.MinPrice != nil && input.MaxPrice != nil && input.MinPrice.GreaterThan(*input.MaxPrice) {
		return q, pkgerrors.Fields("invalid price range", pkgerrors.FieldError{Field: "minPrice", Message: "must not exceed maxPrice"})
	}

	if g := strings.TrimSpace(input.Gender); g != "" {
		gender, err := enums.ParseGender(g)
		if err != nil {
			return q, pkgerrors.Fields("invalid gender", pkgerrors.FieldError{Field: "gender", Message: err.Error()})
		}
		q.Gender = &gender
	}

	q.Statuses = []enums.ProductStatus{enums.ProductStatusActive}
	if input.IncludeHidden {
		q.Statuses = nil
		if st := strings.TrimSpace(input.Status); st != "" {
			status, err := enums.ParseProductStatus(st)
			if err != nil {
				return q, pkgerrors.Fields("invalid status", pkgerrors.FieldError{Field: "status", Message: err.Error()})
			}
			q.Statuses = []enums.ProductStatus{status}
		}
	}

	if slug := strings.TrimSpace(input.CategorySlug); slug != "" {
		category, err := s.categories.FindBySlug(ctx, slug)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return q, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
			}
			return q, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
		}
		children, err := s.categories.ChildIDs(ctx, category.ID)
		if err != nil {
			return q, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load child categories")
		}
		q.CategoryIDs = append([]uuid.UUID{category.ID}, children...)
	}
	return q, nil
}

func (s *service) GetBySlug(ctx context.Context, slug string, includeHidden bool) (*ProductDTO, error) {
	product, err := s.repo.FindBySlug(ctx, strings.TrimSpace(slug))
	if err != nil {
		return nil, notFoundOr(err, "load product")
	}
	if err := visibility.EnsureProductVisible(visibility.ProductVisibilityInput{Product: product, Staff: includeHidden}); err != nil {
		return nil, err
	}
	if err := s.repo.IncrementViewCount(ctx, product.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment view count")
	}
	product.ViewCount++
	dto := NewProductDTO(product, s.now())
	return &dto, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "load product")
	}
	dto := NewProductDTO(product, s.now())
	return &dto, nil
}

func (s *service) Featured(ctx context.Context, limit int) ([]ProductDTO, error) {
	featured := true
	rows, _, err := s.repo.List(ctx, ListQuery{
		Featured:   &featured,
		Statuses:   []enums.ProductStatus{enums.ProductStatusActive},
		Sort:       SortNewest,
		Pagination: pagination.Params{Page: 1, Limit: clampLimit(limit)},
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list featured products")
	}
	return newProductDTOs(rows, s.now()), nil
}

func (s *service) Related(ctx context.Context, id uuid.UUID, limit int) ([]ProductDTO, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "load product")
	}
	rows, _, err := s.repo.List(ctx, ListQuery{
		CategoryIDs: []uuid.UUID{product.CategoryID},
		Statuses:    []enums.ProductStatus{enums.ProductStatusActive},
		ExcludeID:   &product.ID,
		Sort:        SortPopular,
		Pagination:  pagination.Params{Page: 1, Limit: clampLimit(limit)},
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list related products")
	}
	return newProductDTOs(rows, s.now()), nil
}

func (s *service) Create(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	if err := validatePricing(input.BasePrice, input.SalePrice, input.SaleStartDate, input.SaleEndDate); err != nil {
		return nil, err
	}
	variants, err := buildVariants(input.Variants, input.BasePrice)
	if err != nil {
		return nil, err
	}
	if err := s.ensureCategory(ctx, input.CategoryID); err != nil {
		return nil, err
	}

	product := &models.Product{
		Name:          strings.TrimSpace(input.Name),
		Description:   strings.TrimSpace(input.Description),
		Brand:         strings.TrimSpace(input.Brand),
		CategoryID:    input.CategoryID,
		Gender:        input.Gender,
		BasePrice:     input.BasePrice,
		IsOnSale:      input.IsOnSale,
		SaleStartDate: input.SaleStartDate,
		SaleEndDate:   input.SaleEndDate,
		Images:        input.Images,
		Tags:          normalizeTags(input.Tags),
		Status:        input.Status,
		IsFeatured:    input.IsFeatured,
		TotalStock:    input.Stock,
		Variants:      variants,
	}
	if product.Gender == "" {
		product.Gender = enums.GenderUnisex
	}
	if product.Status == "" {
		product.Status = enums.ProductStatusDraft
	}
	if input.SalePrice != nil {
		product.SalePrice = decimal.NewNullDecimal(*input.SalePrice)
	}
	Recompute(product)

	var createdID uuid.UUID
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		slug, err := slugs.Unique(ctx, product.Name, func(ctx context.Context, c string) (bool, error) {
			return txRepo.SlugExists(ctx, c, uuid.Nil)
		})
		if err != nil {
			return err
		}
		product.Slug = slug
		if err := txRepo.Create(ctx, product); err != nil {
			return translateWriteError(err, "insert product")
		}
		createdID = product.ID
		return nil
	}); err != nil {
		return nil, asTyped(err, "create product")
	}
	return s.GetByID(ctx, createdID)
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	if input.CategoryID != nil {
		if err := s.ensureCategory(ctx, *input.CategoryID); err != nil {
			return nil, err
		}
	}
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		product, err := txRepo.FindByID(ctx, id)
		if err != nil {
			return notFoundOr(err, "load product")
		}

		nameChanged := applyUpdate(product, input)
		var salePrice *decimal.Decimal
		if product.SalePrice.Valid {
			salePrice = &product.SalePrice.Decimal
		}
		if err := validatePricing(product.BasePrice, salePrice, product.SaleStartDate, product.SaleEndDate); err != nil {
			return err
		}

		if nameChanged {
			slug, err := slugs.Unique(ctx, product.Name, func(ctx context.Context, c string) (bool, error) {
				return txRepo.SlugExists(ctx, c, product.ID)
			})
			if err != nil {
				return err
			}
			product.Slug = slug
		}

		if input.Variants != nil {
			variants, err := buildVariants(*input.Variants, product.BasePrice)
			if err != nil {
				return err
			}
			if err := txRepo.ReplaceVariants(ctx, product.ID, variants); err != nil {
				return translateWriteError(err, "replace variants")
			}
			product.Variants = variants
		}
		Recompute(product)

		if err := txRepo.Save(ctx, product); err != nil {
			return translateWriteError(err, "update product")
		}
		return nil
	}); err != nil {
		return nil, asTyped(err, "update product")
	}
	return s.GetByID(ctx, id)
}

// Delete discontinues the product; rows are never removed.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return notFoundOr(err, "load product")
	}
	if err := s.repo.SetStatus(ctx, id, enums.ProductStatusDiscontinued); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "discontinue product")
	}
	return nil
}

func (s *service) SetStock(ctx context.Context, id uuid.UUID, input StockInput) (*ProductDTO, error) {
	if input.Stock < 0 {
		return nil, pkgerrors.Fields("invalid stock", pkgerrors.FieldError{Field: "stock", Message: "must be >= 0"})
	}
	sku := strings.ToUpper(strings.TrimSpace(input.SKU))
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		product, err := txRepo.FindByID(ctx, id)
		if err != nil {
			return notFoundOr(err, "load product")
		}
		if sku == "" {
			if len(product.Variants) > 0 {
				return pkgerrors.Fields("sku required", pkgerrors.FieldError{Field: "sku", Message: "product has variants"})
			}
			return txRepo.SetProductStock(ctx, id, input.Stock)
		}
		found, err := txRepo.SetVariantStock(ctx, id, sku, input.Stock)
		if err != nil {
			return err
		}
		if !found {
			return pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
		}
		_, err = txRepo.RecomputeStock(ctx, id)
		return err
	}); err != nil {
		return nil, asTyped(err, "set stock")
	}
	return s.GetByID(ctx, id)
}

func (s *service) ensureCategory(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.Fields("category required", pkgerrors.FieldError{Field: "categoryId", Message: "is required"})
	}
	if _, err := s.categories.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Fields("unknown category", pkgerrors.FieldError{Field: "categoryId", Message: "category does not exist"})
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
	}
	return nil
}

func validatePricing(base decimal.Decimal, sale *decimal.Decimal, start, end *time.Time) error {
	var fields []pkgerrors.FieldError
	if !base.IsPositive() {
		fields = append(fields, pkgerrors.FieldError{Field: "basePrice", Message: "must be greater than 0"})
	}
	if sale != nil && !sale.IsPositive() {
		fields = append(fields, pkgerrors.FieldError{Field: "salePrice", Message: "must be greater than 0"})
	}
	if start != nil && end != nil && end.Before(*start) {
		fields = append(fields, pkgerrors.FieldError{Field: "saleEndDate", Message: "must not precede saleStartDate"})
	}
	if len(fields) > 0 {
		return pkgerrors.Fields("invalid pricing", fields...)
	}
	return nil
}

func buildVariants(inputs []VariantInput, basePrice decimal.Decimal) ([]models.ProductVariant, error) {
	seen := make(map[string]struct{}, len(inputs))
	out := make([]models.ProductVariant, 0, len(inputs))
	for i, in := range inputs {
		sku := strings.ToUpper(strings.TrimSpace(in.SKU))
		if sku == "" {
			return nil, pkgerrors.Fields("invalid variant", pkgerrors.FieldError{Field: fmt.Sprintf("variants[%d].sku", i), Message: "is required"})
		}
		if _, dup := seen[sku]; dup {
			return nil, pkgerrors.Fields("duplicate sku", pkgerrors.FieldError{Field: fmt.Sprintf("variants[%d].sku", i), Message: "duplicated in request"})
		}
		seen[sku] = struct{}{}
		if in.Stock < 0 {
			return nil, pkgerrors.Fields("invalid variant", pkgerrors.FieldError{Field: fmt.Sprintf("variants[%d].stock", i), Message: "must be >= 0"})
		}
		price := basePrice
		if in.Price != nil {
			if !in.Price.IsPositive() {
				return nil, pkgerrors.Fields("invalid variant", pkgerrors.FieldError{Field: fmt.Sprintf("variants[%d].price", i), Message: "must be greater than 0"})
			}
			price = *in.Price
		}
		v := models.ProductVariant{
			Size:     strings.TrimSpace(in.Size),
			Color:    strings.TrimSpace(in.Color),
			SKU:      sku,
			Price:    price,
			Stock:    in.Stock,
			Position: i,
		}
		if in.SalePrice != nil {
			v.SalePrice = decimal.NewNullDecimal(*in.SalePrice)
		}
		out = append(out, v)
	}
	return out, nil
}

// applyUpdate copies set fields and reports whether the name changed.
func applyUpdate(p *models.Product, in UpdateProductInput) bool {
	nameChanged := false
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		nameChanged = name != p.Name
		p.Name = name
	}
	if in.Description != nil {
		p.Description = strings.TrimSpace(*in.Description)
	}
	if in.Brand != nil {
		p.Brand = strings.TrimSpace(*in.Brand)
	}
	if in.CategoryID != nil {
		p.CategoryID = *in.CategoryID
		p.Category = nil
	}
	if in.Gender != nil {
		p.Gender = *in.Gender
	}
	if in.BasePrice != nil {
		p.BasePrice = *in.BasePrice
	}
	if in.ClearSale {
		p.SalePrice = decimal.NullDecimal{}
		p.IsOnSale = false
		p.SaleStartDate = nil
		p.SaleEndDate = nil
	}
	if in.SalePrice != nil {
		p.SalePrice = decimal.NewNullDecimal(*in.SalePrice)
	}
	if in.IsOnSale != nil {
		p.IsOnSale = *in.IsOnSale
	}
	if in.SaleStartDate != nil {
		p.SaleStartDate = in.SaleStartDate
	}
	if in.SaleEndDate != nil {
		p.SaleEndDate = in.SaleEndDate
	}
	if in.Images != nil {
		p.Images = append([]string{}, (*in.Images)...)
	}
	if in.Tags != nil {
		p.Tags = normalizeTags(*in.Tags)
	}
	if in.Status != nil {
		p.Status = *in.Status
	}
	if in.IsFeatured != nil {
		p.IsFeatured = *in.IsFeatured
	}
	if in.Stock != nil && len(p.Variants) == 0 && in.Variants == nil {
		p.TotalStock = *in.Stock
	}
	return nameChanged
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > pagination.MaxLimit {
		return DefaultRelatedLimit
	}
	return limit
}

func translateWriteError(err error, step string) error {
	switch {
	case db.IsUniqueViolation(err, constraintSKU):
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "sku already exists")
	case db.IsUniqueViolation(err, constraintSlug):
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "slug already exists")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: "+step)
}

func notFoundOr(err error, step string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, step)
}

func asTyped(err error, step string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, step)
}
