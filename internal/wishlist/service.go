package wishlist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lavish-fashion/lavish-backend/pkg/db/models"
	pkgerrors "github.com/lavish-fashion/lavish-backend/pkg/errors"
	"github.com/lavish-fashion/lavish-backend/pkg/pagination"
	"github.com/lavish-fashion/lavish-backend/pkg/types"
	"github.com/lavish-fashion/lavish-backend/pkg/visibility"
)

// Service exposes business rules for wishlist management.
type Service interface {
	List(ctx context.Context, userID uuid.UUID, page, limit int) (*types.Page[WishlistItemDTO], error)
	AddItem(ctx context.Context, userID, productID uuid.UUID) (*AddResult, error)
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) error
}

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type service struct {
	repo     Repository
	products productLoader
	now      func() time.Time
}

// NewService builds a wishlist service with the required dependencies.
func NewService(repo Repository, products productLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("wishlist repo is required")
	}
	if products == nil {
		return nil, fmt.Errorf("product repo is required")
	}
	return &service{repo: repo, products: products, now: time.Now}, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID, page, limit int) (*types.Page[WishlistItemDTO], error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	params := pagination.Params{Page: page, Limit: limit}.Normalize()
	rows, total, err := s.repo.ListItems(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wishlist")
	}
	now := s.now()
	items := make([]WishlistItemDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, newItemDTO(row, now))
	}
	return &types.Page[WishlistItemDTO]{
		Items:      items,
		Page:       params.Page,
		Limit:      params.Limit,
		Total:      total,
		TotalPages: pagination.TotalPages(total, params.Limit),
	}, nil
}

// AddItem ensures the product exists and adds it to the wishlist. Adding a
// product twice is not an error.
func (s *service) AddItem(ctx context.Context, userID, productID uuid.UUID) (*AddResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if err := visibility.EnsureProductVisible(visibility.ProductVisibilityInput{Product: product}); err != nil {
		return nil, err
	}
	added, err := s.repo.AddItem(ctx, userID, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add wishlist item")
	}
	return &AddResult{ProductID: productID, Added: added}, nil
}

// RemoveItem drops the wishlist entry regardless of prior state.
func (s *service) RemoveItem(ctx context.Context, userID, productID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if err := s.repo.RemoveItem(ctx, userID, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove wishlist item")
	}
	return nil
}
