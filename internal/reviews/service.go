package reviews

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lavish-fashion/lavish-backend/internal/products"
	"github.com/lavish-fashion/lavish-backend/pkg/db"
	"github.com/lavish-fashion/lavish-backend/pkg/db/models"
	pkgerrors "github.com/lavish-fashion/lavish-backend/pkg/errors"
	"github.com/lavish-fashion/lavish-backend/pkg/pagination"
	"github.com/lavish-fashion/lavish-backend/pkg/types"
	"github.com/lavish-fashion/lavish-backend/pkg/visibility"
)

const constraintOnePerUser = "reviews_product_user_key"

// Service manages product reviews and keeps the cached rating in step.
type Service interface {
	List(ctx context.Context, productID uuid.UUID, page, limit int) (*types.Page[ReviewDTO], error)
	Create(ctx context.Context, actor Actor, productID uuid.UUID, input CreateReviewInput) (*ReviewDTO, error)
	Delete(ctx context.Context, actor Actor, reviewID uuid.UUID) (*RatingDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// PurchaseChecker reports whether a user received the product.
type PurchaseChecker interface {
	HasDeliveredPurchase(ctx context.Context, userID, productID uuid.UUID) (bool, error)
}

type service struct {
	repo      Repository
	tx        txRunner
	products  products.Repository
	purchases PurchaseChecker
}

func NewService(repo Repository, tx txRunner, productRepo products.Repository, purchases PurchaseChecker) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("review repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if productRepo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if purchases == nil {
		return nil, fmt.Errorf("purchase checker required")
	}
	return &service{repo: repo, tx: tx, products: productRepo, purchases: purchases}, nil
}

func (s *service) List(ctx context.Context, productID uuid.UUID, page, limit int) (*types.Page[ReviewDTO], error) {
	params := pagination.Params{Page: page, Limit: limit}.Normalize()
	rows, total, err := s.repo.ListByProduct(ctx, productID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reviews")
	}
	items := make([]ReviewDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, newReviewDTO(row))
	}
	return &types.Page[ReviewDTO]{
		Items:      items,
		Page:       params.Page,
		Limit:      params.Limit,
		Total:      total,
		TotalPages: pagination.TotalPages(total, params.Limit),
	}, nil
}

// Create stores the review and recomputes the product rating in the same
// transaction. A user may review a product once.
func (s *service) Create(ctx context.Context, actor Actor, productID uuid.UUID, input CreateReviewInput) (*ReviewDTO, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if input.Rating < 1 || input.Rating > 5 {
		return nil, pkgerrors.Fields("invalid review", pkgerrors.FieldError{Field: "rating", Message: "rating must be between 1 and 5"})
	}
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, notFoundOr(err, "product not found", "load product")
	}
	if err := visibility.EnsureProductVisible(visibility.ProductVisibilityInput{Product: product}); err != nil {
		return nil, err
	}
	verified, err := s.purchases.HasDeliveredPurchase(ctx, actor.UserID, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check purchase")
	}

	review := &models.Review{
		ProductID:        productID,
		UserID:           actor.UserID,
		Rating:           input.Rating,
		Title:            strings.TrimSpace(input.Title),
		Comment:          strings.TrimSpace(input.Comment),
		VerifiedPurchase: verified,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, review); err != nil {
			if db.IsUniqueViolation(err, constraintOnePerUser) {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "you have already reviewed this product")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert review")
		}
		_, err := s.recompute(ctx, tx, productID)
		return err
	})
	if err != nil {
		return nil, asTyped(err, "create review")
	}

	stored, err := s.repo.FindByID(ctx, review.ID)
	if err != nil {
		return nil, notFoundOr(err, "review not found", "reload review")
	}
	dto := newReviewDTO(*stored)
	return &dto, nil
}

// Delete removes a review. Authors may delete their own; staff may delete any.
func (s *service) Delete(ctx context.Context, actor Actor, reviewID uuid.UUID) (*RatingDTO, error) {
	review, err := s.repo.FindByID(ctx, reviewID)
	if err != nil {
		return nil, notFoundOr(err, "review not found", "load review")
	}
	if review.UserID != actor.UserID && !actor.Role.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to delete this review")
	}

	var rating *RatingDTO
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Delete(ctx, review.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete review")
		}
		var err error
		rating, err = s.recompute(ctx, tx, review.ProductID)
		return err
	})
	if err != nil {
		return nil, asTyped(err, "delete review")
	}
	return rating, nil
}

func (s *service) recompute(ctx context.Context, tx *gorm.DB, productID uuid.UUID) (*RatingDTO, error) {
	ratings, err := s.repo.WithTx(tx).Ratings(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ratings")
	}
	avg, total := products.RatingSummary(ratings)
	if err := s.products.WithTx(tx).SetRating(ctx, productID, avg, total); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product rating")
	}
	return &RatingDTO{AverageRating: avg, TotalReviews: total}, nil
}

func notFoundOr(err error, message, step string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, message)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, step)
}

func asTyped(err error, step string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, step)
}
