package categories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lavish-fashion/lavish-backend/pkg/db"
	"github.com/lavish-fashion/lavish-backend/pkg/db/models"
	pkgerrors "github.com/lavish-fashion/lavish-backend/pkg/errors"
	"github.com/lavish-fashion/lavish-backend/pkg/slugs"
)

const constraintSlug = "categories_slug_key"

type Service interface {
	List(ctx context.Context, tree bool, includeInactive bool) ([]CategoryDTO, error)
	GetBySlug(ctx context.Context, slug string) (*CategoryDTO, error)
	Create(ctx context.Context, input CreateCategoryInput) (*CategoryDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateCategoryInput) (*CategoryDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ProductCounter reports how many products reference a category.
type ProductCounter interface {
	CountByCategory(ctx context.Context, categoryID uuid.UUID) (int64, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo     Repository
	tx       txRunner
	products ProductCounter
}

func NewService(repo Repository, tx txRunner, products ProductCounter) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("category repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("db client required")
	}
	if products == nil {
		return nil, fmt.Errorf("product counter required")
	}
	return &service{repo: repo, tx: tx, products: products}, nil
}

func (s *service) List(ctx context.Context, tree bool, includeInactive bool) ([]CategoryDTO, error) {
	rows, err := s.repo.List(ctx, !includeInactive)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	if tree {
		return BuildTree(rows), nil
	}
	out := make([]CategoryDTO, 0, len(rows))
	for i := range rows {
		out = append(out, NewCategoryDTO(&rows[i]))
	}
	return out, nil
}

func (s *service) GetBySlug(ctx context.Context, slug string) (*CategoryDTO, error) {
	category, err := s.repo.FindBySlug(ctx, strings.TrimSpace(slug))
	if err != nil {
		return nil, notFoundOr(err, "load category")
	}
	dto := NewCategoryDTO(category)
	return &dto, nil
}

func (s *service) Create(ctx context.Context, input CreateCategoryInput) (*CategoryDTO, error) {
	category := &models.Category{
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		Image:       input.Image,
		ParentID:    input.ParentID,
		IsActive:    true,
		SortOrder:   input.SortOrder,
	}
	if input.IsActive != nil {
		category.IsActive = *input.IsActive
	}

	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := ensureParent(ctx, txRepo, uuid.Nil, category.ParentID); err != nil {
			return err
		}
		slug, err := slugs.Unique(ctx, category.Name, func(ctx context.Context, c string) (bool, error) {
			return txRepo.SlugExists(ctx, c, uuid.Nil)
		})
		if err != nil {
			return err
		}
		category.Slug = slug
		if err := txRepo.Create(ctx, category); err != nil {
			return translateWriteError(err, "insert category")
		}
		return nil
	}); err != nil {
		return nil, asTyped(err, "create category")
	}
	dto := NewCategoryDTO(category)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateCategoryInput) (*CategoryDTO, error) {
	var updated *models.Category
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		category, err := txRepo.FindByID(ctx, id)
		if err != nil {
			return notFoundOr(err, "load category")
		}

		if input.ClearParent {
			category.ParentID = nil
		} else if input.ParentID != nil {
			if err := ensureParent(ctx, txRepo, id, input.ParentID); err != nil {
				return err
			}
			category.ParentID = input.ParentID
		}
		if input.Name != nil {
			name := strings.TrimSpace(*input.Name)
			if name != category.Name {
				slug, err := slugs.Unique(ctx, name, func(ctx context.Context, c string) (bool, error) {
					return txRepo.SlugExists(ctx, c, id)
				})
				if err != nil {
					return err
				}
				category.Name = name
				category.Slug = slug
			}
		}
		if input.Description != nil {
			category.Description = input.Description
		}
		if input.Image != nil {
			category.Image = input.Image
		}
		if input.IsActive != nil {
			category.IsActive = *input.IsActive
		}
		if input.SortOrder != nil {
			category.SortOrder = *input.SortOrder
		}
		if err := txRepo.Save(ctx, category); err != nil {
			return translateWriteError(err, "update category")
		}
		updated = category
		return nil
	}); err != nil {
		return nil, asTyped(err, "update category")
	}
	dto := NewCategoryDTO(updated)
	return &dto, nil
}

// Delete refuses while children or products still point at the category.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return notFoundOr(err, "load category")
	}
	children, err := s.repo.ChildIDs(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load child categories")
	}
	if len(children) > 0 {
		return pkgerrors.New(pkgerrors.CodeInvalidState, "category has subcategories")
	}
	count, err := s.products.CountByCategory(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count category products")
	}
	if count > 0 {
		return pkgerrors.New(pkgerrors.CodeInvalidState, "category has products")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete category")
	}
	return nil
}

// ensureParent checks the parent exists and is not the category itself.
// Deeper cycles are not detected.
func ensureParent(ctx context.Context, repo Repository, selfID uuid.UUID, parentID *uuid.UUID) error {
	if parentID == nil {
		return nil
	}
	if selfID != uuid.Nil && *parentID == selfID {
		return pkgerrors.Fields("invalid parent", pkgerrors.FieldError{Field: "parentId", Message: "category cannot be its own parent"})
	}
	if _, err := repo.FindByID(ctx, *parentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Fields("invalid parent", pkgerrors.FieldError{Field: "parentId", Message: "parent category does not exist"})
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load parent category")
	}
	return nil
}

func translateWriteError(err error, step string) error {
	if db.IsUniqueViolation(err, constraintSlug) {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "category slug already exists")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: "+step)
}

func notFoundOr(err error, step string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, step)
}

func asTyped(err error, step string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, step)
}
