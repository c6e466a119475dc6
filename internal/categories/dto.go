package categories

import (
	"time"

	"github.com/google/uuid"

	"github.com/lavish-fashion/lavish-backend/pkg/db/models"
)

type CreateCategoryInput struct {
	Name        string     `json:"name" validate:"required,min=2,max=100"`
	Description *string    `json:"description,omitempty" validate:"omitempty,max=1000"`
	Image       *string    `json:"image,omitempty" validate:"omitempty,url"`
	ParentID    *uuid.UUID `json:"parentId,omitempty"`
	IsActive    *bool      `json:"isActive,omitempty"`
	SortOrder   int        `json:"sortOrder" validate:"gte=0"`
}

type UpdateCategoryInput struct {
	Name        *string    `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Description *string    `json:"description,omitempty" validate:"omitempty,max=1000"`
	Image       *string    `json:"image,omitempty" validate:"omitempty,url"`
	ParentID    *uuid.UUID `json:"parentId,omitempty"`
	ClearParent bool       `json:"clearParent,omitempty"`
	IsActive    *bool      `json:"isActive,omitempty"`
	SortOrder   *int       `json:"sortOrder,omitempty" validate:"omitempty,gte=0"`
}

type CategoryDTO struct {
	ID          uuid.UUID     `json:"id"`
	Name        string        `json:"name"`
	Slug        string        `json:"slug"`
	Description *string       `json:"description,omitempty"`
	Image       *string       `json:"image,omitempty"`
	ParentID    *uuid.UUID    `json:"parentId,omitempty"`
	IsActive    bool          `json:"isActive"`
	SortOrder   int           `json:"sortOrder"`
	Children    []CategoryDTO `json:"children,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

func NewCategoryDTO(c *models.Category) CategoryDTO {
	return CategoryDTO{
		ID:          c.ID,
		Name:        c.Name,
		Slug:        c.Slug,
		Description: c.Description,
		Image:       c.Image,
		ParentID:    c.ParentID,
		IsActive:    c.IsActive,
		SortOrder:   c.SortOrder,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

// BuildTree nests rows under their parents, preserving input order. Rows
// whose parent is missing from the set become roots.
func BuildTree(rows []models.Category) []CategoryDTO {
	children := make(map[uuid.UUID][]int, len(rows))
	present := make(map[uuid.UUID]struct{}, len(rows))
	for _, row := range rows {
		present[row.ID] = struct{}{}
	}
	var roots []int
	for i, row := range rows {
		if row.ParentID != nil {
			if _, ok := present[*row.ParentID]; ok && *row.ParentID != row.ID {
				children[*row.ParentID] = append(children[*row.ParentID], i)
				continue
			}
		}
		roots = append(roots, i)
	}

	visited := make(map[uuid.UUID]bool, len(rows))
	var build func(idx int) CategoryDTO
	build = func(idx int) CategoryDTO {
		node := NewCategoryDTO(&rows[idx])
		visited[node.ID] = true
		for _, childIdx := range children[node.ID] {
			if visited[rows[childIdx].ID] {
				continue
			}
			node.Children = append(node.Children, build(childIdx))
		}
		return node
	}

	out := make([]CategoryDTO, 0, len(roots))
	for _, idx := range roots {
		out = append(out, build(idx))
	}
	return out
}
