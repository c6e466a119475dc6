package categories

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lavish-fashion/lavish-backend/pkg/db/dbtest"
	"github.com/lavish-fashion/lavish-backend/pkg/db/models"
	pkgerrors "github.com/lavish-fashion/lavish-backend/pkg/errors"
)

type stubProductCounter struct {
	count func(ctx context.Context, id uuid.UUID) (int64, error)
}

func (s stubProductCounter) CountByCategory(ctx context.Context, id uuid.UUID) (int64, error) {
	if s.count == nil {
		return 0, nil
	}
	return s.count(ctx, id)
}

func newTestService(t *testing.T, counter ProductCounter) Service {
	t.Helper()
	client := dbtest.Client(t)
	svc, err := NewService(NewRepository(client.DB()), client, counter)
	require.NoError(t, err)
	return svc
}

func TestCreateAssignsUniqueSlug(t *testing.T) {
	svc := newTestService(t, stubProductCounter{})
	ctx := context.Background()

	first, err := svc.Create(ctx, CreateCategoryInput{Name: "Evening Dresses"})
	require.NoError(t, err)
	assert.Equal(t, "evening-dresses", first.Slug)
	assert.True(t, first.IsActive)

	second, err := svc.Create(ctx, CreateCategoryInput{Name: "Evening  Dresses"})
	require.NoError(t, err)
	assert.Equal(t, "evening-dresses-2", second.Slug)
}

func TestCreateRejectsUnknownParent(t *testing.T) {
	svc := newTestService(t, stubProductCounter{})
	missing := uuid.New()
	_, err := svc.Create(context.Background(), CreateCategoryInput{Name: "Shoes", ParentID: &missing})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestUpdateRejectsSelfParent(t *testing.T) {
	svc := newTestService(t, stubProductCounter{})
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateCategoryInput{Name: "Bags"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, created.ID, UpdateCategoryInput{ParentID: &created.ID})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	fields, ok := typed.Details().([]pkgerrors.FieldError)
	require.True(t, ok)
	assert.Equal(t, "parentId", fields[0].Field)
}

func TestUpdateRenamesAndReslugs(t *testing.T) {
	svc := newTestService(t, stubProductCounter{})
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateCategoryInput{Name: "Knitwear"})
	require.NoError(t, err)

	name := "Winter Knitwear"
	inactive := false
	updated, err := svc.Update(ctx, created.ID, UpdateCategoryInput{Name: &name, IsActive: &inactive})
	require.NoError(t, err)
	assert.Equal(t, "winter-knitwear", updated.Slug)
	assert.False(t, updated.IsActive)

	visible, err := svc.List(ctx, false, false)
	require.NoError(t, err)
	assert.Empty(t, visible)

	all, err := svc.List(ctx, false, true)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestListTreeNestsChildren(t *testing.T) {
	svc := newTestService(t, stubProductCounter{})
	ctx := context.Background()

	women, err := svc.Create(ctx, CreateCategoryInput{Name: "Women"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateCategoryInput{Name: "Dresses", ParentID: &women.ID})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateCategoryInput{Name: "Men", SortOrder: 1})
	require.NoError(t, err)

	tree, err := svc.List(ctx, true, false)
	require.NoError(t, err)
	require.Len(t, tree, 2)
	assert.Equal(t, "Women", tree[0].Name)
	require.Len(t, tree[0].Children, 1)
	assert.Equal(t, "dresses", tree[0].Children[0].Slug)
	assert.Empty(t, tree[1].Children)
}

func TestDeleteGuards(t *testing.T) {
	var productCount int64
	svc := newTestService(t, stubProductCounter{count: func(context.Context, uuid.UUID) (int64, error) {
		return productCount, nil
	}})
	ctx := context.Background()

	parent, err := svc.Create(ctx, CreateCategoryInput{Name: "Accessories"})
	require.NoError(t, err)
	child, err := svc.Create(ctx, CreateCategoryInput{Name: "Belts", ParentID: &parent.ID})
	require.NoError(t, err)

	err = svc.Delete(ctx, parent.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidState))

	productCount = 3
	err = svc.Delete(ctx, child.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidState))

	productCount = 0
	require.NoError(t, svc.Delete(ctx, child.ID))
	require.NoError(t, svc.Delete(ctx, parent.ID))

	_, err = svc.GetBySlug(ctx, "accessories")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestBuildTreeToleratesSelfReference(t *testing.T) {
	id := uuid.New()
	rows := []models.Category{{ID: id, Name: "Loop", ParentID: &id}}
	tree := BuildTree(rows)
	require.Len(t, tree, 1)
	assert.Empty(t, tree[0].Children)
}
