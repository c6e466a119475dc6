package products

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/lavish-fashion/lavish-backend/internal/categories"
	"github.com/lavish-fashion/lavish-backend/pkg/db/dbtest"
	"github.com/lavish-fashion/lavish-backend/pkg/db/models"
	"github.com/lavish-fashion/lavish-backend/pkg/enums"
	pkgerrors "github.com/lavish-fashion/lavish-backend/pkg/errors"
)

type fixture struct {
	conn *gorm.DB
	repo Repository
	svc  Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	client := dbtest.Client(t)
	repo := NewRepository(client.DB())
	svc, err := NewService(repo, client, categories.NewRepository(client.DB()))
	require.NoError(t, err)
	return fixture{conn: client.DB(), repo: repo, svc: svc}
}

func (f fixture) category(t *testing.T, name string, parent *uuid.UUID) models.Category {
	t.Helper()
	c := models.Category{Name: name, Slug: uuid.NewString()[:8] + "-" + name, ParentID: parent, IsActive: true}
	require.NoError(t, f.conn.Create(&c).Error)
	return c
}

func dressInput(categoryID uuid.UUID) CreateProductInput {
	return CreateProductInput{
		Name:       "Silk Wrap Dress",
		Brand:      "Maison Lavish",
		CategoryID: categoryID,
		Gender:     enums.GenderWomen,
		BasePrice:  decimal.NewFromInt(120),
		Status:     enums.ProductStatusActive,
		Tags:       []string{"Silk", "evening", "silk"},
		Variants: []VariantInput{
			{Size: "S", Color: "Red", SKU: "dr-s-red", Stock: 2},
			{Size: "M", Color: "Red", SKU: "DR-M-RED", Stock: 5},
		},
	}
}

func TestCreateRecomputesStockAndSlug(t *testing.T) {
	f := newFixture(t)
	cat := f.category(t, "dresses", nil)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, dressInput(cat.ID))
	require.NoError(t, err)
	assert.Equal(t, "silk-wrap-dress", created.Slug)
	assert.Equal(t, 7, created.TotalStock)
	assert.Equal(t, []string{"silk", "evening"}, created.Tags)
	require.Len(t, created.Variants, 2)
	assert.Equal(t, "DR-S-RED", created.Variants[0].SKU)
	assert.True(t, created.Variants[0].Price.Equal(decimal.NewFromInt(120)))

	input := dressInput(cat.ID)
	input.Variants = []VariantInput{{Size: "L", SKU: "DR-L-RED", Stock: 1}}
	second, err := f.svc.Create(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, "silk-wrap-dress-2", second.Slug)
}

func TestCreateRejectsDuplicateSKU(t *testing.T) {
	f := newFixture(t)
	cat := f.category(t, "dresses", nil)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, dressInput(cat.ID))
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, dressInput(cat.ID))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "got %v", err)

	var count int64
	require.NoError(t, f.conn.Model(&models.Product{}).Count(&count).Error)
	assert.Equal(t, int64(1), count, "failed create must roll back")
}

func TestCreateValidatesPricingAndCategory(t *testing.T) {
	f := newFixture(t)
	cat := f.category(t, "dresses", nil)
	ctx := context.Background()

	input := dressInput(cat.ID)
	input.BasePrice = decimal.Zero
	_, err := f.svc.Create(ctx, input)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	input = dressInput(uuid.New())
	_, err = f.svc.Create(ctx, input)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	input = dressInput(cat.ID)
	input.Variants = append(input.Variants, VariantInput{SKU: "DR-S-RED"})
	_, err = f.svc.Create(ctx, input)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestUpdateReplacesVariantsAndReslugs(t *testing.T) {
	f := newFixture(t)
	cat := f.category(t, "dresses", nil)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, dressInput(cat.ID))
	require.NoError(t, err)

	name := "Silk Midi Dress"
	variants := []VariantInput{{Size: "XS", Color: "Black", SKU: "MIDI-XS-BLK", Stock: 4}}
	updated, err := f.svc.Update(ctx, created.ID, UpdateProductInput{Name: &name, Variants: &variants})
	require.NoError(t, err)
	assert.Equal(t, "silk-midi-dress", updated.Slug)
	assert.Equal(t, 4, updated.TotalStock)
	require.Len(t, updated.Variants, 1)
	assert.Equal(t, "MIDI-XS-BLK", updated.Variants[0].SKU)
}

func TestUpdateKeepsSurvivingVariantRows(t *testing.T) {
	f := newFixture(t)
	cat := f.category(t, "dresses", nil)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, dressInput(cat.ID))
	require.NoError(t, err)
	ids := map[string]uuid.UUID{}
	for _, v := range created.Variants {
		ids[v.SKU] = v.ID
	}

	variants := []VariantInput{
		{Size: "M", Color: "Red", SKU: "dr-m-red", Stock: 6},
		{Size: "L", Color: "Red", SKU: "DR-L-RED", Stock: 1},
	}
	updated, err := f.svc.Update(ctx, created.ID, UpdateProductInput{Variants: &variants})
	require.NoError(t, err)
	require.Len(t, updated.Variants, 2)
	assert.Equal(t, 7, updated.TotalStock)

	got := map[string]VariantDTO{}
	for _, v := range updated.Variants {
		got[v.SKU] = v
	}
	assert.Equal(t, ids["DR-M-RED"], got["DR-M-RED"].ID, "surviving sku keeps its row")
	assert.Equal(t, 6, got["DR-M-RED"].Stock)
	assert.NotEqual(t, uuid.Nil, got["DR-L-RED"].ID)
	assert.NotContains(t, got, "DR-S-RED")

	var count int64
	require.NoError(t, f.conn.Model(&models.ProductVariant{}).Where("product_id = ?", created.ID).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestGetBySlugIncrementsViewsAndHidesDrafts(t *testing.T) {
	f := newFixture(t)
	cat := f.category(t, "dresses", nil)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, dressInput(cat.ID))
	require.NoError(t, err)

	got, err := f.svc.GetBySlug(ctx, created.Slug, false)
	require.NoError(t, err)
	assert.Equal(t, 1, got.ViewCount)
	got, err = f.svc.GetBySlug(ctx, created.Slug, false)
	require.NoError(t, err)
	assert.Equal(t, 2, got.ViewCount)

	require.NoError(t, f.svc.Delete(ctx, created.ID))
	_, err = f.svc.GetBySlug(ctx, created.Slug, false)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	hidden, err := f.svc.GetBySlug(ctx, created.Slug, true)
	require.NoError(t, err)
	assert.Equal(t, enums.ProductStatusDiscontinued, hidden.Status)
}

func TestListFiltersAndSorts(t *testing.T) {
	f := newFixture(t)
	women := f.category(t, "women", nil)
	dresses := f.category(t, "dresses", &women.ID)
	men := f.category(t, "men", nil)
	ctx := context.Background()

	mk := func(name string, cat uuid.UUID, price int64, status enums.ProductStatus, size string) {
		_, err := f.svc.Create(ctx, CreateProductInput{
			Name:       name,
			CategoryID: cat,
			BasePrice:  decimal.NewFromInt(price),
			Status:     status,
			Variants:   []VariantInput{{Size: size, SKU: uuid.NewString()[:12], Stock: 1}},
		})
		require.NoError(t, err)
	}
	mk("Linen Dress", dresses.ID, 90, enums.ProductStatusActive, "S")
	mk("Wool Coat", women.ID, 250, enums.ProductStatusActive, "M")
	mk("Oxford Shirt", men.ID, 60, enums.ProductStatusActive, "L")
	mk("Draft Skirt", women.ID, 40, enums.ProductStatusDraft, "S")

	page, err := f.svc.List(ctx, ListInput{Sort: "price_asc"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	require.Len(t, page.Items, 3)
	assert.Equal(t, "Oxford Shirt", page.Items[0].Name)
	assert.Equal(t, 12, page.Limit)

	page, err = f.svc.List(ctx, ListInput{CategorySlug: women.Slug, Sort: "price_desc"})
	require.NoError(t, err)
	require.Len(t, page.Items, 2, "parent category includes direct children")
	assert.Equal(t, "Wool Coat", page.Items[0].Name)

	page, err = f.svc.List(ctx, ListInput{Size: "s"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Linen Dress", page.Items[0].Name)

	minPrice := decimal.NewFromInt(80)
	page, err = f.svc.List(ctx, ListInput{MinPrice: &minPrice, Search: "COAT"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)

	page, err = f.svc.List(ctx, ListInput{IncludeHidden: true, Status: "draft"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Draft Skirt", page.Items[0].Name)

	page, err = f.svc.List(ctx, ListInput{Limit: 2, Page: 2, Sort: "name"})
	require.NoError(t, err)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Wool Coat", page.Items[0].Name)

	_, err = f.svc.List(ctx, ListInput{Sort: "random"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestSetStockKeepsTotalsConsistent(t *testing.T) {
	f := newFixture(t)
	cat := f.category(t, "dresses", nil)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, dressInput(cat.ID))
	require.NoError(t, err)

	updated, err := f.svc.SetStock(ctx, created.ID, StockInput{SKU: "DR-S-RED", Stock: 10})
	require.NoError(t, err)
	assert.Equal(t, 15, updated.TotalStock)

	updated, err = f.svc.SetStock(ctx, created.ID, StockInput{SKU: " dr-s-red ", Stock: 4})
	require.NoError(t, err, "sku lookup ignores case")
	assert.Equal(t, 9, updated.TotalStock)

	_, err = f.svc.SetStock(ctx, created.ID, StockInput{SKU: "NOPE", Stock: 1})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = f.svc.SetStock(ctx, created.ID, StockInput{Stock: 1})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestRepositoryStockGuards(t *testing.T) {
	f := newFixture(t)
	cat := f.category(t, "dresses", nil)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, dressInput(cat.ID))
	require.NoError(t, err)

	ok, err := f.repo.TakeVariantStock(ctx, created.ID, "DR-S-RED", 3)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.repo.TakeVariantStock(ctx, created.ID, "DR-S-RED", 2)
	require.NoError(t, err)
	assert.True(t, ok)

	product, err := f.repo.RecomputeStock(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, product.TotalStock)

	ok, err = f.repo.RestoreVariantStock(ctx, created.ID, "DR-S-RED", 2)
	require.NoError(t, err)
	assert.True(t, ok)
	product, err = f.repo.RecomputeStock(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, product.TotalStock)

	ok, err = f.repo.RestoreVariantStock(ctx, created.ID, "GONE", 2)
	require.NoError(t, err)
	assert.False(t, ok, "restoring to a missing sku reports no match")

	require.NoError(t, f.repo.AdjustPurchaseCount(ctx, created.ID, 2))
	require.NoError(t, f.repo.AdjustPurchaseCount(ctx, created.ID, -5))
	product, err = f.repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, product.PurchaseCount)
}

func TestFeaturedAndRelated(t *testing.T) {
	f := newFixture(t)
	cat := f.category(t, "dresses", nil)
	ctx := context.Background()

	first, err := f.svc.Create(ctx, dressInput(cat.ID))
	require.NoError(t, err)

	input := dressInput(cat.ID)
	input.Name = "Satin Slip Dress"
	input.IsFeatured = true
	input.Variants = []VariantInput{{SKU: "SLIP-1", Stock: 3}}
	second, err := f.svc.Create(ctx, input)
	require.NoError(t, err)

	featured, err := f.svc.Featured(ctx, 0)
	require.NoError(t, err)
	require.Len(t, featured, 1)
	assert.Equal(t, second.ID, featured[0].ID)

	related, err := f.svc.Related(ctx, first.ID, 4)
	require.NoError(t, err)
	require.Len(t, related, 1)
	assert.Equal(t, second.ID, related[0].ID)
}

func TestNewProductDTOUsesSaleWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	start := now.Add(-time.Hour)
	p := &models.Product{
		BasePrice:     decimal.NewFromInt(100),
		SalePrice:     decimal.NewNullDecimal(decimal.NewFromInt(70)),
		IsOnSale:      true,
		SaleStartDate: &start,
		TotalStock:    0,
	}
	dto := NewProductDTO(p, now)
	assert.True(t, dto.SaleActive)
	assert.True(t, dto.CurrentPrice.Equal(decimal.NewFromInt(70)))
	assert.False(t, dto.InStock)
	assert.NotNil(t, dto.Variants)
}
