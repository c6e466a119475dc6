package reviews

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/lavish-fashion/lavish-backend/internal/orders"
	"github.com/lavish-fashion/lavish-backend/internal/products"
	"github.com/lavish-fashion/lavish-backend/pkg/db/dbtest"
	"github.com/lavish-fashion/lavish-backend/pkg/db/models"
	"github.com/lavish-fashion/lavish-backend/pkg/enums"
	pkgerrors "github.com/lavish-fashion/lavish-backend/pkg/errors"
	"github.com/lavish-fashion/lavish-backend/pkg/types"
)

type fixture struct {
	conn *gorm.DB
	svc  Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	client := dbtest.Client(t)
	conn := client.DB()
	svc, err := NewService(NewRepository(conn), client, products.NewRepository(conn), orders.NewRepository(conn))
	require.NoError(t, err)
	return fixture{conn: conn, svc: svc}
}

func (f fixture) user(t *testing.T, first, last string) Actor {
	t.Helper()
	u := models.User{
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "hash",
		FirstName:    first,
		LastName:     last,
		Role:         enums.UserRoleCustomer,
		IsActive:     true,
		LoyaltyTier:  enums.LoyaltyTierBronze,
	}
	require.NoError(t, f.conn.Create(&u).Error)
	return Actor{UserID: u.ID, Role: u.Role}
}

func (f fixture) product(t *testing.T) models.Product {
	t.Helper()
	category := models.Category{Name: "Shoes", Slug: "shoes-" + uuid.NewString()[:6], IsActive: true}
	require.NoError(t, f.conn.Create(&category).Error)
	p := models.Product{
		Name:       "Suede Loafer",
		Slug:       "suede-loafer-" + uuid.NewString()[:6],
		CategoryID: category.ID,
		BasePrice:  decimal.NewFromInt(180),
		Status:     enums.ProductStatusActive,
		TotalStock: 10,
	}
	require.NoError(t, f.conn.Create(&p).Error)
	return p
}

func (f fixture) deliveredOrder(t *testing.T, userID, productID uuid.UUID, status enums.OrderStatus) {
	t.Helper()
	o := models.Order{
		OrderNumber:     "LV260301" + uuid.NewString()[:3],
		UserID:          userID,
		ShippingMethod:  "standard",
		Subtotal:        decimal.NewFromInt(180),
		Total:           decimal.NewFromInt(180),
		Status:          status,
		PaymentMethod:   enums.PaymentMethodCard,
		ShippingAddress: types.Address{Line1: "1 High St", City: "Leeds"},
		BillingAddress:  types.Address{Line1: "1 High St", City: "Leeds"},
		Items: []models.OrderItem{{
			ProductID:   productID,
			ProductName: "Suede Loafer",
			ProductSlug: "suede-loafer",
			Quantity:    1,
			UnitPrice:   decimal.NewFromInt(180),
			Total:       decimal.NewFromInt(180),
			Allocations: []models.StockAllocation{},
		}},
	}
	require.NoError(t, f.conn.Create(&o).Error)
}

func (f fixture) rating(t *testing.T, id uuid.UUID) (float64, int) {
	t.Helper()
	var p models.Product
	require.NoError(t, f.conn.First(&p, "id = ?", id).Error)
	return p.AverageRating, p.TotalReviews
}

func TestCreateRecomputesRating(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t)

	for _, r := range []int{5, 4, 4} {
		_, err := f.svc.Create(ctx, f.user(t, "Grace", "Hopper"), p.ID, CreateReviewInput{Rating: r, Title: " Lovely "})
		require.NoError(t, err)
	}

	avg, total := f.rating(t, p.ID)
	assert.InDelta(t, 4.3, avg, 0.0001)
	assert.Equal(t, 3, total)
}

func TestCreateRejectsSecondReview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t)
	author := f.user(t, "Grace", "Hopper")

	_, err := f.svc.Create(ctx, author, p.ID, CreateReviewInput{Rating: 5})
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, author, p.ID, CreateReviewInput{Rating: 1})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	avg, total := f.rating(t, p.ID)
	assert.Equal(t, 5.0, avg)
	assert.Equal(t, 1, total)
}

func TestCreateFlagsVerifiedPurchase(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t)
	buyer := f.user(t, "Grace", "Hopper")
	pending := f.user(t, "Alan", "Turing")
	f.deliveredOrder(t, buyer.UserID, p.ID, enums.OrderStatusDelivered)
	f.deliveredOrder(t, pending.UserID, p.ID, enums.OrderStatusShipped)

	dto, err := f.svc.Create(ctx, buyer, p.ID, CreateReviewInput{Rating: 5, Comment: "Perfect fit"})
	require.NoError(t, err)
	assert.True(t, dto.VerifiedPurchase)
	assert.Equal(t, "Grace H.", dto.AuthorName)

	dto, err = f.svc.Create(ctx, pending, p.ID, CreateReviewInput{Rating: 3})
	require.NoError(t, err)
	assert.False(t, dto.VerifiedPurchase)
}

func TestCreateValidates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.user(t, "Grace", "Hopper")

	_, err := f.svc.Create(ctx, author, f.product(t).ID, CreateReviewInput{Rating: 6})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.Create(ctx, author, uuid.New(), CreateReviewInput{Rating: 4})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestDeleteAuthorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t)
	author := f.user(t, "Grace", "Hopper")
	other := f.user(t, "Alan", "Turing")

	first, err := f.svc.Create(ctx, author, p.ID, CreateReviewInput{Rating: 2})
	require.NoError(t, err)
	second, err := f.svc.Create(ctx, other, p.ID, CreateReviewInput{Rating: 4})
	require.NoError(t, err)

	_, err = f.svc.Delete(ctx, other, first.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	rating, err := f.svc.Delete(ctx, author, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 4.0, rating.AverageRating)
	assert.Equal(t, 1, rating.TotalReviews)

	admin := Actor{UserID: uuid.New(), Role: enums.UserRoleAdmin}
	rating, err = f.svc.Delete(ctx, admin, second.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, rating.TotalReviews)

	avg, total := f.rating(t, p.ID)
	assert.Equal(t, 0.0, avg)
	assert.Equal(t, 0, total)

	_, err = f.svc.Delete(ctx, admin, second.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestListPaginates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t)
	for range 3 {
		_, err := f.svc.Create(ctx, f.user(t, "Ada", ""), p.ID, CreateReviewInput{Rating: 5})
		require.NoError(t, err)
	}

	page, err := f.svc.List(ctx, p.ID, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, "Ada", page.Items[0].AuthorName)
}
