package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/lavish-fashion/lavish-backend/internal/cart"
	"github.com/lavish-fashion/lavish-backend/internal/products"
	"github.com/lavish-fashion/lavish-backend/internal/users"
	"github.com/lavish-fashion/lavish-backend/pkg/config"
	"github.com/lavish-fashion/lavish-backend/pkg/db/dbtest"
	"github.com/lavish-fashion/lavish-backend/pkg/db/models"
	"github.com/lavish-fashion/lavish-backend/pkg/enums"
	pkgerrors "github.com/lavish-fashion/lavish-backend/pkg/errors"
	"github.com/lavish-fashion/lavish-backend/pkg/outbox"
	"github.com/lavish-fashion/lavish-backend/pkg/types"
)

var fixedNow = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

type stubSequence struct {
	next  int64
	err   error
	calls int
}

func (s *stubSequence) NextDailySequence(context.Context, string) (int64, error) {
	s.calls++
	return s.next, s.err
}

type fixture struct {
	conn *gorm.DB
	svc  *service
}

func newFixture(t *testing.T, seq SequenceSource) fixture {
	t.Helper()
	client := dbtest.Client(t)
	conn := client.DB()
	svc, err := NewService(ServiceParams{
		Repo:      NewRepository(conn),
		Tx:        client,
		Products:  products.NewRepository(conn),
		Users:     users.NewRepository(conn),
		Carts:     cart.NewRepository(conn),
		Outbox:    outbox.NewService(outbox.NewRepository(conn), nil),
		Sequences: seq,
		Commerce:  config.DefaultCommerce(),
	})
	require.NoError(t, err)
	impl := svc.(*service)
	impl.now = func() time.Time { return fixedNow }
	return fixture{conn: conn, svc: impl}
}

func (f fixture) customer(t *testing.T, spent string, tier enums.LoyaltyTier) Actor {
	t.Helper()
	u := models.User{
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "hash",
		FirstName:    "Ada",
		LastName:     "Lovelace",
		Role:         enums.UserRoleCustomer,
		IsActive:     true,
		TotalSpent:   decimal.RequireFromString(spent),
		LoyaltyTier:  tier,
	}
	require.NoError(t, f.conn.Create(&u).Error)
	return Actor{UserID: u.ID, Role: enums.UserRoleCustomer}
}

func (f fixture) product(t *testing.T, price string, stock int, variants ...models.ProductVariant) models.Product {
	t.Helper()
	category := models.Category{Name: "Dresses", Slug: "dresses-" + uuid.NewString()[:6], IsActive: true}
	require.NoError(t, f.conn.Create(&category).Error)
	p := models.Product{
		Name:       "Silk Slip Dress",
		Slug:       "silk-slip-" + uuid.NewString()[:6],
		CategoryID: category.ID,
		BasePrice:  decimal.RequireFromString(price),
		Status:     enums.ProductStatusActive,
		TotalStock: stock,
		Variants:   variants,
	}
	products.Recompute(&p)
	require.NoError(t, f.conn.Create(&p).Error)
	return p
}

func (f fixture) reload(t *testing.T, id uuid.UUID) models.Product {
	t.Helper()
	var p models.Product
	require.NoError(t, f.conn.Preload("Variants").First(&p, "id = ?", id).Error)
	return p
}

func (f fixture) user(t *testing.T, id uuid.UUID) models.User {
	t.Helper()
	var u models.User
	require.NoError(t, f.conn.First(&u, "id = ?", id).Error)
	return u
}

func (f fixture) countEvents(t *testing.T, eventType enums.OutboxEventType) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.conn.Model(&models.OutboxEvent{}).Where("event_type = ?", eventType).Count(&n).Error)
	return n
}

func address() types.Address {
	return types.Address{
		FirstName:  "Ada",
		LastName:   "Lovelace",
		Line1:      "12 Savile Row",
		City:       "London",
		PostalCode: "W1S 3PQ",
		Country:    "gb",
	}
}

func orderInput(items ...OrderItemInput) CreateOrderInput {
	return CreateOrderInput{
		Items:           items,
		ShippingAddress: address(),
		PaymentMethod:   enums.PaymentMethodCard,
	}
}

func TestCreateDecrementsStockAndPricesOrder(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	actor := f.customer(t, "0", enums.LoyaltyTierBronze)
	p := f.product(t, "60", 2)

	dto, err := f.svc.Create(ctx, actor, orderInput(OrderItemInput{ProductID: p.ID, Quantity: 2}))
	require.NoError(t, err)

	assert.Equal(t, "LV260314001", dto.OrderNumber)
	assert.Equal(t, enums.OrderStatusPending, dto.Status)
	assert.Equal(t, enums.TrackingStatusPending, dto.Shipping.TrackingStatus)
	assert.Equal(t, enums.PaymentStatusPending, dto.PaymentStatus)
	assert.True(t, dto.Subtotal.Equal(decimal.NewFromInt(120)))
	assert.True(t, dto.Shipping.Cost.IsZero())
	assert.True(t, dto.Tax.Equal(decimal.RequireFromString("9.60")))
	assert.True(t, dto.Total.Equal(decimal.RequireFromString("129.60")))
	assert.True(t, dto.CanBeCancelled)
	assert.False(t, dto.CanBeReturned)
	assert.Equal(t, "GB", dto.BillingAddress.Country, "billing defaults to shipping")
	require.Len(t, dto.Items, 1)
	assert.Equal(t, "Silk Slip Dress", dto.Items[0].ProductName)

	stored := f.reload(t, p.ID)
	assert.Equal(t, 0, stored.TotalStock)
	assert.Equal(t, 2, stored.PurchaseCount)

	u := f.user(t, actor.UserID)
	assert.Equal(t, 1, u.TotalOrders)
	assert.True(t, u.TotalSpent.Equal(decimal.RequireFromString("129.60")))
	assert.Equal(t, 129, u.LoyaltyPoints)
	assert.Equal(t, int64(1), f.countEvents(t, enums.EventOrderCreated))
}

func TestCreateRejectsInsufficientStockWithoutSideEffects(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	actor := f.customer(t, "0", enums.LoyaltyTierBronze)
	p := f.product(t, "60", 2)

	_, err := f.svc.Create(ctx, actor, orderInput(OrderItemInput{ProductID: p.ID, Quantity: 2}))
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, actor, orderInput(OrderItemInput{ProductID: p.ID, Quantity: 1}))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock))

	stored := f.reload(t, p.ID)
	assert.Equal(t, 0, stored.TotalStock)
	assert.Equal(t, 2, stored.PurchaseCount)

	var orders int64
	require.NoError(t, f.conn.Model(&models.Order{}).Count(&orders).Error)
	assert.Equal(t, int64(1), orders)
	assert.Equal(t, 1, f.user(t, actor.UserID).TotalOrders)
	assert.Equal(t, int64(1), f.countEvents(t, enums.EventOrderCreated))
}

func TestCreateRollsBackEarlierLinesWhenLaterLineFails(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	actor := f.customer(t, "0", enums.LoyaltyTierBronze)
	plenty := f.product(t, "30", 10)
	scarce := f.product(t, "30", 1)

	_, err := f.svc.Create(ctx, actor, orderInput(
		OrderItemInput{ProductID: plenty.ID, Quantity: 3},
		OrderItemInput{ProductID: scarce.ID, Quantity: 2},
	))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock))
	assert.Equal(t, 10, f.reload(t, plenty.ID).TotalStock)
	assert.Equal(t, 1, f.reload(t, scarce.ID).TotalStock)
}

func TestCreateChargesFlatShippingBelowThreshold(t *testing.T) {
	f := newFixture(t, nil)
	actor := f.customer(t, "0", enums.LoyaltyTierBronze)
	p := f.product(t, "40", 5)

	dto, err := f.svc.Create(context.Background(), actor, orderInput(OrderItemInput{ProductID: p.ID, Quantity: 1}))
	require.NoError(t, err)
	assert.True(t, dto.Shipping.Cost.Equal(decimal.RequireFromString("9.99")))
	assert.True(t, dto.Tax.Equal(decimal.RequireFromString("3.20")))
	assert.True(t, dto.Total.Equal(decimal.RequireFromString("53.19")))
}

func TestCreateRejectsUnknownAndInactiveProducts(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	actor := f.customer(t, "0", enums.LoyaltyTierBronze)

	_, err := f.svc.Create(ctx, actor, orderInput(OrderItemInput{ProductID: uuid.New(), Quantity: 1}))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	p := f.product(t, "40", 5)
	require.NoError(t, f.conn.Model(&models.Product{}).Where("id = ?", p.ID).Update("status", enums.ProductStatusInactive).Error)
	_, err = f.svc.Create(ctx, actor, orderInput(OrderItemInput{ProductID: p.ID, Quantity: 1}))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestCreateValidatesInput(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	actor := f.customer(t, "0", enums.LoyaltyTierBronze)

	_, err := f.svc.Create(ctx, actor, orderInput())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	in := orderInput(OrderItemInput{ProductID: uuid.New(), Quantity: 1})
	in.ShippingAddress = types.Address{}
	_, err = f.svc.Create(ctx, actor, in)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.Create(ctx, Actor{}, orderInput(OrderItemInput{ProductID: uuid.New(), Quantity: 1}))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestCreateAllocatesVariantsByPositionWhenSKUOmitted(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	actor := f.customer(t, "0", enums.LoyaltyTierBronze)
	p := f.product(t, "50", 0,
		models.ProductVariant{SKU: "SSD-S-BLK", Size: "S", Color: "Black", Price: decimal.NewFromInt(50), Stock: 3, Position: 0},
		models.ProductVariant{SKU: "SSD-M-BLK", Size: "M", Color: "Black", Price: decimal.NewFromInt(50), Stock: 2, Position: 1},
	)

	dto, err := f.svc.Create(ctx, actor, orderInput(OrderItemInput{ProductID: p.ID, Quantity: 4}))
	require.NoError(t, err)

	stored := f.reload(t, p.ID)
	assert.Equal(t, 1, stored.TotalStock)
	stock := map[string]int{}
	for _, v := range stored.Variants {
		stock[v.SKU] = v.Stock
	}
	assert.Equal(t, 0, stock["SSD-S-BLK"])
	assert.Equal(t, 1, stock["SSD-M-BLK"])

	_, err = f.svc.Cancel(ctx, actor, dto.ID, CancelInput{Reason: "changed my mind"})
	require.NoError(t, err)

	stored = f.reload(t, p.ID)
	assert.Equal(t, 5, stored.TotalStock)
	assert.Equal(t, 0, stored.PurchaseCount)
	for _, v := range stored.Variants {
		stock[v.SKU] = v.Stock
	}
	assert.Equal(t, 3, stock["SSD-S-BLK"])
	assert.Equal(t, 2, stock["SSD-M-BLK"])
}

func TestCancelFailsWhenVariantNoLongerExists(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	actor := f.customer(t, "0", enums.LoyaltyTierBronze)
	p := f.product(t, "50", 0,
		models.ProductVariant{SKU: "OLD-S", Size: "S", Price: decimal.NewFromInt(50), Stock: 3},
	)

	dto, err := f.svc.Create(ctx, actor, orderInput(OrderItemInput{ProductID: p.ID, SKU: "OLD-S", Quantity: 2}))
	require.NoError(t, err)

	repo := products.NewRepository(f.conn)
	require.NoError(t, repo.ReplaceVariants(ctx, p.ID, []models.ProductVariant{
		{SKU: "NEW-S", Size: "S", Price: decimal.NewFromInt(50), Stock: 1},
	}))
	_, err = repo.RecomputeStock(ctx, p.ID)
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, actor, dto.ID, CancelInput{})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "got %v", err)

	got, err := f.svc.Get(ctx, actor, dto.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, got.Status, "cancel rolled back")
	assert.Equal(t, 1, f.reload(t, p.ID).TotalStock)
	assert.Zero(t, f.countEvents(t, enums.EventOrderCancelled))
}

func TestCreateWithSKUSnapshotsVariant(t *testing.T) {
	f := newFixture(t, nil)
	actor := f.customer(t, "0", enums.LoyaltyTierBronze)
	p := f.product(t, "50", 0,
		models.ProductVariant{SKU: "SSD-M-RED", Size: "M", Color: "Red", Price: decimal.NewFromInt(50), Stock: 1},
	)

	dto, err := f.svc.Create(context.Background(), actor, orderInput(OrderItemInput{ProductID: p.ID, SKU: "ssd-m-red", Quantity: 1}))
	require.NoError(t, err)
	require.Len(t, dto.Items, 1)
	assert.Equal(t, "SSD-M-RED", *dto.Items[0].SKU)
	assert.Equal(t, "M", *dto.Items[0].Size)
	assert.Equal(t, "Red", *dto.Items[0].Color)

	_, err = f.svc.Create(context.Background(), actor, orderInput(OrderItemInput{ProductID: p.ID, SKU: "SSD-M-RED", Quantity: 1}))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock))

	_, err = f.svc.Create(context.Background(), actor, orderInput(OrderItemInput{ProductID: p.ID, SKU: "NOPE", Quantity: 1}))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestOrderNumbersIncrementWithinDay(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	actor := f.customer(t, "0", enums.LoyaltyTierBronze)
	p := f.product(t, "10", 10)

	var numbers []string
	for range 3 {
		dto, err := f.svc.Create(ctx, actor, orderInput(OrderItemInput{ProductID: p.ID, Quantity: 1}))
		require.NoError(t, err)
		numbers = append(numbers, dto.OrderNumber)
	}
	assert.Equal(t, []string{"LV260314001", "LV260314002", "LV260314003"}, numbers)

	f.svc.now = func() time.Time { return fixedNow.AddDate(0, 0, 1) }
	dto, err := f.svc.Create(ctx, actor, orderInput(OrderItemInput{ProductID: p.ID, Quantity: 1}))
	require.NoError(t, err)
	assert.Equal(t, "LV260315001", dto.OrderNumber)
}

func TestOrderNumberCollisionRetriesWholeTransaction(t *testing.T) {
	seq := &stubSequence{next: 1}
	f := newFixture(t, seq)
	ctx := context.Background()
	actor := f.customer(t, "0", enums.LoyaltyTierBronze)
	p := f.product(t, "10", 10)

	first, err := f.svc.Create(ctx, actor, orderInput(OrderItemInput{ProductID: p.ID, Quantity: 1}))
	require.NoError(t, err)
	assert.Equal(t, "LV260314001", first.OrderNumber)

	second, err := f.svc.Create(ctx, actor, orderInput(OrderItemInput{ProductID: p.ID, Quantity: 2}))
	require.NoError(t, err)
	assert.Equal(t, "LV260314002", second.OrderNumber)
	assert.Equal(t, 2, seq.calls)

	// the failed attempt must not have taken stock
	assert.Equal(t, 7, f.reload(t, p.ID).TotalStock)
	assert.Equal(t, 2, f.user(t, actor.UserID).TotalOrders)
}

func TestOrderNumberFallsBackWhenSequenceFails(t *testing.T) {
	f := newFixture(t, &stubSequence{err: errors.New("redis down")})
	actor := f.customer(t, "0", enums.LoyaltyTierBronze)
	p := f.product(t, "10", 10)

	dto, err := f.svc.Create(context.Background(), actor, orderInput(OrderItemInput{ProductID: p.ID, Quantity: 1}))
	require.NoError(t, err)
	assert.Equal(t, "LV260314001", dto.OrderNumber)
}

func TestCreatePromotesLoyaltyTier(t *testing.T) {
	f := newFixture(t, nil)
	actor := f.customer(t, "1200", enums.LoyaltyTierSilver)
	p := f.product(t, "4000", 1)

	_, err := f.svc.Create(context.Background(), actor, orderInput(OrderItemInput{ProductID: p.ID, Quantity: 1}))
	require.NoError(t, err)

	u := f.user(t, actor.UserID)
	assert.Equal(t, enums.LoyaltyTierGold, u.LoyaltyTier)
	assert.Equal(t, 1, u.TotalOrders)
}

func TestCreateEmitsLowStockOnce(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	actor := f.customer(t, "0", enums.LoyaltyTierBronze)
	p := f.product(t, "10", 7)

	_, err := f.svc.Create(ctx, actor, orderInput(OrderItemInput{ProductID: p.ID, Quantity: 1}))
	require.NoError(t, err)
	assert.Equal(t, int64(0), f.countEvents(t, enums.EventProductLowStock))

	_, err = f.svc.Create(ctx, actor, orderInput(OrderItemInput{ProductID: p.ID, Quantity: 2}))
	require.NoError(t, err)
	assert.Equal(t, int64(1), f.countEvents(t, enums.EventProductLowStock))

	_, err = f.svc.Create(ctx, actor, orderInput(OrderItemInput{ProductID: p.ID, Quantity: 1}))
	require.NoError(t, err)
	assert.Equal(t, int64(1), f.countEvents(t, enums.EventProductLowStock))
}

func TestCreateClearsCartWhenRequested(t *testing.T) {
	f := newFixture(t, nil)
	actor := f.customer(t, "0", enums.LoyaltyTierBronze)
	p := f.product(t, "10", 5)

	c := models.Cart{UserID: &actor.UserID, ExpiresAt: fixedNow.Add(time.Hour)}
	require.NoError(t, f.conn.Create(&c).Error)
	require.NoError(t, f.conn.Create(&models.CartItem{CartID: c.ID, ProductID: p.ID, Quantity: 1, Price: decimal.NewFromInt(10)}).Error)

	in := orderInput(OrderItemInput{ProductID: p.ID, Quantity: 1})
	in.ClearCart = true
	_, err := f.svc.Create(context.Background(), actor, in)
	require.NoError(t, err)

	var n int64
	require.NoError(t, f.conn.Model(&models.CartItem{}).Where("cart_id = ?", c.ID).Count(&n).Error)
	assert.Equal(t, int64(0), n)
}

func TestCancelAuthorization(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	owner := f.customer(t, "0", enums.LoyaltyTierBronze)
	stranger := f.customer(t, "0", enums.LoyaltyTierBronze)
	p := f.product(t, "10", 5)

	dto, err := f.svc.Create(ctx, owner, orderInput(OrderItemInput{ProductID: p.ID, Quantity: 2}))
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, stranger, dto.ID, CancelInput{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	admin := Actor{UserID: uuid.New(), Role: enums.UserRoleAdmin}
	cancelled, err := f.svc.Cancel(ctx, admin, dto.ID, CancelInput{Reason: "fraud check"})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)
	assert.Equal(t, "fraud check", *cancelled.CancelReason)
	assert.Equal(t, 5, f.reload(t, p.ID).TotalStock)
	assert.Equal(t, int64(1), f.countEvents(t, enums.EventOrderCancelled))

	_, err = f.svc.Cancel(ctx, owner, dto.ID, CancelInput{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidState))
	assert.Equal(t, 5, f.reload(t, p.ID).TotalStock, "second cancel must not restore again")
}

func TestCancelRejectedAfterShipping(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	owner := f.customer(t, "0", enums.LoyaltyTierBronze)
	admin := Actor{UserID: uuid.New(), Role: enums.UserRoleAdmin}
	p := f.product(t, "10", 5)

	dto, err := f.svc.Create(ctx, owner, orderInput(OrderItemInput{ProductID: p.ID, Quantity: 1}))
	require.NoError(t, err)

	tracking := "TRK-1"
	shipped, err := f.svc.UpdateStatus(ctx, admin, dto.ID, UpdateStatusInput{Status: enums.OrderStatusShipped, TrackingNumber: &tracking})
	require.NoError(t, err)
	assert.Equal(t, enums.FulfillmentStatusFulfilled, shipped.FulfillmentStatus)
	assert.Equal(t, enums.TrackingStatusInTransit, shipped.Shipping.TrackingStatus)
	assert.Equal(t, "TRK-1", *shipped.Shipping.TrackingNumber)
	require.NotNil(t, shipped.ShippedAt)
	assert.False(t, shipped.CanBeCancelled)

	_, err = f.svc.Cancel(ctx, owner, dto.ID, CancelInput{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidState))
	assert.Equal(t, 4, f.reload(t, p.ID).TotalStock)
	assert.Equal(t, int64(1), f.countEvents(t, enums.EventOrderStatusChanged))
}

// interleavedTx commits a competing write just before the first transaction
// opens, the window between a service's pre-checks and its write.
type interleavedTx struct {
	txRunner
	write func()
	fired bool
}

func (i *interleavedTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if !i.fired {
		i.fired = true
		i.write()
	}
	return i.txRunner.WithTx(ctx, fn)
}

func TestUpdateStatusKeepsConcurrentCancel(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	owner := f.customer(t, "0", enums.LoyaltyTierBronze)
	admin := Actor{UserID: uuid.New(), Role: enums.UserRoleAdmin}
	p := f.product(t, "10", 5)
	dto, err := f.svc.Create(ctx, owner, orderInput(OrderItemInput{ProductID: p.ID, Quantity: 1}))
	require.NoError(t, err)

	f.svc.tx = &interleavedTx{txRunner: f.svc.tx, write: func() {
		require.NoError(t, f.conn.Model(&models.Order{}).Where("id = ?", dto.ID).Updates(map[string]any{
			"status":        enums.OrderStatusCancelled,
			"cancel_reason": "customer called",
			"cancelled_at":  fixedNow,
		}).Error)
	}}

	updated, err := f.svc.UpdateStatus(ctx, admin, dto.ID, UpdateStatusInput{Status: enums.OrderStatusRefunded})
	require.NoError(t, err)
	require.NotNil(t, updated.CancelReason)
	assert.Equal(t, "customer called", *updated.CancelReason)
	require.NotNil(t, updated.CancelledAt)

	var stored models.Order
	require.NoError(t, f.conn.First(&stored, "id = ?", dto.ID).Error)
	assert.Equal(t, enums.OrderStatusRefunded, stored.Status)
	require.NotNil(t, stored.CancelReason)
	assert.Equal(t, "customer called", *stored.CancelReason)
}

func TestRequestReturnRechecksInsideTransaction(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	owner := f.customer(t, "0", enums.LoyaltyTierBronze)
	admin := Actor{UserID: uuid.New(), Role: enums.UserRoleAdmin}
	p := f.product(t, "10", 5)
	dto, err := f.svc.Create(ctx, owner, orderInput(OrderItemInput{ProductID: p.ID, Quantity: 1}))
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, admin, dto.ID, UpdateStatusInput{Status: enums.OrderStatusDelivered})
	require.NoError(t, err)

	f.svc.tx = &interleavedTx{txRunner: f.svc.tx, write: func() {
		require.NoError(t, f.conn.Model(&models.Order{}).Where("id = ?", dto.ID).Updates(map[string]any{
			"return_status": enums.ReturnStatusRequested,
			"return_reason": "first request",
		}).Error)
	}}

	_, err = f.svc.RequestReturn(ctx, owner, dto.ID, ReturnInput{Reason: "second request"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidState), "got %v", err)

	var stored models.Order
	require.NoError(t, f.conn.First(&stored, "id = ?", dto.ID).Error)
	require.NotNil(t, stored.ReturnReason)
	assert.Equal(t, "first request", *stored.ReturnReason)
	assert.Zero(t, f.countEvents(t, enums.EventOrderReturnRequested))
}

func TestUpdateStatusRequiresStaff(t *testing.T) {
	f := newFixture(t, nil)
	owner := f.customer(t, "0", enums.LoyaltyTierBronze)
	p := f.product(t, "10", 5)
	dto, err := f.svc.Create(context.Background(), owner, orderInput(OrderItemInput{ProductID: p.ID, Quantity: 1}))
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(context.Background(), owner, dto.ID, UpdateStatusInput{Status: enums.OrderStatusConfirmed})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestRequestReturnWindow(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	owner := f.customer(t, "0", enums.LoyaltyTierBronze)
	admin := Actor{UserID: uuid.New(), Role: enums.UserRoleSuperAdmin}
	p := f.product(t, "10", 5)

	deliver := func() uuid.UUID {
		dto, err := f.svc.Create(ctx, owner, orderInput(OrderItemInput{ProductID: p.ID, Quantity: 1}))
		require.NoError(t, err)
		_, err = f.svc.UpdateStatus(ctx, admin, dto.ID, UpdateStatusInput{Status: enums.OrderStatusDelivered})
		require.NoError(t, err)
		return dto.ID
	}
	onTime := deliver()
	late := deliver()

	_, err := f.svc.RequestReturn(ctx, admin, onTime, ReturnInput{Reason: "too small"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden), "returns are owner-only")

	f.svc.now = func() time.Time { return fixedNow.AddDate(0, 0, 30) }
	dto, err := f.svc.RequestReturn(ctx, owner, onTime, ReturnInput{Reason: "too small"})
	require.NoError(t, err)
	assert.Equal(t, enums.ReturnStatusRequested, dto.Return.Status)
	assert.Equal(t, "too small", *dto.Return.Reason)
	assert.Equal(t, int64(1), f.countEvents(t, enums.EventOrderReturnRequested))

	_, err = f.svc.RequestReturn(ctx, owner, onTime, ReturnInput{Reason: "again"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidState))

	f.svc.now = func() time.Time { return fixedNow.AddDate(0, 0, 31) }
	_, err = f.svc.RequestReturn(ctx, owner, late, ReturnInput{Reason: "too late"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidState))
}

func TestRequestReturnRequiresDelivery(t *testing.T) {
	f := newFixture(t, nil)
	owner := f.customer(t, "0", enums.LoyaltyTierBronze)
	p := f.product(t, "10", 5)
	dto, err := f.svc.Create(context.Background(), owner, orderInput(OrderItemInput{ProductID: p.ID, Quantity: 1}))
	require.NoError(t, err)

	_, err = f.svc.RequestReturn(context.Background(), owner, dto.ID, ReturnInput{Reason: "never arrived"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidState))
}

func TestGetHidesOtherCustomersOrders(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	owner := f.customer(t, "0", enums.LoyaltyTierBronze)
	stranger := f.customer(t, "0", enums.LoyaltyTierBronze)
	p := f.product(t, "10", 5)
	dto, err := f.svc.Create(ctx, owner, orderInput(OrderItemInput{ProductID: p.ID, Quantity: 1}))
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, stranger, dto.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	got, err := f.svc.GetByNumber(ctx, owner, "lv260314001")
	require.NoError(t, err)
	assert.Equal(t, dto.ID, got.ID)

	admin := Actor{UserID: uuid.New(), Role: enums.UserRoleAdmin}
	_, err = f.svc.Get(ctx, admin, dto.ID)
	assert.NoError(t, err)
}

func TestListMineAndAdminList(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	a := f.customer(t, "0", enums.LoyaltyTierBronze)
	b := f.customer(t, "0", enums.LoyaltyTierBronze)
	p := f.product(t, "10", 10)

	for _, actor := range []Actor{a, a, b} {
		_, err := f.svc.Create(ctx, actor, orderInput(OrderItemInput{ProductID: p.ID, Quantity: 1}))
		require.NoError(t, err)
	}

	mine, err := f.svc.ListMine(ctx, a, ListInput{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), mine.Total)
	assert.Len(t, mine.Items, 2)

	all, err := f.svc.AdminList(ctx, ListInput{Status: "pending", Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), all.Total)
	assert.Len(t, all.Items, 2)
	assert.Equal(t, 2, all.TotalPages)

	_, err = f.svc.AdminList(ctx, ListInput{Status: "lost"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
