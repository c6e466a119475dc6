package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lavish-fashion/lavish-backend/internal/cart"
	"github.com/lavish-fashion/lavish-backend/internal/products"
	"github.com/lavish-fashion/lavish-backend/internal/users"
	"github.com/lavish-fashion/lavish-backend/pkg/config"
	"github.com/lavish-fashion/lavish-backend/pkg/db"
	"github.com/lavish-fashion/lavish-backend/pkg/db/models"
	"github.com/lavish-fashion/lavish-backend/pkg/enums"
	pkgerrors "github.com/lavish-fashion/lavish-backend/pkg/errors"
	"github.com/lavish-fashion/lavish-backend/pkg/logger"
	"github.com/lavish-fashion/lavish-backend/pkg/metrics"
	"github.com/lavish-fashion/lavish-backend/pkg/outbox"
	"github.com/lavish-fashion/lavish-backend/pkg/outbox/payloads"
	"github.com/lavish-fashion/lavish-backend/pkg/pagination"
	"github.com/lavish-fashion/lavish-backend/pkg/types"
	"github.com/lavish-fashion/lavish-backend/pkg/visibility"
)

const (
	constraintOrderNumber = "orders_order_number_key"
	defaultShippingMethod = "standard"
)

// Service manages the order lifecycle from checkout to return.
type Service interface {
	Create(ctx context.Context, actor Actor, input CreateOrderInput) (*OrderDTO, error)
	Get(ctx context.Context, actor Actor, id uuid.UUID) (*OrderDTO, error)
	GetByNumber(ctx context.Context, actor Actor, number string) (*OrderDTO, error)
	ListMine(ctx context.Context, actor Actor, input ListInput) (*types.Page[OrderDTO], error)
	AdminList(ctx context.Context, input ListInput) (*types.Page[OrderDTO], error)
	UpdateStatus(ctx context.Context, actor Actor, id uuid.UUID, input UpdateStatusInput) (*OrderDTO, error)
	Cancel(ctx context.Context, actor Actor, id uuid.UUID, input CancelInput) (*OrderDTO, error)
	RequestReturn(ctx context.Context, actor Actor, id uuid.UUID, input ReturnInput) (*OrderDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// SequenceSource hands out per-day order sequences. The Redis client satisfies it.
type SequenceSource interface {
	NextDailySequence(ctx context.Context, day string) (int64, error)
}

// ServiceParams wires the order service.
type ServiceParams struct {
	Repo      Repository
	Tx        txRunner
	Products  products.Repository
	Users     users.Repository
	Carts     cart.Repository
	Outbox    outbox.Emitter
	Sequences SequenceSource
	Metrics   *metrics.OrderMetrics
	Commerce  config.CommerceConfig
	Logger    *logger.Logger
}

type service struct {
	repo      Repository
	tx        txRunner
	products  products.Repository
	users     users.Repository
	carts     cart.Repository
	outbox    outbox.Emitter
	sequences SequenceSource
	metrics   *metrics.OrderMetrics
	pricing   Pricing
	lowStock  int
	attempts  int
	logg      *logger.Logger
	now       func() time.Time
}

// NewService validates the dependencies and builds the order service.
// Sequences, Metrics and Logger are optional.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user repository required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	attempts := params.Commerce.OrderNumberAttempts
	if attempts <= 0 {
		attempts = config.DefaultCommerce().OrderNumberAttempts
	}
	m := params.Metrics
	if m == nil {
		m = metrics.NewOrderMetrics(nil)
	}
	return &service{
		repo:      params.Repo,
		tx:        params.Tx,
		products:  params.Products,
		users:     params.Users,
		carts:     params.Carts,
		outbox:    params.Outbox,
		sequences: params.Sequences,
		metrics:   m,
		pricing:   NewPricing(params.Commerce),
		lowStock:  params.Commerce.LowStockThreshold,
		attempts:  attempts,
		logg:      params.Logger,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

type orderLine struct {
	productID uuid.UUID
	sku       string
	quantity  int
}

// Create places an order. Stock, the order row, user stats, the cart and the
// outbox event all commit together or not at all. A clash on the order number
// reruns the whole transaction with a number read from the database.
func (s *service) Create(ctx context.Context, actor Actor, input CreateOrderInput) (*OrderDTO, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	lines, err := normalizeLines(input.Items)
	if err != nil {
		return nil, err
	}
	shipping := input.ShippingAddress.Normalized()
	if shipping.IsZero() {
		return nil, pkgerrors.Fields("invalid order", pkgerrors.FieldError{Field: "shippingAddress", Message: "shipping address is required"})
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.Fields("invalid order", pkgerrors.FieldError{Field: "paymentMethod", Message: "unsupported payment method"})
	}
	billing := shipping
	if input.BillingAddress != nil && !input.BillingAddress.IsZero() {
		billing = input.BillingAddress.Normalized()
	}

	draft := &models.Order{
		UserID:            actor.UserID,
		ShippingMethod:    defaultShippingMethod,
		Status:            enums.OrderStatusPending,
		PaymentStatus:     enums.PaymentStatusPending,
		PaymentMethod:     input.PaymentMethod,
		FulfillmentStatus: enums.FulfillmentStatusUnfulfilled,
		TrackingStatus:    enums.TrackingStatusPending,
		ReturnStatus:      enums.ReturnStatusNone,
		ShippingAddress:   shipping,
		BillingAddress:    billing,
		Notes:             trimmedOrNil(input.Notes),
	}

	var order *models.Order
	for attempt := 1; ; attempt++ {
		order, err = s.createOnce(ctx, actor, *draft, lines, input.ClearCart, attempt == 1)
		if err == nil {
			break
		}
		if !db.IsUniqueViolation(err, constraintOrderNumber) {
			return nil, asTyped(err, "create order")
		}
		if attempt >= s.attempts {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "could not allocate an order number")
		}
		if s.logg != nil {
			logCtx := s.logg.WithField(ctx, "attempt", attempt)
			s.logg.Warn(logCtx, "order number collision, retrying")
		}
	}

	s.metrics.OrderCreated(string(order.PaymentMethod), order.Total)
	if s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, order.ID.String())
		logCtx = s.logg.WithField(logCtx, "order_number", order.OrderNumber)
		s.logg.Info(logCtx, "order created")
	}
	dto := NewOrderDTO(order, s.pricing, s.now())
	return &dto, nil
}

func (s *service) createOnce(ctx context.Context, actor Actor, order models.Order, lines []orderLine, clearCart, useSequence bool) (*models.Order, error) {
	now := s.now()
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		productRepo := s.products.WithTx(tx)
		ids := make([]uuid.UUID, 0, len(lines))
		for _, line := range lines {
			ids = append(ids, line.productID)
		}
		rows, err := productRepo.FindByIDs(ctx, ids)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
		}
		catalog := make(map[uuid.UUID]*models.Product, len(rows))
		before := make(map[uuid.UUID]int, len(rows))
		for i := range rows {
			products.Recompute(&rows[i])
			catalog[rows[i].ID] = &rows[i]
			before[rows[i].ID] = rows[i].TotalStock
		}

		items := make([]models.OrderItem, 0, len(lines))
		purchased := map[uuid.UUID]int{}
		var touched []uuid.UUID
		for i, line := range lines {
			product, ok := catalog[line.productID]
			if !ok {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
					WithDetails(map[string]any{"productId": line.productID.String()})
			}
			if err := visibility.EnsureProductVisible(visibility.ProductVisibilityInput{Product: product, Purchasable: true}); err != nil {
				return err
			}
			item, err := s.takeStock(ctx, productRepo, product, line, i)
			if err != nil {
				return err
			}
			unit := products.CurrentPrice(product, now)
			item.UnitPrice = unit
			item.Total = LineTotal(unit, line.quantity)
			items = append(items, item)

			if _, seen := purchased[product.ID]; !seen {
				touched = append(touched, product.ID)
			}
			purchased[product.ID] += line.quantity
		}

		for _, id := range touched {
			if err := productRepo.AdjustPurchaseCount(ctx, id, purchased[id]); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update purchase count")
			}
			refreshed, err := productRepo.RecomputeStock(ctx, id)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recompute stock")
			}
			if err := s.emitLowStock(ctx, tx, actor, refreshed, before[id]); err != nil {
				return err
			}
		}

		order.Items = items
		s.pricing.Price(&order)

		orderRepo := s.repo.WithTx(tx)
		number, err := s.nextNumber(ctx, orderRepo, now, useSequence)
		if err != nil {
			return err
		}
		order.OrderNumber = number
		if err := orderRepo.Create(ctx, &order); err != nil {
			return err
		}

		userRepo := s.users.WithTx(tx)
		if err := userRepo.AddOrderStats(ctx, actor.UserID, order.Total, LoyaltyPoints(order.Total)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update customer stats")
		}
		if _, err := userRepo.RefreshTier(ctx, actor.UserID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refresh loyalty tier")
		}

		if clearCart {
			if err := s.carts.WithTx(tx).ClearForUser(ctx, actor.UserID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
			}
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(actor),
			OccurredAt:    now,
			Data: payloads.OrderCreatedEvent{
				OrderID:       order.ID,
				OrderNumber:   order.OrderNumber,
				UserID:        order.UserID,
				Total:         order.Total,
				ItemCount:     len(order.Items),
				PaymentMethod: order.PaymentMethod,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// takeStock decrements inventory for one line and returns the item snapshot.
// A line without a sku on a product with variants draws from the variants in
// position order.
func (s *service) takeStock(ctx context.Context, repo products.Repository, p *models.Product, line orderLine, index int) (models.OrderItem, error) {
	item := models.OrderItem{
		ProductID:   p.ID,
		ProductName: p.Name,
		ProductSlug: p.Slug,
		Quantity:    line.quantity,
		Allocations: []models.StockAllocation{},
	}
	if len(p.Images) > 0 {
		image := p.Images[0]
		item.Image = &image
	}

	switch {
	case line.sku != "":
		variant := products.FindVariant(p, line.sku)
		if variant == nil {
			return item, pkgerrors.Fields("invalid order", pkgerrors.FieldError{
				Field:   fmt.Sprintf("items[%d].sku", index),
				Message: "unknown variant",
			})
		}
		ok, err := repo.TakeVariantStock(ctx, p.ID, variant.SKU, line.quantity)
		if err != nil {
			return item, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "take variant stock")
		}
		if !ok {
			return item, s.insufficient(p, variant.SKU, variant.Stock)
		}
		variant.Stock -= line.quantity
		sku, size, color := variant.SKU, variant.Size, variant.Color
		item.SKU = &sku
		item.Size = nonEmpty(size)
		item.Color = nonEmpty(color)
		item.Allocations = append(item.Allocations, models.StockAllocation{SKU: sku, Quantity: line.quantity})

	case len(p.Variants) > 0:
		products.Recompute(p)
		if p.TotalStock < line.quantity {
			return item, s.insufficient(p, "", p.TotalStock)
		}
		remaining := line.quantity
		for i := range p.Variants {
			v := &p.Variants[i]
			if v.Stock <= 0 {
				continue
			}
			take := min(v.Stock, remaining)
			ok, err := repo.TakeVariantStock(ctx, p.ID, v.SKU, take)
			if err != nil {
				return item, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "take variant stock")
			}
			if !ok {
				return item, s.insufficient(p, v.SKU, v.Stock)
			}
			v.Stock -= take
			item.Allocations = append(item.Allocations, models.StockAllocation{SKU: v.SKU, Quantity: take})
			remaining -= take
			if remaining == 0 {
				break
			}
		}
		if remaining > 0 {
			return item, s.insufficient(p, "", line.quantity-remaining)
		}
		products.Recompute(p)

	default:
		ok, err := repo.TakeProductStock(ctx, p.ID, line.quantity)
		if err != nil {
			return item, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "take product stock")
		}
		if !ok {
			return item, s.insufficient(p, "", p.TotalStock)
		}
		p.TotalStock -= line.quantity
	}
	return item, nil
}

func (s *service) insufficient(p *models.Product, sku string, available int) error {
	s.metrics.InsufficientStock()
	details := map[string]any{
		"productId": p.ID.String(),
		"available": max(available, 0),
	}
	if sku != "" {
		details["sku"] = sku
	}
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, fmt.Sprintf("insufficient stock for %s", p.Name)).
		WithDetails(details)
}

func (s *service) emitLowStock(ctx context.Context, tx *gorm.DB, actor Actor, p *models.Product, before int) error {
	if s.lowStock <= 0 || p == nil {
		return nil
	}
	if before <= s.lowStock || p.TotalStock > s.lowStock {
		return nil
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventProductLowStock,
		AggregateType: enums.AggregateProduct,
		AggregateID:   p.ID,
		Actor:         actorRef(actor),
		Data: payloads.ProductLowStockEvent{
			ProductID:  p.ID,
			Slug:       p.Slug,
			TotalStock: p.TotalStock,
			Threshold:  s.lowStock,
		},
	})
}

// nextNumber prefers the shared counter and falls back to the highest number
// already stored for the day.
func (s *service) nextNumber(ctx context.Context, repo Repository, now time.Time, useSequence bool) (string, error) {
	if useSequence && s.sequences != nil {
		seq, err := s.sequences.NextDailySequence(ctx, DayKey(now))
		if err == nil && seq > 0 {
			return FormatOrderNumber(now, seq), nil
		}
		if err != nil && s.logg != nil {
			s.logg.Error(ctx, "order sequence unavailable, using database", err)
		}
	}
	prefix := NumberPrefix(now)
	latest, err := repo.LatestNumberWithPrefix(ctx, prefix)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read latest order number")
	}
	var seq int64
	if latest != "" {
		parsed, ok := ParseSequence(latest, prefix)
		if !ok {
			return "", pkgerrors.New(pkgerrors.CodeInternal, "malformed order number "+latest)
		}
		seq = parsed
	}
	return FormatOrderNumber(now, seq+1), nil
}

func (s *service) Get(ctx context.Context, actor Actor, id uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "load order")
	}
	if err := authorizeView(actor, order); err != nil {
		return nil, err
	}
	dto := NewOrderDTO(order, s.pricing, s.now())
	return &dto, nil
}

func (s *service) GetByNumber(ctx context.Context, actor Actor, number string) (*OrderDTO, error) {
	number = strings.ToUpper(strings.TrimSpace(number))
	if number == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number is required")
	}
	order, err := s.repo.FindByNumber(ctx, number)
	if err != nil {
		return nil, notFoundOr(err, "load order")
	}
	if err := authorizeView(actor, order); err != nil {
		return nil, err
	}
	dto := NewOrderDTO(order, s.pricing, s.now())
	return &dto, nil
}

func (s *service) ListMine(ctx context.Context, actor Actor, input ListInput) (*types.Page[OrderDTO], error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return s.list(ctx, &actor.UserID, input)
}

func (s *service) AdminList(ctx context.Context, input ListInput) (*types.Page[OrderDTO], error) {
	return s.list(ctx, nil, input)
}

func (s *service) list(ctx context.Context, userID *uuid.UUID, input ListInput) (*types.Page[OrderDTO], error) {
	query := ListQuery{
		UserID:     userID,
		Pagination: pagination.Params{Page: input.Page, Limit: input.Limit}.Normalize(),
	}
	if raw := strings.TrimSpace(input.Status); raw != "" {
		status, err := enums.ParseOrderStatus(raw)
		if err != nil {
			return nil, pkgerrors.Fields("invalid filter", pkgerrors.FieldError{Field: "status", Message: err.Error()})
		}
		query.Status = &status
	}
	rows, total, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	now := s.now()
	items := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		items = append(items, NewOrderDTO(&rows[i], s.pricing, now))
	}
	return &types.Page[OrderDTO]{
		Items:      items,
		Page:       query.Pagination.Page,
		Limit:      query.Pagination.Limit,
		Total:      total,
		TotalPages: pagination.TotalPages(total, query.Pagination.Limit),
	}, nil
}

// UpdateStatus applies an admin transition. Any status may follow any other;
// stock is only returned through Cancel.
func (s *service) UpdateStatus(ctx context.Context, actor Actor, id uuid.UUID, input UpdateStatusInput) (*OrderDTO, error) {
	if !actor.Role.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.Fields("invalid status", pkgerrors.FieldError{Field: "status", Message: "unknown order status"})
	}

	now := s.now()
	tracking := Tracking{
		TrackingNumber: trimmedOrNil(input.TrackingNumber),
		Carrier:        trimmedOrNil(input.Carrier),
	}
	var (
		order *models.Order
		from  enums.OrderStatus
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		orderRepo := s.repo.WithTx(tx)
		current, err := orderRepo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return notFoundOr(err, "load order")
		}
		order = current
		from = order.Status
		ApplyStatus(order, input.Status, tracking, now)

		if err := orderRepo.Save(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save order")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(actor),
			OccurredAt:    now,
			Data: payloads.OrderStatusChangedEvent{
				OrderID:        order.ID,
				OrderNumber:    order.OrderNumber,
				UserID:         order.UserID,
				From:           from,
				To:             order.Status,
				TrackingNumber: order.TrackingNumber,
				Carrier:        order.Carrier,
				ChangedAt:      now,
			},
		})
	})
	if err != nil {
		return nil, asTyped(err, "update order status")
	}

	if s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, order.ID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{"from": from, "to": order.Status})
		s.logg.Info(logCtx, "order status updated")
	}
	dto := NewOrderDTO(order, s.pricing, now)
	return &dto, nil
}

// Cancel returns every allocated unit to inventory and marks the order
// cancelled. Only pending or confirmed orders qualify.
func (s *service) Cancel(ctx context.Context, actor Actor, id uuid.UUID, input CancelInput) (*OrderDTO, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "load order")
	}
	if order.UserID != actor.UserID && !actor.Role.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to cancel this order")
	}
	if !CanBeCancelled(order) {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidState, "order can no longer be cancelled").
			WithDetails(map[string]any{"status": order.Status})
	}

	now := s.now()
	from := order.Status
	reason := strings.TrimSpace(input.Reason)
	restored := 0

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		orderRepo := s.repo.WithTx(tx)
		// Locked re-read so two concurrent cancels cannot both restore stock.
		current, err := orderRepo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return notFoundOr(err, "reload order")
		}
		if !CanBeCancelled(current) {
			return pkgerrors.New(pkgerrors.CodeInvalidState, "order can no longer be cancelled").
				WithDetails(map[string]any{"status": current.Status})
		}
		order = current

		productRepo := s.products.WithTx(tx)
		returned := map[uuid.UUID]int{}
		for _, item := range order.Items {
			if err := restoreItem(ctx, productRepo, item); err != nil {
				return err
			}
			returned[item.ProductID] += item.Quantity
			restored += item.Quantity
		}
		ids := make([]uuid.UUID, 0, len(returned))
		for pid := range returned {
			ids = append(ids, pid)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
		for _, pid := range ids {
			if err := productRepo.AdjustPurchaseCount(ctx, pid, -returned[pid]); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update purchase count")
			}
			if _, err := productRepo.RecomputeStock(ctx, pid); err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recompute stock")
			}
		}

		ApplyStatus(order, enums.OrderStatusCancelled, Tracking{}, now)
		if reason != "" {
			order.CancelReason = &reason
		}
		if err := orderRepo.Save(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save order")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCancelled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(actor),
			OccurredAt:    now,
			Data: payloads.OrderCancelledEvent{
				OrderID:       order.ID,
				OrderNumber:   order.OrderNumber,
				UserID:        order.UserID,
				Reason:        reason,
				RestoredUnits: restored,
				PreviousState: from,
			},
		})
	})
	if err != nil {
		return nil, asTyped(err, "cancel order")
	}

	s.metrics.OrderCancelled()
	if s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, order.ID.String())
		logCtx = s.logg.WithField(logCtx, "restored_units", restored)
		s.logg.Info(logCtx, "order cancelled")
	}
	dto := NewOrderDTO(order, s.pricing, now)
	return &dto, nil
}

// restoreItem returns every allocated unit. A variant or product that no longer
// exists fails the cancel instead of silently dropping the units.
func restoreItem(ctx context.Context, repo products.Repository, item models.OrderItem) error {
	if len(item.Allocations) == 0 {
		ok, err := repo.RestoreProductStock(ctx, item.ProductID, item.Quantity)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore product stock")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "product no longer exists; stock cannot be restored").
				WithDetails(map[string]any{"productId": item.ProductID.String()})
		}
		return nil
	}
	for _, alloc := range item.Allocations {
		ok, err := repo.RestoreVariantStock(ctx, item.ProductID, alloc.SKU, alloc.Quantity)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore variant stock")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "variant no longer exists; stock cannot be restored").
				WithDetails(map[string]any{"productId": item.ProductID.String(), "sku": alloc.SKU})
		}
	}
	return nil
}

// RequestReturn opens a return on a delivered order inside the return window.
// Approval and refunds are handled outside this service.
func (s *service) RequestReturn(ctx context.Context, actor Actor, id uuid.UUID, input ReturnInput) (*OrderDTO, error) {
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, pkgerrors.Fields("invalid return", pkgerrors.FieldError{Field: "reason", Message: "reason is required"})
	}
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "load order")
	}
	if order.UserID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to return this order")
	}
	if order.ReturnStatus != enums.ReturnStatusNone && order.ReturnStatus != "" {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidState, "a return was already requested").
			WithDetails(map[string]any{"returnStatus": order.ReturnStatus})
	}
	now := s.now()
	if !s.pricing.CanBeReturned(order, now) {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidState, "order is not eligible for return").
			WithDetails(map[string]any{"status": order.Status})
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		orderRepo := s.repo.WithTx(tx)
		current, err := orderRepo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return notFoundOr(err, "reload order")
		}
		if current.ReturnStatus != enums.ReturnStatusNone && current.ReturnStatus != "" {
			return pkgerrors.New(pkgerrors.CodeInvalidState, "a return was already requested").
				WithDetails(map[string]any{"returnStatus": current.ReturnStatus})
		}
		if !s.pricing.CanBeReturned(current, now) {
			return pkgerrors.New(pkgerrors.CodeInvalidState, "order is not eligible for return").
				WithDetails(map[string]any{"status": current.Status})
		}
		order = current
		order.ReturnStatus = enums.ReturnStatusRequested
		order.ReturnReason = &reason
		order.ReturnRequestedAt = &now

		if err := orderRepo.Save(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save order")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderReturnRequested,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(actor),
			OccurredAt:    now,
			Data: payloads.OrderReturnRequestedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				UserID:      order.UserID,
				Reason:      reason,
				RequestedAt: now,
			},
		})
	})
	if err != nil {
		return nil, asTyped(err, "request return")
	}
	dto := NewOrderDTO(order, s.pricing, now)
	return &dto, nil
}

func authorizeView(actor Actor, order *models.Order) error {
	if actor.Role.IsStaff() || order.UserID == actor.UserID {
		return nil
	}
	// Hide other customers' orders entirely.
	return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
}

func normalizeLines(inputs []OrderItemInput) ([]orderLine, error) {
	if len(inputs) == 0 {
		return nil, pkgerrors.Fields("invalid order", pkgerrors.FieldError{Field: "items", Message: "at least one item is required"})
	}
	lines := make([]orderLine, 0, len(inputs))
	for i, in := range inputs {
		if in.ProductID == uuid.Nil {
			return nil, pkgerrors.Fields("invalid order", pkgerrors.FieldError{Field: fmt.Sprintf("items[%d].productId", i), Message: "product id is required"})
		}
		if in.Quantity <= 0 {
			return nil, pkgerrors.Fields("invalid order", pkgerrors.FieldError{Field: fmt.Sprintf("items[%d].quantity", i), Message: "quantity must be at least 1"})
		}
		lines = append(lines, orderLine{
			productID: in.ProductID,
			sku:       strings.ToUpper(strings.TrimSpace(in.SKU)),
			quantity:  in.Quantity,
		})
	}
	return lines, nil
}

func actorRef(actor Actor) *outbox.ActorRef {
	if actor.UserID == uuid.Nil {
		return nil
	}
	return &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)}
}

func trimmedOrNil(v *string) *string {
	if v == nil {
		return nil
	}
	return nonEmpty(strings.TrimSpace(*v))
}

func nonEmpty(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func notFoundOr(err error, step string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, step)
}

func asTyped(err error, step string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, step)
}
