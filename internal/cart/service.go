package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lavish-fashion/lavish-backend/internal/products"
	"github.com/lavish-fashion/lavish-backend/pkg/config"
	"github.com/lavish-fashion/lavish-backend/pkg/db"
	"github.com/lavish-fashion/lavish-backend/pkg/db/models"
	pkgerrors "github.com/lavish-fashion/lavish-backend/pkg/errors"
	"github.com/lavish-fashion/lavish-backend/pkg/visibility"
)

const (
	constraintUserCart    = "carts_user_id_key"
	constraintSessionCart = "carts_session_id_key"
	constraintLine        = "cart_items_cart_product_sku_key"
)

// Service exposes cart operations for users and guest sessions.
type Service interface {
	Get(ctx context.Context, owner Owner) (*CartDTO, error)
	Add(ctx context.Context, owner Owner, input AddItemInput) (*CartDTO, error)
	Update(ctx context.Context, owner Owner, itemID uuid.UUID, input UpdateItemInput) (*CartDTO, error)
	Remove(ctx context.Context, owner Owner, itemID uuid.UUID) (*CartDTO, error)
	Clear(ctx context.Context, owner Owner) (*CartDTO, error)
	PurgeExpired(ctx context.Context) (int64, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	products productLoader
	ttl      time.Duration
	now      func() time.Time
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo Repository, tx txRunner, products productLoader, commerce config.CommerceConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	ttl := commerce.CartTTL
	if ttl <= 0 {
		ttl = config.DefaultCommerce().CartTTL
	}
	return &service{
		repo:     repo,
		tx:       tx,
		products: products,
		ttl:      ttl,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Get(ctx context.Context, owner Owner) (*CartDTO, error) {
	if err := validateOwner(owner); err != nil {
		return nil, err
	}
	cart, err := s.repo.FindByOwner(ctx, owner, s.now())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return emptyCart(), nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return NewCartDTO(cart), nil
}

// Add merges quantity into the (product, sku) line and re-snapshots its price.
func (s *service) Add(ctx context.Context, owner Owner, input AddItemInput) (*CartDTO, error) {
	if err := validateOwner(owner); err != nil {
		return nil, err
	}
	if input.Quantity < 1 {
		return nil, pkgerrors.Fields("invalid quantity", pkgerrors.FieldError{Field: "quantity", Message: "must be at least 1"})
	}
	product, err := s.loadPurchasable(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}
	sku := strings.ToUpper(strings.TrimSpace(input.SKU))
	if sku == "" && len(product.Variants) > 0 {
		return nil, pkgerrors.Fields("variant required", pkgerrors.FieldError{Field: "sku", Message: "select a size or colour"})
	}
	available, ok := products.AvailableStock(product, sku)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
	}

	cart, err := s.findOrCreate(ctx, owner)
	if err != nil {
		return nil, err
	}
	now := s.now()
	price := products.CurrentPrice(product, now)

	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		line, err := txRepo.FindLine(ctx, cart.ID, product.ID, sku)
		switch {
		case err == nil:
			if line.Quantity+input.Quantity > available {
				return insufficient(available)
			}
			line.Quantity += input.Quantity
			line.Price = price
			if err := txRepo.SaveItem(ctx, line); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			if input.Quantity > available {
				return insufficient(available)
			}
			item := &models.CartItem{
				CartID:    cart.ID,
				ProductID: product.ID,
				SKU:       sku,
				Quantity:  input.Quantity,
				Price:     price,
			}
			if v := products.FindVariant(product, sku); v != nil {
				item.Size = v.Size
				item.Color = v.Color
			}
			if err := txRepo.CreateItem(ctx, item); err != nil {
				if db.IsUniqueViolation(err, constraintLine) {
					return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "cart line changed concurrently")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert cart item")
			}
		default:
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
		}
		return s.touch(ctx, txRepo, cart.ID, now)
	}); err != nil {
		return nil, asTyped(err, "add to cart")
	}
	return s.Get(ctx, owner)
}

func (s *service) Update(ctx context.Context, owner Owner, itemID uuid.UUID, input UpdateItemInput) (*CartDTO, error) {
	if err := validateOwner(owner); err != nil {
		return nil, err
	}
	if input.Quantity < 1 {
		return nil, pkgerrors.Fields("invalid quantity", pkgerrors.FieldError{Field: "quantity", Message: "must be at least 1"})
	}
	cart, err := s.existing(ctx, owner)
	if err != nil {
		return nil, err
	}
	item, err := s.repo.FindItem(ctx, cart.ID, itemID)
	if err != nil {
		return nil, itemNotFoundOr(err)
	}
	product, err := s.loadPurchasable(ctx, item.ProductID)
	if err != nil {
		return nil, err
	}
	available, ok := products.AvailableStock(product, item.SKU)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
	}
	if input.Quantity > available {
		return nil, insufficient(available)
	}

	now := s.now()
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		item.Quantity = input.Quantity
		if err := txRepo.SaveItem(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
		}
		return s.touch(ctx, txRepo, cart.ID, now)
	}); err != nil {
		return nil, asTyped(err, "update cart")
	}
	return s.Get(ctx, owner)
}

func (s *service) Remove(ctx context.Context, owner Owner, itemID uuid.UUID) (*CartDTO, error) {
	if err := validateOwner(owner); err != nil {
		return nil, err
	}
	cart, err := s.existing(ctx, owner)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		removed, err := txRepo.DeleteItem(ctx, cart.ID, itemID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart item")
		}
		if !removed {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return s.touch(ctx, txRepo, cart.ID, now)
	}); err != nil {
		return nil, asTyped(err, "remove from cart")
	}
	return s.Get(ctx, owner)
}

func (s *service) Clear(ctx context.Context, owner Owner) (*CartDTO, error) {
	if err := validateOwner(owner); err != nil {
		return nil, err
	}
	cart, err := s.repo.FindByOwner(ctx, owner, s.now())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return emptyCart(), nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	now := s.now()
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.ClearItems(ctx, cart.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
		}
		return s.touch(ctx, txRepo, cart.ID, now)
	}); err != nil {
		return nil, asTyped(err, "clear cart")
	}
	return s.Get(ctx, owner)
}

// PurgeExpired removes carts whose TTL elapsed.
func (s *service) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.PurgeExpired(ctx, s.now())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "purge expired carts")
	}
	return n, nil
}

func (s *service) findOrCreate(ctx context.Context, owner Owner) (*models.Cart, error) {
	cart, err := s.repo.FindByOwner(ctx, owner, s.now())
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	if err := s.repo.DeleteExpiredForOwner(ctx, owner, s.now()); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "drop expired cart")
	}
	cart = &models.Cart{ExpiresAt: s.now().Add(s.ttl)}
	if owner.UserID != nil {
		id := *owner.UserID
		cart.UserID = &id
	} else {
		sid := strings.TrimSpace(owner.SessionID)
		cart.SessionID = &sid
	}
	if err := s.repo.Create(ctx, cart); err != nil {
		// lost a create race; the winner's cart is the one to use
		if db.IsUniqueViolation(err, constraintUserCart) || db.IsUniqueViolation(err, constraintSessionCart) {
			existing, findErr := s.repo.FindByOwner(ctx, owner, s.now())
			if findErr != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "load cart")
			}
			return existing, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
	}
	return cart, nil
}

func (s *service) existing(ctx context.Context, owner Owner) (*models.Cart, error) {
	cart, err := s.repo.FindByOwner(ctx, owner, s.now())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return cart, nil
}

func (s *service) touch(ctx context.Context, repo Repository, cartID uuid.UUID, now time.Time) error {
	if err := repo.Touch(ctx, cartID, now.Add(s.ttl)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "extend cart expiry")
	}
	return nil
}

func (s *service) loadPurchasable(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if err := visibility.EnsureProductVisible(visibility.ProductVisibilityInput{Product: product, Purchasable: true}); err != nil {
		return nil, err
	}
	return product, nil
}

func validateOwner(owner Owner) error {
	if owner.IsZero() {
		return pkgerrors.Fields("cart owner required", pkgerrors.FieldError{Field: "X-Session-Id", Message: "sign in or provide a session id"})
	}
	return nil
}

func insufficient(available int) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
		WithDetails(map[string]int{"available": available})
}

func itemNotFoundOr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
}

func asTyped(err error, step string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, step)
}
