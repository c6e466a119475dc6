package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lavish-fashion/lavish-backend/api/controllers"
	analyticscontrollers "github.com/lavish-fashion/lavish-backend/api/controllers/analytics"
	cartcontrollers "github.com/lavish-fashion/lavish-backend/api/controllers/cart"
	ordercontrollers "github.com/lavish-fashion/lavish-backend/api/controllers/orders"
	"github.com/lavish-fashion/lavish-backend/api/middleware"
	"github.com/lavish-fashion/lavish-backend/internal/analytics"
	"github.com/lavish-fashion/lavish-backend/internal/auth"
	"github.com/lavish-fashion/lavish-backend/internal/cart"
	"github.com/lavish-fashion/lavish-backend/internal/categories"
	"github.com/lavish-fashion/lavish-backend/internal/orders"
	"github.com/lavish-fashion/lavish-backend/internal/products"
	"github.com/lavish-fashion/lavish-backend/internal/reviews"
	"github.com/lavish-fashion/lavish-backend/internal/users"
	"github.com/lavish-fashion/lavish-backend/internal/wishlist"
	"github.com/lavish-fashion/lavish-backend/pkg/auth/session"
	"github.com/lavish-fashion/lavish-backend/pkg/config"
	"github.com/lavish-fashion/lavish-backend/pkg/enums"
	"github.com/lavish-fashion/lavish-backend/pkg/logger"
	"github.com/lavish-fashion/lavish-backend/pkg/metrics"
	pkgredis "github.com/lavish-fashion/lavish-backend/pkg/redis"
)

// rateStore is the redis surface used by auth throttling and idempotency.
type rateStore interface {
	pkgredis.IdempotencyStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// Deps carries everything the router mounts. A nil Redis disables auth
// throttling and idempotency replay.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	Sessions session.AccessSessionChecker
	Redis    rateStore
	// Ready lists the dependencies pinged by /health/ready.
	Ready map[string]controllers.Pinger
	// Registry exposes /metrics and HTTP metrics when set.
	Registry *prometheus.Registry

	Auth       auth.Service
	Users      users.Service
	Products   products.Service
	Categories categories.Service
	Cart       cart.Service
	Orders     orders.Service
	Reviews    reviews.Service
	Wishlist   wishlist.Service
	Analytics  analytics.Service
}

func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	logg := d.Logger

	var httpMetrics *metrics.HTTPMetrics
	if d.Registry != nil {
		httpMetrics = metrics.NewHTTPMetrics(d.Registry)
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.CORS(cfg.CORS),
		middleware.Logging(logg),
		middleware.Metrics(httpMetrics),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	var (
		limitStore       middleware.FixedWindowStore
		idempotencyStore pkgredis.IdempotencyStore
	)
	if d.Redis != nil {
		limitStore = d.Redis
		idempotencyStore = d.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, d.Ready))
	})
	if d.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))
	}

	requireAuth := middleware.Auth(cfg.JWT, d.Sessions, logg)
	staffOnly := middleware.RequireStaff(logg)

	r.Route("/api", func(r chi.Router) {
		// refresh accepts an expired access token, so auth routes skip
		// token parsing entirely
		r.Route("/auth", func(r chi.Router) {
			r.Use(middleware.RateLimit(cfg.APIRateLimit, logg))
			r.With(middleware.AuthRateLimit(registerPolicy, limitStore, logg)).Post("/register", controllers.AuthRegister(d.Auth, logg))
			r.With(middleware.AuthRateLimit(loginPolicy, limitStore, logg)).Post("/login", controllers.AuthLogin(d.Auth, logg))
			r.Post("/logout", controllers.AuthLogout(d.Auth, logg))
			r.Post("/refresh", controllers.AuthRefresh(d.Auth, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuth(cfg.JWT, d.Sessions, logg))
			r.Use(middleware.RateLimit(cfg.APIRateLimit, logg))

			r.Route("/products", func(r chi.Router) {
				r.Get("/", controllers.ProductList(d.Products, logg))
				r.Get("/featured", controllers.ProductFeatured(d.Products, logg))
				r.Get("/{product}", controllers.ProductDetail(d.Products, logg))
				r.Get("/{product}/related", controllers.ProductRelated(d.Products, logg))
				r.Get("/{product}/reviews", controllers.ReviewList(d.Reviews, logg))
				r.With(requireAuth).Post("/{product}/reviews", controllers.ReviewCreate(d.Reviews, logg))

				r.Group(func(r chi.Router) {
					r.Use(requireAuth, staffOnly)
					r.Post("/", controllers.ProductCreate(d.Products, logg))
					r.Put("/{product}", controllers.ProductUpdate(d.Products, logg))
					r.Delete("/{product}", controllers.ProductDelete(d.Products, logg))
					r.Patch("/{product}/stock", controllers.ProductSetStock(d.Products, logg))
				})
			})

			r.Route("/categories", func(r chi.Router) {
				r.Get("/", controllers.CategoryList(d.Categories, logg))
				r.Get("/{category}", controllers.CategoryDetail(d.Categories, logg))

				r.Group(func(r chi.Router) {
					r.Use(requireAuth, staffOnly)
					r.Post("/", controllers.CategoryCreate(d.Categories, logg))
					r.Put("/{category}", controllers.CategoryUpdate(d.Categories, logg))
					r.Delete("/{category}", controllers.CategoryDelete(d.Categories, logg))
				})
			})

			r.Route("/cart", func(r chi.Router) {
				r.Use(middleware.GuestSession(logg))
				r.Get("/", cartcontrollers.CartFetch(d.Cart, logg))
				r.Post("/add", cartcontrollers.CartAdd(d.Cart, logg))
				r.Put("/update/{itemId}", cartcontrollers.CartUpdate(d.Cart, logg))
				r.Delete("/remove/{itemId}", cartcontrollers.CartRemove(d.Cart, logg))
				r.Delete("/clear", cartcontrollers.CartClear(d.Cart, logg))
			})

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)

				r.Route("/users/me", func(r chi.Router) {
					r.Get("/", controllers.UserProfile(d.Users, logg))
					r.Put("/", controllers.UserUpdateProfile(d.Users, logg))
					r.Put("/password", controllers.UserChangePassword(d.Users, logg))
				})

				r.Route("/orders", func(r chi.Router) {
					r.Get("/", ordercontrollers.List(d.Orders, logg))
					r.With(middleware.Idempotency(idempotencyStore, logg)).Post("/", ordercontrollers.Create(d.Orders, logg))
					r.Get("/number/{orderNumber}", ordercontrollers.DetailByNumber(d.Orders, logg))
					r.Get("/{orderId}", ordercontrollers.Detail(d.Orders, logg))
					r.With(staffOnly).Put("/{orderId}/status", ordercontrollers.UpdateStatus(d.Orders, logg))
					r.Put("/{orderId}/cancel", ordercontrollers.Cancel(d.Orders, logg))
					r.Post("/{orderId}/return", ordercontrollers.RequestReturn(d.Orders, logg))
				})

				r.Delete("/reviews/{id}", controllers.ReviewDelete(d.Reviews, logg))

				r.Route("/wishlist", func(r chi.Router) {
					r.Get("/", controllers.WishlistList(d.Wishlist, logg))
					r.Post("/{productId}", controllers.WishlistAdd(d.Wishlist, logg))
					r.Delete("/{productId}", controllers.WishlistRemove(d.Wishlist, logg))
				})
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(requireAuth, staffOnly)
				r.Get("/dashboard", analyticscontrollers.Dashboard(d.Analytics, logg))
				r.Get("/analytics", analyticscontrollers.Report(d.Analytics, logg))
				r.Get("/orders", ordercontrollers.AdminList(d.Orders, logg))
				r.Route("/users", func(r chi.Router) {
					r.Get("/", controllers.AdminListUsers(d.Users, logg))
					r.With(middleware.RequireRole(logg, enums.UserRoleSuperAdmin)).Put("/{id}/role", controllers.AdminSetUserRole(d.Users, logg))
					r.Put("/{id}/status", controllers.AdminSetUserStatus(d.Users, logg))
				})
			})
		})
	})

	return r
}
