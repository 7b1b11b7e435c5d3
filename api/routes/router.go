package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mudassirabbas444/Ghazali-Foods-Backend/api/controllers"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/api/middleware"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/internal/auth"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/internal/cart"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/internal/catalog"
	checkoutsvc "github.com/mudassirabbas444/Ghazali-Foods-Backend/internal/checkout"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/internal/coupons"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/internal/inventory"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/internal/notifications"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/internal/orders"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/internal/restock"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/auth/session"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/config"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/db"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/logger"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/redis"
)

type sessionManager interface {
	session.AccessSessionChecker
	Rotate(context.Context, string, string) (string, string, error)
	Revoke(context.Context, string) error
}

// Services bundles everything the HTTP surface depends on.
type Services struct {
	Auth          auth.Service
	Catalog       catalog.Service
	Cart          cart.Service
	Coupons       coupons.Service
	Checkout      checkoutsvc.Service
	Orders        orders.Service
	Restock       restock.Service
	Notifications notifications.Service
	Inventory     inventory.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	sessions sessionManager,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
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

	// A typed-nil *redis.Client must become a nil interface so the
	// middlewares and the ready probe see redis as absent.
	var redisP redis.Pinger
	var idemStore redis.IdempotencyStore
	var rateStore redis.RateLimitStore
	if redisClient != nil {
		redisP = redisClient
		idemStore = redisClient
		rateStore = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})
	r.Handle("/metrics", promhttp.Handler())

	// Catalog browsing needs no account.
	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", controllers.ListProducts(svcs.Catalog, logg))
		r.Get("/{slug}", controllers.ProductBySlug(svcs.Catalog, logg))
	})
	r.Get("/api/v1/categories", controllers.ListCategories(svcs.Catalog, logg))

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(registerPolicy, rateStore, logg)).Post("/register", controllers.Register(svcs.Auth, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, rateStore, logg)).Post("/login", controllers.Login(svcs.Auth, logg))
		r.Post("/refresh", controllers.Refresh(svcs.Auth, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/logout", controllers.Logout(svcs.Auth, logg))
			r.Get("/me", controllers.Me(svcs.Auth, logg))
			r.Post("/change-password", controllers.ChangePassword(svcs.Auth, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.GetCart(svcs.Cart, logg))
			r.Delete("/", controllers.ClearCart(svcs.Cart, logg))
			r.Post("/items", controllers.AddCartItem(svcs.Cart, logg))
			r.Patch("/items/{itemId}", controllers.UpdateCartItem(svcs.Cart, logg))
			r.Delete("/items/{itemId}", controllers.RemoveCartItem(svcs.Cart, logg))
			r.Post("/coupon", controllers.ApplyCartCoupon(svcs.Cart, logg))
			r.Delete("/coupon", controllers.RemoveCartCoupon(svcs.Cart, logg))
		})
		r.Post("/coupons/validate", controllers.ValidateCoupon(svcs.Cart, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.PlaceOrder(svcs.Checkout, logg))
			r.Get("/", controllers.ListMyOrders(svcs.Orders, logg))
			r.Get("/{orderId}", controllers.GetOrder(svcs.Orders, logg))
			r.Get("/number/{orderNumber}", controllers.GetOrderByNumber(svcs.Orders, logg))
			r.Post("/{orderId}/cancel", controllers.CancelOrder(svcs.Orders, logg))
		})

		r.Route("/restock-subscriptions", func(r chi.Router) {
			r.Post("/", controllers.SubscribeRestock(svcs.Restock, svcs.Auth, logg))
			r.Get("/", controllers.ListMyRestockSubscriptions(svcs.Restock, logg))
			r.Delete("/{subscriptionId}", controllers.UnsubscribeRestock(svcs.Restock, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(svcs.Notifications, logg))
			r.Get("/unread-count", controllers.UnreadNotificationCount(svcs.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(svcs.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(svcs.Notifications, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, logg))
		r.Use(middleware.RequireAdmin(logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.AdminListOrders(svcs.Orders, logg))
			r.Get("/stats", controllers.AdminOrderStats(svcs.Orders, logg))
			r.Patch("/{orderId}/status", controllers.AdminUpdateOrderStatus(svcs.Orders, logg))
			r.Patch("/{orderId}/payment-status", controllers.AdminUpdatePaymentStatus(svcs.Orders, logg))
		})

		r.Route("/products", func(r chi.Router) {
			r.Post("/", controllers.AdminCreateProduct(svcs.Catalog, logg))
			r.Get("/low-stock", controllers.AdminLowStock(svcs.Catalog, cfg.Catalog, logg))
			r.Patch("/{productId}", controllers.AdminUpdateProduct(svcs.Catalog, logg))
			r.Delete("/{productId}", controllers.AdminDeleteProduct(svcs.Catalog, logg))
			r.Put("/{productId}/stock", controllers.AdminSetStock(svcs.Inventory, logg))
			r.Post("/{productId}/variants", controllers.AdminAddVariant(svcs.Catalog, logg))
			r.Patch("/{productId}/variants/{variantId}", controllers.AdminUpdateVariant(svcs.Catalog, logg))
			r.Delete("/{productId}/variants/{variantId}", controllers.AdminRemoveVariant(svcs.Catalog, logg))
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", controllers.AdminListCategories(svcs.Catalog, logg))
			r.Post("/", controllers.AdminCreateCategory(svcs.Catalog, logg))
			r.Patch("/{categoryId}", controllers.AdminUpdateCategory(svcs.Catalog, logg))
			r.Delete("/{categoryId}", controllers.AdminDeleteCategory(svcs.Catalog, logg))
		})

		r.Route("/coupons", func(r chi.Router) {
			r.Get("/", controllers.AdminListCoupons(svcs.Coupons, logg))
			r.Post("/", controllers.AdminCreateCoupon(svcs.Coupons, logg))
			r.Get("/{couponId}", controllers.AdminGetCoupon(svcs.Coupons, logg))
			r.Patch("/{couponId}", controllers.AdminUpdateCoupon(svcs.Coupons, logg))
			r.Delete("/{couponId}", controllers.AdminDeleteCoupon(svcs.Coupons, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.AdminListNotifications(svcs.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.AdminMarkNotificationRead(svcs.Notifications, logg))
		})
	})

	return r
}
