package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jebdekho/jebdekho-backend/api/controllers"
	analyticscontrollers "github.com/jebdekho/jebdekho-backend/api/controllers/analytics"
	authcontrollers "github.com/jebdekho/jebdekho-backend/api/controllers/auth"
	cartcontrollers "github.com/jebdekho/jebdekho-backend/api/controllers/cart"
	ordercontrollers "github.com/jebdekho/jebdekho-backend/api/controllers/orders"
	"github.com/jebdekho/jebdekho-backend/api/middleware"
	"github.com/jebdekho/jebdekho-backend/internal/analytics"
	"github.com/jebdekho/jebdekho-backend/internal/auth"
	"github.com/jebdekho/jebdekho-backend/internal/cart"
	"github.com/jebdekho/jebdekho-backend/internal/catalog"
	"github.com/jebdekho/jebdekho-backend/internal/checkout"
	"github.com/jebdekho/jebdekho-backend/internal/notifications"
	"github.com/jebdekho/jebdekho-backend/internal/orders"
	"github.com/jebdekho/jebdekho-backend/internal/promo"
	"github.com/jebdekho/jebdekho-backend/internal/reviews"
	"github.com/jebdekho/jebdekho-backend/internal/users"
	"github.com/jebdekho/jebdekho-backend/internal/wallet"
	"github.com/jebdekho/jebdekho-backend/pkg/auth/session"
	"github.com/jebdekho/jebdekho-backend/pkg/config"
	"github.com/jebdekho/jebdekho-backend/pkg/enums"
	"github.com/jebdekho/jebdekho-backend/pkg/logger"
	"github.com/jebdekho/jebdekho-backend/pkg/metrics"
	pkgredis "github.com/jebdekho/jebdekho-backend/pkg/redis"
)

// Infra carries the process-level collaborators. Nil members disable the
// feature that depends on them.
type Infra struct {
	Sessions       session.AccessSessionChecker
	RateLimiter    middleware.RateLimiterStore
	Idempotency    pkgredis.IdempotencyStore
	HTTPMetrics    *metrics.HTTPMetrics
	MetricsHandler http.Handler
	Relay          http.Handler
	Readiness      map[string]controllers.Pinger
}

// Services are the domain services the handlers delegate to.
type Services struct {
	Auth          auth.Service
	Users         users.Service
	Catalog       catalog.Service
	Cart          cart.Service
	Checkout      checkout.Service
	Orders        orders.Service
	Wallet        wallet.Service
	Promos        promo.Service
	Notifications notifications.Service
	Reviews       reviews.Service
	Analytics     analytics.Service
}

func NewRouter(cfg *config.Config, logg *logger.Logger, infra Infra, svc Services) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.HTTP.CORSOrigins),
	)
	if infra.HTTPMetrics != nil {
		r.Use(middleware.Metrics(infra.HTTPMetrics))
	}

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
	otpPolicy := middleware.NewAuthRateLimitPolicy(
		"otp",
		cfg.AuthRateLimit.OTPWindow,
		cfg.AuthRateLimit.OTPIPLimit,
		0,
	)
	authenticated := middleware.Auth(cfg.JWT, infra.Sessions, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, infra.Readiness))
	})
	if infra.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", infra.MetricsHandler)
	}
	if infra.Relay != nil {
		r.Method(http.MethodGet, "/ws", infra.Relay)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(registerPolicy, infra.RateLimiter, logg)).Post("/register", authcontrollers.Register(svc.Auth, logg))
			r.With(middleware.AuthRateLimit(loginPolicy, infra.RateLimiter, logg)).Post("/login", authcontrollers.Login(svc.Auth, logg))
			r.With(middleware.AuthRateLimit(otpPolicy, infra.RateLimiter, logg)).Post("/send-otp", authcontrollers.SendOTP(svc.Auth, logg))
			r.With(middleware.AuthRateLimit(otpPolicy, infra.RateLimiter, logg)).Post("/verify-otp", authcontrollers.VerifyOTP(svc.Auth, logg))
			r.Post("/refresh-token", authcontrollers.Refresh(svc.Auth, logg))
			r.With(authenticated).Post("/logout", authcontrollers.Logout(svc.Auth, logg))
		})

		// Public catalog and reviews.
		r.Group(func(r chi.Router) {
			r.Get("/food/restaurants", controllers.ListRestaurants(svc.Catalog, logg))
			r.Get("/food/restaurants/{id}", controllers.GetRestaurant(svc.Catalog, logg))
			r.Get("/food/restaurants/{id}/menu", controllers.GetMenu(svc.Catalog, logg))
			r.Get("/mart/stores", controllers.ListStores(svc.Catalog, logg))
			r.Get("/mart/stores/{id}/products", controllers.ListStoreProducts(svc.Catalog, logg))
			r.Get("/reviews/vendor/{vendorId}", controllers.VendorReviews(svc.Reviews, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticated)
			r.Use(middleware.Idempotency(infra.Idempotency, logg))

			r.Route("/users", func(r chi.Router) {
				r.Get("/profile", controllers.GetProfile(svc.Users, logg))
				r.Put("/profile", controllers.UpdateProfile(svc.Users, logg))
				r.Delete("/profile", controllers.DeleteProfile(svc.Users, logg))
				r.Get("/addresses", controllers.ListAddresses(svc.Users, logg))
				r.Post("/addresses", controllers.AddAddress(svc.Users, logg))
				r.Put("/addresses/{id}", controllers.UpdateAddress(svc.Users, logg))
				r.Delete("/addresses/{id}", controllers.DeleteAddress(svc.Users, logg))
			})

			r.Route("/food/orders", func(r chi.Router) {
				r.Post("/", ordercontrollers.Place(svc.Checkout, logg))
				r.Get("/", ordercontrollers.List(svc.Orders, logg))
				r.Get("/{id}", ordercontrollers.Detail(svc.Checkout, logg))
				r.With(middleware.RequireRole(logg, enums.RoleVendor, enums.RoleDeliveryPartner, enums.RoleAdmin)).
					Put("/{id}/status", ordercontrollers.UpdateStatus(svc.Orders, logg))
				r.Put("/{id}/cancel", ordercontrollers.Cancel(svc.Checkout, logg))
			})

			r.Route("/mart", func(r chi.Router) {
				r.Get("/cart", cartcontrollers.CartFetch(svc.Cart, logg))
				r.Delete("/cart", cartcontrollers.CartClear(svc.Cart, logg))
				r.Post("/cart/add", cartcontrollers.CartAdd(svc.Cart, logg))
				r.Put("/cart/update/{productId}", cartcontrollers.CartUpdate(svc.Cart, logg))
				r.Delete("/cart/remove/{productId}", cartcontrollers.CartRemove(svc.Cart, logg))
				r.Post("/checkout", cartcontrollers.Checkout(svc.Checkout, logg))
			})

			r.Route("/transport", func(r chi.Router) {
				r.Post("/estimate", controllers.EstimateFare(logg))
				r.Post("/book", controllers.BookRide(svc.Checkout, logg))
				r.Get("/bookings/{id}", controllers.GetBooking(svc.Checkout, logg))
				r.Get("/bookings/{id}/track", controllers.TrackBooking(svc.Checkout, logg))
				r.Put("/bookings/{id}/cancel", controllers.CancelBooking(svc.Checkout, logg))
				r.Get("/drivers/nearby", controllers.NearbyDrivers(svc.Users, cfg.Marketplace.NearbyRadiusKM, logg))
			})

			r.Route("/payments", func(r chi.Router) {
				r.Get("/wallet", controllers.GetWallet(svc.Wallet, logg))
				r.Get("/wallet/stats", controllers.WalletStats(svc.Wallet, logg))
				r.Post("/wallet/add", controllers.AddMoney(svc.Wallet, logg))
				r.Get("/transactions", controllers.Transactions(svc.Wallet, logg))
				r.Post("/pay", controllers.PayOrder(svc.Checkout, logg))
			})

			r.Route("/promos", func(r chi.Router) {
				r.Post("/validate", controllers.ValidatePromo(svc.Promos, logg))
				r.Get("/my-promos", controllers.MyPromos(svc.Promos, logg))
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRole(logg, enums.RoleAdmin))
					r.Post("/", controllers.CreatePromo(svc.Promos, logg))
					r.Put("/{code}", controllers.UpdatePromo(svc.Promos, logg))
					r.Delete("/{code}", controllers.DeletePromo(svc.Promos, logg))
				})
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", controllers.ListNotifications(svc.Notifications, logg))
				r.Put("/read-all", controllers.MarkAllNotificationsRead(svc.Notifications, logg))
				r.Put("/{id}/read", controllers.MarkNotificationRead(svc.Notifications, logg))
				r.Delete("/{id}", controllers.DeleteNotification(svc.Notifications, logg))
			})

			r.Route("/reviews", func(r chi.Router) {
				r.Post("/", controllers.CreateReview(svc.Reviews, logg))
				r.Put("/{id}", controllers.UpdateReview(svc.Reviews, logg))
				r.Delete("/{id}", controllers.DeleteReview(svc.Reviews, logg))
			})

			r.Route("/vendor", func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.RoleVendor))
				r.Get("/dashboard", analyticscontrollers.VendorDashboard(svc.Analytics, logg))
				r.Get("/orders", analyticscontrollers.VendorOrders(svc.Orders, svc.Users, logg))
				r.Post("/menu", controllers.AddMenuItem(svc.Catalog, logg))
				r.Put("/menu/{id}", controllers.UpdateMenuItem(svc.Catalog, logg))
				r.Post("/products", controllers.AddProduct(svc.Catalog, logg))
				r.Put("/products/{id}", controllers.UpdateProduct(svc.Catalog, logg))
				r.Put("/availability", controllers.SetAvailability(svc.Catalog, logg))
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.RoleAdmin))
				r.Get("/dashboard", analyticscontrollers.AdminDashboard(svc.Analytics, logg))
				r.Get("/users", analyticscontrollers.AdminUsers(svc.Users, logg))
				r.Put("/users/{id}/status", analyticscontrollers.SetUserStatus(svc.Users, logg))
				r.Get("/orders", analyticscontrollers.AdminOrders(svc.Orders, svc.Users, logg))
				r.Get("/revenue", analyticscontrollers.Revenue(svc.Analytics, logg))
			})
		})
	})

	return r
}
