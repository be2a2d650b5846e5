package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/jebdekho/jebdekho-backend/api/controllers"
	"github.com/jebdekho/jebdekho-backend/api/routes"
	"github.com/jebdekho/jebdekho-backend/internal/analytics"
	"github.com/jebdekho/jebdekho-backend/internal/auth"
	"github.com/jebdekho/jebdekho-backend/internal/cart"
	"github.com/jebdekho/jebdekho-backend/internal/catalog"
	"github.com/jebdekho/jebdekho-backend/internal/checkout"
	"github.com/jebdekho/jebdekho-backend/internal/cron"
	"github.com/jebdekho/jebdekho-backend/internal/dispatch"
	"github.com/jebdekho/jebdekho-backend/internal/notifications"
	"github.com/jebdekho/jebdekho-backend/internal/orders"
	"github.com/jebdekho/jebdekho-backend/internal/promo"
	"github.com/jebdekho/jebdekho-backend/internal/relay"
	"github.com/jebdekho/jebdekho-backend/internal/reviews"
	"github.com/jebdekho/jebdekho-backend/internal/seed"
	"github.com/jebdekho/jebdekho-backend/internal/users"
	"github.com/jebdekho/jebdekho-backend/internal/wallet"
	pkgAuth "github.com/jebdekho/jebdekho-backend/pkg/auth"
	"github.com/jebdekho/jebdekho-backend/pkg/auth/session"
	"github.com/jebdekho/jebdekho-backend/pkg/config"
	"github.com/jebdekho/jebdekho-backend/pkg/db"
	"github.com/jebdekho/jebdekho-backend/pkg/db/models"
	pkgerrors "github.com/jebdekho/jebdekho-backend/pkg/errors"
	"github.com/jebdekho/jebdekho-backend/pkg/instance"
	"github.com/jebdekho/jebdekho-backend/pkg/logger"
	"github.com/jebdekho/jebdekho-backend/pkg/metrics"
	"github.com/jebdekho/jebdekho-backend/pkg/migrate"
	"github.com/jebdekho/jebdekho-backend/pkg/redis"
	"github.com/jebdekho/jebdekho-backend/pkg/security"
	"github.com/jebdekho/jebdekho-backend/pkg/store"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("bootstrap redis: %w", err)
	}
	defer func() { err = multierr.Append(err, redisClient.Close()) }()

	var dbClient *db.Client
	if cfg.DB.Enabled() {
		dbClient, err = db.New(ctx, cfg.DB, logg)
		if err != nil {
			return fmt.Errorf("bootstrap database: %w", err)
		}
		defer func() { err = multierr.Append(err, dbClient.Close()) }()

		if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
			return fmt.Errorf("dev migrations: %w", err)
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	httpMetrics := metrics.NewHTTPMetrics(registry)
	businessMetrics := metrics.NewBusinessMetrics(registry)

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return fmt.Errorf("session manager: %w", err)
	}

	hub, err := newHub(cfg, redisClient, registry, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, hub.Close()) }()

	svc, userRepo, err := buildServices(cfg, logg, dbClient, redisClient, sessionManager, hub, businessMetrics)
	if err != nil {
		return err
	}

	if cfg.App.SeedDemoData {
		if _, err := seed.Run(ctx, seed.Deps{
			Users:   userRepo,
			Catalog: svc.Catalog,
			Promos:  svc.Promos,
			Wallet:  svc.Wallet,
			Hasher:  security.NewHasher(cfg.Password),
			Logger:  logg,
		}); err != nil {
			return err
		}
	}

	readiness := map[string]controllers.Pinger{"redis": redisClient, "database": nil}
	if dbClient != nil {
		readiness["database"] = dbClient
	}

	ws := relay.NewWebSocketHandler(hub, socketAuthenticator(cfg.JWT, sessionManager), svc.Users, svc.Orders, cfg.Relay, cfg.HTTP.CORSOrigins, logg)

	addr := ":" + cfg.App.Port
	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, routes.Infra{
			Sessions:       sessionManager,
			RateLimiter:    redisClient,
			Idempotency:    redisClient,
			HTTPMetrics:    httpMetrics,
			MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
			Relay:          ws,
			Readiness:      readiness,
		}, svc),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		if err := hub.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logg.Error(ctx, "relay broker stopped", err)
		}
	}()

	if cfg.Cron.Enabled {
		cronService, err := newCron(cfg, logg, redisClient, registry, svc)
		if err != nil {
			return err
		}
		go func() {
			if err := cronService.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logg.Error(ctx, "cron service stopped", err)
			}
		}()
	}

	serveCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
		"fanout":   cfg.Relay.Fanout,
	})
	logg.Info(serveCtx, "starting api server")

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logg.Info(serveCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newHub(cfg *config.Config, redisClient *redis.Client, reg prometheus.Registerer, logg *logger.Logger) (*relay.Hub, error) {
	var broker relay.Broker = relay.LocalBroker{}
	switch strings.ToLower(cfg.Relay.Fanout) {
	case config.RelayFanoutRedis:
		b, err := relay.NewRedisBroker(redisClient, cfg.Relay.RedisChannel, logg)
		if err != nil {
			return nil, fmt.Errorf("relay redis broker: %w", err)
		}
		broker = b
	case config.RelayFanoutAMQP:
		b, err := relay.NewAMQPBroker(cfg.Relay.AMQPURL, cfg.Relay.AMQPExchange, logg)
		if err != nil {
			return nil, fmt.Errorf("relay amqp broker: %w", err)
		}
		broker = b
	}
	return relay.NewHub(instance.GetID(), cfg.Relay.SubscriberBuf, logg,
		relay.WithBroker(broker),
		relay.WithMetrics(metrics.NewRelayMetrics(reg)),
	), nil
}

func buildServices(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	sessionManager *session.Manager,
	hub *relay.Hub,
	businessMetrics *metrics.BusinessMetrics,
) (routes.Services, users.Repository, error) {
	var out routes.Services
	wrap := func(name string, err error) (routes.Services, users.Repository, error) {
		return out, nil, fmt.Errorf("build %s service: %w", name, err)
	}

	userRepo := users.NewMemoryRepository(store.NewTable[models.User]())
	userService, err := users.NewService(userRepo, nil)
	if err != nil {
		return wrap("users", err)
	}
	catalogService, err := catalog.NewService(
		catalog.NewMemoryRepository(store.NewTable[models.MenuItem](), store.NewTable[models.Product]()),
		userService, hub, logg, nil,
	)
	if err != nil {
		return wrap("catalog", err)
	}
	cartService, err := cart.NewService(cart.NewMemoryRepository(store.NewTable[models.Cart]()), catalogService, nil)
	if err != nil {
		return wrap("cart", err)
	}
	walletService, err := wallet.NewService(wallet.NewMemoryRepository(store.NewTable[models.Wallet]()), logg, wallet.WithMetrics(businessMetrics))
	if err != nil {
		return wrap("wallet", err)
	}

	notificationRepo := notifications.NewMemoryRepository(store.NewTable[models.Notification]())
	if dbClient != nil {
		notificationRepo = notifications.NewGormRepository(dbClient.DB())
	}
	notificationService, err := notifications.NewService(notificationRepo, hub, logg, nil)
	if err != nil {
		return wrap("notifications", err)
	}

	matcher, err := dispatch.NewFirstMatch(userService)
	if err != nil {
		return wrap("dispatch", err)
	}
	orderService, err := orders.NewService(
		orders.NewMemoryRepository(store.NewTable[models.Order]()),
		matcher,
		notifications.NewOrderNotifier(notificationService, hub),
		logg,
		orders.WithMetrics(businessMetrics),
	)
	if err != nil {
		return wrap("orders", err)
	}
	promoService, err := promo.NewService(promo.NewMemoryRepository(store.NewTable[models.PromoCode]()), orderService, nil)
	if err != nil {
		return wrap("promo", err)
	}
	reviewService, err := reviews.NewService(reviews.NewMemoryRepository(store.NewTable[models.Review]()), orderService, userService, logg, nil)
	if err != nil {
		return wrap("reviews", err)
	}
	analyticsService, err := analytics.NewService(orderService, userService)
	if err != nil {
		return wrap("analytics", err)
	}
	checkoutService, err := checkout.NewService(checkout.Deps{
		Orders:        orderService,
		Matcher:       matcher,
		Users:         userService,
		Menu:          catalogService,
		Carts:         cartService,
		Promos:        promoService,
		Wallet:        walletService,
		Notifications: notificationService,
		Publisher:     hub,
	}, cfg.Marketplace, logg)
	if err != nil {
		return wrap("checkout", err)
	}
	authService, err := auth.NewService(auth.ServiceParams{
		Users:    userRepo,
		Sessions: sessionManager,
		OTPs:     redisClient,
		Hasher:   security.NewHasher(cfg.Password),
		JWT:      cfg.JWT,
		OTPTTL:   cfg.Marketplace.OTPTTL,
		EchoOTP:  cfg.App.IsDev(),
		Logger:   logg,
	})
	if err != nil {
		return wrap("auth", err)
	}

	out = routes.Services{
		Auth:          authService,
		Users:         userService,
		Catalog:       catalogService,
		Cart:          cartService,
		Checkout:      checkoutService,
		Orders:        orderService,
		Wallet:        walletService,
		Promos:        promoService,
		Notifications: notificationService,
		Reviews:       reviewService,
		Analytics:     analyticsService,
	}
	return out, userRepo, nil
}

func newCron(cfg *config.Config, logg *logger.Logger, redisClient *redis.Client, reg prometheus.Registerer, svc routes.Services) (*cron.Service, error) {
	lock, err := cron.NewRedisLock(redisClient, cfg.Cron.LockKey, cfg.Cron.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("cron lock: %w", err)
	}
	cartJob, err := cron.NewCartExpiryJob(cron.CartExpiryJobParams{Logger: logg, Carts: svc.Cart, TTL: cfg.Cron.CartTTL})
	if err != nil {
		return nil, fmt.Errorf("cart expiry job: %w", err)
	}
	cleanupJob, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:        logg,
		Notifications: svc.Notifications,
		RetentionDays: cfg.Cron.NotificationRetentionDays,
	})
	if err != nil {
		return nil, fmt.Errorf("notification cleanup job: %w", err)
	}
	jobs, err := cron.NewRegistry(cartJob, cleanupJob)
	if err != nil {
		return nil, fmt.Errorf("cron registry: %w", err)
	}
	return cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   jobs,
		Lock:       lock,
		Metrics:    metrics.NewCronJobMetrics(reg),
		Interval:   cfg.Cron.Interval,
		JobTimeout: 5 * time.Minute,
	})
}

// socketAuthenticator validates the handshake token the same way the HTTP
// auth middleware does, including the revocation check.
func socketAuthenticator(cfg config.JWTConfig, sessions session.AccessSessionChecker) relay.Authenticator {
	return func(ctx context.Context, token string) (pkgAuth.Principal, error) {
		claims, err := pkgAuth.ParseAccessToken(cfg, token)
		if err != nil {
			return pkgAuth.Principal{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
		}
		ok, err := sessions.HasSession(ctx, claims.ID)
		if err != nil {
			return pkgAuth.Principal{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "session lookup failed")
		}
		if !ok {
			return pkgAuth.Principal{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "session revoked")
		}
		return claims.Principal(), nil
	}
}
