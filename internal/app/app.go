package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/glowline/commerce/internal/domain/appointment"
	"github.com/glowline/commerce/internal/domain/coupon"
	"github.com/glowline/commerce/internal/domain/order"
	"github.com/glowline/commerce/internal/domain/promotion"
	"github.com/glowline/commerce/internal/domain/shipping"
	"github.com/glowline/commerce/internal/handler"
	"github.com/glowline/commerce/internal/notify"
	"github.com/glowline/commerce/internal/repository"
	"github.com/glowline/commerce/pkg/health"
	"github.com/glowline/commerce/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Repositories.
	productRepo := repository.NewProductRepository(pool)
	orderRepo := repository.NewOrderRepository(pool)
	couponRepo := repository.NewCouponRepository(pool)
	appointmentRepo := repository.NewAppointmentRepository(pool)
	salonServiceRepo := repository.NewSalonServiceRepository(pool)
	promotionRepo := repository.NewPromotionRepository(pool)
	zoneRepo := repository.NewShippingZoneRepository(pool)
	rewardRepo := repository.NewRewardRepository(pool)
	apikeyRepo := repository.NewAPIKeyRepository(pool)

	// Domain services.
	couponValidator := coupon.NewRepoValidator(couponRepo)
	shippingCalc := shipping.NewCalculator(zoneRepo)
	notifier := notify.NewLogDispatcher(lg.Named("notify"))
	orderService := order.NewService(order.Config{
		Orders:        orderRepo,
		Products:      productRepo,
		Coupons:       couponValidator,
		Redeemer:      couponRepo,
		Shipping:      shippingCalc,
		Rewards:       rewardRepo,
		Notifier:      notifier,
		Logger:        lg.Named("order"),
		PointsPerUnit: decimal.NewFromInt(cfg.PointsPerUnit),
	})
	allocator := appointment.NewAllocator(salonServiceRepo, appointmentRepo, notifier, lg.Named("appointment"))
	promotionService := promotion.NewService(promotionRepo, productRepo)

	// HTTP handlers.
	h := handler.New(
		handler.Config{
			ImageBaseURL: cfg.ImageBaseURL,
			APIKeyPepper: cfg.APIKeyPepper,
		},
		handler.Deps{
			Orders:       orderService,
			Appointments: allocator,
			Products:     productRepo,
			Services:     salonServiceRepo,
			Coupons:      couponValidator,
			Promotions:   promotionService,
			Shipping:     shippingCalc,
			Zones:        zoneRepo,
			Rewards:      rewardRepo,
			APIKeys:      apikeyRepo,
		},
	)

	// Mux: health endpoints + API routes on one server.
	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", h.Routes())

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization", "api_key"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("glowline-commerce", m),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
