package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/internal/domain/checkout"
	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/handler"
	"github.com/xenking/storefront/internal/storage/postgres"
	"github.com/xenking/storefront/pkg/health"
	"github.com/xenking/storefront/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("catalog", cfg.Catalog.Source),
		zap.String("storage", cfg.Storage.Driver),
		zap.String("coupons", cfg.Coupons.Source),
	)

	healthSvc := health.New(health.Thresholds{})
	healthSvc.Add(health.Liveness, "goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Add(health.Liveness, "gc_pause", time.Second, health.GCMaxPauseCheck(time.Second))

	// PostgreSQL pool + migrations, only when a component lives there.
	var pool *pgxpool.Pool
	if cfg.NeedsPostgres() {
		var err error
		pool, err = postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return errors.Wrap(err, "create db pool")
		}
		defer pool.Close()

		if err := postgres.RunMigrations(ctx, pool); err != nil {
			return errors.Wrap(err, "run migrations")
		}
		healthSvc.Add(health.Readiness, "postgres", 5*time.Second, health.PingCheck("postgres", pool))
	}

	// Catalog.
	catalogStore := catalog.NewStore(catalogSource(cfg.Catalog, pool))
	catalogStore.Load(ctx)
	healthSvc.Add(health.Readiness, "catalog", cfg.Catalog.Timeout, health.PingCheck("catalog", catalogStore))

	// Session carts.
	storage, closeStorage, err := slotStorage(ctx, cfg.Storage, pool, healthSvc)
	if err != nil {
		return err
	}
	defer closeStorage()

	observer, err := cartObserver(m.MeterProvider())
	if err != nil {
		return err
	}
	carts := cart.NewRegistry(storage, observer)
	if err := registerSessionGauge(m.MeterProvider(), storage); err != nil {
		return err
	}

	// Coupons and checkout.
	rules, err := couponRules(cfg.Coupons, pool)
	if err != nil {
		return err
	}
	engine := coupon.NewEngine(rules)
	orders, err := checkout.NewOrchestrator(engine, nil, checkout.Options{
		ProcessingDelay: cfg.Checkout.ProcessingDelay,
		RedirectDelay:   cfg.Checkout.RedirectDelay,
		RedirectTo:      cfg.Checkout.RedirectTo,
		TracerProvider:  m.TracerProvider(),
		MeterProvider:   m.MeterProvider(),
	})
	if err != nil {
		return errors.Wrap(err, "create checkout")
	}

	// HTTP handlers.
	h, err := handler.New(
		handler.Config{
			LandingSections: cfg.Landing.Sections,
			MeterProvider:   m.MeterProvider(),
		},
		catalogStore,
		carts,
		engine,
		orders,
	)
	if err != nil {
		return errors.Wrap(err, "create handler")
	}

	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Mux: health endpoints + API routes on one server.
	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("GET /readyz", healthSvc.ReadyEndpoint)
	h.Register(mux)
	routeFinder := httpmiddleware.MakeRouteFinder(mux)

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
				AllowHeaders:     []string{"Content-Type", httpmiddleware.RequestIDHeader},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:      cfg.RateLimit.Max,
				WriteMax: cfg.RateLimit.WriteMax,
				IPMax:    cfg.RateLimit.IPMax,
				Window:   cfg.RateLimit.Window,
				Skip:     httpmiddleware.SkipPaths("/livez", "/readyz"),
			}),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Session(httpmiddleware.SessionConfig{
				TTL:    cfg.Storage.SessionTTL,
				Secure: cfg.Storage.SecureCookie,
			}),
			httpmiddleware.Instrument("storefront", routeFinder, m),
			httpmiddleware.RequestID(),
			httpmiddleware.LogRequests(routeFinder),
			httpmiddleware.Labeler(routeFinder),
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
