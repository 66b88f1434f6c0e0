package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/laundry-booking/internal/domain/auth"
	"github.com/xenking/laundry-booking/internal/domain/booking"
	"github.com/xenking/laundry-booking/internal/domain/catalog"
	"github.com/xenking/laundry-booking/internal/domain/dashboard"
	"github.com/xenking/laundry-booking/internal/domain/order"
	"github.com/xenking/laundry-booking/internal/domain/subscription"
	"github.com/xenking/laundry-booking/internal/handler"
	"github.com/xenking/laundry-booking/internal/identityapi"
	"github.com/xenking/laundry-booking/internal/orderapi"
	"github.com/xenking/laundry-booking/internal/orderview"
	"github.com/xenking/laundry-booking/pkg/health"
	"github.com/xenking/laundry-booking/pkg/httpmiddleware"
)

const serviceName = "laundry-booking"

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	srv, err := build(ctx, lg, m, cfg)
	if err != nil {
		return err
	}
	healthSvc := srv.health
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           srv.handler,
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

type server struct {
	handler http.Handler
	health  *health.Health
}

// build wires clients, domain services and background pollers. Pollers and
// sweepers stop when ctx is done.
func build(ctx context.Context, lg *zap.Logger, m httpmiddleware.Telemetry, cfg *Config) (*server, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	cat := catalog.Default()
	if cfg.CatalogFile != "" {
		if cat, err = catalog.LoadFile(cfg.CatalogFile); err != nil {
			return nil, errors.Wrap(err, "load catalog")
		}
	}

	orders, err := orderapi.New(cfg.OrderAPI.URL, orderapi.Options{
		Timeout:        cfg.OrderAPI.Timeout,
		RPS:            cfg.OrderAPI.RPS,
		Burst:          cfg.OrderAPI.Burst,
		TracerProvider: m.TracerProvider(),
		MeterProvider:  m.MeterProvider(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "create order api client")
	}
	ident, err := identityapi.New(cfg.Identity.URL, identityapi.Options{
		SecretKey:      cfg.Identity.SecretKey,
		Timeout:        cfg.Identity.Timeout,
		TracerProvider: m.TracerProvider(),
		MeterProvider:  m.MeterProvider(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "create identity client")
	}
	adminKeys, err := auth.NewKeySet([]byte(cfg.Admin.Pepper), cfg.Admin.KeyHashes)
	if err != nil {
		return nil, errors.Wrap(err, "admin keys")
	}
	if len(cfg.Admin.KeyHashes) == 0 {
		lg.Warn("No admin keys configured, admin API is closed")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("order-api", 5*time.Second, health.PingCheck("order-api", orders))
	healthSvc.AddReadinessCheck("identity", 5*time.Second, health.PingCheck("identity", ident))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))

	// Booking sessions.
	sessions := booking.NewRegistry(booking.StoreConfig{
		Location:  loc,
		TimeSlots: cfg.Sessions.TimeSlots,
	}, cfg.Sessions.TTL)
	sessions.StartSweeper(ctx, cfg.Sessions.SweepInterval)

	// Order views, polled in the background.
	hub := orderview.NewHub(orders, orderview.HubConfig{
		Interval: cfg.Polling.CustomerInterval,
		IdleTTL:  cfg.Polling.CustomerIdleTTL,
		Limit:    cfg.Polling.OrderLimit,
		Logger:   lg.Named("orders"),
	})
	go hub.Run(ctx)
	board := orderview.NewAdminBoard(orders, orderview.AdminConfig{
		Interval: cfg.Polling.AdminInterval,
		Logger:   lg.Named("admin"),
	})
	go board.Run(ctx)

	h := handler.NewHandler(handler.Config{Location: loc}, handler.Deps{
		Catalog:  cat,
		Sessions: sessions,
		Orders: order.NewService(orders, order.ServiceConfig{
			Redirect:      cfg.Checkout.Redirect,
			RedirectAfter: cfg.Checkout.RedirectAfter,
		}),
		CustomerViews: hub,
		AdminBoard:    board,
		Dashboard:     dashboard.NewLoader(orders, cfg.Polling.RecentOrders),
		Subscriptions: subscription.NewService(subscription.WithLatency(subscription.Latency{
			Load:       cfg.Subscription.LoadLatency,
			Mutate:     cfg.Subscription.MutateLatency,
			UseCredits: cfg.Subscription.CreditLatency,
		})),
		Identity:  ident,
		AdminKeys: adminKeys,
	})

	// Router: health endpoints + API routes on one server.
	router := h.Routes()
	router.Get("/livez", healthSvc.LiveEndpoint)
	router.Get("/readyz", healthSvc.ReadyEndpoint)
	routeFinder := httpmiddleware.MakeRouteFinder(router)

	return &server{
		health: healthSvc,
		handler: httpmiddleware.Wrap(router,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization", handler.APIKeyHeader},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument(serviceName, routeFinder, m),
			httpmiddleware.LogRequests(routeFinder),
			httpmiddleware.Labeler(routeFinder),
		),
	}, nil
}
