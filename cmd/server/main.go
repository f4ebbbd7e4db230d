package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/orderin/api/internal/auth"
	"github.com/orderin/api/internal/cart"
	"github.com/orderin/api/internal/catalog"
	"github.com/orderin/api/internal/clock"
	"github.com/orderin/api/internal/config"
	"github.com/orderin/api/internal/events"
	"github.com/orderin/api/internal/feed"
	"github.com/orderin/api/internal/handler"
	"github.com/orderin/api/internal/logger"
	"github.com/orderin/api/internal/metrics"
	"github.com/orderin/api/internal/order"
	"github.com/orderin/api/internal/postgres"
	"github.com/orderin/api/internal/router"
	"github.com/orderin/api/internal/ws"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const version = "1.0.0"

func main() {
	cfg := config.Load()

	logg, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logg.Sync()

	if err := run(cfg, logg); err != nil {
		logg.Error("server exited", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clk := clock.System()
	checks := map[string]handler.Pinger{}

	// Persistence: PostgreSQL when configured, otherwise the in-memory
	// baseline with simulated latency.
	var (
		repo  order.Repository
		menu  = catalog.Default()
		users auth.UserStore
	)
	if cfg.DatabaseURL != "" {
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer pool.Close()
		if err := postgres.Migrate(ctx, pool); err != nil {
			return err
		}
		checks["postgres"] = pool

		repo = postgres.NewOrderRepository(pool)
		users = postgres.NewUserStore(pool)

		items, err := postgres.NewMenuStore(pool).ListMenuItems(ctx)
		switch {
		case err != nil:
			logg.Warn("menu unavailable, serving house menu", zap.Error(err))
		case len(items) == 0:
			logg.Info("menu table empty, serving house menu")
		default:
			menu = catalog.New(items)
		}
		logg.Info("using postgres repository")
	} else {
		repo = order.NewMemoryRepository(order.Baseline(clk.Now()), cfg.SimulatedDelay)
		logg.Info("using in-memory repository", zap.Duration("simulated_delay", cfg.SimulatedDelay))
	}

	// Sessions: Redis when configured, otherwise in process.
	var sessions auth.SessionStore = auth.NewMemorySessionStore(clk)
	if cfg.RedisURL != "" {
		rdb, err := auth.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer rdb.Close()
		rs := auth.NewRedisSessionStore(rdb)
		sessions = rs
		checks["redis"] = rs
		logg.Info("using redis session store")
	}

	authOpts := []auth.Option{auth.WithLogger(logg), auth.WithSessionTTL(cfg.SessionTTL)}
	if users != nil {
		authOpts = append(authOpts, auth.WithUserStore(users))
	}
	authSvc := auth.NewService(cfg.JWTSecret, sessions, authOpts...)

	store := order.NewStore(repo, order.WithLogger(logg), order.WithClock(clk))
	hub := ws.NewHub(logg)
	m := metrics.New(store, clk)

	orderHandler := handler.NewOrderHandler(store, nil, clk)
	store.Subscribe(hub.OrderEvents(orderHandler.Render))
	store.Subscribe(m.ObserveOrderEvent)

	g, ctx := errgroup.WithContext(ctx)

	if cfg.AMQPURL != "" {
		amqpClient, err := events.Dial(cfg.AMQPURL)
		if err != nil {
			return err
		}
		defer amqpClient.Close()
		checks["amqp"] = amqpClient

		fwd := events.NewForwarder(amqpClient, logg, 0)
		store.Subscribe(fwd.Handle)
		g.Go(func() error { return fwd.Run(ctx) })
		logg.Info("publishing order events", zap.String("exchange", events.ExchangeOrders))
	}

	if err := store.LoadOrders(ctx); err != nil {
		return fmt.Errorf("initial load: %w", err)
	}

	var refresher handler.Refresher
	if cfg.FeedEnabled {
		sync := feed.New(store, menu,
			feed.WithClock(clk),
			feed.WithLogger(logg),
			feed.WithMode(cfg.FeedMode),
			feed.WithInterval(cfg.FeedInterval),
			feed.WithObserver(m.ObserveFeed),
		)
		refresher = sync
		g.Go(func() error { return sync.Run(ctx) })
		logg.Info("order feed enabled", zap.String("mode", sync.Mode()), zap.Duration("interval", cfg.FeedInterval))
	}

	r := router.New(cfg, router.Deps{
		Auth:    authSvc,
		Orders:  store,
		Carts:   cart.NewRegistry(),
		Menu:    menu,
		Feed:    refresher,
		Hub:     hub,
		Metrics: m,
		Health:  handler.NewHealthHandler(version, checks),
		Clock:   clk,
		Log:     logg,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error { return hub.Run(ctx) })
	g.Go(func() error {
		logg.Info("starting server", zap.String("addr", srv.Addr), zap.String("version", version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logg.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
