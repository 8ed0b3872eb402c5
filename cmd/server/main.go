package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"foodcourt-be/internal/auth"
	"foodcourt-be/internal/cart"
	"foodcourt-be/internal/catalog"
	"foodcourt-be/internal/config"
	"foodcourt-be/internal/db"
	"foodcourt-be/internal/identity"
	"foodcourt-be/internal/logger"
	"foodcourt-be/internal/messaging"
	"foodcourt-be/internal/metrics"
	"foodcourt-be/internal/middleware"
	"foodcourt-be/internal/order"
	"foodcourt-be/internal/telemetry"
	"foodcourt-be/internal/transport"
	"foodcourt-be/internal/wallet"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	serviceName     = "foodcourt-be"
	serviceVersion  = "0.1.0"
	catalogCacheTTL = 5 * time.Minute
	shutdownTimeout = 10 * time.Second
)

var (
	initDBFunc      = db.NewDatabase
	startServerFunc = func(srv *http.Server) error { return srv.ListenAndServe() }
)

func main() {
	if err := run(); err != nil {
		logger.L().Fatal("server exited", zap.Error(err))
	}
}

type app struct {
	handler    http.Handler
	reconciler *order.Reconciler
	limiter    *middleware.RateLimiter
	closers    []func() error
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.L().Warn("close failed", zap.Error(err))
		}
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, cfg.OTLPEndpoint, serviceName, serviceVersion)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = shutdownTracer(sctx)
	}()

	var database *sql.DB
	if cfg.StorageDriver == config.StorageDriverPostgres {
		database, err = initDBFunc(cfg)
		if err != nil {
			return err
		}
		defer database.Close()
	}

	a := newApp(cfg, database, prometheus.NewRegistry())
	defer a.close()

	go a.reconciler.Run(ctx)
	go a.limiter.Cleanup(ctx)

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           a.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.L().Info("http server listening", zap.String("addr", srv.Addr), zap.String("storage", cfg.StorageDriver))
		errCh <- startServerFunc(srv)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.L().Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(sctx)
}

// newApp wires every component. database may be nil for the memory driver.
func newApp(cfg *config.Config, database *sql.DB, registry *prometheus.Registry) *app {
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)
	a := &app{}

	var (
		cartRepo  cart.Repository
		orderRepo order.Repository
		ledger    wallet.Ledger
	)
	if cfg.StorageDriver == config.StorageDriverMemory || database == nil {
		cartRepo = cart.NewMemoryRepository()
		orderRepo = order.NewMemoryRepository()
		ledger = wallet.NewMemoryLedger()
	} else {
		cartRepo = cart.NewRepository(database)
		orderRepo = order.NewRepository(database)
		ledger = wallet.NewRepository(database)
	}

	prices := catalog.NewClient(cfg.CatalogURL, cfg.CatalogTimeout, m)
	var catalogReader catalog.Reader = prices
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		a.closers = append(a.closers, rdb.Close)
		catalogReader = catalog.NewCachedReader(prices, rdb, catalogCacheTTL)
	}

	identityClient := identity.NewClient(cfg.IdentityURL, cfg.IdentityTimeout, m)

	var publisher interface {
		order.Publisher
		Close() error
	} = messaging.Noop{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = messaging.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	}
	a.closers = append(a.closers, publisher.Close)

	cartSvc := cart.NewService(cartRepo, catalogReader)
	orderSvc := order.NewService(order.Deps{
		Repo:      orderRepo,
		Cart:      cartSvc,
		Wallet:    ledger,
		Prices:    prices,
		Catalog:   catalogReader,
		Identity:  identityClient,
		Publisher: publisher,
		Metrics:   m,
	}, order.Config{
		CancellationWindow:     cfg.CancellationWindow,
		CatalogTimeout:         cfg.CatalogTimeout,
		IdentityTimeout:        cfg.IdentityTimeout,
		WalletTimeout:          cfg.WalletTimeout,
		CompensationMaxElapsed: cfg.CompensationMaxElapsed,
	})
	queries := order.NewQueryService(orderRepo, catalogReader, cfg.CancellationWindow, nil)

	a.reconciler = order.NewReconciler(orderRepo, ledger, m, order.ReconcilerConfig{
		Interval:    cfg.ReconcileInterval,
		Grace:       cfg.ReconcileGrace,
		Lookback:    cfg.ReconcileLookback,
		CallTimeout: cfg.WalletTimeout,
	}, nil)

	a.limiter = middleware.NewRateLimiter()
	tokens := auth.NewTokens(cfg.JWTSecret)

	a.handler = transport.NewRouter(transport.RouterDeps{
		Cart:    transport.NewCartHandler(cartSvc),
		Orders:  transport.NewOrderHandler(orderSvc, queries, cfg.CancellationWindow),
		Wallet:  transport.NewWalletHandler(ledger, cfg.WalletSignupBonus),
		Metrics: metrics.Handler(registry),
		Middleware: []func(http.Handler) http.Handler{
			middleware.Recover,
			middleware.Auth(tokens, cfg.InternalSecret),
			a.limiter.Handler,
		},
	})
	return a
}
