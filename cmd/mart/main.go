package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/odyssey-mart/cmd/mart/cli"
	"github.com/odyssey-erp/odyssey-mart/internal/app"
	"github.com/odyssey-erp/odyssey-mart/internal/inventory"
	"github.com/odyssey-erp/odyssey-mart/internal/ledger"
	"github.com/odyssey-erp/odyssey-mart/internal/ledger/memory"
	"github.com/odyssey-erp/odyssey-mart/internal/ledger/postgres"
	"github.com/odyssey-erp/odyssey-mart/internal/observability"
	"github.com/odyssey-erp/odyssey-mart/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-mart/internal/platform/db"
	"github.com/odyssey-erp/odyssey-mart/internal/pricing"
	"github.com/odyssey-erp/odyssey-mart/internal/sales"
	"github.com/odyssey-erp/odyssey-mart/internal/shared"
	"github.com/odyssey-erp/odyssey-mart/internal/shifts"
	"github.com/odyssey-erp/odyssey-mart/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	if len(os.Args) > 1 && os.Args[1] == "jobs" {
		if err := cli.Run(ctx, cfg.RedisAddr, os.Args[2:], os.Stdout); err != nil {
			logger.Error("jobs command", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	store, pool, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close()
	}

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(pool, logger)

	var idem sales.IdempotencyPort
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, checkout replay protection disabled", slog.Any("error", err))
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
		idem = shared.NewIdempotencyStore(redisClient, cfg.IdempotencyTTL)
	}

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer inspector.Close()

	inventoryService := inventory.NewService(store, auditLogger, jobClient, metrics, logger)
	salesService := sales.NewService(store, auditLogger, inventoryService, metrics, logger)
	shiftService := shifts.NewService(store, auditLogger, logger)
	voucherService := pricing.NewService(store, auditLogger, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		InventoryHandler: inventory.NewHandler(logger, inventoryService),
		SalesHandler:     sales.NewHandler(logger, salesService, idem),
		ShiftsHandler:    shifts.NewHandler(logger, shiftService),
		VoucherHandler:   pricing.NewHandler(logger, voucherService),
		JobHandler:       jobs.NewHandler(inspector, logger),
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("store", cfg.StoreDriver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func openStore(ctx context.Context, cfg *app.Config, logger *slog.Logger) (ledger.Store, *pgxpool.Pool, error) {
	if cfg.StoreDriver == app.DriverMemory {
		logger.Warn("using in-memory ledger, data is lost on restart")
		return memory.New(), nil, nil
	}
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return nil, nil, err
	}
	if cfg.PGMigrate {
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
	}
	return postgres.New(pool, cfg.TxMaxRetries), pool, nil
}
