package main

import (
	"context"
	"errors"
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

	"github.com/angelmondragon/pos-inventory-backend/api/routes"
	"github.com/angelmondragon/pos-inventory-backend/internal/images"
	"github.com/angelmondragon/pos-inventory-backend/internal/items"
	"github.com/angelmondragon/pos-inventory-backend/internal/ledger"
	"github.com/angelmondragon/pos-inventory-backend/internal/reports"
	"github.com/angelmondragon/pos-inventory-backend/internal/sales"
	"github.com/angelmondragon/pos-inventory-backend/internal/staff"
	"github.com/angelmondragon/pos-inventory-backend/pkg/auth/session"
	"github.com/angelmondragon/pos-inventory-backend/pkg/config"
	"github.com/angelmondragon/pos-inventory-backend/pkg/db"
	"github.com/angelmondragon/pos-inventory-backend/pkg/logger"
	"github.com/angelmondragon/pos-inventory-backend/pkg/metrics"
	"github.com/angelmondragon/pos-inventory-backend/pkg/migrate"
	"github.com/angelmondragon/pos-inventory-backend/pkg/redis"
	"github.com/angelmondragon/pos-inventory-backend/pkg/storage"
	"github.com/angelmondragon/pos-inventory-backend/pkg/storage/gcs"
	"github.com/angelmondragon/pos-inventory-backend/pkg/storage/local"
	"github.com/angelmondragon/pos-inventory-backend/pkg/tracing"
)

const shutdownTimeout = 15 * time.Second

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
		ServiceName: cfg.App.ServiceName,
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
	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing, cfg.App.ServiceName)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err = multierr.Append(err, shutdownTracing(flushCtx))
	}()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, redisClient.Close()) }()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	catalogMetrics := metrics.NewCatalogMetrics(reg)

	blobs, imageFiles, err := newBlobStore(ctx, cfg, logg)
	if err != nil {
		return err
	}
	imageService, err := images.NewService(blobs, cfg.Storage.MaxUploadBytes(), logg, catalogMetrics)
	if err != nil {
		return err
	}

	staffService, err := staff.NewService(staff.ServiceParams{
		Repo:     staff.NewRepository(dbClient.DB()),
		Sessions: sessionManager,
		JWT:      cfg.JWT,
		Password: cfg.Password,
		Logger:   logg,
	})
	if err != nil {
		return err
	}

	ledgerRepo := ledger.NewRepository(dbClient.DB())
	itemRepo := items.NewRepository(dbClient.DB())

	itemService, err := items.NewService(itemRepo, ledgerRepo, dbClient, imageService, catalogMetrics, logg)
	if err != nil {
		return err
	}
	saleService, err := sales.NewService(sales.Params{
		DB:      dbClient,
		Items:   itemRepo,
		Ledger:  ledgerRepo,
		Config:  cfg.Sales,
		Metrics: metrics.NewSalesMetrics(reg),
		Logger:  logg,
	})
	if err != nil {
		return err
	}
	ledgerService, err := ledger.NewService(ledgerRepo)
	if err != nil {
		return err
	}
	reportService, err := reports.NewService(dbClient.DB(), ledgerRepo)
	if err != nil {
		return err
	}

	handler := routes.NewRouter(routes.Deps{
		Config:         cfg,
		Logger:         logg,
		DB:             dbClient,
		KV:             redisClient,
		Sessions:       sessionManager,
		Staff:          staffService,
		Items:          itemService,
		Sales:          saleService,
		Ledger:         ledgerService,
		Reports:        reportService,
		Images:         imageService,
		HTTPMetrics:    metrics.NewHTTPMetrics(reg),
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		ImageFiles:     imageFiles,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":            cfg.App.Env,
		"addr":           addr,
		"db_driver":      dbClient.Driver(),
		"storage_driver": cfg.Storage.Driver,
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// newBlobStore returns the configured image store, plus a file handler when
// images live on local disk and are served by this process.
func newBlobStore(ctx context.Context, cfg *config.Config, logg *logger.Logger) (storage.BlobStore, http.Handler, error) {
	if strings.EqualFold(cfg.Storage.Driver, config.StorageGCS) {
		client, err := gcs.NewClient(ctx, cfg.Storage, logg)
		if err != nil {
			return nil, nil, err
		}
		return client, nil, nil
	}

	store, err := local.New(cfg.Storage.LocalDir, cfg.Storage.PublicBaseURL)
	if err != nil {
		return nil, nil, err
	}
	logg.Info(logg.WithField(ctx, "dir", store.Dir()), "serving images from local storage")
	return store, store.FileHandler(), nil
}
