package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/joao-fontenele/canteen/internal/config"
	"github.com/joao-fontenele/canteen/internal/database"
	"github.com/joao-fontenele/canteen/internal/httpx"
	"github.com/joao-fontenele/canteen/internal/inventory"
	"github.com/joao-fontenele/canteen/internal/memstore"
	"github.com/joao-fontenele/canteen/internal/telemetry"
)

const (
	serviceName    = "inventory"
	serviceVersion = "0.1.0"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load("8082")
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, cfg.OTLPEndpoint, serviceName, serviceVersion)
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider(serviceName, serviceVersion)
	if err != nil {
		logger.Error("failed to initialize meter", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	var catalog inventory.Catalog
	switch cfg.StorageDriver {
	case config.StoragePostgres:
		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		db, err := database.Open(pingCtx, cfg.PostgresURL, cfg.DBSchema)
		cancel()
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer func() { _ = db.Close() }()
		catalog = inventory.NewProductRepository(db)
	default:
		logger.Warn("using in-memory catalog")
		catalog = memstore.NewProductStore(memstore.Menu()...)
	}

	handler := inventory.NewHandler(catalog, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /products", telemetry.WithHTTPRoute(httpx.WithTimeout(cfg.RequestTimeout, handler.HandleList)))
	mux.HandleFunc("GET /products/{id}", telemetry.WithHTTPRoute(httpx.WithTimeout(cfg.RequestTimeout, handler.HandleGet)))
	mux.Handle("GET /metrics", metricsHandler)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      otelhttp.NewHandler(mux, serviceName),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting inventory service", "port", cfg.Port, "storage", cfg.StorageDriver)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
