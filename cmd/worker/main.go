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

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/joao-fontenele/canteen/internal/config"
	"github.com/joao-fontenele/canteen/internal/messaging"
	"github.com/joao-fontenele/canteen/internal/telemetry"
	"github.com/joao-fontenele/canteen/internal/worker"
)

const (
	serviceName    = "worker"
	serviceVersion = "0.1.0"
	groupPrefix    = "notification-worker"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load("")
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	if len(cfg.KafkaBrokers) == 0 {
		logger.Error("KAFKA_BROKERS environment variable is required")
		os.Exit(1)
	}
	if cfg.EmailServiceURL == "" {
		logger.Error("EMAIL_SERVICE_URL environment variable is required")
		os.Exit(1)
	}

	startOffset, err := messaging.ParseStartOffset(cfg.KafkaStartOffset)
	if err != nil {
		logger.Error("invalid KAFKA_START_OFFSET", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, cfg.OTLPEndpoint, serviceName, serviceVersion)
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	httpClient := &http.Client{
		Timeout:   10 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	notificationHandler := worker.NewNotificationHandler(cfg.EmailServiceURL, httpClient, logger,
		worker.WithLocation(cfg.Schedule.Location),
	)

	// A failed email must not hold back the partition.
	created := messaging.NewConsumer(cfg.KafkaBrokers, messaging.TopicOrderCreated, groupPrefix+"."+messaging.TopicOrderCreated,
		messaging.WithStartOffset(startOffset), messaging.WithSkipFailed(logger))
	defer func() { _ = created.Close() }()

	changed := messaging.NewConsumer(cfg.KafkaBrokers, messaging.TopicOrderStatusChanged, groupPrefix+"."+messaging.TopicOrderStatusChanged,
		messaging.WithStartOffset(startOffset), messaging.WithSkipFailed(logger))
	defer func() { _ = changed.Close() }()

	logger.Info("starting notification worker", "brokers", cfg.KafkaBrokers)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return created.Consume(gctx, notificationHandler.HandleOrderCreated)
	})
	g.Go(func() error {
		return changed.Consume(gctx, notificationHandler.HandleStatusChanged)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("consumer error", "error", err)
		os.Exit(1)
	}
	logger.Info("consumers stopped")
}
