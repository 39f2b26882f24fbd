package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/joao-fontenele/canteen/internal/config"
	"github.com/joao-fontenele/canteen/internal/database"
	"github.com/joao-fontenele/canteen/internal/httpx"
	"github.com/joao-fontenele/canteen/internal/idempotency"
	"github.com/joao-fontenele/canteen/internal/inventory"
	"github.com/joao-fontenele/canteen/internal/memstore"
	"github.com/joao-fontenele/canteen/internal/messaging"
	"github.com/joao-fontenele/canteen/internal/notify"
	"github.com/joao-fontenele/canteen/internal/orders"
	"github.com/joao-fontenele/canteen/internal/reservations"
	"github.com/joao-fontenele/canteen/internal/telemetry"
)

const (
	serviceName    = "orders"
	serviceVersion = "0.1.0"
)

type stores struct {
	products     orders.ProductStore
	orders       orders.OrderStore
	reservations reservations.Store
	close        func()
}

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load("8081")
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

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open storage", "error", err, "driver", cfg.StorageDriver)
		os.Exit(1)
	}
	defer st.close()

	var notifier orders.Notifier = notify.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaNotifier := notify.NewKafkaNotifier(
			messaging.NewProducer(cfg.KafkaBrokers, messaging.TopicOrderCreated),
			messaging.NewProducer(cfg.KafkaBrokers, messaging.TopicOrderStatusChanged),
		)
		defer func() { _ = kafkaNotifier.Close() }()
		notifier = kafkaNotifier
	} else {
		logger.Warn("KAFKA_BROKERS not set, notifications disabled")
	}

	var idem orders.Idempotency
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer func() { _ = rdb.Close() }()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		idem = idempotency.NewStore(rdb, "order:create", idempotency.DefaultTTL)
	}

	reservationService := reservations.NewService(cfg.Schedule, st.reservations, logger)
	tokens := orders.NewTokenGenerator(st.orders,
		orders.WithTokenPrefix(cfg.TokenPrefix),
		orders.WithTokenAttempts(cfg.TokenAttempts),
	)
	orderService, err := orders.NewService(st.products, st.orders, reservationService, notifier, logger,
		orders.WithTokenGenerator(tokens),
	)
	if err != nil {
		logger.Error("failed to create order service", "error", err)
		os.Exit(1)
	}

	orderHandler := orders.NewHandler(orderService, idem, logger)
	reservationHandler := reservations.NewHandler(reservationService, logger)

	route := func(h http.HandlerFunc) http.HandlerFunc {
		return telemetry.WithHTTPRoute(httpx.WithTimeout(cfg.RequestTimeout, h))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /orders", route(orderHandler.HandleCreate))
	mux.HandleFunc("GET /orders", route(orderHandler.HandleList))
	mux.HandleFunc("GET /orders/mine", route(orderHandler.HandleMine))
	mux.HandleFunc("GET /orders/{id}", route(orderHandler.HandleGet))
	mux.HandleFunc("PATCH /orders/{id}/status", route(orderHandler.HandleUpdateStatus))
	mux.HandleFunc("GET /reservations/slots", route(reservationHandler.HandleSlots))
	mux.HandleFunc("GET /reservations/tables", route(reservationHandler.HandleTables))
	mux.HandleFunc("GET /reservations/next", route(reservationHandler.HandleNext))
	mux.Handle("GET /metrics", metricsHandler)

	server := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: otelhttp.NewHandler(mux, serviceName,
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				if r.Pattern != "" {
					return r.Pattern
				}
				return r.Method + " " + r.URL.Path
			}),
		),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting orders service",
			"port", cfg.Port,
			"storage", cfg.StorageDriver,
			"tables", cfg.Schedule.TotalTables,
			"idempotency", idem != nil,
		)
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

func openStores(ctx context.Context, cfg config.Config, logger *slog.Logger) (*stores, error) {
	if cfg.StorageDriver == config.StorageMemory {
		logger.Warn("using in-memory storage, data is lost on restart")
		return &stores{
			products:     memstore.NewProductStore(memstore.Menu()...),
			orders:       memstore.NewOrderStore(),
			reservations: memstore.NewReservationStore(),
			close:        func() {},
		}, nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	db, err := database.Open(pingCtx, cfg.PostgresURL, cfg.DBSchema)
	if err != nil {
		return nil, err
	}
	return &stores{
		products:     inventory.NewProductRepository(db),
		orders:       orders.NewOrderRepository(db),
		reservations: reservations.NewRepository(db),
		close:        func() { _ = db.Close() },
	}, nil
}
