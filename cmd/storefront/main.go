package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/joao-fontenele/storefront/internal/cart"
	"github.com/joao-fontenele/storefront/internal/checkout"
	"github.com/joao-fontenele/storefront/internal/config"
	"github.com/joao-fontenele/storefront/internal/confirmation"
	"github.com/joao-fontenele/storefront/internal/gateway"
	"github.com/joao-fontenele/storefront/internal/messaging"
	"github.com/joao-fontenele/storefront/internal/orderapi"
	"github.com/joao-fontenele/storefront/internal/telemetry"
)

const (
	serviceName    = "storefront"
	serviceVersion = "0.1.0"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Require("ORDER_API_URL", "REDIS_ADDR"); err != nil {
		logger.Error("invalid config", "error", err)
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

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer func() { _ = rdb.Close() }()

	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}

	var ledger confirmation.Ledger
	if cfg.PostgresURL != "" {
		db, err := openLedgerDB(ctx, cfg)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer func() { _ = db.Close() }()
		ledger = confirmation.NewRepository(db)
	} else {
		logger.Warn("POSTGRES_URL not set, confirmations will not be recorded")
	}

	var publisher confirmation.Publisher
	if brokers := cfg.Brokers(); len(brokers) > 0 {
		producer := messaging.NewProducer(brokers, messaging.TopicOrderConfirmed)
		defer func() { _ = producer.Close() }()
		publisher = producer
	}

	httpClient := telemetry.NewHTTPClient(cfg.HTTPClientTimeout)
	orders := orderapi.NewClient(cfg.OrderAPIURL, httpClient,
		orderapi.WithBreakerThreshold(cfg.BreakerFailures),
		orderapi.WithBreakerTimeout(cfg.BreakerTimeout),
	)

	sessions := cart.NewSessions(cart.NewRedisRepository(rdb), logger)

	cartHandler := cart.NewHandler(sessions, orders, cfg.ShippingFee, logger)

	checkoutService, err := checkout.NewService(orders, logger)
	if err != nil {
		logger.Error("failed to create checkout service", "error", err)
		os.Exit(1)
	}
	checkoutHandler := checkout.NewHandler(checkoutService, sessions, logger)

	reconciler, err := confirmation.NewReconciler(orders, orders, logger)
	if err != nil {
		logger.Error("failed to create reconciler", "error", err)
		os.Exit(1)
	}
	confirmationHandler := confirmation.NewHandler(reconciler, sessions, ledger, publisher, logger)

	catalogHandler := gateway.NewHandler(gateway.NewServiceProxy(cfg.OrderAPIURL, httpClient), logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /cart", telemetry.WithHTTPRoute(cartHandler.HandleGet))
	mux.HandleFunc("POST /cart/lines", telemetry.WithHTTPRoute(cartHandler.HandleAddLine))
	mux.HandleFunc("DELETE /cart/lines", telemetry.WithHTTPRoute(cartHandler.HandleRemoveLine))
	mux.HandleFunc("PATCH /cart/lines/quantity", telemetry.WithHTTPRoute(cartHandler.HandleChangeQuantity))
	mux.HandleFunc("PUT /cart/destination", telemetry.WithHTTPRoute(cartHandler.HandleSetDestination))
	mux.HandleFunc("DELETE /cart", telemetry.WithHTTPRoute(cartHandler.HandleClear))
	mux.HandleFunc("POST /checkout", telemetry.WithHTTPRoute(checkoutHandler.HandleCheckout))
	mux.HandleFunc("GET /payment/success", telemetry.WithHTTPRoute(confirmationHandler.HandlePaymentSuccess))
	mux.HandleFunc("GET /confirmations", telemetry.WithHTTPRoute(confirmationHandler.HandleList))
	mux.HandleFunc("GET /confirmations/{orderId}", telemetry.WithHTTPRoute(confirmationHandler.HandleGet))
	mux.HandleFunc("GET /products", telemetry.WithHTTPRoute(catalogHandler.HandleListProducts))
	mux.HandleFunc("GET /products/search", telemetry.WithHTTPRoute(catalogHandler.HandleSearch))
	mux.HandleFunc("GET /products/best-selling", telemetry.WithHTTPRoute(catalogHandler.HandleBestSelling))
	mux.HandleFunc("GET /products/{id}", telemetry.WithHTTPRoute(catalogHandler.HandleGetProduct))
	mux.HandleFunc("GET /products/{id}/related", telemetry.WithHTTPRoute(catalogHandler.HandleRelated))
	mux.Handle("GET /metrics", metricsHandler)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	var handler http.Handler = cart.SessionMiddleware(mux)
	handler = middleware.Recoverer(handler)
	handler = middleware.RealIP(handler)
	handler = middleware.RequestID(handler)

	server := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: otelhttp.NewHandler(handler, serviceName,
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				if r.Pattern != "" {
					return r.Pattern
				}
				return r.Method + " " + r.URL.Path
			}),
		),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: writeTimeout(cfg.HTTPClientTimeout),
	}

	go func() {
		logger.Info("starting storefront service", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}

func openLedgerDB(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := telemetry.OpenDB("postgres", cfg.PostgresURL, cfg.PostgresMaxConns)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// writeTimeout covers /payment/success, which makes two sequential outbound
// calls (confirm, then the product fan-out) that may each take the full
// client timeout.
func writeTimeout(clientTimeout time.Duration) time.Duration {
	return 2*clientTimeout + 5*time.Second
}
