package main

import (
	"context"
	"food-orders/internal/catalog"
	"food-orders/internal/config"
	"food-orders/internal/kafka"
	"food-orders/internal/order"
	"food-orders/internal/store"
	"food-orders/internal/telemetry"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load("order-api")
	if err != nil {
		panic("invalid configuration: " + err.Error())
	}

	tel, err := telemetry.Setup(ctx, telemetry.Options{
		ServiceName:  cfg.ServiceName,
		OTLPEndpoint: cfg.OTLPEndpoint,
		LogLevel:     cfg.LogLevel,
	})
	if err != nil {
		panic("failed to initialize telemetry: " + err.Error())
	}
	defer tel.Shutdown(context.Background())
	log := tel.Logger

	metrics, err := telemetry.NewMetrics(tel.Meter)
	if err != nil {
		panic("failed to create metrics: " + err.Error())
	}

	orders, closeStore := openStore(ctx, cfg, log)
	defer closeStore()

	if err := kafka.EnsureTopics(ctx, cfg.KafkaBrokers[0], kafka.TopicSpec{
		Name:              cfg.OrderPlacedTopic,
		Partitions:        3,
		ReplicationFactor: 1,
	}); err != nil {
		log.Warn("failed to ensure topic", zap.String("topic", cfg.OrderPlacedTopic), zap.Error(err))
	}

	producer := kafka.NewProducer(cfg.KafkaBrokers)
	defer producer.Close()

	catalogClient := catalog.NewClient(cfg.CatalogBaseURL, &http.Client{Timeout: cfg.CatalogTimeout}, tel.Tracer)

	uc := order.NewUseCase(catalog.NewValidator(catalogClient), orders, producer, cfg.OrderPlacedTopic, metrics, log, tel.Tracer)
	ctrl := order.NewController(uc, log, tel.Tracer)

	app := newApp(ctrl, telemetry.NewHTTPMetrics(cfg.ServiceName), log)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutting down order-api...")
		_ = app.ShutdownWithTimeout(10 * time.Second)
		cancel()
	}()

	log.Info("order-api listening",
		zap.String("addr", cfg.HTTPAddr),
		zap.String("catalog", cfg.CatalogBaseURL),
		zap.String("topic", cfg.OrderPlacedTopic),
	)
	if err := app.Listen(cfg.HTTPAddr); err != nil {
		log.Error("server error", zap.Error(err))
	}
}

func newApp(ctrl *order.Controller, httpMetrics *telemetry.HTTPMetrics, log *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          order.ErrorHandler(log),
	})
	app.Use(recover.New())
	app.Use(otelfiber.Middleware())
	app.Use(httpMetrics.Middleware())

	app.Get("/metrics", httpMetrics.Handler())
	ctrl.Register(app)
	return app
}

// openStore picks Postgres when DATABASE_URL is set and the in-memory store
// otherwise.
func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (store.Store, func()) {
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set, orders are kept in memory only")
		return store.NewMemory(), func() {}
	}

	pg, err := store.OpenPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to open order store", zap.Error(err))
	}
	log.Info("order store ready", zap.String("backend", "postgres"))
	return pg, pg.Close
}
