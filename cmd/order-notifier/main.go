package main

import (
	"context"
	"food-orders/internal/config"
	"food-orders/internal/kafka"
	"food-orders/internal/telemetry"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load("order-notifier")
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

	box := newInbox()
	app := newApp(box, telemetry.NewHTTPMetrics(cfg.ServiceName), log)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutting down order-notifier...")
		_ = app.ShutdownWithTimeout(10 * time.Second)
		cancel()
	}()

	go func() {
		log.Info("notification api listening", zap.String("addr", cfg.NotifierHTTPAddr))
		if err := app.Listen(cfg.NotifierHTTPAddr); err != nil {
			log.Error("server error", zap.Error(err))
		}
	}()

	consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.OrderPlacedTopic, cfg.NotifierGroupID, log)
	defer consumer.Close()

	n := newNotifier(cfg.OrderPlacedTopic, box, metrics, log, tel.Tracer)

	log.Info("order-notifier started",
		zap.String("topic", cfg.OrderPlacedTopic),
		zap.String("group_id", cfg.NotifierGroupID),
	)
	if err := consumer.Listen(ctx, n.handle); err != nil {
		log.Error("consumer error", zap.Error(err))
	}
}
