package main

import (
	"food-orders/internal/order"
	"food-orders/internal/telemetry"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

func newApp(box *inbox, httpMetrics *telemetry.HTTPMetrics, log *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          order.ErrorHandler(log),
	})
	app.Use(recover.New())
	app.Use(otelfiber.Middleware())
	app.Use(httpMetrics.Middleware())

	app.Get("/metrics", httpMetrics.Handler())
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true, "service": "order-notifier"})
	})
	app.Get("/notifications", func(c *fiber.Ctx) error {
		return c.JSON(box.all())
	})
	app.Get("/notifications/:ownerId", func(c *fiber.Ctx) error {
		notes := box.forOwner(c.Params("ownerId"))
		if len(notes) == 0 {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no_notifications"})
		}
		return c.JSON(notes)
	})
	return app
}
