// Package server assembles the fiber application: middleware, operational
// endpoints and the API routes.
package server

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"

	_ "food-ordering/api/docs"

	"food-ordering/api/config"
	"food-ordering/api/handlers"
)

func New(cfg config.ServerConfig, h *handlers.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		ErrorHandler: handlers.ErrorHandler,
		BodyLimit:    8 << 20,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New())
	app.Use(metricsMiddleware())

	app.Get("/health", healthCheck)
	app.Get("/metrics", metricsHandler())
	app.Get("/swagger/*", swagger.HandlerDefault)

	h.Register(app)
	return app
}

func healthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"time":   time.Now(),
	})
}
