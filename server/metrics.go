package server

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"food-ordering/api/handlers"
)

var requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "food_ordering_http_request_duration_seconds",
	Help:    "Time spent serving HTTP requests",
	Buckets: prometheus.DefBuckets,
}, []string{"method", "route", "status"})

func metricsMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		duration := time.Since(start).Seconds()

		// The error handler writes the response after this returns.
		status := c.Response().StatusCode()
		if err != nil {
			status = handlers.StatusFor(err)
		}
		requestDuration.WithLabelValues(c.Method(), c.Route().Path, strconv.Itoa(status)).Observe(duration)

		return err
	}
}

func metricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
