package observability

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsHandler serves the Prometheus scrape endpoint from the default
// gatherer. Collector registration is idempotent, so the handler can be
// mounted on any number of routers.
func MetricsHandler() fiber.Handler {
	RegisterMetrics()
	scrape := promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{})
	return adaptor.HTTPHandler(scrape)
}
