package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/desa-layanan-api/internal/service"
)

const unmatchedRoute = "unmatched"

// probeRoutes are scraped or polled by infrastructure and stay out of the request histogram.
var probeRoutes = map[string]struct{}{
	"/metrics": {},
	"/health":  {},
	"/ready":   {},
}

// Metrics records method, route template and status for every API request.
// Unrouted paths share one label so scanners cannot inflate cardinality.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if _, probe := probeRoutes[route]; probe {
			return
		}
		if route == "" {
			route = unmatchedRoute
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
