package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/devesclogapp/Talentconnect-01-sub001/internal/logger"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/metrics"
)

// RequestMetrics пишет метрики и access-лог. Маршрут берётся шаблоном (/api/orders/:id), не сырым путём.
func RequestMetrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		m.HTTPStarted()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		elapsed := time.Since(started)
		m.HTTPFinished(c.Request.Method, route, strconv.Itoa(status), elapsed)

		logger.Log.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"route":    route,
			"status":   status,
			"duration": elapsed.String(),
			"ip":       c.ClientIP(),
		}).Info("http request")
	}
}
