package handler

import (
	"net/http"

	"github.com/eventify/internal/db"
	"github.com/eventify/internal/service"
	"github.com/gin-gonic/gin"
)

// HealthCheck serves the health endpoint used by deploy platforms and monitors.
func (a *API) HealthCheck(c *gin.Context) {
	sqlDB, err := a.db.DB()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"message": "database handle unavailable",
		})
		return
	}

	if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "error",
			"message": "database unreachable",
		})
		return
	}

	subscribers := gin.H{}
	for _, topic := range append(append([]string{}, db.MediaCategories...), service.TopicMessages) {
		subscribers[topic] = a.feed.Hub().Subscribers(topic)
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"database":    "up",
		"gate":        a.GateConfigured(),
		"subscribers": subscribers,
	})
}

// Metrics serves the Prometheus registry.
func (a *API) Metrics(c *gin.Context) {
	a.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}
