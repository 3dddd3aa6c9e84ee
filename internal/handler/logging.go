package handler

import (
	"time"

	"github.com/eventify/internal/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLogger logs one line per request with the zap logger.
func RequestLogger(log *zap.SugaredLogger) gin.HandlerFunc {
	log = logger.OrNop(log)
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []interface{}{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"ip", c.ClientIP(),
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		}
		if len(c.Errors) > 0 {
			log.Errorw("HTTP request error", append(fields, "error", c.Errors.String())...)
			return
		}
		if c.Writer.Status() >= 500 {
			log.Warnw("HTTP request", fields...)
			return
		}
		log.Infow("HTTP request", fields...)
	}
}
