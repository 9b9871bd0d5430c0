package config

import (
	"time"

	"reviewflow-backend/utils"

	"github.com/gin-gonic/gin"
)

func PerformanceLogger(log *utils.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start)
		log.Info("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency", latency,
		)

		if latency > 200*time.Millisecond {
			log.Warn("slow request",
				"method", c.Request.Method,
				"path", c.FullPath(),
				"latency", latency,
			)
		}
	}
}
