package v1

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aresmaps/mars_relief/internal/infrastructure/http/v1/handler"
	"github.com/aresmaps/mars_relief/pkg/logger"
	"github.com/aresmaps/mars_relief/pkg/telemetry"
)

func NewRouter(handler *handler.Handler, l logger.Logger, serviceName string) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(ginZapLogger(l))
	r.Use(telemetry.GinMiddleware(serviceName))

	r.GET("/healthz", handler.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	v1 := api.Group("/v1")

	v1.POST("/render", handler.Render)
	v1.POST("/invalidate", handler.Invalidate)

	return r
}

func ginZapLogger(l logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" || c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()

		c.Next()

		l.Info("request",
			"status", c.Writer.Status(),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"ip", c.ClientIP(),
			"latency", time.Since(start),
			"size", c.Writer.Size(),
		)
	}
}
