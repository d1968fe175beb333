package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/reactiontech/websa-api/internal/infra/metrics"
	"go.uber.org/zap"
)

type RouterConfig struct {
	AllowedOrigins []string
	MaxUploadBytes int64
	HealthChecks   map[string]metrics.HealthCheck
}

func NewRouter(h *Handler, cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(accessLog(h.logger))
	r.Use(requestMetrics())
	r.Use(cors.New(corsConfig(cfg.AllowedOrigins)))
	r.MaxMultipartMemory = 32 << 20

	limit := limitBody(cfg.MaxUploadBytes)

	r.POST("/estimate_height", limit, h.estimateHeight)
	r.POST("/upload", limit, h.upload)
	r.POST("/signup", h.signup)
	r.POST("/login", h.login)
	r.POST("/saveAnalytics", h.saveAnalytics)
	r.GET("/history", h.history)
	r.GET("/profile", h.profile)
	r.POST("/updateProfile", h.updateProfile)
	r.GET("/get-total-uploads", h.totalUploads)

	r.GET("/videos/:videoId", h.getVideo)
	r.POST("/videos/:videoId/estimate", h.requestEstimation)
	r.GET("/jobs/:jobId", h.getJob)

	r.GET("/healthz", healthz(cfg.HealthChecks, h.logger))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func corsConfig(origins []string) cors.Config {
	config := cors.DefaultConfig()
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = origins
	}
	config.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	return config
}

func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

func accessLog(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

func requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

func healthz(checks map[string]metrics.HealthCheck, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := gin.H{}
		healthy := true
		for name, check := range checks {
			if err := check(ctx); err != nil {
				logger.Warn("health check failed", zap.String("check", name), zap.Error(err))
				status[name] = "unavailable"
				healthy = false
				continue
			}
			status[name] = "ok"
		}

		code := http.StatusOK
		if !healthy {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"healthy": healthy, "checks": status})
	}
}
