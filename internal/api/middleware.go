package api

import (
	"strconv"
	"strings"
	"time"

	"shop-api/internal/models"
	"shop-api/internal/service"
	"shop-api/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const identityKey = "identity"

// RequireAuth accepts "Authorization: Bearer <access token>" and stores the caller identity
func RequireAuth(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			respondError(c, service.ErrUnauthenticated)
			c.Abort()
			return
		}

		id, err := authService.Authenticate(strings.TrimSpace(token))
		if err != nil {
			respondError(c, err)
			c.Abort()
			return
		}

		c.Set(identityKey, id)
		c.Next()
	}
}

// identity returns the caller set by RequireAuth
func identity(c *gin.Context) models.Identity {
	id, _ := c.MustGet(identityKey).(models.Identity)
	return id
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		util.HTTPRequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(duration)
		util.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
	}
}

// requestLogger writes one structured line per request
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		util.GetLogger().Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
