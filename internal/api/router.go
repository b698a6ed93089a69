package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/zizcon/zizcon-api/internal/auth"
	"github.com/zizcon/zizcon-api/internal/config"
	"github.com/zizcon/zizcon-api/internal/directus"
	"github.com/zizcon/zizcon-api/internal/models"
	"github.com/zizcon/zizcon-api/internal/service"
)

// NewRouter creates and configures the Gin router
func NewRouter(services *service.Services, sessions *auth.SessionAccessor, cms *directus.Client, cfg *config.Config, log zerolog.Logger) *gin.Engine {
	// Set Gin mode
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Middleware
	router.Use(recoveryMiddleware(log))
	router.Use(loggingMiddleware(log))
	router.Use(corsMiddleware(cfg.App.BaseURL))

	// Handlers
	authHandler := NewAuthHandler(services, sessions, log)
	contentHandler := NewContentHandler(cms, log)

	// Health check
	router.GET("/health", healthCheck)
	router.GET("/metrics", metricsHandler(services))

	api := router.Group("/api")
	{
		// Auth endpoints
		authGroup := api.Group("/auth")
		{
			authGroup.GET("/sync", authHandler.SyncUser)
			authGroup.GET("/mgmt", authHandler.ManagementDetails)
		}

		// Content read-through endpoints
		content := api.Group("/content")
		{
			content.GET("/blog", contentHandler.Blog)
			content.GET("/news", contentHandler.News)
			content.GET("/gallery", contentHandler.Gallery)
			content.GET("/pravidla-ucasti", contentHandler.Rules)
			content.GET("/image", contentHandler.Image)
		}
	}

	return router
}

// healthCheck returns the health status
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"service":   "zizcon-api",
	})
}

// metricsHandler returns API call counts per external source
func metricsHandler(services *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		counts, err := services.Tracker.CountBySource(ctx)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read call ledger"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"api_calls": gin.H{
				"web":      counts[models.APISourceWeb],
				"auth0":    counts[models.APISourceAuth0],
				"directus": counts[models.APISourceDirectus],
				"stripe":   counts[models.APISourceStripe],
			},
			"timestamp": time.Now().Format(time.RFC3339),
		})
	}
}

// recoveryMiddleware handles panics
func recoveryMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().Interface("error", err).Msg("Panic recovered")
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// loggingMiddleware logs requests
func loggingMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		event := log.Info()
		if statusCode >= 400 {
			event = log.Warn()
		}
		if statusCode >= 500 {
			event = log.Error()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", statusCode).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Msg("Request completed")
	}
}

// corsMiddleware handles CORS. The allowed origin follows the configured app
// URL, falling back to a wildcard.
func corsMiddleware(appBaseURL string) gin.HandlerFunc {
	origin := appBaseURL
	if origin == "" {
		origin = "*"
	}

	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
