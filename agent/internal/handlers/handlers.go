// Package handlers exposes the liveness HTTP surface. Render and the uptime
// checks hit these endpoints; everything user-facing happens over Telegram.
package handlers

import (
	"net/http"
	"time"

	"moonbags-buybot/shared/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var startedAt = time.Now()

// StatusSource provides the counters shown on the status endpoint.
type StatusSource struct {
	GroupCount  func() (int64, error)
	BoostCount  func() (int64, error)
	FeedMode    string
	Environment string
}

// SetupRouter builds the gin engine with CORS and both route groups.
func SetupRouter(src StatusSource, log *logger.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	RegisterRoutes(router)
	RegisterAPIRoutes(router, src, log)
	return router
}

// RegisterRoutes wires the bare liveness probe.
func RegisterRoutes(router *gin.Engine) {
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Moonbags BuyBot is running")
	})
}

// RegisterAPIRoutes wires the versioned API group.
func RegisterAPIRoutes(router *gin.Engine, src StatusSource, log *logger.Logger) {
	api := router.Group("/api/v1")

	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"uptime": time.Since(startedAt).Round(time.Second).String(),
		})
	})

	api.GET("/status", func(c *gin.Context) {
		groups, err := src.GroupCount()
		if err != nil {
			log.Error("Status endpoint failed to count groups", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database unavailable"})
			return
		}
		boosts, err := src.BoostCount()
		if err != nil {
			log.Error("Status endpoint failed to count boosts", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"environment":   src.Environment,
			"feed_mode":     src.FeedMode,
			"groups":        groups,
			"active_boosts": boosts,
			"uptime":        time.Since(startedAt).Round(time.Second).String(),
		})
	})
}
