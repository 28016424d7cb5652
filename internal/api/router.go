package api

import (
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"machine-utilization-backend/config"
	"machine-utilization-backend/internal/mw"
	"machine-utilization-backend/internal/notification"
	"machine-utilization-backend/internal/store"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(s store.Store, cfg *config.ServerConfig, webpushOptions *webpush.Options, alerts *notification.WorkerPool) *gin.Engine {
	r := gin.Default()
	r.HandleMethodNotAllowed = true
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
	})

	r.Use(mw.CORS())

	handler := NewHandler(s, webpushOptions, alerts)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	cacheTTL := time.Duration(cfg.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(cacheTTL, 10*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/health", handler.GetHealth)

		// Status dashboard
		api.GET("/machine-status", caching, handler.GetMachineStatus)

		// Timeline view
		api.GET("/timeline-data", caching, handler.GetTimelineData)
		api.GET("/timeline-segments", caching, handler.GetTimelineSegments)
		api.GET("/timeline", caching, handler.GetTimeline)
		api.GET("/timeline-export", handler.ExportTimeline)

		// Hour logs
		api.GET("/machine-hours", handler.GetMachineHours)
		api.POST("/machine-hours", handler.CreateMachineHours)
		api.DELETE("/machine-hours", handler.DeleteMachineHours)

		// Settings CRUD
		api.GET("/machine-settings", handler.GetMachineSettings)
		api.POST("/machine-settings", handler.CreateMachineSetting)
		api.PUT("/machine-settings", handler.UpdateMachineSetting)
		api.DELETE("/machine-settings", handler.DeleteMachineSetting)
		api.POST("/init-settings", handler.InitSettings)

		// Machine-down alert subscriptions
		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}
