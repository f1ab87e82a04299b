package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"presence-tracker-backend/config"
	"presence-tracker-backend/internal/ingest"
	"presence-tracker-backend/internal/mw"
	"presence-tracker-backend/internal/store"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(s store.Store, cfg *config.ServerConfig) *gin.Engine {
	r := gin.Default()

	handler := NewHandler(s, ingest.NewService(s))

	r.Use(mw.RequestID())
	r.Use(mw.CORS(cfg.AllowedOrigin))

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	// The directory is static, so its responses may be cached. Presence
	// and occupancy are recomputed from the log on every request.
	cacheTTL := time.Duration(cfg.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)

	// Liveness probe, kept outside the rate limiter and off the database.
	r.GET("/health", handler.GetHealth)

	routes := r.Group("/")
	routes.Use(rateLimiter)
	{
		routes.GET("/locations", caching, handler.GetLocations)
		routes.POST("/scan", handler.PostScan)
		routes.GET("/occupancy", handler.GetOccupancy)
		routes.GET("/presence", handler.GetPresence)
	}

	return r
}
