package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/uarix/WashWise/config"
	"github.com/uarix/WashWise/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(cfg *config.ServerConfig, handler *Handler) *gin.Engine {
	r := gin.Default()

	r.Use(mw.CORS(cfg.AllowedOrigins))

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	cacheTTL := time.Duration(cfg.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(cacheTTL, 10*time.Minute)
	caching := mw.Cache(cacheStore, cacheTTL)

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Welcome to Laundry Monitor API"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	v1.Use(rateLimiter)
	{
		v1.GET("/getLaundryMachines", caching, handler.GetLaundryMachines)
		v1.GET("/getMachineDetail", caching, handler.GetMachineDetail)

		v1.GET("/subscriptions", handler.GetSubscription)
		v1.PUT("/subscriptions", handler.PutSubscription)
		v1.DELETE("/subscriptions", handler.DeleteSubscription)
		v1.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}
