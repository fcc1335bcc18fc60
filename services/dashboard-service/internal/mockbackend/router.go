package mockbackend

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yourorg/dbtest-platform/services/dashboard-service/internal/metrics"
	"github.com/yourorg/dbtest-platform/services/dashboard-service/internal/middleware"
)

// RouterConfig holds the optional parts of the router
type RouterConfig struct {
	// TokenSecret enables service token authentication when set
	TokenSecret string
	Metrics     *metrics.HTTPMetrics
	Gatherer    prometheus.Gatherer
	// Limiter enables rate limiting of API routes at RateLimit requests
	// per minute
	Limiter   middleware.RateLimiter
	RateLimit int
}

// NewRouter builds the gin engine serving the backend API
func NewRouter(store *Store, cfg RouterConfig, logger *zap.Logger) *gin.Engine {
	router := gin.New()

	// Use middlewares
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger))
	if cfg.Metrics != nil {
		router.Use(middleware.Metrics(cfg.Metrics))
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	if cfg.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	h := NewHandler(store, logger)

	api := router.Group("")
	if cfg.TokenSecret != "" {
		api.Use(middleware.ServiceAuth(cfg.TokenSecret, logger))
	}
	if cfg.Limiter != nil {
		api.Use(middleware.RateLimit(cfg.Limiter, cfg.RateLimit, logger))
	}
	{
		api.GET("/history_count", h.GetHistoryCount)
		api.GET("/bug_count", h.GetBugCount)
		api.POST("/run", h.StartRun)
		api.GET("/bug_list", h.ListBugs)
		api.GET("/run_list", h.ListRuns)
		api.GET("/download/:bug_id", h.DownloadBug)
		api.GET("/download_run/:run_id", h.DownloadRun)
		api.GET("/download_dot/:bug_id", h.DownloadDot)
		api.GET("/view/:bug_id", h.GetBugGraph)
		api.GET("/current_log", h.GetCurrentLog)
		api.POST("/bug/tag", h.SetBugTag)
		api.POST("/bug/tag/", h.SetBugTag)
		api.GET("/run_profile/:run_id", h.GetRunProfile)
		api.GET("/runtime_info/:run_id", h.GetRuntimeInfo)
		api.GET("/current_run_id", h.GetCurrentRunID)
		api.GET("/current_runtime_info", h.GetCurrentRuntimeInfo)
		api.GET("/current_profile", h.GetCurrentProfile)
		api.POST("/upload/", h.UploadHistory)
		api.PUT("/stop/", h.StopRun)
	}

	return router
}
