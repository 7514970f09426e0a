package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/gcbaptista/go-pinyin-engine/internal/analytics"
	"github.com/gcbaptista/go-pinyin-engine/internal/observe"
	"github.com/gcbaptista/go-pinyin-engine/model"
	"github.com/gcbaptista/go-pinyin-engine/services"
	"github.com/gcbaptista/go-pinyin-engine/store"
)

// AsyncImporter is implemented by managers that can import system
// statistics in the background.
type AsyncImporter interface {
	AddPhrasesAsync(name string, items []model.PhraseItem) (string, error)
	AddBigramsAsync(name string, entries []store.BigramEntry) (string, error)
}

// API holds dependencies for API handlers, primarily the dictionary manager.
type API struct {
	engine    services.DictionaryManager
	analytics *analytics.Service
	logger    *zap.Logger
}

// NewAPI creates a new API handler structure. A nil analytics service is
// replaced by an in-memory one.
func NewAPI(engine services.DictionaryManager, analyticsService *analytics.Service, logger *zap.Logger) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	if analyticsService == nil {
		analyticsService = analytics.NewService(engine, "", logger)
	}
	return &API{engine: engine, analytics: analyticsService, logger: logger}
}

// RouterOptions configures the middleware installed by SetupRoutes.
type RouterOptions struct {
	Logger          *zap.Logger
	Metrics         *observe.Metrics   // may be nil
	Analytics       *analytics.Service // nil keeps usage events in memory only
	MaxRequestBytes int64              // 0 disables the limit
	ServeMetrics    bool               // expose /metrics from the Prometheus default registry
}

// SetupRoutes defines all the API routes for the pinyin engine.
func SetupRoutes(router *gin.Engine, engine services.DictionaryManager, opts RouterOptions) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	router.Use(RequestIDMiddleware(), LoggingMiddleware(opts.Logger, opts.Metrics), CORSMiddleware())
	if opts.MaxRequestBytes > 0 {
		router.Use(RequestSizeLimitMiddleware(opts.MaxRequestBytes))
	}

	apiHandler := NewAPI(engine, opts.Analytics, opts.Logger)

	router.GET("/health", apiHandler.HealthCheckHandler)
	router.GET("/analytics", apiHandler.GetAnalyticsHandler)
	if opts.ServeMetrics {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	// Job management routes
	jobRoutes := router.Group("/jobs")
	{
		jobRoutes.GET("/:jobId", apiHandler.GetJobHandler)         // Get job status by ID
		jobRoutes.GET("/metrics", apiHandler.GetJobMetricsHandler) // Get job performance metrics
	}

	// Dictionary management routes
	dictRoutes := router.Group("/dictionaries")
	{
		dictRoutes.POST("", apiHandler.CreateDictionaryHandler)                         // Create a new dictionary
		dictRoutes.GET("", apiHandler.ListDictionariesHandler)                          // List all dictionaries
		dictRoutes.GET("/:name", apiHandler.GetDictionaryHandler)                       // Get dictionary settings
		dictRoutes.DELETE("/:name", apiHandler.DeleteDictionaryHandler)                 // Delete a dictionary
		dictRoutes.PATCH("/:name/settings", apiHandler.UpdateDictionarySettingsHandler) // Update decoder settings
		dictRoutes.GET("/:name/stats", apiHandler.GetDictionaryStatsHandler)            // Get dictionary statistics
		dictRoutes.GET("/:name/jobs", apiHandler.ListJobsHandler)                       // List jobs for a dictionary

		// System statistics import
		dictRoutes.PUT("/:name/phrases", apiHandler.AddPhrasesHandler)
		dictRoutes.PUT("/:name/bigrams", apiHandler.AddBigramsHandler)

		// Decoding and learning
		dictRoutes.POST("/:name/_decode", apiHandler.DecodeHandler)
		dictRoutes.POST("/:name/_decode_batch", apiHandler.DecodeBatchHandler)
		dictRoutes.POST("/:name/_train", apiHandler.TrainHandler)
	}
}

// HealthCheckHandler provides a simple health check endpoint
func (api *API) HealthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "healthy",
		"service":      "go-pinyin-engine",
		"dictionaries": len(api.engine.ListDictionaries()),
		"timestamp":    time.Now().Unix(),
	})
}

// GetAnalyticsHandler returns the usage dashboard
func (api *API) GetAnalyticsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, api.analytics.GetDashboardData())
}
