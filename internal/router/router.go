package router

import (
	"github.com/gin-gonic/gin"

	"invoflow/internal/config"
	"invoflow/internal/handler"
	"invoflow/internal/middleware"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	cors *config.CORSConfig,
	invoiceH *handler.InvoiceHandler,
	statsH *handler.StatsHandler,
	cacheH *handler.CacheHandler,
	healthH *handler.HealthHandler,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(cors.AllowedOrigins))

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	v1 := r.Group("/api/v1")

	// Invoice routes
	invoices := v1.Group("/invoices")
	invoices.POST("/process", invoiceH.Process)
	invoices.GET("", invoiceH.List)
	invoices.GET("/:id", invoiceH.Get)
	invoices.PUT("/:id", invoiceH.Update)
	invoices.GET("/:id/download", invoiceH.Download)

	// Token accounting
	stats := v1.Group("/stats")
	stats.GET("/token-usage", statsH.TokenUsage)
	stats.GET("/token-savings", statsH.TokenSavings)

	// Cache maintenance
	v1.POST("/cache/cleanup", cacheH.Cleanup)

	return r
}
