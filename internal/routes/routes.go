package routes

import (
	"net/http"
	"time"

	"stock-reconciler/internal/handlers"
	"stock-reconciler/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handlers handlers HTTP que expone el servicio
type Handlers struct {
	Inventory  *handlers.InventoryHandler
	Records    *handlers.RecordHandler
	Monitoring *handlers.MonitoringHandler
	Health     *middleware.HealthChecker
}

// NewRouter crea el engine con los middlewares comunes y todas las rutas.
// Sin orígenes configurados se permiten todos.
func NewRouter(h Handlers, corsOrigins []string, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware(logger))
	router.Use(h.Monitoring.RecordRequestMiddleware())

	corsConfig := cors.DefaultConfig()
	if len(corsOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = corsOrigins
	}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"Content-Length", "X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	SetupRoutes(router, h)
	return router
}

// SetupRoutes configura todas las rutas de la aplicación
func SetupRoutes(router *gin.Engine, h Handlers) {
	v1 := router.Group("/api/v1")
	{
		inventory := v1.Group("/inventory")
		{
			inventory.GET("/latest", h.Inventory.GetLatest)
			inventory.GET("/history/:code", h.Inventory.GetHistory)
			inventory.GET("/discrepancies", h.Inventory.GetDiscrepancies)
			inventory.POST("/actions", h.Inventory.RunAction)
		}

		v1.GET("/products/managed", h.Inventory.GetManagedProducts)
		v1.POST("/records/:kind", h.Records.AddRecord)

		monitoring := v1.Group("/monitoring")
		{
			monitoring.GET("/metrics", h.Monitoring.GetMetrics)
			monitoring.GET("/runs", h.Monitoring.GetRuns)
			monitoring.GET("/ws", h.Monitoring.WebSocketMetrics)
		}
	}

	router.GET("/health", h.Health.HealthCheck)

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Stock Reconciler API",
			"version": "1.0.0",
			"status":  "running",
			"endpoints": gin.H{
				"health": "/health",
				"api":    "/api/v1",
				"inventory": gin.H{
					"latest":        "GET /api/v1/inventory/latest?date=",
					"history":       "GET /api/v1/inventory/history/:code?from=&to=",
					"discrepancies": "GET /api/v1/inventory/discrepancies?from=&to=&product=",
					"actions":       "POST /api/v1/inventory/actions",
				},
				"products": "GET /api/v1/products/managed",
				"records":  "POST /api/v1/records/{deliveries|sales|recoveries|stocktakes}",
				"monitoring": gin.H{
					"metrics": "GET /api/v1/monitoring/metrics",
					"runs":    "GET /api/v1/monitoring/runs",
					"ws":      "GET /api/v1/monitoring/ws",
				},
			},
		})
	})
}
