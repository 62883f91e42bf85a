package middleware

import (
	"context"
	"net/http"
	"time"

	"stock-reconciler/internal/database"
	"stock-reconciler/internal/tabular"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type HealthChecker struct {
	source     tabular.Source
	backend    string
	postgresDB *database.PostgresDB
	redisDB    *database.RedisDB
	logger     *zap.Logger
}

// NewHealthChecker postgresDB y redisDB son nil cuando el backend no los usa
func NewHealthChecker(source tabular.Source, backend string, postgresDB *database.PostgresDB, redisDB *database.RedisDB, logger *zap.Logger) *HealthChecker {
	return &HealthChecker{
		source:     source,
		backend:    backend,
		postgresDB: postgresDB,
		redisDB:    redisDB,
		logger:     logger,
	}
}

func (h *HealthChecker) HealthCheck(c *gin.Context) {
	services := make(map[string]interface{})
	status := gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"services":  services,
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	// Fuente tabular
	sourceStatus := "healthy"
	if err := h.source.Ping(ctx); err != nil {
		sourceStatus = "unhealthy"
		status["status"] = "unhealthy"
		h.logger.Error("Tabular source health check failed", zap.String("backend", h.backend), zap.Error(err))
	}
	tabularHealth := gin.H{
		"backend": h.backend,
		"status":  sourceStatus,
	}
	if h.postgresDB != nil {
		stats := h.postgresDB.GetStats()
		tabularHealth["stats"] = gin.H{
			"max_open_connections": stats.MaxOpenConnections,
			"open_connections":     stats.OpenConnections,
			"in_use":               stats.InUse,
			"idle":                 stats.Idle,
		}
	}
	services["tabular"] = tabularHealth

	// Redis degrada el servicio pero no lo deja fuera de línea
	if h.redisDB != nil {
		redisStatus := "healthy"
		if err := h.redisDB.Ping(ctx); err != nil {
			redisStatus = "unhealthy"
			if status["status"] == "healthy" {
				status["status"] = "degraded"
			}
			h.logger.Error("Redis health check failed", zap.Error(err))
		}
		services["redis"] = gin.H{"status": redisStatus}
	} else {
		services["redis"] = gin.H{"status": "disabled"}
	}

	httpStatus := http.StatusOK
	if status["status"] == "unhealthy" {
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, status)
}
