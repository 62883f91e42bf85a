package handlers

import (
	"net/http"
	"time"

	"stock-reconciler/internal/models"
	"stock-reconciler/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// InventoryHandler consultas sobre el resumen diario y disparo de materializaciones
type InventoryHandler struct {
	baseHandler
	inventoryService services.InventoryService
	materializer     services.Materializer
	validator        *validator.Validate
}

func NewInventoryHandler(inventoryService services.InventoryService, materializer services.Materializer, logger *zap.Logger) *InventoryHandler {
	return &InventoryHandler{
		baseHandler:      baseHandler{logger: logger},
		inventoryService: inventoryService,
		materializer:     materializer,
		validator:        validator.New(),
	}
}

// GetLatest GET /inventory/latest?date=
func (h *InventoryHandler) GetLatest(c *gin.Context) {
	date := c.Query("date")
	h.logDebug("Consultando inventario", zap.String("date", date))

	snapshot, err := h.inventoryService.GetLatest(c.Request.Context(), date)
	if err != nil {
		h.logError("Error obteniendo inventario", zap.Error(err))
		respondError(c, err, "Error obteniendo inventario")
		return
	}
	respondData(c, snapshot)
}

// GetManagedProducts GET /products/managed
func (h *InventoryHandler) GetManagedProducts(c *gin.Context) {
	products, err := h.inventoryService.GetManagedProducts(c.Request.Context())
	if err != nil {
		h.logError("Error obteniendo productos", zap.Error(err))
		respondError(c, err, "Error obteniendo productos gestionados")
		return
	}
	respondData(c, products)
}

// GetHistory GET /inventory/history/:code?from=&to=
func (h *InventoryHandler) GetHistory(c *gin.Context) {
	code := c.Param("code")
	var query models.HistoryQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondError(c, err, "Parámetros inválidos")
		return
	}

	rows, err := h.inventoryService.GetHistory(c.Request.Context(), code, query)
	if err != nil {
		h.logError("Error obteniendo historial", zap.String("product_code", code), zap.Error(err))
		respondError(c, err, "Error obteniendo historial")
		return
	}
	respondData(c, rows)
}

// GetDiscrepancies GET /inventory/discrepancies?from=&to=&product=
func (h *InventoryHandler) GetDiscrepancies(c *gin.Context) {
	var query models.HistoryQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondError(c, err, "Parámetros inválidos")
		return
	}

	rows, err := h.inventoryService.GetDiscrepancies(c.Request.Context(), query)
	if err != nil {
		h.logError("Error obteniendo discrepancias", zap.Error(err))
		respondError(c, err, "Error obteniendo discrepancias")
		return
	}
	respondData(c, rows)
}

// RunAction POST /inventory/actions con {action} en el body o ?action=
func (h *InventoryHandler) RunAction(c *gin.Context) {
	start := time.Now()

	var req models.ActionRequest
	if action := c.Query("action"); action != "" {
		req.Action = action
	} else if err := c.ShouldBindJSON(&req); err != nil {
		h.logError("Error binding JSON", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "❌ Error en el formato de datos",
			"error":   err.Error(),
		})
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.logError("Validation error", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "❌ Acción inválida",
			"error":   err.Error(),
		})
		return
	}

	h.logInfo("Acción recibida", zap.String("action", req.Action))

	result, err := h.materializer.RunAction(c.Request.Context(), req.Action, "api")
	if err != nil {
		h.logError("Error ejecutando acción", zap.String("action", req.Action), zap.Error(err))
		respondError(c, err, "Error ejecutando "+req.Action)
		return
	}

	h.logSuccess("Acción completada",
		zap.String("action", req.Action),
		zap.Int("rows_written", result.RowsWritten),
		zap.Duration("latency", time.Since(start)))

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "✅ " + req.Action + " completado",
		"data":    result,
	})
}
