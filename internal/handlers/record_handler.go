package handlers

import (
	"net/http"

	"stock-reconciler/internal/models"
	"stock-reconciler/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// RecordHandler alta de entregas, ventas, retiros e inventarios
type RecordHandler struct {
	baseHandler
	recordService services.RecordService
	validator     *validator.Validate
}

func NewRecordHandler(recordService services.RecordService, logger *zap.Logger) *RecordHandler {
	return &RecordHandler{
		baseHandler:   baseHandler{logger: logger},
		recordService: recordService,
		validator:     validator.New(),
	}
}

// AddRecord POST /records/:kind
func (h *RecordHandler) AddRecord(c *gin.Context) {
	kind := c.Param("kind")

	var req models.RecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
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
			"message": "❌ Datos de entrada inválidos",
			"error":   err.Error(),
		})
		return
	}

	h.logDebug("Registro recibido",
		zap.String("kind", kind),
		zap.String("product_code", req.ProductCode),
		zap.String("date", req.Date))

	resp, err := h.recordService.Add(c.Request.Context(), kind, &req)
	if err != nil {
		h.logError("Error registrando", zap.String("kind", kind), zap.Error(err))
		respondError(c, err, "Error registrando "+kind)
		return
	}

	h.logSuccess("Registro agregado", zap.String("id", resp.ID), zap.String("table", resp.Table))
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    resp,
	})
}
