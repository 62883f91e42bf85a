package handlers

import (
	"errors"
	"net/http"

	"stock-reconciler/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// baseHandler helpers de logging y respuesta compartidos por los handlers
type baseHandler struct {
	logger *zap.Logger
}

// logDebug logs solo en modo debug
func (h baseHandler) logDebug(msg string, fields ...zap.Field) {
	h.logger.Debug("🔍 [DEBUG] "+msg, fields...)
}

// logInfo logs en todos los modos
func (h baseHandler) logInfo(msg string, fields ...zap.Field) {
	h.logger.Info("ℹ️ "+msg, fields...)
}

// logError logs errores en todos los modos
func (h baseHandler) logError(msg string, fields ...zap.Field) {
	h.logger.Error("❌ "+msg, fields...)
}

// logSuccess logs de éxito en todos los modos
func (h baseHandler) logSuccess(msg string, fields ...zap.Field) {
	h.logger.Info("✅ "+msg, fields...)
}

// statusFor traduce errores de servicio a códigos HTTP
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidQuery),
		errors.Is(err, services.ErrInvalidRecord),
		errors.Is(err, services.ErrUnknownAction):
		return http.StatusBadRequest
	}
	switch services.KindOf(err) {
	case services.KindConcurrency:
		return http.StatusConflict
	case services.KindConfiguration:
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error, message string) {
	c.JSON(statusFor(err), gin.H{
		"success": false,
		"message": "❌ " + message,
		"error":   err.Error(),
	})
}

func respondData(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}
