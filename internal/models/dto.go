package models

import "time"

// ===== REQUEST DTOs =====

// ActionRequest DTO para disparar una materialización
type ActionRequest struct {
	Action string `json:"action" form:"action" validate:"required,oneof=updateToday recalculateAll"`
}

// RecordRequest DTO para registrar una entrega, venta, retiro o inventario físico
type RecordRequest struct {
	ProductCode    string `json:"product_code" validate:"required"`
	Date           string `json:"date" validate:"required"`
	Quantity       *int   `json:"quantity" validate:"required,gte=0"`
	ExpirationDate string `json:"expiration_date"`
	HandlerCode    string `json:"handler_code"`
}

// HistoryQuery filtros de rango para consultas de historial
type HistoryQuery struct {
	From        string `form:"from"`
	To          string `form:"to"`
	ProductCode string `form:"product"`
}

// ===== RESPONSE DTOs =====

// APIResponse envoltorio común de todas las respuestas
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// InventoryRow fila del resumen enriquecida para la API
type InventoryRow struct {
	Date                 string   `json:"date"`
	ProductCode          string   `json:"product_code"`
	ProductName          string   `json:"product_name,omitempty"`
	ExternalCode         string   `json:"external_code,omitempty"`
	ClosingStock         int      `json:"closing_stock"`
	PhysicalCount        *int     `json:"physical_count"`
	Discrepancy          *int     `json:"discrepancy"`
	OldestExpirationDate *string  `json:"oldest_expiration_date"`
	DaysUntilMustSell    *int     `json:"days_until_must_sell"`
	StandardStock        int      `json:"standard_stock"`
	StockRatio           *float64 `json:"stock_ratio"`
}

// InventorySnapshot filas de un único día
type InventorySnapshot struct {
	Date       string         `json:"date"`
	TotalItems int            `json:"total_items"`
	Rows       []InventoryRow `json:"rows"`
}

// RunResult resultado de una materialización
type RunResult struct {
	Mode              string    `json:"mode"`
	ComputationStart  string    `json:"computation_start"`
	End               string    `json:"end"`
	CommonStartDate   string    `json:"common_start_date,omitempty"`
	Products          int       `json:"products"`
	SkippedProducts   []string  `json:"skipped_products,omitempty"`
	RowsComputed      int       `json:"rows_computed"`
	RowsWritten       int       `json:"rows_written"`
	Transactions      int       `json:"transactions"`
	SkippedSourceRows int       `json:"skipped_source_rows"`
	Warnings          []string  `json:"warnings,omitempty"`
	StartedAt         time.Time `json:"started_at"`
	Duration          string    `json:"duration"`
}

// RecordResponse fila registrada en una tabla fuente
type RecordResponse struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	Table       string    `json:"table"`
	ProductCode string    `json:"product_code"`
	Date        string    `json:"date"`
	Quantity    int       `json:"quantity"`
	RecordedAt  time.Time `json:"recorded_at"`
}
