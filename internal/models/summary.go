package models

import (
	"time"
)

// DailySummaryRow una fila calculada por (fecha, producto)
type DailySummaryRow struct {
	Date                 time.Time  `json:"date"`
	ProductCode          string     `json:"product_code"`
	ClosingStock         int        `json:"closing_stock"`
	PhysicalCount        *int       `json:"physical_count,omitempty"`
	Discrepancy          *int       `json:"discrepancy,omitempty"`
	OldestExpirationDate *time.Time `json:"oldest_expiration_date,omitempty"`
	DaysUntilMustSell    *int       `json:"days_until_must_sell,omitempty"`
}

// Key identifica la fila para upserts
func (r DailySummaryRow) Key() string {
	return FormatDay(r.Date) + "|" + r.ProductCode
}

// Lot es el saldo de un producto para una fecha de vencimiento
type Lot struct {
	ProductCode    string    `json:"product_code"`
	ExpirationDate time.Time `json:"expiration_date"`
	Balance        int       `json:"balance"`
}

// Remaining indica si quedan unidades del lote
func (l Lot) Remaining() bool {
	return l.Balance > 0
}

// BaselineSource indica de dónde salió el punto de partida de un producto
type BaselineSource string

const (
	BaselineCommonAnchor   BaselineSource = "common_anchor"
	BaselinePriorStocktake BaselineSource = "prior_stocktake"
	BaselineFirstDelivery  BaselineSource = "first_delivery"
)

// Baseline es el punto (fecha, cantidad) desde el que se arrastra el stock de un producto
type Baseline struct {
	ProductCode string         `json:"product_code"`
	Date        time.Time      `json:"date"`
	Quantity    int            `json:"quantity"`
	Source      BaselineSource `json:"source"`
}
