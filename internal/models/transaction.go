package models

import (
	"strings"
	"time"
)

// TransactionKind tipo de evento que afecta el stock
type TransactionKind string

const (
	KindDelivery  TransactionKind = "delivery"
	KindSale      TransactionKind = "sale"
	KindRecovery  TransactionKind = "recovery"
	KindStocktake TransactionKind = "stocktake"
)

// ParseTransactionKind acepta el nombre del tipo en singular o plural
func ParseTransactionKind(raw string) (TransactionKind, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "delivery", "deliveries":
		return KindDelivery, true
	case "sale", "sales":
		return KindSale, true
	case "recovery", "recoveries", "collection", "collections":
		return KindRecovery, true
	case "stocktake", "stocktakes":
		return KindStocktake, true
	}
	return "", false
}

// IsMovement indica si el tipo aporta un delta con signo al stock.
// Los inventarios físicos traen un conteo absoluto, no un delta.
func (k TransactionKind) IsMovement() bool {
	return k == KindDelivery || k == KindSale || k == KindRecovery
}

// Transaction representa una fila normalizada del ledger
type Transaction struct {
	ID             string          `json:"id"`
	RecordedAt     time.Time       `json:"recorded_at"`
	OccurredOn     time.Time       `json:"occurred_on"`
	ProductCode    string          `json:"product_code"`
	Kind           TransactionKind `json:"kind"`
	Quantity       int             `json:"quantity"`
	ExpirationDate *time.Time      `json:"expiration_date,omitempty"`
	HandlerCode    string          `json:"handler_code,omitempty"`
}

// HasLot indica si la transacción mueve unidades de un lote identificado
func (t Transaction) HasLot() bool {
	return t.ExpirationDate != nil && (t.Kind == KindDelivery || t.Kind == KindRecovery)
}
