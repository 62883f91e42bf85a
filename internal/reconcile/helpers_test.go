package reconcile

import (
	"time"

	"stock-reconciler/internal/models"

	"go.uber.org/zap"
)

func day(y int, m time.Month, d int) time.Time {
	return models.Date(y, m, d)
}

func delivery(code string, on time.Time, qty int, exp time.Time) models.Transaction {
	return models.Transaction{OccurredOn: on, ProductCode: code, Kind: models.KindDelivery, Quantity: qty, ExpirationDate: models.TimePtr(exp)}
}

func sale(code string, on time.Time, qty int) models.Transaction {
	return models.Transaction{OccurredOn: on, ProductCode: code, Kind: models.KindSale, Quantity: -qty}
}

func recovery(code string, on time.Time, qty int, exp time.Time) models.Transaction {
	return models.Transaction{OccurredOn: on, ProductCode: code, Kind: models.KindRecovery, Quantity: -qty, ExpirationDate: models.TimePtr(exp)}
}

func stocktake(code string, on time.Time, count int) models.Transaction {
	return models.Transaction{OccurredOn: on, ProductCode: code, Kind: models.KindStocktake, Quantity: count}
}

func newTestEngine(discrepancy DiscrepancyPolicy, expiration ExpirationPolicy) *Engine {
	return NewEngine(Options{
		CommonAnchorDepth:   12,
		AnchorMinStocktakes: 13,
		Discrepancy:         discrepancy,
		Expiration:          expiration,
	}, zap.NewNop())
}

// byDate indexa las filas de un producto por día
func byDate(rows []models.DailySummaryRow, code string) map[time.Time]models.DailySummaryRow {
	out := make(map[time.Time]models.DailySummaryRow)
	for _, r := range rows {
		if r.ProductCode == code {
			out[r.Date] = r
		}
	}
	return out
}
