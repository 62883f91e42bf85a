package reconcile

import (
	"sort"
	"time"

	"stock-reconciler/internal/models"
)

// CommonStartDate fecha de inventario compartida por toda la flota: la depth-ésima
// fecha distinta de inventario más reciente. Sin suficientes fechas no hay ancla común.
func CommonStartDate(txs []models.Transaction, depth int) (time.Time, bool) {
	if depth <= 0 {
		return time.Time{}, false
	}
	seen := make(map[time.Time]bool)
	var dates []time.Time
	for _, tx := range txs {
		if tx.Kind != models.KindStocktake || seen[tx.OccurredOn] {
			continue
		}
		seen[tx.OccurredOn] = true
		dates = append(dates, tx.OccurredOn)
	}
	if len(dates) < depth {
		return time.Time{}, false
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].After(dates[j]) })
	return dates[depth-1], true
}

// productHistory transacciones de un producto indexadas por día
type productHistory struct {
	deltas        map[time.Time]int
	observations  map[time.Time]int
	stocktakeRows int
	firstDelivery time.Time
	lots          []models.Transaction
}

func newProductHistory(txs []models.Transaction) *productHistory {
	h := &productHistory{
		deltas:       make(map[time.Time]int),
		observations: make(map[time.Time]int),
	}
	for _, tx := range txs {
		switch {
		case tx.Kind == models.KindStocktake:
			// Con varios conteos el mismo día gana el último en orden de fuente
			h.observations[tx.OccurredOn] = tx.Quantity
			h.stocktakeRows++
		case tx.Kind.IsMovement():
			h.deltas[tx.OccurredOn] += tx.Quantity
			if tx.Kind == models.KindDelivery && (h.firstDelivery.IsZero() || tx.OccurredOn.Before(h.firstDelivery)) {
				h.firstDelivery = tx.OccurredOn
			}
		}
		if tx.HasLot() {
			h.lots = append(h.lots, tx)
		}
	}
	sort.SliceStable(h.lots, func(i, j int) bool {
		return h.lots[i].OccurredOn.Before(h.lots[j].OccurredOn)
	})
	return h
}

// latestObservationBefore último inventario estrictamente anterior a day
func (h *productHistory) latestObservationBefore(day time.Time) (time.Time, int, bool) {
	var (
		latest time.Time
		found  bool
	)
	for d := range h.observations {
		if d.Before(day) && (!found || d.After(latest)) {
			latest, found = d, true
		}
	}
	if !found {
		return time.Time{}, 0, false
	}
	return latest, h.observations[latest], true
}
