package reconcile

import (
	"sort"
	"time"

	"stock-reconciler/internal/models"

	"go.uber.org/zap"
)

// Options configuración del motor
type Options struct {
	// CommonAnchorDepth posición (1 = más reciente) de la fecha de inventario usada como ancla común
	CommonAnchorDepth int
	// AnchorMinStocktakes conteos mínimos de un producto para usar el ancla común
	AnchorMinStocktakes int
	Discrepancy         DiscrepancyPolicy
	Expiration          ExpirationPolicy
}

// RunOptions rango de una corrida
type RunOptions struct {
	// WindowStart inicio del cómputo; el inventario previo usado como punto de partida debe ser anterior
	WindowStart time.Time
	End         time.Time
}

// Output filas calculadas y el punto de partida elegido por producto
type Output struct {
	Rows            []models.DailySummaryRow
	Baselines       map[string]models.Baseline
	Skipped         []string
	CommonStartDate time.Time
}

// Engine recorre el ledger día a día por producto
type Engine struct {
	opts   Options
	logger *zap.Logger
}

func NewEngine(opts Options, logger *zap.Logger) *Engine {
	if opts.Discrepancy == nil {
		opts.Discrepancy = PreviousClose{}
	}
	if opts.Expiration == nil {
		opts.Expiration = AlertLead{}
	}
	return &Engine{opts: opts, logger: logger}
}

// Run calcula la serie diaria de cada producto gestionado desde su punto de partida hasta End.
// Los productos sin punto de partida quedan en Skipped y no generan filas.
func (e *Engine) Run(txs []models.Transaction, products models.ProductSet, opts RunOptions) *Output {
	log := e.logger.With(
		zap.String("operation", "Reconcile"),
		zap.String("discrepancy_policy", e.opts.Discrepancy.Name()),
		zap.String("expiration_policy", e.opts.Expiration.Name()),
	)

	out, histories := e.plan(txs, products, opts.WindowStart)
	for _, code := range sortedCodes(products) {
		baseline, ok := out.Baselines[code]
		if !ok {
			continue
		}
		out.Rows = append(out.Rows, e.walk(products[code], histories[code], baseline, opts.End)...)
	}

	log.Debug("Reconciliation finished",
		zap.Int("products", len(out.Baselines)),
		zap.Int("skipped", len(out.Skipped)),
		zap.Int("rows", len(out.Rows)),
		zap.String("common_start_date", models.FormatDay(out.CommonStartDate)),
	)
	return out
}

// StartPoints elige el punto de partida de cada producto gestionado sin recorrer los días
func (e *Engine) StartPoints(txs []models.Transaction, products models.ProductSet, windowStart time.Time) *Output {
	out, _ := e.plan(txs, products, windowStart)
	return out
}

// EarliestBaseline fecha del punto de partida más antiguo elegido
func (o *Output) EarliestBaseline() (time.Time, bool) {
	var (
		earliest time.Time
		found    bool
	)
	for _, b := range o.Baselines {
		if !found || b.Date.Before(earliest) {
			earliest, found = b.Date, true
		}
	}
	return earliest, found
}

func (e *Engine) plan(txs []models.Transaction, products models.ProductSet, windowStart time.Time) (*Output, map[string]*productHistory) {
	out := &Output{Baselines: make(map[string]models.Baseline)}
	anchor, hasAnchor := CommonStartDate(txs, e.opts.CommonAnchorDepth)
	if hasAnchor {
		out.CommonStartDate = anchor
	}

	byProduct := make(map[string][]models.Transaction)
	for _, tx := range txs {
		if products.Has(tx.ProductCode) {
			byProduct[tx.ProductCode] = append(byProduct[tx.ProductCode], tx)
		}
	}

	histories := make(map[string]*productHistory, len(products))
	for _, code := range sortedCodes(products) {
		history := newProductHistory(byProduct[code])
		histories[code] = history
		baseline, ok := e.startPoint(code, history, anchor, hasAnchor, windowStart)
		if !ok {
			out.Skipped = append(out.Skipped, code)
			continue
		}
		out.Baselines[code] = baseline
	}
	return out, histories
}

func sortedCodes(products models.ProductSet) []string {
	codes := make([]string, 0, len(products))
	for code := range products {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// startPoint elige el punto de partida en orden de prioridad:
// ancla común, último inventario antes de la ventana, primera entrega con cantidad 0.
func (e *Engine) startPoint(code string, h *productHistory, anchor time.Time, hasAnchor bool, windowStart time.Time) (models.Baseline, bool) {
	if hasAnchor && h.stocktakeRows >= e.opts.AnchorMinStocktakes {
		return models.Baseline{
			ProductCode: code,
			Date:        anchor,
			Quantity:    h.observations[anchor],
			Source:      models.BaselineCommonAnchor,
		}, true
	}
	if !windowStart.IsZero() {
		if date, qty, ok := h.latestObservationBefore(windowStart); ok {
			return models.Baseline{
				ProductCode: code,
				Date:        date,
				Quantity:    qty,
				Source:      models.BaselinePriorStocktake,
			}, true
		}
	}
	if !h.firstDelivery.IsZero() {
		return models.Baseline{
			ProductCode: code,
			Date:        h.firstDelivery,
			Source:      models.BaselineFirstDelivery,
		}, true
	}
	return models.Baseline{}, false
}

func (e *Engine) walk(product models.Product, h *productHistory, baseline models.Baseline, end time.Time) []models.DailySummaryRow {
	if baseline.Date.After(end) {
		return nil
	}

	tracker := NewTracker(product.Code)
	nextLot := 0
	rows := make([]models.DailySummaryRow, 0, models.DaysBetween(baseline.Date, end)+1)
	previousClose := 0

	for day := baseline.Date; !day.After(end); day = models.AddDays(day, 1) {
		delta := h.deltas[day]
		observed, hasObservation := h.observations[day]
		row := models.DailySummaryRow{Date: day, ProductCode: product.Code}

		switch {
		case day.Equal(baseline.Date):
			row.ClosingStock = baseline.Quantity + delta
			if hasObservation && baseline.Source != models.BaselineFirstDelivery {
				row.PhysicalCount = models.IntPtr(observed)
			}
		case hasObservation:
			row.PhysicalCount = models.IntPtr(observed)
			row.Discrepancy = models.IntPtr(e.opts.Discrepancy.Discrepancy(observed, previousClose, delta))
			row.ClosingStock = observed + delta
		default:
			row.ClosingStock = previousClose + delta
		}
		previousClose = row.ClosingStock

		// Lotes recibidos o retirados hasta este día, incluidos los anteriores al punto de partida
		for nextLot < len(h.lots) && !h.lots[nextLot].OccurredOn.After(day) {
			tracker.Apply(h.lots[nextLot])
			nextLot++
		}
		if oldest, ok := tracker.Oldest(); ok {
			row.OldestExpirationDate = models.TimePtr(oldest)
			if days, ok := e.opts.Expiration.DaysUntilMustSell(oldest, day, product); ok {
				row.DaysUntilMustSell = models.IntPtr(days)
			}
		}

		rows = append(rows, row)
	}
	return rows
}
