package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"stock-reconciler/internal/cache"
	"stock-reconciler/internal/config"
	"stock-reconciler/internal/ledger"
	"stock-reconciler/internal/lock"
	"stock-reconciler/internal/models"
	"stock-reconciler/internal/reconcile"
	"stock-reconciler/internal/repository"
	"stock-reconciler/internal/tabular"

	"go.uber.org/zap"
)

const (
	ActionUpdateToday    = "updateToday"
	ActionRecalculateAll = "recalculateAll"
)

// RunRecorder recibe el resultado de cada corrida
type RunRecorder interface {
	RecordRun(run models.RunRecord)
}

// AnchorReport punto de partida que tomaría cada producto en una corrida completa
type AnchorReport struct {
	CommonStartDate time.Time
	Baselines       []models.Baseline
	Skipped         []string
}

// Materializer recalcula y persiste la tabla de resumen diario
type Materializer interface {
	Run(ctx context.Context, mode ledger.Mode, trigger string) (*models.RunResult, error)
	RunAction(ctx context.Context, action, trigger string) (*models.RunResult, error)
	InspectAnchors(ctx context.Context) (*AnchorReport, error)
}

// MaterializerDeps colaboradores del materializador
type MaterializerDeps struct {
	Products repository.ProductRepository
	Summary  repository.SummaryRepository
	Builder  *ledger.Builder
	Engine   *reconcile.Engine
	Lock     lock.RunLock
	Cache    *cache.SummaryCache
	Recorder RunRecorder
}

type materializer struct {
	cfg      config.ReconcileConfig
	lockWait time.Duration
	deps     MaterializerDeps
	loc      *time.Location
	logger   *zap.Logger
	now      func() time.Time
}

// NewMaterializer crea el materializador; Cache y Recorder son opcionales
func NewMaterializer(cfg config.ReconcileConfig, lockWait time.Duration, deps MaterializerDeps, logger *zap.Logger) Materializer {
	return &materializer{
		cfg:      cfg,
		lockWait: lockWait,
		deps:     deps,
		loc:      cfg.Location(),
		logger:   logger,
		now:      time.Now,
	}
}

// RunAction traduce la acción de disparo al modo de corrida
func (m *materializer) RunAction(ctx context.Context, action, trigger string) (*models.RunResult, error) {
	switch action {
	case ActionUpdateToday:
		return m.Run(ctx, ledger.ModeWindowed, trigger)
	case ActionRecalculateAll:
		return m.Run(ctx, ledger.ModeFull, trigger)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAction, action)
}

// Run ejecuta una materialización completa bajo el lock de ejecución.
// La tabla nueva se arma en memoria y se escribe en una sola llamada.
func (m *materializer) Run(ctx context.Context, mode ledger.Mode, trigger string) (*models.RunResult, error) {
	started := m.now()
	op := "materialize_" + string(mode)
	logger := m.logger.With(
		zap.String("operation", op),
		zap.String("trigger", trigger),
	)
	logger.Info("🔄 Iniciando materialización del resumen")

	result, err := m.run(ctx, logger, op, mode)
	record := models.RunRecord{
		Mode:       string(mode),
		Trigger:    trigger,
		StartedAt:  started,
		DurationMs: time.Since(started).Milliseconds(),
	}
	if err != nil {
		record.Error = err.Error()
		record.ErrorKind = string(KindOf(err))
		logger.Error("❌ Materialización fallida", zap.Error(err), zap.String("kind", record.ErrorKind))
	} else {
		result.StartedAt = started
		result.Duration = time.Since(started).String()
		record.RowsWritten = result.RowsWritten
		record.Warnings = result.Warnings
		logger.Info("✅ Materialización completada",
			zap.String("computation_start", result.ComputationStart),
			zap.Int("rows_written", result.RowsWritten),
			zap.Int("warnings", len(result.Warnings)),
			zap.Duration("duration", time.Since(started)),
		)
	}
	if m.deps.Recorder != nil {
		m.deps.Recorder.RecordRun(record)
	}
	return result, err
}

func (m *materializer) run(ctx context.Context, logger *zap.Logger, op string, mode ledger.Mode) (*models.RunResult, error) {
	release, err := m.deps.Lock.Acquire(ctx, m.lockWait)
	if err != nil {
		if errors.Is(err, lock.ErrLockTimeout) {
			return nil, &RunError{Kind: KindConcurrency, Op: op, Err: fmt.Errorf("another run holds the lock after waiting %s: %w", m.lockWait, err)}
		}
		return nil, &RunError{Kind: KindSource, Op: op, Err: err}
	}
	defer release()

	// Sin tabla destino no se escribe nada
	if err := m.deps.Summary.Exists(ctx); err != nil {
		return nil, classify(op, "destination summary table", err)
	}

	products, err := m.deps.Products.GetManagedProducts(ctx)
	if err != nil {
		return nil, classify(op, "product master", err)
	}

	today := models.Day(m.now(), m.loc)
	built, err := m.deps.Builder.Build(ctx, products, ledger.BuildOptions{Mode: ledger.ModeFull, DryRun: true})
	if err != nil {
		return nil, &RunError{Kind: KindSource, Op: op, Err: err}
	}

	var compStart time.Time
	if mode == ledger.ModeWindowed {
		// Un día extra antes de la ventana da el cierre previo para la discrepancia
		compStart = models.AddDays(today, -m.cfg.WindowDays-1)
		cutoff := m.ledgerCutoff(built.Transactions, products, compStart)
		built.Transactions = ledger.ApplyCutoff(built.Transactions, cutoff)
		logger.Debug("Ledger cutoff",
			zap.String("computation_start", models.FormatDay(compStart)),
			zap.String("cutoff", models.FormatDay(cutoff)),
		)
	} else {
		compStart = built.EarliestDate
		if compStart.IsZero() || compStart.After(today) {
			compStart = today
		}
	}
	m.deps.Builder.Stage(ctx, built)

	out := m.deps.Engine.Run(built.Transactions, products, reconcile.RunOptions{
		WindowStart: compStart,
		End:         today,
	})
	computed := make([]models.DailySummaryRow, 0, len(out.Rows))
	for _, row := range out.Rows {
		if !row.Date.Before(compStart) && !row.Date.After(today) {
			computed = append(computed, row)
		}
	}

	snapshot, err := m.deps.Summary.Load(ctx)
	if err != nil {
		return nil, classify(op, "summary table", err)
	}
	final := m.merge(mode, snapshot.Rows, computed, compStart, today)
	sortRows(final, m.cfg.SortOrder)

	if err := m.deps.Summary.Save(ctx, snapshot, final); err != nil {
		return nil, &RunError{Kind: KindSource, Op: op, Err: err}
	}

	if m.deps.Cache != nil {
		if err := m.deps.Cache.InvalidateAll(ctx); err != nil {
			logger.Warn("⚠️ No se pudo invalidar el cache", zap.Error(err))
		}
	}

	return &models.RunResult{
		Mode:              string(mode),
		ComputationStart:  models.FormatDay(compStart),
		End:               models.FormatDay(today),
		CommonStartDate:   models.FormatDay(out.CommonStartDate),
		Products:          len(out.Baselines),
		SkippedProducts:   out.Skipped,
		RowsComputed:      len(computed),
		RowsWritten:       len(final),
		Transactions:      len(built.Transactions),
		SkippedSourceRows: built.SkippedRows,
		Warnings:          built.Warnings,
	}, nil
}

// ledgerCutoff fecha desde la que se conservan entregas, ventas y retiros en una corrida por ventana.
// Retrocede hasta el punto de partida más antiguo para que el recorrido desde un inventario
// previo o la primera entrega vea todos los movimientos posteriores.
func (m *materializer) ledgerCutoff(txs []models.Transaction, products models.ProductSet, compStart time.Time) time.Time {
	cutoff := compStart
	points := m.deps.Engine.StartPoints(txs, products, compStart)
	if earliest, ok := points.EarliestBaseline(); ok && earliest.Before(cutoff) {
		cutoff = earliest
	}
	return cutoff
}

// merge combina lo persistido con lo recalculado según la estrategia de escritura.
// replace: una corrida completa reemplaza todo; una por ventana solo el rango [from, to].
// upsert: sobrescribe por (fecha, producto), agrega lo nuevo y conserva lo no recalculado.
func (m *materializer) merge(mode ledger.Mode, existing, computed []models.DailySummaryRow, from, to time.Time) []models.DailySummaryRow {
	if m.cfg.WriteStrategy == config.WriteUpsert {
		index := make(map[string]int, len(existing))
		final := make([]models.DailySummaryRow, len(existing))
		copy(final, existing)
		for i, row := range final {
			index[row.Key()] = i
		}
		for _, row := range computed {
			if i, ok := index[row.Key()]; ok {
				final[i] = row
				continue
			}
			index[row.Key()] = len(final)
			final = append(final, row)
		}
		return final
	}

	if mode == ledger.ModeFull {
		return append([]models.DailySummaryRow(nil), computed...)
	}
	final := make([]models.DailySummaryRow, 0, len(existing)+len(computed))
	for _, row := range existing {
		if row.Date.Before(from) || row.Date.After(to) {
			final = append(final, row)
		}
	}
	return append(final, computed...)
}

func sortRows(rows []models.DailySummaryRow, order string) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if !a.Date.Equal(b.Date) {
			if order == config.SortDesc {
				return a.Date.After(b.Date)
			}
			return a.Date.Before(b.Date)
		}
		return a.ProductCode < b.ProductCode
	})
}

// InspectAnchors calcula los puntos de partida de una corrida completa sin escribir nada
func (m *materializer) InspectAnchors(ctx context.Context) (*AnchorReport, error) {
	op := "inspect_anchors"
	products, err := m.deps.Products.GetManagedProducts(ctx)
	if err != nil {
		return nil, classify(op, "product master", err)
	}
	built, err := m.deps.Builder.Build(ctx, products, ledger.BuildOptions{Mode: ledger.ModeFull, DryRun: true})
	if err != nil {
		return nil, &RunError{Kind: KindSource, Op: op, Err: err}
	}

	today := models.Day(m.now(), m.loc)
	start := built.EarliestDate
	if start.IsZero() || start.After(today) {
		start = today
	}
	out := m.deps.Engine.StartPoints(built.Transactions, products, start)

	report := &AnchorReport{CommonStartDate: out.CommonStartDate, Skipped: out.Skipped}
	for _, b := range out.Baselines {
		report.Baselines = append(report.Baselines, b)
	}
	sort.Slice(report.Baselines, func(i, j int) bool {
		return report.Baselines[i].ProductCode < report.Baselines[j].ProductCode
	})
	return report, nil
}

// classify separa tablas ausentes o mal formadas (configuración) de fallas de I/O
func classify(op, what string, err error) error {
	if errors.Is(err, tabular.ErrTableNotFound) || errors.Is(err, tabular.ErrMalformedHeader) {
		return &RunError{Kind: KindConfiguration, Op: op, Err: fmt.Errorf("%s: %w", what, err)}
	}
	return &RunError{Kind: KindSource, Op: op, Err: fmt.Errorf("%s: %w", what, err)}
}
