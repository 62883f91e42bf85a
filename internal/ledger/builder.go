// Package ledger normaliza las tablas de entregas, ventas, retiros e inventarios
// físicos en un único ledger de transacciones con cantidades con signo.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"stock-reconciler/internal/config"
	"stock-reconciler/internal/models"
	"stock-reconciler/internal/repository"
	"stock-reconciler/internal/tabular"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Mode modo de agregación
type Mode string

const (
	ModeWindowed Mode = "windowed"
	ModeFull     Mode = "full"
)

// BuildOptions parámetros de una construcción del ledger
type BuildOptions struct {
	Mode Mode
	// Cutoff en modo windowed descarta entregas, ventas y retiros anteriores; los inventarios se incluyen siempre
	Cutoff time.Time
	// DryRun no toca el staging
	DryRun bool
}

// Result ledger construido junto con lo que quedó fuera
type Result struct {
	Transactions []models.Transaction
	Warnings     []string
	// SkippedRows filas descartadas por datos inválidos (fecha, código o cantidad)
	SkippedRows int
	// Unmanaged filas válidas de productos sin control de inventario
	Unmanaged int
	// EarliestDate fecha válida más antigua entre todas las fuentes leídas, gestionadas o no
	EarliestDate time.Time
}

// Builder construye el ledger normalizado a partir de las tablas fuente
type Builder struct {
	src     tabular.Source
	tables  config.TablesConfig
	loc     *time.Location
	staging repository.LedgerRepository
	logger  *zap.Logger
	now     func() time.Time
}

// NewBuilder crea el builder; staging puede ser nil
func NewBuilder(src tabular.Source, tables config.TablesConfig, loc *time.Location, staging repository.LedgerRepository, logger *zap.Logger) *Builder {
	return &Builder{
		src:     src,
		tables:  tables,
		loc:     loc,
		staging: staging,
		logger:  logger,
		now:     time.Now,
	}
}

type movementSource struct {
	kind  models.TransactionKind
	table config.MovementTable
}

// Build lee las cuatro fuentes, descarta filas inválidas y de productos no gestionados,
// aplica el signo de cada fuente y ordena por fecha. Una fuente ausente o con cabecera
// inválida solo genera un warning; otros errores de lectura abortan la construcción.
func (b *Builder) Build(ctx context.Context, products models.ProductSet, opts BuildOptions) (*Result, error) {
	log := b.logger.With(
		zap.String("operation", "BuildLedger"),
		zap.String("mode", string(opts.Mode)),
	)
	start := time.Now()
	res := &Result{}
	ingestedAt := b.now()

	sources := []movementSource{
		{kind: models.KindDelivery, table: b.tables.Deliveries},
		{kind: models.KindSale, table: b.tables.Sales},
		{kind: models.KindRecovery, table: b.tables.Recoveries},
	}
	for _, s := range sources {
		txs, err := b.readMovements(ctx, s, products, ingestedAt, res)
		if err != nil {
			if !b.degraded(log, res, s.table.TableRef, err) {
				return nil, err
			}
			continue
		}
		res.Transactions = append(res.Transactions, txs...)
	}

	stocktakes, err := b.readStocktakes(ctx, products, ingestedAt, res)
	if err != nil {
		if !b.degraded(log, res, b.tables.Stocktakes.TableRef, err) {
			return nil, err
		}
	}
	res.Transactions = append(res.Transactions, stocktakes...)

	sort.SliceStable(res.Transactions, func(i, j int) bool {
		return res.Transactions[i].OccurredOn.Before(res.Transactions[j].OccurredOn)
	})
	if opts.Mode == ModeWindowed {
		res.Transactions = ApplyCutoff(res.Transactions, opts.Cutoff)
	}

	if !opts.DryRun {
		b.Stage(ctx, res)
	}

	log.Info("Ledger built",
		zap.Int("transactions", len(res.Transactions)),
		zap.Int("skipped_rows", res.SkippedRows),
		zap.Int("unmanaged_rows", res.Unmanaged),
		zap.Int("warnings", len(res.Warnings)),
		zap.Duration("duration", time.Since(start)),
	)
	return res, nil
}

// Stage reemplaza el staging con el ledger construido; si falla queda como warning del resultado
func (b *Builder) Stage(ctx context.Context, res *Result) {
	if b.staging == nil {
		return
	}
	if err := b.staging.Replace(ctx, res.Transactions); err != nil {
		b.logger.Warn("⚠️ Ledger staging skipped",
			zap.String("operation", "StageLedger"),
			zap.String("table", b.tables.Ledger.TableRef.String()),
			zap.Error(err),
		)
		res.Warnings = append(res.Warnings, fmt.Sprintf("ledger staging %s not written: %v", b.tables.Ledger.TableRef, err))
	}
}

// ApplyCutoff descarta entregas, ventas y retiros anteriores a cutoff; los inventarios se conservan siempre
func ApplyCutoff(txs []models.Transaction, cutoff time.Time) []models.Transaction {
	if cutoff.IsZero() {
		return txs
	}
	out := make([]models.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.Kind != models.KindStocktake && tx.OccurredOn.Before(cutoff) {
			continue
		}
		out = append(out, tx)
	}
	return out
}

// degraded registra como warning los errores de configuración de una fuente
func (b *Builder) degraded(log *zap.Logger, res *Result, ref config.TableRef, err error) bool {
	if !errors.Is(err, tabular.ErrTableNotFound) && !errors.Is(err, tabular.ErrMalformedHeader) {
		return false
	}
	log.Warn("⚠️ Source skipped", zap.String("table", ref.String()), zap.Error(err))
	res.Warnings = append(res.Warnings, fmt.Sprintf("source %s skipped: %v", ref, err))
	return true
}

func (b *Builder) readTable(ctx context.Context, ref config.TableRef, required ...string) ([][]string, tabular.HeaderIndex, error) {
	rows, err := b.src.ReadTable(ctx, ref.SourceID, ref.Name)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", ref, err)
	}
	if len(rows) == 0 || tabular.IsBlankRow(rows[0]) {
		return nil, nil, fmt.Errorf("%s: %w", ref, tabular.ErrMalformedHeader)
	}
	header := tabular.NewHeaderIndex(rows[0])
	if err := header.Require(required...); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", ref, err)
	}
	return rows, header, nil
}

func (b *Builder) readMovements(ctx context.Context, s movementSource, products models.ProductSet, ingestedAt time.Time, res *Result) ([]models.Transaction, error) {
	t := s.table
	rows, header, err := b.readTable(ctx, t.TableRef, t.DateColumn, t.CodeColumn, t.QuantityColumn)
	if err != nil {
		return nil, err
	}

	var (
		idCol       = header.Position(t.IDColumn)
		recordedCol = header.Position(t.RecordedAtColumn)
		dateCol     = header.Position(t.DateColumn)
		codeCol     = header.Position(t.CodeColumn)
		qtyCol      = header.Position(t.QuantityColumn)
		expCol      = header.Position(t.ExpirationColumn)
	)

	var out []models.Transaction
	for i, row := range rows[1:] {
		date, code, qty, ok := b.parseRequired(row, dateCol, codeCol, qtyCol)
		if !ok {
			res.SkippedRows++
			continue
		}
		res.observe(date)
		if !products.Has(code) {
			res.Unmanaged++
			continue
		}

		tx := models.Transaction{
			ID:          rowID(row, idCol, t.TableRef, i+1),
			RecordedAt:  b.recordedAt(row, recordedCol, ingestedAt),
			OccurredOn:  date,
			ProductCode: code,
			Kind:        s.kind,
			Quantity:    qty * t.Sign,
		}
		if s.kind != models.KindSale {
			if exp, err := tabular.ParseDate(tabular.Cell(row, expCol), b.loc); err == nil {
				tx.ExpirationDate = models.TimePtr(exp)
			}
		}
		out = append(out, tx)
	}
	return out, nil
}

func (b *Builder) readStocktakes(ctx context.Context, products models.ProductSet, ingestedAt time.Time, res *Result) ([]models.Transaction, error) {
	t := b.tables.Stocktakes
	rows, header, err := b.readTable(ctx, t.TableRef, t.DateColumn, t.CodeColumn, t.CountColumn)
	if err != nil {
		return nil, err
	}

	var (
		idCol       = header.Position(t.IDColumn)
		recordedCol = header.Position(t.RecordedAtColumn)
		dateCol     = header.Position(t.DateColumn)
		codeCol     = header.Position(t.CodeColumn)
		countCol    = header.Position(t.CountColumn)
		handlerCol  = header.Position(t.HandlerColumn)
	)

	var out []models.Transaction
	for i, row := range rows[1:] {
		date, code, count, ok := b.parseRequired(row, dateCol, codeCol, countCol)
		if !ok {
			res.SkippedRows++
			continue
		}
		res.observe(date)
		if !products.Has(code) {
			res.Unmanaged++
			continue
		}
		out = append(out, models.Transaction{
			ID:          rowID(row, idCol, t.TableRef, i+1),
			RecordedAt:  b.recordedAt(row, recordedCol, ingestedAt),
			OccurredOn:  date,
			ProductCode: code,
			Kind:        models.KindStocktake,
			Quantity:    count,
			HandlerCode: tabular.Cell(row, handlerCol),
		})
	}
	return out, nil
}

func (b *Builder) parseRequired(row []string, dateCol, codeCol, qtyCol int) (time.Time, string, int, bool) {
	rawDate := tabular.Cell(row, dateCol)
	code := tabular.Cell(row, codeCol)
	rawQty := tabular.Cell(row, qtyCol)
	if rawDate == "" || code == "" || rawQty == "" {
		return time.Time{}, "", 0, false
	}
	date, err := tabular.ParseDate(rawDate, b.loc)
	if err != nil {
		b.logger.Debug("Row skipped: bad date", zap.String("product_code", code), zap.String("value", rawDate))
		return time.Time{}, "", 0, false
	}
	qty, err := tabular.ParseInt(rawQty)
	if err != nil {
		b.logger.Debug("Row skipped: bad quantity", zap.String("product_code", code), zap.String("value", rawQty))
		return time.Time{}, "", 0, false
	}
	return date, code, qty, true
}

func (b *Builder) recordedAt(row []string, col int, fallback time.Time) time.Time {
	if t, err := tabular.ParseTimestamp(tabular.Cell(row, col), b.loc); err == nil {
		return t
	}
	return fallback
}

// rowID usa el id de la fila si existe; si no, deriva uno estable de la posición y el contenido
func rowID(row []string, col int, ref config.TableRef, rowNumber int) string {
	if id := tabular.Cell(row, col); id != "" {
		return id
	}
	name := ref.String() + "#" + strconv.Itoa(rowNumber) + "#" + strings.Join(row, "\x1f")
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}

func (r *Result) observe(date time.Time) {
	if r.EarliestDate.IsZero() || date.Before(r.EarliestDate) {
		r.EarliestDate = date
	}
}
