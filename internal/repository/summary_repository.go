package repository

import (
	"context"
	"fmt"
	"time"

	"stock-reconciler/internal/config"
	"stock-reconciler/internal/models"
	"stock-reconciler/internal/tabular"

	"go.uber.org/zap"
)

// SummarySnapshot contenido actual de la tabla de resumen
type SummarySnapshot struct {
	Header   []string
	Rows     []models.DailySummaryRow
	DataRows int // filas de datos ocupadas, incluidas las que no se pudieron leer
}

// SummaryRepository lectura y escritura de la tabla de resumen diario
type SummaryRepository interface {
	Exists(ctx context.Context) error
	Load(ctx context.Context) (*SummarySnapshot, error)
	Save(ctx context.Context, snapshot *SummarySnapshot, rows []models.DailySummaryRow) error
}

type summaryRepository struct {
	src    tabular.Source
	table  config.FixedTable
	loc    *time.Location
	logger *zap.Logger
}

// NewSummaryRepository crea una nueva instancia del repository
func NewSummaryRepository(src tabular.Source, table config.FixedTable, loc *time.Location, logger *zap.Logger) SummaryRepository {
	return &summaryRepository{
		src:    src,
		table:  table,
		loc:    loc,
		logger: logger,
	}
}

// Exists falla con tabular.ErrTableNotFound si la tabla destino no existe
func (r *summaryRepository) Exists(ctx context.Context) error {
	_, err := r.src.ReadTable(ctx, r.table.SourceID, r.table.Name)
	return err
}

func (r *summaryRepository) Load(ctx context.Context) (*SummarySnapshot, error) {
	rows, err := r.src.ReadTable(ctx, r.table.SourceID, r.table.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to read summary table: %w", err)
	}

	snapshot := &SummarySnapshot{}
	if len(rows) == 0 || tabular.IsBlankRow(rows[0]) {
		return snapshot, nil
	}
	snapshot.Header = rows[0]
	snapshot.DataRows = len(rows) - 1

	header := tabular.NewHeaderIndex(rows[0])
	if err := header.Require(r.table.Columns[0], r.table.Columns[1], r.table.Columns[2]); err != nil {
		return nil, fmt.Errorf("summary table %s: %w", r.table.TableRef, err)
	}
	pos := make([]int, len(r.table.Columns))
	for i, name := range r.table.Columns {
		pos[i] = header.Position(name)
	}

	skipped := 0
	for _, row := range rows[1:] {
		parsed, ok := r.decode(row, pos)
		if !ok {
			skipped++
			continue
		}
		snapshot.Rows = append(snapshot.Rows, parsed)
	}
	if skipped > 0 {
		r.logger.Debug("Unreadable summary rows ignored", zap.Int("rows", skipped))
	}
	return snapshot, nil
}

func (r *summaryRepository) decode(row []string, pos []int) (models.DailySummaryRow, bool) {
	date, err := tabular.ParseDate(tabular.Cell(row, pos[0]), r.loc)
	if err != nil {
		return models.DailySummaryRow{}, false
	}
	code := tabular.Cell(row, pos[1])
	closing, err := tabular.ParseInt(tabular.Cell(row, pos[2]))
	if code == "" || err != nil {
		return models.DailySummaryRow{}, false
	}

	out := models.DailySummaryRow{Date: date, ProductCode: code, ClosingStock: closing}
	if n, err := tabular.ParseInt(tabular.Cell(row, pos[3])); err == nil {
		out.PhysicalCount = models.IntPtr(n)
	}
	if n, err := tabular.ParseInt(tabular.Cell(row, pos[4])); err == nil {
		out.Discrepancy = models.IntPtr(n)
	}
	if d, err := tabular.ParseDate(tabular.Cell(row, pos[5]), r.loc); err == nil {
		out.OldestExpirationDate = models.TimePtr(d)
	}
	if n, err := tabular.ParseInt(tabular.Cell(row, pos[6])); err == nil {
		out.DaysUntilMustSell = models.IntPtr(n)
	}
	return out, true
}

// Save sobrescribe la tabla con rows en una sola escritura que cubre también las filas anteriores.
// Respeta el orden de columnas de la cabecera existente; si no hay cabecera la escribe.
func (r *summaryRepository) Save(ctx context.Context, snapshot *SummarySnapshot, rows []models.DailySummaryRow) error {
	header := snapshot.Header
	if len(header) == 0 || tabular.IsBlankRow(header) {
		header = r.table.Columns
		if err := r.src.WriteTable(ctx, r.table.SourceID, r.table.Name, tabular.Range{StartRow: 0, NumRows: 1}, [][]string{header}); err != nil {
			return fmt.Errorf("failed to write summary header: %w", err)
		}
	}
	index := tabular.NewHeaderIndex(header)

	encoded := make([][]string, len(rows))
	for i, row := range rows {
		encoded[i] = layout(index, r.encode(row))
	}

	numRows := len(rows)
	if snapshot.DataRows > numRows {
		numRows = snapshot.DataRows
	}
	if err := r.src.WriteTable(ctx, r.table.SourceID, r.table.Name, tabular.DataRange(numRows), encoded); err != nil {
		return fmt.Errorf("failed to write summary table: %w", err)
	}
	return nil
}

func (r *summaryRepository) encode(row models.DailySummaryRow) map[string]string {
	c := r.table.Columns
	return map[string]string{
		c[0]: models.FormatDay(row.Date),
		c[1]: row.ProductCode,
		c[2]: fmt.Sprint(row.ClosingStock),
		c[3]: tabular.FormatInt(row.PhysicalCount),
		c[4]: tabular.FormatInt(row.Discrepancy),
		c[5]: tabular.FormatDate(row.OldestExpirationDate),
		c[6]: tabular.FormatInt(row.DaysUntilMustSell),
	}
}
