package repository

import (
	"context"
	"fmt"
	"time"

	"stock-reconciler/internal/config"
	"stock-reconciler/internal/models"
	"stock-reconciler/internal/tabular"
)

// LedgerRepository área de staging del ledger normalizado
type LedgerRepository interface {
	Replace(ctx context.Context, txs []models.Transaction) error
}

type ledgerRepository struct {
	src   tabular.Source
	table config.FixedTable
}

func NewLedgerRepository(src tabular.Source, table config.FixedTable) LedgerRepository {
	return &ledgerRepository{src: src, table: table}
}

// Replace reemplaza todo el contenido del staging en una sola escritura
func (r *ledgerRepository) Replace(ctx context.Context, txs []models.Transaction) error {
	current, err := r.src.ReadTable(ctx, r.table.SourceID, r.table.Name)
	if err != nil {
		return err
	}

	var header []string
	if len(current) > 0 {
		header = current[0]
	}
	if len(header) == 0 || tabular.IsBlankRow(header) {
		header = r.table.Columns
		if err := r.src.WriteTable(ctx, r.table.SourceID, r.table.Name, tabular.Range{StartRow: 0, NumRows: 1}, [][]string{header}); err != nil {
			return fmt.Errorf("failed to write ledger header: %w", err)
		}
	}
	index := tabular.NewHeaderIndex(header)

	c := r.table.Columns
	rows := make([][]string, len(txs))
	for i, tx := range txs {
		rows[i] = layout(index, map[string]string{
			c[0]: tx.ID,
			c[1]: formatTimestamp(tx.RecordedAt),
			c[2]: models.FormatDay(tx.OccurredOn),
			c[3]: tx.ProductCode,
			c[4]: string(tx.Kind),
			c[5]: fmt.Sprint(tx.Quantity),
			c[6]: tabular.FormatDate(tx.ExpirationDate),
			c[7]: tx.HandlerCode,
		})
	}

	numRows := len(rows)
	if existing := len(current) - 1; existing > numRows {
		numRows = existing
	}
	if err := r.src.WriteTable(ctx, r.table.SourceID, r.table.Name, tabular.DataRange(numRows), rows); err != nil {
		return fmt.Errorf("failed to write ledger staging: %w", err)
	}
	return nil
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
