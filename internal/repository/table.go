package repository

import (
	"context"
	"fmt"

	"stock-reconciler/internal/config"
	"stock-reconciler/internal/tabular"
)

// readWithHeader lee una tabla y construye el índice de su cabecera
func readWithHeader(ctx context.Context, src tabular.Source, ref config.TableRef) ([][]string, tabular.HeaderIndex, error) {
	rows, err := src.ReadTable(ctx, ref.SourceID, ref.Name)
	if err != nil {
		return nil, nil, err
	}
	if len(rows) == 0 || tabular.IsBlankRow(rows[0]) {
		return nil, nil, fmt.Errorf("%s: %w", ref, tabular.ErrMalformedHeader)
	}
	return rows, tabular.NewHeaderIndex(rows[0]), nil
}

// layout ubica values por nombre de columna según la cabecera existente
func layout(header tabular.HeaderIndex, values map[string]string) []string {
	row := make([]string, header.Width())
	for name, value := range values {
		if i, ok := header.Lookup(name); ok {
			row[i] = value
		}
	}
	return row
}
