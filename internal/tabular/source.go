package tabular

import (
	"context"
	"errors"
)

var (
	// ErrTableNotFound la tabla pedida no existe en la fuente
	ErrTableNotFound = errors.New("table not found")
	// ErrMalformedHeader la fila de cabecera falta o no tiene las columnas requeridas
	ErrMalformedHeader = errors.New("malformed header row")
)

// Range bloque de filas completas a sobrescribir. La fila 0 es la cabecera.
type Range struct {
	StartRow int
	NumRows  int
}

// DataRange cubre n filas de datos justo debajo de la cabecera
func DataRange(n int) Range {
	return Range{StartRow: 1, NumRows: n}
}

// Source define el acceso a tablas de filas con columnas definidas por cabecera.
// rows[0] de ReadTable es siempre la cabecera.
type Source interface {
	ReadTable(ctx context.Context, sourceID, table string) ([][]string, error)
	// WriteTable sobrescribe el bloque rng; las filas faltantes o cortas se rellenan en blanco
	WriteTable(ctx context.Context, sourceID, table string, rng Range, rows [][]string) error
	AppendRow(ctx context.Context, sourceID, table string, row []string) error
	DeleteRow(ctx context.Context, sourceID, table string, rowIndex int) error
	Ping(ctx context.Context) error
}

// TableCreator lo implementan las fuentes que pueden crear tablas nuevas
type TableCreator interface {
	CreateTable(ctx context.Context, sourceID, table string, header []string) error
}

// Block normaliza rows al tamaño exacto de rng, rellenando con celdas vacías
func Block(rng Range, rows [][]string, width int) [][]string {
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	block := make([][]string, rng.NumRows)
	for i := range block {
		out := make([]string, width)
		if i < len(rows) {
			copy(out, rows[i])
		}
		block[i] = out
	}
	return block
}

// TrimTrailingBlank elimina las filas vacías al final de la tabla
func TrimTrailingBlank(rows [][]string) [][]string {
	end := len(rows)
	for end > 1 && IsBlankRow(rows[end-1]) {
		end--
	}
	return rows[:end]
}

// IsBlankRow indica si todas las celdas de la fila están vacías
func IsBlankRow(row []string) bool {
	for _, cell := range row {
		if cell != "" {
			return false
		}
	}
	return true
}

func checkRange(rng Range) error {
	if rng.StartRow < 0 || rng.NumRows < 0 {
		return errors.New("invalid range")
	}
	return nil
}
