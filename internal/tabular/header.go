package tabular

import (
	"fmt"
	"strings"
	"unicode"
)

// NormalizeHeader recorta, elimina espacios internos y BOM, y pasa a minúsculas,
// para que el orden o el formato de las columnas no importe.
func NormalizeHeader(raw string) string {
	raw = strings.TrimPrefix(raw, "\ufeff")
	var b strings.Builder
	for _, r := range raw {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// HeaderIndex mapea nombres de columna normalizados a su posición
type HeaderIndex map[string]int

// NewHeaderIndex construye el índice; ante duplicados gana la primera columna
func NewHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, col := range header {
		key := NormalizeHeader(col)
		if key == "" {
			continue
		}
		if _, exists := idx[key]; !exists {
			idx[key] = i
		}
	}
	return idx
}

// Lookup busca una columna por nombre
func (h HeaderIndex) Lookup(name string) (int, bool) {
	if name == "" {
		return -1, false
	}
	i, ok := h[NormalizeHeader(name)]
	return i, ok
}

// Position retorna la posición de la columna o -1
func (h HeaderIndex) Position(name string) int {
	if i, ok := h.Lookup(name); ok {
		return i
	}
	return -1
}

// Require falla con ErrMalformedHeader si falta alguna columna
func (h HeaderIndex) Require(names ...string) error {
	var missing []string
	for _, name := range names {
		if _, ok := h.Lookup(name); !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing columns %s", ErrMalformedHeader, strings.Join(missing, ", "))
	}
	return nil
}

// Width número de columnas que cubre la cabecera
func (h HeaderIndex) Width() int {
	width := 0
	for _, i := range h {
		if i+1 > width {
			width = i + 1
		}
	}
	return width
}

// Cell lee la celda idx de la fila, tolerando filas cortas
func Cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
