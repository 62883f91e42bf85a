package tabular

import (
	"context"
	"fmt"
	"sync"
)

// MemorySource fuente en memoria, usada en tests y desarrollo local
type MemorySource struct {
	mu     sync.RWMutex
	tables map[string][][]string
}

// NewMemorySource crea una fuente vacía
func NewMemorySource() *MemorySource {
	return &MemorySource{tables: make(map[string][][]string)}
}

func memoryKey(sourceID, table string) string {
	return sourceID + "/" + table
}

// Seed reemplaza el contenido completo de una tabla
func (m *MemorySource) Seed(sourceID, table string, rows [][]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[memoryKey(sourceID, table)] = cloneRows(rows)
}

// Drop elimina una tabla
func (m *MemorySource) Drop(sourceID, table string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tables, memoryKey(sourceID, table))
}

func (m *MemorySource) ReadTable(ctx context.Context, sourceID, table string) ([][]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rows, ok := m.tables[memoryKey(sourceID, table)]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", sourceID, table, ErrTableNotFound)
	}
	return TrimTrailingBlank(cloneRows(rows)), nil
}

func (m *MemorySource) WriteTable(ctx context.Context, sourceID, table string, rng Range, rows [][]string) error {
	if err := checkRange(rng); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := memoryKey(sourceID, table)
	existing, ok := m.tables[key]
	if !ok {
		return fmt.Errorf("%s/%s: %w", sourceID, table, ErrTableNotFound)
	}

	width := 0
	if len(existing) > 0 {
		width = len(existing[0])
	}
	block := Block(rng, rows, width)
	for len(existing) < rng.StartRow+rng.NumRows {
		existing = append(existing, []string{})
	}
	for i, row := range block {
		existing[rng.StartRow+i] = row
	}
	m.tables[key] = existing
	return nil
}

func (m *MemorySource) AppendRow(ctx context.Context, sourceID, table string, row []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := memoryKey(sourceID, table)
	existing, ok := m.tables[key]
	if !ok {
		return fmt.Errorf("%s/%s: %w", sourceID, table, ErrTableNotFound)
	}
	existing = TrimTrailingBlank(existing)
	m.tables[key] = append(existing, append([]string(nil), row...))
	return nil
}

func (m *MemorySource) DeleteRow(ctx context.Context, sourceID, table string, rowIndex int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := memoryKey(sourceID, table)
	existing, ok := m.tables[key]
	if !ok {
		return fmt.Errorf("%s/%s: %w", sourceID, table, ErrTableNotFound)
	}
	if rowIndex < 0 || rowIndex >= len(existing) {
		return fmt.Errorf("row %d out of range", rowIndex)
	}
	m.tables[key] = append(existing[:rowIndex], existing[rowIndex+1:]...)
	return nil
}

func (m *MemorySource) CreateTable(ctx context.Context, sourceID, table string, header []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := memoryKey(sourceID, table)
	if _, ok := m.tables[key]; ok {
		return nil
	}
	m.tables[key] = [][]string{append([]string(nil), header...)}
	return nil
}

func (m *MemorySource) Ping(ctx context.Context) error {
	return nil
}

func cloneRows(rows [][]string) [][]string {
	out := make([][]string, len(rows))
	for i, row := range rows {
		out[i] = append([]string(nil), row...)
	}
	return out
}
