package tabular

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// ExcelSource guarda cada fuente como un libro <dir>/<sourceID>.xlsx con una hoja por tabla
type ExcelSource struct {
	dir    string
	logger *zap.Logger
	mu     sync.Mutex
}

// NewExcelSource crea la fuente sobre un directorio de libros
func NewExcelSource(dir string, logger *zap.Logger) (*ExcelSource, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create excel dir: %w", err)
	}
	return &ExcelSource{dir: dir, logger: logger}, nil
}

func (s *ExcelSource) path(sourceID string) string {
	return filepath.Join(s.dir, sourceID+".xlsx")
}

func (s *ExcelSource) open(sourceID, table string) (*excelize.File, error) {
	f, err := excelize.OpenFile(s.path(sourceID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s/%s: %w", sourceID, table, ErrTableNotFound)
		}
		return nil, fmt.Errorf("open workbook %s: %w", sourceID, err)
	}
	idx, err := f.GetSheetIndex(table)
	if err != nil || idx < 0 {
		f.Close()
		return nil, fmt.Errorf("%s/%s: %w", sourceID, table, ErrTableNotFound)
	}
	return f, nil
}

func (s *ExcelSource) ReadTable(ctx context.Context, sourceID, table string) ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.open(sourceID, table)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// Valores crudos: las fechas escritas a mano llegan como serial y las resuelve ParseDate
	rows, err := f.GetRows(table, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", table, err)
	}
	if len(rows) == 0 {
		return [][]string{{}}, nil
	}
	return TrimTrailingBlank(rows), nil
}

func (s *ExcelSource) WriteTable(ctx context.Context, sourceID, table string, rng Range, rows [][]string) error {
	if err := checkRange(rng); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.open(sourceID, table)
	if err != nil {
		return err
	}
	defer f.Close()

	width := 0
	if existing, err := f.GetRows(table); err == nil && len(existing) > 0 {
		width = len(existing[0])
	}
	for i, row := range Block(rng, rows, width) {
		cell, err := excelize.CoordinatesToCellName(1, rng.StartRow+i+1)
		if err != nil {
			return err
		}
		row := row
		if err := f.SetSheetRow(table, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", rng.StartRow+i, err)
		}
	}
	if err := f.Save(); err != nil {
		return fmt.Errorf("save workbook %s: %w", sourceID, err)
	}
	return nil
}

func (s *ExcelSource) AppendRow(ctx context.Context, sourceID, table string, row []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.open(sourceID, table)
	if err != nil {
		return err
	}
	defer f.Close()

	existing, err := f.GetRows(table)
	if err != nil {
		return fmt.Errorf("read sheet %s: %w", table, err)
	}
	cell, err := excelize.CoordinatesToCellName(1, len(TrimTrailingBlank(existing))+1)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(table, cell, &row); err != nil {
		return fmt.Errorf("append row: %w", err)
	}
	return f.Save()
}

func (s *ExcelSource) DeleteRow(ctx context.Context, sourceID, table string, rowIndex int) error {
	if rowIndex < 0 {
		return fmt.Errorf("row %d out of range", rowIndex)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.open(sourceID, table)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.RemoveRow(table, rowIndex+1); err != nil {
		return fmt.Errorf("delete row %d: %w", rowIndex, err)
	}
	return f.Save()
}

// CreateTable agrega la hoja con su cabecera; si ya existe no la toca
func (s *ExcelSource) CreateTable(ctx context.Context, sourceID, table string, header []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(sourceID)
	f, err := excelize.OpenFile(path)
	created := false
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("open workbook %s: %w", sourceID, err)
		}
		f = excelize.NewFile()
		created = true
	}
	defer f.Close()

	if idx, err := f.GetSheetIndex(table); err == nil && idx >= 0 {
		return nil
	}
	if _, err := f.NewSheet(table); err != nil {
		return fmt.Errorf("create sheet %s: %w", table, err)
	}
	if created && table != "Sheet1" {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return err
		}
	}
	if err := f.SetSheetRow(table, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	s.logger.Info("📄 Tabla creada en libro Excel",
		zap.String("workbook", path),
		zap.String("table", table),
	)
	if created {
		return f.SaveAs(path)
	}
	return f.Save()
}

func (s *ExcelSource) Ping(ctx context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", s.dir)
	}
	return nil
}
