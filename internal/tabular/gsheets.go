package tabular

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsSource usa Google Sheets: sourceID es el id de la planilla y la tabla el título de la hoja
type SheetsSource struct {
	svc             *sheets.Service
	defaultSourceID string
	logger          *zap.Logger
}

// NewSheetsSource crea el cliente con el archivo de credenciales indicado, o con ADC si está vacío
func NewSheetsSource(ctx context.Context, credentialsFile, defaultSourceID string, logger *zap.Logger) (*SheetsSource, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	opts = append(opts, option.WithScopes(sheets.SpreadsheetsScope))

	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}
	return &SheetsSource{svc: svc, defaultSourceID: defaultSourceID, logger: logger}, nil
}

func a1(table string, row int) string {
	quoted := "'" + strings.ReplaceAll(table, "'", "''") + "'"
	if row <= 0 {
		return quoted
	}
	return fmt.Sprintf("%s!A%d", quoted, row)
}

func isNotFound(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusNotFound
	}
	return false
}

// sheetID resuelve el id numérico de la hoja a partir de su título
func (s *SheetsSource) sheetID(ctx context.Context, sourceID, table string) (int64, error) {
	doc, err := s.svc.Spreadsheets.Get(sourceID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		if isNotFound(err) {
			return 0, fmt.Errorf("%s/%s: %w", sourceID, table, ErrTableNotFound)
		}
		return 0, fmt.Errorf("failed to get spreadsheet %s: %w", sourceID, err)
	}
	for _, sh := range doc.Sheets {
		if sh.Properties != nil && sh.Properties.Title == table {
			return sh.Properties.SheetId, nil
		}
	}
	return 0, fmt.Errorf("%s/%s: %w", sourceID, table, ErrTableNotFound)
}

func (s *SheetsSource) ReadTable(ctx context.Context, sourceID, table string) ([][]string, error) {
	if _, err := s.sheetID(ctx, sourceID, table); err != nil {
		return nil, err
	}
	resp, err := s.svc.Spreadsheets.Values.Get(sourceID, a1(table, 0)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s/%s: %w", sourceID, table, err)
	}

	rows := make([][]string, len(resp.Values))
	for i, values := range resp.Values {
		row := make([]string, len(values))
		for j, v := range values {
			row[j] = fmt.Sprint(v)
		}
		rows[i] = row
	}
	if len(rows) == 0 {
		return [][]string{{}}, nil
	}
	return TrimTrailingBlank(rows), nil
}

func toValues(rows [][]string) [][]interface{} {
	values := make([][]interface{}, len(rows))
	for i, row := range rows {
		out := make([]interface{}, len(row))
		for j, cell := range row {
			out[j] = cell
		}
		values[i] = out
	}
	return values
}

func (s *SheetsSource) WriteTable(ctx context.Context, sourceID, table string, rng Range, rows [][]string) error {
	if err := checkRange(rng); err != nil {
		return err
	}
	if rng.NumRows == 0 {
		return nil
	}
	current, err := s.ReadTable(ctx, sourceID, table)
	if err != nil {
		return err
	}
	width := 0
	if len(current) > 0 {
		width = len(current[0])
	}

	vr := &sheets.ValueRange{Values: toValues(Block(rng, rows, width))}
	_, err = s.svc.Spreadsheets.Values.Update(sourceID, a1(table, rng.StartRow+1), vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to write %s/%s: %w", sourceID, table, err)
	}
	return nil
}

func (s *SheetsSource) AppendRow(ctx context.Context, sourceID, table string, row []string) error {
	if _, err := s.sheetID(ctx, sourceID, table); err != nil {
		return err
	}
	vr := &sheets.ValueRange{Values: toValues([][]string{row})}
	_, err := s.svc.Spreadsheets.Values.Append(sourceID, a1(table, 1), vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to append to %s/%s: %w", sourceID, table, err)
	}
	return nil
}

func (s *SheetsSource) DeleteRow(ctx context.Context, sourceID, table string, rowIndex int) error {
	id, err := s.sheetID(ctx, sourceID, table)
	if err != nil {
		return err
	}
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			DeleteDimension: &sheets.DeleteDimensionRequest{
				Range: &sheets.DimensionRange{
					SheetId:    id,
					Dimension:  "ROWS",
					StartIndex: int64(rowIndex),
					EndIndex:   int64(rowIndex + 1),
				},
			},
		}},
	}
	if _, err := s.svc.Spreadsheets.BatchUpdate(sourceID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to delete row %d: %w", rowIndex, err)
	}
	return nil
}

func (s *SheetsSource) CreateTable(ctx context.Context, sourceID, table string, header []string) error {
	_, err := s.sheetID(ctx, sourceID, table)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrTableNotFound) {
		return err
	}

	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{Title: table},
			},
		}},
	}
	if _, err := s.svc.Spreadsheets.BatchUpdate(sourceID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to add sheet %s: %w", table, err)
	}

	vr := &sheets.ValueRange{Values: toValues([][]string{header})}
	if _, err := s.svc.Spreadsheets.Values.Update(sourceID, a1(table, 1), vr).ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to write header for %s: %w", table, err)
	}

	s.logger.Info("Sheet created",
		zap.String("spreadsheet_id", sourceID),
		zap.String("table", table),
	)
	return nil
}

func (s *SheetsSource) Ping(ctx context.Context) error {
	if s.defaultSourceID == "" {
		return nil
	}
	_, err := s.svc.Spreadsheets.Get(s.defaultSourceID).Fields("spreadsheetId").Context(ctx).Do()
	return err
}
