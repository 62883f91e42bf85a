package tabular

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/sheets/v4"
)

func TestA1Notation(t *testing.T) {
	assert.Equal(t, "'sales'", a1("sales", 0))
	assert.Equal(t, "'daily summary'!A2", a1("daily summary", 2))
	assert.Equal(t, "'it''s'!A1", a1("it's", 1))
}

func TestIsNotFound(t *testing.T) {
	notFound := &googleapi.Error{Code: http.StatusNotFound}
	assert.True(t, isNotFound(notFound))
	assert.True(t, isNotFound(fmt.Errorf("get: %w", notFound)))
	assert.False(t, isNotFound(&googleapi.Error{Code: http.StatusForbidden}))
	assert.False(t, isNotFound(errors.New("boom")))
}

func TestSheetsSourceRoundTrip(t *testing.T) {
	spreadsheetID := os.Getenv("SHEETS_TEST_SPREADSHEET_ID")
	if os.Getenv("INTEGRATION_TESTS") == "" || spreadsheetID == "" {
		t.Skip("set INTEGRATION_TESTS=1 and SHEETS_TEST_SPREADSHEET_ID to run against Google Sheets")
	}
	ctx := context.Background()
	src, err := NewSheetsSource(ctx, os.Getenv("GOOGLE_CREDENTIALS_FILE"), spreadsheetID, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, src.Ping(ctx))

	table := fmt.Sprintf("it_%d", time.Now().UnixNano())
	_, err = src.ReadTable(ctx, spreadsheetID, table)
	require.ErrorIs(t, err, ErrTableNotFound)
	require.ErrorIs(t, src.AppendRow(ctx, spreadsheetID, table, []string{"x"}), ErrTableNotFound)

	header := []string{"date", "productCode", "quantity"}
	require.NoError(t, src.CreateTable(ctx, spreadsheetID, table, header))
	t.Cleanup(func() {
		id, err := src.sheetID(context.Background(), spreadsheetID, table)
		if err != nil {
			return
		}
		src.svc.Spreadsheets.BatchUpdate(spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
			Requests: []*sheets.Request{{DeleteSheet: &sheets.DeleteSheetRequest{SheetId: id}}},
		}).Context(context.Background()).Do()
	})

	for _, row := range [][]string{
		{"2024-01-01", "P1", "1"},
		{"2024-01-02", "P1", "2"},
		{"2024-01-03", "P1", "3"},
	} {
		require.NoError(t, src.AppendRow(ctx, spreadsheetID, table, row))
	}
	require.NoError(t, src.DeleteRow(ctx, spreadsheetID, table, 1))

	rows, err := src.ReadTable(ctx, spreadsheetID, table)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		header,
		{"2024-01-02", "P1", "2"},
		{"2024-01-03", "P1", "3"},
	}, rows)

	// Una fila sobre un bloque de dos: la segunda queda en blanco y se descarta al leer
	require.NoError(t, src.WriteTable(ctx, spreadsheetID, table, DataRange(2), [][]string{
		{"2024-01-05", "P2", "9"},
	}))
	rows, err = src.ReadTable(ctx, spreadsheetID, table)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"2024-01-05", "P2", "9"}, rows[1])
}
