package services

import (
	"context"
	"testing"
	"time"

	"stock-reconciler/internal/cache"
	"stock-reconciler/internal/ledger"
	"stock-reconciler/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newInventoryFixture(t *testing.T) (*fixture, InventoryService) {
	t.Helper()
	f := newFixture(t)
	_, err := f.materializer().Run(context.Background(), ledger.ModeFull, "test")
	require.NoError(t, err)

	summaryCache := cache.NewSummaryCache(nil, time.Minute, zap.NewNop())
	t.Cleanup(summaryCache.Close)
	return f, NewInventoryService(f.summary, f.products, summaryCache, time.UTC, zap.NewNop())
}

func TestGetLatestDefaultsToLastDay(t *testing.T) {
	_, svc := newInventoryFixture(t)

	snapshot, err := svc.GetLatest(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-31", snapshot.Date)
	require.Equal(t, 1, snapshot.TotalItems)

	row := snapshot.Rows[0]
	assert.Equal(t, "P1", row.ProductCode)
	assert.Equal(t, "Onigiri", row.ProductName)
	assert.Equal(t, "EXT-1", row.ExternalCode)
	assert.Equal(t, 19, row.ClosingStock)
	assert.Equal(t, 40, row.StandardStock)
	require.NotNil(t, row.StockRatio)
	assert.Equal(t, 47.5, *row.StockRatio)
	require.NotNil(t, row.OldestExpirationDate)
	assert.Equal(t, "2024-02-10", *row.OldestExpirationDate)
}

func TestGetLatestForDate(t *testing.T) {
	_, svc := newInventoryFixture(t)

	snapshot, err := svc.GetLatest(context.Background(), "2024/01/22")
	require.NoError(t, err)
	require.Len(t, snapshot.Rows, 1)
	assert.Equal(t, 14, snapshot.Rows[0].ClosingStock)

	empty, err := svc.GetLatest(context.Background(), "2023-01-01")
	require.NoError(t, err)
	assert.Equal(t, 0, empty.TotalItems)
	assert.NotNil(t, empty.Rows)

	_, err = svc.GetLatest(context.Background(), "yesterday")
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestGetHistoryRange(t *testing.T) {
	_, svc := newInventoryFixture(t)

	rows, err := svc.GetHistory(context.Background(), "P1", models.HistoryQuery{From: "2024-01-20", To: "2024-01-22"})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "2024-01-20", rows[0].Date)
	assert.Equal(t, "2024-01-22", rows[2].Date)

	none, err := svc.GetHistory(context.Background(), "P2", models.HistoryQuery{})
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = svc.GetHistory(context.Background(), "P1", models.HistoryQuery{From: "2024-01-22", To: "2024-01-20"})
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestGetDiscrepanciesOnlyNonZero(t *testing.T) {
	_, svc := newInventoryFixture(t)

	rows, err := svc.GetDiscrepancies(context.Background(), models.HistoryQuery{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "2024-01-22", rows[0].Date)
	assert.Equal(t, -1, *rows[0].Discrepancy)
	assert.Equal(t, "2024-01-28", rows[1].Date)
	assert.Equal(t, -2, *rows[1].Discrepancy)

	filtered, err := svc.GetDiscrepancies(context.Background(), models.HistoryQuery{From: "2024-01-25"})
	require.NoError(t, err)
	assert.Len(t, filtered, 1)
}

func TestGetManagedProducts(t *testing.T) {
	_, svc := newInventoryFixture(t)

	products, err := svc.GetManagedProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "P1", products[0].Code)
}

func TestQueriesServedFromCache(t *testing.T) {
	f, svc := newInventoryFixture(t)
	ctx := context.Background()

	first, err := svc.GetLatest(ctx, "")
	require.NoError(t, err)

	// Sin invalidar, el caché sigue respondiendo aunque la tabla desaparezca
	f.src.Drop("store", "daily_summary")
	second, err := svc.GetLatest(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestStockRatio(t *testing.T) {
	assert.Nil(t, stockRatio(5, 0))
	assert.Nil(t, stockRatio(5, -1))
	require.NotNil(t, stockRatio(1, 3))
	assert.Equal(t, 33.33, *stockRatio(1, 3))
	assert.Equal(t, 0.0, *stockRatio(0, 10))
}
