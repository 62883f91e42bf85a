package repository

import (
	"context"
	"testing"
	"time"

	"stock-reconciler/internal/config"
	"stock-reconciler/internal/models"
	"stock-reconciler/internal/tabular"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestProductRepositoryReadsReorderedColumns(t *testing.T) {
	ctx := context.Background()
	tables := config.DefaultTables("store")
	src := tabular.NewMemorySource()
	src.Seed("store", "products", [][]string{
		{" isManaged ", "name", "productCode", "standardStock", "shelfLifeDays", "alertDays"},
		{"TRUE", "Onigiri", "P1", "100", "3", "1"},
		{"false", "Water", "P2", "20", "365", "30"},
		{"1", "Sandwich", "P3", "", "", ""},
		{"TRUE", "", "", "", "", ""},
		{"TRUE", "Dup", "P1", "5", "5", "5"},
	})

	repo := NewProductRepository(src, tables.Products, zap.NewNop())
	all, err := repo.GetProducts(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, models.Product{Code: "P1", Name: "Onigiri", StandardStock: 100, ShelfLifeDays: 3, AlertDays: 1, IsManaged: true}, all[0])

	managed, err := repo.GetManagedProducts(ctx)
	require.NoError(t, err)
	assert.True(t, managed.Has("P1"))
	assert.False(t, managed.Has("P2"))
	assert.True(t, managed.Has("P3"))
	assert.Equal(t, 0, managed["P3"].StandardStock)
}

func TestProductRepositoryMissingTable(t *testing.T) {
	repo := NewProductRepository(tabular.NewMemorySource(), config.DefaultTables("store").Products, zap.NewNop())
	_, err := repo.GetManagedProducts(context.Background())
	require.ErrorIs(t, err, tabular.ErrTableNotFound)
}

func TestSummaryRepositoryRoundTripHonorsHeaderOrder(t *testing.T) {
	ctx := context.Background()
	tables := config.DefaultTables("store")
	src := tabular.NewMemorySource()
	src.Seed("store", "daily_summary", [][]string{
		{"productCode", "date", "closingStock", "discrepancy", "physicalCount", "daysUntilMustSell", "oldestExpirationDate"},
		{"P9", "2023-12-31", "7", "", "", "", ""},
		{"junk", "not a date", "x", "", "", "", ""},
	})

	repo := NewSummaryRepository(src, tables.Summary, time.UTC, zap.NewNop())
	snapshot, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, snapshot.DataRows)
	require.Len(t, snapshot.Rows, 1)
	assert.Equal(t, "P9", snapshot.Rows[0].ProductCode)

	exp := models.Date(2024, time.February, 1)
	err = repo.Save(ctx, snapshot, []models.DailySummaryRow{{
		Date:                 models.Date(2024, time.January, 10),
		ProductCode:          "P1",
		ClosingStock:         35,
		PhysicalCount:        models.IntPtr(35),
		Discrepancy:          models.IntPtr(-5),
		OldestExpirationDate: &exp,
		DaysUntilMustSell:    models.IntPtr(21),
	}})
	require.NoError(t, err)

	rows, err := src.ReadTable(ctx, "store", "daily_summary")
	require.NoError(t, err)
	require.Len(t, rows, 2, "stale rows beyond the new set are blanked")
	assert.Equal(t, []string{"P1", "2024-01-10", "35", "-5", "35", "21", "2024-02-01"}, rows[1])
}

func TestSummaryRepositoryWritesHeaderWhenEmpty(t *testing.T) {
	ctx := context.Background()
	tables := config.DefaultTables("store")
	src := tabular.NewMemorySource()
	src.Seed("store", "daily_summary", [][]string{{}})

	repo := NewSummaryRepository(src, tables.Summary, time.UTC, zap.NewNop())
	require.NoError(t, repo.Exists(ctx))
	snapshot, err := repo.Load(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, snapshot, []models.DailySummaryRow{{
		Date: models.Date(2024, time.January, 1), ProductCode: "P1", ClosingStock: 50,
	}}))

	rows, err := src.ReadTable(ctx, "store", "daily_summary")
	require.NoError(t, err)
	assert.Equal(t, config.SummaryColumns, rows[0])
	assert.Equal(t, []string{"2024-01-01", "P1", "50", "", "", "", ""}, rows[1])
}

func TestLedgerRepositoryReplaceIsNotAdditive(t *testing.T) {
	ctx := context.Background()
	tables := config.DefaultTables("store")
	src := tabular.NewMemorySource()
	require.NoError(t, src.CreateTable(ctx, "store", "ledger", tables.Ledger.Columns))

	repo := NewLedgerRepository(src, tables.Ledger)
	first := []models.Transaction{
		{ID: "a", OccurredOn: models.Date(2024, time.January, 1), ProductCode: "P1", Kind: models.KindDelivery, Quantity: 50},
		{ID: "b", OccurredOn: models.Date(2024, time.January, 5), ProductCode: "P1", Kind: models.KindSale, Quantity: -10},
	}
	require.NoError(t, repo.Replace(ctx, first))
	require.NoError(t, repo.Replace(ctx, first[:1]))

	rows, err := src.ReadTable(ctx, "store", "ledger")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "a", rows[1][0])
	assert.Equal(t, "delivery", rows[1][4])
	assert.Equal(t, "50", rows[1][5])
}

func TestRecordRepositoryAppendByHeader(t *testing.T) {
	ctx := context.Background()
	src := tabular.NewMemorySource()
	src.Seed("store", "sales", [][]string{{"quantity", "date", "productCode"}})

	repo := NewRecordRepository(src)
	ref := config.TableRef{SourceID: "store", Name: "sales"}
	require.NoError(t, repo.Append(ctx, ref, map[string]string{"date": "2024-01-05", "productCode": "P1", "quantity": "10"}))

	rows, err := src.ReadTable(ctx, "store", "sales")
	require.NoError(t, err)
	assert.Equal(t, []string{"10", "2024-01-05", "P1"}, rows[1])

	err = repo.Append(ctx, ref, map[string]string{"expirationDate": "2024-02-01"})
	require.ErrorIs(t, err, tabular.ErrMalformedHeader)
}
