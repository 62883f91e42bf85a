package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"stock-reconciler/internal/config"
	"stock-reconciler/internal/ledger"
	"stock-reconciler/internal/lock"
	"stock-reconciler/internal/models"
	"stock-reconciler/internal/reconcile"
	"stock-reconciler/internal/repository"
	"stock-reconciler/internal/tabular"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// testNow 2024-01-31; con WindowDays=5 el cómputo por ventana empieza el 2024-01-25
var testNow = time.Date(2024, time.January, 31, 3, 0, 0, 0, time.UTC)

func day(m time.Month, d int) time.Time {
	return models.Date(2024, m, d)
}

type fakeRecorder struct {
	mu   sync.Mutex
	runs []models.RunRecord
}

func (f *fakeRecorder) RecordRun(run models.RunRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, run)
}

type fixture struct {
	src      *tabular.MemorySource
	tables   config.TablesConfig
	summary  repository.SummaryRepository
	products repository.ProductRepository
	lock     *lock.LocalLock
	recorder *fakeRecorder
	cfg      config.ReconcileConfig
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	src := tabular.NewMemorySource()
	tables := config.DefaultTables("store")

	src.Seed("store", "products", [][]string{
		{"productCode", "name", "externalCode", "shelfLifeDays", "alertDays", "standardStock", "isManaged"},
		{"P1", "Onigiri", "EXT-1", "30", "2", "40", "TRUE"},
		{"P2", "Water", "EXT-2", "365", "30", "0", "FALSE"},
	})
	src.Seed("store", "deliveries", [][]string{
		{"deliveryId", "recordedAt", "date", "productCode", "quantity", "expirationDate"},
		{"d1", "", "2024-01-12", "P1", "20", "2024-02-10"},
		{"d2", "", "2024-01-26", "P1", "10", "2024-02-20"},
		{"d3", "", "2024-01-05", "P2", "99", "2025-01-01"},
	})
	src.Seed("store", "sales", [][]string{
		{"saleId", "recordedAt", "date", "productCode", "quantity"},
		{"s1", "", "2024-01-20", "P1", "5"},
		{"s2", "", "2024-01-29", "P1", "3"},
	})
	src.Seed("store", "recoveries", [][]string{
		{"recoveryId", "recordedAt", "date", "productCode", "quantity", "expirationDate"},
	})
	src.Seed("store", "stocktakes", [][]string{
		{"stocktakeId", "recordedAt", "date", "productCode", "count", "handlerCode"},
		{"t1", "", "2024-01-22", "P1", "14", "h1"},
		{"t2", "", "2024-01-28", "P1", "22", "h2"},
	})
	src.Seed("store", "ledger", [][]string{config.LedgerColumns})
	src.Seed("store", "daily_summary", [][]string{config.SummaryColumns})

	return &fixture{
		src:      src,
		tables:   tables,
		summary:  repository.NewSummaryRepository(src, tables.Summary, time.UTC, zap.NewNop()),
		products: repository.NewProductRepository(src, tables.Products, zap.NewNop()),
		lock:     lock.NewLocalLock(),
		recorder: &fakeRecorder{},
		cfg: config.ReconcileConfig{
			WindowDays:          5,
			CommonAnchorDepth:   12,
			AnchorMinStocktakes: 13,
			DiscrepancyPolicy:   config.PolicyPreviousClose,
			ExpirationPolicy:    config.PolicyAlertLead,
			WriteStrategy:       config.WriteReplace,
			SortOrder:           config.SortAsc,
			Timezone:            "UTC",
		},
	}
}

func (f *fixture) materializer() *materializer {
	builder := ledger.NewBuilder(f.src, f.tables, time.UTC, repository.NewLedgerRepository(f.src, f.tables.Ledger), zap.NewNop())
	engine := reconcile.NewEngine(reconcile.Options{
		CommonAnchorDepth:   f.cfg.CommonAnchorDepth,
		AnchorMinStocktakes: f.cfg.AnchorMinStocktakes,
	}, zap.NewNop())
	m := NewMaterializer(f.cfg, 20*time.Millisecond, MaterializerDeps{
		Products: f.products,
		Summary:  f.summary,
		Builder:  builder,
		Engine:   engine,
		Lock:     f.lock,
		Recorder: f.recorder,
	}, zap.NewNop()).(*materializer)
	m.now = func() time.Time { return testNow }
	return m
}

func (f *fixture) persisted(t *testing.T) []models.DailySummaryRow {
	t.Helper()
	snapshot, err := f.summary.Load(context.Background())
	require.NoError(t, err)
	return snapshot.Rows
}

func rowsByKey(rows []models.DailySummaryRow) map[string]models.DailySummaryRow {
	out := make(map[string]models.DailySummaryRow, len(rows))
	for _, r := range rows {
		out[r.Key()] = r
	}
	return out
}

func summaryRow(date time.Time, code string, closing int) []string {
	return []string{models.FormatDay(date), code, tabular.FormatInt(&closing), "", "", "", ""}
}
