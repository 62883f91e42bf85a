package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"stock-reconciler/internal/config"
	"stock-reconciler/internal/ledger"
	"stock-reconciler/internal/tabular"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func memoryConfig() *config.Config {
	cfg := &config.Config{
		Tabular: config.TabularConfig{Backend: config.BackendMemory, DefaultSourceID: "store"},
		Tables:  config.DefaultTables("store"),
		Reconcile: config.ReconcileConfig{
			WindowDays:          90,
			CommonAnchorDepth:   12,
			AnchorMinStocktakes: 13,
			DiscrepancyPolicy:   config.PolicyPreviousClose,
			ExpirationPolicy:    config.PolicyAlertLead,
			WriteStrategy:       config.WriteReplace,
			SortOrder:           config.SortAsc,
			Timezone:            "Asia/Tokyo",
		},
		Lock:      config.LockConfig{Backend: config.LockLocal, Wait: time.Second},
		Scheduler: config.SchedulerConfig{Hour: 2},
	}
	cfg.Server.GinMode = gin.TestMode
	return cfg
}

func TestNewWiresMemoryBackend(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, memoryConfig(), zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	ensured, err := a.InitTables(ctx)
	require.NoError(t, err)
	assert.Len(t, ensured, 7)

	// Agregar un producto y una entrega, luego materializar todo
	src := a.Source.(*tabular.MemorySource)
	require.NoError(t, src.AppendRow(ctx, "store", "products", []string{"P1", "Onigiri", "", "3", "1", "10", "TRUE"}))
	today := time.Now().In(a.Config.Reconcile.Location()).Format("2006-01-02")
	require.NoError(t, src.AppendRow(ctx, "store", "deliveries", []string{"d1", "", today, "P1", "5", ""}))

	result, err := a.Materializer.Run(ctx, ledger.ModeFull, "test")
	require.NoError(t, err)
	assert.Equal(t, 1, result.RowsWritten)

	// Crear tablas de nuevo no borra datos
	_, err = a.InitTables(ctx)
	require.NoError(t, err)
	rows, err := src.ReadTable(ctx, "store", "daily_summary")
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	a.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/inventory/latest", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"closing_stock":5`)
}

func TestRedisLockRequiresRedis(t *testing.T) {
	cfg := memoryConfig()
	cfg.Lock.Backend = config.LockRedis

	_, err := New(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)
}

func TestUnknownBackend(t *testing.T) {
	cfg := memoryConfig()
	cfg.Tabular.Backend = "csv"

	_, err := New(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)
}

func TestNewLoggerFallsBackToInfo(t *testing.T) {
	cfg := memoryConfig()
	cfg.Logging.Level = "verbose"
	logger, err := NewLogger(cfg)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zap.InfoLevel))
	assert.False(t, logger.Core().Enabled(zap.DebugLevel))
}
