package cache

import (
	"context"
	"testing"
	"time"

	"stock-reconciler/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSummaryCacheWithoutRedis(t *testing.T) {
	ctx := context.Background()
	sc := NewSummaryCache(nil, time.Minute, zap.NewNop())
	defer sc.Close()

	_, ok := sc.GetRows(ctx)
	assert.False(t, ok)

	rows := []models.DailySummaryRow{{
		Date:         models.Date(2024, time.January, 1),
		ProductCode:  "P1",
		ClosingStock: 50,
		Discrepancy:  models.IntPtr(-5),
	}}
	sc.SetRows(ctx, rows)

	got, ok := sc.GetRows(ctx)
	require.True(t, ok)
	assert.Equal(t, rows, got)

	require.NoError(t, sc.InvalidateAll(ctx))
	_, ok = sc.GetRows(ctx)
	assert.False(t, ok)

	stats := sc.GetStats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(2), stats.Misses)
	assert.False(t, stats.L2Enabled)
}

func TestSummaryCacheExpires(t *testing.T) {
	ctx := context.Background()
	sc := NewSummaryCache(nil, time.Millisecond, zap.NewNop())
	defer sc.Close()

	sc.SetProducts(ctx, []models.Product{{Code: "P1", IsManaged: true}})
	time.Sleep(5 * time.Millisecond)

	_, ok := sc.GetProducts(ctx)
	assert.False(t, ok)
}
