package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNextRun(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	d := NewDaily(2, 0, tokyo, nil, zap.NewNop())

	cases := []struct {
		name string
		from time.Time
		want time.Time
	}{
		{"before run time", time.Date(2024, 1, 10, 1, 30, 0, 0, tokyo), time.Date(2024, 1, 10, 2, 0, 0, 0, tokyo)},
		{"exactly at run time", time.Date(2024, 1, 10, 2, 0, 0, 0, tokyo), time.Date(2024, 1, 11, 2, 0, 0, 0, tokyo)},
		{"after run time", time.Date(2024, 1, 10, 23, 0, 0, 0, tokyo), time.Date(2024, 1, 11, 2, 0, 0, 0, tokyo)},
		{"month end", time.Date(2024, 1, 31, 5, 0, 0, 0, tokyo), time.Date(2024, 2, 1, 2, 0, 0, 0, tokyo)},
		// 2024-01-09 18:00 UTC ya es 2024-01-10 03:00 en Tokio
		{"utc input", time.Date(2024, 1, 9, 18, 0, 0, 0, time.UTC), time.Date(2024, 1, 11, 2, 0, 0, 0, tokyo)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.True(t, tc.want.Equal(d.NextRun(tc.from)), d.NextRun(tc.from))
		})
	}
}

func TestStartRunsJobUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runs := make(chan struct{}, 10)
	calls := 0
	d := NewDaily(2, 0, time.UTC, func(ctx context.Context) error {
		calls++
		runs <- struct{}{}
		if calls == 1 {
			return errors.New("source offline")
		}
		return nil
	}, zap.NewNop())

	fire := make(chan time.Time)
	d.after = func(time.Duration) <-chan time.Time { return fire }

	done := d.Start(ctx)

	fire <- time.Now()
	<-runs
	// Un error no detiene el ciclo
	fire <- time.Now()
	<-runs

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.Equal(t, 2, calls)
}
