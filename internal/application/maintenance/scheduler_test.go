package maintenance_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/baofinance/harbor-marks/internal/application/maintenance"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePruner struct {
	before time.Time
	rows   int64
	err    error
}

func (f *fakePruner) Prune(_ context.Context, before time.Time) (int64, error) {
	f.before = before
	return f.rows, f.err
}

func TestPruneNow_UsesRetentionCutoff(t *testing.T) {
	now := time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC)
	store := &fakePruner{rows: 42}

	s, err := maintenance.New(context.Background(), maintenance.Config{
		Clock:     clockwork.NewFakeClockAt(now),
		Store:     store,
		Retention: 72 * time.Hour,
	})
	require.NoError(t, err)

	n, err := s.PruneNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)
	assert.Equal(t, now.Add(-72*time.Hour), store.before)
}

func TestPruneNow_StoreError(t *testing.T) {
	store := &fakePruner{err: errors.New("disk full")}
	s, err := maintenance.New(context.Background(), maintenance.Config{Store: store, Retention: time.Hour})
	require.NoError(t, err)

	_, err = s.PruneNow(context.Background())
	assert.ErrorContains(t, err, "disk full")
}

func TestNew_Validation(t *testing.T) {
	_, err := maintenance.New(context.Background(), maintenance.Config{Retention: time.Hour})
	assert.Error(t, err, "sin store")

	_, err = maintenance.New(context.Background(), maintenance.Config{Store: &fakePruner{}})
	assert.Error(t, err, "sin retención")

	_, err = maintenance.New(context.Background(), maintenance.Config{
		Store:     &fakePruner{},
		Retention: time.Hour,
		PruneSpec: "every tuesday",
	})
	assert.Error(t, err)
}

func TestStartStop(t *testing.T) {
	s, err := maintenance.New(context.Background(), maintenance.Config{
		Store:     &fakePruner{},
		Retention: time.Hour,
		PruneSpec: "@every 1h",
	})
	require.NoError(t, err)
	s.Start()
	s.Stop()
}
