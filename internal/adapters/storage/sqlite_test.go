package storage_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/baofinance/harbor-marks/internal/adapters/storage"
	"github.com/baofinance/harbor-marks/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func makeSnapshot(market string, marks string, updated time.Time) domain.CampaignSnapshot {
	return domain.CampaignSnapshot{
		MarketID:                     market,
		Depositor:                    "0xdep",
		CampaignID:                   "maiden-voyage",
		CampaignLabel:                "Maiden Voyage",
		CurrentMarks:                 decimal.RequireFromString(marks),
		CurrentDepositUSD:            decimal.RequireFromString("1500.25"),
		MarksPerDay:                  decimal.NewFromInt(15_002),
		EarlyBonusEligibleDepositUSD: decimal.NewFromInt(1_000),
		QualifiesForEarlyBonus:       true,
		CumulativeDeposits:           decimal.RequireFromString("18250.75"),
		GenesisStartDate:             baseTime.Add(-30 * 24 * time.Hour),
		GenesisEndDate:               baseTime.Add(20 * 24 * time.Hour),
		LastUpdated:                  updated,
	}
}

func newStore(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// --- Snapshots ---

func TestSQLiteStorage_SaveAndLoadSnapshots(t *testing.T) {
	db := newStore(t)
	ctx := context.Background()

	require.NoError(t, db.SaveSnapshots(ctx, []domain.CampaignSnapshot{
		makeSnapshot("0xbbb", "200", baseTime),
		makeSnapshot("0xaaa", "100.5", baseTime),
	}))

	snaps, err := db.LoadSnapshots(ctx)
	require.NoError(t, err)
	require.Len(t, snaps, 2)

	s := snaps[0]
	assert.Equal(t, "0xaaa", s.MarketID)
	assert.Equal(t, "0xdep", s.Depositor)
	assert.Equal(t, "Maiden Voyage", s.CampaignLabel)
	assert.True(t, decimal.RequireFromString("100.5").Equal(s.CurrentMarks))
	assert.True(t, decimal.RequireFromString("1500.25").Equal(s.CurrentDepositUSD))
	assert.True(t, decimal.RequireFromString("18250.75").Equal(s.CumulativeDeposits))
	assert.True(t, s.QualifiesForEarlyBonus)
	assert.False(t, s.IndexerEnded)
	assert.Equal(t, baseTime, s.LastUpdated)
	assert.Equal(t, baseTime.Add(20*24*time.Hour), s.GenesisEndDate)
}

func TestSQLiteStorage_OlderSnapshotDoesNotOverwrite(t *testing.T) {
	db := newStore(t)
	ctx := context.Background()

	require.NoError(t, db.SaveSnapshots(ctx, []domain.CampaignSnapshot{makeSnapshot("0xaaa", "500", baseTime)}))
	require.NoError(t, db.SaveSnapshots(ctx, []domain.CampaignSnapshot{makeSnapshot("0xaaa", "400", baseTime.Add(-time.Hour))}))
	require.NoError(t, db.SaveSnapshots(ctx, []domain.CampaignSnapshot{makeSnapshot("0xaaa", "450", baseTime)}))

	snaps, err := db.LoadSnapshots(ctx)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.True(t, decimal.NewFromInt(500).Equal(snaps[0].CurrentMarks))
}

func TestSQLiteStorage_NewerSnapshotOverwrites(t *testing.T) {
	db := newStore(t)
	ctx := context.Background()

	require.NoError(t, db.SaveSnapshots(ctx, []domain.CampaignSnapshot{makeSnapshot("0xaaa", "500", baseTime)}))
	require.NoError(t, db.SaveSnapshots(ctx, []domain.CampaignSnapshot{makeSnapshot("0xaaa", "800", baseTime.Add(time.Hour))}))

	snaps, err := db.LoadSnapshots(ctx)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.True(t, decimal.NewFromInt(800).Equal(snaps[0].CurrentMarks))
	assert.Equal(t, baseTime.Add(time.Hour), snaps[0].LastUpdated)
}

func TestSQLiteStorage_SaveEmptySlice(t *testing.T) {
	db := newStore(t)
	assert.NoError(t, db.SaveSnapshots(context.Background(), nil))
	assert.NoError(t, db.SaveCycle(context.Background(), nil))
}

func TestSQLiteStorage_WarmCacheAfterReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "marks.db")
	ctx := context.Background()

	db, err := storage.NewSQLiteStorage(path)
	require.NoError(t, err)
	require.NoError(t, db.SaveSnapshots(ctx, []domain.CampaignSnapshot{makeSnapshot("0xaaa", "500", baseTime)}))
	require.NoError(t, db.Close())

	db, err = storage.NewSQLiteStorage(path)
	require.NoError(t, err)
	defer db.Close()

	// Mismo last_updated con otro valor: la cache precargada lo descarta
	require.NoError(t, db.SaveSnapshots(ctx, []domain.CampaignSnapshot{makeSnapshot("0xaaa", "1", baseTime)}))

	snaps, err := db.LoadSnapshots(ctx)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.True(t, decimal.NewFromInt(500).Equal(snaps[0].CurrentMarks))
}

// --- Cycles ---

func makeReport(cycleID, depositor string, at time.Time, apr domain.APR) domain.DepositorReport {
	return domain.DepositorReport{
		CycleID:        cycleID,
		Depositor:      depositor,
		EvaluatedAt:    at,
		ActiveCampaign: "maiden-voyage",
		CampaignMarks:  decimal.RequireFromString("1234.5"),
		APR:            domain.APRResult{Tide: apr, Combined: apr},
		Banners:        domain.Banners{IndexerInfra: []string{"haBTC"}},
	}
}

func TestSQLiteStorage_SaveAndListCycles(t *testing.T) {
	db := newStore(t)
	ctx := context.Background()

	require.NoError(t, db.SaveCycle(ctx, []domain.DepositorReport{
		makeReport("c1", "0xa", baseTime, domain.NewAPR(12.5)),
		makeReport("c1", "0xb", baseTime, domain.Undetermined()),
	}))
	require.NoError(t, db.SaveCycle(ctx, []domain.DepositorReport{
		makeReport("c2", "0xa", baseTime.Add(time.Minute), domain.NewAPR(13)),
	}))

	all, err := db.ListCycles(ctx, baseTime.Add(-time.Hour), "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c2", all[0].CycleID, "más recientes primero")

	onlyB, err := db.ListCycles(ctx, baseTime.Add(-time.Hour), "0xb")
	require.NoError(t, err)
	require.Len(t, onlyB, 1)
	assert.False(t, onlyB[0].TideAPR.Determined, "APR indeterminado se guarda como NULL")
	assert.Equal(t, 1, onlyB[0].InfraErrors)
	assert.True(t, decimal.RequireFromString("1234.5").Equal(onlyB[0].CampaignMarks))

	a := all[1]
	assert.Equal(t, "0xa", a.Depositor)
	require.True(t, a.TideAPR.Determined)
	assert.InDelta(t, 12.5, a.TideAPR.Percent, 1e-9)
	assert.Equal(t, baseTime, a.EvaluatedAt)
}

func TestSQLiteStorage_Prune(t *testing.T) {
	db := newStore(t)
	ctx := context.Background()

	require.NoError(t, db.SaveCycle(ctx, []domain.DepositorReport{
		makeReport("old", "0xa", baseTime.Add(-48*time.Hour), domain.NewAPR(1)),
		makeReport("new", "0xa", baseTime, domain.NewAPR(2)),
	}))

	n, err := db.Prune(ctx, baseTime.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	left, err := db.ListCycles(ctx, time.Time{}, "")
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "new", left[0].CycleID)
}
