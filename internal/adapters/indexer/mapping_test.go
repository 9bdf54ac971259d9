package indexer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUnix(t *testing.T) {
	ts, err := parseUnix("1773100800")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), ts)

	zero, err := parseUnix("0")
	require.NoError(t, err)
	assert.True(t, zero.IsZero())

	empty, err := parseUnix("")
	require.NoError(t, err)
	assert.True(t, empty.IsZero())

	_, err = parseUnix("-5")
	assert.Error(t, err)
	_, err = parseUnix("1.5")
	assert.Error(t, err)
}

func TestMapSnapshot_NoGenesisAggregate(t *testing.T) {
	snap, err := mapSnapshot(userMarks{CampaignID: "c1", LastUpdated: "1773100800"}, nil, "m1", "d1")
	require.NoError(t, err)
	assert.Equal(t, "m1", snap.MarketID)
	assert.Equal(t, "d1", snap.Depositor)
	assert.True(t, snap.CumulativeDeposits.IsZero())
}
