package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func state(market, campaign, marks string, ended bool) ReconciledCampaignState {
	return ReconciledCampaignState{
		MarketID:          market,
		CampaignID:        campaign,
		ProjectedMarksNow: dec(marks),
		DepositUSD:        dec("10"),
		Ended:             ended,
	}
}

func TestSelectActive_PrefersActiveOverHigherMarks(t *testing.T) {
	states := []ReconciledCampaignState{
		state("m1", "A", "500", true),
		state("m2", "B", "300", false),
	}
	id, ok := SelectActive(states)
	require.True(t, ok)
	assert.Equal(t, "B", id)
}

func TestSelectActive_SumsMarketsPerCampaign(t *testing.T) {
	// A: 200 + 250 = 450 > B: 400
	states := []ReconciledCampaignState{
		state("m1", "A", "200", false),
		state("m2", "A", "250", true),
		state("m3", "B", "400", false),
	}
	id, ok := SelectActive(states)
	require.True(t, ok)
	assert.Equal(t, "A", id)
}

func TestSelectActive_AllEndedPicksHighest(t *testing.T) {
	states := []ReconciledCampaignState{
		state("m1", "A", "100", true),
		state("m2", "B", "900", true),
	}
	id, ok := SelectActive(states)
	require.True(t, ok)
	assert.Equal(t, "B", id)
}

func TestSelectActive_TieBreaksByID(t *testing.T) {
	states := []ReconciledCampaignState{
		state("m1", "zeta", "100", false),
		state("m2", "alpha", "100", false),
	}
	id, _ := SelectActive(states)
	assert.Equal(t, "alpha", id)
}

func TestSelectActive_Empty(t *testing.T) {
	_, ok := SelectActive(nil)
	assert.False(t, ok)

	_, ok = SelectActive([]ReconciledCampaignState{{MarketID: "m1", DataUnavailable: true}})
	assert.False(t, ok, "estados sin datos no cuentan")
}

func TestSelectActive_EmptyCampaignGroupsByMarket(t *testing.T) {
	states := []ReconciledCampaignState{
		state("m1", "", "10", false),
		state("m2", "", "20", false),
	}
	id, ok := SelectActive(states)
	require.True(t, ok)
	assert.Equal(t, "m2", id)
}

func TestFilterByCampaign_NoLeakage(t *testing.T) {
	states := []ReconciledCampaignState{
		state("m1", "A", "200", false),
		state("m2", "B", "300", false),
		state("m3", "A", "50", false),
	}
	filtered := FilterByCampaign(states, "A")
	require.Len(t, filtered, 2)
	assert.True(t, dec("250").Equal(SumMarks(filtered)))
	assert.True(t, dec("20").Equal(SumDepositUSD(filtered)))
}

func TestSummarizeCampaigns(t *testing.T) {
	states := []ReconciledCampaignState{
		state("m2", "B", "300", true),
		state("m1", "A", "200", false),
		state("m3", "A", "50", true),
	}
	sums := SummarizeCampaigns(states)
	require.Len(t, sums, 2)
	assert.Equal(t, "A", sums[0].CampaignID)
	assert.True(t, sums[0].IsActive)
	assert.Equal(t, 2, sums[0].Markets)
	assert.False(t, sums[1].IsActive)
}
