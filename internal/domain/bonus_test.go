package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestBonusStatus_ThresholdReachedExactly(t *testing.T) {
	p := BonusStatus(dec("25000"), dec("25000"))
	assert.True(t, p.ThresholdReached)
	assert.Equal(t, 100.0, p.ProgressPercent)
}

func TestBonusStatus_Partial(t *testing.T) {
	p := BonusStatus(dec("6250"), dec("25000"))
	assert.False(t, p.ThresholdReached)
	assert.InDelta(t, 25.0, p.ProgressPercent, 1e-9)
}

func TestBonusStatus_CappedAt100(t *testing.T) {
	p := BonusStatus(dec("40000"), dec("25000"))
	assert.True(t, p.ThresholdReached)
	assert.Equal(t, 100.0, p.ProgressPercent)
}

func TestBonusStatus_NoThreshold(t *testing.T) {
	p := BonusStatus(dec("100"), decimal.Zero)
	assert.False(t, p.ThresholdReached)
	assert.Equal(t, 0.0, p.ProgressPercent)
}

func TestFamilyBonusStatus(t *testing.T) {
	p := FamilyBonusStatus(FamilyFxSAVEGenesis, dec("12500"))
	assert.Equal(t, "fxSAVE", p.ThresholdToken)
	assert.InDelta(t, 50.0, p.ProgressPercent, 1e-9)
}

// --- Early bonus ---

func TestEarlyBonusEligibleUSD(t *testing.T) {
	assert.True(t, dec("1500").Equal(EarlyBonusEligibleUSD(dec("1500"), false)))
	assert.True(t, EarlyBonusEligibleUSD(dec("1500"), true).IsZero())
	assert.True(t, EarlyBonusEligibleUSD(dec("-3"), false).IsZero())
}

func TestEarlyBonusEstimate_BeforeCap(t *testing.T) {
	snap := CampaignSnapshot{CurrentDepositUSD: dec("300")}
	eb := EarlyBonusEstimate(snap, BonusProgress{ThresholdReached: false})
	assert.True(t, dec("300").Equal(eb.EligibleUSD))
	assert.True(t, dec("30000").Equal(eb.Marks)) // 300 × 100
	assert.True(t, eb.Qualifies)
}

func TestEarlyBonusEstimate_AfterCapKeepsLockedAmount(t *testing.T) {
	// Depositó 200 antes del cupo y 300 después: solo 200 califican
	snap := CampaignSnapshot{
		CurrentDepositUSD:            dec("500"),
		EarlyBonusEligibleDepositUSD: dec("200"),
		QualifiesForEarlyBonus:       true,
	}
	eb := EarlyBonusEstimate(snap, BonusProgress{ThresholdReached: true})
	assert.True(t, dec("200").Equal(eb.EligibleUSD))
	assert.True(t, dec("20000").Equal(eb.Marks))
}

func TestEarlyBonusEstimate_AfterCapWithdrawal(t *testing.T) {
	// Retiró por debajo de lo elegible: se acota al depósito vivo
	snap := CampaignSnapshot{
		CurrentDepositUSD:            dec("50"),
		EarlyBonusEligibleDepositUSD: dec("200"),
		QualifiesForEarlyBonus:       true,
	}
	eb := EarlyBonusEstimate(snap, BonusProgress{ThresholdReached: true})
	assert.True(t, dec("50").Equal(eb.EligibleUSD))
}

func TestEarlyBonusEstimate_AfterCapNotQualified(t *testing.T) {
	snap := CampaignSnapshot{CurrentDepositUSD: dec("500")}
	eb := EarlyBonusEstimate(snap, BonusProgress{ThresholdReached: true})
	assert.True(t, eb.EligibleUSD.IsZero())
	assert.False(t, eb.Qualifies)
}

// --- End bonus ---

func TestEndBonus_EndedIsRealized(t *testing.T) {
	eb := EndBonus(ReconciledCampaignState{Ended: true, DepositUSD: dec("100")})
	assert.True(t, eb.Realized)
	assert.True(t, eb.Pending.IsZero(), "no se vuelve a sumar el bonus de cierre")
}

func TestEndBonus_ActiveIsEstimate(t *testing.T) {
	eb := EndBonus(ReconciledCampaignState{DepositUSD: dec("100")})
	assert.False(t, eb.Realized)
	assert.True(t, dec("10000").Equal(eb.Pending))
}

// --- EstimateAtDollar ---

func TestEstimateAtDollar(t *testing.T) {
	// $1: 10/día × 5 días + 100 early + 100 cierre = 250
	e := EstimateAtDollar(5, false)
	assert.True(t, dec("10").Equal(e.MarksPerDay))
	assert.True(t, dec("50").Equal(e.AccruedToEnd))
	assert.True(t, dec("250").Equal(e.TotalMarks), "got %s", e.TotalMarks)

	capped := EstimateAtDollar(5, true)
	assert.True(t, capped.EarlyBonusMarks.IsZero())
	assert.True(t, dec("150").Equal(capped.TotalMarks))

	ended := EstimateAtDollar(-1, true)
	assert.True(t, ended.AccruedToEnd.IsZero())
}
