package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseAPRInput() APRInput {
	return APRInput{
		UnderlyingAPR:  0.05,
		UserMarks:      1_000,
		TotalMarks:     100_000,
		UserDepositUSD: 10_000,
		TotalTVL:       500_000,
		DaysRemaining:  365,
		FDV:            10_000_000,
	}
}

func TestComposeAPR_Basic(t *testing.T) {
	// share = 1%, price = 0.01, allocated = 10M tokens (TVL < 1M → 1%)
	// value = 0.01 × 10M × 0.01 = $1000 → 1000/10000 × 365/365 × 100 = 10%
	res := ComposeAPR(baseAPRInput())

	require.True(t, res.Tide.Determined)
	assert.InDelta(t, 10.0, res.Tide.Percent, 1e-9)
	assert.InDelta(t, 15.0, res.Combined.Percent, 1e-9) // 5% + 10%
	assert.Empty(t, res.Reason)

	b := res.Breakdown
	assert.InDelta(t, 0.01, b.UserShare, 1e-12)
	assert.InDelta(t, 0.01, b.TokenPrice, 1e-12)
	assert.InDelta(t, 10_000_000.0, b.AllocatedTokens, 1e-6)
	assert.InDelta(t, 1_000.0, b.ProjectedTokenValue, 1e-6)
	assert.InDelta(t, 5.0, b.UnderlyingPercent, 1e-12)
}

func TestComposeAPR_AnnualizesFromRemainingDays(t *testing.T) {
	// Mismo valor proyectado con 36.5 días restantes → ×10
	in := baseAPRInput()
	in.DaysRemaining = 36.5
	res := ComposeAPR(in)
	require.True(t, res.Tide.Determined)
	assert.InDelta(t, 100.0, res.Tide.Percent, 1e-9)
}

func TestComposeAPR_ZeroTotalMarksIsUndetermined(t *testing.T) {
	in := baseAPRInput()
	in.TotalMarks = 0
	res := ComposeAPR(in)

	assert.False(t, res.Tide.Determined)
	assert.False(t, res.Combined.Determined)
	assert.False(t, math.IsNaN(res.Tide.Percent))
	assert.False(t, math.IsInf(res.Tide.Percent, 0))
	assert.Equal(t, "n/a", res.Tide.String())
	assert.NotEmpty(t, res.Reason)
}

func TestComposeAPR_ZeroDepositIsUndetermined(t *testing.T) {
	in := baseAPRInput()
	in.UserDepositUSD = 0
	assert.False(t, ComposeAPR(in).Combined.Determined)
}

func TestComposeAPR_NonFiniteInputIsUndetermined(t *testing.T) {
	in := baseAPRInput()
	in.UserMarks = math.NaN()
	assert.False(t, ComposeAPR(in).Tide.Determined)

	in = baseAPRInput()
	in.TotalTVL = math.Inf(1)
	assert.False(t, ComposeAPR(in).Tide.Determined)
}

func TestComposeAPR_NoValuation(t *testing.T) {
	in := baseAPRInput()
	in.FDV = 0
	res := ComposeAPR(in)
	assert.False(t, res.Tide.Determined)
	assert.Equal(t, "no valuation", res.Reason)
}

func TestComposeAPR_HorizonFloor(t *testing.T) {
	// Mercado cerrando: daysRemaining = 0 → se usa el mínimo, resultado finito
	in := baseAPRInput()
	in.DaysRemaining = 0
	res := ComposeAPR(in)
	require.True(t, res.Tide.Determined)
	assert.Equal(t, MinHorizonDays, res.Breakdown.HorizonDays)
	assert.InDelta(t, 10.0*365*24, res.Tide.Percent, 1e-6)
}

func TestComposeAPR_UnknownHorizonIsUndetermined(t *testing.T) {
	in := baseAPRInput()
	in.DaysRemaining = 0
	in.HorizonUnknown = true
	res := ComposeAPR(in)

	assert.False(t, res.Tide.Determined)
	assert.False(t, res.Combined.Determined)
	assert.Equal(t, "no campaign horizon", res.Reason)
}

func TestNewAPR(t *testing.T) {
	assert.True(t, NewAPR(12.5).Determined)
	assert.Equal(t, "12.50%", NewAPR(12.5).String())
	assert.False(t, NewAPR(math.NaN()).Determined)
	assert.False(t, NewAPR(math.Inf(-1)).Determined)
}
