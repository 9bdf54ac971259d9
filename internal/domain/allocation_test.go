package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllocationPercent_Milestones(t *testing.T) {
	assert.Equal(t, 0.01, AllocationPercent(0))
	assert.Equal(t, 0.01, AllocationPercent(500_000))
	assert.Equal(t, 0.01, AllocationPercent(1_000_000))
	assert.Equal(t, 0.04, AllocationPercent(10_000_000))
	assert.Equal(t, 0.10, AllocationPercent(50_000_000))
	assert.Equal(t, 0.10, AllocationPercent(2_000_000_000))
}

func TestAllocationPercent_Interpolated(t *testing.T) {
	// 30M: 4% + (20M/40M) × 6% = 7%
	p := AllocationPercent(30_000_000)
	assert.Greater(t, p, 0.04)
	assert.Less(t, p, 0.10)
	assert.InDelta(t, 0.07, p, 1e-12)

	// 5.5M: 1% + (4.5M/9M) × 3% = 2.5%
	assert.InDelta(t, 0.025, AllocationPercent(5_500_000), 1e-12)
}

func TestAllocationPercent_NonDecreasingAndContinuous(t *testing.T) {
	prev := AllocationPercent(0)
	for tvl := 0.0; tvl <= 60_000_000; tvl += 50_000 {
		p := AllocationPercent(tvl)
		assert.GreaterOrEqual(t, p, prev, "tvl=%.0f", tvl)
		assert.Less(t, p-prev, 0.001, "salto en tvl=%.0f", tvl)
		prev = p
	}
}

func TestAllocationPercent_InvalidTVL(t *testing.T) {
	assert.Equal(t, 0.01, AllocationPercent(-5))
	assert.Equal(t, 0.01, AllocationPercent(math.NaN()))
	assert.Equal(t, 0.10, AllocationPercent(math.Inf(1)))
}

func TestAllocationAmount(t *testing.T) {
	assert.InDelta(t, 10_000_000.0, AllocationAmount(0), 1e-6)
	assert.InDelta(t, 100_000_000.0, AllocationAmount(80_000_000), 1e-6)
}

func TestAllocationProgress_Thirds(t *testing.T) {
	assert.Equal(t, 0.0, AllocationProgress(0))
	assert.InDelta(t, 1.0/3, AllocationProgress(1_000_000), 1e-12)
	assert.InDelta(t, 2.0/3, AllocationProgress(10_000_000), 1e-12)
	assert.Equal(t, 1.0, AllocationProgress(50_000_000))
	assert.Equal(t, 1.0, AllocationProgress(90_000_000))
	// 500k está a mitad del primer tercio
	assert.InDelta(t, 1.0/6, AllocationProgress(500_000), 1e-12)
}
