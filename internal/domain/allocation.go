package domain

import "math"

const (
	// TotalTokenSupply es el supply total del token de incentivos.
	TotalTokenSupply = 1_000_000_000
	// DefaultFDV es la valoración totalmente diluida (USD) usada si no se configura otra.
	DefaultFDV = 10_000_000
)

// AllocationMilestone es un punto de la curva TVL → % del supply para depositantes.
type AllocationMilestone struct {
	TVLUSD  float64
	Percent float64 // fracción: 0.01 = 1%
}

// AllocationMilestones define la curva por tramos lineales:
//
//	[0, 1M)    → 1%
//	[1M, 10M)  → 1% → 4%
//	[10M, 50M) → 4% → 10%
//	[50M, ∞)   → 10% (sin extrapolar)
var AllocationMilestones = []AllocationMilestone{
	{TVLUSD: 0, Percent: 0.01},
	{TVLUSD: 1_000_000, Percent: 0.01},
	{TVLUSD: 10_000_000, Percent: 0.04},
	{TVLUSD: 50_000_000, Percent: 0.10},
}

// AllocationPercent devuelve la fracción del supply asignada para un TVL dado.
// TVL negativo o no finito se trata como 0.
func AllocationPercent(tvlUSD float64) float64 {
	ms := AllocationMilestones
	if math.IsNaN(tvlUSD) || tvlUSD <= ms[0].TVLUSD {
		return ms[0].Percent
	}
	last := ms[len(ms)-1]
	if tvlUSD >= last.TVLUSD {
		return last.Percent
	}
	for i := 0; i < len(ms)-1; i++ {
		lo, hi := ms[i], ms[i+1]
		if tvlUSD >= lo.TVLUSD && tvlUSD < hi.TVLUSD {
			frac := (tvlUSD - lo.TVLUSD) / (hi.TVLUSD - lo.TVLUSD)
			return lo.Percent + frac*(hi.Percent-lo.Percent)
		}
	}
	return last.Percent
}

// AllocationAmount devuelve los tokens asignados a depositantes para un TVL dado.
func AllocationAmount(tvlUSD float64) float64 {
	return TotalTokenSupply * AllocationPercent(tvlUSD)
}

// AllocationProgress mapea el TVL a la barra de progreso (0..1) para UI.
// Los tres tramos de $0–$50M ocupan un tercio visual cada uno, sin importar su ancho en dólares.
func AllocationProgress(tvlUSD float64) float64 {
	ms := AllocationMilestones
	if math.IsNaN(tvlUSD) || tvlUSD <= 0 {
		return 0
	}
	segments := len(ms) - 1
	for i := 0; i < segments; i++ {
		lo, hi := ms[i], ms[i+1]
		if tvlUSD < hi.TVLUSD {
			frac := (tvlUSD - lo.TVLUSD) / (hi.TVLUSD - lo.TVLUSD)
			return (float64(i) + frac) / float64(segments)
		}
	}
	return 1
}
