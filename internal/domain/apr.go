package domain

import (
	"fmt"
	"math"
)

// MinHorizonDays es el horizonte mínimo de anualización (1 hora) para que un
// mercado a punto de cerrar no produzca un APR infinito.
const MinHorizonDays = 1.0 / 24

// APR es un porcentaje que puede ser indeterminado.
// Un APR indeterminado nunca se muestra como 0 ni como un número engañoso.
type APR struct {
	Percent    float64
	Determined bool
}

// Undetermined devuelve el marcador de APR indeterminado.
func Undetermined() APR { return APR{} }

// NewAPR devuelve un APR determinado, o indeterminado si pct no es finito.
func NewAPR(pct float64) APR {
	if math.IsNaN(pct) || math.IsInf(pct, 0) {
		return Undetermined()
	}
	return APR{Percent: pct, Determined: true}
}

// String formatea el APR para presentación.
func (a APR) String() string {
	if !a.Determined {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", a.Percent)
}

// APRInput son las entradas del cálculo de APR de incentivos.
type APRInput struct {
	UnderlyingAPR  float64 // fracción: 0.035 = 3.5%
	UserMarks      float64 // marks proyectados del usuario en la campaña seleccionada
	TotalMarks     float64 // marks proyectados totales de la campaña
	UserDepositUSD float64
	TotalTVL       float64 // TVL agregado del protocolo en USD
	DaysRemaining  float64
	FDV            float64 // valoración totalmente diluida en USD
	// HorizonUnknown: no hay fecha de fin conocida o la campaña ya cerró.
	HorizonUnknown bool
}

// APRBreakdown expone los pasos intermedios del cálculo.
type APRBreakdown struct {
	UnderlyingPercent   float64
	UserShare           float64
	TokenPrice          float64
	AllocationPercent   float64
	AllocatedTokens     float64
	ProjectedTokenValue float64
	HorizonDays         float64
}

// APRResult es el resultado de ComposeAPR.
type APRResult struct {
	Tide      APR
	Combined  APR
	Breakdown APRBreakdown
	Reason    string // por qué el APR es indeterminado (vacío si está determinado)
}

// ComposeAPR calcula el APR proyectado de incentivos y el APR combinado.
//
// Fórmula:
//
//	userShare      = userMarks / totalMarks
//	tokenPrice     = fdv / TotalTokenSupply
//	projectedValue = userShare × AllocationAmount(totalTVL) × tokenPrice
//	tideAPR        = projectedValue / deposit × 365 / max(daysRemaining, ε) × 100
//	combinedAPR    = underlyingAPR × 100 + tideAPR
//
// La anualización usa los días restantes, no la duración total de la campaña.
// Cualquier división por cero o valor no finito devuelve Undetermined, igual que
// un horizonte desconocido: el mínimo ε solo aplica a mercados a punto de cerrar.
func ComposeAPR(in APRInput) APRResult {
	res := APRResult{
		Tide:     Undetermined(),
		Combined: Undetermined(),
		Breakdown: APRBreakdown{
			UnderlyingPercent: in.UnderlyingAPR * 100,
			AllocationPercent: AllocationPercent(in.TotalTVL),
			HorizonDays:       math.Max(in.DaysRemaining, MinHorizonDays),
		},
	}

	for _, v := range []float64{in.UnderlyingAPR, in.UserMarks, in.TotalMarks, in.UserDepositUSD, in.TotalTVL, in.DaysRemaining, in.FDV} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			res.Reason = "non-finite input"
			return res
		}
	}
	switch {
	case in.TotalMarks <= 0:
		res.Reason = "no campaign marks"
		return res
	case in.UserDepositUSD <= 0:
		res.Reason = "no deposit"
		return res
	case in.FDV <= 0:
		res.Reason = "no valuation"
		return res
	case in.HorizonUnknown:
		res.Reason = "no campaign horizon"
		return res
	}

	b := &res.Breakdown
	b.UserShare = in.UserMarks / in.TotalMarks
	b.TokenPrice = in.FDV / TotalTokenSupply
	b.AllocatedTokens = AllocationAmount(in.TotalTVL)
	b.ProjectedTokenValue = b.UserShare * b.AllocatedTokens * b.TokenPrice

	tide := (b.ProjectedTokenValue / in.UserDepositUSD) * (365 / b.HorizonDays) * 100
	res.Tide = NewAPR(tide)
	if !res.Tide.Determined {
		res.Reason = "non-finite result"
		return res
	}
	res.Combined = NewAPR(b.UnderlyingPercent + tide)
	if !res.Combined.Determined {
		res.Reason = "non-finite result"
	}
	return res
}
