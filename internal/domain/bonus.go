package domain

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// BonusProgress es el estado del umbral de early bonus de un mercado.
type BonusProgress struct {
	CumulativeDeposits decimal.Decimal
	ThresholdAmount    decimal.Decimal
	ThresholdToken     string
	ProgressPercent    float64 // 0..100
	ThresholdReached   bool
}

// BonusStatus calcula el progreso hacia el umbral de depósitos acumulados.
//
//	progress = min(100, cumulative / threshold × 100)
//
// Un umbral <= 0 significa que no hay umbral configurado: 0% y no alcanzado.
func BonusStatus(cumulativeDeposits, thresholdAmount decimal.Decimal) BonusProgress {
	p := BonusProgress{
		CumulativeDeposits: cumulativeDeposits,
		ThresholdAmount:    thresholdAmount,
	}
	if !thresholdAmount.IsPositive() {
		return p
	}
	p.ThresholdReached = cumulativeDeposits.GreaterThanOrEqual(thresholdAmount)

	pct := cumulativeDeposits.Div(thresholdAmount).Mul(hundred)
	pct = decimal.Min(pct, hundred)
	if pct.IsNegative() {
		pct = decimal.Zero
	}
	p.ProgressPercent = pct.InexactFloat64()
	return p
}

// FamilyBonusStatus aplica BonusStatus con el umbral de la familia del mercado.
func FamilyBonusStatus(f CampaignFamily, cumulativeDeposits decimal.Decimal) BonusProgress {
	p := BonusStatus(cumulativeDeposits, f.ThresholdAmount)
	p.ThresholdToken = f.ThresholdToken
	return p
}

// EarlyBonusEligibleUSD devuelve el depósito que califica para el early bonus.
// Mientras no se alcanza el umbral todo el depósito califica; después, nada nuevo.
func EarlyBonusEligibleUSD(userDepositUSD decimal.Decimal, thresholdReached bool) decimal.Decimal {
	if thresholdReached || !userDepositUSD.IsPositive() {
		return decimal.Zero
	}
	return userDepositUSD
}

// EarlyBonus es la estimación del early bonus de un depositante.
type EarlyBonus struct {
	EligibleUSD decimal.Decimal
	Marks       decimal.Decimal // se aplican al cierre de la campaña
	Qualifies   bool
}

// EarlyBonusEstimate estima el early bonus de un snapshot.
// Con el umbral ya alcanzado solo cuenta lo que el indexer registró como elegible
// (depósitos previos al cierre del cupo), acotado al depósito vivo.
func EarlyBonusEstimate(snap CampaignSnapshot, status BonusProgress) EarlyBonus {
	eligible := EarlyBonusEligibleUSD(snap.CurrentDepositUSD, status.ThresholdReached)
	if status.ThresholdReached && snap.QualifiesForEarlyBonus {
		eligible = decimal.Min(snap.EarlyBonusEligibleDepositUSD, snap.CurrentDepositUSD)
		if eligible.IsNegative() {
			eligible = decimal.Zero
		}
	}
	return EarlyBonus{
		EligibleUSD: eligible,
		Marks:       eligible.Mul(earlyRate),
		Qualifies:   eligible.IsPositive(),
	}
}

// EndBonusEstimate describe el bonus de cierre de un mercado.
// Realized=true: ya está dentro de los marks del indexer, Pending es 0.
// Realized=false: Pending es solo una estimación, no garantizada.
type EndBonusEstimate struct {
	Pending  decimal.Decimal
	Realized bool
}

// EndBonus devuelve el bonus de cierre pendiente para un estado reconciliado.
func EndBonus(s ReconciledCampaignState) EndBonusEstimate {
	if s.Ended {
		return EndBonusEstimate{Pending: decimal.Zero, Realized: true}
	}
	return EndBonusEstimate{Pending: s.DepositUSD.Mul(endBonusRate)}
}

// DollarEstimate es la proyección de marks por cada $1 depositado.
type DollarEstimate struct {
	DepositUSD      decimal.Decimal
	MarksPerDay     decimal.Decimal
	AccruedToEnd    decimal.Decimal
	EarlyBonusMarks decimal.Decimal
	EndBonusMarks   decimal.Decimal
	TotalMarks      decimal.Decimal
}

// EstimateAtDollar proyecta lo que ganaría un depósito de $1 hasta el fin de la campaña.
// Sirve para wallets sin depósito o desconectadas; no toca ningún snapshot real.
func EstimateAtDollar(daysRemaining float64, thresholdReached bool) DollarEstimate {
	one := decimal.NewFromInt(1)
	days := decimal.Zero
	if daysRemaining > 0 {
		days = decimal.NewFromFloat(daysRemaining)
	}

	e := DollarEstimate{
		DepositUSD:      one,
		MarksPerDay:     one.Mul(accrualRate),
		EarlyBonusMarks: EarlyBonusEligibleUSD(one, thresholdReached).Mul(earlyRate),
		EndBonusMarks:   one.Mul(endBonusRate),
	}
	e.AccruedToEnd = e.MarksPerDay.Mul(days)
	e.TotalMarks = e.AccruedToEnd.Add(e.EarlyBonusMarks).Add(e.EndBonusMarks)
	return e
}
