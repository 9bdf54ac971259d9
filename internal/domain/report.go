package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MarketBonus agrupa las estimaciones de bonus de un mercado para un depositante.
type MarketBonus struct {
	MarketID   string
	Threshold  BonusProgress
	EarlyBonus EarlyBonus
	EndBonus   EndBonusEstimate
}

// DepositorReport es el resultado de una evaluación para un depositante.
type DepositorReport struct {
	CycleID     string
	Depositor   string
	EvaluatedAt time.Time

	States    []ReconciledCampaignState
	Campaigns []CampaignSummary

	ActiveCampaign    string
	HasActiveCampaign bool
	// CampaignMarks y CampaignDepositUSD solo incluyen mercados de ActiveCampaign.
	CampaignMarks      decimal.Decimal
	CampaignDepositUSD decimal.Decimal
	// MarksIncomplete: algún mercado de la campaña no tiene snapshot del indexer,
	// así que CampaignMarks y CampaignDepositUSD no son un saldo confirmado.
	MarksIncomplete    bool
	TotalCampaignMarks decimal.Decimal // todos los depositantes, proyectado
	DaysRemaining      float64
	// HorizonUnknown: ningún mercado activo de la campaña tiene fecha de fin conocida.
	HorizonUnknown bool

	Bonuses []MarketBonus
	APR     APRResult
	Banners Banners

	// Partial indica que la evaluación se canceló y faltan mercados.
	Partial bool
}

// StateFor devuelve el estado reconciliado de un mercado, si existe.
func (r DepositorReport) StateFor(marketID string) (ReconciledCampaignState, bool) {
	for _, s := range r.States {
		if s.MarketID == marketID {
			return s, true
		}
	}
	return ReconciledCampaignState{}, false
}

// CycleSummary es la fila persistida por evaluación y depositante.
// Solo guarda agregados: nunca los estados proyectados completos.
type CycleSummary struct {
	CycleID        string
	Depositor      string
	EvaluatedAt    time.Time
	ActiveCampaign string
	CampaignMarks  decimal.Decimal
	TideAPR        APR
	CombinedAPR    APR
	InfraErrors    int
	OtherErrors    int
	Partial        bool
}

// Summary resume el reporte para persistirlo.
func (r DepositorReport) Summary() CycleSummary {
	return CycleSummary{
		CycleID:        r.CycleID,
		Depositor:      r.Depositor,
		EvaluatedAt:    r.EvaluatedAt,
		ActiveCampaign: r.ActiveCampaign,
		CampaignMarks:  r.CampaignMarks,
		TideAPR:        r.APR.Tide,
		CombinedAPR:    r.APR.Combined,
		InfraErrors:    len(r.Banners.IndexerInfra),
		OtherErrors:    len(r.Banners.Other),
		Partial:        r.Partial,
	}
}
