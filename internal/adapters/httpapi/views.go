package httpapi

import (
	"time"

	"github.com/baofinance/harbor-marks/internal/domain"
	"github.com/shopspring/decimal"
)

// Vistas JSON. Los decimales se serializan como string y los APR indeterminados
// como null, nunca como NaN o 0.

type aprView struct {
	Percent *float64 `json:"percent"`
}

func newAPRView(a domain.APR) aprView {
	if !a.Determined {
		return aprView{}
	}
	p := a.Percent
	return aprView{Percent: &p}
}

type stateView struct {
	MarketID          string          `json:"marketId"`
	MarketName        string          `json:"marketName"`
	CampaignID        string          `json:"campaignId,omitempty"`
	CampaignLabel     string          `json:"campaignLabel,omitempty"`
	Ended             bool            `json:"ended"`
	EndedSource       string          `json:"endedSource"`
	IsProcessing      bool            `json:"isProcessing"`
	ProjectedMarksNow decimal.Decimal `json:"projectedMarksNow"`
	DepositUSD        decimal.Decimal `json:"depositUSD"`
	MarksPerDay       decimal.Decimal `json:"marksPerDay"`
	DataUnavailable   bool            `json:"dataUnavailable"`
	MarksUnavailable  bool            `json:"marksUnavailable"`
}

type bonusView struct {
	MarketID           string          `json:"marketId"`
	CumulativeDeposits decimal.Decimal `json:"cumulativeDeposits"`
	ThresholdAmount    decimal.Decimal `json:"thresholdAmount"`
	ThresholdToken     string          `json:"thresholdToken"`
	ProgressPercent    float64         `json:"progressPercent"`
	ThresholdReached   bool            `json:"thresholdReached"`
	EarlyEligibleUSD   decimal.Decimal `json:"earlyBonusEligibleUSD"`
	EarlyBonusMarks    decimal.Decimal `json:"earlyBonusMarks"`
	QualifiesEarly     bool            `json:"qualifiesForEarlyBonus"`
	EndBonusPending    decimal.Decimal `json:"endBonusPending"`
	EndBonusRealized   bool            `json:"endBonusRealized"`
}

type breakdownView struct {
	UnderlyingPercent   float64 `json:"underlyingPercent"`
	UserShare           float64 `json:"userShare"`
	TokenPrice          float64 `json:"tokenPrice"`
	AllocationPercent   float64 `json:"allocationPercent"`
	AllocatedTokens     float64 `json:"allocatedTokens"`
	ProjectedTokenValue float64 `json:"projectedTokenValue"`
	HorizonDays         float64 `json:"horizonDays"`
}

type aprResultView struct {
	Tide      aprView        `json:"tide"`
	Combined  aprView        `json:"combined"`
	Reason    string         `json:"reason,omitempty"`
	Breakdown *breakdownView `json:"breakdown,omitempty"`
}

type bannersView struct {
	IndexerInfra  []string `json:"indexerInfra"`
	Other         []string `json:"other"`
	OraclePricing []string `json:"oraclePricing"`
}

type reportView struct {
	CycleID            string          `json:"cycleId"`
	Depositor          string          `json:"depositor"`
	EvaluatedAt        time.Time       `json:"evaluatedAt"`
	ActiveCampaign     string          `json:"activeCampaign,omitempty"`
	CampaignMarks      *decimal.Decimal `json:"campaignMarks"`
	CampaignDepositUSD *decimal.Decimal `json:"campaignDepositUSD"`
	MarksIncomplete    bool             `json:"marksIncomplete"`
	TotalCampaignMarks decimal.Decimal  `json:"totalCampaignMarks"`
	DaysRemaining      *float64         `json:"daysRemaining"`
	States             []stateView      `json:"states"`
	Bonuses            []bonusView      `json:"bonuses"`
	APR                aprResultView    `json:"apr"`
	Banners            bannersView      `json:"banners"`
	Partial            bool             `json:"partial"`
}

func newReportView(r domain.DepositorReport) reportView {
	v := reportView{
		CycleID:            r.CycleID,
		Depositor:          r.Depositor,
		EvaluatedAt:        r.EvaluatedAt.UTC(),
		MarksIncomplete:    r.MarksIncomplete,
		TotalCampaignMarks: r.TotalCampaignMarks,
		States:             make([]stateView, 0, len(r.States)),
		Bonuses:            make([]bonusView, 0, len(r.Bonuses)),
		APR: aprResultView{
			Tide:     newAPRView(r.APR.Tide),
			Combined: newAPRView(r.APR.Combined),
			Reason:   r.APR.Reason,
		},
		Banners: bannersView{
			IndexerInfra:  nonNil(r.Banners.IndexerInfra),
			Other:         nonNil(r.Banners.Other),
			OraclePricing: nonNil(r.Banners.OraclePricing),
		},
		Partial: r.Partial,
	}
	if r.HasActiveCampaign {
		v.ActiveCampaign = r.ActiveCampaign
	}
	// Marcas parciales no son ceros confirmados: se serializan como null.
	if !r.MarksIncomplete {
		marks, deposit := r.CampaignMarks, r.CampaignDepositUSD
		v.CampaignMarks, v.CampaignDepositUSD = &marks, &deposit
	}
	if !r.HorizonUnknown {
		days := r.DaysRemaining
		v.DaysRemaining = &days
	}
	if r.APR.Tide.Determined {
		b := r.APR.Breakdown
		v.APR.Breakdown = &breakdownView{
			UnderlyingPercent:   b.UnderlyingPercent,
			UserShare:           b.UserShare,
			TokenPrice:          b.TokenPrice,
			AllocationPercent:   b.AllocationPercent,
			AllocatedTokens:     b.AllocatedTokens,
			ProjectedTokenValue: b.ProjectedTokenValue,
			HorizonDays:         b.HorizonDays,
		}
	}
	for _, s := range r.States {
		v.States = append(v.States, stateView{
			MarketID:          s.MarketID,
			MarketName:        s.MarketName,
			CampaignID:        s.CampaignID,
			CampaignLabel:     s.CampaignLabel,
			Ended:             s.Ended,
			EndedSource:       string(s.EndedSource),
			IsProcessing:      s.IsProcessing,
			ProjectedMarksNow: s.ProjectedMarksNow,
			DepositUSD:        s.DepositUSD,
			MarksPerDay:       s.MarksPerDay,
			DataUnavailable:   s.DataUnavailable,
			MarksUnavailable:  s.MarksUnavailable,
		})
	}
	for _, b := range r.Bonuses {
		v.Bonuses = append(v.Bonuses, bonusView{
			MarketID:           b.MarketID,
			CumulativeDeposits: b.Threshold.CumulativeDeposits,
			ThresholdAmount:    b.Threshold.ThresholdAmount,
			ThresholdToken:     b.Threshold.ThresholdToken,
			ProgressPercent:    b.Threshold.ProgressPercent,
			ThresholdReached:   b.Threshold.ThresholdReached,
			EarlyEligibleUSD:   b.EarlyBonus.EligibleUSD,
			EarlyBonusMarks:    b.EarlyBonus.Marks,
			QualifiesEarly:     b.EarlyBonus.Qualifies,
			EndBonusPending:    b.EndBonus.Pending,
			EndBonusRealized:   b.EndBonus.Realized,
		})
	}
	return v
}

type cycleView struct {
	CycleID        string          `json:"cycleId"`
	Depositor      string          `json:"depositor"`
	EvaluatedAt    time.Time       `json:"evaluatedAt"`
	ActiveCampaign string          `json:"activeCampaign,omitempty"`
	CampaignMarks  decimal.Decimal `json:"campaignMarks"`
	TideAPR        aprView         `json:"tideApr"`
	CombinedAPR    aprView         `json:"combinedApr"`
	InfraErrors    int             `json:"infraErrors"`
	OtherErrors    int             `json:"otherErrors"`
	Partial        bool            `json:"partial"`
}

func newCycleView(c domain.CycleSummary) cycleView {
	return cycleView{
		CycleID:        c.CycleID,
		Depositor:      c.Depositor,
		EvaluatedAt:    c.EvaluatedAt.UTC(),
		ActiveCampaign: c.ActiveCampaign,
		CampaignMarks:  c.CampaignMarks,
		TideAPR:        newAPRView(c.TideAPR),
		CombinedAPR:    newAPRView(c.CombinedAPR),
		InfraErrors:    c.InfraErrors,
		OtherErrors:    c.OtherErrors,
		Partial:        c.Partial,
	}
}

type estimateView struct {
	DaysRemaining    float64         `json:"daysRemaining"`
	ThresholdReached bool            `json:"thresholdReached"`
	DepositUSD       decimal.Decimal `json:"depositUSD"`
	MarksPerDay      decimal.Decimal `json:"marksPerDay"`
	AccruedToEnd     decimal.Decimal `json:"accruedToEnd"`
	EarlyBonusMarks  decimal.Decimal `json:"earlyBonusMarks"`
	EndBonusMarks    decimal.Decimal `json:"endBonusMarks"`
	TotalMarks       decimal.Decimal `json:"totalMarks"`
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
