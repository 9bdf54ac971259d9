package indexer

import (
	"fmt"
	"strconv"
	"time"

	"github.com/baofinance/harbor-marks/internal/domain"
	"github.com/shopspring/decimal"
)

// mapSnapshot convierte el DTO del indexer a domain.CampaignSnapshot.
func mapSnapshot(u userMarks, g *genesisMarket, marketID, depositor string) (domain.CampaignSnapshot, error) {
	start, err := parseUnix(u.GenesisStartDate)
	if err != nil {
		return domain.CampaignSnapshot{}, fmt.Errorf("genesisStartDate: %w", err)
	}
	end, err := parseUnix(u.GenesisEndDate)
	if err != nil {
		return domain.CampaignSnapshot{}, fmt.Errorf("genesisEndDate: %w", err)
	}
	updated, err := parseUnix(u.LastUpdated)
	if err != nil {
		return domain.CampaignSnapshot{}, fmt.Errorf("lastUpdated: %w", err)
	}

	cumulative := decimal.Zero
	if g != nil {
		cumulative = g.CumulativeDeposits
	}

	return domain.CampaignSnapshot{
		MarketID:                     marketID,
		Depositor:                    depositor,
		CampaignID:                   u.CampaignID,
		CampaignLabel:                u.CampaignLabel,
		IndexerEnded:                 u.GenesisEnded,
		CurrentMarks:                 u.CurrentMarks,
		CurrentDepositUSD:            u.CurrentDepositUSD,
		MarksPerDay:                  u.MarksPerDay,
		BonusMarks:                   u.BonusMarks,
		EarlyBonusEligibleDepositUSD: u.EarlyBonusEligibleDepositUSD,
		EarlyBonusMarks:              u.EarlyBonusMarks,
		QualifiesForEarlyBonus:       u.QualifiesForEarlyBonus,
		CumulativeDeposits:           cumulative,
		GenesisStartDate:             start,
		GenesisEndDate:               end,
		LastUpdated:                  updated,
	}, nil
}

// mapTotals convierte el agregado de campaña.
func mapTotals(t marksTotals, campaignID string) (domain.CampaignTotals, error) {
	updated, err := parseUnix(t.LastUpdated)
	if err != nil {
		return domain.CampaignTotals{}, fmt.Errorf("lastUpdated: %w", err)
	}
	return domain.CampaignTotals{
		CampaignID:      campaignID,
		TotalMarks:      t.TotalMarks,
		TotalDepositUSD: t.TotalDepositUSD,
		LastUpdated:     updated,
	}, nil
}

// parseUnix parsea segundos unix en string. "" y "0" son tiempo cero.
func parseUnix(s string) (time.Time, error) {
	if s == "" || s == "0" {
		return time.Time{}, nil
	}
	secs, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	if secs < 0 {
		return time.Time{}, fmt.Errorf("negative timestamp %d", secs)
	}
	return time.Unix(secs, 0).UTC(), nil
}
