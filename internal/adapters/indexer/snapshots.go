package indexer

import (
	"context"
	"strings"

	"github.com/baofinance/harbor-marks/internal/domain"
)

const snapshotQuery = `query MarksSnapshot($id: ID!, $market: ID!) {
  userHarborMarks(id: $id) {
    id
    contractAddress
    campaignId
    campaignLabel
    currentMarks
    currentDepositUSD
    marksPerDay
    bonusMarks
    earlyBonusEligibleDepositUSD
    earlyBonusMarks
    qualifiesForEarlyBonus
    genesisEnded
    genesisStartDate
    genesisEndDate
    lastUpdated
  }
  genesisMarket(id: $market) {
    id
    cumulativeDeposits
  }
}`

const totalsQuery = `query MarksTotals($id: ID!) {
  marksTotals(id: $id) {
    id
    totalMarks
    totalDepositUSD
    lastUpdated
  }
}`

// FetchSnapshot devuelve el snapshot crudo de un depositante en un mercado.
// Devuelve (nil, nil) si el indexer no tiene registro para el par.
func (c *Client) FetchSnapshot(ctx context.Context, marketID, depositor string) (*domain.CampaignSnapshot, error) {
	market := strings.ToLower(marketID)
	vars := map[string]any{
		"id":     market + "-" + strings.ToLower(depositor),
		"market": market,
	}
	data, err := query[snapshotData](ctx, c, "FetchSnapshot", snapshotQuery, vars)
	if err != nil {
		return nil, err
	}
	if data.UserMarks == nil {
		return nil, nil
	}
	snap, err := mapSnapshot(*data.UserMarks, data.Genesis, marketID, depositor)
	if err != nil {
		return nil, &Error{Kind: domain.ErrMalformedResponse, Op: "FetchSnapshot", Err: err}
	}
	return &snap, nil
}

// FetchCampaignTotals devuelve los totales de una campaña (todas las wallets).
// Devuelve (nil, nil) si la campaña no existe en el indexer.
func (c *Client) FetchCampaignTotals(ctx context.Context, campaignID string) (*domain.CampaignTotals, error) {
	data, err := query[totalsData](ctx, c, "FetchCampaignTotals", totalsQuery, map[string]any{"id": campaignID})
	if err != nil {
		return nil, err
	}
	if data.Totals == nil {
		return nil, nil
	}
	totals, err := mapTotals(*data.Totals, campaignID)
	if err != nil {
		return nil, &Error{Kind: domain.ErrMalformedResponse, Op: "FetchCampaignTotals", Err: err}
	}
	return &totals, nil
}
