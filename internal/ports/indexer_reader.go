package ports

import (
	"context"

	"github.com/baofinance/harbor-marks/internal/domain"
)

// IndexerReader obtiene snapshots de marks desde el indexer (GraphQL).
// Cada mercado puede fallar de forma independiente.
type IndexerReader interface {
	// FetchSnapshot devuelve el snapshot crudo de un depositante en un mercado.
	// Devuelve (nil, nil) si el depositante no tiene registro en ese mercado.
	FetchSnapshot(ctx context.Context, marketID, depositor string) (*domain.CampaignSnapshot, error)

	// FetchCampaignTotals devuelve los agregados de una campaña.
	FetchCampaignTotals(ctx context.Context, campaignID string) (*domain.CampaignTotals, error)
}
