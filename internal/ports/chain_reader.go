package ports

import (
	"context"

	"github.com/baofinance/harbor-marks/internal/domain"
	"github.com/shopspring/decimal"
)

// ChainReader lee el estado autoritativo de los contratos genesis.
type ChainReader interface {
	// CampaignEnded devuelve si la campaña del mercado terminó on-chain.
	// Un error significa "no disponible": el reconciliador cae al indexer.
	CampaignEnded(ctx context.Context, marketID string) (bool, error)

	// Claimable devuelve los importes reclamables (pegged, leveraged) de un depositante.
	Claimable(ctx context.Context, marketID, depositor string) (domain.Claimable, error)

	// Deposit devuelve el depósito on-chain del depositante en unidades de colateral,
	// escalado con los decimales del token (decimals <= 0 usa 18).
	Deposit(ctx context.Context, marketID, depositor string, decimals int32) (decimal.Decimal, error)
}
