package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Market es un mercado genesis: un contrato de depósitos con su ventana de campaña.
// Varios mercados pueden pertenecer a la misma campaña de rewards (CampaignID).
type Market struct {
	ID            string // dirección del contrato genesis (lowercase)
	Name          string // nombre mostrado en banners, p.ej. "haETH / wstETH"
	CampaignID    string // fallback si el indexer no devuelve campaignId
	CampaignLabel string
	Family        CampaignFamily
	GenesisStart  time.Time // zero = usar la fecha del indexer
	GenesisEnd    time.Time // zero = usar la fecha del indexer
	UnderlyingAPR float64   // APR del colateral subyacente como fracción (0.035 = 3.5%)
}

// DisplayName devuelve el nombre del mercado o su dirección si no tiene nombre.
func (m Market) DisplayName() string {
	if m.Name != "" {
		return m.Name
	}
	return m.ID
}

// CampaignFamily agrupa los mercados que comparten el umbral del early bonus.
// El umbral depende del tipo de colateral y de la familia de campaña.
type CampaignFamily struct {
	Key             string
	Collateral      string
	ThresholdAmount decimal.Decimal // depósitos acumulados que agotan el early bonus
	ThresholdToken  string
	// CollateralDecimals son los decimales del token de colateral on-chain.
	CollateralDecimals int32
}

// Familias conocidas. Los umbrales son constantes del protocolo, no configurables.
var (
	FamilyFxSAVEGenesis = CampaignFamily{
		Key:             "fxsave-genesis",
		Collateral:      "fxSAVE",
		ThresholdAmount: decimal.NewFromInt(25_000),
		ThresholdToken:  "fxSAVE",

		CollateralDecimals: 18,
	}
	FamilyWstETHGenesis = CampaignFamily{
		Key:             "wsteth-genesis",
		Collateral:      "wstETH",
		ThresholdAmount: decimal.NewFromInt(10),
		ThresholdToken:  "wstETH",

		CollateralDecimals: 18,
	}
	FamilyWBTCGenesis = CampaignFamily{
		Key:             "wbtc-genesis",
		Collateral:      "WBTC",
		ThresholdAmount: decimal.RequireFromString("0.5"),
		ThresholdToken:  "WBTC",

		CollateralDecimals: 8,
	}
)

var families = map[string]CampaignFamily{
	FamilyFxSAVEGenesis.Key: FamilyFxSAVEGenesis,
	FamilyWstETHGenesis.Key: FamilyWstETHGenesis,
	FamilyWBTCGenesis.Key:   FamilyWBTCGenesis,
}

// LookupFamily devuelve la familia registrada con la key dada (case-insensitive).
func LookupFamily(key string) (CampaignFamily, bool) {
	f, ok := families[strings.ToLower(strings.TrimSpace(key))]
	return f, ok
}
