package indexer

import (
	"github.com/shopspring/decimal"
)

// DTOs raw del indexer GraphQL. Solo se usan dentro de este paquete.
// La conversión a domain se hace en mapping.go.
//
// El indexer serializa BigDecimal y BigInt como strings; decimal.Decimal acepta
// ambos formatos. Los timestamps son segundos unix en string.

// graphQLRequest es el body del POST.
type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// graphQLError es un error devuelto en el campo errors de la respuesta.
type graphQLError struct {
	Message string `json:"message"`
}

// graphQLResponse envuelve cualquier respuesta GraphQL.
type graphQLResponse[T any] struct {
	Data   *T             `json:"data"`
	Errors []graphQLError `json:"errors"`
}

// --- Snapshot por depositante ---

// snapshotData es la respuesta de snapshotQuery.
type snapshotData struct {
	UserMarks *userMarks     `json:"userHarborMarks"`
	Genesis   *genesisMarket `json:"genesisMarket"`
}

// userMarks es el registro de marks de un depositante en un mercado.
type userMarks struct {
	ID                           string          `json:"id"`
	ContractAddress              string          `json:"contractAddress"`
	CampaignID                   string          `json:"campaignId"`
	CampaignLabel                string          `json:"campaignLabel"`
	CurrentMarks                 decimal.Decimal `json:"currentMarks"`
	CurrentDepositUSD            decimal.Decimal `json:"currentDepositUSD"`
	MarksPerDay                  decimal.Decimal `json:"marksPerDay"`
	BonusMarks                   decimal.Decimal `json:"bonusMarks"`
	EarlyBonusEligibleDepositUSD decimal.Decimal `json:"earlyBonusEligibleDepositUSD"`
	EarlyBonusMarks              decimal.Decimal `json:"earlyBonusMarks"`
	QualifiesForEarlyBonus       bool            `json:"qualifiesForEarlyBonus"`
	GenesisEnded                 bool            `json:"genesisEnded"`
	GenesisStartDate             string          `json:"genesisStartDate"`
	GenesisEndDate               string          `json:"genesisEndDate"`
	LastUpdated                  string          `json:"lastUpdated"`
}

// genesisMarket es el agregado del mercado (todas las wallets).
type genesisMarket struct {
	ID                 string          `json:"id"`
	CumulativeDeposits decimal.Decimal `json:"cumulativeDeposits"`
}

// --- Totales de campaña ---

// totalsData es la respuesta de totalsQuery.
type totalsData struct {
	Totals *marksTotals `json:"marksTotals"`
}

// marksTotals es el agregado de una campaña.
type marksTotals struct {
	ID              string          `json:"id"`
	TotalMarks      decimal.Decimal `json:"totalMarks"`
	TotalDepositUSD decimal.Decimal `json:"totalDepositUSD"`
	LastUpdated     string          `json:"lastUpdated"`
}
