package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CampaignSnapshot es la lectura cruda del indexer para un (mercado, depositante).
//
// Se pasa siempre por valor y nunca se modifica: CurrentMarks es el valor base
// a LastUpdated y toda acumulación posterior se calcula fresca desde ahí.
// Los valores proyectados jamás se escriben de vuelta en un snapshot.
type CampaignSnapshot struct {
	MarketID      string
	Depositor     string
	CampaignID    string
	CampaignLabel string

	IndexerEnded      bool
	CurrentMarks      decimal.Decimal
	CurrentDepositUSD decimal.Decimal // valorado con precios de oráculo a LastUpdated
	MarksPerDay       decimal.Decimal

	BonusMarks                   decimal.Decimal
	EarlyBonusEligibleDepositUSD decimal.Decimal
	EarlyBonusMarks              decimal.Decimal
	QualifiesForEarlyBonus       bool

	// CumulativeDeposits es el total depositado en el mercado (todas las wallets),
	// en unidades del ThresholdToken de la familia.
	CumulativeDeposits decimal.Decimal

	GenesisStartDate time.Time
	GenesisEndDate   time.Time
	LastUpdated      time.Time
}

// CampaignTotals es el agregado del indexer para una campaña completa.
type CampaignTotals struct {
	CampaignID      string
	TotalMarks      decimal.Decimal
	TotalDepositUSD decimal.Decimal
	LastUpdated     time.Time
}

// OptionalBool es un booleano que puede no estar disponible (lectura on-chain fallida).
type OptionalBool struct {
	value bool
	known bool
}

// KnownBool devuelve un OptionalBool con valor conocido.
func KnownBool(v bool) OptionalBool { return OptionalBool{value: v, known: true} }

// UnknownBool devuelve un OptionalBool sin valor.
func UnknownBool() OptionalBool { return OptionalBool{} }

// Get devuelve el valor y si está disponible.
func (o OptionalBool) Get() (value, ok bool) { return o.value, o.known }

// Known indica si el valor está disponible.
func (o OptionalBool) Known() bool { return o.known }

// ChainState es la verdad on-chain de un mercado, leída del contrato genesis.
// Ended es autoritativo cuando está disponible. Los importes son opcionales:
// nil significa que la lectura no se hizo o falló.
type ChainState struct {
	MarketID           string
	Depositor          string
	Ended              OptionalBool
	Deposit            *decimal.Decimal // depósito del usuario en unidades de colateral
	ClaimablePegged    *decimal.Decimal
	ClaimableLeveraged *decimal.Decimal
	ReadAt             time.Time
}

// HasDeposit devuelve true si la cadena confirma un depósito > 0.
func (c *ChainState) HasDeposit() bool {
	return c != nil && c.Deposit != nil && c.Deposit.IsPositive()
}

// Claimable son los importes reclamables de un depositante tras el cierre.
type Claimable struct {
	Pegged    decimal.Decimal
	Leveraged decimal.Decimal
}
