package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// AccrualRatePerDollarPerDay son los marks que genera $1 depositado por día.
	AccrualRatePerDollarPerDay = 10
	// EndBonusPerDollar se aplica al cerrar la campaña sobre el depósito vivo.
	EndBonusPerDollar = 100
	// EarlyBonusPerDollar se aplica al cierre sobre el depósito elegible.
	EarlyBonusPerDollar = 100

	millisPerDay = 86_400_000
)

var (
	accrualRate  = decimal.NewFromInt(AccrualRatePerDollarPerDay)
	endBonusRate = decimal.NewFromInt(EndBonusPerDollar)
	earlyRate    = decimal.NewFromInt(EarlyBonusPerDollar)
	dayMillis    = decimal.NewFromInt(millisPerDay)
)

// EndedSource indica de dónde sale el flag Ended de un estado reconciliado.
type EndedSource string

const (
	EndedFromChain   EndedSource = "chain"
	EndedFromIndexer EndedSource = "indexer"
	EndedDefault     EndedSource = "default"
)

// ReconciledCampaignState es la vista derivada de un mercado para un depositante.
// Es efímera: se recalcula en cada evaluación y nunca se persiste.
type ReconciledCampaignState struct {
	MarketID      string
	MarketName    string
	Depositor     string
	CampaignID    string
	CampaignLabel string

	Ended       bool
	EndedSource EndedSource
	// IsProcessing: la ventana terminó pero la cadena aún no confirma el cierre.
	IsProcessing bool

	ProjectedMarksNow decimal.Decimal
	DepositUSD        decimal.Decimal
	MarksPerDay       decimal.Decimal

	// DataUnavailable: ni cadena ni indexer respondieron todavía (estado "loading").
	DataUnavailable bool
	// MarksUnavailable: no hay snapshot del indexer; los marks no son un cero confirmado.
	MarksUnavailable bool
}

// GroupKey devuelve la clave de agrupación por campaña (el mercado si no hay campaignId).
func (s ReconciledCampaignState) GroupKey() string {
	if s.CampaignID != "" {
		return s.CampaignID
	}
	return s.MarketID
}

// Reconcile combina el estado on-chain y el snapshot del indexer de un mercado.
//
// chain y snap pueden ser nil (fuente no disponible). El snapshot se lee pero no
// se toca: los marks proyectados se derivan siempre de CurrentMarks y LastUpdated,
// de modo que dos llamadas con el mismo now devuelven exactamente lo mismo.
func Reconcile(market Market, chain *ChainState, snap *CampaignSnapshot, now time.Time) ReconciledCampaignState {
	state := ReconciledCampaignState{
		MarketID:          market.ID,
		MarketName:        market.DisplayName(),
		CampaignID:        market.CampaignID,
		CampaignLabel:     market.CampaignLabel,
		EndedSource:       EndedDefault,
		ProjectedMarksNow: decimal.Zero,
		DepositUSD:        decimal.Zero,
		MarksPerDay:       decimal.Zero,
	}

	chainEnded, chainKnown := false, false
	if chain != nil {
		chainEnded, chainKnown = chain.Ended.Get()
		state.Depositor = chain.Depositor
	}

	switch {
	case chainKnown:
		state.Ended = chainEnded
		state.EndedSource = EndedFromChain
	case snap != nil:
		state.Ended = snap.IndexerEnded
		state.EndedSource = EndedFromIndexer
	}

	start, end := effectiveWindow(market, snap)
	if !end.IsZero() && now.After(end) && !state.Ended {
		state.IsProcessing = true
	}

	if snap == nil {
		state.MarksUnavailable = true
		state.DataUnavailable = !chainKnown
		return state
	}

	state.Depositor = snap.Depositor
	if snap.CampaignID != "" {
		state.CampaignID = snap.CampaignID
	}
	if snap.CampaignLabel != "" {
		state.CampaignLabel = snap.CampaignLabel
	}
	state.DepositUSD = snap.CurrentDepositUSD
	state.MarksPerDay = snap.MarksPerDay

	switch {
	case state.Ended:
		// El indexer ya incluyó el bonus de cierre en CurrentMarks.
		state.ProjectedMarksNow = snap.CurrentMarks
	case snap.CurrentDepositUSD.IsPositive() && !start.IsZero() && start.Unix() > 0:
		state.ProjectedMarksNow = ProjectMarks(snap.CurrentMarks, snap.CurrentDepositUSD, snap.LastUpdated, now)
	default:
		state.ProjectedMarksNow = snap.CurrentMarks
	}

	return state
}

// ProjectMarks extrapola marks desde base (válido a lastUpdated) hasta now:
//
//	base + depositUSD × 10 × max(0, días transcurridos)
//
// El tiempo transcurrido se recorta a 0 si el reloj local va por detrás del indexer.
func ProjectMarks(base, depositUSD decimal.Decimal, lastUpdated, now time.Time) decimal.Decimal {
	if !depositUSD.IsPositive() || lastUpdated.IsZero() {
		return base
	}
	elapsedMillis := now.UnixMilli() - lastUpdated.UnixMilli()
	if elapsedMillis <= 0 {
		return base
	}
	days := decimal.NewFromInt(elapsedMillis).Div(dayMillis)
	return base.Add(depositUSD.Mul(accrualRate).Mul(days))
}

// effectiveWindow aplica las fechas de configuración sobre las del indexer.
func effectiveWindow(m Market, snap *CampaignSnapshot) (start, end time.Time) {
	if snap != nil {
		start, end = snap.GenesisStartDate, snap.GenesisEndDate
	}
	if !m.GenesisStart.IsZero() {
		start = m.GenesisStart
	}
	if !m.GenesisEnd.IsZero() {
		end = m.GenesisEnd
	}
	return start, end
}

// DaysRemaining devuelve los días que quedan hasta el fin de la ventana (0 si ya terminó).
// ok es false si no hay fecha de fin ni en la configuración ni en el indexer.
func DaysRemaining(m Market, snap *CampaignSnapshot, now time.Time) (days float64, ok bool) {
	_, end := effectiveWindow(m, snap)
	if end.IsZero() || end.Unix() <= 0 {
		return 0, false
	}
	if !end.After(now) {
		return 0, true
	}
	return end.Sub(now).Hours() / 24, true
}
