package tracker

import (
	"context"
	"math"
	"time"

	"github.com/baofinance/harbor-marks/internal/domain"
	"github.com/baofinance/harbor-marks/internal/metrics"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Evaluate calcula un reporte por depositante a partir de la cache.
//
// Si ctx se cancela a mitad, devuelve los reportes ya calculados (el último
// marcado como Partial) junto con ctx.Err().
func (t *Tracker) Evaluate(ctx context.Context) ([]domain.DepositorReport, error) {
	start := t.cfg.Clock.Now()
	now := start.UTC()
	cycleID := uuid.NewString()

	reports := make([]domain.DepositorReport, 0, len(t.cfg.Depositors))
	for _, dep := range t.cfg.Depositors {
		if ctx.Err() != nil {
			break
		}
		r := t.evaluateDepositor(ctx, cycleID, dep, now)
		reports = append(reports, r)
		if r.Partial {
			break
		}
	}

	metrics.EvaluationDuration.Observe(t.cfg.Clock.Since(start).Seconds())

	if err := ctx.Err(); err != nil {
		metrics.EvaluationTotal.WithLabelValues("partial").Inc()
		t.log.Warn("evaluation cancelled", "cycle", cycleID, "reports", len(reports))
		if len(reports) == 0 {
			return nil, err
		}
		return reports, err
	}

	metrics.EvaluationTotal.WithLabelValues("ok").Inc()
	t.log.Debug("evaluation complete", "cycle", cycleID, "reports", len(reports))
	return reports, nil
}

// evaluateDepositor reconcilia los mercados de un depositante y compone su reporte.
func (t *Tracker) evaluateDepositor(ctx context.Context, cycleID, depositor string, now time.Time) domain.DepositorReport {
	evals, complete := reconcileMarketsConcurrent(ctx, t.cfg.Cache, t.cfg.Markets, depositor, now, t.cfg.Workers)

	states := make([]domain.ReconciledCampaignState, 0, len(evals))
	results := make([]domain.MarketResult, 0, len(evals))
	for _, e := range evals {
		states = append(states, e.state)
		results = append(results, e.result)
		metrics.MarketResultsTotal.WithLabelValues(domain.Classify(e.result).Class.String()).Inc()
	}

	report := domain.DepositorReport{
		CycleID:            cycleID,
		Depositor:          depositor,
		EvaluatedAt:        now,
		States:             states,
		Campaigns:          domain.SummarizeCampaigns(states),
		CampaignMarks:      decimal.Zero,
		CampaignDepositUSD: decimal.Zero,
		TotalCampaignMarks: decimal.Zero,
		APR: domain.APRResult{
			Tide:     domain.Undetermined(),
			Combined: domain.Undetermined(),
			Reason:   "no campaign data",
		},
		Banners: domain.AggregateErrors(results),
		Partial: !complete,
	}

	active, ok := domain.SelectActive(states)
	if !ok {
		return report
	}
	report.ActiveCampaign = active
	report.HasActiveCampaign = true

	var selected []marketEval
	for _, e := range evals {
		if !e.state.DataUnavailable && e.state.GroupKey() == active {
			selected = append(selected, e)
		}
	}
	filtered := domain.FilterByCampaign(states, active)

	report.CampaignMarks = domain.SumMarks(filtered)
	report.CampaignDepositUSD = domain.SumDepositUSD(filtered)
	report.MarksIncomplete = marksIncomplete(selected)
	report.TotalCampaignMarks = t.projectedTotal(active, selected, report.CampaignMarks, now)
	days, horizonKnown := daysRemaining(selected, now)
	report.DaysRemaining = days
	report.HorizonUnknown = !horizonKnown
	report.Bonuses = bonuses(selected)

	if report.MarksIncomplete {
		report.APR = domain.APRResult{
			Tide:     domain.Undetermined(),
			Combined: domain.Undetermined(),
			Reason:   "marks unavailable",
		}
		return report
	}

	report.APR = domain.ComposeAPR(domain.APRInput{
		UnderlyingAPR:  underlyingAPR(selected),
		UserMarks:      report.CampaignMarks.InexactFloat64(),
		TotalMarks:     report.TotalCampaignMarks.InexactFloat64(),
		UserDepositUSD: report.CampaignDepositUSD.InexactFloat64(),
		TotalTVL:       t.protocolTVL().InexactFloat64(),
		DaysRemaining:  report.DaysRemaining,
		FDV:            t.cfg.FDV,
		HorizonUnknown: report.HorizonUnknown,
	})
	return report
}

// marksIncomplete indica si algún mercado con datos on-chain carece de snapshot del indexer.
func marksIncomplete(selected []marketEval) bool {
	for _, e := range selected {
		if e.state.MarksUnavailable {
			return true
		}
	}
	return false
}

// projectedTotal proyecta los marks totales de la campaña hasta now.
// Nunca devuelve menos que los marks del propio depositante.
// Mientras quede algún mercado activo se proyecta sobre el depósito de toda la
// campaña, porque el indexer no lo desglosa por mercado.
func (t *Tracker) projectedTotal(campaignID string, selected []marketEval, userMarks decimal.Decimal, now time.Time) decimal.Decimal {
	totals, _ := t.cfg.Cache.Totals(campaignID)
	if totals == nil {
		return decimal.Zero
	}

	allEnded := len(selected) > 0
	for _, e := range selected {
		if !e.state.Ended {
			allEnded = false
			break
		}
	}

	total := totals.TotalMarks
	if !allEnded {
		total = domain.ProjectMarks(totals.TotalMarks, totals.TotalDepositUSD, totals.LastUpdated, now)
	}
	if total.LessThan(userMarks) {
		return userMarks
	}
	return total
}

// protocolTVL suma el TVL de todas las campañas conocidas.
func (t *Tracker) protocolTVL() decimal.Decimal {
	tvl := decimal.Zero
	for _, c := range t.cfg.Cache.AllTotals() {
		tvl = tvl.Add(c.TotalDepositUSD)
	}
	return tvl
}

// daysRemaining devuelve el máximo de días restantes entre los mercados activos.
// known es false si todos cerraron o ninguno activo tiene fecha de fin.
func daysRemaining(selected []marketEval, now time.Time) (days float64, known bool) {
	for _, e := range selected {
		if e.state.Ended {
			continue
		}
		d, ok := domain.DaysRemaining(e.market, e.snap, now)
		if !ok {
			continue
		}
		days = math.Max(days, d)
		known = true
	}
	return days, known
}

// bonuses calcula el progreso del cupo early y los bonus estimados por mercado.
func bonuses(selected []marketEval) []domain.MarketBonus {
	out := make([]domain.MarketBonus, 0, len(selected))
	for _, e := range selected {
		if e.snap == nil {
			continue
		}
		status := domain.FamilyBonusStatus(e.market.Family, e.snap.CumulativeDeposits)
		out = append(out, domain.MarketBonus{
			MarketID:   e.market.ID,
			Threshold:  status,
			EarlyBonus: domain.EarlyBonusEstimate(*e.snap, status),
			EndBonus:   domain.EndBonus(e.state),
		})
	}
	return out
}

// underlyingAPR es el APR del colateral ponderado por depósito.
// Sin depósitos usa la media simple.
func underlyingAPR(selected []marketEval) float64 {
	if len(selected) == 0 {
		return 0
	}
	var weighted, weights, plain float64
	for _, e := range selected {
		w := e.state.DepositUSD.InexactFloat64()
		weighted += e.market.UnderlyingAPR * w
		weights += w
		plain += e.market.UnderlyingAPR
	}
	if weights > 0 {
		return weighted / weights
	}
	return plain / float64(len(selected))
}
