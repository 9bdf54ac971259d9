package tracker

// concurrent.go: worker pool para reconciliar mercados en paralelo.
//
// Cada (mercado, depositante) se reconcilia de forma independiente: no hay estado
// compartido entre mercados, así que el orden entre workers es irrelevante.

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/baofinance/harbor-marks/internal/application/poller"
	"github.com/baofinance/harbor-marks/internal/domain"
)

// marketEval es el resultado de reconciliar un mercado.
type marketEval struct {
	market domain.Market
	snap   *domain.CampaignSnapshot
	state  domain.ReconciledCampaignState
	result domain.MarketResult
}

// reconcileMarketsConcurrent reconcilia todos los mercados de un depositante.
//
// Devuelve los resultados en el orden de markets. Si ctx se cancela, los mercados
// ya reconciliados se devuelven y complete es false.
// Si workers <= 0 usa runtime.NumCPU().
func reconcileMarketsConcurrent(
	ctx context.Context,
	cache *poller.SnapshotCache,
	markets []domain.Market,
	depositor string,
	now time.Time,
	workers int,
) (evals []marketEval, complete bool) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	type work struct {
		idx    int
		market domain.Market
	}
	type done struct {
		idx  int
		eval marketEval
	}

	workCh := make(chan work, len(markets))
	resultCh := make(chan done, len(markets))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for w := range workCh {
				if ctx.Err() != nil {
					continue
				}
				resultCh <- done{idx: w.idx, eval: reconcileOne(cache, w.market, depositor, now)}
			}
		}()
	}

	for i, m := range markets {
		workCh <- work{idx: i, market: m}
	}
	close(workCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	slots := make([]*marketEval, len(markets))
	for d := range resultCh {
		e := d.eval
		slots[d.idx] = &e
	}

	evals = make([]marketEval, 0, len(markets))
	for _, e := range slots {
		if e != nil {
			evals = append(evals, *e)
		}
	}
	complete = len(evals) == len(markets)

	slog.Debug("concurrent reconcile complete",
		"depositor", depositor,
		"markets", len(markets),
		"reconciled", len(evals),
		"workers", workers,
	)
	return evals, complete
}

// reconcileOne lee las dos fuentes de la cache y reconcilia un mercado.
func reconcileOne(cache *poller.SnapshotCache, m domain.Market, depositor string, now time.Time) marketEval {
	chain, _ := cache.Chain(m.ID, depositor)
	read := cache.Snapshot(m.ID, depositor)

	snap := read.Snapshot
	if snap == nil && read.Fetched && read.Err == nil {
		// El indexer confirmó que no hay registro: saldo cero, no "cargando".
		snap = &domain.CampaignSnapshot{
			MarketID:      m.ID,
			Depositor:     depositor,
			CampaignID:    m.CampaignID,
			CampaignLabel: m.CampaignLabel,
		}
	}

	state := domain.Reconcile(m, chain, snap, now)
	state.Depositor = depositor

	return marketEval{
		market: m,
		snap:   snap,
		state:  state,
		result: domain.MarketResult{
			MarketID:   m.ID,
			MarketName: m.DisplayName(),
			Snapshot:   snap,
			Chain:      chain,
			Err:        read.Err,
		},
	}
}
