package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/baofinance/harbor-marks/internal/domain"
	"github.com/baofinance/harbor-marks/internal/metrics"
	"github.com/baofinance/harbor-marks/internal/ports"
)

const sourceChain = "chain"

// ChainPoller lee el flag de cierre y los importes on-chain de cada mercado.
// Es barato y rápido: corre con un intervalo más corto que el del indexer.
type ChainPoller struct {
	*loop
	cfg    Config
	reader ports.ChainReader
}

// NewChainPoller crea un ChainPoller.
func NewChainPoller(cfg Config, reader ports.ChainReader) (*ChainPoller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("poller.NewChainPoller: %w", err)
	}
	if reader == nil {
		return nil, errors.New("poller.NewChainPoller: chain reader is required")
	}
	p := &ChainPoller{cfg: cfg, reader: reader}
	p.loop = newLoop(sourceChain, cfg, p.refresh)
	return p, nil
}

// refresh lee genesisIsEnded una vez por mercado y los importes por depositante.
func (p *ChainPoller) refresh(ctx context.Context) error {
	ended := p.readEnded(ctx)

	var fails failures
	reads := len(p.cfg.Markets) * len(p.cfg.Depositors)
	err := forEachPair(ctx, p.cfg, func(ctx context.Context, m domain.Market, depositor string) {
		prev, _ := p.cfg.Cache.Chain(m.ID, depositor)
		state := &domain.ChainState{
			MarketID:  m.ID,
			Depositor: depositor,
			Ended:     ended[m.ID],
			ReadAt:    p.cfg.Clock.Now(),
		}
		var readErr error

		// Un fallo de lectura conserva el valor previo.
		if !state.Ended.Known() && prev != nil {
			state.Ended = prev.Ended
		}

		deposit, err := p.reader.Deposit(ctx, m.ID, depositor, m.Family.CollateralDecimals)
		if err != nil {
			readErr = err
			if prev != nil {
				state.Deposit = prev.Deposit
			}
		} else {
			state.Deposit = &deposit
		}

		if v, ok := state.Ended.Get(); ok && v {
			claim, err := p.reader.Claimable(ctx, m.ID, depositor)
			if err != nil {
				readErr = errors.Join(readErr, err)
				if prev != nil {
					state.ClaimablePegged, state.ClaimableLeveraged = prev.ClaimablePegged, prev.ClaimableLeveraged
				}
			} else {
				state.ClaimablePegged, state.ClaimableLeveraged = &claim.Pegged, &claim.Leveraged
			}
		}

		if ctx.Err() != nil {
			return
		}
		p.cfg.Cache.SetChain(m.ID, depositor, state, readErr)
		if readErr != nil {
			fails.add(readErr)
			metrics.SourceRefreshTotal.WithLabelValues(sourceChain, "error").Inc()
			p.log.Debug("chain read failed", "market", m.ID, "depositor", depositor, "error", readErr)
			return
		}
		metrics.SourceRefreshTotal.WithLabelValues(sourceChain, "ok").Inc()
	})
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fails.err(sourceChain, reads)
}

// readEnded lee el flag de cierre de cada mercado. Los fallos quedan como desconocido.
func (p *ChainPoller) readEnded(ctx context.Context) map[string]domain.OptionalBool {
	var mu sync.Mutex
	out := make(map[string]domain.OptionalBool, len(p.cfg.Markets))

	var wg sync.WaitGroup
	sem := make(chan struct{}, p.cfg.Workers)
	for _, m := range p.cfg.Markets {
		m := m
		wg.Add(1)
		go func() {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-sem }()

			v, err := p.reader.CampaignEnded(ctx, m.ID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				p.log.Debug("genesis ended read failed", "market", m.ID, "error", err)
				out[m.ID] = domain.UnknownBool()
				return
			}
			out[m.ID] = domain.KnownBool(v)
		}()
	}
	wg.Wait()
	return out
}
