package poller

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/baofinance/harbor-marks/internal/domain"
	"github.com/baofinance/harbor-marks/internal/metrics"
	"github.com/baofinance/harbor-marks/internal/ports"
)

const sourceIndexer = "indexer"

// IndexerPoller lee los snapshots de marks y los totales de campaña del indexer.
// Es la fuente lenta y sensible al rate limit.
type IndexerPoller struct {
	*loop
	cfg    Config
	reader ports.IndexerReader
	store  ports.SnapshotStore // opcional
}

// NewIndexerPoller crea un IndexerPoller. store puede ser nil.
func NewIndexerPoller(cfg Config, reader ports.IndexerReader, store ports.SnapshotStore) (*IndexerPoller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("poller.NewIndexerPoller: %w", err)
	}
	if reader == nil {
		return nil, errors.New("poller.NewIndexerPoller: indexer reader is required")
	}
	p := &IndexerPoller{cfg: cfg, reader: reader, store: store}
	p.loop = newLoop(sourceIndexer, cfg, p.refresh)
	return p, nil
}

// WarmStart carga los snapshots persistidos en la cache antes del primer refresh.
func (p *IndexerPoller) WarmStart(ctx context.Context) error {
	if p.store == nil {
		return nil
	}
	snaps, err := p.store.LoadSnapshots(ctx)
	if err != nil {
		return fmt.Errorf("poller.WarmStart: %w", err)
	}
	p.cfg.Cache.Seed(snaps)
	p.log.Info("indexer cache warmed", "snapshots", len(snaps))
	return nil
}

func (p *IndexerPoller) refresh(ctx context.Context) error {
	var fails failures
	reads := len(p.cfg.Markets) * len(p.cfg.Depositors)

	err := forEachPair(ctx, p.cfg, func(ctx context.Context, m domain.Market, depositor string) {
		snap, err := p.reader.FetchSnapshot(ctx, m.ID, depositor)
		if ctx.Err() != nil {
			// Lectura abandonada: la cache conserva lo anterior sin marcar error.
			return
		}
		p.cfg.Cache.SetSnapshot(m.ID, depositor, snap, err)
		switch {
		case err != nil:
			fails.add(err)
			metrics.SourceRefreshTotal.WithLabelValues(sourceIndexer, "error").Inc()
			p.log.Debug("indexer read failed", "market", m.ID, "depositor", depositor, "error", err)
		case snap == nil:
			metrics.SourceRefreshTotal.WithLabelValues(sourceIndexer, "empty").Inc()
		default:
			metrics.SourceRefreshTotal.WithLabelValues(sourceIndexer, "ok").Inc()
		}
	})
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	campaigns := p.campaignIDs()
	for _, id := range campaigns {
		totals, err := p.reader.FetchCampaignTotals(ctx, id)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.cfg.Cache.SetTotals(id, totals, err)
		if err != nil {
			fails.add(err)
			metrics.SourceRefreshTotal.WithLabelValues("indexer_totals", "error").Inc()
			continue
		}
		metrics.SourceRefreshTotal.WithLabelValues("indexer_totals", "ok").Inc()
	}

	if p.store != nil {
		if err := p.store.SaveSnapshots(ctx, p.cfg.Cache.Snapshots()); err != nil {
			p.log.Warn("failed to persist snapshots", "error", err)
		}
	}

	return fails.err(sourceIndexer, reads+len(campaigns))
}

// campaignIDs une los IDs configurados con los que devuelve el indexer.
func (p *IndexerPoller) campaignIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, m := range p.cfg.Markets {
		if m.CampaignID != "" && !seen[m.CampaignID] {
			seen[m.CampaignID] = true
			ids = append(ids, m.CampaignID)
		}
	}
	for _, id := range p.cfg.Cache.CampaignIDs() {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
