package poller

import (
	"sort"
	"sync"

	"github.com/baofinance/harbor-marks/internal/domain"
)

// SnapshotCache guarda la última lectura cruda de cada fuente.
//
// Cada fuente tiene su propio lock: un refresh de la cadena nunca bloquea ni
// invalida uno del indexer. Cuando una lectura falla se registra el error pero
// se conserva la última lectura válida.
type SnapshotCache struct {
	chainMu sync.RWMutex
	chain   map[pairKey]chainEntry

	indexerMu sync.RWMutex
	indexer   map[pairKey]indexerEntry
	totals    map[string]totalsEntry
}

type pairKey struct {
	market    string
	depositor string
}

type chainEntry struct {
	state *domain.ChainState
	err   error
}

type indexerEntry struct {
	snap    *domain.CampaignSnapshot
	fetched bool // el indexer respondió (snap nil = sin registro)
	err     error
}

type totalsEntry struct {
	totals *domain.CampaignTotals
	err    error
}

// IndexerRead es la vista de una entrada del indexer para el tracker.
type IndexerRead struct {
	Snapshot *domain.CampaignSnapshot // último snapshot válido, nil si nunca hubo
	Fetched  bool                     // hubo al menos una respuesta (aunque vacía)
	Err      error                    // error de la última lectura
}

// NewSnapshotCache crea una cache vacía.
func NewSnapshotCache() *SnapshotCache {
	return &SnapshotCache{
		chain:   make(map[pairKey]chainEntry),
		indexer: make(map[pairKey]indexerEntry),
		totals:  make(map[string]totalsEntry),
	}
}

// SetChain registra una lectura on-chain. Si err != nil se conserva el estado previo.
func (c *SnapshotCache) SetChain(marketID, depositor string, state *domain.ChainState, err error) {
	key := pairKey{marketID, depositor}
	c.chainMu.Lock()
	defer c.chainMu.Unlock()

	prev := c.chain[key]
	if err != nil && state == nil {
		c.chain[key] = chainEntry{state: prev.state, err: err}
		return
	}
	c.chain[key] = chainEntry{state: cloneChain(state), err: err}
}

// Chain devuelve una copia del último estado on-chain y el último error.
func (c *SnapshotCache) Chain(marketID, depositor string) (*domain.ChainState, error) {
	c.chainMu.RLock()
	defer c.chainMu.RUnlock()
	e := c.chain[pairKey{marketID, depositor}]
	return cloneChain(e.state), e.err
}

// SetSnapshot registra una lectura del indexer. snap nil sin error significa
// que el indexer no tiene registro. Con error se conserva el snapshot previo.
func (c *SnapshotCache) SetSnapshot(marketID, depositor string, snap *domain.CampaignSnapshot, err error) {
	key := pairKey{marketID, depositor}
	c.indexerMu.Lock()
	defer c.indexerMu.Unlock()

	prev := c.indexer[key]
	if err != nil {
		c.indexer[key] = indexerEntry{snap: prev.snap, fetched: prev.fetched, err: err}
		return
	}
	c.indexer[key] = indexerEntry{snap: cloneSnapshot(snap), fetched: true}
}

// Snapshot devuelve la última lectura del indexer para el par.
func (c *SnapshotCache) Snapshot(marketID, depositor string) IndexerRead {
	c.indexerMu.RLock()
	defer c.indexerMu.RUnlock()
	e := c.indexer[pairKey{marketID, depositor}]
	return IndexerRead{Snapshot: cloneSnapshot(e.snap), Fetched: e.fetched, Err: e.err}
}

// Seed precarga snapshots persistidos (arranque). No pisa lecturas ya hechas.
func (c *SnapshotCache) Seed(snaps []domain.CampaignSnapshot) {
	c.indexerMu.Lock()
	defer c.indexerMu.Unlock()
	for i := range snaps {
		key := pairKey{snaps[i].MarketID, snaps[i].Depositor}
		if _, ok := c.indexer[key]; ok {
			continue
		}
		c.indexer[key] = indexerEntry{snap: cloneSnapshot(&snaps[i]), fetched: true}
	}
}

// Snapshots devuelve todos los snapshots válidos, ordenados por mercado y depositante.
func (c *SnapshotCache) Snapshots() []domain.CampaignSnapshot {
	c.indexerMu.RLock()
	defer c.indexerMu.RUnlock()

	out := make([]domain.CampaignSnapshot, 0, len(c.indexer))
	for _, e := range c.indexer {
		if e.snap != nil {
			out = append(out, *e.snap)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MarketID != out[j].MarketID {
			return out[i].MarketID < out[j].MarketID
		}
		return out[i].Depositor < out[j].Depositor
	})
	return out
}

// SetTotals registra los totales de una campaña. Con error se conservan los previos.
func (c *SnapshotCache) SetTotals(campaignID string, totals *domain.CampaignTotals, err error) {
	c.indexerMu.Lock()
	defer c.indexerMu.Unlock()

	prev := c.totals[campaignID]
	if err != nil {
		c.totals[campaignID] = totalsEntry{totals: prev.totals, err: err}
		return
	}
	var cp *domain.CampaignTotals
	if totals != nil {
		t := *totals
		cp = &t
	}
	c.totals[campaignID] = totalsEntry{totals: cp}
}

// Totals devuelve los últimos totales válidos de una campaña.
func (c *SnapshotCache) Totals(campaignID string) (*domain.CampaignTotals, error) {
	c.indexerMu.RLock()
	defer c.indexerMu.RUnlock()
	e := c.totals[campaignID]
	if e.totals == nil {
		return nil, e.err
	}
	t := *e.totals
	return &t, e.err
}

// AllTotals devuelve los totales válidos de todas las campañas, ordenados por ID.
func (c *SnapshotCache) AllTotals() []domain.CampaignTotals {
	c.indexerMu.RLock()
	defer c.indexerMu.RUnlock()

	out := make([]domain.CampaignTotals, 0, len(c.totals))
	for _, e := range c.totals {
		if e.totals != nil {
			out = append(out, *e.totals)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CampaignID < out[j].CampaignID })
	return out
}

// CampaignIDs devuelve los IDs de campaña vistos en los snapshots, sin duplicados.
func (c *SnapshotCache) CampaignIDs() []string {
	c.indexerMu.RLock()
	defer c.indexerMu.RUnlock()

	seen := make(map[string]bool)
	var ids []string
	for _, e := range c.indexer {
		if e.snap == nil || e.snap.CampaignID == "" || seen[e.snap.CampaignID] {
			continue
		}
		seen[e.snap.CampaignID] = true
		ids = append(ids, e.snap.CampaignID)
	}
	sort.Strings(ids)
	return ids
}

func cloneSnapshot(s *domain.CampaignSnapshot) *domain.CampaignSnapshot {
	if s == nil {
		return nil
	}
	cp := *s
	return &cp
}

func cloneChain(s *domain.ChainState) *domain.ChainState {
	if s == nil {
		return nil
	}
	cp := *s
	return &cp
}
