package storage

// sqlite.go: snapshots crudos del indexer y resumen de cada evaluación.
//
// Estrategia:
//   - `snapshots`: UNA fila por (mercado, depositante) con el último snapshot crudo.
//     Solo se reescribe si last_updated avanzó; los marks proyectados nunca se guardan.
//   - `cycles`: una fila por (evaluación, depositante) con agregados ligeros.
//   - Cache en memoria de last_updated: evita writes cuando el indexer no cambió,
//     que es el caso normal entre dos polls seguidos.
//   - Prune bajo demanda (lo dispara el scheduler de mantenimiento).

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/baofinance/harbor-marks/internal/domain"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

const schema = `
-- Último snapshot crudo por mercado y depositante
CREATE TABLE IF NOT EXISTS snapshots (
    market_id              TEXT    NOT NULL,
    depositor              TEXT    NOT NULL,
    campaign_id            TEXT    NOT NULL DEFAULT '',
    campaign_label         TEXT    NOT NULL DEFAULT '',
    indexer_ended          INTEGER NOT NULL DEFAULT 0,
    current_marks          TEXT    NOT NULL DEFAULT '0',
    current_deposit_usd    TEXT    NOT NULL DEFAULT '0',
    marks_per_day          TEXT    NOT NULL DEFAULT '0',
    bonus_marks            TEXT    NOT NULL DEFAULT '0',
    early_eligible_usd     TEXT    NOT NULL DEFAULT '0',
    early_bonus_marks      TEXT    NOT NULL DEFAULT '0',
    qualifies_early        INTEGER NOT NULL DEFAULT 0,
    cumulative_deposits    TEXT    NOT NULL DEFAULT '0',
    genesis_start          INTEGER NOT NULL DEFAULT 0,
    genesis_end            INTEGER NOT NULL DEFAULT 0,
    last_updated           INTEGER NOT NULL DEFAULT 0,
    saved_at               INTEGER NOT NULL,
    PRIMARY KEY (market_id, depositor)
);

-- Resumen por evaluación y depositante
CREATE TABLE IF NOT EXISTS cycles (
    cycle_id        TEXT    NOT NULL,
    depositor       TEXT    NOT NULL,
    evaluated_at    INTEGER NOT NULL,
    active_campaign TEXT    NOT NULL DEFAULT '',
    campaign_marks  TEXT    NOT NULL DEFAULT '0',
    tide_apr        REAL,
    combined_apr    REAL,
    infra_errors    INTEGER NOT NULL DEFAULT 0,
    other_errors    INTEGER NOT NULL DEFAULT 0,
    partial         INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (cycle_id, depositor)
);

CREATE INDEX IF NOT EXISTS idx_cycles_at ON cycles(evaluated_at DESC);
`

type snapshotKey struct {
	market    string
	depositor string
}

// SQLiteStorage implementa ports.SnapshotStore usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db    *sql.DB
	cache map[snapshotKey]int64 // last_updated (unix) guardado
	mu    sync.Mutex
	now   func() time.Time
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada.
// Aplica el schema y precarga la cache.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}

	s := &SQLiteStorage{
		db:    db,
		cache: make(map[snapshotKey]int64),
		now:   time.Now,
	}
	s.warmCache(context.Background())
	return s, nil
}

// SaveSnapshots hace upsert de los snapshots cuyo LastUpdated avanzó respecto
// a lo guardado. Un snapshot más viejo nunca pisa a uno más nuevo.
func (s *SQLiteStorage) SaveSnapshots(ctx context.Context, snaps []domain.CampaignSnapshot) error {
	toWrite := s.filterAdvanced(snaps)
	if len(toWrite) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveSnapshots: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO snapshots
			(market_id, depositor, campaign_id, campaign_label, indexer_ended,
			 current_marks, current_deposit_usd, marks_per_day, bonus_marks,
			 early_eligible_usd, early_bonus_marks, qualifies_early,
			 cumulative_deposits, genesis_start, genesis_end, last_updated, saved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(market_id, depositor) DO UPDATE SET
			campaign_id         = excluded.campaign_id,
			campaign_label      = excluded.campaign_label,
			indexer_ended       = excluded.indexer_ended,
			current_marks       = excluded.current_marks,
			current_deposit_usd = excluded.current_deposit_usd,
			marks_per_day       = excluded.marks_per_day,
			bonus_marks         = excluded.bonus_marks,
			early_eligible_usd  = excluded.early_eligible_usd,
			early_bonus_marks   = excluded.early_bonus_marks,
			qualifies_early     = excluded.qualifies_early,
			cumulative_deposits = excluded.cumulative_deposits,
			genesis_start       = excluded.genesis_start,
			genesis_end         = excluded.genesis_end,
			last_updated        = excluded.last_updated,
			saved_at            = excluded.saved_at
		WHERE excluded.last_updated > snapshots.last_updated
	`)
	if err != nil {
		return fmt.Errorf("storage.SaveSnapshots: prepare: %w", err)
	}
	defer stmt.Close()

	savedAt := s.now().UTC().Unix()
	for _, snap := range toWrite {
		if _, err := stmt.ExecContext(ctx,
			snap.MarketID,
			snap.Depositor,
			snap.CampaignID,
			snap.CampaignLabel,
			boolInt(snap.IndexerEnded),
			snap.CurrentMarks.String(),
			snap.CurrentDepositUSD.String(),
			snap.MarksPerDay.String(),
			snap.BonusMarks.String(),
			snap.EarlyBonusEligibleDepositUSD.String(),
			snap.EarlyBonusMarks.String(),
			boolInt(snap.QualifiesForEarlyBonus),
			snap.CumulativeDeposits.String(),
			unixOrZero(snap.GenesisStartDate),
			unixOrZero(snap.GenesisEndDate),
			unixOrZero(snap.LastUpdated),
			savedAt,
		); err != nil {
			s.forget(snap)
			return fmt.Errorf("storage.SaveSnapshots: upsert %s/%s: %w", snap.MarketID, snap.Depositor, err)
		}
	}

	if err := tx.Commit(); err != nil {
		for _, snap := range toWrite {
			s.forget(snap)
		}
		return fmt.Errorf("storage.SaveSnapshots: commit: %w", err)
	}
	return nil
}

// LoadSnapshots devuelve todos los snapshots guardados, ordenados por mercado y depositante.
func (s *SQLiteStorage) LoadSnapshots(ctx context.Context) ([]domain.CampaignSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT market_id, depositor, campaign_id, campaign_label, indexer_ended,
		       current_marks, current_deposit_usd, marks_per_day, bonus_marks,
		       early_eligible_usd, early_bonus_marks, qualifies_early,
		       cumulative_deposits, genesis_start, genesis_end, last_updated
		FROM snapshots
		ORDER BY market_id, depositor
	`)
	if err != nil {
		return nil, fmt.Errorf("storage.LoadSnapshots: query: %w", err)
	}
	defer rows.Close()

	var snaps []domain.CampaignSnapshot
	for rows.Next() {
		var snap domain.CampaignSnapshot
		var ended, qualifies int
		var marks, deposit, perDay, bonus, eligible, early, cumulative string
		var start, end, updated int64

		if err := rows.Scan(
			&snap.MarketID,
			&snap.Depositor,
			&snap.CampaignID,
			&snap.CampaignLabel,
			&ended,
			&marks,
			&deposit,
			&perDay,
			&bonus,
			&eligible,
			&early,
			&qualifies,
			&cumulative,
			&start,
			&end,
			&updated,
		); err != nil {
			return nil, fmt.Errorf("storage.LoadSnapshots: scan row: %w", err)
		}

		fields := []struct {
			dst *decimal.Decimal
			raw string
		}{
			{&snap.CurrentMarks, marks},
			{&snap.CurrentDepositUSD, deposit},
			{&snap.MarksPerDay, perDay},
			{&snap.BonusMarks, bonus},
			{&snap.EarlyBonusEligibleDepositUSD, eligible},
			{&snap.EarlyBonusMarks, early},
			{&snap.CumulativeDeposits, cumulative},
		}
		for _, f := range fields {
			d, err := decimal.NewFromString(f.raw)
			if err != nil {
				return nil, fmt.Errorf("storage.LoadSnapshots: %s/%s: %w", snap.MarketID, snap.Depositor, err)
			}
			*f.dst = d
		}

		snap.IndexerEnded = ended == 1
		snap.QualifiesForEarlyBonus = qualifies == 1
		snap.GenesisStartDate = fromUnix(start)
		snap.GenesisEndDate = fromUnix(end)
		snap.LastUpdated = fromUnix(updated)
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// SaveCycle persiste una fila por depositante evaluado.
func (s *SQLiteStorage) SaveCycle(ctx context.Context, reports []domain.DepositorReport) error {
	if len(reports) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveCycle: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO cycles
			(cycle_id, depositor, evaluated_at, active_campaign, campaign_marks,
			 tide_apr, combined_apr, infra_errors, other_errors, partial)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("storage.SaveCycle: prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range reports {
		c := r.Summary()
		if _, err := stmt.ExecContext(ctx,
			c.CycleID,
			c.Depositor,
			c.EvaluatedAt.UTC().UnixMilli(),
			c.ActiveCampaign,
			c.CampaignMarks.String(),
			nullAPR(c.TideAPR),
			nullAPR(c.CombinedAPR),
			c.InfraErrors,
			c.OtherErrors,
			boolInt(c.Partial),
		); err != nil {
			return fmt.Errorf("storage.SaveCycle: insert %s/%s: %w", c.CycleID, c.Depositor, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveCycle: commit: %w", err)
	}
	return nil
}

// ListCycles devuelve los resúmenes evaluados desde since, más recientes primero.
func (s *SQLiteStorage) ListCycles(ctx context.Context, since time.Time, depositor string) ([]domain.CycleSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cycle_id, depositor, evaluated_at, active_campaign, campaign_marks,
		       tide_apr, combined_apr, infra_errors, other_errors, partial
		FROM cycles
		WHERE evaluated_at >= ? AND (? = '' OR depositor = ?)
		ORDER BY evaluated_at DESC, depositor
	`, since.UTC().UnixMilli(), depositor, depositor)
	if err != nil {
		return nil, fmt.Errorf("storage.ListCycles: query: %w", err)
	}
	defer rows.Close()

	var out []domain.CycleSummary
	for rows.Next() {
		var c domain.CycleSummary
		var at int64
		var marks string
		var tide, combined sql.NullFloat64
		var partial int
		if err := rows.Scan(
			&c.CycleID,
			&c.Depositor,
			&at,
			&c.ActiveCampaign,
			&marks,
			&tide,
			&combined,
			&c.InfraErrors,
			&c.OtherErrors,
			&partial,
		); err != nil {
			return nil, fmt.Errorf("storage.ListCycles: scan row: %w", err)
		}
		d, err := decimal.NewFromString(marks)
		if err != nil {
			return nil, fmt.Errorf("storage.ListCycles: campaign_marks: %w", err)
		}
		c.CampaignMarks = d
		c.EvaluatedAt = time.UnixMilli(at).UTC()
		c.TideAPR = aprFromNull(tide)
		c.CombinedAPR = aprFromNull(combined)
		c.Partial = partial == 1
		out = append(out, c)
	}
	return out, rows.Err()
}

// Prune elimina los ciclos evaluados antes de before.
func (s *SQLiteStorage) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cycles WHERE evaluated_at < ?`, before.UTC().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("storage.Prune: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("storage.Prune: rows affected: %w", err)
	}
	return n, nil
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// --- helpers internos ---

// filterAdvanced devuelve los snapshots cuyo last_updated es posterior al guardado
// y actualiza la cache. Si llegan varios del mismo par, gana el más nuevo.
func (s *SQLiteStorage) filterAdvanced(snaps []domain.CampaignSnapshot) []domain.CampaignSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	latest := make(map[snapshotKey]int, len(snaps))
	var toWrite []domain.CampaignSnapshot
	for _, snap := range snaps {
		key := snapshotKey{snap.MarketID, snap.Depositor}
		updated := unixOrZero(snap.LastUpdated)
		if prev, ok := s.cache[key]; ok && updated <= prev {
			continue
		}
		s.cache[key] = updated
		if i, ok := latest[key]; ok {
			toWrite[i] = snap
			continue
		}
		latest[key] = len(toWrite)
		toWrite = append(toWrite, snap)
	}
	return toWrite
}

// forget descarta la entrada de cache tras un write fallido para reintentar en el próximo ciclo.
func (s *SQLiteStorage) forget(snap domain.CampaignSnapshot) {
	s.mu.Lock()
	delete(s.cache, snapshotKey{snap.MarketID, snap.Depositor})
	s.mu.Unlock()
}

// warmCache precarga la cache desde la DB al arrancar, evitando reescribir
// snapshots que no cambiaron en el primer ciclo tras un reinicio.
func (s *SQLiteStorage) warmCache(ctx context.Context) {
	rows, err := s.db.QueryContext(ctx, `SELECT market_id, depositor, last_updated FROM snapshots`)
	if err != nil {
		return
	}
	defer rows.Close()

	s.mu.Lock()
	defer s.mu.Unlock()
	for rows.Next() {
		var key snapshotKey
		var updated int64
		if rows.Scan(&key.market, &key.depositor, &updated) == nil {
			s.cache[key] = updated
		}
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func fromUnix(secs int64) time.Time {
	if secs == 0 {
		return time.Time{}
	}
	return time.Unix(secs, 0).UTC()
}

func nullAPR(a domain.APR) sql.NullFloat64 {
	return sql.NullFloat64{Float64: a.Percent, Valid: a.Determined}
}

func aprFromNull(n sql.NullFloat64) domain.APR {
	if !n.Valid {
		return domain.Undetermined()
	}
	return domain.NewAPR(n.Float64)
}
