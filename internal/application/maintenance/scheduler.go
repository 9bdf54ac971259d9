package maintenance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/baofinance/harbor-marks/internal/metrics"
	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"
)

// DefaultPruneSpec ejecuta la purga a diario a las 03:00 (con segundos).
const DefaultPruneSpec = "0 0 3 * * *"

// Pruner borra el historial de ciclos anterior a un instante.
type Pruner interface {
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// Config contiene la configuración del scheduler de mantenimiento.
type Config struct {
	Logger    *slog.Logger
	Clock     clockwork.Clock
	Store     Pruner
	Retention time.Duration // antigüedad máxima del historial
	PruneSpec string        // expresión cron con segundos
}

// Validate comprueba lo obligatorio y aplica defaults.
func (cfg *Config) Validate() error {
	if cfg.Store == nil {
		return errors.New("store is required")
	}
	if cfg.Retention <= 0 {
		return errors.New("retention must be greater than 0")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.PruneSpec == "" {
		cfg.PruneSpec = DefaultPruneSpec
	}
	return nil
}

// Scheduler ejecuta las tareas periódicas de mantenimiento del histórico.
type Scheduler struct {
	cfg  Config
	log  *slog.Logger
	cron *cron.Cron
	ctx  context.Context
}

// New crea el scheduler y registra sus tareas.
func New(ctx context.Context, cfg Config) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("maintenance.New: %w", err)
	}
	s := &Scheduler{
		cfg:  cfg,
		log:  cfg.Logger.With("component", "maintenance"),
		cron: cron.New(cron.WithSeconds()),
		ctx:  ctx,
	}
	if _, err := s.cron.AddFunc(cfg.PruneSpec, s.pruneTask); err != nil {
		return nil, fmt.Errorf("register prune task %q: %w", cfg.PruneSpec, err)
	}
	return s, nil
}

// Start arranca el cron.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started", "prune", s.cfg.PruneSpec, "retention", s.cfg.Retention)
}

// Stop detiene el cron y espera a que termine la tarea en curso.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

// PruneNow purga el historial inmediatamente y devuelve las filas borradas.
func (s *Scheduler) PruneNow(ctx context.Context) (int64, error) {
	cutoff := s.cfg.Clock.Now().Add(-s.cfg.Retention)
	n, err := s.cfg.Store.Prune(ctx, cutoff)
	if err != nil {
		metrics.MaintenanceOperationTotal.WithLabelValues("prune", "error").Inc()
		return 0, fmt.Errorf("prune before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	metrics.MaintenanceOperationTotal.WithLabelValues("prune", "ok").Inc()
	return n, nil
}

func (s *Scheduler) pruneTask() {
	n, err := s.PruneNow(s.ctx)
	if err != nil {
		s.log.Error("prune failed", "err", err)
		return
	}
	s.log.Info("history pruned", "rows", n)
}
