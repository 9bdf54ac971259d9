package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/baofinance/harbor-marks/internal/application/poller"
	"github.com/baofinance/harbor-marks/internal/domain"
	"github.com/baofinance/harbor-marks/internal/metrics"
	"github.com/baofinance/harbor-marks/internal/ports"
	"github.com/jonboulle/clockwork"
)

// Config contiene la configuración del tracker.
type Config struct {
	Logger     *slog.Logger
	Clock      clockwork.Clock
	Interval   time.Duration
	Markets    []domain.Market
	Depositors []string
	Cache      *poller.SnapshotCache
	FDV        float64 // valoración del token en USD (0 = domain.DefaultFDV)
	Workers    int     // goroutines de reconciliación (0 = NumCPU)

	Notifier ports.Notifier      // opcional
	Store    ports.SnapshotStore // opcional
}

// Validate comprueba lo obligatorio y aplica defaults.
func (cfg *Config) Validate() error {
	if cfg.Cache == nil {
		return errors.New("snapshot cache is required")
	}
	if len(cfg.Markets) == 0 {
		return errors.New("at least one market is required")
	}
	if len(cfg.Depositors) == 0 {
		return errors.New("at least one depositor is required")
	}
	if cfg.Interval <= 0 {
		return errors.New("evaluation interval must be greater than 0")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.FDV == 0 {
		cfg.FDV = domain.DefaultFDV
	}
	return nil
}

// Tracker evalúa periódicamente marks, bonus y APR de cada depositante.
// Cada evaluación es una función pura de la última lectura de cada fuente:
// no guarda ningún acumulado entre ciclos.
type Tracker struct {
	cfg Config
	log *slog.Logger

	mu     sync.RWMutex
	latest []domain.DepositorReport

	readyOnce sync.Once
	readyCh   chan struct{}
}

// New crea un Tracker.
func New(cfg Config) (*Tracker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("tracker.New: %w", err)
	}
	return &Tracker{
		cfg:     cfg,
		log:     cfg.Logger,
		readyCh: make(chan struct{}),
	}, nil
}

// Run evalúa en cada tick hasta que el contexto se cancele.
func (t *Tracker) Run(ctx context.Context) error {
	t.log.Info("tracker starting",
		"interval", t.cfg.Interval,
		"markets", len(t.cfg.Markets),
		"depositors", len(t.cfg.Depositors),
	)

	t.runCycle(ctx)

	ticker := t.cfg.Clock.NewTicker(t.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.log.Info("tracker stopped")
			return nil
		case <-ticker.Chan():
			t.runCycle(ctx)
		}
	}
}

// RunOnce evalúa una vez, publica el resultado y lo devuelve.
func (t *Tracker) RunOnce(ctx context.Context) ([]domain.DepositorReport, error) {
	reports, err := t.Evaluate(ctx)
	t.publish(ctx, reports)
	return reports, err
}

// Latest devuelve los reportes del último ciclo publicado.
func (t *Tracker) Latest() []domain.DepositorReport {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]domain.DepositorReport, len(t.latest))
	copy(out, t.latest)
	return out
}

// Ready indica si ya se publicó al menos un ciclo.
func (t *Tracker) Ready() bool {
	select {
	case <-t.readyCh:
		return true
	default:
		return false
	}
}

func (t *Tracker) runCycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			t.log.Error("tracker: evaluation panicked", "panic", r)
			metrics.EvaluationTotal.WithLabelValues("panic").Inc()
		}
	}()

	if _, err := t.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
		t.log.Error("evaluation failed", "err", err)
	}
}

// publish guarda el ciclo como último, lo notifica y lo persiste.
// Un ciclo parcial (cancelado) también se publica: lo ya calculado es válido.
func (t *Tracker) publish(ctx context.Context, reports []domain.DepositorReport) {
	if reports == nil {
		return
	}
	t.mu.Lock()
	t.latest = reports
	t.mu.Unlock()
	t.readyOnce.Do(func() { close(t.readyCh) })

	out := context.WithoutCancel(ctx)
	if t.cfg.Notifier != nil {
		if err := t.cfg.Notifier.Notify(out, reports); err != nil {
			t.log.Warn("notifier error", "err", err)
		}
	}
	if t.cfg.Store != nil {
		if err := t.cfg.Store.SaveCycle(out, reports); err != nil {
			t.log.Warn("storage error", "err", err)
		}
	}
}
