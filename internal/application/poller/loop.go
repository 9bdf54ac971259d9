package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/baofinance/harbor-marks/internal/domain"
	"github.com/baofinance/harbor-marks/internal/metrics"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

const defaultWorkers = 4

// Config es la configuración común de los pollers.
type Config struct {
	Logger     *slog.Logger
	Clock      clockwork.Clock
	Interval   time.Duration
	Markets    []domain.Market
	Depositors []string
	Cache      *SnapshotCache
	Workers    int // lecturas concurrentes por refresh
}

// Validate comprueba lo obligatorio y aplica defaults.
func (cfg *Config) Validate() error {
	if cfg.Cache == nil {
		return errors.New("snapshot cache is required")
	}
	if cfg.Interval <= 0 {
		return errors.New("refresh interval must be greater than 0")
	}
	if len(cfg.Markets) == 0 {
		return errors.New("at least one market is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	return nil
}

// Refresher es un poller que puede refrescarse bajo demanda.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// loop es el bucle de refresco compartido: un refresh inicial, luego uno por tick.
type loop struct {
	name      string
	log       *slog.Logger
	clock     clockwork.Clock
	interval  time.Duration
	refresh   func(ctx context.Context) error
	refreshMu sync.Mutex

	readyOnce sync.Once
	readyCh   chan struct{}
}

func newLoop(name string, cfg Config, refresh func(ctx context.Context) error) *loop {
	return &loop{
		name:     name,
		log:      cfg.Logger.With("source", name),
		clock:    cfg.Clock,
		interval: cfg.Interval,
		refresh:  refresh,
		readyCh:  make(chan struct{}),
	}
}

// Ready indica si terminó al menos un refresh.
func (l *loop) Ready() bool {
	select {
	case <-l.readyCh:
		return true
	default:
		return false
	}
}

// WaitReady bloquea hasta el primer refresh o hasta que ctx se cancele.
func (l *loop) WaitReady(ctx context.Context) error {
	select {
	case <-l.readyCh:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("context cancelled while waiting for %s poller: %w", l.name, ctx.Err())
	}
}

// Start lanza el bucle en una goroutine. Termina cuando ctx se cancela.
func (l *loop) Start(ctx context.Context) {
	go func() {
		l.log.Info("poller: starting refresh loop", "interval", l.interval)

		l.safeRefresh(ctx)

		ticker := l.clock.NewTicker(l.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				l.log.Info("poller: stopped")
				return
			case <-ticker.Chan():
				l.safeRefresh(ctx)
			}
		}
	}()
}

// Refresh ejecuta un refresh completo. Serializa refreshes de la misma fuente.
func (l *loop) Refresh(ctx context.Context) error {
	l.refreshMu.Lock()
	defer l.refreshMu.Unlock()

	start := l.clock.Now()
	defer func() {
		d := l.clock.Since(start)
		metrics.SourceRefreshDuration.WithLabelValues(l.name).Observe(d.Seconds())
		l.log.Debug("poller: refresh completed", "duration", d.String())
	}()

	err := l.refresh(ctx)
	l.readyOnce.Do(func() { close(l.readyCh) })
	return err
}

func (l *loop) safeRefresh(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("poller: refresh panicked", "panic", r)
			metrics.SourceRefreshTotal.WithLabelValues(l.name, "panic").Inc()
		}
	}()

	if err := l.Refresh(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		l.log.Warn("poller: refresh had failures", "error", err)
	}
}

// forEachPair ejecuta fn para cada (mercado, depositante) con concurrencia limitada.
// Un fallo en un par nunca cancela a los demás.
func forEachPair(ctx context.Context, cfg Config, fn func(ctx context.Context, m domain.Market, depositor string)) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for _, m := range cfg.Markets {
		m := m
		for _, d := range cfg.Depositors {
			d := d
			if gctx.Err() != nil {
				return g.Wait()
			}
			g.Go(func() error {
				fn(gctx, m, d)
				return nil
			})
		}
	}
	return g.Wait()
}

// RefreshAll refresca varias fuentes en paralelo y espera a todas (modo --once).
func RefreshAll(ctx context.Context, sources ...Refresher) error {
	g, gctx := errgroup.WithContext(ctx)
	errs := make([]error, len(sources))
	for i, s := range sources {
		i, s := i, s
		g.Go(func() error {
			errs[i] = s.Refresh(gctx)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return errors.Join(errs...)
}

// failures acumula los errores de un refresh sin cortar el resto.
type failures struct {
	mu    sync.Mutex
	total int
	first error
}

func (f *failures) add(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.total++
	if f.first == nil {
		f.first = err
	}
}

func (f *failures) err(source string, reads int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.total == 0 {
		return nil
	}
	return fmt.Errorf("%s refresh: %d of %d reads failed, first: %w", source, f.total, reads, f.first)
}
