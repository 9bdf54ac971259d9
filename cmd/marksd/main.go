package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/baofinance/harbor-marks/config"
	"github.com/baofinance/harbor-marks/internal/adapters/chain"
	"github.com/baofinance/harbor-marks/internal/adapters/httpapi"
	"github.com/baofinance/harbor-marks/internal/adapters/indexer"
	"github.com/baofinance/harbor-marks/internal/adapters/notify"
	"github.com/baofinance/harbor-marks/internal/adapters/storage"
	"github.com/baofinance/harbor-marks/internal/application/maintenance"
	"github.com/baofinance/harbor-marks/internal/application/poller"
	"github.com/baofinance/harbor-marks/internal/application/tracker"
	"github.com/baofinance/harbor-marks/internal/metrics"
	"github.com/baofinance/harbor-marks/internal/ports"
	"github.com/jonboulle/clockwork"
	"github.com/lmittmann/tint"
	flag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

// Se sobreescriben con -ldflags en el build.
var (
	version = "dev"
	commit  = "none"
)

const sourcesReadyTimeout = 30 * time.Second

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "refresh both sources, evaluate once and exit")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	table := flag.Bool("table", false, "print full per-market tables (default: compact 1-line)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	metrics.BuildInfo.WithLabelValues(version, commit).Set(1)
	slog.Info("harbor-marks starting",
		"version", version,
		"config", *configPath,
		"markets", len(cfg.Markets),
		"depositors", len(cfg.Tracker.Depositors),
		"interval", cfg.EvalInterval(),
		"once", *once,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, *once, *table); err != nil {
		slog.Error("harbor-marks exited with error", "err", err)
		os.Exit(1)
	}
	slog.Info("harbor-marks stopped cleanly")
}

func run(ctx context.Context, cfg *config.Config, once, table bool) error {
	clock := clockwork.NewRealClock()
	markets := cfg.ToMarkets()
	cache := poller.NewSnapshotCache()

	store, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
	if err != nil {
		return fmt.Errorf("open storage %q: %w", cfg.Storage.DSN, err)
	}
	defer store.Close()

	indexerClient := indexer.NewClient(indexer.Config{
		URL:        cfg.Indexer.URL,
		RatePerSec: cfg.Indexer.RatePerSec,
		Burst:      cfg.Indexer.Burst,
		MaxRetries: cfg.Indexer.MaxRetries,
		Timeout:    cfg.IndexerTimeout(),
	})

	indexerPoller, err := poller.NewIndexerPoller(poller.Config{
		Logger:     slog.Default(),
		Clock:      clock,
		Interval:   cfg.IndexerInterval(),
		Markets:    markets,
		Depositors: cfg.Tracker.Depositors,
		Cache:      cache,
		Workers:    cfg.Indexer.Workers,
	}, indexerClient, store)
	if err != nil {
		return err
	}
	if err := indexerPoller.WarmStart(ctx); err != nil {
		slog.Warn("indexer warm start failed", "err", err)
	}

	sources := []sourcePoller{indexerPoller}

	// Sin RPC solo hay datos del indexer: Ended sale del snapshot.
	if cfg.Chain.RPCURL != "" {
		reader, ethClient, err := chain.Dial(ctx, cfg.Chain.RPCURL)
		if err != nil {
			return err
		}
		defer ethClient.Close()

		chainPoller, err := poller.NewChainPoller(poller.Config{
			Logger:     slog.Default(),
			Clock:      clock,
			Interval:   cfg.ChainInterval(),
			Markets:    markets,
			Depositors: cfg.Tracker.Depositors,
			Cache:      cache,
			Workers:    cfg.Chain.Workers,
		}, reader)
		if err != nil {
			return err
		}
		sources = append(sources, chainPoller)
	} else {
		slog.Warn("chain rpc not configured, using indexer data only")
	}

	var notifier ports.Notifier = notify.NewConsole(table)
	trk, err := tracker.New(tracker.Config{
		Logger:     slog.Default(),
		Clock:      clock,
		Interval:   cfg.EvalInterval(),
		Markets:    markets,
		Depositors: cfg.Tracker.Depositors,
		Cache:      cache,
		FDV:        cfg.Tracker.FDV,
		Workers:    cfg.Tracker.Workers,
		Notifier:   notifier,
		Store:      store,
	})
	if err != nil {
		return err
	}

	if once {
		return runOnce(ctx, trk, sources)
	}

	sched, err := maintenance.New(ctx, maintenance.Config{
		Logger:    slog.Default(),
		Clock:     clock,
		Store:     store,
		Retention: cfg.Retention(),
		PruneSpec: cfg.Schedule.PruneCron,
	})
	if err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	for _, s := range sources {
		s.Start(ctx)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		waitSources(gctx, sources)
		return trk.Run(gctx)
	})

	if cfg.HTTP.ListenAddr != "" {
		srv, err := httpapi.New(httpapi.Config{
			Logger:     slog.Default(),
			ListenAddr: cfg.HTTP.ListenAddr,
			Reports:    trk,
			Cycles:     store,
			Now:        clock.Now,
		})
		if err != nil {
			return err
		}
		g.Go(func() error { return srv.Run(gctx) })
	}

	return g.Wait()
}

// sourcePoller es un poller de fuente con su bucle propio.
type sourcePoller interface {
	poller.Refresher
	Start(ctx context.Context)
	WaitReady(ctx context.Context) error
}

// runOnce refresca las fuentes una vez, evalúa y sale.
// Los fallos de lectura por mercado no abortan: acaban en los banners del reporte.
func runOnce(ctx context.Context, trk *tracker.Tracker, sources []sourcePoller) error {
	refreshers := make([]poller.Refresher, 0, len(sources))
	for _, s := range sources {
		refreshers = append(refreshers, s)
	}
	if err := poller.RefreshAll(ctx, refreshers...); err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		slog.Warn("source refresh had failures", "err", err)
	}

	reports, err := trk.RunOnce(ctx)
	if err != nil {
		return err
	}
	slog.Info("evaluation complete", "reports", len(reports))
	return nil
}

// waitSources espera el primer refresh de cada fuente, con un límite.
// Si se agota, el tracker arranca igual y los mercados sin datos salen como cargando.
func waitSources(ctx context.Context, sources []sourcePoller) {
	waitCtx, cancel := context.WithTimeout(ctx, sourcesReadyTimeout)
	defer cancel()
	for _, s := range sources {
		if err := s.WaitReady(waitCtx); err != nil {
			slog.Warn("source not ready, evaluating with partial data", "err", err)
			return
		}
	}
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.TimeOnly,
		})
	}
	slog.SetDefault(slog.New(handler))
}
