package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/baofinance/harbor-marks/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	defaultHistoryWindow = 24 * time.Hour
	shutdownTimeout      = 5 * time.Second
)

// ReportSource da acceso al último ciclo evaluado.
type ReportSource interface {
	Latest() []domain.DepositorReport
	Ready() bool
}

// CycleLister lee el histórico de ciclos persistido.
type CycleLister interface {
	ListCycles(ctx context.Context, since time.Time, depositor string) ([]domain.CycleSummary, error)
}

// Config son las dependencias del servidor. Cycles es opcional.
type Config struct {
	Logger     *slog.Logger
	ListenAddr string
	Reports    ReportSource
	Cycles     CycleLister
	Now        func() time.Time
}

// Validate aplica defaults y comprueba lo obligatorio.
func (c *Config) Validate() error {
	if c.Reports == nil {
		return errors.New("httpapi: reports source is required")
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return nil
}

// Server expone los reportes del tracker por HTTP (solo lectura).
type Server struct {
	cfg     Config
	log     *slog.Logger
	router  *chi.Mux
	httpSrv *http.Server
}

// New crea el servidor y registra las rutas.
func New(cfg Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Server{
		cfg:    cfg,
		log:    cfg.Logger,
		router: chi.NewRouter(),
	}
	s.setupRoutes()
	s.httpSrv = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

// Handler devuelve el router (tests).
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Recoverer)

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ok\n")); err != nil {
			s.log.Error("failed to write healthz response", "error", err)
		}
	})
	s.router.Get("/readyz", s.handleReady)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/v1", func(r chi.Router) {
		r.Get("/reports", s.handleReports)
		r.Get("/reports/{depositor}", s.handleReport)
		r.Get("/reports/{depositor}/history", s.handleHistory)
		r.Get("/estimate", s.handleEstimate)
	})
}

// Run sirve hasta que ctx se cancela y luego cierra limpiamente.
func (s *Server) Run(ctx context.Context) error {
	serveErrCh := make(chan error, 1)
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- fmt.Errorf("httpapi: listen and serve: %w", err)
		}
	}()
	s.log.Info("http api listening", "address", s.cfg.ListenAddr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("httpapi: shutdown: %w", err)
		}
		s.log.Info("http api stopped")
		return nil
	case err := <-serveErrCh:
		return err
	}
}

// --- handlers ---

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if !s.cfg.Reports.Ready() {
		w.WriteHeader(http.StatusServiceUnavailable)
		if _, err := w.Write([]byte("no evaluation yet\n")); err != nil {
			s.log.Error("failed to write readyz response", "error", err)
		}
		return
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok\n")); err != nil {
		s.log.Error("failed to write readyz response", "error", err)
	}
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	reports := s.cfg.Reports.Latest()
	out := make([]reportView, 0, len(reports))
	for _, rep := range reports {
		out = append(out, newReportView(rep))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	depositor := chi.URLParam(r, "depositor")
	for _, rep := range s.cfg.Reports.Latest() {
		if strings.EqualFold(rep.Depositor, depositor) {
			s.writeJSON(w, http.StatusOK, newReportView(rep))
			return
		}
	}
	s.writeError(w, http.StatusNotFound, "depositor not tracked")
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Cycles == nil {
		s.writeError(w, http.StatusNotImplemented, "history storage not configured")
		return
	}
	window := defaultHistoryWindow
	if raw := r.URL.Query().Get("window"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			s.writeError(w, http.StatusBadRequest, "invalid window")
			return
		}
		window = d
	}

	depositor := strings.ToLower(chi.URLParam(r, "depositor"))
	cycles, err := s.cfg.Cycles.ListCycles(r.Context(), s.cfg.Now().Add(-window), depositor)
	if err != nil {
		s.log.Error("failed to list cycles", "depositor", depositor, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to read history")
		return
	}
	out := make([]cycleView, 0, len(cycles))
	for _, c := range cycles {
		out = append(out, newCycleView(c))
	}
	s.writeJSON(w, http.StatusOK, out)
}

// handleEstimate devuelve la estimación por $1 depositado hasta el fin de campaña.
func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	days, err := strconv.ParseFloat(q.Get("days"), 64)
	if err != nil || days < 0 || math.IsNaN(days) || math.IsInf(days, 0) {
		s.writeError(w, http.StatusBadRequest, "days must be a non-negative number")
		return
	}
	reached := false
	if raw := q.Get("threshold_reached"); raw != "" {
		reached, err = strconv.ParseBool(raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "threshold_reached must be a boolean")
			return
		}
	}

	e := domain.EstimateAtDollar(days, reached)
	s.writeJSON(w, http.StatusOK, estimateView{
		DaysRemaining:    days,
		ThresholdReached: reached,
		DepositUSD:       e.DepositUSD,
		MarksPerDay:      e.MarksPerDay,
		AccruedToEnd:     e.AccruedToEnd,
		EarlyBonusMarks:  e.EarlyBonusMarks,
		EndBonusMarks:    e.EndBonusMarks,
		TotalMarks:       e.TotalMarks,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error("failed to encode JSON response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
