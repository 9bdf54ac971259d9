package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/baofinance/harbor-marks/internal/domain"
	"golang.org/x/time/rate"
)

const (
	// El indexer hospedado permite ~10 req/s por IP; nos quedamos en la mitad.
	defaultRatePerSec = 5
	defaultBurst      = 5

	defaultMaxRetries = 3
	defaultRetryWait  = 500 * time.Millisecond
	defaultTimeout    = 10 * time.Second

	maxErrorBody = 512
)

// Config son los parámetros del cliente. Los campos a cero usan los defaults.
type Config struct {
	URL        string
	RatePerSec float64
	Burst      int
	MaxRetries int
	RetryWait  time.Duration
	Timeout    time.Duration
}

// Client es el cliente GraphQL del indexer con rate limiting y retries.
// Implementa ports.IndexerReader.
type Client struct {
	http       *http.Client
	url        string
	limiter    *rate.Limiter
	maxRetries int
	retryWait  time.Duration
}

// NewClient crea un Client. URL es obligatorio.
func NewClient(cfg Config) *Client {
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = defaultRatePerSec
	}
	if cfg.Burst <= 0 {
		cfg.Burst = defaultBurst
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = defaultRetryWait
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		http:       &http.Client{Timeout: cfg.Timeout},
		url:        cfg.URL,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.Burst),
		maxRetries: cfg.MaxRetries,
		retryWait:  cfg.RetryWait,
	}
}

// query ejecuta una query GraphQL y decodifica data en out.
// Los errores GraphQL en la respuesta se tratan como respuesta inválida.
func query[T any](ctx context.Context, c *Client, op, q string, vars map[string]any) (*T, error) {
	body, err := json.Marshal(graphQLRequest{Query: q, Variables: vars})
	if err != nil {
		return nil, fmt.Errorf("indexer.%s: marshal body: %w", op, err)
	}

	var resp graphQLResponse[T]
	if err := c.doWithRetry(ctx, op, body, &resp); err != nil {
		return nil, err
	}
	if len(resp.Errors) > 0 {
		return nil, &Error{Kind: domain.ErrMalformedResponse, Op: op, Err: errors.New(resp.Errors[0].Message)}
	}
	if resp.Data == nil {
		return nil, &Error{Kind: domain.ErrMalformedResponse, Op: op, Err: errors.New("missing data")}
	}
	return resp.Data, nil
}

// doWithRetry hace el POST con backoff exponencial.
// 429 y 5xx se reintentan; el resto de 4xx y los errores de decode no.
func (c *Client) doWithRetry(ctx context.Context, op string, body []byte, out any) error {
	var last *Error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, attempt-1); err != nil {
				return fmt.Errorf("indexer.%s: %w", op, err)
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("indexer.%s: rate limiter: %w", op, err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
		if err != nil {
			return &Error{Kind: domain.ErrIndexerUnavailable, Op: op, Err: err}
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("indexer.%s: %w", op, ctx.Err())
			}
			last = &Error{Kind: domain.ErrIndexerUnavailable, Op: op, Err: err}
			slog.Debug("indexer request failed", "op", op, "attempt", attempt+1, "err", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			last = &Error{Kind: domain.ErrRateLimited, Op: op, Status: resp.StatusCode}
			slog.Warn("rate limited by indexer", "op", op, "attempt", attempt+1)
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			last = &Error{Kind: domain.ErrIndexerUnavailable, Op: op, Status: resp.StatusCode}
			continue
		}

		if resp.StatusCode >= 400 {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			resp.Body.Close()
			return &Error{Kind: domain.ErrMalformedResponse, Op: op, Status: resp.StatusCode, Err: errors.New(string(msg))}
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			return &Error{Kind: domain.ErrMalformedResponse, Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
		}
		return nil
	}
	return last
}

// sleep espera con backoff exponencial, respetando el contexto.
func (c *Client) sleep(ctx context.Context, attempt int) error {
	wait := time.Duration(math.Pow(2, float64(attempt))) * c.retryWait
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
