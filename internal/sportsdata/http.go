package sportsdata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// HTTPConfig configures the HTTP-backed source.
type HTTPConfig struct {
	// BaseURL is the root of the upstream data API.
	BaseURL string
	// RequestTimeout bounds a single fetch.
	RequestTimeout time.Duration
	// RateLimit is the sustained request rate toward the upstream API.
	RateLimit rate.Limit
	// Burst is the rate limiter burst size.
	Burst int
}

// HTTPSource fetches compact payloads from the upstream data API over HTTP,
// throttled by a client-side rate limiter.
type HTTPSource struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewHTTPSource creates an HTTP-backed source.
func NewHTTPSource(cfg HTTPConfig, logger *zap.Logger) (*HTTPSource, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	limit := cfg.RateLimit
	if limit == 0 {
		limit = rate.Limit(5)
	}
	burst := cfg.Burst
	if burst == 0 {
		burst = 10
	}
	return &HTTPSource{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
	}, nil
}

// Fetch retrieves the compact payload for endpoint. It blocks on the rate
// limiter first, so context cancellation is honored before any request is
// sent.
func (s *HTTPSource) Fetch(ctx context.Context, endpoint string, params map[string]string) ([]byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	u, err := url.Parse(s.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	u = u.JoinPath(endpoint)
	q := u.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", endpoint, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", endpoint, err)
	}

	s.logger.Debug("fetched compact payload",
		zap.String("endpoint", endpoint),
		zap.Int("bytes", len(body)),
		zap.Duration("duration", time.Since(start)),
	)
	return body, nil
}
