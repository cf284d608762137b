// Package classifier is the boundary to the statistical model that produces
// the baseline win-probability estimate shared with every specialist. The
// model itself (training, features) lives elsewhere; this package only
// defines how an estimate is obtained for a game.
package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Estimator produces the baseline home-team win probability for a game.
type Estimator interface {
	Estimate(ctx context.Context, gameID string) (float64, error)
}

// Static returns a fixed estimate for every game. Used when no model
// service is configured and in tests.
type Static struct {
	Probability float64
}

// Estimate returns the configured probability.
func (s Static) Estimate(_ context.Context, _ string) (float64, error) {
	if s.Probability < 0 || s.Probability > 1 {
		return 0, fmt.Errorf("static probability %f out of range", s.Probability)
	}
	return s.Probability, nil
}

// HTTPEstimator queries a model-serving endpoint for the estimate.
type HTTPEstimator struct {
	baseURL string
	client  *http.Client
}

// NewHTTPEstimator creates an estimator against a model-serving URL.
func NewHTTPEstimator(baseURL string, timeout time.Duration) (*HTTPEstimator, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &HTTPEstimator{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

type estimateResponse struct {
	GameID          string  `json:"game_id"`
	HomeProbability float64 `json:"home_probability"`
}

// Estimate fetches the model's estimate for gameID.
func (e *HTTPEstimator) Estimate(ctx context.Context, gameID string) (float64, error) {
	u, err := url.Parse(e.baseURL)
	if err != nil {
		return 0, fmt.Errorf("parse base URL: %w", err)
	}
	u = u.JoinPath("estimate")
	q := u.Query()
	q.Set("game_id", gameID)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch estimate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("fetch estimate: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return 0, fmt.Errorf("read estimate response: %w", err)
	}

	var er estimateResponse
	if err := json.Unmarshal(body, &er); err != nil {
		return 0, fmt.Errorf("decode estimate response: %w", err)
	}
	if er.HomeProbability < 0 || er.HomeProbability > 1 {
		return 0, fmt.Errorf("estimate %f out of range", er.HomeProbability)
	}
	return er.HomeProbability, nil
}
