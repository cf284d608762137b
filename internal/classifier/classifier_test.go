package classifier

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatic_Estimate(t *testing.T) {
	got, err := Static{Probability: 0.62}.Estimate(context.Background(), "401810173")
	require.NoError(t, err)
	assert.InDelta(t, 0.62, got, 1e-9)

	_, err = Static{Probability: 1.5}.Estimate(context.Background(), "401810173")
	assert.Error(t, err)
}

func TestHTTPEstimator_Estimate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/estimate", r.URL.Path)
		assert.Equal(t, "401810173", r.URL.Query().Get("game_id"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"game_id":"401810173","home_probability":0.58}`))
	}))
	defer srv.Close()

	est, err := NewHTTPEstimator(srv.URL, 0)
	require.NoError(t, err)

	got, err := est.Estimate(context.Background(), "401810173")
	require.NoError(t, err)
	assert.InDelta(t, 0.58, got, 1e-9)
}

func TestHTTPEstimator_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	est, err := NewHTTPEstimator(srv.URL, 0)
	require.NoError(t, err)

	_, err = est.Estimate(context.Background(), "401810173")
	assert.ErrorContains(t, err, "unexpected status 503")
}

func TestHTTPEstimator_RejectsOutOfRangeEstimate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"game_id":"401810173","home_probability":1.4}`))
	}))
	defer srv.Close()

	est, err := NewHTTPEstimator(srv.URL, 0)
	require.NoError(t, err)

	_, err = est.Estimate(context.Background(), "401810173")
	assert.ErrorContains(t, err, "out of range")
}

func TestHTTPEstimator_RejectsMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("probability: high"))
	}))
	defer srv.Close()

	est, err := NewHTTPEstimator(srv.URL, 0)
	require.NoError(t, err)

	_, err = est.Estimate(context.Background(), "401810173")
	assert.Error(t, err)
}

func TestNewHTTPEstimator_RequiresBaseURL(t *testing.T) {
	_, err := NewHTTPEstimator("", 0)
	assert.Error(t, err)
}
