package sportsdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type marketFixture struct {
	GameID string  `json:"game_id"`
	Spread float64 `json:"spread"`
}

func TestDecodePayload_RoundTrip(t *testing.T) {
	payload, err := EncodePayload(marketFixture{GameID: "401810173", Spread: -3.0})
	require.NoError(t, err)

	var out marketFixture
	require.NoError(t, DecodePayload(payload, &out))
	assert.Equal(t, "401810173", out.GameID)
}

func TestDecodePayload_CorruptStream(t *testing.T) {
	var out marketFixture
	err := DecodePayload([]byte("definitely not gzip"), &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compact payload")
}

func TestDecodePayload_Truncated(t *testing.T) {
	payload, err := EncodePayload(marketFixture{GameID: "401810173"})
	require.NoError(t, err)

	var out marketFixture
	err = DecodePayload(payload[:len(payload)/2], &out)
	require.Error(t, err)
}

func TestDecodePayload_UnknownFields(t *testing.T) {
	payload, err := EncodePayload(map[string]any{"game_id": "1", "surprise": true})
	require.NoError(t, err)

	var out marketFixture
	require.Error(t, DecodePayload(payload, &out))
}

func TestHTTPSource_Fetch(t *testing.T) {
	payload, err := EncodePayload(marketFixture{GameID: "401810173"})
	require.NoError(t, err)

	var gotPath, gotGameID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotGameID = r.URL.Query().Get("game_id")
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	src, err := NewHTTPSource(HTTPConfig{BaseURL: srv.URL}, zap.NewNop())
	require.NoError(t, err)

	body, err := src.Fetch(context.Background(), "markets", map[string]string{"game_id": "401810173"})
	require.NoError(t, err)
	assert.Equal(t, payload, body)
	assert.Equal(t, "/markets", gotPath)
	assert.Equal(t, "401810173", gotGameID)
}

func TestHTTPSource_FetchNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	src, err := NewHTTPSource(HTTPConfig{BaseURL: srv.URL}, zap.NewNop())
	require.NoError(t, err)

	_, err = src.Fetch(context.Background(), "markets", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 502")
}

func TestHTTPSource_HonorsContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	src, err := NewHTTPSource(HTTPConfig{BaseURL: srv.URL}, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = src.Fetch(ctx, "markets", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewHTTPSource_RequiresBaseURL(t *testing.T) {
	_, err := NewHTTPSource(HTTPConfig{}, zap.NewNop())
	require.Error(t, err)
}
