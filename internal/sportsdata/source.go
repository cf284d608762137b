// Package sportsdata is the boundary to the upstream sports data API. It
// exchanges compact payloads: gzip-compressed canonical JSON, decoded by the
// tool gateway before any specialist sees the data.
package sportsdata

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// Source fetches the compact payload for one endpoint. Implementations must
// return the wire bytes untouched; decoding is the caller's responsibility
// so that decode failures stay observable as typed errors.
type Source interface {
	Fetch(ctx context.Context, endpoint string, params map[string]string) ([]byte, error)
}

// maxPayloadBytes caps a single decoded payload.
const maxPayloadBytes = 4 << 20

// EncodePayload produces the compact wire form of v.
func EncodePayload(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, fmt.Errorf("compress payload: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compress payload: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodePayload expands a compact payload into v. A corrupt stream, a
// truncated payload, or JSON that does not match v's shape all fail; the
// caller decides how the failure is classified.
func DecodePayload(data []byte, v any) error {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("open compact payload: %w", err)
	}
	defer zr.Close()

	raw, err := io.ReadAll(io.LimitReader(zr, maxPayloadBytes))
	if err != nil {
		return fmt.Errorf("expand compact payload: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}
