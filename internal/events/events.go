// Package events publishes turn lifecycle events to NATS for operational
// visibility. Publishing is best effort and never affects turn outcomes; a
// deployment without NATS configured uses the no-op publisher.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Type classifies a turn lifecycle event.
type Type string

const (
	TurnStarted   Type = "turn_started"
	StepStarted   Type = "step_started"
	StepSucceeded Type = "step_succeeded"
	StepRetried   Type = "step_retried"
	StepFailed    Type = "step_failed"
	TurnCompleted Type = "turn_completed"
	TurnFailed    Type = "turn_failed"
)

// Event is one turn lifecycle event.
type Event struct {
	Type       Type      `json:"type"`
	TurnID     string    `json:"turn_id"`
	SessionKey string    `json:"session_key"`
	Agent      string    `json:"agent,omitempty"`
	Step       int       `json:"step,omitempty"`
	Error      string    `json:"error,omitempty"`
	At         time.Time `json:"at"`
}

// Publisher emits turn lifecycle events.
type Publisher interface {
	Publish(ev Event)
}

// Nop discards all events.
type Nop struct{}

// Publish discards ev.
func (Nop) Publish(Event) {}

// NATSPublisher publishes events to NATS subjects of the form
// <prefix>.<type>.
type NATSPublisher struct {
	nc     *nats.Conn
	prefix string
	logger *zap.Logger
}

// NewNATSPublisher creates a publisher over an existing NATS connection.
func NewNATSPublisher(nc *nats.Conn, prefix string, logger *zap.Logger) (*NATSPublisher, error) {
	if nc == nil {
		return nil, fmt.Errorf("nats connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if prefix == "" {
		prefix = "courtside.turns"
	}
	return &NATSPublisher{nc: nc, prefix: prefix, logger: logger}, nil
}

// Publish emits ev. Failures are logged and dropped; the turn does not
// depend on the event stream.
func (p *NATSPublisher) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		p.logger.Warn("failed to marshal turn event", zap.Error(err))
		return
	}
	subject := fmt.Sprintf("%s.%s", p.prefix, ev.Type)
	if err := p.nc.Publish(subject, data); err != nil {
		p.logger.Warn("failed to publish turn event",
			zap.String("subject", subject),
			zap.Error(err),
		)
	}
}
