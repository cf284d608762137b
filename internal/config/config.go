// Package config provides configuration loading for courtside.
package config

import (
	"fmt"
	"time"

	"github.com/fyrsmithlabs/courtside/internal/logging"
)

// Config is the root configuration.
type Config struct {
	Server       ServerConfig       `koanf:"server"`
	Logging      logging.Config     `koanf:"logging"`
	Orchestrator OrchestratorConfig `koanf:"orchestrator"`
	DataAPI      DataAPIConfig      `koanf:"data_api"`
	Classifier   ClassifierConfig   `koanf:"classifier"`
	Events       EventsConfig       `koanf:"events"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

// OrchestratorConfig configures turn execution behavior.
type OrchestratorConfig struct {
	// StepTimeout bounds one specialist invocation, including its tool
	// calls.
	StepTimeout Duration `koanf:"step_timeout"`
	// TurnTimeout bounds the whole turn from validation through synthesis.
	TurnTimeout Duration `koanf:"turn_timeout"`
	// MaxRetries is the retry budget per step for transient failures.
	MaxRetries int `koanf:"max_retries"`
	// InitialBackoff is the delay before the first retry.
	InitialBackoff Duration `koanf:"initial_backoff"`
	// MaxBackoff caps the retry delay.
	MaxBackoff Duration `koanf:"max_backoff"`
	// BackoffMultiplier is the exponential backoff factor.
	BackoffMultiplier float64 `koanf:"backoff_multiplier"`
	// FailurePolicy decides what a terminal step failure produces:
	// "surface" returns the failure, "degrade" synthesizes the partial
	// history with an explicit failure marker.
	FailurePolicy string `koanf:"failure_policy"`
	// ResubmitPolicy decides what a second message for an in-flight
	// session does: "supersede" or "reject".
	ResubmitPolicy string `koanf:"resubmit_policy"`
	// RetryDecodeErrors treats undecodable payloads as transient. Enable
	// only when the upstream source is known to be flaky.
	RetryDecodeErrors bool `koanf:"retry_decode_errors"`
}

// DataAPIConfig configures the upstream sports data source.
type DataAPIConfig struct {
	BaseURL        string   `koanf:"base_url"`
	RequestTimeout Duration `koanf:"request_timeout"`
	// RateLimit is requests per second toward the upstream API.
	RateLimit float64 `koanf:"rate_limit"`
	Burst     int     `koanf:"burst"`
}

// ClassifierConfig configures the baseline estimate source.
type ClassifierConfig struct {
	// Mode selects the estimator: "static" or "http".
	Mode string `koanf:"mode"`
	// URL is the model-serving endpoint for http mode.
	URL string `koanf:"url"`
	// StaticProbability is the fixed estimate for static mode.
	StaticProbability float64  `koanf:"static_probability"`
	RequestTimeout    Duration `koanf:"request_timeout"`
}

// EventsConfig configures the NATS turn event stream.
type EventsConfig struct {
	Enabled       bool   `koanf:"enabled"`
	URL           string `koanf:"url"`
	SubjectPrefix string `koanf:"subject_prefix"`
}

// NewDefaultConfig returns the default configuration.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8600,
		},
		Logging: logging.NewDefaultConfig(),
		Orchestrator: OrchestratorConfig{
			StepTimeout:       Duration(30 * time.Second),
			TurnTimeout:       Duration(3 * time.Minute),
			MaxRetries:        2,
			InitialBackoff:    Duration(500 * time.Millisecond),
			MaxBackoff:        Duration(10 * time.Second),
			BackoffMultiplier: 2.0,
			FailurePolicy:     "surface",
			ResubmitPolicy:    "supersede",
		},
		DataAPI: DataAPIConfig{
			BaseURL:        "http://localhost:8610",
			RequestTimeout: Duration(10 * time.Second),
			RateLimit:      5,
			Burst:          10,
		},
		Classifier: ClassifierConfig{
			Mode:              "static",
			StaticProbability: 0.5,
			RequestTimeout:    Duration(5 * time.Second),
		},
		Events: EventsConfig{
			Enabled:       false,
			URL:           "nats://localhost:4222",
			SubjectPrefix: "courtside.turns",
		},
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	switch c.Orchestrator.FailurePolicy {
	case "surface", "degrade":
	default:
		return fmt.Errorf("orchestrator.failure_policy must be surface or degrade, got %q", c.Orchestrator.FailurePolicy)
	}
	switch c.Orchestrator.ResubmitPolicy {
	case "supersede", "reject":
	default:
		return fmt.Errorf("orchestrator.resubmit_policy must be supersede or reject, got %q", c.Orchestrator.ResubmitPolicy)
	}
	if c.Orchestrator.MaxRetries < 0 {
		return fmt.Errorf("orchestrator.max_retries cannot be negative")
	}
	if c.Orchestrator.BackoffMultiplier < 1 {
		return fmt.Errorf("orchestrator.backoff_multiplier must be >= 1")
	}
	if c.Orchestrator.StepTimeout.Duration() <= 0 {
		return fmt.Errorf("orchestrator.step_timeout must be positive")
	}
	if c.Orchestrator.TurnTimeout.Duration() <= 0 {
		return fmt.Errorf("orchestrator.turn_timeout must be positive")
	}
	if c.DataAPI.BaseURL == "" {
		return fmt.Errorf("data_api.base_url is required")
	}
	if c.DataAPI.RateLimit <= 0 {
		return fmt.Errorf("data_api.rate_limit must be positive")
	}
	switch c.Classifier.Mode {
	case "static":
		if c.Classifier.StaticProbability < 0 || c.Classifier.StaticProbability > 1 {
			return fmt.Errorf("classifier.static_probability must be within [0, 1]")
		}
	case "http":
		if c.Classifier.URL == "" {
			return fmt.Errorf("classifier.url is required in http mode")
		}
	default:
		return fmt.Errorf("classifier.mode must be static or http, got %q", c.Classifier.Mode)
	}
	if c.Events.Enabled && c.Events.URL == "" {
		return fmt.Errorf("events.url is required when events are enabled")
	}
	return nil
}
