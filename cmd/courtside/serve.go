package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/courtside/internal/agent"
	"github.com/fyrsmithlabs/courtside/internal/agent/scripted"
	"github.com/fyrsmithlabs/courtside/internal/classifier"
	"github.com/fyrsmithlabs/courtside/internal/config"
	"github.com/fyrsmithlabs/courtside/internal/events"
	"github.com/fyrsmithlabs/courtside/internal/httpapi"
	"github.com/fyrsmithlabs/courtside/internal/logging"
	"github.com/fyrsmithlabs/courtside/internal/orchestrator"
	"github.com/fyrsmithlabs/courtside/internal/sportsdata"
	"github.com/fyrsmithlabs/courtside/internal/synthesis"
	"github.com/fyrsmithlabs/courtside/internal/toolgateway"
	"github.com/fyrsmithlabs/courtside/internal/turnstore"
	"golang.org/x/time/rate"
)

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("shutting down", zap.String("signal", sig.String()))
		cancel()
	}()

	return run(ctx, cfg, logger)
}

// run wires all services and blocks until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	source, err := sportsdata.NewHTTPSource(sportsdata.HTTPConfig{
		BaseURL:        cfg.DataAPI.BaseURL,
		RequestTimeout: cfg.DataAPI.RequestTimeout.Duration(),
		RateLimit:      rate.Limit(cfg.DataAPI.RateLimit),
		Burst:          cfg.DataAPI.Burst,
	}, logger)
	if err != nil {
		return fmt.Errorf("init data source: %w", err)
	}

	gateway, err := toolgateway.New(source, logger)
	if err != nil {
		return fmt.Errorf("init tool gateway: %w", err)
	}

	registry := agent.NewRegistry()
	if err := scripted.RegisterAll(registry, gateway, logger); err != nil {
		return fmt.Errorf("register specialists: %w", err)
	}

	estimator, err := newEstimator(cfg.Classifier)
	if err != nil {
		return fmt.Errorf("init classifier: %w", err)
	}

	publisher, closePublisher, err := newPublisher(cfg.Events, logger)
	if err != nil {
		return fmt.Errorf("init event publisher: %w", err)
	}
	defer closePublisher()

	store, err := turnstore.New(turnstore.Policy(cfg.Orchestrator.ResubmitPolicy))
	if err != nil {
		return fmt.Errorf("init turn store: %w", err)
	}

	executor := orchestrator.NewExecutor(registry, orchestrator.ExecutorConfig{
		StepTimeout: cfg.Orchestrator.StepTimeout.Duration(),
		Retry: orchestrator.RetryConfig{
			MaxRetries:     cfg.Orchestrator.MaxRetries,
			InitialBackoff: cfg.Orchestrator.InitialBackoff.Duration(),
			MaxBackoff:     cfg.Orchestrator.MaxBackoff.Duration(),
			Multiplier:     cfg.Orchestrator.BackoffMultiplier,
		},
		RetryDecodeErrors: cfg.Orchestrator.RetryDecodeErrors,
	}, logger, publisher)

	orch, err := orchestrator.New(
		store,
		executor,
		registry,
		estimator,
		synthesis.Template{},
		publisher,
		orchestrator.Config{
			TurnTimeout:   cfg.Orchestrator.TurnTimeout.Duration(),
			FailurePolicy: orchestrator.FailurePolicy(cfg.Orchestrator.FailurePolicy),
		},
		logger,
	)
	if err != nil {
		return fmt.Errorf("init orchestrator: %w", err)
	}

	server, err := httpapi.NewServer(orch, logger, &httpapi.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	})
	if err != nil {
		return fmt.Errorf("init http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server shutdown complete")
	return nil
}

func newEstimator(cfg config.ClassifierConfig) (classifier.Estimator, error) {
	switch cfg.Mode {
	case "http":
		return classifier.NewHTTPEstimator(cfg.URL, cfg.RequestTimeout.Duration())
	default:
		return classifier.Static{Probability: cfg.StaticProbability}, nil
	}
}

func newPublisher(cfg config.EventsConfig, logger *zap.Logger) (events.Publisher, func(), error) {
	if !cfg.Enabled {
		return events.Nop{}, func() {}, nil
	}
	nc, err := nats.Connect(cfg.URL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to NATS at %s: %w", cfg.URL, err)
	}
	pub, err := events.NewNATSPublisher(nc, cfg.SubjectPrefix, logger)
	if err != nil {
		nc.Close()
		return nil, nil, err
	}
	return pub, nc.Close, nil
}
