package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fenwick-labs/scrivener/internal/api"
	"github.com/fenwick-labs/scrivener/internal/config"
	"github.com/fenwick-labs/scrivener/internal/events"
	"github.com/fenwick-labs/scrivener/internal/processor"
)

func newWorkerCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the notes worker",
		Long: `Connects to Postgres, NATS, Gong, Google, Anthropic and Slack, resumes
any runs interrupted by the last shutdown, and processes call events until
stopped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			return runWorker(cfg)
		},
	}
}

func runWorker(cfg config.Config) error {
	logger := setupLogging(cfg.LogLevel)

	logger.Info("scrivener starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Events
	bus, err := events.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, logger)
	if err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}
	defer bus.Close()
	logger.Info("NATS connected", "url", cfg.NatsURL)

	// Database, integration clients, and the run engine
	p, err := buildPipeline(ctx, cfg, bus, logger)
	if err != nil {
		return err
	}
	defer p.Close()
	logger.Info("pipeline ready", "model", cfg.AnthropicModel, "channel", cfg.SlackChannel)

	proc := processor.New(p.engine, p.db, logger)

	// Subscriptions. Workers share a queue group so each trigger, signal,
	// and reaction lands on exactly one of them.
	if err := bus.QueueSubscribe(events.SubjectCallRecorded, events.QueueWorkers, proc.HandleCallRecorded); err != nil {
		return fmt.Errorf("subscribe to call events: %w", err)
	}
	if err := bus.QueueSubscribe(events.SubjectDocURLSignal, events.QueueWorkers, proc.HandleDocURLSignal); err != nil {
		return fmt.Errorf("subscribe to doc-url signals: %w", err)
	}
	if err := bus.QueueSubscribe(events.SubjectSectionSignal, events.QueueWorkers, proc.HandleSectionSignal); err != nil {
		return fmt.Errorf("subscribe to section signals: %w", err)
	}
	if err := bus.QueueSubscribe(events.SubjectSlackReaction, events.QueueWorkers, proc.HandleReaction); err != nil {
		return fmt.Errorf("subscribe to slack reactions: %w", err)
	}

	// Runs interrupted mid-step by the last shutdown pick up where they
	// stopped. Waiting runs stay parked until their signal arrives.
	go func() {
		if err := p.engine.ResumeInFlight(ctx); err != nil {
			logger.Error("failed to resume in-flight runs", "error", err)
		}
	}()

	// HTTP API
	srv := api.NewServer(cfg.Port, cfg.APIToken, p.db, p.engine, logger)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	logger.Info("scrivener ready", "port", cfg.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutting down")
	cancel()
	logger.Info("scrivener stopped")
	return nil
}
