package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fenwick-labs/scrivener/internal/anthropic"
	"github.com/fenwick-labs/scrivener/internal/config"
	"github.com/fenwick-labs/scrivener/internal/docfinder"
	"github.com/fenwick-labs/scrivener/internal/gong"
	"github.com/fenwick-labs/scrivener/internal/google"
	"github.com/fenwick-labs/scrivener/internal/notes"
	"github.com/fenwick-labs/scrivener/internal/slack"
	"github.com/fenwick-labs/scrivener/internal/store"
	"github.com/fenwick-labs/scrivener/internal/workflow"
)

// pipeline bundles the clients and the run engine the worker and backfill
// commands share.
type pipeline struct {
	db     *store.Store
	engine *workflow.Engine
	poster *slack.Poster
}

func buildPipeline(ctx context.Context, cfg config.Config, bus workflow.Bus, logger *slog.Logger) (*pipeline, error) {
	db, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	llm := anthropic.NewClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
	gongClient := gong.NewClient(cfg.GongAPIKey, cfg.GongAPISecret, cfg.HomeDomain)

	// Drive and Docs share one service-account token source.
	ts, err := google.ServiceAccountTokenSource(ctx, cfg.GoogleCredentials)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("google credentials: %w", err)
	}
	driveSvc, err := google.NewDriveService(ctx, ts)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("drive service: %w", err)
	}
	docsSvc, err := google.NewDocsService(ctx, ts)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("docs service: %w", err)
	}
	driveClient := google.NewDriveClient(driveSvc, logger)
	docsClient := google.NewDocsClient(docsSvc, google.NewAuthorizedClient(ctx, ts), logger)

	poster := slack.NewPoster(cfg.SlackBotToken, cfg.SlackChannel, logger)

	finder := docfinder.New(driveClient, llm, cfg.HomeDomain, logger)
	structurer := notes.New(llm, logger)
	engine := workflow.New(db, gongClient, finder, structurer, docsClient, poster, bus, logger)

	return &pipeline{db: db, engine: engine, poster: poster}, nil
}

func (p *pipeline) Close() {
	p.db.Close()
}
