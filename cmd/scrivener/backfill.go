package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fenwick-labs/scrivener/internal/backfill"
	"github.com/fenwick-labs/scrivener/internal/config"
)

func newBackfillCmd(v *viper.Viper) *cobra.Command {
	var (
		idsFile   string
		batchSize int
		pause     time.Duration
		dryRun    bool
		reprocess bool
	)

	cmd := &cobra.Command{
		Use:   "backfill [call-id ...]",
		Short: "Replay historical calls through the pipeline",
		Long: `Feeds recorded calls through the same pipeline live calls take, in
rate-limited batches. Call IDs come from the arguments, from --file (one ID
per line, # comments allowed), or both. Calls that already have a completed
run are skipped unless --reprocess is set. Runs that park waiting for a doc
URL or a meeting block are left to their Slack prompts.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			callIDs := append([]string(nil), args...)
			if idsFile != "" {
				fromFile, err := readCallIDs(idsFile)
				if err != nil {
					return err
				}
				callIDs = append(callIDs, fromFile...)
			}
			if len(callIDs) == 0 {
				return fmt.Errorf("no call ids given")
			}

			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			logger := setupLogging(cfg.LogLevel)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// No bus: backfill runs the engine directly, so nothing is
			// listening for run status events.
			p, err := buildPipeline(ctx, cfg, nil, logger)
			if err != nil {
				return err
			}
			defer p.Close()

			runner := backfill.NewRunner(backfill.Config{
				CallIDs:   callIDs,
				BatchSize: batchSize,
				Pause:     pause,
				DryRun:    dryRun,
				Reprocess: reprocess,
			}, p.engine, p.db, p.poster, logger)

			tally, err := runner.Run(ctx)
			if tally != nil {
				cmd.Printf("processed %d, skipped %d, waiting %d, failed %d\n",
					tally.Processed, tally.Skipped, tally.Waiting, tally.Failed)
			}
			return err
		},
	}

	cmd.Flags().StringVar(&idsFile, "file", "", "file with one call ID per line")
	cmd.Flags().IntVar(&batchSize, "batch-size", 10, "calls per batch before pausing")
	cmd.Flags().DurationVar(&pause, "pause", 30*time.Second, "pause between batches")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would run without running it")
	cmd.Flags().BoolVar(&reprocess, "reprocess", false, "run calls that already have a completed run")
	return cmd
}

func readCallIDs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open call id file: %w", err)
	}
	defer f.Close()

	var ids []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read call id file: %w", err)
	}
	return ids, nil
}
