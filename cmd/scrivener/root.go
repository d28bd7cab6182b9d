package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/fenwick-labs/scrivener/internal/config"
)

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := config.NewViper()

	cmd := &cobra.Command{
		Use:   "scrivener",
		Short: "Post-call notes automation",
		Long: `Scrivener turns recorded sales calls into structured notes inside each
account's Google Doc. The worker listens for call events, pulls transcripts,
restructures them with the model, splices the result into the right doc, and
confirms in Slack. The other commands talk to a running worker.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(newWorkerCmd(v))
	cmd.AddCommand(newTriggerCmd(v))
	cmd.AddCommand(newSignalCmd(v))
	cmd.AddCommand(newBackfillCmd(v))
	cmd.AddCommand(newMigrateCmd(v))

	return cmd
}

func setupLogging(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
