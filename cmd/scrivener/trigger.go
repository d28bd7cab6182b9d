package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newTriggerCmd(v *viper.Viper) *cobra.Command {
	var follow bool

	cmd := &cobra.Command{
		Use:   "trigger <call-id>",
		Short: "Start a run for a recorded call",
		Long: `Starts a run for the given call via a running worker. With --follow the
command tracks the run, prompting for a doc URL or a section confirmation
when the run waits on one.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newAPIClient(v)
			callID := args[0]

			var run runView
			if err := client.do(cmd.Context(), "POST", "/api/v1/runs", map[string]string{"call_id": callID}, &run); err != nil {
				return err
			}
			cmd.Printf("run %s (call %s, state %s)\n", run.ID, run.CallID, run.State)

			if !follow {
				return nil
			}
			return followRun(cmd, client, run.ID)
		},
	}

	cmd.Flags().BoolVar(&follow, "follow", true, "follow the run until it finishes")
	return cmd
}

// followRun polls the run and answers its waiting states from stdin.
func followRun(cmd *cobra.Command, client *apiClient, runID string) error {
	ctx := cmd.Context()
	lastState := ""
	answeredState := ""

	for {
		var run runView
		if err := client.do(ctx, "GET", "/api/v1/runs/"+runID, nil, &run); err != nil {
			return err
		}
		if run.State != lastState {
			cmd.Printf("state: %s\n", run.State)
			lastState = run.State
		}
		// Once a waiting state is answered, keep polling quietly until the
		// worker picks the signal up.
		if run.State != answeredState {
			answeredState = ""
		}

		switch run.State {
		case "completed":
			cmd.Printf("notes added to %s\n", run.DocURL)
			return nil
		case "failed":
			return fmt.Errorf("run failed: %s", run.LastError)
		case "waiting_doc_url":
			if answeredState == run.State {
				break
			}
			url, err := promptLine(cmd, fmt.Sprintf("%s\ndoc url (empty to stop following): ", run.WaitReason))
			if err != nil {
				return err
			}
			if url == "" {
				cmd.Printf("run %s left waiting; answer later with `scrivener signal %s --doc-url=<url>`\n", runID, runID)
				return nil
			}
			if err := client.do(ctx, "POST", "/api/v1/runs/"+runID+"/signals/doc-url", map[string]string{"doc_url": url}, nil); err != nil {
				cmd.Printf("signal rejected: %v\n", err)
			} else {
				answeredState = run.State
			}
		case "waiting_section":
			if answeredState == run.State {
				break
			}
			if _, err := promptLine(cmd, fmt.Sprintf("%s\ncreate the dated section, then press enter: ", run.WaitReason)); err != nil {
				return err
			}
			if err := client.do(ctx, "POST", "/api/v1/runs/"+runID+"/signals/section-ready", nil, nil); err != nil {
				cmd.Printf("signal rejected: %v\n", err)
			} else {
				answeredState = run.State
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
}

func promptLine(cmd *cobra.Command, prompt string) (string, error) {
	cmd.Print(prompt)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
