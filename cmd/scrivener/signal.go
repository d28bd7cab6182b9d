package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newSignalCmd(v *viper.Viper) *cobra.Command {
	var docURL string
	var sectionReady bool

	cmd := &cobra.Command{
		Use:   "signal <run-id>",
		Short: "Answer a waiting run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (docURL != "") == sectionReady {
				return fmt.Errorf("provide exactly one of --doc-url or --section-ready")
			}

			client := newAPIClient(v)
			runID := args[0]

			if docURL != "" {
				if err := client.do(cmd.Context(), "POST", "/api/v1/runs/"+runID+"/signals/doc-url", map[string]string{"doc_url": docURL}, nil); err != nil {
					return err
				}
				cmd.Println("doc-url signal accepted")
				return nil
			}

			if err := client.do(cmd.Context(), "POST", "/api/v1/runs/"+runID+"/signals/section-ready", nil, nil); err != nil {
				return err
			}
			cmd.Println("section-ready signal accepted")
			return nil
		},
	}

	cmd.Flags().StringVar(&docURL, "doc-url", "", "destination doc URL for a run waiting on one")
	cmd.Flags().BoolVar(&sectionReady, "section-ready", false, "the dated meeting block now exists")
	return cmd
}
