package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/dcmio/dcm/internal/classify"
	"github.com/dcmio/dcm/internal/diff"
	"github.com/dcmio/dcm/internal/schema"
	"github.com/dcmio/dcm/internal/store"
)

func newDiffCmd() *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "diff <old-schema.json> <new-schema.json>",
		Short: "structurally diff two JSON Schema documents and classify the result",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			oldBytes, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			newBytes, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}

			oldNode, err := schema.Parse(oldBytes)
			if err != nil {
				return store.BrokenContract(err)
			}
			newNode, err := schema.Parse(newBytes)
			if err != nil {
				return store.BrokenContract(err)
			}

			changes := diff.Diff(oldNode, newNode)
			m := classify.Mode(mode)
			if m == "" {
				m = classify.ModeBackward
			}
			result := classify.Classify(changes, m)

			return printJSON(cmd, map[string]any{
				"changes":  changes,
				"severity": result.Severity,
				"breaking": result.Breaking,
			})
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "backward", "compatibility mode (backward, forward, full, none)")
	return cmd
}
