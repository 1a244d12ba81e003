package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dcmio/dcm/internal/classify"
	"github.com/dcmio/dcm/internal/impact"
)

func newImpactCmd(loadApp func() (*app, error)) *cobra.Command {
	var (
		assetID    string
		schemaPath string
		mode       string
	)

	cmd := &cobra.Command{
		Use:   "impact",
		Short: "show what publishing a proposed schema would break and who depends on it",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			schemaDoc, err := os.ReadFile(schemaPath)
			if err != nil {
				return fmt.Errorf("reading schema file %s: %w", schemaPath, err)
			}

			m := classify.Mode(mode)
			if m == "" {
				m = classify.ModeBackward
			}

			ctx := context.Background()
			tx, err := a.store.Begin(ctx)
			if err != nil {
				return err
			}
			defer tx.Rollback(ctx)

			result, err := impact.Analyze(ctx, tx, assetID, json.RawMessage(schemaDoc), m)
			if err != nil {
				return err
			}
			return printJSON(cmd, result)
		},
	}

	cmd.Flags().StringVar(&assetID, "asset", "", "asset ID")
	cmd.Flags().StringVar(&schemaPath, "schema", "", "path to the proposed JSON Schema file")
	cmd.Flags().StringVar(&mode, "mode", "", "compatibility mode (backward, forward, full, none)")
	_ = cmd.MarkFlagRequired("asset")
	_ = cmd.MarkFlagRequired("schema")

	return cmd
}
