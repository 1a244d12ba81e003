package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dcmio/dcm/internal/publish"
)

func newPublishCmd(loadApp func() (*app, error)) *cobra.Command {
	var (
		assetID         string
		schemaPath      string
		proposedVersion string
		publisherTeam   string
		mode            string
		force           bool
	)

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "publish a proposed schema for an asset",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			schemaDoc, err := os.ReadFile(schemaPath)
			if err != nil {
				return fmt.Errorf("reading schema file %s: %w", schemaPath, err)
			}

			out, err := a.publish.Publish(context.Background(), publish.Input{
				AssetID:           assetID,
				ProposedSchema:    json.RawMessage(schemaDoc),
				ProposedVersion:   proposedVersion,
				CompatibilityMode: mode,
				PublisherTeamID:   publisherTeam,
				Force:             force,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd, out)
		},
	}

	cmd.Flags().StringVar(&assetID, "asset", "", "asset ID")
	cmd.Flags().StringVar(&schemaPath, "schema", "", "path to the proposed JSON Schema file")
	cmd.Flags().StringVar(&proposedVersion, "version", "", "proposed semantic version")
	cmd.Flags().StringVar(&publisherTeam, "team", "", "publishing team ID")
	cmd.Flags().StringVar(&mode, "mode", "", "compatibility mode (backward, forward, full, none)")
	cmd.Flags().BoolVar(&force, "force", false, "force-publish a major change without opening a proposal")
	_ = cmd.MarkFlagRequired("asset")
	_ = cmd.MarkFlagRequired("schema")
	_ = cmd.MarkFlagRequired("version")
	_ = cmd.MarkFlagRequired("team")

	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
