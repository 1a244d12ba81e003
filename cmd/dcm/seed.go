package main

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/dcmio/dcm/internal/publish"
	"github.com/dcmio/dcm/internal/store"
)

// seedAsset is one demo data contract the seed command installs.
type seedAsset struct {
	FQN            string
	Schema         json.RawMessage
	ConsumerTeamID string
}

// standardAssets is the built-in demo library: enough to exercise publish,
// impact, and the proposal lifecycle without hand-writing schema files.
var standardAssets = []seedAsset{
	{
		FQN:            "warehouse.orders",
		Schema:         json.RawMessage(`{"type":"object","properties":{"id":{"type":"integer"},"status":{"type":"string"}},"required":["id"]}`),
		ConsumerTeamID: "team-analytics",
	},
	{
		FQN:            "warehouse.customers",
		Schema:         json.RawMessage(`{"type":"object","properties":{"id":{"type":"integer"},"email":{"type":"string"}},"required":["id"]}`),
		ConsumerTeamID: "team-billing",
	},
}

func newSeedCmd(loadApp func() (*app, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "load a small set of demo assets, contracts, and registrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			return runSeed(cmd, a)
		},
	}
	return cmd
}

func runSeed(cmd *cobra.Command, a *app) error {
	ctx := context.Background()
	installed := make([]map[string]string, 0, len(standardAssets))

	for _, sa := range standardAssets {
		assetID := a.ids.NewID()
		tx, err := a.store.Begin(ctx)
		if err != nil {
			return err
		}
		if err := tx.CreateAsset(ctx, &store.Asset{ID: assetID, FQN: sa.FQN}); err != nil {
			_ = tx.Rollback(ctx)
			return err
		}
		regID := a.ids.NewID()
		if err := tx.CreateRegistration(ctx, &store.Registration{
			ID: regID, AssetID: assetID, ConsumerTeamID: sa.ConsumerTeamID, Status: store.RegistrationActive,
		}); err != nil {
			_ = tx.Rollback(ctx)
			return err
		}
		if err := tx.Commit(ctx); err != nil {
			return err
		}

		out, err := a.publish.Publish(ctx, publish.Input{
			AssetID:         assetID,
			ProposedSchema:  sa.Schema,
			ProposedVersion: "1.0.0",
			PublisherTeamID: "team-producer",
		})
		if err != nil {
			return err
		}

		installed = append(installed, map[string]string{
			"asset_id":    assetID,
			"fqn":         sa.FQN,
			"contract_id": out.Contract.ID,
		})
	}

	return printJSON(cmd, installed)
}
