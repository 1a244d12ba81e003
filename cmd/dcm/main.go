// Command dcm runs the data contract coordination service.
//
// It tracks JSON Schema contracts for data assets, diffs and classifies
// proposed schema changes, and runs the publish/proposal workflow that
// gates breaking changes on consumer acknowledgment.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dcmio/dcm/internal/config"
)

// version is set via ldflags at build time.
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "dcm: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "dcm",
		Short:         "Data contract coordination service",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a TOML config file")

	loadApp := func() (*app, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		return newApp(cfg), nil
	}

	root.AddCommand(
		newServeCmd(loadApp),
		newPublishCmd(loadApp),
		newDiffCmd(),
		newImpactCmd(loadApp),
		newAckCmd(loadApp),
		newWithdrawCmd(loadApp),
		newForceCmd(loadApp),
		newSeedCmd(loadApp),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print the dcm version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), version)
			return nil
		},
	}
}
