package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/dcmio/dcm/internal/store"
)

func newAckCmd(loadApp func() (*app, error)) *cobra.Command {
	var (
		proposalID string
		teamID     string
		response   string
		notes      string
	)

	cmd := &cobra.Command{
		Use:   "ack",
		Short: "record a consumer team's response to a pending proposal",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			resolved, err := a.proposal.Acknowledge(context.Background(), proposalID, teamID, store.AckResponse(response), notes)
			if err != nil {
				return err
			}
			return printJSON(cmd, resolved)
		},
	}

	cmd.Flags().StringVar(&proposalID, "proposal", "", "proposal ID")
	cmd.Flags().StringVar(&teamID, "team", "", "responding consumer team ID")
	cmd.Flags().StringVar(&response, "response", "", "approved, blocked, or migrating")
	cmd.Flags().StringVar(&notes, "notes", "", "optional free-text notes")
	_ = cmd.MarkFlagRequired("proposal")
	_ = cmd.MarkFlagRequired("team")
	_ = cmd.MarkFlagRequired("response")

	return cmd
}

func newWithdrawCmd(loadApp func() (*app, error)) *cobra.Command {
	var (
		proposalID string
		actorID    string
	)

	cmd := &cobra.Command{
		Use:   "withdraw",
		Short: "withdraw a pending proposal",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			resolved, err := a.proposal.Withdraw(context.Background(), proposalID, actorID)
			if err != nil {
				return err
			}
			return printJSON(cmd, resolved)
		},
	}

	cmd.Flags().StringVar(&proposalID, "proposal", "", "proposal ID")
	cmd.Flags().StringVar(&actorID, "actor", "", "team or user withdrawing the proposal")
	_ = cmd.MarkFlagRequired("proposal")
	_ = cmd.MarkFlagRequired("actor")

	return cmd
}

func newForceCmd(loadApp func() (*app, error)) *cobra.Command {
	var (
		proposalID string
		actorID    string
	)

	cmd := &cobra.Command{
		Use:   "force",
		Short: "treat a pending proposal's outstanding acknowledgments as approved (admin only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			resolved, err := a.proposal.Force(context.Background(), proposalID, actorID)
			if err != nil {
				return err
			}
			return printJSON(cmd, resolved)
		},
	}

	cmd.Flags().StringVar(&proposalID, "proposal", "", "proposal ID")
	cmd.Flags().StringVar(&actorID, "actor", "", "admin forcing the proposal")
	_ = cmd.MarkFlagRequired("proposal")
	_ = cmd.MarkFlagRequired("actor")

	return cmd
}
