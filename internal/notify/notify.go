// Package notify implements the Notifier interface (spec §6) that the
// publish coordinator calls after a proposal is opened. Dispatch is
// fire-and-forget after commit (spec §5): a notification failure never
// rolls back or retries the transaction that opened the proposal, it only
// affects whether the consumer hears about it promptly.
package notify

import (
	"context"
	"log/slog"

	"github.com/dcmio/dcm/internal/store"
)

// Notifier is called after a proposal is opened. A nil Notifier (Noop) is
// valid — "no notifications configured" per spec §6.
type Notifier interface {
	NotifyProposalOpened(ctx context.Context, proposal *store.Proposal, consumerTeamIDs []string) error
}

// Noop discards every notification. Useful for tests and for deployments
// that haven't wired a webhook target yet.
type Noop struct{}

func (Noop) NotifyProposalOpened(ctx context.Context, proposal *store.Proposal, consumerTeamIDs []string) error {
	return nil
}

// Logging wraps another Notifier and records every dispatch via slog,
// regardless of outcome — useful in development and layered in front of a
// real Webhook notifier in production.
type Logging struct {
	Next   Notifier
	Logger *slog.Logger
}

func (l Logging) NotifyProposalOpened(ctx context.Context, proposal *store.Proposal, consumerTeamIDs []string) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	next := l.Next
	if next == nil {
		next = Noop{}
	}
	err := next.NotifyProposalOpened(ctx, proposal, consumerTeamIDs)
	if err != nil {
		logger.Warn("proposal notification failed", "proposal_id", proposal.ID, "asset_id", proposal.AssetID, "error", err)
	} else {
		logger.Info("proposal notification dispatched", "proposal_id", proposal.ID, "asset_id", proposal.AssetID, "consumers", len(consumerTeamIDs))
	}
	return err
}
