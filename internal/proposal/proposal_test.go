package proposal_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dcmio/dcm/internal/clock"
	"github.com/dcmio/dcm/internal/notify"
	"github.com/dcmio/dcm/internal/proposal"
	"github.com/dcmio/dcm/internal/publish"
	"github.com/dcmio/dcm/internal/store"
	"github.com/dcmio/dcm/internal/store/memstore"
)

type harness struct {
	store   store.Store
	publish *publish.Coordinator
	proposal *proposal.Service
}

func newHarness() *harness {
	s := memstore.New()
	c := clock.NewSequence(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Second)
	ids := clock.NewCounter("id")
	return &harness{
		store:    s,
		publish:  publish.New(s, c, ids, notify.Noop{}),
		proposal: proposal.New(s, c, ids, notify.Noop{}),
	}
}

// openBreakingProposal publishes an initial contract, registers two
// consumers, then publishes a breaking change that opens a proposal —
// spec §9 scenario 3/4/5's shared setup.
func openBreakingProposal(t *testing.T, h *harness) *store.Proposal {
	t.Helper()
	ctx := context.Background()

	tx, err := h.store.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.CreateAsset(ctx, &store.Asset{ID: "asset-1", FQN: "warehouse.orders"}))
	require.NoError(t, tx.Commit(ctx))

	_, err = h.publish.Publish(ctx, publish.Input{
		AssetID: "asset-1", ProposedSchema: json.RawMessage(`{"type":"object","properties":{"id":{"type":"integer"}}}`),
		ProposedVersion: "1.0.0", PublisherTeamID: "team-producer",
	})
	require.NoError(t, err)

	tx, err = h.store.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.CreateRegistration(ctx, &store.Registration{ID: "reg-1", AssetID: "asset-1", ConsumerTeamID: "team-c1", Status: store.RegistrationActive}))
	require.NoError(t, tx.CreateRegistration(ctx, &store.Registration{ID: "reg-2", AssetID: "asset-1", ConsumerTeamID: "team-c2", Status: store.RegistrationActive}))
	require.NoError(t, tx.Commit(ctx))

	out, err := h.publish.Publish(ctx, publish.Input{
		AssetID: "asset-1", ProposedSchema: json.RawMessage(`{"type":"object","properties":{"id":{"type":"string"}}}`),
		ProposedVersion: "2.0.0", PublisherTeamID: "team-producer",
	})
	require.NoError(t, err)
	require.NotNil(t, out.Proposal)
	return out.Proposal
}

func TestOneConsumerBlocksRejectsProposal(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	p := openBreakingProposal(t, h)

	_, err := h.proposal.Acknowledge(ctx, p.ID, "team-c1", store.AckApproved, "")
	require.NoError(t, err)
	resolved, err := h.proposal.Acknowledge(ctx, p.ID, "team-c2", store.AckBlocked, "not ready")
	require.NoError(t, err)
	require.Equal(t, store.ProposalRejected, resolved.Status)

	_, err = h.proposal.Publish(ctx, p.ID, "team-producer")
	var storeErr *store.Error
	require.ErrorAs(t, err, &storeErr)
	require.Equal(t, store.KindConflict, storeErr.Kind)
}

func TestAllApproveThenPublish(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	p := openBreakingProposal(t, h)

	_, err := h.proposal.Acknowledge(ctx, p.ID, "team-c1", store.AckApproved, "")
	require.NoError(t, err)
	resolved, err := h.proposal.Acknowledge(ctx, p.ID, "team-c2", store.AckMigrating, "migrating next sprint")
	require.NoError(t, err)
	require.Equal(t, store.ProposalApproved, resolved.Status)

	contract, err := h.proposal.Publish(ctx, p.ID, "team-producer")
	require.NoError(t, err)
	require.Equal(t, "2.0.0", contract.Version)
	require.Equal(t, store.ContractActive, contract.Status)
}

func TestPublishOnStaleBaseRejectsAsStale(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	p := openBreakingProposal(t, h)

	_, err := h.proposal.Acknowledge(ctx, p.ID, "team-c1", store.AckApproved, "")
	require.NoError(t, err)
	_, err = h.proposal.Acknowledge(ctx, p.ID, "team-c2", store.AckApproved, "")
	require.NoError(t, err)

	// A forced publish on the same asset advances the current contract out
	// from under the approved proposal's base.
	_, err = h.publish.Publish(ctx, publish.Input{
		AssetID: "asset-1", ProposedSchema: json.RawMessage(`{"type":"object","properties":{"id":{"type":"boolean"}}}`),
		ProposedVersion: "3.0.0", PublisherTeamID: "team-producer", Force: true,
	})
	require.NoError(t, err)

	_, err = h.proposal.Publish(ctx, p.ID, "team-producer")
	var storeErr *store.Error
	require.ErrorAs(t, err, &storeErr)
	require.Equal(t, store.KindConflict, storeErr.Kind)

	tx, err := h.store.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)
	reloaded, err := tx.GetProposal(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, store.ProposalRejected, reloaded.Status)
}

func TestAcknowledgeRejectsConsumerOutsideSnapshot(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	p := openBreakingProposal(t, h)

	_, err := h.proposal.Acknowledge(ctx, p.ID, "team-outsider", store.AckApproved, "")
	var storeErr *store.Error
	require.ErrorAs(t, err, &storeErr)
	require.Equal(t, store.KindForbidden, storeErr.Kind)
}

func TestWithdrawOnlyFromPending(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	p := openBreakingProposal(t, h)

	resolved, err := h.proposal.Withdraw(ctx, p.ID, "team-producer")
	require.NoError(t, err)
	require.Equal(t, store.ProposalWithdrawn, resolved.Status)

	_, err = h.proposal.Withdraw(ctx, p.ID, "team-producer")
	var storeErr *store.Error
	require.ErrorAs(t, err, &storeErr)
	require.Equal(t, store.KindConflict, storeErr.Kind)
}

func TestForceApprovesWithUnresolvedConsumers(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	p := openBreakingProposal(t, h)

	_, err := h.proposal.Acknowledge(ctx, p.ID, "team-c1", store.AckApproved, "")
	require.NoError(t, err)

	resolved, err := h.proposal.Force(ctx, p.ID, "admin")
	require.NoError(t, err)
	require.Equal(t, store.ProposalApproved, resolved.Status)
}
