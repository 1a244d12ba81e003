// Package proposal implements the proposal lifecycle operations (spec
// §4.6): acknowledge, the resolution trigger that follows every
// acknowledge, withdraw, force, and the explicit publish that moves an
// approved proposal into a real contract.
package proposal

import (
	"context"
	"errors"
	"fmt"

	"github.com/dcmio/dcm/internal/audit"
	"github.com/dcmio/dcm/internal/classify"
	"github.com/dcmio/dcm/internal/clock"
	"github.com/dcmio/dcm/internal/notify"
	"github.com/dcmio/dcm/internal/publish"
	"github.com/dcmio/dcm/internal/store"
	"github.com/dcmio/dcm/internal/transitions"
)

// Service runs the proposal lifecycle operations against a Store.
type Service struct {
	Store      store.Store
	Clock      clock.Clock
	IDs        clock.IDGenerator
	Audit      *audit.Recorder
	Notifier   notify.Notifier
	Transitions *transitions.Registry
}

// New builds a Service with sensible collaborators.
func New(s store.Store, c clock.Clock, ids clock.IDGenerator, notifier notify.Notifier) *Service {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &Service{
		Store:       s,
		Clock:       c,
		IDs:         ids,
		Audit:       audit.New(c, ids),
		Notifier:    notifier,
		Transitions: transitions.NewRegistry(),
	}
}

// ErrNotInSnapshot is returned by Acknowledge when the responding team was
// not part of the proposal's consumer snapshot (spec §4.6: "reject
// FORBIDDEN otherwise").
var ErrNotInSnapshot = errors.New("consumer team is not in the proposal's snapshot set")

// Acknowledge records a consumer team's response to a pending proposal and
// runs the resolution trigger (spec §4.6).
func (s *Service) Acknowledge(ctx context.Context, proposalID, consumerTeamID string, response store.AckResponse, notes string) (*store.Proposal, error) {
	tx, err := s.Store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	p, err := tx.GetProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if err := tx.LockAsset(ctx, p.AssetID); err != nil {
		return nil, err
	}
	// Re-read the proposal after acquiring the asset lock: another
	// transaction may have resolved it between our first read and the lock.
	p, err = tx.GetProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if p.Status != store.ProposalPending {
		return nil, store.Conflict("proposal %q is not pending (status=%s)", p.ID, p.Status)
	}
	if !inSnapshot(p, consumerTeamID) {
		return nil, &store.Error{
			Kind:    store.KindForbidden,
			Message: fmt.Sprintf("team %q is not in proposal %q's consumer snapshot", consumerTeamID, p.ID),
			Err:     ErrNotInSnapshot,
		}
	}

	ack := &store.Acknowledgment{
		ID:             s.IDs.NewID(),
		ProposalID:     p.ID,
		ConsumerTeamID: consumerTeamID,
		Response:       response,
		Notes:          notes,
		RespondedAt:    s.Clock.Now(),
	}
	if err := tx.UpsertAcknowledgment(ctx, ack); err != nil {
		return nil, err
	}
	if err := s.Audit.Record(ctx, tx, "acknowledgment", ack.ID, "proposal.acknowledged", consumerTeamID, map[string]any{
		"proposal_id": p.ID, "response": string(response),
	}); err != nil {
		return nil, err
	}

	resolved, err := s.resolve(ctx, tx, p)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	committed = true
	return resolved, nil
}

// resolve applies the resolution trigger (spec §4.6) after every
// acknowledge. It must run inside the same transaction as the acknowledge
// that triggered it.
func (s *Service) resolve(ctx context.Context, tx store.Tx, p *store.Proposal) (*store.Proposal, error) {
	acks, err := tx.ListAcknowledgments(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	byTeam := map[string]store.AckResponse{}
	for _, a := range acks {
		byTeam[a.ConsumerTeamID] = a.Response
	}

	anyBlocked := false
	allResponded := true
	for _, teamID := range p.SnapshotConsumerTeamIDs {
		resp, ok := byTeam[teamID]
		if !ok {
			allResponded = false
			continue
		}
		if resp == store.AckBlocked {
			anyBlocked = true
		}
		if resp != store.AckApproved && resp != store.AckMigrating {
			allResponded = false
		}
	}

	switch {
	case anyBlocked:
		return s.transitionTo(ctx, tx, p, store.ProposalRejected, "proposal.rejected", p.ProposedBy, nil)
	case allResponded:
		return s.transitionTo(ctx, tx, p, store.ProposalApproved, "proposal.approved", p.ProposedBy, nil)
	default:
		return p, nil
	}
}

func (s *Service) transitionTo(ctx context.Context, tx store.Tx, p *store.Proposal, to store.ProposalStatus, action, actorID string, payload map[string]any) (*store.Proposal, error) {
	if err := s.Transitions.Validate("proposal", string(p.Status), string(to), p); err != nil {
		return nil, err
	}
	p.Status = to
	now := s.Clock.Now()
	p.ResolvedAt = &now
	if err := tx.UpdateProposal(ctx, p); err != nil {
		return nil, err
	}
	if err := s.Audit.Record(ctx, tx, "proposal", p.ID, action, actorID, payload); err != nil {
		return nil, err
	}
	return p, nil
}

func inSnapshot(p *store.Proposal, teamID string) bool {
	for _, t := range p.SnapshotConsumerTeamIDs {
		if t == teamID {
			return true
		}
	}
	return false
}

// Withdraw moves a pending proposal to withdrawn. Only the proposing team
// or an admin may call this (authorization is checked outside the core,
// spec §4.5 step 7 / §6).
func (s *Service) Withdraw(ctx context.Context, proposalID, actorID string) (*store.Proposal, error) {
	tx, err := s.Store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	p, err := tx.GetProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if err := tx.LockAsset(ctx, p.AssetID); err != nil {
		return nil, err
	}
	p, err = tx.GetProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if p.Status != store.ProposalPending {
		return nil, store.Conflict("proposal %q is not pending (status=%s)", p.ID, p.Status)
	}

	resolved, err := s.transitionTo(ctx, tx, p, store.ProposalWithdrawn, "proposal.withdrawn", actorID, nil)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	committed = true
	return resolved, nil
}

// Force treats every outstanding acknowledgment as approved and moves the
// proposal straight to approved (spec §4.6: admin only, checked outside the
// core).
func (s *Service) Force(ctx context.Context, proposalID, actorID string) (*store.Proposal, error) {
	tx, err := s.Store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	p, err := tx.GetProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if err := tx.LockAsset(ctx, p.AssetID); err != nil {
		return nil, err
	}
	p, err = tx.GetProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if p.Status != store.ProposalPending {
		return nil, store.Conflict("proposal %q is not pending (status=%s)", p.ID, p.Status)
	}

	acks, err := tx.ListAcknowledgments(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	responded := map[string]bool{}
	for _, a := range acks {
		responded[a.ConsumerTeamID] = true
	}
	var unresolved []string
	for _, teamID := range p.SnapshotConsumerTeamIDs {
		if !responded[teamID] {
			unresolved = append(unresolved, teamID)
		}
	}

	resolved, err := s.transitionTo(ctx, tx, p, store.ProposalApproved, "proposal.force_approved", actorID, map[string]any{
		"unresolved_consumers": unresolved,
	})
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	committed = true
	return resolved, nil
}

// Publish moves an approved proposal into a published contract (spec
// §4.6). It re-verifies that the proposal's base contract is still the
// asset's current contract (invariant 4); if another publish has since
// superseded it, the proposal is marked rejected as stale instead.
func (s *Service) Publish(ctx context.Context, proposalID, actorID string) (*store.Contract, error) {
	tx, err := s.Store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	p, err := tx.GetProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if err := tx.LockAsset(ctx, p.AssetID); err != nil {
		return nil, err
	}
	p, err = tx.GetProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if p.Status != store.ProposalApproved {
		return nil, store.Conflict("proposal %q is not approved (status=%s)", p.ID, p.Status)
	}

	asset, err := tx.GetAsset(ctx, p.AssetID)
	if err != nil {
		return nil, err
	}
	current, err := tx.GetActiveContract(ctx, p.AssetID)
	if err != nil {
		return nil, err
	}

	if current == nil || current.ID != p.BaseContractID {
		if _, err := s.transitionTo(ctx, tx, p, store.ProposalRejected, "proposal.rejected", actorID, map[string]any{"reason": "stale_base"}); err != nil {
			return nil, err
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}
		committed = true
		return nil, store.Conflict("proposal %q's base contract %q is no longer current for asset %q", p.ID, p.BaseContractID, p.AssetID)
	}

	contract, err := publish.InsertAndActivate(ctx, tx, s.Audit, s.Transitions, s.IDs, asset, current, p.ProposedVersion, p.ProposedSchema, classify.Mode(p.ProposedCompatibilityMode), nil, actorID, p.ChangeType)
	if err != nil {
		return nil, err
	}

	if _, err := s.transitionTo(ctx, tx, p, store.ProposalPublished, "proposal.published", actorID, map[string]any{"contract_id": contract.ID}); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	committed = true
	return contract, nil
}
