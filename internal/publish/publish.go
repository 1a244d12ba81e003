// Package publish implements the write-path state machine (spec §4.5): the
// transactional decision of whether a proposed schema auto-publishes,
// force-publishes, or opens a proposal for consumer acknowledgment.
package publish

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Masterminds/semver/v3"

	"github.com/dcmio/dcm/internal/audit"
	"github.com/dcmio/dcm/internal/classify"
	"github.com/dcmio/dcm/internal/clock"
	"github.com/dcmio/dcm/internal/diff"
	"github.com/dcmio/dcm/internal/guardrails"
	"github.com/dcmio/dcm/internal/notify"
	"github.com/dcmio/dcm/internal/schema"
	"github.com/dcmio/dcm/internal/store"
	"github.com/dcmio/dcm/internal/transitions"
)

// Coordinator runs the publish state machine against a Store.
type Coordinator struct {
	Store       store.Store
	Clock       clock.Clock
	IDs         clock.IDGenerator
	Audit       *audit.Recorder
	Notifier    notify.Notifier
	Guards      *guardrails.Runner
	Transitions *transitions.Registry
}

// New builds a Coordinator with sensible collaborators.
func New(s store.Store, c clock.Clock, ids clock.IDGenerator, notifier notify.Notifier) *Coordinator {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &Coordinator{
		Store:       s,
		Clock:       c,
		IDs:         ids,
		Audit:       audit.New(c, ids),
		Notifier:    notifier,
		Guards:      guardrails.NewRunner(),
		Transitions: transitions.NewRegistry(),
	}
}

// Input is what a caller supplies to Publish (spec §4.5).
type Input struct {
	AssetID            string
	ProposedSchema     json.RawMessage
	ProposedVersion    string
	CompatibilityMode  string // optional; defaults to the current contract's mode, or "backward"
	PublisherTeamID    string
	Force              bool
	Guarantees         *store.Guarantees
}

// Output is the result of a successful Publish call. Exactly one of
// Contract or Proposal is set.
type Output struct {
	Contract   *store.Contract
	Proposal   *store.Proposal
	Guardrails *guardrails.Outcome
}

// Publish runs the full state machine inside a single transaction (spec
// §4.5 steps 1-8).
func (c *Coordinator) Publish(ctx context.Context, in Input) (*Output, error) {
	tx, err := c.Store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	asset, err := tx.GetAsset(ctx, in.AssetID)
	if err != nil {
		return nil, err
	}

	if err := tx.LockAsset(ctx, in.AssetID); err != nil {
		return nil, err
	}

	current, err := tx.GetActiveContract(ctx, in.AssetID)
	if err != nil {
		return nil, err
	}

	pending, err := tx.GetPendingProposal(ctx, in.AssetID)
	if err != nil {
		return nil, err
	}
	if pending != nil {
		return nil, store.Conflict("asset %q already has a pending proposal %q", in.AssetID, pending.ID)
	}

	mode := classify.Mode(in.CompatibilityMode)
	if mode == "" {
		if current != nil {
			mode = classify.Mode(current.CompatibilityMode)
		} else {
			mode = classify.ModeBackward
		}
	}

	proposedVer, err := semver.NewVersion(in.ProposedVersion)
	if err != nil {
		return nil, store.Validation("proposed_version %q is not a valid semantic version: %v", in.ProposedVersion, err)
	}
	if current != nil {
		currentVer, err := semver.NewVersion(current.Version)
		if err != nil {
			return nil, store.Internal(fmt.Errorf("current contract %q has unparseable version %q: %w", current.ID, current.Version, err))
		}
		if !proposedVer.GreaterThan(currentVer) {
			return nil, store.Validation("proposed_version %q must be strictly greater than current version %q", in.ProposedVersion, current.Version)
		}
	}

	// No current contract: initial publish, always succeeds without a diff.
	if current == nil {
		contract, err := InsertAndActivate(ctx, tx, c.Audit, c.Transitions, c.IDs, asset, nil, in.ProposedVersion, in.ProposedSchema, mode, in.Guarantees, in.PublisherTeamID, store.ChangePatch)
		if err != nil {
			return nil, err
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}
		committed = true
		return &Output{Contract: contract}, nil
	}

	oldNode, err := schema.Parse(current.Schema)
	if err != nil {
		return nil, store.BrokenContract(err)
	}
	newNode, err := schema.Parse(in.ProposedSchema)
	if err != nil {
		return nil, store.BrokenContract(err)
	}
	changes := diff.Diff(oldNode, newNode)
	classified := classify.Classify(changes, mode)

	registrations, err := tx.ListActiveRegistrations(ctx, in.AssetID)
	if err != nil {
		return nil, err
	}

	gctx := &guardrails.GuardContext{
		AssetID:             in.AssetID,
		Force:               in.Force,
		HasCurrentContract:  true,
		CurrentVersion:      current.Version,
		ProposedVersion:     in.ProposedVersion,
		HasPendingProposal:  false,
		Severity:            string(classified.Severity),
		ActiveConsumerCount: len(registrations),
	}
	outcome := c.Guards.Run(gctx, guardrails.PublishGuards())

	changeType := store.ChangeType(classified.Severity)

	if classified.Severity != classify.SeverityMajor {
		contract, err := InsertAndActivate(ctx, tx, c.Audit, c.Transitions, c.IDs, asset, current, in.ProposedVersion, in.ProposedSchema, mode, in.Guarantees, in.PublisherTeamID, changeType)
		if err != nil {
			return nil, err
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}
		committed = true
		return &Output{Contract: contract, Guardrails: outcome}, nil
	}

	if in.Force {
		contract, err := InsertAndActivate(ctx, tx, c.Audit, c.Transitions, c.IDs, asset, current, in.ProposedVersion, in.ProposedSchema, mode, in.Guarantees, in.PublisherTeamID, changeType)
		if err != nil {
			return nil, err
		}
		if err := c.Audit.Record(ctx, tx, "contract", contract.ID, "contract.force_published", in.PublisherTeamID, map[string]any{
			"breaking_changes": summarizeChanges(classified.Breaking),
		}); err != nil {
			return nil, err
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}
		committed = true
		return &Output{Contract: contract, Guardrails: outcome}, nil
	}

	// Major change, not forced: open a proposal instead of publishing. A
	// soft-deleted consumer team is never snapshotted (spec §3 invariant 8:
	// it cannot be assigned as acknowledger on new proposals).
	consumerTeamIDs := make([]string, 0, len(registrations))
	for _, r := range registrations {
		active, err := consumerTeamActive(ctx, tx, r.ConsumerTeamID)
		if err != nil {
			return nil, err
		}
		if !active {
			continue
		}
		consumerTeamIDs = append(consumerTeamIDs, r.ConsumerTeamID)
	}

	proposal := &store.Proposal{
		ID:                        c.IDs.NewID(),
		AssetID:                   in.AssetID,
		BaseContractID:            current.ID,
		ProposedSchema:            in.ProposedSchema,
		ProposedVersion:           in.ProposedVersion,
		ProposedCompatibilityMode: store.CompatibilityMode(mode),
		ChangeType:                changeType,
		Status:                    store.ProposalPending,
		ProposedBy:                in.PublisherTeamID,
		ProposedAt:                c.Clock.Now(),
		SnapshotConsumerTeamIDs:   consumerTeamIDs,
	}
	if err := tx.CreateProposal(ctx, proposal); err != nil {
		return nil, err
	}
	if err := c.Audit.Record(ctx, tx, "proposal", proposal.ID, "proposal.opened", in.PublisherTeamID, map[string]any{
		"change_type":      string(changeType),
		"breaking_changes": summarizeChanges(classified.Breaking),
		"consumer_count":   len(consumerTeamIDs),
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	committed = true

	// Fire-and-forget per spec §5: notification failure never unwinds the
	// already-committed proposal.
	_ = c.Notifier.NotifyProposalOpened(ctx, proposal, consumerTeamIDs)

	return &Output{Proposal: proposal, Guardrails: outcome}, nil
}

// InsertAndActivate performs the shared contract-insert / deprecate-old
// transaction spec §4.5 step 6 describes. internal/proposal's publish()
// operation reuses it verbatim (spec §4.6: "same as publish coordinator
// step 6").
func InsertAndActivate(
	ctx context.Context,
	tx store.Tx,
	rec *audit.Recorder,
	trans *transitions.Registry,
	ids clock.IDGenerator,
	asset *store.Asset,
	current *store.Contract,
	version string,
	schemaDoc json.RawMessage,
	mode classify.Mode,
	guarantees *store.Guarantees,
	actorID string,
	changeType store.ChangeType,
) (*store.Contract, error) {
	contract := &store.Contract{
		ID:                ids.NewID(),
		AssetID:           asset.ID,
		Version:           version,
		Schema:            schemaDoc,
		CompatibilityMode: store.CompatibilityMode(mode),
		Guarantees:        guarantees,
		Status:            store.ContractActive,
		PublishedAt:       rec.Clock.Now(),
		PublishedBy:       actorID,
	}
	if err := tx.CreateContract(ctx, contract); err != nil {
		return nil, err
	}
	if err := tx.SetAssetCurrentContract(ctx, asset.ID, &contract.ID); err != nil {
		return nil, err
	}
	if current != nil {
		if err := trans.Validate("contract", string(current.Status), string(store.ContractDeprecated), current); err != nil {
			return nil, err
		}
		if err := tx.SetContractStatus(ctx, current.ID, store.ContractDeprecated); err != nil {
			return nil, err
		}
		if err := rec.Record(ctx, tx, "contract", current.ID, "contract.deprecated", actorID, map[string]any{"superseded_by": contract.ID}); err != nil {
			return nil, err
		}
	}
	if err := rec.Record(ctx, tx, "contract", contract.ID, "contract.published", actorID, map[string]any{"change_type": string(changeType)}); err != nil {
		return nil, err
	}
	return contract, nil
}


// consumerTeamActive reports whether teamID is a non-soft-deleted Team
// (spec §3 invariant 8). Registrations don't carry a foreign-key constraint
// to Team, so a consumer_team_id with no Team record at all isn't evidence
// of a deletion — only an existing Team with Deleted set is excluded.
func consumerTeamActive(ctx context.Context, tx store.Tx, teamID string) (bool, error) {
	team, err := tx.GetTeam(ctx, teamID)
	if err != nil {
		if store.IsNotFound(err) {
			return true, nil
		}
		return false, err
	}
	return !team.Deleted, nil
}

func summarizeChanges(changes diff.List) []map[string]any {
	out := make([]map[string]any, 0, len(changes))
	for _, c := range changes {
		out = append(out, map[string]any{
			"path": c.Path,
			"kind": string(c.Kind),
		})
	}
	return out
}
