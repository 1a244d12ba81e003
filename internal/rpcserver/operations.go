package rpcserver

import (
	"context"
	"encoding/json"

	"github.com/dcmio/dcm/internal/classify"
	"github.com/dcmio/dcm/internal/diff"
	"github.com/dcmio/dcm/internal/impact"
	"github.com/dcmio/dcm/internal/proposal"
	"github.com/dcmio/dcm/internal/publish"
	"github.com/dcmio/dcm/internal/schema"
	"github.com/dcmio/dcm/internal/store"
)

func decodeParams(params json.RawMessage, v any) error {
	if len(params) == 0 {
		return store.Validation("missing params")
	}
	if err := json.Unmarshal(params, v); err != nil {
		return store.Validation("invalid params: %v", err)
	}
	return nil
}

// RegisterCoreOperations wires the core's publish/proposal/impact
// operations into registry under the method names spec §6 lists.
func RegisterCoreOperations(registry *Registry, pub *publish.Coordinator, prop *proposal.Service, st store.Store) {
	registry.Register(&publishOp{pub})
	registry.Register(&diffOp{})
	registry.Register(&classifyOp{})
	registry.Register(&impactOp{st})
	registry.Register(&acknowledgeOp{prop})
	registry.Register(&withdrawOp{prop})
	registry.Register(&forceOp{prop})
	registry.Register(&proposalPublishOp{prop})
}

// --- publish ---

type publishOp struct{ coordinator *publish.Coordinator }

func (o *publishOp) Name() string        { return "publish" }
func (o *publishOp) Description() string { return "publish a proposed schema, auto-publishing, force-publishing, or opening a proposal" }

type publishParams struct {
	AssetID           string          `json:"asset_id"`
	ProposedSchema    json.RawMessage `json:"proposed_schema"`
	ProposedVersion   string          `json:"proposed_version"`
	CompatibilityMode string          `json:"compatibility_mode,omitempty"`
	PublisherTeamID   string          `json:"publisher_team_id"`
	Force             bool            `json:"force,omitempty"`
	Guarantees        *store.Guarantees `json:"guarantees,omitempty"`
}

func (o *publishOp) Execute(ctx context.Context, params json.RawMessage) (any, error) {
	var p publishParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	return o.coordinator.Publish(ctx, publish.Input{
		AssetID:           p.AssetID,
		ProposedSchema:    p.ProposedSchema,
		ProposedVersion:   p.ProposedVersion,
		CompatibilityMode: p.CompatibilityMode,
		PublisherTeamID:   p.PublisherTeamID,
		Force:             p.Force,
		Guarantees:        p.Guarantees,
	})
}

// --- diff ---

type diffOp struct{}

func (o *diffOp) Name() string        { return "diff" }
func (o *diffOp) Description() string { return "structurally diff two JSON Schema documents" }

type diffParams struct {
	OldSchema json.RawMessage `json:"old_schema"`
	NewSchema json.RawMessage `json:"new_schema"`
}

func (o *diffOp) Execute(ctx context.Context, params json.RawMessage) (any, error) {
	var p diffParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	oldNode, err := schema.Parse(p.OldSchema)
	if err != nil {
		return nil, store.BrokenContract(err)
	}
	newNode, err := schema.Parse(p.NewSchema)
	if err != nil {
		return nil, store.BrokenContract(err)
	}
	return diff.Diff(oldNode, newNode), nil
}

// --- classify (spec's compare: diff + severity under a compatibility mode) ---

type classifyOp struct{}

func (o *classifyOp) Name() string        { return "compare" }
func (o *classifyOp) Description() string { return "diff two schemas and classify the result's severity under a compatibility mode" }

type classifyParams struct {
	OldSchema json.RawMessage `json:"old_schema"`
	NewSchema json.RawMessage `json:"new_schema"`
	Mode      string          `json:"mode,omitempty"`
}

func (o *classifyOp) Execute(ctx context.Context, params json.RawMessage) (any, error) {
	var p classifyParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	mode := classify.Mode(p.Mode)
	if mode == "" {
		mode = classify.ModeBackward
	}
	oldNode, err := schema.Parse(p.OldSchema)
	if err != nil {
		return nil, store.BrokenContract(err)
	}
	newNode, err := schema.Parse(p.NewSchema)
	if err != nil {
		return nil, store.BrokenContract(err)
	}
	changes := diff.Diff(oldNode, newNode)
	return classify.Classify(changes, mode), nil
}

// --- impact ---

type impactOp struct{ store store.Store }

func (o *impactOp) Name() string        { return "impact" }
func (o *impactOp) Description() string { return "analyze what publishing a proposed schema would break and who depends on it" }

type impactParams struct {
	AssetID        string          `json:"asset_id"`
	ProposedSchema json.RawMessage `json:"proposed_schema"`
	Mode           string          `json:"mode,omitempty"`
}

func (o *impactOp) Execute(ctx context.Context, params json.RawMessage) (any, error) {
	var p impactParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	mode := classify.Mode(p.Mode)
	if mode == "" {
		mode = classify.ModeBackward
	}

	tx, err := o.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	result, err := impact.Analyze(ctx, tx, p.AssetID, p.ProposedSchema, mode)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// --- proposal.acknowledge ---

type acknowledgeOp struct{ service *proposal.Service }

func (o *acknowledgeOp) Name() string        { return "proposal.acknowledge" }
func (o *acknowledgeOp) Description() string { return "record a consumer team's response to a pending proposal" }

type acknowledgeParams struct {
	ProposalID     string `json:"proposal_id"`
	ConsumerTeamID string `json:"consumer_team_id"`
	Response       string `json:"response"`
	Notes          string `json:"notes,omitempty"`
}

func (o *acknowledgeOp) Execute(ctx context.Context, params json.RawMessage) (any, error) {
	var p acknowledgeParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	resp := store.AckResponse(p.Response)
	switch resp {
	case store.AckApproved, store.AckBlocked, store.AckMigrating:
	default:
		return nil, store.Validation("response must be one of approved, blocked, migrating, got %q", p.Response)
	}
	return o.service.Acknowledge(ctx, p.ProposalID, p.ConsumerTeamID, resp, p.Notes)
}

// --- proposal.withdraw ---

type withdrawOp struct{ service *proposal.Service }

func (o *withdrawOp) Name() string        { return "proposal.withdraw" }
func (o *withdrawOp) Description() string { return "withdraw a pending proposal" }

type actorParams struct {
	ProposalID string `json:"proposal_id"`
	ActorID    string `json:"actor_id"`
}

func (o *withdrawOp) Execute(ctx context.Context, params json.RawMessage) (any, error) {
	var p actorParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	return o.service.Withdraw(ctx, p.ProposalID, p.ActorID)
}

// --- proposal.force ---

type forceOp struct{ service *proposal.Service }

func (o *forceOp) Name() string        { return "proposal.force" }
func (o *forceOp) Description() string { return "treat a pending proposal's outstanding acknowledgments as approved" }

func (o *forceOp) Execute(ctx context.Context, params json.RawMessage) (any, error) {
	var p actorParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	return o.service.Force(ctx, p.ProposalID, p.ActorID)
}

// --- proposal.publish ---

type proposalPublishOp struct{ service *proposal.Service }

func (o *proposalPublishOp) Name() string        { return "proposal.publish" }
func (o *proposalPublishOp) Description() string { return "publish an approved proposal as a new contract" }

func (o *proposalPublishOp) Execute(ctx context.Context, params json.RawMessage) (any, error) {
	var p actorParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	return o.service.Publish(ctx, p.ProposalID, p.ActorID)
}
