// Package impact implements the impact analyzer (spec §4.4): a pure read
// that tells a producer what publishing a proposed schema would break,
// and who depends on it. It never writes and never emits an audit event.
package impact

import (
	"context"
	"encoding/json"

	"github.com/dcmio/dcm/internal/classify"
	"github.com/dcmio/dcm/internal/diff"
	"github.com/dcmio/dcm/internal/schema"
	"github.com/dcmio/dcm/internal/store"
)

// ConsumerImpact is one active consumer of the asset under analysis.
type ConsumerImpact struct {
	ConsumerTeamID string
	PinnedVersion  *string
}

// Result is the return shape of Analyze (spec §4.4).
type Result struct {
	ChangeType        classify.Severity
	BreakingChanges    diff.List
	ImpactedConsumers []ConsumerImpact
	SafeToPublish      bool
}

// Analyze loads the asset's current active contract (if any), diffs it
// against proposedSchema under mode, and enumerates the asset's active
// registrations. If there is no current contract, the proposed schema is
// the initial publish: safe_to_publish is true, there are no consumers, and
// change_type is major only when the schema is non-empty (an empty schema
// publishing for the first time is a patch).
func Analyze(ctx context.Context, tx store.Tx, assetID string, proposedSchema json.RawMessage, mode classify.Mode) (*Result, error) {
	current, err := tx.GetActiveContract(ctx, assetID)
	if err != nil {
		return nil, err
	}

	if current == nil {
		changeType := classify.SeverityPatch
		if len(proposedSchema) > 0 && string(proposedSchema) != "{}" {
			changeType = classify.SeverityMajor
		}
		return &Result{
			ChangeType:    changeType,
			SafeToPublish: true,
		}, nil
	}

	oldNode, err := schema.Parse(current.Schema)
	if err != nil {
		return nil, store.BrokenContract(err)
	}
	newNode, err := schema.Parse(proposedSchema)
	if err != nil {
		return nil, store.BrokenContract(err)
	}

	changes := diff.Diff(oldNode, newNode)
	classified := classify.Classify(changes, mode)

	registrations, err := tx.ListActiveRegistrations(ctx, assetID)
	if err != nil {
		return nil, err
	}
	consumers := make([]ConsumerImpact, 0, len(registrations))
	for _, r := range registrations {
		active, err := consumerTeamActive(ctx, tx, r.ConsumerTeamID)
		if err != nil {
			return nil, err
		}
		if !active {
			continue
		}
		consumers = append(consumers, ConsumerImpact{
			ConsumerTeamID: r.ConsumerTeamID,
			PinnedVersion:  r.PinnedVersion,
		})
	}

	return &Result{
		ChangeType:        classified.Severity,
		BreakingChanges:   classified.Breaking,
		ImpactedConsumers: consumers,
		SafeToPublish:     len(classified.Breaking) == 0,
	}, nil
}

// consumerTeamActive reports whether teamID is a non-soft-deleted Team
// (spec §3 invariant 8: a deleted team is never considered in impact
// analysis). Registrations don't carry a foreign-key constraint to Team, so
// a consumer_team_id with no Team record at all isn't evidence of a
// deletion — only an existing Team with Deleted set is excluded.
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
