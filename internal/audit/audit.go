// Package audit provides the recorder helpers the core calls within the
// same transaction as the mutation it describes (spec §4.7). Audit itself
// never opens a transaction — callers already hold one.
package audit

import (
	"context"

	"github.com/dcmio/dcm/internal/clock"
	"github.com/dcmio/dcm/internal/store"
)

// Recorder appends audit events using injected Clock/IDGenerator, so event
// IDs and timestamps are deterministic in tests.
type Recorder struct {
	Clock clock.Clock
	IDs   clock.IDGenerator
}

// New builds a Recorder.
func New(c clock.Clock, ids clock.IDGenerator) *Recorder {
	return &Recorder{Clock: c, IDs: ids}
}

// Record appends one audit event. entityType/entityID name what changed,
// action is a dotted verb ("contract.published", "proposal.rejected", ...),
// actorID is the team or admin that caused it, and payload carries
// whatever detail that action's consumers need (e.g. breaking_changes for
// proposal.opened).
func (r *Recorder) Record(ctx context.Context, tx store.Tx, entityType, entityID, action, actorID string, payload map[string]any) error {
	event := &store.AuditEvent{
		ID:         r.IDs.NewID(),
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		ActorID:    actorID,
		Payload:    payload,
		OccurredAt: r.Clock.Now(),
	}
	return tx.AppendAudit(ctx, event)
}

// List returns a keyset-paginated page of audit events matching filter,
// ordered by (occurred_at, id) — store.Tx.ListAuditEvents already sorts and
// paginates this way; List exists so callers depend on audit's narrower
// surface instead of the full store.Tx interface.
func List(ctx context.Context, tx store.Tx, filter store.ListFilter) (store.Page[*store.AuditEvent], error) {
	return tx.ListAuditEvents(ctx, filter)
}
