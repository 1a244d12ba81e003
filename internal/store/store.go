package store

import "context"

// Store opens transactions. Every write path in the core runs inside a
// single transaction (spec §4.5, §4.6, §5).
type Store interface {
	// Begin starts a new serializable transaction (spec §6).
	Begin(ctx context.Context) (Tx, error)
}

// ListFilter narrows a keyset-paginated listing. Zero value lists everything
// (subject to the store's default soft-delete filtering, spec §3 invariant 8).
type ListFilter struct {
	AssetID        string
	ConsumerTeamID string
	Status         string
	EntityType     string
	EntityID       string
	ActorID        string
	Action         string

	// Cursor is the keyset pagination cursor from a previous page's
	// NextCursor. Empty means "start from the beginning".
	Cursor string
	Limit  int
}

// Page is a keyset-paginated result.
type Page[T any] struct {
	Items      []T
	NextCursor string
}

// Tx is a single serializable transaction. All methods must be called
// between Begin and Commit/Rollback. Implementations are responsible for
// enforcing asset.fqn uniqueness, "one pending proposal per asset",
// "one acknowledgment per (proposal, team)", and the default soft-delete
// filter (spec §6).
type Tx interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	// LockAsset serializes concurrent publishers on the same asset (spec
	// §4.5 step 2, §5). It is the sole required linearization point; it does
	// not lock any other asset.
	LockAsset(ctx context.Context, assetID string) error

	GetTeam(ctx context.Context, id string) (*Team, error)
	CreateTeam(ctx context.Context, t *Team) error

	GetAsset(ctx context.Context, id string) (*Asset, error)
	GetAssetByFQN(ctx context.Context, fqn string) (*Asset, error)
	CreateAsset(ctx context.Context, a *Asset) error
	SetAssetCurrentContract(ctx context.Context, assetID string, contractID *string) error
	ListAssets(ctx context.Context, f ListFilter) (Page[*Asset], error)

	GetContract(ctx context.Context, id string) (*Contract, error)
	GetActiveContract(ctx context.Context, assetID string) (*Contract, error)
	CreateContract(ctx context.Context, c *Contract) error
	SetContractStatus(ctx context.Context, id string, status ContractStatus) error
	ListContracts(ctx context.Context, f ListFilter) (Page[*Contract], error)

	CreateRegistration(ctx context.Context, r *Registration) error
	ListActiveRegistrations(ctx context.Context, assetID string) ([]*Registration, error)
	ListRegistrations(ctx context.Context, f ListFilter) (Page[*Registration], error)

	// GetPendingProposal returns the pending proposal for assetID, or nil if
	// none exists (spec §3 invariant 5).
	GetPendingProposal(ctx context.Context, assetID string) (*Proposal, error)
	GetProposal(ctx context.Context, id string) (*Proposal, error)
	CreateProposal(ctx context.Context, p *Proposal) error
	UpdateProposal(ctx context.Context, p *Proposal) error
	ListProposals(ctx context.Context, f ListFilter) (Page[*Proposal], error)

	UpsertAcknowledgment(ctx context.Context, a *Acknowledgment) error
	ListAcknowledgments(ctx context.Context, proposalID string) ([]*Acknowledgment, error)

	CreateAssetDependency(ctx context.Context, d AssetDependency) error
	ListUpstream(ctx context.Context, assetID string) ([]string, error)
	ListDownstream(ctx context.Context, assetID string) ([]string, error)

	// AppendAudit inserts an append-only audit event. It must participate in
	// the same transaction as the mutation it describes (spec §4.7, §7).
	AppendAudit(ctx context.Context, e *AuditEvent) error
	ListAuditEvents(ctx context.Context, f ListFilter) (Page[*AuditEvent], error)
}
