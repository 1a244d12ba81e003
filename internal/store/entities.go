// Package store defines the entities and the transactional Store interface
// the core depends on (spec §3, §6). The core never talks to a database
// directly; internal/store/memstore provides a reference in-memory
// implementation used by tests and the CLI's demo mode.
package store

import (
	"encoding/json"
	"time"
)

// ResourceType enumerates the kinds of Asset spec §3 names.
type ResourceType string

const (
	ResourceTable         ResourceType = "table"
	ResourceView          ResourceType = "view"
	ResourceModel         ResourceType = "model"
	ResourceAPIEndpoint   ResourceType = "api_endpoint"
	ResourceGraphQLQuery  ResourceType = "graphql_query"
)

// ContractStatus is the lifecycle status of a Contract.
type ContractStatus string

const (
	ContractActive     ContractStatus = "active"
	ContractDeprecated ContractStatus = "deprecated"
	ContractRetired    ContractStatus = "retired"
)

// CompatibilityMode mirrors classify.Mode at the storage layer so this
// package has no dependency on internal/classify.
type CompatibilityMode string

const (
	CompatBackward CompatibilityMode = "backward"
	CompatForward  CompatibilityMode = "forward"
	CompatFull     CompatibilityMode = "full"
	CompatNone     CompatibilityMode = "none"
)

// RegistrationStatus is the lifecycle status of a Registration.
type RegistrationStatus string

const (
	RegistrationActive    RegistrationStatus = "active"
	RegistrationMigrating RegistrationStatus = "migrating"
	RegistrationInactive  RegistrationStatus = "inactive"
)

// ProposalStatus is the lifecycle status of a Proposal (spec §4.6).
type ProposalStatus string

const (
	ProposalPending   ProposalStatus = "pending"
	ProposalApproved  ProposalStatus = "approved"
	ProposalRejected  ProposalStatus = "rejected"
	ProposalWithdrawn ProposalStatus = "withdrawn"
	ProposalPublished ProposalStatus = "published"
)

// AckResponse is a consumer's answer to a proposal.
type AckResponse string

const (
	AckApproved  AckResponse = "approved"
	AckBlocked   AckResponse = "blocked"
	AckMigrating AckResponse = "migrating"
)

// ChangeType mirrors classify.Severity at the storage layer.
type ChangeType string

const (
	ChangePatch ChangeType = "patch"
	ChangeMinor ChangeType = "minor"
	ChangeMajor ChangeType = "major"
)

// Team is the identity entity for ownership and acknowledgment.
type Team struct {
	ID        string
	Name      string
	Slug      string
	Metadata  map[string]any
	CreatedAt time.Time
	Deleted   bool
}

// Asset is a data object owned by a producer Team.
type Asset struct {
	ID                string
	FQN               string
	OwnerTeamID       string
	ResourceType      ResourceType
	CurrentContractID *string
	Metadata          map[string]any
	Deleted           bool
}

// Contract is a versioned schema plus declarative guarantees for an Asset.
type Contract struct {
	ID                string
	AssetID           string
	Version           string
	Schema            json.RawMessage
	CompatibilityMode CompatibilityMode
	Guarantees        *Guarantees
	Status            ContractStatus
	PublishedAt       time.Time
	PublishedBy       string
}

// Guarantees is declarative, non-enforced data-quality metadata (spec §3).
type Guarantees struct {
	Freshness      string
	Volume         string
	Nullability    map[string]bool
	AcceptedValues map[string][]string
}

// Registration records a consumer Team's declared dependency on an Asset (or
// a pinned Contract version).
type Registration struct {
	ID              string
	AssetID         string
	ContractID      *string
	ConsumerTeamID  string
	PinnedVersion   *string
	Status          RegistrationStatus
	RegisteredAt    time.Time
}

// Proposal is a producer's request to publish a breaking change, suspended
// pending acknowledgment (spec §4.6).
type Proposal struct {
	ID                       string
	AssetID                  string
	BaseContractID           string
	ProposedSchema           json.RawMessage
	ProposedVersion          string
	ProposedCompatibilityMode CompatibilityMode
	ChangeType               ChangeType
	Status                   ProposalStatus
	ProposedBy               string
	ProposedAt               time.Time
	ResolvedAt               *time.Time
	// SnapshotConsumerTeamIDs is the set of consumer teams captured at
	// proposal-open time (spec §3 invariant 6, spec §4.5 step 8).
	SnapshotConsumerTeamIDs []string
}

// Acknowledgment is a consumer's response to a Proposal.
type Acknowledgment struct {
	ID             string
	ProposalID     string
	ConsumerTeamID string
	Response       AckResponse
	MigrationDeadline *time.Time
	Notes          string
	RespondedAt    time.Time
}

// AssetDependency is a directed lineage edge.
type AssetDependency struct {
	UpstreamAssetID   string
	DownstreamAssetID string
}

// AuditEvent is one row of the append-only audit log (spec §4.7).
type AuditEvent struct {
	ID         string
	EntityType string
	EntityID   string
	Action     string
	ActorID    string
	Payload    map[string]any
	OccurredAt time.Time
}
