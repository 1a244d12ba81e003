// Package memstore is a reference in-memory implementation of store.Store.
// It is not the production persistence engine — spec.md §1 explicitly scopes
// the real storage engine out of the core — but a deterministic, dependency-free
// Store the core's tests and the CLI's demo mode can run against.
//
// Concurrency model: each Tx buffers its writes in a local overlay and reads
// check that overlay before falling back to the committed store state (so a
// transaction sees its own writes). Commit merges the overlay into the
// committed maps atomically under the store-wide mutex. LockAsset acquires a
// real per-asset mutex, held for the lifetime of the Tx, so concurrent
// publishers on the *same* asset genuinely serialize while other assets
// proceed independently — the one concurrency guarantee spec §5 requires of
// the store.
package memstore

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"

	"github.com/dcmio/dcm/internal/store"
)

var errAlreadyClosed = errors.New("memstore: transaction already committed or rolled back")

// Store is the reference in-memory store.
type Store struct {
	mu sync.RWMutex

	teams         map[string]store.Team
	assets        map[string]store.Asset
	contracts     map[string]store.Contract
	registrations map[string]store.Registration
	proposals     map[string]store.Proposal
	// acks is keyed by proposalID -> consumerTeamID -> Acknowledgment, which
	// is what gives us the unique-per-(proposal,team) upsert spec §3
	// invariant requires.
	acks map[string]map[string]store.Acknowledgment
	deps []store.AssetDependency
	audit []store.AuditEvent

	assetLocksMu sync.Mutex
	assetLocks   map[string]*sync.Mutex
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		teams:         map[string]store.Team{},
		assets:        map[string]store.Asset{},
		contracts:     map[string]store.Contract{},
		registrations: map[string]store.Registration{},
		proposals:     map[string]store.Proposal{},
		acks:          map[string]map[string]store.Acknowledgment{},
		assetLocks:    map[string]*sync.Mutex{},
	}
}

func (s *Store) assetLock(assetID string) *sync.Mutex {
	s.assetLocksMu.Lock()
	defer s.assetLocksMu.Unlock()
	m, ok := s.assetLocks[assetID]
	if !ok {
		m = &sync.Mutex{}
		s.assetLocks[assetID] = m
	}
	return m
}

// Begin starts a new Tx. See package doc for the overlay/commit model.
func (s *Store) Begin(ctx context.Context) (store.Tx, error) {
	return &tx{
		store:         s,
		teams:         map[string]store.Team{},
		assets:        map[string]store.Asset{},
		contracts:     map[string]store.Contract{},
		registrations: map[string]store.Registration{},
		proposals:     map[string]store.Proposal{},
		acks:          map[string]map[string]store.Acknowledgment{},
		locked:        map[string]bool{},
	}, nil
}

type tx struct {
	store *Store
	done  bool

	teams         map[string]store.Team
	assets        map[string]store.Asset
	contracts     map[string]store.Contract
	registrations map[string]store.Registration
	proposals     map[string]store.Proposal
	acks          map[string]map[string]store.Acknowledgment
	deps          []store.AssetDependency
	audit         []store.AuditEvent

	locked map[string]bool
}

func (t *tx) Commit(ctx context.Context) error {
	if t.done {
		return store.Internal(errAlreadyClosed)
	}
	t.done = true

	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	for id, v := range t.teams {
		t.store.teams[id] = v
	}
	for id, v := range t.assets {
		t.store.assets[id] = v
	}
	for id, v := range t.contracts {
		t.store.contracts[id] = v
	}
	for id, v := range t.registrations {
		t.store.registrations[id] = v
	}
	for id, v := range t.proposals {
		t.store.proposals[id] = v
	}
	for pid, byTeam := range t.acks {
		if t.store.acks[pid] == nil {
			t.store.acks[pid] = map[string]store.Acknowledgment{}
		}
		for teamID, a := range byTeam {
			t.store.acks[pid][teamID] = a
		}
	}
	t.store.deps = append(t.store.deps, t.deps...)
	t.store.audit = append(t.store.audit, t.audit...)

	t.releaseLocks()
	return nil
}

func (t *tx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.releaseLocks()
	return nil
}

func (t *tx) releaseLocks() {
	for assetID := range t.locked {
		t.store.assetLock(assetID).Unlock()
	}
}

func (t *tx) LockAsset(ctx context.Context, assetID string) error {
	if t.locked[assetID] {
		return nil
	}
	t.store.assetLock(assetID).Lock()
	t.locked[assetID] = true
	return nil
}

// --- Teams ---

func (t *tx) GetTeam(ctx context.Context, id string) (*store.Team, error) {
	if v, ok := t.teams[id]; ok {
		return &v, nil
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	if v, ok := t.store.teams[id]; ok {
		return &v, nil
	}
	return nil, store.NotFound("team %q not found", id)
}

func (t *tx) CreateTeam(ctx context.Context, team *store.Team) error {
	t.teams[team.ID] = *team
	return nil
}

// --- Assets ---

func (t *tx) GetAsset(ctx context.Context, id string) (*store.Asset, error) {
	if v, ok := t.assets[id]; ok {
		return assetOrNotFound(&v, id)
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	if v, ok := t.store.assets[id]; ok {
		return assetOrNotFound(&v, id)
	}
	return nil, store.NotFound("asset %q not found", id)
}

func assetOrNotFound(a *store.Asset, id string) (*store.Asset, error) {
	if a.Deleted {
		return nil, store.NotFound("asset %q not found", id)
	}
	cp := *a
	return &cp, nil
}

func (t *tx) GetAssetByFQN(ctx context.Context, fqn string) (*store.Asset, error) {
	if a := t.findAssetByFQNInOverlay(fqn); a != nil {
		return a, nil
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	for _, a := range t.store.assets {
		if a.FQN == fqn && !a.Deleted {
			if _, overlaid := t.assets[a.ID]; overlaid {
				continue // overlay already checked above and didn't match
			}
			cp := a
			return &cp, nil
		}
	}
	return nil, store.NotFound("asset with fqn %q not found", fqn)
}

func (t *tx) findAssetByFQNInOverlay(fqn string) *store.Asset {
	for _, a := range t.assets {
		if a.FQN == fqn && !a.Deleted {
			cp := a
			return &cp
		}
	}
	return nil
}

func (t *tx) CreateAsset(ctx context.Context, a *store.Asset) error {
	if existing, err := t.GetAssetByFQN(ctx, a.FQN); err == nil && existing != nil {
		return store.Conflict("asset with fqn %q already exists", a.FQN)
	}
	t.assets[a.ID] = *a
	return nil
}

func (t *tx) SetAssetCurrentContract(ctx context.Context, assetID string, contractID *string) error {
	a, err := t.GetAsset(ctx, assetID)
	if err != nil {
		return err
	}
	a.CurrentContractID = contractID
	t.assets[assetID] = *a
	return nil
}

func (t *tx) ListAssets(ctx context.Context, f store.ListFilter) (store.Page[*store.Asset], error) {
	t.store.mu.RLock()
	merged := map[string]store.Asset{}
	for id, a := range t.store.assets {
		merged[id] = a
	}
	t.store.mu.RUnlock()
	for id, a := range t.assets {
		merged[id] = a
	}

	var out []*store.Asset
	for _, a := range merged {
		if a.Deleted {
			continue
		}
		cp := a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return paginate(out, f)
}

// --- Contracts ---

func (t *tx) GetContract(ctx context.Context, id string) (*store.Contract, error) {
	if v, ok := t.contracts[id]; ok {
		cp := v
		return &cp, nil
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	if v, ok := t.store.contracts[id]; ok {
		cp := v
		return &cp, nil
	}
	return nil, store.NotFound("contract %q not found", id)
}

func (t *tx) GetActiveContract(ctx context.Context, assetID string) (*store.Contract, error) {
	merged := t.mergedContracts()
	for _, c := range merged {
		if c.AssetID == assetID && c.Status == store.ContractActive {
			cp := c
			return &cp, nil
		}
	}
	return nil, nil
}

func (t *tx) mergedContracts() map[string]store.Contract {
	t.store.mu.RLock()
	merged := map[string]store.Contract{}
	for id, c := range t.store.contracts {
		merged[id] = c
	}
	t.store.mu.RUnlock()
	for id, c := range t.contracts {
		merged[id] = c
	}
	return merged
}

func (t *tx) CreateContract(ctx context.Context, c *store.Contract) error {
	t.contracts[c.ID] = *c
	return nil
}

func (t *tx) SetContractStatus(ctx context.Context, id string, status store.ContractStatus) error {
	c, err := t.GetContract(ctx, id)
	if err != nil {
		return err
	}
	c.Status = status
	t.contracts[id] = *c
	return nil
}

func (t *tx) ListContracts(ctx context.Context, f store.ListFilter) (store.Page[*store.Contract], error) {
	merged := t.mergedContracts()
	var out []*store.Contract
	for _, c := range merged {
		if f.AssetID != "" && c.AssetID != f.AssetID {
			continue
		}
		if f.Status != "" && string(c.Status) != f.Status {
			continue
		}
		cp := c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return paginate(out, f)
}

// --- Registrations ---

func (t *tx) CreateRegistration(ctx context.Context, r *store.Registration) error {
	t.registrations[r.ID] = *r
	return nil
}

func (t *tx) ListActiveRegistrations(ctx context.Context, assetID string) ([]*store.Registration, error) {
	merged := t.mergedRegistrations()
	var out []*store.Registration
	for _, r := range merged {
		if r.AssetID == assetID && r.Status == store.RegistrationActive {
			cp := r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *tx) mergedRegistrations() map[string]store.Registration {
	t.store.mu.RLock()
	merged := map[string]store.Registration{}
	for id, r := range t.store.registrations {
		merged[id] = r
	}
	t.store.mu.RUnlock()
	for id, r := range t.registrations {
		merged[id] = r
	}
	return merged
}

func (t *tx) ListRegistrations(ctx context.Context, f store.ListFilter) (store.Page[*store.Registration], error) {
	merged := t.mergedRegistrations()
	var out []*store.Registration
	for _, r := range merged {
		if f.AssetID != "" && r.AssetID != f.AssetID {
			continue
		}
		if f.ConsumerTeamID != "" && r.ConsumerTeamID != f.ConsumerTeamID {
			continue
		}
		cp := r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return paginate(out, f)
}

// --- Proposals ---

func (t *tx) GetPendingProposal(ctx context.Context, assetID string) (*store.Proposal, error) {
	merged := t.mergedProposals()
	for _, p := range merged {
		if p.AssetID == assetID && p.Status == store.ProposalPending {
			cp := p
			return &cp, nil
		}
	}
	return nil, nil
}

func (t *tx) GetProposal(ctx context.Context, id string) (*store.Proposal, error) {
	if v, ok := t.proposals[id]; ok {
		cp := v
		return &cp, nil
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	if v, ok := t.store.proposals[id]; ok {
		cp := v
		return &cp, nil
	}
	return nil, store.NotFound("proposal %q not found", id)
}

func (t *tx) CreateProposal(ctx context.Context, p *store.Proposal) error {
	if existing, _ := t.GetPendingProposal(ctx, p.AssetID); existing != nil {
		return store.Conflict("asset %q already has a pending proposal %q", p.AssetID, existing.ID)
	}
	t.proposals[p.ID] = *p
	return nil
}

func (t *tx) UpdateProposal(ctx context.Context, p *store.Proposal) error {
	t.proposals[p.ID] = *p
	return nil
}

func (t *tx) mergedProposals() map[string]store.Proposal {
	t.store.mu.RLock()
	merged := map[string]store.Proposal{}
	for id, p := range t.store.proposals {
		merged[id] = p
	}
	t.store.mu.RUnlock()
	for id, p := range t.proposals {
		merged[id] = p
	}
	return merged
}

func (t *tx) ListProposals(ctx context.Context, f store.ListFilter) (store.Page[*store.Proposal], error) {
	merged := t.mergedProposals()
	var out []*store.Proposal
	for _, p := range merged {
		if f.AssetID != "" && p.AssetID != f.AssetID {
			continue
		}
		if f.Status != "" && string(p.Status) != f.Status {
			continue
		}
		cp := p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return paginate(out, f)
}

// --- Acknowledgments ---

func (t *tx) UpsertAcknowledgment(ctx context.Context, a *store.Acknowledgment) error {
	if t.acks[a.ProposalID] == nil {
		t.acks[a.ProposalID] = map[string]store.Acknowledgment{}
	}
	// Preserve the existing ack's ID across a re-response (spec §4.6:
	// "a consumer may change their response until resolution").
	if existing, ok := t.lookupAck(a.ProposalID, a.ConsumerTeamID); ok && a.ID == "" {
		a.ID = existing.ID
	}
	t.acks[a.ProposalID][a.ConsumerTeamID] = *a
	return nil
}

func (t *tx) lookupAck(proposalID, teamID string) (store.Acknowledgment, bool) {
	if byTeam, ok := t.acks[proposalID]; ok {
		if a, ok := byTeam[teamID]; ok {
			return a, true
		}
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	if byTeam, ok := t.store.acks[proposalID]; ok {
		if a, ok := byTeam[teamID]; ok {
			return a, true
		}
	}
	return store.Acknowledgment{}, false
}

func (t *tx) ListAcknowledgments(ctx context.Context, proposalID string) ([]*store.Acknowledgment, error) {
	t.store.mu.RLock()
	merged := map[string]store.Acknowledgment{}
	for teamID, a := range t.store.acks[proposalID] {
		merged[teamID] = a
	}
	t.store.mu.RUnlock()
	for teamID, a := range t.acks[proposalID] {
		merged[teamID] = a
	}

	var out []*store.Acknowledgment
	for _, a := range merged {
		cp := a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ConsumerTeamID < out[j].ConsumerTeamID })
	return out, nil
}

// --- Lineage ---

func (t *tx) CreateAssetDependency(ctx context.Context, d store.AssetDependency) error {
	t.deps = append(t.deps, d)
	return nil
}

func (t *tx) ListUpstream(ctx context.Context, assetID string) ([]string, error) {
	var out []string
	for _, d := range t.allDeps() {
		if d.DownstreamAssetID == assetID {
			out = append(out, d.UpstreamAssetID)
		}
	}
	return out, nil
}

func (t *tx) ListDownstream(ctx context.Context, assetID string) ([]string, error) {
	var out []string
	for _, d := range t.allDeps() {
		if d.UpstreamAssetID == assetID {
			out = append(out, d.DownstreamAssetID)
		}
	}
	return out, nil
}

func (t *tx) allDeps() []store.AssetDependency {
	t.store.mu.RLock()
	out := append([]store.AssetDependency(nil), t.store.deps...)
	t.store.mu.RUnlock()
	return append(out, t.deps...)
}

// --- Audit ---

func (t *tx) AppendAudit(ctx context.Context, e *store.AuditEvent) error {
	t.audit = append(t.audit, *e)
	return nil
}

func (t *tx) ListAuditEvents(ctx context.Context, f store.ListFilter) (store.Page[*store.AuditEvent], error) {
	t.store.mu.RLock()
	all := append([]store.AuditEvent(nil), t.store.audit...)
	t.store.mu.RUnlock()
	all = append(all, t.audit...)

	var out []*store.AuditEvent
	for _, e := range all {
		if f.EntityType != "" && e.EntityType != f.EntityType {
			continue
		}
		if f.EntityID != "" && e.EntityID != f.EntityID {
			continue
		}
		if f.ActorID != "" && e.ActorID != f.ActorID {
			continue
		}
		if f.Action != "" && e.Action != f.Action {
			continue
		}
		cp := e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].OccurredAt.Before(out[j].OccurredAt)
	})
	return paginate(out, f)
}

// paginate applies a simple keyset cursor (an index-as-string, since these
// lists are already sorted by a stable key) over an in-memory slice.
func paginate[T any](items []T, f store.ListFilter) (store.Page[T], error) {
	start := 0
	if f.Cursor != "" {
		if n, err := strconv.Atoi(f.Cursor); err == nil && n > 0 {
			start = n
		}
	}
	if start > len(items) {
		start = len(items)
	}
	end := len(items)
	limit := f.Limit
	if limit > 0 && start+limit < end {
		end = start + limit
	}
	page := store.Page[T]{Items: items[start:end]}
	if end < len(items) {
		page.NextCursor = strconv.Itoa(end)
	}
	return page, nil
}
