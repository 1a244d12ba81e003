// Package transitions enforces the allowed state-transition graphs for
// Contract, Proposal, and Registration (spec §3, §4.5, §4.6).
package transitions

import (
	"errors"
	"fmt"

	"github.com/dcmio/dcm/internal/store"
)

var (
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrAlreadyInState    = errors.New("already in target state")
)

// Validator checks whether a from->to transition is allowed for one entity
// type. Extra carries whatever entity-specific context a validator needs
// (e.g. a *store.Proposal) without widening this interface per caller.
type Validator interface {
	Validate(from, to string, extra any) error
}

// ValidatorFunc adapts a function to a Validator.
type ValidatorFunc func(from, to string, extra any) error

func (f ValidatorFunc) Validate(from, to string, extra any) error { return f(from, to, extra) }

// Registry maps entity type names to their Validator.
type Registry struct {
	validators map[string]Validator
}

// NewRegistry builds the registry with the three entity validators spec §3
// names: Contract, Proposal, Registration.
func NewRegistry() *Registry {
	r := &Registry{validators: map[string]Validator{}}
	r.Register("contract", ValidatorFunc(validateContractTransition))
	r.Register("proposal", ValidatorFunc(validateProposalTransition))
	r.Register("registration", ValidatorFunc(validateRegistrationTransition))
	return r
}

func (r *Registry) Register(entityType string, v Validator) {
	r.validators[entityType] = v
}

// Validate checks entityType's from->to transition.
func (r *Registry) Validate(entityType, from, to string, extra any) error {
	if from == to {
		return ErrAlreadyInState
	}
	v, ok := r.validators[entityType]
	if !ok {
		return nil
	}
	return v.Validate(from, to, extra)
}

func isAllowedTransition(from, to string, transitions map[string][]string) bool {
	allowed, ok := transitions[from]
	if !ok {
		return false
	}
	for _, candidate := range allowed {
		if candidate == to {
			return true
		}
	}
	return false
}

func transitionError(from, to string) error {
	return fmt.Errorf("%w: cannot transition from %q to %q", ErrInvalidTransition, from, to)
}

// contractTransitions is spec §3/§4.5/§4.6: active -> deprecated is the only
// forward move the state machine performs; deprecated -> retired is an
// out-of-band administrative action the core also allows (there is no path
// back to active — a retired or deprecated contract is superseded for good).
var contractTransitions = map[string][]string{
	string(store.ContractActive):     {string(store.ContractDeprecated)},
	string(store.ContractDeprecated): {string(store.ContractRetired)},
}

func validateContractTransition(from, to string, extra any) error {
	if !isAllowedTransition(from, to, contractTransitions) {
		return transitionError(from, to)
	}
	return nil
}

// proposalTransitions: a pending proposal resolves to approved, rejected or
// withdrawn. Only an approved proposal moves again: to published, or to
// rejected on the "stale base" path taken by publish() when invariant 4 no
// longer holds (spec §4.6, edge case 6). Rejected, withdrawn and published
// are terminal.
var proposalTransitions = map[string][]string{
	string(store.ProposalPending):  {string(store.ProposalApproved), string(store.ProposalRejected), string(store.ProposalWithdrawn)},
	string(store.ProposalApproved): {string(store.ProposalRejected), string(store.ProposalPublished)},
}

func validateProposalTransition(from, to string, extra any) error {
	if !isAllowedTransition(from, to, proposalTransitions) {
		return transitionError(from, to)
	}
	return nil
}

// registrationTransitions lets a consumer move freely between active,
// migrating, and inactive; the spec places no ordering constraint on these
// (they are declarative state, not part of the publish state machine), so
// every pair other than self-transition is allowed.
var registrationTransitions = map[string][]string{
	string(store.RegistrationActive):    {string(store.RegistrationMigrating), string(store.RegistrationInactive)},
	string(store.RegistrationMigrating): {string(store.RegistrationActive), string(store.RegistrationInactive)},
	string(store.RegistrationInactive):  {string(store.RegistrationActive), string(store.RegistrationMigrating)},
}

func validateRegistrationTransition(from, to string, extra any) error {
	if !isAllowedTransition(from, to, registrationTransitions) {
		return transitionError(from, to)
	}
	return nil
}
