// Package guardrails implements composable pre-flight checks for the publish
// and proposal operations. Guards never replace the state machine's own
// invariant enforcement (spec §3, §4.5, §4.6) — they exist to surface
// advisory and block information to the caller before (and alongside) the
// transactional decision, the way a careful publisher would want to know
// *why* before discovering it from a bare error.
package guardrails

import (
	"fmt"
	"strings"
)

// Severity indicates how a guard failure affects execution.
type Severity int

const (
	// Suggestion is advisory only.
	Suggestion Severity = iota
	// Warning is advisory only, but more urgent than Suggestion.
	Warning
	// SoftBlock stops execution unless the caller sets GuardContext.Force.
	SoftBlock
	// HardBlock stops execution unconditionally.
	HardBlock
)

func (s Severity) String() string {
	switch s {
	case Suggestion:
		return "SUGGESTION"
	case Warning:
		return "WARNING"
	case SoftBlock:
		return "SOFT_BLOCK"
	case HardBlock:
		return "HARD_BLOCK"
	default:
		return "UNKNOWN"
	}
}

// Result is the outcome of a single guard check.
type Result struct {
	GuardName string
	Passed    bool
	Severity  Severity
	Message   string
	Remedy    string
}

// Outcome is the aggregated result of running a set of guards.
type Outcome struct {
	Blocked bool
	Results []Result
}

func (o *Outcome) filterSeverity(sev Severity) []Result {
	var out []Result
	for _, r := range o.Results {
		if !r.Passed && r.Severity == sev {
			out = append(out, r)
		}
	}
	return out
}

func (o *Outcome) HardBlocks() []Result  { return o.filterSeverity(HardBlock) }
func (o *Outcome) SoftBlocks() []Result  { return o.filterSeverity(SoftBlock) }
func (o *Outcome) Warnings() []Result    { return o.filterSeverity(Warning) }
func (o *Outcome) Suggestions() []Result { return o.filterSeverity(Suggestion) }

// FormatBlockMessage renders why an operation was blocked, if it was.
func (o *Outcome) FormatBlockMessage() string {
	if !o.Blocked {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("publish blocked by guardrails:\n")
	for _, r := range o.HardBlocks() {
		sb.WriteString(fmt.Sprintf("\n[HARD_BLOCK] %s: %s", r.GuardName, r.Message))
		if r.Remedy != "" {
			sb.WriteString(fmt.Sprintf("\n  remedy: %s", r.Remedy))
		}
	}
	for _, r := range o.SoftBlocks() {
		sb.WriteString(fmt.Sprintf("\n[SOFT_BLOCK] %s: %s", r.GuardName, r.Message))
		if r.Remedy != "" {
			sb.WriteString(fmt.Sprintf("\n  remedy: %s", r.Remedy))
		}
	}
	if len(o.SoftBlocks()) > 0 {
		sb.WriteString("\n\npass force=true (admin scope) to override soft blocks.")
	}
	return sb.String()
}

// Guard is a single composable check.
type Guard interface {
	Name() string
	Check(gctx *GuardContext) Result
}

// GuardFunc adapts a function to a Guard.
type GuardFunc struct {
	name  string
	check func(gctx *GuardContext) Result
}

func NewGuardFunc(name string, fn func(gctx *GuardContext) Result) *GuardFunc {
	return &GuardFunc{name: name, check: fn}
}

func (g *GuardFunc) Name() string                 { return g.name }
func (g *GuardFunc) Check(gctx *GuardContext) Result { return g.check(gctx) }

// GuardContext carries the data the publish guard set needs, populated by
// the publish coordinator from the state it already loaded — guards never
// query the store themselves.
type GuardContext struct {
	AssetID string
	Force   bool

	HasCurrentContract  bool
	CurrentVersion      string
	ProposedVersion     string
	HasPendingProposal  bool
	Severity            string // "patch" | "minor" | "major", empty if not yet classified
	ActiveConsumerCount int
}

// Pass returns a passing result for guardName.
func Pass(guardName string) Result { return Result{GuardName: guardName, Passed: true} }

// Fail returns a failing result.
func Fail(guardName string, severity Severity, message, remedy string) Result {
	return Result{GuardName: guardName, Passed: false, Severity: severity, Message: message, Remedy: remedy}
}

// Runner executes a guard set and aggregates the outcome.
type Runner struct{}

func NewRunner() *Runner { return &Runner{} }

func (r *Runner) Run(gctx *GuardContext, guards []Guard) *Outcome {
	outcome := &Outcome{}
	for _, g := range guards {
		result := g.Check(gctx)
		outcome.Results = append(outcome.Results, result)
		if !result.Passed {
			switch result.Severity {
			case HardBlock:
				outcome.Blocked = true
			case SoftBlock:
				if !gctx.Force {
					outcome.Blocked = true
				}
			}
		}
	}
	return outcome
}
