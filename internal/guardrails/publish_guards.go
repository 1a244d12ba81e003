package guardrails

import "github.com/Masterminds/semver/v3"

// PublishGuards is the guard set the publish coordinator runs inside its
// transaction, after (and in addition to) its own invariant checks (spec
// §4.5). The hard blocks here duplicate invariants the store/coordinator
// already enforce as typed errors, so a caller of the guard Runner gets the
// same diagnosis in FormatBlockMessage form.
func PublishGuards() []Guard {
	return []Guard{
		NewGuardFunc("pending_proposal_exists", checkPendingProposal),
		NewGuardFunc("version_must_increase", checkVersionIncreases),
		NewGuardFunc("major_change_requires_force", checkMajorRequiresForce),
		NewGuardFunc("no_active_consumers", checkNoActiveConsumers),
	}
}

func checkPendingProposal(gctx *GuardContext) Result {
	if gctx.HasPendingProposal {
		return Fail("pending_proposal_exists", HardBlock,
			"asset already has a pending proposal",
			"resolve (approve/reject/withdraw) the existing proposal before publishing again")
	}
	return Pass("pending_proposal_exists")
}

func checkVersionIncreases(gctx *GuardContext) Result {
	if !gctx.HasCurrentContract || gctx.CurrentVersion == "" {
		return Pass("version_must_increase")
	}
	increases := gctx.ProposedVersion != gctx.CurrentVersion
	cur, curErr := semver.NewVersion(gctx.CurrentVersion)
	prop, propErr := semver.NewVersion(gctx.ProposedVersion)
	if curErr == nil && propErr == nil {
		increases = prop.GreaterThan(cur)
	}
	if !increases {
		return Fail("version_must_increase", HardBlock,
			"proposed version must be strictly greater than the current contract's version",
			"bump the proposed version")
	}
	return Pass("version_must_increase")
}

// checkMajorRequiresForce is advisory only — a major change without force
// does not fail, it opens a proposal (spec §4.5 step 8). It reports at
// Warning (not SoftBlock) severity so a caller who passes force=false but
// expected an immediate publish gets an explanatory message without the
// Runner ever treating the expected proposal-opening path as blocked.
func checkMajorRequiresForce(gctx *GuardContext) Result {
	if gctx.Severity != "major" {
		return Pass("major_change_requires_force")
	}
	if gctx.Force {
		return Pass("major_change_requires_force")
	}
	return Result{
		GuardName: "major_change_requires_force",
		Passed:    false,
		Severity:  Warning,
		Message:   "this is a breaking (major) change; it will open a proposal for consumer acknowledgment instead of publishing directly",
		Remedy:    "pass force=true (admin scope, checked outside the core) to force-publish immediately",
	}
}

func checkNoActiveConsumers(gctx *GuardContext) Result {
	if gctx.Severity != "major" || gctx.ActiveConsumerCount > 0 {
		return Pass("no_active_consumers")
	}
	return Result{
		GuardName: "no_active_consumers",
		Passed:    false,
		Severity:  Suggestion,
		Message:   "no active registrations depend on this asset",
		Remedy:    "consider force=true since no consumer acknowledgment is needed",
	}
}
