// Package classify folds a diff.List into a severity under a compatibility
// mode (spec §4.3).
package classify

import "github.com/dcmio/dcm/internal/diff"

// Mode is a compatibility mode: which diffs are considered breaking.
type Mode string

const (
	ModeBackward Mode = "backward"
	ModeForward  Mode = "forward"
	ModeFull     Mode = "full"
	ModeNone     Mode = "none"
)

// Severity is the classification outcome for a change list.
type Severity string

const (
	SeverityPatch Severity = "patch"
	SeverityMinor Severity = "minor"
	SeverityMajor Severity = "major"
)

// Result is the outcome of Classify.
type Result struct {
	Severity Severity
	Breaking diff.List
}

// breakingTable implements spec §4.3's table: for each change Kind and mode,
// whether that change is breaking. Kinds not listed (e.g. default_*) are
// never breaking under any mode.
var breakingTable = map[diff.Kind]map[Mode]bool{
	// property_added is special-cased in Classify because its breaking-ness
	// also depends on whether the new property is required.
	diff.KindPropertyRemoved: {
		ModeBackward: true, ModeForward: false, ModeFull: true, ModeNone: false,
	},
	diff.KindRequiredAdded: {
		ModeBackward: true, ModeForward: false, ModeFull: true, ModeNone: false,
	},
	diff.KindRequiredRemoved: {
		ModeBackward: false, ModeForward: true, ModeFull: true, ModeNone: false,
	},
	diff.KindTypeWidened: {
		ModeBackward: false, ModeForward: true, ModeFull: true, ModeNone: false,
	},
	diff.KindTypeNarrowed: {
		ModeBackward: true, ModeForward: false, ModeFull: true, ModeNone: false,
	},
	diff.KindTypeChanged: {
		ModeBackward: true, ModeForward: true, ModeFull: true, ModeNone: false,
	},
	diff.KindEnumValuesAdded: {
		ModeBackward: false, ModeForward: true, ModeFull: true, ModeNone: false,
	},
	diff.KindEnumValuesRemoved: {
		ModeBackward: true, ModeForward: false, ModeFull: true, ModeNone: false,
	},
	diff.KindEnumValuesChanged: {
		ModeBackward: true, ModeForward: true, ModeFull: true, ModeNone: false,
	},
	diff.KindConstraintTightened: {
		ModeBackward: true, ModeForward: false, ModeFull: true, ModeNone: false,
	},
	diff.KindConstraintRelaxed: {
		ModeBackward: false, ModeForward: true, ModeFull: true, ModeNone: false,
	},
	diff.KindNullableAdded: {
		ModeBackward: false, ModeForward: true, ModeFull: true, ModeNone: false,
	},
	diff.KindNullableRemoved: {
		ModeBackward: true, ModeForward: false, ModeFull: true, ModeNone: false,
	},
	diff.KindDefaultAdded:   {ModeBackward: false, ModeForward: false, ModeFull: false, ModeNone: false},
	diff.KindDefaultRemoved: {ModeBackward: false, ModeForward: false, ModeFull: false, ModeNone: false},
	diff.KindDefaultChanged: {ModeBackward: false, ModeForward: false, ModeFull: false, ModeNone: false},
}

// structuralKinds are the kinds that, even when non-breaking, are never mere
// "patch" noise — they bump severity to at least minor (spec §4.3).
var structuralKinds = map[diff.Kind]bool{
	diff.KindPropertyAdded:     true,
	diff.KindPropertyRemoved:   true,
	diff.KindRequiredAdded:     true,
	diff.KindRequiredRemoved:   true,
	diff.KindTypeWidened:       true,
	diff.KindTypeNarrowed:      true,
	diff.KindTypeChanged:       true,
	diff.KindEnumValuesAdded:   true,
	diff.KindEnumValuesRemoved: true,
	diff.KindEnumValuesChanged: true,
	diff.KindNullableAdded:     true,
	diff.KindNullableRemoved:  true,
}

// isBreaking reports whether c is breaking under mode m.
func isBreaking(c diff.Change, m Mode) bool {
	if c.Kind == diff.KindPropertyAdded {
		if c.PropertyRequired {
			return m == ModeBackward || m == ModeForward || m == ModeFull
		}
		return m == ModeForward || m == ModeFull
	}
	row, ok := breakingTable[c.Kind]
	if !ok {
		return false
	}
	return row[m]
}

// Classify folds changes into a (severity, breaking) result under mode.
// classify(diff(S, S), *) always yields (patch, []) (spec §8 property #4),
// and severity != major implies breaking is empty (spec §8 property #5) —
// both hold structurally here since breaking is built directly from the
// breaking changes and severity is derived from the same pass.
func Classify(changes diff.List, m Mode) Result {
	var breaking diff.List
	hasStructural := false

	for _, c := range changes {
		if isBreaking(c, m) {
			breaking = append(breaking, c)
			continue
		}
		if structuralKinds[c.Kind] {
			hasStructural = true
		}
	}

	switch {
	case len(breaking) > 0:
		return Result{Severity: SeverityMajor, Breaking: breaking}
	case hasStructural:
		return Result{Severity: SeverityMinor}
	default:
		return Result{Severity: SeverityPatch}
	}
}
