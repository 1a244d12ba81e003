// Package diff implements the structural differ (spec §4.2): a deterministic
// walk of two schema.Node trees producing an ordered list of typed Change
// records. It is pure and holds no state across calls.
package diff

// Kind enumerates the change kinds spec §4.2 requires.
type Kind string

const (
	KindPropertyAdded   Kind = "property_added"
	KindPropertyRemoved Kind = "property_removed"

	KindTypeWidened  Kind = "type_widened"
	KindTypeNarrowed Kind = "type_narrowed"
	KindTypeChanged  Kind = "type_changed"

	KindRequiredAdded   Kind = "required_added"
	KindRequiredRemoved Kind = "required_removed"

	KindEnumValuesAdded   Kind = "enum_values_added"
	KindEnumValuesRemoved Kind = "enum_values_removed"
	KindEnumValuesChanged Kind = "enum_values_changed"

	KindConstraintTightened Kind = "constraint_tightened"
	KindConstraintRelaxed   Kind = "constraint_relaxed"

	KindDefaultAdded   Kind = "default_added"
	KindDefaultRemoved Kind = "default_removed"
	KindDefaultChanged Kind = "default_changed"

	KindNullableAdded   Kind = "nullable_added"
	KindNullableRemoved Kind = "nullable_removed"
)

// Change is one atomic, path-qualified difference between two schema nodes.
type Change struct {
	// Path is a JSON-pointer-style path, e.g. "$.properties.id" or
	// "$.properties.tags.items".
	Path string
	Kind Kind
	// Old and New carry the differing values where meaningful (e.g. the old
	// and new permitted-type sets for a type_* change). Either may be nil.
	Old any
	New any
	// PropertyRequired records whether the added/removed property is in the
	// containing object's required set — spec §4.3 distinguishes
	// property_added(required) from property_added(non-required).
	PropertyRequired bool
}

// List is an ordered list of Change records. Traversal order is
// deterministic: properties in lexicographic order, constraints in the fixed
// order defined by diffConstraints.
type List []Change
