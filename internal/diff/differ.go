package diff

import (
	"fmt"

	"github.com/dcmio/dcm/internal/schema"
)

// Diff walks old and new and returns the ordered list of changes between
// them, per spec §4.2. Diff(s, s) always returns an empty list (testable
// property #4 in spec §8).
func Diff(old, new *schema.Node) List {
	var out List
	diffNode(old, new, "$", &out)
	return out
}

func diffNode(old, new *schema.Node, path string, out *List) {
	if old == nil {
		old = &schema.Node{}
	}
	if new == nil {
		new = &schema.Node{}
	}

	diffTypes(old, new, path, out)
	diffRequiredOnSharedScope(old, new, path, out)
	diffEnum(old, new, path, out)
	diffConstraints(old, new, path, out)
	diffDefault(old, new, path, out)
	diffNullable(old, new, path, out)
	diffProperties(old, new, path, out)
	diffItems(old, new, path, out)
}

// effectiveTypeSet folds the Nullable flag into the type set so that
// "nullable: true" and an explicit "null" member in Types compare the same
// way under containment.
func effectiveTypeSet(n *schema.Node) map[string]struct{} {
	set := n.TypeSet()
	if n.Nullable {
		set[schema.TypeNull] = struct{}{}
	}
	return set
}

func diffTypes(old, new *schema.Node, path string, out *List) {
	oldSet := effectiveTypeSet(old)
	newSet := effectiveTypeSet(new)
	if setEqual(oldSet, newSet) {
		return
	}

	oldSubsetOfNew := isSubset(oldSet, newSet)
	newSubsetOfOld := isSubset(newSet, oldSet)

	c := Change{Path: path, Old: old.Types, New: new.Types}
	switch {
	case oldSubsetOfNew && !newSubsetOfOld:
		c.Kind = KindTypeWidened
	case newSubsetOfOld && !oldSubsetOfNew:
		c.Kind = KindTypeNarrowed
	default:
		c.Kind = KindTypeChanged
	}
	*out = append(*out, c)
}

// diffRequiredOnSharedScope emits required_added/required_removed only for
// the object's own required set; per-property additions that also bring the
// property into existence are covered by property_added's PropertyRequired
// flag instead (spec §4.3 distinguishes the two).
func diffRequiredOnSharedScope(old, new *schema.Node, path string, out *List) {
	oldReq := old.RequiredSet()
	newReq := new.RequiredSet()
	oldProps := old.Properties
	newProps := new.Properties

	for _, name := range unionSortedKeys(oldReq, newReq) {
		_, inOldProps := oldProps[name]
		_, inNewProps := newProps[name]
		// Only meaningful for a property that exists on both sides; a
		// property appearing for the first time is handled by
		// property_added(required).
		if !inOldProps || !inNewProps {
			continue
		}
		_, wasReq := oldReq[name]
		_, isReq := newReq[name]
		if !wasReq && isReq {
			*out = append(*out, Change{Path: path + ".required", Kind: KindRequiredAdded, New: name})
		} else if wasReq && !isReq {
			*out = append(*out, Change{Path: path + ".required", Kind: KindRequiredRemoved, Old: name})
		}
	}
}

func diffEnum(old, new *schema.Node, path string, out *List) {
	oldSet := old.EnumSet()
	newSet := new.EnumSet()
	if oldSet == nil && newSet == nil {
		return
	}
	if setEqual(oldSet, newSet) {
		return
	}

	oldSubsetOfNew := isSubset(oldSet, newSet)
	newSubsetOfOld := isSubset(newSet, oldSet)

	c := Change{Path: path + ".enum", Old: old.Enum, New: new.Enum}
	switch {
	case oldSubsetOfNew && !newSubsetOfOld:
		c.Kind = KindEnumValuesAdded
	case newSubsetOfOld && !oldSubsetOfNew:
		c.Kind = KindEnumValuesRemoved
	default:
		c.Kind = KindEnumValuesChanged
	}
	*out = append(*out, c)
}

// diffConstraints walks the numeric/length/pattern constraints in the fixed
// order spec §4.2 requires: minimum, maximum, exclusiveMinimum,
// exclusiveMaximum, minLength, maxLength, pattern, minItems, maxItems.
func diffConstraints(old, new *schema.Node, path string, out *List) {
	diffNumericBound(path, "minimum", old.Minimum, new.Minimum, true, out)
	diffNumericBound(path, "maximum", old.Maximum, new.Maximum, false, out)
	diffNumericBound(path, "exclusiveMinimum", old.ExclusiveMinimum, new.ExclusiveMinimum, true, out)
	diffNumericBound(path, "exclusiveMaximum", old.ExclusiveMaximum, new.ExclusiveMaximum, false, out)
	diffIntBound(path, "minLength", old.MinLength, new.MinLength, true, out)
	diffIntBound(path, "maxLength", old.MaxLength, new.MaxLength, false, out)
	diffPattern(path, old.Pattern, new.Pattern, out)
	diffIntBound(path, "minItems", old.MinItems, new.MinItems, true, out)
	diffIntBound(path, "maxItems", old.MaxItems, new.MaxItems, false, out)
}

// diffNumericBound compares a lower bound (lowerIsNarrower=true, e.g.
// "minimum": raising it narrows the accepted range) or an upper bound
// (lowerIsNarrower=false, e.g. "maximum": lowering it narrows the range).
func diffNumericBound(path, name string, oldV, newV *float64, lowerIsNarrower bool, out *List) {
	if floatPtrEqual(oldV, newV) {
		return
	}
	if oldV == nil || newV == nil {
		// A bound appearing or disappearing changes how restrictive the
		// schema is; treat introducing a bound as tightening and removing
		// one as relaxing, consistent with the direction table below.
		tightened := newV != nil
		emitConstraintChange(path, name, oldV, newV, tightened, out)
		return
	}

	var tightened bool
	if lowerIsNarrower {
		tightened = *newV > *oldV
	} else {
		tightened = *newV < *oldV
	}
	emitConstraintChange(path, name, oldV, newV, tightened, out)
}

func diffIntBound(path, name string, oldV, newV *int, lowerIsNarrower bool, out *List) {
	if intPtrEqual(oldV, newV) {
		return
	}
	if oldV == nil || newV == nil {
		tightened := newV != nil
		emitConstraintChange(path, name, oldV, newV, tightened, out)
		return
	}

	var tightened bool
	if lowerIsNarrower {
		tightened = *newV > *oldV
	} else {
		tightened = *newV < *oldV
	}
	emitConstraintChange(path, name, oldV, newV, tightened, out)
}

// diffPattern conservatively treats any pattern change as a tightening
// unless the two patterns are identical, per spec §4.2.
func diffPattern(path string, oldP, newP string, out *List) {
	if oldP == newP {
		return
	}
	emitConstraintChange(path, "pattern", oldP, newP, true, out)
}

func emitConstraintChange(path, name string, oldV, newV any, tightened bool, out *List) {
	kind := KindConstraintRelaxed
	if tightened {
		kind = KindConstraintTightened
	}
	*out = append(*out, Change{Path: fmt.Sprintf("%s.%s", path, name), Kind: kind, Old: oldV, New: newV})
}

func diffDefault(old, new *schema.Node, path string, out *List) {
	switch {
	case !old.HasDefault && new.HasDefault:
		*out = append(*out, Change{Path: path + ".default", Kind: KindDefaultAdded, New: new.Default})
	case old.HasDefault && !new.HasDefault:
		*out = append(*out, Change{Path: path + ".default", Kind: KindDefaultRemoved, Old: old.Default})
	case old.HasDefault && new.HasDefault && !schema.ValueEqual(old.Default, new.Default):
		*out = append(*out, Change{Path: path + ".default", Kind: KindDefaultChanged, Old: old.Default, New: new.Default})
	}
}

func diffNullable(old, new *schema.Node, path string, out *List) {
	oldNull := old.Nullable || hasType(old, schema.TypeNull)
	newNull := new.Nullable || hasType(new, schema.TypeNull)
	switch {
	case !oldNull && newNull:
		*out = append(*out, Change{Path: path, Kind: KindNullableAdded})
	case oldNull && !newNull:
		*out = append(*out, Change{Path: path, Kind: KindNullableRemoved})
	}
}

func hasType(n *schema.Node, t string) bool {
	for _, x := range n.Types {
		if x == t {
			return true
		}
	}
	return false
}

// diffProperties walks the union of property names in lexicographic order
// (spec §4.2) and recurses into shared properties without aggregating their
// nested differences into a single "property_modified" change.
func diffProperties(old, new *schema.Node, path string, out *List) {
	names := unionSortedPropertyNames(old.Properties, new.Properties)
	for _, name := range names {
		oldChild, inOld := old.Properties[name]
		newChild, inNew := new.Properties[name]
		childPath := path + ".properties." + name

		switch {
		case inNew && !inOld:
			*out = append(*out, Change{
				Path:             childPath,
				Kind:             KindPropertyAdded,
				New:              summarize(newChild),
				PropertyRequired: new.IsRequired(name),
			})
		case inOld && !inNew:
			*out = append(*out, Change{
				Path:             childPath,
				Kind:             KindPropertyRemoved,
				Old:              summarize(oldChild),
				PropertyRequired: old.IsRequired(name),
			})
		default:
			diffNode(oldChild, newChild, childPath, out)
		}
	}
}

func diffItems(old, new *schema.Node, path string, out *List) {
	if old.Items == nil && new.Items == nil {
		return
	}
	diffNode(old.Items, new.Items, path+".items", out)
}

func summarize(n *schema.Node) any {
	if n == nil {
		return nil
	}
	return n.Types
}
