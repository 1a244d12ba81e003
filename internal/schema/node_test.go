package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dcmio/dcm/internal/schema"
)

func TestNodeTypeSet(t *testing.T) {
	n := &schema.Node{Types: []string{schema.TypeString, schema.TypeNull}}
	set := n.TypeSet()
	assert.Len(t, set, 2)
	_, ok := set[schema.TypeString]
	assert.True(t, ok)
	_, ok = set[schema.TypeNull]
	assert.True(t, ok)
}

func TestNodeTypeSetNilReceiverIsSafe(t *testing.T) {
	var n *schema.Node
	assert.Empty(t, n.TypeSet())
}

func TestNodeSortedPropertyNames(t *testing.T) {
	n := &schema.Node{Properties: map[string]*schema.Node{
		"zeta": {}, "alpha": {}, "mid": {},
	}}
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, n.SortedPropertyNames())
}

func TestNodeSortedPropertyNamesNilAndEmpty(t *testing.T) {
	var n *schema.Node
	assert.Nil(t, n.SortedPropertyNames())

	n = &schema.Node{}
	assert.Nil(t, n.SortedPropertyNames())
}

func TestNodeRequiredSetAndIsRequired(t *testing.T) {
	n := &schema.Node{Required: []string{"id", "name"}}
	set := n.RequiredSet()
	assert.Len(t, set, 2)
	assert.True(t, n.IsRequired("id"))
	assert.True(t, n.IsRequired("name"))
	assert.False(t, n.IsRequired("missing"))
}

func TestNodeIsRequiredNilReceiverIsSafe(t *testing.T) {
	var n *schema.Node
	assert.False(t, n.IsRequired("id"))
}

func TestNodeEnumSetDistinguishesNilFromEmpty(t *testing.T) {
	var withNilEnum schema.Node
	assert.Nil(t, withNilEnum.EnumSet())

	withEmptyEnum := schema.Node{Enum: []any{}}
	set := withEmptyEnum.EnumSet()
	assert.NotNil(t, set)
	assert.Empty(t, set)

	withValues := schema.Node{Enum: []any{"a", "b", "a"}}
	assert.Len(t, withValues.EnumSet(), 2)
}

func TestNodeEnumSetNilReceiverIsSafe(t *testing.T) {
	var n *schema.Node
	assert.Nil(t, n.EnumSet())
}
