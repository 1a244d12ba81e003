package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dcmio/dcm/internal/schema"
)

func TestValueEqualScalars(t *testing.T) {
	assert.True(t, schema.ValueEqual(nil, nil))
	assert.True(t, schema.ValueEqual("a", "a"))
	assert.False(t, schema.ValueEqual("a", "b"))
	assert.True(t, schema.ValueEqual(true, true))
	assert.False(t, schema.ValueEqual(true, false))
	assert.True(t, schema.ValueEqual(1.0, 1))
	assert.False(t, schema.ValueEqual(1.0, 2.0))
	assert.False(t, schema.ValueEqual("1", 1))
}

func TestValueEqualSlices(t *testing.T) {
	assert.True(t, schema.ValueEqual([]any{"a", "b"}, []any{"a", "b"}))
	assert.False(t, schema.ValueEqual([]any{"a", "b"}, []any{"a", "c"}))
	assert.False(t, schema.ValueEqual([]any{"a"}, []any{"a", "b"}))
	assert.False(t, schema.ValueEqual([]any{"a"}, "a"))
}
