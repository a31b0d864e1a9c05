package fieldpath_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/goform/fieldpath"
)

func TestSetGet_RoundTrip(t *testing.T) {
	root := map[string]any{}
	for _, p := range []string{"a", "b.c", "list.2.name", "deep.x.y.z", `m["0"]`} {
		fieldpath.Set(root, p, p+"-value")
		got, ok := fieldpath.Get(root, p)
		require.True(t, ok, p)
		assert.Equal(t, p+"-value", got, p)
	}

	list, ok := root["list"].([]any)
	require.True(t, ok, "index segment creates a slice")
	assert.Len(t, list, 3)
	assert.Nil(t, list[0])

	m, ok := root["m"].(map[string]any)
	require.True(t, ok, "quoted numeric key creates a map")
	assert.Equal(t, `m["0"]-value`, m["0"])
}

func TestGet_MissingIntermediate(t *testing.T) {
	root := map[string]any{"a": map[string]any{"b": 1}}
	_, ok := fieldpath.Get(root, "a.x.y")
	assert.False(t, ok)
	_, ok = fieldpath.Get(root, "a.b.c")
	assert.False(t, ok)
	assert.Nil(t, fieldpath.Value(root, "nope"))

	whole, ok := fieldpath.Get(root, "")
	require.True(t, ok)
	assert.Equal(t, root, whole)
}

func TestSet_EmptyPathReplacesRoot(t *testing.T) {
	root := map[string]any{"old": 1}
	fieldpath.Set(root, "", map[string]any{"new": 2})
	assert.Equal(t, map[string]any{"new": 2}, root)

	// self-assignment keeps the content
	fieldpath.Set(root, "", root)
	assert.Equal(t, map[string]any{"new": 2}, root)
}

func TestPut_NonMapRoot(t *testing.T) {
	got := fieldpath.Put(nil, "0.a", 1)
	assert.Equal(t, []any{map[string]any{"a": 1}}, got)
	assert.Equal(t, 5, fieldpath.Put([]any{1}, "", 5))
}

func TestUnset_PrunesEmptyParents(t *testing.T) {
	root := map[string]any{
		"a":    map[string]any{"b": map[string]any{"c": true}},
		"keep": 1,
		"arr":  []any{true, map[string]any{"x": true}},
	}
	fieldpath.Unset(root, "a.b.c")
	_, ok := root["a"]
	assert.False(t, ok)

	fieldpath.Unset(root, "arr.1.x")
	assert.Equal(t, []any{true, nil}, root["arr"])

	fieldpath.Unset(root, "arr.0")
	_, ok = root["arr"]
	assert.False(t, ok)
	assert.Equal(t, map[string]any{"keep": 1}, root)
}

func TestPrune(t *testing.T) {
	root := map[string]any{"a": map[string]any{"b": map[string]any{}}, "z": 1}
	fieldpath.Prune(root, "a.b")
	assert.Equal(t, map[string]any{"z": 1}, root)
	assert.True(t, fieldpath.IsEmptyContainer([]any{nil, nil}))
	assert.False(t, fieldpath.IsEmptyContainer("x"))
}
