package resolver

import (
	"testing"

	"github.com/graphql-go/graphql/language/ast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rest-graphql/internal/execctx"
)

func fieldAST(name, alias string) *ast.Field {
	f := &ast.Field{Name: &ast.Name{Value: name}}
	if alias != "" {
		f.Alias = &ast.Name{Value: alias}
	}
	return f
}

func photoSnapshot(ids ...string) *execctx.Snapshot {
	b := execctx.NewBuilder()
	for _, id := range ids {
		b.PutObject("photos", id, map[string]interface{}{"id": id})
	}
	return b.Build()
}

func elementIDs(elements []map[string]interface{}) []string {
	ids := make([]string, 0, len(elements))
	for _, e := range elements {
		ids = append(ids, e["id"].(string))
	}
	return ids
}

func TestResolvePageTopLevelPreservesRequestOrder(t *testing.T) {
	b := execctx.NewBuilder()
	for _, id := range []string{"c", "a", "b"} {
		b.PutObject("photos", id, map[string]interface{}{"id": id})
	}
	b.RecordTopLevel(execctx.TopLevelRequest{
		Resource: "photos", Field: "photos", IDs: []string{"a", "b", "c"},
	})
	snap := b.Build()

	elements, paging := ResolvePage(snap, nil, fieldAST("photos", ""), "photos", "photos", 10, "")
	assert.Equal(t, []string{"a", "b", "c"}, elementIDs(elements))
	assert.Equal(t, 3, paging.Total)
	assert.Equal(t, 3, paging.Count)
	assert.Nil(t, paging.NextStart)
}

func TestResolvePageDropsUnfetchedIdentifiers(t *testing.T) {
	b := execctx.NewBuilder()
	b.PutObject("photos", "a", map[string]interface{}{"id": "a"})
	b.PutObject("photos", "c", map[string]interface{}{"id": "c"})
	b.RecordTopLevel(execctx.TopLevelRequest{
		Resource: "photos", Field: "photos", IDs: []string{"a", "b", "c"},
	})
	snap := b.Build()

	elements, paging := ResolvePage(snap, nil, fieldAST("photos", ""), "photos", "photos", 10, "")
	// "b" was never fetched; the page tolerates the gap.
	assert.Equal(t, []string{"a", "c"}, elementIDs(elements))
	assert.Equal(t, 3, paging.Total)
	assert.Equal(t, 2, paging.Count)
}

func TestResolvePageTopLevelMatchesSelectionName(t *testing.T) {
	b := execctx.NewBuilder()
	b.PutObject("photos", "a", map[string]interface{}{"id": "a"})
	b.RecordTopLevel(execctx.TopLevelRequest{
		Resource: "photos", Field: "mine", IDs: []string{"a"},
	})
	snap := b.Build()

	// Aliased selection finds the matching request record.
	elements, _ := ResolvePage(snap, nil, fieldAST("photos", "mine"), "photos", "photos", 10, "")
	assert.Equal(t, []string{"a"}, elementIDs(elements))

	// A different selection name matches nothing.
	elements, paging := ResolvePage(snap, nil, fieldAST("photos", ""), "photos", "photos", 10, "")
	assert.Empty(t, elements)
	assert.Equal(t, 0, paging.Total)
}

func TestResolvePageNestedWindowing(t *testing.T) {
	snap := photoSnapshot("1", "2", "3", "4", "5")
	parent := map[string]interface{}{"id": "album-1", "photos": []string{"1", "2", "3", "4", "5"}}

	elements, paging := ResolvePage(snap, parent, fieldAST("photos", ""), "photos", "photos", 2, "3")
	assert.Equal(t, []string{"3", "4"}, elementIDs(elements))
	assert.Equal(t, 5, paging.Total)
	assert.Equal(t, 2, paging.Count)
	require.NotNil(t, paging.NextStart)
	assert.Equal(t, "5", *paging.NextStart)
}

func TestResolvePageNestedLimitWithoutCursor(t *testing.T) {
	snap := photoSnapshot("1", "2", "3", "4", "5")
	parent := map[string]interface{}{"photos": []string{"1", "2", "3", "4", "5"}}

	elements, paging := ResolvePage(snap, parent, fieldAST("photos", ""), "photos", "photos", 3, "")
	assert.Equal(t, []string{"1", "2", "3"}, elementIDs(elements))
	require.NotNil(t, paging.NextStart)
	assert.Equal(t, "4", *paging.NextStart)
}

func TestResolvePageUnmatchedCursorFallsBack(t *testing.T) {
	snap := photoSnapshot("1", "2", "3")
	parent := map[string]interface{}{"photos": []string{"1", "2", "3"}}

	// A cursor naming no element behaves as if no cursor was given.
	elements, _ := ResolvePage(snap, parent, fieldAST("photos", ""), "photos", "photos", 2, "zz")
	assert.Equal(t, []string{"1", "2"}, elementIDs(elements))
}

func TestResolvePageNestedAlias(t *testing.T) {
	snap := photoSnapshot("1", "2")
	parent := map[string]interface{}{"recent": []string{"2", "1"}}

	elements, _ := ResolvePage(snap, parent, fieldAST("photos", "recent"), "photos", "photos", 10, "")
	assert.Equal(t, []string{"2", "1"}, elementIDs(elements))
}

func TestResolvePageCoercesInterfaceList(t *testing.T) {
	snap := photoSnapshot("1", "2")
	parent := map[string]interface{}{"photos": []interface{}{"1", nil, "2"}}

	elements, _ := ResolvePage(snap, parent, fieldAST("photos", ""), "photos", "photos", 10, "")
	assert.Equal(t, []string{"1", "2"}, elementIDs(elements))
}

func TestResolvePageEmptyCases(t *testing.T) {
	elements, paging := ResolvePage(nil, nil, fieldAST("photos", ""), "photos", "photos", 10, "")
	assert.Empty(t, elements)
	assert.Equal(t, 0, paging.Count)

	// Resource never fetched.
	snap := execctx.NewBuilder().Build()
	elements, _ = ResolvePage(snap, nil, fieldAST("photos", ""), "photos", "photos", 10, "")
	assert.Empty(t, elements)

	// Parent without the field.
	snap = photoSnapshot("1")
	elements, _ = ResolvePage(snap, map[string]interface{}{"id": "x"}, fieldAST("photos", ""), "photos", "photos", 10, "")
	assert.Empty(t, elements)
}

func TestWindow(t *testing.T) {
	ids := []string{"a", "b", "c", "d"}

	got, next := window(ids, "b", 2)
	assert.Equal(t, []string{"b", "c"}, got)
	require.NotNil(t, next)
	assert.Equal(t, "d", *next)

	got, next = window(ids, "", 10)
	assert.Equal(t, ids, got)
	assert.Nil(t, next)

	got, next = window(ids, "d", 2)
	assert.Equal(t, []string{"d"}, got)
	assert.Nil(t, next)

	got, _ = window(ids, "", 0)
	assert.Empty(t, got)
}
