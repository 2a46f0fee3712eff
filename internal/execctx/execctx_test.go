package execctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderBuildsImmutableSnapshot(t *testing.T) {
	b := NewBuilder()
	b.PutObject("albums", "a1", map[string]interface{}{"id": "a1", "title": "first"})
	b.PutObject("albums", "a2", map[string]interface{}{"id": "a2"})
	b.PutObject("photos", "p1", map[string]interface{}{"id": "p1"})
	b.RecordTopLevel(TopLevelRequest{Resource: "albums", Field: "albums", IDs: []string{"a1", "a2"}})

	snap := b.Build()

	albums := snap.Objects("albums")
	require.Len(t, albums, 2)
	assert.Equal(t, "first", albums["a1"]["title"])
	assert.Nil(t, snap.Objects("users"))
	assert.Equal(t, 3, snap.ObjectCount())

	requests := snap.TopLevelRequests()
	require.Len(t, requests, 1)
	assert.Equal(t, "albums", requests[0].Resource)
	assert.Equal(t, []string{"a1", "a2"}, requests[0].IDs)
}

func TestPutObjectReplacesEarlierFetch(t *testing.T) {
	b := NewBuilder()
	b.PutObject("albums", "a1", map[string]interface{}{"id": "a1", "title": "old"})
	b.PutObject("albums", "a1", map[string]interface{}{"id": "a1", "title": "new"})

	obj, ok := b.Object("albums", "a1")
	require.True(t, ok)
	assert.Equal(t, "new", obj["title"])
	assert.Equal(t, 1, b.Build().ObjectCount())
}

func TestTopLevelRequestOrderPreserved(t *testing.T) {
	b := NewBuilder()
	b.RecordTopLevel(TopLevelRequest{Resource: "albums", Field: "first"})
	b.RecordTopLevel(TopLevelRequest{Resource: "albums", Field: "second"})
	b.RecordTopLevel(TopLevelRequest{Resource: "photos", Field: "third"})

	requests := b.Build().TopLevelRequests()
	require.Len(t, requests, 3)
	assert.Equal(t, "first", requests[0].Field)
	assert.Equal(t, "second", requests[1].Field)
	assert.Equal(t, "third", requests[2].Field)
}

func TestContextRoundTrip(t *testing.T) {
	b := NewBuilder()
	b.PutObject("albums", "a1", map[string]interface{}{"id": "a1"})
	snap := b.Build()

	ctx := WithSnapshot(context.Background(), snap)
	got := FromContext(ctx)
	require.NotNil(t, got)
	assert.Len(t, got.Objects("albums"), 1)
}

func TestFromContextMissing(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))
	assert.Nil(t, FromContext(nil))
}

func TestNilSnapshotIsSafe(t *testing.T) {
	var snap *Snapshot
	assert.Nil(t, snap.Objects("albums"))
	assert.Nil(t, snap.TopLevelRequests())
	assert.Equal(t, 0, snap.ObjectCount())
}
