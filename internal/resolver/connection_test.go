package resolver

import (
	"context"
	"testing"

	"github.com/graphql-go/graphql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rest-graphql/internal/execctx"
	"rest-graphql/internal/restspec"
)

func testCatalog(t *testing.T) *restspec.Registry {
	t.Helper()

	albums := restspec.Resource{
		Name:    "albums",
		Version: 1,
		Methods: []restspec.Method{
			{
				Name: "batchGet",
				Kind: restspec.MethodMultiGet,
				Parameters: []restspec.Parameter{
					{Name: "ids", Type: "string"},
				},
			},
		},
		Schema: &restspec.ElementSchema{
			Name: "album",
			Fields: []restspec.ElementField{
				{Name: "id", Type: "string"},
				{Name: "title", Type: "string"},
				{
					Name: "photos",
					Type: "string",
					List: true,
					Relation: &restspec.RelationAnnotation{
						Mode:   "reverse",
						Target: "photos",
						Kind:   "FINDER",
						Args:   map[string]string{"q": "findByAlbum", "albumUrn": "$id"},
					},
				},
			},
		},
	}

	photos := restspec.Resource{
		Name:    "photos",
		Version: 1,
		Methods: []restspec.Method{
			{
				Name: "batchGet",
				Kind: restspec.MethodMultiGet,
				Parameters: []restspec.Parameter{
					{Name: "ids", Type: "string"},
				},
			},
			{
				Name: "findByAlbum",
				Kind: restspec.MethodFinder,
				Parameters: []restspec.Parameter{
					{Name: "q", Type: "string"},
					{Name: "albumUrn", Type: "string"},
					{Name: "include_hidden", Type: "boolean", Optional: true},
				},
			},
		},
		Schema: &restspec.ElementSchema{
			Name: "photo",
			Fields: []restspec.ElementField{
				{Name: "id", Type: "string"},
				{Name: "caption", Type: "string"},
			},
		},
	}

	registry, err := restspec.NewRegistry([]restspec.Resource{albums, photos})
	require.NoError(t, err)
	return registry
}

func TestBuildRelationFieldForward(t *testing.T) {
	r := New(testCatalog(t), nil, nil)

	descriptor, err := r.BuildRelationField("photos", "photos", restspec.ForwardRelation{Target: "photos"}, "")
	require.NoError(t, err)

	assert.Equal(t, "batchGet", descriptor.Method.Name)
	assert.Equal(t, restspec.MethodMultiGet, descriptor.Method.Kind)
	assert.Equal(t, "PhotosV1Connection", descriptor.Type.Name())
	assert.NotNil(t, descriptor.Resolve)
	assert.NotNil(t, descriptor.Cost)

	// The identifier-list parameter never surfaces as an argument; the
	// pagination arguments always do.
	assert.NotContains(t, descriptor.Args, "ids")
	assert.Contains(t, descriptor.Args, "start")
	assert.Contains(t, descriptor.Args, "limit")
}

func TestBuildRelationFieldReverseFinder(t *testing.T) {
	r := New(testCatalog(t), nil, nil)

	rel := restspec.ReverseRelation{
		Target: "photos",
		Kind:   restspec.MethodFinder,
		Args:   map[string]string{"q": "findByAlbum", "albumUrn": "$id"},
	}
	descriptor, err := r.BuildRelationField("photos", "photos", rel, "")
	require.NoError(t, err)

	assert.Equal(t, "findByAlbum", descriptor.Method.Name)

	// Pre-bound finder parameters stay internal; the unbound optional one
	// remains callable and nullable.
	assert.NotContains(t, descriptor.Args, "q")
	assert.NotContains(t, descriptor.Args, "albumUrn")
	require.Contains(t, descriptor.Args, "includeHidden")
	assert.Equal(t, graphql.Boolean, descriptor.Args["includeHidden"].Type)
}

func TestBuildRelationFieldRequiredParameterIsNonNull(t *testing.T) {
	registry := testCatalog(t)
	r := New(registry, nil, nil)

	// Classify via override so the finder's own parameters stay unbound.
	descriptor, err := r.BuildRelationField("photos", "photos", nil, "findByAlbum")
	require.NoError(t, err)

	require.Contains(t, descriptor.Args, "albumUrn")
	_, nonNull := descriptor.Args["albumUrn"].Type.(*graphql.NonNull)
	assert.True(t, nonNull)
}

func TestBuildRelationFieldErrors(t *testing.T) {
	r := New(testCatalog(t), nil, nil)

	_, err := r.BuildRelationField("missing", "photos", nil, "")
	assert.ErrorIs(t, err, ErrResourceNotFound)

	_, err = r.BuildRelationField("photos", "photos", nil, "nope")
	assert.Error(t, err)
}

func TestBuildRelationFieldSchemaMissing(t *testing.T) {
	bare := restspec.Resource{
		Name:    "tags",
		Version: 1,
		Methods: []restspec.Method{
			{Name: "batchGet", Kind: restspec.MethodMultiGet},
		},
	}
	registry, err := restspec.NewRegistry([]restspec.Resource{bare})
	require.NoError(t, err)

	r := New(registry, nil, nil)
	_, err = r.BuildRelationField("tags", "tags", nil, "")
	assert.ErrorIs(t, err, ErrSchemaMissing)
}

func TestConnectionTypeIsCached(t *testing.T) {
	registry := testCatalog(t)
	r := New(registry, nil, nil)

	photos, _ := registry.Resource("photos")
	first := r.connectionType(photos)
	second := r.connectionType(photos)
	assert.Same(t, first, second)
}

func TestBuildGraphQLSchemaEmptyRegistry(t *testing.T) {
	registry, err := restspec.NewRegistry(nil)
	require.NoError(t, err)

	schema, err := New(registry, nil, nil).BuildGraphQLSchema()
	require.NoError(t, err)

	result := graphql.Do(graphql.Params{
		Schema:        schema,
		RequestString: `{ _registry }`,
	})
	require.Empty(t, result.Errors)
}

func TestSchemaExecutesAgainstSnapshot(t *testing.T) {
	registry := testCatalog(t)
	schema, err := New(registry, nil, nil).BuildGraphQLSchema()
	require.NoError(t, err)

	b := execctx.NewBuilder()
	b.PutObject("albums", "a1", map[string]interface{}{
		"id":     "a1",
		"title":  "Summer",
		"photos": []string{"p1", "p2", "p3"},
	})
	for _, id := range []string{"p1", "p2", "p3"} {
		b.PutObject("photos", id, map[string]interface{}{"id": id, "caption": "photo " + id})
	}
	b.RecordTopLevel(execctx.TopLevelRequest{
		Resource: "albums", Field: "albums", IDs: []string{"a1"},
	})
	ctx := execctx.WithSnapshot(context.Background(), b.Build())

	result := graphql.Do(graphql.Params{
		Schema:  schema,
		Context: ctx,
		RequestString: `{
			albums(ids: ["a1"]) {
				elements {
					id
					title
					photos(limit: 2) {
						elements { id }
						paging { count total nextStart }
					}
				}
				paging { count total }
			}
		}`,
	})
	require.Empty(t, result.Errors)

	data := result.Data.(map[string]interface{})
	albums := data["albums"].(map[string]interface{})

	albumElements := albums["elements"].([]interface{})
	require.Len(t, albumElements, 1)
	album := albumElements[0].(map[string]interface{})
	assert.Equal(t, "a1", album["id"])
	assert.Equal(t, "Summer", album["title"])

	photosConn := album["photos"].(map[string]interface{})
	photoElements := photosConn["elements"].([]interface{})
	require.Len(t, photoElements, 2)
	assert.Equal(t, "p1", photoElements[0].(map[string]interface{})["id"])
	assert.Equal(t, "p2", photoElements[1].(map[string]interface{})["id"])

	photoPaging := photosConn["paging"].(map[string]interface{})
	assert.Equal(t, 2, photoPaging["count"])
	assert.Equal(t, 3, photoPaging["total"])
	assert.Equal(t, "p3", photoPaging["nextStart"])

	albumPaging := albums["paging"].(map[string]interface{})
	assert.Equal(t, 1, albumPaging["count"])
	assert.Equal(t, 1, albumPaging["total"])
}
