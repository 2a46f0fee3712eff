// Package resolver builds an executable GraphQL schema from REST resource
// descriptors and resolves connection fields against the per-request
// execution snapshot. Types are generated once per schema build and cached;
// resolution itself is stateless and safe under concurrent field execution.
package resolver

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/graphql-go/graphql"

	"rest-graphql/internal/naming"
	"rest-graphql/internal/pagination"
	"rest-graphql/internal/restspec"
)

// Catalog is the schema-metadata surface the resolver consumes: resource
// lookup plus enumeration for the root query.
type Catalog interface {
	restspec.Lookup
	Names() []string
}

// Resolver generates GraphQL types and resolvers for a resource catalog.
// It caches element and connection types to keep cyclic resource graphs
// from recursing and to share types across fields.
type Resolver struct {
	registry Catalog
	paging   *pagination.Fields
	logger   *slog.Logger

	elementCache    map[string]*graphql.Object
	connectionCache map[string]*graphql.Object
	mu              sync.RWMutex
}

// New creates a resolver over the given catalog.
func New(registry Catalog, paging *pagination.Fields, logger *slog.Logger) *Resolver {
	if paging == nil {
		paging = pagination.NewFields(pagination.DefaultLimit)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		registry:        registry,
		paging:          paging,
		logger:          logger,
		elementCache:    make(map[string]*graphql.Object),
		connectionCache: make(map[string]*graphql.Object),
	}
}

// BuildGraphQLSchema constructs the executable schema: one connection-typed
// root field per catalog resource. A resource whose root field cannot be
// built is skipped with a warning; one bad descriptor must not take down
// the rest of the schema.
func (r *Resolver) BuildGraphQLSchema() (graphql.Schema, error) {
	queryFields := graphql.Fields{}

	for _, name := range r.registry.Names() {
		resource, ok := r.registry.Resource(name)
		if !ok {
			continue
		}
		field, err := r.rootCollectionField(resource)
		if err != nil {
			r.logger.Warn("skipping root field for resource",
				slog.String("resource", name),
				slog.String("error", err.Error()),
			)
			continue
		}
		queryFields[naming.QueryFieldName(resource)] = field
	}

	// Placeholder query when the registry is empty, to satisfy GraphQL
	// schema requirements.
	if len(queryFields) == 0 {
		queryFields["_registry"] = &graphql.Field{
			Type:        graphql.String,
			Description: "Placeholder field when no resources are registered",
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return "No resources registered", nil
			},
		}
	}

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: graphql.NewObject(graphql.ObjectConfig{
			Name:   "Query",
			Fields: queryFields,
		}),
	})
}

// rootCollectionField builds the top-level connection field for a
// resource: callers name identifiers explicitly and the fetch planner
// shapes the upstream request from them.
func (r *Resolver) rootCollectionField(resource restspec.Resource) (*graphql.Field, error) {
	descriptor, err := r.BuildRelationField(resource.Name, naming.QueryFieldName(resource), nil, "")
	if err != nil {
		return nil, err
	}

	field := descriptor.GraphQLField()
	field.Args["ids"] = &graphql.ArgumentConfig{
		Type:        graphql.NewList(graphql.NewNonNull(graphql.String)),
		Description: "Identifiers to fetch, in the order they should be returned.",
	}
	return field, nil
}

// elementType returns the (cached) GraphQL object for a resource's
// element schema. Field construction is deferred via FieldsThunk so that
// resources that reference each other do not recurse at build time.
func (r *Resolver) elementType(resource restspec.Resource) *graphql.Object {
	typeName := naming.ElementTypeName(resource)

	r.mu.RLock()
	cached, ok := r.elementCache[typeName]
	r.mu.RUnlock()
	if ok {
		return cached
	}

	objType := graphql.NewObject(graphql.ObjectConfig{
		Name: typeName,
		Fields: graphql.FieldsThunk(func() graphql.Fields {
			return r.buildElementFields(resource)
		}),
	})

	// Cache before the thunk runs; required for cyclic resource graphs.
	r.mu.Lock()
	if cached, ok := r.elementCache[typeName]; ok {
		r.mu.Unlock()
		return cached
	}
	r.elementCache[typeName] = objType
	r.mu.Unlock()

	return objType
}

// buildElementFields renders the element schema's fields, turning
// relation-annotated fields into connection fields. A relation field that
// fails to build is skipped with a warning; its siblings still resolve.
func (r *Resolver) buildElementFields(resource restspec.Resource) graphql.Fields {
	fields := graphql.Fields{}

	schema, ok := r.registry.Schema(resource)
	if !ok {
		return fields
	}

	for _, schemaField := range schema.Fields {
		fieldName := naming.ToFieldName(schemaField.Name)

		if schemaField.Relation == nil {
			fieldType := scalarForType(schemaField.Type)
			if schemaField.List {
				fieldType = graphql.NewList(fieldType)
			}
			fields[fieldName] = &graphql.Field{Type: fieldType}
			continue
		}

		rel, err := schemaField.Relation.Spec()
		if err != nil {
			r.logger.Warn("skipping relation field",
				slog.String("resource", resource.Name),
				slog.String("field", schemaField.Name),
				slog.String("error", err.Error()),
			)
			continue
		}

		descriptor, err := r.BuildRelationField(relationTarget(rel), schemaField.Name, rel, schemaField.Relation.Method)
		if err != nil {
			r.logger.Warn("skipping relation field",
				slog.String("resource", resource.Name),
				slog.String("field", schemaField.Name),
				slog.String("error", err.Error()),
			)
			continue
		}
		fields[fieldName] = descriptor.GraphQLField()
	}

	return fields
}

func relationTarget(rel restspec.Relation) string {
	switch spec := rel.(type) {
	case restspec.ForwardRelation:
		return spec.Target
	case restspec.ReverseRelation:
		return spec.Target
	default:
		return ""
	}
}

func scalarForType(declared string) graphql.Output {
	switch strings.ToLower(declared) {
	case "int", "long":
		return graphql.Int
	case "float", "double":
		return graphql.Float
	case "boolean", "bool":
		return graphql.Boolean
	default:
		return graphql.String
	}
}
