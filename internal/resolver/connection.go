package resolver

import (
	"errors"
	"fmt"

	"github.com/graphql-go/graphql"

	"rest-graphql/internal/naming"
	"rest-graphql/internal/relation"
	"rest-graphql/internal/restspec"
)

var (
	// ErrResourceNotFound reports a relation target missing from the
	// catalog.
	ErrResourceNotFound = errors.New("resource not found")

	// ErrSchemaMissing reports a relation target without an element
	// schema.
	ErrSchemaMissing = errors.New("resource element schema missing")
)

// CostFn estimates a field's complexity contribution from its effective
// page limit and the aggregate cost of its child selections.
type CostFn func(limit int, childCost float64) float64

// FieldDescriptor is the built form of one paged relation field. Immutable
// once built; shared read-only across concurrent query executions.
type FieldDescriptor struct {
	Target    restspec.Resource
	FieldName string
	Method    restspec.Method
	Args      graphql.FieldConfigArgument
	Type      *graphql.Object
	Resolve   graphql.FieldResolveFn
	Cost      CostFn
}

// GraphQLField renders the descriptor as a graphql-go field definition.
func (fd *FieldDescriptor) GraphQLField() *graphql.Field {
	return &graphql.Field{
		Type:    fd.Type,
		Args:    fd.Args,
		Resolve: fd.Resolve,
	}
}

// BuildRelationField constructs the field descriptor for a paged relation
// pointing at targetName. overrideMethod, when non-empty, names a method
// on the target that bypasses relation classification. Exactly one method
// is chosen or the build fails; no partial field is ever emitted.
func (r *Resolver) BuildRelationField(targetName, fieldName string, rel restspec.Relation, overrideMethod string) (*FieldDescriptor, error) {
	target, ok := r.registry.Resource(targetName)
	if !ok {
		return nil, fmt.Errorf("field %q targets %q: %w", fieldName, targetName, ErrResourceNotFound)
	}
	if _, ok := r.registry.Schema(target); !ok {
		return nil, fmt.Errorf("field %q targets %q: %w", fieldName, targetName, ErrSchemaMissing)
	}

	var override *restspec.Method
	if overrideMethod != "" {
		method, found := target.MethodByName(overrideMethod)
		if !found {
			return nil, fmt.Errorf("field %q: override method %q not declared on %q", fieldName, overrideMethod, targetName)
		}
		override = &method
	}

	method, err := relation.Classify(target, fieldName, override, rel)
	if err != nil {
		return nil, err
	}

	descriptor := &FieldDescriptor{
		Target:    target,
		FieldName: fieldName,
		Method:    method,
		Args:      r.methodArguments(method, boundArgumentNames(rel)),
		Type:      r.connectionType(target),
		Cost:      PagedRelationCost,
	}
	descriptor.Resolve = r.makePagedResolver(target.Name, fieldName)
	return descriptor, nil
}

// methodArguments renders the callable argument list for a field:
// the method's declared parameters, minus the identifier-list parameter
// (the engine derives identifiers internally), minus any parameter a
// reverse relation already binds, plus the shared pagination arguments.
func (r *Resolver) methodArguments(method restspec.Method, bound map[string]struct{}) graphql.FieldConfigArgument {
	args := graphql.FieldConfigArgument{}

	for _, param := range method.Parameters {
		if param.Name == restspec.IdentifierListParameter {
			continue
		}
		if _, isBound := bound[param.Name]; isBound {
			continue
		}
		argType := scalarForType(param.Type)
		config := &graphql.ArgumentConfig{Type: argType}
		if !param.Optional {
			config.Type = graphql.NewNonNull(argType)
		}
		args[naming.ToFieldName(param.Name)] = config
	}

	for name, config := range r.paging.Args() {
		args[name] = config
	}

	return args
}

func boundArgumentNames(rel restspec.Relation) map[string]struct{} {
	reverse, ok := rel.(restspec.ReverseRelation)
	if !ok || len(reverse.Args) == 0 {
		return nil
	}
	bound := make(map[string]struct{}, len(reverse.Args))
	for name := range reverse.Args {
		bound[name] = struct{}{}
	}
	return bound
}

// connectionType returns the (cached) connection type for a resource:
// elements plus paging. Element fields resolve lazily so that cyclic
// resource graphs build without eager recursion; if the target's element
// schema cannot be resolved the connection degrades to zero fields
// instead of failing the whole schema build.
func (r *Resolver) connectionType(resource restspec.Resource) *graphql.Object {
	typeName := naming.ConnectionTypeName(resource)

	r.mu.RLock()
	cached, ok := r.connectionCache[typeName]
	r.mu.RUnlock()
	if ok {
		return cached
	}

	connType := graphql.NewObject(graphql.ObjectConfig{
		Name: typeName,
		Fields: graphql.FieldsThunk(func() graphql.Fields {
			if _, ok := r.registry.Schema(resource); !ok {
				return graphql.Fields{}
			}
			elementType := r.elementType(resource)
			return graphql.Fields{
				"elements": &graphql.Field{
					Type:    graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(elementType))),
					Resolve: connectionMemberResolver("elements"),
				},
				"paging": &graphql.Field{
					Type:    graphql.NewNonNull(r.paging.PagingType()),
					Resolve: connectionMemberResolver("paging"),
				},
			}
		}),
	})

	r.mu.Lock()
	if cached, ok := r.connectionCache[typeName]; ok {
		r.mu.Unlock()
		return cached
	}
	r.connectionCache[typeName] = connType
	r.mu.Unlock()

	return connType
}

func connectionMemberResolver(member string) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		source, ok := p.Source.(map[string]interface{})
		if !ok {
			return nil, nil
		}
		return source[member], nil
	}
}
