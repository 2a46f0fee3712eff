package resolver

import (
	"fmt"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"
	"go.opentelemetry.io/otel/attribute"

	"rest-graphql/internal/execctx"
	"rest-graphql/internal/pagination"
)

// makePagedResolver wires the resolution engine into a field as its
// resolve behavior. The closure captures only immutable build-time state.
func (r *Resolver) makePagedResolver(targetResource, fieldName string) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		limit := r.paging.Limit(p.Args)
		start, _ := pagination.Start(p.Args)

		parent, _ := p.Source.(map[string]interface{})

		ctx, span := startResolverSpan(p.Context, "resolver.page",
			attribute.String("graphql.field", fieldName),
			attribute.String("resource.target", targetResource),
		)
		_ = ctx

		elements, paging := ResolvePage(
			execctx.FromContext(p.Context),
			parent,
			firstFieldAST(p.Info.FieldASTs),
			fieldName,
			targetResource,
			limit,
			start,
		)

		finishResolverSpan(span, nil, len(elements))

		return map[string]interface{}{
			"elements": elements,
			"paging":   paging,
		}, nil
	}
}

// ResolvePage computes the ordered page of target elements for one field
// occurrence. It is a pure read over the execution snapshot: identifier
// order from the source of truth is preserved, windowing applies after
// ordering, and identifiers without a fetched object are dropped silently
// (a downstream batch failure for one element must not fail the page).
//
// Top-level occurrences (empty parent) take their identifiers from the
// recorded top-level request matching the resource and selection name,
// and are not windowed here; the fetch planner already shaped that
// request. Nested occurrences read the identifier list from the parent
// object and apply start/limit windowing.
func ResolvePage(snap execctx.Reader, parent map[string]interface{}, field *ast.Field, fieldName, targetResource string, limit int, start string) ([]map[string]interface{}, pagination.Paging) {
	paging := pagination.Paging{Limit: limit}
	if start != "" {
		paging.Start = &start
	}

	elements := []map[string]interface{}{}
	if snap == nil {
		return elements, paging
	}

	objects := snap.Objects(targetResource)
	if objects == nil {
		// Resource never fetched: the batch layer decided no downstream
		// elements were needed. Not an error.
		return elements, paging
	}

	selection := selectionKey(field, fieldName)

	var ids []string
	nested := len(parent) > 0
	if nested {
		ids = identifierList(parent[selection])
	} else {
		for _, req := range snap.TopLevelRequests() {
			if req.Resource == targetResource && req.Field == selection {
				ids = req.IDs
				break
			}
		}
	}
	paging.Total = len(ids)

	if nested {
		ids, paging.NextStart = window(ids, start, limit)
	}

	for _, id := range ids {
		if obj, ok := objects[id]; ok {
			elements = append(elements, obj)
		}
	}
	paging.Count = len(elements)

	return elements, paging
}

// window applies the start cursor and limit to an identifier list. The
// cursor match is inclusive. An unmatched cursor leaves the list
// unconsumed, behaving as if no cursor was given; that fallback is
// pending product confirmation and deliberately not "fixed" here.
func window(ids []string, start string, limit int) ([]string, *string) {
	if start != "" {
		for i, id := range ids {
			if id == start {
				ids = ids[i:]
				break
			}
		}
	}

	var nextStart *string
	if limit >= 0 && len(ids) > limit {
		next := ids[limit]
		nextStart = &next
		ids = ids[:limit]
	}
	return ids, nextStart
}

// selectionKey returns the name this occurrence was selected under:
// its alias when present, the field name otherwise.
func selectionKey(field *ast.Field, fieldName string) string {
	if field != nil && field.Alias != nil && field.Alias.Value != "" {
		return field.Alias.Value
	}
	if field != nil && field.Name != nil && field.Name.Value != "" {
		return field.Name.Value
	}
	return fieldName
}

// identifierList coerces a parent field value into the target identifier
// list it references. Anything unusable resolves to empty.
func identifierList(raw interface{}) []string {
	switch values := raw.(type) {
	case nil:
		return nil
	case []string:
		return values
	case []interface{}:
		ids := make([]string, 0, len(values))
		for _, v := range values {
			if v == nil {
				continue
			}
			ids = append(ids, fmt.Sprint(v))
		}
		return ids
	default:
		return nil
	}
}

func firstFieldAST(fields []*ast.Field) *ast.Field {
	if len(fields) == 0 {
		return nil
	}
	return fields[0]
}
