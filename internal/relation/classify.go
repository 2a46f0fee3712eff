// Package relation decides which server-side method serves a paged
// relation field. Classification is a pure function over resource
// descriptors; all failures are schema-construction-time values.
package relation

import (
	"errors"
	"fmt"

	"rest-graphql/internal/restspec"
)

var (
	// ErrMissingMultiGet reports a forward or default relation on a
	// resource without a MULTI_GET method.
	ErrMissingMultiGet = errors.New("resource has no MULTI_GET method")

	// ErrMissingFinderParameter reports a reverse FINDER relation whose
	// annotation lacks a usable finder name, or whose named finder does
	// not exist on the target resource.
	ErrMissingFinderParameter = errors.New("reverse relation names no usable finder")

	// ErrSingleElementPagination reports a relation kind that returns at
	// most one element and therefore cannot back a paginated field.
	ErrSingleElementPagination = errors.New("relation kind cannot be paginated")
)

// Classify picks the method on resource that will produce the paginated
// collection behind fieldName. Rules, in priority order: an explicit
// override wins unconditionally; forward relations require MULTI_GET;
// reverse relations dispatch on their declared kind; no relation at all
// defaults to MULTI_GET.
func Classify(resource restspec.Resource, fieldName string, override *restspec.Method, rel restspec.Relation) (restspec.Method, error) {
	if override != nil {
		return *override, nil
	}

	switch spec := rel.(type) {
	case nil:
		return multiGetMethod(resource, fieldName)
	case restspec.ForwardRelation:
		return multiGetMethod(resource, fieldName)
	case restspec.ReverseRelation:
		return classifyReverse(resource, fieldName, spec)
	default:
		return restspec.Method{}, fmt.Errorf("field %q: unhandled relation variant %T", fieldName, rel)
	}
}

func classifyReverse(resource restspec.Resource, fieldName string, spec restspec.ReverseRelation) (restspec.Method, error) {
	switch spec.Kind {
	case restspec.MethodFinder:
		finderName, ok := spec.Args[restspec.FinderNameArgument]
		if !ok || finderName == "" {
			return restspec.Method{}, fmt.Errorf("field %q on resource %q: %w", fieldName, resource.Name, ErrMissingFinderParameter)
		}
		method, ok := resource.MethodByName(finderName)
		if !ok || method.Kind != restspec.MethodFinder {
			return restspec.Method{}, fmt.Errorf("field %q on resource %q: finder %q: %w", fieldName, resource.Name, finderName, ErrMissingFinderParameter)
		}
		return method, nil
	case restspec.MethodMultiGet:
		return multiGetMethod(resource, fieldName)
	default:
		// GET, SINGLE_ELEMENT_FINDER, and unknown kinds return at most
		// one element regardless of method availability.
		return restspec.Method{}, fmt.Errorf("field %q on resource %q: relation kind %s: %w", fieldName, resource.Name, spec.Kind, ErrSingleElementPagination)
	}
}

func multiGetMethod(resource restspec.Resource, fieldName string) (restspec.Method, error) {
	method, ok := resource.MethodByKind(restspec.MethodMultiGet)
	if !ok {
		return restspec.Method{}, fmt.Errorf("field %q on resource %q: %w", fieldName, resource.Name, ErrMissingMultiGet)
	}
	return method, nil
}
