// Package pagination supplies the shared paging arguments and the opaque
// CollectionPaging result type used by every connection field.
package pagination

import (
	"math"
	"strconv"
	"sync"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"
)

// DefaultLimit is the page size applied when a query omits the limit
// argument and configuration supplies no other default.
const DefaultLimit = 10

// Paging is the metadata rendered for one resolved page. It is produced
// by the resolution engine and read back by the CollectionPaging type's
// field resolvers.
type Paging struct {
	Start     *string
	Limit     int
	Count     int
	NextStart *string
	Total     int
}

// Fields builds and caches the paging argument descriptors and result
// type. Safe for concurrent use; the built types are shared across the
// whole schema.
type Fields struct {
	defaultLimit int

	mu             sync.RWMutex
	nonNegativeInt *graphql.Scalar
	pagingType     *graphql.Object
}

// NewFields creates the pagination collaborator with the given default
// page size. Non-positive defaults fall back to DefaultLimit.
func NewFields(defaultLimit int) *Fields {
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	return &Fields{defaultLimit: defaultLimit}
}

// DefaultLimit reports the configured default page size.
func (f *Fields) DefaultLimit() int {
	return f.defaultLimit
}

// Args returns the start/limit argument descriptors added to every
// connection field.
func (f *Fields) Args() graphql.FieldConfigArgument {
	return graphql.FieldConfigArgument{
		"start": &graphql.ArgumentConfig{
			Type:        graphql.String,
			Description: "Opaque cursor naming the first element of the page.",
		},
		"limit": &graphql.ArgumentConfig{
			Type:         f.NonNegativeInt(),
			DefaultValue: f.defaultLimit,
			Description:  "Maximum number of elements to return.",
		},
	}
}

// Limit extracts the limit argument, falling back to the configured
// default when absent or unusable.
func (f *Fields) Limit(args map[string]interface{}) int {
	if args != nil {
		if value, ok := args["limit"]; ok {
			if parsed, ok := coerceNonNegativeInt(value); ok {
				return parsed
			}
		}
	}
	return f.defaultLimit
}

// Start extracts the start cursor argument, if present.
func Start(args map[string]interface{}) (string, bool) {
	if args == nil {
		return "", false
	}
	value, ok := args["start"]
	if !ok || value == nil {
		return "", false
	}
	s, ok := value.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// PagingType returns the shared CollectionPaging GraphQL type (lazy-init).
func (f *Fields) PagingType() *graphql.Object {
	f.mu.RLock()
	cached := f.pagingType
	f.mu.RUnlock()
	if cached != nil {
		return cached
	}

	pagingType := graphql.NewObject(graphql.ObjectConfig{
		Name: "CollectionPaging",
		Fields: graphql.Fields{
			"start": &graphql.Field{
				Type:    graphql.String,
				Resolve: pagingResolver(func(p Paging) (interface{}, error) { return derefOrNil(p.Start), nil }),
			},
			"limit": &graphql.Field{
				Type:    graphql.NewNonNull(graphql.Int),
				Resolve: pagingResolver(func(p Paging) (interface{}, error) { return p.Limit, nil }),
			},
			"count": &graphql.Field{
				Type:    graphql.NewNonNull(graphql.Int),
				Resolve: pagingResolver(func(p Paging) (interface{}, error) { return p.Count, nil }),
			},
			"nextStart": &graphql.Field{
				Type:    graphql.String,
				Resolve: pagingResolver(func(p Paging) (interface{}, error) { return derefOrNil(p.NextStart), nil }),
			},
			"total": &graphql.Field{
				Type:    graphql.NewNonNull(graphql.Int),
				Resolve: pagingResolver(func(p Paging) (interface{}, error) { return p.Total, nil }),
			},
		},
	})

	f.mu.Lock()
	if f.pagingType == nil {
		f.pagingType = pagingType
	}
	cached = f.pagingType
	f.mu.Unlock()

	return cached
}

// NonNegativeInt returns the shared NonNegativeInt scalar (lazy-init).
func (f *Fields) NonNegativeInt() *graphql.Scalar {
	f.mu.RLock()
	cached := f.nonNegativeInt
	f.mu.RUnlock()
	if cached != nil {
		return cached
	}

	scalar := graphql.NewScalar(graphql.ScalarConfig{
		Name:        "NonNegativeInt",
		Description: "An integer greater than or equal to zero.",
		Serialize: func(value interface{}) interface{} {
			if parsed, ok := coerceNonNegativeInt(value); ok {
				return parsed
			}
			return nil
		},
		ParseValue: func(value interface{}) interface{} {
			if parsed, ok := coerceNonNegativeInt(value); ok {
				return parsed
			}
			return nil
		},
		ParseLiteral: func(valueAST ast.Value) interface{} {
			intValue, ok := valueAST.(*ast.IntValue)
			if !ok {
				return nil
			}
			parsed, err := strconv.Atoi(intValue.Value)
			if err != nil || parsed < 0 {
				return nil
			}
			return parsed
		},
	})

	f.mu.Lock()
	if f.nonNegativeInt == nil {
		f.nonNegativeInt = scalar
	}
	cached = f.nonNegativeInt
	f.mu.Unlock()

	return cached
}

func pagingResolver(fn func(Paging) (interface{}, error)) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		paging, ok := p.Source.(Paging)
		if !ok {
			return nil, nil
		}
		return fn(paging)
	}
}

func derefOrNil(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func coerceNonNegativeInt(value interface{}) (int, bool) {
	switch v := value.(type) {
	case int:
		if v < 0 {
			return 0, false
		}
		return v, true
	case int64:
		if v < 0 || v > math.MaxInt {
			return 0, false
		}
		return int(v), true
	case float64:
		if v < 0 || v > math.MaxInt || v != math.Trunc(v) {
			return 0, false
		}
		return int(v), true
	default:
		return 0, false
	}
}
