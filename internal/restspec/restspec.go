// Package restspec models declaratively described REST collection resources:
// their versions, server-side methods, element schemas, and the relation
// annotations that link one resource to another.
package restspec

// MethodKind identifies the server-side operation a method implements.
type MethodKind string

const (
	MethodGet                 MethodKind = "GET"
	MethodMultiGet            MethodKind = "MULTI_GET"
	MethodFinder              MethodKind = "FINDER"
	MethodSingleElementFinder MethodKind = "SINGLE_ELEMENT_FINDER"
	MethodUnknown             MethodKind = "UNKNOWN"
)

// ParseMethodKind normalizes a descriptor string into a MethodKind.
// Unrecognized values map to MethodUnknown rather than failing the load;
// classification decides later whether the method is usable.
func ParseMethodKind(raw string) MethodKind {
	switch MethodKind(raw) {
	case MethodGet, MethodMultiGet, MethodFinder, MethodSingleElementFinder:
		return MethodKind(raw)
	default:
		return MethodUnknown
	}
}

// Parameter is one declared parameter of a method.
type Parameter struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Optional bool   `json:"optional,omitempty"`
}

// Method is one named server operation on a resource.
type Method struct {
	Name       string      `json:"name"`
	Kind       MethodKind  `json:"kind"`
	Parameters []Parameter `json:"parameters,omitempty"`
}

// IdentifierListParameter is the reserved parameter name carrying the
// identifier list of a MULTI_GET. It is never exposed as a field argument;
// the resolution engine derives identifiers internally.
const IdentifierListParameter = "ids"

// FinderNameArgument is the reverse-relation annotation argument that names
// the finder method serving the relation.
const FinderNameArgument = "q"

// Resource describes one REST collection resource. Immutable once loaded.
type Resource struct {
	Name    string         `json:"name"`
	Version int            `json:"version"`
	Methods []Method       `json:"methods"`
	Schema  *ElementSchema `json:"schema,omitempty"`
}

// MethodByKind returns the first method of the given kind.
func (r Resource) MethodByKind(kind MethodKind) (Method, bool) {
	for _, m := range r.Methods {
		if m.Kind == kind {
			return m, true
		}
	}
	return Method{}, false
}

// MethodByName returns the method with the given name.
func (r Resource) MethodByName(name string) (Method, bool) {
	for _, m := range r.Methods {
		if m.Name == name {
			return m, true
		}
	}
	return Method{}, false
}

// ElementSchema describes the element type served by a resource.
type ElementSchema struct {
	Name   string         `json:"name"`
	Fields []ElementField `json:"fields"`
}

// ElementField is one field of an element schema. A field carrying a
// relation annotation is rendered as a paged relation field instead of a
// scalar/list field.
type ElementField struct {
	Name     string              `json:"name"`
	Type     string              `json:"type"`
	List     bool                `json:"list,omitempty"`
	Relation *RelationAnnotation `json:"relation,omitempty"`
}
