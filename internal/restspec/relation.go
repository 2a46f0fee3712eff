package restspec

import "fmt"

// Relation is the sealed sum of relation shapes a field annotation can
// declare. The marker method keeps the set closed to this package so the
// classifier can match variants exhaustively.
type Relation interface {
	relationSpec()
}

// ForwardRelation marks a field whose parent object holds the target
// identifiers directly; it is served by the target's MULTI_GET.
type ForwardRelation struct {
	Target string
}

func (ForwardRelation) relationSpec() {}

// ReverseRelation marks a field whose target objects reference the parent
// implicitly. Args binds method parameters to fixed values; bound argument
// names are pre-supplied and never re-exposed to callers.
type ReverseRelation struct {
	Target string
	Kind   MethodKind
	Args   map[string]string
}

func (ReverseRelation) relationSpec() {}

// RelationAnnotation is the raw descriptor form of a relation, as written
// in resource JSON files.
type RelationAnnotation struct {
	Mode   string            `json:"mode"` // "forward" or "reverse"
	Target string            `json:"target"`
	Kind   string            `json:"kind,omitempty"` // reverse only
	Args   map[string]string `json:"args,omitempty"` // reverse only
	Method string            `json:"method,omitempty"`
}

// Spec decodes the annotation into its Relation variant.
func (a RelationAnnotation) Spec() (Relation, error) {
	if a.Target == "" {
		return nil, fmt.Errorf("relation annotation missing target resource")
	}
	switch a.Mode {
	case "forward":
		return ForwardRelation{Target: a.Target}, nil
	case "reverse":
		return ReverseRelation{
			Target: a.Target,
			Kind:   ParseMethodKind(a.Kind),
			Args:   a.Args,
		}, nil
	default:
		return nil, fmt.Errorf("unknown relation mode %q", a.Mode)
	}
}
