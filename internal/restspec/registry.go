package restspec

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goccy/go-json"
)

// Lookup is the read-only schema-metadata interface consumed by the
// field builder. Implemented by Registry.
type Lookup interface {
	Resource(name string) (Resource, bool)
	Schema(resource Resource) (*ElementSchema, bool)
}

// Registry holds all loaded resource descriptors. Immutable after load.
type Registry struct {
	resources map[string]Resource
	order     []string
}

// NewRegistry builds a registry from already-decoded resources.
// Later duplicates of a resource name are rejected.
func NewRegistry(resources []Resource) (*Registry, error) {
	reg := &Registry{resources: make(map[string]Resource, len(resources))}
	for _, res := range resources {
		if err := validateResource(res); err != nil {
			return nil, err
		}
		if _, exists := reg.resources[res.Name]; exists {
			return nil, fmt.Errorf("duplicate resource descriptor %q", res.Name)
		}
		reg.resources[res.Name] = res
		reg.order = append(reg.order, res.Name)
	}
	sort.Strings(reg.order)
	return reg, nil
}

// LoadDir reads every *.json descriptor in dir into a registry.
func LoadDir(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry directory %q: %w", dir, err)
	}

	var resources []Resource
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read resource descriptor %q: %w", path, err)
		}
		var res Resource
		if err := json.Unmarshal(data, &res); err != nil {
			return nil, fmt.Errorf("failed to decode resource descriptor %q: %w", path, err)
		}
		for i := range res.Methods {
			res.Methods[i].Kind = ParseMethodKind(string(res.Methods[i].Kind))
		}
		resources = append(resources, res)
	}

	return NewRegistry(resources)
}

// Resource returns the descriptor registered under name.
func (r *Registry) Resource(name string) (Resource, bool) {
	res, ok := r.resources[name]
	return res, ok
}

// Schema returns the element schema for a resource, if it declares one.
func (r *Registry) Schema(resource Resource) (*ElementSchema, bool) {
	if resource.Schema == nil {
		return nil, false
	}
	return resource.Schema, true
}

// Names returns all registered resource names in sorted order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

func validateResource(res Resource) error {
	if res.Name == "" {
		return fmt.Errorf("resource descriptor missing name")
	}
	if res.Version <= 0 {
		return fmt.Errorf("resource %q has invalid version %d", res.Name, res.Version)
	}
	seen := make(map[string]struct{}, len(res.Methods))
	for _, m := range res.Methods {
		if m.Name == "" {
			return fmt.Errorf("resource %q has a method without a name", res.Name)
		}
		if _, dup := seen[m.Name]; dup {
			return fmt.Errorf("resource %q declares method %q twice", res.Name, m.Name)
		}
		seen[m.Name] = struct{}{}
	}
	if res.Schema != nil {
		hasID := false
		for _, f := range res.Schema.Fields {
			if f.Name == "id" {
				hasID = true
			}
			if f.Relation != nil {
				if _, err := f.Relation.Spec(); err != nil {
					return fmt.Errorf("resource %q field %q: %w", res.Name, f.Name, err)
				}
			}
		}
		if !hasID {
			return fmt.Errorf("resource %q schema %q lacks an id field", res.Name, res.Schema.Name)
		}
	}
	return nil
}
