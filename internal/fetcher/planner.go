package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/graphql-go/graphql/language/ast"

	"rest-graphql/internal/execctx"
	"rest-graphql/internal/naming"
	"rest-graphql/internal/pagination"
	"rest-graphql/internal/relation"
	"rest-graphql/internal/restspec"
)

const (
	defaultBatchSize = 100
	maxPlanDepth     = 16
)

// Planner walks a parsed query document and issues the upstream fetches
// the resolvers will need, producing an immutable snapshot. Running the
// fetch phase up front keeps the resolvers themselves synchronous and
// read-only.
type Planner struct {
	registry  restspec.Lookup
	upstream  Upstream
	logger    *slog.Logger
	batchSize int

	// root query field name -> resource name
	rootFields map[string]string
}

// PlannerOption adjusts planner construction.
type PlannerOption func(*Planner)

// WithBatchSize caps how many identifiers a single batch get carries.
func WithBatchSize(n int) PlannerOption {
	return func(p *Planner) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// NewPlanner creates a planner over the given registry and upstream.
// resourceNames lists every resource the root query exposes.
func NewPlanner(registry restspec.Lookup, resourceNames []string, upstream Upstream, logger *slog.Logger, opts ...PlannerOption) *Planner {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Planner{
		registry:   registry,
		upstream:   upstream,
		logger:     logger,
		batchSize:  defaultBatchSize,
		rootFields: make(map[string]string, len(resourceNames)),
	}
	for _, name := range resourceNames {
		if resource, ok := registry.Resource(name); ok {
			p.rootFields[naming.QueryFieldName(resource)] = name
		}
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Plan executes the fetch phase for a query document and returns the
// populated snapshot. Mutations and subscriptions produce an empty
// snapshot; the schema only exposes queries.
func (p *Planner) Plan(ctx context.Context, doc *ast.Document, variables map[string]interface{}) (*execctx.Snapshot, error) {
	builder := execctx.NewBuilder()
	if doc == nil {
		return builder.Build(), nil
	}

	for _, definition := range doc.Definitions {
		operation, ok := definition.(*ast.OperationDefinition)
		if !ok || operation.Operation != "query" {
			continue
		}
		if operation.SelectionSet == nil {
			continue
		}
		for _, selection := range operation.SelectionSet.Selections {
			field, ok := selection.(*ast.Field)
			if !ok || field.Name == nil {
				continue
			}
			if strings.HasPrefix(field.Name.Value, "__") {
				continue
			}
			if err := p.planRootField(ctx, builder, field, variables); err != nil {
				return nil, err
			}
		}
	}
	return builder.Build(), nil
}

func (p *Planner) planRootField(ctx context.Context, builder *execctx.Builder, field *ast.Field, variables map[string]interface{}) error {
	resourceName, ok := p.rootFields[field.Name.Value]
	if !ok {
		p.logger.Warn("query selects unknown root field", "field", field.Name.Value)
		return nil
	}
	resource, ok := p.registry.Resource(resourceName)
	if !ok {
		return fmt.Errorf("resource %q disappeared from registry", resourceName)
	}

	ids := stringListArgument(field, restspec.IdentifierListParameter, variables)
	ids = shapeWindow(ids, field, variables)

	builder.RecordTopLevel(execctx.TopLevelRequest{
		Resource: resourceName,
		Field:    selectionKey(field),
		IDs:      ids,
	})

	fetched, err := p.fetchBatch(ctx, builder, resource, ids)
	if err != nil {
		return err
	}
	return p.planSelections(ctx, builder, resource, elementSelections(field), fetched, variables, 1)
}

// planSelections descends through the relation fields selected under a
// set of freshly fetched parent objects and fetches their targets.
func (p *Planner) planSelections(ctx context.Context, builder *execctx.Builder, resource restspec.Resource, selections []*ast.Field, parents []map[string]interface{}, variables map[string]interface{}, depth int) error {
	if depth > maxPlanDepth || len(parents) == 0 || len(selections) == 0 {
		return nil
	}
	schema, ok := p.registry.Schema(resource)
	if !ok {
		return nil
	}

	for _, selected := range selections {
		schemaField := schemaFieldNamed(schema, selected.Name.Value)
		if schemaField == nil || schemaField.Relation == nil {
			continue
		}
		rel, err := schemaField.Relation.Spec()
		if err != nil {
			p.logger.Warn("skipping relation with invalid annotation",
				"resource", resource.Name, "field", schemaField.Name, "error", err)
			continue
		}
		if err := p.planRelation(ctx, builder, resource, *schemaField, rel, selected, parents, variables, depth); err != nil {
			return err
		}
	}
	return nil
}

func (p *Planner) planRelation(ctx context.Context, builder *execctx.Builder, resource restspec.Resource, schemaField restspec.ElementField, rel restspec.Relation, selected *ast.Field, parents []map[string]interface{}, variables map[string]interface{}, depth int) error {
	targetName := resource.Name
	switch spec := rel.(type) {
	case restspec.ForwardRelation:
		targetName = spec.Target
	case restspec.ReverseRelation:
		targetName = spec.Target
	}
	target, ok := p.registry.Resource(targetName)
	if !ok {
		p.logger.Warn("relation targets unknown resource",
			"resource", resource.Name, "field", schemaField.Name, "target", targetName)
		return nil
	}

	var override *restspec.Method
	if schemaField.Relation.Method != "" {
		if m, ok := target.MethodByName(schemaField.Relation.Method); ok {
			override = &m
		}
	}
	method, err := relation.Classify(target, schemaField.Name, override, rel)
	if err != nil {
		p.logger.Warn("relation not resolvable", "field", schemaField.Name, "error", err)
		return nil
	}

	var fetched []map[string]interface{}
	switch method.Kind {
	case restspec.MethodFinder:
		fetched, err = p.fetchReverse(ctx, builder, target, method, schemaField, rel, selected, parents)
	default:
		fetched, err = p.fetchForward(ctx, builder, target, schemaField, selected, parents)
	}
	if err != nil {
		return err
	}
	return p.planSelections(ctx, builder, target, elementSelections(selected), fetched, variables, depth+1)
}

// fetchForward gathers the identifier lists held on the parent objects
// and batch-gets the union of those identifiers from the target.
func (p *Planner) fetchForward(ctx context.Context, builder *execctx.Builder, target restspec.Resource, schemaField restspec.ElementField, selected *ast.Field, parents []map[string]interface{}) ([]map[string]interface{}, error) {
	seen := make(map[string]struct{})
	var ids []string
	for _, parent := range parents {
		for _, id := range identifierValues(parent[schemaField.Name]) {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}

	// Alias the raw field value under the selection key so the resolver
	// finds it whether or not the query aliased the field.
	if key := selectionKey(selected); key != schemaField.Name {
		for _, parent := range parents {
			if raw, ok := parent[schemaField.Name]; ok {
				parent[key] = raw
			}
		}
	}

	return p.fetchBatch(ctx, builder, target, ids)
}

// fetchReverse issues one finder call per parent and writes the ordered
// result identifiers onto the parent under the selection key, so the
// resolution engine can treat reverse relations exactly like forward
// ones.
func (p *Planner) fetchReverse(ctx context.Context, builder *execctx.Builder, target restspec.Resource, method restspec.Method, schemaField restspec.ElementField, rel restspec.Relation, selected *ast.Field, parents []map[string]interface{}) ([]map[string]interface{}, error) {
	reverse, ok := rel.(restspec.ReverseRelation)
	if !ok {
		return nil, nil
	}

	key := selectionKey(selected)
	var fetched []map[string]interface{}
	for _, parent := range parents {
		params, err := bindFinderArguments(reverse.Args, parent)
		if err != nil {
			p.logger.Warn("cannot bind finder arguments",
				"target", target.Name, "field", schemaField.Name, "error", err)
			continue
		}
		elements, err := p.upstream.Finder(ctx, target.Name, method.Name, params)
		if err != nil {
			return nil, err
		}

		ids := make([]string, 0, len(elements))
		for _, element := range elements {
			id, ok := element["id"].(string)
			if !ok {
				continue
			}
			ids = append(ids, id)
			builder.PutObject(target.Name, id, element)
			fetched = append(fetched, element)
		}
		parent[key] = ids
		if key != schemaField.Name {
			parent[schemaField.Name] = ids
		}
	}
	return fetched, nil
}

func (p *Planner) fetchBatch(ctx context.Context, builder *execctx.Builder, resource restspec.Resource, ids []string) ([]map[string]interface{}, error) {
	var fetched []map[string]interface{}
	for start := 0; start < len(ids); start += p.batchSize {
		end := start + p.batchSize
		if end > len(ids) {
			end = len(ids)
		}
		results, err := p.upstream.BatchGet(ctx, resource.Name, ids[start:end])
		if err != nil {
			return nil, err
		}
		for id, object := range results {
			builder.PutObject(resource.Name, id, object)
			fetched = append(fetched, object)
		}
	}
	return fetched, nil
}

// bindFinderArguments resolves the static finder argument map against a
// parent object. Values of the form "$field" read that field from the
// parent; anything else passes through literally. The finder selector
// itself is carried by the method name, not the argument map.
func bindFinderArguments(args map[string]string, parent map[string]interface{}) (map[string]string, error) {
	params := make(map[string]string, len(args))
	for name, value := range args {
		if name == restspec.FinderNameArgument {
			continue
		}
		if strings.HasPrefix(value, "$") {
			fieldName := strings.TrimPrefix(value, "$")
			raw, ok := parent[fieldName]
			if !ok {
				return nil, fmt.Errorf("parent object has no field %q", fieldName)
			}
			params[name] = fmt.Sprint(raw)
			continue
		}
		params[name] = value
	}
	return params, nil
}

// shapeWindow applies the start and limit arguments of a top-level
// field to its identifier list before anything is fetched. Nested
// fields are windowed later by the resolvers; top-level windows shrink
// the fetch itself.
func shapeWindow(ids []string, field *ast.Field, variables map[string]interface{}) []string {
	if start, ok := stringArgument(field, "start", variables); ok {
		for i, id := range ids {
			if id == start {
				ids = ids[i:]
				break
			}
		}
	}
	limit := pagination.DefaultLimit
	if n, ok := intArgument(field, "limit", variables); ok && n >= 0 {
		limit = n
	}
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids
}

func schemaFieldNamed(schema *restspec.ElementSchema, name string) *restspec.ElementField {
	for i := range schema.Fields {
		if schema.Fields[i].Name == name {
			return &schema.Fields[i]
		}
	}
	return nil
}

// elementSelections returns the fields selected under a connection
// field's elements member.
func elementSelections(field *ast.Field) []*ast.Field {
	if field.SelectionSet == nil {
		return nil
	}
	for _, selection := range field.SelectionSet.Selections {
		member, ok := selection.(*ast.Field)
		if !ok || member.Name == nil || member.Name.Value != "elements" {
			continue
		}
		if member.SelectionSet == nil {
			return nil
		}
		fields := make([]*ast.Field, 0, len(member.SelectionSet.Selections))
		for _, inner := range member.SelectionSet.Selections {
			if f, ok := inner.(*ast.Field); ok && f.Name != nil {
				fields = append(fields, f)
			}
		}
		return fields
	}
	return nil
}

func selectionKey(field *ast.Field) string {
	if field.Alias != nil && field.Alias.Value != "" {
		return field.Alias.Value
	}
	return field.Name.Value
}

func identifierValues(raw interface{}) []string {
	switch list := raw.(type) {
	case []string:
		return list
	case []interface{}:
		ids := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				ids = append(ids, s)
			} else {
				ids = append(ids, fmt.Sprint(item))
			}
		}
		return ids
	default:
		return nil
	}
}

func argumentValue(field *ast.Field, name string, variables map[string]interface{}) (interface{}, bool) {
	for _, arg := range field.Arguments {
		if arg.Name == nil || arg.Name.Value != name {
			continue
		}
		return resolveValue(arg.Value, variables)
	}
	return nil, false
}

func resolveValue(value ast.Value, variables map[string]interface{}) (interface{}, bool) {
	switch v := value.(type) {
	case *ast.Variable:
		if v.Name == nil {
			return nil, false
		}
		resolved, ok := variables[v.Name.Value]
		return resolved, ok
	case *ast.ListValue:
		items := make([]interface{}, 0, len(v.Values))
		for _, item := range v.Values {
			resolved, ok := resolveValue(item, variables)
			if !ok {
				continue
			}
			items = append(items, resolved)
		}
		return items, true
	default:
		return value.GetValue(), true
	}
}

func stringListArgument(field *ast.Field, name string, variables map[string]interface{}) []string {
	raw, ok := argumentValue(field, name, variables)
	if !ok {
		return nil
	}
	return identifierValues(raw)
}

func stringArgument(field *ast.Field, name string, variables map[string]interface{}) (string, bool) {
	raw, ok := argumentValue(field, name, variables)
	if !ok {
		return "", false
	}
	s, ok := raw.(string)
	return s, ok
}

func intArgument(field *ast.Field, name string, variables map[string]interface{}) (int, bool) {
	raw, ok := argumentValue(field, name, variables)
	if !ok {
		return 0, false
	}
	switch n := raw.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case string:
		var parsed int
		if _, err := fmt.Sscanf(n, "%d", &parsed); err == nil {
			return parsed, true
		}
	}
	return 0, false
}
