package gqlrequest

import (
	"fmt"
	"strconv"

	"github.com/graphql-go/graphql/language/ast"
	"github.com/graphql-go/graphql/language/parser"
	"github.com/graphql-go/graphql/language/source"

	"rest-graphql/internal/resolver"
)

// Limits bounds what a single request may cost. Zero values disable the
// corresponding check.
type Limits struct {
	MaxDepth int
	MaxCost  float64
}

// Analysis is the pre-execution view of one request: the parsed document
// plus its estimated shape cost.
type Analysis struct {
	Document      *ast.Document
	OperationName string
	OperationType string
	Depth         int
	Cost          float64
}

// Analyze parses the query and estimates depth and complexity cost over
// its selection tree. Paged relation fields amplify their child cost via
// the builder's cost model; connection scaffolding (elements, paging)
// does not inflate depth. Limit arguments bound to a request variable
// resolve against variables so the estimate tracks the real page size.
func Analyze(query string, variables map[string]interface{}, defaultLimit int) (*Analysis, error) {
	doc, err := parser.Parse(parser.ParseParams{
		Source: source.NewSource(&source.Source{Body: []byte(query), Name: "GraphQL request"}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse query: %w", err)
	}

	analysis := &Analysis{Document: doc}

	for _, def := range doc.Definitions {
		op, ok := def.(*ast.OperationDefinition)
		if !ok {
			continue
		}
		analysis.OperationType = op.Operation
		if op.Name != nil {
			analysis.OperationName = op.Name.Value
		}
		if op.SelectionSet == nil {
			continue
		}
		for _, sel := range op.SelectionSet.Selections {
			field, ok := sel.(*ast.Field)
			if !ok {
				continue
			}
			if depth := selectionDepth(field, 1); depth > analysis.Depth {
				analysis.Depth = depth
			}
			analysis.Cost += fieldCost(field, variables, defaultLimit)
		}
	}

	return analysis, nil
}

// Validate checks the analysis against limits.
func (a *Analysis) Validate(limits Limits) error {
	if limits.MaxDepth > 0 && a.Depth > limits.MaxDepth {
		return fmt.Errorf("query exceeds maximum depth of %d (depth: %d)", limits.MaxDepth, a.Depth)
	}
	if limits.MaxCost > 0 && a.Cost > limits.MaxCost {
		return fmt.Errorf("query exceeds maximum cost of %g (estimated: %g)", limits.MaxCost, a.Cost)
	}
	return nil
}

// isPagedField reports whether a field is resolved as a paged connection:
// it either carries pagination arguments or selects connection members.
func isPagedField(field *ast.Field) bool {
	if hasArgNamed(field, "limit") || hasArgNamed(field, "start") {
		return true
	}
	if field.SelectionSet == nil {
		return false
	}
	for _, sel := range field.SelectionSet.Selections {
		sub, ok := sel.(*ast.Field)
		if !ok || sub.Name == nil {
			continue
		}
		if sub.Name.Value == "elements" || sub.Name.Value == "paging" {
			return true
		}
	}
	return false
}

// connectionDataSelections unwraps connection scaffolding: element
// selections are the real data fields; paging has no fetch cost.
func connectionDataSelections(field *ast.Field) []ast.Selection {
	if field.SelectionSet == nil {
		return nil
	}
	var result []ast.Selection
	for _, sel := range field.SelectionSet.Selections {
		sub, ok := sel.(*ast.Field)
		if !ok || sub.Name == nil {
			continue
		}
		if sub.Name.Value == "elements" && sub.SelectionSet != nil {
			result = append(result, sub.SelectionSet.Selections...)
		}
	}
	return result
}

func selectionDepth(field *ast.Field, current int) int {
	selections := childSelections(field)
	if len(selections) == 0 {
		return current
	}
	maxDepth := current
	for _, sel := range selections {
		sub, ok := sel.(*ast.Field)
		if !ok {
			continue
		}
		if depth := selectionDepth(sub, current+1); depth > maxDepth {
			maxDepth = depth
		}
	}
	return maxDepth
}

func fieldCost(field *ast.Field, variables map[string]interface{}, defaultLimit int) float64 {
	selections := childSelections(field)

	childCost := 0.0
	for _, sel := range selections {
		sub, ok := sel.(*ast.Field)
		if !ok {
			continue
		}
		childCost += fieldCost(sub, variables, defaultLimit)
	}

	if !isPagedField(field) {
		return 1.0 + childCost
	}
	if childCost == 0 {
		childCost = 1.0
	}
	return resolver.PagedRelationCost(limitFromAST(field, variables, defaultLimit), childCost)
}

func childSelections(field *ast.Field) []ast.Selection {
	if field.SelectionSet == nil {
		return nil
	}
	if isPagedField(field) {
		return connectionDataSelections(field)
	}
	return field.SelectionSet.Selections
}

func limitFromAST(field *ast.Field, variables map[string]interface{}, fallback int) int {
	for _, arg := range field.Arguments {
		if arg == nil || arg.Name == nil || arg.Value == nil || arg.Name.Value != "limit" {
			continue
		}
		switch value := arg.Value.(type) {
		case *ast.IntValue:
			if parsed, err := strconv.Atoi(value.Value); err == nil && parsed >= 0 {
				return parsed
			}
		case *ast.Variable:
			if value.Name == nil {
				continue
			}
			if parsed, ok := limitFromVariable(variables[value.Name.Value]); ok {
				return parsed
			}
		}
	}
	return fallback
}

// limitFromVariable coerces a decoded variable value into a page limit.
// JSON numbers arrive as float64; string forms are accepted for parity
// with the upstream query parameters.
func limitFromVariable(raw interface{}) (int, bool) {
	switch value := raw.(type) {
	case int:
		if value >= 0 {
			return value, true
		}
	case int64:
		if value >= 0 {
			return int(value), true
		}
	case float64:
		if value >= 0 {
			return int(value), true
		}
	case string:
		if parsed, err := strconv.Atoi(value); err == nil && parsed >= 0 {
			return parsed, true
		}
	}
	return 0, false
}

func hasArgNamed(field *ast.Field, name string) bool {
	if field == nil {
		return false
	}
	for _, arg := range field.Arguments {
		if arg != nil && arg.Name != nil && arg.Name.Value == name {
			return true
		}
	}
	return false
}
