package trail

import (
	"fmt"

	"graphql-eager/internal/eager"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

// FromQuery parses a GraphQL document and builds the trail of one of its
// operations. The returned trail starts at the operation's root fields, so
// callers Walk the root field they resolve first. Variable defaults declared
// by the operation apply when vars lacks a value.
func FromQuery(query, operationName string, vars map[string]any) (*Node, error) {
	doc, err := parser.ParseQuery(&ast.Source{Name: "query", Input: query})
	if err != nil {
		return nil, fmt.Errorf("parse query: %w", err)
	}

	var op *ast.OperationDefinition
	switch {
	case operationName != "":
		op = doc.Operations.ForName(operationName)
		if op == nil {
			return nil, fmt.Errorf("unknown operation named %q", operationName)
		}
	case len(doc.Operations) == 1:
		op = doc.Operations[0]
	case len(doc.Operations) == 0:
		return nil, fmt.Errorf("document does not include an operation")
	default:
		return nil, fmt.Errorf("operationName is required when document has multiple operations")
	}

	merged := make(map[string]any, len(vars)+len(op.VariableDefinitions))
	for _, def := range op.VariableDefinitions {
		if def.DefaultValue == nil {
			continue
		}
		value, err := def.DefaultValue.Value(nil)
		if err != nil {
			return nil, fmt.Errorf("default of $%s: %w", def.Variable, err)
		}
		merged[def.Variable] = value
	}
	for k, v := range vars {
		merged[k] = v
	}

	return FromSelectionSet(op.SelectionSet, doc.Fragments, merged)
}

// FromSelectionSet builds a trail from a gqlparser selection set. Fragment
// spreads resolve through their Definition when the document was validated,
// otherwise through fragments. A *ConflictError is returned along with the
// trail when a field is selected twice with different arguments.
func FromSelectionSet(set ast.SelectionSet, fragments ast.FragmentDefinitionList, vars map[string]any) (*Node, error) {
	c := documentCollector{fragments: fragments, vars: vars}
	root := New()
	if err := c.collect(root, set, map[string]bool{}); err != nil {
		return nil, err
	}
	if err := root.Err(); err != nil {
		return root, err
	}
	return root, nil
}

type documentCollector struct {
	fragments ast.FragmentDefinitionList
	vars      map[string]any
}

func (c documentCollector) collect(into *Node, set ast.SelectionSet, inFlight map[string]bool) error {
	for _, selection := range set {
		switch sel := selection.(type) {
		case *ast.Field:
			skip, err := c.skipped(sel.Directives)
			if err != nil {
				return err
			}
			if skip {
				continue
			}
			args, err := c.arguments(sel.Arguments)
			if err != nil {
				return fmt.Errorf("arguments of %s: %w", sel.Name, err)
			}
			child := into.child(sel.Name, args)
			if err := c.collect(child, sel.SelectionSet, inFlight); err != nil {
				return err
			}
		case *ast.InlineFragment:
			skip, err := c.skipped(sel.Directives)
			if err != nil {
				return err
			}
			if skip {
				continue
			}
			if err := c.collect(into, sel.SelectionSet, inFlight); err != nil {
				return err
			}
		case *ast.FragmentSpread:
			skip, err := c.skipped(sel.Directives)
			if err != nil {
				return err
			}
			if skip || inFlight[sel.Name] {
				continue
			}
			def := sel.Definition
			if def == nil {
				def = c.fragments.ForName(sel.Name)
			}
			if def == nil {
				return fmt.Errorf("unknown fragment %q", sel.Name)
			}
			inFlight[sel.Name] = true
			err = c.collect(into, def.SelectionSet, inFlight)
			delete(inFlight, sel.Name)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (c documentCollector) arguments(list ast.ArgumentList) (eager.Args, error) {
	if len(list) == 0 {
		return nil, nil
	}
	out := make(eager.Args, len(list))
	for _, arg := range list {
		value, err := arg.Value.Value(c.vars)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", arg.Name, err)
		}
		out[arg.Name] = value
	}
	return out, nil
}

func (c documentCollector) skipped(directives ast.DirectiveList) (bool, error) {
	for _, name := range []string{"skip", "include"} {
		d := directives.ForName(name)
		if d == nil {
			continue
		}
		args, err := c.arguments(d.Arguments)
		if err != nil {
			return false, err
		}
		cond, _ := args["if"].(bool)
		if cond == (name == "skip") {
			return true, nil
		}
	}
	return false, nil
}
