package trail

import (
	"strconv"

	"graphql-eager/internal/eager"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"
)

// FromResolveInfo builds the trail below the field graphql-go is resolving.
// Every AST of the field is merged, named and inline fragments are followed,
// and @skip/@include are honored. The error is a *ConflictError when a field
// is selected twice with different arguments.
func FromResolveInfo(info graphql.ResolveInfo) (*Node, error) {
	return ForType(info, "")
}

// ForType is FromResolveInfo for a field of abstract type whose records of
// the concrete type typeName are being loaded. Fragments conditioned on a
// different object type are left out; interface and union conditions are
// kept.
func ForType(info graphql.ResolveInfo, typeName string) (*Node, error) {
	c := astCollector{fragments: info.Fragments, vars: info.VariableValues, schema: info.Schema, typeName: typeName}
	root := New()
	for _, field := range info.FieldASTs {
		if field == nil {
			continue
		}
		if root.args == nil {
			root.args = c.arguments(field.Arguments)
		}
		if field.SelectionSet != nil {
			c.collect(root, field.SelectionSet.Selections, map[string]bool{})
		}
	}
	if err := root.Err(); err != nil {
		return root, err
	}
	return root, nil
}

type astCollector struct {
	fragments map[string]ast.Definition
	vars      map[string]interface{}
	schema    graphql.Schema
	typeName  string
}

func (c astCollector) collect(into *Node, selections []ast.Selection, inFlight map[string]bool) {
	for _, selection := range selections {
		switch sel := selection.(type) {
		case *ast.Field:
			if sel.Name == nil || c.skipped(sel.Directives) {
				continue
			}
			child := into.child(sel.Name.Value, c.arguments(sel.Arguments))
			if sel.SelectionSet != nil {
				c.collect(child, sel.SelectionSet.Selections, inFlight)
			}
		case *ast.InlineFragment:
			if sel.SelectionSet == nil || c.skipped(sel.Directives) || !c.applies(sel.TypeCondition) {
				continue
			}
			c.collect(into, sel.SelectionSet.Selections, inFlight)
		case *ast.FragmentSpread:
			if sel.Name == nil || inFlight[sel.Name.Value] || c.skipped(sel.Directives) {
				continue
			}
			fragment, ok := c.fragments[sel.Name.Value].(*ast.FragmentDefinition)
			if !ok || fragment.SelectionSet == nil || !c.applies(fragment.TypeCondition) {
				continue
			}
			inFlight[sel.Name.Value] = true
			c.collect(into, fragment.SelectionSet.Selections, inFlight)
			delete(inFlight, sel.Name.Value)
		}
	}
}

// applies reports whether a fragment with the given type condition selects
// fields of the concrete type being loaded.
func (c astCollector) applies(cond *ast.Named) bool {
	if c.typeName == "" || cond == nil || cond.Name == nil || cond.Name.Value == c.typeName {
		return true
	}
	_, isObject := c.schema.Type(cond.Name.Value).(*graphql.Object)
	return !isObject
}

func (c astCollector) arguments(args []*ast.Argument) eager.Args {
	if len(args) == 0 {
		return nil
	}
	out := make(eager.Args, len(args))
	for _, arg := range args {
		if arg == nil || arg.Name == nil {
			continue
		}
		out[arg.Name.Value] = c.value(arg.Value)
	}
	return out
}

func (c astCollector) skipped(directives []*ast.Directive) bool {
	for _, d := range directives {
		if d == nil || d.Name == nil {
			continue
		}
		cond, _ := c.arguments(d.Arguments)["if"].(bool)
		switch d.Name.Value {
		case "skip":
			if cond {
				return true
			}
		case "include":
			if !cond {
				return true
			}
		}
	}
	return false
}

func (c astCollector) value(v ast.Value) any {
	switch v := v.(type) {
	case *ast.Variable:
		if v.Name == nil {
			return nil
		}
		return c.vars[v.Name.Value]
	case *ast.IntValue:
		if i, err := strconv.Atoi(v.Value); err == nil {
			return i
		}
		return v.Value
	case *ast.FloatValue:
		if f, err := strconv.ParseFloat(v.Value, 64); err == nil {
			return f
		}
		return v.Value
	case *ast.StringValue:
		return v.Value
	case *ast.BooleanValue:
		return v.Value
	case *ast.EnumValue:
		return v.Value
	case *ast.ListValue:
		out := make([]any, len(v.Values))
		for i, item := range v.Values {
			out[i] = c.value(item)
		}
		return out
	case *ast.ObjectValue:
		out := make(map[string]any, len(v.Fields))
		for _, field := range v.Fields {
			if field == nil || field.Name == nil {
				continue
			}
			out[field.Name.Value] = c.value(field.Value)
		}
		return out
	default:
		return nil
	}
}
