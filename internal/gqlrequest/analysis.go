package gqlrequest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"graphql-eager/internal/trail"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

const anonymousOperationName = "<anonymous>"

// Analysis stores parsed and derived GraphQL request metadata.
type Analysis struct {
	Envelope               Envelope
	RequestedOperationName string

	Document  *ast.QueryDocument
	Operation *ast.OperationDefinition
	Variables map[string]any

	OperationName string
	OperationType string

	FieldCount     int
	SelectionDepth int
	VariableCount  int

	// Trail is the selection tree of the chosen operation, rooted above its
	// top-level fields.
	Trail *trail.Node

	CanonicalOperation string
	OperationHash      string

	DecodeError     error
	ParseError      error
	SelectionError  error
	TrailError      error
	CanonicalizeErr error
}

// AnalyzeRequest decodes and analyzes a GraphQL request payload.
func AnalyzeRequest(r *http.Request) *Analysis {
	envelope, err := DecodeEnvelope(r)
	analysis := AnalyzeEnvelope(envelope)
	if err != nil {
		analysis.DecodeError = err
	}
	return analysis
}

// AnalyzeEnvelope parses and analyzes a normalized request envelope.
func AnalyzeEnvelope(env Envelope) *Analysis {
	analysis := &Analysis{
		Envelope:               env,
		RequestedOperationName: env.OperationName,
	}

	if len(env.VariablesRaw) > 0 {
		if err := json.Unmarshal(env.VariablesRaw, &analysis.Variables); err != nil {
			analysis.DecodeError = fmt.Errorf("variables: %w", err)
		}
	}

	if strings.TrimSpace(env.Query) == "" {
		return analysis
	}

	doc, err := parser.ParseQuery(&ast.Source{Name: "graphql", Input: env.Query})
	if err != nil {
		analysis.ParseError = err
		return analysis
	}
	analysis.Document = doc

	op, err := selectOperation(doc, env.OperationName)
	if err != nil {
		analysis.SelectionError = err
		return analysis
	}

	analysis.Operation = op
	analysis.OperationName = effectiveOperationName(op)
	analysis.OperationType = string(op.Operation)
	analysis.VariableCount = len(op.VariableDefinitions)

	fields, depth := countFieldsAndDepth(op.SelectionSet, doc.Fragments)
	analysis.FieldCount = fields
	analysis.SelectionDepth = depth

	analysis.Trail, analysis.TrailError = trail.FromSelectionSet(op.SelectionSet, doc.Fragments, operationVariables(op, analysis.Variables))

	canonical, hash, err := canonicalOperationAndHash(op, doc.Fragments)
	if err != nil {
		analysis.CanonicalizeErr = err
		return analysis
	}
	analysis.CanonicalOperation = canonical
	analysis.OperationHash = hash

	return analysis
}

func selectOperation(doc *ast.QueryDocument, operationName string) (*ast.OperationDefinition, error) {
	if operationName != "" {
		if op := doc.Operations.ForName(operationName); op != nil {
			return op, nil
		}
		return nil, fmt.Errorf("unknown operation named %q", operationName)
	}
	switch len(doc.Operations) {
	case 1:
		return doc.Operations[0], nil
	case 0:
		return nil, fmt.Errorf("request does not include an operation")
	default:
		return nil, fmt.Errorf("operationName is required when request has multiple operations")
	}
}

// operationVariables layers request variables over the operation's declared
// defaults.
func operationVariables(op *ast.OperationDefinition, vars map[string]any) map[string]any {
	merged := make(map[string]any, len(vars)+len(op.VariableDefinitions))
	for _, def := range op.VariableDefinitions {
		if def.DefaultValue == nil {
			continue
		}
		if value, err := def.DefaultValue.Value(nil); err == nil {
			merged[def.Variable] = value
		}
	}
	for k, v := range vars {
		merged[k] = v
	}
	return merged
}

// selectionMeter measures selection sets. Fragment sizes are memoized and
// added at every spread site, so a fragment reused deeper in the document
// counts at that depth too. A spread of a fragment that is already being
// measured contributes nothing.
type selectionMeter struct {
	fragments ast.FragmentDefinitionList
	memo      map[string]selectionSize
	inFlight  map[string]bool
}

type selectionSize struct {
	fields int
	// height is the number of nested field levels, 0 for an empty set.
	height int
}

func countFieldsAndDepth(set ast.SelectionSet, fragments ast.FragmentDefinitionList) (fields, depth int) {
	m := selectionMeter{fragments: fragments, memo: map[string]selectionSize{}, inFlight: map[string]bool{}}
	size := m.measure(set)
	return size.fields, size.height
}

func (m selectionMeter) measure(set ast.SelectionSet) selectionSize {
	var total selectionSize
	add := func(s selectionSize) {
		total.fields += s.fields
		total.height = max(total.height, s.height)
	}
	for _, selection := range set {
		switch sel := selection.(type) {
		case *ast.Field:
			nested := m.measure(sel.SelectionSet)
			add(selectionSize{fields: nested.fields + 1, height: nested.height + 1})
		case *ast.InlineFragment:
			add(m.measure(sel.SelectionSet))
		case *ast.FragmentSpread:
			add(m.spread(sel.Name))
		}
	}
	return total
}

func (m selectionMeter) spread(name string) selectionSize {
	if size, ok := m.memo[name]; ok {
		return size
	}
	if name == "" || m.inFlight[name] {
		return selectionSize{}
	}
	fragment := m.fragments.ForName(name)
	if fragment == nil {
		return selectionSize{}
	}
	m.inFlight[name] = true
	size := m.measure(fragment.SelectionSet)
	delete(m.inFlight, name)
	m.memo[name] = size
	return size
}

func effectiveOperationName(op *ast.OperationDefinition) string {
	if op == nil || op.Name == "" {
		return anonymousOperationName
	}
	return op.Name
}
