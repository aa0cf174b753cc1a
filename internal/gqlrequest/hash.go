package gqlrequest

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"maps"
	"slices"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"
)

// canonicalOperationAndHash formats op together with the fragments it
// reaches, in name order, and hashes the result with the operation name.
// Whitespace and unrelated operations in the document do not affect it.
func canonicalOperationAndHash(op *ast.OperationDefinition, fragments ast.FragmentDefinitionList) (string, string, error) {
	if op == nil {
		return "", "", fmt.Errorf("operation is nil")
	}

	doc := &ast.QueryDocument{Operations: ast.OperationList{op}}
	for _, name := range reachableFragments(op.SelectionSet, fragments) {
		fragment := fragments.ForName(name)
		if fragment == nil {
			return "", "", fmt.Errorf("fragment %q not found", name)
		}
		doc.Fragments = append(doc.Fragments, fragment)
	}

	var buf bytes.Buffer
	formatter.NewFormatter(&buf).FormatQueryDocument(doc)
	canonical := buf.String()
	return canonical, framedSHA256(canonical, effectiveOperationName(op)), nil
}

// reachableFragments lists the fragment names spread anywhere below set,
// following spreads into fragment bodies.
func reachableFragments(set ast.SelectionSet, fragments ast.FragmentDefinitionList) []string {
	seen := map[string]struct{}{}
	var walk func(ast.SelectionSet)
	walk = func(set ast.SelectionSet) {
		for _, selection := range set {
			switch sel := selection.(type) {
			case *ast.Field:
				walk(sel.SelectionSet)
			case *ast.InlineFragment:
				walk(sel.SelectionSet)
			case *ast.FragmentSpread:
				if _, ok := seen[sel.Name]; ok || sel.Name == "" {
					continue
				}
				seen[sel.Name] = struct{}{}
				if fragment := fragments.ForName(sel.Name); fragment != nil {
					walk(fragment.SelectionSet)
				}
			}
		}
	}
	walk(set)
	return slices.Sorted(maps.Keys(seen))
}

// framedSHA256 hashes parts with length prefixes so ("ab", "c") and
// ("a", "bc") differ.
func framedSHA256(parts ...string) string {
	h := sha256.New()
	for _, part := range parts {
		_, _ = fmt.Fprintf(h, "%d:%s|", len(part), part)
	}
	return hex.EncodeToString(h.Sum(nil))
}
