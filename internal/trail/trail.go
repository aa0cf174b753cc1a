// Package trail builds eager.Trail values: by hand, from dotted paths, or
// from the selection sets of graphql-go and gqlparser documents.
package trail

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"graphql-eager/internal/eager"
)

// Node is one field of a trail with its arguments and selected sub-fields.
// A Node is built once and only read afterwards, so it can be shared by
// concurrently resolving relations.
type Node struct {
	args     eager.Args
	fields   map[string]*Node
	conflict *ConflictError
}

// ConflictError reports a field selected more than once under the same
// parent with different arguments, usually through aliases. Every selection
// of a field shares one loaded association, so such a document cannot be
// answered from a single trail.
type ConflictError struct {
	Path   string
	First  eager.Args
	Second eager.Args
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("field %s is selected with different arguments (%v and %v)", e.Path, e.First, e.Second)
}

var _ eager.Trail = (*Node)(nil)

// New returns an empty trail.
func New() *Node {
	return &Node{}
}

// With selects field with the given sub-trail (nil selects a leaf) and
// returns n for chaining.
func (n *Node) With(field string, sub *Node) *Node {
	if sub == nil {
		sub = New()
	}
	if n.fields == nil {
		n.fields = make(map[string]*Node)
	}
	n.fields[field] = sub
	return n
}

// WithArgs sets the arguments of the field n describes and returns n.
func (n *Node) WithArgs(args eager.Args) *Node {
	n.args = args
	return n
}

// Walk implements eager.Trail.
func (n *Node) Walk(field string) (eager.Trail, bool) {
	if n == nil {
		return nil, false
	}
	sub, ok := n.fields[field]
	if !ok {
		return nil, false
	}
	return sub, true
}

// Args implements eager.Trail.
func (n *Node) Args() eager.Args {
	if n == nil {
		return nil
	}
	return n.args
}

// Field returns the sub-trail of field, or nil when it was not selected.
func (n *Node) Field(field string) *Node {
	if n == nil {
		return nil
	}
	return n.fields[field]
}

// Fields lists the selected field names in sorted order.
func (n *Node) Fields() []string {
	if n == nil {
		return nil
	}
	names := make([]string, 0, len(n.fields))
	for name := range n.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// child returns the sub-trail of field, creating it with args when missing.
// Selecting an existing field again with other arguments marks a conflict
// that Err reports.
func (n *Node) child(field string, args eager.Args) *Node {
	sub, ok := n.fields[field]
	if !ok {
		sub = &Node{args: args}
		n.With(field, sub)
		return sub
	}
	if sub.conflict == nil && !sameArgs(sub.args, args) {
		sub.conflict = &ConflictError{First: sub.args, Second: args}
	}
	return sub
}

func sameArgs(a, b eager.Args) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}

// Err returns a *ConflictError for the first field, in sorted path order,
// that was selected with differing arguments.
func (n *Node) Err() error {
	if conflict := n.firstConflict(""); conflict != nil {
		return conflict
	}
	return nil
}

func (n *Node) firstConflict(prefix string) *ConflictError {
	for _, name := range n.Fields() {
		sub := n.fields[name]
		path := name
		if prefix != "" {
			path = prefix + "." + name
		}
		if sub.conflict != nil {
			conflict := *sub.conflict
			conflict.Path = path
			return &conflict
		}
		if conflict := sub.firstConflict(path); conflict != nil {
			return conflict
		}
	}
	return nil
}

// Parse builds a trail from dotted paths: Parse("country", "companies.country")
// selects country, companies and companies.country.
func Parse(paths ...string) *Node {
	root := New()
	for _, path := range paths {
		node := root
		for _, field := range strings.Split(path, ".") {
			field = strings.TrimSpace(field)
			if field == "" {
				continue
			}
			node = node.child(field, nil)
		}
	}
	return root
}

// String renders the trail as a compact selection set, fields sorted.
func (n *Node) String() string {
	var b strings.Builder
	n.write(&b)
	return b.String()
}

func (n *Node) write(b *strings.Builder) {
	for i, name := range n.Fields() {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(name)
		sub := n.fields[name]
		if len(sub.args) > 0 {
			keys := make([]string, 0, len(sub.args))
			for k := range sub.args {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			b.WriteByte('(')
			for j, k := range keys {
				if j > 0 {
					b.WriteString(", ")
				}
				fmt.Fprintf(b, "%s: %v", k, sub.args[k])
			}
			b.WriteByte(')')
		}
		if len(sub.fields) > 0 {
			b.WriteString(" { ")
			sub.write(b)
			b.WriteString(" }")
		}
	}
}
