package eager

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Resolver loads one relation for a batch of parents of node type N backed
// by records of type M. *Relation is the implementation.
type Resolver[N, M any] interface {
	FieldName() string
	Resolve(ctx context.Context, parentType string, nodes []N, models []M, trail Trail) error
}

// Type describes a node type: how to build a node from its record, and the
// relations its nodes can eager load, keyed by GraphQL field name.
type Type[N, M any] struct {
	name      string
	newNode   func(M) N
	relations []Resolver[N, M]
	byField   map[string]Resolver[N, M]
}

// NewType declares a node type. newNode must return a fresh node with all
// associations at their zero value.
func NewType[N, M any](name string, newNode func(M) N) *Type[N, M] {
	return &Type[N, M]{
		name:    name,
		newNode: newNode,
		byField: make(map[string]Resolver[N, M]),
	}
}

// Name returns the GraphQL type name.
func (t *Type[N, M]) Name() string { return t.name }

// Register adds relations to the type. Registration happens while wiring a
// schema, before any request runs; a repeated field name panics.
func (t *Type[N, M]) Register(relations ...Resolver[N, M]) *Type[N, M] {
	for _, rel := range relations {
		field := rel.FieldName()
		if field == "" {
			panic(fmt.Sprintf("eager: relation on %s has no field name", t.name))
		}
		if _, exists := t.byField[field]; exists {
			panic(fmt.Sprintf("eager: relation %s.%s registered twice", t.name, field))
		}
		t.byField[field] = rel
		t.relations = append(t.relations, rel)
	}
	return t
}

// Relation looks up a registered relation by field name.
func (t *Type[N, M]) Relation(field string) (Resolver[N, M], bool) {
	rel, ok := t.byField[field]
	return rel, ok
}

// FromModels builds one fresh node per record.
func (t *Type[N, M]) FromModels(models []M) []N {
	nodes := make([]N, len(models))
	for i, model := range models {
		nodes[i] = t.newNode(model)
	}
	return nodes
}

// Load builds nodes from records and eager loads everything the trail selects.
func (t *Type[N, M]) Load(ctx context.Context, models []M, trail Trail) ([]N, error) {
	nodes := t.FromModels(models)
	if err := t.EagerLoadAll(ctx, nodes, models, trail); err != nil {
		return nil, err
	}
	return nodes, nil
}

// EagerLoadOne eager loads the selected relations of a single node.
func (t *Type[N, M]) EagerLoadOne(ctx context.Context, node N, model M, trail Trail) error {
	return t.EagerLoadAll(ctx, []N{node}, []M{model}, trail)
}

type selectedRelation[N, M any] struct {
	resolver Resolver[N, M]
	trail    Trail
}

// EagerLoadAll resolves every registered relation that the trail selects,
// once for the whole batch. nodes[i] must be the node built from models[i].
// Relations absent from the trail are left untouched.
func (t *Type[N, M]) EagerLoadAll(ctx context.Context, nodes []N, models []M, trail Trail) error {
	if len(nodes) != len(models) {
		panic(fmt.Sprintf("eager: %s batch has %d nodes but %d records", t.name, len(nodes), len(models)))
	}
	if len(nodes) == 0 || trail == nil {
		return nil
	}

	selected := make([]selectedRelation[N, M], 0, len(t.relations))
	for _, rel := range t.relations {
		if sub, ok := trail.Walk(rel.FieldName()); ok {
			selected = append(selected, selectedRelation[N, M]{resolver: rel, trail: sub})
		}
	}
	if len(selected) == 0 {
		return nil
	}

	limit := OptionsFromContext(ctx).MaxConcurrency
	if limit < 2 || len(selected) == 1 {
		for _, s := range selected {
			if err := s.resolver.Resolve(ctx, t.name, nodes, models, s.trail); err != nil {
				return err
			}
		}
		return nil
	}

	// Siblings write disjoint association fields of the same nodes.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, s := range selected {
		g.Go(func() error {
			return s.resolver.Resolve(gctx, t.name, nodes, models, s.trail)
		})
	}
	return g.Wait()
}
