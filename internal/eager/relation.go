package eager

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"graphql-eager/internal/logging"
	"graphql-eager/internal/observability"
)

// Relation resolves one association field of parent node type N (records M)
// whose children are nodes C built from records CM, optionally paired
// through join records J.
//
// Each child record becomes one node per batch, and that node is installed
// into every parent it pairs with: two users of the same country hold the
// same *Country. Nodes are read-only once loading returns. Through relations
// build one node per join record instead.
//
// Most relations are built with HasOneBy, OptionHasOneBy, HasManyBy or
// HasManyThroughBy. A hand-written Relation needs Load, IsChildOf and
// Association.
type Relation[N, M, C, CM, J any] struct {
	Field string
	Kind  Kind
	Child *Type[C, CM]

	// Load fetches the children of a whole batch of parents in one go.
	Load func(ctx context.Context, parents []M, args Args) (Children[CM, J], error)
	// IsChildOf decides whether child (reached through join) belongs to parent.
	IsChildOf func(parent M, child CM, join J, args Args) bool
	// Association returns the field of the parent node that receives children.
	Association func(N) Association[C]

	// match replaces the IsChildOf scan with an index lookup. It returns,
	// per parent, the indexes of its children in loader order.
	match func(parents []M, children []CM, joins []J) [][]int
	// plan replaces Load for keyed relations. It derives the batch keys once
	// and returns nil when no parent has a key, so nothing is loaded.
	plan func(parents []M) batchLoad[CM, J]
}

// batchLoad fetches the children of a batch whose keys are already known.
type batchLoad[CM, J any] func(ctx context.Context, args Args) (Children[CM, J], error)

func (r *Relation[N, M, C, CM, J]) FieldName() string { return r.Field }

// Resolve loads the relation for the batch: fetch children, eager load their
// own selected relations, pair them with parents, then finalize every
// parent's association. A loader failure aborts the batch.
func (r *Relation[N, M, C, CM, J]) Resolve(ctx context.Context, parentType string, nodes []N, models []M, trail Trail) (err error) {
	if r.Load == nil || r.Association == nil || r.Child == nil || (r.match == nil && r.IsChildOf == nil) {
		panic(fmt.Sprintf("eager: relation %s.%s is not fully wired", parentType, r.Field))
	}

	attrs := observability.RelationAttrs{Type: parentType, Field: r.Field, Kind: r.Kind.String()}
	metrics := observability.GraphQLMetricsFromContext(ctx)
	ctx, span := startRelationSpan(ctx, attrs, len(nodes))

	load := batchLoad[CM, J](func(ctx context.Context, args Args) (Children[CM, J], error) {
		return r.Load(ctx, models, args)
	})
	if r.plan != nil {
		load = r.plan(models)
	}
	if load == nil {
		r.finalize(nodes)
		finishRelationSpan(span, nil, "skipped", 0)
		if metrics != nil {
			metrics.RecordRelationSkipped(ctx, attrs, "no_keys")
		}
		return nil
	}

	start := time.Now()
	childCount := 0
	defer func() {
		finishRelationSpan(span, err, "", childCount)
		if metrics != nil {
			metrics.RecordRelationLoad(ctx, attrs, time.Since(start), len(nodes), childCount, err)
		}
	}()

	args := trail.Args()
	loaded, err := load(ctx, args)
	if err != nil {
		return &LoadError{Type: parentType, Field: r.Field, Err: err}
	}

	childModels, joins := splitChildren[CM, J](loaded)
	children := r.Child.FromModels(childModels)
	childCount = len(children)

	// Grandchildren load once for the whole child batch, before pairing.
	if err := r.Child.EagerLoadAll(ctx, children, childModels, trail); err != nil {
		return err
	}

	var matches [][]int
	if r.match != nil {
		matches = r.match(models, childModels, joins)
	} else {
		matches = r.scan(models, childModels, joins, args)
	}
	for i, node := range nodes {
		assoc := r.Association(node)
		for _, c := range matches[i] {
			assoc.LoadedChild(children[c])
		}
	}
	r.finalize(nodes)

	logging.FromContext(ctx).Debug("eager relation loaded",
		slog.String("relation", parentType+"."+r.Field),
		slog.Int("parents", len(nodes)),
		slog.Int("children", childCount),
	)
	return nil
}

func (r *Relation[N, M, C, CM, J]) finalize(nodes []N) {
	for _, node := range nodes {
		r.Association(node).AssertLoadedOtherwiseFailed()
	}
}

func (r *Relation[N, M, C, CM, J]) scan(parents []M, children []CM, joins []J, args Args) [][]int {
	matches := make([][]int, len(parents))
	var noJoin J
	for i, parent := range parents {
		for c, child := range children {
			join := noJoin
			if joins != nil {
				join = joins[c]
			}
			if r.IsChildOf(parent, child, join, args) {
				matches[i] = append(matches[i], c)
			}
		}
	}
	return matches
}
