package eager

import (
	"context"
	"fmt"
)

// LoadFunc batch-loads child records for a batch of selectors. Selectors are
// keys, parent records or join records depending on the relation. The
// function is called once per relation per tree level; it must not assume
// any ordering of selectors and may return children in any order.
type LoadFunc[S, C any] func(ctx context.Context, selectors []S, args Args) ([]C, error)

// Trail describes the part of a request below one field: which relation
// fields were selected and with which arguments.
type Trail interface {
	// Walk returns the sub-trail of a selected field.
	Walk(field string) (Trail, bool)
	// Args returns the arguments of the field this trail describes.
	Args() Args
}

// NoJoin is the join type of relations that pair children directly.
type NoJoin struct{}

// Joined is a child record together with the join record that links it to
// its parent.
type Joined[CM, J any] struct {
	Child CM
	Join  J
}

// Children is what a relation's loader produces: either ChildrenOnly or
// ChildrenWithJoin.
type Children[CM, J any] interface {
	Len() int
	children()
}

// ChildrenOnly carries child records that pair with parents on their own.
type ChildrenOnly[CM, J any] struct {
	Models []CM
}

func (c ChildrenOnly[CM, J]) Len() int { return len(c.Models) }
func (ChildrenOnly[CM, J]) children()  {}

// ChildrenWithJoin carries child records paired with the join record that
// produced them. The same child may appear once per join record.
type ChildrenWithJoin[CM, J any] struct {
	Pairs []Joined[CM, J]
}

func (c ChildrenWithJoin[CM, J]) Len() int { return len(c.Pairs) }
func (ChildrenWithJoin[CM, J]) children()  {}

// ByParents adapts a loader that selects children by parent records.
func ByParents[M, CM any](load LoadFunc[M, CM]) func(context.Context, []M, Args) (Children[CM, NoJoin], error) {
	return func(ctx context.Context, parents []M, args Args) (Children[CM, NoJoin], error) {
		models, err := load(ctx, parents, args)
		if err != nil {
			return nil, err
		}
		return ChildrenOnly[CM, NoJoin]{Models: models}, nil
	}
}

func splitChildren[CM, J any](out Children[CM, J]) ([]CM, []J) {
	switch v := out.(type) {
	case nil:
		return nil, nil
	case ChildrenOnly[CM, J]:
		return v.Models, nil
	case ChildrenWithJoin[CM, J]:
		models := make([]CM, len(v.Pairs))
		joins := make([]J, len(v.Pairs))
		for i, pair := range v.Pairs {
			models[i] = pair.Child
			joins[i] = pair.Join
		}
		return models, joins
	default:
		panic(fmt.Sprintf("eager: unsupported children value %T", out))
	}
}
