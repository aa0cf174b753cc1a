package eager

import "context"

// KeyedRelation describes a relation whose children pair with parents by
// equal keys: ParentKey(parent) == ChildKey(child). Load receives the
// distinct parent keys.
//
// For a belongs-to edge (user.country) ParentKey is the foreign key and
// ChildKey the child's id; for a has-many edge (country.users) it is the
// other way round.
type KeyedRelation[M, C, CM any, K comparable] struct {
	Field     string
	Child     *Type[C, CM]
	ParentKey KeyFunc[M, K]
	ChildKey  KeyFunc[CM, K]
	Load      LoadFunc[K, CM]
}

// HasOneBy builds a required single-child relation.
func HasOneBy[N, M, C, CM any, K comparable](keyed KeyedRelation[M, C, CM, K], assoc func(N) *HasOne[C]) *Relation[N, M, C, CM, NoJoin] {
	return keyedRelation(keyed, KindHasOne, func(n N) Association[C] { return assoc(n) })
}

// OptionHasOneBy builds an optional single-child relation.
func OptionHasOneBy[N, M, C, CM any, K comparable](keyed KeyedRelation[M, C, CM, K], assoc func(N) *OptionHasOne[C]) *Relation[N, M, C, CM, NoJoin] {
	return keyedRelation(keyed, KindOptionHasOne, func(n N) Association[C] { return assoc(n) })
}

// HasManyBy builds a collection relation.
func HasManyBy[N, M, C, CM any, K comparable](keyed KeyedRelation[M, C, CM, K], assoc func(N) *HasMany[C]) *Relation[N, M, C, CM, NoJoin] {
	return keyedRelation(keyed, KindHasMany, func(n N) Association[C] { return assoc(n) })
}

func keyedRelation[N, M, C, CM any, K comparable](keyed KeyedRelation[M, C, CM, K], kind Kind, assoc func(N) Association[C]) *Relation[N, M, C, CM, NoJoin] {
	plan := func(parents []M) batchLoad[CM, NoJoin] {
		keys := collectKeys(parents, keyed.ParentKey)
		if len(keys) == 0 {
			return nil
		}
		return func(ctx context.Context, args Args) (Children[CM, NoJoin], error) {
			models, err := keyed.Load(ctx, keys, args)
			if err != nil {
				return nil, err
			}
			return ChildrenOnly[CM, NoJoin]{Models: models}, nil
		}
	}
	return &Relation[N, M, C, CM, NoJoin]{
		Field:       keyed.Field,
		Kind:        kind,
		Child:       keyed.Child,
		Association: assoc,
		Load:        planned(plan),
		IsChildOf: func(parent M, child CM, _ NoJoin, _ Args) bool {
			pk, ok := keyed.ParentKey(parent)
			if !ok {
				return false
			}
			ck, ok := keyed.ChildKey(child)
			return ok && pk == ck
		},
		match: func(parents []M, children []CM, _ []NoJoin) [][]int {
			byKey := indexBy(children, keyed.ChildKey)
			matches := make([][]int, len(parents))
			for i, parent := range parents {
				if k, ok := keyed.ParentKey(parent); ok {
					matches[i] = byKey[k]
				}
			}
			return matches
		},
		plan: plan,
	}
}

// planned adapts a plan to Relation.Load. Parents without keys load no
// children.
func planned[M, CM, J any](plan func([]M) batchLoad[CM, J]) func(context.Context, []M, Args) (Children[CM, J], error) {
	return func(ctx context.Context, parents []M, args Args) (Children[CM, J], error) {
		load := plan(parents)
		if load == nil {
			return ChildrenOnly[CM, J]{}, nil
		}
		return load(ctx, args)
	}
}

// ThroughRelation describes a many-to-many relation: parents link to join
// records by K, join records link to children by JK.
//
//	ParentKey(parent) == JoinParentKey(join)
//	JoinChildKey(join) == ChildKey(child)
//
// LoadJoins receives the distinct parent keys, LoadChildren the distinct
// child keys found on the joins. Both receive the field arguments.
type ThroughRelation[M, C, CM, J any, K, JK comparable] struct {
	Field         string
	Child         *Type[C, CM]
	ParentKey     KeyFunc[M, K]
	LoadJoins     LoadFunc[K, J]
	JoinParentKey KeyFunc[J, K]
	JoinChildKey  KeyFunc[J, JK]
	ChildKey      KeyFunc[CM, JK]
	LoadChildren  LoadFunc[JK, CM]
}

// HasManyThroughBy builds a relation that pairs children through join records.
// A child linked by several joins is materialized once per join.
func HasManyThroughBy[N, M, C, CM, J any, K, JK comparable](keyed ThroughRelation[M, C, CM, J, K, JK], assoc func(N) *HasManyThrough[C]) *Relation[N, M, C, CM, J] {
	plan := func(parents []M) batchLoad[CM, J] {
		parentKeys := collectKeys(parents, keyed.ParentKey)
		if len(parentKeys) == 0 {
			return nil
		}
		return func(ctx context.Context, args Args) (Children[CM, J], error) {
			joins, err := keyed.LoadJoins(ctx, parentKeys, args)
			if err != nil {
				return nil, err
			}
			childKeys := collectKeys(joins, keyed.JoinChildKey)
			if len(childKeys) == 0 {
				return ChildrenWithJoin[CM, J]{}, nil
			}
			models, err := keyed.LoadChildren(ctx, childKeys, args)
			if err != nil {
				return nil, err
			}

			// Pairs follow the child loader's order so per-parent ordering
			// reflects it.
			joinsByChild := indexBy(joins, keyed.JoinChildKey)
			pairs := make([]Joined[CM, J], 0, len(joins))
			for _, model := range models {
				ck, ok := keyed.ChildKey(model)
				if !ok {
					continue
				}
				for _, j := range joinsByChild[ck] {
					pairs = append(pairs, Joined[CM, J]{Child: model, Join: joins[j]})
				}
			}
			return ChildrenWithJoin[CM, J]{Pairs: pairs}, nil
		}
	}
	return &Relation[N, M, C, CM, J]{
		Field:       keyed.Field,
		Kind:        KindHasManyThrough,
		Child:       keyed.Child,
		Association: func(n N) Association[C] { return assoc(n) },
		Load:        planned(plan),
		IsChildOf: func(parent M, child CM, join J, _ Args) bool {
			pk, ok := keyed.ParentKey(parent)
			if !ok {
				return false
			}
			jpk, ok := keyed.JoinParentKey(join)
			if !ok || pk != jpk {
				return false
			}
			jck, ok := keyed.JoinChildKey(join)
			if !ok {
				return false
			}
			ck, ok := keyed.ChildKey(child)
			return ok && jck == ck
		},
		match: func(parents []M, children []CM, joins []J) [][]int {
			byParent := make(map[K][]int, len(joins))
			for i, join := range joins {
				jpk, ok := keyed.JoinParentKey(join)
				if !ok {
					continue
				}
				jck, ok := keyed.JoinChildKey(join)
				if !ok {
					continue
				}
				if ck, ok := keyed.ChildKey(children[i]); ok && ck == jck {
					byParent[jpk] = append(byParent[jpk], i)
				}
			}
			matches := make([][]int, len(parents))
			for i, parent := range parents {
				if k, ok := keyed.ParentKey(parent); ok {
					matches[i] = byParent[k]
				}
			}
			return matches
		},
		plan: plan,
	}
}
