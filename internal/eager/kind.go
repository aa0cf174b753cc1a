package eager

import "fmt"

// Kind identifies the association variant of a relation.
type Kind uint8

const (
	KindHasOne Kind = iota + 1
	KindOptionHasOne
	KindHasMany
	KindHasManyThrough
)

func (k Kind) String() string {
	switch k {
	case KindHasOne:
		return "HasOne"
	case KindOptionHasOne:
		return "OptionHasOne"
	case KindHasMany:
		return "HasMany"
	case KindHasManyThrough:
		return "HasManyThrough"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}
