package eager

// Association is the state container behind one relation field of a node.
// The zero value of every implementation is its initial state.
type Association[T any] interface {
	// LoadedChild installs a paired child. Single-valued associations keep
	// the last child installed; collections append.
	LoadedChild(child T)
	// AssertLoadedOtherwiseFailed moves the association into its terminal
	// state once its relation has been resolved for the batch.
	AssertLoadedOtherwiseFailed()
	Kind() Kind
}

// HasOneState is the state of a HasOne association.
type HasOneState uint8

const (
	NotLoaded HasOneState = iota
	Loaded
	LoadFailed
)

func (s HasOneState) String() string {
	switch s {
	case Loaded:
		return "loaded"
	case LoadFailed:
		return "load_failed"
	default:
		return "not_loaded"
	}
}

// HasOne is a required single child. A relation that resolves without a
// match leaves it LoadFailed, which TryUnwrap reports as an error.
type HasOne[T any] struct {
	state HasOneState
	child T
}

func (a *HasOne[T]) LoadedChild(child T) {
	a.child = child
	a.state = Loaded
}

func (a *HasOne[T]) AssertLoadedOtherwiseFailed() {
	if a.state == NotLoaded {
		a.state = LoadFailed
	}
}

func (a *HasOne[T]) Kind() Kind { return KindHasOne }

// State reports where the association is in its lifecycle.
func (a *HasOne[T]) State() HasOneState { return a.state }

// TryUnwrap returns the loaded child, or an *AssociationError wrapping
// ErrNotLoaded or ErrLoadFailed.
func (a *HasOne[T]) TryUnwrap() (T, error) {
	var zero T
	switch a.state {
	case Loaded:
		return a.child, nil
	case LoadFailed:
		return zero, &AssociationError{Kind: KindHasOne, Err: ErrLoadFailed}
	default:
		return zero, &AssociationError{Kind: KindHasOne, Err: ErrNotLoaded}
	}
}

// OptionHasOne is an optional single child. No match means absent.
type OptionHasOne[T any] struct {
	child T
	set   bool
}

func (a *OptionHasOne[T]) LoadedChild(child T) {
	a.child = child
	a.set = true
}

func (a *OptionHasOne[T]) AssertLoadedOtherwiseFailed() {}

func (a *OptionHasOne[T]) Kind() Kind { return KindOptionHasOne }

// TryUnwrap returns the child and whether one was paired.
func (a *OptionHasOne[T]) TryUnwrap() (T, bool) {
	return a.child, a.set
}

// HasMany is an unordered collection of children matched by key.
type HasMany[T any] struct {
	children []T
}

func (a *HasMany[T]) LoadedChild(child T) {
	a.children = append(a.children, child)
}

func (a *HasMany[T]) AssertLoadedOtherwiseFailed() {}

func (a *HasMany[T]) Kind() Kind { return KindHasMany }

// TryUnwrap returns the paired children; never nil.
func (a *HasMany[T]) TryUnwrap() []T {
	return nonNil(a.children)
}

// HasManyThrough is a collection of children matched through join records.
type HasManyThrough[T any] struct {
	children []T
}

func (a *HasManyThrough[T]) LoadedChild(child T) {
	a.children = append(a.children, child)
}

func (a *HasManyThrough[T]) AssertLoadedOtherwiseFailed() {}

func (a *HasManyThrough[T]) Kind() Kind { return KindHasManyThrough }

// TryUnwrap returns the paired children; never nil.
func (a *HasManyThrough[T]) TryUnwrap() []T {
	return nonNil(a.children)
}

// graphql-go renders a nil slice as null, which breaks non-null list fields.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
