package eager

import (
	"errors"
	"fmt"
)

var (
	// ErrNotLoaded means a HasOne was read before its relation was resolved,
	// usually because the field was missing from the trail.
	ErrNotLoaded = errors.New("association not loaded")
	// ErrLoadFailed means the relation was resolved but no child matched.
	ErrLoadFailed = errors.New("association load failed")
)

// AssociationError is returned by HasOne.TryUnwrap.
type AssociationError struct {
	Kind Kind
	Err  error
}

func (e *AssociationError) Error() string {
	if errors.Is(e.Err, ErrLoadFailed) {
		return fmt.Sprintf("failed to load `%s`", e.Kind)
	}
	return fmt.Sprintf("`%s` should have been eager loaded, but wasn't", e.Kind)
}

func (e *AssociationError) Unwrap() error { return e.Err }

// LoadError wraps a loader failure with the relation it happened in. It is
// applied once, at the level where the loader failed; ancestors pass it up
// unchanged.
type LoadError struct {
	Type  string
	Field string
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("eager load %s.%s: %v", e.Type, e.Field, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
