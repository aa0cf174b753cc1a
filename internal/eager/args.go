package eager

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Args holds the arguments a request passed to a relation field. A field
// without arguments has a nil Args, which reads like an empty map.
type Args map[string]any

// Decode copies the arguments into the struct pointed to by out. Fields
// match argument names case-insensitively, or by an `arg` struct tag.
func (a Args) Decode(out any) error {
	if len(a) == 0 {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "arg",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("build args decoder: %w", err)
	}
	if err := dec.Decode(map[string]any(a)); err != nil {
		return fmt.Errorf("decode args: %w", err)
	}
	return nil
}

// Has reports whether the argument was supplied.
func (a Args) Has(name string) bool {
	_, ok := a[name]
	return ok
}
