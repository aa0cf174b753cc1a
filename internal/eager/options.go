package eager

import "context"

// Options tune how a request walks its trail.
type Options struct {
	// MaxConcurrency bounds how many sibling relations of one batch resolve
	// at the same time. Values below 2 resolve them one after another.
	MaxConcurrency int
}

type optionsKey struct{}

// WithOptions attaches walk options to a request context.
func WithOptions(ctx context.Context, opts Options) context.Context {
	return context.WithValue(ctx, optionsKey{}, opts)
}

// OptionsFromContext returns the options attached to ctx, or the zero value.
func OptionsFromContext(ctx context.Context) Options {
	opts, _ := ctx.Value(optionsKey{}).(Options)
	return opts
}
