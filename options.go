package compositor

import "log/slog"

// Option configures a State at construction time.
type Option func(*State)

// WithFallbackAdapter forces the software rasterizer instead of a hardware
// adapter. Slow, but deterministic; used by CI and the package's own GPU
// tests.
func WithFallbackAdapter() Option {
	return func(st *State) { st.fallbackAdapter = true }
}

// WithLogger routes this State's log output to l instead of the
// package-level logger.
func WithLogger(l *slog.Logger) Option {
	return func(st *State) {
		if l != nil {
			st.log = l
		}
	}
}

// WithRegistry substitutes the transformation registry used to build
// effect chains from configuration. The default registry carries the
// built-in transformations.
func WithRegistry(r *Registry) Option {
	return func(st *State) {
		if r != nil {
			st.registry = r
		}
	}
}
