package arbiter

import (
	"context"
	"reflect"
)

// FactsResolver resolves a fact key to a value. Implementations may fetch
// facts from remote systems, caches or static data; the engine calls
// Resolve from its own goroutines, so implementations only need to be
// safe for concurrent use.
//
// A nil value with a nil error means the fact is known to be null. An
// error means resolution failed; the engine converts it into a Failed
// result carrying the error as the cause.
//
// No ordering is guaranteed between resolutions of different keys. The
// engine does not bound resolution latency; wrap a resolver (see the
// facts package) to enforce an SLA.
type FactsResolver interface {
	Resolve(ctx context.Context, key string) (any, error)
}

// ResolverFunc adapts a function to the FactsResolver interface.
type ResolverFunc func(ctx context.Context, key string) (any, error)

// Resolve calls f.
func (f ResolverFunc) Resolve(ctx context.Context, key string) (any, error) {
	return f(ctx, key)
}

// Set is the collection shape the Contains operator requires. Membership
// is typed: a Set holding float64(7) does not contain int(7).
type Set map[any]struct{}

// NewSet builds a Set from the values. Values that cannot be map keys
// (slices, maps, functions) are skipped; they can never be members.
func NewSet(values ...any) Set {
	s := make(Set, len(values))
	for _, v := range values {
		if !hashable(v) {
			continue
		}
		s[v] = struct{}{}
	}
	return s
}

// Contains reports whether v is a member of the set.
func (s Set) Contains(v any) bool {
	if !hashable(v) {
		return false
	}
	_, ok := s[v]
	return ok
}

// hashable reports whether v can be used as a map key. JSON-decoded
// collections ([]any, map[string]any) are not.
func hashable(v any) bool {
	return v == nil || reflect.TypeOf(v).Comparable()
}

// Equal reports whether s and other hold exactly the same members.
func (s Set) Equal(other Set) bool {
	if len(s) != len(other) {
		return false
	}
	for v := range s {
		if _, ok := other[v]; !ok {
			return false
		}
	}
	return true
}
