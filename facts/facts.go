// Package facts provides FactsResolver implementations and middleware:
// a static map resolver for tests and fixed data, a coalescing TTL cache,
// a per-resolve timeout wrapper and a logging wrapper. Middleware
// composes by wrapping:
//
//	r := facts.Logged(facts.Cached(facts.Timeout(remote, time.Second), time.Minute), logger)
package facts

import (
	"context"

	"github.com/arbiterhq/arbiter"
)

// Map resolves facts from a fixed map. A key that is absent resolves to
// nil (a null fact), not an error; rules that require presence use the
// exists kind.
type Map map[string]any

// Resolve returns the value for key, or nil when absent.
func (m Map) Resolve(_ context.Context, key string) (any, error) {
	return m[key], nil
}

var _ arbiter.FactsResolver = Map{}
