package arbiter_test

import (
	"context"
	"sync"
	"time"

	"github.com/arbiterhq/arbiter"
)

// -------------------------------------------------- MOCK RESOLVER
// mockResolver is used for testing. It serves facts from a map, can
// delay or fail individual keys, and counts how often each key was
// resolved.
type mockResolver struct {
	data   map[string]any
	errs   map[string]error
	delays map[string]time.Duration

	mu    sync.Mutex
	calls map[string]int
}

func newMockResolver(data map[string]any) *mockResolver {
	return &mockResolver{
		data:   data,
		errs:   map[string]error{},
		delays: map[string]time.Duration{},
		calls:  map[string]int{},
	}
}

func (m *mockResolver) Resolve(ctx context.Context, key string) (any, error) {
	m.mu.Lock()
	m.calls[key]++
	m.mu.Unlock()

	if d := m.delays[key]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := m.errs[key]; err != nil {
		return nil, err
	}
	return m.data[key], nil
}

func (m *mockResolver) callCount(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[key]
}

// -------------------------------------------------- RULE SHORTHAND

func numberEquals(key string, v any) *arbiter.Rule {
	return &arbiter.Rule{Kind: arbiter.Number, Key: key, Operator: arbiter.Equals, Value: v}
}

func constRule(r arbiter.Result) *arbiter.Rule {
	return arbiter.NewConstant(r)
}

func ignored(r *arbiter.Rule) *arbiter.Rule {
	r.Ignore = true
	return r
}

// mustEval evaluates the rule to completion and returns the committed
// result, the terminal snapshot and the exceptional completion, if any.
func mustEval(r *arbiter.Rule, facts arbiter.FactsResolver) (arbiter.Result, *arbiter.RuleResult, error) {
	s := arbiter.Evaluate(r, facts)
	res, err := s.Await(context.Background())
	return res, s.Snapshot(), err
}
