package arbiter

import (
	"context"
	"fmt"
	"sync"
)

// Value is what a leaf evaluator produces: the outcome, the fact value
// that was actually resolved, and an optional message with detail about
// a negative or failed outcome.
type Value struct {
	Result  Result
	Actual  any
	Message string
}

// Evaluator is the strategy a leaf rule kind implements. The engine
// calls Evaluate from its own goroutine; the returned Value decides the
// session. A returned error commits the session as Failed with the error
// as the cause, overriding the returned Value's result.
//
// Implementations must check operator support before resolving any
// fact: an unsupported operator is OperationNotSupported regardless of
// what the resolver would have returned, and must not require the fact.
type Evaluator interface {
	Evaluate(ctx context.Context, r *Rule, facts FactsResolver) (Value, error)
}

// EvaluatorFunc adapts a function to the Evaluator interface.
type EvaluatorFunc func(ctx context.Context, r *Rule, facts FactsResolver) (Value, error)

// Evaluate calls f.
func (f EvaluatorFunc) Evaluate(ctx context.Context, r *Rule, facts FactsResolver) (Value, error) {
	return f(ctx, r, facts)
}

var (
	registryMu sync.RWMutex
	registry   = map[Kind]Evaluator{
		Constant: EvaluatorFunc(evalConstant),
		Exists:   EvaluatorFunc(evalExists),
		Null:     EvaluatorFunc(evalNull),
		String:   EvaluatorFunc(evalString),
		Number:   EvaluatorFunc(evalNumber),
		SetKind:  EvaluatorFunc(evalSet),
		Date:     EvaluatorFunc(evalDate),
		Range:    EvaluatorFunc(evalRange),
	}
)

// RegisterKind installs an evaluator for a user-defined leaf kind.
// Registering a composite kind is an error; registering an existing kind
// replaces its evaluator. Safe for concurrent use.
func RegisterKind(k Kind, e Evaluator) error {
	if k == "" {
		return fmt.Errorf("registering evaluator: empty kind")
	}
	if k == And || k == Or || k == Not {
		return fmt.Errorf("registering evaluator: %s is a combinator kind", k)
	}
	if e == nil {
		return fmt.Errorf("registering evaluator for %s: nil evaluator", k)
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[k] = e
	return nil
}

func lookupKind(k Kind) (Evaluator, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	e, ok := registry[k]
	return e, ok
}
