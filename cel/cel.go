// Package cel provides an expression-backed rule kind built on Google's
// CEL (https://github.com/google/cel-go). A cel rule names the fact keys
// its expression needs; the evaluator resolves them concurrently, binds
// them as CEL variables and requires the expression to produce a bool,
// which becomes Valid or Invalid.
//
// Rules can be compiled ahead of evaluation with Compile, which stores
// the compiled program on Rule.Program. Uncompiled rules are compiled on
// the fly, at a cost, on every evaluation.
package cel

import (
	"context"
	"fmt"
	"sync"

	celgo "github.com/google/cel-go/cel"
	"golang.org/x/sync/errgroup"

	"github.com/arbiterhq/arbiter"
)

// Kind is the rule kind the evaluator handles.
const Kind = arbiter.Kind("cel")

// defaultCostLimit bounds expression evaluation cost so a runaway
// expression cannot exhaust the process.
const defaultCostLimit = 1_000_000

// Evaluator implements arbiter.Evaluator for CEL expressions.
type Evaluator struct {
	env *celgo.Env

	// CostLimit bounds expression evaluation cost. Set it before any
	// rule is compiled; the default is defaultCostLimit.
	CostLimit uint64
}

// NewEvaluator creates a CEL evaluator. Environment options (custom
// functions, type declarations) are passed through to cel-go.
func NewEvaluator(envOpts ...celgo.EnvOption) (*Evaluator, error) {
	env, err := celgo.NewEnv(envOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating CEL environment: %w", err)
	}
	return &Evaluator{env: env, CostLimit: defaultCostLimit}, nil
}

// Register installs the evaluator as the cel rule kind.
func (e *Evaluator) Register() error {
	return arbiter.RegisterKind(Kind, e)
}

// Compile pre-compiles every cel rule in the tree, storing the compiled
// program on Rule.Program. Call it once after constructing a rule tree
// and before evaluating; rules must not be modified between compilation
// and evaluation.
func (e *Evaluator) Compile(root *arbiter.Rule) error {
	return arbiter.Walk(root, func(r *arbiter.Rule) error {
		if r.Kind != Kind {
			return nil
		}
		prog, err := e.compile(r)
		if err != nil {
			return err
		}
		r.Program = prog
		return nil
	})
}

func (e *Evaluator) compile(r *arbiter.Rule) (celgo.Program, error) {
	if r.Expr == "" {
		return nil, fmt.Errorf("cel rule %q: empty expression", r.Description)
	}
	vars := make([]celgo.EnvOption, 0, len(r.Keys))
	for _, k := range r.Keys {
		vars = append(vars, celgo.Variable(k, celgo.DynType))
	}
	env, err := e.env.Extend(vars...)
	if err != nil {
		return nil, fmt.Errorf("extending CEL environment: %w", err)
	}
	ast, issues := env.Compile(r.Expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compiling %q: %w", r.Expr, issues.Err())
	}
	prog, err := env.Program(ast, celgo.CostLimit(e.CostLimit))
	if err != nil {
		return nil, fmt.Errorf("building program for %q: %w", r.Expr, err)
	}
	return prog, nil
}

// Evaluate resolves the rule's fact keys concurrently, evaluates the
// expression and maps the boolean output to Valid or Invalid. A null
// fact makes the rule Invalid, matching the engine's null policy. A
// non-boolean output, a resolver failure or an expression error is an
// evaluation failure.
func (e *Evaluator) Evaluate(ctx context.Context, r *arbiter.Rule, facts arbiter.FactsResolver) (arbiter.Value, error) {
	if r.Operator != "" {
		return arbiter.Value{Result: arbiter.OperationNotSupported}, nil
	}
	prog, ok := r.Program.(celgo.Program)
	if !ok {
		p, err := e.compile(r)
		if err != nil {
			return arbiter.Value{}, err
		}
		prog = p
	}
	if len(r.Keys) > 0 && facts == nil {
		return arbiter.Value{}, fmt.Errorf("cel rule %q: no facts resolver", r.Description)
	}

	activation := make(map[string]any, len(r.Keys))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, key := range r.Keys {
		key := key
		g.Go(func() error {
			v, err := facts.Resolve(gctx, key)
			if err != nil {
				return fmt.Errorf("resolving fact %q: %w", key, err)
			}
			mu.Lock()
			activation[key] = v
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return arbiter.Value{}, err
	}

	for k, v := range activation {
		if v == nil {
			return arbiter.Value{Result: arbiter.Invalid, Message: fmt.Sprintf("fact %q is null", k)}, nil
		}
	}

	out, _, err := prog.ContextEval(ctx, activation)
	if err != nil {
		return arbiter.Value{}, fmt.Errorf("evaluating %q: %w", r.Expr, err)
	}
	b, ok := out.Value().(bool)
	if !ok {
		return arbiter.Value{Actual: out.Value()},
			fmt.Errorf("expression %q produced %T, expected bool", r.Expr, out.Value())
	}
	if b {
		return arbiter.Value{Result: arbiter.Valid, Actual: activation}, nil
	}
	return arbiter.Value{Result: arbiter.Invalid, Actual: activation}, nil
}
