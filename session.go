package arbiter

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Session is the per-invocation state of one rule evaluation. It pairs a
// Rule with a mutable current result (Maybe until decided), a completion
// signal that transitions exactly once, and, for composite rules, the
// child sessions created during fan-out.
//
// Sessions are created by Evaluate and discarded after use; a Rule never
// carries session state, so the same rule can be evaluated any number of
// times concurrently.
//
// Snapshot may be called at any moment, including concurrently with
// in-flight evaluation on other goroutines; it always observes a
// consistent tree.
type Session struct {
	// ID identifies the session in logs and hooks.
	ID uuid.UUID

	rule       *Rule
	facts      FactsResolver
	logger     *slog.Logger
	extraHooks []CompletionHook

	start sync.Once
	done  chan struct{}

	// mu guards everything below. The commit of the terminal state
	// happens under mu so that racing child completions resolve the
	// session exactly once.
	mu           sync.Mutex
	completed    bool
	result       Result
	err          error
	actual       any
	message      string
	children     []*Session
	remaining    int
	best         Result
	sawUnignored bool
}

// EvalOptions configure a single evaluation.
type evalOptions struct {
	logger *slog.Logger
	hooks  []CompletionHook
}

// EvalOption is a functional option for Evaluate and Eval.
type EvalOption func(*evalOptions)

// WithLogger emits Debug records for every rule decision in the session
// tree, keyed by session ID. Default: no logging.
func WithLogger(l *slog.Logger) EvalOption {
	return func(o *evalOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithHook registers an additional completion hook on the root session.
// It runs after the rule's own hook, in registration order.
func WithHook(h CompletionHook) EvalOption {
	return func(o *evalOptions) {
		if h != nil {
			o.hooks = append(o.hooks, h)
		}
	}
}

// Evaluate creates a session for the rule without starting it. Callers
// trigger the evaluation with Start or Await and may poll Snapshot at
// any time.
func Evaluate(r *Rule, facts FactsResolver, opts ...EvalOption) *Session {
	o := evalOptions{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}
	s := newSession(r, facts, o.logger)
	s.extraHooks = o.hooks
	return s
}

// Eval evaluates the rule to completion and returns the terminal result
// tree. The error is the session's exceptional completion (a Failed
// outcome with an unsuppressed cause) or the context's error; the
// snapshot is well formed either way.
func Eval(ctx context.Context, r *Rule, facts FactsResolver, opts ...EvalOption) (*RuleResult, error) {
	s := Evaluate(r, facts, opts...)
	_, err := s.Await(ctx)
	return s.Snapshot(), err
}

func newSession(r *Rule, facts FactsResolver, logger *slog.Logger) *Session {
	return &Session{
		ID:     uuid.New(),
		rule:   r,
		facts:  facts,
		logger: logger,
		done:   make(chan struct{}),
		result: Maybe,
		best:   Maybe,
	}
}

// Start triggers the evaluation. The first call fans out the work;
// subsequent calls are no-ops. The context bounds fact resolution; the
// engine itself does not cancel in-flight siblings after a short-circuit
// decision.
func (s *Session) Start(ctx context.Context) {
	s.start.Do(func() {
		go s.run(ctx)
	})
}

// Done returns a channel closed when the session reaches its terminal
// state.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Outcome returns the committed result and failure cause. While the
// session is in flight it returns (Maybe, nil).
func (s *Session) Outcome() (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result, s.err
}

// Await starts the evaluation if necessary and blocks until the session
// completes or the context is done.
func (s *Session) Await(ctx context.Context) (Result, error) {
	s.Start(ctx)
	select {
	case <-s.done:
		return s.Outcome()
	case <-ctx.Done():
		return Maybe, ctx.Err()
	}
}

// Snapshot returns a point-in-time copy of the session's result tree.
// It never blocks on in-flight evaluation and never observes a
// partially-committed node: each node is either its prior state or the
// fully updated one.
func (s *Session) Snapshot() *RuleResult {
	r := s.rule
	if r == nil {
		r = &Rule{}
	}
	s.mu.Lock()
	rr := &RuleResult{
		Kind:           r.Kind,
		Description:    r.Description,
		Result:         s.result,
		Ignored:        r.Ignore,
		Key:            r.Key,
		Operator:       r.Operator,
		Expected:       r.Value,
		ExpectedValues: r.Values,
		Actual:         s.actual,
		Message:        s.message,
		Err:            s.err,
	}
	kids := make([]*Session, len(s.children))
	copy(kids, s.children)
	s.mu.Unlock()

	if r.Kind == Not {
		if len(kids) > 0 {
			rr.Child = kids[0].Snapshot()
		}
		return rr
	}
	for _, c := range kids {
		rr.Results = append(rr.Results, c.Snapshot())
	}
	return rr
}

func (s *Session) run(ctx context.Context) {
	if s.rule == nil {
		s.finish(Failed, errors.Wrap(ErrBadConfiguration, "nil rule"))
		return
	}
	switch s.rule.Kind {
	case And:
		s.runMultiary(ctx, true)
	case Or:
		s.runMultiary(ctx, false)
	case Not:
		s.runUnary(ctx)
	default:
		s.runLeaf(ctx)
	}
}

func (s *Session) runLeaf(ctx context.Context) {
	ev, ok := lookupKind(s.rule.Kind)
	if !ok {
		s.finish(Failed, errors.Wrapf(ErrUnknownKind, "%s", s.rule.Kind))
		return
	}
	v, err := ev.Evaluate(ctx, s.rule, s.facts)

	s.mu.Lock()
	s.actual = v.Actual
	s.message = v.Message
	var committed bool
	if err != nil {
		s.message = err.Error()
		committed = s.commitLocked(Failed, err)
	} else {
		committed = s.commitLocked(v.Result, nil)
	}
	s.mu.Unlock()
	if committed {
		s.afterCommit()
	}
}

// commitLocked installs the terminal state and closes the completion
// signal. Callers must hold s.mu. Only the first call wins; every later
// completion attempt is a no-op. This is the exactly-once guarantee the
// whole engine rests on.
func (s *Session) commitLocked(res Result, err error) bool {
	if s.completed {
		return false
	}
	s.completed = true
	s.result = res
	s.err = err
	close(s.done)
	return true
}

// finish commits a terminal state from outside the decision paths.
func (s *Session) finish(res Result, err error) {
	s.mu.Lock()
	committed := s.commitLocked(res, err)
	s.mu.Unlock()
	if committed {
		s.afterCommit()
	}
}

// afterCommit runs once, on the goroutine that won the commit: it logs
// the decision and fires the completion hooks in registration order with
// the terminal snapshot.
func (s *Session) afterCommit() {
	r := s.rule
	if r == nil {
		r = &Rule{}
	}
	res, err := s.Outcome()
	s.logger.Debug("rule decided",
		"session", s.ID,
		"kind", r.Kind,
		"description", r.Description,
		"result", res.String(),
		"ignored", r.Ignore,
		"err", err)

	hook := r.Hook
	for _, h := range s.extraHooks {
		hook = hook.Then(h)
	}
	if hook == nil {
		return
	}
	hook(res, err, s.Snapshot())
}

// child creates and registers a sub-session. The child appears in
// snapshots as soon as its evaluation is initiated, before it completes.
func (s *Session) child(r *Rule) *Session {
	c := newSession(r, s.facts, s.logger)
	s.mu.Lock()
	s.children = append(s.children, c)
	s.mu.Unlock()
	return c
}
