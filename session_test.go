package arbiter_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/arbiterhq/arbiter"
	"github.com/matryer/is"
)

func TestSnapshotBeforeStart(t *testing.T) {
	is := is.New(t)

	s := arbiter.Evaluate(numberEquals("x", 1), newMockResolver(nil))
	snap := s.Snapshot()
	is.Equal(snap.Result, arbiter.Maybe) // nothing committed yet
	is.Equal(snap.Key, "x")

	res, err := s.Outcome()
	is.NoErr(err)
	is.Equal(res, arbiter.Maybe)
}

func TestSnapshotMidFlight(t *testing.T) {
	facts := newMockResolver(map[string]any{"slow": 1})
	facts.delays["slow"] = 80 * time.Millisecond

	rule := arbiter.NewAnd(numberEquals("slow", 1))
	s := arbiter.Evaluate(rule, facts)
	s.Start(context.Background())

	time.Sleep(20 * time.Millisecond)
	snap := s.Snapshot()
	if snap.Result != arbiter.Maybe {
		t.Fatalf("undecided session snapshot should be MAYBE, got %s", snap.Result)
	}
	if len(snap.Results) != 1 || snap.Results[0].Result != arbiter.Maybe {
		t.Fatalf("in-flight child should appear as MAYBE: %+v", snap.Results)
	}

	if res, err := s.Await(context.Background()); err != nil || res != arbiter.Valid {
		t.Fatalf("got %s, %v", res, err)
	}
	if snap := s.Snapshot(); snap.Result != arbiter.Valid {
		t.Fatalf("terminal snapshot should be VALID, got %s", snap.Result)
	}
}

func TestStartIsIdempotent(t *testing.T) {
	facts := newMockResolver(map[string]any{"n": 1})
	s := arbiter.Evaluate(numberEquals("n", 1), facts)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Start(context.Background())
		}()
	}
	wg.Wait()

	if res, err := s.Await(context.Background()); err != nil || res != arbiter.Valid {
		t.Fatalf("got %s, %v", res, err)
	}
	if facts.callCount("n") != 1 {
		t.Errorf("fact resolved %d times, want 1", facts.callCount("n"))
	}
}

func TestAwaitCancellation(t *testing.T) {
	is := is.New(t)

	facts := newMockResolver(map[string]any{"slow": 1})
	facts.delays["slow"] = time.Second

	s := arbiter.Evaluate(numberEquals("slow", 1), facts)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	res, err := s.Await(ctx)
	is.Equal(res, arbiter.Maybe)
	is.True(errors.Is(err, context.DeadlineExceeded))
}

func TestDoneChannel(t *testing.T) {
	facts := newMockResolver(map[string]any{"n": 1})
	s := arbiter.Evaluate(numberEquals("n", 1), facts)
	s.Start(context.Background())

	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("session never completed")
	}
	if res, err := s.Outcome(); err != nil || res != arbiter.Valid {
		t.Fatalf("got %s, %v", res, err)
	}
}

func TestEvalConvenience(t *testing.T) {
	is := is.New(t)

	rr, err := arbiter.Eval(context.Background(),
		numberEquals("n", 1),
		newMockResolver(map[string]any{"n": 1}))
	is.NoErr(err)
	is.Equal(rr.Result, arbiter.Valid)
}

func TestNilRule(t *testing.T) {
	_, _, err := mustEval(nil, newMockResolver(nil))
	if !errors.Is(err, arbiter.ErrBadConfiguration) {
		t.Fatalf("expected ErrBadConfiguration, got %v", err)
	}
}

func TestRuleHookFires(t *testing.T) {
	var (
		mu   sync.Mutex
		got  arbiter.Result
		snap *arbiter.RuleResult
	)
	rule := numberEquals("n", 1)
	rule.Hook = func(res arbiter.Result, err error, s *arbiter.RuleResult) {
		mu.Lock()
		got, snap = res, s
		mu.Unlock()
	}

	if res, _, err := mustEval(rule, newMockResolver(map[string]any{"n": 1})); err != nil || res != arbiter.Valid {
		t.Fatalf("got %s, %v", res, err)
	}

	mu.Lock()
	defer mu.Unlock()
	if got != arbiter.Valid {
		t.Fatalf("hook saw %s", got)
	}
	if snap == nil || snap.Result != arbiter.Valid {
		t.Fatalf("hook snapshot: %+v", snap)
	}
}

// Hooks on inner rules fire when that branch completes, independently
// of the root's decision.
func TestInnerRuleHook(t *testing.T) {
	var innerFired sync.WaitGroup
	innerFired.Add(1)

	inner := numberEquals("b", 1)
	inner.Hook = func(res arbiter.Result, err error, _ *arbiter.RuleResult) {
		defer innerFired.Done()
		if res != arbiter.Valid {
			t.Errorf("inner hook saw %s", res)
		}
	}

	rule := arbiter.NewAnd(numberEquals("a", 1), inner)
	if res, _, err := mustEval(rule, newMockResolver(map[string]any{"a": 1, "b": 1})); err != nil || res != arbiter.Valid {
		t.Fatalf("got %s, %v", res, err)
	}
	innerFired.Wait()
}

func TestHookChainOrder(t *testing.T) {
	is := is.New(t)

	var order []string
	var mu sync.Mutex
	record := func(name string) arbiter.CompletionHook {
		return func(arbiter.Result, error, *arbiter.RuleResult) {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
		}
	}

	rule := constRule(arbiter.Valid)
	rule.Hook = record("rule")

	_, _, err := mustEval(rule, nil)
	is.NoErr(err)

	s := arbiter.Evaluate(constRule(arbiter.Valid),
		nil,
		arbiter.WithHook(record("first")),
		arbiter.WithHook(record("second")))
	_, err = s.Await(context.Background())
	is.NoErr(err)

	mu.Lock()
	defer mu.Unlock()
	is.Equal(order, []string{"rule", "first", "second"})
}

func TestChainHooksNilSafe(t *testing.T) {
	var n int
	h := arbiter.ChainHooks(nil,
		func(arbiter.Result, error, *arbiter.RuleResult) { n++ },
		nil,
		func(arbiter.Result, error, *arbiter.RuleResult) { n++ })
	h(arbiter.Valid, nil, nil)
	if n != 2 {
		t.Fatalf("chained hooks ran %d times, want 2", n)
	}

	var none arbiter.CompletionHook
	chained := none.Then(nil)
	if chained != nil {
		chained(arbiter.Valid, nil, nil)
	}
}

func TestHookReceivesError(t *testing.T) {
	facts := newMockResolver(nil)
	facts.errs["bad"] = errors.New("boom")

	hookErr := make(chan error, 1)
	s := arbiter.Evaluate(numberEquals("bad", 1), facts,
		arbiter.WithHook(func(_ arbiter.Result, err error, _ *arbiter.RuleResult) {
			hookErr <- err
		}))
	if res, _ := s.Await(context.Background()); res != arbiter.Failed {
		t.Fatalf("got %s, want FAILED", res)
	}

	select {
	case err := <-hookErr:
		if err == nil {
			t.Fatal("hook should receive the cause")
		}
	case <-time.After(time.Second):
		t.Fatal("hook never fired")
	}
}

func TestWithLogger(t *testing.T) {
	var buf bytes.Buffer
	var mu sync.Mutex
	logger := slog.New(slog.NewTextHandler(&lockedWriter{w: &buf, mu: &mu},
		&slog.HandlerOptions{Level: slog.LevelDebug}))

	rule := arbiter.NewAnd(numberEquals("n", 1))
	if res, _, err := evalWith(rule, newMockResolver(map[string]any{"n": 1}), arbiter.WithLogger(logger)); err != nil || res != arbiter.Valid {
		t.Fatalf("got %s, %v", res, err)
	}

	mu.Lock()
	defer mu.Unlock()
	if !bytes.Contains(buf.Bytes(), []byte("rule decided")) {
		t.Errorf("expected completion log lines, got:\n%s", buf.String())
	}
}

type lockedWriter struct {
	w  *bytes.Buffer
	mu *sync.Mutex
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

func evalWith(r *arbiter.Rule, facts arbiter.FactsResolver, opts ...arbiter.EvalOption) (arbiter.Result, *arbiter.RuleResult, error) {
	s := arbiter.Evaluate(r, facts, opts...)
	res, err := s.Await(context.Background())
	return res, s.Snapshot(), err
}
