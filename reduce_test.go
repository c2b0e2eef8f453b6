package arbiter_test

import (
	"strings"
	"testing"

	"github.com/arbiterhq/arbiter"
	"github.com/matryer/is"
)

func eligibilityResult(t *testing.T) *arbiter.RuleResult {
	t.Helper()

	rule := arbiter.NewAnd(
		&arbiter.Rule{Kind: arbiter.Number, Key: "age", Operator: arbiter.GreaterThanEqual, Value: 18, Description: "adult"},
		arbiter.NewOr(
			&arbiter.Rule{Kind: arbiter.String, Key: "region", Operator: arbiter.Equals, Value: "EU"},
			&arbiter.Rule{Kind: arbiter.String, Key: "region", Operator: arbiter.Equals, Value: "UK"},
		),
		arbiter.NewNot(&arbiter.Rule{Kind: arbiter.Exists, Key: "ban"}),
		ignored(&arbiter.Rule{Kind: arbiter.Number, Key: "score", Operator: arbiter.GreaterThan, Value: 700}),
	)

	_, snap, err := mustEval(rule, newMockResolver(map[string]any{
		"age":    17,
		"region": "EU",
		"ban":    nil,
		"score":  500,
	}))
	if err != nil {
		t.Fatal(err)
	}
	return snap
}

func TestLeaves(t *testing.T) {
	is := is.New(t)

	leaves := arbiter.Leaves(eligibilityResult(t))
	is.Equal(len(leaves), 5)
	for _, l := range leaves {
		is.True(l.IsLeaf())
	}
}

func TestFailures(t *testing.T) {
	snap := eligibilityResult(t)

	// Failing leaves: age (17 < 18), the UK region branch, and the null
	// ban fact under NOT. The ignored score failure must not be listed.
	failures := arbiter.Failures(snap)
	keys := map[string]bool{}
	for _, f := range failures {
		keys[f.Key] = true
		if f.Ignored {
			t.Errorf("ignored leaf %q reported as failure", f.Key)
		}
		if f.Result == arbiter.Valid {
			t.Errorf("valid leaf %q reported as failure", f.Key)
		}
	}
	if !keys["age"] {
		t.Error("age failure missing")
	}
	if keys["score"] {
		t.Error("ignored score leaf must be excluded")
	}
}

func TestReduceCustom(t *testing.T) {
	is := is.New(t)

	snap := eligibilityResult(t)
	descriptions := arbiter.Reduce(snap,
		func(n *arbiter.RuleResult) bool { return n.Result != arbiter.Valid && !n.Ignored },
		func(n *arbiter.RuleResult) string {
			if n.Description != "" {
				return n.Description
			}
			return n.Key
		})
	found := false
	for _, d := range descriptions {
		if d == "adult" {
			found = true
		}
	}
	is.True(found) // the described failing leaf surfaces by description

	is.Equal(len(arbiter.Reduce[string](nil, nil, nil)), 0)
}

func TestReduceDeepTree(t *testing.T) {
	// NOT chains recurse through unary nodes down to the single leaf.
	rule := arbiter.NewNot(arbiter.NewNot(arbiter.NewNot(numberEquals("n", 1))))
	_, snap, err := mustEval(rule, newMockResolver(map[string]any{"n": 2}))
	if err != nil {
		t.Fatal(err)
	}

	leaves := arbiter.Leaves(snap)
	if len(leaves) != 1 || leaves[0].Key != "n" {
		t.Fatalf("want the single leaf, got %+v", leaves)
	}
}

// A combinator with no initiated sub-evaluations must not be mistaken
// for a leaf by the reducer.
func TestReduceEmptyComposite(t *testing.T) {
	is := is.New(t)

	_, snap, err := mustEval(arbiter.NewAnd(), nil)
	is.NoErr(err)
	is.Equal(snap.Result, arbiter.Valid)
	is.True(!snap.IsLeaf())
	is.Equal(len(arbiter.Leaves(snap)), 0)
	is.Equal(len(arbiter.Failures(snap)), 0)

	// Same for an empty disjunction nested under a combinator.
	_, snap, err = mustEval(arbiter.NewAnd(arbiter.NewOr(), numberEquals("n", 1)),
		newMockResolver(map[string]any{"n": 1}))
	is.NoErr(err)
	leaves := arbiter.Leaves(snap)
	is.Equal(len(leaves), 1)
	is.Equal(leaves[0].Key, "n")
}

func TestResultRendering(t *testing.T) {
	snap := eligibilityResult(t)
	out := snap.String()

	for _, want := range []string{
		"ARBITER RESULT SUMMARY",
		"INVALID",
		"VALID",
		"age",
		"region",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered summary missing %q:\n%s", want, out)
		}
	}
}
