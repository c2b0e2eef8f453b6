package arbiter

import (
	"encoding/json"
	"fmt"
	"strings"
)

// A Rule defines policy logic that can be evaluated against facts.
// Composite rules (And, Or, Not) combine the outcomes of their sub-rules;
// leaf rules compare a single resolved fact against configured values.
//
// A Rule is a stateless blueprint: the same instance may be evaluated
// concurrently, repeatedly and by multiple callers. No evaluation state
// is ever stored on the rule itself; all per-invocation state lives in
// the Session created by Evaluate.
type Rule struct {
	// The rule variant. (required)
	Kind Kind `json:"kind"`

	// Human-readable description, carried through to results. (optional)
	Description string `json:"description,omitempty"`

	// Ignore excludes this rule's outcome from its parent's decision
	// logic. The outcome is still computed and reported in snapshots
	// with ignored set.
	Ignore bool `json:"ignore,omitempty"`

	// Sub-rules for And and Or.
	Rules []*Rule `json:"rules,omitempty"`

	// The single sub-rule for Not.
	Rule *Rule `json:"rule,omitempty"`

	// The fact key a leaf rule resolves. (leaf kinds)
	Key string `json:"key,omitempty"`

	// The comparison applied to the resolved fact. (leaf kinds)
	Operator Operator `json:"operator,omitempty"`

	// The configured comparison value. (leaf kinds)
	Value any `json:"value,omitempty"`

	// Configured comparison values, for set-shaped rules.
	Values []any `json:"values,omitempty"`

	// Range bounds. A nil bound on a range rule is a configuration
	// error and evaluates to Failed.
	Min any `json:"min,omitempty"`
	Max any `json:"max,omitempty"`

	// Whether the range bounds are exclusive. Default inclusive.
	MinExclusive bool `json:"min_exclusive,omitempty"`
	MaxExclusive bool `json:"max_exclusive,omitempty"`

	// The fixed result of a constant rule.
	Outcome Result `json:"outcome,omitempty"`

	// The expression for expression-backed kinds (see the cel package),
	// and the fact keys the expression needs.
	Expr string   `json:"expr,omitempty"`
	Keys []string `json:"keys,omitempty"`

	// Hook is invoked exactly once when a session for this rule reaches
	// a terminal state. Use CompletionHook.Then to chain several.
	Hook CompletionHook `json:"-"`

	// Reference to intermediate compilation data, used by
	// expression-backed kinds. Set before evaluation begins.
	Program any `json:"-"`

	// A reference to any object. Not used by the engine.
	Meta any `json:"-"`
}

// NewAnd returns an And rule over the sub-rules.
func NewAnd(rules ...*Rule) *Rule {
	return &Rule{Kind: And, Rules: rules}
}

// NewOr returns an Or rule over the sub-rules.
func NewOr(rules ...*Rule) *Rule {
	return &Rule{Kind: Or, Rules: rules}
}

// NewNot returns a Not rule wrapping the sub-rule.
func NewNot(rule *Rule) *Rule {
	return &Rule{Kind: Not, Rule: rule}
}

// NewConstant returns a rule that always evaluates to the result.
func NewConstant(r Result) *Rule {
	return &Rule{Kind: Constant, Outcome: r}
}

// Add appends sub-rules to a composite rule.
func (r *Rule) Add(rules ...*Rule) error {
	if r.Kind != And && r.Kind != Or {
		return fmt.Errorf("cannot add sub-rules to a %s rule", r.Kind)
	}
	for _, rr := range rules {
		if rr == nil {
			return fmt.Errorf("attempt to add nil rule")
		}
		r.Rules = append(r.Rules, rr)
	}
	return nil
}

// Validate checks the rule configuration recursively. It catches the
// structural errors that would otherwise surface as Failed results during
// evaluation: unknown kinds, a Not without a sub-rule, nil sub-rules and
// unset range bounds. Operator support is not checked here; an
// unsupported operator is a legal configuration that evaluates to
// OperationNotSupported.
func (r *Rule) Validate() error {
	if r == nil {
		return fmt.Errorf("nil rule")
	}
	switch r.Kind {
	case And, Or:
		for i, c := range r.Rules {
			if c == nil {
				return fmt.Errorf("%s rule: sub-rule %d is nil", r.Kind, i)
			}
			if err := c.Validate(); err != nil {
				return err
			}
		}
		return nil
	case Not:
		if r.Rule == nil {
			return fmt.Errorf("not rule requires a sub-rule")
		}
		return r.Rule.Validate()
	case Range:
		switch r.Operator {
		case IsBefore:
			if r.Min == nil {
				return fmt.Errorf("range rule %q: IS_BEFORE requires min", r.Description)
			}
		case IsAfter:
			if r.Max == nil {
				return fmt.Errorf("range rule %q: IS_AFTER requires max", r.Description)
			}
		case Between, In:
			if r.Min == nil || r.Max == nil {
				return fmt.Errorf("range rule %q: min and max must both be set", r.Description)
			}
		}
		return nil
	case Constant, Exists, Null, String, Number, SetKind, Date:
		return nil
	default:
		if _, ok := lookupKind(r.Kind); !ok {
			return fmt.Errorf("%w: %s", ErrUnknownKind, r.Kind)
		}
		return nil
	}
}

// ParseRule decodes a rule tree from JSON and validates it.
func ParseRule(data []byte) (*Rule, error) {
	var r Rule
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decoding rule: %w", err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// Walk applies f to the rule and its sub-rules recursively, stopping at
// the first error.
func Walk(r *Rule, f func(r *Rule) error) error {
	if r == nil {
		return nil
	}
	if err := f(r); err != nil {
		return err
	}
	if r.Rule != nil {
		if err := Walk(r.Rule, f); err != nil {
			return err
		}
	}
	for _, c := range r.Rules {
		if err := Walk(c, f); err != nil {
			return err
		}
	}
	return nil
}

// label is the identifier used when rendering a rule.
func (r *Rule) label() string {
	if r.Description != "" {
		return r.Description
	}
	if r.Key != "" {
		return fmt.Sprintf("%s(%s)", r.Kind, r.Key)
	}
	return string(r.Kind)
}

// Tree returns a tree representation of the rule hierarchy using
// box-drawing characters. Recursion is limited to a depth of 20 levels.
//
// Example output:
//
//	and
//	├── string(region)
//	└── or
//	    ├── number(age)
//	    └── exists(account)
func (r *Rule) Tree() string {
	if r == nil {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(r.label())
	sb.WriteString("\n")
	r.buildTree(&sb, "", 0)
	return sb.String()
}

func (r *Rule) buildTree(sb *strings.Builder, prefix string, depth int) {
	if depth >= 20 {
		return
	}
	children := r.children()
	for i, child := range children {
		isLast := i == len(children)-1
		var connector, childPrefix string
		if isLast {
			connector = "└── "
			childPrefix = "    "
		} else {
			connector = "├── "
			childPrefix = "│   "
		}
		sb.WriteString(prefix)
		sb.WriteString(connector)
		sb.WriteString(child.label())
		sb.WriteString("\n")
		child.buildTree(sb, prefix+childPrefix, depth+1)
	}
}

func (r *Rule) children() []*Rule {
	if r.Rule != nil {
		return []*Rule{r.Rule}
	}
	out := make([]*Rule, 0, len(r.Rules))
	for _, c := range r.Rules {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}
