package arbiter

// RuleResult is a point-in-time picture of one node in an evaluation.
// Its shape mirrors the rule tree, restricted to sub-rules whose
// evaluation has been initiated: composite nodes gain children as
// sub-evaluations begin, not only when they complete.
//
// A node is exactly one of three shapes: a leaf (no Child, no Results),
// a unary node (Child set, produced by Not) or a multiary node (Results
// set, produced by And and Or). The order of Results is unspecified.
type RuleResult struct {
	// The kind of the rule that produced this node.
	Kind Kind

	// Description copied from the rule.
	Description string

	// The node's result at snapshot time. Maybe until the node's
	// decision is committed.
	Result Result

	// Whether the rule was marked ignored.
	Ignored bool

	// Leaf fields: the resolved fact key, the operator applied, the
	// configured value(s) and the value the resolver returned.
	Key            string
	Operator       Operator
	Expected       any
	ExpectedValues []any
	Actual         any

	// Failure detail. Err carries the underlying cause when the result
	// is Failed.
	Message string
	Err     error

	// Child is the sub-result of a unary node.
	Child *RuleResult

	// Results are the sub-results of a multiary node, unordered.
	Results []*RuleResult
}

// IsLeaf reports whether the node is a leaf. Combinator nodes are never
// leaves, even when no sub-evaluation has been initiated yet.
func (rr *RuleResult) IsLeaf() bool {
	switch rr.Kind {
	case And, Or, Not:
		return false
	}
	return rr.Child == nil && len(rr.Results) == 0
}

// Reduce flattens a result tree depth-first into a list. Each leaf node
// satisfying keep is transformed by mapTo and appended; multiary nodes
// contribute the concatenation of their children, unary nodes recurse
// into their single child. Sibling order is unspecified, matching the
// unordered child collections of the combinators.
func Reduce[T any](rr *RuleResult, keep func(*RuleResult) bool, mapTo func(*RuleResult) T) []T {
	if rr == nil {
		return nil
	}
	if rr.Child != nil {
		return Reduce(rr.Child, keep, mapTo)
	}
	if len(rr.Results) > 0 {
		var out []T
		for _, c := range rr.Results {
			out = append(out, Reduce(c, keep, mapTo)...)
		}
		return out
	}
	if !rr.IsLeaf() {
		// A combinator with no initiated children contributes nothing.
		return nil
	}
	if keep == nil || keep(rr) {
		return []T{mapTo(rr)}
	}
	return nil
}

// Leaves returns every leaf node in the tree.
func Leaves(rr *RuleResult) []*RuleResult {
	return Reduce(rr, nil, func(n *RuleResult) *RuleResult { return n })
}

// Failures returns the leaf nodes that did not evaluate to Valid,
// excluding ignored ones.
func Failures(rr *RuleResult) []*RuleResult {
	return Reduce(rr,
		func(n *RuleResult) bool { return n.Result != Valid && !n.Ignored },
		func(n *RuleResult) *RuleResult { return n })
}
