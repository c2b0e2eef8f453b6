package arbiter

// CompletionHook is invoked exactly once when a session reaches its
// terminal state. result is the committed outcome, err the failure cause
// (nil unless the completion failed), and snapshot the terminal result
// tree for the session's rule.
//
// Hooks run on the goroutine that committed the decision; long-running
// work should be handed off.
type CompletionHook func(result Result, err error, snapshot *RuleResult)

// Then composes two hooks: h runs first, then next. A nil receiver or
// argument is skipped, so hooks can be chained unconditionally.
func (h CompletionHook) Then(next CompletionHook) CompletionHook {
	if h == nil {
		return next
	}
	if next == nil {
		return h
	}
	return func(result Result, err error, snapshot *RuleResult) {
		h(result, err, snapshot)
		next(result, err, snapshot)
	}
}

// ChainHooks composes the hooks to run in the order given.
func ChainHooks(hooks ...CompletionHook) CompletionHook {
	var out CompletionHook
	for _, h := range hooks {
		out = out.Then(h)
	}
	return out
}
