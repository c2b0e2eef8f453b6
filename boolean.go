package arbiter

import (
	"context"

	"github.com/pkg/errors"
)

// Boolean combinators. Both multiary combinators share the same
// skeleton: fan out every sub-rule concurrently, then decide on child
// completions as they race in. The decision is committed under the
// session mutex so that exactly one completion wins; siblings that are
// still running are not cancelled, their outcomes simply stop mattering
// to the decision while remaining visible in snapshots.

func (s *Session) runMultiary(ctx context.Context, conjunction bool) {
	subs := s.rule.Rules
	for i, sub := range subs {
		if sub == nil {
			s.finish(Failed, errors.Wrapf(ErrBadConfiguration, "%s rule: sub-rule %d is nil", s.rule.Kind, i))
			return
		}
	}
	if len(subs) == 0 {
		s.finish(Valid, nil)
		return
	}

	s.mu.Lock()
	s.remaining = len(subs)
	s.mu.Unlock()

	// Register every child before starting any, so a fast branch cannot
	// commit the parent while siblings are still missing from snapshots.
	children := make([]*Session, len(subs))
	for i, sub := range subs {
		children[i] = s.child(sub)
	}
	for _, c := range children {
		c.Start(ctx)
		go func(c *Session) {
			<-c.done
			if conjunction {
				s.conjunctChildDone(c)
			} else {
				s.disjunctChildDone(c)
			}
		}(c)
	}
}

// conjunctChildDone applies the And decision logic for one completed
// child. The first unignored non-Valid outcome (or error) short-circuits
// the parent; if nothing disqualifies by the time every child has
// completed, the conjunction is Valid. An all-ignored conjunction is
// Valid by the same rule.
func (s *Session) conjunctChildDone(c *Session) {
	res, err := c.Outcome()
	ignored := c.rule.Ignore

	s.mu.Lock()
	s.remaining--
	var committed bool
	switch {
	case s.completed:
		// Decision already locked in; this completion is only
		// reflected in the snapshot.
	case !ignored && err != nil:
		committed = s.commitLocked(Failed, err)
	case !ignored && res != Valid:
		committed = s.commitLocked(res, nil)
	case s.remaining == 0:
		committed = s.commitLocked(Valid, nil)
	}
	s.mu.Unlock()
	if committed {
		s.afterCommit()
	}
}

// disjunctChildDone applies the Or decision logic for one completed
// child. The first Valid wins immediately, even from an ignored branch:
// ignore suppresses a branch from failing the decision, not from
// resolving it. An unignored error short-circuits to Failed. Otherwise
// a best-so-far merge over the unignored outcomes decides once all
// children have completed; with no unignored children at all, the
// disjunction defaults to Valid.
func (s *Session) disjunctChildDone(c *Session) {
	res, err := c.Outcome()
	ignored := c.rule.Ignore

	s.mu.Lock()
	s.remaining--
	var committed bool
	switch {
	case s.completed:
	case res == Valid:
		committed = s.commitLocked(Valid, nil)
	case !ignored && err != nil:
		committed = s.commitLocked(Failed, err)
	case !ignored:
		s.sawUnignored = true
		if res.outranks(s.best) {
			s.best = res
		}
		if s.remaining == 0 {
			committed = s.commitLocked(s.best, nil)
		}
	default:
		if s.remaining == 0 {
			if s.sawUnignored {
				committed = s.commitLocked(s.best, nil)
			} else {
				committed = s.commitLocked(Valid, nil)
			}
		}
	}
	s.mu.Unlock()
	if committed {
		s.afterCommit()
	}
}

// runUnary implements Not. The sub-result is negated for Valid and
// Invalid; Failed, OperationNotSupported and Maybe pass through
// unchanged, because the negation of "cannot decide" is still "cannot
// decide". An ignored sub-rule makes the parent Valid no matter what the
// sub-rule produced.
func (s *Session) runUnary(ctx context.Context) {
	sub := s.rule.Rule
	if sub == nil {
		s.finish(Failed, errors.Wrap(ErrBadConfiguration, "not rule requires a sub-rule"))
		return
	}
	c := s.child(sub)
	c.Start(ctx)
	<-c.done
	res, err := c.Outcome()

	switch {
	case sub.Ignore:
		s.finish(Valid, nil)
	case err != nil:
		s.finish(Failed, err)
	case res == Valid:
		s.finish(Invalid, nil)
	case res == Invalid:
		s.finish(Valid, nil)
	default:
		s.finish(res, nil)
	}
}
