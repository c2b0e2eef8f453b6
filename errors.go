package arbiter

import "errors"

var (
	// ErrUnknownKind is returned when a rule names a kind that is
	// neither built in nor registered.
	ErrUnknownKind = errors.New("unknown rule kind")

	// ErrTypeMismatch is wrapped by errors reported when a resolved
	// fact does not have the shape the rule kind requires.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrBadConfiguration is wrapped by errors reported when a rule's
	// own configuration prevents evaluation, such as an unset range
	// bound or a missing sub-rule.
	ErrBadConfiguration = errors.New("bad rule configuration")
)
