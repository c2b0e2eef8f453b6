package arbiter

import "fmt"

// Result is the outcome of evaluating a rule.
type Result int

const (
	// Maybe means the evaluation has not been decided yet. It is the
	// initial state of every session and the only legal interim value.
	Maybe Result = iota

	// Valid means the facts satisfy the rule.
	Valid

	// Invalid means the facts do not satisfy the rule. This is a normal
	// negative outcome, not an error.
	Invalid

	// OperationNotSupported means the rule was configured with an operator
	// the rule kind does not support. It is decided before any fact is
	// resolved.
	OperationNotSupported

	// Failed means evaluation could not be carried out: a resolver
	// failure, a type mismatch, a parse failure or an arithmetic error.
	Failed
)

func (r Result) String() string {
	switch r {
	case Maybe:
		return "MAYBE"
	case Valid:
		return "VALID"
	case Invalid:
		return "INVALID"
	case OperationNotSupported:
		return "OPERATION_NOT_SUPPORTED"
	case Failed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// MarshalText encodes the result by name, so rules and results
// serialize readably.
func (r Result) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText decodes a result from its name.
func (r *Result) UnmarshalText(text []byte) error {
	switch string(text) {
	case "MAYBE", "":
		*r = Maybe
	case "VALID":
		*r = Valid
	case "INVALID":
		*r = Invalid
	case "OPERATION_NOT_SUPPORTED":
		*r = OperationNotSupported
	case "FAILED":
		*r = Failed
	default:
		return fmt.Errorf("unknown result %q", text)
	}
	return nil
}

// mergePriority orders results for merging disjunctive (OR) branches.
// When no branch is Valid, the completed result with the highest priority
// wins: Valid > Failed > OperationNotSupported > Invalid > Maybe.
func (r Result) mergePriority() int {
	switch r {
	case Valid:
		return 4
	case Failed:
		return 3
	case OperationNotSupported:
		return 2
	case Invalid:
		return 1
	default:
		return 0
	}
}

// outranks reports whether r takes precedence over other when merging
// OR branches.
func (r Result) outranks(other Result) bool {
	return r.mergePriority() > other.mergePriority()
}
