package arbiter

import (
	"reflect"
	"time"

	"github.com/pkg/errors"
)

// This file holds the runtime coercion helpers leaf evaluators share:
// cross-type numeric comparison, whole-number coercion for divisibility,
// time coercion and set-shape coercion.

// compareNumbers orders two numeric values. When the runtime types match,
// values are compared by natural ordering. When they differ (for example
// int vs. float64), both are compared as float64, so 0 and 0.0 are equal.
// Returns -1, 0 or 1, or an error if either value is not numeric.
func compareNumbers(a, b any) (int, error) {
	if !isNumber(a) {
		return 0, errors.Wrapf(ErrTypeMismatch, "expected a number, got %T", a)
	}
	if !isNumber(b) {
		return 0, errors.Wrapf(ErrTypeMismatch, "expected a number, got %T", b)
	}

	if reflect.TypeOf(a) == reflect.TypeOf(b) {
		switch {
		case isUnsigned(a):
			// Unsigned operands stay unsigned: values above
			// math.MaxInt64 must not wrap negative.
			au, _ := toUint64(a)
			bu, _ := toUint64(b)
			return compareOrdered(au, bu), nil
		case isWhole(a):
			ai, _ := toInt64(a)
			bi, _ := toInt64(b)
			return compareOrdered(ai, bi), nil
		default:
			af, _ := toFloat64(a)
			bf, _ := toFloat64(b)
			return compareOrdered(af, bf), nil
		}
	}

	af, _ := toFloat64(a)
	bf, _ := toFloat64(b)
	return compareOrdered(af, bf), nil
}

// orderingPass maps a three-way comparison onto an ordering operator.
func orderingPass(op Operator, cmp int) bool {
	switch op {
	case Equals:
		return cmp == 0
	case GreaterThan:
		return cmp > 0
	case GreaterThanEqual:
		return cmp >= 0
	case LessThan:
		return cmp < 0
	case LessThanEqual:
		return cmp <= 0
	default:
		return false
	}
}

func compareOrdered[T int64 | uint64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func isNumber(v any) bool {
	_, ok := toFloat64(v)
	return ok
}

// isWhole reports whether v has a whole-number runtime type. Floats are
// never whole, even when they carry an integral value.
func isWhole(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	default:
		return false
	}
}

func isUnsigned(v any) bool {
	switch v.(type) {
	case uint, uint8, uint16, uint32, uint64:
		return true
	default:
		return false
	}
}

func toUint64(v any) (uint64, bool) {
	switch n := v.(type) {
	case uint:
		return uint64(n), true
	case uint8:
		return uint64(n), true
	case uint16:
		return uint64(n), true
	case uint32:
		return uint64(n), true
	case uint64:
		return n, true
	default:
		return 0, false
	}
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	default:
		return 0, false
	}
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		if i, ok := toInt64(v); ok {
			return float64(i), true
		}
		return 0, false
	}
}

// toTime coerces a fact or configured value to a time. Accepts time.Time
// and RFC 3339 strings; a malformed string is a parse failure.
func toTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case *time.Time:
		if t == nil {
			return time.Time{}, errors.Wrap(ErrTypeMismatch, "nil *time.Time")
		}
		return *t, nil
	case string:
		parsed, err := time.Parse(time.RFC3339, t)
		if err != nil {
			return time.Time{}, errors.Wrapf(err, "parsing %q as RFC 3339", t)
		}
		return parsed, nil
	default:
		return time.Time{}, errors.Wrapf(ErrTypeMismatch, "expected time.Time or RFC 3339 string, got %T", v)
	}
}

// toSet coerces a fact to the Set shape Contains requires. Lists and
// other collection shapes are rejected; Contains requires a set, and
// receiving anything else is an evaluation failure, not Invalid.
func toSet(v any) (Set, error) {
	switch s := v.(type) {
	case Set:
		return s, nil
	case map[any]struct{}:
		return Set(s), nil
	default:
		return nil, errors.Wrapf(ErrTypeMismatch, "CONTAINS requires a set fact, got %T", v)
	}
}
