package arbiter

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

// Built-in leaf evaluators. Each follows the same contract: operator
// support is checked before the fact is resolved, a null fact or null
// configured value is Invalid, and a shape or type problem is an error
// (Failed), never Invalid.

func resolveFact(ctx context.Context, r *Rule, facts FactsResolver) (any, error) {
	if facts == nil {
		return nil, errors.Wrap(ErrBadConfiguration, "no facts resolver")
	}
	if r.Key == "" {
		return nil, errors.Wrapf(ErrBadConfiguration, "%s rule has no key", r.Kind)
	}
	v, err := facts.Resolve(ctx, r.Key)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving fact %q", r.Key)
	}
	return v, nil
}

func evalConstant(_ context.Context, r *Rule, _ FactsResolver) (Value, error) {
	if r.Operator != "" {
		return Value{Result: OperationNotSupported}, nil
	}
	return Value{Result: r.Outcome}, nil
}

func evalExists(ctx context.Context, r *Rule, facts FactsResolver) (Value, error) {
	if r.Operator != "" {
		return Value{Result: OperationNotSupported}, nil
	}
	fact, err := resolveFact(ctx, r, facts)
	if err != nil {
		return Value{}, err
	}
	if fact == nil {
		return Value{Result: Invalid, Message: fmt.Sprintf("fact %q not present", r.Key)}, nil
	}
	return Value{Result: Valid, Actual: fact}, nil
}

func evalNull(ctx context.Context, r *Rule, facts FactsResolver) (Value, error) {
	if r.Operator != "" {
		return Value{Result: OperationNotSupported}, nil
	}
	fact, err := resolveFact(ctx, r, facts)
	if err != nil {
		return Value{}, err
	}
	if fact != nil {
		return Value{Result: Invalid, Actual: fact}, nil
	}
	return Value{Result: Valid}, nil
}

func evalString(ctx context.Context, r *Rule, facts FactsResolver) (Value, error) {
	if !operatorSupported(String, r.Operator) {
		return Value{Result: OperationNotSupported}, nil
	}
	fact, err := resolveFact(ctx, r, facts)
	if err != nil {
		return Value{}, err
	}
	if r.Operator == Contains {
		return containsCheck(fact, r.Value)
	}
	if fact == nil || r.Value == nil {
		return Value{Result: Invalid, Actual: fact}, nil
	}
	fs, ok := fact.(string)
	if !ok {
		return Value{Actual: fact}, errors.Wrapf(ErrTypeMismatch, "fact %q: expected string, got %T", r.Key, fact)
	}
	want, ok := r.Value.(string)
	if !ok {
		return Value{Actual: fact}, errors.Wrapf(ErrTypeMismatch, "string rule value: expected string, got %T", r.Value)
	}

	var pass bool
	switch r.Operator {
	case Equals:
		pass = fs == want
	case GreaterThan:
		pass = fs > want
	case GreaterThanEqual:
		pass = fs >= want
	case LessThan:
		pass = fs < want
	case LessThanEqual:
		pass = fs <= want
	case StartsWith:
		pass = len(fs) >= len(want) && fs[:len(want)] == want
	case EndsWith:
		pass = len(fs) >= len(want) && fs[len(fs)-len(want):] == want
	}
	return Value{Result: boolResult(pass), Actual: fact}, nil
}

func evalNumber(ctx context.Context, r *Rule, facts FactsResolver) (Value, error) {
	if !operatorSupported(Number, r.Operator) {
		return Value{Result: OperationNotSupported}, nil
	}
	fact, err := resolveFact(ctx, r, facts)
	if err != nil {
		return Value{}, err
	}
	if r.Operator == Contains {
		return containsCheck(fact, r.Value)
	}
	if fact == nil || r.Value == nil {
		return Value{Result: Invalid, Actual: fact}, nil
	}

	if r.Operator == DivisibleBy {
		return divisibleBy(r, fact)
	}

	cmp, err := compareNumbers(fact, r.Value)
	if err != nil {
		return Value{Actual: fact}, errors.Wrapf(err, "fact %q", r.Key)
	}
	return Value{Result: boolResult(orderingPass(r.Operator, cmp)), Actual: fact}, nil
}

// divisibleBy restricts both operands to whole-number runtime types.
// A zero divisor is an arithmetic error, not Invalid.
func divisibleBy(r *Rule, fact any) (Value, error) {
	if !isWhole(fact) {
		return Value{Actual: fact}, errors.Wrapf(ErrTypeMismatch, "fact %q: DIVISIBLE_BY requires a whole number, got %T", r.Key, fact)
	}
	if !isWhole(r.Value) {
		return Value{Actual: fact}, errors.Wrapf(ErrTypeMismatch, "DIVISIBLE_BY divisor must be a whole number, got %T", r.Value)
	}
	dividend, _ := toInt64(fact)
	divisor, _ := toInt64(r.Value)
	if divisor == 0 {
		return Value{Actual: fact}, errors.Errorf("fact %q: division by zero", r.Key)
	}
	return Value{Result: boolResult(dividend%divisor == 0), Actual: fact}, nil
}

func evalDate(ctx context.Context, r *Rule, facts FactsResolver) (Value, error) {
	if !operatorSupported(Date, r.Operator) {
		return Value{Result: OperationNotSupported}, nil
	}
	fact, err := resolveFact(ctx, r, facts)
	if err != nil {
		return Value{}, err
	}
	if r.Operator == Contains {
		return containsCheck(fact, r.Value)
	}
	if fact == nil || r.Value == nil {
		return Value{Result: Invalid, Actual: fact}, nil
	}
	ft, err := toTime(fact)
	if err != nil {
		return Value{Actual: fact}, errors.Wrapf(err, "fact %q", r.Key)
	}
	want, err := toTime(r.Value)
	if err != nil {
		return Value{Actual: fact}, errors.Wrap(err, "date rule value")
	}

	var pass bool
	switch r.Operator {
	case Equals:
		pass = ft.Equal(want)
	case IsBefore:
		pass = ft.Before(want)
	case IsAfter:
		pass = ft.After(want)
	}
	return Value{Result: boolResult(pass), Actual: fact}, nil
}

func evalSet(ctx context.Context, r *Rule, facts FactsResolver) (Value, error) {
	if !operatorSupported(SetKind, r.Operator) {
		return Value{Result: OperationNotSupported}, nil
	}
	fact, err := resolveFact(ctx, r, facts)
	if err != nil {
		return Value{}, err
	}
	if fact == nil || (r.Value == nil && len(r.Values) == 0) {
		return Value{Result: Invalid, Actual: fact}, nil
	}
	s, err := toSet(fact)
	if err != nil {
		return Value{Actual: fact}, errors.Wrapf(err, "fact %q", r.Key)
	}

	members := r.Values
	if len(members) == 0 {
		members = []any{r.Value}
	}
	for _, m := range members {
		if !hashable(m) {
			return Value{Actual: fact}, errors.Wrapf(ErrTypeMismatch, "set rule value must hold scalars, got %T", m)
		}
	}
	switch r.Operator {
	case Contains:
		for _, m := range members {
			if !s.Contains(m) {
				return Value{Result: Invalid, Actual: fact, Message: fmt.Sprintf("missing member %v", m)}, nil
			}
		}
		return Value{Result: Valid, Actual: fact}, nil
	default: // Equals
		return Value{Result: boolResult(s.Equal(NewSet(members...))), Actual: fact}, nil
	}
}

func evalRange(ctx context.Context, r *Rule, facts FactsResolver) (Value, error) {
	if !operatorSupported(Range, r.Operator) {
		return Value{Result: OperationNotSupported}, nil
	}
	// Bound configuration is checked before nullness: an unset bound is
	// a loud Failed, never a silent Invalid.
	switch r.Operator {
	case IsBefore:
		if r.Min == nil {
			return Value{}, errors.Wrap(ErrBadConfiguration, "range IS_BEFORE requires min")
		}
	case IsAfter:
		if r.Max == nil {
			return Value{}, errors.Wrap(ErrBadConfiguration, "range IS_AFTER requires max")
		}
	default:
		if r.Min == nil || r.Max == nil {
			return Value{}, errors.Wrap(ErrBadConfiguration, "range BETWEEN requires both min and max")
		}
	}

	fact, err := resolveFact(ctx, r, facts)
	if err != nil {
		return Value{}, err
	}
	if fact == nil {
		return Value{Result: Invalid}, nil
	}

	switch r.Operator {
	case IsBefore:
		cmp, err := compareBound(fact, r.Min)
		if err != nil {
			return Value{Actual: fact}, errors.Wrapf(err, "fact %q", r.Key)
		}
		return Value{Result: boolResult(cmp < 0), Actual: fact}, nil

	case IsAfter:
		cmp, err := compareBound(fact, r.Max)
		if err != nil {
			return Value{Actual: fact}, errors.Wrapf(err, "fact %q", r.Key)
		}
		return Value{Result: boolResult(cmp > 0), Actual: fact}, nil

	default: // Between / In
		low, err := compareBound(fact, r.Min)
		if err != nil {
			return Value{Actual: fact}, errors.Wrapf(err, "fact %q", r.Key)
		}
		high, err := compareBound(fact, r.Max)
		if err != nil {
			return Value{Actual: fact}, errors.Wrapf(err, "fact %q", r.Key)
		}
		aboveMin := low > 0 || (low == 0 && !r.MinExclusive)
		belowMax := high < 0 || (high == 0 && !r.MaxExclusive)
		return Value{Result: boolResult(aboveMin && belowMax), Actual: fact}, nil
	}
}

// compareBound orders a fact against a range bound. Time-shaped bounds
// force a time comparison; everything else is numeric.
func compareBound(fact, bound any) (int, error) {
	if bt, err := toTime(bound); err == nil {
		ft, err := toTime(fact)
		if err != nil {
			return 0, err
		}
		switch {
		case ft.Before(bt):
			return -1, nil
		case ft.After(bt):
			return 1, nil
		default:
			return 0, nil
		}
	}
	return compareNumbers(fact, bound)
}

// containsCheck implements the collection branch shared by the
// comparison kinds: the fact must be a set, and membership is exact
// typed equality. A set holding 7.0 does not contain the integer 7 even
// though the numeric comparator treats them as equal.
func containsCheck(fact, want any) (Value, error) {
	if fact == nil || want == nil {
		return Value{Result: Invalid, Actual: fact}, nil
	}
	if !hashable(want) {
		return Value{Actual: fact}, errors.Wrapf(ErrTypeMismatch, "CONTAINS value must be a scalar, got %T", want)
	}
	s, err := toSet(fact)
	if err != nil {
		return Value{Actual: fact}, err
	}
	return Value{Result: boolResult(s.Contains(want)), Actual: fact}, nil
}

func boolResult(pass bool) Result {
	if pass {
		return Valid
	}
	return Invalid
}
