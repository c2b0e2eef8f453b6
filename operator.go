package arbiter

// Kind identifies the variant of a rule. The composite kinds (And, Or,
// Not) are fixed; leaf kinds are dispatched through the evaluator
// registry and can be extended with RegisterKind.
type Kind string

const (
	And      Kind = "and"
	Or       Kind = "or"
	Not      Kind = "not"
	Constant Kind = "constant"
	Exists   Kind = "exists"
	Null     Kind = "null"
	String   Kind = "string"
	Number   Kind = "number"
	SetKind  Kind = "set"
	Date     Kind = "date"
	Range    Kind = "range"
)

// Operator is the comparison a leaf rule applies to a resolved fact.
type Operator string

const (
	Equals           Operator = "EQUALS"
	GreaterThan      Operator = "GREATER_THAN"
	GreaterThanEqual Operator = "GREATER_THAN_EQUAL"
	LessThan         Operator = "LESS_THAN"
	LessThanEqual    Operator = "LESS_THAN_EQUAL"
	StartsWith       Operator = "STARTS_WITH"
	EndsWith         Operator = "ENDS_WITH"
	DivisibleBy      Operator = "DIVISIBLE_BY"
	Contains         Operator = "CONTAINS"
	Between          Operator = "BETWEEN"
	In               Operator = "IN" // alias for Between
	IsBefore         Operator = "IS_BEFORE"
	IsAfter          Operator = "IS_AFTER"
)

// supportedOperators lists, per built-in leaf kind, the operators the kind
// accepts. Contains is the only collection operator: the resolved fact
// must be a Set. Requesting any operator outside the kind's list yields
// OperationNotSupported without resolving the fact.
var supportedOperators = map[Kind]map[Operator]bool{
	String: {
		Equals:           true,
		GreaterThan:      true,
		GreaterThanEqual: true,
		LessThan:         true,
		LessThanEqual:    true,
		StartsWith:       true,
		EndsWith:         true,
		Contains:         true,
	},
	Number: {
		Equals:           true,
		GreaterThan:      true,
		GreaterThanEqual: true,
		LessThan:         true,
		LessThanEqual:    true,
		DivisibleBy:      true,
		Contains:         true,
	},
	Date: {
		Equals:   true,
		IsBefore: true,
		IsAfter:  true,
		Contains: true,
	},
	SetKind: {
		Equals:   true,
		Contains: true,
	},
	Range: {
		Between:  true,
		In:       true,
		IsBefore: true,
		IsAfter:  true,
	},
}

func operatorSupported(k Kind, op Operator) bool {
	ops, ok := supportedOperators[k]
	if !ok {
		return false
	}
	return ops[op]
}
