package graph

// Comparison operators of the generated dialect. Each maps to the identical token in
// query text.
const (
	OpEq  = "="
	OpNeq = "<>"
	OpGt  = ">"
	OpLt  = "<"
	OpGte = ">="
	OpLte = "<="
)

// OpRange is only valid as a cardinality operator: the count must lie within
// [Min, Max].
const OpRange = "range"

var operators = map[string]bool{
	OpEq:  true,
	OpNeq: true,
	OpGt:  true,
	OpLt:  true,
	OpGte: true,
	OpLte: true,
}

// Operators lists the comparison operators in display order.
func Operators() []string {
	return []string{OpEq, OpNeq, OpGt, OpLt, OpGte, OpLte}
}

// ValidOperator reports whether op is a comparison operator of the dialect.
func ValidOperator(op string) bool {
	return operators[op]
}

// ValidCardinalityOperator reports whether op may be used on a cardinality bound.
func ValidCardinalityOperator(op string) bool {
	return op == "" || op == OpEq || op == OpNeq || op == OpGt || op == OpLt || op == OpRange
}
