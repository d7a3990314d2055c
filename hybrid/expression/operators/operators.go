package operators

type Operator string

const (
	// Comparison

	OperatorEq  Operator = "="
	OperatorGt  Operator = ">"
	OperatorLt  Operator = "<"
	OperatorGte Operator = ">="
	OperatorLte Operator = "<="
	OperatorNe  Operator = "!="
	OperatorIs  Operator = "IS"

	// Logical operators

	OperatorAnd Operator = "AND"
	OperatorOr  Operator = "OR"
	OperatorNot Operator = "NOT"

	// Mathematical

	OperatorAdd Operator = "+"
	OperatorSub Operator = "-"
	OperatorMul Operator = "*"
	OperatorDiv Operator = "/"
	OperatorMod Operator = "%"

	OperatorPos Operator = "+pos"
	OperatorNeg Operator = "-neg"

	// Bitwise

	OperatorBitAnd Operator = "&"
	OperatorBitOr  Operator = "|"
	OperatorLshift Operator = "<<"
	OperatorRshift Operator = ">>"

	// Postfix

	OperatorIsNull    Operator = "IS NULL"
	OperatorIsNotNull Operator = "IS NOT NULL"
)

// EqualOperand and its siblings let value objects take part in comparisons
// without registering typed operators.

type EqualOperand interface {
	Equal(EqualOperand) bool
}

type GreaterThanOperand interface {
	GreaterThan(GreaterThanOperand) bool
}

type GreaterThanEqualOperand interface {
	GreaterThanEqual(GreaterThanEqualOperand) bool
}

type LessThanOperand interface {
	LessThan(LessThanOperand) bool
}

type LessThanEqualOperand interface {
	LessThanEqual(LessThanEqualOperand) bool
}
