package expression

import "github.com/krew-solutions/ascetic-hybrid-go/hybrid/expression/operators"

// Node is an immutable element of an expression tree.
type Node interface {
	Kind() Kind
	Children() []Node
}

// Aliased is implemented by nodes standing in for another node, such as
// evaluators wrapping the expression they evaluate.
type Aliased interface {
	Node
	Expression() Node
}

// Unwrap follows Aliased nodes down to the aliased expression.
func Unwrap(n Node) Node {
	for n != nil {
		a, ok := n.(Aliased)
		if !ok {
			return n
		}
		inner := a.Expression()
		if inner == nil || inner == n {
			return n
		}
		n = inner
	}
	return n
}

// Expr returns v when it is already a node and a value node otherwise.
func Expr(v any) Node {
	if n, ok := v.(Node); ok {
		return n
	}
	return Value(v)
}

func exprs(vs []any) []Node {
	nodes := make([]Node, 0, len(vs))
	for _, v := range vs {
		nodes = append(nodes, Expr(v))
	}
	return nodes
}

func Value(value any) *ValueNode {
	return &ValueNode{value: value}
}

func TypedValue(value any, output DataType) *ValueNode {
	return &ValueNode{value: value, output: output}
}

type ValueNode struct {
	value  any
	output DataType
}

func (n *ValueNode) Value() any        { return n.value }
func (n *ValueNode) Output() DataType  { return n.output }
func (n *ValueNode) Kind() Kind        { return KindValue }
func (n *ValueNode) Children() []Node  { return nil }
func (n *ValueNode) attributes() []any { return []any{n.value, n.output} }

// List groups expressions evaluated into a slice, e.g. the right side of
// an "in" or "range" lookup whose items are transformed one by one.
func List(items ...any) *ListNode {
	return &ListNode{items: exprs(items)}
}

type ListNode struct {
	items []Node
}

func (n *ListNode) Items() []Node     { return n.items }
func (n *ListNode) Kind() Kind        { return KindList }
func (n *ListNode) Children() []Node  { return n.items }
func (n *ListNode) attributes() []any { return nil }

func Combine(lhs any, connector operators.Operator, rhs any) *CombinedNode {
	return &CombinedNode{
		lhs:       Expr(lhs),
		connector: connector,
		rhs:       Expr(rhs),
	}
}

func Add(lhs, rhs any) *CombinedNode    { return Combine(lhs, operators.OperatorAdd, rhs) }
func Sub(lhs, rhs any) *CombinedNode    { return Combine(lhs, operators.OperatorSub, rhs) }
func Mul(lhs, rhs any) *CombinedNode    { return Combine(lhs, operators.OperatorMul, rhs) }
func Div(lhs, rhs any) *CombinedNode    { return Combine(lhs, operators.OperatorDiv, rhs) }
func Mod(lhs, rhs any) *CombinedNode    { return Combine(lhs, operators.OperatorMod, rhs) }
func BitAnd(lhs, rhs any) *CombinedNode { return Combine(lhs, operators.OperatorBitAnd, rhs) }
func BitOr(lhs, rhs any) *CombinedNode  { return Combine(lhs, operators.OperatorBitOr, rhs) }
func LShift(lhs, rhs any) *CombinedNode { return Combine(lhs, operators.OperatorLshift, rhs) }
func RShift(lhs, rhs any) *CombinedNode { return Combine(lhs, operators.OperatorRshift, rhs) }

// CombinedNode joins two expressions with an arithmetic or bitwise connector.
type CombinedNode struct {
	lhs       Node
	connector operators.Operator
	rhs       Node
	output    DataType
}

func (n *CombinedNode) LHS() Node                     { return n.lhs }
func (n *CombinedNode) RHS() Node                     { return n.rhs }
func (n *CombinedNode) Connector() operators.Operator { return n.connector }
func (n *CombinedNode) Output() DataType              { return n.output }
func (n *CombinedNode) Kind() Kind                    { return KindCombined }
func (n *CombinedNode) Children() []Node              { return []Node{n.lhs, n.rhs} }
func (n *CombinedNode) attributes() []any             { return []any{n.connector, n.output} }

// As returns a copy declaring the output type of the combination.
func (n *CombinedNode) As(output DataType) *CombinedNode {
	c := *n
	c.output = output
	return &c
}

// WithOperands returns a copy over other operands.
func (n *CombinedNode) WithOperands(lhs, rhs Node) *CombinedNode {
	c := *n
	c.lhs, c.rhs = lhs, rhs
	return &c
}

// F references a field of the evaluated object, or a computed property of
// its type, by name. Relations are traversed with "__" or ".".
func F(name string) *FieldNode {
	return &FieldNode{name: name}
}

type FieldNode struct {
	name string
}

func (n *FieldNode) Name() string      { return n.name }
func (n *FieldNode) Kind() Kind        { return KindF }
func (n *FieldNode) Children() []Node  { return nil }
func (n *FieldNode) attributes() []any { return []any{n.name} }

// Col is a field reference resolved against a model.
func Col(path string, output DataType) *ColumnNode {
	return &ColumnNode{path: path, output: output}
}

type ColumnNode struct {
	path   string
	output DataType
}

func (n *ColumnNode) Path() string      { return n.path }
func (n *ColumnNode) Output() DataType  { return n.output }
func (n *ColumnNode) Kind() Kind        { return KindCol }
func (n *ColumnNode) Children() []Node  { return nil }
func (n *ColumnNode) attributes() []any { return []any{n.path, n.output} }

// ExpressionWrapper declares the output type of an arbitrary expression.
func ExpressionWrapper(expr any, output DataType) *WrapperNode {
	return &WrapperNode{expr: Expr(expr), output: output}
}

type WrapperNode struct {
	expr   Node
	output DataType
}

func (n *WrapperNode) Inner() Node       { return n.expr }
func (n *WrapperNode) Output() DataType  { return n.output }
func (n *WrapperNode) Kind() Kind        { return KindWrapper }
func (n *WrapperNode) Children() []Node  { return []Node{n.expr} }
func (n *WrapperNode) attributes() []any { return []any{n.output} }

// WithInner returns a copy wrapping another expression.
func (n *WrapperNode) WithInner(expr Node) *WrapperNode {
	c := *n
	c.expr = expr
	return &c
}
