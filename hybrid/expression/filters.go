package expression

import "github.com/krew-solutions/ascetic-hybrid-go/hybrid/expression/operators"

// QChild is a child of a Q: either a nested Q or a filter argument.
type QChild interface {
	qChild()
}

// Arg is a single "field__transform__lookup=value" filter argument. Value
// is a plain value or an expression node.
type Arg struct {
	Name  string
	Value any
}

func (Arg) qChild() {}

// Q builds a filter joining its children with AND.
func Q(children ...QChild) *QNode {
	return &QNode{children: children, connector: operators.OperatorAnd}
}

// Filter builds a Q holding a single argument.
func Filter(name string, value any) *QNode {
	return Q(Arg{Name: name, Value: value})
}

// QNode is an unexpanded filter in the compact argument syntax.
type QNode struct {
	children  []QChild
	connector operators.Operator
	negated   bool
}

func (*QNode) qChild() {}

func (q *QNode) Args() []QChild                { return q.children }
func (q *QNode) Connector() operators.Operator { return q.connector }
func (q *QNode) Negated() bool                 { return q.negated }
func (q *QNode) Kind() Kind                    { return KindQ }
func (q *QNode) Children() []Node              { return nil }
func (q *QNode) attributes() []any             { return []any{q.children, q.connector, q.negated} }

func (q *QNode) And(other *QNode) *QNode {
	return q.combine(other, operators.OperatorAnd)
}

func (q *QNode) Or(other *QNode) *QNode {
	return q.combine(other, operators.OperatorOr)
}

// Negate returns the negation of q.
func (q *QNode) Negate() *QNode {
	return &QNode{children: []QChild{q}, connector: operators.OperatorAnd, negated: true}
}

func (q *QNode) combine(other *QNode, connector operators.Operator) *QNode {
	if len(other.children) == 0 {
		return q
	}
	if len(q.children) == 0 {
		return other
	}
	return &QNode{children: []QChild{q, other}, connector: connector}
}

// And is the conjunction of two expanded filters.
func And(lhs, rhs Node) *AndNode {
	return &AndNode{lhs: lhs, rhs: rhs}
}

type AndNode struct {
	lhs Node
	rhs Node
}

func (n *AndNode) LHS() Node         { return n.lhs }
func (n *AndNode) RHS() Node         { return n.rhs }
func (n *AndNode) Kind() Kind        { return KindAnd }
func (n *AndNode) Children() []Node  { return []Node{n.lhs, n.rhs} }
func (n *AndNode) attributes() []any { return nil }

// Or is the disjunction of two expanded filters.
func Or(lhs, rhs Node) *OrNode {
	return &OrNode{lhs: lhs, rhs: rhs}
}

type OrNode struct {
	lhs Node
	rhs Node
}

func (n *OrNode) LHS() Node         { return n.lhs }
func (n *OrNode) RHS() Node         { return n.rhs }
func (n *OrNode) Kind() Kind        { return KindOr }
func (n *OrNode) Children() []Node  { return []Node{n.lhs, n.rhs} }
func (n *OrNode) attributes() []any { return nil }

func Not(inner Node) *NotNode {
	return &NotNode{inner: inner}
}

type NotNode struct {
	inner Node
}

func (n *NotNode) Inner() Node       { return n.inner }
func (n *NotNode) Kind() Kind        { return KindNot }
func (n *NotNode) Children() []Node  { return []Node{n.inner} }
func (n *NotNode) attributes() []any { return nil }

var emptyFilter = &EmptyFilterNode{}

// EmptyFilter is the filter without conditions. It matches everything and
// is absorbed when joined with another filter.
func EmptyFilter() *EmptyFilterNode {
	return emptyFilter
}

type EmptyFilterNode struct{}

func (n *EmptyFilterNode) Kind() Kind        { return KindEmptyFilter }
func (n *EmptyFilterNode) Children() []Node  { return nil }
func (n *EmptyFilterNode) attributes() []any { return nil }

// IsEmptyFilter reports whether n is the empty filter.
func IsEmptyFilter(n Node) bool {
	_, ok := Unwrap(n).(*EmptyFilterNode)
	return ok
}

// Any holds when predicate holds for at least one item of the collection
// the relation path leads to. The predicate is evaluated against the items.
func Any(path string, predicate Node) *AnyNode {
	return &AnyNode{path: path, predicate: predicate}
}

type AnyNode struct {
	path      string
	predicate Node
}

func (n *AnyNode) Path() string      { return n.path }
func (n *AnyNode) Predicate() Node   { return n.predicate }
func (n *AnyNode) Kind() Kind        { return KindAny }
func (n *AnyNode) Children() []Node  { return []Node{n.predicate} }
func (n *AnyNode) attributes() []any { return []any{n.path} }

func (n *AnyNode) WithPredicate(predicate Node) *AnyNode {
	return &AnyNode{path: n.path, predicate: predicate}
}
