package expression

// Lookup compares lhs against rhs with the named predicate.
func Lookup(name Kind, lhs, rhs any) *LookupNode {
	return &LookupNode{name: name, lhs: Expr(lhs), rhs: Expr(rhs)}
}

func Exact(lhs, rhs any) *LookupNode { return Lookup(KindExact, lhs, rhs) }
func Gt(lhs, rhs any) *LookupNode    { return Lookup(KindGt, lhs, rhs) }
func Gte(lhs, rhs any) *LookupNode   { return Lookup(KindGte, lhs, rhs) }
func Lt(lhs, rhs any) *LookupNode    { return Lookup(KindLt, lhs, rhs) }
func Lte(lhs, rhs any) *LookupNode   { return Lookup(KindLte, lhs, rhs) }
func IsNull(lhs any, isNull bool) *LookupNode {
	return Lookup(KindIsNull, lhs, isNull)
}

type LookupNode struct {
	name Kind
	lhs  Node
	rhs  Node
}

func (n *LookupNode) Name() Kind        { return n.name }
func (n *LookupNode) LHS() Node         { return n.lhs }
func (n *LookupNode) RHS() Node         { return n.rhs }
func (n *LookupNode) Kind() Kind        { return n.name }
func (n *LookupNode) Children() []Node  { return []Node{n.lhs, n.rhs} }
func (n *LookupNode) attributes() []any { return []any{n.name} }

func (n *LookupNode) WithOperands(lhs, rhs Node) *LookupNode {
	c := *n
	c.lhs, c.rhs = lhs, rhs
	return &c
}
