package expression

// When pairs a condition with the result it selects. The condition is a Q
// or any expression evaluating to a boolean.
func When(condition Node, result any) *WhenNode {
	return &WhenNode{condition: condition, result: Expr(result)}
}

type WhenNode struct {
	condition Node
	result    Node
}

func (n *WhenNode) Condition() Node   { return n.condition }
func (n *WhenNode) Result() Node      { return n.result }
func (n *WhenNode) Kind() Kind        { return KindWhen }
func (n *WhenNode) Children() []Node  { return []Node{n.condition, n.result} }
func (n *WhenNode) attributes() []any { return nil }

func (n *WhenNode) WithOperands(condition, result Node) *WhenNode {
	return &WhenNode{condition: condition, result: result}
}

type CaseOption func(*CaseNode)

// Default sets the result of a case none of whose branches is satisfied.
func Default(result any) CaseOption {
	return func(n *CaseNode) { n.def = Expr(result) }
}

// Output declares the output type of a case.
func Output(output DataType) CaseOption {
	return func(n *CaseNode) { n.output = output }
}

func Case(whens []*WhenNode, opts ...CaseOption) *CaseNode {
	n := &CaseNode{whens: whens, def: Value(nil)}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// CaseNode selects the result of the first satisfied branch.
type CaseNode struct {
	whens  []*WhenNode
	def    Node
	output DataType
}

func (n *CaseNode) Whens() []*WhenNode { return n.whens }
func (n *CaseNode) Default() Node      { return n.def }
func (n *CaseNode) Output() DataType   { return n.output }
func (n *CaseNode) Kind() Kind         { return KindCase }
func (n *CaseNode) attributes() []any  { return []any{n.output} }

func (n *CaseNode) Children() []Node {
	children := make([]Node, 0, len(n.whens)+1)
	for _, w := range n.whens {
		children = append(children, w)
	}
	return append(children, n.def)
}

func (n *CaseNode) WithBranches(whens []*WhenNode, def Node) *CaseNode {
	c := *n
	c.whens, c.def = whens, def
	return &c
}
