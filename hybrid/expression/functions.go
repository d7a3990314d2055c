package expression

// Function builds a call of the named function over sources. Cast reads its
// target type from output; other functions use output only for conversion.
func Function(function Kind, output DataType, sources ...any) *FuncNode {
	return &FuncNode{function: function, sources: exprs(sources), output: output}
}

func Cast(expr any, output DataType) *FuncNode { return Function(KindCast, output, expr) }
func Coalesce(exprs ...any) *FuncNode          { return Function(KindCoalesce, TypeUnknown, exprs...) }
func Concat(exprs ...any) *FuncNode            { return Function(KindConcat, TypeText, exprs...) }
func ConcatPair(lhs, rhs any) *FuncNode        { return Function(KindConcatPair, TypeText, lhs, rhs) }
func Greatest(exprs ...any) *FuncNode          { return Function(KindGreatest, TypeUnknown, exprs...) }
func Least(exprs ...any) *FuncNode             { return Function(KindLeast, TypeUnknown, exprs...) }
func Length(expr any) *FuncNode                { return Function(KindLength, TypeInteger, expr) }
func Lower(expr any) *FuncNode                 { return Function(KindLower, TypeText, expr) }
func Upper(expr any) *FuncNode                 { return Function(KindUpper, TypeText, expr) }
func Now() *FuncNode                           { return Function(KindNow, TypeDateTime) }
func Random() *FuncNode                        { return Function(KindRandom, TypeFloat) }

// StrIndex returns the 1-based position of substr in str, 0 when absent.
func StrIndex(str, substr any) *FuncNode {
	return Function(KindStrIndex, TypeInteger, str, substr)
}

type FuncNode struct {
	function Kind
	sources  []Node
	output   DataType
}

func (n *FuncNode) Function() Kind    { return n.function }
func (n *FuncNode) Sources() []Node   { return n.sources }
func (n *FuncNode) Output() DataType  { return n.output }
func (n *FuncNode) Kind() Kind        { return n.function }
func (n *FuncNode) Children() []Node  { return n.sources }
func (n *FuncNode) attributes() []any { return []any{n.function, n.output} }

// WithSources returns a copy of the call over other sources.
func (n *FuncNode) WithSources(sources []Node) *FuncNode {
	c := *n
	c.sources = sources
	return &c
}

// Extract takes a part of a date, datetime or time value.
func Extract(source any, part Part) *ExtractNode {
	return &ExtractNode{source: Expr(source), part: part}
}

type ExtractNode struct {
	source Node
	part   Part
}

func (n *ExtractNode) Source() Node      { return n.source }
func (n *ExtractNode) Part() Part        { return n.part }
func (n *ExtractNode) Kind() Kind        { return KindExtract }
func (n *ExtractNode) Children() []Node  { return []Node{n.source} }
func (n *ExtractNode) attributes() []any { return []any{n.part} }

func (n *ExtractNode) WithSource(source Node) *ExtractNode {
	c := *n
	c.source = source
	return &c
}

// Output is the data type of the extracted part.
func (n *ExtractNode) Output() DataType {
	switch n.part {
	case PartDate:
		return TypeDate
	case PartTime:
		return TypeTime
	}
	return TypeInteger
}

type AggregateOption func(*AggregateNode)

// Distinct makes the aggregate consider each distinct value once.
func Distinct() AggregateOption {
	return func(n *AggregateNode) { n.distinct = true }
}

// Sample switches stddev and variance from population to sample statistics.
func Sample() AggregateOption {
	return func(n *AggregateNode) { n.sample = true }
}

func Aggregate(function Kind, source any, opts ...AggregateOption) *AggregateNode {
	n := &AggregateNode{function: function, source: Expr(source)}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func Avg(source any, opts ...AggregateOption) *AggregateNode {
	return Aggregate(KindAvg, source, opts...)
}
func Count(source any, opts ...AggregateOption) *AggregateNode {
	return Aggregate(KindCount, source, opts...)
}
func Max(source any, opts ...AggregateOption) *AggregateNode {
	return Aggregate(KindMax, source, opts...)
}
func Min(source any, opts ...AggregateOption) *AggregateNode {
	return Aggregate(KindMin, source, opts...)
}
func Sum(source any, opts ...AggregateOption) *AggregateNode {
	return Aggregate(KindSum, source, opts...)
}
func StdDev(source any, opts ...AggregateOption) *AggregateNode {
	return Aggregate(KindStdDev, source, opts...)
}
func Variance(source any, opts ...AggregateOption) *AggregateNode {
	return Aggregate(KindVariance, source, opts...)
}

// AggregateNode reduces the collection its source evaluates to.
type AggregateNode struct {
	function Kind
	source   Node
	distinct bool
	sample   bool
}

func (n *AggregateNode) Function() Kind    { return n.function }
func (n *AggregateNode) Source() Node      { return n.source }
func (n *AggregateNode) IsDistinct() bool  { return n.distinct }
func (n *AggregateNode) IsSample() bool    { return n.sample }
func (n *AggregateNode) Kind() Kind        { return n.function }
func (n *AggregateNode) Children() []Node  { return []Node{n.source} }
func (n *AggregateNode) attributes() []any { return []any{n.function, n.distinct, n.sample} }

func (n *AggregateNode) WithSource(source Node) *AggregateNode {
	c := *n
	c.source = source
	return &c
}
