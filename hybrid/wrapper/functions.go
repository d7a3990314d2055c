package wrapper

import (
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/errs"
	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/expression"
	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/expression/operators"
)

// funcOp applies a function to its evaluated sources.
type funcOp func(ctx *Context, n *expression.FuncNode, args []any) (any, error)

var funcOps = map[expression.Kind]funcOp{
	expression.KindCast:       castOp,
	expression.KindConcat:     concatOp,
	expression.KindConcatPair: concatOp,
	expression.KindGreatest:   extremumOp(1),
	expression.KindLeast:      extremumOp(-1),
	expression.KindLength:     unary(lengthOp),
	expression.KindLower:      unary(caseOp(func() cases.Caser { return cases.Lower(language.Und) })),
	expression.KindUpper:      unary(caseOp(func() cases.Caser { return cases.Upper(language.Und) })),
	expression.KindStrIndex:   strIndexOp,
}

func init() {
	for kind := range funcOps {
		Default.MustRegister(kind, newFunc)
	}
	Default.MustRegister(expression.KindCoalesce, newCoalesce)
	Default.MustRegister(expression.KindNow, newMemoized)
	Default.MustRegister(expression.KindRandom, newMemoized)
}

type funcEvaluator struct {
	base
	*expression.FuncNode
	sources []Evaluator
	op      funcOp
}

func newFunc(r *Registry, node expression.Node) (Evaluator, error) {
	n, ok := node.(*expression.FuncNode)
	if !ok {
		return nil, unexpected(node, "*expression.FuncNode")
	}
	op, ok := funcOps[n.Function()]
	if !ok {
		return nil, errors.Wrapf(ErrNotRegistered, "function %q", n.Function())
	}
	sources, err := r.wrapAll(n.Sources())
	if err != nil {
		return nil, err
	}
	return &funcEvaluator{FuncNode: n, sources: sources, op: op}, nil
}

func (e *funcEvaluator) Expression() expression.Node {
	return e.FuncNode
}

// Evaluate evaluates the sources in order and applies the function.
func (e *funcEvaluator) Evaluate(ctx *Context, target any) (any, error) {
	args, err := evaluateAll(ctx, e.sources, target)
	if err != nil {
		return nil, err
	}
	v, err := e.op(ctx, e.FuncNode, args)
	if err != nil {
		return nil, errors.Wrap(err, string(e.Function()))
	}
	return v, nil
}

func (e *funcEvaluator) operands() []Evaluator {
	return e.sources
}

func (e *funcEvaluator) rebuild(ops []Evaluator) (Evaluator, error) {
	return &funcEvaluator{FuncNode: e.WithSources(nodes(ops)), sources: ops, op: e.op}, nil
}

func nodes(evs []Evaluator) []expression.Node {
	ns := make([]expression.Node, len(evs))
	for i, ev := range evs {
		ns[i] = ev
	}
	return ns
}

func unary(fn func(v any) (any, error)) funcOp {
	return func(_ *Context, n *expression.FuncNode, args []any) (any, error) {
		if len(args) != 1 {
			return nil, errors.Errorf("takes one argument, %d given", len(args))
		}
		return fn(args[0])
	}
}

func castOp(ctx *Context, n *expression.FuncNode, args []any) (any, error) {
	if len(args) != 1 {
		return nil, errors.Errorf("takes one argument, %d given", len(args))
	}
	return ctx.convert(n.Output(), args[0])
}

// concatOp joins the text of its arguments; NULL joins as an empty string.
func concatOp(_ *Context, _ *expression.FuncNode, args []any) (any, error) {
	var sb strings.Builder
	for _, arg := range args {
		if arg == nil {
			continue
		}
		s, err := cast.ToStringE(operators.Underlying(arg))
		if err != nil {
			return nil, errors.Wrap(errs.ErrType, err.Error())
		}
		sb.WriteString(s)
	}
	return sb.String(), nil
}

// extremumOp picks the greatest (sign 1) or least (sign -1) argument,
// ignoring NULLs.
func extremumOp(sign int) funcOp {
	return func(ctx *Context, _ *expression.FuncNode, args []any) (any, error) {
		var best any
		for _, arg := range args {
			if arg == nil {
				continue
			}
			if best == nil {
				best = arg
				continue
			}
			c, err := ctx.operators.Compare(arg, best)
			if err != nil {
				return nil, err
			}
			if c*sign > 0 {
				best = arg
			}
		}
		return best, nil
	}
}

// lengthOp counts the characters of text and the items of collections.
func lengthOp(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case string:
		return int64(utf8.RuneCountInString(x)), nil
	case []byte:
		return int64(len(x)), nil
	}
	if l, ok := items(v); ok {
		return int64(len(l)), nil
	}
	s, err := cast.ToStringE(operators.Underlying(v))
	if err != nil {
		return nil, errors.Wrap(errs.ErrType, err.Error())
	}
	return int64(utf8.RuneCountInString(s)), nil
}

// caseOp maps the case of text. Empty values are returned as they are.
func caseOp(caser func() cases.Caser) func(v any) (any, error) {
	return func(v any) (any, error) {
		if isNil(v) {
			return v, nil
		}
		s, err := cast.ToStringE(operators.Underlying(v))
		if err != nil {
			return nil, errors.Wrap(errs.ErrType, err.Error())
		}
		if s == "" {
			return v, nil
		}
		return caser().String(s), nil
	}
}

// strIndexOp is the 1-based character position of a substring, 0 when
// it does not occur.
func strIndexOp(_ *Context, _ *expression.FuncNode, args []any) (any, error) {
	if len(args) != 2 {
		return nil, errors.Errorf("takes two arguments, %d given", len(args))
	}
	if args[0] == nil || args[1] == nil {
		return nil, nil
	}
	s, err := cast.ToStringE(operators.Underlying(args[0]))
	if err != nil {
		return nil, errors.Wrap(errs.ErrType, err.Error())
	}
	sub, err := cast.ToStringE(operators.Underlying(args[1]))
	if err != nil {
		return nil, errors.Wrap(errs.ErrType, err.Error())
	}
	i := strings.Index(s, sub)
	if i < 0 {
		return int64(0), nil
	}
	return int64(utf8.RuneCountInString(s[:i]) + 1), nil
}

type coalesceEvaluator struct {
	base
	*expression.FuncNode
	sources []Evaluator
}

func newCoalesce(r *Registry, node expression.Node) (Evaluator, error) {
	n, ok := node.(*expression.FuncNode)
	if !ok {
		return nil, unexpected(node, "*expression.FuncNode")
	}
	sources, err := r.wrapAll(n.Sources())
	if err != nil {
		return nil, err
	}
	return &coalesceEvaluator{FuncNode: n, sources: sources}, nil
}

func (e *coalesceEvaluator) Expression() expression.Node {
	return e.FuncNode
}

// Evaluate returns the first source that is not NULL. Sources after it are
// not evaluated.
func (e *coalesceEvaluator) Evaluate(ctx *Context, target any) (any, error) {
	for _, src := range e.sources {
		v, err := src.Evaluate(ctx, target)
		if err != nil {
			return nil, err
		}
		if v != nil {
			return v, nil
		}
	}
	return nil, nil
}

func (e *coalesceEvaluator) operands() []Evaluator {
	return e.sources
}

func (e *coalesceEvaluator) rebuild(ops []Evaluator) (Evaluator, error) {
	return &coalesceEvaluator{FuncNode: e.WithSources(nodes(ops)), sources: ops}, nil
}

// memoizedEvaluator serves Now and Random, whose value is computed once per
// target in a context.
type memoizedEvaluator struct {
	base
	*expression.FuncNode
}

func newMemoized(_ *Registry, node expression.Node) (Evaluator, error) {
	n, ok := node.(*expression.FuncNode)
	if !ok {
		return nil, unexpected(node, "*expression.FuncNode")
	}
	return &memoizedEvaluator{FuncNode: n}, nil
}

func (e *memoizedEvaluator) Expression() expression.Node {
	return e.FuncNode
}

func (e *memoizedEvaluator) Evaluate(ctx *Context, target any) (any, error) {
	return ctx.memoize(e.FuncNode, target, func() (any, error) {
		switch e.Function() {
		case expression.KindNow:
			return ctx.clock(), nil
		case expression.KindRandom:
			return ctx.random(), nil
		}
		return nil, errors.Wrapf(ErrNotRegistered, "function %q", e.Function())
	})
}
