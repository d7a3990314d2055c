package wrapper

import (
	"time"

	"github.com/pkg/errors"

	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/convert"
	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/errs"
	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/expression"
)

func init() {
	Default.MustRegister(expression.KindExtract, newExtract)
}

type extractEvaluator struct {
	base
	*expression.ExtractNode
	source Evaluator
}

func newExtract(r *Registry, node expression.Node) (Evaluator, error) {
	n, ok := node.(*expression.ExtractNode)
	if !ok {
		return nil, unexpected(node, "*expression.ExtractNode")
	}
	source, err := r.Wrap(n.Source())
	if err != nil {
		return nil, err
	}
	return &extractEvaluator{ExtractNode: n, source: source}, nil
}

func (e *extractEvaluator) Expression() expression.Node {
	return e.ExtractNode
}

func (e *extractEvaluator) Evaluate(ctx *Context, target any) (any, error) {
	v, err := e.source.Evaluate(ctx, target)
	if err != nil || v == nil {
		return nil, err
	}
	t, ok := v.(time.Time)
	if !ok {
		converted, err := ctx.convert(expression.TypeDateTime, v)
		if err != nil {
			return nil, errors.Wrapf(err, "extracting %s", e.Part())
		}
		if t, ok = converted.(time.Time); !ok {
			return nil, errors.Wrapf(errs.ErrType, "extracting %s from %T", e.Part(), v)
		}
	}
	return extract(t, e.Part())
}

func extract(t time.Time, part expression.Part) (any, error) {
	switch part {
	case expression.PartYear:
		return int64(t.Year()), nil
	case expression.PartIsoYear:
		year, _ := t.ISOWeek()
		return int64(year), nil
	case expression.PartQuarter:
		return int64((t.Month()-1)/3 + 1), nil
	case expression.PartMonth:
		return int64(t.Month()), nil
	case expression.PartWeek:
		_, week := t.ISOWeek()
		return int64(week), nil
	case expression.PartDay:
		return int64(t.Day()), nil
	case expression.PartWeekDay:
		// 1 is Sunday
		return int64(t.Weekday()) + 1, nil
	case expression.PartIsoWeekDay:
		// 1 is Monday
		return int64((t.Weekday()+6)%7) + 1, nil
	case expression.PartHour:
		return int64(t.Hour()), nil
	case expression.PartMinute:
		return int64(t.Minute()), nil
	case expression.PartSecond:
		return int64(t.Second()), nil
	case expression.PartDate:
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, t.Location()), nil
	case expression.PartTime:
		return convert.ClockOf(t), nil
	}
	return nil, errors.Wrapf(errs.ErrUnsupportedTransform, "date part %q", part)
}

func (e *extractEvaluator) operands() []Evaluator {
	return []Evaluator{e.source}
}

func (e *extractEvaluator) rebuild(ops []Evaluator) (Evaluator, error) {
	return &extractEvaluator{ExtractNode: e.WithSource(ops[0]), source: ops[0]}, nil
}
