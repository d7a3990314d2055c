package wrapper

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"syreclabs.com/go/faker"

	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/errs"
	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/expression"
	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/expression/operators"
	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/resolve"
)

type author struct {
	ID   int64
	Name string
}

func (a *author) PrimaryKey() any { return a.ID }

type book struct {
	ID        int64
	Title     string
	Pages     int
	Price     decimal.Decimal
	Rating    float64
	Published time.Time
	Author    *author
	Authors   []*author
	Scores    []any
}

func newBook() *book {
	return &book{
		ID:        1,
		Title:     faker.Lorem().Sentence(3),
		Pages:     320,
		Price:     decimal.RequireFromString("12.50"),
		Rating:    4.5,
		Published: time.Date(2024, time.March, 15, 10, 30, 45, 0, time.UTC),
		Author:    &author{ID: 7, Name: faker.Name().Name()},
		Authors:   []*author{{ID: 7}, {ID: 8}},
		Scores:    []any{2, 4, 4, 4, 5, 5, 7, 9},
	}
}

func evaluate(t *testing.T, node expression.Node, target any) any {
	t.Helper()
	ev, err := Wrap(node)
	require.NoError(t, err)
	v, err := Evaluate(ev, target)
	require.NoError(t, err)
	return v
}

func evaluateErr(t *testing.T, node expression.Node, target any) error {
	t.Helper()
	ev, err := Wrap(node)
	require.NoError(t, err)
	_, err = Evaluate(ev, target)
	return err
}

// ============================================================================
// Values and fields
// ============================================================================

func TestValue(t *testing.T) {
	assert.Equal(t, 1, evaluate(t, expression.Value(1), nil))
	assert.Nil(t, evaluate(t, expression.Value(nil), nil))
	assert.Nil(t, evaluate(t, expression.TypedValue(nil, expression.TypeInteger), nil))
	assert.Equal(t, int64(42), evaluate(t, expression.TypedValue("42", expression.TypeInteger), nil))
	assert.Equal(t, []any{1, "a"}, evaluate(t, expression.List(1, "a"), nil))

	err := evaluateErr(t, expression.TypedValue("x", expression.TypeInteger), nil)
	assert.True(t, errors.Is(err, errs.ErrType))
}

func TestField(t *testing.T) {
	b := newBook()

	assert.Equal(t, b.Title, evaluate(t, expression.F("title"), b))
	assert.Equal(t, int64(7), evaluate(t, expression.F("author"), b))
	assert.Equal(t, b.Author.Name, evaluate(t, expression.F("author__name"), b))
	assert.Equal(t, b.Author.Name, evaluate(t, expression.F("Author.Name"), b))
	assert.Equal(t, []any{int64(7), int64(8)}, evaluate(t, expression.F("authors"), b))
	assert.Equal(t, int64(320), evaluate(t, expression.Col("pages", expression.TypeInteger), b))
	assert.Equal(t, "320", evaluate(t, expression.ExpressionWrapper(expression.F("pages"), expression.TypeText), b))

	b.Author = nil
	assert.Nil(t, evaluate(t, expression.F("author__name"), b))

	err := evaluateErr(t, expression.F("isbn"), b)
	assert.True(t, errors.Is(err, resolve.ErrAttributeNotFound))
	assert.True(t, errors.Is(err, errs.ErrLookup))
}

// ============================================================================
// Arithmetic
// ============================================================================

func TestCombined(t *testing.T) {
	b := newBook()

	tests := []struct {
		name     string
		node     expression.Node
		expected any
	}{
		{"add", expression.Add(1, 2), int64(3)},
		{"integer division", expression.Div(7, 2), int64(3)},
		{"float division", expression.Div(7.0, 2), 3.5},
		{"modulo", expression.Mod(7, 3), int64(1)},
		{"bitwise and", expression.BitAnd(6, 3), int64(2)},
		{"bitwise or", expression.BitOr(6, 3), int64(7)},
		{"left shift", expression.LShift(1, 4), int64(16)},
		{"right shift", expression.RShift(16, 2), int64(4)},
		{"concatenation", expression.Add("ab", "cd"), "abcd"},
		{"null", expression.Add(nil, 1), nil},
		{"field", expression.Mul(expression.F("pages"), 2), int64(640)},
		{"decimal", expression.Add(expression.F("price"), 1), decimal.RequireFromString("13.50")},
		{"float field", expression.Sub(expression.F("rating"), 0.5), 4.0},
		{"declared output", expression.Add(1, 2).As(expression.TypeText), "3"},
		{"nested", expression.Mul(expression.Add(1, 2), expression.Sub(10, 4)), int64(18)},
		{"interval", expression.Sub(expression.F("published"), expression.Value(time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC))),
			10*time.Hour + 30*time.Minute + 45*time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := evaluate(t, tt.node, b)
			if d, ok := tt.expected.(decimal.Decimal); ok {
				assert.True(t, d.Equal(v.(decimal.Decimal)), "got %v", v)
				return
			}
			assert.Equal(t, tt.expected, v)
		})
	}
}

func TestCombined_Errors(t *testing.T) {
	err := evaluateErr(t, expression.Div(1, 0), nil)
	assert.True(t, errors.Is(err, operators.ErrDivisionByZero))

	err = evaluateErr(t, expression.Add(1, "a"), nil)
	assert.True(t, errors.Is(err, errs.ErrType))

	err = evaluateErr(t, expression.Add(decimal.NewFromInt(1), 1.5), nil)
	assert.True(t, errors.Is(err, errs.ErrType))

	err = evaluateErr(t, expression.Add(expression.F("missing"), 1), newBook())
	assert.True(t, errors.Is(err, errs.ErrLookup))
}

// ============================================================================
// Functions
// ============================================================================

func TestFunctions(t *testing.T) {
	b := newBook()

	tests := []struct {
		name     string
		node     expression.Node
		expected any
	}{
		{"coalesce", expression.Coalesce(nil, nil, "x"), "x"},
		{"coalesce of nulls", expression.Coalesce(nil, nil), nil},
		{"coalesce field", expression.Coalesce(expression.F("author__name"), "anonymous"), b.Author.Name},
		{"concat", expression.Concat("a", 1, nil, "b"), "a1b"},
		{"concat pair", expression.ConcatPair(expression.F("title"), "!"), b.Title + "!"},
		{"greatest", expression.Greatest(1, 5, nil, 3), 5},
		{"least", expression.Least(4, 2.5, 3), 2.5},
		{"greatest of nulls", expression.Greatest(nil, nil), nil},
		{"length", expression.Length("héllo"), int64(5)},
		{"length of collection", expression.Length(expression.F("scores")), int64(8)},
		{"length of null", expression.Length(nil), nil},
		{"lower", expression.Lower("ÀBC"), "àbc"},
		{"upper", expression.Upper("straße"), "STRASSE"},
		{"lower of empty", expression.Lower(""), ""},
		{"upper of null", expression.Upper(nil), nil},
		{"strindex", expression.StrIndex("héllo", "l"), int64(3)},
		{"strindex absent", expression.StrIndex("hello", "z"), int64(0)},
		{"cast to integer", expression.Cast("42", expression.TypeInteger), int64(42)},
		{"cast to text", expression.Cast(expression.F("pages"), expression.TypeText), "320"},
		{"cast to unknown", expression.Cast(3.5, expression.TypeUnknown), 3.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, evaluate(t, tt.node, b))
		})
	}

	day := evaluate(t, expression.Cast("2024-03-15", expression.TypeDate), nil)
	assert.True(t, time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC).Equal(day.(time.Time)))
}

func TestNowAndRandom(t *testing.T) {
	moment := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	ticks := 0
	clock := func() time.Time {
		ticks++
		return moment.Add(time.Duration(ticks) * time.Second)
	}
	ctx := NewContext(WithClock(clock))
	now, err := Wrap(expression.Now())
	require.NoError(t, err)

	first, second := newBook(), newBook()
	a, err := now.Evaluate(ctx, first)
	require.NoError(t, err)
	b, err := now.Evaluate(ctx, first)
	require.NoError(t, err)
	c, err := now.Evaluate(ctx, second)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, 2, ticks)

	random, err := Wrap(expression.Random())
	require.NoError(t, err)
	ctx = NewContext()
	x, err := random.Evaluate(ctx, first)
	require.NoError(t, err)
	y, err := random.Evaluate(ctx, first)
	require.NoError(t, err)
	z, err := random.Evaluate(ctx, second)
	require.NoError(t, err)

	assert.Equal(t, x, y)
	assert.NotEqual(t, x, z)
	assert.GreaterOrEqual(t, x.(float64), 0.0)
	assert.Less(t, x.(float64), 1.0)

	other, err := random.Evaluate(NewContext(), first)
	require.NoError(t, err)
	assert.NotEqual(t, x, other)
}

func TestMemoizeMappings(t *testing.T) {
	ctx := NewContext(WithRandom(func() float64 { return 0.25 }))
	random, err := Wrap(expression.Random())
	require.NoError(t, err)

	// maps are not comparable and must still be told apart
	v, err := random.Evaluate(ctx, map[string]any{"id": 1})
	require.NoError(t, err)
	assert.Equal(t, 0.25, v)
	assert.NotEmpty(t, ctx.ID().String())
}

func TestExtract(t *testing.T) {
	b := newBook()
	published := expression.F("published")

	tests := []struct {
		part     expression.Part
		expected any
	}{
		{expression.PartYear, int64(2024)},
		{expression.PartIsoYear, int64(2024)},
		{expression.PartQuarter, int64(1)},
		{expression.PartMonth, int64(3)},
		{expression.PartWeek, int64(11)},
		{expression.PartDay, int64(15)},
		{expression.PartWeekDay, int64(6)},
		{expression.PartIsoWeekDay, int64(5)},
		{expression.PartHour, int64(10)},
		{expression.PartMinute, int64(30)},
		{expression.PartSecond, int64(45)},
		{expression.PartDate, time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)},
		{expression.PartTime, time.Date(0, time.January, 1, 10, 30, 45, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(string(tt.part), func(t *testing.T) {
			assert.Equal(t, tt.expected, evaluate(t, expression.Extract(published, tt.part), b))
		})
	}

	assert.Equal(t, int64(2023), evaluate(t, expression.Extract("2023-07-01", expression.PartYear), nil))
	assert.Nil(t, evaluate(t, expression.Extract(nil, expression.PartYear), nil))
}

// ============================================================================
// Aggregates
// ============================================================================

func TestAggregates(t *testing.T) {
	b := newBook()
	scores := expression.F("scores")
	withNulls := expression.Value([]any{1, nil, 3})
	empty := expression.Value([]int{})

	tests := []struct {
		name     string
		node     expression.Node
		expected any
	}{
		{"count", expression.Count(withNulls), int64(3)},
		{"count distinct", expression.Count(expression.Value([]int{1, 1, 2}), expression.Distinct()), int64(2)},
		{"count with null", expression.Count(expression.Value([]any{1, nil, 1, 2})), int64(4)},
		{"count distinct skips null", expression.Count(expression.Value([]any{1, nil, 1, 2}), expression.Distinct()), int64(2)},
		{"sum distinct with null", expression.Sum(expression.Value([]any{2, nil, 2, 3}), expression.Distinct()), int64(5)},
		{"count of null", expression.Count(nil), int64(0)},
		{"sum", expression.Sum(withNulls), int64(4)},
		{"sum distinct", expression.Sum(expression.Value([]int{2, 2, 3}), expression.Distinct()), int64(5)},
		{"sum of nothing", expression.Sum(empty), int64(0)},
		{"sum of floats", expression.Sum(expression.Value([]float64{0.5, 1})), 1.5},
		{"avg", expression.Avg(withNulls), 2.0},
		{"max", expression.Max(scores), 9},
		{"min", expression.Min(scores), 2},
		{"variance", expression.Variance(scores), 4.0},
		{"stddev", expression.StdDev(scores), 2.0},
		{"sample variance", expression.Variance(scores, expression.Sample()), 32.0 / 7},
		{"primary keys", expression.Max(expression.F("authors")), int64(8)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := evaluate(t, tt.node, b)
			if f, ok := tt.expected.(float64); ok {
				assert.InDelta(t, f, v, 1e-9)
				return
			}
			assert.Equal(t, tt.expected, v)
		})
	}

	avg := evaluate(t, expression.Avg(expression.Value([]decimal.Decimal{decimal.NewFromInt(1), decimal.NewFromInt(2)})), nil)
	assert.True(t, decimal.RequireFromString("1.5").Equal(avg.(decimal.Decimal)))

	for _, node := range []expression.Node{expression.Max(empty), expression.Min(empty), expression.Avg(empty), expression.StdDev(expression.Value([]int{1}), expression.Sample())} {
		err := evaluateErr(t, node, nil)
		assert.True(t, errors.Is(err, ErrEmptyAggregate), node.Kind())
	}

	err := evaluateErr(t, expression.Sum(expression.F("pages")), b)
	assert.True(t, errors.Is(err, errs.ErrType))
	assert.False(t, math.IsNaN(evaluate(t, expression.StdDev(expression.Value([]int{5})), nil).(float64)))
}

// ============================================================================
// Lookups
// ============================================================================

func TestLookups(t *testing.T) {
	b := newBook()
	title := expression.Value("Hello World")
	empty := expression.Value("")
	none := expression.Value(nil)

	tests := []struct {
		name     string
		node     expression.Node
		expected bool
	}{
		{"exact", expression.Exact(expression.F("pages"), 320), true},
		{"exact mismatch", expression.Exact(expression.F("pages"), 321), false},
		{"exact across types", expression.Exact(1, "1"), false},
		{"exact nulls", expression.Exact(none, none), true},
		{"exact entity", expression.Exact(expression.F("author"), 7), true},
		{"exact time", expression.Exact(expression.F("published"), b.Published.In(time.FixedZone("X", 3600))), true},
		{"iexact", expression.Lookup(expression.KindIExact, title, "hello world"), true},
		{"iexact empty", expression.Lookup(expression.KindIExact, empty, ""), true},
		{"iexact null", expression.Lookup(expression.KindIExact, none, "x"), false},
		{"gt", expression.Gt(expression.F("price"), 12), true},
		{"gte", expression.Gte(expression.F("rating"), 4.5), true},
		{"lt", expression.Lt(expression.F("pages"), 100), false},
		{"lte", expression.Lte("abc", "abd"), true},
		{"gt null", expression.Gt(none, 1), false},
		{"in", expression.Lookup(expression.KindIn, expression.F("pages"), []int{100, 320}), true},
		{"in list", expression.Lookup(expression.KindIn, 2, expression.List(1, expression.Add(1, 1))), true},
		{"in map", expression.Lookup(expression.KindIn, "a", map[string]int{"a": 1}), true},
		{"in null", expression.Lookup(expression.KindIn, none, []any{nil}), false},
		{"contains", expression.Lookup(expression.KindContains, title, "World"), true},
		{"contains collection", expression.Lookup(expression.KindContains, expression.F("scores"), 9), true},
		{"icontains", expression.Lookup(expression.KindIContains, title, "WORLD"), true},
		{"icontains empty", expression.Lookup(expression.KindIContains, title, ""), true},
		{"startswith", expression.Lookup(expression.KindStartsWith, title, "Hello"), true},
		{"startswith case", expression.Lookup(expression.KindStartsWith, title, "hello"), false},
		{"istartswith", expression.Lookup(expression.KindIStartsWith, title, "hELLO"), true},
		{"endswith", expression.Lookup(expression.KindEndsWith, title, "World"), true},
		{"iendswith", expression.Lookup(expression.KindIEndsWith, title, "WORLD"), true},
		{"endswith null", expression.Lookup(expression.KindEndsWith, none, "x"), false},
		{"range", expression.Lookup(expression.KindRange, expression.F("pages"), []int{100, 320}), true},
		{"range lower bound", expression.Lookup(expression.KindRange, 100, expression.List(100, 320)), true},
		{"range outside", expression.Lookup(expression.KindRange, 99, []int{100, 320}), false},
		{"isnull", expression.IsNull(none, true), true},
		{"isnull value", expression.IsNull(title, true), false},
		{"is not null", expression.IsNull(title, false), true},
		{"isnull nil pointer", expression.IsNull(expression.Value((*author)(nil)), true), true},
		{"regex search", expression.Lookup(expression.KindRegex, title, `o\sW`), true},
		{"regex case", expression.Lookup(expression.KindRegex, title, `^hello`), false},
		{"iregex", expression.Lookup(expression.KindIRegex, title, `^hello`), true},
		{"regex null", expression.Lookup(expression.KindRegex, none, `.*`), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, evaluate(t, tt.node, b))
		})
	}
}

func TestLookups_Errors(t *testing.T) {
	err := evaluateErr(t, expression.Gt(1, "a"), nil)
	assert.True(t, errors.Is(err, errs.ErrType))

	err = evaluateErr(t, expression.Lookup(expression.KindRange, 1, []int{1}), nil)
	assert.True(t, errors.Is(err, errs.ErrType))

	err = evaluateErr(t, expression.Lookup(expression.KindRegex, "a", "("), nil)
	assert.True(t, errors.Is(err, errs.ErrType))

	err = evaluateErr(t, expression.Lookup(expression.KindIn, 1, 5), nil)
	assert.True(t, errors.Is(err, errs.ErrType))
}

// ============================================================================
// Connectives and conditionals
// ============================================================================

func TestConnectives(t *testing.T) {
	yes := expression.Exact(1, 1)
	no := expression.Exact(1, 2)
	unknown := expression.Value(nil)

	tests := []struct {
		name     string
		node     expression.Node
		expected bool
	}{
		{"and", expression.And(yes, yes), true},
		{"and false", expression.And(yes, no), false},
		{"and unknown", expression.And(yes, unknown), false},
		{"or", expression.Or(no, yes), true},
		{"or unknown", expression.Or(unknown, yes), true},
		{"or false", expression.Or(no, unknown), false},
		{"not", expression.Not(no), true},
		{"not unknown", expression.Not(unknown), false},
		{"empty filter", expression.EmptyFilter(), true},
		{"negated empty filter", expression.Not(expression.EmptyFilter()), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, evaluate(t, tt.node, nil))
		})
	}

	// the right operand is not evaluated once the left one decides
	assert.Equal(t, false, evaluate(t, expression.And(no, expression.F("missing")), newBook()))
	assert.Equal(t, true, evaluate(t, expression.Or(yes, expression.F("missing")), newBook()))

	err := evaluateErr(t, expression.And(yes, expression.Value(3)), nil)
	assert.True(t, errors.Is(err, errs.ErrType))
}

func TestCase(t *testing.T) {
	b := newBook()

	node := expression.Case([]*expression.WhenNode{
		expression.When(expression.Value(false), "A"),
		expression.When(expression.Value(true), "B"),
	}, expression.Default("C"))
	assert.Equal(t, "B", evaluate(t, node, b))

	node = expression.Case([]*expression.WhenNode{
		expression.When(expression.Value(false), "A"),
		expression.When(expression.Value(nil), "B"),
	}, expression.Default("C"))
	assert.Equal(t, "C", evaluate(t, node, b))

	node = expression.Case([]*expression.WhenNode{
		expression.When(expression.Filter("pages__gt", 1000), "long"),
		expression.When(expression.Gt(expression.F("pages"), 300), expression.F("title")),
	})
	assert.Equal(t, b.Title, evaluate(t, node, map[string]any{"pages": 320, "title": b.Title}))

	node = expression.Case(nil)
	assert.Nil(t, evaluate(t, node, b))

	node = expression.Case([]*expression.WhenNode{
		expression.When(expression.Exact(expression.F("pages"), 320), 1),
	}, expression.Output(expression.TypeText))
	assert.Equal(t, "1", evaluate(t, node, b))

	assert.Nil(t, evaluate(t, expression.When(expression.Value(false), "A"), b))
	assert.Equal(t, "A", evaluate(t, expression.When(expression.Value(true), "A"), b))

	err := evaluateErr(t, expression.Case([]*expression.WhenNode{
		expression.When(expression.F("missing"), "A"),
	}), b)
	assert.True(t, errors.Is(err, errs.ErrLookup))
	assert.False(t, errors.Is(err, errConditionNotSatisfied))
}
