package property

import (
	"errors"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"syreclabs.com/go/faker"

	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/errs"
	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/expression"
	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/wrapper"
)

type book struct {
	ID        int64
	Title     string
	Pages     int
	Price     decimal.Decimal
	Published time.Time
}

func newBook(title string, pages int) *book {
	return &book{
		ID:        int64(faker.Number().NumberInt(3)),
		Title:     title,
		Pages:     pages,
		Price:     decimal.RequireFromString("12.50"),
		Published: time.Date(2024, time.March, 15, 10, 30, 0, 0, time.UTC),
	}
}

type bookProperties struct {
	set                              *Set[*book]
	shout, thick, gross, label, year *Property[*book]
}

func newBookProperties(opts ...SetOption) *bookProperties {
	s := NewSet[*book](opts...)
	return &bookProperties{
		set: s,
		shout: s.Declare("shout", func(*Set[*book]) expression.Node {
			return expression.Upper(expression.F("title"))
		}),
		thick: s.Declare("thick", func(*Set[*book]) expression.Node {
			return expression.Case([]*expression.WhenNode{
				expression.When(expression.Filter("pages__gte", 300), true),
			}, expression.Default(false))
		}, WithOutput(expression.TypeBoolean)),
		gross: s.Declare("gross", func(*Set[*book]) expression.Node {
			return expression.Mul(expression.F("price"), 2)
		}, WithOutput(expression.TypeDecimal)),
		label: s.Declare("label", func(*Set[*book]) expression.Node {
			return expression.Concat(expression.F("shout"), " / ", expression.F("pages"))
		}),
		year: s.Declare("year", func(*Set[*book]) expression.Node {
			return expression.Extract(expression.F("published"), expression.PartYear)
		}),
	}
}

func TestProperty_Value(t *testing.T) {
	props := newBookProperties()
	dune, emma := newBook("Dune", 412), newBook("Emma", 150)

	v, err := props.shout.Value(dune)
	require.NoError(t, err)
	assert.Equal(t, "DUNE", v)

	v, err = props.thick.Value(dune)
	require.NoError(t, err)
	assert.Equal(t, true, v)
	v, err = props.thick.Value(emma)
	require.NoError(t, err)
	assert.Equal(t, false, v)

	v, err = props.gross.Value(dune)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("25").Equal(v.(decimal.Decimal)), "got %v", v)

	v, err = props.label.Value(emma)
	require.NoError(t, err)
	assert.Equal(t, "EMMA / 150", v)

	v, err = props.year.Value(dune)
	require.NoError(t, err)
	assert.EqualValues(t, 2024, v)

	require.NoError(t, props.set.Validate())
}

func TestProperty_Type(t *testing.T) {
	props := newBookProperties()
	dune := newBook("Dune", 412)

	named := props.shout.Type()
	assert.Equal(t, "shout", named.Name())
	assert.Equal(t, KindProperty, named.Kind())
	assert.Same(t, named, props.shout.Type())

	ev, err := wrapper.Wrap(expression.Concat(named, "!"))
	require.NoError(t, err)
	v, err := wrapper.Evaluate(ev, dune)
	require.NoError(t, err)
	assert.Equal(t, "DUNE!", v)

	ref, ok := props.set.Property("thick")
	require.True(t, ok)
	assert.Same(t, props.thick.Type(), ref)
	_, ok = props.set.Property("isbn")
	assert.False(t, ok)
}

func TestProperty_WithDependencies(t *testing.T) {
	props := newBookProperties()

	deps, err := props.label.Type().WithDependencies()
	require.NoError(t, err)
	require.Len(t, deps, 2)
	assert.Same(t, props.label.Type(), deps[0])
	assert.Same(t, props.shout.Type(), deps[1])

	deps, err = props.shout.Type().WithDependencies()
	require.NoError(t, err)
	require.Len(t, deps, 1)
	assert.Same(t, props.shout.Type(), deps[0])

	// declaration order, each once
	both := props.set.Declare("both", func(s *Set[*book]) expression.Node {
		return expression.Concat(expression.F("label"), expression.F("shout"), expression.F("label"), props.gross.Type())
	})
	deps, err = both.Type().WithDependencies()
	require.NoError(t, err)
	require.Len(t, deps, 4)
	assert.Same(t, both.Type(), deps[0])
	assert.Same(t, props.shout.Type(), deps[1])
	assert.Same(t, props.gross.Type(), deps[2])
	assert.Same(t, props.label.Type(), deps[3])

	related := props.set.Declare("author_name", func(*Set[*book]) expression.Node {
		return expression.Upper(expression.F("author__name"))
	})
	_, err = related.Type().WithDependencies()
	assert.True(t, errors.Is(err, errs.ErrUnresolvedRelation))
}

func TestProperty_Now(t *testing.T) {
	moment := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	ticks := 0
	clock := func() time.Time {
		ticks++
		return moment.Add(time.Duration(ticks) * time.Second)
	}
	s := NewSet[*book](WithContext(wrapper.WithClock(clock)))
	stamp := s.Declare("stamp", func(*Set[*book]) expression.Node {
		return expression.Now()
	})
	first, second := newBook("Dune", 412), newBook("Emma", 150)

	ctx := s.NewContext()
	a, err := stamp.ValueIn(ctx, first)
	require.NoError(t, err)
	b, err := stamp.ValueIn(ctx, first)
	require.NoError(t, err)
	c, err := stamp.ValueIn(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	d, err := stamp.Value(first)
	require.NoError(t, err)
	e, err := stamp.Value(first)
	require.NoError(t, err)
	assert.NotEqual(t, a, d)
	assert.NotEqual(t, d, e)
	assert.Equal(t, 4, ticks)
}

func TestProperty_ValueReleasesInstances(t *testing.T) {
	s := NewSet[*book]()
	roll := s.Declare("roll", func(*Set[*book]) expression.Node {
		return expression.Random()
	})
	const n = 100
	var finalized atomic.Int32
	for i := 0; i < n; i++ {
		b := newBook("Dune", 412)
		runtime.SetFinalizer(b, func(*book) { finalized.Add(1) })
		_, err := roll.Value(b)
		require.NoError(t, err)
	}

	assert.Eventually(t, func() bool {
		runtime.GC()
		return finalized.Load() == n
	}, 2*time.Second, 10*time.Millisecond)
	runtime.KeepAlive(roll)
}

func TestProperty_BuiltOnce(t *testing.T) {
	var builds atomic.Int32
	s := NewSet[*book]()
	title := s.Declare("title_length", func(*Set[*book]) expression.Node {
		builds.Add(1)
		return expression.Length(expression.F("title"))
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := title.Value(newBook(faker.Lorem().Word(), 100))
			assert.NoError(t, err)
			assert.NotNil(t, v)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), builds.Load())

	s.Reset()
	v, err := title.Value(newBook("Emma", 150))
	require.NoError(t, err)
	assert.Equal(t, int64(4), v)
	assert.Equal(t, int32(2), builds.Load())
}

func TestProperty_Mapping(t *testing.T) {
	s := NewSet[map[string]any]()
	full := s.Declare("full_name", func(*Set[map[string]any]) expression.Node {
		return expression.Concat(expression.F("first"), " ", expression.F("last"))
	})
	shout := s.Declare("shout", func(*Set[map[string]any]) expression.Node {
		return expression.Upper(expression.F("full_name"))
	})
	first, last := faker.Name().FirstName(), faker.Name().LastName()
	person := map[string]any{"first": first, "last": last}

	v, err := full.Value(person)
	require.NoError(t, err)
	assert.Equal(t, first+" "+last, v)

	v, err = shout.Value(person)
	require.NoError(t, err)
	assert.Equal(t, strings.ToUpper(first+" "+last), v)
	assert.Nil(t, s.Scope().Model)
}

func TestProperty_Errors(t *testing.T) {
	s := NewSet[*book]()
	loop := s.Declare("loop", func(*Set[*book]) expression.Node {
		return expression.Add(expression.F("loop"), 1)
	})
	ping := s.Declare("ping", func(*Set[*book]) expression.Node {
		return expression.Add(expression.F("pong"), 1)
	})
	s.Declare("pong", func(*Set[*book]) expression.Node {
		return expression.Add(expression.F("ping"), 1)
	})
	empty := s.Declare("empty", func(*Set[*book]) expression.Node {
		return nil
	})

	_, err := loop.Value(newBook("Dune", 412))
	assert.True(t, errors.Is(err, ErrCircularProperty))
	assert.True(t, errors.Is(err, errs.ErrLookup))
	_, err = ping.Value(newBook("Dune", 412))
	assert.True(t, errors.Is(err, ErrCircularProperty))
	_, err = empty.Value(newBook("Dune", 412))
	assert.Error(t, err)

	err = s.Validate()
	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))
	assert.Len(t, merr.Errors, 4)

	assert.Panics(t, func() {
		s.Declare("loop", func(*Set[*book]) expression.Node { return expression.Value(1) })
	})
}
