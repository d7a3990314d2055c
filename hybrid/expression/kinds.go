package expression

// Kind identifies the evaluation rule of a node. The set is open: extension
// node types declare their own kinds and register evaluators for them.
type Kind string

const (
	KindValue       Kind = "value"
	KindList        Kind = "list"
	KindCombined    Kind = "combined"
	KindF           Kind = "f"
	KindCol         Kind = "col"
	KindWrapper     Kind = "expression_wrapper"
	KindExtract     Kind = "extract"
	KindQ           Kind = "q"
	KindAnd         Kind = "and"
	KindOr          Kind = "or"
	KindNot         Kind = "not"
	KindEmptyFilter Kind = "empty_filter"
	KindAny         Kind = "any"
	KindCase        Kind = "case"
	KindWhen        Kind = "when"
)

// Functions

const (
	KindCast       Kind = "cast"
	KindCoalesce   Kind = "coalesce"
	KindConcat     Kind = "concat"
	KindConcatPair Kind = "concat_pair"
	KindGreatest   Kind = "greatest"
	KindLeast      Kind = "least"
	KindLength     Kind = "length"
	KindLower      Kind = "lower"
	KindUpper      Kind = "upper"
	KindStrIndex   Kind = "strindex"
	KindNow        Kind = "now"
	KindRandom     Kind = "random"
)

// Aggregates

const (
	KindAvg      Kind = "avg"
	KindCount    Kind = "count"
	KindMax      Kind = "max"
	KindMin      Kind = "min"
	KindSum      Kind = "sum"
	KindStdDev   Kind = "stddev"
	KindVariance Kind = "variance"
)

// Lookups. The values double as the lookup names of the filter syntax.

const (
	KindExact       Kind = "exact"
	KindIExact      Kind = "iexact"
	KindGt          Kind = "gt"
	KindGte         Kind = "gte"
	KindLt          Kind = "lt"
	KindLte         Kind = "lte"
	KindIn          Kind = "in"
	KindContains    Kind = "contains"
	KindIContains   Kind = "icontains"
	KindStartsWith  Kind = "startswith"
	KindIStartsWith Kind = "istartswith"
	KindEndsWith    Kind = "endswith"
	KindIEndsWith   Kind = "iendswith"
	KindRange       Kind = "range"
	KindIsNull      Kind = "isnull"
	KindRegex       Kind = "regex"
	KindIRegex      Kind = "iregex"
)

// Part names a component extracted from a date, datetime or time value.
type Part string

const (
	PartYear       Part = "year"
	PartIsoYear    Part = "iso_year"
	PartQuarter    Part = "quarter"
	PartMonth      Part = "month"
	PartWeek       Part = "week"
	PartDay        Part = "day"
	PartWeekDay    Part = "week_day"
	PartIsoWeekDay Part = "iso_week_day"
	PartHour       Part = "hour"
	PartMinute     Part = "minute"
	PartSecond     Part = "second"
	PartDate       Part = "date"
	PartTime       Part = "time"
)
