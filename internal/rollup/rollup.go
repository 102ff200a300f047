// Package rollup groups read-only tables into aggregate rows and derives
// shares, rankings and insights from them. Every function is pure: inputs are
// never mutated and nothing is cached between calls.
package rollup

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidSpec   = errors.New("invalid rollup spec")
	ErrUnknownColumn = errors.New("unknown column")
	ErrNotNumeric    = errors.New("column is not numeric")
)

type Reduction string

const (
	Sum           Reduction = "sum"
	CountDistinct Reduction = "count_distinct"
	Mean          Reduction = "mean"
	Count         Reduction = "count"
)

func (r Reduction) numeric() bool {
	return r == Sum || r == Mean
}

// Metric names a source column and how to reduce it within a group.
type Metric struct {
	Name      string
	Column    string    `validate:"required"`
	Reduction Reduction `validate:"required,oneof=sum count_distinct mean count"`
}

func (m Metric) Label() string {
	if m.Name != "" {
		return m.Name
	}
	return string(m.Reduction) + "_" + m.Column
}

func SumOf(column string) Metric           { return Metric{Column: column, Reduction: Sum} }
func MeanOf(column string) Metric          { return Metric{Column: column, Reduction: Mean} }
func CountOf(column string) Metric         { return Metric{Column: column, Reduction: Count} }
func CountDistinctOf(column string) Metric { return Metric{Column: column, Reduction: CountDistinct} }

// As returns a copy of the metric under a display name.
func (m Metric) As(name string) Metric {
	m.Name = name
	return m
}

type Spec struct {
	GroupBy []string `validate:"required,min=1,dive,required"`
	Metric  Metric
	Extra   []Metric `validate:"dive"`
	Filters []Filter `validate:"dive"`
	// Domain, when set, completes the result onto these keys of the first
	// grouping column. See Complete.
	Domain []string
	// OrderByKey emits rows in ascending key order instead of first-appearance order.
	OrderByKey bool
}

var validate = validator.New()

func (s Spec) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSpec, err)
	}
	if len(s.Domain) > 0 && len(s.GroupBy) != 1 {
		return fmt.Errorf("%w: domain completion needs exactly one grouping column", ErrInvalidSpec)
	}
	return nil
}

// Value is a reduced metric. Valid is false when the reduction has no value,
// such as the mean of a group with no present values.
type Value struct {
	Amount float64 `json:"amount"`
	Valid  bool    `json:"valid"`
}

type Row struct {
	Keys   []string `json:"keys"`
	Value  float64  `json:"value"`
	Valid  bool     `json:"valid"`
	Share  float64  `json:"share"`
	Extras []Value  `json:"extras,omitempty"`
}

// Key joins the grouping values of the row for display.
func (r Row) Key() string {
	return strings.Join(r.Keys, " / ")
}

type Result struct {
	Dimensions []string `json:"dimensions"`
	Metric     Metric   `json:"-"`
	Extra      []Metric `json:"-"`
	Normalized bool     `json:"normalized"`
	Rows       []Row    `json:"rows"`
}

func (r *Result) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Rows)
}

func (r *Result) Empty() bool { return r.Len() == 0 }

// Total sums the valid primary values.
func (r *Result) Total() float64 {
	var total float64
	for _, row := range r.Rows {
		if row.Valid {
			total += row.Value
		}
	}
	return total
}

// ExtraValue returns the value of the named extra metric of row i.
func (r *Result) ExtraValue(i int, name string) Value {
	for j, m := range r.Extra {
		if m.Label() == name {
			return r.Rows[i].Extras[j]
		}
	}
	return Value{}
}

// clone copies the result header and its rows; row slices are copied so the
// clone can be reordered or edited freely.
func (r *Result) clone(rows []Row) *Result {
	out := &Result{
		Dimensions: slices.Clone(r.Dimensions),
		Metric:     r.Metric,
		Extra:      slices.Clone(r.Extra),
		Normalized: r.Normalized,
		Rows:       make([]Row, 0, len(rows)),
	}
	for _, row := range rows {
		row.Keys = slices.Clone(row.Keys)
		row.Extras = slices.Clone(row.Extras)
		out.Rows = append(out.Rows, row)
	}
	return out
}

type accumulator struct {
	sum      decimal.Decimal
	count    int
	distinct map[string]struct{}
}

func (a *accumulator) add(src Source, i int, m Metric) {
	switch m.Reduction {
	case Sum, Mean:
		if v, ok := src.Number(i, m.Column); ok {
			a.sum = a.sum.Add(v)
			a.count++
		}
	case Count:
		if _, ok := src.Text(i, m.Column); ok {
			a.count++
		}
	case CountDistinct:
		if v, ok := src.Text(i, m.Column); ok {
			if a.distinct == nil {
				a.distinct = make(map[string]struct{})
			}
			a.distinct[v] = struct{}{}
		}
	}
}

func (a *accumulator) value(m Metric) Value {
	switch m.Reduction {
	case Sum:
		return floatValue(a.sum)
	case Mean:
		if a.count == 0 {
			return Value{}
		}
		return floatValue(a.sum.Div(decimal.NewFromInt(int64(a.count))))
	case Count:
		return Value{Amount: float64(a.count), Valid: true}
	case CountDistinct:
		return Value{Amount: float64(len(a.distinct)), Valid: true}
	}
	return Value{}
}

// floatValue converts an accumulated decimal. Sums beyond the float64 range
// have no value rather than an infinite one.
func floatValue(d decimal.Decimal) Value {
	f := d.InexactFloat64()
	if !finite(f) {
		return Value{}
	}
	return Value{Amount: f, Valid: true}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func checkColumns(src Source, spec Spec) error {
	for _, col := range spec.GroupBy {
		if _, ok := src.Column(col); !ok {
			return fmt.Errorf("group by %q: %w", col, ErrUnknownColumn)
		}
	}
	for _, m := range append([]Metric{spec.Metric}, spec.Extra...) {
		numeric, ok := src.Column(m.Column)
		if !ok {
			return fmt.Errorf("metric %s: %w", m.Label(), ErrUnknownColumn)
		}
		if m.Reduction.numeric() && !numeric {
			return fmt.Errorf("metric %s: %w", m.Label(), ErrNotNumeric)
		}
	}
	return nil
}

const keySep = "\x1f"

// Group aggregates src according to spec, producing one row per distinct key
// combination present after filtering. Rows with a missing grouping value are
// skipped. Unknown or ill-typed columns are returned as errors.
func Group(src Source, spec Spec) (*Result, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if err := checkColumns(src, spec); err != nil {
		return nil, err
	}
	view, err := Where(src, spec.Filters...)
	if err != nil {
		return nil, err
	}

	metrics := append([]Metric{spec.Metric}, spec.Extra...)
	index := make(map[string]int)
	var keys [][]string
	var accs [][]accumulator

	n := view.Len()
	for i := 0; i < n; i++ {
		rowKeys := make([]string, len(spec.GroupBy))
		missing := false
		for d, col := range spec.GroupBy {
			v, ok := view.Text(i, col)
			if !ok {
				missing = true
				break
			}
			rowKeys[d] = v
		}
		if missing {
			continue
		}

		joined := strings.Join(rowKeys, keySep)
		g, exists := index[joined]
		if !exists {
			g = len(keys)
			index[joined] = g
			keys = append(keys, rowKeys)
			accs = append(accs, make([]accumulator, len(metrics)))
		}
		for m := range metrics {
			accs[g][m].add(view, i, metrics[m])
		}
	}

	res := &Result{
		Dimensions: slices.Clone(spec.GroupBy),
		Metric:     spec.Metric,
		Extra:      slices.Clone(spec.Extra),
		Rows:       make([]Row, 0, len(keys)),
	}
	for g, k := range keys {
		primary := accs[g][0].value(spec.Metric)
		row := Row{Keys: k, Value: primary.Amount, Valid: primary.Valid}
		if len(spec.Extra) > 0 {
			row.Extras = make([]Value, len(spec.Extra))
			for j, m := range spec.Extra {
				row.Extras[j] = accs[g][j+1].value(m)
			}
		}
		res.Rows = append(res.Rows, row)
	}

	if spec.OrderByKey {
		slices.SortStableFunc(res.Rows, func(a, b Row) int {
			return compareKeys(a.Keys, b.Keys)
		})
	}
	if len(spec.Domain) > 0 {
		res = Complete(res, spec.Domain)
	}
	return res, nil
}

// compareKeys orders key tuples element-wise, numerically when both
// elements parse as numbers.
func compareKeys(a, b []string) int {
	for i := range min(len(a), len(b)) {
		if c := compareKey(a[i], b[i]); c != 0 {
			return c
		}
	}
	return len(a) - len(b)
}

func compareKey(a, b string) int {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}
	return strings.Compare(a, b)
}
