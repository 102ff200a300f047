package rollup

import (
	"cmp"
	"slices"
)

type Direction int

const (
	Descending Direction = iota
	Ascending
)

func (d Direction) String() string {
	if d == Ascending {
		return "ascending"
	}
	return "descending"
}

// Sorted returns a copy of res stably ordered by value. Rows with equal
// values keep their input order; rows without a valid value go last.
func Sorted(res *Result, dir Direction) *Result {
	if res == nil {
		return &Result{Rows: []Row{}}
	}
	out := res.clone(res.Rows)
	slices.SortStableFunc(out.Rows, func(a, b Row) int {
		switch {
		case a.Valid && !b.Valid:
			return -1
		case !a.Valid && b.Valid:
			return 1
		case !a.Valid && !b.Valid:
			return 0
		}
		if dir == Ascending {
			return cmp.Compare(a.Value, b.Value)
		}
		return cmp.Compare(b.Value, a.Value)
	})
	return out
}

// Select returns the first n rows of res after a stable sort in dir.
// n larger than the row count returns every row; n <= 0 returns none.
func Select(res *Result, n int, dir Direction) *Result {
	out := Sorted(res, dir)
	if n <= 0 {
		out.Rows = out.Rows[:0]
		return out
	}
	if n < len(out.Rows) {
		out.Rows = out.Rows[:n]
	}
	return out
}

func Top(res *Result, n int) *Result { return Select(res, n, Descending) }

func Bottom(res *Result, n int) *Result { return Select(res, n, Ascending) }

// Keep returns a copy of res with the rows accept returns true for, in order.
// Unlike Where it runs after aggregation.
func Keep(res *Result, accept func(Row) bool) *Result {
	if res == nil {
		return &Result{Rows: []Row{}}
	}
	rows := make([]Row, 0, len(res.Rows))
	for _, row := range res.Rows {
		if accept(row) {
			rows = append(rows, row)
		}
	}
	return res.clone(rows)
}
