package rollup

import "github.com/shopspring/decimal"

// Source is a read-only, row-indexed table. The engine never copies or
// mutates the rows behind it.
type Source interface {
	Len() int
	Text(row int, column string) (string, bool)
	Number(row int, column string) (decimal.Decimal, bool)
	// Column reports whether the column exists and whether it is numeric.
	Column(name string) (numeric bool, ok bool)
}

// Record is the accessor surface a typed row exposes to a Table.
type Record interface {
	Text(column string) (string, bool)
	Number(column string) (decimal.Decimal, bool)
}

// Table adapts a slice of typed records into a Source.
type Table[T Record] struct {
	rows    []T
	columns map[string]bool
}

// NewTable wraps rows without copying them. columns maps each column name to
// whether it is numeric.
func NewTable[T Record](rows []T, columns map[string]bool) *Table[T] {
	return &Table[T]{rows: rows, columns: columns}
}

func (t *Table[T]) Len() int { return len(t.rows) }

func (t *Table[T]) Row(i int) T { return t.rows[i] }

func (t *Table[T]) Text(i int, column string) (string, bool) {
	if i < 0 || i >= len(t.rows) {
		return "", false
	}
	return t.rows[i].Text(column)
}

func (t *Table[T]) Number(i int, column string) (decimal.Decimal, bool) {
	if i < 0 || i >= len(t.rows) {
		return decimal.Zero, false
	}
	return t.rows[i].Number(column)
}

func (t *Table[T]) Column(name string) (bool, bool) {
	numeric, ok := t.columns[name]
	return numeric, ok
}

// subset is a filtered view holding indices into its parent.
type subset struct {
	parent  Source
	indices []int
}

func (s *subset) Len() int { return len(s.indices) }

func (s *subset) Text(i int, column string) (string, bool) {
	if i < 0 || i >= len(s.indices) {
		return "", false
	}
	return s.parent.Text(s.indices[i], column)
}

func (s *subset) Number(i int, column string) (decimal.Decimal, bool) {
	if i < 0 || i >= len(s.indices) {
		return decimal.Zero, false
	}
	return s.parent.Number(s.indices[i], column)
}

func (s *subset) Column(name string) (bool, bool) { return s.parent.Column(name) }

// resultSource exposes a Result as a Source so a rollup can be grouped again.
// Grouping columns read as text; metric columns read as numbers.
type resultSource struct {
	res     *Result
	dims    map[string]int
	metrics map[string]int
}

// AsSource returns a read-only Source over the rows of r. Metric columns are
// named by Metric.Label.
func (r *Result) AsSource() Source {
	s := &resultSource{
		res:     r,
		dims:    make(map[string]int, len(r.Dimensions)),
		metrics: make(map[string]int, len(r.Extra)+1),
	}
	for i, d := range r.Dimensions {
		s.dims[d] = i
	}
	s.metrics[r.Metric.Label()] = -1
	for i, m := range r.Extra {
		s.metrics[m.Label()] = i
	}
	return s
}

func (s *resultSource) Len() int { return len(s.res.Rows) }

func (s *resultSource) Text(i int, column string) (string, bool) {
	if i < 0 || i >= len(s.res.Rows) {
		return "", false
	}
	if d, ok := s.dims[column]; ok {
		return s.res.Rows[i].Keys[d], true
	}
	if v, ok := s.Number(i, column); ok {
		return v.String(), true
	}
	return "", false
}

func (s *resultSource) Number(i int, column string) (decimal.Decimal, bool) {
	if i < 0 || i >= len(s.res.Rows) {
		return decimal.Zero, false
	}
	m, ok := s.metrics[column]
	if !ok {
		return decimal.Zero, false
	}
	row := s.res.Rows[i]
	v := Value{Amount: row.Value, Valid: row.Valid}
	if m >= 0 {
		v = row.Extras[m]
	}
	if !v.Valid || !finite(v.Amount) {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(v.Amount), true
}

func (s *resultSource) Column(name string) (bool, bool) {
	if _, ok := s.dims[name]; ok {
		return false, true
	}
	if _, ok := s.metrics[name]; ok {
		return true, true
	}
	return false, false
}
