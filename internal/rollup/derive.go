package rollup

import "fmt"

// Ratio returns a copy of res whose primary value is divided by the named
// extra metric. Rows with a missing or zero denominator get no value. The new
// primary metric is labeled name and the extras are kept, so the result can be
// grouped again through AsSource.
func Ratio(res *Result, denominator, name string) (*Result, error) {
	if res == nil {
		return &Result{Rows: []Row{}}, nil
	}
	idx := -1
	for j, m := range res.Extra {
		if m.Label() == denominator {
			idx = j
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("ratio over %q: %w", denominator, ErrUnknownColumn)
	}

	out := res.clone(res.Rows)
	out.Metric = Metric{Name: name, Column: res.Metric.Column, Reduction: Mean}
	out.Normalized = false
	for i := range out.Rows {
		row := &out.Rows[i]
		d := row.Extras[idx]
		q := row.Value / d.Amount
		if row.Valid && d.Valid && d.Amount != 0 && finite(q) {
			row.Value = q
		} else {
			row.Value, row.Valid = 0, false
		}
		row.Share = 0
	}
	return out, nil
}
