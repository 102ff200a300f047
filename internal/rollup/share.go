package rollup

import "github.com/shopspring/decimal"

// SharePrecision is the number of decimals shares are rounded to.
const SharePrecision = 2

// Normalize returns a copy of res where every row carries its percentage of
// the total of valid values. A zero total yields a zero share on every row.
// Rows without a valid, finite value get a zero share and do not count
// toward the total. Raw values are left untouched.
func Normalize(res *Result) *Result {
	if res == nil {
		return &Result{Normalized: true, Rows: []Row{}}
	}
	out := res.clone(res.Rows)
	out.Normalized = true

	total := decimal.Zero
	for _, row := range out.Rows {
		if row.Valid && finite(row.Value) {
			total = total.Add(decimal.NewFromFloat(row.Value))
		}
	}

	hundred := decimal.NewFromInt(100)
	for i := range out.Rows {
		row := &out.Rows[i]
		if total.IsZero() || !row.Valid || !finite(row.Value) {
			row.Share = 0
			continue
		}
		row.Share = decimal.NewFromFloat(row.Value).
			Div(total).
			Mul(hundred).
			Round(SharePrecision).
			InexactFloat64()
	}
	return out
}

// ShareOf computes part/whole as a rounded percentage, zero when whole is zero
// or either side is not finite.
func ShareOf(part, whole float64) float64 {
	if whole == 0 || !finite(part) || !finite(whole) {
		return 0
	}
	return decimal.NewFromFloat(part).
		Div(decimal.NewFromFloat(whole)).
		Mul(decimal.NewFromInt(100)).
		Round(SharePrecision).
		InexactFloat64()
}

// NormalizeTo returns a copy of res with shares taken against an explicit
// whole, e.g. the number of customers in the whole table.
func NormalizeTo(res *Result, whole float64) *Result {
	if res == nil {
		return &Result{Normalized: true, Rows: []Row{}}
	}
	out := res.clone(res.Rows)
	out.Normalized = true
	for i := range out.Rows {
		if out.Rows[i].Valid && finite(out.Rows[i].Value) {
			out.Rows[i].Share = ShareOf(out.Rows[i].Value, whole)
		} else {
			out.Rows[i].Share = 0
		}
	}
	return out
}
