package rollup

import (
	"math"
	"slices"
)

// NoDataLabel labels the single fact of an insight over an empty result.
const NoDataLabel = "no data"

// Fact is one labeled figure of an insight. Key is empty for scalar facts.
type Fact struct {
	Label string   `json:"label"`
	Key   string   `json:"key,omitempty"`
	Value float64  `json:"value"`
	Valid bool     `json:"valid"`
	Share *float64 `json:"share,omitempty"`
}

type Insight struct {
	Facts     []Fact   `json:"facts"`
	Narrative []string `json:"narrative,omitempty"`
	NoData    bool     `json:"no_data"`
}

// NoData returns the explicit insight for an empty result.
func NoData() Insight {
	return Insight{Facts: []Fact{{Label: NoDataLabel}}, NoData: true}
}

// RowFact describes one row of res under label.
func RowFact(res *Result, row Row, label string) Fact {
	f := Fact{Label: label, Key: row.Key(), Value: row.Value, Valid: row.Valid}
	if res != nil && res.Normalized {
		share := row.Share
		f.Share = &share
	}
	return f
}

// Scalar is a fact that is not tied to a row.
func Scalar(label string, v float64) Fact {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Fact{Label: label}
	}
	return Fact{Label: label, Value: v, Valid: true}
}

// Extreme returns the first row of res in dir, ties going to the earliest
// row. ok is false when res has no valid row.
func Extreme(res *Result, dir Direction) (Row, bool) {
	sorted := Sorted(res, dir)
	if len(sorted.Rows) == 0 || !sorted.Rows[0].Valid {
		return Row{}, false
	}
	return sorted.Rows[0], true
}

// Highest builds an insight around the row with the largest value.
func Highest(res *Result, label string) Insight {
	row, ok := Extreme(res, Descending)
	if !ok {
		return NoData()
	}
	return Insight{Facts: []Fact{RowFact(res, row, label)}}
}

// Lowest builds an insight around the row with the smallest value.
func Lowest(res *Result, label string) Insight {
	row, ok := Extreme(res, Ascending)
	if !ok {
		return NoData()
	}
	return Insight{Facts: []Fact{RowFact(res, row, label)}}
}

// Extremes builds an insight naming both the highest and the lowest row.
func Extremes(res *Result, highLabel, lowLabel string) Insight {
	high, ok := Extreme(res, Descending)
	if !ok {
		return NoData()
	}
	low, _ := Extreme(res, Ascending)
	return Insight{Facts: []Fact{RowFact(res, high, highLabel), RowFact(res, low, lowLabel)}}
}

// With appends facts. A NoData insight stays NoData.
func (in Insight) With(facts ...Fact) Insight {
	if in.NoData {
		return in
	}
	in.Facts = append(slices.Clone(in.Facts), facts...)
	return in
}

// Narrate appends the label rules picks for v.
func (in Insight) Narrate(rules Rules, v float64) Insight {
	if in.NoData {
		return in
	}
	in.Narrative = append(slices.Clone(in.Narrative), rules.Evaluate(v))
	return in
}

type Rule struct {
	Threshold float64 `json:"threshold"`
	Label     string  `json:"label"`
}

// Rules picks a label for a scalar. Thresholds are tried from highest to
// lowest and the first one v meets wins; Default covers the rest.
type Rules struct {
	Thresholds []Rule `json:"thresholds"`
	Default    string `json:"default"`
}

func NewRules(def string, thresholds ...Rule) Rules {
	return Rules{Thresholds: thresholds, Default: def}
}

func (r Rules) Evaluate(v float64) string {
	if math.IsNaN(v) {
		return r.Default
	}
	ordered := slices.Clone(r.Thresholds)
	slices.SortStableFunc(ordered, func(a, b Rule) int {
		switch {
		case a.Threshold > b.Threshold:
			return -1
		case a.Threshold < b.Threshold:
			return 1
		}
		return 0
	})
	for _, rule := range ordered {
		if v >= rule.Threshold {
			return rule.Label
		}
	}
	return r.Default
}
