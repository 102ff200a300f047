package rollup

import "strconv"

var Weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

var Months = []string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// Hours returns the hour-of-day domain "0" through "23".
func Hours() []string {
	return Range(0, 23)
}

// Range returns the integer keys lo..hi inclusive.
func Range(lo, hi int) []string {
	if hi < lo {
		return nil
	}
	out := make([]string, 0, hi-lo+1)
	for i := lo; i <= hi; i++ {
		out = append(out, strconv.Itoa(i))
	}
	return out
}

// Complete reindexes res onto domain: exactly one row per domain member, in
// domain order. Members missing from res get a valid zero value. Rows whose
// first key is not in the domain are dropped; this projection is intentional
// and not an error. Shares are cleared, so normalize after completing.
func Complete(res *Result, domain []string) *Result {
	byKey := make(map[string]Row, res.Len())
	if res != nil {
		for _, row := range res.Rows {
			if len(row.Keys) == 0 {
				continue
			}
			if _, seen := byKey[row.Keys[0]]; !seen {
				byKey[row.Keys[0]] = row
			}
		}
	}

	var out *Result
	if res != nil {
		out = res.clone(nil)
	} else {
		out = &Result{}
	}
	out.Normalized = false
	out.Rows = make([]Row, 0, len(domain))

	for _, member := range domain {
		row, ok := byKey[member]
		if !ok {
			row = Row{Keys: []string{member}, Valid: true}
			if len(out.Extra) > 0 {
				row.Extras = make([]Value, len(out.Extra))
				for i := range row.Extras {
					row.Extras[i] = Value{Valid: true}
				}
			}
		} else {
			row.Keys = []string{member}
			row.Extras = append([]Value(nil), row.Extras...)
			if !row.Valid {
				row.Value, row.Valid = 0, true
			}
		}
		row.Share = 0
		out.Rows = append(out.Rows, row)
	}
	return out
}
