package rollup

import (
	"fmt"
	"slices"
)

type Op string

const (
	OpEqual    Op = "eq"
	OpNotEqual Op = "ne"
	OpIn       Op = "in"
)

// Filter restricts the rows a rollup sees. Filters are AND-combined and are
// always applied before grouping.
type Filter struct {
	Column string   `validate:"required"`
	Op     Op       `validate:"required,oneof=eq ne in"`
	Values []string `validate:"required,min=1"`
}

func Equal(column, value string) Filter {
	return Filter{Column: column, Op: OpEqual, Values: []string{value}}
}

func NotEqual(column, value string) Filter {
	return Filter{Column: column, Op: OpNotEqual, Values: []string{value}}
}

func In(column string, values ...string) Filter {
	return Filter{Column: column, Op: OpIn, Values: values}
}

func (f Filter) match(v string, present bool) bool {
	switch f.Op {
	case OpNotEqual:
		// A missing value is never equal to anything.
		return !present || !slices.Contains(f.Values, v)
	default:
		return present && slices.Contains(f.Values, v)
	}
}

func (f Filter) String() string {
	return fmt.Sprintf("%s %s %v", f.Column, f.Op, f.Values)
}

// Where returns a view of src restricted to rows matching every filter.
// With no filters the source itself is returned.
func Where(src Source, filters ...Filter) (Source, error) {
	if len(filters) == 0 {
		return src, nil
	}
	for _, f := range filters {
		if _, ok := src.Column(f.Column); !ok {
			return nil, fmt.Errorf("filter %s: %w", f, ErrUnknownColumn)
		}
	}

	n := src.Len()
	indices := make([]int, 0, n)
	for i := 0; i < n; i++ {
		pass := true
		for _, f := range filters {
			v, ok := src.Text(i, f.Column)
			if !f.match(v, ok) {
				pass = false
				break
			}
		}
		if pass {
			indices = append(indices, i)
		}
	}
	return &subset{parent: src, indices: indices}, nil
}
