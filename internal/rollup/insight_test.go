package rollup

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHighestAndLowest(t *testing.T) {
	res := Normalize(resultOf("UK", 1200.0, "France", 500.0))

	high := Highest(res, "top country")
	require.Len(t, high.Facts, 1)
	assert.False(t, high.NoData)
	assert.Equal(t, "UK", high.Facts[0].Key)
	assert.Equal(t, 1200.0, high.Facts[0].Value)
	require.NotNil(t, high.Facts[0].Share)
	assert.Equal(t, 70.59, *high.Facts[0].Share)

	low := Lowest(res, "weakest country")
	assert.Equal(t, "France", low.Facts[0].Key)
}

func TestExtremes_TiesGoToFirstRow(t *testing.T) {
	res := resultOf("A", 5.0, "B", 5.0, "C", 1.0, "D", 1.0)
	in := Extremes(res, "highest", "lowest")
	require.Len(t, in.Facts, 2)
	assert.Equal(t, "A", in.Facts[0].Key)
	assert.Equal(t, "C", in.Facts[1].Key)
	assert.Nil(t, in.Facts[0].Share)
}

func TestInsight_NoData(t *testing.T) {
	empty := &Result{Rows: []Row{}}
	invalid := &Result{Rows: []Row{{Keys: []string{"A"}}}}

	for _, in := range []Insight{
		Highest(empty, "x"),
		Lowest(nil, "x"),
		Extremes(invalid, "hi", "lo"),
	} {
		assert.True(t, in.NoData)
		require.Len(t, in.Facts, 1)
		assert.Equal(t, NoDataLabel, in.Facts[0].Label)
	}

	still := NoData().With(Scalar("total", 3)).Narrate(NewRules("low"), 1)
	assert.True(t, still.NoData)
	assert.Len(t, still.Facts, 1)
	assert.Empty(t, still.Narrative)
}

func TestInsight_WithAndNarrate(t *testing.T) {
	base := Highest(resultOf("A", 2.0), "best")
	rules := NewRules("low", Rule{Threshold: 4, Label: "high"}, Rule{Threshold: 3, Label: "medium"})

	in := base.With(Scalar("average", 3.6)).Narrate(rules, 3.6)
	assert.Len(t, in.Facts, 2)
	assert.Equal(t, []string{"medium"}, in.Narrative)
	assert.Len(t, base.Facts, 1)
	assert.Empty(t, base.Narrative)
}

func TestScalar_NonFinite(t *testing.T) {
	assert.False(t, Scalar("x", math.NaN()).Valid)
	assert.False(t, Scalar("x", math.Inf(1)).Valid)
	assert.True(t, Scalar("x", 0).Valid)
}

func TestRules_Evaluate(t *testing.T) {
	rules := NewRules("low", Rule{Threshold: 3, Label: "medium"}, Rule{Threshold: 4, Label: "high"})

	tests := []struct {
		v    float64
		want string
	}{
		{4.2, "high"},
		{4, "high"},
		{3.6, "medium"},
		{3, "medium"},
		{2.99, "low"},
		{-1, "low"},
		{math.NaN(), "low"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, rules.Evaluate(tt.v), "v=%v", tt.v)
	}

	assert.Equal(t, "fallback", NewRules("fallback").Evaluate(100))
}
