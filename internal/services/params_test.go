package services

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseParams(t *testing.T) {
	p, err := ParseParams(url.Values{
		ParamSegment: {"  Champions "},
		ParamMetric:  {"Quantity"},
		ParamCluster: {"2"},
		"datastar":   {`{"panel":"x"}`},
	})
	require.NoError(t, err)
	assert.Equal(t, "Champions", p.Segment)
	assert.Equal(t, MetricQuantity, p.metric())
	assert.Equal(t, "2", p.Cluster)

	empty, err := ParseParams(nil)
	require.NoError(t, err)
	assert.Equal(t, MetricRevenue, empty.metric())
	assert.Equal(t, AxisMonetaryRecency, empty.axis())
	assert.Equal(t, "United Kingdom", empty.exclude())
	assert.Equal(t, "Monday", empty.day())
}

func TestParams_IndonesianDays(t *testing.T) {
	for id, en := range indonesianDays {
		p, err := ParseParams(url.Values{ParamDay: {id}})
		require.NoError(t, err, id)
		assert.Equal(t, en, p.day())
	}
	p, err := ParseParams(url.Values{ParamDay: {"Friday"}})
	require.NoError(t, err)
	assert.Equal(t, "Friday", p.day())
}

func TestParams_DatasetDefaults(t *testing.T) {
	ds := testDataset()
	var p Params
	assert.Equal(t, "France", p.country(ds))
	assert.Equal(t, "At Risk", p.segment(ds))
	c, ok := p.cluster(ds)
	assert.True(t, ok)
	assert.Equal(t, "0", c)
}

func TestCanonicalQuery(t *testing.T) {
	q := CanonicalQuery(url.Values{
		ParamSegment: {"Champions"},
		ParamCountry: {" "},
		"datastar":   {"{}"},
		"_":          {"123"},
	})
	assert.Equal(t, "segment=Champions", q.Encode())
	assert.Empty(t, CanonicalQuery(nil).Encode())
}
