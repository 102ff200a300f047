package services

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"rfm-dashboard/internal/dataset"
	"rfm-dashboard/internal/rollup"
)

// Query parameter names accepted by panels.
const (
	ParamCountry = "country"
	ParamExclude = "exclude"
	ParamDay     = "day"
	ParamSegment = "segment"
	ParamCluster = "cluster"
	ParamMetric  = "metric"
	ParamAxis    = "axis"
)

const (
	defaultExclude = "United Kingdom"
	defaultDay     = "Monday"

	MetricRevenue  = "revenue"
	MetricQuantity = "quantity"

	AxisMonetaryRecency   = "monetary-recency"
	AxisMonetaryFrequency = "monetary-frequency"
	AxisFrequencyRecency  = "frequency-recency"
)

var (
	Metrics = []string{MetricRevenue, MetricQuantity}
	Axes    = []string{AxisMonetaryRecency, AxisMonetaryFrequency, AxisFrequencyRecency}
)

// indonesianDays maps the day names used by the source dashboard onto the
// English names stored in the data.
var indonesianDays = map[string]string{
	"Senin":  "Monday",
	"Selasa": "Tuesday",
	"Rabu":   "Wednesday",
	"Kamis":  "Thursday",
	"Jumat":  "Friday",
	"Sabtu":  "Saturday",
	"Minggu": "Sunday",
}

// Params are the optional panel selectors. Empty fields fall back to a
// default drawn from the dataset.
type Params struct {
	Country string `validate:"omitempty,max=100"`
	Exclude string `validate:"omitempty,max=100"`
	Day     string `validate:"omitempty,oneof=Monday Tuesday Wednesday Thursday Friday Saturday Sunday Senin Selasa Rabu Kamis Jumat Sabtu Minggu"`
	Segment string `validate:"omitempty,max=100"`
	Cluster string `validate:"omitempty,number"`
	Metric  string `validate:"omitempty,oneof=revenue quantity"`
	Axis    string `validate:"omitempty,oneof=monetary-recency monetary-frequency frequency-recency"`
}

var validate = validator.New()

// ParseParams reads panel selectors from a query string. Unrelated keys are
// ignored.
func ParseParams(q url.Values) (Params, error) {
	p := Params{
		Country: strings.TrimSpace(q.Get(ParamCountry)),
		Exclude: strings.TrimSpace(q.Get(ParamExclude)),
		Day:     strings.TrimSpace(q.Get(ParamDay)),
		Segment: strings.TrimSpace(q.Get(ParamSegment)),
		Cluster: strings.TrimSpace(q.Get(ParamCluster)),
		Metric:  strings.ToLower(strings.TrimSpace(q.Get(ParamMetric))),
		Axis:    strings.ToLower(strings.TrimSpace(q.Get(ParamAxis))),
	}
	if err := validate.Struct(p); err != nil {
		return Params{}, fmt.Errorf("%w: %v", ErrInvalidParam, err)
	}
	return p, nil
}

func (p Params) day() string {
	if p.Day == "" {
		return defaultDay
	}
	if en, ok := indonesianDays[p.Day]; ok {
		return en
	}
	return p.Day
}

func (p Params) exclude() string {
	if p.Exclude == "" {
		return defaultExclude
	}
	return p.Exclude
}

func (p Params) country(ds *dataset.Dataset) string {
	if p.Country != "" {
		return p.Country
	}
	return first(ds.Countries())
}

func (p Params) segment(ds *dataset.Dataset) string {
	if p.Segment != "" {
		return p.Segment
	}
	return first(ds.SegmentNames())
}

// cluster returns the selected cluster key. ok is false when neither a
// selection nor any cluster exists.
func (p Params) cluster(ds *dataset.Dataset) (string, bool) {
	if p.Cluster != "" {
		n, err := strconv.Atoi(p.Cluster)
		if err != nil {
			return "", false
		}
		return dataset.ClusterLabel(n), true
	}
	clusters := ds.Clusters()
	if len(clusters) == 0 {
		return "", false
	}
	return dataset.ClusterLabel(clusters[0]), true
}

func (p Params) metric() string {
	if p.Metric == "" {
		return MetricRevenue
	}
	return p.Metric
}

func (p Params) axis() string {
	if p.Axis == "" {
		return AxisMonetaryRecency
	}
	return p.Axis
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// Days lists the accepted day selector values in display order.
func Days() []string {
	return append([]string(nil), rollup.Weekdays...)
}

var paramNames = []string{ParamCountry, ParamExclude, ParamDay, ParamSegment, ParamCluster, ParamMetric, ParamAxis}

// CanonicalQuery keeps only non-empty panel selectors, so queries that differ
// in unrelated keys compare equal.
func CanonicalQuery(q url.Values) url.Values {
	out := url.Values{}
	for _, name := range paramNames {
		if v := strings.TrimSpace(q.Get(name)); v != "" {
			out.Set(name, v)
		}
	}
	return out
}
