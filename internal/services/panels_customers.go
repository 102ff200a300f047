package services

import (
	"math"

	"rfm-dashboard/internal/dataset"
	"rfm-dashboard/internal/models"
	"rfm-dashboard/internal/rollup"
)

const (
	topSegmentCountries = 5
	topSegmentProducts  = 5
)

var (
	recencyRules = rollup.NewRules("customers have not purchased for a long time",
		rollup.Rule{Threshold: 4, Label: "customers purchased very recently"},
		rollup.Rule{Threshold: 3, Label: "customers purchased fairly recently"},
	)
	frequencyRules = rollup.NewRules("low purchase frequency",
		rollup.Rule{Threshold: 4, Label: "high purchase frequency"},
		rollup.Rule{Threshold: 3, Label: "medium purchase frequency"},
	)
	monetaryRules = rollup.NewRules("low revenue contribution",
		rollup.Rule{Threshold: 4, Label: "large revenue contribution"},
		rollup.Rule{Threshold: 3, Label: "medium revenue contribution"},
	)
)

var clusterProfiles = map[string]string{
	"0": "High value but at risk: valuable customers with strong transaction intensity whose activity is declining. " +
		"Loyal Customers and Can't Lose Them dominate, so churn risk is significant without proactive care. " +
		"Use personal outreach, win-back campaigns and exclusive offers to retain their value.",
	"1": "VIP customers: the best customers, dominated by Champions, with high transaction value, steady purchasing and strong loyalty. " +
		"Focus on long-term relationships through loyalty programs, upselling and cross-selling.",
	"2": "Mass customers: most customers, with low to medium transaction value, many of them inactive or at risk of churn. " +
		"Each contributes little, but together they carry the transaction volume. " +
		"Product education, broad promotions and light reactivation are recommended.",
	"3": "High value active: valuable customers who are still active and stable, dominated by Champions and Loyal Customers. " +
		"They are well suited to upselling, cross-selling and tiered loyalty programs that grow lifetime value.",
}

const profileUnavailable = "profile not available"

func segmentFilter(seg string) rollup.Filter {
	return rollup.Equal(models.ColRFMSegment, seg)
}

func segmentDistribution(ds *dataset.Dataset, _ Params) (Panel, error) {
	res, err := rollup.Group(ds.Transactions(), rollup.Spec{
		GroupBy: []string{models.ColRFMSegment},
		Metric:  customers,
	})
	if err != nil {
		return Panel{}, err
	}
	res = rollup.NormalizeTo(rollup.Sorted(res, rollup.Descending), float64(ds.CustomerCount()))
	return single("customers", res, rollup.Highest(res, "largest segment")), nil
}

// segmentScores averages the R, F and M scores of one segment's customers
// over the segmentation table and labels each mean.
func segmentScores(ds *dataset.Dataset, p Params) (Panel, error) {
	seg := p.segment(ds)
	res, err := rollup.Group(ds.Segments(), rollup.Spec{
		GroupBy: []string{models.ColRFMSegment},
		Metric:  rollup.MeanOf(models.ColRScore).As("recency_score"),
		Extra: []rollup.Metric{
			rollup.MeanOf(models.ColFScore).As("frequency_score"),
			rollup.MeanOf(models.ColMScore).As("monetary_score"),
		},
		Filters: []rollup.Filter{segmentFilter(seg)},
	})
	if err != nil {
		return Panel{}, err
	}

	scores := &rollup.Result{
		Dimensions: []string{"score"},
		Metric:     rollup.MeanOf("score").As("mean_score"),
		Rows:       []rollup.Row{},
	}
	in := rollup.NoData()
	if !res.Empty() {
		row := res.Rows[0]
		r := rollup.Value{Amount: row.Value, Valid: row.Valid}
		f := res.ExtraValue(0, "frequency_score")
		m := res.ExtraValue(0, "monetary_score")
		scores.Rows = append(scores.Rows,
			rollup.Row{Keys: []string{"Recency"}, Value: r.Amount, Valid: r.Valid},
			rollup.Row{Keys: []string{"Frequency"}, Value: f.Amount, Valid: f.Valid},
			rollup.Row{Keys: []string{"Monetary"}, Value: m.Amount, Valid: m.Valid},
		)
		in = rollup.Insight{Facts: []rollup.Fact{
			rollup.Scalar("mean recency score", r.Amount),
			rollup.Scalar("mean frequency score", f.Amount),
			rollup.Scalar("mean monetary score", m.Amount),
		}}.
			Narrate(recencyRules, r.Amount).
			Narrate(frequencyRules, f.Amount).
			Narrate(monetaryRules, m.Amount)
	}

	panel := single("scores", scores, in)
	panel.Params = map[string]string{ParamSegment: seg}
	return panel, nil
}

func segmentRevenue(ds *dataset.Dataset, _ Params) (Panel, error) {
	res, err := rollup.Group(ds.Transactions(), rollup.Spec{
		GroupBy: []string{models.ColRFMSegment},
		Metric:  revenue,
	})
	if err != nil {
		return Panel{}, err
	}
	res = rollup.Normalize(rollup.Sorted(res, rollup.Descending))
	return single("revenue", res, rollup.Highest(res, "top revenue segment")), nil
}

// segmentAOV computes each customer's average order value first and then
// averages those per segment, so heavy buyers do not dominate the mean.
func segmentAOV(ds *dataset.Dataset, _ Params) (Panel, error) {
	perCustomer, err := rollup.Group(ds.Transactions(), rollup.Spec{
		GroupBy: []string{models.ColCustomerID, models.ColRFMSegment},
		Metric:  revenue,
		Extra:   []rollup.Metric{orders},
	})
	if err != nil {
		return Panel{}, err
	}
	aov, err := rollup.Ratio(perCustomer, orders.Label(), "aov")
	if err != nil {
		return Panel{}, err
	}
	res, err := rollup.Group(aov.AsSource(), rollup.Spec{
		GroupBy: []string{models.ColRFMSegment},
		Metric:  rollup.MeanOf("aov").As("aov"),
		Extra:   []rollup.Metric{customers},
	})
	if err != nil {
		return Panel{}, err
	}
	res = rollup.Sorted(res, rollup.Descending)
	return single("aov", res, rollup.Extremes(res, "highest order value", "lowest order value")), nil
}

func segmentCountries(ds *dataset.Dataset, p Params) (Panel, error) {
	seg := p.segment(ds)
	res, err := rollup.Group(ds.Transactions(), rollup.Spec{
		GroupBy: []string{models.ColCountry},
		Metric:  customers,
		Filters: []rollup.Filter{segmentFilter(seg)},
	})
	if err != nil {
		return Panel{}, err
	}
	top := rollup.Top(res, topSegmentCountries)
	panel := single("customers", top, rollup.Highest(top, "top country"))
	panel.Params = map[string]string{ParamSegment: seg}
	return panel, nil
}

func segmentProducts(ds *dataset.Dataset, p Params) (Panel, error) {
	seg := p.segment(ds)
	metric := revenue
	if p.metric() == MetricQuantity {
		metric = quantity
	}
	res, err := rollup.Group(ds.Transactions(), rollup.Spec{
		GroupBy: []string{models.ColDescription},
		Metric:  metric,
		Filters: []rollup.Filter{segmentFilter(seg)},
	})
	if err != nil {
		return Panel{}, err
	}
	top := rollup.Top(res, topSegmentProducts)
	panel := single(metric.Label(), top, rollup.Highest(top, "top product"))
	panel.Params = map[string]string{ParamSegment: seg, ParamMetric: p.metric()}
	return panel, nil
}

func clusterDistribution(ds *dataset.Dataset, _ Params) (Panel, error) {
	res, err := rollup.Group(ds.Segments(), rollup.Spec{
		GroupBy:    []string{models.ColCluster},
		Metric:     customers,
		OrderByKey: true,
	})
	if err != nil {
		return Panel{}, err
	}
	res = rollup.Normalize(res)
	return single("customers", res, rollup.Highest(res, "largest cluster")), nil
}

// clusterScores counts the customers of one cluster at each score 1 to 5,
// separately for recency, frequency and monetary scores. A customer counts
// toward a score only when the raw measure behind it is present.
func clusterScores(ds *dataset.Dataset, p Params) (Panel, error) {
	c, ok := p.cluster(ds)
	if !ok {
		return Panel{Insight: rollup.NoData()}, nil
	}
	filter := rollup.Equal(models.ColCluster, c)
	members, err := rollup.Where(ds.Segments(), filter)
	if err != nil {
		return Panel{}, err
	}

	scores := []struct{ name, column, measure, label string }{
		{"recency", models.ColRScore, models.ColRecency, "most common recency score"},
		{"frequency", models.ColFScore, models.ColFrequency, "most common frequency score"},
		{"monetary", models.ColMScore, models.ColMonetary, "most common monetary score"},
	}
	panel := Panel{Params: map[string]string{ParamCluster: c}}
	var facts []rollup.Fact
	for _, s := range scores {
		res, err := rollup.Group(ds.Segments(), rollup.Spec{
			GroupBy: []string{s.column},
			Metric:  rollup.CountOf(s.measure).As("customers"),
			Filters: []rollup.Filter{filter},
			Domain:  rollup.Range(1, 5),
		})
		if err != nil {
			return Panel{}, err
		}
		panel.Series = append(panel.Series, Series{Name: s.name, Result: res})
		if row, ok := rollup.Extreme(res, rollup.Descending); ok {
			facts = append(facts, rollup.RowFact(res, row, s.label))
		}
	}

	panel.Insight = rollup.NoData()
	if members.Len() > 0 {
		panel.Insight = rollup.Insight{Facts: facts}.
			With(rollup.Scalar("customers", float64(members.Len())))
	}
	return panel, nil
}

func clusterRevenue(ds *dataset.Dataset, _ Params) (Panel, error) {
	res, err := rollup.Group(ds.Segments(), rollup.Spec{
		GroupBy:    []string{models.ColCluster},
		Metric:     rollup.SumOf(models.ColTotalAmountTotal).As("revenue"),
		OrderByKey: true,
	})
	if err != nil {
		return Panel{}, err
	}
	res = rollup.Normalize(res)
	return single("revenue", res, rollup.Highest(res, "top revenue cluster")), nil
}

func clusterQuantity(ds *dataset.Dataset, _ Params) (Panel, error) {
	res, err := rollup.Group(ds.Segments(), rollup.Spec{
		GroupBy:    []string{models.ColCluster},
		Metric:     rollup.SumOf(models.ColQuantityTotal).As("quantity"),
		OrderByKey: true,
	})
	if err != nil {
		return Panel{}, err
	}
	return single("quantity", res, rollup.Highest(res, "top quantity cluster")), nil
}

// scatterAxes maps an axis selector to the x and y segment columns.
var scatterAxes = map[string][2]string{
	AxisMonetaryRecency:   {models.ColRecency, models.ColMonetary},
	AxisMonetaryFrequency: {models.ColFrequency, models.ColMonetary},
	AxisFrequencyRecency:  {models.ColRecency, models.ColFrequency},
}

func clusterScatter(ds *dataset.Dataset, p Params) (Panel, error) {
	axis := p.axis()
	cols := scatterAxes[axis]
	params := map[string]string{ParamAxis: axis}

	only := ""
	if p.Cluster != "" {
		only, _ = p.cluster(ds)
		params[ParamCluster] = only
	}

	var points []Point
	for _, s := range ds.SegmentRows() {
		group := dataset.ClusterLabel(s.Cluster)
		if only != "" && group != only {
			continue
		}
		x, okX := s.Number(cols[0])
		y, okY := s.Number(cols[1])
		if !okX || !okY {
			continue
		}
		xf, yf := x.InexactFloat64(), y.InexactFloat64()
		if math.IsInf(xf, 0) || math.IsInf(yf, 0) {
			continue
		}
		points = append(points, Point{
			Key:   s.CustomerID,
			Group: group,
			X:     xf,
			Y:     yf,
		})
	}

	in := rollup.NoData()
	if len(points) > 0 {
		in = rollup.Insight{Facts: []rollup.Fact{rollup.Scalar("customers", float64(len(points)))}}
	}
	return Panel{Params: params, Points: points, Insight: in}, nil
}

func clusterSegments(ds *dataset.Dataset, p Params) (Panel, error) {
	c, ok := p.cluster(ds)
	if !ok {
		return Panel{Insight: rollup.NoData()}, nil
	}
	res, err := rollup.Group(ds.Segments(), rollup.Spec{
		GroupBy: []string{models.ColRFMSegment},
		Metric:  customers,
		Filters: []rollup.Filter{rollup.Equal(models.ColCluster, c)},
	})
	if err != nil {
		return Panel{}, err
	}
	res = rollup.Normalize(rollup.Sorted(res, rollup.Descending))
	panel := single("customers", res, rollup.Highest(res, "dominant segment"))
	panel.Params = map[string]string{ParamCluster: c}
	return panel, nil
}

func clusterProfile(ds *dataset.Dataset, p Params) (Panel, error) {
	c, ok := p.cluster(ds)
	if !ok {
		return Panel{Insight: rollup.NoData()}, nil
	}
	text, found := clusterProfiles[c]
	if !found {
		text = profileUnavailable
	}
	return Panel{
		Params: map[string]string{ParamCluster: c},
		Insight: rollup.Insight{
			Facts:     []rollup.Fact{{Label: "cluster", Key: c}},
			Narrative: []string{text},
		},
	}, nil
}
