package services

import "rfm-dashboard/internal/dataset"

// Panel groups, in page order.
const (
	GroupGeography = "geography"
	GroupProduct   = "product"
	GroupActivity  = "activity"
	GroupRFM       = "rfm"
	GroupCluster   = "cluster"
)

type PanelInfo struct {
	ID     string   `json:"id"`
	Title  string   `json:"title"`
	Group  string   `json:"group"`
	Params []string `json:"params,omitempty"`
}

type panelDef struct {
	PanelInfo
	compute func(ds *dataset.Dataset, p Params) (Panel, error)
}

func entry(id, title, group string, compute func(*dataset.Dataset, Params) (Panel, error), params ...string) panelDef {
	return panelDef{
		PanelInfo: PanelInfo{ID: id, Title: title, Group: group, Params: params},
		compute:   compute,
	}
}

var catalog = []panelDef{
	entry("country-coverage", "Revenue and orders by country", GroupGeography, countryCoverage),
	entry("country-top", "Top 5 countries by revenue", GroupGeography, countryTop),
	entry("country-top-excluding", "Top 10 countries excluding one", GroupGeography, countryTopExcluding, ParamExclude),
	entry("country-bottom", "Bottom 5 countries by revenue", GroupGeography, countryBottom, ParamExclude),
	entry("monthly-trend", "Monthly revenue trend", GroupGeography, monthlyTrend),
	entry("monthly-trend-country", "Monthly revenue trend for a country", GroupGeography, monthlyTrendCountry, ParamCountry),

	entry("product-revenue", "Top 10 products by revenue", GroupProduct, productRevenue),
	entry("product-quantity", "Top 10 products by quantity", GroupProduct, productQuantity),
	entry("product-scatter", "Revenue against quantity per product", GroupProduct, productScatter),

	entry("activity-weekday", "Orders by day of week", GroupActivity, activityWeekday),
	entry("activity-hourly", "Orders by hour for a day", GroupActivity, activityHourly, ParamDay),
	entry("activity-month", "Orders by month", GroupActivity, activityMonth),

	entry("segment-distribution", "Customers per RFM segment", GroupRFM, segmentDistribution),
	entry("segment-scores", "Average RFM scores of a segment", GroupRFM, segmentScores, ParamSegment),
	entry("segment-revenue", "Revenue share per segment", GroupRFM, segmentRevenue),
	entry("segment-aov", "Average order value per segment", GroupRFM, segmentAOV),
	entry("segment-countries", "Top countries of a segment", GroupRFM, segmentCountries, ParamSegment),
	entry("segment-products", "Top products of a segment", GroupRFM, segmentProducts, ParamSegment, ParamMetric),

	entry("cluster-distribution", "Customers per cluster", GroupCluster, clusterDistribution),
	entry("cluster-scores", "RFM score spread of a cluster", GroupCluster, clusterScores, ParamCluster),
	entry("cluster-revenue", "Lifetime revenue share per cluster", GroupCluster, clusterRevenue),
	entry("cluster-quantity", "Quantity purchased per cluster", GroupCluster, clusterQuantity),
	entry("cluster-scatter", "Customers by RFM measures", GroupCluster, clusterScatter, ParamAxis, ParamCluster),
	entry("cluster-segments", "Segment mix of a cluster", GroupCluster, clusterSegments, ParamCluster),
	entry("cluster-profile", "Cluster profile", GroupCluster, clusterProfile, ParamCluster),
}

var panelIndex = func() map[string]panelDef {
	m := make(map[string]panelDef, len(catalog))
	for _, d := range catalog {
		m[d.ID] = d
	}
	return m
}()
