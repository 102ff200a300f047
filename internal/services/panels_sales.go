package services

import (
	"math"

	"rfm-dashboard/internal/dataset"
	"rfm-dashboard/internal/models"
	"rfm-dashboard/internal/rollup"
)

const (
	topCountries      = 5
	topCountriesOther = 10
	bottomCountries   = 5
	topProducts       = 10
)

var (
	revenue   = rollup.SumOf(models.ColTotalAmount).As("revenue")
	orders    = rollup.CountDistinctOf(models.ColInvoiceNo).As("orders")
	customers = rollup.CountDistinctOf(models.ColCustomerID).As("customers")
	quantity  = rollup.SumOf(models.ColQuantity).As("quantity")
	avgPrice  = rollup.MeanOf(models.ColUnitPrice).As("avg_price")
)

func single(name string, res *rollup.Result, in rollup.Insight) Panel {
	return Panel{Series: []Series{{Name: name, Result: res}}, Insight: in}
}

func revenueByCountry(ds *dataset.Dataset, filters ...rollup.Filter) (*rollup.Result, error) {
	res, err := rollup.Group(ds.Transactions(), rollup.Spec{
		GroupBy: []string{models.ColCountry},
		Metric:  revenue,
		Extra:   []rollup.Metric{orders},
		Filters: filters,
	})
	if err != nil {
		return nil, err
	}
	return rollup.Normalize(rollup.Sorted(res, rollup.Descending)), nil
}

func countryCoverage(ds *dataset.Dataset, _ Params) (Panel, error) {
	res, err := revenueByCountry(ds)
	if err != nil {
		return Panel{}, err
	}
	in := rollup.Highest(res, "highest revenue country").With(
		rollup.Scalar("countries", float64(res.Len())),
		rollup.Scalar("total revenue", res.Total()),
	)
	return single("revenue", res, in), nil
}

func countryTop(ds *dataset.Dataset, _ Params) (Panel, error) {
	res, err := revenueByCountry(ds)
	if err != nil {
		return Panel{}, err
	}
	top := rollup.Top(res, topCountries)
	return single("revenue", top, rollup.Highest(top, "highest revenue country")), nil
}

func countryTopExcluding(ds *dataset.Dataset, p Params) (Panel, error) {
	ex := p.exclude()
	res, err := revenueByCountry(ds, rollup.NotEqual(models.ColCountry, ex))
	if err != nil {
		return Panel{}, err
	}
	top := rollup.Top(res, topCountriesOther)
	panel := single("revenue", top, rollup.Highest(top, "highest revenue country"))
	panel.Params = map[string]string{ParamExclude: ex}
	return panel, nil
}

func countryBottom(ds *dataset.Dataset, p Params) (Panel, error) {
	ex := p.exclude()
	res, err := revenueByCountry(ds, rollup.NotEqual(models.ColCountry, ex))
	if err != nil {
		return Panel{}, err
	}
	bottom := rollup.Bottom(res, bottomCountries)
	panel := single("revenue", bottom, rollup.Lowest(bottom, "lowest revenue country"))
	panel.Params = map[string]string{ParamExclude: ex}
	return panel, nil
}

func monthlyTrend(ds *dataset.Dataset, _ Params) (Panel, error) {
	return trend(ds)
}

func monthlyTrendCountry(ds *dataset.Dataset, p Params) (Panel, error) {
	country := p.country(ds)
	panel, err := trend(ds, rollup.Equal(models.ColCountry, country))
	if err != nil {
		return Panel{}, err
	}
	panel.Params = map[string]string{ParamCountry: country}
	return panel, nil
}

// trend rolls transactions up per year-month with revenue, orders and active
// customers, and derives the average order value of each month.
func trend(ds *dataset.Dataset, filters ...rollup.Filter) (Panel, error) {
	res, err := rollup.Group(ds.Transactions(), rollup.Spec{
		GroupBy:    []string{models.ColYearMonth},
		Metric:     revenue,
		Extra:      []rollup.Metric{orders, customers.As("active_customers")},
		Filters:    filters,
		OrderByKey: true,
	})
	if err != nil {
		return Panel{}, err
	}
	aov, err := rollup.Ratio(res, orders.Label(), "aov")
	if err != nil {
		return Panel{}, err
	}

	in := rollup.Extremes(res, "best month", "worst month").
		With(rollup.Scalar("mean order value", meanOf(aov)))
	return Panel{
		Series:  []Series{{Name: "revenue", Result: res}, {Name: "aov", Result: aov}},
		Insight: in,
	}, nil
}

// meanOf averages the valid primary values of res, NaN when there are none.
func meanOf(res *rollup.Result) float64 {
	var sum float64
	var n int
	for _, row := range res.Rows {
		if row.Valid {
			sum += row.Value
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

func productRevenue(ds *dataset.Dataset, _ Params) (Panel, error) {
	res, err := rollup.Group(ds.Transactions(), rollup.Spec{
		GroupBy: []string{models.ColDescription},
		Metric:  revenue,
		Extra:   []rollup.Metric{orders, avgPrice},
	})
	if err != nil {
		return Panel{}, err
	}
	top := rollup.Top(res, topProducts)
	return single("revenue", top, rollup.Highest(top, "top product by revenue")), nil
}

func productQuantity(ds *dataset.Dataset, _ Params) (Panel, error) {
	res, err := rollup.Group(ds.Transactions(), rollup.Spec{
		GroupBy: []string{models.ColDescription},
		Metric:  quantity,
		Extra:   []rollup.Metric{revenue},
	})
	if err != nil {
		return Panel{}, err
	}
	top := rollup.Top(res, topProducts)
	return single("quantity", top, rollup.Highest(top, "top product by quantity")), nil
}

func productScatter(ds *dataset.Dataset, _ Params) (Panel, error) {
	res, err := rollup.Group(ds.Transactions(), rollup.Spec{
		GroupBy: []string{models.ColDescription},
		Metric:  revenue,
		Extra:   []rollup.Metric{quantity, avgPrice},
	})
	if err != nil {
		return Panel{}, err
	}
	res = rollup.Keep(res, func(r rollup.Row) bool { return r.Valid && r.Value > 0 })

	points := make([]Point, 0, res.Len())
	for i, row := range res.Rows {
		q := res.ExtraValue(i, quantity.Label())
		if !q.Valid {
			continue
		}
		points = append(points, Point{Key: row.Key(), X: q.Amount, Y: row.Value})
	}
	in := rollup.Highest(res, "top product by revenue").
		With(rollup.Scalar("products", float64(len(points))))
	panel := single("revenue", res, in)
	panel.Points = points
	return panel, nil
}

// ordersOver counts distinct invoices per key of column and completes the
// result onto domain. empty reports whether any row matched before completion.
func ordersOver(ds *dataset.Dataset, column string, domain []string, filters ...rollup.Filter) (res *rollup.Result, empty bool, err error) {
	res, err = rollup.Group(ds.Transactions(), rollup.Spec{
		GroupBy: []string{column},
		Metric:  orders,
		Filters: filters,
	})
	if err != nil {
		return nil, false, err
	}
	return rollup.Complete(res, domain), res.Empty(), nil
}

func activityWeekday(ds *dataset.Dataset, _ Params) (Panel, error) {
	res, empty, err := ordersOver(ds, models.ColDayName, rollup.Weekdays)
	if err != nil {
		return Panel{}, err
	}
	in := rollup.NoData()
	if !empty {
		in = rollup.Extremes(res, "busiest day", "quietest day")
	}
	return single("orders", res, in), nil
}

func activityHourly(ds *dataset.Dataset, p Params) (Panel, error) {
	day := p.day()
	res, empty, err := ordersOver(ds, models.ColHour, rollup.Hours(), rollup.Equal(models.ColDayName, day))
	if err != nil {
		return Panel{}, err
	}
	in := rollup.NoData()
	if !empty {
		in = rollup.Highest(res, "busiest hour")
	}
	panel := single("orders", res, in)
	panel.Params = map[string]string{ParamDay: day}
	return panel, nil
}

func activityMonth(ds *dataset.Dataset, _ Params) (Panel, error) {
	res, empty, err := ordersOver(ds, models.ColMonthName, rollup.Months)
	if err != nil {
		return Panel{}, err
	}
	in := rollup.NoData()
	if !empty {
		in = rollup.Extremes(res, "busiest month", "quietest month")
	}
	return single("orders", res, in), nil
}
