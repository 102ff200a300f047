// Package dataset loads the transaction and customer segmentation tables and
// exposes them to the rollup engine as read-only sources.
package dataset

import (
	"slices"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"rfm-dashboard/internal/models"
	"rfm-dashboard/internal/rollup"
)

// Segment columns that are resolved onto transactions through CustomerID.
var joinedColumns = map[string]bool{
	models.ColRFMSegment: false,
	models.ColCluster:    true,
	models.ColRScore:     true,
	models.ColFScore:     true,
	models.ColMScore:     true,
}

// Dataset holds both tables for the lifetime of the process. It is never
// mutated after construction, so concurrent readers need no locking.
type Dataset struct {
	transactions []models.Transaction
	segments     []models.CustomerSegment
	// segmentOf maps a transaction row to its customer's segment row, -1 when
	// the customer has no segment.
	segmentOf []int

	countries    []string
	segmentNames []string
	clusters     []int

	origin   string
	loadedAt time.Time
}

// New builds a dataset from already cleaned rows. Duplicate customers in the
// segment table keep their first row.
func New(transactions []models.Transaction, segments []models.CustomerSegment, origin string) *Dataset {
	d := &Dataset{
		transactions: transactions,
		origin:       origin,
		loadedAt:     time.Now(),
	}

	byCustomer := make(map[string]int, len(segments))
	d.segments = make([]models.CustomerSegment, 0, len(segments))
	for _, s := range segments {
		if _, dup := byCustomer[s.CustomerID]; dup {
			continue
		}
		byCustomer[s.CustomerID] = len(d.segments)
		d.segments = append(d.segments, s)
	}

	d.segmentOf = make([]int, len(transactions))
	countries := make(map[string]struct{})
	for i, tx := range transactions {
		if idx, ok := byCustomer[tx.CustomerID]; ok {
			d.segmentOf[i] = idx
		} else {
			d.segmentOf[i] = -1
		}
		if tx.Country != "" {
			countries[tx.Country] = struct{}{}
		}
	}
	d.countries = sortedKeys(countries)

	names := make(map[string]struct{})
	clusters := make(map[int]struct{})
	for _, s := range d.segments {
		if s.RFMSegment != "" {
			names[s.RFMSegment] = struct{}{}
		}
		clusters[s.Cluster] = struct{}{}
	}
	d.segmentNames = sortedKeys(names)
	d.clusters = sortedKeys(clusters)
	return d
}

func sortedKeys[K string | int](m map[K]struct{}) []K {
	out := make([]K, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Transactions returns the transaction table joined with the rfm_segment,
// cluster and score columns of each transaction's customer.
func (d *Dataset) Transactions() rollup.Source {
	return &joined{d: d, table: rollup.NewTable(d.transactions, models.TransactionColumns)}
}

// Segments returns the segmentation table, one row per customer.
func (d *Dataset) Segments() rollup.Source {
	return rollup.NewTable(d.segments, models.SegmentColumns)
}

// SegmentRows returns the segment rows themselves, for point plots.
func (d *Dataset) SegmentRows() []models.CustomerSegment { return d.segments }

func (d *Dataset) Countries() []string    { return d.countries }
func (d *Dataset) SegmentNames() []string { return d.segmentNames }
func (d *Dataset) Clusters() []int        { return d.clusters }

func (d *Dataset) TransactionCount() int { return len(d.transactions) }
func (d *Dataset) CustomerCount() int    { return len(d.segments) }

// Stats describes the loaded data for the admin endpoint.
func (d *Dataset) Stats() map[string]any {
	return map[string]any{
		"origin":       d.origin,
		"loaded_at":    d.loadedAt,
		"transactions": len(d.transactions),
		"customers":    len(d.segments),
		"countries":    len(d.countries),
		"segments":     len(d.segmentNames),
		"clusters":     len(d.clusters),
	}
}

type joined struct {
	d     *Dataset
	table *rollup.Table[models.Transaction]
}

func (j *joined) Len() int { return j.table.Len() }

func (j *joined) segment(i int) (models.CustomerSegment, bool) {
	if i < 0 || i >= len(j.d.segmentOf) || j.d.segmentOf[i] < 0 {
		return models.CustomerSegment{}, false
	}
	return j.d.segments[j.d.segmentOf[i]], true
}

func (j *joined) Text(i int, column string) (string, bool) {
	if _, ok := joinedColumns[column]; ok {
		s, found := j.segment(i)
		if !found {
			return "", false
		}
		return s.Text(column)
	}
	return j.table.Text(i, column)
}

func (j *joined) Number(i int, column string) (decimal.Decimal, bool) {
	if _, ok := joinedColumns[column]; ok {
		s, found := j.segment(i)
		if !found {
			return decimal.Zero, false
		}
		return s.Number(column)
	}
	return j.table.Number(i, column)
}

func (j *joined) Column(name string) (bool, bool) {
	if numeric, ok := joinedColumns[name]; ok {
		return numeric, true
	}
	return j.table.Column(name)
}

// ClusterLabel formats a cluster id the way it is used as a grouping key.
func ClusterLabel(c int) string { return strconv.Itoa(c) }
