package models

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// CustomerSegment is one row of the externally computed segmentation table.
// Lifetime aggregates that failed numeric coercion upstream are left invalid.
type CustomerSegment struct {
	CustomerID       string
	RScore           int
	FScore           int
	MScore           int
	RFMScore         decimal.NullDecimal
	RFMSegment       string
	Cluster          int
	Recency          decimal.NullDecimal
	Frequency        decimal.NullDecimal
	Monetary         decimal.NullDecimal
	QuantityTotal    decimal.NullDecimal
	UnitPriceAvg     decimal.NullDecimal
	TotalAmountTotal decimal.NullDecimal
	TransactionTotal decimal.NullDecimal
}

const (
	ColRScore           = "r_score"
	ColFScore           = "f_score"
	ColMScore           = "m_score"
	ColRFMScore         = "rfm_score"
	ColRFMSegment       = "rfm_segment"
	ColCluster          = "cluster"
	ColRecency          = "recency"
	ColFrequency        = "frequency"
	ColMonetary         = "monetary"
	ColQuantityTotal    = "quantity_total"
	ColUnitPriceAvg     = "unit_price_avg"
	ColTotalAmountTotal = "total_amount_total"
	ColTransactionTotal = "transaction_total"
)

// SegmentColumns lists every segment column and whether it is numeric.
var SegmentColumns = map[string]bool{
	ColCustomerID:       false,
	ColRScore:           true,
	ColFScore:           true,
	ColMScore:           true,
	ColRFMScore:         true,
	ColRFMSegment:       false,
	ColCluster:          true,
	ColRecency:          true,
	ColFrequency:        true,
	ColMonetary:         true,
	ColQuantityTotal:    true,
	ColUnitPriceAvg:     true,
	ColTotalAmountTotal: true,
	ColTransactionTotal: true,
}

func (c CustomerSegment) Text(column string) (string, bool) {
	switch column {
	case ColCustomerID:
		return c.CustomerID, c.CustomerID != ""
	case ColRFMSegment:
		return c.RFMSegment, c.RFMSegment != ""
	case ColRScore:
		return strconv.Itoa(c.RScore), true
	case ColFScore:
		return strconv.Itoa(c.FScore), true
	case ColMScore:
		return strconv.Itoa(c.MScore), true
	case ColCluster:
		return strconv.Itoa(c.Cluster), true
	}
	if v, ok := c.Number(column); ok {
		return v.String(), true
	}
	return "", false
}

func (c CustomerSegment) Number(column string) (decimal.Decimal, bool) {
	switch column {
	case ColRScore:
		return decimal.NewFromInt(int64(c.RScore)), true
	case ColFScore:
		return decimal.NewFromInt(int64(c.FScore)), true
	case ColMScore:
		return decimal.NewFromInt(int64(c.MScore)), true
	case ColCluster:
		return decimal.NewFromInt(int64(c.Cluster)), true
	case ColRFMScore:
		return c.RFMScore.Decimal, c.RFMScore.Valid
	case ColRecency:
		return c.Recency.Decimal, c.Recency.Valid
	case ColFrequency:
		return c.Frequency.Decimal, c.Frequency.Valid
	case ColMonetary:
		return c.Monetary.Decimal, c.Monetary.Valid
	case ColQuantityTotal:
		return c.QuantityTotal.Decimal, c.QuantityTotal.Valid
	case ColUnitPriceAvg:
		return c.UnitPriceAvg.Decimal, c.UnitPriceAvg.Valid
	case ColTotalAmountTotal:
		return c.TotalAmountTotal.Decimal, c.TotalAmountTotal.Valid
	case ColTransactionTotal:
		return c.TransactionTotal.Decimal, c.TransactionTotal.Valid
	}
	return decimal.Zero, false
}
