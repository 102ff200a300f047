// Package datasettest provides a small, fully known dataset for tests of the
// packages that serve panels.
package datasettest

import (
	"time"

	"github.com/shopspring/decimal"

	"rfm-dashboard/internal/dataset"
	"rfm-dashboard/internal/models"
)

func nd(v int64) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: decimal.NewFromInt(v), Valid: true}
}

// Small returns three customers in two countries. Revenue: United Kingdom 60,
// France 40.
func Small() *dataset.Dataset {
	at := time.Date(2011, 12, 5, 9, 0, 0, 0, time.UTC)
	txs := []models.Transaction{
		models.NewTransaction("536365", "85123A", "WHITE HANGING HEART", "17850", "United Kingdom", 6, decimal.NewFromInt(5), at),
		models.NewTransaction("536366", "71053", "WHITE METAL LANTERN", "17850", "United Kingdom", 6, decimal.NewFromInt(5), at.Add(time.Hour)),
		models.NewTransaction("536367", "84406B", "CREAM CUPID HEARTS", "12583", "France", 8, decimal.NewFromInt(5), at.AddDate(0, 0, 1)),
	}
	segs := []models.CustomerSegment{
		{CustomerID: "17850", RScore: 5, FScore: 4, MScore: 4, RFMSegment: "Champions", Cluster: 1,
			Recency: nd(1), Frequency: nd(2), Monetary: nd(60), QuantityTotal: nd(12), TotalAmountTotal: nd(60)},
		{CustomerID: "12583", RScore: 2, FScore: 1, MScore: 3, RFMSegment: "At Risk", Cluster: 0,
			Recency: nd(40), Frequency: nd(1), Monetary: nd(40), QuantityTotal: nd(8), TotalAmountTotal: nd(40)},
		{CustomerID: "13047", RScore: 1, FScore: 1, MScore: 1, RFMSegment: "Hibernating", Cluster: 2,
			Recency: nd(300), Frequency: nd(1), Monetary: nd(10), QuantityTotal: nd(2), TotalAmountTotal: nd(10)},
	}
	return dataset.New(txs, segs, "fixture")
}
