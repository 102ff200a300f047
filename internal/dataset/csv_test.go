package dataset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const transactionsCSV = `InvoiceNo,StockCode,Description,Quantity,InvoiceDate,UnitPrice,CustomerID,Country,TotalAmount
536365,85123A,WHITE HANGING HEART,6,2010-12-01 08:26:00,2.55,17850.0,United Kingdom,15.30
536366,22633,"HAND WARMER, UNION JACK",6,12/1/2010 8:28,1.85,17850,United Kingdom,11.10
536367,84879,ASSORTED BIRD ORNAMENT,32,2010-12-01 08:34:00,1.69,,United Kingdom,54.08
,84879,NO INVOICE,1,2010-12-01 08:34:00,1.69,13047,United Kingdom,1.69
536368,22960,JAM MAKING SET,6,2010-12-01 08:34:00,4.25,13047,France,
536369,21756,BATH BUILDING BLOCK,three,2010-12-01 08:35:00,5.95,13047,France,17.85
536370,22728,ALARM CLOCK,24,not a date,3.75,12583,France,90.00
`

const segmentsCSV = `CustomerID,Recency,Frequency,Monetary,R_Score,F_Score,M_Score,RFM_Score,RFM_Segment,Cluster,Quantity_total,UnitPrice_avg,TotalAmount_total,Total_transaction_total
17850.0,301,34,5288.63,1,5,5,11,Can't Lose Them,0,1733,3.92,5288.63,312
13047,31,10,3079.10,3,4,5,12,Loyal Customers,3.0,1391,3.85,3079.10,196
12583,2,15,7187.34,5,4,5,14,Champions,1,5028,2.18,n/a,251
,1,1,1,1,1,1,3,Lost,2,1,1,1,1
99999,1,1,1,x,1,1,3,Lost,2,1,1,1,1
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadTransactions_CleansRows(t *testing.T) {
	path := writeFile(t, "data.csv", transactionsCSV)

	txs, err := ReadTransactions(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, txs, 3)

	assert.Equal(t, "536365", txs[0].InvoiceNo)
	assert.Equal(t, "17850", txs[0].CustomerID)
	assert.True(t, txs[0].TotalAmount.Equal(decimal.RequireFromString("15.30")))
	assert.Equal(t, 8, txs[0].Hour())

	assert.Equal(t, "HAND WARMER, UNION JACK", txs[1].Description)
	assert.Equal(t, "Wednesday", txs[1].DayName())

	assert.Equal(t, "536370", txs[2].InvoiceNo)
	assert.True(t, txs[2].InvoiceDate.IsZero())
}

func TestReadTransactions_ComputesMissingTotalColumn(t *testing.T) {
	content := `InvoiceNo,StockCode,Description,Quantity,InvoiceDate,UnitPrice,CustomerID,Country
536365,85123A,WHITE HANGING HEART,6,2010-12-01 08:26:00,2.55,17850,United Kingdom
`
	txs, err := ReadTransactions(context.Background(), writeFile(t, "data.csv", content))
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.True(t, txs[0].TotalAmount.Equal(decimal.RequireFromString("15.30")))
}

func TestReadTransactions_KeepsFileOrderAcrossBatches(t *testing.T) {
	var b strings.Builder
	b.WriteString("InvoiceNo,StockCode,Description,Quantity,InvoiceDate,UnitPrice,CustomerID,Country\n")
	n := batchSize + 37
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "%d,S,D,1,2011-01-01 10:00:00,1.00,C%d,X\n", i, i%7)
	}

	txs, err := ReadTransactions(context.Background(), writeFile(t, "big.csv", b.String()))
	require.NoError(t, err)
	require.Len(t, txs, n)
	for i, tx := range txs {
		if tx.InvoiceNo != fmt.Sprint(i) {
			t.Fatalf("row %d has invoice %s", i, tx.InvoiceNo)
		}
	}
}

func TestReadTransactions_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := ReadTransactions(ctx, filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)

	_, err = ReadTransactions(ctx, writeFile(t, "empty.csv", ""))
	assert.Error(t, err)

	_, err = ReadTransactions(ctx, writeFile(t, "cols.csv", "InvoiceNo,Country\n1,UK\n"))
	assert.ErrorIs(t, err, ErrMissingColumn)

	_, err = ReadTransactions(ctx, writeFile(t, "norows.csv", strings.SplitN(transactionsCSV, "\n", 2)[0]+"\n"))
	assert.ErrorIs(t, err, ErrNoRecords)
}

func TestReadTransactions_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ReadTransactions(ctx, writeFile(t, "data.csv", transactionsCSV))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReadSegments(t *testing.T) {
	segs, err := ReadSegments(context.Background(), writeFile(t, "seg.csv", segmentsCSV))
	require.NoError(t, err)
	require.Len(t, segs, 3)

	assert.Equal(t, "17850", segs[0].CustomerID)
	assert.Equal(t, "Can't Lose Them", segs[0].RFMSegment)
	assert.Equal(t, 1, segs[0].RScore)
	assert.True(t, segs[0].Monetary.Valid)

	assert.Equal(t, 3, segs[1].Cluster)

	assert.Equal(t, "Champions", segs[2].RFMSegment)
	assert.False(t, segs[2].TotalAmountTotal.Valid)
	assert.True(t, segs[2].Recency.Decimal.Equal(decimal.NewFromInt(2)))
}

func TestReadTransactions_DropsAmountsOutsideFloatRange(t *testing.T) {
	content := `InvoiceNo,StockCode,Description,Quantity,InvoiceDate,UnitPrice,CustomerID,Country,TotalAmount
536365,85123A,WHITE HANGING HEART,6,2010-12-01 08:26:00,2.55,17850,United Kingdom,1e400
536366,22633,HAND WARMER,6,2010-12-01 08:28:00,1e400,17850,United Kingdom,11.10
536367,84879,ASSORTED BIRD ORNAMENT,32,2010-12-01 08:34:00,1.69,13047,France,54.08
`
	txs, err := ReadTransactions(context.Background(), writeFile(t, "data.csv", content))
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "536367", txs[0].InvoiceNo)
}

func TestReadSegments_RejectsFractionalScores(t *testing.T) {
	content := `CustomerID,Recency,Frequency,Monetary,R_Score,F_Score,M_Score,RFM_Score,RFM_Segment,Cluster,Quantity_total,UnitPrice_avg,TotalAmount_total,Total_transaction_total
17850,301,34,5288.63,3.7,5,5,11,Can't Lose Them,0,1733,3.92,5288.63,312
13047,31,10,3079.10,3,4,5,12,Loyal Customers,2.5,1391,3.85,3079.10,196
12583,2,15,1e400,5,4,5,14,Champions,1,5028,2.18,7187.34,251
12584,2,15,10,5,4,5,14,Champions,1e12,5028,2.18,7187.34,251
`
	segs, err := ReadSegments(context.Background(), writeFile(t, "seg.csv", content))
	require.NoError(t, err)
	require.Len(t, segs, 1)

	assert.Equal(t, "12583", segs[0].CustomerID)
	assert.False(t, segs[0].Monetary.Valid)
	assert.Equal(t, 5, segs[0].RScore)
}

func TestParseInt(t *testing.T) {
	h := header{"Quantity": 0}
	tests := []struct {
		value   string
		want    int
		wantErr error
	}{
		{"6", 6, nil},
		{"3.0", 3, nil},
		{"-2.00", -2, nil},
		{"3.7", 0, errNotWhole},
		{"1e12", 0, errOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, err := parseInt(h, []string{tt.value}, "Quantity")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadCSV(t *testing.T) {
	ds, err := LoadCSV(context.Background(),
		writeFile(t, "data.csv", transactionsCSV),
		writeFile(t, "seg.csv", segmentsCSV))
	require.NoError(t, err)

	assert.Equal(t, 3, ds.TransactionCount())
	assert.Equal(t, 3, ds.CustomerCount())
	assert.Equal(t, []string{"France", "United Kingdom"}, ds.Countries())

	seg, ok := ds.Transactions().Text(0, "rfm_segment")
	require.True(t, ok)
	assert.Equal(t, "Can't Lose Them", seg)
}

func TestLoadCSV_PropagatesErrors(t *testing.T) {
	_, err := LoadCSV(context.Background(),
		writeFile(t, "data.csv", transactionsCSV),
		filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}
