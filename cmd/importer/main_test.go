package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfm-dashboard/internal/dataset"
)

const (
	transactionsCSV = "InvoiceNo,StockCode,Description,Quantity,InvoiceDate,UnitPrice,CustomerID,Country,TotalAmount\n" +
		"536365,85123A,WHITE HANGING HEART,6,2010-12-01 08:26:00,2.55,17850.0,United Kingdom,15.30\n" +
		"536366,22633,HAND WARMER,6,2010-12-01 08:28:00,1.85,13047.0,France,11.10\n"
	segmentsCSV = "CustomerID,R_Score,F_Score,M_Score,RFM_Score,RFM_Segment,Cluster,Recency,Frequency,Monetary,Quantity_total,UnitPrice_avg,TotalAmount_total,Total_transaction_total\n" +
		"17850,5,4,4,13,Champions,1,2,34,5391.21,1733,3.92,5391.21,297\n"
)

func TestImportCSV(t *testing.T) {
	dir := t.TempDir()
	txFile := filepath.Join(dir, "data.csv")
	segFile := filepath.Join(dir, "segments.csv")
	require.NoError(t, os.WriteFile(txFile, []byte(transactionsCSV), 0o600))
	require.NoError(t, os.WriteFile(segFile, []byte(segmentsCSV), 0o600))

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	// Holds the shared in-memory database open across the import.
	db, err := dataset.OpenDB("sqlite", dsn)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	require.NoError(t, importCSV(context.Background(), logger, txFile, segFile, "sqlite", dsn))

	ds, err := dataset.LoadSQL(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, 2, ds.TransactionCount())
	assert.Equal(t, 1, ds.CustomerCount())
}

func TestImportCSV_Errors(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	err := importCSV(context.Background(), logger, "missing.csv", "missing.csv", "sqlite", "file::memory:")
	assert.Error(t, err)
}
