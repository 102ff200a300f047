package dataset

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"rfm-dashboard/internal/models"
)

const (
	batchSize  = 10000
	maxWorkers = 10
)

var (
	ErrMissingColumn = errors.New("missing required column")
	ErrNoRecords     = errors.New("no valid records found")

	errMissingValue = errors.New("missing value")
	errOutOfRange   = errors.New("value out of range")
	errNotWhole     = errors.New("not a whole number")
)

// Transaction CSV header.
const (
	HeaderInvoiceNo   = "InvoiceNo"
	HeaderStockCode   = "StockCode"
	HeaderDescription = "Description"
	HeaderQuantity    = "Quantity"
	HeaderInvoiceDate = "InvoiceDate"
	HeaderUnitPrice   = "UnitPrice"
	HeaderCustomerID  = "CustomerID"
	HeaderCountry     = "Country"
	HeaderTotalAmount = "TotalAmount"
)

// Segmentation CSV header.
const (
	HeaderRecency          = "Recency"
	HeaderFrequency        = "Frequency"
	HeaderMonetary         = "Monetary"
	HeaderRScore           = "R_Score"
	HeaderFScore           = "F_Score"
	HeaderMScore           = "M_Score"
	HeaderRFMScore         = "RFM_Score"
	HeaderRFMSegment       = "RFM_Segment"
	HeaderCluster          = "Cluster"
	HeaderQuantityTotal    = "Quantity_total"
	HeaderUnitPriceAvg     = "UnitPrice_avg"
	HeaderTotalAmountTotal = "TotalAmount_total"
	HeaderTransactionTotal = "Total_transaction_total"
)

var transactionRequired = []string{
	HeaderInvoiceNo, HeaderStockCode, HeaderDescription, HeaderQuantity,
	HeaderInvoiceDate, HeaderUnitPrice, HeaderCustomerID, HeaderCountry,
}

var segmentRequired = []string{
	HeaderCustomerID, HeaderRScore, HeaderFScore, HeaderMScore, HeaderRFMSegment, HeaderCluster,
}

var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"1/2/2006 15:04",
	"01/02/2006 15:04",
	"2006-01-02",
}

// LoadCSV reads the transaction and segmentation files concurrently and
// builds a Dataset from them. Malformed rows are skipped and counted.
func LoadCSV(ctx context.Context, transactionsPath, segmentsPath string) (*Dataset, error) {
	var (
		txs  []models.Transaction
		segs []models.CustomerSegment
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		txs, err = ReadTransactions(gctx, transactionsPath)
		return err
	})
	g.Go(func() error {
		var err error
		segs, err = ReadSegments(gctx, segmentsPath)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return New(txs, segs, "csv"), nil
}

// ReadTransactions parses the transaction file. Rows without an invoice,
// customer or total amount are dropped. When the file has no TotalAmount
// column it is computed as Quantity x UnitPrice.
func ReadTransactions(ctx context.Context, path string) ([]models.Transaction, error) {
	return readFile(ctx, path, transactionRequired, func(h header) func([]string) (models.Transaction, error) {
		_, hasTotal := h[HeaderTotalAmount]
		return func(rec []string) (models.Transaction, error) {
			return parseTransaction(h, rec, hasTotal)
		}
	})
}

// ReadSegments parses the customer segmentation file. Lifetime aggregates
// that are not numeric are kept as missing values.
func ReadSegments(ctx context.Context, path string) ([]models.CustomerSegment, error) {
	return readFile(ctx, path, segmentRequired, func(h header) func([]string) (models.CustomerSegment, error) {
		return func(rec []string) (models.CustomerSegment, error) {
			return parseSegment(h, rec)
		}
	})
}

type header map[string]int

func (h header) get(rec []string, name string) (string, bool) {
	i, ok := h[name]
	if !ok || i >= len(rec) {
		return "", false
	}
	v := strings.TrimSpace(rec[i])
	return v, v != ""
}

func readHeader(r *csv.Reader, required []string) (header, error) {
	names, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("empty file")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	h := make(header, len(names))
	for i, name := range names {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, dup := h[name]; !dup {
			h[name] = i
		}
	}
	for _, name := range required {
		if _, ok := h[name]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}
	return h, nil
}

func readFile[T any](ctx context.Context, path string, required []string, parser func(header) func([]string) (T, error)) (out []T, err error) {
	start := time.Now()
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer multierr.AppendInvoke(&err, multierr.Close(file))

	r := csv.NewReader(bufio.NewReaderSize(file, 1024*1024))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	h, err := readHeader(r, required)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	parse := parser(h)

	skipped := 0
	batch := make([][]string, 0, batchSize)
	flush := func() error {
		rows, bad, err := parseBatch(ctx, batch, parse)
		if err != nil {
			return err
		}
		out = append(out, rows...)
		skipped += bad
		batch = batch[:0]
		return nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				skipped++
				continue
			}
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		batch = append(batch, rec)
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}
	if len(batch) > 0 {
		if err := flush(); err != nil {
			return nil, err
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoRecords)
	}

	slog.Default().Info("csv parsed",
		"file", path,
		"records", len(out),
		"skipped", skipped,
		"duration", time.Since(start))
	return out, nil
}

// parseBatch splits batch into contiguous chunks parsed in parallel. Output
// keeps file order; rows that fail to parse are dropped and counted.
func parseBatch[T any](ctx context.Context, batch [][]string, parse func([]string) (T, error)) ([]T, int, error) {
	results := make([]T, len(batch))
	valid := make([]bool, len(batch))

	chunk := (len(batch) + maxWorkers - 1) / maxWorkers
	if chunk == 0 {
		return nil, 0, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)
	for lo := 0; lo < len(batch); lo += chunk {
		hi := min(lo+chunk, len(batch))
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				v, err := parse(batch[i])
				if err != nil {
					continue
				}
				results[i], valid[i] = v, true
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	out := make([]T, 0, len(batch))
	bad := 0
	for i := range results {
		if !valid[i] {
			bad++
			continue
		}
		out = append(out, results[i])
	}
	return out, bad, nil
}

func parseTransaction(h header, rec []string, hasTotal bool) (models.Transaction, error) {
	invoice, ok := h.get(rec, HeaderInvoiceNo)
	if !ok {
		return models.Transaction{}, fmt.Errorf("%s: %w", HeaderInvoiceNo, errMissingValue)
	}
	raw, ok := h.get(rec, HeaderCustomerID)
	if !ok {
		return models.Transaction{}, fmt.Errorf("%s: %w", HeaderCustomerID, errMissingValue)
	}

	quantity, err := parseInt(h, rec, HeaderQuantity)
	if err != nil {
		return models.Transaction{}, err
	}
	price, err := parseDecimal(h, rec, HeaderUnitPrice)
	if err != nil {
		return models.Transaction{}, err
	}

	stock, _ := h.get(rec, HeaderStockCode)
	desc, _ := h.get(rec, HeaderDescription)
	country, _ := h.get(rec, HeaderCountry)
	date, _ := h.get(rec, HeaderInvoiceDate)

	tx := models.NewTransaction(invoice, stock, desc, NormalizeCustomerID(raw), country, quantity, price, parseTime(date))
	if hasTotal {
		total, err := parseDecimal(h, rec, HeaderTotalAmount)
		if err != nil {
			return models.Transaction{}, err
		}
		tx.TotalAmount = total
	}
	return tx, nil
}

func parseSegment(h header, rec []string) (models.CustomerSegment, error) {
	raw, ok := h.get(rec, HeaderCustomerID)
	if !ok {
		return models.CustomerSegment{}, fmt.Errorf("%s: %w", HeaderCustomerID, errMissingValue)
	}

	seg := models.CustomerSegment{CustomerID: NormalizeCustomerID(raw)}
	seg.RFMSegment, _ = h.get(rec, HeaderRFMSegment)

	var err error
	for name, dst := range map[string]*int{
		HeaderRScore:  &seg.RScore,
		HeaderFScore:  &seg.FScore,
		HeaderMScore:  &seg.MScore,
		HeaderCluster: &seg.Cluster,
	} {
		if *dst, err = parseInt(h, rec, name); err != nil {
			return models.CustomerSegment{}, err
		}
	}

	for name, dst := range map[string]*decimal.NullDecimal{
		HeaderRecency:          &seg.Recency,
		HeaderFrequency:        &seg.Frequency,
		HeaderMonetary:         &seg.Monetary,
		HeaderRFMScore:         &seg.RFMScore,
		HeaderQuantityTotal:    &seg.QuantityTotal,
		HeaderUnitPriceAvg:     &seg.UnitPriceAvg,
		HeaderTotalAmountTotal: &seg.TotalAmountTotal,
		HeaderTransactionTotal: &seg.TransactionTotal,
	} {
		*dst = parseNullDecimal(h, rec, name)
	}
	return seg, nil
}

func parseDecimal(h header, rec []string, name string) (decimal.Decimal, error) {
	v, ok := h.get(rec, name)
	if !ok {
		return decimal.Zero, fmt.Errorf("%s: %w", name, errMissingValue)
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", name, err)
	}
	if f := d.InexactFloat64(); math.IsInf(f, 0) || math.IsNaN(f) {
		return decimal.Zero, fmt.Errorf("%s %q: %w", name, v, errOutOfRange)
	}
	return d, nil
}

func parseNullDecimal(h header, rec []string, name string) decimal.NullDecimal {
	d, err := parseDecimal(h, rec, name)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

// parseInt accepts integral values written as floats, e.g. "3.0". Values
// with a fractional part are rejected.
func parseInt(h header, rec []string, name string) (int, error) {
	v, ok := h.get(rec, name)
	if !ok {
		return 0, fmt.Errorf("%s: %w", name, errMissingValue)
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	if !d.Equal(d.Truncate(0)) {
		return 0, fmt.Errorf("%s %q: %w", name, v, errNotWhole)
	}
	if d.GreaterThan(decimal.NewFromInt(math.MaxInt32)) || d.LessThan(decimal.NewFromInt(math.MinInt32)) {
		return 0, fmt.Errorf("%s %q: %w", name, v, errOutOfRange)
	}
	return int(d.IntPart()), nil
}

// parseTime returns the zero time for values in no known layout; the
// derived calendar columns then read as missing.
func parseTime(v string) time.Time {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

// NormalizeCustomerID strips the float suffix spreadsheets add to numeric
// ids ("17850.0" becomes "17850") so both tables join on the same key.
func NormalizeCustomerID(id string) string {
	id = strings.TrimSpace(id)
	if whole, ok := strings.CutSuffix(id, ".0"); ok && whole != "" {
		if _, err := strconv.Atoi(whole); err == nil {
			return whole
		}
	}
	return id
}
