package dataset

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"rfm-dashboard/internal/models"
)

const insertBatchSize = 500

type transactionRow struct {
	ID          uint                `gorm:"primaryKey"`
	InvoiceNo   string              `gorm:"column:invoice_no;index"`
	StockCode   string              `gorm:"column:stock_code"`
	Description string              `gorm:"column:description"`
	Quantity    int                 `gorm:"column:quantity"`
	InvoiceDate time.Time           `gorm:"column:invoice_date"`
	UnitPrice   decimal.Decimal     `gorm:"column:unit_price;type:numeric"`
	CustomerID  string              `gorm:"column:customer_id;index"`
	Country     string              `gorm:"column:country"`
	TotalAmount decimal.NullDecimal `gorm:"column:total_amount;type:numeric"`
}

func (transactionRow) TableName() string { return "transactions" }

type segmentRow struct {
	ID               uint                `gorm:"primaryKey"`
	CustomerID       string              `gorm:"column:customer_id;uniqueIndex"`
	Recency          decimal.NullDecimal `gorm:"column:recency;type:numeric"`
	Frequency        decimal.NullDecimal `gorm:"column:frequency;type:numeric"`
	Monetary         decimal.NullDecimal `gorm:"column:monetary;type:numeric"`
	RScore           int                 `gorm:"column:r_score"`
	FScore           int                 `gorm:"column:f_score"`
	MScore           int                 `gorm:"column:m_score"`
	RFMScore         decimal.NullDecimal `gorm:"column:rfm_score;type:numeric"`
	RFMSegment       string              `gorm:"column:rfm_segment"`
	Cluster          int                 `gorm:"column:cluster"`
	QuantityTotal    decimal.NullDecimal `gorm:"column:quantity_total;type:numeric"`
	UnitPriceAvg     decimal.NullDecimal `gorm:"column:unit_price_avg;type:numeric"`
	TotalAmountTotal decimal.NullDecimal `gorm:"column:total_amount_total;type:numeric"`
	TransactionTotal decimal.NullDecimal `gorm:"column:transaction_total;type:numeric"`
}

func (segmentRow) TableName() string { return "customer_segments" }

// OpenDB opens a gorm connection for driver "sqlite" or "postgres".
func OpenDB(driver, dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database DSN is required")
	}

	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.New(postgres.Config{DSN: dsn, PreferSimpleProtocol: true})
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 gormlogger.New(log.New(io.Discard, "", log.LstdFlags), gormlogger.Config{LogLevel: gormlogger.Silent}),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening db connection: %w", err)
	}
	return conn, nil
}

// Migrate creates the transactions and customer_segments tables.
func Migrate(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).AutoMigrate(&transactionRow{}, &segmentRow{})
}

// LoadSQL reads both tables in insertion order and applies the same cleaning
// as the CSV loader.
func LoadSQL(ctx context.Context, db *gorm.DB) (*Dataset, error) {
	var txRows []transactionRow
	if err := db.WithContext(ctx).
		Where("invoice_no <> '' AND customer_id <> ''").
		Order("id").
		Find(&txRows).Error; err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}

	var segRows []segmentRow
	if err := db.WithContext(ctx).
		Where("customer_id <> ''").
		Order("id").
		Find(&segRows).Error; err != nil {
		return nil, fmt.Errorf("load customer segments: %w", err)
	}

	txs := make([]models.Transaction, 0, len(txRows))
	for _, r := range txRows {
		if !r.TotalAmount.Valid {
			continue
		}
		tx := models.NewTransaction(r.InvoiceNo, r.StockCode, r.Description, NormalizeCustomerID(r.CustomerID),
			r.Country, r.Quantity, r.UnitPrice, r.InvoiceDate)
		tx.TotalAmount = r.TotalAmount.Decimal
		txs = append(txs, tx)
	}
	if len(txs) == 0 {
		return nil, fmt.Errorf("transactions: %w", ErrNoRecords)
	}

	segs := make([]models.CustomerSegment, 0, len(segRows))
	for _, r := range segRows {
		segs = append(segs, models.CustomerSegment{
			CustomerID:       NormalizeCustomerID(r.CustomerID),
			RScore:           r.RScore,
			FScore:           r.FScore,
			MScore:           r.MScore,
			RFMScore:         r.RFMScore,
			RFMSegment:       r.RFMSegment,
			Cluster:          r.Cluster,
			Recency:          r.Recency,
			Frequency:        r.Frequency,
			Monetary:         r.Monetary,
			QuantityTotal:    r.QuantityTotal,
			UnitPriceAvg:     r.UnitPriceAvg,
			TotalAmountTotal: r.TotalAmountTotal,
			TransactionTotal: r.TransactionTotal,
		})
	}

	return New(txs, segs, "sql"), nil
}

// Store writes both tables of ds inside one transaction, replacing any rows
// already present.
func Store(ctx context.Context, db *gorm.DB, ds *Dataset) error {
	if err := Migrate(ctx, db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&transactionRow{}).Error; err != nil {
			return fmt.Errorf("clear transactions: %w", err)
		}
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&segmentRow{}).Error; err != nil {
			return fmt.Errorf("clear customer segments: %w", err)
		}

		txRows := make([]transactionRow, 0, len(ds.transactions))
		for _, t := range ds.transactions {
			txRows = append(txRows, transactionRow{
				InvoiceNo:   t.InvoiceNo,
				StockCode:   t.StockCode,
				Description: t.Description,
				Quantity:    t.Quantity,
				InvoiceDate: t.InvoiceDate,
				UnitPrice:   t.UnitPrice,
				CustomerID:  t.CustomerID,
				Country:     t.Country,
				TotalAmount: decimal.NewNullDecimal(t.TotalAmount),
			})
		}
		if len(txRows) > 0 {
			if err := tx.CreateInBatches(txRows, insertBatchSize).Error; err != nil {
				return fmt.Errorf("insert transactions: %w", err)
			}
		}

		segRows := make([]segmentRow, 0, len(ds.segments))
		for _, s := range ds.segments {
			segRows = append(segRows, segmentRow{
				CustomerID:       s.CustomerID,
				Recency:          s.Recency,
				Frequency:        s.Frequency,
				Monetary:         s.Monetary,
				RScore:           s.RScore,
				FScore:           s.FScore,
				MScore:           s.MScore,
				RFMScore:         s.RFMScore,
				RFMSegment:       s.RFMSegment,
				Cluster:          s.Cluster,
				QuantityTotal:    s.QuantityTotal,
				UnitPriceAvg:     s.UnitPriceAvg,
				TotalAmountTotal: s.TotalAmountTotal,
				TransactionTotal: s.TransactionTotal,
			})
		}
		if len(segRows) > 0 {
			if err := tx.CreateInBatches(segRows, insertBatchSize).Error; err != nil {
				return fmt.Errorf("insert customer segments: %w", err)
			}
		}
		return nil
	})
}
