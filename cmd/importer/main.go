// Command importer copies the transaction and segmentation CSV files into
// the SQL tables the web server reads when DATASET_SOURCE=sql.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"rfm-dashboard/internal/config"
	"rfm-dashboard/internal/dataset"
	"rfm-dashboard/internal/observability"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	fs := flag.NewFlagSet("importer", flag.ExitOnError)
	txFile := fs.String("transactions", cfg.Dataset.TransactionsFile, "transaction CSV file")
	segFile := fs.String("segments", cfg.Dataset.SegmentsFile, "customer segmentation CSV file")
	driver := fs.String("driver", cfg.Dataset.DBDriver, "database driver (sqlite or postgres)")
	dsn := fs.String("dsn", cfg.Dataset.DBDSN, "database DSN")
	_ = fs.Parse(os.Args[1:])

	logger := observability.NewLogger(cfg.Logger)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Dataset.LoadTimeout)
	defer cancel()

	if err := importCSV(ctx, logger, *txFile, *segFile, *driver, *dsn); err != nil {
		logger.Error("import failed", "error", err)
		os.Exit(1)
	}
}

func importCSV(ctx context.Context, logger *slog.Logger, txFile, segFile, driver, dsn string) error {
	start := time.Now()

	ds, err := dataset.LoadCSV(ctx, txFile, segFile)
	if err != nil {
		return fmt.Errorf("read csv: %w", err)
	}

	db, err := dataset.OpenDB(driver, dsn)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("database handle: %w", err)
	}
	defer sqlDB.Close()

	if err := dataset.Store(ctx, db, ds); err != nil {
		return fmt.Errorf("store: %w", err)
	}

	logger.Info("import complete",
		"driver", driver,
		"transactions", ds.TransactionCount(),
		"customers", ds.CustomerCount(),
		"duration", time.Since(start),
	)
	return nil
}
