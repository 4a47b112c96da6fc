package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/carbonledger-labs/carbonledger-go/internal/catalog"
	"github.com/carbonledger-labs/carbonledger-go/internal/platform/env"
	"github.com/carbonledger-labs/carbonledger-go/internal/platform/objectstore"
	"github.com/carbonledger-labs/carbonledger-go/internal/platform/postgres"
	repopg "github.com/carbonledger-labs/carbonledger-go/internal/repo/postgres"
)

// catalog-loader ingests the master workbook in one shot: the factor
// catalog always, the historical backfill sheets when CATALOG_BACKFILL
// is set. The workbook comes from a local path or from the object store.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx := context.Background()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	workbookPath := env.String("CATALOG_WORKBOOK_PATH", "")
	workbookKey := env.String("CATALOG_WORKBOOK_OBJECT_KEY", "")
	ownerKey := env.String("CATALOG_BACKFILL_OWNER", catalog.DefaultBackfillOwner)
	withBackfill, err := env.Bool("CATALOG_BACKFILL", false)
	if err != nil {
		logger.Error("invalid env", "error", err)
		os.Exit(2)
	}
	if workbookPath == "" && workbookKey == "" {
		logger.Error("one of CATALOG_WORKBOOK_PATH or CATALOG_WORKBOOK_OBJECT_KEY is required")
		os.Exit(2)
	}

	dbCfg, err := postgres.ConfigFromEnv()
	if err != nil {
		logger.Error("invalid database config", "error", err)
		os.Exit(2)
	}
	db, err := postgres.Open(ctx, dbCfg)
	if err != nil {
		logger.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	wb, err := openWorkbook(ctx, workbookPath, workbookKey)
	if err != nil {
		logger.Error("workbook open failed", "error", err)
		os.Exit(1)
	}

	builder := catalog.NewBuilder(repopg.NewFactorStore(db), repopg.NewEmissionStore(db), logger).WithOwner(ownerKey)
	report, err := builder.Run(ctx, wb, withBackfill)
	if err != nil {
		logger.Error("catalog build failed", "error", err)
		os.Exit(1)
	}

	logger.Info("catalog build complete",
		"factors_upserted", report.FactorsUpserted,
		"factors_from_sheet", report.FactorsFromSheet,
		"not_configured", report.NotConfigured,
		"records_inserted", report.RecordsInserted,
		"rows_skipped", report.RowsSkipped,
	)
}

func openWorkbook(ctx context.Context, path, objectKey string) (catalog.Workbook, error) {
	if path != "" {
		return catalog.OpenWorkbookFile(path)
	}

	storeCfg, err := objectstore.ConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("object store config: %w", err)
	}
	client, err := objectstore.NewMinIOClient(storeCfg)
	if err != nil {
		return nil, fmt.Errorf("object store client: %w", err)
	}
	body, err := objectstore.GetWorkbook(ctx, client, storeCfg, objectKey)
	if err != nil {
		return nil, fmt.Errorf("fetch workbook %s: %w", objectKey, err)
	}
	defer func() { _ = body.Close() }()

	wb, err := catalog.OpenWorkbook(body)
	if err != nil {
		return nil, err
	}
	return wb, nil
}
