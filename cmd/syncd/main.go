package main

import (
	"context"
	"flag"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/aegean-labs/stockroom/config"
	"github.com/aegean-labs/stockroom/internal/catalog"
	"github.com/aegean-labs/stockroom/internal/db"
	"github.com/aegean-labs/stockroom/internal/feed"
	invRepoPkg "github.com/aegean-labs/stockroom/internal/inventory/repository"
	"github.com/aegean-labs/stockroom/internal/logger"
	runRepoPkg "github.com/aegean-labs/stockroom/internal/runlog/repository"
	"github.com/aegean-labs/stockroom/internal/syncer"
	"github.com/aegean-labs/stockroom/internal/syncer/state"
)

// syncd is the cron entrypoint: it drives a catalog sync and optionally a
// supplier feed import to completion in one process, without the HTTP
// surface.
func main() {
	full := flag.Bool("full", false, "refresh catalog fields of existing products")
	skipSync := flag.Bool("skip-sync", false, "skip the catalog sync")
	feedURL := flag.String("feed", "", "supplier feed URL to import after the sync, or \"default\" for the configured one")
	updateExisting := flag.Bool("update-existing", false, "update existing feed products instead of skipping them")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.LoadEnv()

	appLogger := logger.NewZapLogger(&cfg.Logger, cfg.Server.AppEnv)
	defer appLogger.Sync()

	conn, err := db.Open(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("could not open database", zap.Error(err))
	}
	defer conn.Close()

	if err := db.EnsureSchema(conn); err != nil {
		appLogger.Fatal("could not apply schema", zap.Error(err))
	}

	invRepo := invRepoPkg.NewSQLiteRepository(conn)
	runRepo := runRepoPkg.NewSQLiteRepository(conn)

	// Batch runs are single-process; in-memory state is all they need.
	memStore := state.NewMemoryStore()

	ctx := context.Background()
	failed := false

	if !*skipSync {
		catalogClient := catalog.NewClient(&cfg.Catalog, appLogger)
		engine := syncer.NewEngine(catalogClient, invRepo, runRepo, memStore, memStore, cfg, appLogger)

		result, err := engine.RunComplete(ctx, *full)
		if err != nil {
			appLogger.Error("catalog sync failed", zap.Error(err))
			failed = true
		} else {
			appLogger.Info("catalog sync finished",
				zap.Int("products_added", result.ProductsAdded),
				zap.Int("products_updated", result.ProductsUpdated),
				zap.Int("variations_added", result.VariationsAdded),
				zap.Int("variations_updated", result.VariationsUpdated),
				zap.Int("errors", len(result.Errors)))
		}
	}

	url := *feedURL
	if url == "default" {
		url = cfg.Feed.DefaultURL
	}
	if url != "" {
		importer := feed.NewImporter(invRepo, runRepo, cfg, appLogger)
		summary, err := importer.Import(ctx, url, &feed.Options{UpdateExisting: *updateExisting})
		if err != nil {
			appLogger.Error("feed import failed", zap.String("url", url), zap.Error(err))
			failed = true
		} else {
			appLogger.Info("feed import finished",
				zap.Int("imported", summary.Imported),
				zap.Int("updated", summary.Updated),
				zap.Int("skipped", summary.Skipped),
				zap.Int("errors", len(summary.Errors)))
		}
	}

	if failed {
		os.Exit(1)
	}
}
