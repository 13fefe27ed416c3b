package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/StreetCred/SC-Backend/internal/assetimport"
	"github.com/StreetCred/SC-Backend/internal/assets"
	"github.com/StreetCred/SC-Backend/internal/config"
	"github.com/StreetCred/SC-Backend/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	var (
		csvPath   = flag.String("csv", "", "path to CSV export")
		dbURL     = flag.String("db", cfg.DatabaseURL, "DATABASE_URL")
		namespace = flag.String("namespace", "", "UUID Namespace (required, stable forever)")
		assetType = flag.String("type", "", "asset type for exports without a type column (e.g. hydrant)")
		batchSize = flag.Int("batch", 1000, "rows per upsert statement")
		wipe      = flag.Bool("wipe", false, "DANGER: truncates the assets table before importing")
	)
	flag.Parse()

	if *csvPath == "" || *dbURL == "" || *namespace == "" {
		flag.Usage()
		os.Exit(2)
	}

	log := logging.Must(cfg.LogLevel, cfg.LogFormat)
	defer func() { _ = log.Sync() }()

	var defaultType assets.AssetType
	if *assetType != "" {
		if defaultType, err = assets.ParseAssetType(*assetType); err != nil {
			log.Fatal("invalid -type", zap.Error(err))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sum, err := assetimport.Run(ctx, assetimport.Config{
		CSVPath:     *csvPath,
		DatabaseURL: *dbURL,
		Namespace:   *namespace,
		DefaultType: defaultType,
		Wipe:        *wipe,
		BatchSize:   *batchSize,
	}, log)
	if err != nil {
		log.Fatal("import failed", zap.Error(err))
	}

	fields := []zap.Field{zap.Int("imported", sum.Imported), zap.Int("skipped", sum.Skipped)}
	for t, n := range sum.ByType {
		fields = append(fields, zap.Int(string(t), n))
	}
	log.Info("import complete", fields...)
}
