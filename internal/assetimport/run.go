package assetimport

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/StreetCred/SC-Backend/internal/assets"
	"github.com/StreetCred/SC-Backend/internal/db"
)

const defaultBatchSize = 1000

type Config struct {
	CSVPath     string
	DatabaseURL string
	Namespace   string
	DefaultType assets.AssetType
	// Wipe truncates the assets table inside the import transaction.
	Wipe      bool
	BatchSize int
}

type Summary struct {
	Imported int
	Skipped  int
	ByType   map[assets.AssetType]int
}

// Upserter is the write side of the asset store.
type Upserter interface {
	Upsert(ctx context.Context, batch []assets.Asset) error
}

// Build turns parsed rows into assets with deterministic ids.
func Build(ns uuid.UUID, rows []Row) []assets.Asset {
	out := make([]assets.Asset, 0, len(rows))
	for _, r := range rows {
		out = append(out, assets.Asset{
			ID:   AssetID(ns, r),
			Type: r.Type,
			Name: r.Name,
			Lat:  r.Lat,
			Lng:  r.Lng,
		})
	}
	return out
}

// Load writes batches through dst and tallies the result.
func Load(ctx context.Context, dst Upserter, batch []assets.Asset, size int) (Summary, error) {
	if size <= 0 {
		size = defaultBatchSize
	}
	sum := Summary{ByType: map[assets.AssetType]int{}}
	for start := 0; start < len(batch); start += size {
		end := min(start+size, len(batch))
		if err := dst.Upsert(ctx, batch[start:end]); err != nil {
			return sum, fmt.Errorf("upsert rows %d-%d: %w", start, end-1, err)
		}
		for _, a := range batch[start:end] {
			sum.ByType[a.Type]++
		}
		sum.Imported = end
	}
	return sum, nil
}

func Run(ctx context.Context, cfg Config, log *zap.Logger) (Summary, error) {
	if cfg.CSVPath == "" {
		return Summary{}, errors.New("csv path is required")
	}
	ns, err := uuid.Parse(cfg.Namespace)
	if err != nil {
		return Summary{}, fmt.Errorf("invalid namespace uuid: %w", err)
	}

	parsed, err := ParseFile(cfg.CSVPath, cfg.DefaultType)
	if err != nil {
		return Summary{}, err
	}
	log.Info("parsed export",
		zap.String("path", cfg.CSVPath),
		zap.Int("rows", len(parsed.Rows)),
		zap.Int("skipped", parsed.Skipped))

	conn, err := db.Connect(cfg.DatabaseURL, log)
	if err != nil {
		return Summary{}, err
	}
	if err := assets.Init(conn); err != nil {
		return Summary{}, err
	}

	batch := Build(ns, parsed.Rows)
	var sum Summary
	err = conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if cfg.Wipe {
			if err := wipeAssets(tx); err != nil {
				return fmt.Errorf("wipe assets: %w", err)
			}
			log.Warn("assets table truncated")
		}
		sum, err = Load(ctx, assets.NewPostgresStore(tx), batch, cfg.BatchSize)
		return err
	})
	sum.Skipped = parsed.Skipped
	return sum, err
}

func wipeAssets(tx *gorm.DB) error {
	return tx.Exec("TRUNCATE TABLE " + db.Schema + ".assets").Error
}
