// Command reconcile re-derives badges from stored point totals for every
// user. Run it after changing the milestone table or after an award that
// failed between the report insert and the ledger write.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/StreetCred/SC-Backend/internal/config"
	"github.com/StreetCred/SC-Backend/internal/db"
	"github.com/StreetCred/SC-Backend/internal/ledger"
	"github.com/StreetCred/SC-Backend/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	userID := flag.String("user", "", "reconcile a single user instead of everyone")
	flag.Parse()

	log := logging.Must(cfg.LogLevel, cfg.LogFormat)
	defer func() { _ = log.Sync() }()

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}

	conn, err := db.Connect(cfg.DatabaseURL, log)
	if err != nil {
		log.Fatal("DB connection error", zap.Error(err))
	}
	if err := ledger.Init(conn); err != nil {
		log.Fatal("migrate ledger", zap.Error(err))
	}

	milestones, err := ledger.LoadMilestones(cfg.MilestonesFile)
	if err != nil {
		log.Fatal("milestones", zap.Error(err))
	}
	lg := ledger.New(ledger.NewPostgresStore(conn), milestones, log, ledger.WithTimeout(cfg.StoreTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *userID != "" {
		badges, err := lg.Reconcile(ctx, *userID)
		if err != nil {
			log.Fatal("reconcile failed", zap.String("user_id", *userID), zap.Error(err))
		}
		log.Info("reconciled user", zap.String("user_id", *userID), zap.Int("badges_added", len(badges)))
		return
	}

	users, added, failed, err := lg.ReconcileAll(ctx)
	if err != nil {
		log.Fatal("reconcile aborted",
			zap.Int("users", users), zap.Int("badges_added", added), zap.Error(err))
	}
	log.Info("reconcile complete",
		zap.Int("users", users),
		zap.Int("badges_added", added),
		zap.Int("failed", failed))
	if failed > 0 {
		os.Exit(1)
	}
}
