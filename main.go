package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/StreetCred/SC-Backend/internal/assets"
	"github.com/StreetCred/SC-Backend/internal/config"
	"github.com/StreetCred/SC-Backend/internal/db"
	"github.com/StreetCred/SC-Backend/internal/ledger"
	"github.com/StreetCred/SC-Backend/internal/logging"
	"github.com/StreetCred/SC-Backend/internal/metrics"
	"github.com/StreetCred/SC-Backend/internal/middleware"
	"github.com/StreetCred/SC-Backend/internal/neighborhood"
	"github.com/StreetCred/SC-Backend/internal/verify"
)

func RootHandler(w http.ResponseWriter, r *http.Request) {
	response := "Server is up!"
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, response)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logging.Must(cfg.LogLevel, cfg.LogFormat)
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.Connect(cfg.DatabaseURL, log)
	if err != nil {
		return err
	}
	for _, initFn := range []func(*gorm.DB) error{assets.Init, verify.Init, ledger.Init} {
		if err := initFn(conn); err != nil {
			return err
		}
	}

	milestones, err := ledger.LoadMilestones(cfg.MilestonesFile)
	if err != nil {
		return fmt.Errorf("milestones: %w", err)
	}
	table, err := neighborhood.LoadTable(cfg.NeighborhoodsFile)
	if err != nil {
		return fmt.Errorf("neighborhood table: %w", err)
	}

	chain, closeCache := buildResolver(ctx, cfg, table, log)
	defer closeCache()

	index := assets.NewIndex(assets.NewPostgresStore(conn), cfg.StoreTimeout)
	lg := ledger.New(ledger.NewPostgresStore(conn), milestones, log,
		ledger.WithLocator(chain),
		ledger.WithTimeout(cfg.StoreTimeout),
	)
	svc := verify.NewService(index, chain, lg, verify.NewPostgresReportStore(conn), verify.Settings{
		SearchRadiusMeters: cfg.SearchRadiusMeters,
		PointsPerReport:    int64(cfg.PointsPerReport),
		StoreTimeout:       cfg.StoreTimeout,
	}, log)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(log))
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	admin := middleware.AdminToken(cfg.AdminTokenHash, log)
	verifyHandler := verify.NewHandler(svc, log)

	r.Get("/", RootHandler)
	r.Handle("/metrics", metrics.Handler())
	verify.RegisterRoutes(r, verifyHandler, limiter.Handler)
	ledger.RegisterRoutes(r, ledger.NewHandler(lg, log), limiter.Handler, admin)
	r.Mount("/reports", verify.SetupReportRoutes(verifyHandler))
	r.Mount("/assets", assets.SetupRoutes(assets.NewHandler(index, log)))
	r.Mount("/neighborhood", neighborhood.SetupRoutes(neighborhood.NewHandler(chain, log)))

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening",
			zap.String("addr", srv.Addr),
			zap.Int("milestones", milestones.Len()),
			zap.Stringer("resolver", chain))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// buildResolver assembles primary (optionally cached) then fallback table.
// A missing or unreachable Redis only disables the cache.
func buildResolver(ctx context.Context, cfg config.Config, table *neighborhood.Table, log *zap.Logger) (*neighborhood.Chain, func()) {
	var strategies []neighborhood.Strategy
	closeCache := func() {}

	if client := neighborhood.NewClient(cfg.NeighborhoodURL, cfg.NeighborhoodTimeout); client != nil {
		var primary neighborhood.Strategy = client
		if cfg.RedisAddr != "" {
			cache, err := neighborhood.NewRedisCache(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
			if err != nil {
				log.Warn("redis unavailable, neighborhood cache disabled", zap.Error(err))
			} else {
				primary = neighborhood.WithCache(client, cache, cfg.CacheTTL, log)
				closeCache = func() { _ = cache.Close() }
			}
		}
		strategies = append(strategies, primary)
	} else {
		log.Info("NEIGHBORHOOD_URL not set, using the fallback table only")
	}
	strategies = append(strategies, table)

	return neighborhood.NewChain(log, strategies...), closeCache
}
