package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// MaxResolverTimeout bounds the primary neighborhood resolver call.
const MaxResolverTimeout = 10 * time.Second

// Config holds process configuration. Everything comes from the environment
// (optionally seeded from .env.local); the milestone and neighborhood tables
// are YAML files referenced by path.
type Config struct {
	Port           string
	DatabaseURL    string
	AllowedOrigins []string

	NeighborhoodURL     string
	NeighborhoodTimeout time.Duration
	NeighborhoodsFile   string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	StoreTimeout       time.Duration
	SearchRadiusMeters float64
	PointsPerReport    int
	MilestonesFile     string

	AdminTokenHash string
	RateLimitRPS   float64
	RateLimitBurst int

	LogLevel  string
	LogFormat string
}

var defaultOrigins = []string{
	"http://localhost:5173",
	"http://localhost:3000",
}

// Load reads .env.local (if present) and then the environment.
//
// Environment variables:
//   - PORT (default 5050)
//   - DATABASE_URL (required by the server and the CLI tools)
//   - ALLOWED_ORIGINS: comma separated CORS allow-list
//   - NEIGHBORHOOD_URL: base URL of the primary resolver; empty disables it
//   - NEIGHBORHOOD_TIMEOUT: Go duration, capped at 10s (default 10s)
//   - NEIGHBORHOODS_FILE: YAML fallback box table (default: built-in Manhattan table)
//   - REDIS_ADDR, REDIS_PASSWORD, REDIS_DB: resolver cache; empty addr disables it
//   - CACHE_TTL: resolver cache TTL (default 24h)
//   - STORE_TIMEOUT: per-call database timeout (default 5s)
//   - SEARCH_RADIUS_METERS: nearest-asset search radius for /verify (default 200)
//   - POINTS_PER_REPORT: points for an accepted verification (default 25)
//   - MILESTONES_FILE: YAML badge milestone table (default: built-in table)
//   - ADMIN_TOKEN_HASH: bcrypt hash guarding admin routes; empty disables them
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST: per-client limiter on write routes
//   - LOG_LEVEL, LOG_FORMAT
func Load() (Config, error) {
	_ = godotenv.Load(".env.local")
	return FromEnv()
}

// FromEnv builds a Config from the current environment without touching files.
func FromEnv() (Config, error) {
	var errs []error

	cfg := Config{
		Port:              envOr("PORT", "5050"),
		DatabaseURL:       strings.TrimSpace(os.Getenv("DATABASE_URL")),
		AllowedOrigins:    splitList(os.Getenv("ALLOWED_ORIGINS"), defaultOrigins),
		NeighborhoodURL:   strings.TrimRight(strings.TrimSpace(os.Getenv("NEIGHBORHOOD_URL")), "/"),
		NeighborhoodsFile: strings.TrimSpace(os.Getenv("NEIGHBORHOODS_FILE")),
		RedisAddr:         strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		MilestonesFile:    strings.TrimSpace(os.Getenv("MILESTONES_FILE")),
		AdminTokenHash:    strings.TrimSpace(os.Getenv("ADMIN_TOKEN_HASH")),
		LogLevel:          envOr("LOG_LEVEL", "info"),
		LogFormat:         envOr("LOG_FORMAT", "json"),
	}

	cfg.NeighborhoodTimeout = durationEnv("NEIGHBORHOOD_TIMEOUT", MaxResolverTimeout, &errs)
	if cfg.NeighborhoodTimeout > MaxResolverTimeout {
		cfg.NeighborhoodTimeout = MaxResolverTimeout
	}
	cfg.CacheTTL = durationEnv("CACHE_TTL", 24*time.Hour, &errs)
	cfg.StoreTimeout = durationEnv("STORE_TIMEOUT", 5*time.Second, &errs)
	cfg.RedisDB = intEnv("REDIS_DB", 0, &errs)
	cfg.PointsPerReport = intEnv("POINTS_PER_REPORT", 25, &errs)
	cfg.RateLimitBurst = intEnv("RATE_LIMIT_BURST", 10, &errs)
	cfg.SearchRadiusMeters = floatEnv("SEARCH_RADIUS_METERS", 200, &errs)
	cfg.RateLimitRPS = floatEnv("RATE_LIMIT_RPS", 5, &errs)

	if cfg.PointsPerReport <= 0 {
		errs = append(errs, fmt.Errorf("POINTS_PER_REPORT must be positive, got %d", cfg.PointsPerReport))
	}
	if cfg.SearchRadiusMeters < 0 {
		errs = append(errs, fmt.Errorf("SEARCH_RADIUS_METERS must not be negative, got %v", cfg.SearchRadiusMeters))
	}
	if cfg.StoreTimeout <= 0 {
		errs = append(errs, errors.New("STORE_TIMEOUT must be positive"))
	}

	return cfg, errors.Join(errs...)
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func splitList(raw string, def []string) []string {
	if strings.TrimSpace(raw) == "" {
		return append([]string(nil), def...)
	}
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func durationEnv(key string, def time.Duration, errs *[]error) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}

func intEnv(key string, def int, errs *[]error) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func floatEnv(key string, def float64, errs *[]error) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return f
}
