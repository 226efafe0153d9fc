package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	defaultAddr       = ":8080"
	defaultAlgorithm  = "HS256"
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 168 * time.Hour
)

// Config holds process configuration read from the environment.
type Config struct {
	Addr          string
	PostgresDSN   string
	JWTSecret     string
	JWTAlgorithm  string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	MigrationsDir string
	SeedsDir      string
}

// Load reads CLINIC_* environment variables, applying defaults for
// everything except the signing secret.
func Load() (Config, error) {
	cfg := Config{
		Addr:          envOr("CLINIC_ADDR", defaultAddr),
		PostgresDSN:   strings.TrimSpace(os.Getenv("CLINIC_PG_DSN")),
		JWTSecret:     strings.TrimSpace(os.Getenv("CLINIC_JWT_SECRET")),
		JWTAlgorithm:  envOr("CLINIC_JWT_ALGORITHM", defaultAlgorithm),
		MigrationsDir: envOr("CLINIC_MIGRATIONS_DIR", "ops/migrations/sql"),
		SeedsDir:      envOr("CLINIC_SEEDS_DIR", "ops/migrations/seeds"),
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("CLINIC_JWT_SECRET is required")
	}

	var err error
	if cfg.AccessTTL, err = envDuration("CLINIC_ACCESS_TTL", defaultAccessTTL); err != nil {
		return Config{}, err
	}
	if cfg.RefreshTTL, err = envDuration("CLINIC_REFRESH_TTL", defaultRefreshTTL); err != nil {
		return Config{}, err
	}
	if cfg.RefreshTTL <= cfg.AccessTTL {
		return Config{}, fmt.Errorf("CLINIC_REFRESH_TTL must exceed CLINIC_ACCESS_TTL")
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return d, nil
}
