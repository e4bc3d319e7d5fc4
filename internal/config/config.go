// Package config loads and validates environment variables at startup.
// Fail-fast: if a required variable is missing, the process exits with an
// error. A .env file is honoured when present.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration for the matching service.
type Config struct {
	Port        string
	DatabaseURL string
	RedisURL    string

	MinScore     int // ranked results below this are dropped
	PersistLimit int // top-N records persisted per run
	ScoreWorkers int // concurrent scoring goroutines per batch

	RefreshIntervalHours int // how often the stale-match sweep fires
	RefreshBatch         int // max candidates refreshed per sweep
}

// Load reads environment variables and returns a validated Config.
func Load() (*Config, error) {
	// Ignore the error: absence of a .env file is the normal case.
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	port := os.Getenv("MATCHING_PORT")
	if port == "" {
		port = "8083"
	}

	cfg := &Config{
		Port:                 port,
		DatabaseURL:          dbURL,
		RedisURL:             redisURL,
		MinScore:             40,
		PersistLimit:         20,
		ScoreWorkers:         8,
		RefreshIntervalHours: 6,
		RefreshBatch:         50,
	}

	var err error
	if cfg.MinScore, err = intEnv("MATCH_MIN_SCORE", cfg.MinScore, 0); err != nil {
		return nil, err
	}
	if cfg.MinScore > 100 {
		return nil, fmt.Errorf("MATCH_MIN_SCORE must be at most 100, got %d", cfg.MinScore)
	}
	if cfg.PersistLimit, err = intEnv("MATCH_PERSIST_LIMIT", cfg.PersistLimit, 1); err != nil {
		return nil, err
	}
	if cfg.ScoreWorkers, err = intEnv("MATCH_WORKERS", cfg.ScoreWorkers, 1); err != nil {
		return nil, err
	}
	if cfg.RefreshIntervalHours, err = intEnv("REFRESH_INTERVAL_HOURS", cfg.RefreshIntervalHours, 1); err != nil {
		return nil, err
	}
	if cfg.RefreshBatch, err = intEnv("REFRESH_BATCH", cfg.RefreshBatch, 1); err != nil {
		return nil, err
	}

	return cfg, nil
}

func intEnv(key string, def, min int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < min {
		return 0, fmt.Errorf("%s must be an integer >= %d, got %q", key, min, s)
	}
	return v, nil
}
