package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env        string
	ListenAddr string
	LogLevel   string

	DatabaseURL    string
	NSRLDBPath     string
	ResultCacheDir string
	CollectorURL   string

	CollectorTimeout time.Duration
	JobTTL           time.Duration
	PipelineTimeout  time.Duration // 0 disables the per-job deadline
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		var out int
		_, err := fmt.Sscanf(v, "%d", &out)
		if err == nil {
			return out
		}
	}
	return def
}

func Load() (Config, error) {
	// Local development convenience; absence is not an error.
	_ = godotenv.Load()

	cfg := Config{
		Env:        getenv("APP_ENV", "development"),
		ListenAddr: getenv("LISTEN_ADDR", ":8080"),
		LogLevel:   getenv("LOG_LEVEL", "info"),

		DatabaseURL:    os.Getenv("DATABASE_URL"),
		NSRLDBPath:     os.Getenv("NSRL_DB_PATH"),
		ResultCacheDir: getenv("RESULT_CACHE_DIR", "./investigation-cache"),
		CollectorURL:   os.Getenv("COLLECTOR_URL"),

		CollectorTimeout: time.Duration(getenvInt("COLLECTOR_TIMEOUT_SECONDS", 60)) * time.Second,
		JobTTL:           time.Duration(getenvInt("JOB_TTL_MINUTES", 60)) * time.Minute,
		PipelineTimeout:  time.Duration(getenvInt("PIPELINE_TIMEOUT_MINUTES", 10)) * time.Minute,
	}
	if cfg.DatabaseURL == "" {
		// Not fatal for early local runs; warn via error value so callers can decide.
		return cfg, fmt.Errorf("DATABASE_URL not set")
	}
	return cfg, nil
}
