package config

import (
	"fmt"
	"os"
)

type Config struct {
	Env           string
	ListenAddr    string
	DatabaseURL   string
	LogMode       string
	CrawlWorkers  int
	UspDictionary string // path to the trigger keyword YAML; empty uses built-ins
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func Load() (Config, error) {
	cfg := Config{
		Env:           getenv("APP_ENV", "development"),
		ListenAddr:    getenv("LISTEN_ADDR", ":8080"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		LogMode:       getenv("LOG_MODE", "dev"),
		CrawlWorkers:  getenvInt("CRAWL_WORKERS", 0),
		UspDictionary: os.Getenv("USP_DICTIONARY"),
	}
	if cfg.DatabaseURL == "" {
		// Not fatal for early local runs; warn via error value so callers can decide.
		return cfg, fmt.Errorf("DATABASE_URL not set")
	}
	return cfg, nil
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		var out int
		if _, err := fmt.Sscanf(v, "%d", &out); err == nil {
			return out
		}
	}
	return def
}
