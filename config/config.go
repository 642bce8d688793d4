package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

const (
	defaultMaxGenerations  = 4
	defaultCacheCapacity   = 2048
	defaultCacheTTLSeconds = 300
	defaultFetchPerSecond  = 2
	defaultStaleAgeDays    = 30
)

type Config struct {
	// database path
	DatabasePath string

	// default provider used when a request does not name one, and preferred
	// when picking an external representation for a person
	DefaultProvider string

	// crawl settings
	MaxGenerations int

	// query cache settings
	CacheCapacity int
	CacheTTL      time.Duration

	// provider client settings
	FetchPerSecond int
	FetchBaseURL   string

	// raw payloads older than this are reported as stale
	StalePayloadAge time.Duration
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvIntOrDefault(envVar string, defaultVal int) int {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val <= 0 {
		log.Printf("Warning: Invalid %s '%s'. Using default %d. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func LoadConfig() (Config, error) {
	cfg := Config{
		DatabasePath:    getEnvOrDefault("DATABASE_PATH", "lineage.db"),
		DefaultProvider: getEnvOrDefault("DEFAULT_PROVIDER", "familysearch"),
		MaxGenerations:  getEnvIntOrDefault("MAX_GENERATIONS", defaultMaxGenerations),
		CacheCapacity:   getEnvIntOrDefault("CACHE_CAPACITY", defaultCacheCapacity),
		CacheTTL:        time.Duration(getEnvIntOrDefault("CACHE_TTL_SECONDS", defaultCacheTTLSeconds)) * time.Second,
		FetchPerSecond:  getEnvIntOrDefault("FETCH_PER_SECOND", defaultFetchPerSecond),
		FetchBaseURL:    getEnvOrDefault("FETCH_BASE_URL", ""),
		StalePayloadAge: time.Duration(getEnvIntOrDefault("STALE_AGE_DAYS", defaultStaleAgeDays)) * 24 * time.Hour,
	}
	return cfg, nil
}
