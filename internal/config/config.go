package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Common
	Env      string
	LogLevel string
	// API
	Port        string
	Storage     string
	DatabaseURL string
	// Provider
	Provider        string
	QuoteAPIBase    string
	QuoteAPIKey     string
	QuoteGroupSize  int
	QuoteGroupDelay time.Duration
	QuoteTimeout    time.Duration
	// Cache worker
	ClearInterval time.Duration
	// Ledger
	BalanceMaxAttempts int
	// Redis (idempotency)
	IdempotencyBackend string
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	RedisTTL           time.Duration
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoiDef(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

// Load reads environment variables and applies defaults.
func Load() Config {
	return Config{
		Env:                getEnv("ENV", "local"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		Port:               getEnv("PORT", "8080"),
		Storage:            getEnv("STORAGE", "pg"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		Provider:           getEnv("PROVIDER", "fake"),
		QuoteAPIBase:       getEnv("ALPHAVANTAGE_API_BASE", "https://www.alphavantage.co"),
		QuoteAPIKey:        getEnv("ALPHAVANTAGE_API_KEY", ""),
		QuoteGroupSize:     atoiDef(getEnv("QUOTE_GROUP_SIZE", "5"), 5),
		QuoteGroupDelay:    time.Duration(atoiDef(getEnv("QUOTE_GROUP_DELAY_MS", "1000"), 1000)) * time.Millisecond,
		QuoteTimeout:       time.Duration(atoiDef(getEnv("QUOTE_HTTP_TIMEOUT_MS", "4000"), 4000)) * time.Millisecond,
		ClearInterval:      time.Duration(atoiDef(getEnv("CACHE_CLEAR_INTERVAL_MS", "300000"), 300000)) * time.Millisecond,
		BalanceMaxAttempts: atoiDef(getEnv("BALANCE_MAX_ATTEMPTS", "3"), 3),
		IdempotencyBackend: getEnv("IDEMPOTENCY_BACKEND", "noop"),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            atoiDef(getEnv("REDIS_DB", "0"), 0),
		RedisTTL:           time.Duration(atoiDef(getEnv("IDEMPOTENCY_TTL_MS", "86400000"), 86400000)) * time.Millisecond,
	}
}
