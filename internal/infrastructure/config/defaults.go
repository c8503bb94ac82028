package config

import "time"

const (
	DefaultHTTPPort         = "8080"
	DefaultShutdownTimeout  = 10 * time.Second
	DefaultQuoteGroupSize   = 5
	DefaultQuoteGroupDelay  = time.Second
	DefaultQuoteHTTPTimeout = 4 * time.Second
	DefaultClearInterval    = 5 * time.Minute
	DefaultMaxAttempts      = 3
	DefaultIdempotencyTTL   = 24 * time.Hour
	DefaultPGMaxConns       = 5
	DefaultPGMinConns       = 1
)
