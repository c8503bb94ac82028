package bootstrap

import (
	"context"
	"fmt"
	"net/http"

	"finledger-service/internal/application"
	"finledger-service/internal/config"
	"finledger-service/internal/infrastructure/httpx"
	"finledger-service/internal/infrastructure/logx"
	"finledger-service/internal/infrastructure/pg"
	"finledger-service/internal/infrastructure/provider"
	"finledger-service/internal/infrastructure/ratelimit"
	redisstore "finledger-service/internal/infrastructure/redis"
	"finledger-service/internal/infrastructure/worker"

	"github.com/redis/go-redis/v9"
)

type Repos struct {
	Balances   application.BalanceRepo
	Recorder   application.TransactionRecorder
	Portfolios application.PortfolioRepo

	Ping func(ctx context.Context) error
}

type Services struct {
	Idem application.IdempotencyStore
}

// BuildRepos connects to storage based on STORAGE ("pg" expected) and runs
// migrations before handing out repositories.
func BuildRepos(ctx context.Context, cfg config.Config) (Repos, func(), error) {
	log := logx.L()

	switch cfg.Storage {
	case "pg":
		if cfg.DatabaseURL == "" {
			return Repos{}, func() {}, fmt.Errorf("DATABASE_URL is required for STORAGE=pg")
		}
		db, err := pg.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return Repos{}, func() {}, err
		}
		if err := pg.RunMigrations(ctx, db); err != nil {
			db.Close()
			return Repos{}, func() {}, err
		}
		cleanup := func() {
			log.Info("closing pg")
			db.Close()
		}
		return Repos{
			Balances:   pg.NewBalanceRepo(db),
			Recorder:   pg.NewLedgerRepo(db),
			Portfolios: pg.NewPortfolioRepo(db),
			Ping:       db.Ping,
		}, cleanup, nil
	default:
		return Repos{}, func() {}, fmt.Errorf("unsupported STORAGE=%q; set STORAGE=pg", cfg.Storage)
	}
}

// BuildQuoteProvider returns the upstream quote adapter based on PROVIDER.
func BuildQuoteProvider(cfg config.Config) (application.QuoteProvider, error) {
	switch cfg.Provider {
	case "alphavantage":
		if cfg.QuoteAPIKey == "" {
			return nil, fmt.Errorf("ALPHAVANTAGE_API_KEY is required for PROVIDER=alphavantage")
		}
		return &provider.AlphaVantageProvider{
			BaseURL: cfg.QuoteAPIBase,
			APIKey:  cfg.QuoteAPIKey,
			Client:  &httpx.Client{HTTP: &http.Client{Timeout: cfg.QuoteTimeout}},
		}, nil
	default:
		return provider.NewFake(100.00), nil
	}
}

// BuildQuotePipeline wires provider, gate, fetcher and cache.
func BuildQuotePipeline(cfg config.Config) (*application.QuoteCache, error) {
	log := logx.L()
	qp, err := BuildQuoteProvider(cfg)
	if err != nil {
		return nil, err
	}
	gate := ratelimit.NewTokenGate(cfg.QuoteGroupDelay)
	fetcher := application.NewBatchFetcher(qp, gate, cfg.QuoteGroupSize, log)
	return application.NewQuoteCache(fetcher, log), nil
}

// BuildServices builds the idempotency store based on IDEMPOTENCY_BACKEND
// ("redis" or "noop").
func BuildServices(cfg config.Config) (Services, func(), error) {
	if cfg.IdempotencyBackend != "redis" {
		return Services{Idem: application.NoopIdempotency{}}, func() {}, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	store := redisstore.New(rdb, cfg.RedisTTL)
	cleanup := func() { _ = rdb.Close() }
	return Services{Idem: store}, cleanup, nil
}

// BuildLedger constructs the balance ledger with the configured retry bound.
func BuildLedger(repos Repos, cfg config.Config) *application.LedgerService {
	return application.NewLedgerService(repos.Balances, logx.L(),
		application.WithRetryPolicy(application.RetryPolicy{MaxAttempts: cfg.BalanceMaxAttempts}))
}

func BuildValuation(repos Repos, cache *application.QuoteCache) *application.ValuationService {
	return application.NewValuationService(repos.Portfolios, cache, logx.L())
}

// BuildClearWorker returns the periodic cache eviction worker.
func BuildClearWorker(cache *application.QuoteCache, cfg config.Config) application.Worker {
	return &worker.CacheClearWorker{
		Cache:      cache,
		ClearEvery: cfg.ClearInterval,
		Log:        logx.L(),
	}
}
