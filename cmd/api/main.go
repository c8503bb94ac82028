package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"finledger-service/internal/bootstrap"
	"finledger-service/internal/config"
	infraconfig "finledger-service/internal/infrastructure/config"
	httpserver "finledger-service/internal/infrastructure/http"
	"finledger-service/internal/infrastructure/logx"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func init() { _ = godotenv.Load() }

func main() {
	ctx := context.Background()
	logger := logx.L()
	cfg := config.Load()
	addr := ":" + cfg.Port

	repos, cleanup, err := bootstrap.BuildRepos(ctx, cfg)
	if err != nil {
		logger.Fatal("bootstrap repos", zap.Error(err))
	}
	defer cleanup()

	services, closeRedis, err := bootstrap.BuildServices(cfg)
	if err != nil {
		logger.Fatal("bootstrap idempotency", zap.Error(err))
	}
	defer closeRedis()

	cache, err := bootstrap.BuildQuotePipeline(cfg)
	if err != nil {
		logger.Fatal("bootstrap quote pipeline", zap.Error(err))
	}

	ledger := bootstrap.BuildLedger(repos, cfg)
	valuation := bootstrap.BuildValuation(repos, cache)

	srv := httpserver.NewServer(cache, valuation, ledger, repos.Recorder, services.Idem)
	srv.SetReadyCheck(repos.Ping)
	mux := httpserver.NewRouter(srv)

	// The eviction worker shares the API's in-process cache, so it runs in
	// the same process rather than as a separate binary.
	workerCtx, stopWorker := context.WithCancel(ctx)
	defer stopWorker()
	go bootstrap.BuildClearWorker(cache, cfg).Start(workerCtx)

	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		logger.Info("server started", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	shutdownCtx, shCancel := context.WithTimeout(context.Background(), infraconfig.DefaultShutdownTimeout)
	defer shCancel()
	_ = server.Shutdown(shutdownCtx)
	logger.Info("server stopped")
}
