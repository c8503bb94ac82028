package worker

import (
	"context"
	"time"

	"finledger-service/internal/application"
	"go.uber.org/zap"
)

var _ application.Worker = (*CacheClearWorker)(nil)

// CacheClearWorker wipes the quote cache on a fixed interval so prices
// never grow older than one interval before a forced refetch.
type CacheClearWorker struct {
	Cache      *application.QuoteCache
	ClearEvery time.Duration
	Log        *zap.Logger
}

func (w *CacheClearWorker) Start(ctx context.Context) {
	log := w.Log
	if log == nil {
		log = zap.NewNop()
	}
	if w.ClearEvery <= 0 {
		w.ClearEvery = 5 * time.Minute
	}

	t := time.NewTicker(w.ClearEvery)
	defer t.Stop()

	log.Info("cache_clear_worker_started", zap.Duration("clear_every", w.ClearEvery))
	for {
		select {
		case <-ctx.Done():
			log.Info("cache_clear_worker_stopped")
			return
		case <-t.C:
			n := w.Cache.Len()
			w.Cache.Clear()
			log.Info("cache_cleared", zap.Int("evicted", n))
		}
	}
}
