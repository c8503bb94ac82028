package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"finledger-service/internal/application"
)

var _ application.Gate = (*TokenGate)(nil)

// TokenGate paces fetch groups with a token bucket: one token per interval,
// burst of one. The fetch pipeline waits on it between groups, replacing the
// fixed thread sleep of the naive design with a testable policy.
type TokenGate struct {
	limiter *rate.Limiter
}

func NewTokenGate(interval time.Duration) *TokenGate {
	if interval <= 0 {
		interval = time.Second
	}
	return &TokenGate{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

func (g *TokenGate) Wait(ctx context.Context) error {
	return g.limiter.Wait(ctx)
}
