package application

import "context"

// IdempotencyStore handles short-lived deduplication of balance delta
// requests keyed by their triggering transaction identity.
type IdempotencyStore interface {
	// TryReserve returns true if key was absent and is now reserved.
	// Returns false if the key already exists (duplicate).
	TryReserve(ctx context.Context, key string) (bool, error)
	// Release frees a reservation so the key can be reused. Callers release
	// when the operation behind the reservation did not take effect.
	Release(ctx context.Context, key string) error
}

// NoopIdempotency always succeeds; useful for tests/dev when Redis is disabled.
type NoopIdempotency struct{}

func (NoopIdempotency) TryReserve(context.Context, string) (bool, error) { return true, nil }

func (NoopIdempotency) Release(context.Context, string) error { return nil }
