package application

import "context"

// Worker represents a background process with its own loop.
// Implementations must run until the context is canceled.
type Worker interface {
	Start(ctx context.Context)
}
