package idempotency

import (
	"context"
	"time"
)

// Record captures the outcome of a mutating request so retries with the same
// Idempotency-Key replay the original response instead of re-executing.
type Record struct {
	Key        string
	StatusCode int
	Payload    []byte
	OccurredAt time.Time
}

type Store interface {
	Get(ctx context.Context, key string) (Record, bool, error)
	Save(ctx context.Context, rec Record) error
}
