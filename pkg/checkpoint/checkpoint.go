// Package checkpoint records how far each state partition of a run has been
// flushed, and keeps two runs off the same partition.
package checkpoint

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrLockNotAcquired is returned when another run holds the partition
	ErrLockNotAcquired = errors.New("lock not acquired")
	// ErrLockNotHeld is returned when releasing a lock that expired or moved
	ErrLockNotHeld = errors.New("lock not held")
)

// Lock is a held partition lock
type Lock interface {
	Release(ctx context.Context) error
	Extend(ctx context.Context, ttl time.Duration) error
}

// Store persists per-partition offsets for a run. Offset is the number of
// candidates of the partition whose results are already staged.
type Store interface {
	Offset(ctx context.Context, runID, state string) (int, error)
	Save(ctx context.Context, runID, state string, offset int) error
	Clear(ctx context.Context, runID string) error
	Lock(ctx context.Context, state string, ttl time.Duration) (Lock, error)
}
