package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a distributed lock.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker guards a session against being driven by two controllers.
type DistributedLocker interface {
	// Lock blocks until the lock for key is held or ctx is done. A zero ttl
	// keeps the lock until it is released.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
