package cache

import (
	"context"
	"time"
)

// Service is the throttle-lock surface consumed by the advisor. The fast
// trade store works against the raw client directly, so nothing wider is
// exposed here.
type Service interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}
