package monitoring

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"communityhub/pkg/storage"
)

const probeName = ".health-probe"

// AddRedisCheck adds a Redis ping check
func (h *HealthChecker) AddRedisCheck(client *redis.Client, timeout time.Duration) {
	h.AddCheck("redis", func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}, timeout)
}

// AddStorageCheck verifies that a storage root accepts writes
func (h *HealthChecker) AddStorageCheck(name string, s storage.Storage, timeout time.Duration) {
	h.AddCheck("storage_"+name, func(ctx context.Context) error {
		if err := s.Save(ctx, probeName, bytes.NewReader([]byte("ok"))); err != nil {
			return fmt.Errorf("not writable: %w", err)
		}
		return s.Delete(ctx, probeName)
	}, timeout)
}

// AddComponentCheck wraps a component health function such as the status
// proxy breaker
func (h *HealthChecker) AddComponentCheck(name string, check func() error) {
	h.AddCheck(name, func(ctx context.Context) error {
		return check()
	}, 0)
}
