package distributed

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still holds our token
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`

// ErrNotHeld is returned by Release when the lease expired or was claimed by another holder
var ErrNotHeld = errors.New("lease not held by this instance")

// Lease is a Redis key with a TTL that at most one process holds at a time.
// Unlike a lock it is never renewed: it simply runs out after ttl.
type Lease struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	token  string
}

// NewLease creates a lease on key. Each Lease has its own holder token.
func NewLease(client *redis.Client, key string, ttl time.Duration) *Lease {
	return &Lease{
		client: client,
		key:    key,
		ttl:    ttl,
		token:  newToken(),
	}
}

func newToken() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// Key returns the Redis key backing the lease
func (l *Lease) Key() string {
	return l.key
}

// Acquire takes the lease if nobody holds it
func (l *Lease) Acquire(ctx context.Context) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key, l.token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lease %s: %w", l.key, err)
	}
	return ok, nil
}

// Claim takes the lease unconditionally and restarts its TTL
func (l *Lease) Claim(ctx context.Context) error {
	if err := l.client.Set(ctx, l.key, l.token, l.ttl).Err(); err != nil {
		return fmt.Errorf("failed to claim lease %s: %w", l.key, err)
	}
	return nil
}

// Release gives the lease back early. It never deletes a lease taken by someone else.
func (l *Lease) Release(ctx context.Context) error {
	n, err := l.client.Eval(ctx, releaseScript, []string{l.key}, l.token).Int64()
	if err != nil {
		return fmt.Errorf("failed to release lease %s: %w", l.key, err)
	}
	if n == 0 {
		return ErrNotHeld
	}
	return nil
}

// Remaining reports how long the current holder keeps the lease, zero when free
func (l *Lease) Remaining(ctx context.Context) (time.Duration, error) {
	d, err := l.client.PTTL(ctx, l.key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read lease %s: %w", l.key, err)
	}
	if d < 0 {
		return 0, nil
	}
	return d, nil
}

// LeaseManager hands out leases under a common key prefix
type LeaseManager struct {
	client *redis.Client
	prefix string
}

func NewLeaseManager(client *redis.Client, prefix string) *LeaseManager {
	return &LeaseManager{
		client: client,
		prefix: prefix,
	}
}

// Lease returns a new lease on prefix+name
func (lm *LeaseManager) Lease(name string, ttl time.Duration) *Lease {
	return NewLease(lm.client, lm.prefix+name, ttl)
}
