package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// KeyPrefix namespaces every key written by this service
const KeyPrefix = "communityhub:"

// ClientOptions describes the connection to the shared chat store
type ClientOptions struct {
	Address      string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	IOTimeout    time.Duration
}

func (o ClientOptions) redisOptions() *redis.Options {
	opts := &redis.Options{
		Addr:         o.Address,
		Password:     o.Password,
		DB:           o.DB,
		PoolSize:     o.PoolSize,
		MinIdleConns: o.MinIdleConns,
		DialTimeout:  o.DialTimeout,
		ReadTimeout:  o.IOTimeout,
		WriteTimeout: o.IOTimeout,
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 5 * time.Second
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 3 * time.Second
		opts.WriteTimeout = 3 * time.Second
	}
	if opts.MinIdleConns > opts.PoolSize && opts.PoolSize > 0 {
		opts.MinIdleConns = opts.PoolSize
	}
	return opts
}

// Connect dials Redis and migrates the chat key schema. A client is only
// returned once both succeed; the caller closes it with CloseClient.
func Connect(ctx context.Context, opts ClientOptions, logger *zap.SugaredLogger) (*redis.Client, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	client := redis.NewClient(opts.redisOptions())

	ctx, cancel := context.WithTimeout(ctx, 2*client.Options().DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", opts.Address, err)
	}
	if err := Migrate(ctx, client, logger); err != nil {
		client.Close()
		return nil, fmt.Errorf("migrate chat schema: %w", err)
	}

	logger.Infow("Chat store connected",
		"address", opts.Address,
		"db", opts.DB,
		"pool_size", opts.PoolSize,
		"server_version", serverVersion(ctx, client),
	)
	return client, nil
}

// serverVersion reads redis_version from INFO server, or "unknown"
func serverVersion(ctx context.Context, client *redis.Client) string {
	info, err := client.Info(ctx, "server").Result()
	if err != nil {
		return "unknown"
	}
	return parseServerVersion(info)
}

func parseServerVersion(info string) string {
	for _, line := range strings.Split(info, "\n") {
		if v, ok := strings.CutPrefix(strings.TrimSpace(line), "redis_version:"); ok {
			return v
		}
	}
	return "unknown"
}

// CloseClient closes a client returned by Connect; nil is a no-op
func CloseClient(client *redis.Client) error {
	if client == nil {
		return nil
	}
	return client.Close()
}
