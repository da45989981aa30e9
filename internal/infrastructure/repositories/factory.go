package repositories

import (
	"context"
	"fmt"

	"communityhub/internal/core/ports"
	"communityhub/internal/infrastructure/repositories/file"
	"communityhub/internal/infrastructure/repositories/memory"
	redisrepo "communityhub/internal/infrastructure/repositories/redis"
	"communityhub/pkg/config"
	"communityhub/pkg/storage"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RepositoryFactory creates repositories with fallback support
type RepositoryFactory struct {
	cfg         *config.Config
	chatStore   string
	redisClient *redis.Client

	data    *storage.FileStorage
	reports *storage.FileStorage
	uploads *storage.FileStorage

	logger *zap.SugaredLogger
}

// NewRepositoryFactory prepares file storage roots and, when enabled, the Redis client
func NewRepositoryFactory(cfg *config.Config, logger *zap.SugaredLogger) (*RepositoryFactory, error) {
	factory := &RepositoryFactory{
		cfg:       cfg,
		chatStore: cfg.Chat.Store,
		logger:    logger,
	}

	var err error
	if factory.data, err = storage.NewFileStorage(cfg.Storage.DataDir); err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}
	if factory.reports, err = storage.NewFileStorage(cfg.Storage.ReportsDir); err != nil {
		return nil, fmt.Errorf("reports dir: %w", err)
	}
	if factory.uploads, err = storage.NewFileStorage(cfg.Uploads.Dir); err != nil {
		return nil, fmt.Errorf("uploads dir: %w", err)
	}

	if cfg.Redis.Enabled {
		client, err := redisrepo.Connect(context.Background(), redisrepo.ClientOptions{
			Address:      cfg.Redis.Address,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			IOTimeout:    cfg.Redis.IOTimeout,
		}, logger)
		if err != nil {
			logger.Warnw("failed to connect to Redis, falling back to file repositories",
				"error", err,
			)
		} else {
			factory.redisClient = client
		}
	}

	if factory.chatStore == "redis" && factory.redisClient == nil {
		factory.chatStore = "file"
	}
	logger.Infow("chat log backend selected", "store", factory.chatStore)

	return factory, nil
}

// CreateChatRepository creates the chat log repository (Redis, file or memory)
func (f *RepositoryFactory) CreateChatRepository() ports.ChatRepository {
	limit := f.cfg.Chat.HistoryLimit
	switch f.chatStore {
	case "redis":
		return redisrepo.NewRedisChatRepository(f.redisClient, limit, f.logger)
	case "memory":
		return memory.NewMemoryChatRepository(limit)
	default:
		return file.NewChatRepository(f.data, limit, f.logger)
	}
}

func (f *RepositoryFactory) CreateMetaRepository() ports.MetaRepository {
	return file.NewMetaRepository(f.data)
}

func (f *RepositoryFactory) CreateReportRepository() ports.ReportRepository {
	return file.NewReportRepository(f.reports, f.logger)
}

func (f *RepositoryFactory) CreateMediaRepository() ports.MediaRepository {
	return file.NewMediaRepository(f.uploads)
}

// ChatStore reports the backend actually in use
func (f *RepositoryFactory) ChatStore() string {
	return f.chatStore
}

// Storages returns the file storage roots keyed by purpose
func (f *RepositoryFactory) Storages() map[string]*storage.FileStorage {
	return map[string]*storage.FileStorage{
		"data":    f.data,
		"reports": f.reports,
		"uploads": f.uploads,
	}
}

// RedisClient returns the shared client, or nil when Redis is not in use
func (f *RepositoryFactory) RedisClient() *redis.Client {
	return f.redisClient
}

// Close closes Redis connection if used
func (f *RepositoryFactory) Close() error {
	if f.redisClient != nil {
		return redisrepo.CloseClient(f.redisClient)
	}
	return nil
}

// HealthCheck checks Redis connection health
func (f *RepositoryFactory) HealthCheck(ctx context.Context) error {
	if f.redisClient != nil {
		return f.redisClient.Ping(ctx).Err()
	}
	return nil
}
