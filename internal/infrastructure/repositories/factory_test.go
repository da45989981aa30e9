package repositories

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"communityhub/internal/core/domain"
	"communityhub/pkg/config"
)

func testConfig(t *testing.T) *config.Config {
	cfg := config.DefaultConfig()
	root := t.TempDir()
	cfg.Storage.DataDir = filepath.Join(root, "data")
	cfg.Storage.ReportsDir = filepath.Join(root, "reports")
	cfg.Uploads.Dir = filepath.Join(root, "uploads", "chat")
	return cfg
}

func TestRepositoryFactory_FileByDefault(t *testing.T) {
	cfg := testConfig(t)
	factory, err := NewRepositoryFactory(cfg, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	defer factory.Close()

	assert.Equal(t, "file", factory.ChatStore())
	assert.Nil(t, factory.RedisClient())
	assert.NoError(t, factory.HealthCheck(context.Background()))

	repo := factory.CreateChatRepository()
	require.NoError(t, repo.Append(context.Background(), domain.ChatMessage{ID: "x"}))
	assert.FileExists(t, filepath.Join(cfg.Storage.DataDir, "chat.json"))

	assert.DirExists(t, cfg.Storage.ReportsDir)
	assert.DirExists(t, cfg.Uploads.Dir)
}

func TestRepositoryFactory_RedisUnavailableFallsBackToFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.Redis.Enabled = true
	cfg.Redis.Address = "127.0.0.1:1"
	cfg.Chat.Store = "redis"

	factory, err := NewRepositoryFactory(cfg, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	defer factory.Close()

	assert.Equal(t, "file", factory.ChatStore())
}

func TestRepositoryFactory_MemoryStore(t *testing.T) {
	cfg := testConfig(t)
	cfg.Chat.Store = "memory"

	factory, err := NewRepositoryFactory(cfg, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)

	repo := factory.CreateChatRepository()
	require.NoError(t, repo.Append(context.Background(), domain.ChatMessage{ID: "x"}))
	assert.NoFileExists(t, filepath.Join(cfg.Storage.DataDir, "chat.json"))
}
