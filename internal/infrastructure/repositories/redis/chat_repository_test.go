package redis

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"communityhub/internal/core/domain"
)

// newTestClient connects to COMMUNITYHUB_TEST_REDIS and uses a scratch DB.
func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("COMMUNITYHUB_TEST_REDIS")
	if addr == "" {
		t.Skip("COMMUNITYHUB_TEST_REDIS not set")
	}

	client, err := Connect(context.Background(), ClientOptions{Address: addr, DB: 15, PoolSize: 2}, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	t.Cleanup(func() {
		client.FlushDB(context.Background())
		CloseClient(client)
	})
	require.NoError(t, client.FlushDB(context.Background()).Err())
	return client
}

func TestRedisChatRepository_AppendTrims(t *testing.T) {
	client := newTestClient(t)
	repo := NewRedisChatRepository(client, 5, zaptest.NewLogger(t).Sugar())
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		require.NoError(t, repo.Append(ctx, domain.ChatMessage{
			ID:        fmt.Sprintf("m%d", i),
			Timestamp: time.Now().UTC(),
			Type:      domain.MessageText,
			Content:   "hi",
		}))
	}

	msgs, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 5)
	assert.Equal(t, "m3", msgs[0].ID)
	assert.Equal(t, "m7", msgs[4].ID)
}

func TestRedisChatRepository_SaveReplaces(t *testing.T) {
	client := newTestClient(t)
	repo := NewRedisChatRepository(client, 200, zaptest.NewLogger(t).Sugar())
	ctx := context.Background()

	require.NoError(t, repo.Append(ctx, domain.ChatMessage{ID: "old"}))
	require.NoError(t, repo.Save(ctx, []domain.ChatMessage{{ID: "a"}, {ID: "b"}}))

	msgs, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "a", msgs[0].ID)

	require.NoError(t, repo.Save(ctx, nil))
	msgs, err = repo.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestMigrate_MovesForeignKeyAside(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.Del(ctx, schemaVersionKey).Err())
	require.NoError(t, client.Set(ctx, chatLogKey, "not a list", 0).Err())

	require.NoError(t, Migrate(ctx, client, zaptest.NewLogger(t).Sugar()))

	kind, err := client.Type(ctx, chatLogKey).Result()
	require.NoError(t, err)
	assert.Equal(t, "none", kind)
	legacy, err := client.Get(ctx, chatLogKey+":legacy").Result()
	require.NoError(t, err)
	assert.Equal(t, "not a list", legacy)

	version, err := getSchemaVersion(ctx, client)
	require.NoError(t, err)
	assert.Equal(t, currentSchemaVersion, version)
}
