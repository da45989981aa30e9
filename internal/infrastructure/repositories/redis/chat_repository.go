package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"communityhub/internal/core/domain"
	"communityhub/internal/core/ports"
)

const chatLogKey = KeyPrefix + "chat:log"

// RedisChatRepository keeps the chat log in a Redis list, oldest first.
// RPUSH and LTRIM run in one MULTI so readers never see the list over the limit.
type RedisChatRepository struct {
	client *redis.Client
	key    string
	limit  int
	logger *zap.SugaredLogger
}

func NewRedisChatRepository(client *redis.Client, limit int, logger *zap.SugaredLogger) ports.ChatRepository {
	return &RedisChatRepository{
		client: client,
		key:    chatLogKey,
		limit:  limit,
		logger: logger,
	}
}

func (r *RedisChatRepository) Load(ctx context.Context) ([]domain.ChatMessage, error) {
	raw, err := r.client.LRange(ctx, r.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read chat log: %v", domain.ErrStorage, err)
	}

	msgs := make([]domain.ChatMessage, 0, len(raw))
	for _, item := range raw {
		var msg domain.ChatMessage
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			r.logger.Warnw("Skipping corrupt chat entry", "error", err)
			continue
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

func (r *RedisChatRepository) Append(ctx context.Context, msg domain.ChatMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, r.key, data)
	if r.limit > 0 {
		pipe.LTrim(ctx, r.key, int64(-r.limit), -1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append chat message: %w", err)
	}
	return nil
}

func (r *RedisChatRepository) Save(ctx context.Context, msgs []domain.ChatMessage) error {
	if r.limit > 0 && len(msgs) > r.limit {
		msgs = msgs[len(msgs)-r.limit:]
	}

	values := make([]interface{}, 0, len(msgs))
	for _, msg := range msgs {
		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("failed to marshal message: %w", err)
		}
		values = append(values, data)
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.key)
	if len(values) > 0 {
		pipe.RPush(ctx, r.key, values...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to replace chat log: %w", err)
	}
	return nil
}
