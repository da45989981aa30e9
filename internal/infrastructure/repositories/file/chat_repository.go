package file

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"communityhub/internal/core/domain"
	"communityhub/internal/core/ports"
	"communityhub/pkg/storage"
)

const chatLogName = "chat.json"

// ChatRepository keeps the chat log as a JSON array replaced atomically on every save
type ChatRepository struct {
	mu      sync.Mutex
	storage storage.Storage
	limit   int
	logger  *zap.SugaredLogger
}

func NewChatRepository(s storage.Storage, limit int, logger *zap.SugaredLogger) ports.ChatRepository {
	return &ChatRepository{
		storage: s,
		limit:   limit,
		logger:  logger,
	}
}

func (r *ChatRepository) Load(ctx context.Context) ([]domain.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load(ctx)
}

func (r *ChatRepository) load(ctx context.Context) ([]domain.ChatMessage, error) {
	var msgs []domain.ChatMessage
	err := storage.LoadJSON(ctx, r.storage, chatLogName, &msgs)
	if errors.Is(err, storage.ErrNotExist) {
		return []domain.ChatMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	return msgs, nil
}

// Append adds msg to the stored log. An unreadable log is replaced by a fresh one.
func (r *ChatRepository) Append(ctx context.Context, msg domain.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	msgs, err := r.load(ctx)
	if err != nil {
		r.logger.Warnw("Chat log unreadable, starting a new one", "error", err)
		msgs = nil
	}
	return r.save(ctx, append(msgs, msg))
}

func (r *ChatRepository) Save(ctx context.Context, msgs []domain.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.save(ctx, msgs)
}

func (r *ChatRepository) save(ctx context.Context, msgs []domain.ChatMessage) error {
	return storage.SaveJSON(ctx, r.storage, chatLogName, trimTail(msgs, r.limit))
}

// trimTail keeps the last limit messages
func trimTail(msgs []domain.ChatMessage, limit int) []domain.ChatMessage {
	if msgs == nil {
		return []domain.ChatMessage{}
	}
	if limit > 0 && len(msgs) > limit {
		return msgs[len(msgs)-limit:]
	}
	return msgs
}
