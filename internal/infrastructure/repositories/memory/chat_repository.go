package memory

import (
	"context"
	"sync"

	"communityhub/internal/core/domain"
	"communityhub/internal/core/ports"
)

// MemoryChatRepository keeps the chat log in process memory. History is
// lost on restart.
type MemoryChatRepository struct {
	msgs  []domain.ChatMessage
	limit int
	mu    sync.RWMutex
}

func NewMemoryChatRepository(limit int) ports.ChatRepository {
	return &MemoryChatRepository{limit: limit}
}

func (r *MemoryChatRepository) Load(ctx context.Context) ([]domain.ChatMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.ChatMessage, len(r.msgs))
	copy(out, r.msgs)
	return out, nil
}

func (r *MemoryChatRepository) Append(ctx context.Context, msg domain.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.msgs = r.trim(append(r.msgs, msg))
	return nil
}

func (r *MemoryChatRepository) Save(ctx context.Context, msgs []domain.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.msgs = r.trim(append([]domain.ChatMessage(nil), msgs...))
	return nil
}

func (r *MemoryChatRepository) trim(msgs []domain.ChatMessage) []domain.ChatMessage {
	if r.limit > 0 && len(msgs) > r.limit {
		return append([]domain.ChatMessage(nil), msgs[len(msgs)-r.limit:]...)
	}
	return msgs
}
