package ports

import (
	"context"
	"io"
	"time"

	"communityhub/internal/core/domain"
)

// ChatRepository persists the bounded chat log, oldest message first.
type ChatRepository interface {
	Load(ctx context.Context) ([]domain.ChatMessage, error)
	Append(ctx context.Context, msg domain.ChatMessage) error
	Save(ctx context.Context, msgs []domain.ChatMessage) error
}

type ReportRepository interface {
	Create(ctx context.Context, input domain.ReportInput, createdAt time.Time) (*domain.Report, error)
	List(ctx context.Context) ([]*domain.Report, error)
}

type MetaRepository interface {
	List(ctx context.Context, category domain.Category) ([]domain.MetaItem, error)
	Save(ctx context.Context, category domain.Category, items []domain.MetaItem) error
}

type MediaRepository interface {
	Store(ctx context.Context, name string, content io.Reader) error
}
