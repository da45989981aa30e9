package file

import (
	"context"
	"io"

	"communityhub/internal/core/ports"
	"communityhub/pkg/storage"
)

type MediaRepository struct {
	storage storage.Storage
}

func NewMediaRepository(s storage.Storage) ports.MediaRepository {
	return &MediaRepository{storage: s}
}

// Store writes content under name; a failed write leaves no file behind
func (r *MediaRepository) Store(ctx context.Context, name string, content io.Reader) error {
	return r.storage.Save(ctx, name, content)
}
