package file

import (
	"context"
	"errors"
	"fmt"

	"communityhub/internal/core/domain"
	"communityhub/internal/core/ports"
	"communityhub/pkg/storage"
)

// MetaRepository stores each category as <category>.json
type MetaRepository struct {
	storage storage.Storage
}

func NewMetaRepository(s storage.Storage) ports.MetaRepository {
	return &MetaRepository{storage: s}
}

func (r *MetaRepository) name(category domain.Category) string {
	return string(category) + ".json"
}

func (r *MetaRepository) List(ctx context.Context, category domain.Category) ([]domain.MetaItem, error) {
	var items []domain.MetaItem
	err := storage.LoadJSON(ctx, r.storage, r.name(category), &items)
	if errors.Is(err, storage.ErrNotExist) {
		return []domain.MetaItem{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	return items, nil
}

func (r *MetaRepository) Save(ctx context.Context, category domain.Category, items []domain.MetaItem) error {
	if items == nil {
		items = []domain.MetaItem{}
	}
	return storage.SaveJSON(ctx, r.storage, r.name(category), items)
}
