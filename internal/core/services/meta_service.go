package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"communityhub/internal/core/domain"
	"communityhub/internal/core/ports"
	"communityhub/pkg/utils"
	"communityhub/pkg/validation"
)

const (
	maxTitleLength       = 200
	maxDescriptionLength = 5000
)

// MetaService serves the updates, events and items lists
type MetaService struct {
	mu     sync.Mutex
	repo   ports.MetaRepository
	clock  utils.Clock
	logger *zap.SugaredLogger
}

func NewMetaService(repo ports.MetaRepository, clock utils.Clock, logger *zap.SugaredLogger) *MetaService {
	if clock == nil {
		clock = utils.SystemClock
	}
	return &MetaService{repo: repo, clock: clock, logger: logger}
}

// List returns the category's items newest first. An unreadable list is served empty.
func (s *MetaService) List(ctx context.Context, category string) ([]domain.MetaItem, error) {
	cat, err := domain.ParseCategory(category)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.List(ctx, cat)
	if err != nil {
		s.logger.Warnw("Meta content unavailable", "category", cat, "error", err)
		return []domain.MetaItem{}, nil
	}
	if items == nil {
		items = []domain.MetaItem{}
	}
	return items, nil
}

// Append prepends a new item to the category
func (s *MetaService) Append(ctx context.Context, category, title, description string) (domain.MetaItem, error) {
	cat, err := domain.ParseCategory(category)
	if err != nil {
		return domain.MetaItem{}, err
	}

	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	if err := validation.ValidateStringLength(title, 1, maxTitleLength, "title"); err != nil {
		return domain.MetaItem{}, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if err := validation.ValidateStringLength(description, 0, maxDescriptionLength, "description"); err != nil {
		return domain.MetaItem{}, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	item := domain.MetaItem{
		ID:          utils.GenerateItemID(),
		Title:       title,
		Description: description,
		Date:        s.clock().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.repo.List(ctx, cat)
	if err != nil {
		return domain.MetaItem{}, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}

	updated := make([]domain.MetaItem, 0, len(items)+1)
	updated = append(updated, item)
	updated = append(updated, items...)

	if err := s.repo.Save(ctx, cat, updated); err != nil {
		return domain.MetaItem{}, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}

	s.logger.Infow("Meta item added", "category", cat, "item_id", item.ID)
	return item, nil
}
