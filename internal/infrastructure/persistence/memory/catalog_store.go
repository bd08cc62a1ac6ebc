package memory

import (
	"context"
	"sync"

	"github.com/alem-hub/alem-achievements/internal/domain/achievement"
	"github.com/alem-hub/alem-achievements/internal/domain/shared"
)

// CatalogStore keeps saved definitions in creation order.
type CatalogStore struct {
	mu    sync.RWMutex
	defs  []achievement.Definition
	index map[string]int
}

// NewCatalogStore creates an empty catalog store.
func NewCatalogStore() *CatalogStore {
	return &CatalogStore{index: make(map[string]int)}
}

// SaveDefinition implements achievement.CatalogStore.
func (s *CatalogStore) SaveDefinition(ctx context.Context, def achievement.Definition) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if i, ok := s.index[def.ID]; ok {
		s.defs[i] = def
		return nil
	}
	s.index[def.ID] = len(s.defs)
	s.defs = append(s.defs, def)
	return nil
}

// SetActive implements achievement.CatalogStore.
func (s *CatalogStore) SetActive(ctx context.Context, id string, active bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return shared.ErrAchievementNotFound
	}
	s.defs[i].Active = active
	return nil
}

// LoadDefinitions implements achievement.CatalogStore.
func (s *CatalogStore) LoadDefinitions(ctx context.Context) ([]achievement.Definition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]achievement.Definition(nil), s.defs...), nil
}
