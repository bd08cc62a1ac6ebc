// Package memory provides in-process implementations of the achievement
// stores. Used by the CLI when no database is configured and by tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/alem-hub/alem-achievements/internal/domain/achievement"
	"github.com/alem-hub/alem-achievements/internal/domain/shared"
)

// LearnerStore keeps learner records in a map. Records are copied on the
// way in and out, so callers must Persist to make changes visible.
type LearnerStore struct {
	mu       sync.RWMutex
	learners map[string]*achievement.Learner
	order    []string
	persists int
}

// NewLearnerStore creates a store seeded with the given learners.
func NewLearnerStore(learners ...*achievement.Learner) *LearnerStore {
	s := &LearnerStore{learners: make(map[string]*achievement.Learner, len(learners))}
	for _, l := range learners {
		s.put(l)
	}
	return s
}

// Put inserts or replaces a learner.
func (s *LearnerStore) Put(l *achievement.Learner) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(l)
}

func (s *LearnerStore) put(l *achievement.Learner) {
	if l == nil {
		return
	}
	if _, ok := s.learners[l.ID]; !ok {
		s.order = append(s.order, l.ID)
	}
	s.learners[l.ID] = l.Clone()
}

// FindLearnerByID implements achievement.LearnerStore.
func (s *LearnerStore) FindLearnerByID(ctx context.Context, id string) (achievement.LearnerRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.learners[id]
	if !ok {
		return nil, shared.ErrLearnerNotFound
	}
	return l.Clone(), nil
}

// Persist implements achievement.LearnerStore.
func (s *LearnerStore) Persist(ctx context.Context, learnerID string, record achievement.LearnerRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.learners[learnerID]
	if !ok {
		return shared.ErrLearnerNotFound
	}

	updated := existing.Clone()
	updated.Progress = record.ProgressSnapshot().Clone()
	s.learners[learnerID] = updated
	s.persists++
	return nil
}

// AllLearners implements achievement.LearnerStore. Records come back in
// insertion order.
func (s *LearnerStore) AllLearners(ctx context.Context) ([]achievement.LearnerRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]achievement.LearnerRecord, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.learners[id].Clone())
	}
	return out, nil
}

// PersistCount returns how many times Persist succeeded.
func (s *LearnerStore) PersistCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.persists
}

// IDs returns the stored learner IDs sorted.
func (s *LearnerStore) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := append([]string(nil), s.order...)
	sort.Strings(ids)
	return ids
}
