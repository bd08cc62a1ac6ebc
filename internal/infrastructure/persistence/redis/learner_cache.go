package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alem-hub/alem-achievements/internal/domain/achievement"
	"github.com/alem-hub/alem-achievements/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// CACHED LEARNER STORE
// ══════════════════════════════════════════════════════════════════════════════

// KeyValue is the subset of Cache used by CachedLearnerStore.
type KeyValue interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CachedLearnerStore is a read-through cache in front of a LearnerStore.
// Only concrete *achievement.Learner records are cached. Cache failures
// are logged and the inner store is used instead.
type CachedLearnerStore struct {
	inner achievement.LearnerStore
	cache KeyValue
	ttl   time.Duration
	log   *logger.Logger
}

// NewCachedLearnerStore wraps inner with cache.
func NewCachedLearnerStore(inner achievement.LearnerStore, cache KeyValue, ttl time.Duration, log *logger.Logger) *CachedLearnerStore {
	if ttl <= 0 {
		ttl = TTLLearnerCache
	}
	if log == nil {
		log = logger.Nop()
	}
	return &CachedLearnerStore{
		inner: inner,
		cache: cache,
		ttl:   ttl,
		log:   log.With(logger.Component("learner_cache")),
	}
}

// FindLearnerByID returns the cached snapshot or loads and caches it.
func (s *CachedLearnerStore) FindLearnerByID(ctx context.Context, id string) (achievement.LearnerRecord, error) {
	key := LearnerKey(id)

	var doc learnerDoc
	err := s.cache.Get(ctx, key, &doc)
	switch {
	case err == nil:
		return doc.toLearner(), nil
	case !errors.Is(err, ErrCacheMiss):
		s.log.Warn("learner cache read failed", logger.LearnerID(id), logger.Err(err))
	}

	record, err := s.inner.FindLearnerByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if l, ok := record.(*achievement.Learner); ok {
		if err := s.cache.Set(ctx, key, newLearnerDoc(l), s.ttl); err != nil {
			s.log.Warn("learner cache write failed", logger.LearnerID(id), logger.Err(err))
		}
	}
	return record, nil
}

// Persist writes through to the inner store and drops the cached snapshot.
func (s *CachedLearnerStore) Persist(ctx context.Context, learnerID string, record achievement.LearnerRecord) error {
	if err := s.inner.Persist(ctx, learnerID, record); err != nil {
		return err
	}
	if err := s.cache.Delete(ctx, LearnerKey(learnerID)); err != nil {
		s.log.Warn("learner cache invalidation failed", logger.LearnerID(learnerID), logger.Err(err))
	}
	return nil
}

// InvalidateAll drops every cached learner snapshot. Used after bulk writes
// that go around Persist, such as imports.
func (s *CachedLearnerStore) InvalidateAll(ctx context.Context) error {
	if err := s.cache.DeleteByPattern(ctx, PrefixLearner+"*"); err != nil {
		return fmt.Errorf("invalidate learner cache: %w", err)
	}
	return nil
}

// AllLearners bypasses the cache.
func (s *CachedLearnerStore) AllLearners(ctx context.Context) ([]achievement.LearnerRecord, error) {
	return s.inner.AllLearners(ctx)
}

// ─────────────────────────────────────────────────────────────────────────────
// Serialization
// ─────────────────────────────────────────────────────────────────────────────

type learnerDoc struct {
	ID        string        `json:"id"`
	Role      string        `json:"role"`
	TotalMs   int64         `json:"total_time_ms"`
	Scenarios []string      `json:"scenarios,omitempty"`
	Activity  []activityDoc `json:"activity,omitempty"`
	Unlocked  []string      `json:"unlocked,omitempty"`
}

type activityDoc struct {
	Kind       string    `json:"kind"`
	ScenarioID string    `json:"scenario_id,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	OccurredAt time.Time `json:"occurred_at"`
}

func newLearnerDoc(l *achievement.Learner) learnerDoc {
	doc := learnerDoc{ID: l.ID, Role: string(l.Role)}
	p := l.Progress
	if p == nil {
		return doc
	}

	doc.TotalMs = p.TotalTimeMs
	doc.Scenarios = p.ScenarioList()
	doc.Unlocked = p.UnlockedList()
	for _, ev := range p.ActivityHistory {
		doc.Activity = append(doc.Activity, activityDoc{
			Kind:       ev.Kind,
			ScenarioID: ev.ScenarioID,
			DurationMs: ev.Duration.Milliseconds(),
			OccurredAt: ev.OccurredAt,
		})
	}
	return doc
}

func (d learnerDoc) toLearner() *achievement.Learner {
	history := make([]achievement.ActivityEvent, 0, len(d.Activity))
	for _, a := range d.Activity {
		history = append(history, achievement.ActivityEvent{
			Kind:       a.Kind,
			ScenarioID: a.ScenarioID,
			Duration:   time.Duration(a.DurationMs) * time.Millisecond,
			OccurredAt: a.OccurredAt,
		})
	}
	return &achievement.Learner{
		ID:       d.ID,
		Role:     achievement.Role(d.Role),
		Progress: achievement.NewProgressSnapshot(d.TotalMs, d.Scenarios, history, d.Unlocked),
	}
}
