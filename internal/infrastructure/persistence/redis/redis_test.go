package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/alem-hub/alem-achievements/internal/domain/achievement"
	"github.com/alem-hub/alem-achievements/internal/domain/shared"
	"github.com/alem-hub/alem-achievements/internal/infrastructure/persistence/memory"
	"github.com/alem-hub/alem-achievements/pkg/logger"
)

// mapCache stores JSON in memory, like Cache does in Redis.
type mapCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	getErr  error
	deletes int
}

func newMapCache() *mapCache {
	return &mapCache{data: make(map[string][]byte)}
}

func (c *mapCache) Get(_ context.Context, key string, dest any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return c.getErr
	}
	raw, ok := c.data[key]
	if !ok {
		return ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *mapCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.data[key] = raw
	return nil
}

func (c *mapCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	c.deletes++
	return nil
}

// DeleteByPattern supports trailing-star patterns only.
func (c *mapCache) DeleteByPattern(_ context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	for k := range c.data {
		if strings.HasPrefix(k, prefix) {
			delete(c.data, k)
		}
	}
	return nil
}

func learner(id string, unlocked ...string) *achievement.Learner {
	l := achievement.NewLearner(id)
	l.Progress = achievement.NewProgressSnapshot(
		3_600_000,
		[]string{"jardinRiemann"},
		[]achievement.ActivityEvent{{
			Kind:       "scenario_completed",
			ScenarioID: "jardinRiemann",
			Duration:   90 * time.Second,
			OccurredAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		}},
		unlocked,
	)
	return l
}

func TestLearnerKey(t *testing.T) {
	assert.Equal(t, "achievements:learner:ana", LearnerKey("ana"))
}

func TestLearnerDoc_RoundTrip(t *testing.T) {
	in := learner("ana", "persistent", "first_step")

	raw, err := json.Marshal(newLearnerDoc(in))
	require.NoError(t, err)

	var doc learnerDoc
	require.NoError(t, json.Unmarshal(raw, &doc))

	if diff := cmp.Diff(in, doc.toLearner()); diff != "" {
		t.Errorf("learner mismatch (-want +got):\n%s", diff)
	}
}

func TestCachedLearnerStore_ReadThroughAndInvalidate(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewLearnerStore(learner("ana"))
	cache := newMapCache()
	store := NewCachedLearnerStore(inner, cache, time.Minute, nil)

	rec, err := store.FindLearnerByID(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, 0, rec.ProgressSnapshot().UnlockedCount())
	assert.Contains(t, cache.data, LearnerKey("ana"))

	// The inner store changes behind the cache.
	inner.Put(learner("ana", "persistent"))

	rec, err = store.FindLearnerByID(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, 0, rec.ProgressSnapshot().UnlockedCount(), "served from cache")

	rec.AddUnlockedAchievement("jardin_master")
	require.NoError(t, store.Persist(ctx, "ana", rec))
	assert.Equal(t, 1, cache.deletes)
	assert.NotContains(t, cache.data, LearnerKey("ana"))

	rec, err = store.FindLearnerByID(ctx, "ana")
	require.NoError(t, err)
	assert.True(t, rec.ProgressSnapshot().HasUnlocked("jardin_master"))
}

func TestCachedLearnerStore_InvalidateAll(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewLearnerStore(learner("ana"), learner("bob"))
	cache := newMapCache()
	cache.data["other:key"] = []byte(`"kept"`)
	store := NewCachedLearnerStore(inner, cache, time.Minute, nil)

	for _, id := range []string{"ana", "bob"} {
		_, err := store.FindLearnerByID(ctx, id)
		require.NoError(t, err)
	}
	inner.Put(learner("ana", "persistent"))

	require.NoError(t, store.InvalidateAll(ctx))
	assert.NotContains(t, cache.data, LearnerKey("ana"))
	assert.NotContains(t, cache.data, LearnerKey("bob"))
	assert.Contains(t, cache.data, "other:key")

	rec, err := store.FindLearnerByID(ctx, "ana")
	require.NoError(t, err)
	assert.True(t, rec.ProgressSnapshot().HasUnlocked("persistent"))
}

func TestCachedLearnerStore_NotFoundIsNotCached(t *testing.T) {
	cache := newMapCache()
	store := NewCachedLearnerStore(memory.NewLearnerStore(), cache, 0, nil)

	_, err := store.FindLearnerByID(context.Background(), "ghost")
	assert.ErrorIs(t, err, shared.ErrLearnerNotFound)
	assert.Empty(t, cache.data)
}

func TestCachedLearnerStore_CacheFailureFallsBack(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	cache := newMapCache()
	cache.getErr = errors.New("connection refused")
	store := NewCachedLearnerStore(memory.NewLearnerStore(learner("ana", "persistent")), cache, time.Minute, logger.NewFromZap(zap.New(core)))

	rec, err := store.FindLearnerByID(context.Background(), "ana")
	require.NoError(t, err)
	assert.True(t, rec.ProgressSnapshot().HasUnlocked("persistent"))

	entries := logs.FilterMessage("learner cache read failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "ana", entries[0].ContextMap()["learner_id"])
}

func TestCachedLearnerStore_PersistErrorKeepsCache(t *testing.T) {
	ctx := context.Background()
	cache := newMapCache()
	store := NewCachedLearnerStore(memory.NewLearnerStore(), cache, time.Minute, nil)

	err := store.Persist(ctx, "ghost", learner("ghost"))
	assert.ErrorIs(t, err, shared.ErrLearnerNotFound)
	assert.Zero(t, cache.deletes)
}

func TestConfig_Options(t *testing.T) {
	cfg := DefaultConfig()
	opts, err := cfg.Options()
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", opts.Addr)
	assert.Equal(t, 10, opts.PoolSize)

	cfg.URL = "redis://:secret@cache:6380/2"
	opts, err = cfg.Options()
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 2, opts.DB)

	cfg.URL = "http://nope"
	_, err = cfg.Options()
	assert.Error(t, err)
}
