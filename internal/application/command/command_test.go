package command

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/alem-hub/alem-achievements/internal/domain/achievement"
	"github.com/alem-hub/alem-achievements/internal/domain/shared"
	"github.com/alem-hub/alem-achievements/internal/infrastructure/persistence/memory"
	"github.com/alem-hub/alem-achievements/pkg/logger"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testDefs() []achievement.Definition {
	return []achievement.Definition{
		{
			ID: "first_step", Category: achievement.CategorySpecial,
			Points: 5, Rarity: achievement.RarityCommon, Active: true,
		},
		{
			ID: "persistent", Category: achievement.CategoryTime,
			Criteria: achievement.TimeCriteria{MinTime: time.Hour},
			Points:   25, Rarity: achievement.RarityRare, Active: true,
		},
		{
			ID: "jardin_master", Category: achievement.CategoryCompletion,
			Criteria: achievement.CompletionCriteria{Scenarios: []string{"jardinRiemann"}},
			Points:   20, Rarity: achievement.RarityRare, Active: true,
		},
		{
			ID: "speedster", Category: achievement.CategorySpecial,
			Criteria: achievement.SpecialCriteria{Rule: achievement.RuleTimedCompletion},
			Points:   30, Rarity: achievement.RarityEpic, Active: true,
		},
	}
}

func learner(id string, totalMs int64, scenarios ...string) *achievement.Learner {
	l := achievement.NewLearner(id)
	l.Progress = achievement.NewProgressSnapshot(totalMs, scenarios, nil, nil)
	return l
}

// failingStore wraps a memory store and fails chosen operations.
type failingStore struct {
	*memory.LearnerStore
	findErr    error
	persistErr error
}

func (s *failingStore) FindLearnerByID(ctx context.Context, id string) (achievement.LearnerRecord, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.LearnerStore.FindLearnerByID(ctx, id)
}

func (s *failingStore) Persist(ctx context.Context, id string, rec achievement.LearnerRecord) error {
	if s.persistErr != nil {
		return s.persistErr
	}
	return s.LearnerStore.Persist(ctx, id, rec)
}

func TestCheckAchievements_UnlocksAndPersistsOnce(t *testing.T) {
	ctx := context.Background()
	store := memory.NewLearnerStore(learner("ana", 3_600_000, "jardinRiemann"))
	core, logs := observer.New(zapcore.InfoLevel)
	h := NewCheckAchievementsHandler(
		achievement.NewEngine(achievement.NewCatalog(testDefs()...)),
		store,
		logger.NewFromZap(zap.New(core)),
	)

	res, err := h.Handle(ctx, CheckAchievementsCommand{LearnerID: "ana", RunID: "run-1"})
	require.NoError(t, err)

	assert.Equal(t, []string{"persistent", "jardin_master"}, res.UnlockedIDs())
	assert.Equal(t, 45, res.PointsEarned)
	assert.True(t, res.Persisted)
	assert.Equal(t, "run-1", res.RunID)
	assert.Equal(t, 1, store.PersistCount())

	rec, err := store.FindLearnerByID(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, []string{"jardin_master", "persistent"}, rec.ProgressSnapshot().UnlockedList())

	entries := logs.FilterMessage("achievements unlocked").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "run-1", entries[0].ContextMap()[logger.RunIDKey])

	// Second run is a no-op and does not write.
	res, err = h.Handle(ctx, CheckAchievementsCommand{LearnerID: "ana"})
	require.NoError(t, err)
	assert.True(t, res.IsEmpty())
	assert.False(t, res.Persisted)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 1, store.PersistCount())
}

func TestCheckAchievements_Signals(t *testing.T) {
	store := memory.NewLearnerStore(learner("ana", 0))
	h := NewCheckAchievementsHandler(achievement.NewEngine(achievement.NewCatalog(testDefs()...)), store, nil)

	res, err := h.Handle(context.Background(), CheckAchievementsCommand{LearnerID: "ana", Signals: []string{"first_step"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"first_step"}, res.UnlockedIDs())
}

func TestCheckAchievements_SkipsMissingAndNonLearners(t *testing.T) {
	prof := learner("prof", 10_000_000, "jardinRiemann")
	prof.Role = achievement.RoleInstructor
	store := memory.NewLearnerStore(prof)
	h := NewCheckAchievementsHandler(achievement.NewEngine(achievement.NewCatalog(testDefs()...)), store, nil)

	for _, id := range []string{"ghost", "prof"} {
		res, err := h.Handle(context.Background(), CheckAchievementsCommand{LearnerID: id})
		require.NoError(t, err, id)
		assert.True(t, res.Skipped, id)
		assert.True(t, res.IsEmpty(), id)
	}
	assert.Zero(t, store.PersistCount())
}

func TestCheckAchievements_Errors(t *testing.T) {
	engine := achievement.NewEngine(achievement.NewCatalog(testDefs()...))
	boom := errors.New("connection reset")

	_, err := NewCheckAchievementsHandler(engine, memory.NewLearnerStore(), nil).
		Handle(context.Background(), CheckAchievementsCommand{})
	assert.Error(t, err)

	store := &failingStore{LearnerStore: memory.NewLearnerStore(learner("ana", 3_600_000)), findErr: boom}
	_, err = NewCheckAchievementsHandler(engine, store, nil).Handle(context.Background(), CheckAchievementsCommand{LearnerID: "ana"})
	assert.ErrorIs(t, err, boom)

	store = &failingStore{LearnerStore: memory.NewLearnerStore(learner("ana", 3_600_000)), persistErr: boom}
	_, err = NewCheckAchievementsHandler(engine, store, nil).Handle(context.Background(), CheckAchievementsCommand{LearnerID: "ana"})
	assert.ErrorIs(t, err, boom)
}

func TestGrantAchievement(t *testing.T) {
	ctx := context.Background()
	catalog := achievement.NewCatalog(testDefs()...)
	store := memory.NewLearnerStore(learner("ana", 0))
	h := NewGrantAchievementHandler(achievement.NewEngine(catalog), store, nil)

	res, err := h.Handle(ctx, GrantAchievementCommand{LearnerID: "ana", AchievementID: "speedster"})
	require.NoError(t, err)
	assert.True(t, res.Granted)
	assert.Equal(t, 30, res.Achievement.Points)

	res, err = h.Handle(ctx, GrantAchievementCommand{LearnerID: "ana", AchievementID: "speedster"})
	require.NoError(t, err)
	assert.False(t, res.Granted)
	assert.Equal(t, 1, store.PersistCount())

	_, err = h.Handle(ctx, GrantAchievementCommand{LearnerID: "ana", AchievementID: "nope"})
	assert.ErrorIs(t, err, shared.ErrAchievementNotFound)

	catalog.Deactivate("persistent")
	_, err = h.Handle(ctx, GrantAchievementCommand{LearnerID: "ana", AchievementID: "persistent"})
	assert.ErrorIs(t, err, shared.ErrAchievementInactive)

	_, err = h.Handle(ctx, GrantAchievementCommand{LearnerID: "ghost", AchievementID: "speedster"})
	assert.True(t, shared.IsNotFound(err))
}

func TestCatalogHandler_Create(t *testing.T) {
	ctx := context.Background()
	catalog := achievement.NewCatalog(testDefs()...)
	store := memory.NewCatalogStore()
	h := NewCatalogHandler(catalog, store, nil)

	def := achievement.Definition{
		ID:       "marathon",
		Category: achievement.CategoryTime,
		Criteria: achievement.TimeCriteria{MinTime: 10 * time.Hour},
		Points:   80,
		Rarity:   achievement.RarityLegendary,
	}
	created, err := h.Create(ctx, CreateAchievementCommand{Definition: def})
	require.NoError(t, err)
	assert.True(t, created.Active)

	all := catalog.List(true)
	assert.Equal(t, "marathon", all[len(all)-1].ID)

	saved, err := store.LoadDefinitions(ctx)
	require.NoError(t, err)
	require.Len(t, saved, 1)

	_, err = h.Create(ctx, CreateAchievementCommand{Definition: def})
	assert.ErrorIs(t, err, shared.ErrAchievementAlreadyExists)

	_, err = h.Create(ctx, CreateAchievementCommand{Definition: achievement.Definition{
		ID: "broken", Category: achievement.CategoryCompletion, Rarity: achievement.RarityRare,
		Criteria: achievement.CompletionCriteria{},
	}})
	assert.ErrorIs(t, err, shared.ErrIncompleteCriteria)
	assert.Equal(t, 5, catalog.Len())
}

func TestCatalogHandler_DeactivateAndRestore(t *testing.T) {
	ctx := context.Background()
	store := memory.NewCatalogStore()

	catalog, err := RestoreCatalog(ctx, testDefs(), store)
	require.NoError(t, err)
	h := NewCatalogHandler(catalog, store, nil)

	require.NoError(t, h.Deactivate(ctx, DeactivateAchievementCommand{AchievementID: "persistent"}))
	require.NoError(t, h.Deactivate(ctx, DeactivateAchievementCommand{AchievementID: "persistent"}))
	assert.ErrorIs(t, h.Deactivate(ctx, DeactivateAchievementCommand{AchievementID: "nope"}), shared.ErrAchievementNotFound)

	_, err = h.Create(ctx, CreateAchievementCommand{Definition: achievement.Definition{
		ID: "hello", Category: achievement.CategorySpecial, Rarity: achievement.RarityCommon,
	}})
	require.NoError(t, err)

	// A fresh process sees the same catalog.
	restored, err := RestoreCatalog(ctx, testDefs(), store)
	require.NoError(t, err)
	assert.Equal(t, catalog.List(false), restored.List(false))

	def, ok := restored.FindByID("persistent")
	require.True(t, ok)
	assert.False(t, def.Active)
}
