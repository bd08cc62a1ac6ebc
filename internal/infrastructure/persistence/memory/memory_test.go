package memory

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/alem-achievements/internal/domain/achievement"
	"github.com/alem-hub/alem-achievements/internal/domain/shared"
)

func TestLearnerStore_CopiesOnReadAndWrite(t *testing.T) {
	ctx := context.Background()
	store := NewLearnerStore(achievement.NewLearner("ana"))

	rec, err := store.FindLearnerByID(ctx, "ana")
	require.NoError(t, err)
	rec.AddUnlockedAchievement("first_step")

	again, err := store.FindLearnerByID(ctx, "ana")
	require.NoError(t, err)
	assert.False(t, again.ProgressSnapshot().HasUnlocked("first_step"), "not visible before Persist")

	require.NoError(t, store.Persist(ctx, "ana", rec))
	again, err = store.FindLearnerByID(ctx, "ana")
	require.NoError(t, err)
	assert.True(t, again.ProgressSnapshot().HasUnlocked("first_step"))
	assert.Equal(t, 1, store.PersistCount())
}

func TestLearnerStore_NotFound(t *testing.T) {
	ctx := context.Background()
	store := NewLearnerStore()

	_, err := store.FindLearnerByID(ctx, "ghost")
	assert.True(t, shared.IsNotFound(err))

	err = store.Persist(ctx, "ghost", achievement.NewLearner("ghost"))
	assert.ErrorIs(t, err, shared.ErrLearnerNotFound)
	assert.Zero(t, store.PersistCount())
}

func TestLearnerStore_AllLearnersInInsertionOrder(t *testing.T) {
	instructor := achievement.NewLearner("zoe")
	instructor.Role = achievement.RoleInstructor
	store := NewLearnerStore(achievement.NewLearner("bob"), instructor, achievement.NewLearner("ana"))

	all, err := store.AllLearners(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[0].IsLearner())
	assert.False(t, all[1].IsLearner())
	assert.Equal(t, []string{"ana", "bob", "zoe"}, store.IDs())
}

func TestLearnerStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLearnerStore().AllLearners(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCatalogStore(t *testing.T) {
	ctx := context.Background()
	store := NewCatalogStore()

	a := achievement.Definition{ID: "a", Category: achievement.CategorySpecial, Rarity: achievement.RarityCommon, Active: true}
	b := achievement.Definition{ID: "b", Category: achievement.CategorySpecial, Rarity: achievement.RarityRare, Active: true}
	require.NoError(t, store.SaveDefinition(ctx, a))
	require.NoError(t, store.SaveDefinition(ctx, b))

	a.Points = 7
	require.NoError(t, store.SaveDefinition(ctx, a))
	require.NoError(t, store.SetActive(ctx, "b", false))
	assert.ErrorIs(t, store.SetActive(ctx, "zzz", false), shared.ErrAchievementNotFound)

	defs, err := store.LoadDefinitions(ctx)
	require.NoError(t, err)
	require.Len(t, defs, 2)
	assert.Equal(t, 7, defs[0].Points)
	assert.False(t, defs[1].Active)
}

func TestLoadLearners(t *testing.T) {
	learners, err := LoadLearners(strings.NewReader(`
learners:
  - id: ana
    total_time: 90m
    completed_scenarios: [jardinRiemann, puenteTeorema]
    activities:
      - {kind: scenario_completed, scenario: jardinRiemann, duration: 8m}
      - {kind: scenario_started, scenario: puenteTeorema}
    unlocked: [first_step]
  - id: prof
    role: instructor
    total_time_ms: 1000
`))
	require.NoError(t, err)
	require.Len(t, learners, 2)

	ana := learners[0]
	assert.True(t, ana.IsLearner())
	assert.Equal(t, int64(5_400_000), ana.Progress.TotalTimeMs)
	assert.Equal(t, []string{"jardinRiemann", "puenteTeorema"}, ana.Progress.ScenarioList())
	require.Len(t, ana.Progress.ActivityHistory, 2)
	assert.Equal(t, 8*time.Minute, ana.Progress.ActivityHistory[0].Duration)
	assert.True(t, ana.Progress.HasUnlocked("first_step"))

	prof := learners[1]
	assert.False(t, prof.IsLearner())
	assert.Equal(t, int64(1000), prof.Progress.TotalTimeMs)
}

func TestLoadLearners_Errors(t *testing.T) {
	_, err := LoadLearners(strings.NewReader("learners:\n  - role: learner\n"))
	assert.ErrorIs(t, err, shared.ErrInvalidLearner)

	_, err = LoadLearners(strings.NewReader("learners:\n  - id: x\n    total_time: forever\n"))
	assert.True(t, shared.IsValidation(err))

	_, err = LoadLearners(strings.NewReader("learners: [\n"))
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}
