package achievement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_EvaluateBothInCatalogOrder(t *testing.T) {
	engine := NewEngine(NewCatalog(persistentDef(), jardinDef()))
	p := NewProgressSnapshot(3_600_000, []string{"jardinRiemann"}, nil, nil)

	result := engine.Evaluate(p)

	require.Len(t, result.Unlocked, 2)
	assert.Equal(t, "persistent", result.Unlocked[0].ID)
	assert.Equal(t, "jardin_master", result.Unlocked[1].ID)
	assert.Equal(t, []string{"persistent", "jardin_master"}, result.IDsToAdd)
	assert.Equal(t, 45, result.TotalPoints())

	// Evaluate does not mutate the snapshot.
	assert.Equal(t, 0, p.UnlockedCount())
}

func TestEngine_Idempotent(t *testing.T) {
	engine := NewEngine(NewCatalog(persistentDef(), jardinDef(), explorerDef()))
	p := NewProgressSnapshot(3_600_000, []string{"jardinRiemann"}, activities(3), nil)

	first := engine.Evaluate(p)
	require.Len(t, first.Unlocked, 2)

	next := engine.Apply(p, first)
	second := engine.Evaluate(next)
	assert.True(t, second.IsEmpty())

	// New criteria becoming true unlocks only the new achievement.
	next.ActivityHistory = activities(10)
	third := engine.Evaluate(next)
	require.Len(t, third.Unlocked, 1)
	assert.Equal(t, "explorer", third.Unlocked[0].ID)
	for _, id := range third.IDsToAdd {
		assert.NotContains(t, first.IDsToAdd, id)
	}
}

func TestEngine_SkipsInactive(t *testing.T) {
	catalog := NewCatalog(persistentDef(), jardinDef())
	catalog.Deactivate("jardin_master")
	engine := NewEngine(catalog)

	result := engine.Evaluate(NewProgressSnapshot(3_600_000, []string{"jardinRiemann"}, nil, nil))
	require.Len(t, result.Unlocked, 1)
	assert.Equal(t, "persistent", result.Unlocked[0].ID)
}

func TestEngine_NilSnapshotFailsSoft(t *testing.T) {
	engine := NewEngine(NewCatalog(persistentDef()))
	result := engine.Evaluate(nil)
	assert.True(t, result.IsEmpty())
	assert.Empty(t, result.IDsToAdd)
	assert.Nil(t, engine.Apply(nil, result))
}

func TestEngine_Signals(t *testing.T) {
	engine := NewEngine(NewCatalog(firstStepDef(), speedsterDef()))
	p := NewProgressSnapshot(0, nil, activities(1), nil)

	assert.True(t, engine.Evaluate(p).IsEmpty())

	result := engine.Evaluate(p, "first_step", "speedster")
	require.Len(t, result.Unlocked, 1)
	assert.Equal(t, "first_step", result.Unlocked[0].ID)
}

func TestEngine_Grant(t *testing.T) {
	catalog := NewCatalog(speedsterDef(), persistentDef())
	engine := NewEngine(catalog)
	p := NewProgressSnapshot(0, nil, nil, []string{"persistent"})

	def, ok := engine.Grant(p, "speedster")
	require.True(t, ok)
	assert.Equal(t, "speedster", def.ID)

	_, ok = engine.Grant(p, "persistent")
	assert.False(t, ok, "already unlocked")

	_, ok = engine.Grant(p, "missing")
	assert.False(t, ok)

	catalog.Deactivate("speedster")
	_, ok = engine.Grant(p, "speedster")
	assert.False(t, ok, "inactive")

	_, ok = engine.Grant(nil, "speedster")
	assert.False(t, ok)
}
