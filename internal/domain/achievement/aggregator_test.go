package achievement

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregator_NearestToCompletionAscending(t *testing.T) {
	agg := NewAggregator(NewCatalog(persistentDef(), jardinDef()))
	report := agg.ProgressReport(NewProgressSnapshot(1_800_000, nil, nil, nil))
	require.NotNil(t, report)

	require.Len(t, report.NearestToCompletion, 2)
	// Ascending order: least progressed first.
	assert.Equal(t, "jardin_master", report.NearestToCompletion[0].Definition.ID)
	assert.Equal(t, 0.0, report.NearestToCompletion[0].Percent)
	assert.Equal(t, "persistent", report.NearestToCompletion[1].Definition.ID)
	assert.Equal(t, 50.0, report.NearestToCompletion[1].Percent)
}

func TestAggregator_NearestTiesKeepCatalogOrder(t *testing.T) {
	defs := []Definition{persistentDef(), jardinDef(), explorerDef(), firstStepDef(), speedsterDef(), pathDef()}
	agg := NewAggregator(NewCatalog(defs...))

	report := agg.ProgressReport(NewProgressSnapshot(0, nil, nil, nil))
	require.Len(t, report.NearestToCompletion, NearestLimit)

	got := make([]string, 0, NearestLimit)
	for _, np := range report.NearestToCompletion {
		got = append(got, np.Definition.ID)
	}
	assert.Equal(t, []string{"persistent", "jardin_master", "explorer", "first_step", "speedster"}, got)
}

func TestAggregator_ProgressReport(t *testing.T) {
	inactive := explorerDef()
	inactive.Active = false
	agg := NewAggregator(NewCatalog(persistentDef(), jardinDef(), speedsterDef(), inactive))

	p := NewProgressSnapshot(0, nil, nil, []string{"persistent", "speedster", "explorer", "unknown"})
	report := agg.ProgressReport(p)
	require.NotNil(t, report)

	want := &ProgressReport{
		TotalActive:        3,
		Obtained:           2,
		PercentageComplete: 2.0 / 3.0 * 100,
		TotalPoints:        55,
		NearestToCompletion: []AchievementProgress{
			{Definition: jardinDef(), Percent: 0},
		},
		ByRarity: RarityCounts{RarityCommon: 0, RarityRare: 1, RarityEpic: 1, RarityLegendary: 0},
	}
	if diff := cmp.Diff(want, report); diff != "" {
		t.Errorf("ProgressReport mismatch (-want +got):\n%s", diff)
	}
}

func TestAggregator_PercentageBounds(t *testing.T) {
	catalog := NewCatalog(persistentDef(), jardinDef())
	agg := NewAggregator(catalog)

	for _, unlocked := range [][]string{nil, {"persistent"}, {"persistent", "jardin_master"}} {
		report := agg.ProgressReport(NewProgressSnapshot(0, nil, nil, unlocked))
		assert.GreaterOrEqual(t, report.PercentageComplete, 0.0)
		assert.LessOrEqual(t, report.PercentageComplete, 100.0)
		assert.Equal(t, report.Obtained == report.TotalActive, report.PercentageComplete == 100)
	}

	empty := NewAggregator(NewCatalog())
	report := empty.ProgressReport(NewProgressSnapshot(0, nil, nil, nil))
	assert.Equal(t, 0.0, report.PercentageComplete)

	assert.Nil(t, agg.ProgressReport(nil))
}

func TestAggregator_PopulationStatistics(t *testing.T) {
	agg := NewAggregator(NewCatalog(persistentDef(), jardinDef()))

	stats := agg.PopulationStatistics([]*ProgressSnapshot{
		NewProgressSnapshot(0, nil, nil, []string{"persistent"}),
		NewProgressSnapshot(0, nil, nil, nil),
	})

	require.Len(t, stats.MostPopular, 1)
	assert.Equal(t, "persistent", stats.MostPopular[0].ID)
	assert.Equal(t, 1, stats.MostPopular[0].Count)
	assert.Equal(t, 50.0, stats.MostPopular[0].Percentage)
	require.NotNil(t, stats.MostPopular[0].Definition)
	assert.Equal(t, 25, stats.MostPopular[0].Definition.Points)
	assert.Equal(t, 0.5, stats.AverageAchievementsPerLearner)
	assert.Equal(t, 2, stats.LearnerCount)
	assert.Equal(t, 2, stats.TotalAchievements)
	assert.Equal(t, 2, stats.ActiveAchievements)
	assert.Equal(t, 2, stats.RarityDistribution[RarityRare])
}

func TestAggregator_PopulationStatisticsNoLearners(t *testing.T) {
	agg := NewAggregator(NewCatalog(persistentDef()))
	stats := agg.PopulationStatistics(nil)

	assert.Equal(t, 0.0, stats.AverageAchievementsPerLearner)
	assert.Empty(t, stats.MostPopular)
	assert.Equal(t, 1, stats.RarityDistribution[RarityRare])
}

func TestAggregator_PopulationExcludesInactiveFromRarity(t *testing.T) {
	catalog := NewCatalog(persistentDef(), speedsterDef())
	catalog.Deactivate("speedster")
	agg := NewAggregator(catalog)

	stats := agg.PopulationStatistics([]*ProgressSnapshot{
		NewProgressSnapshot(0, nil, nil, []string{"speedster"}),
	})
	assert.Equal(t, 0, stats.RarityDistribution[RarityEpic])
	assert.Equal(t, 1, stats.ActiveAchievements)
	assert.Equal(t, 2, stats.TotalAchievements)
}

func TestAggregator_PopularityTopFiveDescending(t *testing.T) {
	agg := NewAggregator(NewCatalog())
	learners := []*ProgressSnapshot{
		NewProgressSnapshot(0, nil, nil, []string{"a", "b", "c", "d", "e", "f"}),
		NewProgressSnapshot(0, nil, nil, []string{"f", "e"}),
		NewProgressSnapshot(0, nil, nil, []string{"f"}),
	}

	stats := agg.PopulationStatistics(learners)
	require.Len(t, stats.MostPopular, PopularLimit)

	got := make([]string, 0, PopularLimit)
	for _, p := range stats.MostPopular {
		got = append(got, p.ID)
		assert.Nil(t, p.Definition)
	}
	// Ties keep first-seen order (a, b, c, d).
	assert.Equal(t, []string{"f", "e", "a", "b", "c"}, got)
	assert.Equal(t, 100.0, stats.MostPopular[0].Percentage)
	assert.InDelta(t, 3.0, stats.AverageAchievementsPerLearner, 1e-9)
}

func TestAggregator_PopularityTiesWithinLearnerAreAlphabetical(t *testing.T) {
	agg := NewAggregator(NewCatalog())
	stats := agg.PopulationStatistics([]*ProgressSnapshot{
		NewProgressSnapshot(0, nil, nil, []string{"zeta", "alpha"}),
		NewProgressSnapshot(0, nil, nil, []string{"beta"}),
	})

	got := make([]string, 0, len(stats.MostPopular))
	for _, p := range stats.MostPopular {
		got = append(got, p.ID)
	}
	assert.Equal(t, []string{"alpha", "zeta", "beta"}, got)
}
