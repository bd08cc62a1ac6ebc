package query

import (
	"context"
	"fmt"

	"github.com/alem-hub/alem-achievements/internal/domain/achievement"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET ACHIEVEMENT STATS QUERY
// Population statistics over every record with the learner role.
// ══════════════════════════════════════════════════════════════════════════════

// GetAchievementStatsHandler computes population statistics.
type GetAchievementStatsHandler struct {
	aggregator *achievement.Aggregator
	learners   achievement.LearnerStore
}

// NewGetAchievementStatsHandler creates a new handler.
func NewGetAchievementStatsHandler(aggregator *achievement.Aggregator, learners achievement.LearnerStore) *GetAchievementStatsHandler {
	return &GetAchievementStatsHandler{aggregator: aggregator, learners: learners}
}

// Handle loads all records, keeps learners only and aggregates them.
func (h *GetAchievementStatsHandler) Handle(ctx context.Context) (achievement.PopulationStatistics, error) {
	records, err := h.learners.AllLearners(ctx)
	if err != nil {
		return achievement.PopulationStatistics{}, fmt.Errorf("get_achievement_stats: load learners: %w", err)
	}

	snapshots := make([]*achievement.ProgressSnapshot, 0, len(records))
	for _, r := range records {
		if r == nil || !r.IsLearner() {
			continue
		}
		snapshots = append(snapshots, r.ProgressSnapshot())
	}

	return h.aggregator.PopulationStatistics(snapshots), nil
}
