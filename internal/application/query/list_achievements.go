package query

import (
	"context"
	"fmt"

	"github.com/alem-hub/alem-achievements/internal/domain/achievement"
	"github.com/alem-hub/alem-achievements/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIST ACHIEVEMENTS QUERY
// Catalog listings and the set of achievements a learner has earned.
// ══════════════════════════════════════════════════════════════════════════════

// ListAchievementsQuery filters the catalog. Empty filters match everything.
type ListAchievementsQuery struct {
	Category        achievement.Category
	Rarity          achievement.Rarity
	IncludeInactive bool
}

// ListAchievementsHandler serves catalog listings.
type ListAchievementsHandler struct {
	catalog  *achievement.Catalog
	learners achievement.LearnerStore
}

// NewListAchievementsHandler creates a new handler. learners may be nil if
// LearnerAchievements is not used.
func NewListAchievementsHandler(catalog *achievement.Catalog, learners achievement.LearnerStore) *ListAchievementsHandler {
	return &ListAchievementsHandler{catalog: catalog, learners: learners}
}

// Handle returns catalog entries in catalog order.
func (h *ListAchievementsHandler) Handle(q ListAchievementsQuery) []achievement.Definition {
	defs := h.catalog.List(!q.IncludeInactive)
	if q.Category == "" && q.Rarity == "" {
		return defs
	}

	out := defs[:0]
	for _, d := range defs {
		if q.Category != "" && d.Category != q.Category {
			continue
		}
		if q.Rarity != "" && d.Rarity != q.Rarity {
			continue
		}
		out = append(out, d)
	}
	return out
}

// LearnerAchievements returns catalog entries the learner has unlocked,
// active or not, in catalog order. Missing or non-learner records yield nil.
func (h *ListAchievementsHandler) LearnerAchievements(ctx context.Context, learnerID string) ([]achievement.Definition, error) {
	record, err := h.learners.FindLearnerByID(ctx, learnerID)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list_learner_achievements: find learner: %w", err)
	}
	if record == nil || !record.IsLearner() {
		return nil, nil
	}

	progress := record.ProgressSnapshot()
	if progress == nil {
		return nil, nil
	}

	var out []achievement.Definition
	for _, d := range h.catalog.List(false) {
		if progress.HasUnlocked(d.ID) {
			out = append(out, d)
		}
	}
	return out, nil
}
