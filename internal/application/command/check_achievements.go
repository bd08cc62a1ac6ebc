// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/alem-hub/alem-achievements/internal/domain/achievement"
	"github.com/alem-hub/alem-achievements/internal/domain/shared"
	"github.com/alem-hub/alem-achievements/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// CHECK ACHIEVEMENTS COMMAND
// Evaluates one learner against the active catalog, records newly satisfied
// achievements on the learner and persists the record once.
// ══════════════════════════════════════════════════════════════════════════════

// CheckAchievementsCommand contains the data to evaluate a learner.
type CheckAchievementsCommand struct {
	// LearnerID is the ID of the learner in the learner store.
	LearnerID string

	// Signals are IDs of externally observed events (e.g. "first_step")
	// that satisfy special achievements with an external rule.
	Signals []string

	// RunID for tracing. Generated if empty.
	RunID string
}

// Validate validates the command.
func (c CheckAchievementsCommand) Validate() error {
	if c.LearnerID == "" {
		return errors.New("check_achievements: learner_id is required")
	}
	return nil
}

// CheckAchievementsResult contains the result of an evaluation.
type CheckAchievementsResult struct {
	// RunID identifies this evaluation in logs.
	RunID string

	// LearnerID is the evaluated learner.
	LearnerID string

	// Unlocked lists newly unlocked achievements in catalog order.
	Unlocked []achievement.Definition

	// PointsEarned is the sum of points of Unlocked.
	PointsEarned int

	// Persisted indicates the learner record was written back.
	Persisted bool

	// Skipped is set when the learner is missing or is not a learner.
	Skipped bool

	// EvaluatedAt is when the evaluation ran.
	EvaluatedAt time.Time
}

// IsEmpty reports whether nothing was unlocked.
func (r *CheckAchievementsResult) IsEmpty() bool {
	return r == nil || len(r.Unlocked) == 0
}

// UnlockedIDs returns the IDs of newly unlocked achievements.
func (r *CheckAchievementsResult) UnlockedIDs() []string {
	if r == nil {
		return nil
	}
	ids := make([]string, 0, len(r.Unlocked))
	for _, d := range r.Unlocked {
		ids = append(ids, d.ID)
	}
	return ids
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// CheckAchievementsHandler handles the CheckAchievementsCommand.
type CheckAchievementsHandler struct {
	engine   *achievement.Engine
	learners achievement.LearnerStore
	log      *logger.Logger
	now      func() time.Time
}

// NewCheckAchievementsHandler creates a new CheckAchievementsHandler.
func NewCheckAchievementsHandler(
	engine *achievement.Engine,
	learners achievement.LearnerStore,
	log *logger.Logger,
) *CheckAchievementsHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &CheckAchievementsHandler{
		engine:   engine,
		learners: learners,
		log:      log.With(logger.Component("check_achievements")),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Handle executes the check achievements command.
// A missing learner or a non-learner record yields an empty result, not an error.
func (h *CheckAchievementsHandler) Handle(ctx context.Context, cmd CheckAchievementsCommand) (*CheckAchievementsResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	runID := cmd.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	log := h.log.WithRunID(runID).With(logger.LearnerID(cmd.LearnerID))

	result := &CheckAchievementsResult{
		RunID:       runID,
		LearnerID:   cmd.LearnerID,
		EvaluatedAt: h.now(),
	}

	record, err := h.learners.FindLearnerByID(ctx, cmd.LearnerID)
	if err != nil {
		if shared.IsNotFound(err) {
			log.Debug("learner not found, skipping evaluation")
			result.Skipped = true
			return result, nil
		}
		return nil, fmt.Errorf("check_achievements: find learner: %w", err)
	}
	if record == nil || !record.IsLearner() {
		log.Debug("record is not a learner, skipping evaluation")
		result.Skipped = true
		return result, nil
	}

	unlock := h.engine.Evaluate(record.ProgressSnapshot(), cmd.Signals...)
	if unlock.IsEmpty() {
		log.Debug("no new achievements")
		return result, nil
	}

	for _, id := range unlock.IDsToAdd {
		record.AddUnlockedAchievement(id)
	}

	if err := h.learners.Persist(ctx, cmd.LearnerID, record); err != nil {
		log.Error("failed to persist unlocked achievements", logger.Err(err), logger.UnlockedIDs(unlock.IDsToAdd))
		return nil, fmt.Errorf("check_achievements: persist: %w", err)
	}

	result.Unlocked = unlock.Unlocked
	result.PointsEarned = unlock.TotalPoints()
	result.Persisted = true

	log.Info("achievements unlocked",
		logger.UnlockedIDs(unlock.IDsToAdd),
		logger.Points(result.PointsEarned),
	)

	return result, nil
}
