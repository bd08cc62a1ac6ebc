package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/alem-hub/alem-achievements/internal/domain/achievement"
	"github.com/alem-hub/alem-achievements/internal/domain/shared"
	"github.com/alem-hub/alem-achievements/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// GRANT ACHIEVEMENT COMMAND
// Out-of-band unlock for achievements that cannot be derived from a progress
// snapshot (speedster, first_step).
// ══════════════════════════════════════════════════════════════════════════════

// GrantAchievementCommand contains the data to grant one achievement.
type GrantAchievementCommand struct {
	LearnerID     string
	AchievementID string
}

// Validate validates the command.
func (c GrantAchievementCommand) Validate() error {
	if c.LearnerID == "" {
		return errors.New("grant_achievement: learner_id is required")
	}
	if c.AchievementID == "" {
		return errors.New("grant_achievement: achievement_id is required")
	}
	return nil
}

// GrantAchievementResult contains the result of a grant.
type GrantAchievementResult struct {
	// Granted is false when the learner already had the achievement.
	Granted     bool
	Achievement achievement.Definition
}

// GrantAchievementHandler handles the GrantAchievementCommand.
type GrantAchievementHandler struct {
	engine   *achievement.Engine
	learners achievement.LearnerStore
	log      *logger.Logger
}

// NewGrantAchievementHandler creates a new GrantAchievementHandler.
func NewGrantAchievementHandler(engine *achievement.Engine, learners achievement.LearnerStore, log *logger.Logger) *GrantAchievementHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &GrantAchievementHandler{
		engine:   engine,
		learners: learners,
		log:      log.With(logger.Component("grant_achievement")),
	}
}

// Handle executes the grant command. Unknown or inactive achievements and
// missing learners are reported as errors.
func (h *GrantAchievementHandler) Handle(ctx context.Context, cmd GrantAchievementCommand) (*GrantAchievementResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	def, ok := h.engine.Catalog().FindByID(cmd.AchievementID)
	if !ok {
		return nil, shared.ErrAchievementNotFound
	}
	if !def.Active {
		return nil, shared.ErrAchievementInactive
	}

	record, err := h.learners.FindLearnerByID(ctx, cmd.LearnerID)
	if err != nil {
		return nil, fmt.Errorf("grant_achievement: find learner: %w", err)
	}
	if record == nil || !record.IsLearner() {
		return nil, shared.ErrNotALearner
	}

	granted, ok := h.engine.Grant(record.ProgressSnapshot(), cmd.AchievementID)
	if !ok {
		return &GrantAchievementResult{Granted: false, Achievement: def}, nil
	}

	record.AddUnlockedAchievement(granted.ID)
	if err := h.learners.Persist(ctx, cmd.LearnerID, record); err != nil {
		return nil, fmt.Errorf("grant_achievement: persist: %w", err)
	}

	h.log.Info("achievement granted",
		logger.LearnerID(cmd.LearnerID),
		logger.AchievementID(granted.ID),
		logger.Points(granted.Points),
	)

	return &GrantAchievementResult{Granted: true, Achievement: granted}, nil
}
