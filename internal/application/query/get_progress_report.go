// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/alem-hub/alem-achievements/internal/domain/achievement"
	"github.com/alem-hub/alem-achievements/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET PROGRESS REPORT QUERY
// Per-learner report: obtained/total, points, nearest-to-completion and
// rarity breakdown. Recomputed on every call.
// ══════════════════════════════════════════════════════════════════════════════

// GetProgressReportQuery identifies the learner.
type GetProgressReportQuery struct {
	LearnerID string
}

// Validate validates the query.
func (q GetProgressReportQuery) Validate() error {
	if q.LearnerID == "" {
		return errors.New("get_progress_report: learner_id is required")
	}
	return nil
}

// GetProgressReportHandler handles GetProgressReportQuery.
type GetProgressReportHandler struct {
	aggregator *achievement.Aggregator
	learners   achievement.LearnerStore
}

// NewGetProgressReportHandler creates a new handler.
func NewGetProgressReportHandler(aggregator *achievement.Aggregator, learners achievement.LearnerStore) *GetProgressReportHandler {
	return &GetProgressReportHandler{aggregator: aggregator, learners: learners}
}

// Handle returns the report, or nil when the learner is missing or is not a learner.
func (h *GetProgressReportHandler) Handle(ctx context.Context, q GetProgressReportQuery) (*achievement.ProgressReport, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	record, err := h.learners.FindLearnerByID(ctx, q.LearnerID)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get_progress_report: find learner: %w", err)
	}
	if record == nil || !record.IsLearner() {
		return nil, nil
	}

	return h.aggregator.ProgressReport(record.ProgressSnapshot()), nil
}
