package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/alem-hub/alem-achievements/internal/domain/achievement"
	"github.com/alem-hub/alem-achievements/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEARNER REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// LearnerRepository implements achievement.LearnerStore for PostgreSQL.
type LearnerRepository struct {
	conn *Connection
}

// NewLearnerRepository creates a new LearnerRepository.
func NewLearnerRepository(conn *Connection) *LearnerRepository {
	return &LearnerRepository{conn: conn}
}

const (
	selectLearnerSQL = `SELECT id, role, total_time_ms FROM learners`

	selectScenariosSQL = `SELECT learner_id, scenario_id FROM learner_scenarios`

	selectActivitySQL = `
		SELECT learner_id, kind, COALESCE(scenario_id, ''), duration_ms, occurred_at
		FROM learner_activity`

	selectAchievementsSQL = `SELECT learner_id, achievement_id FROM learner_achievements`
)

// ─────────────────────────────────────────────────────────────────────────────
// achievement.LearnerStore
// ─────────────────────────────────────────────────────────────────────────────

// FindLearnerByID loads one learner with its progress in a read-only
// transaction so the four reads see one snapshot.
func (r *LearnerRepository) FindLearnerByID(ctx context.Context, id string) (achievement.LearnerRecord, error) {
	ctx, cancel := r.conn.queryContext(ctx)
	defer cancel()

	var learner *achievement.Learner

	err := r.conn.WithTx(ctx, ReadOnlyTxOptions(), func(tx pgx.Tx) error {
		learners, err := loadLearners(ctx, tx, " WHERE id = $1", id)
		if err != nil {
			return err
		}
		l, ok := learners.byID[id]
		if !ok {
			return shared.ErrLearnerNotFound
		}
		learner = l
		return nil
	})
	if err != nil {
		return nil, err
	}

	return learner, nil
}

// Persist writes the learner's unlocked set. Existing rows are kept, so
// unlock times are preserved and the call is idempotent.
func (r *LearnerRepository) Persist(ctx context.Context, learnerID string, record achievement.LearnerRecord) error {
	progress := record.ProgressSnapshot()
	if progress == nil {
		return nil
	}

	ctx, cancel := r.conn.queryContext(ctx)
	defer cancel()

	return r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE learners SET updated_at = $1 WHERE id = $2`, time.Now().UTC(), learnerID)
		if err != nil {
			return fmt.Errorf("failed to touch learner: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrLearnerNotFound
		}

		batch := &pgx.Batch{}
		for _, id := range progress.UnlockedList() {
			batch.Queue(`
				INSERT INTO learner_achievements (learner_id, achievement_id)
				VALUES ($1, $2)
				ON CONFLICT (learner_id, achievement_id) DO NOTHING
			`, learnerID, id)
		}
		if batch.Len() == 0 {
			return nil
		}

		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to save unlocked achievements: %w", err)
		}
		return nil
	})
}

// AllLearners loads every record with four set-based queries.
func (r *LearnerRepository) AllLearners(ctx context.Context) ([]achievement.LearnerRecord, error) {
	ctx, cancel := r.conn.queryContext(ctx)
	defer cancel()

	var out []achievement.LearnerRecord

	err := r.conn.WithTx(ctx, ReadOnlyTxOptions(), func(tx pgx.Tx) error {
		learners, err := loadLearners(ctx, tx, " ORDER BY id")
		if err != nil {
			return err
		}
		out = make([]achievement.LearnerRecord, 0, len(learners.order))
		for _, id := range learners.order {
			out = append(out, learners.byID[id])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Import
// ─────────────────────────────────────────────────────────────────────────────

// Save inserts or replaces a learner and all of its progress.
func (r *LearnerRepository) Save(ctx context.Context, l *achievement.Learner) error {
	if l == nil || l.ID == "" {
		return shared.ErrInvalidLearner
	}
	progress := l.Progress
	if progress == nil {
		progress = achievement.NewProgressSnapshot(0, nil, nil, nil)
	}

	ctx, cancel := r.conn.queryContext(ctx)
	defer cancel()

	return r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO learners (id, role, total_time_ms, updated_at)
			VALUES ($1, $2, $3, NOW())
			ON CONFLICT (id) DO UPDATE SET
				role = EXCLUDED.role,
				total_time_ms = EXCLUDED.total_time_ms,
				updated_at = NOW()
		`, l.ID, string(l.Role), progress.TotalTimeMs)
		if err != nil {
			return fmt.Errorf("failed to upsert learner: %w", err)
		}

		batch := &pgx.Batch{}
		batch.Queue(`DELETE FROM learner_scenarios WHERE learner_id = $1`, l.ID)
		batch.Queue(`DELETE FROM learner_activity WHERE learner_id = $1`, l.ID)
		batch.Queue(`DELETE FROM learner_achievements WHERE learner_id = $1`, l.ID)

		for _, s := range progress.ScenarioList() {
			batch.Queue(`INSERT INTO learner_scenarios (learner_id, scenario_id) VALUES ($1, $2)`, l.ID, s)
		}
		for _, ev := range progress.ActivityHistory {
			occurred := ev.OccurredAt
			if occurred.IsZero() {
				occurred = time.Now().UTC()
			}
			batch.Queue(`
				INSERT INTO learner_activity (learner_id, kind, scenario_id, duration_ms, occurred_at)
				VALUES ($1, $2, NULLIF($3, ''), $4, $5)
			`, l.ID, ev.Kind, ev.ScenarioID, ev.Duration.Milliseconds(), occurred)
		}
		for _, id := range progress.UnlockedList() {
			batch.Queue(`INSERT INTO learner_achievements (learner_id, achievement_id) VALUES ($1, $2)`, l.ID, id)
		}

		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to save learner progress: %w", err)
		}
		return nil
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// Helper functions
// ─────────────────────────────────────────────────────────────────────────────

type learnerSet struct {
	byID  map[string]*achievement.Learner
	order []string
}

// loadLearners runs the learner query with the given suffix, then fills
// progress from the child tables for the learners found.
func loadLearners(ctx context.Context, q Querier, suffix string, args ...any) (*learnerSet, error) {
	set := &learnerSet{byID: make(map[string]*achievement.Learner)}

	rows, err := q.Query(ctx, selectLearnerSQL+suffix, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query learners: %w", err)
	}
	type base struct {
		id, role string
		totalMs  int64
	}
	var bases []base
	for rows.Next() {
		var b base
		if err := rows.Scan(&b.id, &b.role, &b.totalMs); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan learner: %w", err)
		}
		bases = append(bases, b)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate learners: %w", err)
	}
	if len(bases) == 0 {
		return set, nil
	}

	ids := make([]string, 0, len(bases))
	scenarios := make(map[string][]string, len(bases))
	history := make(map[string][]achievement.ActivityEvent, len(bases))
	unlocked := make(map[string][]string, len(bases))
	for _, b := range bases {
		ids = append(ids, b.id)
	}

	filter := " WHERE learner_id = ANY($1)"
	if err := scanPairs(ctx, q, selectScenariosSQL+filter, ids, scenarios); err != nil {
		return nil, err
	}
	if err := scanPairs(ctx, q, selectAchievementsSQL+filter, ids, unlocked); err != nil {
		return nil, err
	}

	actRows, err := q.Query(ctx, selectActivitySQL+filter+" ORDER BY occurred_at, id", ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity: %w", err)
	}
	defer actRows.Close()
	for actRows.Next() {
		var (
			learnerID  string
			ev         achievement.ActivityEvent
			durationMs int64
		)
		if err := actRows.Scan(&learnerID, &ev.Kind, &ev.ScenarioID, &durationMs, &ev.OccurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		ev.Duration = time.Duration(durationMs) * time.Millisecond
		history[learnerID] = append(history[learnerID], ev)
	}
	if err := actRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate activity: %w", err)
	}

	for _, b := range bases {
		set.byID[b.id] = &achievement.Learner{
			ID:       b.id,
			Role:     achievement.Role(b.role),
			Progress: achievement.NewProgressSnapshot(b.totalMs, scenarios[b.id], history[b.id], unlocked[b.id]),
		}
		set.order = append(set.order, b.id)
	}
	return set, nil
}

// scanPairs collects (learner_id, value) rows into dst.
func scanPairs(ctx context.Context, q Querier, sql string, ids []string, dst map[string][]string) error {
	rows, err := q.Query(ctx, sql, ids)
	if err != nil {
		return fmt.Errorf("failed to query %q: %w", sql, err)
	}
	defer rows.Close()

	for rows.Next() {
		var learnerID, value string
		if err := rows.Scan(&learnerID, &value); err != nil {
			return fmt.Errorf("failed to scan row: %w", err)
		}
		dst[learnerID] = append(dst[learnerID], value)
	}
	return rows.Err()
}
