package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alem-hub/alem-achievements/internal/domain/achievement"
	"github.com/alem-hub/alem-achievements/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CATALOG REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// CatalogRepository implements achievement.CatalogStore for PostgreSQL.
type CatalogRepository struct {
	conn *Connection
}

// NewCatalogRepository creates a new CatalogRepository.
func NewCatalogRepository(conn *Connection) *CatalogRepository {
	return &CatalogRepository{conn: conn}
}

// criteriaJSON is the JSONB layout of the criteria column.
type criteriaJSON struct {
	MinTimeMs     int64    `json:"min_time_ms,omitempty"`
	Scenarios     []string `json:"scenarios,omitempty"`
	Sequence      []string `json:"sequence,omitempty"`
	Rule          string   `json:"rule,omitempty"`
	MinActivities int      `json:"min_activities,omitempty"`
}

// SaveDefinition upserts a definition. The creation sequence of an
// existing row is kept.
func (r *CatalogRepository) SaveDefinition(ctx context.Context, def achievement.Definition) error {
	criteria, err := encodeCriteria(def.Criteria)
	if err != nil {
		return err
	}

	ctx, cancel := r.conn.queryContext(ctx)
	defer cancel()

	_, err = r.conn.Exec(ctx, `
		INSERT INTO achievement_definitions (
			id, name, description, category, criteria, icon, points, rarity, active, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			category = EXCLUDED.category,
			criteria = EXCLUDED.criteria,
			icon = EXCLUDED.icon,
			points = EXCLUDED.points,
			rarity = EXCLUDED.rarity,
			active = EXCLUDED.active,
			updated_at = EXCLUDED.updated_at
	`,
		def.ID,
		def.Name,
		def.Description,
		string(def.Category),
		criteria,
		def.Icon,
		def.Points,
		string(def.Rarity),
		def.Active,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save achievement definition: %w", err)
	}
	return nil
}

// SetActive updates the active flag.
func (r *CatalogRepository) SetActive(ctx context.Context, id string, active bool) error {
	ctx, cancel := r.conn.queryContext(ctx)
	defer cancel()

	tag, err := r.conn.Exec(ctx, `
		UPDATE achievement_definitions SET active = $1, updated_at = $2 WHERE id = $3
	`, active, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update achievement definition: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrAchievementNotFound
	}
	return nil
}

// LoadDefinitions returns saved definitions in creation order.
func (r *CatalogRepository) LoadDefinitions(ctx context.Context) ([]achievement.Definition, error) {
	ctx, cancel := r.conn.queryContext(ctx)
	defer cancel()

	rows, err := r.conn.Query(ctx, `
		SELECT id, name, description, category, criteria, icon, points, rarity, active
		FROM achievement_definitions
		ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query achievement definitions: %w", err)
	}
	defer rows.Close()

	var defs []achievement.Definition
	for rows.Next() {
		var (
			def              achievement.Definition
			category, rarity string
			criteria         []byte
		)
		if err := rows.Scan(
			&def.ID, &def.Name, &def.Description, &category, &criteria,
			&def.Icon, &def.Points, &rarity, &def.Active,
		); err != nil {
			return nil, fmt.Errorf("failed to scan achievement definition: %w", err)
		}
		def.Category = achievement.Category(category)
		def.Rarity = achievement.Rarity(rarity)

		def.Criteria, err = decodeCriteria(def.Category, criteria)
		if err != nil {
			return nil, fmt.Errorf("achievement %s: %w", def.ID, err)
		}
		defs = append(defs, def)
	}

	return defs, rows.Err()
}

// ─────────────────────────────────────────────────────────────────────────────
// Helper functions
// ─────────────────────────────────────────────────────────────────────────────

func encodeCriteria(c achievement.Criteria) ([]byte, error) {
	var j criteriaJSON
	switch v := c.(type) {
	case nil:
		return nil, nil
	case achievement.TimeCriteria:
		j.MinTimeMs = v.MinTimeMs()
	case achievement.CompletionCriteria:
		j.Scenarios = v.Scenarios
	case achievement.SequentialCriteria:
		j.Sequence = v.Sequence
	case achievement.SpecialCriteria:
		j.Rule = string(v.Rule)
		j.MinActivities = v.MinActivities
	}

	data, err := json.Marshal(j)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal criteria: %w", err)
	}
	return data, nil
}

func decodeCriteria(category achievement.Category, data []byte) (achievement.Criteria, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var j criteriaJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("failed to unmarshal criteria: %w", err)
	}

	switch category {
	case achievement.CategoryTime:
		return achievement.TimeCriteria{MinTime: time.Duration(j.MinTimeMs) * time.Millisecond}, nil
	case achievement.CategoryCompletion:
		return achievement.CompletionCriteria{Scenarios: j.Scenarios}, nil
	case achievement.CategorySequential:
		return achievement.SequentialCriteria{Sequence: j.Sequence}, nil
	case achievement.CategorySpecial:
		return achievement.SpecialCriteria{Rule: achievement.SpecialRule(j.Rule), MinActivities: j.MinActivities}, nil
	}
	return nil, nil
}
