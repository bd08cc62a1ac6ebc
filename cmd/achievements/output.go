package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/alem-hub/alem-achievements/internal/application/command"
	"github.com/alem-hub/alem-achievements/internal/domain/achievement"
)

const (
	outputText = "text"
	outputYAML = "yaml"
)

// view is a printable command result.
type view interface {
	writeText(w io.Writer)
}

func (a *app) print(w io.Writer, v view) error {
	if a.flags.output == outputYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode output: %w", err)
		}
		return enc.Close()
	}
	v.writeText(w)
	return nil
}

var rarityOrder = []achievement.Rarity{
	achievement.RarityCommon,
	achievement.RarityRare,
	achievement.RarityEpic,
	achievement.RarityLegendary,
}

func rarityMap(counts achievement.RarityCounts) map[string]int {
	out := make(map[string]int, len(rarityOrder))
	for _, r := range rarityOrder {
		out[string(r)] = counts[r]
	}
	return out
}

func rarityLine(counts achievement.RarityCounts) string {
	parts := make([]string, 0, len(rarityOrder))
	for _, r := range rarityOrder {
		parts = append(parts, fmt.Sprintf("%s=%d", r, counts[r]))
	}
	return strings.Join(parts, " ")
}

// ─────────────────────────────────────────────────────────────────────────────
// Definitions
// ─────────────────────────────────────────────────────────────────────────────

type definitionView struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Icon     string `yaml:"icon,omitempty"`
	Category string `yaml:"category"`
	Rarity   string `yaml:"rarity"`
	Points   int    `yaml:"points"`
	Active   bool   `yaml:"active"`
}

func newDefinitionView(d achievement.Definition) definitionView {
	return definitionView{
		ID:       d.ID,
		Name:     d.Name,
		Icon:     d.Icon,
		Category: string(d.Category),
		Rarity:   string(d.Rarity),
		Points:   d.Points,
		Active:   d.Active,
	}
}

func (v definitionView) line() string {
	state := ""
	if !v.Active {
		state = " (inactive)"
	}
	return fmt.Sprintf("%-20s %-10s %-10s %3d pts  %s%s", v.ID, v.Category, v.Rarity, v.Points, v.Name, state)
}

type definitionList struct {
	Achievements []definitionView `yaml:"achievements"`
}

func newDefinitionList(defs []achievement.Definition) definitionList {
	out := definitionList{Achievements: make([]definitionView, 0, len(defs))}
	for _, d := range defs {
		out.Achievements = append(out.Achievements, newDefinitionView(d))
	}
	return out
}

func (v definitionList) writeText(w io.Writer) {
	if len(v.Achievements) == 0 {
		fmt.Fprintln(w, "no achievements")
		return
	}
	for _, d := range v.Achievements {
		fmt.Fprintln(w, d.line())
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Check / grant
// ─────────────────────────────────────────────────────────────────────────────

type checkView struct {
	RunID        string           `yaml:"run_id"`
	LearnerID    string           `yaml:"learner_id"`
	Skipped      bool             `yaml:"skipped,omitempty"`
	Unlocked     []definitionView `yaml:"unlocked"`
	PointsEarned int              `yaml:"points_earned"`
	Persisted    bool             `yaml:"persisted"`
	EvaluatedAt  time.Time        `yaml:"evaluated_at"`
}

func newCheckView(r *command.CheckAchievementsResult) checkView {
	v := checkView{
		RunID:        r.RunID,
		LearnerID:    r.LearnerID,
		Skipped:      r.Skipped,
		Unlocked:     make([]definitionView, 0, len(r.Unlocked)),
		PointsEarned: r.PointsEarned,
		Persisted:    r.Persisted,
		EvaluatedAt:  r.EvaluatedAt,
	}
	for _, d := range r.Unlocked {
		v.Unlocked = append(v.Unlocked, newDefinitionView(d))
	}
	return v
}

func (v checkView) writeText(w io.Writer) {
	switch {
	case v.Skipped:
		fmt.Fprintf(w, "%s: skipped (missing or not a learner)\n", v.LearnerID)
	case len(v.Unlocked) == 0:
		fmt.Fprintf(w, "%s: nothing new unlocked\n", v.LearnerID)
	default:
		fmt.Fprintf(w, "%s: unlocked %d achievement(s), +%d pts\n", v.LearnerID, len(v.Unlocked), v.PointsEarned)
		for _, d := range v.Unlocked {
			fmt.Fprintf(w, "  %s\n", d.line())
		}
	}
}

type grantView struct {
	LearnerID   string         `yaml:"learner_id"`
	Achievement definitionView `yaml:"achievement"`
	Granted     bool           `yaml:"granted"`
}

func (v grantView) writeText(w io.Writer) {
	if !v.Granted {
		fmt.Fprintf(w, "%s already has %s\n", v.LearnerID, v.Achievement.ID)
		return
	}
	fmt.Fprintf(w, "granted %s to %s (+%d pts)\n", v.Achievement.ID, v.LearnerID, v.Achievement.Points)
}

// ─────────────────────────────────────────────────────────────────────────────
// Reports
// ─────────────────────────────────────────────────────────────────────────────

type nearestView struct {
	ID      string  `yaml:"id"`
	Name    string  `yaml:"name"`
	Percent float64 `yaml:"percent"`
}

type reportView struct {
	LearnerID          string         `yaml:"learner_id"`
	TotalActive        int            `yaml:"total_active"`
	Obtained           int            `yaml:"obtained"`
	PercentageComplete float64        `yaml:"percentage_complete"`
	TotalPoints        int            `yaml:"total_points"`
	ByRarity           map[string]int `yaml:"by_rarity"`
	Nearest            []nearestView  `yaml:"nearest_to_completion"`
	rarity             achievement.RarityCounts
}

func newReportView(learnerID string, r *achievement.ProgressReport) reportView {
	v := reportView{
		LearnerID:          learnerID,
		TotalActive:        r.TotalActive,
		Obtained:           r.Obtained,
		PercentageComplete: r.PercentageComplete,
		TotalPoints:        r.TotalPoints,
		ByRarity:           rarityMap(r.ByRarity),
		Nearest:            make([]nearestView, 0, len(r.NearestToCompletion)),
		rarity:             r.ByRarity,
	}
	for _, np := range r.NearestToCompletion {
		v.Nearest = append(v.Nearest, nearestView{ID: np.Definition.ID, Name: np.Definition.Name, Percent: np.Percent})
	}
	return v
}

func (v reportView) writeText(w io.Writer) {
	fmt.Fprintf(w, "learner:   %s\n", v.LearnerID)
	fmt.Fprintf(w, "obtained:  %d/%d (%.1f%%)\n", v.Obtained, v.TotalActive, v.PercentageComplete)
	fmt.Fprintf(w, "points:    %d\n", v.TotalPoints)
	fmt.Fprintf(w, "by rarity: %s\n", rarityLine(v.rarity))
	if len(v.Nearest) == 0 {
		return
	}
	fmt.Fprintln(w, "nearest to completion:")
	for _, n := range v.Nearest {
		fmt.Fprintf(w, "  %-20s %5.1f%%\n", n.ID, n.Percent)
	}
}

type popularView struct {
	ID         string  `yaml:"id"`
	Name       string  `yaml:"name,omitempty"`
	Count      int     `yaml:"count"`
	Percentage float64 `yaml:"percentage"`
}

type statsView struct {
	TotalAchievements  int            `yaml:"total_achievements"`
	ActiveAchievements int            `yaml:"active_achievements"`
	LearnerCount       int            `yaml:"learner_count"`
	AveragePerLearner  float64        `yaml:"average_per_learner"`
	RarityDistribution map[string]int `yaml:"rarity_distribution"`
	MostPopular        []popularView  `yaml:"most_popular"`
	rarity             achievement.RarityCounts
}

func newStatsView(s achievement.PopulationStatistics) statsView {
	v := statsView{
		TotalAchievements:  s.TotalAchievements,
		ActiveAchievements: s.ActiveAchievements,
		LearnerCount:       s.LearnerCount,
		AveragePerLearner:  s.AverageAchievementsPerLearner,
		RarityDistribution: rarityMap(s.RarityDistribution),
		MostPopular:        make([]popularView, 0, len(s.MostPopular)),
		rarity:             s.RarityDistribution,
	}
	for _, p := range s.MostPopular {
		pv := popularView{ID: p.ID, Count: p.Count, Percentage: p.Percentage}
		if p.Definition != nil {
			pv.Name = p.Definition.Name
		}
		v.MostPopular = append(v.MostPopular, pv)
	}
	return v
}

func (v statsView) writeText(w io.Writer) {
	fmt.Fprintf(w, "achievements: %d (%d active)\n", v.TotalAchievements, v.ActiveAchievements)
	fmt.Fprintf(w, "learners:     %d\n", v.LearnerCount)
	fmt.Fprintf(w, "average:      %.2f per learner\n", v.AveragePerLearner)
	fmt.Fprintf(w, "rarity:       %s\n", rarityLine(v.rarity))
	if len(v.MostPopular) == 0 {
		return
	}
	fmt.Fprintln(w, "most popular:")
	for _, p := range v.MostPopular {
		fmt.Fprintf(w, "  %-20s %3d learner(s) %5.1f%%\n", p.ID, p.Count, p.Percentage)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Health
// ─────────────────────────────────────────────────────────────────────────────

type healthView struct {
	Database        string        `yaml:"database"`
	DatabaseLatency time.Duration `yaml:"database_latency,omitempty"`
	Connections     string        `yaml:"connections,omitempty"`
	Redis           string        `yaml:"redis"`
	RedisLatency    time.Duration `yaml:"redis_latency,omitempty"`
	Unhealthy       bool          `yaml:"-"`
}

func (v healthView) writeText(w io.Writer) {
	db := v.Database
	if v.DatabaseLatency > 0 {
		db = fmt.Sprintf("%s (%s, %s conns)", db, v.DatabaseLatency.Round(time.Microsecond), v.Connections)
	}
	cache := v.Redis
	if v.RedisLatency > 0 {
		cache = fmt.Sprintf("%s (%s)", cache, v.RedisLatency.Round(time.Microsecond))
	}
	fmt.Fprintf(w, "database: %s\n", db)
	fmt.Fprintf(w, "redis:    %s\n", cache)
}
