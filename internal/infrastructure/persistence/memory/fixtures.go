package memory

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/alem-hub/alem-achievements/internal/domain/achievement"
	"github.com/alem-hub/alem-achievements/internal/domain/shared"
)

// fixtureFile is the YAML layout of a learner fixture file:
//
//	learners:
//	  - id: ana
//	    role: learner
//	    total_time: 90m
//	    completed_scenarios: [jardinRiemann]
//	    activities:
//	      - {kind: scenario_completed, scenario: jardinRiemann, duration: 8m}
//	    unlocked: [first_step]
type fixtureFile struct {
	Learners []fixtureLearner `yaml:"learners"`
}

type fixtureLearner struct {
	ID                 string            `yaml:"id"`
	Role               string            `yaml:"role"`
	TotalTime          string            `yaml:"total_time"`
	TotalTimeMs        int64             `yaml:"total_time_ms"`
	CompletedScenarios []string          `yaml:"completed_scenarios"`
	Activities         []fixtureActivity `yaml:"activities"`
	Unlocked           []string          `yaml:"unlocked"`
}

type fixtureActivity struct {
	Kind       string    `yaml:"kind"`
	Scenario   string    `yaml:"scenario"`
	Duration   string    `yaml:"duration"`
	OccurredAt time.Time `yaml:"occurred_at"`
}

// LoadLearnersFile reads learner fixtures from path.
func LoadLearnersFile(path string) ([]*achievement.Learner, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fixtures %s: %w", path, err)
	}
	defer f.Close()
	return LoadLearners(f)
}

// LoadLearners decodes learner fixtures. Role defaults to learner.
func LoadLearners(r io.Reader) ([]*achievement.Learner, error) {
	var doc fixtureFile
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, shared.WrapError("memory", "LoadLearners", shared.ErrInvalidInput, "decode yaml", err)
	}

	out := make([]*achievement.Learner, 0, len(doc.Learners))
	for i, fl := range doc.Learners {
		l, err := fl.toLearner()
		if err != nil {
			return nil, fmt.Errorf("learner #%d (%q): %w", i+1, fl.ID, err)
		}
		out = append(out, l)
	}
	return out, nil
}

func (fl fixtureLearner) toLearner() (*achievement.Learner, error) {
	if fl.ID == "" {
		return nil, shared.ErrInvalidLearner
	}

	role := achievement.RoleLearner
	if fl.Role != "" {
		role = achievement.Role(fl.Role)
	}

	totalMs := fl.TotalTimeMs
	if fl.TotalTime != "" {
		d, err := time.ParseDuration(fl.TotalTime)
		if err != nil {
			return nil, shared.WrapError("memory", "LoadLearners", shared.ErrInvalidInput, "total_time", err)
		}
		totalMs = d.Milliseconds()
	}
	if totalMs < 0 {
		return nil, shared.ErrNegativeValue
	}

	history := make([]achievement.ActivityEvent, 0, len(fl.Activities))
	for _, a := range fl.Activities {
		ev := achievement.ActivityEvent{Kind: a.Kind, ScenarioID: a.Scenario, OccurredAt: a.OccurredAt}
		if a.Duration != "" {
			d, err := time.ParseDuration(a.Duration)
			if err != nil {
				return nil, shared.WrapError("memory", "LoadLearners", shared.ErrInvalidInput, "activity duration", err)
			}
			ev.Duration = d
		}
		history = append(history, ev)
	}

	return &achievement.Learner{
		ID:       fl.ID,
		Role:     role,
		Progress: achievement.NewProgressSnapshot(totalMs, fl.CompletedScenarios, history, fl.Unlocked),
	}, nil
}
