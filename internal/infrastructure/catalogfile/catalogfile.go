// Package catalogfile reads and writes achievement catalogs as YAML.
// The default production catalog is embedded in the binary.
package catalogfile

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/alem-hub/alem-achievements/internal/domain/achievement"
	"github.com/alem-hub/alem-achievements/internal/domain/shared"
)

//go:embed default.yaml
var defaultCatalog []byte

// Document is the on-disk layout of a catalog file.
type Document struct {
	Achievements []Entry `yaml:"achievements"`
}

// Entry is a single achievement as written in YAML.
type Entry struct {
	ID          string         `yaml:"id"`
	Name        string         `yaml:"name"`
	Description string         `yaml:"description,omitempty"`
	Category    string         `yaml:"category"`
	Criteria    *CriteriaEntry `yaml:"criteria,omitempty"`
	Icon        string         `yaml:"icon,omitempty"`
	Points      int            `yaml:"points"`
	Rarity      string         `yaml:"rarity"`

	// Active defaults to true when omitted.
	Active *bool `yaml:"active,omitempty"`
}

// CriteriaEntry holds the union of criteria fields. Only the fields that
// match the entry's category are read.
type CriteriaEntry struct {
	MinTime       string   `yaml:"min_time,omitempty"`
	MinTimeMs     int64    `yaml:"min_time_ms,omitempty"`
	Scenarios     []string `yaml:"scenarios,omitempty"`
	Sequence      []string `yaml:"sequence,omitempty"`
	Rule          string   `yaml:"rule,omitempty"`
	MinActivities int      `yaml:"min_activities,omitempty"`
}

// Default returns the embedded production catalog.
func Default() ([]achievement.Definition, error) {
	return Load(bytes.NewReader(defaultCatalog))
}

// LoadFile reads a catalog from path.
func LoadFile(path string) ([]achievement.Definition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", path, err)
	}
	defer f.Close()

	defs, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return defs, nil
}

// Load decodes and validates a catalog. Duplicate IDs are rejected.
func Load(r io.Reader) ([]achievement.Definition, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, shared.WrapError("catalogfile", "Load", shared.ErrInvalidInput, "decode yaml", err)
	}

	defs := make([]achievement.Definition, 0, len(doc.Achievements))
	seen := make(map[string]struct{}, len(doc.Achievements))
	for i, e := range doc.Achievements {
		def, err := e.toDefinition()
		if err != nil {
			return nil, fmt.Errorf("achievement #%d (%q): %w", i+1, e.ID, err)
		}
		if _, dup := seen[def.ID]; dup {
			return nil, fmt.Errorf("achievement #%d: %w: %s", i+1, shared.ErrAchievementAlreadyExists, def.ID)
		}
		seen[def.ID] = struct{}{}
		defs = append(defs, def)
	}
	return defs, nil
}

// Write encodes definitions in catalog order.
func Write(w io.Writer, defs []achievement.Definition) error {
	doc := Document{Achievements: make([]Entry, 0, len(defs))}
	for _, d := range defs {
		doc.Achievements = append(doc.Achievements, FromDefinition(d))
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	return enc.Close()
}

func (e Entry) toDefinition() (achievement.Definition, error) {
	def := achievement.Definition{
		ID:          e.ID,
		Name:        e.Name,
		Description: e.Description,
		Category:    achievement.Category(e.Category),
		Icon:        e.Icon,
		Points:      e.Points,
		Rarity:      achievement.Rarity(e.Rarity),
		Active:      e.Active == nil || *e.Active,
	}

	criteria, err := e.Criteria.toCriteria(def.Category)
	if err != nil {
		return achievement.Definition{}, err
	}
	def.Criteria = criteria

	if err := def.Validate(); err != nil {
		return achievement.Definition{}, err
	}
	return def, nil
}

func (c *CriteriaEntry) toCriteria(category achievement.Category) (achievement.Criteria, error) {
	if c == nil {
		return nil, nil
	}

	switch category {
	case achievement.CategoryTime:
		if c.MinTime != "" {
			d, err := time.ParseDuration(c.MinTime)
			if err != nil {
				return nil, fmt.Errorf("%w: min_time: %v", shared.ErrIncompleteCriteria, err)
			}
			return achievement.TimeCriteria{MinTime: d}, nil
		}
		return achievement.TimeCriteria{MinTime: time.Duration(c.MinTimeMs) * time.Millisecond}, nil
	case achievement.CategoryCompletion:
		return achievement.CompletionCriteria{Scenarios: c.Scenarios}, nil
	case achievement.CategorySequential:
		return achievement.SequentialCriteria{Sequence: c.Sequence}, nil
	case achievement.CategorySpecial:
		return achievement.SpecialCriteria{
			Rule:          achievement.SpecialRule(c.Rule),
			MinActivities: c.MinActivities,
		}, nil
	}
	// Unknown category is reported by Definition.Validate.
	return nil, nil
}

// FromDefinition converts a definition to its YAML form.
func FromDefinition(d achievement.Definition) Entry {
	e := Entry{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		Category:    string(d.Category),
		Icon:        d.Icon,
		Points:      d.Points,
		Rarity:      string(d.Rarity),
	}
	if !d.Active {
		inactive := false
		e.Active = &inactive
	}

	switch c := d.Criteria.(type) {
	case achievement.TimeCriteria:
		e.Criteria = &CriteriaEntry{MinTime: c.MinTime.String()}
	case achievement.CompletionCriteria:
		e.Criteria = &CriteriaEntry{Scenarios: c.Scenarios}
	case achievement.SequentialCriteria:
		e.Criteria = &CriteriaEntry{Sequence: c.Sequence}
	case achievement.SpecialCriteria:
		e.Criteria = &CriteriaEntry{Rule: string(c.Rule), MinActivities: c.MinActivities}
	}
	return e
}
