package achievement

import (
	"strings"
	"time"

	"github.com/alem-hub/alem-achievements/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// Category определяет стратегию оценки достижения.
type Category string

const (
	// CategoryTime - накопленное время на платформе.
	CategoryTime Category = "time"
	// CategoryCompletion - набор пройденных сценариев.
	CategoryCompletion Category = "completion"
	// CategorySequential - цепочка сценариев.
	CategorySequential Category = "sequential"
	// CategorySpecial - индивидуальная логика по ID.
	CategorySpecial Category = "special"
)

// IsValid проверяет, что категория известна.
func (c Category) IsValid() bool {
	switch c {
	case CategoryTime, CategoryCompletion, CategorySequential, CategorySpecial:
		return true
	default:
		return false
	}
}

// Categories возвращает все категории в порядке отображения.
func Categories() []Category {
	return []Category{CategoryTime, CategoryCompletion, CategorySequential, CategorySpecial}
}

// Rarity - информационная метка редкости, не выводится из очков.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// IsValid проверяет, что редкость известна.
func (r Rarity) IsValid() bool {
	switch r {
	case RarityCommon, RarityRare, RarityEpic, RarityLegendary:
		return true
	default:
		return false
	}
}

// Rarities возвращает все уровни редкости от частого к редкому.
func Rarities() []Rarity {
	return []Rarity{RarityCommon, RarityRare, RarityEpic, RarityLegendary}
}

// RarityCounts - количество достижений по каждому уровню редкости.
// Всегда содержит все четыре ключа.
type RarityCounts map[Rarity]int

func newRarityCounts() RarityCounts {
	counts := make(RarityCounts, 4)
	for _, r := range Rarities() {
		counts[r] = 0
	}
	return counts
}

// ══════════════════════════════════════════════════════════════════════════════
// CRITERIA (tagged union)
// ══════════════════════════════════════════════════════════════════════════════

// Criteria - условие получения достижения. Набор вариантов закрыт:
// реализовать интерфейс можно только внутри пакета.
type Criteria interface {
	// Category возвращает категорию, которой соответствует вариант.
	Category() Category

	criteria()
}

// TimeCriteria - минимальное суммарное время активности.
type TimeCriteria struct {
	MinTime time.Duration
}

func (TimeCriteria) Category() Category { return CategoryTime }
func (TimeCriteria) criteria()          {}

// MinTimeMs возвращает порог в миллисекундах.
func (c TimeCriteria) MinTimeMs() int64 {
	return c.MinTime.Milliseconds()
}

// CompletionCriteria - все перечисленные сценарии должны быть пройдены.
type CompletionCriteria struct {
	Scenarios []string
}

func (CompletionCriteria) Category() Category { return CategoryCompletion }
func (CompletionCriteria) criteria()          {}

// SequentialCriteria - упорядоченная цепочка сценариев.
// Порядок прохождения учащимся не проверяется, только наличие.
type SequentialCriteria struct {
	Sequence []string
}

func (SequentialCriteria) Category() Category { return CategorySequential }
func (SequentialCriteria) criteria()          {}

// SpecialRule выбирает индивидуальную логику особого достижения.
type SpecialRule string

const (
	// RuleExternal - выдаётся только по внешнему сигналу (first_step).
	RuleExternal SpecialRule = "external"
	// RuleActivityCount - количество записей в истории активности (explorer).
	RuleActivityCount SpecialRule = "activity_count"
	// RuleTimedCompletion - требует события с длительностью прохождения
	// сценария (speedster); из снимка прогресса не выводится.
	RuleTimedCompletion SpecialRule = "timed_completion"
)

// DefaultMinActivities - порог для RuleActivityCount, если он не задан.
const DefaultMinActivities = 10

// SpecialCriteria - особое достижение.
type SpecialCriteria struct {
	Rule SpecialRule

	// MinActivities используется только RuleActivityCount.
	MinActivities int
}

func (SpecialCriteria) Category() Category { return CategorySpecial }
func (SpecialCriteria) criteria()          {}

func (c SpecialCriteria) activityThreshold() int {
	if c.MinActivities <= 0 {
		return DefaultMinActivities
	}
	return c.MinActivities
}

// ══════════════════════════════════════════════════════════════════════════════
// DEFINITION
// ══════════════════════════════════════════════════════════════════════════════

// Definition описывает достижение каталога.
// После создания неизменяемо, кроме флага Active.
type Definition struct {
	ID          string
	Name        string
	Description string
	Category    Category
	Criteria    Criteria
	Icon        string
	Points      int
	Rarity      Rarity

	// Active = false означает мягкое удаление: достижение не участвует
	// в оценке, прогрессе и статистике, но доступно по ID.
	Active bool
}

// Validate проверяет структурную полноту определения.
// Дубликаты ID здесь не проверяются - это ответственность вызывающего.
func (d Definition) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return shared.ErrInvalidAchievementID
	}
	if !d.Category.IsValid() {
		return shared.ErrInvalidCategory
	}
	if !d.Rarity.IsValid() {
		return shared.ErrInvalidRarity
	}
	if d.Points < 0 {
		return shared.ErrNegativePoints
	}

	switch c := d.Criteria.(type) {
	case nil:
		// Особые достижения без критериев допустимы (first_step).
		if d.Category != CategorySpecial {
			return shared.ErrIncompleteCriteria
		}
	case TimeCriteria:
		if d.Category != CategoryTime || c.MinTime < 0 {
			return shared.ErrIncompleteCriteria
		}
	case CompletionCriteria:
		if d.Category != CategoryCompletion || len(c.Scenarios) == 0 {
			return shared.ErrIncompleteCriteria
		}
	case SequentialCriteria:
		if d.Category != CategorySequential || len(c.Sequence) == 0 {
			return shared.ErrIncompleteCriteria
		}
	case SpecialCriteria:
		if d.Category != CategorySpecial {
			return shared.ErrIncompleteCriteria
		}
	}
	return nil
}

// SpecialRule возвращает правило особого достижения.
// Особое достижение без критериев считается внешним (RuleExternal).
func (d Definition) SpecialRule() SpecialRule {
	if c, ok := d.Criteria.(SpecialCriteria); ok {
		return c.Rule
	}
	return RuleExternal
}
