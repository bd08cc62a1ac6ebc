package achievement

import (
	"sort"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS SNAPSHOT
// ══════════════════════════════════════════════════════════════════════════════

// ActivityEvent - одна запись истории активности учащегося.
type ActivityEvent struct {
	// Kind - тип активности (scenario_started, scenario_completed, ...).
	Kind string

	// ScenarioID - сценарий, к которому относится активность (может быть пустым).
	ScenarioID string

	// Duration - длительность активности.
	Duration time.Duration

	// OccurredAt - когда произошло.
	OccurredAt time.Time
}

// ProgressSnapshot - снимок прогресса учащегося, прочитанный из внешнего
// хранилища. Движок им не владеет: Evaluate его не изменяет.
type ProgressSnapshot struct {
	// TotalTimeMs - суммарное активное время в миллисекундах.
	TotalTimeMs int64

	// CompletedScenarios - множество пройденных сценариев.
	CompletedScenarios map[string]struct{}

	// ActivityHistory - история активности; длина используется
	// как число различных активностей.
	ActivityHistory []ActivityEvent

	// UnlockedIDs - уже выданные достижения.
	UnlockedIDs map[string]struct{}
}

// NewProgressSnapshot собирает снимок из срезов.
// Повторы в scenarios и unlocked схлопываются.
func NewProgressSnapshot(totalTimeMs int64, scenarios []string, history []ActivityEvent, unlocked []string) *ProgressSnapshot {
	p := &ProgressSnapshot{
		TotalTimeMs:        totalTimeMs,
		CompletedScenarios: make(map[string]struct{}, len(scenarios)),
		ActivityHistory:    append([]ActivityEvent(nil), history...),
		UnlockedIDs:        make(map[string]struct{}, len(unlocked)),
	}
	for _, s := range scenarios {
		p.CompletedScenarios[s] = struct{}{}
	}
	for _, id := range unlocked {
		p.UnlockedIDs[id] = struct{}{}
	}
	return p
}

// HasCompleted проверяет, пройден ли сценарий.
func (p *ProgressSnapshot) HasCompleted(scenarioID string) bool {
	_, ok := p.CompletedScenarios[scenarioID]
	return ok
}

// HasUnlocked проверяет, выдано ли достижение.
func (p *ProgressSnapshot) HasUnlocked(id string) bool {
	_, ok := p.UnlockedIDs[id]
	return ok
}

// AddUnlocked добавляет ID в множество выданных.
// Возвращает false, если ID уже был там.
func (p *ProgressSnapshot) AddUnlocked(id string) bool {
	if p.UnlockedIDs == nil {
		p.UnlockedIDs = make(map[string]struct{})
	}
	if _, ok := p.UnlockedIDs[id]; ok {
		return false
	}
	p.UnlockedIDs[id] = struct{}{}
	return true
}

// UnlockedCount возвращает число выданных достижений.
func (p *ProgressSnapshot) UnlockedCount() int {
	if p == nil {
		return 0
	}
	return len(p.UnlockedIDs)
}

// UnlockedList возвращает выданные ID в отсортированном порядке.
func (p *ProgressSnapshot) UnlockedList() []string {
	return sortedKeys(p.UnlockedIDs)
}

// ScenarioList возвращает пройденные сценарии в отсортированном порядке.
func (p *ProgressSnapshot) ScenarioList() []string {
	return sortedKeys(p.CompletedScenarios)
}

// Clone возвращает глубокую копию снимка.
func (p *ProgressSnapshot) Clone() *ProgressSnapshot {
	if p == nil {
		return nil
	}
	return NewProgressSnapshot(p.TotalTimeMs, p.ScenarioList(), p.ActivityHistory, p.UnlockedList())
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
