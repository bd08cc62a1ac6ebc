package achievement

// ══════════════════════════════════════════════════════════════════════════════
// UNLOCK ENGINE
// ══════════════════════════════════════════════════════════════════════════════

// UnlockResult - результат одного прохода оценки.
type UnlockResult struct {
	// Unlocked - новые достижения в порядке каталога.
	Unlocked []Definition

	// IDsToAdd - изменение, которое вызывающий должен сохранить
	// в множестве выданных достижений учащегося.
	IDsToAdd []string
}

// IsEmpty возвращает true, если ничего не разблокировано.
func (r UnlockResult) IsEmpty() bool {
	return len(r.Unlocked) == 0
}

// TotalPoints возвращает сумму очков новых достижений.
func (r UnlockResult) TotalPoints() int {
	total := 0
	for _, d := range r.Unlocked {
		total += d.Points
	}
	return total
}

// Engine сравнивает каталог с уже выданными достижениями учащегося.
// Хранилище не трогает: сохранение - забота вызывающего.
type Engine struct {
	catalog   *Catalog
	evaluator *Evaluator
}

// NewEngine создаёт движок над каталогом.
func NewEngine(catalog *Catalog) *Engine {
	return &Engine{
		catalog:   catalog,
		evaluator: NewEvaluator(),
	}
}

// Catalog возвращает каталог движка.
func (e *Engine) Catalog() *Catalog {
	return e.catalog
}

// Evaluator возвращает оценщик движка.
func (e *Engine) Evaluator() *Evaluator {
	return e.evaluator
}

// Evaluate возвращает активные, ещё не выданные достижения, условие которых
// выполнено. signals - ID достижений, подтверждённых вызывающим напрямую.
//
// Идемпотентно: ID, уже присутствующий в снимке, повторно не выдаётся.
// Отсутствующий снимок даёт пустой результат.
func (e *Engine) Evaluate(p *ProgressSnapshot, signals ...string) UnlockResult {
	var result UnlockResult
	if p == nil || e.catalog == nil {
		return result
	}

	sig := NewSignals(signals...)
	seen := make(map[string]struct{})

	for _, def := range e.catalog.List(true) {
		if p.HasUnlocked(def.ID) {
			continue
		}
		if _, dup := seen[def.ID]; dup {
			continue
		}
		if e.evaluator.IsSatisfiedWith(def, p, sig) {
			seen[def.ID] = struct{}{}
			result.Unlocked = append(result.Unlocked, def)
			result.IDsToAdd = append(result.IDsToAdd, def.ID)
		}
	}

	return result
}

// Apply возвращает копию снимка с добавленными ID из результата.
func (e *Engine) Apply(p *ProgressSnapshot, result UnlockResult) *ProgressSnapshot {
	next := p.Clone()
	if next == nil {
		return nil
	}
	for _, id := range result.IDsToAdd {
		next.AddUnlocked(id)
	}
	return next
}

// Grant - внешний путь выдачи для достижений, условие которых из снимка
// не выводится (speedster, first_step). Возвращает определение и true, только
// если достижение существует, активно и ещё не выдано.
func (e *Engine) Grant(p *ProgressSnapshot, id string) (Definition, bool) {
	if p == nil || e.catalog == nil {
		return Definition{}, false
	}
	def, ok := e.catalog.FindByID(id)
	if !ok || !def.Active || p.HasUnlocked(id) {
		return Definition{}, false
	}
	return def, true
}
