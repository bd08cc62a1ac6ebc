package achievement

// ══════════════════════════════════════════════════════════════════════════════
// CRITERIA EVALUATOR
// ══════════════════════════════════════════════════════════════════════════════

// Signals - множество ID достижений, условие которых вызывающий наблюдал
// напрямую (например, первая активность). Из снимка такие условия не выводятся.
type Signals map[string]struct{}

// NewSignals собирает множество сигналов.
func NewSignals(ids ...string) Signals {
	s := make(Signals, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has проверяет наличие сигнала.
func (s Signals) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Evaluator - чистые функции (определение, снимок) -> выполнено / процент.
// Неактивные определения отсекаются до вызова оценщика.
type Evaluator struct{}

// NewEvaluator создаёт оценщик.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// IsSatisfied проверяет условие без внешних сигналов.
func (e *Evaluator) IsSatisfied(def Definition, p *ProgressSnapshot) bool {
	return e.IsSatisfiedWith(def, p, nil)
}

// IsSatisfiedWith проверяет условие с учётом внешних сигналов.
func (e *Evaluator) IsSatisfiedWith(def Definition, p *ProgressSnapshot, signals Signals) bool {
	if p == nil {
		return false
	}

	switch def.Category {
	case CategoryTime:
		c, ok := def.Criteria.(TimeCriteria)
		if !ok {
			return false
		}
		threshold := c.MinTimeMs()
		if threshold <= 0 {
			return true
		}
		return p.TotalTimeMs >= threshold

	case CategoryCompletion:
		c, ok := def.Criteria.(CompletionCriteria)
		if !ok {
			return false
		}
		return allCompleted(c.Scenarios, p)

	case CategorySequential:
		c, ok := def.Criteria.(SequentialCriteria)
		if !ok {
			return false
		}
		// Только проверка надмножества, порядок не учитывается.
		return allCompleted(c.Sequence, p)

	case CategorySpecial:
		switch def.SpecialRule() {
		case RuleExternal:
			return signals.Has(def.ID)
		case RuleActivityCount:
			c, _ := def.Criteria.(SpecialCriteria)
			return len(p.ActivityHistory) >= c.activityThreshold()
		case RuleTimedCompletion:
			// Выдаётся только через Engine.Grant.
			return false
		default:
			return false
		}

	default:
		return false
	}
}

// PercentComplete возвращает прогресс к достижению в диапазоне [0, 100].
func (e *Evaluator) PercentComplete(def Definition, p *ProgressSnapshot) float64 {
	if p == nil {
		return 0
	}

	switch def.Category {
	case CategoryTime:
		c, ok := def.Criteria.(TimeCriteria)
		if !ok {
			return 0
		}
		threshold := c.MinTimeMs()
		if threshold <= 0 {
			return 100
		}
		return capPercent(float64(p.TotalTimeMs) / float64(threshold) * 100)

	case CategoryCompletion:
		c, ok := def.Criteria.(CompletionCriteria)
		if !ok {
			return 0
		}
		return fractionCompleted(c.Scenarios, p)

	case CategorySequential:
		c, ok := def.Criteria.(SequentialCriteria)
		if !ok {
			return 0
		}
		return fractionCompleted(c.Sequence, p)

	case CategorySpecial:
		if def.SpecialRule() != RuleActivityCount {
			return 0
		}
		c, _ := def.Criteria.(SpecialCriteria)
		return capPercent(float64(len(p.ActivityHistory)) / float64(c.activityThreshold()) * 100)

	default:
		return 0
	}
}

// allCompleted: пустой набор - ошибка конфигурации, условие не выполнено.
func allCompleted(required []string, p *ProgressSnapshot) bool {
	if len(required) == 0 {
		return false
	}
	for _, id := range required {
		if !p.HasCompleted(id) {
			return false
		}
	}
	return true
}

// fractionCompleted: пустой набор даёт 0, а не деление на ноль.
func fractionCompleted(required []string, p *ProgressSnapshot) float64 {
	if len(required) == 0 {
		return 0
	}
	done := 0
	for _, id := range required {
		if p.HasCompleted(id) {
			done++
		}
	}
	return float64(done) / float64(len(required)) * 100
}

func capPercent(v float64) float64 {
	if v > 100 {
		return 100
	}
	if v < 0 {
		return 0
	}
	return v
}
