// Package achievement содержит доменную модель системы достижений.
//
// Это ядро бизнес-логики - здесь нет внешних зависимостей. Пакет определяет:
//
//   - Catalog: упорядоченный каталог определений (Definition)
//   - Evaluator: чистые функции проверки условий и процента прогресса
//   - Engine: поиск новых достижений для одного учащегося
//   - Aggregator: отчёт по учащемуся и статистика по всем учащимся
//   - Интерфейсы хранилищ: LearnerStore, CatalogStore
//
// # Условия
//
// Условие достижения - закрытое объединение вариантов по категории:
//
//	TimeCriteria{MinTime: time.Hour}
//	CompletionCriteria{Scenarios: []string{"jardinRiemann"}}
//	SequentialCriteria{Sequence: []string{"a", "b"}}
//	SpecialCriteria{Rule: RuleActivityCount, MinActivities: 10}
//
// Неизвестная категория или несовпадение варианта с категорией дают
// "не выполнено" и 0%, без паники.
//
// # Пример использования
//
//	catalog := NewCatalog(defs...)
//	engine := NewEngine(catalog)
//
//	result := engine.Evaluate(learner.ProgressSnapshot())
//	for _, id := range result.IDsToAdd {
//	    learner.AddUnlockedAchievement(id)
//	}
//	if !result.IsEmpty() {
//	    err = store.Persist(ctx, learner.ID, learner)
//	}
//
//	report := NewAggregator(catalog).ProgressReport(learner.ProgressSnapshot())
package achievement
