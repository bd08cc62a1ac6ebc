package achievement

import "sort"

// ══════════════════════════════════════════════════════════════════════════════
// AGGREGATOR
// Производные представления пересчитываются при каждом вызове и не кешируются.
// ══════════════════════════════════════════════════════════════════════════════

// NearestLimit - сколько достижений попадает в NearestToCompletion.
const NearestLimit = 5

// PopularLimit - сколько достижений попадает в MostPopular.
const PopularLimit = 5

// AchievementProgress - прогресс учащегося к одному достижению.
type AchievementProgress struct {
	Definition Definition
	Percent    float64
}

// ProgressReport - сводка по одному учащемуся.
type ProgressReport struct {
	// TotalActive - число активных достижений каталога.
	TotalActive int

	// Obtained - сколько из активных достижений выдано.
	Obtained int

	// PercentageComplete - Obtained / TotalActive * 100, 0 при пустом каталоге.
	PercentageComplete float64

	// TotalPoints - сумма очков выданных активных достижений.
	TotalPoints int

	// NearestToCompletion - до пяти невыданных достижений по возрастанию процента.
	NearestToCompletion []AchievementProgress

	// ByRarity - выданные активные достижения по редкости.
	ByRarity RarityCounts
}

// Popularity - сколько учащихся получили достижение.
type Popularity struct {
	ID string

	// Definition - nil, если ID отсутствует в каталоге.
	Definition *Definition

	Count      int
	Percentage float64
}

// PopulationStatistics - статистика по всем учащимся.
type PopulationStatistics struct {
	TotalAchievements             int
	ActiveAchievements            int
	RarityDistribution            RarityCounts
	MostPopular                   []Popularity
	AverageAchievementsPerLearner float64
	LearnerCount                  int
}

// Aggregator строит отчёты поверх каталога и оценщика.
type Aggregator struct {
	catalog   *Catalog
	evaluator *Evaluator
}

// NewAggregator создаёт агрегатор.
func NewAggregator(catalog *Catalog) *Aggregator {
	return &Aggregator{
		catalog:   catalog,
		evaluator: NewEvaluator(),
	}
}

// ProgressReport строит отчёт для одного учащегося. nil при отсутствии снимка.
func (a *Aggregator) ProgressReport(p *ProgressSnapshot) *ProgressReport {
	if p == nil {
		return nil
	}

	active := a.catalog.List(true)
	report := &ProgressReport{
		TotalActive: len(active),
		ByRarity:    newRarityCounts(),
	}

	var pending []AchievementProgress
	for _, def := range active {
		if p.HasUnlocked(def.ID) {
			report.Obtained++
			report.TotalPoints += def.Points
			report.ByRarity[def.Rarity]++
			continue
		}
		pending = append(pending, AchievementProgress{
			Definition: def,
			Percent:    a.evaluator.PercentComplete(def, p),
		})
	}

	if report.TotalActive > 0 {
		report.PercentageComplete = float64(report.Obtained) / float64(report.TotalActive) * 100
	}

	// По возрастанию: сначала наименее продвинутые. При равенстве - порядок каталога.
	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].Percent < pending[j].Percent
	})
	if len(pending) > NearestLimit {
		pending = pending[:NearestLimit]
	}
	report.NearestToCompletion = pending

	return report
}

// PopulationStatistics строит статистику по совокупности снимков.
// nil-снимки считаются учащимися без достижений.
func (a *Aggregator) PopulationStatistics(learners []*ProgressSnapshot) PopulationStatistics {
	all := a.catalog.List(false)
	stats := PopulationStatistics{
		TotalAchievements:  len(all),
		RarityDistribution: newRarityCounts(),
		LearnerCount:       len(learners),
	}
	for _, def := range all {
		if !def.Active {
			continue
		}
		stats.ActiveAchievements++
		stats.RarityDistribution[def.Rarity]++
	}

	counts := make(map[string]int)
	var order []string
	total := 0
	for _, p := range learners {
		if p == nil {
			continue
		}
		// Порядок первого появления: учащиеся по порядку, ID внутри учащегося по алфавиту.
		for _, id := range p.UnlockedList() {
			if _, ok := counts[id]; !ok {
				order = append(order, id)
			}
			counts[id]++
			total++
		}
	}

	if stats.LearnerCount > 0 {
		stats.AverageAchievementsPerLearner = float64(total) / float64(stats.LearnerCount)
	}

	popular := make([]Popularity, 0, len(order))
	for _, id := range order {
		entry := Popularity{
			ID:         id,
			Count:      counts[id],
			Percentage: float64(counts[id]) / float64(stats.LearnerCount) * 100,
		}
		if def, ok := a.catalog.FindByID(id); ok {
			d := def
			entry.Definition = &d
		}
		popular = append(popular, entry)
	}
	sort.SliceStable(popular, func(i, j int) bool {
		return popular[i].Count > popular[j].Count
	})
	if len(popular) > PopularLimit {
		popular = popular[:PopularLimit]
	}
	stats.MostPopular = popular

	return stats
}
