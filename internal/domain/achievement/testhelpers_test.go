package achievement

import "time"

func persistentDef() Definition {
	return Definition{
		ID:       "persistent",
		Name:     "Persistent",
		Category: CategoryTime,
		Criteria: TimeCriteria{MinTime: time.Hour},
		Points:   25,
		Rarity:   RarityRare,
		Active:   true,
	}
}

func jardinDef() Definition {
	return Definition{
		ID:       "jardin_master",
		Name:     "Garden Master",
		Category: CategoryCompletion,
		Criteria: CompletionCriteria{Scenarios: []string{"jardinRiemann"}},
		Points:   20,
		Rarity:   RarityRare,
		Active:   true,
	}
}

func explorerDef() Definition {
	return Definition{
		ID:       "explorer",
		Category: CategorySpecial,
		Criteria: SpecialCriteria{Rule: RuleActivityCount, MinActivities: 10},
		Points:   15,
		Rarity:   RarityRare,
		Active:   true,
	}
}

func firstStepDef() Definition {
	return Definition{
		ID:       "first_step",
		Category: CategorySpecial,
		Points:   5,
		Rarity:   RarityCommon,
		Active:   true,
	}
}

func speedsterDef() Definition {
	return Definition{
		ID:       "speedster",
		Category: CategorySpecial,
		Criteria: SpecialCriteria{Rule: RuleTimedCompletion},
		Points:   30,
		Rarity:   RarityEpic,
		Active:   true,
	}
}

func pathDef() Definition {
	return Definition{
		ID:       "full_path",
		Category: CategorySequential,
		Criteria: SequentialCriteria{Sequence: []string{"a", "b", "c", "d"}},
		Points:   50,
		Rarity:   RarityEpic,
		Active:   true,
	}
}

func activities(n int) []ActivityEvent {
	out := make([]ActivityEvent, n)
	for i := range out {
		out[i] = ActivityEvent{Kind: "scenario_started"}
	}
	return out
}
