package events

// EventTypes maps a type name to a constructor so transports can decode
// payloads back into concrete events.
var EventTypes = map[string]func() Event{
	EventTypeGoalsRanked.String():              func() Event { return &GoalsRanked{} },
	EventTypeGoalArchived.String():             func() Event { return &GoalArchived{} },
	EventTypeRecommendationsGenerated.String(): func() Event { return &RecommendationsGenerated{} },
	EventTypeCommitmentAccepted.String():       func() Event { return &CommitmentAccepted{} },
	EventTypeMilestoneReach.String():           func() Event { return &MilestoneAttained{} },
	EventTypeGoalCompleted.String():            func() Event { return &GoalCompleted{} },
	EventTypeMonthTracked.String():             func() Event { return &MonthTracked{} },
}
