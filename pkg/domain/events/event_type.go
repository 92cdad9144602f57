package events

// EventType represents the type of an event in the system.
type EventType string

// Event type constants
const (
	// Goal events
	EventTypeGoalsRanked    EventType = "Goal.Ranked"
	EventTypeGoalCompleted  EventType = "Goal.Completed"
	EventTypeGoalArchived   EventType = "Goal.Archived"
	EventTypeMilestoneReach EventType = "Goal.MilestoneAttained"

	// Budget events
	EventTypeRecommendationsGenerated EventType = "Budget.RecommendationsGenerated"
	EventTypeCommitmentAccepted       EventType = "Budget.CommitmentAccepted"

	// Tracking events
	EventTypeMonthTracked EventType = "Tracking.MonthTracked"
)

// String returns the string representation of the event type.
func (et EventType) String() string {
	return string(et)
}
