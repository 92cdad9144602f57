// Package events defines the notifications published after user-visible
// state changes. Publishing is fire-and-forget: a failed publish never rolls
// back the change that caused it.
package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event is implemented by every published event.
type Event interface {
	Type() string
}

// FlowEvent carries the fields shared by all events.
type FlowEvent struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewFlowEvent stamps a new event for userID.
func NewFlowEvent(userID uuid.UUID, at time.Time) FlowEvent {
	return FlowEvent{ID: uuid.New(), UserID: userID, Timestamp: at.UTC()}
}

// RankedGoal is a goal position inside GoalsRanked.
type RankedGoal struct {
	GoalID       uuid.UUID `json:"goal_id"`
	PriorityRank int       `json:"priority_rank"`
	Score        float64   `json:"score"`
}

// GoalsRanked is emitted after a recompute changed a user's goals.
type GoalsRanked struct {
	FlowEvent
	Trigger string       `json:"trigger"`
	Goals   []RankedGoal `json:"goals"`
}

func (e GoalsRanked) Type() string { return EventTypeGoalsRanked.String() }

// GoalArchived is emitted when a user archives a goal.
type GoalArchived struct {
	FlowEvent
	GoalID uuid.UUID `json:"goal_id"`
}

func (e GoalArchived) Type() string { return EventTypeGoalArchived.String() }

// RecommendationsGenerated is emitted when a user receives a new set of
// budget recommendations.
type RecommendationsGenerated struct {
	FlowEvent
	Month     string   `json:"month"`
	PlanCodes []string `json:"plan_codes"`
	LowData   bool     `json:"low_data"`
}

func (e RecommendationsGenerated) Type() string {
	return EventTypeRecommendationsGenerated.String()
}

// CommitmentAccepted is emitted after a budget commitment is stored.
type CommitmentAccepted struct {
	FlowEvent
	PlanCode      string          `json:"plan_code"`
	Month         string          `json:"month"`
	SavingsBudget decimal.Decimal `json:"savings_budget"`
	GoalCount     int             `json:"goal_count"`
}

func (e CommitmentAccepted) Type() string { return EventTypeCommitmentAccepted.String() }

// MilestoneAttained is emitted for every newly recorded milestone.
type MilestoneAttained struct {
	FlowEvent
	GoalID     uuid.UUID `json:"goal_id"`
	GoalName   string    `json:"goal_name"`
	Pct        int       `json:"pct"`
	Month      string    `json:"month"`
	AttainedAt time.Time `json:"attained_at"`
}

func (e MilestoneAttained) Type() string { return EventTypeMilestoneReach.String() }

// GoalCompleted is emitted when tracking moves a goal to completed.
type GoalCompleted struct {
	FlowEvent
	GoalID   uuid.UUID `json:"goal_id"`
	GoalName string    `json:"goal_name"`
	Month    string    `json:"month"`
}

func (e GoalCompleted) Type() string { return EventTypeGoalCompleted.String() }

// MonthTracked is emitted once a user's month has been tracked.
type MonthTracked struct {
	FlowEvent
	Month       string          `json:"month"`
	ActualTotal decimal.Decimal `json:"actual_total"`
	Goals       int             `json:"goals"`
}

func (e MonthTracked) Type() string { return EventTypeMonthTracked.String() }
