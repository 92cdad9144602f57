package domain

import (
	"errors"
	"fmt"
)

// Common domain errors
var (
	// ErrNotFound is returned when a requested resource is not found
	ErrNotFound = errors.New("resource not found")
	// ErrAlreadyExists is returned when trying to create a resource that already exists
	ErrAlreadyExists = errors.New("resource already exists")
	// ErrValidation is returned when input validation fails
	ErrValidation = errors.New("validation error")
	// ErrUnauthorized is returned when a user is not authorized to perform an action
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is returned when a user is not allowed to perform an action
	ErrForbidden = errors.New("forbidden")
	// ErrDataUnavailable is returned when an aggregate provider has no data for a period
	ErrDataUnavailable = errors.New("data unavailable")
	// ErrConsistency is returned when a computed total drifts beyond the rounding tolerance
	ErrConsistency = errors.New("consistency error")
)

// Stable error codes returned to API clients.
const (
	CodeInvalidRequest         = "INVALID_REQUEST"
	CodeGoalInvalidCost        = "GOAL_INVALID_COST"
	CodeGoalInvalidType        = "GOAL_INVALID_TYPE"
	CodeGoalInvalidImportance  = "GOAL_INVALID_IMPORTANCE"
	CodeGoalPastTargetDate     = "GOAL_PAST_TARGET_DATE"
	CodeGoalInvalidSavings     = "GOAL_INVALID_SAVINGS"
	CodeGoalUnknownCategory    = "GOAL_UNKNOWN_CATEGORY"
	CodeGoalOverrideNotAllowed = "GOAL_OVERRIDE_NOT_ALLOWED"
	CodeGoalNotActive          = "GOAL_NOT_ACTIVE"
	CodeGoalNotFound           = "GOAL_NOT_FOUND"
	CodeLifeContextRequired    = "LIFE_CONTEXT_REQUIRED"
	CodeLifeContextInvalid     = "LIFE_CONTEXT_INVALID"
	CodeUnknownPlan            = "PLAN_UNKNOWN"
	CodeAllocationSumMismatch  = "ALLOCATION_SUM_MISMATCH"
	CodeAllocationUnknownGoal  = "ALLOCATION_UNKNOWN_GOAL"
	CodeAllocationNegative     = "ALLOCATION_NEGATIVE"
	CodeAllocationDrift        = "ALLOCATION_DRIFT"
	CodeAttributionDrift       = "ATTRIBUTION_DRIFT"
	CodeAggregateUnavailable   = "AGGREGATE_UNAVAILABLE"
	CodeInvalidRule            = "RULE_INVALID"
)

// Error is a failure with a stable code. Kind is one of the sentinel errors
// above so callers can use errors.Is to classify it.
type Error struct {
	Code    string
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the error kind.
func (e *Error) Unwrap() error { return e.Kind }

// NewError builds an Error of the given kind.
func NewError(kind error, code, format string, args ...any) *Error {
	return &Error{Code: code, Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Validation builds a ValidationError.
func Validation(code, format string, args ...any) *Error {
	return NewError(ErrValidation, code, format, args...)
}

// DataUnavailable builds a DataUnavailableError.
func DataUnavailable(code, format string, args ...any) *Error {
	return NewError(ErrDataUnavailable, code, format, args...)
}

// Consistency builds a ConsistencyError.
func Consistency(code, format string, args ...any) *Error {
	return NewError(ErrConsistency, code, format, args...)
}

// CodeOf returns the stable code carried by err, or "" if there is none.
func CodeOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
