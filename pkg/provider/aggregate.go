// Package provider defines the external data sources the planning engine
// consumes.
package provider

import (
	"context"

	"github.com/amirasaad/finplan/pkg/domain/budget"
	"github.com/amirasaad/finplan/pkg/period"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateProvider reads the monthly aggregates produced by the transaction
// pipeline. Missing months fail with a domain.ErrDataUnavailable error.
type AggregateProvider interface {
	// GetMonthlyAggregate returns income and the needs/wants/assets split.
	GetMonthlyAggregate(ctx context.Context, userID uuid.UUID, month period.Month) (*budget.MonthlyAggregate, error)

	// GetActualSavingsTotal returns the assets-type outflows of the month.
	GetActualSavingsTotal(ctx context.Context, userID uuid.UUID, month period.Month) (decimal.Decimal, error)
}
