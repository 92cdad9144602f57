// Package mocks holds testify mocks for the ports the services consume.
package mocks

import (
	"context"

	"github.com/amirasaad/finplan/pkg/domain/budget"
	"github.com/amirasaad/finplan/pkg/period"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// AggregateProvider is a mock of provider.AggregateProvider.
type AggregateProvider struct {
	mock.Mock
}

// NewAggregateProvider creates a mock that asserts its expectations on cleanup.
func NewAggregateProvider(t interface {
	mock.TestingT
	Cleanup(func())
}) *AggregateProvider {
	m := &AggregateProvider{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *AggregateProvider) GetMonthlyAggregate(
	ctx context.Context,
	userID uuid.UUID,
	month period.Month,
) (*budget.MonthlyAggregate, error) {
	args := m.Called(ctx, userID, month)
	var agg *budget.MonthlyAggregate
	if v := args.Get(0); v != nil {
		agg = v.(*budget.MonthlyAggregate)
	}
	return agg, args.Error(1)
}

func (m *AggregateProvider) GetActualSavingsTotal(
	ctx context.Context,
	userID uuid.UUID,
	month period.Month,
) (decimal.Decimal, error) {
	args := m.Called(ctx, userID, month)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}
