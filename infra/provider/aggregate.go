package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/amirasaad/finplan/pkg/cache"
	"github.com/amirasaad/finplan/pkg/domain"
	"github.com/amirasaad/finplan/pkg/domain/budget"
	"github.com/amirasaad/finplan/pkg/period"
	"github.com/amirasaad/finplan/pkg/provider"
	"github.com/amirasaad/finplan/pkg/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// AggregateStore reads aggregates from the monthly_aggregates table.
type AggregateStore struct {
	uow    repository.UnitOfWork
	logger *slog.Logger
}

var _ provider.AggregateProvider = (*AggregateStore)(nil)

// NewAggregateStore creates a provider backed by the aggregate repository.
func NewAggregateStore(uow repository.UnitOfWork, logger *slog.Logger) *AggregateStore {
	return &AggregateStore{uow: uow, logger: logger.With("provider", "aggregate_store")}
}

// GetMonthlyAggregate implements provider.AggregateProvider.
func (s *AggregateStore) GetMonthlyAggregate(
	ctx context.Context,
	userID uuid.UUID,
	month period.Month,
) (*budget.MonthlyAggregate, error) {
	repo, err := s.uow.AggregateRepository()
	if err != nil {
		return nil, err
	}
	agg, err := repo.Get(ctx, userID, month)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.DataUnavailable(domain.CodeAggregateUnavailable,
			"no aggregate for user %s in %s", userID, month)
	}
	if err != nil {
		return nil, fmt.Errorf("read aggregate: %w", err)
	}
	return agg, nil
}

// GetActualSavingsTotal implements provider.AggregateProvider.
func (s *AggregateStore) GetActualSavingsTotal(
	ctx context.Context,
	userID uuid.UUID,
	month period.Month,
) (decimal.Decimal, error) {
	agg, err := s.GetMonthlyAggregate(ctx, userID, month)
	if err != nil {
		return decimal.Zero, err
	}
	return agg.Assets, nil
}

// CachedAggregateProvider decorates a provider with a cache. Concurrent
// misses for the same key share one upstream read.
type CachedAggregateProvider struct {
	next   provider.AggregateProvider
	cache  cache.AggregateCache
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
}

var _ provider.AggregateProvider = (*CachedAggregateProvider)(nil)

// NewCachedAggregateProvider wraps next with c.
func NewCachedAggregateProvider(
	next provider.AggregateProvider,
	c cache.AggregateCache,
	ttl time.Duration,
	logger *slog.Logger,
) *CachedAggregateProvider {
	return &CachedAggregateProvider{
		next:   next,
		cache:  c,
		ttl:    ttl,
		logger: logger.With("provider", "aggregate_cache"),
	}
}

func cacheKey(userID uuid.UUID, month period.Month) string {
	return userID.String() + ":" + month.String()
}

// GetMonthlyAggregate implements provider.AggregateProvider.
func (p *CachedAggregateProvider) GetMonthlyAggregate(
	ctx context.Context,
	userID uuid.UUID,
	month period.Month,
) (*budget.MonthlyAggregate, error) {
	key := cacheKey(userID, month)
	if agg, err := p.cache.Get(ctx, key); err != nil {
		p.logger.Warn("aggregate cache read failed", "key", key, "error", err)
	} else if agg != nil {
		return agg, nil
	}

	v, err, _ := p.group.Do(key, func() (any, error) {
		agg, err := p.next.GetMonthlyAggregate(ctx, userID, month)
		if err != nil {
			return nil, err
		}
		if err := p.cache.Set(ctx, key, agg, p.ttl); err != nil {
			p.logger.Warn("aggregate cache write failed", "key", key, "error", err)
		}
		return agg, nil
	})
	if err != nil {
		return nil, err
	}
	agg := *v.(*budget.MonthlyAggregate)
	return &agg, nil
}

// GetActualSavingsTotal implements provider.AggregateProvider.
func (p *CachedAggregateProvider) GetActualSavingsTotal(
	ctx context.Context,
	userID uuid.UUID,
	month period.Month,
) (decimal.Decimal, error) {
	agg, err := p.GetMonthlyAggregate(ctx, userID, month)
	if err != nil {
		return decimal.Zero, err
	}
	return agg.Assets, nil
}

// Invalidate drops the cached aggregate of (userID, month).
func (p *CachedAggregateProvider) Invalidate(ctx context.Context, userID uuid.UUID, month period.Month) error {
	return p.cache.Delete(ctx, cacheKey(userID, month))
}
