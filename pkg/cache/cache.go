package cache

import (
	"context"
	"time"

	"github.com/amirasaad/finplan/pkg/domain/budget"
)

// AggregateCache stores monthly aggregates read from the transaction
// pipeline. A miss returns (nil, nil).
type AggregateCache interface {
	Get(ctx context.Context, key string) (*budget.MonthlyAggregate, error)
	Set(ctx context.Context, key string, agg *budget.MonthlyAggregate, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
