package app

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/amirasaad/finplan/infra/eventbus"
	infralock "github.com/amirasaad/finplan/infra/lock"
	infrarepo "github.com/amirasaad/finplan/infra/repository"
	"github.com/amirasaad/finplan/internal/fixtures/catalog"
	"github.com/amirasaad/finplan/internal/fixtures/mocks"
	"github.com/amirasaad/finplan/internal/fixtures/testdb"
	"github.com/amirasaad/finplan/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDeps(t *testing.T) *Deps {
	logger := slog.New(slog.DiscardHandler)
	cat := catalog.MustLoadEmbedded()
	return &Deps{
		Uow:        infrarepo.NewUoW(testdb.New(t)),
		Aggregates: mocks.NewAggregateProvider(t),
		EventBus:   eventbus.NewWithMemory(logger),
		Locker:     infralock.NewMemoryLocker(),
		Categories: cat.Goals,
		Templates:  cat.Templates,
		Logger:     logger,
	}
}

func TestNew(t *testing.T) {
	a, err := New(testDeps(t), &config.App{Tracking: &config.Tracking{Fallback: "top_priority", Concurrency: 4}})
	require.NoError(t, err)
	assert.NotNil(t, a.GoalService)
	assert.NotNil(t, a.BudgetService)
	assert.NotNil(t, a.ProgressService)
	assert.NotNil(t, a.TrackingService)
}

func TestNew_InvalidFallback(t *testing.T) {
	_, err := New(testDeps(t), &config.App{Tracking: &config.Tracking{Fallback: "random"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tracking config")
}

func TestDeps_CloseInReverseOrder(t *testing.T) {
	var order []int
	d := &Deps{}
	d.OnClose(func() error { order = append(order, 1); return nil })
	d.OnClose(func() error { order = append(order, 2); return errors.New("boom") })
	d.OnClose(func() error { order = append(order, 3); return nil })

	err := d.Close()
	require.Error(t, err)
	assert.Equal(t, []int{3, 2, 1}, order)
	assert.NoError(t, d.Close())
}
