package repository

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/amirasaad/finplan/pkg/repository"
	"github.com/amirasaad/finplan/pkg/repository/goal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockUoW(t *testing.T) (*UoW, sqlmock.Sqlmock) {
	t.Helper()
	mockDb, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDb.Close() })
	dialector := postgres.New(postgres.Config{
		Conn:       mockDb,
		DriverName: "postgres",
	})
	db, err := gorm.Open(dialector, &gorm.Config{})
	require.NoError(t, err)
	return NewUoW(db), mock
}

func TestUoW_DoAndGetRepository(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)
	uow, mock := newMockUoW(t)

	mock.ExpectBegin()
	mock.ExpectCommit()

	err := uow.Do(context.Background(), func(txUow repository.UnitOfWork) error {
		repoAny, err := txUow.GetRepository(reflect.TypeOf((*goal.Repository)(nil)).Elem())
		require.NoError(err)
		_, ok := repoAny.(goal.Repository)
		assert.True(ok)

		_, err = txUow.GetRepository(reflect.TypeOf(""))
		assert.Error(err)
		return nil
	})
	assert.NoError(err)
	assert.NoError(mock.ExpectationsWereMet())
}

func TestUoW_RollbackOnError(t *testing.T) {
	uow, mock := newMockUoW(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := uow.Do(context.Background(), func(repository.UnitOfWork) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUoW_TypeSafeMethods(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)
	uow, mock := newMockUoW(t)

	check := func(u repository.UnitOfWork) {
		g, err := u.GoalRepository()
		require.NoError(err)
		assert.NotNil(g)
		b, err := u.BudgetRepository()
		require.NoError(err)
		assert.NotNil(b)
		p, err := u.ProgressRepository()
		require.NoError(err)
		assert.NotNil(p)
		a, err := u.AggregateRepository()
		require.NoError(err)
		assert.NotNil(a)
	}

	check(uow)

	mock.ExpectBegin()
	mock.ExpectCommit()
	err := uow.Do(context.Background(), func(txUow repository.UnitOfWork) error {
		check(txUow)
		return nil
	})
	assert.NoError(err)
}
