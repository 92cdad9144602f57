// Package testdb opens migrated in-memory SQLite databases for tests.
package testdb

import (
	"testing"

	"github.com/amirasaad/finplan/infra"
	"github.com/amirasaad/finplan/pkg/config"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// New returns a fresh migrated database that lives for the test.
func New(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := infra.NewDBConnection(&config.DB{Driver: "sqlite", Url: ":memory:"}, "test")
	require.NoError(t, err)
	require.NoError(t, infra.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}
