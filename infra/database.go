package infra

import (
	"errors"
	"fmt"
	"time"

	aggregaterepo "github.com/amirasaad/finplan/infra/repository/aggregate"
	budgetrepo "github.com/amirasaad/finplan/infra/repository/budget"
	goalrepo "github.com/amirasaad/finplan/infra/repository/goal"
	progressrepo "github.com/amirasaad/finplan/infra/repository/progress"
	"github.com/amirasaad/finplan/pkg/config"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDBConnection opens the configured database. SQLite connections are
// limited to a single open connection so in-memory databases stay shared.
func NewDBConnection(
	cnf *config.DB,
	appEnv string,
) (*gorm.DB, error) {
	if cnf == nil || cnf.Url == "" {
		return nil, errors.New("DATABASE_URL is not set")
	}

	var logMode logger.LogLevel
	if appEnv == "development" {
		logMode = logger.Info
	} else {
		logMode = logger.Silent
	}
	gormCfg := &gorm.Config{
		Logger:                 logger.Default.LogMode(logMode),
		SkipDefaultTransaction: true,
		TranslateError:         true,
	}

	var dialector gorm.Dialector
	switch cnf.Driver {
	case "", "postgres":
		dialector = postgres.Open(cnf.Url)
	case "sqlite":
		dialector = sqlite.Open(cnf.Url)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cnf.Driver)
	}

	connection, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, err
	}

	sqlDB, err := connection.DB()
	if err != nil {
		return nil, err
	}
	if cnf.Driver == "sqlite" {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(25)
		sqlDB.SetConnMaxLifetime(1 * time.Hour)
	}

	return connection, nil
}

// Models lists every persisted model in migration order.
func Models() []any {
	return []any{
		&goalrepo.LifeContext{},
		&goalrepo.Goal{},
		&budgetrepo.Commitment{},
		&budgetrepo.GoalAllocation{},
		&budgetrepo.RecommendationAudit{},
		&progressrepo.Contribution{},
		&progressrepo.Snapshot{},
		&progressrepo.Milestone{},
		&aggregaterepo.MonthlyAggregate{},
	}
}

// Migrate creates or updates the schema for all models.
func Migrate(db *gorm.DB) error {
	for _, m := range Models() {
		if err := db.AutoMigrate(m); err != nil {
			return fmt.Errorf("migrate %T: %w", m, err)
		}
	}
	return nil
}
