// Package initializer builds the application dependencies from configuration.
package initializer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/amirasaad/finplan/infra"
	infracache "github.com/amirasaad/finplan/infra/cache"
	infraeventbus "github.com/amirasaad/finplan/infra/eventbus"
	infralock "github.com/amirasaad/finplan/infra/lock"
	infraprovider "github.com/amirasaad/finplan/infra/provider"
	infrarepository "github.com/amirasaad/finplan/infra/repository"
	"github.com/amirasaad/finplan/internal/fixtures/catalog"
	"github.com/amirasaad/finplan/pkg/app"
	"github.com/amirasaad/finplan/pkg/cache"
	"github.com/amirasaad/finplan/pkg/config"
	"github.com/amirasaad/finplan/pkg/eventbus"
	"github.com/amirasaad/finplan/pkg/lock"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	driverMemory = "memory"
	driverRedis  = "redis"
	driverKafka  = "kafka"

	defaultCacheTTL = 15 * time.Minute
)

// InitializeDependencies initializes all the application dependencies.
// Callers must Close the returned Deps.
func InitializeDependencies(cfg *config.App) (deps *app.Deps, err error) {
	logger := setupLogger(cfg.Log)
	deps = &app.Deps{Logger: logger}
	defer func() {
		if err != nil {
			_ = deps.Close()
			deps = nil
		}
	}()

	cat, err := catalog.Load(catalogPath(cfg))
	if err != nil {
		return deps, fmt.Errorf("failed to load catalog: %w", err)
	}
	deps.Categories, deps.Templates = cat.Goals, cat.Templates

	db, err := infra.NewDBConnection(cfg.DB, cfg.Env)
	if err != nil {
		logger.Error("Failed to initialize database", "error", err)
		return deps, err
	}
	deps.OnClose(func() error { return closeDB(db) })
	if cfg.DB.AutoMigrate {
		if err = infra.Migrate(db); err != nil {
			return deps, fmt.Errorf("failed to migrate database: %w", err)
		}
	}
	deps.Uow = infrarepository.NewUoW(db)

	ctx, cancel := context.WithCancel(context.Background())
	deps.OnClose(func() error { cancel(); return nil })

	var client redis.UniversalClient
	if needsRedis(cfg) {
		if client, err = newRedisClient(ctx, cfg.Redis); err != nil {
			return deps, err
		}
		deps.OnClose(client.Close)
	}

	if deps.EventBus, err = newEventBus(ctx, cfg, client, deps, logger); err != nil {
		return deps, err
	}

	var aggCache cache.AggregateCache
	switch driverOf(cfg.Cache) {
	case driverRedis:
		aggCache = infracache.NewRedisAggregateCache(client, cfg.Redis.KeyPrefix+cfg.Cache.Prefix, logger)
	default:
		aggCache = infracache.NewMemoryCache(ctx)
	}
	ttl := defaultCacheTTL
	if cfg.Cache != nil && cfg.Cache.TTL > 0 {
		ttl = cfg.Cache.TTL
	}
	deps.Aggregates = infraprovider.NewCachedAggregateProvider(
		infraprovider.NewAggregateStore(deps.Uow, logger),
		aggCache,
		ttl,
		logger,
	)

	var locker lock.Locker = infralock.NewMemoryLocker()
	if driverOf(cfg.Lock) == driverRedis {
		locker = infralock.NewRedisLocker(client, cfg.Redis.KeyPrefix+"lock:", cfg.Lock.TTL, logger)
	}
	deps.Locker = locker

	logger.Info("dependencies initialized",
		"event_bus", driverOf(cfg.EventBus),
		"cache", driverOf(cfg.Cache),
		"lock", driverOf(cfg.Lock),
	)
	return deps, nil
}

func newEventBus(
	ctx context.Context,
	cfg *config.App,
	client redis.UniversalClient,
	deps *app.Deps,
	logger *slog.Logger,
) (eventbus.Bus, error) {
	switch driverOf(cfg.EventBus) {
	case driverRedis:
		bus, err := infraeventbus.NewWithRedis(ctx, client, cfg.EventBus.Stream, cfg.EventBus.Group, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create Redis event bus: %w", err)
		}
		deps.OnClose(bus.Close)
		return bus, nil
	case driverKafka:
		if cfg.Kafka == nil {
			return nil, fmt.Errorf("kafka event bus: KAFKA_BROKERS is required")
		}
		bus, err := infraeventbus.NewWithKafka(ctx, cfg.Kafka.Brokers, infraeventbus.KafkaEventBusConfig{
			GroupID:      cfg.Kafka.GroupID,
			TopicPrefix:  cfg.Kafka.TopicPrefix,
			SASLUsername: cfg.Kafka.SASLUsername,
			SASLPassword: cfg.Kafka.SASLPassword,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create Kafka event bus: %w", err)
		}
		deps.OnClose(bus.Close)
		return bus, nil
	case driverMemory:
		return infraeventbus.NewWithMemory(logger), nil
	}
	return nil, fmt.Errorf("unknown event bus driver %q", cfg.EventBus.Driver)
}

func newRedisClient(ctx context.Context, cfg *config.Redis) (redis.UniversalClient, error) {
	if cfg == nil || cfg.URL == "" {
		return nil, fmt.Errorf("redis: REDIS_URL is required by the configured drivers")
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis: invalid url: %w", err)
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping failed: %w", err)
	}
	return client, nil
}

func needsRedis(cfg *config.App) bool {
	return driverOf(cfg.EventBus) == driverRedis ||
		driverOf(cfg.Cache) == driverRedis ||
		driverOf(cfg.Lock) == driverRedis
}

// driverOf reads the Driver field of an optional config section.
func driverOf[T config.EventBus | config.Cache | config.Lock](section *T) string {
	if section == nil {
		return driverMemory
	}
	var driver string
	switch s := any(section).(type) {
	case *config.EventBus:
		driver = s.Driver
	case *config.Cache:
		driver = s.Driver
	case *config.Lock:
		driver = s.Driver
	}
	if driver == "" {
		return driverMemory
	}
	return driver
}

func catalogPath(cfg *config.App) string {
	if cfg.Catalog == nil {
		return ""
	}
	return cfg.Catalog.Path
}

func closeDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
