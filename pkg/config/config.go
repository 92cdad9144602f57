package config

import (
	"time"
)

type DB struct {
	// Driver is postgres or sqlite.
	Driver string `envconfig:"DRIVER" default:"postgres"`
	Url    string `envconfig:"URL"`
	// AutoMigrate runs the schema migration on startup.
	AutoMigrate bool `envconfig:"AUTO_MIGRATE" default:"false"`
}

type Jwt struct {
	Secret string        `envconfig:"SECRET"`
	Expiry time.Duration `envconfig:"EXPIRY" default:"24h"`
	// UserClaim names the claim carrying the user id.
	UserClaim string `envconfig:"USER_CLAIM" default:"user_id"`
}

type Auth struct {
	Strategy string `envconfig:"STRATEGY" default:"jwt"`
	Jwt      *Jwt   `envconfig:"JWT"`
}

type Redis struct {
	URL          string        `envconfig:"URL"`
	KeyPrefix    string        `envconfig:"KEY_PREFIX" default:"finplan:"`
	PoolSize     int           `envconfig:"POOL_SIZE" default:"10"`
	DialTimeout  time.Duration `envconfig:"DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"3s"`
}

type Kafka struct {
	Brokers      string `envconfig:"BROKERS"`
	GroupID      string `envconfig:"GROUP_ID" default:"finplan"`
	TopicPrefix  string `envconfig:"TOPIC_PREFIX" default:"finplan.events"`
	SASLUsername string `envconfig:"SASL_USERNAME"`
	SASLPassword string `envconfig:"SASL_PASSWORD"`
}

type EventBus struct {
	// Driver is memory, redis or kafka.
	Driver string `envconfig:"DRIVER" default:"memory"`
	Stream string `envconfig:"STREAM" default:"finplan:events"`
	Group  string `envconfig:"GROUP" default:"finplan"`
}

type Cache struct {
	// Driver is memory or redis.
	Driver string        `envconfig:"DRIVER" default:"memory"`
	TTL    time.Duration `envconfig:"TTL" default:"15m"`
	Prefix string        `envconfig:"PREFIX" default:"agg:"`
}

type Lock struct {
	// Driver is memory or redis.
	Driver string        `envconfig:"DRIVER" default:"memory"`
	TTL    time.Duration `envconfig:"TTL" default:"2m"`
}

type Tracking struct {
	Concurrency int           `envconfig:"CONCURRENCY" default:"8"`
	UserTimeout time.Duration `envconfig:"USER_TIMEOUT" default:"30s"`
	// Fallback attribution when no commitment exists: equal or top_priority.
	Fallback string `envconfig:"FALLBACK" default:"equal"`
}

type Catalog struct {
	// Path to a catalog YAML file. Empty uses the embedded catalog.
	Path string `envconfig:"PATH"`
}

type RateLimit struct {
	MaxRequests int           `envconfig:"MAX_REQUESTS" default:"100"`
	Window      time.Duration `envconfig:"WINDOW" default:"1m"`
}

type Log struct {
	Level      int    `envconfig:"LEVEL" default:"0"`
	Format     string `envconfig:"FORMAT" default:"text"`
	TimeFormat string `envconfig:"TIME_FORMAT" default:"2006-01-02 15:04:05"`
	Prefix     string `envconfig:"PREFIX" default:"[finplan]"`
}

type Server struct {
	Scheme string `envconfig:"SCHEME" default:"http"`
	Host   string `envconfig:"HOST" default:"localhost"`
	Port   int    `envconfig:"PORT" default:"3000"`
}

type App struct {
	Env       string     `envconfig:"APP_ENV" default:"development"`
	Server    *Server    `envconfig:"SERVER"`
	Log       *Log       `envconfig:"LOG"`
	DB        *DB        `envconfig:"DATABASE"`
	Auth      *Auth      `envconfig:"AUTH"`
	Redis     *Redis     `envconfig:"REDIS"`
	Kafka     *Kafka     `envconfig:"KAFKA"`
	EventBus  *EventBus  `envconfig:"EVENT_BUS"`
	Cache     *Cache     `envconfig:"CACHE"`
	Lock      *Lock      `envconfig:"LOCK"`
	Tracking  *Tracking  `envconfig:"TRACKING"`
	Catalog   *Catalog   `envconfig:"CATALOG"`
	RateLimit *RateLimit `envconfig:"RATE_LIMIT"`
}
