package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// -----------------------------------------------------------------------------
// Environment variable configuration guidelines:
// - required: values that differ between environments (port, DB connection,
//   secrets)
// - default: values common across all environments (timeouts, retry budgets)
// -----------------------------------------------------------------------------

type Config struct {
	Server      ServerConfig
	DB          DBConfig
	CORS        CORSConfig
	Log         LogConfig
	JWT         JWTConfig
	Redis       RedisConfig
	Audit       AuditConfig
	Reservation ReservationConfig
}

type ServerConfig struct {
	Port string `envconfig:"PORT" required:"true"`
}

type DBConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" required:"true"`
	Password string `envconfig:"DB_PASSWORD" required:"true"`
	DBName   string `envconfig:"DB_NAME" required:"true"`
	SSLMode  string `envconfig:"DB_SSL_MODE" default:"disable"`
}

type CORSConfig struct {
	AllowOrigins     []string      `envconfig:"CORS_ALLOW_ORIGINS" default:"http://localhost:3000,http://localhost:8080"`
	AllowMethods     []string      `envconfig:"CORS_ALLOW_METHODS" default:"GET,POST,PUT,PATCH,DELETE,OPTIONS"`
	AllowHeaders     []string      `envconfig:"CORS_ALLOW_HEADERS" default:"Origin,Content-Type,Accept,Authorization,Idempotency-Key"`
	ExposeHeaders    []string      `envconfig:"CORS_EXPOSE_HEADERS" default:"Content-Length"`
	AllowCredentials bool          `envconfig:"CORS_ALLOW_CREDENTIALS" default:"true"`
	MaxAge           time.Duration `envconfig:"CORS_MAX_AGE" default:"12h"`
}

type LogConfig struct {
	Level      string `envconfig:"LOG_LEVEL" default:"info"`
	TimeFormat string `envconfig:"LOG_TIME_FORMAT" default:"2006-01-02 15:04:05.000"`
}

type JWTConfig struct {
	Secret string `envconfig:"JWT_SECRET" required:"true"`
}

type RedisConfig struct {
	Addr     string        `envconfig:"REDIS_ADDR" default:""`
	Password string        `envconfig:"REDIS_PASSWORD" default:""`
	DB       int           `envconfig:"REDIS_DB" default:"0"`
	CacheTTL time.Duration `envconfig:"REDIS_CACHE_TTL" default:"15s"`
}

type AuditConfig struct {
	Brokers []string `envconfig:"AUDIT_KAFKA_BROKERS" default:""`
	Topic   string   `envconfig:"AUDIT_KAFKA_TOPIC" default:"booking-audit"`
}

type ReservationConfig struct {
	// LockTimeout bounds how long a reservation attempt may wait on
	// inventory row locks before it fails retryably.
	LockTimeout time.Duration `envconfig:"RESERVATION_LOCK_TIMEOUT" default:"3s"`
	// MaxConflictRetries bounds optimistic retries under genuine contention.
	MaxConflictRetries int `envconfig:"RESERVATION_MAX_CONFLICT_RETRIES" default:"3"`
	// IdempotencyTTL is how long a fingerprint stays bound to its booking.
	IdempotencyTTL time.Duration `envconfig:"RESERVATION_IDEMPOTENCY_TTL" default:"24h"`
	// ReplayWait bounds how long a duplicate request waits for the first
	// writer's booking to become visible.
	ReplayWaitAttempts int           `envconfig:"RESERVATION_REPLAY_WAIT_ATTEMPTS" default:"10"`
	ReplayWaitBase     time.Duration `envconfig:"RESERVATION_REPLAY_WAIT_BASE" default:"50ms"`
	// CancellationCutoff is how long before check-in an owner may still
	// cancel; admins bypass it.
	CancellationCutoff time.Duration `envconfig:"RESERVATION_CANCELLATION_CUTOFF" default:"24h"`
}

func (c *DBConfig) BuildDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("failed to process env config: %w", err)
	}
	return cfg, nil
}

func NewTestConfig() Config {
	return Config{
		Server: ServerConfig{
			Port: "8889",
		},
		DB: DBConfig{
			Host:     "localhost",
			Port:     "15433",
			User:     "test",
			Password: "test",
			DBName:   "test_db",
			SSLMode:  "disable",
		},
		Log: LogConfig{
			Level:      "error",
			TimeFormat: "2006-01-02 15:04:05.000",
		},
		JWT: JWTConfig{
			Secret: "test-secret",
		},
		Reservation: ReservationConfig{
			LockTimeout:        3 * time.Second,
			MaxConflictRetries: 3,
			IdempotencyTTL:     24 * time.Hour,
			ReplayWaitAttempts: 10,
			ReplayWaitBase:     10 * time.Millisecond,
			CancellationCutoff: 24 * time.Hour,
		},
	}
}
