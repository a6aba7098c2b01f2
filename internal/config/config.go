package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Store        StoreConfig
	Postgres     PostgresConfig
	Mongo        MongoConfig
	Redis        RedisConfig
	Objects      ObjectsConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	Routing      RoutingConfig
	Worker       WorkerConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string `env:"APP_NAME" envDefault:"helpdesk-service"`
	Env                   string `env:"APP_ENV" envDefault:"development"`
	Host                  string `env:"APP_HOST" envDefault:"0.0.0.0"`
	Port                  string `env:"APP_PORT" envDefault:"8080"`
	Version               string `env:"APP_VERSION" envDefault:"dev"`
	RequestTimeoutSeconds int    `env:"HTTP_REQUEST_TIMEOUT_SECONDS" envDefault:"30"`
}

// StoreConfig selects the repository backend.
type StoreConfig struct {
	Driver string `env:"STORE_DRIVER" envDefault:"postgres"`
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string `env:"POSTGRES_DSN"`
	MaxConns       int32  `env:"POSTGRES_MAX_CONNS" envDefault:"10"`
	MinConns       int32  `env:"POSTGRES_MIN_CONNS" envDefault:"2"`
	RunMigrations  bool   `env:"POSTGRES_RUN_MIGRATIONS" envDefault:"true"`
	MigrationsDir  string `env:"POSTGRES_MIGRATIONS_DIR" envDefault:"migrations"`
	ConnMaxIdleSec int32  `env:"POSTGRES_CONN_MAX_IDLE_SECONDS" envDefault:"30"`
	ConnMaxLifeSec int32  `env:"POSTGRES_CONN_MAX_LIFE_SECONDS" envDefault:"300"`
}

// MongoConfig holds document store connection values.
type MongoConfig struct {
	URI      string `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	Database string `env:"MONGO_DBNAME" envDefault:"helpdesk"`
	// Transactions requires a replica set.
	Transactions bool `env:"MONGO_TRANSACTIONS" envDefault:"false"`
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr          string `env:"REDIS_ADDR" envDefault:"127.0.0.1:6379"`
	Password      string `env:"REDIS_PASSWORD"`
	DB            int    `env:"REDIS_DB" envDefault:"0"`
	ChangeChannel string `env:"REDIS_CHANGE_CHANNEL" envDefault:"helpdesk:changes"`
}

// ObjectsConfig configures attachment storage. An empty endpoint disables
// attachments.
type ObjectsConfig struct {
	Endpoint          string `env:"MINIO_ENDPOINT"`
	AccessKey         string `env:"MINIO_ACCESS_KEY"`
	SecretKey         string `env:"MINIO_SECRET_KEY"`
	Bucket            string `env:"MINIO_BUCKET" envDefault:"helpdesk-attachments"`
	UseSSL            bool   `env:"MINIO_USE_SSL" envDefault:"false"`
	PresignTTLMinutes int    `env:"MINIO_PRESIGN_TTL_MINUTES" envDefault:"60"`
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level   string `env:"LOG_LEVEL" envDefault:"info"`
	Format  string `env:"LOG_FORMAT" envDefault:"json"`
	Service string `env:"APP_NAME" envDefault:"helpdesk-service"`
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string `env:"AUTH_JWT_SECRET" envDefault:"dev-secret"`
	AccessTokenTTLMinutes int    `env:"AUTH_ACCESS_TOKEN_TTL_MINUTES" envDefault:"60"`
	BcryptCost            int    `env:"AUTH_BCRYPT_COST" envDefault:"12"`
}

// NotificationConfig holds notification endpoints.
type NotificationConfig struct {
	EmailFrom  string `env:"NOTIFY_EMAIL_FROM" envDefault:"noreply@example.com"`
	WebhookURL string `env:"NOTIFY_WEBHOOK_URL"`
}

// RoutingConfig points at optional routing-table overrides.
type RoutingConfig struct {
	TablesFile string `env:"ROUTING_TABLES_FILE"`
}

// WorkerConfig controls background jobs.
type WorkerConfig struct {
	ReconcileIntervalSeconds int `env:"WORKER_RECONCILE_INTERVAL_SECONDS" envDefault:"60"`
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := new(Config)
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	switch cfg.Store.Driver {
	case DriverPostgres, DriverMongo, DriverMemory:
	default:
		return nil, fmt.Errorf("invalid STORE_DRIVER %q", cfg.Store.Driver)
	}
	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// PresignTTL returns how long attachment download links stay valid.
func (o ObjectsConfig) PresignTTL() time.Duration {
	if o.PresignTTLMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(o.PresignTTLMinutes) * time.Minute
}

// ReconcileInterval returns the reconcile worker period. Zero disables it.
func (w WorkerConfig) ReconcileInterval() time.Duration {
	if w.ReconcileIntervalSeconds <= 0 {
		return 0
	}
	return time.Duration(w.ReconcileIntervalSeconds) * time.Second
}
