// Package config provides configuration structures and validation for the ledger services.
// It covers the HTTP gateway, the background ledger worker and every store and broker
// they talk to, together with the money-movement knobs (reference generation,
// notification timeouts, crypto pricing and P2P recipient policy).
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Recipient selection policies accepted by P2P_RECIPIENT_POLICY.
const (
	RecipientPolicyPrimary = "primary"
	RecipientPolicyRandom  = "random"
)

// Config holds the complete application configuration.
type Config struct {
	Application ApplicationConfig
	Logging     LoggingConfig
	Server      ServerConfig
	Kafka       KafkaConfig
	Postgres    PostgresConfig
	MongoDB     MongoDBConfig
	Redis       RedisConfig
	Outbox      OutboxConfig
	WorkerPool  WorkerPoolConfig
	Ledger      LedgerConfig
	Crypto      CryptoConfig
	P2P         P2PConfig
}

// ApplicationConfig contains general application configuration
type ApplicationConfig struct {
	Env  string
	Name string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port            int
	ShutdownTimeout time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
}

// KafkaConfig contains Kafka configuration
type KafkaConfig struct {
	Brokers           string
	NotificationTopic string // Outgoing user notifications
	ApprovalTopic     string // Incoming admin decisions on deposits and sells
	NumPartitions     int
	ReplicationFactor int
	ConsumerGroup     string
	MinBytes          int
	MaxBytes          int
	MaxWait           time.Duration
	StartOffset       int64
	DLQTopic          string
}

// PostgresConfig contains PostgreSQL configuration
type PostgresConfig struct {
	URL             string
	MaxConns        int32
	MinConns        int32
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	MigrationsPath  string
}

// MongoDBConfig contains MongoDB configuration
type MongoDBConfig struct {
	URI             string
	Database        string
	Timeout         time.Duration
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
}

// RedisConfig contains the settings of the directory cache
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	DirectoryTTL time.Duration
}

// OutboxConfig contains outbox pattern configuration
type OutboxConfig struct {
	PollingInterval  time.Duration
	BatchSize        int
	MaxRetryAttempts int
}

// WorkerPoolConfig contains worker pool configuration
type WorkerPoolConfig struct {
	Size             int // Workers running user operations
	NotificationSize int // Workers enqueueing notifications
}

// LedgerConfig tunes reference generation and side effects of completed operations
type LedgerConfig struct {
	ReferenceMaxAttempts   int
	NotificationTimeout    time.Duration
	ReconciliationAttempts int
}

// CryptoConfig holds the ledger price and fee of the single traded asset
type CryptoConfig struct {
	Asset   string
	Price   decimal.Decimal
	FeeRate decimal.Decimal
}

// P2PConfig controls how a recipient account is chosen when several are eligible
type P2PConfig struct {
	RecipientPolicy string
}

// validate performs validation of all configuration values and reports every
// problem found at once.
func (c *Config) validate() error {
	var validationErrors []string

	// Server
	if c.Server.Port <= 0 {
		validationErrors = append(validationErrors, "SERVER_PORT must be greater than 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_SHUTDOWN_TIMEOUT must be greater than 0")
	}
	if c.Server.ReadTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_READ_TIMEOUT must be greater than 0")
	}
	if c.Server.WriteTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_WRITE_TIMEOUT must be greater than 0")
	}
	if c.Server.IdleTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_IDLE_TIMEOUT must be greater than 0")
	}

	// Kafka
	if len(c.Kafka.Brokers) == 0 {
		validationErrors = append(validationErrors, "KAFKA_BROKERS is required")
	}
	if c.Kafka.NotificationTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_NOTIFICATION_TOPIC is required")
	}
	if c.Kafka.ApprovalTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_APPROVAL_TOPIC is required")
	}
	if c.Kafka.ConsumerGroup == "" {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_GROUP is required")
	}
	if c.Kafka.MinBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MIN_BYTES must be greater than 0")
	}
	if c.Kafka.MaxBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_BYTES must be greater than 0")
	}
	if c.Kafka.MaxWait <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_WAIT must be greater than 0")
	}
	if c.Kafka.DLQTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_DLQ_TOPIC is required")
	}

	// PostgreSQL
	if c.Postgres.URL == "" {
		validationErrors = append(validationErrors, "POSTGRES_URL is required")
	}
	if c.Postgres.MaxConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONNS must be greater than 0")
	}
	if c.Postgres.MinConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MIN_CONNS must be greater than 0")
	}
	if c.Postgres.MinConns > c.Postgres.MaxConns {
		validationErrors = append(validationErrors, "POSTGRES_MIN_CONNS must not exceed POSTGRES_MAX_CONNS")
	}
	if c.Postgres.ConnMaxLifetime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_LIFETIME must be greater than 0")
	}
	if c.Postgres.ConnMaxIdleTime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// MongoDB
	if c.MongoDB.URI == "" {
		validationErrors = append(validationErrors, "MONGO_URI is required")
	}
	if c.MongoDB.Database == "" {
		validationErrors = append(validationErrors, "MONGO_DATABASE is required")
	}
	if c.MongoDB.Timeout <= 0 {
		validationErrors = append(validationErrors, "MONGO_TIMEOUT must be greater than 0")
	}
	if c.MongoDB.MaxPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_POOL_SIZE must be greater than 0")
	}
	if c.MongoDB.MinPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MIN_POOL_SIZE must be greater than 0")
	}
	if c.MongoDB.MaxConnIdleTime <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// Redis
	if c.Redis.Addr == "" {
		validationErrors = append(validationErrors, "REDIS_ADDR is required")
	}
	if c.Redis.DB < 0 {
		validationErrors = append(validationErrors, "REDIS_DB must not be negative")
	}
	if c.Redis.DirectoryTTL <= 0 {
		validationErrors = append(validationErrors, "REDIS_DIRECTORY_TTL must be greater than 0")
	}

	// Outbox
	if c.Outbox.PollingInterval <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_POLLING_INTERVAL must be greater than 0")
	}
	if c.Outbox.BatchSize <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_BATCH_SIZE must be greater than 0")
	}
	if c.Outbox.MaxRetryAttempts <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_MAX_RETRY_ATTEMPTS must be greater than 0")
	}

	// Worker pools
	if c.WorkerPool.Size <= 0 {
		validationErrors = append(validationErrors, "WORKER_POOL_SIZE must be greater than 0")
	}
	if c.WorkerPool.NotificationSize <= 0 {
		validationErrors = append(validationErrors, "WORKER_POOL_NOTIFICATION_SIZE must be greater than 0")
	}

	// Ledger
	if c.Ledger.ReferenceMaxAttempts <= 0 {
		validationErrors = append(validationErrors, "LEDGER_REFERENCE_MAX_ATTEMPTS must be greater than 0")
	}
	if c.Ledger.NotificationTimeout <= 0 {
		validationErrors = append(validationErrors, "LEDGER_NOTIFICATION_TIMEOUT must be greater than 0")
	}
	if c.Ledger.ReconciliationAttempts <= 0 {
		validationErrors = append(validationErrors, "LEDGER_RECONCILIATION_ATTEMPTS must be greater than 0")
	}

	// Crypto
	if c.Crypto.Asset == "" {
		validationErrors = append(validationErrors, "CRYPTO_ASSET is required")
	}
	if !c.Crypto.Price.IsPositive() {
		validationErrors = append(validationErrors, "CRYPTO_PRICE must be a decimal greater than 0")
	}
	if c.Crypto.FeeRate.IsNegative() || c.Crypto.FeeRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		validationErrors = append(validationErrors, "CRYPTO_FEE_RATE must be within [0, 1)")
	}

	// P2P
	switch c.P2P.RecipientPolicy {
	case RecipientPolicyPrimary, RecipientPolicyRandom:
	default:
		validationErrors = append(validationErrors, "P2P_RECIPIENT_POLICY must be one of: primary, random")
	}

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, ", "))
	}

	return nil
}
