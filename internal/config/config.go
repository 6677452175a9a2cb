package config

import (
	"fmt"
	"runtime"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "inventory"

const (
	BackendMemory = "memory"
	BackendMySQL  = "mysql"
	BackendMongo  = "mongo"
)

// Config is read from INVENTORY_* environment variables.
type Config struct {
	ServiceName string `envconfig:"SERVICE_NAME" default:"store-inventory"`
	HTTPAddr    string `envconfig:"HTTP_ADDR" default:":8080"`
	GRPCAddr    string `envconfig:"GRPC_ADDR" default:":50051"`

	StoreBackend  string `envconfig:"STORE_BACKEND" default:"memory"`
	MySQLDSN      string `envconfig:"MYSQL_DSN"`
	MongoURI      string `envconfig:"MONGO_URI" default:"mongodb://localhost:27017"`
	MongoDatabase string `envconfig:"MONGO_DATABASE" default:"inventory"`

	RedisAddr      string        `envconfig:"REDIS_ADDR"`
	LockTTL        time.Duration `envconfig:"LOCK_TTL" default:"5s"`
	MaxRetries     int           `envconfig:"MAX_RETRIES" default:"10"`
	RetryBackoff   time.Duration `envconfig:"RETRY_BACKOFF" default:"2ms"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"5s"`

	BreakerFailures uint32        `envconfig:"BREAKER_FAILURES" default:"5"`
	BreakerTimeout  time.Duration `envconfig:"BREAKER_TIMEOUT" default:"30s"`

	KafkaBrokers []string `envconfig:"KAFKA_BROKERS"`
	KafkaTopic   string   `envconfig:"KAFKA_TOPIC" default:"inventory.events"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	OTLPEndpoint string `envconfig:"OTLP_ENDPOINT"`

	Workers int `envconfig:"WORKERS" default:"0"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendMemory:
	case BackendMySQL:
		if c.MySQLDSN == "" {
			return fmt.Errorf("INVENTORY_MYSQL_DSN is required for the mysql backend")
		}
	case BackendMongo:
		if c.MongoURI == "" || c.MongoDatabase == "" {
			return fmt.Errorf("INVENTORY_MONGO_URI and INVENTORY_MONGO_DATABASE are required for the mongo backend")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.StoreBackend)
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("max retries must be positive, got %d", c.MaxRetries)
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff must not be negative, got %s", c.RetryBackoff)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	return nil
}

// WorkerCount is the number of processes the supervisor runs.
func (c *Config) WorkerCount() int {
	if c.Workers == 0 {
		return runtime.NumCPU()
	}
	return c.Workers
}

// ValidateSupervised checks that the configuration can back more than one
// server process. Every worker opens its own connections, so an in-memory
// store would give each process a private copy of the inventory.
func (c *Config) ValidateSupervised() error {
	if c.StoreBackend == BackendMemory && c.WorkerCount() > 1 {
		return fmt.Errorf("supervise with %d workers needs a shared store backend (mysql or mongo), got %q; set INVENTORY_WORKERS=1 or change INVENTORY_STORE_BACKEND", c.WorkerCount(), c.StoreBackend)
	}
	return nil
}
