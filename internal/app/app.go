// Package app assembles the inventory service from configuration.
package app

import (
	"context"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/rl1809/store-inventory/internal/adapter/lock"
	"github.com/rl1809/store-inventory/internal/adapter/messaging"
	"github.com/rl1809/store-inventory/internal/adapter/storage"
	"github.com/rl1809/store-inventory/internal/config"
	"github.com/rl1809/store-inventory/internal/core/service"
	"github.com/rl1809/store-inventory/internal/metrics"
	"github.com/rl1809/store-inventory/internal/port"
)

type App struct {
	Service     *service.InventoryService
	Provisioner port.StoreProvisioner
	Metrics     *metrics.Metrics

	closers []func(context.Context) error
}

// Build connects to the configured backends. Close releases them in reverse order.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Metrics: metrics.New()}

	repo, provisioner, err := a.openStore(ctx, cfg)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	a.Provisioner = provisioner

	locker, err := a.openLocker(ctx, cfg)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	opts := []service.Option{
		service.WithLocker(locker),
		service.WithMetrics(a.Metrics),
		service.WithMaxRetries(cfg.MaxRetries),
		service.WithRetryBackoff(cfg.RetryBackoff),
	}
	if len(cfg.KafkaBrokers) > 0 {
		publisher := messaging.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		a.closers = append(a.closers, func(context.Context) error { return publisher.Close() })
		opts = append(opts, service.WithPublisher(publisher))
		log.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("Publishing inventory events to kafka")
	}

	repo = storage.NewBreakerRepository(repo, storage.BreakerConfig{
		Name:             cfg.StoreBackend,
		FailureThreshold: cfg.BreakerFailures,
		Timeout:          cfg.BreakerTimeout,
	})
	a.Service = service.NewInventoryService(repo, opts...)
	return a, nil
}

func (a *App) Close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to close resource")
		}
	}
	a.closers = nil
}

type storeBackend interface {
	port.StoreRepository
	port.StoreProvisioner
}

func (a *App) openStore(ctx context.Context, cfg *config.Config) (port.StoreRepository, port.StoreProvisioner, error) {
	var backend storeBackend

	switch cfg.StoreBackend {
	case config.BackendMySQL:
		db, err := sqlx.ConnectContext(ctx, "mysql", cfg.MySQLDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect mysql: %w", err)
		}
		db.SetMaxOpenConns(50)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
		a.closers = append(a.closers, func(context.Context) error { return db.Close() })

		adapter := storage.NewMySQLAdapter(db)
		if err := adapter.EnsureSchema(ctx); err != nil {
			return nil, nil, err
		}
		backend = adapter
		log.Info().Msg("Connected to mysql")

	case config.BackendMongo:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return nil, nil, fmt.Errorf("connect mongodb: %w", err)
		}
		a.closers = append(a.closers, client.Disconnect)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
			return nil, nil, fmt.Errorf("ping mongodb: %w", err)
		}

		adapter := storage.NewMongoAdapter(client.Database(cfg.MongoDatabase))
		if err := adapter.EnsureIndexes(ctx); err != nil {
			return nil, nil, err
		}
		backend = adapter
		log.Info().Str("database", cfg.MongoDatabase).Msg("Connected to mongodb")

	default:
		backend = storage.NewMemoryAdapter()
		log.Warn().Msg("Using in-memory store; data is lost on exit and not shared between workers")
	}

	return backend, backend, nil
}

func (a *App) openLocker(ctx context.Context, cfg *config.Config) (port.Locker, error) {
	if cfg.RedisAddr == "" {
		if cfg.StoreBackend != config.BackendMemory {
			log.Warn().Str("backend", cfg.StoreBackend).
				Msg("No INVENTORY_REDIS_ADDR set: store locks are per process, so writers in other processes rely on version retries alone")
		}
		return lock.NewKeyedMutex(), nil
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, PoolSize: 100})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error { return rdb.Close() })
	log.Info().Str("addr", cfg.RedisAddr).Msg("Using redis store locks")

	return lock.NewRedisLocker(rdb, cfg.LockTTL), nil
}
