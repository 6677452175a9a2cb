package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/store-inventory/internal/config"
	"github.com/rl1809/store-inventory/internal/core/domain"
)

func memoryConfig() *config.Config {
	return &config.Config{
		StoreBackend:    config.BackendMemory,
		MaxRetries:      10,
		BreakerFailures: 5,
	}
}

func TestBuild_MemoryBackend(t *testing.T) {
	ctx := context.Background()
	a, err := Build(ctx, memoryConfig())
	require.NoError(t, err)
	defer a.Close(ctx)

	owner := domain.NewOwner(1, "shop@example.com")
	assert.Equal(t, domain.CodeNotFound, a.Service.GetAllInventory(ctx, owner).Code)

	require.NoError(t, a.Provisioner.Provision(ctx, owner))
	assert.Equal(t, domain.CodeCreated, a.Service.AddInventory(ctx, owner, domain.Product{SKU: "a"}).Code)
	assert.Len(t, a.Service.GetAllInventory(ctx, owner).Data, 1)
	assert.NotNil(t, a.Metrics)
}

func TestBuild_WithKafkaPublisher(t *testing.T) {
	ctx := context.Background()
	cfg := memoryConfig()
	cfg.KafkaBrokers = []string{"localhost:1"}
	cfg.KafkaTopic = "inventory.events"

	a, err := Build(ctx, cfg)
	require.NoError(t, err)
	assert.Len(t, a.closers, 1)

	a.Close(ctx)
	assert.Empty(t, a.closers)
}

func TestBuild_UnreachableRedis(t *testing.T) {
	cfg := memoryConfig()
	cfg.RedisAddr = "127.0.0.1:1"

	_, err := Build(context.Background(), cfg)
	assert.Error(t, err)
}
