package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/store-inventory/internal/core/domain"
)

func TestMemoryAdapter_Contract(t *testing.T) {
	runRepositoryContract(t, NewMemoryAdapter())
}

func TestMemoryAdapter_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	adapter := NewMemoryAdapter()
	owner := domain.Owner{UserID: 1, Email: "a@x.com"}
	require.NoError(t, adapter.Provision(ctx, owner))

	products := []domain.Product{{SKU: "a", Quantity: 1}}
	require.NoError(t, adapter.ReplaceProducts(ctx, owner, products, 0))
	products[0].Quantity = 50

	store, err := adapter.FindByOwner(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 1, store.Products[0].Quantity)

	store.Products[0].Quantity = 99
	again, err := adapter.FindByOwner(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 1, again.Products[0].Quantity)
}
