package storage

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/store-inventory/internal/core/domain"
	"github.com/rl1809/store-inventory/internal/port"
)

type testBackend interface {
	port.StoreRepository
	port.StoreProvisioner
}

// runRepositoryContract checks the behavior every backend must share. Owners
// are made unique per run so the same database can be reused.
func runRepositoryContract(t *testing.T, backend testBackend) {
	base := time.Now().UnixNano()

	t.Run("missing store", func(t *testing.T) {
		ctx := context.Background()
		ghost := domain.Owner{UserID: base, Email: "ghost@example.com"}

		store, err := backend.FindByOwner(ctx, ghost)
		require.NoError(t, err)
		assert.Nil(t, store)

		err = backend.ReplaceProducts(ctx, ghost, []domain.Product{{SKU: "a"}}, 0)
		assert.ErrorIs(t, err, port.ErrVersionConflict)
	})

	t.Run("provision is idempotent", func(t *testing.T) {
		ctx := context.Background()
		owner := domain.Owner{UserID: base + 1, Email: "Owner@Example.com"}

		require.NoError(t, backend.Provision(ctx, owner))
		require.NoError(t, backend.ReplaceProducts(ctx, owner, []domain.Product{{SKU: "keep"}}, 0))
		require.NoError(t, backend.Provision(ctx, owner))

		store, err := backend.FindByOwner(ctx, domain.Owner{UserID: base + 1, Email: "owner@example.com"})
		require.NoError(t, err)
		require.NotNil(t, store)
		assert.Equal(t, "owner@example.com", store.Owner.Email)
		assert.Equal(t, int64(1), store.Version)
		require.Len(t, store.Products, 1)
		assert.Equal(t, "keep", store.Products[0].SKU)
	})

	t.Run("replace round trips every field", func(t *testing.T) {
		ctx := context.Background()
		owner := domain.Owner{UserID: base + 2, Email: "fields@example.com"}
		require.NoError(t, backend.Provision(ctx, owner))

		store, err := backend.FindByOwner(ctx, owner)
		require.NoError(t, err)
		require.NotNil(t, store.Products)
		assert.Empty(t, store.Products)
		assert.Zero(t, store.Version)

		products := []domain.Product{
			{
				SKU: "milk", Name: "Milk", Category: "dairy", Quantity: 12, Price: 1.25,
				ExpiryDate: "2026-11-01", ManufacturingDate: "2026-10-01", Description: "semi-skimmed",
			},
			{SKU: "bread", Name: "Bread", Quantity: 3, Price: 2},
		}
		require.NoError(t, backend.ReplaceProducts(ctx, owner, products, 0))

		store, err = backend.FindByOwner(ctx, owner)
		require.NoError(t, err)
		assert.Equal(t, products, store.Products)
		assert.Equal(t, int64(1), store.Version)

		require.NoError(t, backend.ReplaceProducts(ctx, owner, nil, 1))
		store, err = backend.FindByOwner(ctx, owner)
		require.NoError(t, err)
		require.NotNil(t, store.Products)
		assert.Empty(t, store.Products)
		assert.Equal(t, int64(2), store.Version)
	})

	t.Run("stale version is rejected", func(t *testing.T) {
		ctx := context.Background()
		owner := domain.Owner{UserID: base + 3, Email: "stale@example.com"}
		require.NoError(t, backend.Provision(ctx, owner))
		require.NoError(t, backend.ReplaceProducts(ctx, owner, []domain.Product{{SKU: "first"}}, 0))

		err := backend.ReplaceProducts(ctx, owner, []domain.Product{{SKU: "second"}}, 0)
		assert.ErrorIs(t, err, port.ErrVersionConflict)

		store, err := backend.FindByOwner(ctx, owner)
		require.NoError(t, err)
		require.Len(t, store.Products, 1)
		assert.Equal(t, "first", store.Products[0].SKU)
	})

	t.Run("concurrent writers at one version", func(t *testing.T) {
		ctx := context.Background()
		owner := domain.Owner{UserID: base + 4, Email: "race@example.com"}
		require.NoError(t, backend.Provision(ctx, owner))

		const writers = 20
		var won, lost atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				err := backend.ReplaceProducts(ctx, owner, []domain.Product{{SKU: fmt.Sprintf("w%d", i)}}, 0)
				switch {
				case err == nil:
					won.Add(1)
				case assert.ErrorIs(t, err, port.ErrVersionConflict):
					lost.Add(1)
				}
			}(i)
		}
		wg.Wait()

		assert.Equal(t, int32(1), won.Load())
		assert.Equal(t, int32(writers-1), lost.Load())

		store, err := backend.FindByOwner(ctx, owner)
		require.NoError(t, err)
		assert.Equal(t, int64(1), store.Version)
		assert.Len(t, store.Products, 1)
	})
}
