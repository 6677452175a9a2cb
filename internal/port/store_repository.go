package port

import (
	"context"
	"errors"

	"github.com/rl1809/store-inventory/internal/core/domain"
)

// ErrVersionConflict is returned by ReplaceProducts when the stored version no
// longer matches the one the caller read.
var ErrVersionConflict = errors.New("store version conflict")

type StoreRepository interface {
	// FindByOwner returns the store owned by owner, or nil if there is none.
	FindByOwner(ctx context.Context, owner domain.Owner) (*domain.Store, error)

	// ReplaceProducts overwrites the product list if the store is still at
	// expectedVersion, bumping the version by one.
	ReplaceProducts(ctx context.Context, owner domain.Owner, products []domain.Product, expectedVersion int64) error
}

// StoreProvisioner creates empty store records. Inventory operations never
// call it; it backs the provision command and test setup.
type StoreProvisioner interface {
	Provision(ctx context.Context, owner domain.Owner) error
}
