package storage

import (
	"context"
	"sync"

	"github.com/rl1809/store-inventory/internal/core/domain"
	"github.com/rl1809/store-inventory/internal/port"
)

// MemoryAdapter keeps stores in process memory. Callers always receive copies.
type MemoryAdapter struct {
	mu     sync.RWMutex
	stores map[string]*domain.Store
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{stores: make(map[string]*domain.Store)}
}

func (m *MemoryAdapter) Provision(ctx context.Context, owner domain.Owner) error {
	owner = owner.Normalized()

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.stores[owner.Key()]; ok {
		return nil
	}
	m.stores[owner.Key()] = &domain.Store{Owner: owner, Products: []domain.Product{}}
	return nil
}

func (m *MemoryAdapter) FindByOwner(ctx context.Context, owner domain.Owner) (*domain.Store, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.stores[owner.Key()]
	if !ok {
		return nil, nil
	}
	return &domain.Store{
		Owner:    s.Owner,
		Products: domain.CloneProducts(s.Products),
		Version:  s.Version,
	}, nil
}

func (m *MemoryAdapter) ReplaceProducts(ctx context.Context, owner domain.Owner, products []domain.Product, expectedVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.stores[owner.Key()]
	if !ok || s.Version != expectedVersion {
		return port.ErrVersionConflict
	}
	s.Products = domain.CloneProducts(products)
	s.Version++
	return nil
}
