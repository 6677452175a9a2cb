package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rl1809/store-inventory/internal/adapter/storage"
	"github.com/rl1809/store-inventory/internal/core/domain"
	"github.com/rl1809/store-inventory/internal/port"
)

// racingRepo wraps a memory store and, for the first `races` writes, commits a
// competing write just before the caller's one so the caller loses the CAS.
type racingRepo struct {
	*storage.MemoryAdapter

	mu       sync.Mutex
	races    int
	intruder domain.Product
	writes   int
}

func (r *racingRepo) ReplaceProducts(ctx context.Context, owner domain.Owner, products []domain.Product, expectedVersion int64) error {
	r.mu.Lock()
	r.writes++
	race := r.races > 0
	if race {
		r.races--
	}
	r.mu.Unlock()

	if race {
		current, err := r.MemoryAdapter.FindByOwner(ctx, owner)
		if err != nil {
			return err
		}
		intruder := r.intruder
		intruder.SKU = fmt.Sprintf("%s-%d", intruder.SKU, current.Version)
		next := append(current.Products, intruder)
		if err := r.MemoryAdapter.ReplaceProducts(ctx, owner, next, current.Version); err != nil {
			return err
		}
	}
	return r.MemoryAdapter.ReplaceProducts(ctx, owner, products, expectedVersion)
}

// stubRepo returns canned results and counts calls.
type stubRepo struct {
	mu         sync.Mutex
	store      *domain.Store
	findErr    error
	replaceErr error
	panicMsg   string
	finds      int
	replaces   int
}

func (s *stubRepo) FindByOwner(ctx context.Context, owner domain.Owner) (*domain.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finds++
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	if s.findErr != nil {
		return nil, s.findErr
	}
	if s.store == nil {
		return nil, nil
	}
	return &domain.Store{Owner: s.store.Owner, Products: domain.CloneProducts(s.store.Products), Version: s.store.Version}, nil
}

func (s *stubRepo) ReplaceProducts(ctx context.Context, owner domain.Owner, products []domain.Product, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaces++
	return s.replaceErr
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.InventoryEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, event domain.InventoryEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) Events() []domain.InventoryEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.InventoryEvent(nil), p.events...)
}

type recordingMetrics struct {
	mu        sync.Mutex
	outcomes  map[string][]domain.Code
	conflicts map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{outcomes: map[string][]domain.Code{}, conflicts: map[string]int{}}
}

func (m *recordingMetrics) ObserveOperation(op string, code domain.Code, seconds float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes[op] = append(m.outcomes[op], code)
}

func (m *recordingMetrics) IncWriteConflict(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conflicts[op]++
}

func (m *recordingMetrics) Conflicts(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conflicts[op]
}

func (m *recordingMetrics) Outcomes(op string) []domain.Code {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Code(nil), m.outcomes[op]...)
}

type failingLocker struct{}

func (failingLocker) Lock(ctx context.Context, key string) (func(), error) {
	return nil, port.ErrLockNotAcquired
}

var errBoom = errors.New("boom")
