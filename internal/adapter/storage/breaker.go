package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/rl1809/store-inventory/internal/core/domain"
	"github.com/rl1809/store-inventory/internal/port"
)

var ErrRepositoryUnavailable = errors.New("store repository unavailable")

type BreakerConfig struct {
	Name             string
	FailureThreshold uint32
	Timeout          time.Duration
}

// BreakerRepository fails fast once the wrapped repository keeps erroring.
// Version conflicts are normal traffic and never count as failures.
type BreakerRepository struct {
	next port.StoreRepository
	cb   *gobreaker.CircuitBreaker
}

func NewBreakerRepository(next port.StoreRepository, cfg BreakerConfig) *BreakerRepository {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state changed")
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, port.ErrVersionConflict)
		},
	}
	return &BreakerRepository{next: next, cb: gobreaker.NewCircuitBreaker(settings)}
}

func (b *BreakerRepository) FindByOwner(ctx context.Context, owner domain.Owner) (*domain.Store, error) {
	v, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.FindByOwner(ctx, owner)
	})
	if err != nil {
		return nil, b.translate(err)
	}
	store, _ := v.(*domain.Store)
	return store, nil
}

func (b *BreakerRepository) ReplaceProducts(ctx context.Context, owner domain.Owner, products []domain.Product, expectedVersion int64) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.next.ReplaceProducts(ctx, owner, products, expectedVersion)
	})
	return b.translate(err)
}

func (b *BreakerRepository) State() gobreaker.State {
	return b.cb.State()
}

func (b *BreakerRepository) translate(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %s: %v", ErrRepositoryUnavailable, b.cb.Name(), err)
	}
	return err
}
