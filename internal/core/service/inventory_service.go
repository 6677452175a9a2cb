package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rl1809/store-inventory/internal/core/domain"
	"github.com/rl1809/store-inventory/internal/port"
)

var (
	ErrStoreNotFound    = errors.New("store not found")
	ErrProductNotFound  = errors.New("product not found")
	ErrProductExists    = errors.New("product already exists")
	ErrTooManyConflicts = errors.New("too many concurrent writes to store")
)

const (
	OpAdd    = "add"
	OpList   = "list"
	OpUpdate = "update"
	OpDelete = "delete"

	DefaultMaxRetries = 10

	DefaultRetryBackoff = 2 * time.Millisecond
	maxRetryBackoff     = 50 * time.Millisecond
)

type Option func(*InventoryService)

// WithLocker serializes mutations per owner. Without a locker the service
// relies on version checks alone.
func WithLocker(l port.Locker) Option {
	return func(s *InventoryService) { s.locker = l }
}

func WithPublisher(p port.EventPublisher) Option {
	return func(s *InventoryService) { s.publisher = p }
}

func WithMetrics(m port.Metrics) Option {
	return func(s *InventoryService) { s.metrics = m }
}

func WithMaxRetries(n int) Option {
	return func(s *InventoryService) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

// WithRetryBackoff sets the base delay between conflicting attempts. The
// delay doubles per attempt up to 50ms, or up to d when d is larger, and is
// jittered. Zero disables it.
func WithRetryBackoff(d time.Duration) Option {
	return func(s *InventoryService) {
		if d >= 0 {
			s.retryBackoff = d
		}
	}
}

type InventoryService struct {
	repo         port.StoreRepository
	locker       port.Locker
	publisher    port.EventPublisher
	metrics      port.Metrics
	maxRetries   int
	retryBackoff time.Duration
	tracer       trace.Tracer
}

func NewInventoryService(repo port.StoreRepository, opts ...Option) *InventoryService {
	s := &InventoryService{
		repo:         repo,
		metrics:      nopMetrics{},
		maxRetries:   DefaultMaxRetries,
		retryBackoff: DefaultRetryBackoff,
		tracer:       otel.Tracer("github.com/rl1809/store-inventory/internal/core/service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddInventory appends product to the owner's store unless its SKU is already present.
func (s *InventoryService) AddInventory(ctx context.Context, owner domain.Owner, product domain.Product) (res domain.Result) {
	ctx, span := s.tracer.Start(ctx, "InventoryService.AddInventory")
	defer s.finish(span, OpAdd, time.Now(), &res)
	defer s.recoverFailure(OpAdd, &res)

	owner = owner.Normalized()
	product = product.Normalized()
	span.SetAttributes(attribute.String("inventory.owner", owner.Key()), attribute.String("inventory.sku", product.SKU))

	err := s.mutate(ctx, OpAdd, owner, func(products []domain.Product) ([]domain.Product, *domain.InventoryEvent, error) {
		if domain.IndexOfSKU(products, product.SKU) >= 0 {
			return nil, nil, ErrProductExists
		}
		added := product
		return append(products, product), newEvent(domain.EventProductAdded, owner, product.SKU, &added), nil
	})
	return s.outcome(OpAdd, owner, err, domain.ProductAdded())
}

// GetAllInventory returns the owner's product list.
func (s *InventoryService) GetAllInventory(ctx context.Context, owner domain.Owner) (res domain.Result) {
	ctx, span := s.tracer.Start(ctx, "InventoryService.GetAllInventory")
	defer s.finish(span, OpList, time.Now(), &res)
	defer s.recoverFailure(OpList, &res)

	owner = owner.Normalized()
	span.SetAttributes(attribute.String("inventory.owner", owner.Key()))

	store, err := s.repo.FindByOwner(ctx, owner)
	if err != nil {
		return s.outcome(OpList, owner, fmt.Errorf("find store: %w", err), domain.Result{})
	}
	if store == nil {
		return domain.InventoryNotFound()
	}
	return domain.InventoryFound(domain.CloneProducts(store.Products))
}

// UpdateInventory replaces the product with the given SKU by fields. The
// replacement moves to the end of the list.
func (s *InventoryService) UpdateInventory(ctx context.Context, owner domain.Owner, sku string, fields domain.Product) (res domain.Result) {
	ctx, span := s.tracer.Start(ctx, "InventoryService.UpdateInventory")
	defer s.finish(span, OpUpdate, time.Now(), &res)
	defer s.recoverFailure(OpUpdate, &res)

	owner = owner.Normalized()
	sku = domain.NormalizeSKU(sku)
	span.SetAttributes(attribute.String("inventory.owner", owner.Key()), attribute.String("inventory.sku", sku))

	replacement := fields
	replacement.SKU = sku

	err := s.mutate(ctx, OpUpdate, owner, func(products []domain.Product) ([]domain.Product, *domain.InventoryEvent, error) {
		i := domain.IndexOfSKU(products, sku)
		if i < 0 {
			return nil, nil, ErrProductNotFound
		}
		updated := replacement
		next := append(domain.WithoutIndex(products, i), replacement)
		return next, newEvent(domain.EventProductUpdated, owner, sku, &updated), nil
	})
	return s.outcome(OpUpdate, owner, err, domain.ProductUpdated())
}

// DeleteInventory removes the product with the given SKU.
func (s *InventoryService) DeleteInventory(ctx context.Context, owner domain.Owner, sku string) (res domain.Result) {
	ctx, span := s.tracer.Start(ctx, "InventoryService.DeleteInventory")
	defer s.finish(span, OpDelete, time.Now(), &res)
	defer s.recoverFailure(OpDelete, &res)

	owner = owner.Normalized()
	sku = domain.NormalizeSKU(sku)
	span.SetAttributes(attribute.String("inventory.owner", owner.Key()), attribute.String("inventory.sku", sku))

	err := s.mutate(ctx, OpDelete, owner, func(products []domain.Product) ([]domain.Product, *domain.InventoryEvent, error) {
		i := domain.IndexOfSKU(products, sku)
		if i < 0 {
			return nil, nil, ErrProductNotFound
		}
		return domain.WithoutIndex(products, i), newEvent(domain.EventProductDeleted, owner, sku, nil), nil
	})
	return s.outcome(OpDelete, owner, err, domain.ProductDeleted())
}

// mutation computes the next product list from a private copy of the current
// one, plus the event describing the change.
type mutation func(products []domain.Product) ([]domain.Product, *domain.InventoryEvent, error)

// mutate runs fetch, compute and conditional write under the owner's lock,
// starting over whenever the write loses a version race.
func (s *InventoryService) mutate(ctx context.Context, op string, owner domain.Owner, apply mutation) error {
	unlock, err := s.lock(ctx, owner)
	if err != nil {
		return fmt.Errorf("lock store %s: %w", owner.Key(), err)
	}
	defer unlock()

	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		store, err := s.repo.FindByOwner(ctx, owner)
		if err != nil {
			return fmt.Errorf("find store: %w", err)
		}
		if store == nil {
			return ErrStoreNotFound
		}

		next, event, err := apply(domain.CloneProducts(store.Products))
		if err != nil {
			return err
		}

		err = s.repo.ReplaceProducts(ctx, owner, next, store.Version)
		if errors.Is(err, port.ErrVersionConflict) {
			s.metrics.IncWriteConflict(op)
			log.Debug().
				Str("operation", op).
				Str("owner", owner.Key()).
				Int("attempt", attempt).
				Msg("store changed concurrently, retrying")
			if attempt < s.maxRetries {
				if err := s.backoff(ctx, attempt); err != nil {
					return err
				}
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("replace products: %w", err)
		}

		if event != nil {
			event.Version = store.Version + 1
			s.publish(ctx, *event)
		}
		return nil
	}

	return ErrTooManyConflicts
}

// backoff waits a jittered, exponentially growing delay before the next
// attempt, returning early with the context error if ctx ends first.
func (s *InventoryService) backoff(ctx context.Context, attempt int) error {
	if s.retryBackoff <= 0 {
		return nil
	}
	d := s.retryBackoff << min(attempt-1, 5)
	if d <= 0 || d > maxRetryBackoff {
		d = max(maxRetryBackoff, s.retryBackoff)
	}
	d = d/2 + rand.N(d/2+1)

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *InventoryService) lock(ctx context.Context, owner domain.Owner) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	return s.locker.Lock(ctx, owner.Key())
}

// publish is best effort: the write it describes has already been applied.
func (s *InventoryService) publish(ctx context.Context, event domain.InventoryEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.Warn().
			Err(err).
			Str("event_type", string(event.Type)).
			Str("sku", event.SKU).
			Msg("Failed to publish inventory event")
	}
}

func (s *InventoryService) outcome(op string, owner domain.Owner, err error, success domain.Result) domain.Result {
	switch {
	case err == nil:
		return success
	case errors.Is(err, ErrStoreNotFound):
		return domain.StoreNotFound()
	case errors.Is(err, ErrProductNotFound):
		return domain.ProductNotFound()
	case errors.Is(err, ErrProductExists):
		return domain.ProductExists()
	}

	log.Error().Err(err).Str("operation", op).Str("owner", owner.Key()).Msg("Inventory operation failed")
	return domain.Failed()
}

func (s *InventoryService) recoverFailure(op string, res *domain.Result) {
	if r := recover(); r != nil {
		log.Error().Interface("panic", r).Str("operation", op).Msg("Recovered panic in inventory operation")
		*res = domain.Failed()
	}
}

func (s *InventoryService) finish(span trace.Span, op string, start time.Time, res *domain.Result) {
	s.metrics.ObserveOperation(op, res.Code, time.Since(start).Seconds())
	span.SetAttributes(attribute.String("inventory.outcome", string(res.Code)))
	if res.Code == domain.CodeFail {
		span.SetStatus(codes.Error, res.Message)
	}
	span.End()
}

func newEvent(t domain.EventType, owner domain.Owner, sku string, product *domain.Product) *domain.InventoryEvent {
	return &domain.InventoryEvent{
		EventID:    uuid.NewString(),
		Type:       t,
		UserID:     owner.UserID,
		Email:      owner.Email,
		SKU:        sku,
		Product:    product,
		OccurredAt: time.Now().UTC(),
	}
}

type nopMetrics struct{}

func (nopMetrics) ObserveOperation(string, domain.Code, float64) {}
func (nopMetrics) IncWriteConflict(string)                       {}
