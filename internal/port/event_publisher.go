package port

import (
	"context"

	"github.com/rl1809/store-inventory/internal/core/domain"
)

type EventPublisher interface {
	Publish(ctx context.Context, event domain.InventoryEvent) error
}

// Metrics receives per-operation observations from the inventory service.
type Metrics interface {
	ObserveOperation(operation string, code domain.Code, seconds float64)
	IncWriteConflict(operation string)
}
