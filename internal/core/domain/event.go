package domain

import "time"

type EventType string

const (
	EventProductAdded   EventType = "inventory.product_added"
	EventProductUpdated EventType = "inventory.product_updated"
	EventProductDeleted EventType = "inventory.product_deleted"
)

// InventoryEvent describes a change that has been persisted to a store's products.
// Product is nil for deletions.
type InventoryEvent struct {
	EventID    string    `json:"event_id"`
	Type       EventType `json:"type"`
	UserID     int64     `json:"user_id"`
	Email      string    `json:"email"`
	SKU        string    `json:"sku"`
	Product    *Product  `json:"product,omitempty"`
	Version    int64     `json:"version"`
	OccurredAt time.Time `json:"occurred_at"`
}
