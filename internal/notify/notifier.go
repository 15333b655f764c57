package notify

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// PurchaseEvent is emitted once per order transition into a
// terminal-success status, never per webhook delivery.
type PurchaseEvent struct {
	OrderID         snowflake.ID `json:"order_id"`
	ExternalOrderID string       `json:"external_order_id,omitempty"`
	Email           string       `json:"email"`
	Amount          int64        `json:"amount"`
	Processor       string       `json:"processor"`
	FallbackUsed    bool         `json:"fallback_used"`
}

// Notifier is the outbound interface consumed by conversion tracking
// and access provisioning. Consumers are expected to be idempotent.
type Notifier interface {
	PurchaseCompleted(ctx context.Context, event PurchaseEvent) error
}

type NoOpNotifier struct{}

func (NoOpNotifier) PurchaseCompleted(ctx context.Context, event PurchaseEvent) error {
	return nil
}
