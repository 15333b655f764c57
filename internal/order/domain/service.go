package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/storefront/internal/status"
)

// ReconcileInput is the single write path into the order store. Both
// webhook ingestion and the checkout cascade feed through it.
type ReconcileInput struct {
	ExternalOrderID string
	Email           string
	Name            string
	Phone           string
	TaxID           string

	Status        status.Status
	FailureReason string

	Amount         int64
	Subtotal       int64
	Discount       int64
	CouponCode     string
	CouponDiscount int64
	Method         string
	Processor      string
	FallbackUsed   bool
	Metadata       map[string]any
}

type Service interface {
	// Reconcile performs the idempotent create-or-update described by
	// the input. Safe for unordered, duplicate, concurrent invocation.
	Reconcile(ctx context.Context, in ReconcileInput) (*Order, error)

	// FindByExternalID supports polling observers; a missing row is
	// returned as (nil, nil), not an error.
	FindByExternalID(ctx context.Context, externalID string) (*Order, error)
}

var (
	// ErrNoIdentity marks an event that carries neither an external
	// order id nor a customer email. Callers acknowledge and log it.
	ErrNoIdentity = errors.New("no_identity")
)
