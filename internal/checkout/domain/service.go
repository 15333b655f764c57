package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// TrackRequest carries whatever the checkout form has captured so far.
// Everything except the session id may be partial.
type TrackRequest struct {
	SessionID string
	Email     string
	Name      string
	Phone     string
	Cart      map[string]any
	Amount    int64
}

type Service interface {
	// Track records or refreshes the attempt for a session.
	Track(ctx context.Context, req TrackRequest) (CheckoutAttempt, error)

	// Abandon handles the explicit client termination signal.
	Abandon(ctx context.Context, sessionID string) error

	// Recover marks attempts for the identity as recovered once an
	// order reached a success status.
	Recover(ctx context.Context, email string, orderID snowflake.ID) error

	// RevertRecovery flips recovered attempts back to abandoned after
	// an authoritative failure.
	RevertRecovery(ctx context.Context, email string) error

	// SweepAbandoned abandons attempts idle for longer than window.
	SweepAbandoned(ctx context.Context, window time.Duration) (int64, error)

	GetBySessionID(ctx context.Context, sessionID string) (*CheckoutAttempt, error)
}

var (
	ErrInvalidSession = errors.New("invalid_session")
	ErrNotFound       = errors.New("not_found")
)
