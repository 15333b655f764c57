package domain

import (
	"context"
	"errors"
)

type Service interface {
	// Upsert creates or updates the customer keyed by email and
	// returns the stored row. Last write wins field by field; a blank
	// inbound field never replaces a present one.
	Upsert(ctx context.Context, identity Identity) (Customer, error)
	GetByEmail(ctx context.Context, email string) (*Customer, error)
}

var (
	ErrInvalidEmail = errors.New("invalid_email")
)
