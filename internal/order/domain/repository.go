package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, order *Order) error

	// Update writes the merged row guarded by a compare-and-set on the
	// previous status, so the winner of a concurrent race is the only
	// caller that observes the transition. Returns rows affected.
	Update(ctx context.Context, db *gorm.DB, order *Order, prev string) (int64, error)

	FindByExternalID(ctx context.Context, db *gorm.DB, externalID string) (*Order, error)

	// FindRecentByEmail returns the newest order for the email created
	// strictly after since and still in a non-terminal status.
	FindRecentByEmail(ctx context.Context, db *gorm.DB, email string, since time.Time) (*Order, error)
}
