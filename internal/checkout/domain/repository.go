package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// Upsert creates the attempt on first contact and refreshes the
	// captured form data afterwards. The lifecycle status is never
	// modified through this path.
	Upsert(ctx context.Context, db *gorm.DB, attempt *CheckoutAttempt) error
	FindBySessionID(ctx context.Context, db *gorm.DB, sessionID string) (*CheckoutAttempt, error)

	// MarkAbandoned flips a pending attempt on an explicit client
	// signal. Returns the number of rows transitioned.
	MarkAbandoned(ctx context.Context, db *gorm.DB, sessionID string, now time.Time) (int64, error)

	// MarkRecoveredByEmail flips pending or abandoned attempts for the
	// identity once an associated order settles successfully.
	MarkRecoveredByEmail(ctx context.Context, db *gorm.DB, email string, orderID snowflake.ID, now time.Time) (int64, error)

	// RevertRecoveredByEmail undoes an optimistic recovery after an
	// authoritative failure verdict.
	RevertRecoveredByEmail(ctx context.Context, db *gorm.DB, email string, now time.Time) (int64, error)

	// SweepAbandoned abandons pending attempts idle since before cutoff.
	SweepAbandoned(ctx context.Context, db *gorm.DB, cutoff time.Time, now time.Time) (int64, error)
}
