package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// AttemptStatus is the lifecycle of a pre-purchase session.
type AttemptStatus string

const (
	AttemptPending   AttemptStatus = "pending"
	AttemptRecovered AttemptStatus = "recovered"
	AttemptAbandoned AttemptStatus = "abandoned"
)

// CanTransition encodes the lifecycle lattice. Recovered and abandoned
// may flip into each other (late webhook settles a cascade, or a
// failure verdict reverts an optimistic recovery), but nothing goes
// back to pending.
func (s AttemptStatus) CanTransition(to AttemptStatus) bool {
	if s == to {
		return false
	}
	switch to {
	case AttemptPending:
		return false
	case AttemptRecovered, AttemptAbandoned:
		return true
	}
	return false
}

type CheckoutAttempt struct {
	ID            snowflake.ID   `gorm:"primaryKey" json:"id"`
	SessionID     string         `gorm:"uniqueIndex;not null" json:"session_id"`
	CustomerEmail string         `gorm:"index" json:"customer_email,omitempty"`
	CustomerName  string         `json:"customer_name,omitempty"`
	CustomerPhone string         `json:"customer_phone,omitempty"`
	Cart          datatypes.JSON `json:"cart,omitempty"`
	Amount        int64          `json:"amount"`
	Status        AttemptStatus  `gorm:"not null;index" json:"status"`
	OrderID       *snowflake.ID  `json:"order_id,omitempty"`
	RecoveredAt   *time.Time     `json:"recovered_at,omitempty"`
	AbandonedAt   *time.Time     `json:"abandoned_at,omitempty"`
	CreatedAt     time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null" json:"updated_at"`
}

func (CheckoutAttempt) TableName() string { return "checkout_attempts" }
