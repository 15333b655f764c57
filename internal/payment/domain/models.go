package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// PaymentAttempt is one row per processor call, not per order. A
// cascaded checkout leaves one row per gateway tried.
type PaymentAttempt struct {
	ID             snowflake.ID  `json:"id" gorm:"primaryKey"`
	OrderID        *snowflake.ID `json:"order_id" gorm:"index"`
	IdempotencyKey string        `json:"idempotency_key" gorm:"type:text;not null;index"`
	Processor      string        `json:"processor" gorm:"type:text;not null"`
	Status         string        `json:"status" gorm:"type:text;not null"`
	ErrorCode      string        `json:"error_code" gorm:"type:text"`
	ErrorMessage   string        `json:"error_message" gorm:"type:text"`
	CreatedAt      time.Time     `json:"created_at" gorm:"not null"`
}

func (PaymentAttempt) TableName() string { return "payment_attempts" }

const (
	AttemptStatusSucceeded = "succeeded"
	AttemptStatusFailed    = "failed"
)
