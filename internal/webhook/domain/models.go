package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// WebhookLog is the append-only delivery record. One row per inbound
// request, written regardless of outcome.
type WebhookLog struct {
	ID         snowflake.ID   `json:"id" gorm:"primaryKey"`
	Provider   string         `json:"provider" gorm:"type:text;not null;index"`
	Payload    datatypes.JSON `json:"payload" gorm:"type:jsonb"`
	Verified   bool           `json:"verified" gorm:"not null"`
	EventType  string         `json:"event_type" gorm:"type:text"`
	Outcome    string         `json:"outcome" gorm:"type:text;not null"`
	StatusCode int            `json:"status_code" gorm:"not null"`
	DurationMs int64          `json:"duration_ms" gorm:"not null"`
	Error      string         `json:"error" gorm:"type:text"`
	CreatedAt  time.Time      `json:"created_at" gorm:"not null"`
}

func (WebhookLog) TableName() string { return "webhook_logs" }

// NormalizedEvent is what a provider adapter extracts from a raw
// payload before status resolution.
type NormalizedEvent struct {
	Provider        string
	EventName       string
	RawStatus       string
	ExternalOrderID string

	Email string
	Name  string
	Phone string
	TaxID string

	Amount         int64
	Subtotal       int64
	Discount       int64
	CouponCode     string
	CouponDiscount int64
	Method         string
	FailureReason  string
	Metadata       map[string]any
}

// Outcome classifies one delivery for the log and metrics.
const (
	OutcomeProcessed               = "processed"
	OutcomeIgnoredUnmappable       = "ignored_unmappable"
	OutcomeIgnoredNoIdentity       = "ignored_no_identity"
	OutcomeRejectedSignature       = "rejected_signature"
	OutcomeRejectedStale           = "rejected_stale_timestamp"
	OutcomeRejectedMalformed       = "rejected_malformed"
	OutcomeFailedStorage           = "failed_storage"
	OutcomeRejectedUnknownProvider = "rejected_unknown_provider"
)

var (
	ErrInvalidSignature = errors.New("invalid_signature")
	ErrStaleTimestamp   = errors.New("stale_timestamp")
	ErrMalformedPayload = errors.New("malformed_payload")
	ErrUnknownProvider  = errors.New("unknown_provider")
)
