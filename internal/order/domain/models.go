package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/storefront/internal/status"
	"gorm.io/datatypes"
)

// Order is the canonical record for a processor-side order. Exactly one
// row exists per external order id.
type Order struct {
	ID              snowflake.ID   `gorm:"primaryKey" json:"id"`
	ExternalOrderID *string        `gorm:"uniqueIndex" json:"external_order_id,omitempty"`
	CustomerID      snowflake.ID   `gorm:"index" json:"customer_id,omitempty"`
	CustomerEmail   string         `gorm:"index" json:"customer_email,omitempty"`
	Amount          int64          `json:"amount"`
	Subtotal        int64          `json:"subtotal,omitempty"`
	Discount        int64          `json:"discount,omitempty"`
	CouponCode      string         `json:"coupon_code,omitempty"`
	CouponDiscount  int64          `json:"coupon_discount,omitempty"`
	Status          status.Status  `gorm:"not null;index" json:"status"`
	FailureReason   *string        `json:"failure_reason,omitempty"`
	Method          string         `json:"method,omitempty"`
	Processor       string         `json:"processor,omitempty"`
	FallbackUsed    bool           `gorm:"not null;default:false" json:"fallback_used"`
	Metadata        datatypes.JSON `json:"metadata,omitempty"`
	CreatedAt       time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null" json:"updated_at"`
}

func (Order) TableName() string { return "orders" }
