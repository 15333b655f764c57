package adapters

import (
	"encoding/json"

	"github.com/smallbiznis/storefront/internal/webhook/domain"
)

// NexoPay notifies with one flat object.
type NexoPay struct{}

func (NexoPay) Provider() string { return "nexopay" }

type nexoPayload struct {
	EventType      string         `json:"event_type"`
	TransactionID  string         `json:"transaction_id"`
	Status         string         `json:"status"`
	Amount         int64          `json:"amount"`
	Subtotal       int64          `json:"subtotal"`
	Discount       int64          `json:"discount"`
	CouponCode     string         `json:"coupon_code"`
	CouponDiscount int64          `json:"coupon_discount"`
	PaymentMethod  string         `json:"payment_method"`
	FailureReason  string         `json:"failure_reason"`
	CustomerEmail  string         `json:"customer_email"`
	CustomerName   string         `json:"customer_name"`
	CustomerPhone  string         `json:"customer_phone"`
	CustomerTaxID  string         `json:"customer_tax_id"`
	Metadata       map[string]any `json:"metadata"`
}

func (NexoPay) Parse(payload []byte) (domain.NormalizedEvent, error) {
	var body nexoPayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return domain.NormalizedEvent{}, domain.ErrMalformedPayload
	}
	return domain.NormalizedEvent{
		Provider:        "nexopay",
		EventName:       body.EventType,
		RawStatus:       body.Status,
		ExternalOrderID: body.TransactionID,
		Email:           body.CustomerEmail,
		Name:            body.CustomerName,
		Phone:           body.CustomerPhone,
		TaxID:           body.CustomerTaxID,
		Amount:          body.Amount,
		Subtotal:        body.Subtotal,
		Discount:        body.Discount,
		CouponCode:      body.CouponCode,
		CouponDiscount:  body.CouponDiscount,
		Method:          body.PaymentMethod,
		FailureReason:   body.FailureReason,
		Metadata:        body.Metadata,
	}, nil
}
