package adapters

import (
	"encoding/json"

	"github.com/smallbiznis/storefront/internal/webhook/domain"
)

// AtlasPay notifies with a nested document: the event name at the
// top, order and customer as embedded objects.
type AtlasPay struct{}

func (AtlasPay) Provider() string { return "atlaspay" }

type atlasPayload struct {
	Event string `json:"event"`
	Order struct {
		ID            string `json:"id"`
		Status        string `json:"status"`
		AmountCents   int64  `json:"amount_cents"`
		SubtotalCents int64  `json:"subtotal_cents"`
		DiscountCents int64  `json:"discount_cents"`
		Coupon        struct {
			Code          string `json:"code"`
			DiscountCents int64  `json:"discount_cents"`
		} `json:"coupon"`
		Payment struct {
			Method        string `json:"method"`
			RefusalReason string `json:"refusal_reason"`
		} `json:"payment"`
	} `json:"order"`
	Customer struct {
		Email    string `json:"email"`
		Name     string `json:"name"`
		Phone    string `json:"phone"`
		Document string `json:"document"`
	} `json:"customer"`
	Metadata map[string]any `json:"metadata"`
}

func (AtlasPay) Parse(payload []byte) (domain.NormalizedEvent, error) {
	var body atlasPayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return domain.NormalizedEvent{}, domain.ErrMalformedPayload
	}
	return domain.NormalizedEvent{
		Provider:        "atlaspay",
		EventName:       body.Event,
		RawStatus:       body.Order.Status,
		ExternalOrderID: body.Order.ID,
		Email:           body.Customer.Email,
		Name:            body.Customer.Name,
		Phone:           body.Customer.Phone,
		TaxID:           body.Customer.Document,
		Amount:          body.Order.AmountCents,
		Subtotal:        body.Order.SubtotalCents,
		Discount:        body.Order.DiscountCents,
		CouponCode:      body.Order.Coupon.Code,
		CouponDiscount:  body.Order.Coupon.DiscountCents,
		Method:          body.Order.Payment.Method,
		FailureReason:   body.Order.Payment.RefusalReason,
		Metadata:        body.Metadata,
	}, nil
}
