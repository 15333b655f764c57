package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Card carries the raw card data re-submitted to each gateway. The
// secondary processor cannot consume the primary's tokens, so the
// orchestrator holds the raw fields for the duration of the request.
type Card struct {
	Number      string `json:"number"`
	HolderName  string `json:"holder_name"`
	ExpiryMonth string `json:"expiry_month"`
	ExpiryYear  string `json:"expiry_year"`
	CVV         string `json:"cvv"`
}

// ChargeRequest is the single logical create-payment operation. The
// idempotency key is client supplied and threaded to both gateways
// unchanged.
type ChargeRequest struct {
	IdempotencyKey string
	SessionID      string

	Email string
	Name  string
	Phone string
	TaxID string

	Amount int64
	Method string
	Card   *Card
	PixKey string
}

// ChargeResult is a gateway success descriptor.
type ChargeResult struct {
	TransactionID string
	Processor     string
	Status        string
	PaymentCode   string
	FallbackUsed  bool
}

// Gateway is one payment processor's charge surface.
type Gateway interface {
	Name() string
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
}

// ErrorClass partitions gateway failures by how the orchestrator may
// react to them.
type ErrorClass string

const (
	// ErrorClassCascade covers timeouts, 5xx and processor-level
	// declines. A second processor may still accept the charge.
	ErrorClassCascade ErrorClass = "cascade_eligible"

	// ErrorClassTerminal covers input-validation declines such as an
	// invalid card. Another processor would refuse the same input.
	ErrorClassTerminal ErrorClass = "terminal"

	// ErrorClassInvalidRequest covers requests rejected before any
	// processor was asked, such as a missing idempotency key.
	ErrorClassInvalidRequest ErrorClass = "invalid_request"
)

// GatewayError is a structured decline or processor error.
type GatewayError struct {
	Code    string
	Message string
	Class   ErrorClass
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Classify maps an error from a gateway call onto an ErrorClass.
// Anything that is not an explicit terminal decline is eligible for
// cascade, including timeouts and transport failures.
func Classify(err error) ErrorClass {
	if err == nil {
		return ""
	}
	var gerr *GatewayError
	if errors.As(err, &gerr) {
		return gerr.Class
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorClassCascade
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return ErrorClassCascade
	}
	return ErrorClassCascade
}
