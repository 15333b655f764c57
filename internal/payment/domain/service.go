package domain

import "context"

type Service interface {
	// Charge runs the sequential primary-then-secondary protocol for
	// one checkout session. The secondary gateway is never called
	// after a primary success.
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
}
