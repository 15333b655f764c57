package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Repository interface {
	// Insert appends one attempt row. Attempt rows are never updated
	// except to link the order once it is known.
	Insert(ctx context.Context, attempt *PaymentAttempt) error

	// LinkOrder attaches the resulting order to every attempt made
	// under the idempotency key.
	LinkOrder(ctx context.Context, idempotencyKey string, orderID snowflake.ID) error

	ListByOrderID(ctx context.Context, orderID snowflake.ID) ([]PaymentAttempt, error)
	ListByIdempotencyKey(ctx context.Context, key string) ([]PaymentAttempt, error)
}
