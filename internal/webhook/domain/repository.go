package domain

import "context"

type Repository interface {
	// Insert appends one delivery record. Log rows are never updated
	// or deleted.
	Insert(ctx context.Context, log *WebhookLog) error
}
