package domain

import "context"

// Delivery is one inbound webhook request as seen by the ingestion
// service, before any parsing.
type Delivery struct {
	Provider  string
	Payload   []byte
	Signature string
	Timestamp string
}

// Result reports how a delivery was handled and which HTTP status
// the transport should answer with.
type Result struct {
	Outcome    string
	StatusCode int
	EventType  string
}

type Service interface {
	// Ingest verifies, parses and reconciles one delivery, then
	// appends the log row. Always returns a usable Result; err is
	// non-nil only for reject outcomes.
	Ingest(ctx context.Context, delivery Delivery) (Result, error)
}
