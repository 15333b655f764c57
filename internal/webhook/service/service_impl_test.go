package service

import (
	"context"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	checkoutrepository "github.com/smallbiznis/storefront/internal/checkout/repository"
	checkoutservice "github.com/smallbiznis/storefront/internal/checkout/service"
	"github.com/smallbiznis/storefront/internal/clock"
	"github.com/smallbiznis/storefront/internal/config"
	customerrepository "github.com/smallbiznis/storefront/internal/customer/repository"
	customerservice "github.com/smallbiznis/storefront/internal/customer/service"
	"github.com/smallbiznis/storefront/internal/notify"
	orderrepository "github.com/smallbiznis/storefront/internal/order/repository"
	orderservice "github.com/smallbiznis/storefront/internal/order/service"
	"github.com/smallbiznis/storefront/internal/status"
	"github.com/smallbiznis/storefront/internal/webhook/adapters"
	"github.com/smallbiznis/storefront/internal/webhook/domain"
	"github.com/smallbiznis/storefront/internal/webhook/repository"
	"github.com/smallbiznis/storefront/internal/webhook/verifier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	atlasSecret = "atlas-test-secret"
	nexoSecret  = "nexo-test-secret"
)

type captureNotifier struct {
	events []notify.PurchaseEvent
}

func (n *captureNotifier) PurchaseCompleted(ctx context.Context, event notify.PurchaseEvent) error {
	n.events = append(n.events, event)
	return nil
}

type ingestHarness struct {
	svc      domain.Service
	db       *gorm.DB
	clock    *clock.FakeClock
	notifier *captureNotifier
}

func setupIngest(t *testing.T) *ingestHarness {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	for _, ddl := range []string{
		`CREATE TABLE customers (
			id BIGINT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			name TEXT,
			phone TEXT,
			tax_id TEXT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE orders (
			id BIGINT PRIMARY KEY,
			external_order_id TEXT UNIQUE,
			customer_id BIGINT,
			customer_email TEXT,
			amount BIGINT NOT NULL DEFAULT 0,
			subtotal BIGINT NOT NULL DEFAULT 0,
			discount BIGINT NOT NULL DEFAULT 0,
			coupon_code TEXT,
			coupon_discount BIGINT NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			failure_reason TEXT,
			method TEXT,
			processor TEXT,
			fallback_used BOOLEAN NOT NULL DEFAULT FALSE,
			metadata TEXT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE checkout_attempts (
			id BIGINT PRIMARY KEY,
			session_id TEXT NOT NULL UNIQUE,
			customer_email TEXT,
			customer_name TEXT,
			customer_phone TEXT,
			cart TEXT,
			amount BIGINT NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			order_id BIGINT,
			recovered_at TIMESTAMP,
			abandoned_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE webhook_logs (
			id BIGINT PRIMARY KEY,
			provider TEXT NOT NULL,
			payload TEXT,
			verified BOOLEAN NOT NULL,
			event_type TEXT,
			outcome TEXT NOT NULL,
			status_code INTEGER NOT NULL,
			duration_ms BIGINT NOT NULL,
			error TEXT,
			created_at TIMESTAMP NOT NULL
		)`,
	} {
		require.NoError(t, db.Exec(ddl).Error)
	}

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	log := zap.NewNop()
	clk := clock.NewFakeClock(time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))
	cfg := config.Config{
		AtlasPayWebhookSecret:     atlasSecret,
		NexoPayWebhookSecret:      nexoSecret,
		WebhookTimestampWindowMin: 5,
		CheckoutMatchWindowHours:  24,
	}

	notifier := &captureNotifier{}

	customerSvc := customerservice.New(customerservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Repo:  customerrepository.Provide(),
	})
	checkoutSvc := checkoutservice.New(checkoutservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Clock: clk,
		Repo:  checkoutrepository.Provide(),
	})
	orderSvc := orderservice.New(orderservice.Params{
		DB:          db,
		Log:         log,
		GenID:       node,
		Clock:       clk,
		Cfg:         cfg,
		Repo:        orderrepository.Provide(),
		CustomerSvc: customerSvc,
		CheckoutSvc: checkoutSvc,
		Notifier:    notifier,
	})

	svc := New(Params{
		Log:      log,
		GenID:    node,
		Clock:    clk,
		Repo:     repository.Provide(db),
		Verifier: verifier.New(cfg, clk, log),
		Adapters: adapters.NewRegistry(adapters.AtlasPay{}, adapters.NexoPay{}),
		OrderSvc: orderSvc,
	})

	return &ingestHarness{svc: svc, db: db, clock: clk, notifier: notifier}
}

func (h *ingestHarness) deliver(provider, secret string, payload []byte) domain.Delivery {
	return domain.Delivery{
		Provider:  provider,
		Payload:   payload,
		Signature: verifier.Sign(secret, payload),
		Timestamp: strconv.FormatInt(h.clock.Now().Unix(), 10),
	}
}

func (h *ingestHarness) countRows(t *testing.T, table string) int64 {
	t.Helper()
	var count int64
	require.NoError(t, h.db.Raw(`SELECT COUNT(*) FROM `+table).Scan(&count).Error)
	return count
}

func (h *ingestHarness) orderByExternalID(t *testing.T, externalID string) map[string]any {
	t.Helper()
	var row map[string]any
	require.NoError(t, h.db.Raw(
		`SELECT status, amount, failure_reason, processor, customer_email FROM orders WHERE external_order_id = ?`,
		externalID,
	).Scan(&row).Error)
	return row
}

func TestIngestApprovedOrder(t *testing.T) {
	h := setupIngest(t)

	payload := []byte(`{
		"event": "Pedido Aprovado",
		"order": {
			"id": "ATL-1001",
			"status": "aprovado",
			"amount_cents": 10000,
			"payment": {"method": "credit_card"}
		},
		"customer": {"email": "ana@example.com", "name": "Ana Souza"}
	}`)

	result, err := h.svc.Ingest(context.Background(), h.deliver("atlaspay", atlasSecret, payload))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeProcessed, result.Outcome)
	assert.Equal(t, http.StatusOK, result.StatusCode)

	row := h.orderByExternalID(t, "ATL-1001")
	assert.Equal(t, string(status.Approved), row["status"])
	assert.EqualValues(t, 10000, row["amount"])
	assert.Equal(t, "ana@example.com", row["customer_email"])

	assert.EqualValues(t, 1, h.countRows(t, "customers"))
	assert.EqualValues(t, 1, h.countRows(t, "webhook_logs"))
}

func TestIngestTamperedBodyRejected(t *testing.T) {
	h := setupIngest(t)

	payload := []byte(`{"event": "order.paid", "order": {"id": "ATL-2"}}`)
	delivery := h.deliver("atlaspay", atlasSecret, payload)
	delivery.Payload = []byte(`{"event": "order.paid", "order": {"id": "ATL-2", "amount_cents": 999999}}`)

	result, err := h.svc.Ingest(context.Background(), delivery)
	require.ErrorIs(t, err, domain.ErrInvalidSignature)
	assert.Equal(t, http.StatusUnauthorized, result.StatusCode)
	assert.Equal(t, domain.OutcomeRejectedSignature, result.Outcome)

	// Nothing is processed, but the delivery is still logged.
	assert.EqualValues(t, 0, h.countRows(t, "orders"))
	assert.EqualValues(t, 1, h.countRows(t, "webhook_logs"))

	var verified bool
	require.NoError(t, h.db.Raw(`SELECT verified FROM webhook_logs`).Scan(&verified).Error)
	assert.False(t, verified)
}

func TestIngestStaleTimestampRejected(t *testing.T) {
	h := setupIngest(t)

	payload := []byte(`{"event": "order.paid", "order": {"id": "ATL-3"}}`)
	delivery := h.deliver("atlaspay", atlasSecret, payload)
	delivery.Timestamp = strconv.FormatInt(h.clock.Now().Add(-10*time.Minute).Unix(), 10)

	result, err := h.svc.Ingest(context.Background(), delivery)
	require.ErrorIs(t, err, domain.ErrStaleTimestamp)
	assert.Equal(t, http.StatusUnauthorized, result.StatusCode)
	assert.Equal(t, domain.OutcomeRejectedStale, result.Outcome)
	assert.EqualValues(t, 0, h.countRows(t, "orders"))
}

func TestIngestMalformedPayloadRejected(t *testing.T) {
	h := setupIngest(t)

	payload := []byte(`{"event": "order.paid", `)
	result, err := h.svc.Ingest(context.Background(), h.deliver("atlaspay", atlasSecret, payload))
	require.ErrorIs(t, err, domain.ErrMalformedPayload)
	assert.Equal(t, http.StatusBadRequest, result.StatusCode)
	assert.EqualValues(t, 0, h.countRows(t, "orders"))
	assert.EqualValues(t, 1, h.countRows(t, "webhook_logs"))
}

func TestIngestReplayIsIdempotent(t *testing.T) {
	h := setupIngest(t)

	payload := []byte(`{
		"event_type": "transaction.updated",
		"transaction_id": "NXO-77",
		"status": "paid",
		"amount": 15000,
		"customer_email": "rui@example.com"
	}`)
	delivery := h.deliver("nexopay", nexoSecret, payload)

	for i := 0; i < 3; i++ {
		result, err := h.svc.Ingest(context.Background(), delivery)
		require.NoError(t, err)
		assert.Equal(t, domain.OutcomeProcessed, result.Outcome)
	}

	assert.EqualValues(t, 1, h.countRows(t, "orders"))
	assert.EqualValues(t, 1, h.countRows(t, "customers"))
	assert.EqualValues(t, 3, h.countRows(t, "webhook_logs"))

	// The terminal-success transition fires downstream exactly once.
	require.Len(t, h.notifier.events, 1)
	assert.Equal(t, "NXO-77", h.notifier.events[0].ExternalOrderID)
	assert.EqualValues(t, 15000, h.notifier.events[0].Amount)
}

func TestIngestPixExpiredCarriesFailureReason(t *testing.T) {
	h := setupIngest(t)

	payload := []byte(`{
		"event_type": "transaction.updated",
		"transaction_id": "NXO-88",
		"status": "pix expirado",
		"amount": 4200,
		"customer_email": "lia@example.com"
	}`)

	result, err := h.svc.Ingest(context.Background(), h.deliver("nexopay", nexoSecret, payload))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeProcessed, result.Outcome)

	row := h.orderByExternalID(t, "NXO-88")
	assert.Equal(t, string(status.Expired), row["status"])
	assert.Equal(t, "PIX expirado", row["failure_reason"])
}

func TestIngestUnmappableEventAcknowledged(t *testing.T) {
	h := setupIngest(t)

	payload := []byte(`{
		"event": "antifraude.score_atualizado",
		"order": {"id": "ATL-9", "status": "underwriting_hold_x"}
	}`)

	result, err := h.svc.Ingest(context.Background(), h.deliver("atlaspay", atlasSecret, payload))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, result.StatusCode)
	// Pass-through keeps unknown statuses, so only an event with no
	// status at all is unmappable.
	assert.Equal(t, domain.OutcomeProcessed, result.Outcome)

	payload = []byte(`{"event": "antifraude.score_atualizado", "order": {"id": "ATL-10"}}`)
	result, err = h.svc.Ingest(context.Background(), h.deliver("atlaspay", atlasSecret, payload))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeIgnoredUnmappable, result.Outcome)
	assert.Equal(t, http.StatusOK, result.StatusCode)
}

func TestIngestNoIdentityAcknowledged(t *testing.T) {
	h := setupIngest(t)

	payload := []byte(`{"event": "pedido aprovado", "order": {"status": "aprovado"}}`)
	result, err := h.svc.Ingest(context.Background(), h.deliver("atlaspay", atlasSecret, payload))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeIgnoredNoIdentity, result.Outcome)
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.EqualValues(t, 0, h.countRows(t, "orders"))
}

func TestIngestConvergesPartialDeliveries(t *testing.T) {
	h := setupIngest(t)

	// First delivery knows the order id and amount but not the payer.
	first := []byte(`{
		"event": "pedido criado",
		"order": {"id": "ATL-500", "status": "pendente", "amount_cents": 8000},
		"customer": {"email": "gil@example.com"}
	}`)
	_, err := h.svc.Ingest(context.Background(), h.deliver("atlaspay", atlasSecret, first))
	require.NoError(t, err)

	// A later delivery for the same order settles it.
	second := []byte(`{
		"event": "pedido aprovado",
		"order": {"id": "ATL-500", "status": "aprovado", "payment": {"method": "pix"}},
		"customer": {"email": "gil@example.com", "name": "Gil Costa"}
	}`)
	_, err = h.svc.Ingest(context.Background(), h.deliver("atlaspay", atlasSecret, second))
	require.NoError(t, err)

	assert.EqualValues(t, 1, h.countRows(t, "orders"))
	row := h.orderByExternalID(t, "ATL-500")
	assert.Equal(t, string(status.Approved), row["status"])
	assert.EqualValues(t, 8000, row["amount"])
}
