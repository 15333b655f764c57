package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/storefront/internal/checkout/domain"
	"github.com/smallbiznis/storefront/internal/checkout/repository"
	"github.com/smallbiznis/storefront/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type checkoutHarness struct {
	svc   domain.Service
	clock *clock.FakeClock
	db    *gorm.DB
	genID *snowflake.Node
}

func setupCheckout(t *testing.T) *checkoutHarness {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.Exec(`CREATE TABLE checkout_attempts (
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
	)`).Error)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
		Repo:  repository.Provide(),
	})
	return &checkoutHarness{svc: svc, clock: clk, db: db, genID: node}
}

func TestTrackCreatesPendingAttempt(t *testing.T) {
	h := setupCheckout(t)

	attempt, err := h.svc.Track(context.Background(), domain.TrackRequest{
		SessionID: "sess-1",
		Email:     "  Ana@Example.COM ",
		Name:      "Ana",
		Amount:    10000,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.AttemptPending, attempt.Status)
	assert.Equal(t, "ana@example.com", attempt.CustomerEmail)
	assert.EqualValues(t, 10000, attempt.Amount)
}

func TestTrackUpsertMergesContactFields(t *testing.T) {
	h := setupCheckout(t)
	ctx := context.Background()

	_, err := h.svc.Track(ctx, domain.TrackRequest{
		SessionID: "sess-2",
		Email:     "ana@example.com",
		Name:      "Ana",
	})
	require.NoError(t, err)

	// The buyer fills the phone field later in the same session. The
	// blank email in this beacon must not erase the stored one.
	attempt, err := h.svc.Track(ctx, domain.TrackRequest{
		SessionID: "sess-2",
		Phone:     "+5511999990000",
		Amount:    12000,
	})
	require.NoError(t, err)

	assert.Equal(t, "ana@example.com", attempt.CustomerEmail)
	assert.Equal(t, "Ana", attempt.CustomerName)
	assert.Equal(t, "+5511999990000", attempt.CustomerPhone)
	assert.EqualValues(t, 12000, attempt.Amount)

	var count int64
	require.NoError(t, h.db.Raw(`SELECT COUNT(*) FROM checkout_attempts`).Scan(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestTrackRejectsEmptySession(t *testing.T) {
	h := setupCheckout(t)

	_, err := h.svc.Track(context.Background(), domain.TrackRequest{Email: "ana@example.com"})
	require.ErrorIs(t, err, domain.ErrInvalidSession)
}

func TestAbandonOnlyAffectsPending(t *testing.T) {
	h := setupCheckout(t)
	ctx := context.Background()

	_, err := h.svc.Track(ctx, domain.TrackRequest{SessionID: "sess-3", Email: "ana@example.com"})
	require.NoError(t, err)

	require.NoError(t, h.svc.Abandon(ctx, "sess-3"))
	attempt, err := h.svc.GetBySessionID(ctx, "sess-3")
	require.NoError(t, err)
	require.NotNil(t, attempt)
	assert.Equal(t, domain.AttemptAbandoned, attempt.Status)
	assert.NotNil(t, attempt.AbandonedAt)

	// A second signal is a no-op, not an error.
	require.NoError(t, h.svc.Abandon(ctx, "sess-3"))
}

func TestRecoverMarksPendingAndAbandoned(t *testing.T) {
	h := setupCheckout(t)
	ctx := context.Background()

	_, err := h.svc.Track(ctx, domain.TrackRequest{SessionID: "sess-4", Email: "ana@example.com"})
	require.NoError(t, err)
	_, err = h.svc.Track(ctx, domain.TrackRequest{SessionID: "sess-5", Email: "ana@example.com"})
	require.NoError(t, err)
	require.NoError(t, h.svc.Abandon(ctx, "sess-5"))

	orderID := h.genID.Generate()
	require.NoError(t, h.svc.Recover(ctx, "ana@example.com", orderID))

	for _, session := range []string{"sess-4", "sess-5"} {
		attempt, err := h.svc.GetBySessionID(ctx, session)
		require.NoError(t, err)
		require.NotNil(t, attempt)
		assert.Equal(t, domain.AttemptRecovered, attempt.Status)
		require.NotNil(t, attempt.OrderID)
		assert.Equal(t, orderID, *attempt.OrderID)
	}
}

func TestRevertRecoveryReturnsToAbandoned(t *testing.T) {
	h := setupCheckout(t)
	ctx := context.Background()

	_, err := h.svc.Track(ctx, domain.TrackRequest{SessionID: "sess-6", Email: "ana@example.com"})
	require.NoError(t, err)
	require.NoError(t, h.svc.Recover(ctx, "ana@example.com", h.genID.Generate()))

	require.NoError(t, h.svc.RevertRecovery(ctx, "ana@example.com"))

	attempt, err := h.svc.GetBySessionID(ctx, "sess-6")
	require.NoError(t, err)
	require.NotNil(t, attempt)
	assert.Equal(t, domain.AttemptAbandoned, attempt.Status)
}

func TestSweepAbandonedLeavesFreshAndRecovered(t *testing.T) {
	h := setupCheckout(t)
	ctx := context.Background()

	_, err := h.svc.Track(ctx, domain.TrackRequest{SessionID: "stale", Email: "a@example.com"})
	require.NoError(t, err)
	_, err = h.svc.Track(ctx, domain.TrackRequest{SessionID: "won", Email: "b@example.com"})
	require.NoError(t, err)
	require.NoError(t, h.svc.Recover(ctx, "b@example.com", h.genID.Generate()))

	h.clock.Advance(2 * time.Hour)
	_, err = h.svc.Track(ctx, domain.TrackRequest{SessionID: "fresh", Email: "c@example.com"})
	require.NoError(t, err)

	swept, err := h.svc.SweepAbandoned(ctx, time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 1, swept)

	cases := map[string]string{
		"stale": string(domain.AttemptAbandoned),
		"won":   string(domain.AttemptRecovered),
		"fresh": string(domain.AttemptPending),
	}
	for session, want := range cases {
		attempt, err := h.svc.GetBySessionID(ctx, session)
		require.NoError(t, err)
		require.NotNil(t, attempt)
		assert.Equal(t, want, string(attempt.Status), "session %s", session)
	}
}
