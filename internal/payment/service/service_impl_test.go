package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/storefront/internal/clock"
	"github.com/smallbiznis/storefront/internal/config"
	orderdomain "github.com/smallbiznis/storefront/internal/order/domain"
	"github.com/smallbiznis/storefront/internal/payment/domain"
	"github.com/smallbiznis/storefront/internal/payment/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeGateway struct {
	name   string
	result *domain.ChargeResult
	err    error
	calls  int
}

func (g *fakeGateway) Name() string { return g.name }

func (g *fakeGateway) Charge(ctx context.Context, req domain.ChargeRequest) (*domain.ChargeResult, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return g.result, nil
}

type fakeOrderService struct {
	node   *snowflake.Node
	inputs []orderdomain.ReconcileInput
}

func (s *fakeOrderService) Reconcile(ctx context.Context, in orderdomain.ReconcileInput) (*orderdomain.Order, error) {
	s.inputs = append(s.inputs, in)
	return &orderdomain.Order{ID: s.node.Generate(), FallbackUsed: in.FallbackUsed}, nil
}

func (s *fakeOrderService) FindByExternalID(ctx context.Context, externalID string) (*orderdomain.Order, error) {
	return nil, nil
}

func setupCascade(t *testing.T, primary, secondary domain.Gateway) (domain.Service, *fakeOrderService, domain.Repository) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Exec(`CREATE TABLE payment_attempts (
		id BIGINT PRIMARY KEY,
		order_id BIGINT,
		idempotency_key TEXT NOT NULL,
		processor TEXT NOT NULL,
		status TEXT NOT NULL,
		error_code TEXT,
		error_message TEXT,
		created_at TIMESTAMP NOT NULL
	)`).Error)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	repo := repository.Provide(db)
	orders := &fakeOrderService{node: node}

	svc := New(Params{
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     clock.NewFakeClock(time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)),
		Cfg:       config.Config{GatewayTimeoutSec: 5},
		Repo:      repo,
		OrderSvc:  orders,
		Primary:   primary,
		Secondary: secondary,
	})
	return svc, orders, repo
}

func chargeRequest() domain.ChargeRequest {
	return domain.ChargeRequest{
		IdempotencyKey: "idem-123",
		SessionID:      "sess-1",
		Email:          "buyer@example.com",
		Amount:         10000,
		Method:         "credit_card",
		Card:           &domain.Card{Number: "4111111111111111", HolderName: "BUYER", ExpiryMonth: "12", ExpiryYear: "2030", CVV: "123"},
	}
}

func TestChargePrimarySuccessSkipsSecondary(t *testing.T) {
	primary := &fakeGateway{name: "atlaspay", result: &domain.ChargeResult{TransactionID: "atl-1", Processor: "atlaspay", Status: "approved"}}
	secondary := &fakeGateway{name: "nexopay"}
	svc, orders, repo := setupCascade(t, primary, secondary)

	result, err := svc.Charge(context.Background(), chargeRequest())
	require.NoError(t, err)
	assert.Equal(t, "atlaspay", result.Processor)
	assert.False(t, result.FallbackUsed)
	assert.Equal(t, 0, secondary.calls)

	require.Len(t, orders.inputs, 1)
	assert.False(t, orders.inputs[0].FallbackUsed)

	attempts, err := repo.ListByIdempotencyKey(context.Background(), "idem-123")
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, domain.AttemptStatusSucceeded, attempts[0].Status)
	assert.NotNil(t, attempts[0].OrderID)
}

func TestChargeCascadesOnProcessorError(t *testing.T) {
	primary := &fakeGateway{name: "atlaspay", err: &domain.GatewayError{Code: "card_declined", Message: "declined", Class: domain.ErrorClassCascade}}
	secondary := &fakeGateway{name: "nexopay", result: &domain.ChargeResult{TransactionID: "nxo-1", Processor: "nexopay", Status: "paid"}}
	svc, orders, repo := setupCascade(t, primary, secondary)

	result, err := svc.Charge(context.Background(), chargeRequest())
	require.NoError(t, err)
	assert.Equal(t, "nexopay", result.Processor)
	assert.True(t, result.FallbackUsed)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, secondary.calls)

	// Exactly one order results and it carries the fallback flag.
	require.Len(t, orders.inputs, 1)
	assert.True(t, orders.inputs[0].FallbackUsed)
	assert.Equal(t, "nexopay", orders.inputs[0].Processor)

	// One failed and one succeeded attempt remain for audit, both
	// linked to the order.
	attempts, err := repo.ListByIdempotencyKey(context.Background(), "idem-123")
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	assert.Equal(t, domain.AttemptStatusFailed, attempts[0].Status)
	assert.Equal(t, "card_declined", attempts[0].ErrorCode)
	assert.Equal(t, domain.AttemptStatusSucceeded, attempts[1].Status)
	assert.NotNil(t, attempts[0].OrderID)
	assert.NotNil(t, attempts[1].OrderID)
}

func TestChargeTerminalDeclineDoesNotCascade(t *testing.T) {
	primary := &fakeGateway{name: "atlaspay", err: &domain.GatewayError{Code: "insufficient_funds", Message: "saldo insuficiente", Class: domain.ErrorClassTerminal}}
	secondary := &fakeGateway{name: "nexopay", result: &domain.ChargeResult{TransactionID: "nxo-2", Processor: "nexopay", Status: "paid"}}
	svc, orders, repo := setupCascade(t, primary, secondary)

	_, err := svc.Charge(context.Background(), chargeRequest())
	require.Error(t, err)

	var gerr *domain.GatewayError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, "insufficient_funds", gerr.Code)
	assert.Equal(t, 0, secondary.calls)
	assert.Empty(t, orders.inputs)

	attempts, err := repo.ListByIdempotencyKey(context.Background(), "idem-123")
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, domain.AttemptStatusFailed, attempts[0].Status)
}

func TestChargeBothGatewaysFail(t *testing.T) {
	primary := &fakeGateway{name: "atlaspay", err: &domain.GatewayError{Code: "http_503", Message: "unavailable", Class: domain.ErrorClassCascade}}
	secondary := &fakeGateway{name: "nexopay", err: &domain.GatewayError{Code: "card_declined", Message: "declined", Class: domain.ErrorClassCascade}}
	svc, orders, repo := setupCascade(t, primary, secondary)

	_, err := svc.Charge(context.Background(), chargeRequest())
	require.Error(t, err)

	var gerr *domain.GatewayError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, "card_declined", gerr.Code)

	// No order exists, both attempts stay for audit.
	assert.Empty(t, orders.inputs)
	attempts, err := repo.ListByIdempotencyKey(context.Background(), "idem-123")
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	for _, attempt := range attempts {
		assert.Equal(t, domain.AttemptStatusFailed, attempt.Status)
		assert.Nil(t, attempt.OrderID)
	}
}

func TestChargeRejectsMissingIdempotencyKey(t *testing.T) {
	primary := &fakeGateway{name: "atlaspay"}
	secondary := &fakeGateway{name: "nexopay"}
	svc, _, _ := setupCascade(t, primary, secondary)

	req := chargeRequest()
	req.IdempotencyKey = ""
	_, err := svc.Charge(context.Background(), req)
	require.Error(t, err)

	var gerr *domain.GatewayError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, domain.ErrorClassInvalidRequest, gerr.Class)
	assert.Equal(t, 0, primary.calls)
}
