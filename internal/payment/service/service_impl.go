package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/storefront/internal/clock"
	"github.com/smallbiznis/storefront/internal/config"
	obsmetrics "github.com/smallbiznis/storefront/internal/observability/metrics"
	orderdomain "github.com/smallbiznis/storefront/internal/order/domain"
	"github.com/smallbiznis/storefront/internal/payment/domain"
	"github.com/smallbiznis/storefront/internal/status"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Cfg        config.Config
	Repo       domain.Repository
	OrderSvc   orderdomain.Service
	Primary    domain.Gateway      `name:"gateway_primary"`
	Secondary  domain.Gateway      `name:"gateway_secondary"`
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	timeout    time.Duration
	repo       domain.Repository
	orderSvc   orderdomain.Service
	primary    domain.Gateway
	secondary  domain.Gateway
	obsMetrics *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	timeout := time.Duration(p.Cfg.GatewayTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Service{
		log:        p.Log.Named("payment.cascade"),
		genID:      p.GenID,
		clock:      p.Clock,
		timeout:    timeout,
		repo:       p.Repo,
		orderSvc:   p.OrderSvc,
		primary:    p.Primary,
		secondary:  p.Secondary,
		obsMetrics: p.ObsMetrics,
	}
}

// Charge runs the blocking primary-then-secondary protocol. The
// secondary gateway is consulted only after the primary has
// definitively failed with a cascade-eligible error, so one session
// can never be charged successfully on both processors.
func (s *Service) Charge(ctx context.Context, req domain.ChargeRequest) (*domain.ChargeResult, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	result, primaryErr := s.attempt(ctx, s.primary, req)
	if primaryErr == nil {
		return s.settle(ctx, req, result, false)
	}

	if class := domain.Classify(primaryErr); class != domain.ErrorClassCascade {
		s.log.Info("primary gateway declined terminally",
			zap.String("gateway", s.primary.Name()),
			zap.String("session_id", req.SessionID),
			zap.Error(primaryErr),
		)
		return nil, primaryErr
	}

	s.log.Warn("primary gateway failed, cascading to secondary",
		zap.String("primary", s.primary.Name()),
		zap.String("secondary", s.secondary.Name()),
		zap.String("session_id", req.SessionID),
		zap.Error(primaryErr),
	)

	result, secondaryErr := s.attempt(ctx, s.secondary, req)
	if secondaryErr != nil {
		s.log.Error("secondary gateway failed, session unrecoverable",
			zap.String("gateway", s.secondary.Name()),
			zap.String("session_id", req.SessionID),
			zap.Error(secondaryErr),
		)
		return nil, secondaryErr
	}

	return s.settle(ctx, req, result, true)
}

// attempt calls one gateway under the per-call timeout and records
// the attempt row regardless of outcome.
func (s *Service) attempt(ctx context.Context, gw domain.Gateway, req domain.ChargeRequest) (*domain.ChargeResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := gw.Charge(callCtx, req)

	row := &domain.PaymentAttempt{
		ID:             s.genID.Generate(),
		IdempotencyKey: req.IdempotencyKey,
		Processor:      gw.Name(),
		Status:         domain.AttemptStatusSucceeded,
		CreatedAt:      s.clock.Now(),
	}
	outcome := "succeeded"
	if err != nil {
		row.Status = domain.AttemptStatusFailed
		row.ErrorCode, row.ErrorMessage = errorDetail(err)
		outcome = "failed"
	}
	if insertErr := s.repo.Insert(ctx, row); insertErr != nil {
		s.log.Error("failed to record payment attempt",
			zap.String("gateway", gw.Name()),
			zap.String("idempotency_key", req.IdempotencyKey),
			zap.Error(insertErr),
		)
	}
	s.obsMetrics.RecordCascadeAttempt(ctx, gw.Name(), outcome)

	return result, err
}

// settle reconciles the order for a gateway success and links the
// attempt rows to it.
func (s *Service) settle(ctx context.Context, req domain.ChargeRequest, result *domain.ChargeResult, fallback bool) (*domain.ChargeResult, error) {
	result.FallbackUsed = fallback

	st := status.Approved
	if resolution, ok := status.Resolve("", result.Status); ok {
		st = resolution.Status
	}

	order, err := s.orderSvc.Reconcile(ctx, orderdomain.ReconcileInput{
		ExternalOrderID: result.TransactionID,
		Email:           req.Email,
		Name:            req.Name,
		Phone:           req.Phone,
		TaxID:           req.TaxID,
		Status:          st,
		Amount:          req.Amount,
		Method:          req.Method,
		Processor:       result.Processor,
		FallbackUsed:    fallback,
	})
	if err != nil {
		return nil, err
	}

	if err := s.repo.LinkOrder(ctx, req.IdempotencyKey, order.ID); err != nil {
		s.log.Error("failed to link payment attempts to order",
			zap.String("idempotency_key", req.IdempotencyKey),
			zap.Int64("order_id", int64(order.ID)),
			zap.Error(err),
		)
	}

	s.log.Info("checkout settled",
		zap.String("processor", result.Processor),
		zap.String("transaction_id", result.TransactionID),
		zap.Bool("fallback_used", fallback),
	)
	return result, nil
}

func validate(req domain.ChargeRequest) error {
	if strings.TrimSpace(req.IdempotencyKey) == "" {
		return &domain.GatewayError{Code: "missing_idempotency_key", Message: "idempotency key is required", Class: domain.ErrorClassInvalidRequest}
	}
	if strings.TrimSpace(req.Email) == "" {
		return &domain.GatewayError{Code: "missing_email", Message: "customer email is required", Class: domain.ErrorClassInvalidRequest}
	}
	if req.Amount <= 0 {
		return &domain.GatewayError{Code: "invalid_amount", Message: "amount must be positive", Class: domain.ErrorClassInvalidRequest}
	}
	return nil
}

func errorDetail(err error) (string, string) {
	var gerr *domain.GatewayError
	if errors.As(err, &gerr) {
		return gerr.Code, gerr.Message
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout", "gateway call timed out"
	}
	return "gateway_error", err.Error()
}
