package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/storefront/internal/clock"
	obsmetrics "github.com/smallbiznis/storefront/internal/observability/metrics"
	orderdomain "github.com/smallbiznis/storefront/internal/order/domain"
	"github.com/smallbiznis/storefront/internal/status"
	"github.com/smallbiznis/storefront/internal/webhook/adapters"
	"github.com/smallbiznis/storefront/internal/webhook/domain"
	"github.com/smallbiznis/storefront/internal/webhook/verifier"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type Params struct {
	fx.In

	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       domain.Repository
	Verifier   *verifier.Verifier
	Adapters   *adapters.Registry
	OrderSvc   orderdomain.Service
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       domain.Repository
	verifier   *verifier.Verifier
	adapters   *adapters.Registry
	orderSvc   orderdomain.Service
	obsMetrics *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		log:        p.Log.Named("webhook.ingest"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		verifier:   p.Verifier,
		adapters:   p.Adapters,
		orderSvc:   p.OrderSvc,
		obsMetrics: p.ObsMetrics,
	}
}

// Ingest handles a single delivery end to end. The log row is
// written for every outcome, before the HTTP response goes out.
func (s *Service) Ingest(ctx context.Context, delivery domain.Delivery) (domain.Result, error) {
	started := time.Now()
	provider := strings.ToLower(strings.TrimSpace(delivery.Provider))

	result, verified, eventName, err := s.ingest(ctx, provider, delivery)
	result.EventType = eventName

	s.writeLog(ctx, provider, delivery.Payload, verified, result, err, time.Since(started))
	s.obsMetrics.RecordWebhookEvent(ctx, provider, result.Outcome)

	return result, err
}

func (s *Service) ingest(ctx context.Context, provider string, delivery domain.Delivery) (domain.Result, bool, string, error) {
	adapter, ok := s.adapters.Get(provider)
	if !ok {
		return domain.Result{Outcome: domain.OutcomeRejectedUnknownProvider, StatusCode: http.StatusNotFound}, false, "", domain.ErrUnknownProvider
	}

	if err := s.verifier.Verify(provider, delivery.Payload, delivery.Signature, delivery.Timestamp); err != nil {
		outcome := domain.OutcomeRejectedSignature
		if errors.Is(err, domain.ErrStaleTimestamp) {
			outcome = domain.OutcomeRejectedStale
		}
		s.log.Warn("rejected webhook delivery",
			zap.String("provider", provider),
			zap.String("outcome", outcome),
		)
		return domain.Result{Outcome: outcome, StatusCode: http.StatusUnauthorized}, false, "", err
	}

	event, err := adapter.Parse(delivery.Payload)
	if err != nil {
		return domain.Result{Outcome: domain.OutcomeRejectedMalformed, StatusCode: http.StatusBadRequest}, true, "", err
	}

	resolution, ok := status.Resolve(event.EventName, event.RawStatus)
	if !ok {
		s.log.Info("ignoring unmappable webhook event",
			zap.String("provider", provider),
			zap.String("event", event.EventName),
			zap.String("raw_status", event.RawStatus),
		)
		return domain.Result{Outcome: domain.OutcomeIgnoredUnmappable, StatusCode: http.StatusOK}, true, event.EventName, nil
	}

	failureReason := event.FailureReason
	if failureReason == "" {
		failureReason = resolution.FailureReason
	}

	_, err = s.orderSvc.Reconcile(ctx, orderdomain.ReconcileInput{
		ExternalOrderID: event.ExternalOrderID,
		Email:           event.Email,
		Name:            event.Name,
		Phone:           event.Phone,
		TaxID:           event.TaxID,
		Status:          resolution.Status,
		FailureReason:   failureReason,
		Amount:          event.Amount,
		Subtotal:        event.Subtotal,
		Discount:        event.Discount,
		CouponCode:      event.CouponCode,
		CouponDiscount:  event.CouponDiscount,
		Method:          event.Method,
		Processor:       provider,
		Metadata:        event.Metadata,
	})
	if err != nil {
		if errors.Is(err, orderdomain.ErrNoIdentity) {
			s.log.Info("ignoring webhook event without order identity",
				zap.String("provider", provider),
				zap.String("event", event.EventName),
			)
			return domain.Result{Outcome: domain.OutcomeIgnoredNoIdentity, StatusCode: http.StatusOK}, true, event.EventName, nil
		}
		s.log.Error("webhook reconciliation failed",
			zap.String("provider", provider),
			zap.String("event", event.EventName),
			zap.Error(err),
		)
		return domain.Result{Outcome: domain.OutcomeFailedStorage, StatusCode: http.StatusInternalServerError}, true, event.EventName, err
	}

	return domain.Result{Outcome: domain.OutcomeProcessed, StatusCode: http.StatusOK}, true, event.EventName, nil
}

func (s *Service) writeLog(ctx context.Context, provider string, payload []byte, verified bool, result domain.Result, cause error, took time.Duration) {
	row := &domain.WebhookLog{
		ID:         s.genID.Generate(),
		Provider:   provider,
		Payload:    payloadJSON(payload),
		Verified:   verified,
		EventType:  result.EventType,
		Outcome:    result.Outcome,
		StatusCode: result.StatusCode,
		DurationMs: took.Milliseconds(),
		CreatedAt:  s.clock.Now(),
	}
	if cause != nil {
		row.Error = cause.Error()
	}
	if err := s.repo.Insert(ctx, row); err != nil {
		s.log.Error("failed to append webhook log",
			zap.String("provider", provider),
			zap.String("outcome", result.Outcome),
			zap.Error(err),
		)
	}
}

// payloadJSON keeps the stored payload a valid JSON document even
// when the body itself was not parseable.
func payloadJSON(payload []byte) datatypes.JSON {
	if json.Valid(payload) {
		return datatypes.JSON(payload)
	}
	quoted, err := json.Marshal(string(payload))
	if err != nil {
		return datatypes.JSON(`{}`)
	}
	return datatypes.JSON(quoted)
}
