package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	checkoutdomain "github.com/smallbiznis/storefront/internal/checkout/domain"
	"github.com/smallbiznis/storefront/internal/clock"
	"github.com/smallbiznis/storefront/internal/config"
	customerdomain "github.com/smallbiznis/storefront/internal/customer/domain"
	customerservice "github.com/smallbiznis/storefront/internal/customer/service"
	"github.com/smallbiznis/storefront/internal/notify"
	obsmetrics "github.com/smallbiznis/storefront/internal/observability/metrics"
	"github.com/smallbiznis/storefront/internal/order/domain"
	"github.com/smallbiznis/storefront/internal/status"
	pkgdb "github.com/smallbiznis/storefront/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Cfg         config.Config
	Repo        domain.Repository
	CustomerSvc customerdomain.Service
	CheckoutSvc checkoutdomain.Service
	Notifier    notify.Notifier
	ObsMetrics  *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	matchWindow time.Duration
	repo        domain.Repository
	customerSvc customerdomain.Service
	checkoutSvc checkoutdomain.Service
	notifier    notify.Notifier
	obsMetrics  *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	window := time.Duration(p.Cfg.CheckoutMatchWindowHours) * time.Hour
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("order.reconciler"),
		genID:       p.GenID,
		clock:       p.Clock,
		matchWindow: window,
		repo:        p.Repo,
		customerSvc: p.CustomerSvc,
		checkoutSvc: p.CheckoutSvc,
		notifier:    p.Notifier,
		obsMetrics:  p.ObsMetrics,
	}
}

func (s *Service) Reconcile(ctx context.Context, in domain.ReconcileInput) (*domain.Order, error) {
	externalID := strings.TrimSpace(in.ExternalOrderID)
	email := customerservice.NormalizeEmail(in.Email)
	if externalID == "" && email == "" {
		return nil, domain.ErrNoIdentity
	}

	var customerID snowflake.ID
	if email != "" {
		customer, err := s.customerSvc.Upsert(ctx, customerdomain.Identity{
			Email: email,
			Name:  in.Name,
			Phone: in.Phone,
			TaxID: in.TaxID,
		})
		if err != nil {
			return nil, err
		}
		customerID = customer.ID
	}

	// Two rounds: losing an insert race or a status compare-and-set
	// means another delivery for the same order landed first; reload
	// and apply on top of its result.
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		order, prev, applied, err := s.reconcileOnce(ctx, in, externalID, email, customerID)
		if err != nil {
			if pkgdb.IsDuplicateKeyErr(err) {
				lastErr = err
				continue
			}
			return nil, err
		}
		if !applied {
			lastErr = errConcurrentUpdate
			continue
		}
		s.afterReconcile(ctx, order, prev)
		return order, nil
	}
	return nil, lastErr
}

var errConcurrentUpdate = errors.New("concurrent_order_update")

// reconcileOnce performs one find-merge-write round. prev is the
// status the row held before the write ("" for a fresh insert);
// applied is false when the guarded update lost a race.
func (s *Service) reconcileOnce(
	ctx context.Context,
	in domain.ReconcileInput,
	externalID string,
	email string,
	customerID snowflake.ID,
) (*domain.Order, status.Status, bool, error) {

	now := s.clock.Now()

	var existing *domain.Order
	var err error
	if externalID != "" {
		existing, err = s.repo.FindByExternalID(ctx, s.db, externalID)
		if err != nil {
			return nil, "", false, err
		}
	}
	if existing == nil && email != "" {
		existing, err = s.repo.FindRecentByEmail(ctx, s.db, email, now.Add(-s.matchWindow))
		if err != nil {
			return nil, "", false, err
		}
	}

	if existing == nil {
		order := s.buildOrder(in, externalID, email, customerID, now)
		if err := s.repo.Insert(ctx, s.db, order); err != nil {
			return nil, "", false, err
		}
		return order, "", true, nil
	}

	merged, prev := s.merge(existing, in, externalID, email, customerID, now)
	rows, err := s.repo.Update(ctx, s.db, merged, string(prev))
	if err != nil {
		return nil, "", false, err
	}
	if rows == 0 {
		return nil, "", false, nil
	}
	return merged, prev, true, nil
}

func (s *Service) buildOrder(
	in domain.ReconcileInput,
	externalID string,
	email string,
	customerID snowflake.ID,
	now time.Time,
) *domain.Order {

	order := &domain.Order{
		ID:             s.genID.Generate(),
		CustomerID:     customerID,
		CustomerEmail:  email,
		Amount:         in.Amount,
		Subtotal:       in.Subtotal,
		Discount:       in.Discount,
		CouponCode:     strings.TrimSpace(in.CouponCode),
		CouponDiscount: in.CouponDiscount,
		Status:         in.Status,
		Method:         strings.TrimSpace(in.Method),
		Processor:      strings.TrimSpace(in.Processor),
		FallbackUsed:   in.FallbackUsed,
		Metadata:       marshalMetadata(in.Metadata),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if externalID != "" {
		order.ExternalOrderID = &externalID
	}
	if order.Status == "" {
		order.Status = status.Pending
	}
	if reason := strings.TrimSpace(in.FailureReason); reason != "" {
		order.FailureReason = &reason
	}
	return order
}

// merge applies last-write-wins field by field without letting an
// absent inbound value erase a present stored one. The status write is
// guarded against terminal-to-pending downgrades from stale replays.
func (s *Service) merge(
	existing *domain.Order,
	in domain.ReconcileInput,
	externalID string,
	email string,
	customerID snowflake.ID,
	now time.Time,
) (*domain.Order, status.Status) {

	merged := *existing
	prev := existing.Status

	if externalID != "" {
		merged.ExternalOrderID = &externalID
	}
	if customerID != 0 {
		merged.CustomerID = customerID
	}
	if email != "" {
		merged.CustomerEmail = email
	}
	if in.Amount != 0 {
		merged.Amount = in.Amount
	}
	if in.Subtotal != 0 {
		merged.Subtotal = in.Subtotal
	}
	if in.Discount != 0 {
		merged.Discount = in.Discount
	}
	if coupon := strings.TrimSpace(in.CouponCode); coupon != "" {
		merged.CouponCode = coupon
	}
	if in.CouponDiscount != 0 {
		merged.CouponDiscount = in.CouponDiscount
	}
	if method := strings.TrimSpace(in.Method); method != "" {
		merged.Method = method
	}
	if processor := strings.TrimSpace(in.Processor); processor != "" {
		merged.Processor = processor
	}
	// The fallback flag is sticky: once a cascade recovered the sale,
	// later webhook refreshes must not erase that signal.
	merged.FallbackUsed = merged.FallbackUsed || in.FallbackUsed
	if meta := marshalMetadata(in.Metadata); meta != nil {
		merged.Metadata = meta
	}

	next := in.Status
	if next == "" {
		next = prev
	}
	if prev.Terminal() && (next == status.Pending || next == status.FraudAnalysis) {
		s.log.Info("ignoring stale status downgrade",
			zap.String("external_order_id", externalID),
			zap.String("current", string(prev)),
			zap.String("incoming", string(next)),
		)
		next = prev
	}
	merged.Status = next

	if reason := strings.TrimSpace(in.FailureReason); reason != "" {
		merged.FailureReason = &reason
	} else if next.TerminalSuccess() {
		merged.FailureReason = nil
	}

	merged.UpdatedAt = now
	return &merged, prev
}

// afterReconcile runs the post-write side effects exactly once per
// observed transition: the compare-and-set in the repository makes the
// winning caller the sole observer of prev -> order.Status.
func (s *Service) afterReconcile(ctx context.Context, order *domain.Order, prev status.Status) {
	next := order.Status
	if next == prev {
		return
	}

	if s.obsMetrics != nil {
		s.obsMetrics.RecordOrderTransition(ctx, string(next))
	}

	switch {
	case next.TerminalSuccess() && !prev.TerminalSuccess():
		if err := s.checkoutSvc.Recover(ctx, order.CustomerEmail, order.ID); err != nil {
			s.log.Warn("failed to recover checkout attempts", zap.Error(err))
		}
		event := notify.PurchaseEvent{
			OrderID:      order.ID,
			Email:        order.CustomerEmail,
			Amount:       order.Amount,
			Processor:    order.Processor,
			FallbackUsed: order.FallbackUsed,
		}
		if order.ExternalOrderID != nil {
			event.ExternalOrderID = *order.ExternalOrderID
		}
		if err := s.notifier.PurchaseCompleted(ctx, event); err != nil {
			s.log.Warn("purchase notification failed", zap.Error(err))
		}
	case next.TerminalFailure():
		if err := s.checkoutSvc.RevertRecovery(ctx, order.CustomerEmail); err != nil {
			s.log.Warn("failed to revert checkout recovery", zap.Error(err))
		}
	}
}

func (s *Service) FindByExternalID(ctx context.Context, externalID string) (*domain.Order, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, nil
	}
	return s.repo.FindByExternalID(ctx, s.db, externalID)
}

func marshalMetadata(metadata map[string]any) datatypes.JSON {
	if len(metadata) == 0 {
		return nil
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}
