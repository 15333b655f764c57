package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/storefront/internal/checkout/domain"
	"github.com/smallbiznis/storefront/internal/clock"
	customerservice "github.com/smallbiznis/storefront/internal/customer/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("checkout.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Track(ctx context.Context, req domain.TrackRequest) (domain.CheckoutAttempt, error) {
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		return domain.CheckoutAttempt{}, domain.ErrInvalidSession
	}

	var cart datatypes.JSON
	if len(req.Cart) > 0 {
		raw, err := json.Marshal(req.Cart)
		if err != nil {
			return domain.CheckoutAttempt{}, err
		}
		cart = datatypes.JSON(raw)
	}

	now := s.clock.Now()
	attempt := domain.CheckoutAttempt{
		ID:            s.genID.Generate(),
		SessionID:     sessionID,
		CustomerEmail: customerservice.NormalizeEmail(req.Email),
		CustomerName:  strings.TrimSpace(req.Name),
		CustomerPhone: strings.TrimSpace(req.Phone),
		Cart:          cart,
		Amount:        req.Amount,
		Status:        domain.AttemptPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.Upsert(ctx, s.db, &attempt); err != nil {
		return domain.CheckoutAttempt{}, err
	}

	stored, err := s.repo.FindBySessionID(ctx, s.db, sessionID)
	if err != nil {
		return domain.CheckoutAttempt{}, err
	}
	if stored == nil {
		return attempt, nil
	}
	return *stored, nil
}

func (s *Service) Abandon(ctx context.Context, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return domain.ErrInvalidSession
	}

	count, err := s.repo.MarkAbandoned(ctx, s.db, sessionID, s.clock.Now())
	if err != nil {
		return err
	}
	if count == 0 {
		// Already recovered or abandoned; the signal is stale.
		s.log.Debug("abandon signal ignored", zap.String("session_id", sessionID))
	}
	return nil
}

func (s *Service) Recover(ctx context.Context, email string, orderID snowflake.ID) error {
	email = customerservice.NormalizeEmail(email)
	if email == "" {
		return nil
	}

	count, err := s.repo.MarkRecoveredByEmail(ctx, s.db, email, orderID, s.clock.Now())
	if err != nil {
		return err
	}
	if count > 0 {
		s.log.Info("checkout attempts recovered",
			zap.String("email", email),
			zap.Int64("order_id", int64(orderID)),
			zap.Int64("count", count),
		)
	}
	return nil
}

func (s *Service) RevertRecovery(ctx context.Context, email string) error {
	email = customerservice.NormalizeEmail(email)
	if email == "" {
		return nil
	}

	count, err := s.repo.RevertRecoveredByEmail(ctx, s.db, email, s.clock.Now())
	if err != nil {
		return err
	}
	if count > 0 {
		s.log.Info("checkout recovery reverted after failure verdict",
			zap.String("email", email),
			zap.Int64("count", count),
		)
	}
	return nil
}

func (s *Service) SweepAbandoned(ctx context.Context, window time.Duration) (int64, error) {
	now := s.clock.Now()
	return s.repo.SweepAbandoned(ctx, s.db, now.Add(-window), now)
}

func (s *Service) GetBySessionID(ctx context.Context, sessionID string) (*domain.CheckoutAttempt, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, domain.ErrInvalidSession
	}
	return s.repo.FindBySessionID(ctx, s.db, sessionID)
}
