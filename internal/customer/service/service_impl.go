package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/storefront/internal/customer/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("customer.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Upsert(ctx context.Context, identity domain.Identity) (domain.Customer, error) {
	email := NormalizeEmail(identity.Email)
	if email == "" {
		return domain.Customer{}, domain.ErrInvalidEmail
	}

	now := time.Now().UTC()
	customer := domain.Customer{
		ID:        s.genID.Generate(),
		Email:     email,
		Name:      strings.TrimSpace(identity.Name),
		Phone:     strings.TrimSpace(identity.Phone),
		TaxID:     strings.TrimSpace(identity.TaxID),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Upsert(ctx, s.db, &customer); err != nil {
		return domain.Customer{}, err
	}

	stored, err := s.repo.FindByEmail(ctx, s.db, email)
	if err != nil {
		return domain.Customer{}, err
	}
	if stored == nil {
		return customer, nil
	}
	return *stored, nil
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, domain.ErrInvalidEmail
	}
	return s.repo.FindByEmail(ctx, s.db, email)
}

// NormalizeEmail lowercases and trims; returns "" when the value does
// not look like an address.
func NormalizeEmail(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return ""
	}
	return email
}
