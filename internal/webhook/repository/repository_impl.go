package repository

import (
	"context"

	"github.com/smallbiznis/storefront/internal/webhook/domain"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) Insert(ctx context.Context, log *domain.WebhookLog) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO webhook_logs
		   (id, provider, payload, verified, event_type, outcome, status_code, duration_ms, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		log.ID,
		log.Provider,
		log.Payload,
		log.Verified,
		log.EventType,
		log.Outcome,
		log.StatusCode,
		log.DurationMs,
		log.Error,
		log.CreatedAt,
	).Error
}
