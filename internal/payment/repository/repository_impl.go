package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/storefront/internal/payment/domain"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) Insert(ctx context.Context, attempt *domain.PaymentAttempt) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO payment_attempts
		   (id, order_id, idempotency_key, processor, status, error_code, error_message, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		attempt.ID,
		attempt.OrderID,
		attempt.IdempotencyKey,
		attempt.Processor,
		attempt.Status,
		attempt.ErrorCode,
		attempt.ErrorMessage,
		attempt.CreatedAt,
	).Error
}

func (r *repo) LinkOrder(ctx context.Context, idempotencyKey string, orderID snowflake.ID) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE payment_attempts SET order_id = ? WHERE idempotency_key = ? AND order_id IS NULL`,
		orderID,
		idempotencyKey,
	).Error
}

const attemptColumns = `id, order_id, idempotency_key, processor, status, error_code, error_message, created_at`

func (r *repo) ListByOrderID(ctx context.Context, orderID snowflake.ID) ([]domain.PaymentAttempt, error) {
	var attempts []domain.PaymentAttempt
	err := r.db.WithContext(ctx).Raw(
		`SELECT `+attemptColumns+` FROM payment_attempts WHERE order_id = ? ORDER BY created_at ASC, id ASC`,
		orderID,
	).Scan(&attempts).Error
	return attempts, err
}

func (r *repo) ListByIdempotencyKey(ctx context.Context, key string) ([]domain.PaymentAttempt, error) {
	var attempts []domain.PaymentAttempt
	err := r.db.WithContext(ctx).Raw(
		`SELECT `+attemptColumns+` FROM payment_attempts WHERE idempotency_key = ? ORDER BY created_at ASC, id ASC`,
		key,
	).Scan(&attempts).Error
	return attempts, err
}
