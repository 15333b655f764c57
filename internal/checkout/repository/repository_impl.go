package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/storefront/internal/checkout/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, attempt *domain.CheckoutAttempt) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO checkout_attempts
		   (id, session_id, customer_email, customer_name, customer_phone, cart, amount, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (session_id)
		 DO UPDATE SET customer_email = COALESCE(NULLIF(excluded.customer_email, ''), checkout_attempts.customer_email),
		               customer_name = COALESCE(NULLIF(excluded.customer_name, ''), checkout_attempts.customer_name),
		               customer_phone = COALESCE(NULLIF(excluded.customer_phone, ''), checkout_attempts.customer_phone),
		               cart = excluded.cart,
		               amount = excluded.amount,
		               updated_at = excluded.updated_at`,
		attempt.ID,
		attempt.SessionID,
		attempt.CustomerEmail,
		attempt.CustomerName,
		attempt.CustomerPhone,
		attempt.Cart,
		attempt.Amount,
		attempt.Status,
		attempt.CreatedAt,
		attempt.UpdatedAt,
	).Error
}

func (r *repo) FindBySessionID(ctx context.Context, db *gorm.DB, sessionID string) (*domain.CheckoutAttempt, error) {
	var attempt domain.CheckoutAttempt
	err := db.WithContext(ctx).Raw(
		`SELECT id, session_id, customer_email, customer_name, customer_phone, cart, amount,
		        status, order_id, recovered_at, abandoned_at, created_at, updated_at
		 FROM checkout_attempts WHERE session_id = ?`,
		sessionID,
	).Scan(&attempt).Error
	if err != nil {
		return nil, err
	}
	if attempt.ID == 0 {
		return nil, nil
	}
	return &attempt, nil
}

func (r *repo) MarkAbandoned(ctx context.Context, db *gorm.DB, sessionID string, now time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE checkout_attempts
		 SET status = ?, abandoned_at = ?, updated_at = ?
		 WHERE session_id = ? AND status = ?`,
		domain.AttemptAbandoned,
		now,
		now,
		sessionID,
		domain.AttemptPending,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) MarkRecoveredByEmail(ctx context.Context, db *gorm.DB, email string, orderID snowflake.ID, now time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE checkout_attempts
		 SET status = ?, order_id = ?, recovered_at = ?, updated_at = ?
		 WHERE customer_email = ? AND status IN (?, ?)`,
		domain.AttemptRecovered,
		orderID,
		now,
		now,
		email,
		domain.AttemptPending,
		domain.AttemptAbandoned,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) RevertRecoveredByEmail(ctx context.Context, db *gorm.DB, email string, now time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE checkout_attempts
		 SET status = ?, abandoned_at = ?, updated_at = ?
		 WHERE customer_email = ? AND status = ?`,
		domain.AttemptAbandoned,
		now,
		now,
		email,
		domain.AttemptRecovered,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) SweepAbandoned(ctx context.Context, db *gorm.DB, cutoff time.Time, now time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE checkout_attempts
		 SET status = ?, abandoned_at = ?, updated_at = ?
		 WHERE status = ? AND updated_at < ?`,
		domain.AttemptAbandoned,
		now,
		now,
		domain.AttemptPending,
		cutoff,
	)
	return result.RowsAffected, result.Error
}
