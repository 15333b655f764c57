package repository

import (
	"context"
	"time"

	"github.com/smallbiznis/storefront/internal/order/domain"
	"github.com/smallbiznis/storefront/internal/status"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, order *domain.Order) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO orders
		   (id, external_order_id, customer_id, customer_email, amount, subtotal, discount,
		    coupon_code, coupon_discount, status, failure_reason, method, processor,
		    fallback_used, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID,
		order.ExternalOrderID,
		order.CustomerID,
		order.CustomerEmail,
		order.Amount,
		order.Subtotal,
		order.Discount,
		order.CouponCode,
		order.CouponDiscount,
		order.Status,
		order.FailureReason,
		order.Method,
		order.Processor,
		order.FallbackUsed,
		order.Metadata,
		order.CreatedAt,
		order.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, order *domain.Order, prev string) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE orders
		 SET external_order_id = ?, customer_id = ?, customer_email = ?, amount = ?,
		     subtotal = ?, discount = ?, coupon_code = ?, coupon_discount = ?,
		     status = ?, failure_reason = ?, method = ?, processor = ?,
		     fallback_used = ?, metadata = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		order.ExternalOrderID,
		order.CustomerID,
		order.CustomerEmail,
		order.Amount,
		order.Subtotal,
		order.Discount,
		order.CouponCode,
		order.CouponDiscount,
		order.Status,
		order.FailureReason,
		order.Method,
		order.Processor,
		order.FallbackUsed,
		order.Metadata,
		order.UpdatedAt,
		order.ID,
		prev,
	)
	return result.RowsAffected, result.Error
}

const orderColumns = `id, external_order_id, customer_id, customer_email, amount, subtotal, discount,
	coupon_code, coupon_discount, status, failure_reason, method, processor,
	fallback_used, metadata, created_at, updated_at`

func (r *repo) FindByExternalID(ctx context.Context, db *gorm.DB, externalID string) (*domain.Order, error) {
	var order domain.Order
	err := db.WithContext(ctx).Raw(
		`SELECT `+orderColumns+` FROM orders WHERE external_order_id = ?`,
		externalID,
	).Scan(&order).Error
	if err != nil {
		return nil, err
	}
	if order.ID == 0 {
		return nil, nil
	}
	return &order, nil
}

// FindRecentByEmail serves the fallback for orders that learn their
// processor id later. Rows already bound to an external order id are
// never candidates: matching one would let a second order from the
// same buyer steal and overwrite it.
func (r *repo) FindRecentByEmail(ctx context.Context, db *gorm.DB, email string, since time.Time) (*domain.Order, error) {
	var order domain.Order
	err := db.WithContext(ctx).Raw(
		`SELECT `+orderColumns+` FROM orders
		 WHERE customer_email = ?
		   AND external_order_id IS NULL
		   AND created_at > ?
		   AND status NOT IN (?, ?, ?, ?, ?, ?, ?)
		 ORDER BY created_at DESC
		 LIMIT 1`,
		email,
		since,
		status.Approved,
		status.Paid,
		status.Refused,
		status.Cancelled,
		status.Expired,
		status.Refunded,
		status.Chargeback,
	).Scan(&order).Error
	if err != nil {
		return nil, err
	}
	if order.ID == 0 {
		return nil, nil
	}
	return &order, nil
}
