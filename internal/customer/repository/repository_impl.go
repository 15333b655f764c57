package repository

import (
	"context"

	"github.com/smallbiznis/storefront/internal/customer/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, customer *domain.Customer) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO customers (id, email, name, phone, tax_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (email)
		 DO UPDATE SET name = COALESCE(NULLIF(excluded.name, ''), customers.name),
		               phone = COALESCE(NULLIF(excluded.phone, ''), customers.phone),
		               tax_id = COALESCE(NULLIF(excluded.tax_id, ''), customers.tax_id),
		               updated_at = excluded.updated_at`,
		customer.ID,
		customer.Email,
		customer.Name,
		customer.Phone,
		customer.TaxID,
		customer.CreatedAt,
		customer.UpdatedAt,
	).Error
}

func (r *repo) FindByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.Customer, error) {
	var customer domain.Customer
	err := db.WithContext(ctx).Raw(
		`SELECT id, email, name, phone, tax_id, created_at, updated_at
		 FROM customers WHERE email = ?`,
		email,
	).Scan(&customer).Error
	if err != nil {
		return nil, err
	}
	if customer.ID == 0 {
		return nil, nil
	}
	return &customer, nil
}
