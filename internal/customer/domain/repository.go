package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Upsert(ctx context.Context, db *gorm.DB, customer *Customer) error
	FindByEmail(ctx context.Context, db *gorm.DB, email string) (*Customer, error)
}
