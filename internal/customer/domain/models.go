package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Customer struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Email     string       `gorm:"uniqueIndex;not null" json:"email"`
	Name      string       `json:"name,omitempty"`
	Phone     string       `json:"phone,omitempty"`
	TaxID     string       `gorm:"column:tax_id" json:"tax_id,omitempty"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null" json:"updated_at"`
}

func (Customer) TableName() string { return "customers" }

// Identity is the contact data carried by a webhook or checkout
// attempt. Blank fields are treated as absent: they never overwrite a
// stored value.
type Identity struct {
	Email string
	Name  string
	Phone string
	TaxID string
}
