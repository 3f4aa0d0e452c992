package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Room is a rentable unit in a property.
type Room struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Number      string `gorm:"size:20;not null;uniqueIndex" json:"number"`
	Floor       int    `json:"floor"`
	Description string `gorm:"size:500" json:"description,omitempty"`

	// Rent charged per billing period; copied onto invoices at creation.
	MonthlyRent decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"monthly_rent"`

	Occupied  bool      `gorm:"default:false" json:"occupied"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
