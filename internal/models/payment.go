package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment records money received against an invoice.
type Payment struct {
	ID        uint     `gorm:"primaryKey" json:"id"`
	InvoiceID uint     `gorm:"index;not null" json:"invoice_id"`
	Invoice   *Invoice `gorm:"foreignKey:InvoiceID" json:"-"`

	Date   time.Time       `gorm:"not null" json:"date"`
	Amount decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Method string          `gorm:"size:40;not null" json:"method"` // transfer, cash, card, check
	Note   string          `gorm:"size:500" json:"note,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
