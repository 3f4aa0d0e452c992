package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CatalogItem is a chargeable item from the master catalog (utilities,
// services, penalties). Invoice lines copy its fields at selection time so
// later catalog edits never rewrite history.
type CatalogItem struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	Code          string          `gorm:"size:40;not null;uniqueIndex" json:"code"`
	Name          string          `gorm:"size:255;not null" json:"name"`
	Description   string          `gorm:"size:500" json:"description,omitempty"`
	UnitOfMeasure string          `gorm:"size:50;default:'unit'" json:"unit_of_measure"`
	UnitPrice     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	TaxPercent    decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"tax_percent"`
	Category      string          `gorm:"size:100;index" json:"category,omitempty"`

	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
