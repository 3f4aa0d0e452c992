package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InvoiceStatus represents the lifecycle state of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusIssued    InvoiceStatus = "issued"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// Invoice is a monthly rent invoice for a tenant: rent plus additional
// charges plus catalog line items, minus a flat invoice-level discount.
type Invoice struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Number string `gorm:"size:50;uniqueIndex" json:"number"`

	TenantID uint    `gorm:"index;not null" json:"tenant_id"`
	Tenant   *Tenant `gorm:"foreignKey:TenantID" json:"tenant,omitempty"`
	RoomID   uint    `gorm:"index;not null" json:"room_id"`
	Room     *Room   `gorm:"foreignKey:RoomID" json:"room,omitempty"`

	// Billing period covered by this invoice.
	PeriodYear  int `gorm:"not null;index:idx_invoice_period" json:"period_year"`
	PeriodMonth int `gorm:"not null;index:idx_invoice_period" json:"period_month"`

	IssueDate time.Time  `gorm:"not null" json:"issue_date"`
	DueDate   time.Time  `gorm:"not null" json:"due_date"`
	PaidDate  *time.Time `json:"paid_date,omitempty"`

	Status InvoiceStatus `gorm:"size:20;default:'draft'" json:"status"`

	MonthlyRent       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"monthly_rent"`
	AdditionalCharges decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"additional_charges"`
	Discount          decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"discount"`
	TotalAmount       decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"total_amount"`
	PaidAmount        decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"paid_amount"`
	RemainingBalance  decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"remaining_balance"`

	Notes string `gorm:"type:text" json:"notes,omitempty"`

	Lines []InvoiceLine `gorm:"foreignKey:InvoiceID" json:"lines,omitempty"`
}

// IsDraft returns true while the invoice can still be edited.
func (i *Invoice) IsDraft() bool {
	return i.Status == InvoiceStatusDraft
}

// CanEdit returns true if line items may still be changed.
func (i *Invoice) CanEdit() bool {
	return i.Status == InvoiceStatusDraft
}

// InvoiceLine is one billable row on an invoice. Item fields are snapshots
// of the catalog item at selection time; the derived amounts are maintained
// by the billing package.
type InvoiceLine struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	InvoiceID uint     `gorm:"index;not null" json:"invoice_id"`
	Invoice   *Invoice `gorm:"foreignKey:InvoiceID" json:"-"`

	// Optional catalog reference; nil for free-form lines.
	ItemID *uint        `gorm:"index" json:"item_id,omitempty"`
	Item   *CatalogItem `gorm:"foreignKey:ItemID" json:"item,omitempty"`

	LineNumber  int    `gorm:"not null" json:"line_number"`
	ItemCode    string `gorm:"size:40" json:"item_code,omitempty"`
	Description string `gorm:"size:500;not null" json:"description"`
	Unit        string `gorm:"size:50;default:'unit'" json:"unit"`

	Quantity         decimal.Decimal `gorm:"type:decimal(12,3);not null;default:1" json:"quantity"`
	UnitPrice        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	DiscountPercent  decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"discount_percent"`
	DiscountAmount   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"discount_amount"`
	TaxPercent       decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"tax_percent"`
	TaxAmount        decimal.Decimal `gorm:"type:decimal(12,4);not null;default:0" json:"tax_amount"`
	LineTotal        decimal.Decimal `gorm:"type:decimal(12,4);not null;default:0" json:"line_total"`
	LineTotalWithTax decimal.Decimal `gorm:"type:decimal(12,4);not null;default:0" json:"line_total_with_tax"`
}

// GenerateInvoiceNumber generates the next invoice number for a year.
// Format: INV-YYYY-NNNN (e.g. INV-2026-0001). The sequence continues from
// the highest existing number, so deleting an invoice never frees a number
// for reuse.
func GenerateInvoiceNumber(db *gorm.DB, year int) (string, error) {
	prefix := fmt.Sprintf("INV-%d-", year)
	var last Invoice
	err := db.Where("number LIKE ?", prefix+"%").Order("number desc").Limit(1).Find(&last).Error
	if err != nil {
		return "", err
	}
	seq := 1
	if last.Number != "" {
		n, convErr := strconv.Atoi(strings.TrimPrefix(last.Number, prefix))
		if convErr != nil {
			return "", fmt.Errorf("malformed invoice number %q: %w", last.Number, convErr)
		}
		seq = n + 1
	}
	return fmt.Sprintf("%s%04d", prefix, seq), nil
}
