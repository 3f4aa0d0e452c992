package services

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rentledger/rentledger/internal/billing"
	"github.com/rentledger/rentledger/internal/models"
)

var (
	ErrInvoiceNotEditable    = errors.New("invoice can no longer be edited")
	ErrTenantWithoutRoom     = errors.New("tenant has no room assigned")
	ErrPaymentExceedsBalance = errors.New("payment exceeds remaining balance")
	ErrInvoiceNotIssued      = errors.New("invoice is not issued")
	ErrInvoiceAlreadyFinal   = errors.New("invoice is already finalized")
)

// InvoiceService builds and persists invoices. All derived amounts come
// from the billing package; the service never does money arithmetic of
// its own outside of payment balance bookkeeping.
type InvoiceService struct {
	db *gorm.DB
}

func NewInvoiceService(db *gorm.DB) *InvoiceService {
	return &InvoiceService{db: db}
}

// LineInput is the sanitized numeric tuple accepted from the API for one
// invoice line. Amounts are clamped before they reach the calculator.
type LineInput struct {
	ItemID          *uint
	ItemCode        string
	Description     string
	Unit            string
	Quantity        decimal.Decimal
	UnitPrice       decimal.Decimal
	DiscountPercent decimal.Decimal
	DiscountAmount  decimal.Decimal
	TaxPercent      decimal.Decimal
}

// BuildLines clamps, computes and renumbers a set of line inputs.
func BuildLines(inputs []LineInput) []billing.LineItem {
	items := make([]billing.LineItem, 0, len(inputs))
	for _, in := range inputs {
		items = append(items, billing.ComputeLineItem(billing.LineItem{
			ItemCode:        in.ItemCode,
			Description:     in.Description,
			Unit:            in.Unit,
			Quantity:        billing.ClampAmount(in.Quantity),
			UnitPrice:       billing.ClampAmount(in.UnitPrice),
			DiscountPercent: billing.ClampPercent(in.DiscountPercent),
			DiscountAmount:  billing.ClampAmount(in.DiscountAmount),
			TaxPercent:      billing.ClampPercent(in.TaxPercent),
		}))
	}
	return billing.RenumberLines(items)
}

func toModelLines(inputs []LineInput, items []billing.LineItem) []models.InvoiceLine {
	lines := make([]models.InvoiceLine, 0, len(items))
	for i, li := range items {
		var itemID *uint
		if i < len(inputs) {
			itemID = inputs[i].ItemID
		}
		lines = append(lines, models.InvoiceLine{
			ItemID:           itemID,
			LineNumber:       li.LineNumber,
			ItemCode:         li.ItemCode,
			Description:      li.Description,
			Unit:             li.Unit,
			Quantity:         li.Quantity,
			UnitPrice:        li.UnitPrice,
			DiscountPercent:  li.DiscountPercent,
			DiscountAmount:   li.DiscountAmount,
			TaxPercent:       li.TaxPercent,
			TaxAmount:        li.TaxAmount,
			LineTotal:        li.LineTotal,
			LineTotalWithTax: li.LineTotalWithTax,
		})
	}
	return lines
}

// CreateParams describes a new invoice. MonthlyRent is copied from the
// tenant's room; AdditionalCharges and Discount are invoice-level amounts.
type CreateParams struct {
	TenantID          uint
	PeriodYear        int
	PeriodMonth       int
	IssueDate         time.Time
	DueDate           time.Time
	AdditionalCharges decimal.Decimal
	Discount          decimal.Decimal
	Notes             string
	Lines             []LineInput
}

// Create builds a draft invoice for a tenant and persists it together with
// its lines in one transaction.
func (s *InvoiceService) Create(ctx context.Context, p CreateParams) (*models.Invoice, error) {
	var tenant models.Tenant
	if err := s.db.WithContext(ctx).Preload("Room").First(&tenant, p.TenantID).Error; err != nil {
		return nil, err
	}
	if tenant.RoomID == nil || tenant.Room == nil {
		return nil, ErrTenantWithoutRoom
	}

	items := BuildLines(p.Lines)
	charges := billing.ClampAmount(p.AdditionalCharges)
	discount := billing.ClampAmount(p.Discount)
	total := billing.ComputeInvoiceTotal(tenant.Room.MonthlyRent, charges, discount, items)

	inv := models.Invoice{
		TenantID:          tenant.ID,
		RoomID:            *tenant.RoomID,
		PeriodYear:        p.PeriodYear,
		PeriodMonth:       p.PeriodMonth,
		IssueDate:         p.IssueDate,
		DueDate:           p.DueDate,
		Status:            models.InvoiceStatusDraft,
		MonthlyRent:       tenant.Room.MonthlyRent,
		AdditionalCharges: charges,
		Discount:          discount,
		TotalAmount:       total,
		PaidAmount:        decimal.Zero,
		RemainingBalance:  total,
		Notes:             p.Notes,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		number, err := models.GenerateInvoiceNumber(tx, p.PeriodYear)
		if err != nil {
			return err
		}
		inv.Number = number
		if err := tx.Create(&inv).Error; err != nil {
			return err
		}
		lines := toModelLines(p.Lines, items)
		for i := range lines {
			lines[i].InvoiceID = inv.ID
		}
		if len(lines) > 0 {
			if err := tx.Create(&lines).Error; err != nil {
				return err
			}
		}
		inv.Lines = lines
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// UpdateParams replaces the editable fields of a draft invoice.
type UpdateParams struct {
	AdditionalCharges decimal.Decimal
	Discount          decimal.Decimal
	Notes             string
	Lines             []LineInput
}

// Update replaces the lines of a draft invoice and recomputes its totals.
// Old lines are deleted and the new set is renumbered 1..N, keeping line
// numbering contiguous after any client-side deletion.
func (s *InvoiceService) Update(ctx context.Context, invoiceID uint, p UpdateParams) (*models.Invoice, error) {
	var inv models.Invoice
	if err := s.db.WithContext(ctx).First(&inv, invoiceID).Error; err != nil {
		return nil, err
	}
	if !inv.CanEdit() {
		return nil, ErrInvoiceNotEditable
	}

	items := BuildLines(p.Lines)
	charges := billing.ClampAmount(p.AdditionalCharges)
	discount := billing.ClampAmount(p.Discount)
	total := billing.ComputeInvoiceTotal(inv.MonthlyRent, charges, discount, items)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("invoice_id = ?", inv.ID).Delete(&models.InvoiceLine{}).Error; err != nil {
			return err
		}
		lines := toModelLines(p.Lines, items)
		for i := range lines {
			lines[i].InvoiceID = inv.ID
		}
		if len(lines) > 0 {
			if err := tx.Create(&lines).Error; err != nil {
				return err
			}
		}
		updates := map[string]any{
			"additional_charges": charges,
			"discount":           discount,
			"total_amount":       total,
			"remaining_balance":  total.Sub(inv.PaidAmount),
			"notes":              p.Notes,
		}
		if err := tx.Model(&inv).Updates(updates).Error; err != nil {
			return err
		}
		inv.Lines = lines
		return nil
	})
	if err != nil {
		return nil, err
	}
	inv.AdditionalCharges = charges
	inv.Discount = discount
	inv.TotalAmount = total
	inv.RemainingBalance = total.Sub(inv.PaidAmount)
	inv.Notes = p.Notes
	return &inv, nil
}

// Finalize moves a draft invoice to issued. Issued invoices are immutable
// except for payment bookkeeping.
func (s *InvoiceService) Finalize(ctx context.Context, invoiceID uint) error {
	var inv models.Invoice
	if err := s.db.WithContext(ctx).First(&inv, invoiceID).Error; err != nil {
		return err
	}
	if inv.Status != models.InvoiceStatusDraft {
		return ErrInvoiceAlreadyFinal
	}
	return s.db.WithContext(ctx).Model(&inv).Update("status", models.InvoiceStatusIssued).Error
}

// Cancel voids a draft or issued invoice. Paid and already cancelled
// invoices cannot be voided.
func (s *InvoiceService) Cancel(ctx context.Context, invoiceID uint) error {
	var inv models.Invoice
	if err := s.db.WithContext(ctx).First(&inv, invoiceID).Error; err != nil {
		return err
	}
	if inv.Status == models.InvoiceStatusPaid || inv.Status == models.InvoiceStatusCancelled {
		return ErrInvoiceAlreadyFinal
	}
	return s.db.WithContext(ctx).Model(&inv).Update("status", models.InvoiceStatusCancelled).Error
}

// RecordPayment stores a payment and maintains paid amount, remaining
// balance and status in the same transaction.
func (s *InvoiceService) RecordPayment(ctx context.Context, invoiceID uint, date time.Time, amount decimal.Decimal, method, note string) (*models.Payment, error) {
	if amount.IsNegative() || amount.IsZero() {
		return nil, errors.New("payment amount must be positive")
	}
	var payment *models.Payment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inv models.Invoice
		if err := tx.First(&inv, invoiceID).Error; err != nil {
			return err
		}
		if inv.Status != models.InvoiceStatusIssued {
			return ErrInvoiceNotIssued
		}
		if amount.GreaterThan(inv.RemainingBalance) {
			return ErrPaymentExceedsBalance
		}
		p := models.Payment{InvoiceID: inv.ID, Date: date, Amount: amount, Method: method, Note: note}
		if err := tx.Create(&p).Error; err != nil {
			return err
		}
		paid := inv.PaidAmount.Add(amount)
		remaining := inv.TotalAmount.Sub(paid)
		updates := map[string]any{
			"paid_amount":       paid,
			"remaining_balance": remaining,
		}
		if remaining.LessThanOrEqual(decimal.Zero) {
			updates["status"] = models.InvoiceStatusPaid
			updates["paid_date"] = date
		}
		if err := tx.Model(&inv).Updates(updates).Error; err != nil {
			return err
		}
		payment = &p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// TenantBalance is one row of the outstanding balance report.
type TenantBalance struct {
	TenantID    uint            `json:"tenant_id"`
	TenantName  string          `json:"tenant_name"`
	Invoices    int             `json:"invoices"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

// OutstandingBalances sums remaining balances of issued invoices per tenant.
func (s *InvoiceService) OutstandingBalances(ctx context.Context) ([]TenantBalance, error) {
	var invoices []models.Invoice
	err := s.db.WithContext(ctx).
		Where("status = ?", models.InvoiceStatusIssued).
		Preload("Tenant").
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	byTenant := map[uint]*TenantBalance{}
	order := []uint{}
	for _, inv := range invoices {
		tb, ok := byTenant[inv.TenantID]
		if !ok {
			tb = &TenantBalance{TenantID: inv.TenantID, Outstanding: decimal.Zero}
			if inv.Tenant != nil {
				tb.TenantName = inv.Tenant.FirstName + " " + inv.Tenant.LastName
			}
			byTenant[inv.TenantID] = tb
			order = append(order, inv.TenantID)
		}
		tb.Invoices++
		tb.Outstanding = tb.Outstanding.Add(inv.RemainingBalance)
	}
	out := make([]TenantBalance, 0, len(order))
	for _, id := range order {
		out = append(out, *byTenant[id])
	}
	return out, nil
}
