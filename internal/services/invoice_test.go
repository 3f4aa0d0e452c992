package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rentledger/rentledger/internal/models"
)

func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Room{}, &models.Tenant{}, &models.CatalogItem{}, &models.Invoice{}, &models.InvoiceLine{}, &models.Payment{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedTenantWithRoom(t *testing.T, db *gorm.DB, rent string) models.Tenant {
	t.Helper()
	room := models.Room{Number: "101", Floor: 1, MonthlyRent: decimal.RequireFromString(rent), Occupied: true}
	if err := db.Create(&room).Error; err != nil {
		t.Fatalf("room: %v", err)
	}
	tenant := models.Tenant{FirstName: "Ana", LastName: "Kovac", Email: "ana@test", RoomID: &room.ID}
	if err := db.Create(&tenant).Error; err != nil {
		t.Fatalf("tenant: %v", err)
	}
	return tenant
}

func waterLine() LineInput {
	return LineInput{
		ItemCode:        "WATER",
		Description:     "Water usage",
		Unit:            "m3",
		Quantity:        decimal.NewFromInt(2),
		UnitPrice:       decimal.NewFromInt(100),
		DiscountPercent: decimal.NewFromInt(10),
		TaxPercent:      decimal.NewFromInt(5),
	}
}

func TestInvoiceCreateComputesTotals(t *testing.T) {
	db := setupServiceTestDB(t)
	tenant := seedTenantWithRoom(t, db, "800")
	svc := NewInvoiceService(db)

	inv, err := svc.Create(context.Background(), CreateParams{
		TenantID:          tenant.ID,
		PeriodYear:        2026,
		PeriodMonth:       8,
		IssueDate:         time.Now(),
		DueDate:           time.Now().AddDate(0, 0, 14),
		AdditionalCharges: decimal.NewFromInt(50),
		Discount:          decimal.Zero,
		Lines:             []LineInput{waterLine()},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	// line: 2*100 - 10% = 180, +5% tax = 189; total: 800+50+189 = 1039
	if !inv.TotalAmount.Equal(decimal.RequireFromString("1039")) {
		t.Fatalf("total = %s, want 1039", inv.TotalAmount)
	}
	if !inv.RemainingBalance.Equal(inv.TotalAmount) {
		t.Fatalf("remaining balance must start at total")
	}
	if inv.Number != "INV-2026-0001" {
		t.Fatalf("number = %s", inv.Number)
	}
	if len(inv.Lines) != 1 || inv.Lines[0].LineNumber != 1 {
		t.Fatalf("expected one line numbered 1, got %+v", inv.Lines)
	}
	if !inv.Lines[0].LineTotalWithTax.Equal(decimal.RequireFromString("189")) {
		t.Fatalf("line total with tax = %s, want 189", inv.Lines[0].LineTotalWithTax)
	}
}

func TestInvoiceCreateRequiresRoom(t *testing.T) {
	db := setupServiceTestDB(t)
	tenant := models.Tenant{FirstName: "No", LastName: "Room"}
	if err := db.Create(&tenant).Error; err != nil {
		t.Fatalf("tenant: %v", err)
	}
	svc := NewInvoiceService(db)
	_, err := svc.Create(context.Background(), CreateParams{TenantID: tenant.ID, PeriodYear: 2026, PeriodMonth: 1})
	if !errors.Is(err, ErrTenantWithoutRoom) {
		t.Fatalf("expected ErrTenantWithoutRoom, got %v", err)
	}
}

func TestInvoiceUpdateRenumbersAndRecomputes(t *testing.T) {
	db := setupServiceTestDB(t)
	tenant := seedTenantWithRoom(t, db, "500")
	svc := NewInvoiceService(db)
	ctx := context.Background()

	three := []LineInput{waterLine(), waterLine(), waterLine()}
	three[1].ItemCode, three[2].ItemCode = "POWER", "TRASH"
	inv, err := svc.Create(ctx, CreateParams{TenantID: tenant.ID, PeriodYear: 2026, PeriodMonth: 2, IssueDate: time.Now(), DueDate: time.Now(), Lines: three})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Drop the middle line; remaining lines must renumber to 1..2.
	updated, err := svc.Update(ctx, inv.ID, UpdateParams{Lines: []LineInput{three[0], three[2]}})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(updated.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(updated.Lines))
	}
	for i, line := range updated.Lines {
		if line.LineNumber != i+1 {
			t.Fatalf("line %d has number %d", i, line.LineNumber)
		}
	}
	if updated.Lines[1].ItemCode != "TRASH" {
		t.Fatalf("relative order not preserved: %+v", updated.Lines)
	}
	// total: 500 + 2*189 = 878
	if !updated.TotalAmount.Equal(decimal.RequireFromString("878")) {
		t.Fatalf("total = %s, want 878", updated.TotalAmount)
	}
	// No stale rows should survive the line replacement.
	var count int64
	db.Model(&models.InvoiceLine{}).Where("invoice_id = ?", inv.ID).Count(&count)
	if count != 2 {
		t.Fatalf("expected 2 persisted lines, got %d", count)
	}
}

func TestInvoiceUpdateRejectsIssued(t *testing.T) {
	db := setupServiceTestDB(t)
	tenant := seedTenantWithRoom(t, db, "500")
	svc := NewInvoiceService(db)
	ctx := context.Background()

	inv, err := svc.Create(ctx, CreateParams{TenantID: tenant.ID, PeriodYear: 2026, PeriodMonth: 3, IssueDate: time.Now(), DueDate: time.Now()})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Finalize(ctx, inv.ID); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if _, err := svc.Update(ctx, inv.ID, UpdateParams{}); !errors.Is(err, ErrInvoiceNotEditable) {
		t.Fatalf("expected ErrInvoiceNotEditable, got %v", err)
	}
	if err := svc.Finalize(ctx, inv.ID); !errors.Is(err, ErrInvoiceAlreadyFinal) {
		t.Fatalf("expected ErrInvoiceAlreadyFinal, got %v", err)
	}
}

func TestInvoiceNumberSurvivesDeletedDraft(t *testing.T) {
	db := setupServiceTestDB(t)
	tenant := seedTenantWithRoom(t, db, "500")
	svc := NewInvoiceService(db)
	ctx := context.Background()

	first, err := svc.Create(ctx, CreateParams{TenantID: tenant.ID, PeriodYear: 2026, PeriodMonth: 1, IssueDate: time.Now(), DueDate: time.Now()})
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	second, err := svc.Create(ctx, CreateParams{TenantID: tenant.ID, PeriodYear: 2026, PeriodMonth: 2, IssueDate: time.Now(), DueDate: time.Now()})
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if first.Number != "INV-2026-0001" || second.Number != "INV-2026-0002" {
		t.Fatalf("numbers = %s, %s", first.Number, second.Number)
	}

	// Remove the first draft the way the API does.
	if err := db.Where("invoice_id = ?", first.ID).Delete(&models.InvoiceLine{}).Error; err != nil {
		t.Fatalf("delete lines: %v", err)
	}
	if err := db.Delete(&models.Invoice{}, first.ID).Error; err != nil {
		t.Fatalf("delete invoice: %v", err)
	}

	// The sequence must keep counting past the highest issued number
	// instead of recycling INV-2026-0002.
	third, err := svc.Create(ctx, CreateParams{TenantID: tenant.ID, PeriodYear: 2026, PeriodMonth: 3, IssueDate: time.Now(), DueDate: time.Now()})
	if err != nil {
		t.Fatalf("create after delete: %v", err)
	}
	if third.Number != "INV-2026-0003" {
		t.Fatalf("number = %s, want INV-2026-0003", third.Number)
	}

	// Sequences are per year.
	other, err := svc.Create(ctx, CreateParams{TenantID: tenant.ID, PeriodYear: 2027, PeriodMonth: 1, IssueDate: time.Now(), DueDate: time.Now()})
	if err != nil {
		t.Fatalf("create other year: %v", err)
	}
	if other.Number != "INV-2027-0001" {
		t.Fatalf("number = %s, want INV-2027-0001", other.Number)
	}
}

func TestInvoiceCancel(t *testing.T) {
	db := setupServiceTestDB(t)
	tenant := seedTenantWithRoom(t, db, "500")
	svc := NewInvoiceService(db)
	ctx := context.Background()

	inv, err := svc.Create(ctx, CreateParams{TenantID: tenant.ID, PeriodYear: 2026, PeriodMonth: 7, IssueDate: time.Now(), DueDate: time.Now()})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Finalize(ctx, inv.ID); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if err := svc.Cancel(ctx, inv.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	var reloaded models.Invoice
	db.First(&reloaded, inv.ID)
	if reloaded.Status != models.InvoiceStatusCancelled {
		t.Fatalf("status = %s, want cancelled", reloaded.Status)
	}
	// Cancelled invoices take no payments and cannot be cancelled twice.
	if _, err := svc.RecordPayment(ctx, inv.ID, time.Now(), decimal.NewFromInt(10), "cash", ""); !errors.Is(err, ErrInvoiceNotIssued) {
		t.Fatalf("expected ErrInvoiceNotIssued, got %v", err)
	}
	if err := svc.Cancel(ctx, inv.ID); !errors.Is(err, ErrInvoiceAlreadyFinal) {
		t.Fatalf("expected ErrInvoiceAlreadyFinal, got %v", err)
	}
}

func TestRecordPaymentMaintainsBalance(t *testing.T) {
	db := setupServiceTestDB(t)
	tenant := seedTenantWithRoom(t, db, "600")
	svc := NewInvoiceService(db)
	ctx := context.Background()

	inv, err := svc.Create(ctx, CreateParams{TenantID: tenant.ID, PeriodYear: 2026, PeriodMonth: 4, IssueDate: time.Now(), DueDate: time.Now()})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Payments only against issued invoices.
	if _, err := svc.RecordPayment(ctx, inv.ID, time.Now(), decimal.NewFromInt(100), "transfer", ""); !errors.Is(err, ErrInvoiceNotIssued) {
		t.Fatalf("expected ErrInvoiceNotIssued, got %v", err)
	}
	if err := svc.Finalize(ctx, inv.ID); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	if _, err := svc.RecordPayment(ctx, inv.ID, time.Now(), decimal.NewFromInt(400), "transfer", "first part"); err != nil {
		t.Fatalf("payment 1: %v", err)
	}
	var reloaded models.Invoice
	db.First(&reloaded, inv.ID)
	if !reloaded.PaidAmount.Equal(decimal.NewFromInt(400)) || !reloaded.RemainingBalance.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("paid=%s remaining=%s", reloaded.PaidAmount, reloaded.RemainingBalance)
	}
	if reloaded.Status != models.InvoiceStatusIssued {
		t.Fatalf("partial payment must not mark paid, status=%s", reloaded.Status)
	}

	// Overpayment is rejected.
	if _, err := svc.RecordPayment(ctx, inv.ID, time.Now(), decimal.NewFromInt(300), "cash", ""); !errors.Is(err, ErrPaymentExceedsBalance) {
		t.Fatalf("expected ErrPaymentExceedsBalance, got %v", err)
	}

	if _, err := svc.RecordPayment(ctx, inv.ID, time.Now(), decimal.NewFromInt(200), "cash", "rest"); err != nil {
		t.Fatalf("payment 2: %v", err)
	}
	db.First(&reloaded, inv.ID)
	if reloaded.Status != models.InvoiceStatusPaid {
		t.Fatalf("expected paid status, got %s", reloaded.Status)
	}
	if !reloaded.RemainingBalance.IsZero() {
		t.Fatalf("remaining = %s, want 0", reloaded.RemainingBalance)
	}
	if reloaded.PaidDate == nil {
		t.Fatalf("paid date not set")
	}
}

func TestOutstandingBalances(t *testing.T) {
	db := setupServiceTestDB(t)
	tenant := seedTenantWithRoom(t, db, "750")
	svc := NewInvoiceService(db)
	ctx := context.Background()

	for month := 1; month <= 2; month++ {
		inv, err := svc.Create(ctx, CreateParams{TenantID: tenant.ID, PeriodYear: 2026, PeriodMonth: month, IssueDate: time.Now(), DueDate: time.Now()})
		if err != nil {
			t.Fatalf("create month %d: %v", month, err)
		}
		if err := svc.Finalize(ctx, inv.ID); err != nil {
			t.Fatalf("finalize: %v", err)
		}
	}
	rows, err := svc.OutstandingBalances(ctx)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one tenant row, got %d", len(rows))
	}
	if rows[0].Invoices != 2 || !rows[0].Outstanding.Equal(decimal.NewFromInt(1500)) {
		t.Fatalf("row = %+v", rows[0])
	}
	if rows[0].TenantName != "Ana Kovac" {
		t.Fatalf("tenant name = %q", rows[0].TenantName)
	}
}
