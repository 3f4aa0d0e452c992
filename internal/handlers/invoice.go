package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rentledger/rentledger/internal/gate"
	"github.com/rentledger/rentledger/internal/httpx"
	"github.com/rentledger/rentledger/internal/models"
	"github.com/rentledger/rentledger/internal/services"
	"github.com/rentledger/rentledger/internal/validation"
)

type InvoiceHandler struct {
	DB   *gorm.DB
	Svc  *services.InvoiceService
	Gate *gate.Gate
}

func NewInvoiceHandler(db *gorm.DB, svc *services.InvoiceService, g *gate.Gate) *InvoiceHandler {
	return &InvoiceHandler{DB: db, Svc: svc, Gate: g}
}

// lineReq is the typed line payload; decimals decode from JSON numbers or
// strings, anything else is rejected at the boundary.
type lineReq struct {
	ItemID          *uint           `json:"item_id,omitempty"`
	ItemCode        string          `json:"item_code,omitempty"`
	Description     string          `json:"description"`
	Unit            string          `json:"unit,omitempty"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	TaxPercent      decimal.Decimal `json:"tax_percent"`
}

func toLineInputs(reqs []lineReq) []services.LineInput {
	inputs := make([]services.LineInput, 0, len(reqs))
	for _, lr := range reqs {
		inputs = append(inputs, services.LineInput{
			ItemID:          lr.ItemID,
			ItemCode:        lr.ItemCode,
			Description:     lr.Description,
			Unit:            lr.Unit,
			Quantity:        lr.Quantity,
			UnitPrice:       lr.UnitPrice,
			DiscountPercent: lr.DiscountPercent,
			DiscountAmount:  lr.DiscountAmount,
			TaxPercent:      lr.TaxPercent,
		})
	}
	return inputs
}

func validateLines(reqs []lineReq, v validation.Violations) {
	for i, lr := range reqs {
		prefix := "lines[" + strconv.Itoa(i) + "]."
		validation.Required(prefix+"description", lr.Description, v)
	}
}

type createInvoiceReq struct {
	TenantID          uint            `json:"tenant_id"`
	PeriodYear        int             `json:"period_year"`
	PeriodMonth       int             `json:"period_month"`
	IssueDate         *time.Time      `json:"issue_date,omitempty"`
	DueDate           *time.Time      `json:"due_date,omitempty"`
	AdditionalCharges decimal.Decimal `json:"additional_charges"`
	Discount          decimal.Decimal `json:"discount"`
	Notes             string          `json:"notes,omitempty"`
	Lines             []lineReq       `json:"lines"`
}

// List: GET /invoices - filterable by status, tenant_id, period.
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	if !authorize(h.Gate, w, r, gate.ActionList, "invoice") {
		return
	}
	limit, offset := pagination(r)
	dbq := h.DB.Model(&models.Invoice{})
	if s := r.URL.Query().Get("status"); s != "" {
		dbq = dbq.Where("status = ?", s)
	}
	if v := r.URL.Query().Get("tenant_id"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			dbq = dbq.Where("tenant_id = ?", n)
		}
	}
	if v := r.URL.Query().Get("period_year"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			dbq = dbq.Where("period_year = ?", n)
		}
	}
	if v := r.URL.Query().Get("period_month"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			dbq = dbq.Where("period_month = ?", n)
		}
	}
	var total int64
	dbq.Count(&total)
	var invs []models.Invoice
	if err := dbq.Preload("Tenant").Preload("Room").Order("id desc").Limit(limit).Offset(offset).Find(&invs).Error; err != nil {
		fail(w, r, http.StatusInternalServerError, "failed_to_list_invoices", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": invs, "total": total, "limit": limit, "offset": offset})
}

// Get: GET /invoices/get?id=... - full invoice with lines.
func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	if !authorize(h.Gate, w, r, gate.ActionView, "invoice") {
		return
	}
	id := idFromQuery(r)
	if id == 0 {
		fail(w, r, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var inv models.Invoice
	err := h.DB.Preload("Tenant").Preload("Room").
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("line_number") }).
		First(&inv, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(w, r, http.StatusNotFound, "not_found", nil)
			return
		}
		fail(w, r, http.StatusInternalServerError, "failed_to_load_invoice", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

// Create: POST /invoices
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !authorize(h.Gate, w, r, gate.ActionCreate, "invoice") {
		return
	}
	var req createInvoiceReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		fail(w, r, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := validation.Violations{}
	validation.PositiveInt("tenant_id", int(req.TenantID), v)
	validation.PositiveInt("period_year", req.PeriodYear, v)
	validation.RangeInt("period_month", req.PeriodMonth, 1, 12, v)
	validateLines(req.Lines, v)
	if !v.Empty() {
		fail(w, r, http.StatusBadRequest, "validation_failed", v)
		return
	}
	issue := time.Now()
	if req.IssueDate != nil {
		issue = *req.IssueDate
	}
	due := issue.AddDate(0, 0, 14)
	if req.DueDate != nil {
		due = *req.DueDate
	}
	inv, err := h.Svc.Create(r.Context(), services.CreateParams{
		TenantID:          req.TenantID,
		PeriodYear:        req.PeriodYear,
		PeriodMonth:       req.PeriodMonth,
		IssueDate:         issue,
		DueDate:           due,
		AdditionalCharges: req.AdditionalCharges,
		Discount:          req.Discount,
		Notes:             req.Notes,
		Lines:             toLineInputs(req.Lines),
	})
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			fail(w, r, http.StatusNotFound, "tenant_not_found", nil)
		case errors.Is(err, services.ErrTenantWithoutRoom):
			fail(w, r, http.StatusBadRequest, "tenant_without_room", nil)
		default:
			fail(w, r, http.StatusInternalServerError, "failed_to_create_invoice", nil)
		}
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

type updateInvoiceReq struct {
	AdditionalCharges decimal.Decimal `json:"additional_charges"`
	Discount          decimal.Decimal `json:"discount"`
	Notes             string          `json:"notes,omitempty"`
	Lines             []lineReq       `json:"lines"`
}

// Update: POST /invoices/update?id=... - replaces lines, recomputes totals.
func (h *InvoiceHandler) Update(w http.ResponseWriter, r *http.Request) {
	if !authorize(h.Gate, w, r, gate.ActionUpdate, "invoice") {
		return
	}
	id := idFromQuery(r)
	if id == 0 {
		fail(w, r, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var req updateInvoiceReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		fail(w, r, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := validation.Violations{}
	validateLines(req.Lines, v)
	if !v.Empty() {
		fail(w, r, http.StatusBadRequest, "validation_failed", v)
		return
	}
	inv, err := h.Svc.Update(r.Context(), id, services.UpdateParams{
		AdditionalCharges: req.AdditionalCharges,
		Discount:          req.Discount,
		Notes:             req.Notes,
		Lines:             toLineInputs(req.Lines),
	})
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			fail(w, r, http.StatusNotFound, "not_found", nil)
		case errors.Is(err, services.ErrInvoiceNotEditable):
			fail(w, r, http.StatusConflict, "invoice_not_editable", nil)
		default:
			fail(w, r, http.StatusInternalServerError, "failed_to_update_invoice", nil)
		}
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

// Finalize: POST /invoices/finalize?id=...
func (h *InvoiceHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	if !authorize(h.Gate, w, r, gate.ActionUpdate, "invoice") {
		return
	}
	id := idFromQuery(r)
	if id == 0 {
		fail(w, r, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	if err := h.Svc.Finalize(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			fail(w, r, http.StatusNotFound, "not_found", nil)
		case errors.Is(err, services.ErrInvoiceAlreadyFinal):
			fail(w, r, http.StatusConflict, "invoice_already_final", nil)
		default:
			fail(w, r, http.StatusInternalServerError, "failed_to_finalize", nil)
		}
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "issued"})
}

// Cancel: POST /invoices/cancel?id=... - voids a draft or issued invoice.
func (h *InvoiceHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if !authorize(h.Gate, w, r, gate.ActionUpdate, "invoice") {
		return
	}
	id := idFromQuery(r)
	if id == 0 {
		fail(w, r, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	if err := h.Svc.Cancel(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			fail(w, r, http.StatusNotFound, "not_found", nil)
		case errors.Is(err, services.ErrInvoiceAlreadyFinal):
			fail(w, r, http.StatusConflict, "invoice_already_final", nil)
		default:
			fail(w, r, http.StatusInternalServerError, "failed_to_cancel", nil)
		}
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// Delete: POST /invoices/delete?id=... - drafts only.
func (h *InvoiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !authorize(h.Gate, w, r, gate.ActionDelete, "invoice") {
		return
	}
	id := idFromQuery(r)
	if id == 0 {
		fail(w, r, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var inv models.Invoice
	if err := h.DB.First(&inv, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(w, r, http.StatusNotFound, "not_found", nil)
			return
		}
		fail(w, r, http.StatusInternalServerError, "failed_to_load_invoice", nil)
		return
	}
	if !inv.IsDraft() {
		fail(w, r, http.StatusConflict, "invoice_not_editable", nil)
		return
	}
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("invoice_id = ?", inv.ID).Delete(&models.InvoiceLine{}).Error; err != nil {
			return err
		}
		return tx.Delete(&inv).Error
	})
	if err != nil {
		fail(w, r, http.StatusInternalServerError, "failed_to_delete_invoice", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Outstanding: GET /reports/outstanding - open balance per tenant.
func (h *InvoiceHandler) Outstanding(w http.ResponseWriter, r *http.Request) {
	if !authorize(h.Gate, w, r, gate.ActionList, "invoice") {
		return
	}
	rows, err := h.Svc.OutstandingBalances(r.Context())
	if err != nil {
		fail(w, r, http.StatusInternalServerError, "failed_to_build_report", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": rows, "total": len(rows)})
}
