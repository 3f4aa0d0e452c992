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

type PaymentHandler struct {
	DB   *gorm.DB
	Svc  *services.InvoiceService
	Gate *gate.Gate
}

func NewPaymentHandler(db *gorm.DB, svc *services.InvoiceService, g *gate.Gate) *PaymentHandler {
	return &PaymentHandler{DB: db, Svc: svc, Gate: g}
}

type paymentReq struct {
	InvoiceID uint            `json:"invoice_id"`
	Date      *time.Time      `json:"date,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method"`
	Note      string          `json:"note,omitempty"`
}

// Create: POST /payments - records a payment against an issued invoice.
func (h *PaymentHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !authorize(h.Gate, w, r, gate.ActionCreate, "payment") {
		return
	}
	var req paymentReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		fail(w, r, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := validation.Violations{}
	validation.PositiveInt("invoice_id", int(req.InvoiceID), v)
	validation.Required("method", req.Method, v)
	if !req.Amount.IsPositive() {
		v["amount"] = "must_be_positive"
	}
	if !v.Empty() {
		fail(w, r, http.StatusBadRequest, "validation_failed", v)
		return
	}
	date := time.Now()
	if req.Date != nil {
		date = *req.Date
	}
	payment, err := h.Svc.RecordPayment(r.Context(), req.InvoiceID, date, req.Amount, req.Method, req.Note)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			fail(w, r, http.StatusNotFound, "not_found", nil)
		case errors.Is(err, services.ErrInvoiceNotIssued):
			fail(w, r, http.StatusConflict, "invoice_not_issued", nil)
		case errors.Is(err, services.ErrPaymentExceedsBalance):
			fail(w, r, http.StatusConflict, "payment_exceeds_balance", nil)
		default:
			fail(w, r, http.StatusInternalServerError, "failed_to_record_payment", nil)
		}
		return
	}
	httpx.JSON(w, http.StatusCreated, payment)
}

// List: GET /payments?invoice_id=... - payments for one invoice.
func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	if !authorize(h.Gate, w, r, gate.ActionList, "payment") {
		return
	}
	v := r.URL.Query().Get("invoice_id")
	invoiceID, err := strconv.Atoi(v)
	if err != nil || invoiceID <= 0 {
		fail(w, r, http.StatusBadRequest, "invalid_invoice_id", nil)
		return
	}
	var payments []models.Payment
	if err := h.DB.Where("invoice_id = ?", invoiceID).Order("date").Find(&payments).Error; err != nil {
		fail(w, r, http.StatusInternalServerError, "failed_to_list_payments", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": payments, "total": len(payments)})
}
