package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rentledger/rentledger/internal/gate"
	"github.com/rentledger/rentledger/internal/httpx"
	"github.com/rentledger/rentledger/internal/models"
	"github.com/rentledger/rentledger/internal/services"
	"github.com/rentledger/rentledger/internal/validation"
)

// CatalogHandler serves the chargeable item catalog used by the invoice
// line editor.
type CatalogHandler struct {
	DB   *gorm.DB
	Svc  *services.CatalogService
	Gate *gate.Gate
}

func NewCatalogHandler(db *gorm.DB, svc *services.CatalogService, g *gate.Gate) *CatalogHandler {
	return &CatalogHandler{DB: db, Svc: svc, Gate: g}
}

type itemReq struct {
	Code          string          `json:"code"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	UnitOfMeasure string          `json:"unit_of_measure,omitempty"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	TaxPercent    decimal.Decimal `json:"tax_percent"`
	Category      string          `json:"category,omitempty"`
}

func (req *itemReq) validate() validation.Violations {
	v := validation.Violations{}
	validation.Required("code", req.Code, v)
	validation.Required("name", req.Name, v)
	validation.NonNegativeDecimal("unit_price", req.UnitPrice, v)
	validation.PercentDecimal("tax_percent", req.TaxPercent, v)
	return v
}

// List: GET /items?q=... - search or full listing; GET /items?id=N fetches one.
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	if !authorize(h.Gate, w, r, gate.ActionList, "item") {
		return
	}
	if id := idFromQuery(r); id != 0 {
		item, err := h.Svc.GetByID(r.Context(), id)
		if err != nil {
			fail(w, r, http.StatusNotFound, "not_found", nil)
			return
		}
		httpx.JSON(w, http.StatusOK, item)
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	items, err := h.Svc.Search(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		fail(w, r, http.StatusInternalServerError, "failed_to_list_items", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "total": len(items)})
}

// Create: POST /items
func (h *CatalogHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !authorize(h.Gate, w, r, gate.ActionCreate, "item") {
		return
	}
	var req itemReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		fail(w, r, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if v := req.validate(); !v.Empty() {
		fail(w, r, http.StatusBadRequest, "validation_failed", v)
		return
	}
	item := models.CatalogItem{
		Code:          strings.ToUpper(strings.TrimSpace(req.Code)),
		Name:          strings.TrimSpace(req.Name),
		Description:   req.Description,
		UnitOfMeasure: req.UnitOfMeasure,
		UnitPrice:     req.UnitPrice,
		TaxPercent:    req.TaxPercent,
		Category:      req.Category,
	}
	if item.UnitOfMeasure == "" {
		item.UnitOfMeasure = "unit"
	}
	if err := h.DB.Create(&item).Error; err != nil {
		fail(w, r, http.StatusConflict, "item_code_taken", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, item)
}

// Update: POST /items/update?id=...
func (h *CatalogHandler) Update(w http.ResponseWriter, r *http.Request) {
	if !authorize(h.Gate, w, r, gate.ActionUpdate, "item") {
		return
	}
	id := idFromQuery(r)
	if id == 0 {
		fail(w, r, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var item models.CatalogItem
	if err := h.DB.First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(w, r, http.StatusNotFound, "not_found", nil)
			return
		}
		fail(w, r, http.StatusInternalServerError, "failed_to_load_item", nil)
		return
	}
	var req itemReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		fail(w, r, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if v := req.validate(); !v.Empty() {
		fail(w, r, http.StatusBadRequest, "validation_failed", v)
		return
	}
	item.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	item.Name = strings.TrimSpace(req.Name)
	item.Description = req.Description
	if req.UnitOfMeasure != "" {
		item.UnitOfMeasure = req.UnitOfMeasure
	}
	item.UnitPrice = req.UnitPrice
	item.TaxPercent = req.TaxPercent
	item.Category = req.Category
	if err := h.DB.Save(&item).Error; err != nil {
		fail(w, r, http.StatusInternalServerError, "failed_to_update_item", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

// Delete: POST /items/delete?id=... - soft delete keeps invoice history valid.
func (h *CatalogHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !authorize(h.Gate, w, r, gate.ActionDelete, "item") {
		return
	}
	id := idFromQuery(r)
	if id == 0 {
		fail(w, r, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	res := h.DB.Delete(&models.CatalogItem{}, id)
	if res.Error != nil {
		fail(w, r, http.StatusInternalServerError, "failed_to_delete_item", nil)
		return
	}
	if res.RowsAffected == 0 {
		fail(w, r, http.StatusNotFound, "not_found", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
