package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/rentledger/rentledger/internal/models"
	"github.com/rentledger/rentledger/internal/services"
)

func TestCatalogCreateSearchGet(t *testing.T) {
	db := setupHandlerTestDB(t)
	h := NewCatalogHandler(db, services.NewCatalogService(db), adminGate())

	for _, body := range []string{
		`{"code":"water","name":"Water usage","unit_of_measure":"m3","unit_price":2.5,"tax_percent":10,"category":"utilities"}`,
		`{"code":"POWER","name":"Electricity usage","unit_of_measure":"kWh","unit_price":0.3,"tax_percent":10,"category":"utilities"}`,
		`{"code":"LATE","name":"Late payment penalty","unit_price":25,"tax_percent":0,"category":"penalties"}`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/items", strings.NewReader(body))
		w := httptest.NewRecorder()
		h.Create(w, asUser(req, 1))
		if w.Code != http.StatusCreated {
			t.Fatalf("create: %d %s", w.Code, w.Body.String())
		}
	}

	// Codes are normalized to upper case.
	var item models.CatalogItem
	if err := db.Where("code = ?", "WATER").First(&item).Error; err != nil {
		t.Fatalf("water item: %v", err)
	}
	if item.UnitOfMeasure != "m3" || !item.UnitPrice.Equal(decimal.RequireFromString("2.5")) {
		t.Fatalf("item = %+v", item)
	}

	// Search by category.
	req := httptest.NewRequest(http.MethodGet, "/items?q=utilities", nil)
	w := httptest.NewRecorder()
	h.List(w, asUser(req, 1))
	if w.Code != http.StatusOK {
		t.Fatalf("search: %d", w.Code)
	}
	var list struct {
		Items []models.CatalogItem `json:"items"`
		Total int                  `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if list.Total != 2 {
		t.Fatalf("expected 2 utilities, got %d", list.Total)
	}

	// Fetch by id.
	req = httptest.NewRequest(http.MethodGet, "/items?id="+strconv.Itoa(int(item.ID)), nil)
	w = httptest.NewRecorder()
	h.List(w, asUser(req, 1))
	if w.Code != http.StatusOK {
		t.Fatalf("get by id: %d", w.Code)
	}
	var got models.CatalogItem
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Code != "WATER" {
		t.Fatalf("got %s", got.Code)
	}
}

func TestCatalogValidationAndDelete(t *testing.T) {
	db := setupHandlerTestDB(t)
	h := NewCatalogHandler(db, services.NewCatalogService(db), adminGate())

	// Negative price and out-of-range tax are rejected at the boundary.
	req := httptest.NewRequest(http.MethodPost, "/items", strings.NewReader(`{"code":"BAD","name":"Bad","unit_price":-5,"tax_percent":120}`))
	w := httptest.NewRecorder()
	h.Create(w, asUser(req, 1))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	var resp struct {
		Details map[string]string `json:"details"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Details["unit_price"] == "" || resp.Details["tax_percent"] == "" {
		t.Fatalf("missing violations: %v", resp.Details)
	}

	item := models.CatalogItem{Code: "TMP", Name: "Temp", UnitPrice: decimal.NewFromInt(1), TaxPercent: decimal.Zero}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	delReq := httptest.NewRequest(http.MethodPost, "/items/delete?id="+strconv.Itoa(int(item.ID)), nil)
	delW := httptest.NewRecorder()
	h.Delete(delW, asUser(delReq, 1))
	if delW.Code != http.StatusOK {
		t.Fatalf("delete: %d", delW.Code)
	}
	// Soft deleted: gone from default queries, still in table.
	var count int64
	db.Model(&models.CatalogItem{}).Where("code = ?", "TMP").Count(&count)
	if count != 0 {
		t.Fatalf("expected soft-deleted item hidden, count=%d", count)
	}
	db.Unscoped().Model(&models.CatalogItem{}).Where("code = ?", "TMP").Count(&count)
	if count != 1 {
		t.Fatalf("expected row kept unscoped, count=%d", count)
	}
}
