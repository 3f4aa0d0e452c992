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
)

func TestTenantCreateAssignsRoom(t *testing.T) {
	db := setupHandlerTestDB(t)
	room := models.Room{Number: "301", MonthlyRent: decimal.NewFromInt(650)}
	if err := db.Create(&room).Error; err != nil {
		t.Fatalf("room: %v", err)
	}
	h := NewTenantHandler(db, adminGate())

	body := `{"first_name":"Mira","last_name":"Sol","room_id":` + strconv.Itoa(int(room.ID)) + `}`
	req := httptest.NewRequest(http.MethodPost, "/tenants", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.Create(w, asUser(req, 1))
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}

	var reloaded models.Room
	db.First(&reloaded, room.ID)
	if !reloaded.Occupied {
		t.Fatalf("room should be marked occupied")
	}

	// Second tenant cannot take the same room.
	body = `{"first_name":"Tom","last_name":"Ek","room_id":` + strconv.Itoa(int(room.ID)) + `}`
	req = httptest.NewRequest(http.MethodPost, "/tenants", strings.NewReader(body))
	w = httptest.NewRecorder()
	h.Create(w, asUser(req, 1))
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for occupied room, got %d", w.Code)
	}
}

func TestTenantListSearch(t *testing.T) {
	db := setupHandlerTestDB(t)
	h := NewTenantHandler(db, adminGate())
	for _, name := range []string{"Alvarez", "Berg", "Bergstrom"} {
		if err := db.Create(&models.Tenant{FirstName: "X", LastName: name}).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	req := httptest.NewRequest(http.MethodGet, "/tenants?q=berg", nil)
	w := httptest.NewRecorder()
	h.List(w, asUser(req, 1))
	if w.Code != http.StatusOK {
		t.Fatalf("list: %d", w.Code)
	}
	var list struct {
		Items []models.Tenant `json:"items"`
		Total int64           `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if list.Total != 2 {
		t.Fatalf("expected 2 matches, got %d", list.Total)
	}
}

func TestTenantDeleteFreesRoomAndGuardsInvoices(t *testing.T) {
	db := setupHandlerTestDB(t)
	room := models.Room{Number: "401", MonthlyRent: decimal.NewFromInt(700), Occupied: true}
	if err := db.Create(&room).Error; err != nil {
		t.Fatalf("room: %v", err)
	}
	tenant := models.Tenant{FirstName: "Lea", LastName: "Nor", RoomID: &room.ID}
	if err := db.Create(&tenant).Error; err != nil {
		t.Fatalf("tenant: %v", err)
	}
	h := NewTenantHandler(db, adminGate())

	// With an invoice on file the tenant cannot be removed.
	inv := models.Invoice{Number: "INV-2026-0001", TenantID: tenant.ID, RoomID: room.ID, PeriodYear: 2026, PeriodMonth: 1, Status: models.InvoiceStatusDraft}
	if err := db.Create(&inv).Error; err != nil {
		t.Fatalf("invoice: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/tenants/delete?id="+strconv.Itoa(int(tenant.ID)), nil)
	w := httptest.NewRecorder()
	h.Delete(w, asUser(req, 1))
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 with invoices, got %d", w.Code)
	}

	db.Delete(&inv)
	w = httptest.NewRecorder()
	h.Delete(w, asUser(httptest.NewRequest(http.MethodPost, "/tenants/delete?id="+strconv.Itoa(int(tenant.ID)), nil), 1))
	if w.Code != http.StatusOK {
		t.Fatalf("delete: %d %s", w.Code, w.Body.String())
	}
	var reloaded models.Room
	db.First(&reloaded, room.ID)
	if reloaded.Occupied {
		t.Fatalf("room should be freed after tenant deletion")
	}
}
