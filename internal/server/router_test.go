package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rentledger/rentledger/internal/models"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("db open: %v", err)
	}
	if err := db.AutoMigrate(&models.Role{}, &models.User{}, &models.Room{}, &models.Tenant{}, &models.CatalogItem{}, &models.Invoice{}, &models.InvoiceLine{}, &models.Payment{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return New(db)
}

func TestHealthz(t *testing.T) {
	h := newTestHandler(t)
	r := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	h := newTestHandler(t)
	for _, path := range []string{"/invoices", "/tenants", "/rooms", "/items", "/payments?invoice_id=1", "/admin/users", "/reports/outstanding"} {
		r := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401 got %d", path, w.Code)
		}
	}
}

func TestUnknownMethodRejected(t *testing.T) {
	h := newTestHandler(t)
	r := httptest.NewRequest(http.MethodPost, "/login", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	// empty body -> bad request, but never 404/405 for the registered route
	if w.Code == http.StatusNotFound {
		t.Fatalf("login route not registered")
	}
}
