package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/rentledger/rentledger/internal/gate"
	"github.com/rentledger/rentledger/internal/httpx"
	"github.com/rentledger/rentledger/internal/models"
	"github.com/rentledger/rentledger/internal/validation"
)

type TenantHandler struct {
	DB   *gorm.DB
	Gate *gate.Gate
}

func NewTenantHandler(db *gorm.DB, g *gate.Gate) *TenantHandler {
	return &TenantHandler{DB: db, Gate: g}
}

type tenantReq struct {
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Email       string     `json:"email,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	IDNumber    string     `json:"id_number,omitempty"`
	RoomID      *uint      `json:"room_id,omitempty"`
	MoveInDate  *time.Time `json:"move_in_date,omitempty"`
	MoveOutDate *time.Time `json:"move_out_date,omitempty"`
	Notes       string     `json:"notes,omitempty"`
}

func (req *tenantReq) validate() validation.Violations {
	v := validation.Violations{}
	validation.Required("first_name", req.FirstName, v)
	validation.Required("last_name", req.LastName, v)
	return v
}

// assignRoom checks availability and flips occupancy flags inside tx.
func assignRoom(tx *gorm.DB, tenant *models.Tenant, roomID *uint) error {
	if tenant.RoomID != nil && (roomID == nil || *roomID != *tenant.RoomID) {
		if err := tx.Model(&models.Room{}).Where("id = ?", *tenant.RoomID).Update("occupied", false).Error; err != nil {
			return err
		}
	}
	if roomID != nil {
		var room models.Room
		if err := tx.First(&room, *roomID).Error; err != nil {
			return err
		}
		var others int64
		tx.Model(&models.Tenant{}).Where("room_id = ? AND id <> ?", room.ID, tenant.ID).Count(&others)
		if others > 0 {
			return errRoomOccupied
		}
		if err := tx.Model(&room).Update("occupied", true).Error; err != nil {
			return err
		}
	}
	tenant.RoomID = roomID
	return nil
}

var errRoomOccupied = errors.New("room occupied")

// List: GET /tenants
func (h *TenantHandler) List(w http.ResponseWriter, r *http.Request) {
	if !authorize(h.Gate, w, r, gate.ActionList, "tenant") {
		return
	}
	limit, offset := pagination(r)
	dbq := h.DB.Model(&models.Tenant{})
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		dbq = dbq.Where("lower(first_name) LIKE ? OR lower(last_name) LIKE ? OR lower(email) LIKE ?", like, like, like)
	}
	var total int64
	dbq.Count(&total)
	var tenants []models.Tenant
	if err := dbq.Preload("Room").Order("last_name, first_name").Limit(limit).Offset(offset).Find(&tenants).Error; err != nil {
		fail(w, r, http.StatusInternalServerError, "failed_to_list_tenants", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": tenants, "total": total, "limit": limit, "offset": offset})
}

// Create: POST /tenants
func (h *TenantHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !authorize(h.Gate, w, r, gate.ActionCreate, "tenant") {
		return
	}
	var req tenantReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		fail(w, r, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if v := req.validate(); !v.Empty() {
		fail(w, r, http.StatusBadRequest, "validation_failed", v)
		return
	}
	tenant := models.Tenant{
		FirstName:   strings.TrimSpace(req.FirstName),
		LastName:    strings.TrimSpace(req.LastName),
		Email:       strings.TrimSpace(req.Email),
		Phone:       strings.TrimSpace(req.Phone),
		IDNumber:    strings.TrimSpace(req.IDNumber),
		MoveInDate:  req.MoveInDate,
		MoveOutDate: req.MoveOutDate,
		Notes:       req.Notes,
	}
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&tenant).Error; err != nil {
			return err
		}
		if err := assignRoom(tx, &tenant, req.RoomID); err != nil {
			return err
		}
		return tx.Save(&tenant).Error
	})
	if err != nil {
		if errors.Is(err, errRoomOccupied) {
			fail(w, r, http.StatusConflict, "room_occupied", nil)
			return
		}
		fail(w, r, http.StatusInternalServerError, "failed_to_create_tenant", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, tenant)
}

// Update: POST /tenants/update?id=...
func (h *TenantHandler) Update(w http.ResponseWriter, r *http.Request) {
	if !authorize(h.Gate, w, r, gate.ActionUpdate, "tenant") {
		return
	}
	id := idFromQuery(r)
	if id == 0 {
		fail(w, r, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var tenant models.Tenant
	if err := h.DB.First(&tenant, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(w, r, http.StatusNotFound, "not_found", nil)
			return
		}
		fail(w, r, http.StatusInternalServerError, "failed_to_load_tenant", nil)
		return
	}
	var req tenantReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		fail(w, r, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if v := req.validate(); !v.Empty() {
		fail(w, r, http.StatusBadRequest, "validation_failed", v)
		return
	}
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := assignRoom(tx, &tenant, req.RoomID); err != nil {
			return err
		}
		tenant.FirstName = strings.TrimSpace(req.FirstName)
		tenant.LastName = strings.TrimSpace(req.LastName)
		tenant.Email = strings.TrimSpace(req.Email)
		tenant.Phone = strings.TrimSpace(req.Phone)
		tenant.IDNumber = strings.TrimSpace(req.IDNumber)
		tenant.MoveInDate = req.MoveInDate
		tenant.MoveOutDate = req.MoveOutDate
		tenant.Notes = req.Notes
		return tx.Save(&tenant).Error
	})
	if err != nil {
		if errors.Is(err, errRoomOccupied) {
			fail(w, r, http.StatusConflict, "room_occupied", nil)
			return
		}
		fail(w, r, http.StatusInternalServerError, "failed_to_update_tenant", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, tenant)
}

// Delete: POST /tenants/delete?id=...
func (h *TenantHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !authorize(h.Gate, w, r, gate.ActionDelete, "tenant") {
		return
	}
	id := idFromQuery(r)
	if id == 0 {
		fail(w, r, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var invoices int64
	h.DB.Model(&models.Invoice{}).Where("tenant_id = ?", id).Count(&invoices)
	if invoices > 0 {
		fail(w, r, http.StatusConflict, "tenant_has_invoices", nil)
		return
	}
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		var tenant models.Tenant
		if err := tx.First(&tenant, id).Error; err != nil {
			return err
		}
		if tenant.RoomID != nil {
			if err := tx.Model(&models.Room{}).Where("id = ?", *tenant.RoomID).Update("occupied", false).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&tenant).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(w, r, http.StatusNotFound, "not_found", nil)
			return
		}
		fail(w, r, http.StatusInternalServerError, "failed_to_delete_tenant", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
