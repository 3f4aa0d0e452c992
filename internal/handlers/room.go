package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rentledger/rentledger/internal/gate"
	"github.com/rentledger/rentledger/internal/httpx"
	"github.com/rentledger/rentledger/internal/models"
	"github.com/rentledger/rentledger/internal/validation"
)

type RoomHandler struct {
	DB   *gorm.DB
	Gate *gate.Gate
}

func NewRoomHandler(db *gorm.DB, g *gate.Gate) *RoomHandler {
	return &RoomHandler{DB: db, Gate: g}
}

type roomReq struct {
	Number      string          `json:"number"`
	Floor       int             `json:"floor"`
	Description string          `json:"description,omitempty"`
	MonthlyRent decimal.Decimal `json:"monthly_rent"`
}

func (req *roomReq) validate() validation.Violations {
	v := validation.Violations{}
	validation.Required("number", req.Number, v)
	validation.NonNegativeDecimal("monthly_rent", req.MonthlyRent, v)
	return v
}

// List: GET /rooms
func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	if !authorize(h.Gate, w, r, gate.ActionList, "room") {
		return
	}
	limit, offset := pagination(r)
	dbq := h.DB.Model(&models.Room{})
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		dbq = dbq.Where("lower(number) LIKE ?", "%"+strings.ToLower(q)+"%")
	}
	var total int64
	dbq.Count(&total)
	var rooms []models.Room
	if err := dbq.Order("number").Limit(limit).Offset(offset).Find(&rooms).Error; err != nil {
		fail(w, r, http.StatusInternalServerError, "failed_to_list_rooms", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": rooms, "total": total, "limit": limit, "offset": offset})
}

// Create: POST /rooms
func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !authorize(h.Gate, w, r, gate.ActionCreate, "room") {
		return
	}
	var req roomReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		fail(w, r, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if v := req.validate(); !v.Empty() {
		fail(w, r, http.StatusBadRequest, "validation_failed", v)
		return
	}
	room := models.Room{
		Number:      strings.TrimSpace(req.Number),
		Floor:       req.Floor,
		Description: req.Description,
		MonthlyRent: req.MonthlyRent,
	}
	if err := h.DB.Create(&room).Error; err != nil {
		fail(w, r, http.StatusConflict, "room_number_taken", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, room)
}

// Update: POST /rooms/update?id=...
func (h *RoomHandler) Update(w http.ResponseWriter, r *http.Request) {
	if !authorize(h.Gate, w, r, gate.ActionUpdate, "room") {
		return
	}
	id := idFromQuery(r)
	if id == 0 {
		fail(w, r, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var room models.Room
	if err := h.DB.First(&room, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(w, r, http.StatusNotFound, "not_found", nil)
			return
		}
		fail(w, r, http.StatusInternalServerError, "failed_to_load_room", nil)
		return
	}
	var req roomReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		fail(w, r, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if v := req.validate(); !v.Empty() {
		fail(w, r, http.StatusBadRequest, "validation_failed", v)
		return
	}
	room.Number = strings.TrimSpace(req.Number)
	room.Floor = req.Floor
	room.Description = req.Description
	room.MonthlyRent = req.MonthlyRent
	if err := h.DB.Save(&room).Error; err != nil {
		fail(w, r, http.StatusInternalServerError, "failed_to_update_room", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, room)
}

// Delete: POST /rooms/delete?id=...
func (h *RoomHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !authorize(h.Gate, w, r, gate.ActionDelete, "room") {
		return
	}
	id := idFromQuery(r)
	if id == 0 {
		fail(w, r, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	// A room with tenants assigned cannot be removed.
	var tenants int64
	h.DB.Model(&models.Tenant{}).Where("room_id = ?", id).Count(&tenants)
	if tenants > 0 {
		fail(w, r, http.StatusConflict, "room_occupied", nil)
		return
	}
	res := h.DB.Delete(&models.Room{}, id)
	if res.Error != nil {
		fail(w, r, http.StatusInternalServerError, "failed_to_delete_room", nil)
		return
	}
	if res.RowsAffected == 0 {
		fail(w, r, http.StatusNotFound, "not_found", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
