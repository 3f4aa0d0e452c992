package handlers

import (
	"errors"
	"net/http"

	"gorm.io/gorm"

	"github.com/rentledger/rentledger/internal/gate"
	"github.com/rentledger/rentledger/internal/httpx"
	"github.com/rentledger/rentledger/internal/models"
)

// AdminUserHandler lets admins view users and change role assignments.
type AdminUserHandler struct {
	DB            *gorm.DB
	Gate          *gate.Gate
	CacheResolver *gate.CachedResolver // invalidated on role changes
}

func NewAdminUserHandler(db *gorm.DB, g *gate.Gate, cache *gate.CachedResolver) *AdminUserHandler {
	return &AdminUserHandler{DB: db, Gate: g, CacheResolver: cache}
}

// List: GET /admin/users - all users with their roles, plus available roles.
func (h *AdminUserHandler) List(w http.ResponseWriter, r *http.Request) {
	if !authorize(h.Gate, w, r, gate.ActionList, "user") {
		return
	}
	var users []models.User
	if err := h.DB.Preload("Role").Order("email").Find(&users).Error; err != nil {
		fail(w, r, http.StatusInternalServerError, "db_error", nil)
		return
	}
	var roles []models.Role
	h.DB.Order("name").Find(&roles)
	httpx.JSON(w, http.StatusOK, map[string]any{"users": users, "roles": roles})
}

type assignRoleReq struct {
	UserID uint `json:"user_id"`
	RoleID uint `json:"role_id"`
}

// AssignRole: POST /admin/users/role - changes a user's role and drops the
// cached permissions so the change takes effect immediately.
func (h *AdminUserHandler) AssignRole(w http.ResponseWriter, r *http.Request) {
	if !authorize(h.Gate, w, r, gate.ActionUpdate, "user") {
		return
	}
	var req assignRoleReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		fail(w, r, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if req.UserID == 0 || req.RoleID == 0 {
		fail(w, r, http.StatusBadRequest, "validation_failed", map[string]string{"user_id": "required", "role_id": "required"})
		return
	}
	var role models.Role
	if err := h.DB.First(&role, req.RoleID).Error; err != nil {
		fail(w, r, http.StatusBadRequest, "invalid_role_id", nil)
		return
	}
	var user models.User
	if err := h.DB.First(&user, req.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(w, r, http.StatusNotFound, "not_found", nil)
			return
		}
		fail(w, r, http.StatusInternalServerError, "db_error", nil)
		return
	}
	if err := h.DB.Model(&user).Update("role_id", role.ID).Error; err != nil {
		fail(w, r, http.StatusInternalServerError, "failed_to_assign_role", nil)
		return
	}
	if h.CacheResolver != nil {
		h.CacheResolver.Invalidate(user.ID)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"user_id": user.ID, "role": role.Name})
}
