// internal/interfaces/http/handlers/user_admin.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront-backend/internal/domain/user"
)

// UserAdminHandler handles admin user management endpoints
type UserAdminHandler struct {
	admin *user.AdminService
}

// NewUserAdminHandler creates a new user admin handler
func NewUserAdminHandler(admin *user.AdminService) *UserAdminHandler {
	return &UserAdminHandler{admin: admin}
}

// GetUsers handles GET /admin/users
func (h *UserAdminHandler) GetUsers(c *gin.Context) {
	var req user.UserListRequest
	if !bindQuery(c, &req) {
		return
	}

	resp, err := h.admin.GetUsers(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Users retrieved successfully", resp)
}

// GetUser handles GET /admin/users/:id
func (h *UserAdminHandler) GetUser(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	u, err := h.admin.GetUser(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "User retrieved successfully", u)
}

// UpdateUserStatus handles PUT /admin/users/:id/status
func (h *UserAdminHandler) UpdateUserStatus(c *gin.Context) {
	staffID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req user.UserStatusUpdateRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.admin.UpdateUserStatus(c.Request.Context(), id, &req, staffID); err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "User status updated successfully", nil)
}

// SetStaff handles PUT /admin/users/:id/staff
func (h *UserAdminHandler) SetStaff(c *gin.Context) {
	staffID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req user.UserStaffRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.admin.SetStaff(c.Request.Context(), id, &req, staffID); err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "User staff flag updated successfully", nil)
}

// ExportUsers handles GET /admin/users/export
func (h *UserAdminHandler) ExportUsers(c *gin.Context) {
	var req user.UserListRequest
	if !bindQuery(c, &req) {
		return
	}

	data, filename, err := h.admin.ExportUsers(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "text/csv", data)
}
