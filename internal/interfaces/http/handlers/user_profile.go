// internal/interfaces/http/handlers/user_profile.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront-backend/internal/domain/like"
	"github.com/your-org/storefront-backend/internal/domain/user"
)

// ProfileHandler handles the signed-in user's own account
type ProfileHandler struct {
	users *user.Service
	likes *like.Service
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(users *user.Service, likes *like.Service) *ProfileHandler {
	return &ProfileHandler{users: users, likes: likes}
}

// GetProfile handles GET /profile
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	profile, err := h.users.GetProfile(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Profile retrieved successfully", profile)
}

// UpdateProfile handles PUT /profile
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req user.UpdateProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	profile, err := h.users.UpdateProfile(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Profile updated successfully", profile)
}

// ChangePassword handles PUT /profile/password
func (h *ProfileHandler) ChangePassword(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req user.ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.users.ChangePassword(c.Request.Context(), userID, &req); err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Password changed successfully", nil)
}

// GetLikes handles GET /profile/likes?type=product.product
func (h *ProfileHandler) GetLikes(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	likes, err := h.likes.LikesBy(c.Request.Context(), userID, c.QueryArray("type")...)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Likes retrieved successfully", likes)
}
