// internal/interfaces/http/handlers/like.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront-backend/internal/domain/like"
	"github.com/your-org/storefront-backend/internal/interfaces/http/middleware"
)

// LikeHandler handles like buttons
type LikeHandler struct {
	likes *like.Service
}

// NewLikeHandler creates a new like handler
func NewLikeHandler(likes *like.Service) *LikeHandler {
	return &LikeHandler{likes: likes}
}

func likeTarget(c *gin.Context) (uint, uint, bool) {
	contentTypeID, ok := parseID(c, "content_type_id")
	if !ok {
		return 0, 0, false
	}
	objectID, ok := parseID(c, "object_id")
	if !ok {
		return 0, 0, false
	}
	return contentTypeID, objectID, true
}

// GetWidget handles GET /likes/:content_type_id/:object_id
func (h *LikeHandler) GetWidget(c *gin.Context) {
	contentTypeID, objectID, ok := likeTarget(c)
	if !ok {
		return
	}

	viewerID, _ := middleware.GetUserIDFromContext(c)
	widget, err := h.likes.WidgetContext(c.Request.Context(), viewerID, contentTypeID, objectID)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Like widget retrieved successfully", widget)
}

// Toggle handles POST /likes/:content_type_id/:object_id/toggle
func (h *LikeHandler) Toggle(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	contentTypeID, objectID, ok := likeTarget(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	_, liked, err := h.likes.Toggle(ctx, userID, contentTypeID, objectID)
	if err != nil {
		respondError(c, err)
		return
	}

	widget, err := h.likes.WidgetContext(ctx, userID, contentTypeID, objectID)
	if err != nil {
		respondError(c, err)
		return
	}

	message := "Unliked"
	if liked {
		message = "Liked"
	}
	respond(c, http.StatusOK, message, widget)
}
