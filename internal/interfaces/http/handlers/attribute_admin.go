// internal/interfaces/http/handlers/attribute_admin.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront-backend/internal/domain/attribute"
)

// AttributeAdminHandler handles the attribute schema endpoints
type AttributeAdminHandler struct {
	attributes *attribute.Service
}

// NewAttributeAdminHandler creates a new attribute admin handler
func NewAttributeAdminHandler(attributes *attribute.Service) *AttributeAdminHandler {
	return &AttributeAdminHandler{attributes: attributes}
}

// GetAttributes handles GET /admin/attributes
func (h *AttributeAdminHandler) GetAttributes(c *gin.Context) {
	attrs, err := h.attributes.ListAttributes(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Attributes retrieved successfully", attrs)
}

// GetAttribute handles GET /admin/attributes/:id
func (h *AttributeAdminHandler) GetAttribute(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	attr, err := h.attributes.GetAttribute(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Attribute retrieved successfully", attr)
}

// CreateAttribute handles POST /admin/attributes
func (h *AttributeAdminHandler) CreateAttribute(c *gin.Context) {
	var req attribute.AttributeRequest
	if !bindJSON(c, &req) {
		return
	}

	attr, err := h.attributes.CreateAttribute(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusCreated, "Attribute created successfully", attr)
}

// UpdateAttribute handles PUT /admin/attributes/:id
func (h *AttributeAdminHandler) UpdateAttribute(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req attribute.AttributeRequest
	if !bindJSON(c, &req) {
		return
	}

	attr, err := h.attributes.UpdateAttribute(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Attribute updated successfully", attr)
}

// DeleteAttribute handles DELETE /admin/attributes/:id
func (h *AttributeAdminHandler) DeleteAttribute(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.attributes.DeleteAttribute(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Attribute deleted successfully", nil)
}

// AddValue handles POST /admin/attributes/:id/values
func (h *AttributeAdminHandler) AddValue(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req attribute.ValueRequest
	if !bindJSON(c, &req) {
		return
	}

	value, err := h.attributes.AddValue(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusCreated, "Attribute value created successfully", value)
}

// UpdateValue handles PUT /admin/attribute-values/:id
func (h *AttributeAdminHandler) UpdateValue(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req attribute.ValueRequest
	if !bindJSON(c, &req) {
		return
	}

	value, err := h.attributes.UpdateValue(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Attribute value updated successfully", value)
}

// DeleteValue handles DELETE /admin/attribute-values/:id
func (h *AttributeAdminHandler) DeleteValue(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.attributes.DeleteValue(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Attribute value deleted successfully", nil)
}
