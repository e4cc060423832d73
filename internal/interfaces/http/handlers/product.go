// internal/interfaces/http/handlers/product.go
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront-backend/internal/domain/product"
)

// ProductHandler handles storefront catalog pages
type ProductHandler struct {
	catalog *product.Service
}

// NewProductHandler creates a new product handler
func NewProductHandler(catalog *product.Service) *ProductHandler {
	return &ProductHandler{catalog: catalog}
}

// listQuery pre-validates the generic listing parameters; attribute facets
// are validated by the catalog filter itself
type listQuery struct {
	Page int    `form:"page" binding:"omitempty,min=1"`
	Sort string `form:"sort_by" binding:"omitempty,sortkey"`
}

// ListProducts handles GET /products
func (h *ProductHandler) ListProducts(c *gin.Context) {
	var q listQuery
	if !bindQuery(c, &q) {
		return
	}

	listing, err := h.catalog.ListProducts(c.Request.Context(), viewerFrom(c), c.Request.URL.Query())
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Products retrieved successfully", listing)
}

// GetProduct handles GET /products/:id and GET /products/:id/:slug. Any slug
// other than the canonical one redirects.
func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	details, canonical, err := h.catalog.GetProductDetails(c.Request.Context(), viewerFrom(c), id, c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	if canonical != "" {
		redirectCanonical(c, canonical)
		return
	}

	respond(c, http.StatusOK, "Product retrieved successfully", details)
}

// Homepage handles GET /homepage
func (h *ProductHandler) Homepage(c *gin.Context) {
	products, err := h.catalog.ProductsForHomepage(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Homepage retrieved successfully", gin.H{"featured": products})
}

// CollectionIndex handles GET /collections/:id/:slug
func (h *ProductHandler) CollectionIndex(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var q listQuery
	if !bindQuery(c, &q) {
		return
	}

	listing, canonical, err := h.catalog.CollectionIndex(c.Request.Context(), viewerFrom(c), id, c.Param("slug"), c.Request.URL.Query())
	if err != nil {
		respondError(c, err)
		return
	}
	if canonical != "" {
		redirectCanonical(c, canonical)
		return
	}

	respond(c, http.StatusOK, "Collection retrieved successfully", listing)
}

// CategoryIndex handles GET /categories/:id/*path
func (h *ProductHandler) CategoryIndex(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var q listQuery
	if !bindQuery(c, &q) {
		return
	}

	path := strings.Trim(c.Param("path"), "/")
	listing, canonical, err := h.catalog.CategoryIndex(c.Request.Context(), viewerFrom(c), id, path, c.Request.URL.Query())
	if err != nil {
		respondError(c, err)
		return
	}
	if canonical != "" {
		redirectCanonical(c, canonical)
		return
	}

	respond(c, http.StatusOK, "Category retrieved successfully", listing)
}
