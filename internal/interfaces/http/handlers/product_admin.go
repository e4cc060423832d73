// internal/interfaces/http/handlers/product_admin.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront-backend/internal/domain/product"
)

// ProductAdminHandler handles catalog administration endpoints
type ProductAdminHandler struct {
	admin *product.AdminService
}

// NewProductAdminHandler creates a new product admin handler
func NewProductAdminHandler(admin *product.AdminService) *ProductAdminHandler {
	return &ProductAdminHandler{admin: admin}
}

// ReorderImagesRequest lists every image id of a product in gallery order
type ReorderImagesRequest struct {
	ImageIDs []uint `json:"image_ids" binding:"required"`
}

// PRODUCT TYPE ENDPOINTS

// GetProductTypes handles GET /admin/product-types
func (h *ProductAdminHandler) GetProductTypes(c *gin.Context) {
	types, err := h.admin.ListProductTypes(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Product types retrieved successfully", types)
}

// GetProductType handles GET /admin/product-types/:id
func (h *ProductAdminHandler) GetProductType(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	pt, err := h.admin.GetProductType(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Product type retrieved successfully", pt)
}

// CreateProductType handles POST /admin/product-types
func (h *ProductAdminHandler) CreateProductType(c *gin.Context) {
	var req product.ProductTypeRequest
	if !bindJSON(c, &req) {
		return
	}

	pt, err := h.admin.CreateProductType(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusCreated, "Product type created successfully", pt)
}

// UpdateProductType handles PUT /admin/product-types/:id
func (h *ProductAdminHandler) UpdateProductType(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req product.ProductTypeRequest
	if !bindJSON(c, &req) {
		return
	}

	pt, err := h.admin.UpdateProductType(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Product type updated successfully", pt)
}

// DeleteProductType handles DELETE /admin/product-types/:id
func (h *ProductAdminHandler) DeleteProductType(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.admin.DeleteProductType(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Product type deleted successfully", nil)
}

// PRODUCT ENDPOINTS

// CreateProduct handles POST /admin/products
func (h *ProductAdminHandler) CreateProduct(c *gin.Context) {
	var req product.ProductCreateRequest
	if !bindJSON(c, &req) {
		return
	}

	p, err := h.admin.CreateProduct(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusCreated, "Product created successfully", p)
}

// GetProductForm handles GET /admin/products/:id/form
func (h *ProductAdminHandler) GetProductForm(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	form, err := h.admin.ProductForm(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Product form retrieved successfully", form)
}

// UpdateProduct handles PUT /admin/products/:id
func (h *ProductAdminHandler) UpdateProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req product.ProductUpdateRequest
	if !bindJSON(c, &req) {
		return
	}

	p, err := h.admin.UpdateProduct(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Product updated successfully", p)
}

// DeleteProduct handles DELETE /admin/products/:id
func (h *ProductAdminHandler) DeleteProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.admin.DeleteProduct(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Product deleted successfully", nil)
}

// VARIANT ENDPOINTS

// CreateVariant handles POST /admin/products/:id/variants
func (h *ProductAdminHandler) CreateVariant(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req product.VariantRequest
	if !bindJSON(c, &req) {
		return
	}

	v, err := h.admin.CreateVariant(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusCreated, "Variant created successfully", v)
}

// GetVariantForm handles GET /admin/variants/:id/form
func (h *ProductAdminHandler) GetVariantForm(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	form, err := h.admin.VariantForm(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Variant form retrieved successfully", form)
}

// UpdateVariant handles PUT /admin/variants/:id
func (h *ProductAdminHandler) UpdateVariant(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req product.VariantRequest
	if !bindJSON(c, &req) {
		return
	}

	v, err := h.admin.UpdateVariant(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Variant updated successfully", v)
}

// DeleteVariant handles DELETE /admin/variants/:id
func (h *ProductAdminHandler) DeleteVariant(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.admin.DeleteVariant(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Variant deleted successfully", nil)
}

// IMAGE ENDPOINTS

// AddImage handles POST /admin/products/:id/images
func (h *ProductAdminHandler) AddImage(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req product.ImageRequest
	if !bindJSON(c, &req) {
		return
	}

	img, err := h.admin.AddImage(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusCreated, "Image added successfully", img)
}

// ReorderImages handles PUT /admin/products/:id/images/order
func (h *ProductAdminHandler) ReorderImages(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req ReorderImagesRequest
	if !bindJSON(c, &req) {
		return
	}

	images, err := h.admin.ReorderImages(c.Request.Context(), id, req.ImageIDs)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Images reordered successfully", images)
}

// DeleteImage handles DELETE /admin/images/:id
func (h *ProductAdminHandler) DeleteImage(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.admin.DeleteImage(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Image deleted successfully", nil)
}

// AttachImage handles POST /admin/variants/:id/images/:image_id
func (h *ProductAdminHandler) AttachImage(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	imageID, ok := parseID(c, "image_id")
	if !ok {
		return
	}

	if err := h.admin.AttachImage(c.Request.Context(), id, imageID); err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Image attached successfully", nil)
}

// COLLECTION ENDPOINTS

// GetCollections handles GET /admin/collections
func (h *ProductAdminHandler) GetCollections(c *gin.Context) {
	collections, err := h.admin.ListCollections(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Collections retrieved successfully", collections)
}

// CreateCollection handles POST /admin/collections
func (h *ProductAdminHandler) CreateCollection(c *gin.Context) {
	var req product.CollectionRequest
	if !bindJSON(c, &req) {
		return
	}

	collection, err := h.admin.CreateCollection(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusCreated, "Collection created successfully", collection)
}

// UpdateCollection handles PUT /admin/collections/:id
func (h *ProductAdminHandler) UpdateCollection(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req product.CollectionRequest
	if !bindJSON(c, &req) {
		return
	}

	collection, err := h.admin.UpdateCollection(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Collection updated successfully", collection)
}

// DeleteCollection handles DELETE /admin/collections/:id
func (h *ProductAdminHandler) DeleteCollection(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.admin.DeleteCollection(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Collection deleted successfully", nil)
}

// AddToCollection handles POST /admin/collections/:id/products/:product_id
func (h *ProductAdminHandler) AddToCollection(c *gin.Context) {
	h.membership(c, true)
}

// RemoveFromCollection handles DELETE /admin/collections/:id/products/:product_id
func (h *ProductAdminHandler) RemoveFromCollection(c *gin.Context) {
	h.membership(c, false)
}

func (h *ProductAdminHandler) membership(c *gin.Context, add bool) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	productID, ok := parseID(c, "product_id")
	if !ok {
		return
	}

	var err error
	message := "Product added to collection"
	if add {
		err = h.admin.AddToCollection(c.Request.Context(), id, productID)
	} else {
		err = h.admin.RemoveFromCollection(c.Request.Context(), id, productID)
		message = "Product removed from collection"
	}
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, message, nil)
}
