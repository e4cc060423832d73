// internal/interfaces/http/handlers/cart.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/interfaces/http/middleware"
	apperrors "github.com/your-org/storefront-backend/internal/pkg/errors"
)

// CartHandler handles cart endpoints
type CartHandler struct {
	carts *cart.Service
}

// NewCartHandler creates a new cart handler
func NewCartHandler(carts *cart.Service) *CartHandler {
	return &CartHandler{carts: carts}
}

// CartResponse is the cart as rendered to shoppers. Cart is nil when the
// shopper has no cart yet.
type CartResponse struct {
	Cart     *cart.Cart      `json:"cart"`
	Quantity int             `json:"quantity"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

func newCartResponse(ct *cart.Cart) CartResponse {
	if ct == nil {
		return CartResponse{Subtotal: decimal.Zero}
	}
	return CartResponse{Cart: ct, Quantity: ct.Quantity(), Subtotal: ct.Subtotal()}
}

// GetCart handles GET /cart
func (h *CartHandler) GetCart(c *gin.Context) {
	ct, err := h.carts.GetCart(c.Request.Context(), middleware.CartOwner(c))
	if err != nil && !apperrors.Is(err, apperrors.CodeNotFound) {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Cart retrieved successfully", newCartResponse(ct))
}

// AddItem handles POST /cart/items
func (h *CartHandler) AddItem(c *gin.Context) {
	var req cart.AddToCartRequest
	if !bindJSON(c, &req) {
		return
	}

	ct, err := h.carts.AddProduct(c.Request.Context(), middleware.CartOwner(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Item added to cart successfully", newCartResponse(ct))
}

// UpdateItem handles PUT /cart/items/:id; quantity 0 removes the line
func (h *CartHandler) UpdateItem(c *gin.Context) {
	itemID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req cart.UpdateCartItemRequest
	if !bindJSON(c, &req) {
		return
	}

	ct, err := h.carts.UpdateItem(c.Request.Context(), middleware.CartOwner(c), itemID, *req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Cart item updated successfully", newCartResponse(ct))
}

// RemoveProduct handles DELETE /cart/products/:product_id
func (h *CartHandler) RemoveProduct(c *gin.Context) {
	productID, ok := parseID(c, "product_id")
	if !ok {
		return
	}

	ct, err := h.carts.RemoveProduct(c.Request.Context(), middleware.CartOwner(c), productID)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Product removed from cart successfully", newCartResponse(ct))
}

// ClearCart handles DELETE /cart
func (h *CartHandler) ClearCart(c *gin.Context) {
	if err := h.carts.Clear(c.Request.Context(), middleware.CartOwner(c)); err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Cart cleared successfully", newCartResponse(nil))
}

// GetCount handles GET /cart/count
func (h *CartHandler) GetCount(c *gin.Context) {
	count, err := h.carts.Count(c.Request.Context(), middleware.CartOwner(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Cart count retrieved successfully", gin.H{"count": count})
}

// Validate handles POST /cart/validate. Lines exceeding stock are clamped
// and the response says whether anything changed.
func (h *CartHandler) Validate(c *gin.Context) {
	ctx := c.Request.Context()
	owner := middleware.CartOwner(c)

	changed, err := h.carts.CheckAvailabilityAndClamp(ctx, owner)
	if err != nil {
		respondError(c, err)
		return
	}

	ct, err := h.carts.GetCart(ctx, owner)
	if err != nil && !apperrors.Is(err, apperrors.CodeNotFound) {
		respondError(c, err)
		return
	}

	message := "Cart is valid"
	if changed {
		message = "Some items were adjusted to the available stock"
	}
	respond(c, http.StatusOK, message, gin.H{
		"changed": changed,
		"cart":    newCartResponse(ct),
	})
}

// ChangeStatus handles PUT /cart/status for the signed-in user's cart
func (h *CartHandler) ChangeStatus(c *gin.Context) {
	var req cart.ChangeStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	ct, err := h.carts.GetCart(ctx, middleware.CartOwner(c))
	if err != nil {
		respondError(c, err)
		return
	}

	updated, err := h.carts.ChangeStatus(ctx, ct.ID, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Cart status updated successfully", updated)
}

// AdminChangeStatus handles PUT /admin/carts/:id/status
func (h *CartHandler) AdminChangeStatus(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req cart.ChangeStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	updated, err := h.carts.ChangeStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Cart status updated successfully", updated)
}
