// internal/interfaces/http/handlers/inventory.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront-backend/internal/domain/inventory"
	apperrors "github.com/your-org/storefront-backend/internal/pkg/errors"
)

// InventoryHandler handles stock administration endpoints
type InventoryHandler struct {
	stock             *inventory.Service
	lowStockThreshold int
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(stock *inventory.Service, lowStockThreshold int) *InventoryHandler {
	return &InventoryHandler{stock: stock, lowStockThreshold: lowStockThreshold}
}

// LOCATION ENDPOINTS

// GetLocations handles GET /admin/stock-locations
func (h *InventoryHandler) GetLocations(c *gin.Context) {
	locations, err := h.stock.ListLocations(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Stock locations retrieved successfully", locations)
}

// CreateLocation handles POST /admin/stock-locations
func (h *InventoryHandler) CreateLocation(c *gin.Context) {
	var req inventory.LocationRequest
	if !bindJSON(c, &req) {
		return
	}

	location, err := h.stock.CreateLocation(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusCreated, "Stock location created successfully", location)
}

// DeleteLocation handles DELETE /admin/stock-locations/:id
func (h *InventoryHandler) DeleteLocation(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.stock.DeleteLocation(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Stock location deleted successfully", nil)
}

// STOCK ENDPOINTS

// SetStock handles PUT /admin/stock
func (h *InventoryHandler) SetStock(c *gin.Context) {
	var req inventory.SetStockRequest
	if !bindJSON(c, &req) {
		return
	}

	stock, err := h.stock.SetStock(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Stock updated successfully", stock)
}

// GetVariantStock handles GET /admin/variants/:id/stock
func (h *InventoryHandler) GetVariantStock(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	records, err := h.stock.StockForVariant(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Stock retrieved successfully", gin.H{
		"stock":         records,
		"max_available": inventory.MaxAvailable(records),
	})
}

// AdjustStock handles POST /admin/stock/:id/adjust
func (h *InventoryHandler) AdjustStock(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req inventory.AdjustStockRequest
	if !bindJSON(c, &req) {
		return
	}

	stock, err := h.stock.AdjustStock(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Stock adjusted successfully", stock)
}

// Allocate handles POST /admin/stock/:id/allocate
func (h *InventoryHandler) Allocate(c *gin.Context) {
	h.allocation(c, true)
}

// Deallocate handles POST /admin/stock/:id/deallocate
func (h *InventoryHandler) Deallocate(c *gin.Context) {
	h.allocation(c, false)
}

func (h *InventoryHandler) allocation(c *gin.Context, allocate bool) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req inventory.AllocationRequest
	if !bindJSON(c, &req) {
		return
	}

	var (
		stock   *inventory.Stock
		err     error
		message = "Stock allocated successfully"
	)
	if allocate {
		stock, err = h.stock.Allocate(c.Request.Context(), id, req.Quantity)
	} else {
		stock, err = h.stock.Deallocate(c.Request.Context(), id, req.Quantity)
		message = "Stock released successfully"
	}
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, message, stock)
}

// AllocateVariant handles POST /admin/variants/:id/allocate
func (h *InventoryHandler) AllocateVariant(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req inventory.AllocationRequest
	if !bindJSON(c, &req) {
		return
	}

	stock, err := h.stock.AllocateVariant(c.Request.Context(), id, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Stock allocated successfully", stock)
}

// GetMovements handles GET /admin/stock/:id/movements
func (h *InventoryHandler) GetMovements(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	movements, err := h.stock.Movements(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Stock movements retrieved successfully", movements)
}

// GetLowStock handles GET /admin/stock/low?threshold=5
func (h *InventoryHandler) GetLowStock(c *gin.Context) {
	threshold := h.lowStockThreshold
	if raw := c.Query("threshold"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			respondError(c, apperrors.New(apperrors.CodeValidation, "invalid threshold"))
			return
		}
		threshold = parsed
	}

	records, err := h.stock.LowStock(c.Request.Context(), threshold)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Low stock retrieved successfully", gin.H{
		"threshold": threshold,
		"stock":     records,
	})
}
