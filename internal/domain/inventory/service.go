// internal/domain/inventory/service.go
package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	apperrors "github.com/your-org/storefront-backend/internal/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service handles stock business logic
type Service struct {
	db  *gorm.DB
	log logrus.FieldLogger
}

// NewService creates a new inventory service
func NewService(db *gorm.DB, log logrus.FieldLogger) *Service {
	return &Service{
		db:  db,
		log: log,
	}
}

// LocationRequest represents stock location data
type LocationRequest struct {
	Name string `json:"name" binding:"required,max=100"`
}

// SetStockRequest sets the absolute quantity of a variant at a location
type SetStockRequest struct {
	VariantID  uint             `json:"variant_id" binding:"required"`
	LocationID uint             `json:"location_id" binding:"required"`
	Quantity   int              `json:"quantity" binding:"min=0"`
	CostPrice  *decimal.Decimal `json:"cost_price"`
}

// AdjustStockRequest changes a stock record's quantity by Delta
type AdjustStockRequest struct {
	Delta int    `json:"delta" binding:"required"`
	Notes string `json:"notes"`
}

// AllocationRequest allocates or releases quantity on a stock record
type AllocationRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1"`
}

// LOCATIONS

// CreateLocation creates a new stock location
func (s *Service) CreateLocation(ctx context.Context, req *LocationRequest) (*StockLocation, error) {
	name := strings.TrimSpace(req.Name)
	var count int64
	if err := s.db.WithContext(ctx).Model(&StockLocation{}).Where("name = ?", name).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check stock location: %w", err)
	}
	if count > 0 {
		return nil, apperrors.Newf(apperrors.CodeConflict, "stock location %q already exists", name)
	}

	location := &StockLocation{Name: name}
	if err := s.db.WithContext(ctx).Create(location).Error; err != nil {
		return nil, fmt.Errorf("failed to create stock location: %w", err)
	}
	return location, nil
}

// ListLocations returns all stock locations by name
func (s *Service) ListLocations(ctx context.Context) ([]StockLocation, error) {
	var locations []StockLocation
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&locations).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve stock locations: %w", err)
	}
	return locations, nil
}

// DeleteLocation removes a location that holds no stock records
func (s *Service) DeleteLocation(ctx context.Context, id uint) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&Stock{}).Where("location_id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count stock records: %w", err)
	}
	if count > 0 {
		return apperrors.New(apperrors.CodeConflict, "stock location still holds stock records")
	}

	result := s.db.WithContext(ctx).Delete(&StockLocation{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete stock location: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.New(apperrors.CodeNotFound, "stock location not found")
	}
	return nil
}

// STOCK RECORDS

// SetStock creates or overwrites the stock record of a variant at a location
func (s *Service) SetStock(ctx context.Context, req *SetStockRequest) (*Stock, error) {
	if req.Quantity < 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "quantity cannot be negative")
	}

	var stock Stock
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var location StockLocation
		if err := tx.First(&location, req.LocationID).Error; err != nil {
			return apperrors.NotFoundOr(err, "stock location not found")
		}

		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("variant_id = ? AND location_id = ?", req.VariantID, req.LocationID).
			First(&stock).Error
		previous := 0
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			stock = Stock{VariantID: req.VariantID, LocationID: req.LocationID}
		case err != nil:
			return fmt.Errorf("failed to load stock record: %w", err)
		default:
			previous = stock.Quantity
		}

		stock.Quantity = req.Quantity
		if req.CostPrice != nil {
			stock.CostPrice = decimal.NewNullDecimal(*req.CostPrice)
		}
		if err := tx.Save(&stock).Error; err != nil {
			return fmt.Errorf("failed to save stock record: %w", err)
		}

		stock.Location = location
		return recordMovement(tx, &stock, MovementTypeSet, req.Quantity-previous, previous, "")
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"variant_id":  stock.VariantID,
		"location_id": stock.LocationID,
		"quantity":    stock.Quantity,
	}).Info("stock level set")
	return &stock, nil
}

// AdjustStock changes a record's quantity by a delta. The result may not go
// below zero.
func (s *Service) AdjustStock(ctx context.Context, stockID uint, req *AdjustStockRequest) (*Stock, error) {
	var stock Stock
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockStock(tx, stockID, &stock); err != nil {
			return err
		}

		previous := stock.Quantity
		next := previous + req.Delta
		if next < 0 {
			return apperrors.Newf(apperrors.CodeValidation, "adjustment would leave %d units", next)
		}

		stock.Quantity = next
		if err := tx.Model(&stock).Update("quantity", next).Error; err != nil {
			return fmt.Errorf("failed to adjust stock: %w", err)
		}
		return recordMovement(tx, &stock, MovementTypeAdjustment, req.Delta, previous, req.Notes)
	})
	if err != nil {
		return nil, err
	}
	return &stock, nil
}

// Allocate reserves quantity on a record. It fails with insufficient stock
// when fewer units are available.
func (s *Service) Allocate(ctx context.Context, stockID uint, quantity int) (*Stock, error) {
	if quantity <= 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "allocation quantity must be positive")
	}

	var stock Stock
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockStock(tx, stockID, &stock); err != nil {
			return err
		}
		return allocate(tx, &stock, quantity)
	})
	if err != nil {
		return nil, err
	}
	return &stock, nil
}

// AllocateVariant reserves quantity of a variant at the cheapest location
// able to cover all of it
func (s *Service) AllocateVariant(ctx context.Context, variantID uint, quantity int) (*Stock, error) {
	if quantity <= 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "allocation quantity must be positive")
	}

	var picked Stock
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var records []Stock
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("variant_id = ?", variantID).
			Order("id ASC").
			Find(&records).Error; err != nil {
			return fmt.Errorf("failed to retrieve stock: %w", err)
		}
		if len(records) == 0 {
			return apperrors.New(apperrors.CodeNotFound, "variant has no stock records")
		}

		best, ok := CheapestWithQuantity(records, quantity)
		if !ok {
			avail := MaxAvailable(records)
			return apperrors.Newf(apperrors.CodeInsufficientStock, "only %d units available", avail).
				WithDetails(map[string]interface{}{"variant_id": variantID, "available": avail})
		}
		picked = *best
		return allocate(tx, &picked, quantity)
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"variant_id": variantID, "stock_id": picked.ID, "quantity": quantity}).Info("variant stock allocated")
	return &picked, nil
}

// allocate reserves quantity on a locked record
func allocate(tx *gorm.DB, stock *Stock, quantity int) error {
	if avail := stock.QuantityAvailable(); avail < quantity {
		return apperrors.Newf(apperrors.CodeInsufficientStock, "only %d units available", avail).
			WithDetails(map[string]interface{}{"stock_id": stock.ID, "available": avail})
	}

	previous := stock.QuantityAllocated
	stock.QuantityAllocated += quantity
	if err := tx.Model(stock).Update("quantity_allocated", stock.QuantityAllocated).Error; err != nil {
		return fmt.Errorf("failed to allocate stock: %w", err)
	}
	return recordMovement(tx, stock, MovementTypeAllocation, quantity, previous, "")
}

// Deallocate releases allocated quantity, never going below zero
func (s *Service) Deallocate(ctx context.Context, stockID uint, quantity int) (*Stock, error) {
	if quantity <= 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "release quantity must be positive")
	}

	var stock Stock
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockStock(tx, stockID, &stock); err != nil {
			return err
		}

		previous := stock.QuantityAllocated
		stock.QuantityAllocated -= quantity
		if stock.QuantityAllocated < 0 {
			stock.QuantityAllocated = 0
		}
		if err := tx.Model(&stock).Update("quantity_allocated", stock.QuantityAllocated).Error; err != nil {
			return fmt.Errorf("failed to release stock: %w", err)
		}
		return recordMovement(tx, &stock, MovementTypeRelease, previous-stock.QuantityAllocated, previous, "")
	})
	if err != nil {
		return nil, err
	}
	return &stock, nil
}

// StockForVariant returns the stock records of a variant with locations
func (s *Service) StockForVariant(ctx context.Context, variantID uint) ([]Stock, error) {
	var records []Stock
	err := s.db.WithContext(ctx).Preload("Location").
		Where("variant_id = ?", variantID).
		Order("id ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve stock: %w", err)
	}
	return records, nil
}

// LowStock lists records whose available quantity is at or below threshold
func (s *Service) LowStock(ctx context.Context, threshold int) ([]Stock, error) {
	var records []Stock
	err := s.db.WithContext(ctx).Preload("Location").
		Where("quantity - quantity_allocated <= ?", threshold).
		Order("quantity - quantity_allocated ASC, id ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve low stock report: %w", err)
	}
	return records, nil
}

// Movements returns the movement history of a stock record, newest first
func (s *Service) Movements(ctx context.Context, stockID uint) ([]StockMovement, error) {
	var movements []StockMovement
	err := s.db.WithContext(ctx).Where("stock_id = ?", stockID).
		Order("id DESC").
		Find(&movements).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve stock movements: %w", err)
	}
	return movements, nil
}

func lockStock(tx *gorm.DB, id uint, stock *Stock) error {
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(stock, id).Error
	if err != nil {
		return apperrors.NotFoundOr(err, "stock record not found")
	}
	return nil
}

func recordMovement(tx *gorm.DB, stock *Stock, kind MovementType, quantity, previous int, notes string) error {
	next := stock.Quantity
	if kind == MovementTypeAllocation || kind == MovementTypeRelease {
		next = stock.QuantityAllocated
	}
	movement := &StockMovement{
		StockID:          stock.ID,
		MovementType:     kind,
		Quantity:         quantity,
		PreviousQuantity: previous,
		NewQuantity:      next,
		Notes:            notes,
	}
	if err := tx.Create(movement).Error; err != nil {
		return fmt.Errorf("failed to record stock movement: %w", err)
	}
	return nil
}
