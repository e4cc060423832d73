// internal/domain/inventory/entity.go
package inventory

import (
	"time"

	"github.com/shopspring/decimal"
)

// MovementType represents the type of stock movement
type MovementType string

const (
	MovementTypeSet        MovementType = "set"        // Absolute stock count
	MovementTypeAdjustment MovementType = "adjustment" // Relative change
	MovementTypeAllocation MovementType = "allocation"
	MovementTypeRelease    MovementType = "release"
)

// StockLocation represents a place stock is kept
type StockLocation struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null;size:100" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Stock holds the quantity of one variant at one location
type Stock struct {
	ID                uint                `gorm:"primaryKey" json:"id"`
	VariantID         uint                `gorm:"not null;uniqueIndex:idx_stock_variant_location,priority:1" json:"variant_id"`
	LocationID        uint                `gorm:"not null;uniqueIndex:idx_stock_variant_location,priority:2" json:"location_id"`
	Quantity          int                 `gorm:"not null;default:0;check:quantity >= 0" json:"quantity"`
	QuantityAllocated int                 `gorm:"not null;default:0;check:quantity_allocated >= 0" json:"quantity_allocated"`
	CostPrice         decimal.NullDecimal `gorm:"type:numeric(12,2)" json:"cost_price"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`

	// Relationships
	Location StockLocation `gorm:"foreignKey:LocationID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"location,omitempty"`
}

// StockMovement records every change made to a stock record
type StockMovement struct {
	ID               uint         `gorm:"primaryKey" json:"id"`
	StockID          uint         `gorm:"not null;index" json:"stock_id"`
	MovementType     MovementType `gorm:"not null;size:20" json:"movement_type"`
	Quantity         int          `gorm:"not null" json:"quantity"`
	PreviousQuantity int          `gorm:"not null" json:"previous_quantity"`
	NewQuantity      int          `gorm:"not null" json:"new_quantity"`
	Notes            string       `gorm:"type:text" json:"notes"`
	CreatedAt        time.Time    `json:"created_at"`
}

func (StockLocation) TableName() string { return "stock_locations" }
func (Stock) TableName() string         { return "stocks" }
func (StockMovement) TableName() string { return "stock_movements" }

// QuantityAvailable is the unallocated quantity, never negative
func (s *Stock) QuantityAvailable() int {
	if avail := s.Quantity - s.QuantityAllocated; avail > 0 {
		return avail
	}
	return 0
}

// MaxAvailable returns the highest available quantity across records
func MaxAvailable(records []Stock) int {
	best := 0
	for i := range records {
		if q := records[i].QuantityAvailable(); q > best {
			best = q
		}
	}
	return best
}

// CheapestWithQuantity picks the record with the lowest cost price that can
// cover quantity. Records without a cost price rank last.
func CheapestWithQuantity(records []Stock, quantity int) (*Stock, bool) {
	var best *Stock
	for i := range records {
		rec := &records[i]
		if rec.QuantityAvailable() < quantity {
			continue
		}
		if best == nil || cheaper(rec, best) {
			best = rec
		}
	}
	return best, best != nil
}

func cheaper(a, b *Stock) bool {
	if !a.CostPrice.Valid {
		return false
	}
	if !b.CostPrice.Valid {
		return true
	}
	return a.CostPrice.Decimal.LessThan(b.CostPrice.Decimal)
}
