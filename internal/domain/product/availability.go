// internal/domain/product/availability.go
package product

import "time"

// ProductAvailabilityStatus summarises whether a product can be bought
type ProductAvailabilityStatus string

const (
	StatusNotPublished     ProductAvailabilityStatus = "not-published"
	StatusVariantsMissing  ProductAvailabilityStatus = "variants-missing"
	StatusNotCarried       ProductAvailabilityStatus = "not-carried"
	StatusOutOfStock       ProductAvailabilityStatus = "out-of-stock"
	StatusLowStock         ProductAvailabilityStatus = "low-stock"
	StatusNotYetAvailable  ProductAvailabilityStatus = "not-yet-available"
	StatusReadyForPurchase ProductAvailabilityStatus = "ready-for-purchase"
)

var productStatusDisplay = map[ProductAvailabilityStatus]string{
	StatusNotPublished:     "not published",
	StatusVariantsMissing:  "variants missing",
	StatusNotCarried:       "not carried",
	StatusOutOfStock:       "out of stock",
	StatusLowStock:         "stock running low",
	StatusNotYetAvailable:  "not yet available",
	StatusReadyForPurchase: "ready for purchase",
}

// Display returns the human readable status
func (s ProductAvailabilityStatus) Display() string {
	return productStatusDisplay[s]
}

// VariantAvailabilityStatus summarises whether a variant can be bought
type VariantAvailabilityStatus string

const (
	VariantNotCarried VariantAvailabilityStatus = "not-carried"
	VariantOutOfStock VariantAvailabilityStatus = "out-of-stock"
	VariantAvailable  VariantAvailabilityStatus = "available"
)

var variantStatusDisplay = map[VariantAvailabilityStatus]string{
	VariantNotCarried: "not carried",
	VariantOutOfStock: "out of stock",
	VariantAvailable:  "available",
}

// Display returns the human readable status
func (s VariantAvailabilityStatus) Display() string {
	return variantStatusDisplay[s]
}

// ProductAvailability resolves the status of a product whose type, variants
// and variant stock are loaded. The first matching condition wins.
func ProductAvailability(p *Product, today time.Time) ProductAvailabilityStatus {
	hasStockRecords := false
	inStock := false
	allInStock := true
	for i := range p.Variants {
		v := &p.Variants[i]
		if len(v.Stock) > 0 {
			hasStockRecords = true
		}
		if v.IsInStock() {
			inStock = true
		} else {
			allInStock = false
		}
	}

	switch {
	case !p.IsPublished:
		return StatusNotPublished
	case p.RequiresVariants() && len(p.Variants) == 0:
		return StatusVariantsMissing
	case !hasStockRecords:
		return StatusNotCarried
	case !inStock:
		return StatusOutOfStock
	case !allInStock:
		return StatusLowStock
	case !p.IsAvailable(today):
		return StatusNotYetAvailable
	default:
		return StatusReadyForPurchase
	}
}

// VariantAvailability resolves the status of a variant with loaded stock
func VariantAvailability(v *ProductVariant) VariantAvailabilityStatus {
	switch {
	case len(v.Stock) == 0:
		return VariantNotCarried
	case !v.IsInStock():
		return VariantOutOfStock
	default:
		return VariantAvailable
	}
}
