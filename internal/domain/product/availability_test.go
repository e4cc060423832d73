package product

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/your-org/storefront-backend/internal/domain/inventory"
)

func TestProductAvailability(t *testing.T) {
	today := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	tomorrow := today.AddDate(0, 0, 1)
	withVariants := &ProductType{HasVariants: true}
	simple := &ProductType{HasVariants: false}

	stocked := ProductVariant{Stock: []inventory.Stock{{Quantity: 4}}}
	empty := ProductVariant{Stock: []inventory.Stock{{Quantity: 2, QuantityAllocated: 2}}}
	uncarried := ProductVariant{}

	tests := []struct {
		name    string
		product Product
		want    ProductAvailabilityStatus
	}{
		{"unpublished wins over everything", Product{IsPublished: false, ProductType: withVariants}, StatusNotPublished},
		{"variant type without variants", Product{IsPublished: true, ProductType: withVariants}, StatusVariantsMissing},
		{"simple type without variants is not carried", Product{IsPublished: true, ProductType: simple}, StatusNotCarried},
		{"no stock records", Product{IsPublished: true, ProductType: withVariants, Variants: []ProductVariant{uncarried}}, StatusNotCarried},
		{"nothing available", Product{IsPublished: true, ProductType: withVariants, Variants: []ProductVariant{empty}}, StatusOutOfStock},
		{"some variants out", Product{IsPublished: true, ProductType: withVariants, Variants: []ProductVariant{stocked, empty}}, StatusLowStock},
		{"future availability", Product{IsPublished: true, ProductType: withVariants, AvailableOn: &tomorrow, Variants: []ProductVariant{stocked}}, StatusNotYetAvailable},
		{"available today", Product{IsPublished: true, ProductType: withVariants, AvailableOn: &today, Variants: []ProductVariant{stocked}}, StatusReadyForPurchase},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ProductAvailability(&tt.product, today))
		})
	}
}

func TestVariantAvailability(t *testing.T) {
	assert.Equal(t, VariantNotCarried, VariantAvailability(&ProductVariant{}))
	assert.Equal(t, VariantOutOfStock, VariantAvailability(&ProductVariant{Stock: []inventory.Stock{{Quantity: 0}}}))
	assert.Equal(t, VariantAvailable, VariantAvailability(&ProductVariant{Stock: []inventory.Stock{{Quantity: 1}}}))
	assert.Equal(t, "stock running low", StatusLowStock.Display())
	assert.Equal(t, "out of stock", VariantOutOfStock.Display())
}
