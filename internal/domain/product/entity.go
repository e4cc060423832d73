// internal/domain/product/entity.go
package product

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/storefront-backend/internal/domain/attribute"
	"github.com/your-org/storefront-backend/internal/domain/inventory"
	apperrors "github.com/your-org/storefront-backend/internal/pkg/errors"
	"gorm.io/datatypes"
)

// Category represents a node of the category tree
type Category struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"not null;size:128" json:"name"`
	Slug        string    `gorm:"uniqueIndex;not null;size:128" json:"slug"`
	Description string    `gorm:"type:text" json:"description"`
	ParentID    *uint     `gorm:"index" json:"parent_id"`
	SortOrder   int       `gorm:"default:0" json:"sort_order"`
	IsActive    bool      `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Relationships
	Parent   *Category  `gorm:"foreignKey:ParentID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"parent,omitempty"`
	Children []Category `gorm:"foreignKey:ParentID" json:"children,omitempty"`
}

// ProductType declares which attributes apply to products and to variants
type ProductType struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	Name               string    `gorm:"uniqueIndex;not null;size:128" json:"name"`
	HasVariants        bool      `gorm:"default:true" json:"has_variants"`
	IsShippingRequired bool      `gorm:"default:false" json:"is_shipping_required"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`

	// Relationships
	ProductAttributes []attribute.Attribute `gorm:"many2many:product_type_product_attributes;" json:"product_attributes"`
	VariantAttributes []attribute.Attribute `gorm:"many2many:product_type_variant_attributes;" json:"variant_attributes"`
}

// Product represents a catalog product
type Product struct {
	ID            uint              `gorm:"primaryKey" json:"id"`
	ProductTypeID *uint             `gorm:"index" json:"product_type_id"`
	Name          string            `gorm:"not null;size:128" json:"name"`
	Slug          string            `gorm:"not null;size:160;index" json:"slug"`
	Description   string            `gorm:"type:text" json:"description"`
	CategoryID    uint              `gorm:"not null;index" json:"category_id"`
	Price         decimal.Decimal   `gorm:"type:numeric(12,2);not null" json:"price"`
	AvailableOn   *time.Time        `gorm:"type:date" json:"available_on"`
	IsPublished   bool              `gorm:"default:true" json:"is_published"`
	IsFeatured    bool              `gorm:"default:false" json:"is_featured"`
	Attributes    attribute.Bag     `json:"attributes"`
	SEO           datatypes.JSONMap `json:"seo,omitempty"`
	UpdatedAt     time.Time         `json:"updated_at"`
	CreatedAt     time.Time         `json:"created_at"`

	// Relationships
	ProductType *ProductType     `gorm:"foreignKey:ProductTypeID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"product_type,omitempty"`
	Category    Category         `gorm:"foreignKey:CategoryID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"category"`
	Variants    []ProductVariant `gorm:"foreignKey:ProductID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"variants,omitempty"`
	Images      []ProductImage   `gorm:"foreignKey:ProductID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"images,omitempty"`
	Collections []Collection     `gorm:"many2many:collection_products;" json:"-"`
}

// ProductVariant is one purchasable form of a product
type ProductVariant struct {
	ID            uint                `gorm:"primaryKey" json:"id"`
	ProductID     uint                `gorm:"not null;index" json:"product_id"`
	SKU           string              `gorm:"uniqueIndex;not null;size:32" json:"sku"`
	Name          string              `gorm:"size:100" json:"name"`
	PriceOverride decimal.NullDecimal `gorm:"type:numeric(12,2)" json:"price_override"`
	Attributes    attribute.Bag       `json:"attributes"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`

	// Relationships
	Product *Product          `gorm:"foreignKey:ProductID" json:"-"`
	Stock   []inventory.Stock `gorm:"foreignKey:VariantID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"stock,omitempty"`
	Images  []ProductImage    `gorm:"many2many:variant_images;" json:"images,omitempty"`
}

// ProductImage represents a product gallery image
type ProductImage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProductID uint      `gorm:"not null;index" json:"product_id"`
	URL       string    `gorm:"not null;size:500" json:"url"`
	AltText   string    `gorm:"size:128" json:"alt_text"`
	Order     int       `gorm:"column:sort_order;default:0" json:"order"`
	CreatedAt time.Time `json:"created_at"`
}

// Collection groups products for merchandising
type Collection struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null;size:128" json:"name"`
	Slug      string    `gorm:"not null;size:128" json:"slug"`
	CreatedAt time.Time `json:"created_at"`

	// Relationships
	Products []Product `gorm:"many2many:collection_products;" json:"products,omitempty"`
}

// TableName overrides
func (Category) TableName() string       { return "categories" }
func (ProductType) TableName() string    { return "product_types" }
func (Product) TableName() string        { return "products" }
func (ProductVariant) TableName() string { return "product_variants" }
func (ProductImage) TableName() string   { return "product_images" }
func (Collection) TableName() string     { return "collections" }

// AttributeBag implements attribute.Holder
func (p *Product) AttributeBag() attribute.Bag { return p.Attributes }

// SetAttributeBag implements attribute.Holder
func (p *Product) SetAttributeBag(b attribute.Bag) { p.Attributes = b }

// AttributeSchema returns the product-level attributes of the product's type
func (p *Product) AttributeSchema() []attribute.Attribute {
	if p.ProductType == nil {
		return nil
	}
	return p.ProductType.ProductAttributes
}

// VariantSchema returns the variant-level attributes of the product's type
func (p *Product) VariantSchema() []attribute.Attribute {
	if p.ProductType == nil {
		return nil
	}
	return p.ProductType.VariantAttributes
}

// RequiresVariants reports whether the product's type manages variants
func (p *Product) RequiresVariants() bool {
	return p.ProductType != nil && p.ProductType.HasVariants
}

// IsAvailable reports whether the product is on sale at the given day
func (p *Product) IsAvailable(today time.Time) bool {
	return p.AvailableOn == nil || !dateOnly(*p.AvailableOn).After(dateOnly(today))
}

// URL is the canonical path of the product detail page
func (p *Product) URL() string {
	return fmt.Sprintf("/products/%d/%s", p.ID, p.Slug)
}

// FirstImage returns the first gallery image, if any
func (p *Product) FirstImage() *ProductImage {
	if len(p.Images) == 0 {
		return nil
	}
	return &p.Images[0]
}

// AttributeBag implements attribute.Holder
func (v *ProductVariant) AttributeBag() attribute.Bag { return v.Attributes }

// SetAttributeBag implements attribute.Holder
func (v *ProductVariant) SetAttributeBag(b attribute.Bag) { v.Attributes = b }

// UnitPrice is the variant's price override or the product price
func (v *ProductVariant) UnitPrice(product *Product) decimal.Decimal {
	if v.PriceOverride.Valid {
		return v.PriceOverride.Decimal
	}
	if product != nil {
		return product.Price
	}
	if v.Product != nil {
		return v.Product.Price
	}
	return decimal.Zero
}

// StockQuantity is the best available quantity across stock records
func (v *ProductVariant) StockQuantity() int {
	return inventory.MaxAvailable(v.Stock)
}

// IsInStock reports whether any stock record has units available
func (v *ProductVariant) IsInStock() bool {
	return v.StockQuantity() > 0
}

// CheckQuantity fails with insufficient stock when quantity exceeds stock
func (v *ProductVariant) CheckQuantity(quantity int) error {
	if available := v.StockQuantity(); quantity > available {
		return apperrors.Newf(apperrors.CodeInsufficientStock, "only %d of %s in stock", available, v.DisplayName()).
			WithDetails(map[string]interface{}{"variant_id": v.ID, "available": available})
	}
	return nil
}

// DisplayName is the variant name or its SKU
func (v *ProductVariant) DisplayName() string {
	if name := strings.TrimSpace(v.Name); name != "" {
		return name
	}
	return v.SKU
}

// URL is the canonical path of the collection page
func (c *Collection) URL() string {
	return fmt.Sprintf("/collections/%d/%s", c.ID, c.Slug)
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
