// internal/domain/product/admin_service.go
package product

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/domain/attribute"
	apperrors "github.com/your-org/storefront-backend/internal/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AdminService handles catalog management
type AdminService struct {
	db  *gorm.DB
	log logrus.FieldLogger
}

// NewAdminService creates a new catalog management service
func NewAdminService(db *gorm.DB, log logrus.FieldLogger) *AdminService {
	return &AdminService{
		db:  db,
		log: log,
	}
}

// ProductTypeRequest represents product type create/update data
type ProductTypeRequest struct {
	Name                string `json:"name" binding:"required,max=128"`
	HasVariants         *bool  `json:"has_variants"`
	IsShippingRequired  bool   `json:"is_shipping_required"`
	ProductAttributeIDs []uint `json:"product_attributes"`
	VariantAttributeIDs []uint `json:"variant_attributes"`
}

// ProductCreateRequest is the restricted field set used to create a product
type ProductCreateRequest struct {
	Name          string          `json:"name" binding:"required,max=128"`
	ProductTypeID uint            `json:"product_type_id" binding:"required"`
	CategoryID    uint            `json:"category_id" binding:"required"`
	Price         decimal.Decimal `json:"price" binding:"required"`
	Description   string          `json:"description"`
}

// ProductUpdateRequest represents product update data. Attributes holds
// attribute form input keyed by field key; nil leaves the bag untouched.
type ProductUpdateRequest struct {
	Name        *string                `json:"name" binding:"omitempty,max=128"`
	Slug        *string                `json:"slug" binding:"omitempty,max=160"`
	Description *string                `json:"description"`
	CategoryID  *uint                  `json:"category_id"`
	Price       *decimal.Decimal       `json:"price"`
	AvailableOn *string                `json:"available_on"`
	IsPublished *bool                  `json:"is_published"`
	IsFeatured  *bool                  `json:"is_featured"`
	SEO         map[string]interface{} `json:"seo"`
	Attributes  map[string]string      `json:"attributes"`
}

// VariantRequest represents variant create/update data
type VariantRequest struct {
	SKU           string            `json:"sku" binding:"required,max=32"`
	Name          string            `json:"name" binding:"max=100"`
	PriceOverride *decimal.Decimal  `json:"price_override"`
	Attributes    map[string]string `json:"attributes"`
}

// ImageRequest represents a new gallery image
type ImageRequest struct {
	URL     string `json:"url" binding:"required,url,max=500"`
	AltText string `json:"alt_text" binding:"max=128"`
}

// CollectionRequest represents collection create/update data
type CollectionRequest struct {
	Name string `json:"name" binding:"required,max=128"`
	Slug string `json:"slug" binding:"max=128"`
}

// ProductForm describes the product change form
type ProductForm struct {
	Product    *Product          `json:"product"`
	Fields     []attribute.Field `json:"attribute_fields"`
	HasVariant bool              `json:"has_variants"`
}

// VariantForm describes the variant change form
type VariantForm struct {
	Variant *ProductVariant   `json:"variant"`
	Fields  []attribute.Field `json:"attribute_fields"`
}

func preloadSchema(db *gorm.DB, prefix string) *gorm.DB {
	values := func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }
	bySlug := func(db *gorm.DB) *gorm.DB { return db.Order("slug ASC") }
	return db.
		Preload(prefix+"ProductAttributes", bySlug).
		Preload(prefix+"ProductAttributes.Values", values).
		Preload(prefix+"VariantAttributes", bySlug).
		Preload(prefix+"VariantAttributes.Values", values)
}

// ListProductTypes returns every product type with its attribute sets
func (s *AdminService) ListProductTypes(ctx context.Context) ([]ProductType, error) {
	var types []ProductType
	if err := preloadSchema(s.db.WithContext(ctx), "").Order("name ASC").Find(&types).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve product types: %w", err)
	}
	return types, nil
}

// GetProductType returns one product type with its attribute sets
func (s *AdminService) GetProductType(ctx context.Context, id uint) (*ProductType, error) {
	var pt ProductType
	if err := preloadSchema(s.db.WithContext(ctx), "").First(&pt, id).Error; err != nil {
		return nil, apperrors.NotFoundOr(err, "product type not found")
	}
	return &pt, nil
}

// CreateProductType creates a product type with its attribute sets
func (s *AdminService) CreateProductType(ctx context.Context, req *ProductTypeRequest) (*ProductType, error) {
	var id uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureNameFree(tx, &ProductType{}, req.Name, 0); err != nil {
			return err
		}

		pt := ProductType{
			Name:               strings.TrimSpace(req.Name),
			HasVariants:        req.HasVariants == nil || *req.HasVariants,
			IsShippingRequired: req.IsShippingRequired,
		}
		if err := tx.Omit(clause.Associations).Create(&pt).Error; err != nil {
			return fmt.Errorf("failed to create product type: %w", err)
		}
		if !pt.HasVariants {
			if err := tx.Model(&pt).Update("has_variants", false).Error; err != nil {
				return fmt.Errorf("failed to create product type: %w", err)
			}
		}
		id = pt.ID
		return replaceAttributeSets(tx, &pt, req)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithField("product_type_id", id).Info("product type created")
	return s.GetProductType(ctx, id)
}

// UpdateProductType updates a product type and replaces its attribute sets
func (s *AdminService) UpdateProductType(ctx context.Context, id uint, req *ProductTypeRequest) (*ProductType, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pt ProductType
		if err := tx.First(&pt, id).Error; err != nil {
			return apperrors.NotFoundOr(err, "product type not found")
		}
		if err := ensureNameFree(tx, &ProductType{}, req.Name, id); err != nil {
			return err
		}

		updates := map[string]interface{}{
			"name":                 strings.TrimSpace(req.Name),
			"is_shipping_required": req.IsShippingRequired,
		}
		if req.HasVariants != nil {
			updates["has_variants"] = *req.HasVariants
		}
		if err := tx.Model(&pt).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update product type: %w", err)
		}
		return replaceAttributeSets(tx, &pt, req)
	})
	if err != nil {
		return nil, err
	}
	return s.GetProductType(ctx, id)
}

// DeleteProductType removes a product type no product uses
func (s *AdminService) DeleteProductType(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pt ProductType
		if err := tx.First(&pt, id).Error; err != nil {
			return apperrors.NotFoundOr(err, "product type not found")
		}

		var products int64
		if err := tx.Model(&Product{}).Where("product_type_id = ?", id).Count(&products).Error; err != nil {
			return fmt.Errorf("failed to count products: %w", err)
		}
		if products > 0 {
			return apperrors.New(apperrors.CodeConflict, "product type is used by products").
				WithDetails(map[string]interface{}{"products": products})
		}

		if err := tx.Model(&pt).Association("ProductAttributes").Clear(); err != nil {
			return fmt.Errorf("failed to clear product attributes: %w", err)
		}
		if err := tx.Model(&pt).Association("VariantAttributes").Clear(); err != nil {
			return fmt.Errorf("failed to clear variant attributes: %w", err)
		}
		if err := tx.Delete(&pt).Error; err != nil {
			return fmt.Errorf("failed to delete product type: %w", err)
		}
		return nil
	})
}

func replaceAttributeSets(tx *gorm.DB, pt *ProductType, req *ProductTypeRequest) error {
	productAttrs, err := loadAttributes(tx, req.ProductAttributeIDs, "product_attributes")
	if err != nil {
		return err
	}
	variantAttrs, err := loadAttributes(tx, req.VariantAttributeIDs, "variant_attributes")
	if err != nil {
		return err
	}

	if err := tx.Model(pt).Association("ProductAttributes").Replace(productAttrs); err != nil {
		return fmt.Errorf("failed to set product attributes: %w", err)
	}
	if err := tx.Model(pt).Association("VariantAttributes").Replace(variantAttrs); err != nil {
		return fmt.Errorf("failed to set variant attributes: %w", err)
	}
	return nil
}

func loadAttributes(tx *gorm.DB, ids []uint, field string) ([]attribute.Attribute, error) {
	attrs := []attribute.Attribute{}
	if len(ids) == 0 {
		return attrs, nil
	}
	unique := map[uint]bool{}
	for _, id := range ids {
		unique[id] = true
	}
	if err := tx.Where("id IN ?", ids).Find(&attrs).Error; err != nil {
		return nil, fmt.Errorf("failed to load attributes: %w", err)
	}
	if len(attrs) != len(unique) {
		return nil, apperrors.New(apperrors.CodeValidation, "unknown attribute").
			WithDetails(attribute.FieldErrors{field: "one or more attributes do not exist"})
	}
	return attrs, nil
}

// loadProduct fetches a product with its type schema for editing
func (s *AdminService) loadProduct(tx *gorm.DB, id uint, lock bool) (*Product, error) {
	var product Product
	query := preloadSchema(tx.Preload("ProductType"), "ProductType.")
	if lock {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := query.First(&product, id).Error; err != nil {
		return nil, apperrors.NotFoundOr(err, "product not found")
	}
	return &product, nil
}

// CreateProduct creates a product from the restricted field set. Products
// whose type does not manage variants get a default variant.
func (s *AdminService) CreateProduct(ctx context.Context, req *ProductCreateRequest) (*Product, error) {
	if req.Price.IsNegative() {
		return nil, apperrors.New(apperrors.CodeValidation, "price cannot be negative")
	}

	var productID uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pt ProductType
		if err := tx.First(&pt, req.ProductTypeID).Error; err != nil {
			return apperrors.New(apperrors.CodeValidation, "product type not found")
		}
		var category Category
		if err := tx.First(&category, req.CategoryID).Error; err != nil {
			return apperrors.New(apperrors.CodeValidation, "category not found")
		}

		name := strings.TrimSpace(req.Name)
		product := Product{
			ProductTypeID: &pt.ID,
			Name:          name,
			Slug:          slugOr("", name),
			Description:   req.Description,
			CategoryID:    category.ID,
			Price:         req.Price,
			IsPublished:   true,
			Attributes:    attribute.Bag{},
		}
		if product.Slug == "" {
			return apperrors.New(apperrors.CodeValidation, "product name produces an empty slug")
		}
		if err := tx.Omit(clause.Associations).Create(&product).Error; err != nil {
			return fmt.Errorf("failed to create product: %w", err)
		}
		productID = product.ID

		if !pt.HasVariants {
			variant := ProductVariant{
				ProductID:  product.ID,
				SKU:        generateSKU(product.Slug),
				Name:       product.Name,
				Attributes: attribute.Bag{},
			}
			if err := tx.Omit(clause.Associations).Create(&variant).Error; err != nil {
				return fmt.Errorf("failed to create default variant: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"product_id": productID, "product_type_id": req.ProductTypeID}).Info("product created")
	return s.loadProduct(s.db.WithContext(ctx).Preload("Variants"), productID, false)
}

// UpdateProduct applies the full product field set and, when present, the
// attribute form input
func (s *AdminService) UpdateProduct(ctx context.Context, id uint, req *ProductUpdateRequest) (*Product, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		product, err := s.loadProduct(tx, id, true)
		if err != nil {
			return err
		}

		updates := make(map[string]interface{})
		if req.Name != nil {
			updates["name"] = strings.TrimSpace(*req.Name)
		}
		if req.Slug != nil {
			name := product.Name
			if req.Name != nil {
				name = *req.Name
			}
			updates["slug"] = slugOr(*req.Slug, name)
		}
		if req.Description != nil {
			updates["description"] = *req.Description
		}
		if req.CategoryID != nil {
			var category Category
			if err := tx.First(&category, *req.CategoryID).Error; err != nil {
				return apperrors.New(apperrors.CodeValidation, "category not found")
			}
			updates["category_id"] = category.ID
		}
		if req.Price != nil {
			if req.Price.IsNegative() {
				return apperrors.New(apperrors.CodeValidation, "price cannot be negative")
			}
			updates["price"] = *req.Price
		}
		if req.AvailableOn != nil {
			if *req.AvailableOn == "" {
				updates["available_on"] = nil
			} else {
				day, err := time.Parse("2006-01-02", *req.AvailableOn)
				if err != nil {
					return apperrors.New(apperrors.CodeValidation, "available_on must be a date (YYYY-MM-DD)")
				}
				updates["available_on"] = day
			}
		}
		if req.IsPublished != nil {
			updates["is_published"] = *req.IsPublished
		}
		if req.IsFeatured != nil {
			updates["is_featured"] = *req.IsFeatured
		}
		if req.SEO != nil {
			updates["seo"] = datatypes.JSONMap(req.SEO)
		}
		if req.Attributes != nil {
			form := attribute.NewForm(product, product.AttributeSchema())
			if err := form.Bind(req.Attributes); err != nil {
				return err
			}
			bag, err := form.Save()
			if err != nil {
				return err
			}
			updates["attributes"] = bag
		}

		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(product).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update product: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.loadProduct(s.db.WithContext(ctx).Preload("Variants"), id, false)
}

// DeleteProduct removes a product with its variants and images
func (s *AdminService) DeleteProduct(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product Product
		if err := tx.First(&product, id).Error; err != nil {
			return apperrors.NotFoundOr(err, "product not found")
		}

		var variantIDs []uint
		if err := tx.Model(&ProductVariant{}).Where("product_id = ?", id).Pluck("id", &variantIDs).Error; err != nil {
			return fmt.Errorf("failed to load variants: %w", err)
		}
		if err := deleteVariants(tx, variantIDs); err != nil {
			return err
		}

		steps := []struct {
			sql  string
			what string
		}{
			{"DELETE FROM collection_products WHERE product_id = ?", "collections"},
			{"DELETE FROM product_images WHERE product_id = ?", "images"},
			{"DELETE FROM products WHERE id = ?", "product"},
		}
		for _, step := range steps {
			if err := tx.Exec(step.sql, id).Error; err != nil {
				return fmt.Errorf("failed to delete product %s: %w", step.what, err)
			}
		}

		s.log.WithField("product_id", id).Info("product deleted")
		return nil
	})
}

// deleteVariants removes variants together with their stock, movements and
// image links
func deleteVariants(tx *gorm.DB, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	steps := []struct {
		sql  string
		what string
	}{
		{"DELETE FROM stock_movements WHERE stock_id IN (SELECT id FROM stocks WHERE variant_id IN ?)", "stock movements"},
		{"DELETE FROM stocks WHERE variant_id IN ?", "stock"},
		{"DELETE FROM variant_images WHERE product_variant_id IN ?", "image links"},
		{"DELETE FROM product_variants WHERE id IN ?", "variants"},
	}
	for _, step := range steps {
		if err := tx.Exec(step.sql, ids).Error; err != nil {
			return fmt.Errorf("failed to delete variant %s: %w", step.what, err)
		}
	}
	return nil
}

// ProductForm returns the product with the attribute fields of its type
func (s *AdminService) ProductForm(ctx context.Context, id uint) (*ProductForm, error) {
	product, err := s.loadProduct(s.db.WithContext(ctx), id, false)
	if err != nil {
		return nil, err
	}
	form := attribute.NewForm(product, product.AttributeSchema())
	return &ProductForm{Product: product, Fields: form.Fields(), HasVariant: product.RequiresVariants()}, nil
}

// CreateVariant adds a variant to a product
func (s *AdminService) CreateVariant(ctx context.Context, productID uint, req *VariantRequest) (*ProductVariant, error) {
	var variantID uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		product, err := s.loadProduct(tx, productID, true)
		if err != nil {
			return err
		}
		if err := ensureSKUFree(tx, req.SKU, 0); err != nil {
			return err
		}

		variant := ProductVariant{
			ProductID:  product.ID,
			SKU:        strings.TrimSpace(req.SKU),
			Name:       strings.TrimSpace(req.Name),
			Attributes: attribute.Bag{},
		}
		if err := setPriceOverride(&variant, req.PriceOverride); err != nil {
			return err
		}
		if req.Attributes != nil {
			form := attribute.NewForm(&variant, product.VariantSchema())
			if err := form.Bind(req.Attributes); err != nil {
				return err
			}
			if _, err := form.Save(); err != nil {
				return err
			}
		}
		if err := tx.Omit(clause.Associations).Create(&variant).Error; err != nil {
			return fmt.Errorf("failed to create variant: %w", err)
		}
		variantID = variant.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.getVariant(ctx, variantID)
}

// UpdateVariant updates a variant's fields and attribute bag
func (s *AdminService) UpdateVariant(ctx context.Context, variantID uint, req *VariantRequest) (*ProductVariant, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var variant ProductVariant
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&variant, variantID).Error; err != nil {
			return apperrors.NotFoundOr(err, "variant not found")
		}
		product, err := s.loadProduct(tx, variant.ProductID, false)
		if err != nil {
			return err
		}
		if sku := strings.TrimSpace(req.SKU); sku != variant.SKU {
			if err := ensureSKUFree(tx, sku, variant.ID); err != nil {
				return err
			}
			variant.SKU = sku
		}
		variant.Name = strings.TrimSpace(req.Name)
		if err := setPriceOverride(&variant, req.PriceOverride); err != nil {
			return err
		}
		if req.Attributes != nil {
			form := attribute.NewForm(&variant, product.VariantSchema())
			if err := form.Bind(req.Attributes); err != nil {
				return err
			}
			if _, err := form.Save(); err != nil {
				return err
			}
		}

		if err := tx.Model(&variant).Select("sku", "name", "price_override", "attributes").Updates(&variant).Error; err != nil {
			return fmt.Errorf("failed to update variant: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.getVariant(ctx, variantID)
}

// DeleteVariant removes a variant with its stock records
func (s *AdminService) DeleteVariant(ctx context.Context, variantID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var variant ProductVariant
		if err := tx.First(&variant, variantID).Error; err != nil {
			return apperrors.NotFoundOr(err, "variant not found")
		}
		return deleteVariants(tx, []uint{variant.ID})
	})
}

// VariantForm returns the variant with the variant attribute fields of its
// product type
func (s *AdminService) VariantForm(ctx context.Context, variantID uint) (*VariantForm, error) {
	variant, err := s.getVariant(ctx, variantID)
	if err != nil {
		return nil, err
	}
	product, err := s.loadProduct(s.db.WithContext(ctx), variant.ProductID, false)
	if err != nil {
		return nil, err
	}
	form := attribute.NewForm(variant, product.VariantSchema())
	return &VariantForm{Variant: variant, Fields: form.Fields()}, nil
}

func (s *AdminService) getVariant(ctx context.Context, id uint) (*ProductVariant, error) {
	var variant ProductVariant
	err := s.db.WithContext(ctx).
		Preload("Stock").
		Preload("Images").
		First(&variant, id).Error
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "variant not found")
	}
	return &variant, nil
}

func setPriceOverride(v *ProductVariant, price *decimal.Decimal) error {
	if price == nil {
		v.PriceOverride = decimal.NullDecimal{}
		return nil
	}
	if price.IsNegative() {
		return apperrors.New(apperrors.CodeValidation, "price override cannot be negative")
	}
	v.PriceOverride = decimal.NewNullDecimal(*price)
	return nil
}

func ensureSKUFree(tx *gorm.DB, sku string, exceptID uint) error {
	var count int64
	query := tx.Model(&ProductVariant{}).Where("sku = ?", strings.TrimSpace(sku))
	if exceptID != 0 {
		query = query.Where("id <> ?", exceptID)
	}
	if err := query.Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check sku: %w", err)
	}
	if count > 0 {
		return apperrors.Newf(apperrors.CodeConflict, "variant with sku %q already exists", sku)
	}
	return nil
}

func ensureNameFree(tx *gorm.DB, model interface{}, name string, exceptID uint) error {
	var count int64
	query := tx.Model(model).Where("name = ?", strings.TrimSpace(name))
	if exceptID != 0 {
		query = query.Where("id <> ?", exceptID)
	}
	if err := query.Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check name: %w", err)
	}
	if count > 0 {
		return apperrors.Newf(apperrors.CodeConflict, "%q already exists", name)
	}
	return nil
}

// generateSKU derives a unique stock keeping unit from a product slug
func generateSKU(productSlug string) string {
	prefix := strings.ToUpper(productSlug)
	if len(prefix) > 20 {
		prefix = strings.TrimRight(prefix[:20], "-")
	}
	return prefix + "-" + strings.ToUpper(uuid.NewString()[:8])
}

// AddImage appends an image to the product gallery
func (s *AdminService) AddImage(ctx context.Context, productID uint, req *ImageRequest) (*ProductImage, error) {
	var image ProductImage
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product Product
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&product, productID).Error; err != nil {
			return apperrors.NotFoundOr(err, "product not found")
		}

		var maxOrder sql.NullInt64
		if err := tx.Model(&ProductImage{}).Where("product_id = ?", productID).
			Select("MAX(sort_order)").Row().Scan(&maxOrder); err != nil {
			return fmt.Errorf("failed to read image order: %w", err)
		}

		image = ProductImage{ProductID: productID, URL: req.URL, AltText: req.AltText}
		if maxOrder.Valid {
			image.Order = int(maxOrder.Int64) + 1
		}
		if err := tx.Create(&image).Error; err != nil {
			return fmt.Errorf("failed to add image: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &image, nil
}

// DeleteImage removes an image and closes the gap in gallery order
func (s *AdminService) DeleteImage(ctx context.Context, imageID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var image ProductImage
		if err := tx.First(&image, imageID).Error; err != nil {
			return apperrors.NotFoundOr(err, "image not found")
		}
		if err := tx.Exec("DELETE FROM variant_images WHERE product_image_id = ?", image.ID).Error; err != nil {
			return fmt.Errorf("failed to detach image from variants: %w", err)
		}
		if err := tx.Delete(&image).Error; err != nil {
			return fmt.Errorf("failed to delete image: %w", err)
		}
		if err := tx.Model(&ProductImage{}).
			Where("product_id = ? AND sort_order > ?", image.ProductID, image.Order).
			Update("sort_order", gorm.Expr("sort_order - 1")).Error; err != nil {
			return fmt.Errorf("failed to reorder images: %w", err)
		}
		return nil
	})
}

// ReorderImages sets gallery order from a complete list of the product's
// image ids
func (s *AdminService) ReorderImages(ctx context.Context, productID uint, imageIDs []uint) ([]ProductImage, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var images []ProductImage
		if err := tx.Where("product_id = ?", productID).Find(&images).Error; err != nil {
			return fmt.Errorf("failed to load images: %w", err)
		}

		owned := make(map[uint]bool, len(images))
		for _, img := range images {
			owned[img.ID] = true
		}
		if len(imageIDs) != len(images) {
			return apperrors.New(apperrors.CodeValidation, "order must list every image of the product exactly once")
		}
		for position, id := range imageIDs {
			if !owned[id] {
				return apperrors.New(apperrors.CodeValidation, "order must list every image of the product exactly once")
			}
			delete(owned, id)
			if err := tx.Model(&ProductImage{}).Where("id = ?", id).Update("sort_order", position).Error; err != nil {
				return fmt.Errorf("failed to reorder images: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var images []ProductImage
	if err := s.db.WithContext(ctx).Where("product_id = ?", productID).
		Order("sort_order ASC, id ASC").Find(&images).Error; err != nil {
		return nil, fmt.Errorf("failed to load images: %w", err)
	}
	return images, nil
}

// AttachImage links a gallery image to one of the same product's variants
func (s *AdminService) AttachImage(ctx context.Context, variantID, imageID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var variant ProductVariant
		if err := tx.First(&variant, variantID).Error; err != nil {
			return apperrors.NotFoundOr(err, "variant not found")
		}
		var image ProductImage
		if err := tx.First(&image, imageID).Error; err != nil {
			return apperrors.NotFoundOr(err, "image not found")
		}
		if image.ProductID != variant.ProductID {
			return apperrors.New(apperrors.CodeValidation, "image belongs to another product")
		}
		if err := tx.Model(&variant).Association("Images").Append(&image); err != nil {
			return fmt.Errorf("failed to attach image: %w", err)
		}
		return nil
	})
}

// ListCollections returns every collection
func (s *AdminService) ListCollections(ctx context.Context) ([]Collection, error) {
	var collections []Collection
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&collections).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve collections: %w", err)
	}
	return collections, nil
}

// CreateCollection creates a collection
func (s *AdminService) CreateCollection(ctx context.Context, req *CollectionRequest) (*Collection, error) {
	db := s.db.WithContext(ctx)
	if err := ensureNameFree(db, &Collection{}, req.Name, 0); err != nil {
		return nil, err
	}
	collection := Collection{Name: strings.TrimSpace(req.Name), Slug: slugOr(req.Slug, req.Name)}
	if err := db.Omit(clause.Associations).Create(&collection).Error; err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}
	return &collection, nil
}

// UpdateCollection renames a collection
func (s *AdminService) UpdateCollection(ctx context.Context, id uint, req *CollectionRequest) (*Collection, error) {
	db := s.db.WithContext(ctx)
	var collection Collection
	if err := db.First(&collection, id).Error; err != nil {
		return nil, apperrors.NotFoundOr(err, "collection not found")
	}
	if err := ensureNameFree(db, &Collection{}, req.Name, id); err != nil {
		return nil, err
	}
	collection.Name = strings.TrimSpace(req.Name)
	collection.Slug = slugOr(req.Slug, req.Name)
	if err := db.Model(&collection).Select("name", "slug").Updates(&collection).Error; err != nil {
		return nil, fmt.Errorf("failed to update collection: %w", err)
	}
	return &collection, nil
}

// DeleteCollection removes a collection; its products are kept
func (s *AdminService) DeleteCollection(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var collection Collection
		if err := tx.First(&collection, id).Error; err != nil {
			return apperrors.NotFoundOr(err, "collection not found")
		}
		if err := tx.Model(&collection).Association("Products").Clear(); err != nil {
			return fmt.Errorf("failed to detach products: %w", err)
		}
		if err := tx.Delete(&collection).Error; err != nil {
			return fmt.Errorf("failed to delete collection: %w", err)
		}
		return nil
	})
}

// AddToCollection puts a product into a collection
func (s *AdminService) AddToCollection(ctx context.Context, collectionID, productID uint) error {
	return s.collectionMembership(ctx, collectionID, productID, true)
}

// RemoveFromCollection takes a product out of a collection
func (s *AdminService) RemoveFromCollection(ctx context.Context, collectionID, productID uint) error {
	return s.collectionMembership(ctx, collectionID, productID, false)
}

func (s *AdminService) collectionMembership(ctx context.Context, collectionID, productID uint, add bool) error {
	db := s.db.WithContext(ctx)
	var collection Collection
	if err := db.First(&collection, collectionID).Error; err != nil {
		return apperrors.NotFoundOr(err, "collection not found")
	}
	var product Product
	if err := db.First(&product, productID).Error; err != nil {
		return apperrors.NotFoundOr(err, "product not found")
	}

	var err error
	if add {
		err = db.Table("collection_products").
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(map[string]interface{}{"collection_id": collection.ID, "product_id": product.ID}).Error
	} else {
		err = db.Exec("DELETE FROM collection_products WHERE collection_id = ? AND product_id = ?",
			collection.ID, product.ID).Error
	}
	if err != nil {
		return fmt.Errorf("failed to update collection products: %w", err)
	}
	return nil
}
