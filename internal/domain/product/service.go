// internal/domain/product/service.go
package product

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/attribute"
	apperrors "github.com/your-org/storefront-backend/internal/pkg/errors"
	"gorm.io/gorm"
)

// Viewer is the user a catalog query runs for
type Viewer struct {
	UserID  uint
	IsStaff bool
}

// Anonymous is a viewer without an account
var Anonymous = Viewer{}

// Service handles catalog queries
type Service struct {
	db         *gorm.DB
	cfg        config.CatalogConfig
	log        logrus.FieldLogger
	categories *CategoryService
	now        func() time.Time
}

// NewService creates a new catalog service
func NewService(db *gorm.DB, cfg config.CatalogConfig, log logrus.FieldLogger) *Service {
	return &Service{
		db:         db,
		cfg:        cfg,
		log:        log,
		categories: NewCategoryService(db, log),
		now:        time.Now,
	}
}

// Pagination represents pagination information
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// ProductSummary is a product as shown in listings
type ProductSummary struct {
	Product
	URL          string                    `json:"url"`
	Availability ProductAvailabilityStatus `json:"availability"`
	InStock      bool                      `json:"in_stock"`
}

// Listing is one page of filtered products
type Listing struct {
	Products    []ProductSummary `json:"products"`
	Filter      *Filter          `json:"filter"`
	SortOptions []SortOption     `json:"sort_options"`
	Pagination  Pagination       `json:"pagination"`
}

// CategoryListing is a category page
type CategoryListing struct {
	Category  *Category  `json:"category"`
	Path      string     `json:"path"`
	Ancestors []Category `json:"ancestors"`
	Listing
}

// CollectionListing is a collection page
type CollectionListing struct {
	Collection *Collection `json:"collection"`
	Listing
}

// VariantDetails is a variant with its resolved presentation data
type VariantDetails struct {
	Variant       *ProductVariant           `json:"variant"`
	Attributes    []attribute.Display       `json:"attributes"`
	Availability  VariantAvailabilityStatus `json:"availability"`
	UnitPrice     decimal.Decimal           `json:"unit_price"`
	StockQuantity int                       `json:"stock_quantity"`
}

// ProductDetails is everything the product page renders
type ProductDetails struct {
	Product           *Product                  `json:"product"`
	IsVisible         bool                      `json:"is_visible"`
	Attributes        []attribute.Display       `json:"attributes"`
	Images            []ProductImage            `json:"images"`
	Variants          []VariantDetails          `json:"variants"`
	ShowVariantPicker bool                      `json:"show_variant_picker"`
	Availability      ProductAvailabilityStatus `json:"availability"`
	AvailabilityText  string                    `json:"availability_text"`
	JSONLD            map[string]interface{}    `json:"json_ld"`
}

func (s *Service) today() time.Time {
	return dateOnly(s.now())
}

// VisibleProducts returns a products query scoped to what viewer may see.
// Staff see everything; everyone else sees published products already on sale.
func (s *Service) VisibleProducts(ctx context.Context, viewer Viewer) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&Product{})
	if viewer.IsStaff {
		return query
	}
	return query.
		Where("products.is_published = ?", true).
		Where("products.available_on IS NULL OR products.available_on <= ?", s.today())
}

// withDetails preloads everything availability and detail pages need
func withDetails(query *gorm.DB) *gorm.DB {
	return query.
		Preload("Category").
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC, id ASC") }).
		Preload("Variants", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Variants.Stock").
		Preload("Variants.Images").
		Preload("ProductType").
		Preload("ProductType.ProductAttributes", func(db *gorm.DB) *gorm.DB { return db.Order("slug ASC") }).
		Preload("ProductType.ProductAttributes.Values", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("ProductType.VariantAttributes", func(db *gorm.DB) *gorm.DB { return db.Order("slug ASC") }).
		Preload("ProductType.VariantAttributes.Values", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") })
}

// ProductsForHomepage returns featured products visible to anonymous users
func (s *Service) ProductsForHomepage(ctx context.Context) ([]ProductSummary, error) {
	var products []Product
	err := withDetails(s.VisibleProducts(ctx, Anonymous)).
		Where("products.is_featured = ?", true).
		Order("products.name ASC").
		Limit(s.cfg.FeaturedLimit).
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve featured products: %w", err)
	}
	return s.summarize(products), nil
}

// GetProductDetails loads a product page. When slug is not the product's
// canonical slug the canonical URL is returned instead of details.
func (s *Service) GetProductDetails(ctx context.Context, viewer Viewer, id uint, slug string) (*ProductDetails, string, error) {
	var product Product
	err := withDetails(s.VisibleProducts(ctx, viewer)).
		Where("products.id = ?", id).
		First(&product).Error
	if err != nil {
		return nil, "", apperrors.NotFoundOr(err, "product not found")
	}

	if product.Slug != slug {
		return nil, product.URL(), nil
	}

	today := s.today()
	details := &ProductDetails{
		Product:           &product,
		IsVisible:         product.IsAvailable(today),
		Attributes:        attribute.DisplayMap(product.AttributeSchema(), product.Attributes),
		Images:            product.Images,
		ShowVariantPicker: true,
		Availability:      ProductAvailability(&product, today),
	}
	details.AvailabilityText = details.Availability.Display()

	for i := range product.Variants {
		v := &product.Variants[i]
		if len(v.Attributes) == 0 {
			details.ShowVariantPicker = false
		}
		details.Variants = append(details.Variants, VariantDetails{
			Variant:       v,
			Attributes:    attribute.DisplayMap(product.VariantSchema(), v.Attributes),
			Availability:  VariantAvailability(v),
			UnitPrice:     v.UnitPrice(&product),
			StockQuantity: v.StockQuantity(),
		})
	}

	details.JSONLD = s.productJSONLD(&product, details)
	return details, "", nil
}

// productJSONLD builds schema.org Product data for the details page
func (s *Service) productJSONLD(p *Product, details *ProductDetails) map[string]interface{} {
	image := ""
	if first := p.FirstImage(); first != nil {
		image = first.URL
	}
	offers := map[string]interface{}{
		"@type":         "Offer",
		"itemCondition": "http://schema.org/NewCondition",
		"priceCurrency": s.cfg.Currency,
		"price":         minPrice(p).StringFixed(2),
	}

	inStock := false
	for _, v := range details.Variants {
		if v.Availability == VariantAvailable {
			inStock = true
			break
		}
	}
	if inStock && details.IsVisible {
		offers["availability"] = "http://schema.org/InStock"
	} else {
		offers["availability"] = "http://schema.org/OutOfStock"
	}

	data := map[string]interface{}{
		"@context":    "http://schema.org/",
		"@type":       "Product",
		"name":        p.Name,
		"image":       image,
		"description": p.Description,
		"offers":      offers,
	}

	brand := ""
	for _, attr := range details.Attributes {
		switch attr.Attribute.Slug {
		case "brand":
			brand = attr.Label()
		case "publisher":
			if brand == "" {
				brand = attr.Label()
			}
		}
	}
	if brand != "" {
		data["brand"] = map[string]interface{}{"@type": "Thing", "name": brand}
	}
	return data
}

// minPrice is the lowest unit price across variants, or the product price
func minPrice(p *Product) decimal.Decimal {
	if len(p.Variants) == 0 {
		return p.Price
	}
	lowest := p.Variants[0].UnitPrice(p)
	for i := 1; i < len(p.Variants); i++ {
		if price := p.Variants[i].UnitPrice(p); price.LessThan(lowest) {
			lowest = price
		}
	}
	return lowest
}

// ListProducts lists the whole visible catalog through the filter
func (s *Service) ListProducts(ctx context.Context, viewer Viewer, query url.Values) (*Listing, error) {
	return s.listing(ctx, viewer, nil, query)
}

// CategoryIndex lists the visible products of a category subtree. When path
// is not the category's canonical path the canonical URL is returned instead.
func (s *Service) CategoryIndex(ctx context.Context, viewer Viewer, id uint, path string, query url.Values) (*CategoryListing, string, error) {
	category, err := s.categories.GetCategory(ctx, id)
	if err != nil {
		return nil, "", err
	}
	ancestors, err := s.categories.Ancestors(ctx, category)
	if err != nil {
		return nil, "", err
	}

	fullPath := category.FullPath(ancestors)
	if strings.Trim(path, "/") != fullPath {
		return nil, category.URL(ancestors), nil
	}

	ids, err := s.categories.DescendantIDs(ctx, category.ID, true)
	if err != nil {
		return nil, "", err
	}

	listing, err := s.listing(ctx, viewer, func(db *gorm.DB) *gorm.DB {
		return db.Where("products.category_id IN ?", ids)
	}, query)
	if err != nil {
		return nil, "", err
	}

	return &CategoryListing{
		Category:  category,
		Path:      fullPath,
		Ancestors: ancestors,
		Listing:   *listing,
	}, "", nil
}

// CollectionIndex lists the visible products of a collection with the same
// canonical slug handling as product pages.
func (s *Service) CollectionIndex(ctx context.Context, viewer Viewer, id uint, slug string, query url.Values) (*CollectionListing, string, error) {
	var collection Collection
	if err := s.db.WithContext(ctx).First(&collection, id).Error; err != nil {
		return nil, "", apperrors.NotFoundOr(err, "collection not found")
	}
	if collection.Slug != slug {
		return nil, collection.URL(), nil
	}

	listing, err := s.listing(ctx, viewer, func(db *gorm.DB) *gorm.DB {
		return db.Where("products.id IN (?)",
			s.db.Table("collection_products").Select("product_id").Where("collection_id = ?", collection.ID))
	}, query)
	if err != nil {
		return nil, "", err
	}
	return &CollectionListing{Collection: &collection, Listing: *listing}, "", nil
}

// listing filters, counts and paginates the visible products in scope
func (s *Service) listing(ctx context.Context, viewer Viewer, scope func(*gorm.DB) *gorm.DB, query url.Values) (*Listing, error) {
	base := func() *gorm.DB {
		db := s.VisibleProducts(ctx, viewer)
		if scope != nil {
			db = scope(db)
		}
		return db
	}

	productAttrs, variantAttrs, err := s.scopeAttributes(ctx, base())
	if err != nil {
		return nil, err
	}

	filter, err := ParseFilter(query, productAttrs, variantAttrs)
	if err != nil {
		return nil, err
	}

	page, err := parsePage(query.Get("page"))
	if err != nil {
		return nil, err
	}
	limit := s.cfg.PageSize

	filtered := filter.Apply(base())
	if search := strings.TrimSpace(query.Get("q")); search != "" {
		filtered = filtered.Where("LOWER(products.name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}

	var total int64
	if err := filtered.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	if page > 1 && page > totalPages {
		return nil, apperrors.Newf(apperrors.CodeNotFound, "invalid page (%d): that page contains no results", page)
	}

	var products []Product
	if err := withDetails(filtered).Offset((page - 1) * limit).Limit(limit).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve products: %w", err)
	}

	return &Listing{
		Products:    s.summarize(products),
		Filter:      filter,
		SortOptions: filter.SortOptions(),
		Pagination: Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
			HasPrev:    page > 1,
		},
	}, nil
}

// scopeAttributes collects the product and variant attributes of the
// product types present in the scoped query
func (s *Service) scopeAttributes(ctx context.Context, scoped *gorm.DB) ([]attribute.Attribute, []attribute.Attribute, error) {
	var types []ProductType
	err := s.db.WithContext(ctx).
		Preload("ProductAttributes.Values", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("VariantAttributes.Values", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("id IN (?)", scoped.Distinct("products.product_type_id").Where("products.product_type_id IS NOT NULL")).
		Find(&types).Error
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load listing attributes: %w", err)
	}

	var productAttrs, variantAttrs []attribute.Attribute
	seenProduct := map[uint]bool{}
	seenVariant := map[uint]bool{}
	for _, t := range types {
		for _, a := range t.ProductAttributes {
			if !seenProduct[a.ID] {
				seenProduct[a.ID] = true
				productAttrs = append(productAttrs, a)
			}
		}
		for _, a := range t.VariantAttributes {
			if !seenVariant[a.ID] {
				seenVariant[a.ID] = true
				variantAttrs = append(variantAttrs, a)
			}
		}
	}
	return productAttrs, variantAttrs, nil
}

func (s *Service) summarize(products []Product) []ProductSummary {
	today := s.today()
	out := make([]ProductSummary, 0, len(products))
	for _, p := range products {
		status := ProductAvailability(&p, today)
		inStock := false
		for i := range p.Variants {
			if p.Variants[i].IsInStock() {
				inStock = true
				break
			}
		}
		out = append(out, ProductSummary{Product: p, URL: p.URL(), Availability: status, InStock: inStock})
	}
	return out
}

func parsePage(raw string) (int, error) {
	if raw == "" {
		return 1, nil
	}
	page, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.New(apperrors.CodeNotFound, "page can not be converted to an int")
	}
	if page < 1 {
		return 0, apperrors.Newf(apperrors.CodeNotFound, "invalid page (%d): that page number is less than 1", page)
	}
	return page, nil
}

func slugOr(explicit, fallback string) string {
	if s := slug.Make(strings.TrimSpace(explicit)); s != "" {
		return s
	}
	return slug.Make(strings.TrimSpace(fallback))
}
