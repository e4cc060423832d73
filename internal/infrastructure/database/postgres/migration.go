// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/attribute"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/inventory"
	"github.com/your-org/storefront-backend/internal/domain/like"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/domain/user"
	"github.com/your-org/storefront-backend/internal/pkg/auth"
	"gorm.io/gorm"
)

// Migration handles database migrations
type Migration struct {
	db  *gorm.DB
	log logrus.FieldLogger
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB, log logrus.FieldLogger) *Migration {
	return &Migration{db: db, log: log}
}

// Models lists every persisted model in dependency order
func Models() []interface{} {
	return []interface{}{
		&user.User{},

		&attribute.Attribute{},
		&attribute.AttributeValue{},

		&product.Category{},
		&product.ProductType{},
		&product.Product{},
		&product.ProductVariant{},
		&product.ProductImage{},
		&product.Collection{},

		&inventory.StockLocation{},
		&inventory.Stock{},
		&inventory.StockMovement{},

		&cart.Cart{},
		&cart.CartItem{},

		&like.Like{},
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations(ctx context.Context) error {
	m.log.Info("running database auto-migrations")

	for _, model := range Models() {
		m.log.Debugf("migrating model: %T", model)
		if err := m.db.WithContext(ctx).AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	m.log.Info("database auto-migrations completed")
	return nil
}

// CreateIndexes creates indexes AutoMigrate cannot express. Failures are
// logged and skipped.
func (m *Migration) CreateIndexes(ctx context.Context) error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_products_category_published ON products(category_id, is_published)",
		"CREATE INDEX IF NOT EXISTS idx_products_featured ON products(is_featured, is_published)",
		"CREATE INDEX IF NOT EXISTS idx_products_price ON products(price)",
		"CREATE INDEX IF NOT EXISTS idx_categories_parent_active ON categories(parent_id, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_product_images_sort_order ON product_images(product_id, sort_order)",
		"CREATE INDEX IF NOT EXISTS idx_carts_status_updated ON carts(status, updated_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_users_created_at ON users(created_at DESC)",
	}
	if m.db.Dialector.Name() == "postgres" {
		indexes = append(indexes,
			"CREATE INDEX IF NOT EXISTS idx_products_attributes ON products USING GIN (attributes)",
			"CREATE INDEX IF NOT EXISTS idx_product_variants_attributes ON product_variants USING GIN (attributes)",
		)
	}

	created, failed := 0, 0
	for _, stmt := range indexes {
		if err := m.db.WithContext(ctx).Exec(stmt).Error; err != nil {
			m.log.WithError(err).Warn("failed to create index")
			failed++
			continue
		}
		created++
	}

	m.log.WithFields(logrus.Fields{"created": created, "failed": failed}).Info("indexes created")
	return nil
}

// DropAllTables drops every model table, dependents first
func (m *Migration) DropAllTables(ctx context.Context) error {
	models := Models()
	tables := []interface{}{"collection_products", "variant_images", "product_type_product_attributes", "product_type_variant_attributes"}
	for i := len(models) - 1; i >= 0; i-- {
		tables = append(tables, models[i])
	}

	migrator := m.db.WithContext(ctx).Migrator()
	for _, table := range tables {
		if err := migrator.DropTable(table); err != nil {
			return fmt.Errorf("failed to drop %v: %w", table, err)
		}
	}
	m.log.Warn("all tables dropped")
	return nil
}

// SeedOptions controls the demo data seeder
type SeedOptions struct {
	AdminEmail    string
	AdminPassword string
	BcryptCost    int
}

// SeedInitialData inserts a demo catalog and the staff account. It does
// nothing when attributes already exist.
func (m *Migration) SeedInitialData(ctx context.Context, opts SeedOptions) error {
	var existing int64
	if err := m.db.WithContext(ctx).Model(&attribute.Attribute{}).Count(&existing).Error; err != nil {
		return fmt.Errorf("failed to inspect attributes: %w", err)
	}
	if existing > 0 {
		m.log.Info("catalog already seeded")
		return m.seedAdminUser(ctx, opts)
	}

	s := &seeder{
		attributes: attribute.NewService(m.db, m.log),
		categories: product.NewCategoryService(m.db, m.log),
		catalog:    product.NewAdminService(m.db, m.log),
		stock:      inventory.NewService(m.db, m.log),
	}
	if err := s.run(ctx); err != nil {
		return fmt.Errorf("failed to seed catalog: %w", err)
	}
	m.log.WithField("products", len(s.products)).Info("catalog seeded")

	return m.seedAdminUser(ctx, opts)
}

func (m *Migration) seedAdminUser(ctx context.Context, opts SeedOptions) error {
	if opts.AdminEmail == "" || opts.AdminPassword == "" {
		m.log.Info("no staff credentials given, skipping staff account")
		return nil
	}

	email := user.NormalizeEmail(opts.AdminEmail)
	var count int64
	if err := m.db.WithContext(ctx).Model(&user.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to look up staff account: %w", err)
	}
	if count > 0 {
		m.log.WithField("email", email).Info("staff account already exists")
		return nil
	}

	hash, err := auth.NewPasswordManager(opts.BcryptCost).HashPassword(opts.AdminPassword)
	if err != nil {
		return err
	}
	admin := user.User{
		Email:     email,
		Password:  hash,
		FirstName: "Store",
		LastName:  "Admin",
		IsActive:  true,
		IsStaff:   true,
	}
	if err := m.db.WithContext(ctx).Create(&admin).Error; err != nil {
		return fmt.Errorf("failed to create staff account: %w", err)
	}
	m.log.WithField("email", email).Info("staff account created")
	return nil
}

// SeedOptionsFromConfig fills the bcrypt cost from configuration
func SeedOptionsFromConfig(cfg *config.Config, email, password string) SeedOptions {
	return SeedOptions{AdminEmail: email, AdminPassword: password, BcryptCost: cfg.Security.BcryptCost}
}

type seeder struct {
	attributes *attribute.Service
	categories *product.CategoryService
	catalog    *product.AdminService
	stock      *inventory.Service

	products []*product.Product
}

type seedAttribute struct {
	name   string
	values []attribute.ValueRequest
}

func (s *seeder) attribute(ctx context.Context, def seedAttribute) (*attribute.Attribute, error) {
	attr, err := s.attributes.CreateAttribute(ctx, &attribute.AttributeRequest{Name: def.name})
	if err != nil {
		return nil, err
	}
	for i := range def.values {
		value, err := s.attributes.AddValue(ctx, attr.ID, &def.values[i])
		if err != nil {
			return nil, err
		}
		attr.Values = append(attr.Values, *value)
	}
	return attr, nil
}

func (s *seeder) run(ctx context.Context) error {
	color, err := s.attribute(ctx, seedAttribute{name: "Color", values: []attribute.ValueRequest{
		{Name: "Black", Color: "#000000"}, {Name: "White", Color: "#ffffff"}, {Name: "Navy", Color: "#1f2a44"},
	}})
	if err != nil {
		return err
	}
	size, err := s.attribute(ctx, seedAttribute{name: "Size", values: []attribute.ValueRequest{
		{Name: "S"}, {Name: "M"}, {Name: "L"},
	}})
	if err != nil {
		return err
	}
	material, err := s.attribute(ctx, seedAttribute{name: "Material", values: []attribute.ValueRequest{
		{Name: "Cotton"}, {Name: "Linen"},
	}})
	if err != nil {
		return err
	}
	publisher, err := s.attribute(ctx, seedAttribute{name: "Publisher", values: []attribute.ValueRequest{
		{Name: "Northwind Press"},
	}})
	if err != nil {
		return err
	}

	noVariants := false
	shirts, err := s.catalog.CreateProductType(ctx, &product.ProductTypeRequest{
		Name:                "T-Shirt",
		IsShippingRequired:  true,
		ProductAttributeIDs: []uint{material.ID},
		VariantAttributeIDs: []uint{color.ID, size.ID},
	})
	if err != nil {
		return err
	}
	books, err := s.catalog.CreateProductType(ctx, &product.ProductTypeRequest{
		Name:                "Book",
		HasVariants:         &noVariants,
		IsShippingRequired:  true,
		ProductAttributeIDs: []uint{publisher.ID},
	})
	if err != nil {
		return err
	}

	apparel, err := s.categories.CreateCategory(ctx, &product.CategoryCreateRequest{Name: "Apparel", SortOrder: 1})
	if err != nil {
		return err
	}
	tees, err := s.categories.CreateCategory(ctx, &product.CategoryCreateRequest{Name: "T-Shirts", ParentID: &apparel.ID})
	if err != nil {
		return err
	}
	reading, err := s.categories.CreateCategory(ctx, &product.CategoryCreateRequest{Name: "Books", SortOrder: 2})
	if err != nil {
		return err
	}

	warehouse, err := s.stock.CreateLocation(ctx, &inventory.LocationRequest{Name: "Main Warehouse"})
	if err != nil {
		return err
	}

	for i, name := range []string{"Classic Tee", "Linen Summer Tee"} {
		tee, err := s.catalog.CreateProduct(ctx, &product.ProductCreateRequest{
			Name:          name,
			ProductTypeID: shirts.ID,
			CategoryID:    tees.ID,
			Price:         decimal.RequireFromString("19.90").Add(decimal.NewFromInt(int64(i * 10))),
		})
		if err != nil {
			return err
		}
		featured := i == 0
		if _, err := s.catalog.UpdateProduct(ctx, tee.ID, &product.ProductUpdateRequest{
			IsFeatured: &featured,
			Attributes: map[string]string{material.FieldName(): material.Values[i].Key()},
		}); err != nil {
			return err
		}

		for ci, c := range color.Values[:2] {
			for si, sz := range size.Values {
				variant, err := s.catalog.CreateVariant(ctx, tee.ID, &product.VariantRequest{
					SKU:        fmt.Sprintf("TEE%d-%s-%s", i+1, c.Slug, sz.Slug),
					Name:       c.Name + " / " + sz.Name,
					Attributes: map[string]string{color.FieldName(): c.Key(), size.FieldName(): sz.Key()},
				})
				if err != nil {
					return err
				}
				if _, err := s.stock.SetStock(ctx, &inventory.SetStockRequest{
					VariantID:  variant.ID,
					LocationID: warehouse.ID,
					Quantity:   (ci + 1) * (si + 2),
				}); err != nil {
					return err
				}
			}
		}
		s.products = append(s.products, tee)
	}

	book, err := s.catalog.CreateProduct(ctx, &product.ProductCreateRequest{
		Name:          "Practical Commerce",
		ProductTypeID: books.ID,
		CategoryID:    reading.ID,
		Price:         decimal.RequireFromString("34.00"),
	})
	if err != nil {
		return err
	}
	if _, err := s.catalog.UpdateProduct(ctx, book.ID, &product.ProductUpdateRequest{
		Attributes: map[string]string{publisher.FieldName(): publisher.Values[0].Key()},
	}); err != nil {
		return err
	}
	for _, v := range book.Variants {
		if _, err := s.stock.SetStock(ctx, &inventory.SetStockRequest{VariantID: v.ID, LocationID: warehouse.ID, Quantity: 3}); err != nil {
			return err
		}
	}
	s.products = append(s.products, book)

	collection, err := s.catalog.CreateCollection(ctx, &product.CollectionRequest{Name: "Staff Picks"})
	if err != nil {
		return err
	}
	for _, p := range s.products {
		if err := s.catalog.AddToCollection(ctx, collection.ID, p.ID); err != nil {
			return err
		}
	}
	return nil
}
