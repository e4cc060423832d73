package product

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/attribute"
	"github.com/your-org/storefront-backend/internal/domain/inventory"
	"github.com/your-org/storefront-backend/internal/pkg/logger"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:product_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&attribute.Attribute{}, &attribute.AttributeValue{},
		&Category{}, &ProductType{}, &Product{}, &ProductVariant{}, &ProductImage{}, &Collection{},
		&inventory.StockLocation{}, &inventory.Stock{}, &inventory.StockMovement{},
	))
	return db
}

func newTestServices(t *testing.T) (*Service, *AdminService, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	cfg := config.CatalogConfig{PageSize: 2, FeaturedLimit: 8, Currency: "USD"}
	svc := NewService(db, cfg, logger.Discard())
	svc.now = func() time.Time { return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC) }
	return svc, NewAdminService(db, logger.Discard()), db
}

// catalog is a small seeded catalog: a shirt type with a product-level
// material attribute and a variant-level color attribute
type catalog struct {
	material     attribute.Attribute
	cotton, silk attribute.AttributeValue
	color        attribute.Attribute
	red, blue    attribute.AttributeValue
	shirts       ProductType
	clothes      Category
	tops         Category
	location     inventory.StockLocation
}

func seedCatalog(t *testing.T, db *gorm.DB) *catalog {
	t.Helper()
	c := &catalog{}

	c.material = attribute.Attribute{Slug: "material", Name: "Material"}
	require.NoError(t, db.Create(&c.material).Error)
	c.cotton = attribute.AttributeValue{AttributeID: c.material.ID, Name: "Cotton", Slug: "cotton"}
	c.silk = attribute.AttributeValue{AttributeID: c.material.ID, Name: "Silk", Slug: "silk"}
	require.NoError(t, db.Create(&c.cotton).Error)
	require.NoError(t, db.Create(&c.silk).Error)

	c.color = attribute.Attribute{Slug: "color", Name: "Color"}
	require.NoError(t, db.Create(&c.color).Error)
	c.red = attribute.AttributeValue{AttributeID: c.color.ID, Name: "Red", Slug: "red", Color: "#ff0000"}
	c.blue = attribute.AttributeValue{AttributeID: c.color.ID, Name: "Blue", Slug: "blue", Color: "#0000ff"}
	require.NoError(t, db.Create(&c.red).Error)
	require.NoError(t, db.Create(&c.blue).Error)

	c.shirts = ProductType{Name: "Shirt", HasVariants: true}
	require.NoError(t, db.Omit("ProductAttributes", "VariantAttributes").Create(&c.shirts).Error)
	require.NoError(t, db.Model(&c.shirts).Association("ProductAttributes").Append(&c.material))
	require.NoError(t, db.Model(&c.shirts).Association("VariantAttributes").Append(&c.color))

	c.clothes = Category{Name: "Clothes", Slug: "clothes", IsActive: true}
	require.NoError(t, db.Create(&c.clothes).Error)
	c.tops = Category{Name: "Tops", Slug: "tops", ParentID: &c.clothes.ID, IsActive: true}
	require.NoError(t, db.Create(&c.tops).Error)

	c.location = inventory.StockLocation{Name: "Warehouse"}
	require.NoError(t, db.Create(&c.location).Error)
	return c
}

// addShirt creates a published shirt in tops with one variant per color
// and the given stock per variant
func (c *catalog) addShirt(t *testing.T, db *gorm.DB, name, price string, material attribute.AttributeValue, stock map[uint]int) *Product {
	t.Helper()
	p := &Product{
		ProductTypeID: &c.shirts.ID,
		Name:          name,
		Slug:          slugOr("", name),
		CategoryID:    c.tops.ID,
		Price:         decimal.RequireFromString(price),
		IsPublished:   true,
		Attributes:    attribute.Bag{c.material.Key(): material.Key()},
	}
	require.NoError(t, db.Omit("Variants", "Images", "Collections", "Category", "ProductType").Create(p).Error)

	for _, value := range []attribute.AttributeValue{c.red, c.blue} {
		v := &ProductVariant{
			ProductID:  p.ID,
			SKU:        p.Slug + "-" + value.Slug,
			Attributes: attribute.Bag{c.color.Key(): value.Key()},
		}
		require.NoError(t, db.Omit("Stock", "Images", "Product").Create(v).Error)
		if qty, ok := stock[value.ID]; ok {
			require.NoError(t, db.Create(&inventory.Stock{VariantID: v.ID, LocationID: c.location.ID, Quantity: qty}).Error)
		}
	}
	return p
}
