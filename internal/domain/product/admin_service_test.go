package product

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/domain/attribute"
	apperrors "github.com/your-org/storefront-backend/internal/pkg/errors"
)

func TestProductTypeLifecycle(t *testing.T) {
	_, admin, db := newTestServices(t)
	c := seedCatalog(t, db)
	ctx := context.Background()

	noVariants := false
	pt, err := admin.CreateProductType(ctx, &ProductTypeRequest{
		Name:                "Book",
		HasVariants:         &noVariants,
		ProductAttributeIDs: []uint{c.material.ID},
	})
	require.NoError(t, err)
	assert.False(t, pt.HasVariants)
	require.Len(t, pt.ProductAttributes, 1)
	assert.Len(t, pt.ProductAttributes[0].Values, 2)

	_, err = admin.CreateProductType(ctx, &ProductTypeRequest{Name: "Book"})
	assert.True(t, apperrors.Is(err, apperrors.CodeConflict))
	_, err = admin.CreateProductType(ctx, &ProductTypeRequest{Name: "Other", VariantAttributeIDs: []uint{999}})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

	pt, err = admin.UpdateProductType(ctx, pt.ID, &ProductTypeRequest{
		Name:                "Book",
		VariantAttributeIDs: []uint{c.color.ID},
	})
	require.NoError(t, err)
	assert.Empty(t, pt.ProductAttributes)
	require.Len(t, pt.VariantAttributes, 1)
	assert.False(t, pt.HasVariants)

	c.addShirt(t, db, "Tee", "5", c.cotton, nil)
	assert.True(t, apperrors.Is(admin.DeleteProductType(ctx, c.shirts.ID), apperrors.CodeConflict))

	require.NoError(t, admin.DeleteProductType(ctx, pt.ID))
	_, err = admin.GetProductType(ctx, pt.ID)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
}

func TestCreateProductDefaultVariant(t *testing.T) {
	_, admin, db := newTestServices(t)
	c := seedCatalog(t, db)
	ctx := context.Background()

	noVariants := false
	book, err := admin.CreateProductType(ctx, &ProductTypeRequest{Name: "Book", HasVariants: &noVariants})
	require.NoError(t, err)

	p, err := admin.CreateProduct(ctx, &ProductCreateRequest{
		Name:          "Go in Practice",
		ProductTypeID: book.ID,
		CategoryID:    c.clothes.ID,
		Price:         decimal.RequireFromString("39.90"),
	})
	require.NoError(t, err)
	assert.Equal(t, "go-in-practice", p.Slug)
	require.Len(t, p.Variants, 1)
	assert.Equal(t, "Go in Practice", p.Variants[0].Name)
	assert.Contains(t, p.Variants[0].SKU, "GO-IN-PRACTICE-")
	assert.LessOrEqual(t, len(p.Variants[0].SKU), 32)

	shirt, err := admin.CreateProduct(ctx, &ProductCreateRequest{
		Name:          "Oxford",
		ProductTypeID: c.shirts.ID,
		CategoryID:    c.tops.ID,
		Price:         decimal.RequireFromString("50"),
	})
	require.NoError(t, err)
	assert.Empty(t, shirt.Variants)

	_, err = admin.CreateProduct(ctx, &ProductCreateRequest{Name: "X", ProductTypeID: 999, CategoryID: c.tops.ID})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
	_, err = admin.CreateProduct(ctx, &ProductCreateRequest{
		Name: "X", ProductTypeID: book.ID, CategoryID: c.tops.ID, Price: decimal.NewFromInt(-1),
	})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
}

func TestUpdateProductAttributes(t *testing.T) {
	_, admin, db := newTestServices(t)
	c := seedCatalog(t, db)
	ctx := context.Background()

	p := c.addShirt(t, db, "Oxford", "50", c.cotton, nil)
	// a stale key from an attribute the type no longer declares
	require.NoError(t, db.Model(p).Update("attributes", attribute.Bag{"999": "x", c.material.Key(): c.cotton.Key()}).Error)

	form, err := admin.ProductForm(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, form.Fields, 1)
	assert.Equal(t, "attribute-material", form.Fields[0].Key)
	assert.Equal(t, c.cotton.Key(), form.Fields[0].Initial)

	_, err = admin.UpdateProduct(ctx, p.ID, &ProductUpdateRequest{
		Attributes: map[string]string{"attribute-material": "12345"},
	})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

	name := "Oxford Shirt"
	day := "2024-07-01"
	updated, err := admin.UpdateProduct(ctx, p.ID, &ProductUpdateRequest{
		Name:        &name,
		AvailableOn: &day,
		Attributes:  map[string]string{"attribute-material": c.silk.Key()},
	})
	require.NoError(t, err)
	assert.Equal(t, "Oxford Shirt", updated.Name)
	assert.Equal(t, attribute.Bag{c.material.Key(): c.silk.Key()}, updated.Attributes)
	require.NotNil(t, updated.AvailableOn)

	updated, err = admin.UpdateProduct(ctx, p.ID, &ProductUpdateRequest{Attributes: map[string]string{}})
	require.NoError(t, err)
	assert.Equal(t, attribute.Bag{c.material.Key(): ""}, updated.Attributes)
}

func TestVariants(t *testing.T) {
	_, admin, db := newTestServices(t)
	c := seedCatalog(t, db)
	ctx := context.Background()

	p := c.addShirt(t, db, "Oxford", "50", c.cotton, nil)
	price := decimal.RequireFromString("55.50")

	v, err := admin.CreateVariant(ctx, p.ID, &VariantRequest{
		SKU:           "OX-XL",
		PriceOverride: &price,
		Attributes:    map[string]string{"attribute-color": c.blue.Key()},
	})
	require.NoError(t, err)
	assert.Equal(t, attribute.Bag{c.color.Key(): c.blue.Key()}, v.Attributes)
	assert.True(t, v.PriceOverride.Decimal.Equal(price))

	_, err = admin.CreateVariant(ctx, p.ID, &VariantRequest{SKU: "OX-XL"})
	assert.True(t, apperrors.Is(err, apperrors.CodeConflict))

	v, err = admin.UpdateVariant(ctx, v.ID, &VariantRequest{SKU: "OX-XXL", Name: "XXL"})
	require.NoError(t, err)
	assert.Equal(t, "OX-XXL", v.SKU)
	assert.False(t, v.PriceOverride.Valid)
	assert.Equal(t, attribute.Bag{c.color.Key(): c.blue.Key()}, v.Attributes)

	form, err := admin.VariantForm(ctx, v.ID)
	require.NoError(t, err)
	require.Len(t, form.Fields, 1)
	assert.Equal(t, attribute.KindChoice, form.Fields[0].Kind)
	assert.Len(t, form.Fields[0].Options, 2)

	require.NoError(t, admin.DeleteVariant(ctx, v.ID))
	assert.True(t, apperrors.Is(admin.DeleteVariant(ctx, v.ID), apperrors.CodeNotFound))

	require.NoError(t, admin.DeleteProduct(ctx, p.ID))
	var remaining int64
	require.NoError(t, db.Model(&ProductVariant{}).Where("product_id = ?", p.ID).Count(&remaining).Error)
	assert.Zero(t, remaining)
}

func TestImages(t *testing.T) {
	_, admin, db := newTestServices(t)
	c := seedCatalog(t, db)
	ctx := context.Background()

	p := c.addShirt(t, db, "Oxford", "50", c.cotton, nil)
	var images []*ProductImage
	for _, u := range []string{"https://cdn.example.com/a.jpg", "https://cdn.example.com/b.jpg", "https://cdn.example.com/c.jpg"} {
		img, err := admin.AddImage(ctx, p.ID, &ImageRequest{URL: u})
		require.NoError(t, err)
		images = append(images, img)
	}
	assert.Equal(t, 0, images[0].Order)
	assert.Equal(t, 2, images[2].Order)

	require.NoError(t, admin.DeleteImage(ctx, images[0].ID))
	var orders []int
	require.NoError(t, db.Model(&ProductImage{}).Where("product_id = ?", p.ID).Order("sort_order").Pluck("sort_order", &orders).Error)
	assert.Equal(t, []int{0, 1}, orders)

	reordered, err := admin.ReorderImages(ctx, p.ID, []uint{images[2].ID, images[1].ID})
	require.NoError(t, err)
	assert.Equal(t, images[2].ID, reordered[0].ID)

	_, err = admin.ReorderImages(ctx, p.ID, []uint{images[2].ID})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

	var variant ProductVariant
	require.NoError(t, db.Where("product_id = ?", p.ID).First(&variant).Error)
	require.NoError(t, admin.AttachImage(ctx, variant.ID, images[1].ID))

	other := c.addShirt(t, db, "Other", "10", c.cotton, nil)
	foreign, err := admin.AddImage(ctx, other.ID, &ImageRequest{URL: "https://cdn.example.com/d.jpg"})
	require.NoError(t, err)
	assert.Equal(t, 0, foreign.Order)
	assert.True(t, apperrors.Is(admin.AttachImage(ctx, variant.ID, foreign.ID), apperrors.CodeValidation))
}
