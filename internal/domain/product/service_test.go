package product

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/your-org/storefront-backend/internal/pkg/errors"
)

func TestVisibility(t *testing.T) {
	svc, _, db := newTestServices(t)
	c := seedCatalog(t, db)
	ctx := context.Background()

	visible := c.addShirt(t, db, "Visible", "10", c.cotton, nil)
	hidden := c.addShirt(t, db, "Hidden", "10", c.cotton, nil)
	require.NoError(t, db.Model(hidden).Update("is_published", false).Error)
	future := c.addShirt(t, db, "Future", "10", c.cotton, nil)
	require.NoError(t, db.Model(future).Update("available_on", time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)).Error)

	var ids []uint
	require.NoError(t, svc.VisibleProducts(ctx, Anonymous).Order("id").Pluck("id", &ids).Error)
	assert.Equal(t, []uint{visible.ID}, ids)

	ids = nil
	require.NoError(t, svc.VisibleProducts(ctx, Viewer{UserID: 1, IsStaff: true}).Order("id").Pluck("id", &ids).Error)
	assert.Len(t, ids, 3)

	_, _, err := svc.GetProductDetails(ctx, Anonymous, hidden.ID, hidden.Slug)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))

	details, _, err := svc.GetProductDetails(ctx, Viewer{IsStaff: true}, future.ID, future.Slug)
	require.NoError(t, err)
	assert.False(t, details.IsVisible)
}

func TestGetProductDetails(t *testing.T) {
	svc, _, db := newTestServices(t)
	c := seedCatalog(t, db)
	ctx := context.Background()

	p := c.addShirt(t, db, "Linen Shirt", "30.00", c.silk, map[uint]int{c.red.ID: 5, c.blue.ID: 0})

	details, redirect, err := svc.GetProductDetails(ctx, Anonymous, p.ID, "old-name")
	require.NoError(t, err)
	assert.Nil(t, details)
	assert.Equal(t, p.URL(), redirect)

	details, redirect, err = svc.GetProductDetails(ctx, Anonymous, p.ID, p.Slug)
	require.NoError(t, err)
	assert.Empty(t, redirect)
	assert.True(t, details.IsVisible)
	assert.True(t, details.ShowVariantPicker)
	assert.Equal(t, StatusLowStock, details.Availability)

	require.Len(t, details.Attributes, 1)
	assert.Equal(t, "Silk", details.Attributes[0].Label())

	require.Len(t, details.Variants, 2)
	assert.Equal(t, VariantAvailable, details.Variants[0].Availability)
	assert.Equal(t, VariantOutOfStock, details.Variants[1].Availability)
	assert.Equal(t, "Red", details.Variants[0].Attributes[0].Label())
	assert.Equal(t, "30", details.Variants[0].UnitPrice.String())

	offers := details.JSONLD["offers"].(map[string]interface{})
	assert.Equal(t, "http://schema.org/InStock", offers["availability"])
	assert.Equal(t, "30.00", offers["price"])
	assert.Equal(t, "USD", offers["priceCurrency"])
	assert.Equal(t, "Product", details.JSONLD["@type"])
	assert.NotContains(t, details.JSONLD, "brand")
}

func TestCategoryIndex(t *testing.T) {
	svc, _, db := newTestServices(t)
	c := seedCatalog(t, db)
	ctx := context.Background()

	for _, name := range []string{"Alpha", "Bravo", "Charlie"} {
		c.addShirt(t, db, name, "10", c.cotton, nil)
	}

	listing, redirect, err := svc.CategoryIndex(ctx, Anonymous, c.tops.ID, "tops", url.Values{})
	require.NoError(t, err)
	assert.Nil(t, listing)
	assert.Equal(t, "/categories/2/clothes/tops", redirect)

	listing, redirect, err = svc.CategoryIndex(ctx, Anonymous, c.clothes.ID, "clothes", url.Values{})
	require.NoError(t, err)
	assert.Empty(t, redirect)
	assert.Equal(t, int64(3), listing.Pagination.Total)
	assert.Equal(t, 2, listing.Pagination.TotalPages)
	require.Len(t, listing.Products, 2)
	assert.Equal(t, "Alpha", listing.Products[0].Name)
	require.Len(t, listing.Filter.Facets, 2)
	assert.Equal(t, "color", listing.Filter.Facets[0].Key)
	assert.Equal(t, "material", listing.Filter.Facets[1].Key)

	listing, _, err = svc.CategoryIndex(ctx, Anonymous, c.tops.ID, "clothes/tops/", url.Values{"page": {"2"}})
	require.NoError(t, err)
	require.Len(t, listing.Products, 1)
	assert.Equal(t, "Charlie", listing.Products[0].Name)
	assert.Equal(t, StatusNotCarried, listing.Products[0].Availability)

	for _, page := range []string{"3", "0", "abc"} {
		_, _, err = svc.CategoryIndex(ctx, Anonymous, c.tops.ID, "clothes/tops", url.Values{"page": {page}})
		assert.True(t, apperrors.Is(err, apperrors.CodeNotFound), page)
	}

	_, _, err = svc.CategoryIndex(ctx, Anonymous, 999, "x", url.Values{})
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
}

func TestHomepageAndCollections(t *testing.T) {
	svc, admin, db := newTestServices(t)
	c := seedCatalog(t, db)
	ctx := context.Background()

	featured := c.addShirt(t, db, "Featured", "10", c.cotton, nil)
	require.NoError(t, db.Model(featured).Update("is_featured", true).Error)
	c.addShirt(t, db, "Plain", "10", c.cotton, nil)

	home, err := svc.ProductsForHomepage(ctx)
	require.NoError(t, err)
	require.Len(t, home, 1)
	assert.Equal(t, featured.ID, home[0].ID)

	summer, err := admin.CreateCollection(ctx, &CollectionRequest{Name: "Summer Picks"})
	require.NoError(t, err)
	assert.Equal(t, "summer-picks", summer.Slug)
	require.NoError(t, admin.AddToCollection(ctx, summer.ID, featured.ID))
	require.NoError(t, admin.AddToCollection(ctx, summer.ID, featured.ID))

	_, redirect, err := svc.CollectionIndex(ctx, Anonymous, summer.ID, "summer", url.Values{})
	require.NoError(t, err)
	assert.Equal(t, summer.URL(), redirect)

	listing, _, err := svc.CollectionIndex(ctx, Anonymous, summer.ID, "summer-picks", url.Values{})
	require.NoError(t, err)
	require.Len(t, listing.Products, 1)
	assert.Equal(t, "Featured", listing.Products[0].Name)

	require.NoError(t, admin.RemoveFromCollection(ctx, summer.ID, featured.ID))
	listing, _, err = svc.CollectionIndex(ctx, Anonymous, summer.ID, "summer-picks", url.Values{})
	require.NoError(t, err)
	assert.Empty(t, listing.Products)
}
