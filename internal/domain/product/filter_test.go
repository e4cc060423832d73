package product

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/domain/attribute"
	apperrors "github.com/your-org/storefront-backend/internal/pkg/errors"
)

func filterSchema() ([]attribute.Attribute, []attribute.Attribute) {
	size := attribute.Attribute{ID: 1, Slug: "size", Name: "Size", Values: []attribute.AttributeValue{
		{ID: 10, AttributeID: 1, Name: "S"}, {ID: 11, AttributeID: 1, Name: "M"},
	}}
	brand := attribute.Attribute{ID: 2, Slug: "brand", Name: "Brand", Values: []attribute.AttributeValue{
		{ID: 20, AttributeID: 2, Name: "Acme"},
	}}
	return []attribute.Attribute{size, brand}, []attribute.Attribute{size}
}

func TestParseFilterDefaults(t *testing.T) {
	productAttrs, variantAttrs := filterSchema()
	f, err := ParseFilter(url.Values{}, productAttrs, variantAttrs)
	require.NoError(t, err)

	assert.Equal(t, "name", f.SortBy)
	assert.False(t, f.IsActive())
	require.Len(t, f.Facets, 2)
	assert.Equal(t, "brand", f.Facets[0].Key)
	assert.Equal(t, "size", f.Facets[1].Key)
	assert.Equal(t, ScopeBoth, f.Facets[1].Scope)
	assert.Equal(t, ScopeProduct, f.Facets[0].Scope)
	assert.Len(t, f.SortOptions(), 4)
}

func TestParseFilterRejectsInvalidInput(t *testing.T) {
	productAttrs, variantAttrs := filterSchema()

	for name, query := range map[string]url.Values{
		"sort":   {"sort_by": {"created_at"}},
		"price":  {"price_min": {"cheap"}},
		"choice": {"size": {"99"}},
		"id":     {"brand": {"acme"}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseFilter(query, productAttrs, variantAttrs)
			assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
		})
	}
}

func TestParseFilterSelections(t *testing.T) {
	productAttrs, variantAttrs := filterSchema()
	f, err := ParseFilter(url.Values{
		"sort_by":   {"-price"},
		"size":      {"10,11"},
		"price_max": {"19.99"},
	}, productAttrs, variantAttrs)
	require.NoError(t, err)

	assert.True(t, f.IsActive())
	assert.Equal(t, "price", f.SortLabel())
	assert.True(t, f.PriceMax.Valid)
	assert.Equal(t, "19.99", f.PriceMax.Decimal.String())
	assert.True(t, f.Facets[1].Options[0].Selected)
	assert.True(t, f.Facets[1].Options[1].Selected)
}

func TestFilterApply(t *testing.T) {
	_, _, db := newTestServices(t)
	c := seedCatalog(t, db)

	cheapCotton := c.addShirt(t, db, "Basic Tee", "10.00", c.cotton, map[uint]int{c.red.ID: 3})
	silkRed := c.addShirt(t, db, "Silk Blouse", "45.00", c.silk, map[uint]int{c.red.ID: 1, c.blue.ID: 1})
	_ = c.addShirt(t, db, "Cotton Polo", "25.00", c.cotton, nil)

	productAttrs := []attribute.Attribute{c.material}
	productAttrs[0].Values = []attribute.AttributeValue{c.cotton, c.silk}
	variantAttrs := []attribute.Attribute{c.color}
	variantAttrs[0].Values = []attribute.AttributeValue{c.red, c.blue}

	run := func(query url.Values) []string {
		f, err := ParseFilter(query, productAttrs, variantAttrs)
		require.NoError(t, err)
		var names []string
		require.NoError(t, f.Apply(db.Model(&Product{})).Pluck("products.name", &names).Error)
		return names
	}

	assert.Equal(t, []string{"Basic Tee", "Cotton Polo", "Silk Blouse"}, run(url.Values{}))
	assert.Equal(t, []string{"Silk Blouse", "Cotton Polo", "Basic Tee"}, run(url.Values{"sort_by": {"-price"}}))
	assert.Equal(t, []string{"Basic Tee", "Cotton Polo"}, run(url.Values{"material": {c.cotton.Key()}}))
	assert.Equal(t, []string{"Silk Blouse"}, run(url.Values{"material": {c.silk.Key()}, "color": {c.blue.Key()}}))
	assert.Equal(t, []string{"Cotton Polo", "Silk Blouse"}, run(url.Values{"price_min": {"20"}}))
	assert.Equal(t, []string{cheapCotton.Name}, run(url.Values{"price_max": {"10"}}))
	assert.Equal(t, []string{silkRed.Name}, run(url.Values{"price_min": {"30"}, "color": {c.red.Key() + "," + c.blue.Key()}}))
}
