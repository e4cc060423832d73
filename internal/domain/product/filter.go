// internal/domain/product/filter.go
package product

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/your-org/storefront-backend/internal/domain/attribute"
	apperrors "github.com/your-org/storefront-backend/internal/pkg/errors"
	"gorm.io/gorm"
)

// Recognised sort fields and their labels
var sortFields = map[string]string{
	"name":  "name",
	"price": "price",
}

var sortColumns = map[string]string{
	"name":  "products.name",
	"price": "products.price",
}

const defaultSort = "name"

// FacetScope says which bag a facet inspects
type FacetScope string

const (
	ScopeProduct FacetScope = "product"
	ScopeVariant FacetScope = "variant"
	ScopeBoth    FacetScope = "both"
)

// FacetOption is one selectable attribute value of a facet
type FacetOption struct {
	ID       uint   `json:"id"`
	Label    string `json:"label"`
	Color    string `json:"color,omitempty"`
	Selected bool   `json:"selected"`
}

// Facet is a multi-select filter generated from one attribute
type Facet struct {
	Key         string        `json:"key"`
	Label       string        `json:"label"`
	AttributeID uint          `json:"attribute_id"`
	Scope       FacetScope    `json:"scope"`
	Options     []FacetOption `json:"options"`
}

// SortOption describes a sort choice for rendering
type SortOption struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	Selected bool   `json:"selected"`
}

// Filter is a parsed catalog filter: sort, price range and attribute facets
type Filter struct {
	SortBy   string              `json:"sort_by"`
	PriceMin decimal.NullDecimal `json:"price_min"`
	PriceMax decimal.NullDecimal `json:"price_max"`
	Facets   []Facet             `json:"facets"`
	selected map[uint][]string
}

// ParseFilter builds a filter from query parameters. productAttrs and
// variantAttrs are the attributes applicable in the listing scope. Facets
// are keyed by attribute slug and sorted by key.
func ParseFilter(query url.Values, productAttrs, variantAttrs []attribute.Attribute) (*Filter, error) {
	f := &Filter{selected: map[uint][]string{}}
	errs := attribute.FieldErrors{}

	sortBy := strings.TrimSpace(query.Get("sort_by"))
	if sortBy == "" {
		sortBy = defaultSort
	}
	if _, ok := sortFields[strings.TrimPrefix(sortBy, "-")]; !ok {
		errs["sort_by"] = fmt.Sprintf("%s is not a valid sorting option", sortBy)
	}
	f.SortBy = sortBy

	for _, bound := range []struct {
		key    string
		target *decimal.NullDecimal
	}{{"price_min", &f.PriceMin}, {"price_max", &f.PriceMax}} {
		raw := strings.TrimSpace(query.Get(bound.key))
		if raw == "" {
			continue
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			errs[bound.key] = "enter a number"
			continue
		}
		*bound.target = decimal.NewNullDecimal(d)
	}

	facets := map[uint]*Facet{}
	add := func(attrs []attribute.Attribute, scope FacetScope) {
		for i := range attrs {
			attr := attrs[i]
			if existing, ok := facets[attr.ID]; ok {
				if existing.Scope != scope {
					existing.Scope = ScopeBoth
				}
				continue
			}
			facet := &Facet{Key: attr.Slug, Label: attr.Name, AttributeID: attr.ID, Scope: scope}
			for _, v := range attr.Values {
				facet.Options = append(facet.Options, FacetOption{ID: v.ID, Label: v.Name, Color: v.Color})
			}
			facets[attr.ID] = facet
		}
	}
	add(productAttrs, ScopeProduct)
	add(variantAttrs, ScopeVariant)

	for _, facet := range facets {
		chosen := splitValues(query[facet.Key])
		for _, raw := range chosen {
			idx := facet.optionIndex(raw)
			if idx < 0 {
				errs[facet.Key] = fmt.Sprintf("%s is not one of the available choices", raw)
				continue
			}
			facet.Options[idx].Selected = true
			f.selected[facet.AttributeID] = append(f.selected[facet.AttributeID], raw)
		}
		f.Facets = append(f.Facets, *facet)
	}
	sort.Slice(f.Facets, func(i, j int) bool { return f.Facets[i].Key < f.Facets[j].Key })

	if len(errs) > 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "invalid catalog filter").WithDetails(errs)
	}
	return f, nil
}

func splitValues(raw []string) []string {
	var out []string
	for _, item := range raw {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (f *Facet) optionIndex(raw string) int {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return -1
	}
	for i, o := range f.Options {
		if o.ID == uint(id) {
			return i
		}
	}
	return -1
}

// SortLabel is the label of the active sort field
func (f *Filter) SortLabel() string {
	return sortFields[strings.TrimPrefix(f.SortBy, "-")]
}

// SortOptions lists the sort choices in both directions
func (f *Filter) SortOptions() []SortOption {
	keys := make([]string, 0, len(sortFields))
	for k := range sortFields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []SortOption
	for _, k := range keys {
		for _, v := range []string{k, "-" + k} {
			label := sortFields[k]
			if strings.HasPrefix(v, "-") {
				label += " (descending)"
			}
			out = append(out, SortOption{Value: v, Label: label, Selected: v == f.SortBy})
		}
	}
	return out
}

// IsActive reports whether any facet or price bound is set
func (f *Filter) IsActive() bool {
	return len(f.selected) > 0 || f.PriceMin.Valid || f.PriceMax.Valid
}

// Apply narrows a products query with the filter and orders it
func (f *Filter) Apply(query *gorm.DB) *gorm.DB {
	dialect := query.Dialector.Name()

	if f.PriceMin.Valid {
		query = query.Where("products.price >= ?", f.PriceMin.Decimal)
	}
	if f.PriceMax.Valid {
		query = query.Where("products.price <= ?", f.PriceMax.Decimal)
	}

	for _, facet := range f.Facets {
		values := f.selected[facet.AttributeID]
		if len(values) == 0 {
			continue
		}
		key := strconv.FormatUint(uint64(facet.AttributeID), 10)
		productCond := bagValueExpr(dialect, "products.attributes", key) + " IN ?"
		variantCond := "EXISTS (SELECT 1 FROM product_variants pv WHERE pv.product_id = products.id AND " +
			bagValueExpr(dialect, "pv.attributes", key) + " IN ?)"

		switch facet.Scope {
		case ScopeProduct:
			query = query.Where(productCond, values)
		case ScopeVariant:
			query = query.Where(variantCond, values)
		default:
			query = query.Where("("+productCond+" OR "+variantCond+")", values, values)
		}
	}

	field := strings.TrimPrefix(f.SortBy, "-")
	direction := "ASC"
	if strings.HasPrefix(f.SortBy, "-") {
		direction = "DESC"
	}
	return query.Order(sortColumns[field] + " " + direction).Order("products.id ASC")
}

// bagValueExpr extracts the text stored under key in a JSON bag column. key
// is always a formatted integer.
func bagValueExpr(dialect, column, key string) string {
	switch dialect {
	case "postgres":
		return fmt.Sprintf("%s ->> '%s'", column, key)
	case "mysql":
		return fmt.Sprintf("JSON_UNQUOTE(JSON_EXTRACT(%s, '$.\"%s\"'))", column, key)
	default:
		return fmt.Sprintf("json_extract(%s, '$.\"%s\"')", column, key)
	}
}
