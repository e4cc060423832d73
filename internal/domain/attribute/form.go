// internal/domain/attribute/form.go
package attribute

import (
	"strconv"
	"strings"

	apperrors "github.com/your-org/storefront-backend/internal/pkg/errors"
)

// Holder is an entity that owns an attribute bag (products and variants)
type Holder interface {
	AttributeBag() Bag
	SetAttributeBag(Bag)
}

// Option is one selectable entry of a choice field
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
	Color string `json:"color,omitempty"`
}

// Field describes one synthesized attribute input
type Field struct {
	Key         string   `json:"key"`
	AttributeID uint     `json:"attribute_id"`
	Label       string   `json:"label"`
	Kind        Kind     `json:"kind"`
	Options     []Option `json:"options,omitempty"`
	Initial     string   `json:"initial"`
	Required    bool     `json:"required"`
}

// Form maps an attribute schema onto input fields for one holder. Each form
// owns its field registry; nothing is shared between instances.
type Form struct {
	holder  Holder
	schema  []Attribute
	fields  []Field
	byKey   map[string]int
	cleaned map[uint]Value
	bound   bool
}

// NewForm synthesizes one field per attribute in attrs. An empty attrs (no
// product type resolved yet) produces a form without fields.
func NewForm(holder Holder, attrs []Attribute) *Form {
	f := &Form{
		holder: holder,
		schema: attrs,
		fields: make([]Field, 0, len(attrs)),
		byKey:  make(map[string]int, len(attrs)),
	}

	var current Bag
	if holder != nil {
		current = holder.AttributeBag()
	}

	for i := range attrs {
		attr := &attrs[i]
		field := Field{
			Key:         attr.FieldName(),
			AttributeID: attr.ID,
			Label:       attr.Name,
			Kind:        KindText,
			Initial:     current[attr.Key()],
		}
		if attr.HasValues() {
			field.Kind = KindChoice
			field.Options = make([]Option, 0, len(attr.Values))
			for _, v := range attr.Values {
				field.Options = append(field.Options, Option{Value: v.Key(), Label: v.Name, Color: v.Color})
			}
		}
		f.byKey[field.Key] = len(f.fields)
		f.fields = append(f.fields, field)
	}

	return f
}

// Fields returns the ordered field descriptors
func (f *Form) Fields() []Field {
	out := make([]Field, len(f.fields))
	copy(out, f.fields)
	return out
}

// Bind validates submitted input keyed by field key. Keys that match no field
// are ignored and missing keys clean to the empty value.
func (f *Form) Bind(input map[string]string) error {
	cleaned := make(map[uint]Value, len(f.fields))
	errs := FieldErrors{}

	for _, field := range f.fields {
		raw := strings.TrimSpace(input[field.Key])
		if raw == "" {
			cleaned[field.AttributeID] = Text("")
			continue
		}
		if field.Kind == KindText {
			cleaned[field.AttributeID] = Text(raw)
			continue
		}
		if !field.hasOption(raw) {
			errs[field.Key] = "select a valid choice"
			continue
		}
		id, _ := strconv.ParseUint(raw, 10, 64)
		cleaned[field.AttributeID] = Choice(uint(id))
	}

	if len(errs) > 0 {
		f.cleaned = nil
		f.bound = false
		return apperrors.New(apperrors.CodeValidation, "invalid attribute input").WithDetails(errs)
	}

	f.cleaned = cleaned
	f.bound = true
	return nil
}

// Save replaces the holder's bag with exactly one entry per field and resets
// the bound data.
func (f *Form) Save() (Bag, error) {
	if !f.bound {
		return nil, apperrors.New(apperrors.CodeValidation, "attribute form is not bound")
	}

	bag, err := Encode(f.schema, f.cleaned)
	if err != nil {
		return nil, err
	}
	if f.holder != nil {
		f.holder.SetAttributeBag(bag)
	}

	f.cleaned = nil
	f.bound = false
	return bag, nil
}

func (field Field) hasOption(value string) bool {
	for _, o := range field.Options {
		if o.Value == value {
			return true
		}
	}
	return false
}

// FieldByKey returns the descriptor with the given key
func (f *Form) FieldByKey(key string) (Field, bool) {
	idx, ok := f.byKey[key]
	if !ok {
		return Field{}, false
	}
	return f.fields[idx], true
}
