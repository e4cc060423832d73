// internal/domain/attribute/value.go
package attribute

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	apperrors "github.com/your-org/storefront-backend/internal/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Bag is the persisted attribute mapping of a product or variant. Keys are
// decimal attribute ids; values are decimal AttributeValue ids for choice
// attributes or raw text for free-text attributes.
type Bag map[string]string

// Value implements driver.Valuer; a nil bag is stored as an empty object
func (b Bag) Value() (driver.Value, error) {
	if b == nil {
		return "{}", nil
	}
	encoded, err := json.Marshal(map[string]string(b))
	if err != nil {
		return nil, err
	}
	return string(encoded), nil
}

// Scan implements sql.Scanner
func (b *Bag) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*b = Bag{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported attribute bag source %T", src)
	}

	decoded := map[string]string{}
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return fmt.Errorf("failed to decode attribute bag: %w", err)
		}
	}
	*b = Bag(decoded)
	return nil
}

// GormDataType reports the generic column type
func (Bag) GormDataType() string {
	return "json"
}

// GormDBDataType picks the column type per dialect
func (Bag) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "JSONB"
	}
	return "JSON"
}

// Clone returns an independent copy of the bag
func (b Bag) Clone() Bag {
	out := make(Bag, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Keys returns the bag's keys sorted
func (b Bag) Keys() []string {
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Kind distinguishes free-text from choice values
type Kind string

const (
	KindText   Kind = "text"
	KindChoice Kind = "choice"
)

// Value is a typed attribute value: either Text or Choice
type Value struct {
	kind   Kind
	text   string
	choice uint
}

// Text builds a free-text value
func Text(s string) Value {
	return Value{kind: KindText, text: s}
}

// Choice builds a value referencing an AttributeValue
func Choice(valueID uint) Value {
	return Value{kind: KindChoice, choice: valueID}
}

func (v Value) Kind() Kind {
	if v.kind == "" {
		return KindText
	}
	return v.kind
}

func (v Value) Text() string { return v.text }

func (v Value) ChoiceID() uint { return v.choice }

// IsEmpty reports an unset value
func (v Value) IsEmpty() bool {
	return v.Kind() == KindText && v.text == ""
}

// String renders the value in bag form
func (v Value) String() string {
	if v.Kind() == KindChoice {
		return strconv.FormatUint(uint64(v.choice), 10)
	}
	return v.text
}

// FieldErrors maps attribute slug to a validation message
type FieldErrors map[string]string

func schemaIndex(schema []Attribute) map[uint]*Attribute {
	index := make(map[uint]*Attribute, len(schema))
	for i := range schema {
		index[schema[i].ID] = &schema[i]
	}
	return index
}

// Encode serializes typed values into a bag. Every key must belong to schema,
// choices must belong to their attribute and choice attributes accept no
// free text other than the empty value.
func Encode(schema []Attribute, values map[uint]Value) (Bag, error) {
	index := schemaIndex(schema)
	bag := make(Bag, len(values))
	errs := FieldErrors{}

	for id, v := range values {
		attr, ok := index[id]
		if !ok {
			errs[strconv.FormatUint(uint64(id), 10)] = "attribute is not part of this schema"
			continue
		}
		switch v.Kind() {
		case KindChoice:
			if _, ok := attr.Value(v.ChoiceID()); !ok {
				errs[attr.Slug] = fmt.Sprintf("value %d is not a choice of %s", v.ChoiceID(), attr.Slug)
				continue
			}
		case KindText:
			if attr.HasValues() && !v.IsEmpty() {
				errs[attr.Slug] = "attribute only accepts one of its values"
				continue
			}
		}
		bag[attr.Key()] = v.String()
	}

	if len(errs) > 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "invalid attribute values").WithDetails(errs)
	}
	return bag, nil
}

// Decode parses a bag back into typed values against schema
func Decode(schema []Attribute, bag Bag) (map[uint]Value, error) {
	index := schemaIndex(schema)
	values := make(map[uint]Value, len(bag))
	errs := FieldErrors{}

	for key, raw := range bag {
		id, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			errs[key] = "attribute key is not an id"
			continue
		}
		attr, ok := index[uint(id)]
		if !ok {
			errs[key] = "attribute is not part of this schema"
			continue
		}
		if raw == "" || !attr.HasValues() {
			values[attr.ID] = Text(raw)
			continue
		}
		valueID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			errs[attr.Slug] = "choice value is not an id"
			continue
		}
		if _, ok := attr.Value(uint(valueID)); !ok {
			errs[attr.Slug] = fmt.Sprintf("value %d is not a choice of %s", valueID, attr.Slug)
			continue
		}
		values[attr.ID] = Choice(uint(valueID))
	}

	if len(errs) > 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "invalid attribute bag").WithDetails(errs)
	}
	return values, nil
}

// Display is one resolved entry of a bag for presentation
type Display struct {
	Attribute *Attribute      `json:"attribute"`
	Value     *AttributeValue `json:"value,omitempty"`
	Text      string          `json:"text,omitempty"`
}

// Label is the human readable value
func (d Display) Label() string {
	if d.Value != nil {
		return d.Value.Name
	}
	return d.Text
}

// DisplayMap resolves the non-empty entries of bag for the given attributes,
// in attribute order. Values matching a choice id resolve to the choice,
// anything else is kept as text.
func DisplayMap(attrs []Attribute, bag Bag) []Display {
	var out []Display
	for i := range attrs {
		attr := &attrs[i]
		raw := bag[attr.Key()]
		if raw == "" {
			continue
		}
		entry := Display{Attribute: attr, Text: raw}
		if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
			if v, ok := attr.Value(uint(id)); ok {
				entry.Value = v
				entry.Text = ""
			}
		}
		out = append(out, entry)
	}
	return out
}
