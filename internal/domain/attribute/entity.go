// internal/domain/attribute/entity.go
package attribute

import (
	"strconv"
	"time"
)

// Attribute is a named characteristic that product types can apply to
// products or variants, e.g. "color" or "material".
type Attribute struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Slug      string    `gorm:"uniqueIndex;not null;size:100" json:"slug"`
	Name      string    `gorm:"not null;size:100" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Values []AttributeValue `gorm:"foreignKey:AttributeID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"values,omitempty"`
}

// AttributeValue is one enumerated choice of an attribute
type AttributeValue struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	AttributeID uint      `gorm:"not null;uniqueIndex:idx_attribute_value_name,priority:2" json:"attribute_id"`
	Name        string    `gorm:"not null;size:100;uniqueIndex:idx_attribute_value_name,priority:1" json:"name"`
	Slug        string    `gorm:"not null;size:100" json:"slug"`
	Color       string    `gorm:"size:7" json:"color,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Attribute) TableName() string      { return "attributes" }
func (AttributeValue) TableName() string { return "attribute_values" }

// HasValues reports whether the attribute is choice-typed
func (a *Attribute) HasValues() bool {
	return len(a.Values) > 0
}

// Key is the attribute's key inside an attribute bag
func (a *Attribute) Key() string {
	return strconv.FormatUint(uint64(a.ID), 10)
}

// FieldName is the form field key for this attribute
func (a *Attribute) FieldName() string {
	return "attribute-" + a.Slug
}

// Value looks up one of the attribute's choices by id
func (a *Attribute) Value(id uint) (*AttributeValue, bool) {
	for i := range a.Values {
		if a.Values[i].ID == id {
			return &a.Values[i], true
		}
	}
	return nil, false
}

// Key is the value's representation inside an attribute bag
func (v *AttributeValue) Key() string {
	return strconv.FormatUint(uint64(v.ID), 10)
}
