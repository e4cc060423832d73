package attribute

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/your-org/storefront-backend/internal/pkg/errors"
)

func sampleSchema() []Attribute {
	return []Attribute{
		{ID: 1, Slug: "color", Name: "Color", Values: []AttributeValue{
			{ID: 10, AttributeID: 1, Name: "Red", Slug: "red", Color: "#f00"},
			{ID: 11, AttributeID: 1, Name: "Blue", Slug: "blue", Color: "#0000ff"},
		}},
		{ID: 2, Slug: "material", Name: "Material"},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	schema := sampleSchema()
	values := map[uint]Value{
		1: Choice(11),
		2: Text("cotton, 100%"),
	}

	bag, err := Encode(schema, values)
	require.NoError(t, err)
	assert.Equal(t, Bag{"1": "11", "2": "cotton, 100%"}, bag)

	decoded, err := Decode(schema, bag)
	require.NoError(t, err)
	assert.Equal(t, values, decoded)
}

func TestEncodeEmptyValues(t *testing.T) {
	bag, err := Encode(sampleSchema(), map[uint]Value{1: Text(""), 2: Text("")})
	require.NoError(t, err)
	assert.Equal(t, Bag{"1": "", "2": ""}, bag)

	decoded, err := Decode(sampleSchema(), bag)
	require.NoError(t, err)
	assert.True(t, decoded[1].IsEmpty())
	assert.True(t, decoded[2].IsEmpty())
}

func TestEncodeRejectsInvalid(t *testing.T) {
	tests := []struct {
		name   string
		values map[uint]Value
		field  string
	}{
		{"unknown attribute", map[uint]Value{99: Text("x")}, "99"},
		{"foreign choice", map[uint]Value{1: Choice(42)}, "color"},
		{"text on choice attribute", map[uint]Value{1: Text("red")}, "color"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Encode(sampleSchema(), tt.values)
			require.Error(t, err)
			typed := apperrors.As(err)
			require.NotNil(t, typed)
			assert.Equal(t, apperrors.CodeValidation, typed.Code())
			assert.Contains(t, typed.Details().(FieldErrors), tt.field)
		})
	}
}

func TestDecodeRejectsInvalid(t *testing.T) {
	for name, bag := range map[string]Bag{
		"non numeric key":    {"color": "10"},
		"key not in schema":  {"5": "x"},
		"dangling choice":    {"1": "12"},
		"non numeric choice": {"1": "red"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(sampleSchema(), bag)
			assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
		})
	}
}

func TestDisplayMap(t *testing.T) {
	schema := sampleSchema()
	display := DisplayMap(schema, Bag{"1": "10", "2": "wool"})

	require.Len(t, display, 2)
	assert.Equal(t, "Red", display[0].Label())
	require.NotNil(t, display[0].Value)
	assert.Equal(t, uint(10), display[0].Value.ID)
	assert.Equal(t, "wool", display[1].Label())
	assert.Nil(t, display[1].Value)

	assert.Empty(t, DisplayMap(schema, Bag{"1": "", "2": ""}))
	// stale ids fall back to their raw text
	assert.Equal(t, "77", DisplayMap(schema, Bag{"1": "77"})[0].Label())
}

func TestBagHelpers(t *testing.T) {
	bag := Bag{"2": "b", "1": "a"}
	clone := bag.Clone()
	clone["3"] = "c"

	assert.Len(t, bag, 2)
	assert.Equal(t, []string{"1", "2"}, bag.Keys())
}
