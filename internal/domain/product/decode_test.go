package product

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hermes/pkg/errors"
)

func TestDecodeIPhonePayload(t *testing.T) {
	payload := map[string]interface{}{
		"id":          float64(12), // JSON numbers decode as float64
		"category":    "iphone",
		"name":        "iPhone 15 Pro",
		"description": "Titanio. Tan Pro.",
		"price":       999.0,
		"stock":       float64(25),
		"model":       "iPhone 15 Pro",
		"storage_gb":  float64(256),
		"chip":        "A17 Pro",
		"colors":      []interface{}{"Titanio natural", "Titanio azul"},
	}

	p, err := Decode(payload)
	require.NoError(t, err)

	assert.Equal(t, int64(12), p.ID)
	assert.Equal(t, CategoryIPhone, p.Category)
	assert.Equal(t, 999.0, p.Price)

	spec, ok := p.Spec.(IPhoneSpec)
	require.True(t, ok, "expected IPhoneSpec, got %T", p.Spec)
	assert.Equal(t, "A17 Pro", spec.Chip)
	assert.Equal(t, 256, spec.StorageGB)
	assert.Equal(t, []string{"Titanio natural", "Titanio azul"}, spec.Colors)
	assert.Equal(t, CategoryIPhone, spec.SpecCategory())
}

func TestDecodeEachCategoryGetsMatchingSpec(t *testing.T) {
	tests := []struct {
		category string
		want     Category
	}{
		{"iphone", CategoryIPhone},
		{"mac", CategoryMac},
		{"ipad", CategoryIPad},
		{"apple_watch", CategoryAppleWatch},
		{"accessory", CategoryAccessory},
	}

	for _, tt := range tests {
		p, err := Decode(map[string]interface{}{
			"category": tt.category,
			"name":     "Producto",
		})
		require.NoError(t, err, tt.category)
		require.NotNil(t, p.Spec, tt.category)
		assert.Equal(t, tt.want, p.Spec.SpecCategory())
	}
}

func TestDecodeRejectsBadPayloads(t *testing.T) {
	_, err := Decode(nil)
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	_, err = Decode(map[string]interface{}{"category": "toaster", "name": "X"})
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	_, err = Decode(map[string]interface{}{"category": "iphone"})
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestParseCategoryNormalizes(t *testing.T) {
	c, err := ParseCategory("  IPHONE ")
	require.NoError(t, err)
	assert.Equal(t, CategoryIPhone, c)
}

func TestFormatExcerpt(t *testing.T) {
	matches := []Match{
		{Score: 0.91, Product: Product{Name: "iPhone 15 Pro", Category: CategoryIPhone, Price: 999, Spec: IPhoneSpec{Chip: "A17 Pro", StorageGB: 256}}},
		{Score: 0.74, Product: Product{Name: "MacBook Air", Category: CategoryMac, Price: 1199, Spec: MacSpec{Chip: "M3"}}},
		{Score: 0.60, Product: Product{Name: "iPad mini", Category: CategoryIPad, Price: 499}},
		{Score: 0.55, Product: Product{Name: "AirPods Pro", Category: CategoryAccessory, Price: 249}},
	}

	excerpt := FormatExcerpt(matches, 3)

	assert.Contains(t, excerpt, "1. iPhone 15 Pro")
	assert.Contains(t, excerpt, "A17 Pro, 256GB")
	assert.Contains(t, excerpt, "Relevancia: 0.91")
	assert.Contains(t, excerpt, "3. iPad mini")
	assert.NotContains(t, excerpt, "AirPods Pro")

	assert.Equal(t, "No se encontraron productos relevantes.", FormatExcerpt(nil, 3))
}
