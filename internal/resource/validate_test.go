// ABOUTME: Tests for field validation
// ABOUTME: Required fields in order, form-only requirements, min length, hex pattern and positive price

package resource

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inputOf(values map[string]any) Input {
	in := NewInput()
	for k, v := range values {
		in.Set(k, v)
	}
	return in
}

func TestValidate_FirstMissingFieldInOrder(t *testing.T) {
	errs := Validate(Billboards, NewInput(), ModeEndpoint)
	require.Len(t, errs, 2)
	assert.Equal(t, "Label is required", errs[0].Error())
	assert.Equal(t, "imageUrl", errs[1].Field)

	errs = Validate(Billboards, inputOf(map[string]any{"label": "Summer"}), ModeEndpoint)
	require.Len(t, errs, 1)
	assert.Equal(t, "Image URL is required", errs[0].Message)
}

func TestValidate_Products(t *testing.T) {
	in := inputOf(map[string]any{
		"name":        "Tee",
		"price":       decimal.RequireFromString("19.99"),
		"description": "Cotton",
		"categoryId":  "cat",
		"sizeId":      "size",
		"colorId":     "color",
	})

	errs := Validate(Products, in, ModeEndpoint)
	require.Len(t, errs, 1)
	assert.Equal(t, "Images are required", errs[0].Message)

	in.Images = []string{"https://img/1.png"}
	assert.Empty(t, Validate(Products, in, ModeEndpoint))

	in.Set("price", decimal.Zero)
	errs = Validate(Products, in, ModeEndpoint)
	require.Len(t, errs, 1)
	assert.Equal(t, "Price must be greater than 0", errs[0].Message)
}

func TestValidate_ColorValue(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{"valid", "#ff0000", ""},
		{"short", "#ff", "Value must contain at least 4 character(s)"},
		{"no hash", "ff0000", "String must be a valid hex code"},
		{"missing", "", "Value is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := Validate(Colors, inputOf(map[string]any{"name": "Red", "value": tt.value}), ModeEndpoint)
			if tt.want == "" {
				assert.Empty(t, errs)
				return
			}
			require.NotEmpty(t, errs)
			assert.Equal(t, tt.want, errs[0].Message)
		})
	}
}

func TestValidate_FormRequiredOnlyInFormMode(t *testing.T) {
	in := inputOf(map[string]any{"name": "Shop"})

	assert.Empty(t, Validate(Stores, in, ModeEndpoint))

	errs := Validate(Stores, in, ModeForm)
	require.NotEmpty(t, errs)
	assert.Equal(t, "siteLink", errs[0].Field)
	assert.Len(t, errs.ByField(), len(Stores.Fields)-1)
}

func TestValidate_InternalFieldsSkippedInForms(t *testing.T) {
	in := inputOf(map[string]any{"name": "Tees", "billboardId": "bb"})
	assert.Empty(t, Validate(Categories, in, ModeForm))
	assert.Empty(t, Validate(Categories, in, ModeEndpoint))
}

func TestQuery_Parse(t *testing.T) {
	q := ParseQuery(Products, map[string][]string{
		"categoryId": {"cat-1"},
		"colorId":    {""},
		"isFeatured": {"false"},
		"isArchived": {"true"},
		"unknown":    {"x"},
	})
	assert.Equal(t, map[string]string{"categoryId": "cat-1"}, q.Equal)
	assert.Equal(t, []string{"isFeatured"}, q.Flags)
	assert.False(t, q.IncludeHidden)
}
