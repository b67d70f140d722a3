// ABOUTME: Tests for record rendering and input decoding
// ABOUTME: JSON and form bodies, relation inlining and the edit-form round trip

package resource

import (
	"net/url"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSON_Product(t *testing.T) {
	body := []byte(`{
		"name": "Tee",
		"price": "19.99",
		"description": "Cotton",
		"categoryId": "cat",
		"sizeId": "size",
		"colorId": "color",
		"images": [{"url": "https://img/1.png"}, "https://img/2.png"],
		"isFeatured": true,
		"ignored": 42
	}`)

	in, err := DecodeJSON(Products, body)
	require.NoError(t, err)

	assert.Equal(t, "Tee", in.Values["name"])
	assert.True(t, decimal.RequireFromString("19.99").Equal(in.Values["price"].(decimal.Decimal)))
	assert.Equal(t, []string{"https://img/1.png", "https://img/2.png"}, in.Images)
	assert.True(t, in.Checked("isFeatured"))
	assert.True(t, in.Present["images"])
	assert.False(t, in.Present["isArchived"])
	assert.NotContains(t, in.Values, "ignored")
}

func TestDecodeJSON_NumericPrice(t *testing.T) {
	in, err := DecodeJSON(Products, []byte(`{"price": 12.5}`))
	require.NoError(t, err)
	assert.Equal(t, "12.5", in.Values["price"].(decimal.Decimal).String())
}

func TestDecodeJSON_Errors(t *testing.T) {
	_, err := DecodeJSON(Billboards, []byte(`{not json`))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Invalid JSON body", verr.Message)

	_, err = DecodeJSON(Products, []byte(`{"isFeatured": "yes"}`))
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "isFeatured", verr.Field)

	in, err := DecodeJSON(Billboards, nil)
	require.NoError(t, err)
	assert.Empty(t, in.Values)
}

func TestDecodeForm_Product(t *testing.T) {
	form := url.Values{
		"name":        {"Tee"},
		"price":       {"9.50"},
		"description": {"Soft"},
		"categoryId":  {"cat"},
		"sizeId":      {"size"},
		"colorId":     {"color"},
		"images":      {"https://img/a.png\r\n\n  https://img/b.png  "},
		"isFeatured":  {"on"},
	}

	in, err := DecodeForm(Products, form)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://img/a.png", "https://img/b.png"}, in.Images)
	assert.True(t, in.Checked("isFeatured"))
	assert.False(t, in.Checked("isArchived"))
	assert.True(t, in.Present["isArchived"], "absent checkbox decodes as false")

	_, err = DecodeForm(Products, url.Values{"price": {"abc"}})
	assert.Error(t, err)
}

func TestDecodeForm_SkipsInternalFields(t *testing.T) {
	in, err := DecodeForm(Categories, url.Values{"name": {"Tees"}, "billboardId": {"bb"}, "parentCategoryId": {"evil"}})
	require.NoError(t, err)
	assert.False(t, in.Present["parentCategoryId"])
}

func TestFromRecord_RoundTripsThroughText(t *testing.T) {
	rec := &Record{
		Schema: Products,
		Values: map[string]any{
			"name":       "Tee",
			"price":      decimal.RequireFromString("10"),
			"isFeatured": true,
			"sizeId":     nil,
		},
		Images: []Image{{URL: "https://img/a.png"}, {URL: "https://img/b.png"}},
	}

	in := FromRecord(rec)
	price, _ := Products.Field("price")
	images, _ := Products.Field("images")
	size, _ := Products.Field("sizeId")

	assert.Equal(t, "10", in.Text(price))
	assert.Equal(t, "https://img/a.png\nhttps://img/b.png", in.Text(images))
	assert.Equal(t, "", in.Text(size))
	assert.True(t, in.Checked("isFeatured"))
}

func TestRecord_MarshalJSON(t *testing.T) {
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	billboard := &Record{
		Schema: Billboards, ID: "bb-1", ScopeID: "s-1",
		Values:    map[string]any{"label": "Summer", "imageUrl": "https://img/s.png"},
		CreatedAt: at, UpdatedAt: at,
	}
	category := &Record{
		Schema: Categories, ID: "cat-1", ScopeID: "s-1",
		Values:    map[string]any{"name": "Shirts", "billboardId": "bb-1", "parentCategoryId": nil},
		Related:   map[string]*Record{"billboard": billboard, "parentCategory": nil},
		CreatedAt: at, UpdatedAt: at,
	}

	data, err := json.Marshal(category)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))

	want := map[string]any{
		"id":               "cat-1",
		"storeId":          "s-1",
		"name":             "Shirts",
		"billboardId":      "bb-1",
		"parentCategoryId": nil,
		"parentCategory":   nil,
		"createdAt":        "2024-03-01T10:00:00Z",
		"updatedAt":        "2024-03-01T10:00:00Z",
		"billboard": map[string]any{
			"id":        "bb-1",
			"storeId":   "s-1",
			"label":     "Summer",
			"imageUrl":  "https://img/s.png",
			"createdAt": "2024-03-01T10:00:00Z",
			"updatedAt": "2024-03-01T10:00:00Z",
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("category JSON mismatch (-want +got):\n%s", diff)
	}
}

func TestRecord_MarshalJSON_ParentCycleTerminates(t *testing.T) {
	a := &Record{Schema: Categories, ID: "a", Values: map[string]any{}}
	b := &Record{Schema: Categories, ID: "b", Values: map[string]any{}}
	a.Related = map[string]*Record{"parentCategory": b}
	b.Related = map[string]*Record{"parentCategory": a}

	_, err := json.Marshal(a)
	assert.NoError(t, err)
}

func TestRecord_ProductImagesRenderAsList(t *testing.T) {
	data, err := json.Marshal(&Record{Schema: Products, ID: "p", Values: map[string]any{}})
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, []any{}, got["images"])
}
