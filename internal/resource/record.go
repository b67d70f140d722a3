// ABOUTME: Generic record and input types shared by the persistence layer, API and forms
// ABOUTME: Decodes JSON bodies and HTML form posts into typed field values per schema

package resource

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

// Image is one product image. URLs come from an external upload widget.
type Image struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"createdAt"`
}

// Record is a persisted entity instance.
type Record struct {
	Schema    *Schema
	ID        string
	ScopeID   string
	Values    map[string]any // string, bool, decimal.Decimal or nil for an unset ref
	Images    []Image
	Related   map[string]*Record // keyed by Field.Relation()
	CreatedAt time.Time
	UpdatedAt time.Time
}

// String returns a string-valued field, or "" if unset.
func (r *Record) String(name string) string {
	if r == nil {
		return ""
	}
	switch v := r.Values[name].(type) {
	case string:
		return v
	case decimal.Decimal:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// Bool returns a bool-valued field.
func (r *Record) Bool(name string) bool {
	if r == nil {
		return false
	}
	b, _ := r.Values[name].(bool)
	return b
}

// Label returns the display label of the record.
func (r *Record) Label() string {
	if r == nil || r.Schema == nil {
		return ""
	}
	return r.String(r.Schema.LabelField)
}

// ImageURLs returns the image URLs in order.
func (r *Record) ImageURLs() []string {
	out := make([]string, 0, len(r.Images))
	for _, img := range r.Images {
		out = append(out, img.URL)
	}
	return out
}

// MarshalJSON renders the record with its relations inlined.
func (r *Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.toMap(maxRelationDepth))
}

// maxRelationDepth stops rendering at a fixed nesting so a malformed
// parent cycle cannot recurse forever.
const maxRelationDepth = 4

func (r *Record) toMap(depth int) map[string]any {
	m := map[string]any{
		"id":        r.ID,
		"createdAt": r.CreatedAt,
		"updatedAt": r.UpdatedAt,
	}
	if r.Schema != nil {
		m[r.Schema.ScopeKey()] = r.ScopeID
		for _, f := range r.Schema.Fields {
			if f.Kind == KindImages {
				imgs := r.Images
				if imgs == nil {
					imgs = []Image{}
				}
				m[f.Name] = imgs
				continue
			}
			m[f.Name] = r.Values[f.Name]
		}
	}
	if depth == 0 {
		return m
	}
	for name, rel := range r.Related {
		if rel == nil {
			m[name] = nil
			continue
		}
		m[name] = rel.toMap(depth - 1)
	}
	return m
}

// Input is a decoded, not yet validated write request.
type Input struct {
	Values map[string]any
	Images []string
	// Present records which fields were supplied at all.
	Present map[string]bool
}

// NewInput returns an empty input.
func NewInput() Input {
	return Input{Values: map[string]any{}, Present: map[string]bool{}}
}

// Set assigns a field value and marks it present.
func (in *Input) Set(name string, v any) {
	in.Values[name] = v
	in.Present[name] = true
}

// DecodeJSON maps a JSON body onto the schema fields. Unknown keys are
// ignored. Type mismatches are reported as validation errors.
func DecodeJSON(s *Schema, body []byte) (Input, error) {
	raw := map[string]any{}
	if len(strings.TrimSpace(string(body))) > 0 {
		if err := json.Unmarshal(body, &raw); err != nil {
			return Input{}, &ValidationError{Message: "Invalid JSON body"}
		}
	}
	in := NewInput()
	for _, f := range s.Fields {
		v, ok := raw[f.Name]
		if !ok || v == nil {
			continue
		}
		if err := in.assignJSON(f, v); err != nil {
			return Input{}, err
		}
	}
	return in, nil
}

func (in *Input) assignJSON(f Field, v any) error {
	switch f.Kind {
	case KindString, KindText, KindRef:
		str, ok := v.(string)
		if !ok {
			return &ValidationError{Field: f.Name, Message: f.Label + " must be a string"}
		}
		in.Set(f.Name, str)
	case KindBool:
		b, ok := v.(bool)
		if !ok {
			return &ValidationError{Field: f.Name, Message: f.Label + " must be a boolean"}
		}
		in.Set(f.Name, b)
	case KindDecimal:
		d, err := parseDecimal(v)
		if err != nil {
			return &ValidationError{Field: f.Name, Message: f.Label + " must be a number"}
		}
		in.Set(f.Name, d)
	case KindImages:
		list, ok := v.([]any)
		if !ok {
			return &ValidationError{Field: f.Name, Message: f.Label + " must be a list"}
		}
		for _, item := range list {
			switch img := item.(type) {
			case string:
				in.Images = append(in.Images, img)
			case map[string]any:
				u, _ := img["url"].(string)
				in.Images = append(in.Images, u)
			default:
				return &ValidationError{Field: f.Name, Message: f.Label + " must be a list of {url}"}
			}
		}
		in.Present[f.Name] = true
	}
	return nil
}

func parseDecimal(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case float64:
		return decimal.NewFromFloat(n), nil
	case string:
		return decimal.NewFromString(strings.TrimSpace(n))
	case json.Number:
		return decimal.NewFromString(n.String())
	default:
		return decimal.Decimal{}, fmt.Errorf("unsupported number type %T", v)
	}
}

// DecodeForm maps an HTML form post onto the schema fields. Checkboxes
// that are absent decode as false; images are one URL per line.
func DecodeForm(s *Schema, form url.Values) (Input, error) {
	in := NewInput()
	for _, f := range s.FormFields() {
		switch f.Kind {
		case KindBool:
			v := form.Get(f.Name)
			in.Set(f.Name, v == "on" || v == "true" || v == "1")
		case KindImages:
			for _, line := range strings.Split(form.Get(f.Name), "\n") {
				if u := strings.TrimSpace(line); u != "" {
					in.Images = append(in.Images, u)
				}
			}
			in.Present[f.Name] = true
		case KindDecimal:
			raw := strings.TrimSpace(form.Get(f.Name))
			if raw == "" {
				continue
			}
			d, err := decimal.NewFromString(raw)
			if err != nil {
				return in, &ValidationError{Field: f.Name, Message: f.Label + " must be a number"}
			}
			in.Set(f.Name, d)
		default:
			if _, ok := form[f.Name]; ok {
				in.Set(f.Name, form.Get(f.Name))
			}
		}
	}
	return in, nil
}

// FromRecord builds an input carrying a record's current values, used to
// pre-fill edit forms.
func FromRecord(r *Record) Input {
	in := NewInput()
	if r == nil {
		return in
	}
	for k, v := range r.Values {
		if v != nil {
			in.Set(k, v)
		}
	}
	in.Images = r.ImageURLs()
	return in
}

// Text returns the form representation of a field value.
func (in *Input) Text(f Field) string {
	if f.Kind == KindImages {
		return strings.Join(in.Images, "\n")
	}
	switch v := in.Values[f.Name].(type) {
	case string:
		return v
	case decimal.Decimal:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// Checked reports whether a bool field is set.
func (in *Input) Checked(name string) bool {
	b, _ := in.Values[name].(bool)
	return b
}
