// ABOUTME: Collection query parameters: ref-id filters and boolean flags
// ABOUTME: Parsed from URL query strings against the schema's filterable fields

package resource

import "net/url"

// RootsOnly is the parent filter value selecting records with no parent.
const RootsOnly = "none"

// Query filters a collection read. All conditions combine with AND.
type Query struct {
	// Equal maps a ref field name to the required id. The value RootsOnly
	// on the schema's ParentField selects rows with no parent.
	Equal map[string]string
	// Flags lists bool fields that must be true.
	Flags []string
	// IncludeHidden also returns rows whose HideField is true.
	IncludeHidden bool
}

// ParseQuery reads filter parameters for the schema. Empty values are
// ignored; any non-empty value of a bool filter selects true rows only.
func ParseQuery(s *Schema, v url.Values) Query {
	q := Query{Equal: map[string]string{}}
	for _, f := range s.Fields {
		if !f.Filter {
			continue
		}
		val := v.Get(f.Name)
		if val == "" {
			continue
		}
		switch f.Kind {
		case KindBool:
			q.Flags = append(q.Flags, f.Name)
		case KindRef, KindString:
			q.Equal[f.Name] = val
		}
	}
	return q
}
