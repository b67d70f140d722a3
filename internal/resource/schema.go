// ABOUTME: Declarative field schemas that drive both the admin forms and the REST endpoints
// ABOUTME: One Schema per entity type; the generic CRUD pipeline is parametrized by it

package resource

import (
	"regexp"
	"strings"
)

// Kind is the value type of a field.
type Kind int

const (
	KindString Kind = iota
	KindText
	KindBool
	KindDecimal
	KindRef
	KindImages
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindText:
		return "text"
	case KindBool:
		return "bool"
	case KindDecimal:
		return "decimal"
	case KindRef:
		return "ref"
	case KindImages:
		return "images"
	default:
		return "unknown"
	}
}

// Scope names the owner column of an entity.
type Scope int

const (
	// ScopeStore entities belong to a store (store_id).
	ScopeStore Scope = iota
	// ScopeUser entities belong directly to a user (user_id). Only stores.
	ScopeUser
)

// Field declares one input of an entity.
type Field struct {
	Name   string // JSON and form name, e.g. "billboardId"
	Column string // SQL column, e.g. "billboard_id"
	Label  string // human label used in messages, e.g. "Billboard id"
	Kind   Kind

	// Required fields must be present and non-empty on the endpoint and in forms.
	Required bool
	// FormRequired fields are only enforced by the admin forms.
	FormRequired bool

	MinLen         int
	Pattern        *regexp.Regexp
	PatternMessage string

	// Ref is the entity name a KindRef field points to.
	Ref string
	// Filter allows the field as a collection query parameter.
	Filter bool
	// Internal fields are never rendered as form inputs.
	Internal bool
}

// Relation is the name under which a resolved ref is attached to a record:
// "billboardId" becomes "billboard".
func (f Field) Relation() string {
	return strings.TrimSuffix(f.Name, "Id")
}

// Schema describes one entity type.
type Schema struct {
	Entity   string // route segment and table name, e.g. "billboards"
	Singular string // display name, e.g. "Billboard"
	Plural   string // defaults to Singular+"s"
	Tag      string // log tag prefix, e.g. "BILLBOARD"
	Scope    Scope
	Fields   []Field

	// LabelField names the field used when the record appears in a select.
	LabelField string
	// HideField is a bool field whose true rows never appear in collections.
	HideField string
	// ParentField is a self-ref used for nested children (sub-categories).
	ParentField string
	// PublicCreate skips authentication and ownership on create.
	PublicCreate bool
	// CORS enables cross-origin headers and preflight on the endpoint.
	CORS bool
	// DependentsHint is shown when a delete is rejected by referential integrity.
	DependentsHint string
}

// PluralName is the collection's display name.
func (s *Schema) PluralName() string {
	if s.Plural != "" {
		return s.Plural
	}
	return s.Singular + "s"
}

// Table is the SQL table backing the schema.
func (s *Schema) Table() string {
	return s.Entity
}

// ScopeColumn is the owner column name.
func (s *Schema) ScopeColumn() string {
	if s.Scope == ScopeUser {
		return "user_id"
	}
	return "store_id"
}

// ScopeKey is the JSON name of the owner id.
func (s *Schema) ScopeKey() string {
	if s.Scope == ScopeUser {
		return "userId"
	}
	return "storeId"
}

// Field returns the named field.
func (s *Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Refs returns the ref fields in declaration order.
func (s *Schema) Refs() []Field {
	var out []Field
	for _, f := range s.Fields {
		if f.Kind == KindRef {
			out = append(out, f)
		}
	}
	return out
}

// Columns returns the scalar fields stored on the entity's own row.
func (s *Schema) Columns() []Field {
	var out []Field
	for _, f := range s.Fields {
		if f.Kind != KindImages {
			out = append(out, f)
		}
	}
	return out
}

// HasImages reports whether the schema carries an image list.
func (s *Schema) HasImages() bool {
	for _, f := range s.Fields {
		if f.Kind == KindImages {
			return true
		}
	}
	return false
}

// FormFields returns the fields rendered by the admin form.
func (s *Schema) FormFields() []Field {
	var out []Field
	for _, f := range s.Fields {
		if !f.Internal {
			out = append(out, f)
		}
	}
	return out
}

// Registry indexes schemas by entity name.
type Registry struct {
	order   []string
	schemas map[string]*Schema
}

// NewRegistry builds a registry from schemas in the given order.
func NewRegistry(schemas ...*Schema) *Registry {
	r := &Registry{schemas: make(map[string]*Schema, len(schemas))}
	for _, s := range schemas {
		r.order = append(r.order, s.Entity)
		r.schemas[s.Entity] = s
	}
	return r
}

// Lookup returns the schema for an entity name.
func (r *Registry) Lookup(entity string) (*Schema, bool) {
	s, ok := r.schemas[entity]
	return s, ok
}

// All returns every schema in registration order.
func (r *Registry) All() []*Schema {
	out := make([]*Schema, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.schemas[name])
	}
	return out
}
