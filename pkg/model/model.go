// Package model provides the base entity model: a mutable field bag with per-field
// validation errors, lifecycle hooks and CRUD verbs routed through an endpoint table.
//
// A concrete entity is described by a Definition. Definitions usually embed Hooks and
// override the hooks they care about:
//
//	type bookDefinition struct{ model.Hooks }
//
//	func (bookDefinition) Kind() string { return "Book" }
//
//	func (bookDefinition) DefaultState() model.Attributes {
//		return model.Attributes{"author": "", "name": ""}
//	}
//
// Every write goes through SetField, which drops the field's validation error before the
// new value is stored. Models are not safe for concurrent mutation.
package model

import (
	"sort"

	"github.com/sumandas0/entropic-model/pkg/meta"
)

// Attributes is the open-ended field bag of a model and the shape of constructor data.
type Attributes map[string]any

// Definition supplies the per-entity hooks of a model.
type Definition interface {
	// Kind is the type discriminant reported by the model.
	Kind() string
	// DefaultState returns the fields used whenever no explicit data is supplied.
	DefaultState() Attributes
	// Boot runs after the fields have been populated at construction and reset.
	Boot(m *Model)
	// Validation returns the rule table evaluated by Validate.
	Validation(m *Model, vctx any) Rules
	// Endpoints returns the transport table used by the CRUD verbs.
	Endpoints(m *Model) meta.Endpoints
}

// Hooks is the base Definition. Embed it to inherit the defaults.
type Hooks struct{}

func (Hooks) Kind() string { return "Model" }

func (Hooks) DefaultState() Attributes { return Attributes{} }

func (Hooks) Boot(*Model) {}

func (Hooks) Validation(*Model, any) Rules { return Rules{} }

func (Hooks) Endpoints(*Model) meta.Endpoints { return meta.Endpoints{} }

// Model is a single mutable record.
type Model struct {
	*meta.Meta

	def    Definition
	fields Attributes
	errors map[string]string
}

// New builds a model from def, populating it from data or, when data is nil, from the
// definition's default state. Endpoints passed through opts take precedence over the
// ones returned by the definition.
func New(def Definition, data Attributes, opts ...meta.Option) *Model {
	if def == nil {
		def = Hooks{}
	}

	m := &Model{
		Meta:   meta.NewMeta(def.Kind(), opts...),
		def:    def,
		fields: make(Attributes),
		errors: make(map[string]string),
	}
	m.initialize(data)
	return m
}

func (m *Model) initialize(data Attributes) {
	m.SetEndpoints(m.def.Endpoints(m).Merge(m.Endpoints()))
	m.Clear(data)
	m.def.Boot(m)
}

// Definition returns the hooks this model was built with.
func (m *Model) Definition() Definition {
	return m.def
}

// DefaultState returns a fresh copy of the definition's default fields.
func (m *Model) DefaultState() Attributes {
	state := m.def.DefaultState()
	if state == nil {
		return Attributes{}
	}
	return copyAttributes(state)
}

// Clear replaces the fields with data, or with the default state when data is nil. Keys
// outside the new contents are dropped.
func (m *Model) Clear(data Attributes) {
	if data == nil {
		data = m.DefaultState()
	}
	m.fields = make(Attributes, len(data))
	m.Set(data)
}

// Set writes every entry of data through SetField. A nil data clears the model back to
// its default state.
func (m *Model) Set(data Attributes) *Model {
	if data == nil {
		m.Clear(nil)
		return m
	}
	for key, value := range data {
		m.SetField(key, value)
	}
	return m
}

// SetField stores value under key after dropping the key's validation error.
func (m *Model) SetField(key string, value any) *Model {
	delete(m.errors, key)
	m.fields[key] = value
	return m
}

// Unset removes key from the fields along with its validation error.
func (m *Model) Unset(key string) {
	delete(m.errors, key)
	delete(m.fields, key)
}

// Field returns the raw value stored under key.
func (m *Model) Field(key string) (any, bool) {
	value, ok := m.fields[key]
	return value, ok
}

// Has reports whether key is present in the fields.
func (m *Model) Has(key string) bool {
	_, ok := m.fields[key]
	return ok
}

// Keys returns the field names in sorted order.
func (m *Model) Keys() []string {
	keys := make([]string, 0, len(m.fields))
	for key := range m.fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Attributes returns a shallow copy of the fields.
func (m *Model) Attributes() Attributes {
	return copyAttributes(m.fields)
}

// Reset drops every data field and validation message, assigns a fresh identity
// (dropping listeners) and then repopulates the model as construction does.
func (m *Model) Reset(data Attributes) {
	m.fields = make(Attributes)
	m.ClearErrors()
	m.CreateMeta()
	m.Clear(data)
	m.def.Boot(m)
}

// ClearState releases the busy flag, forgets every validation result and writes the
// default state back over the fields.
func (m *Model) ClearState() {
	m.SetBusy(false)
	m.errors = make(map[string]string)
	m.Set(m.DefaultState())
}

// Clone returns a shallow copy sharing identity, definition and listeners. Nested values
// inside the fields stay shared between the original and the clone.
func (m *Model) Clone() *Model {
	errs := make(map[string]string, len(m.errors))
	for key, msg := range m.errors {
		errs[key] = msg
	}
	return &Model{
		Meta:   m.Meta.Copy(),
		def:    m.def,
		fields: copyAttributes(m.fields),
		errors: errs,
	}
}

func copyAttributes(src Attributes) Attributes {
	dst := make(Attributes, len(src))
	for key, value := range src {
		dst[key] = value
	}
	return dst
}
