// Package record holds the canonical in-memory value edited by a form: one
// entry per schema field, relations reduced to identifiers.
package record

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/wI2L/jsondiff"

	"github.com/goliatone/go-formsync/pkg/entity"
)

// Attachment is a file selected for upload. It is never populated from
// server data.
type Attachment struct {
	Filename string
	Data     []byte
}

// Record is the canonical form value. Values holds scalars as string, int64,
// float64 or bool, references as a string identifier ("" when absent) and
// reference sets as []string (never nil).
type Record struct {
	Kind    entity.Kind
	IDField string
	// ID is empty for records that have not been persisted yet.
	ID     string
	Values map[string]any
	Files  map[string]Attachment
}

// New returns a record holding the zero value of every declared field.
func New(schema entity.Schema) Record {
	rec := Record{
		Kind:    schema.Kind,
		IDField: schema.Identifier(),
		Values:  make(map[string]any, len(schema.Fields)),
	}
	for _, field := range schema.Fields {
		if field.Type == entity.FieldTypeAttachment {
			continue
		}
		rec.Values[field.Name] = field.Zero()
	}
	return rec
}

// IsNew reports whether the record has no identifier.
func (r Record) IsNew() bool {
	return r.ID == ""
}

// Get returns the raw value of a field.
func (r Record) Get(name string) (any, bool) {
	value, ok := r.Values[name]
	return value, ok
}

// String returns a string field or "".
func (r Record) String(name string) string {
	value, _ := r.Values[name].(string)
	return value
}

// Ref returns the identifier held by a reference field.
func (r Record) Ref(name string) string {
	return r.String(name)
}

// Refs returns a copy of the identifiers held by a reference-set field.
func (r Record) Refs(name string) []string {
	ids, _ := r.Values[name].([]string)
	return append([]string{}, ids...)
}

// Int returns an integer field or 0.
func (r Record) Int(name string) int64 {
	value, _ := r.Values[name].(int64)
	return value
}

// Float returns a number field or 0.
func (r Record) Float(name string) float64 {
	value, _ := r.Values[name].(float64)
	return value
}

// Bool returns a flag field or false.
func (r Record) Bool(name string) bool {
	value, _ := r.Values[name].(bool)
	return value
}

// Set stores a field value. Reference sets are copied so callers cannot
// mutate the record through the argument.
func (r *Record) Set(name string, value any) {
	if r.Values == nil {
		r.Values = make(map[string]any)
	}
	if ids, ok := value.([]string); ok {
		value = append([]string{}, ids...)
	}
	r.Values[name] = value
}

// Attach stores a file selection for an attachment field.
func (r *Record) Attach(name string, file Attachment) {
	if r.Files == nil {
		r.Files = make(map[string]Attachment)
	}
	r.Files[name] = file
}

// Detach removes a file selection.
func (r *Record) Detach(name string) {
	delete(r.Files, name)
}

// Clone returns a deep copy.
func (r Record) Clone() Record {
	out := Record{
		Kind:    r.Kind,
		IDField: r.IDField,
		ID:      r.ID,
		Values:  make(map[string]any, len(r.Values)),
	}
	for key, value := range r.Values {
		if ids, ok := value.([]string); ok {
			value = append([]string{}, ids...)
		}
		out.Values[key] = value
	}
	if len(r.Files) > 0 {
		out.Files = make(map[string]Attachment, len(r.Files))
		for key, file := range r.Files {
			file.Data = append([]byte(nil), file.Data...)
			out.Files[key] = file
		}
	}
	return out
}

// Map returns the record as a flat map with the identifier stored under
// IDField when present. Attachments are not included.
func (r Record) Map() map[string]any {
	out := make(map[string]any, len(r.Values)+1)
	for key, value := range r.Values {
		if ids, ok := value.([]string); ok {
			value = append([]string{}, ids...)
		}
		out[key] = value
	}
	if r.ID != "" {
		idField := r.IDField
		if idField == "" {
			idField = entity.DefaultIDField
		}
		out[idField] = r.ID
	}
	return out
}

// Keys returns the value keys sorted.
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r.Values))
	for key := range r.Values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Change is one JSON patch operation between two records.
type Change struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value,omitempty"`
}

// Diff returns the JSON patch turning before into after. An empty result
// means the records are equivalent.
func Diff(before, after Record) ([]Change, error) {
	patch, err := jsondiff.Compare(before.Map(), after.Map())
	if err != nil {
		return nil, fmt.Errorf("record: diff %s: %w", after.Kind, err)
	}
	if len(patch) == 0 {
		return nil, nil
	}

	raw, err := json.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("record: encode diff: %w", err)
	}
	var changes []Change
	if err := json.Unmarshal(raw, &changes); err != nil {
		return nil, fmt.Errorf("record: decode diff: %w", err)
	}
	return changes, nil
}
