package entity

import (
	"fmt"
	"net/url"
	"strings"
)

// DefaultIDField is the identifier key used by the API.
const DefaultIDField = "_id"

// Schema declares the fields of one entity kind and how it is transported.
type Schema struct {
	Kind Kind `json:"kind" yaml:"kind"`
	// Title is the human name used in notifications ("Game").
	Title string `json:"title" yaml:"title"`
	// Collection is the endpoint segment under the API base path.
	Collection string `json:"collection" yaml:"collection"`
	IDField    string `json:"idField" yaml:"idField"`
	// Paginated kinds are listed with page/limit query parameters.
	Paginated bool `json:"paginated,omitempty" yaml:"paginated,omitempty"`
	// LabelFields are joined with a space to build picker labels.
	LabelFields []string `json:"labelFields,omitempty" yaml:"labelFields,omitempty"`
	Fields      []Field  `json:"fields" yaml:"fields"`
	// SummaryTemplate is a pongo2 template rendering the one-line list
	// description. Relation fields are available as objects with a name.
	SummaryTemplate string `json:"summaryTemplate,omitempty" yaml:"summaryTemplate,omitempty"`
}

// Field looks up a field declaration by name.
func (s Schema) Field(name string) (Field, bool) {
	for _, field := range s.Fields {
		if field.Name == name {
			return field, true
		}
	}
	return Field{}, false
}

// Identifier returns the identifier key, defaulting to DefaultIDField.
func (s Schema) Identifier() string {
	if s.IDField == "" {
		return DefaultIDField
	}
	return s.IDField
}

// Multipart reports whether submissions of this kind use multipart encoding.
func (s Schema) Multipart() bool {
	for _, field := range s.Fields {
		if field.Type == FieldTypeAttachment {
			return true
		}
	}
	return false
}

// Relations returns the reference and reference-set fields in order.
func (s Schema) Relations() []Field {
	var out []Field
	for _, field := range s.Fields {
		if field.IsRelation() {
			out = append(out, field)
		}
	}
	return out
}

// Attachments returns the attachment fields in order.
func (s Schema) Attachments() []Field {
	var out []Field
	for _, field := range s.Fields {
		if field.Type == FieldTypeAttachment {
			out = append(out, field)
		}
	}
	return out
}

// Targets returns the distinct kinds referenced by the schema, in field order.
func (s Schema) Targets() []Kind {
	seen := make(map[Kind]struct{})
	var out []Kind
	for _, field := range s.Relations() {
		if field.Target == "" {
			continue
		}
		if _, ok := seen[field.Target]; ok {
			continue
		}
		seen[field.Target] = struct{}{}
		out = append(out, field.Target)
	}
	return out
}

// CollectionURL joins the API base path with the collection segment.
func (s Schema) CollectionURL(base string) string {
	return strings.TrimRight(base, "/") + "/" + s.Endpoint()
}

// ItemURL returns the URL of a persisted entity.
func (s Schema) ItemURL(base, id string) string {
	return s.CollectionURL(base) + "/" + url.PathEscape(id)
}

// OptionLabel renders the picker label of a raw entity using LabelFields.
// Entities with no label content fall back to their identifier.
func (s Schema) OptionLabel(raw map[string]any) string {
	parts := make([]string, 0, len(s.LabelFields))
	for _, name := range s.LabelFields {
		value, ok := raw[name]
		if !ok || value == nil {
			continue
		}
		text := strings.TrimSpace(fmt.Sprint(value))
		if text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 {
		if id, ok := raw[s.Identifier()]; ok && id != nil {
			return fmt.Sprint(id)
		}
		return ""
	}
	return strings.Join(parts, " ")
}

// Validate checks the declaration for structural mistakes.
func (s Schema) Validate() error {
	if s.Kind == "" {
		return fmt.Errorf("entity: schema kind is required")
	}
	if s.Endpoint() == "" {
		return fmt.Errorf("entity: schema %q collection is required", s.Kind)
	}
	seen := make(map[string]struct{}, len(s.Fields))
	for _, field := range s.Fields {
		name := strings.TrimSpace(field.Name)
		if name == "" {
			return fmt.Errorf("entity: schema %q declares a field without name", s.Kind)
		}
		if name == s.Identifier() {
			return fmt.Errorf("entity: schema %q must not declare identifier field %q", s.Kind, name)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("entity: schema %q declares duplicate field %q", s.Kind, name)
		}
		seen[name] = struct{}{}
		if field.IsRelation() && field.Target == "" {
			return fmt.Errorf("entity: schema %q field %q is missing a target kind", s.Kind, name)
		}
		switch field.Array {
		case "", ArrayRepeated, ArrayJSON:
		default:
			return fmt.Errorf("entity: schema %q field %q has unknown array strategy %q", s.Kind, name, field.Array)
		}
	}
	if strings.TrimSpace(s.SummaryTemplate) != "" {
		if _, err := summaryTemplate(s.SummaryTemplate); err != nil {
			return fmt.Errorf("entity: schema %q: %w", s.Kind, err)
		}
	}
	return nil
}

// Endpoint returns the collection path segment, defaulting to the kind.
func (s Schema) Endpoint() string {
	if s.Collection != "" {
		return strings.Trim(s.Collection, "/")
	}
	return string(s.Kind)
}
