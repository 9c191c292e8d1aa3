package entity

// FieldType is the simplified enum of form-friendly field kinds.
type FieldType string

const (
	FieldTypeString     FieldType = "string"
	FieldTypeInteger    FieldType = "integer"
	FieldTypeNumber     FieldType = "number"
	FieldTypeBoolean    FieldType = "boolean"
	FieldTypeRef        FieldType = "ref"
	FieldTypeRefSet     FieldType = "refset"
	FieldTypeAttachment FieldType = "attachment"
)

// ArrayStrategy controls how a reference set is written into a multipart
// body. JSON bodies always carry reference sets as a nested array.
type ArrayStrategy string

const (
	// ArrayRepeated appends one part per identifier under the field name.
	ArrayRepeated ArrayStrategy = "repeated"
	// ArrayJSON appends a single part holding the JSON-encoded array.
	ArrayJSON ArrayStrategy = "json"
)

// Field describes one editable input of an entity form.
type Field struct {
	Name     string    `json:"name" yaml:"name"`
	Type     FieldType `json:"type" yaml:"type"`
	Label    string    `json:"label,omitempty" yaml:"label,omitempty"`
	Required bool      `json:"required,omitempty" yaml:"required,omitempty"`
	// Format carries presentation hints such as "textarea" or "date".
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
	// Target is the referenced kind for ref and refset fields.
	Target Kind `json:"target,omitempty" yaml:"target,omitempty"`
	// Array selects the multipart convention for refset fields. Empty means
	// ArrayRepeated.
	Array ArrayStrategy `json:"array,omitempty" yaml:"array,omitempty"`
	// Replaces names the scalar path field an attachment supersedes on the
	// server (poster -> poster_path).
	Replaces string `json:"replaces,omitempty" yaml:"replaces,omitempty"`
}

// IsRelation reports whether the field references other entities.
func (f Field) IsRelation() bool {
	return f.Type == FieldTypeRef || f.Type == FieldTypeRefSet
}

// IsScalar reports whether the field holds a plain value.
func (f Field) IsScalar() bool {
	switch f.Type {
	case FieldTypeString, FieldTypeInteger, FieldTypeNumber, FieldTypeBoolean:
		return true
	default:
		return false
	}
}

// ArrayStrategy returns the effective multipart strategy for the field.
func (f Field) ArrayStrategy() ArrayStrategy {
	if f.Array == "" {
		return ArrayRepeated
	}
	return f.Array
}

// DisplayLabel returns the configured label or a label derived from the name.
func (f Field) DisplayLabel() string {
	if f.Label != "" {
		return f.Label
	}
	return DefaultLabeler(f.Name)
}

// Zero returns the "new record" value for the field: "" for strings and
// single references, 0 for numbers, false for flags, and an empty identifier
// list for reference sets. Attachments have no record value.
func (f Field) Zero() any {
	switch f.Type {
	case FieldTypeString, FieldTypeRef:
		return ""
	case FieldTypeInteger:
		return int64(0)
	case FieldTypeNumber:
		return float64(0)
	case FieldTypeBoolean:
		return false
	case FieldTypeRefSet:
		return []string{}
	default:
		return nil
	}
}
