// Package normalize turns server entities, which embed related entities as
// nested objects, into flat form records keyed by identifiers.
package normalize

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/goliatone/go-formsync/pkg/entity"
	"github.com/goliatone/go-formsync/pkg/errs"
	"github.com/goliatone/go-formsync/pkg/record"
)

// Normalize builds the form record for a raw server entity. A nil entity
// yields the all-defaults record of the kind. Normalize is pure and
// idempotent: normalizing rec.Map() returns an equal record.
func Normalize(schema entity.Schema, raw map[string]any) record.Record {
	rec := record.New(schema)
	if raw == nil {
		return rec
	}

	rec.ID = ID(schema, raw)
	for _, field := range schema.Fields {
		value, present := raw[field.Name]
		switch field.Type {
		case entity.FieldTypeAttachment:
			continue
		case entity.FieldTypeRef:
			rec.Values[field.Name] = DecodeRelation(value, schema.Identifier()).One()
		case entity.FieldTypeRefSet:
			rec.Values[field.Name] = DecodeRelation(value, schema.Identifier()).Many()
		default:
			if !present {
				continue
			}
			rec.Values[field.Name] = coerce(field, value)
		}
	}
	return rec
}

// ID extracts the identifier of a raw entity, accepting string and numeric
// encodings. Missing or structured values yield "".
func ID(schema entity.Schema, raw map[string]any) string {
	return identifier(raw[schema.Identifier()])
}

// NormalizeJSON decodes a JSON entity and normalizes it. A JSON null yields
// the defaults record.
func NormalizeJSON(schema entity.Schema, data []byte) (record.Record, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var raw map[string]any
	if err := decoder.Decode(&raw); err != nil {
		return record.Record{}, errs.Decode("normalize "+string(schema.Kind), err)
	}
	return Normalize(schema, raw), nil
}

func coerce(field entity.Field, value any) any {
	switch field.Type {
	case entity.FieldTypeString:
		return toString(value)
	case entity.FieldTypeInteger:
		return toInt(value)
	case entity.FieldTypeNumber:
		return toFloat(value)
	case entity.FieldTypeBoolean:
		return toBool(value)
	default:
		return field.Zero()
	}
}

func toString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case map[string]any, []any:
		return ""
	default:
		return identifier(v)
	}
}

func toFloat(value any) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, _ := v.Float64()
		return f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		return f
	case bool:
		if v {
			return 1
		}
		return 0
	default:
		return 0
	}
}

func toInt(value any) int64 {
	switch v := value.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
		return truncate(toFloat(v))
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			return n
		}
		return truncate(toFloat(v))
	default:
		return truncate(toFloat(v))
	}
}

func truncate(f float64) int64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int64(f)
}

func toBool(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		return err == nil && b
	case nil:
		return false
	default:
		return toFloat(v) != 0
	}
}
