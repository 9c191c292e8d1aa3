package entity

import (
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
)

// OpenAPI describes the registered collections as an OpenAPI 3 document:
// one component schema per kind plus the list/create/update/delete paths the
// synchronization layer calls.
func OpenAPI(reg *Registry, title, version string) *openapi3.T {
	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:   title,
			Version: version,
		},
		Paths: openapi3.NewPaths(),
		Components: &openapi3.Components{
			Schemas: make(openapi3.Schemas),
		},
	}
	if reg == nil {
		return doc
	}

	for _, kind := range reg.List() {
		schema, err := reg.Get(kind)
		if err != nil {
			continue
		}
		name := schema.Title
		if name == "" {
			name = DefaultLabeler(string(schema.Kind))
		}
		doc.Components.Schemas[name] = openapi3.NewSchemaRef("", entitySchema(schema))
		ref := "#/components/schemas/" + name

		collection := "/" + schema.Endpoint()
		doc.Paths.Set(collection, &openapi3.PathItem{
			Get:  listOperation(schema, ref),
			Post: writeOperation(schema, ref, "create"),
		})
		doc.Paths.Set(collection+"/{id}", &openapi3.PathItem{
			Parameters: openapi3.Parameters{
				{Value: openapi3.NewPathParameter("id").WithSchema(openapi3.NewStringSchema())},
			},
			Patch:  writeOperation(schema, ref, "update"),
			Delete: deleteOperation(schema),
		})
	}
	return doc
}

func entitySchema(schema Schema) *openapi3.Schema {
	out := openapi3.NewObjectSchema()
	out.WithProperty(schema.Identifier(), openapi3.NewStringSchema())
	for _, field := range schema.Fields {
		prop := fieldSchema(field)
		if prop == nil {
			continue
		}
		if field.Label != "" {
			prop.Title = field.Label
		}
		out.WithProperty(field.Name, prop)
		if field.Required {
			out.Required = append(out.Required, field.Name)
		}
	}
	return out
}

func fieldSchema(field Field) *openapi3.Schema {
	switch field.Type {
	case FieldTypeString:
		s := openapi3.NewStringSchema()
		if field.Format == "date" {
			s.Format = "date"
		}
		return s
	case FieldTypeInteger:
		return openapi3.NewInt64Schema()
	case FieldTypeNumber:
		return openapi3.NewFloat64Schema()
	case FieldTypeBoolean:
		return openapi3.NewBoolSchema()
	case FieldTypeRef:
		s := openapi3.NewStringSchema()
		s.Description = "identifier of a " + string(field.Target)
		return s
	case FieldTypeRefSet:
		s := openapi3.NewArraySchema().WithItems(openapi3.NewStringSchema())
		s.Description = "identifiers of " + string(field.Target) + " entities"
		return s
	case FieldTypeAttachment:
		return openapi3.NewStringSchema().WithFormat("binary")
	default:
		return nil
	}
}

func listOperation(schema Schema, ref string) *openapi3.Operation {
	envelope := openapi3.NewObjectSchema().
		WithProperty("results", openapi3.NewArraySchema().WithItems(openapi3.NewStringSchema())).
		WithProperty("page", openapi3.NewInt64Schema()).
		WithProperty("total_pages", openapi3.NewInt64Schema())
	envelope.Properties["results"].Value.Items = openapi3.NewSchemaRef(ref, nil)

	op := &openapi3.Operation{
		OperationID: "list" + schema.Title,
		Summary:     "List " + string(schema.Kind) + " entities",
		Responses: openapi3.NewResponses(
			openapi3.WithStatus(http.StatusOK, &openapi3.ResponseRef{
				Value: openapi3.NewResponse().WithDescription("page of entities").WithJSONSchema(envelope),
			}),
		),
	}
	if schema.Paginated {
		op.Parameters = openapi3.Parameters{
			{Value: openapi3.NewQueryParameter("page").WithSchema(openapi3.NewInt64Schema())},
			{Value: openapi3.NewQueryParameter("limit").WithSchema(openapi3.NewInt64Schema())},
		}
	}
	return op
}

func writeOperation(schema Schema, ref, verb string) *openapi3.Operation {
	mediaType := "application/json"
	if schema.Multipart() {
		mediaType = "multipart/form-data"
	}
	body := openapi3.NewRequestBody().
		WithRequired(true).
		WithContent(openapi3.NewContentWithSchemaRef(openapi3.NewSchemaRef(ref, nil), []string{mediaType}))

	return &openapi3.Operation{
		OperationID: verb + schema.Title,
		RequestBody: &openapi3.RequestBodyRef{Value: body},
		Responses: openapi3.NewResponses(
			openapi3.WithStatus(http.StatusOK, &openapi3.ResponseRef{
				Value: openapi3.NewResponse().WithDescription(verb + "d entity").WithJSONSchemaRef(openapi3.NewSchemaRef(ref, nil)),
			}),
		),
	}
}

func deleteOperation(schema Schema) *openapi3.Operation {
	return &openapi3.Operation{
		OperationID: "delete" + schema.Title,
		Responses: openapi3.NewResponses(
			openapi3.WithStatus(http.StatusOK, &openapi3.ResponseRef{
				Value: openapi3.NewResponse().WithDescription("deleted"),
			}),
		),
	}
}
