// Package encode builds the HTTP request for a form submission: create vs.
// update from the record identifier, JSON vs. multipart from the schema.
package encode

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"

	"github.com/goliatone/go-formsync/pkg/entity"
	"github.com/goliatone/go-formsync/pkg/errs"
	"github.com/goliatone/go-formsync/pkg/record"
)

const contentTypeJSON = "application/json"

// Request is a fully encoded mutation ready to be sent.
type Request struct {
	Method      string
	URL         string
	ContentType string
	Body        []byte
	// Op describes the mutation for logs and errors ("create game").
	Op string
}

// Option customises an Encoder.
type Option func(*Encoder)

// WithBoundary fixes the multipart boundary. Intended for tests that compare
// raw bodies.
func WithBoundary(boundary string) Option {
	return func(e *Encoder) {
		e.boundary = boundary
	}
}

// Encoder turns records into requests against the collection endpoints under
// baseURL.
type Encoder struct {
	baseURL  string
	boundary string
	validate *validator.Validate
}

// New creates an encoder for the API rooted at baseURL.
func New(baseURL string, opts ...Option) *Encoder {
	enc := &Encoder{
		baseURL:  strings.TrimRight(baseURL, "/"),
		validate: validator.New(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(enc)
		}
	}
	return enc
}

// Op names the mutation a record would produce.
func Op(rec record.Record) string {
	if rec.IsNew() {
		return "create " + string(rec.Kind)
	}
	return "update " + string(rec.Kind)
}

// Encode validates the record and builds its request. Validation failures are
// returned as errs.KindValidation before any body is produced.
func (e *Encoder) Encode(rec record.Record, schema entity.Schema) (Request, error) {
	op := Op(rec)
	if err := e.Validate(rec, schema); err != nil {
		return Request{}, err
	}

	req := Request{
		Method: http.MethodPost,
		URL:    schema.CollectionURL(e.baseURL),
		Op:     op,
	}
	if !rec.IsNew() {
		req.Method = http.MethodPatch
		req.URL = schema.ItemURL(e.baseURL, rec.ID)
	}

	var err error
	if schema.Multipart() {
		req.ContentType, req.Body, err = e.multipart(rec, schema)
	} else {
		req.ContentType = contentTypeJSON
		req.Body, err = encodeJSON(rec, schema)
	}
	if err != nil {
		return Request{}, fmt.Errorf("encode: %s: %w", op, err)
	}
	return req, nil
}

// Validate reports every required field left empty. Numbers and flags always
// satisfy required since their zero values are meaningful.
func (e *Encoder) Validate(rec record.Record, schema entity.Schema) error {
	var missing []string
	for _, field := range schema.Fields {
		if !field.Required {
			continue
		}
		var err error
		switch field.Type {
		case entity.FieldTypeString, entity.FieldTypeRef:
			err = e.validate.Var(strings.TrimSpace(rec.String(field.Name)), "required")
		case entity.FieldTypeRefSet:
			err = e.validate.Var(rec.Refs(field.Name), "required,min=1")
		case entity.FieldTypeAttachment:
			if _, ok := rec.Files[field.Name]; !ok {
				missing = append(missing, field.Name)
			}
		}
		if err != nil {
			missing = append(missing, field.Name)
		}
	}
	if len(missing) > 0 {
		return errs.Validation(Op(rec), missing...)
	}
	return nil
}

func encodeJSON(rec record.Record, schema entity.Schema) ([]byte, error) {
	body := make(map[string]any, len(schema.Fields)+1)
	if !rec.IsNew() {
		body[schema.Identifier()] = rec.ID
	}
	for _, field := range schema.Fields {
		switch field.Type {
		case entity.FieldTypeAttachment:
			continue
		case entity.FieldTypeRefSet:
			body[field.Name] = rec.Refs(field.Name)
		default:
			value, ok := rec.Get(field.Name)
			if !ok || value == nil {
				value = field.Zero()
			}
			body[field.Name] = value
		}
	}
	return json.Marshal(body)
}

func (e *Encoder) multipart(rec record.Record, schema entity.Schema) (string, []byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if e.boundary != "" {
		if err := writer.SetBoundary(e.boundary); err != nil {
			return "", nil, err
		}
	}

	if !rec.IsNew() {
		if err := writer.WriteField(schema.Identifier(), rec.ID); err != nil {
			return "", nil, err
		}
	}

	for _, field := range schema.Fields {
		var err error
		switch field.Type {
		case entity.FieldTypeAttachment:
			file, ok := rec.Files[field.Name]
			if !ok {
				continue
			}
			err = writeFile(writer, field.Name, file)
		case entity.FieldTypeRefSet:
			err = writeRefs(writer, field, rec.Refs(field.Name))
		default:
			value, ok := rec.Get(field.Name)
			if !ok || value == nil {
				value = field.Zero()
			}
			err = writer.WriteField(field.Name, FormatScalar(value))
		}
		if err != nil {
			return "", nil, err
		}
	}

	if err := writer.Close(); err != nil {
		return "", nil, err
	}
	return writer.FormDataContentType(), buf.Bytes(), nil
}

func writeRefs(writer *multipart.Writer, field entity.Field, ids []string) error {
	if field.ArrayStrategy() == entity.ArrayJSON {
		raw, err := json.Marshal(ids)
		if err != nil {
			return err
		}
		return writer.WriteField(field.Name, string(raw))
	}
	for _, id := range ids {
		if err := writer.WriteField(field.Name, id); err != nil {
			return err
		}
	}
	return nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func writeFile(writer *multipart.Writer, name string, file record.Attachment) error {
	filename := file.Filename
	if filename == "" {
		filename = name
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(name), quoteEscaper.Replace(filename)))
	header.Set("Content-Type", mimetype.Detect(file.Data).String())

	part, err := writer.CreatePart(header)
	if err != nil {
		return err
	}
	_, err = part.Write(file.Data)
	return err
}

// FormatScalar renders a record value as multipart text: booleans as
// true/false and numbers in their shortest decimal form.
func FormatScalar(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
