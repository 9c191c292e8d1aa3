// Package form holds one editing session: the normalized record, a picker per
// relation field fed asynchronously by the resolver, and submission.
package form

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/goliatone/go-formsync/pkg/encode"
	"github.com/goliatone/go-formsync/pkg/entity"
	"github.com/goliatone/go-formsync/pkg/normalize"
	"github.com/goliatone/go-formsync/pkg/picker"
	"github.com/goliatone/go-formsync/pkg/record"
	"github.com/goliatone/go-formsync/pkg/resolver"
)

var (
	// ErrUnknownField is returned when a field is not declared by the schema.
	ErrUnknownField = errors.New("form: unknown field")
	// ErrFieldType is returned when a value does not match the field type.
	ErrFieldType = errors.New("form: value does not match field type")
)

// OptionSource resolves picker options for several kinds concurrently.
// *resolver.Resolver satisfies it.
type OptionSource interface {
	Resolve(ctx context.Context, kinds []entity.Kind, onLoaded func(entity.Kind, []resolver.Option)) map[entity.Kind][]resolver.Option
}

// Sender delivers an encoded mutation. *client.Client satisfies it.
type Sender interface {
	Send(ctx context.Context, req encode.Request) (map[string]any, error)
}

// Session edits one record. Field edits and submission are expected from a
// single goroutine; option delivery runs in the background and only touches
// the pickers.
type Session struct {
	schema   entity.Schema
	original record.Record
	rec      *record.Record
	pickers  map[string]*picker.Picker
	order    []string

	ready     chan struct{}
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// Open normalizes raw (nil for a new record) and starts loading the options
// of every relation target. Pickers render with whatever options have
// arrived; Ready is closed once all kinds have been attempted.
func Open(ctx context.Context, schema entity.Schema, raw map[string]any, options OptionSource) (*Session, error) {
	rec := normalize.Normalize(schema, raw)
	s := &Session{
		schema:   schema,
		original: rec.Clone(),
		rec:      &rec,
		pickers:  make(map[string]*picker.Picker),
		ready:    make(chan struct{}),
	}

	for _, field := range schema.Relations() {
		p, err := picker.New(field, s.rec)
		if err != nil {
			return nil, fmt.Errorf("form: %s: %w", schema.Kind, err)
		}
		s.pickers[field.Name] = p
		s.order = append(s.order, field.Name)
	}

	targets := schema.Targets()
	if options == nil || len(targets) == 0 {
		s.cancel = func() {}
		close(s.ready)
		return s, nil
	}

	loadCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	go func() {
		defer close(s.ready)
		options.Resolve(loadCtx, targets, s.deliver)
	}()
	return s, nil
}

func (s *Session) deliver(kind entity.Kind, options []resolver.Option) {
	for _, name := range s.order {
		p := s.pickers[name]
		if p.Field().Target == kind {
			p.SetOptions(options)
		}
	}
}

// Schema returns the schema the session edits.
func (s *Session) Schema() entity.Schema { return s.schema }

// IsNew reports whether submitting creates a new entity.
func (s *Session) IsNew() bool { return s.rec.IsNew() }

// Record returns a copy of the current record.
func (s *Session) Record() record.Record { return s.rec.Clone() }

// Original returns the record as it was when the session opened.
func (s *Session) Original() record.Record { return s.original.Clone() }

// Ready is closed once every relation target has finished loading.
func (s *Session) Ready() <-chan struct{} { return s.ready }

// WaitOptions blocks until Ready or ctx is done.
func (s *Session) WaitOptions(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WaitPicker blocks until the options of one relation field have arrived,
// every kind has been attempted, or ctx is done. Pickers of kinds that load
// quickly are usable while slower kinds are still outstanding.
func (s *Session) WaitPicker(ctx context.Context, name string) error {
	p, ok := s.pickers[name]
	if !ok {
		return fmt.Errorf("form: %s: no picker for %s", s.schema.Kind, name)
	}
	select {
	case <-p.LoadedC():
		return nil
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Picker returns the picker bound to a relation field.
func (s *Session) Picker(name string) (*picker.Picker, bool) {
	p, ok := s.pickers[name]
	return p, ok
}

// Pickers returns the pickers in field order.
func (s *Session) Pickers() []*picker.Picker {
	out := make([]*picker.Picker, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.pickers[name])
	}
	return out
}

// Set assigns a field value of the declared type: string, int64, float64,
// bool, or []string for reference sets.
func (s *Session) Set(name string, value any) error {
	field, ok := s.schema.Field(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	if !matches(field, value) {
		return fmt.Errorf("%w: %s expects %s, got %T", ErrFieldType, name, field.Type, value)
	}
	if field.Type == entity.FieldTypeRefSet && value == nil {
		value = []string{}
	}
	s.rec.Set(name, value)
	return nil
}

// Attach selects a file for an attachment field. Passing a zero attachment
// removes the selection.
func (s *Session) Attach(name string, file record.Attachment) error {
	field, ok := s.schema.Field(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	if field.Type != entity.FieldTypeAttachment {
		return fmt.Errorf("%w: %s is not an attachment", ErrFieldType, name)
	}
	if file.Filename == "" && len(file.Data) == 0 {
		s.rec.Detach(name)
		return nil
	}
	s.rec.Attach(name, file)
	return nil
}

// Changes returns the JSON patch between the opened and the current record.
func (s *Session) Changes() ([]record.Change, error) {
	return record.Diff(s.original, *s.rec)
}

// Encode builds the request the session would submit.
func (s *Session) Encode(encoder *encode.Encoder) (encode.Request, error) {
	return encoder.Encode(*s.rec, s.schema)
}

// Submit encodes and sends the record. The session is left untouched on
// failure so the user can retry.
func (s *Session) Submit(ctx context.Context, sender Sender, encoder *encode.Encoder) (map[string]any, error) {
	req, err := s.Encode(encoder)
	if err != nil {
		return nil, err
	}
	return sender.Send(ctx, req)
}

// Close stops outstanding option loads.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
	})
}

func matches(field entity.Field, value any) bool {
	switch field.Type {
	case entity.FieldTypeString, entity.FieldTypeRef:
		_, ok := value.(string)
		return ok
	case entity.FieldTypeInteger:
		_, ok := value.(int64)
		return ok
	case entity.FieldTypeNumber:
		_, ok := value.(float64)
		return ok
	case entity.FieldTypeBoolean:
		_, ok := value.(bool)
		return ok
	case entity.FieldTypeRefSet:
		if value == nil {
			return true
		}
		_, ok := value.([]string)
		return ok
	default:
		return false
	}
}
