// Package errs classifies the failures the synchronization layer can surface:
// transport failures, non-success server responses, undecodable payloads and
// local validation of a record before it is sent.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Kind enumerates the error categories.
type Kind string

const (
	KindNetwork    Kind = "network"
	KindServer     Kind = "server"
	KindDecode     Kind = "decode"
	KindValidation Kind = "validation"
)

// Error is the single error type returned by the client and encoder.
type Error struct {
	Kind Kind
	// Op names the failed operation ("list game", "delete team").
	Op string
	// Status is the HTTP status code of KindServer errors.
	Status int
	// Body holds a trimmed snippet of the server response.
	Body string
	// Fields maps field names to messages. Populated for KindValidation and
	// for server responses carrying field errors.
	Fields map[string][]string
	// Form holds messages that could not be attached to a field.
	Form []string
	Err  error

	order []string
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	switch e.Kind {
	case KindServer:
		fmt.Fprintf(&b, "server responded %d", e.Status)
		if msg := e.summary(); msg != "" {
			b.WriteString(": ")
			b.WriteString(msg)
		}
	case KindValidation:
		b.WriteString("validation failed")
		if names := e.FieldNames(); len(names) > 0 {
			b.WriteString(": missing ")
			b.WriteString(strings.Join(names, ", "))
		}
	default:
		b.WriteString(string(e.Kind))
		b.WriteString(" error")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// FieldNames returns the names of the fields carrying messages in the order
// they were recorded.
func (e *Error) FieldNames() []string {
	if e == nil {
		return nil
	}
	return append([]string(nil), e.order...)
}

func (e *Error) summary() string {
	if len(e.Form) > 0 {
		return strings.Join(e.Form, "; ")
	}
	if len(e.order) > 0 {
		name := e.order[0]
		return name + ": " + strings.Join(e.Fields[name], "; ")
	}
	return e.Body
}

// AddField records a message against a field, keeping first-seen order and
// dropping duplicates.
func (e *Error) AddField(name string, messages ...string) {
	clean := normalizeMessages(messages)
	if len(clean) == 0 {
		return
	}
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	if _, ok := e.Fields[name]; !ok {
		e.order = append(e.order, name)
	}
	e.Fields[name] = normalizeMessages(append(e.Fields[name], clean...))
}

// Is reports whether err (or anything it wraps) is an *Error of the kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// KindOf returns the kind of the first *Error in the chain, or "".
func KindOf(err error) Kind {
	var target *Error
	if errors.As(err, &target) && target != nil {
		return target.Kind
	}
	return ""
}

// As extracts the first *Error in the chain.
func As(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) && target != nil {
		return target, true
	}
	return nil, false
}

// Network wraps a transport failure or timeout.
func Network(op string, err error) *Error {
	return &Error{Kind: KindNetwork, Op: op, Err: err}
}

// Decode wraps a payload that could not be parsed.
func Decode(op string, err error) *Error {
	return &Error{Kind: KindDecode, Op: op, Err: err}
}

// Validation builds a local validation error listing the given fields as
// required.
func Validation(op string, missing ...string) *Error {
	out := &Error{Kind: KindValidation, Op: op}
	for _, name := range missing {
		out.AddField(name, "is required")
	}
	return out
}
