// Package editor walks a form session field by field through a prompt
// driver.
package editor

import (
	"context"
	"errors"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-formsync/pkg/encode"
	"github.com/goliatone/go-formsync/pkg/entity"
	"github.com/goliatone/go-formsync/pkg/form"
	"github.com/goliatone/go-formsync/pkg/picker"
	"github.com/goliatone/go-formsync/pkg/prompt"
	"github.com/goliatone/go-formsync/pkg/record"
)

// DefaultFilterThreshold is the option count above which multi pickers ask
// for a filter term first.
const DefaultFilterThreshold = 15

// Option customises an Editor.
type Option func(*Editor)

// WithFilterThreshold overrides DefaultFilterThreshold. Zero disables
// filtering.
func WithFilterThreshold(n int) Option {
	return func(e *Editor) {
		e.filterThreshold = n
	}
}

// WithReadFile replaces os.ReadFile for attachment fields.
func WithReadFile(fn func(string) ([]byte, error)) Option {
	return func(e *Editor) {
		if fn != nil {
			e.readFile = fn
		}
	}
}

// Editor prompts for every field of a session.
type Editor struct {
	driver          prompt.Driver
	policy          *bluemonday.Policy
	readFile        func(string) ([]byte, error)
	filterThreshold int
}

// New creates an editor over driver.
func New(driver prompt.Driver, opts ...Option) *Editor {
	e := &Editor{
		driver:          driver,
		policy:          bluemonday.StrictPolicy(),
		readFile:        os.ReadFile,
		filterThreshold: DefaultFilterThreshold,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Edit prompts for each field in schema order. Each relation prompt waits
// only for the options of its own target kind.
func (e *Editor) Edit(ctx context.Context, session *form.Session) error {
	if session == nil {
		return errors.New("editor: nil session")
	}
	for _, field := range session.Schema().Fields {
		var err error
		switch field.Type {
		case entity.FieldTypeRef, entity.FieldTypeRefSet:
			if err := session.WaitPicker(ctx, field.Name); err != nil {
				return err
			}
			p, ok := session.Picker(field.Name)
			if !ok {
				return fmt.Errorf("editor: no picker for %s", field.Name)
			}
			if field.Type == entity.FieldTypeRef {
				err = e.promptRef(ctx, field, p)
			} else {
				err = e.promptRefSet(ctx, field, p)
			}
		case entity.FieldTypeBoolean:
			err = e.promptBoolean(ctx, field, session)
		case entity.FieldTypeInteger, entity.FieldTypeNumber:
			err = e.promptNumber(ctx, field, session)
		case entity.FieldTypeAttachment:
			err = e.promptAttachment(ctx, field, session)
		default:
			err = e.promptString(ctx, field, session)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Sanitize strips markup from free text and restores plain entities so
// "Tom & Jerry" survives unchanged.
func (e *Editor) Sanitize(text string) string {
	return strings.TrimSpace(html.UnescapeString(e.policy.Sanitize(text)))
}

func (e *Editor) promptString(ctx context.Context, field entity.Field, session *form.Session) error {
	label := field.DisplayLabel()
	current := session.Record().String(field.Name)

	for {
		var response string
		var err error
		if field.Format == "textarea" {
			response, err = e.driver.TextArea(ctx, prompt.TextAreaConfig{Message: label, Default: current})
		} else {
			response, err = e.driver.Input(ctx, prompt.InputConfig{Message: label, Default: current, Help: formatHelp(field)})
		}
		if err != nil {
			return err
		}

		clean := e.Sanitize(response)
		if field.Required && clean == "" {
			_ = e.driver.Info(ctx, fmt.Sprintf("Invalid %s: required", field.Name))
			continue
		}
		return session.Set(field.Name, clean)
	}
}

func (e *Editor) promptBoolean(ctx context.Context, field entity.Field, session *form.Session) error {
	resp, err := e.driver.Confirm(ctx, prompt.ConfirmConfig{
		Message: field.DisplayLabel(),
		Default: session.Record().Bool(field.Name),
	})
	if err != nil {
		return err
	}
	return session.Set(field.Name, resp)
}

func (e *Editor) promptNumber(ctx context.Context, field entity.Field, session *form.Session) error {
	current, _ := session.Record().Get(field.Name)
	for {
		input, err := e.driver.Input(ctx, prompt.InputConfig{
			Message: field.DisplayLabel(),
			Default: encode.FormatScalar(current),
		})
		if err != nil {
			return err
		}
		input = strings.TrimSpace(input)

		var parsed any
		if field.Type == entity.FieldTypeInteger {
			i := int64(0)
			if input != "" {
				i, err = strconv.ParseInt(input, 10, 64)
			}
			parsed = i
		} else {
			f := float64(0)
			if input != "" {
				f, err = strconv.ParseFloat(input, 64)
			}
			parsed = f
		}
		if err != nil {
			_ = e.driver.Info(ctx, fmt.Sprintf("Invalid %s: %v", field.Name, err))
			continue
		}
		return session.Set(field.Name, parsed)
	}
}

func (e *Editor) promptRef(ctx context.Context, field entity.Field, p *picker.Picker) error {
	label := field.DisplayLabel()
	if len(p.Options()) == 0 {
		return e.promptManualRef(ctx, field, p)
	}

	choices := p.Choices()
	defaultIdx := 0
	if checked := p.Checked(choices); len(checked) > 0 {
		defaultIdx = checked[0]
	}
	for {
		idx, err := e.driver.Select(ctx, prompt.SelectConfig{
			Message:      label,
			Options:      choiceLabels(choices),
			DefaultIndex: defaultIdx,
		})
		if err != nil {
			return err
		}
		if idx < 0 || idx >= len(choices) {
			_ = e.driver.Info(ctx, fmt.Sprintf("Invalid %s selection", field.Name))
			continue
		}
		if field.Required && choices[idx].Sentinel {
			_ = e.driver.Info(ctx, fmt.Sprintf("Invalid %s: required", field.Name))
			continue
		}
		return p.Choose(choices, idx)
	}
}

func (e *Editor) promptManualRef(ctx context.Context, field entity.Field, p *picker.Picker) error {
	current := ""
	if selected := p.Selected(); len(selected) > 0 {
		current = selected[0]
	}
	for {
		val, err := e.driver.Input(ctx, prompt.InputConfig{
			Message: field.DisplayLabel() + " id",
			Default: current,
			Help:    "no " + string(field.Target) + " options available",
		})
		if err != nil {
			return err
		}
		val = strings.TrimSpace(val)
		if field.Required && val == "" {
			_ = e.driver.Info(ctx, fmt.Sprintf("Invalid %s: required", field.Name))
			continue
		}
		return p.ChooseID(val)
	}
}

func (e *Editor) promptRefSet(ctx context.Context, field entity.Field, p *picker.Picker) error {
	if len(p.Options()) == 0 {
		return e.promptManualRefSet(ctx, field, p)
	}

	label := field.DisplayLabel()
	for {
		choices := p.Choices()
		if e.filterThreshold > 0 && len(choices) > e.filterThreshold {
			term, err := e.driver.Input(ctx, prompt.InputConfig{
				Message: "Filter " + label,
				Help:    "leave empty to list every option",
			})
			if err != nil {
				return err
			}
			choices = p.Filter(term)
		}

		indices, err := e.driver.MultiSelect(ctx, prompt.SelectConfig{
			Message:  label,
			Options:  choiceLabels(choices),
			Defaults: p.Checked(choices),
		})
		if err != nil {
			return err
		}

		ids := mergeSelection(p.Selected(), choices, indices)
		if field.Required && len(ids) == 0 {
			_ = e.driver.Info(ctx, fmt.Sprintf("Invalid %s: select at least one", field.Name))
			continue
		}
		return p.Select(ids)
	}
}

func (e *Editor) promptManualRefSet(ctx context.Context, field entity.Field, p *picker.Picker) error {
	entries := p.Selected()
	label := field.DisplayLabel()
	if len(entries) > 0 {
		keep, err := e.driver.Confirm(ctx, prompt.ConfirmConfig{
			Message: fmt.Sprintf("Keep %s (%s)?", label, strings.Join(entries, ", ")),
			Default: true,
		})
		if err != nil {
			return err
		}
		if keep {
			return nil
		}
		entries = nil
	}

	for {
		more, err := e.driver.Confirm(ctx, prompt.ConfirmConfig{Message: "Add " + label + " id?"})
		if err != nil {
			return err
		}
		if !more {
			if field.Required && len(entries) == 0 {
				_ = e.driver.Info(ctx, fmt.Sprintf("Invalid %s: enter at least one id", field.Name))
				continue
			}
			return p.Select(entries)
		}
		val, err := e.driver.Input(ctx, prompt.InputConfig{Message: label + " id"})
		if err != nil {
			return err
		}
		if val = strings.TrimSpace(val); val != "" {
			entries = append(entries, val)
		}
	}
}

func (e *Editor) promptAttachment(ctx context.Context, field entity.Field, session *form.Session) error {
	for {
		path, err := e.driver.Input(ctx, prompt.InputConfig{
			Message: field.DisplayLabel() + " file",
			Help:    "path to a file to upload; leave empty to keep the current one",
		})
		if err != nil {
			return err
		}
		path = strings.TrimSpace(path)
		if path == "" {
			return nil
		}
		data, err := e.readFile(path)
		if err != nil {
			_ = e.driver.Info(ctx, fmt.Sprintf("Invalid %s: %v", field.Name, err))
			continue
		}
		return session.Attach(field.Name, record.Attachment{Filename: filepath.Base(path), Data: data})
	}
}

// mergeSelection keeps previously selected ids that are still checked, or
// were hidden by the filter, in their existing order and appends newly
// checked ids in the order the driver returned them.
func mergeSelection(selected []string, choices []picker.Choice, indices []int) []string {
	shown := make(map[string]struct{}, len(choices))
	for _, choice := range choices {
		shown[choice.ID] = struct{}{}
	}
	checked := make(map[string]struct{}, len(indices))
	var picked []string
	for _, idx := range indices {
		if idx < 0 || idx >= len(choices) {
			continue
		}
		id := choices[idx].ID
		if _, dup := checked[id]; !dup {
			checked[id] = struct{}{}
			picked = append(picked, id)
		}
	}

	ids := make([]string, 0, len(selected)+len(picked))
	kept := make(map[string]struct{}, len(selected))
	for _, id := range selected {
		_, visible := shown[id]
		_, stillChecked := checked[id]
		if !visible || stillChecked {
			ids = append(ids, id)
			kept[id] = struct{}{}
		}
	}
	for _, id := range picked {
		if _, ok := kept[id]; !ok {
			ids = append(ids, id)
		}
	}
	return ids
}

func choiceLabels(choices []picker.Choice) []string {
	out := make([]string, len(choices))
	for i, choice := range choices {
		out[i] = choice.Label
		if choice.Missing {
			out[i] = choice.Label + " (unavailable)"
		}
	}
	return out
}

func formatHelp(field entity.Field) string {
	if field.Format == "date" {
		return "YYYY-MM-DD"
	}
	return ""
}
