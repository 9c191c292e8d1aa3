// Package picker binds a reference or reference-set field of a record to the
// options produced by the resolver.
package picker

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/goliatone/go-formsync/pkg/entity"
	"github.com/goliatone/go-formsync/pkg/record"
	"github.com/goliatone/go-formsync/pkg/resolver"
)

// Mode distinguishes single and multi selection.
type Mode int

const (
	Single Mode = iota
	Multi
)

func (m Mode) String() string {
	if m == Multi {
		return "multi"
	}
	return "single"
}

var (
	// ErrNotRelation is returned when binding a picker to a plain field.
	ErrNotRelation = errors.New("picker: field is not a relation")
	// ErrWrongMode is returned when a single-mode operation is used on a
	// multi picker and vice versa.
	ErrWrongMode = errors.New("picker: operation not supported in this mode")
	// ErrOutOfRange is returned for choice indices outside Choices().
	ErrOutOfRange = errors.New("picker: choice index out of range")
)

// Choice is one rendered entry. The unselected sentinel has an empty ID.
type Choice struct {
	ID       string
	Label    string
	Sentinel bool
	// Missing marks a selected identifier with no matching option.
	Missing bool
}

// Picker reads and writes one relation field of a record. Options may be
// replaced at any time, including from other goroutines; selection
// operations run on the caller's goroutine.
type Picker struct {
	field entity.Field
	mode  Mode
	rec   *record.Record

	mu      sync.RWMutex
	options []resolver.Option
	loaded  bool
	done    chan struct{}
}

// New binds a picker to field of rec. Reference fields get a single picker,
// reference sets a multi picker.
func New(field entity.Field, rec *record.Record) (*Picker, error) {
	if rec == nil {
		return nil, fmt.Errorf("picker: %s: nil record", field.Name)
	}
	p := &Picker{field: field, rec: rec, done: make(chan struct{})}
	switch field.Type {
	case entity.FieldTypeRef:
		p.mode = Single
	case entity.FieldTypeRefSet:
		p.mode = Multi
		if _, ok := rec.Values[field.Name].([]string); !ok {
			rec.Set(field.Name, []string{})
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrNotRelation, field.Name)
	}
	return p, nil
}

// Field returns the bound field declaration.
func (p *Picker) Field() entity.Field { return p.field }

// Mode returns the selection mode.
func (p *Picker) Mode() Mode { return p.mode }

// SetOptions replaces the option list.
func (p *Picker) SetOptions(options []resolver.Option) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.options = append([]resolver.Option{}, options...)
	if !p.loaded {
		p.loaded = true
		close(p.done)
	}
}

// LoadedC is closed by the first SetOptions call.
func (p *Picker) LoadedC() <-chan struct{} { return p.done }

// Loaded reports whether options have been delivered at least once.
func (p *Picker) Loaded() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loaded
}

// Options returns a copy of the current options.
func (p *Picker) Options() []resolver.Option {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]resolver.Option{}, p.options...)
}

// Selected returns the identifiers currently held by the field.
func (p *Picker) Selected() []string {
	if p.mode == Multi {
		return p.rec.Refs(p.field.Name)
	}
	if id := p.rec.Ref(p.field.Name); id != "" {
		return []string{id}
	}
	return []string{}
}

// Choices returns the entries to render. Single pickers start with the
// unselected sentinel. Selected identifiers missing from the options are
// appended and labelled by identifier so a partial option list never hides
// the current value.
func (p *Picker) Choices() []Choice {
	options := p.Options()
	out := make([]Choice, 0, len(options)+1)
	if p.mode == Single {
		out = append(out, Choice{Label: "Select " + p.field.DisplayLabel(), Sentinel: true})
	}

	known := make(map[string]struct{}, len(options))
	for _, opt := range options {
		known[opt.ID] = struct{}{}
		label := opt.Label
		if label == "" {
			label = opt.ID
		}
		out = append(out, Choice{ID: opt.ID, Label: label})
	}
	for _, id := range p.Selected() {
		if _, ok := known[id]; ok {
			continue
		}
		known[id] = struct{}{}
		out = append(out, Choice{ID: id, Label: id, Missing: true})
	}
	return out
}

// Checked returns the indices into choices of the selected entries, in
// choice order. A single picker with no value reports the sentinel.
func (p *Picker) Checked(choices []Choice) []int {
	selected := make(map[string]struct{})
	for _, id := range p.Selected() {
		selected[id] = struct{}{}
	}
	var out []int
	for i, choice := range choices {
		if choice.Sentinel {
			if p.mode == Single && len(selected) == 0 {
				out = append(out, i)
			}
			continue
		}
		if _, ok := selected[choice.ID]; ok {
			out = append(out, i)
		}
	}
	return out
}

// ChooseID sets a single picker to id. The empty id clears the field.
func (p *Picker) ChooseID(id string) error {
	if p.mode != Single {
		return ErrWrongMode
	}
	p.rec.Set(p.field.Name, strings.TrimSpace(id))
	return nil
}

// Choose sets a single picker from an index into choices.
func (p *Picker) Choose(choices []Choice, index int) error {
	if p.mode != Single {
		return ErrWrongMode
	}
	if index < 0 || index >= len(choices) {
		return ErrOutOfRange
	}
	return p.ChooseID(choices[index].ID)
}

// Select replaces the value of a multi picker with ids in the given order.
// A nil selection is stored as an empty list.
func (p *Picker) Select(ids []string) error {
	if p.mode != Multi {
		return ErrWrongMode
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	p.rec.Set(p.field.Name, out)
	return nil
}

// SelectIndices replaces the value of a multi picker with the entries of
// choices at indices, in the order given.
func (p *Picker) SelectIndices(choices []Choice, indices []int) error {
	if p.mode != Multi {
		return ErrWrongMode
	}
	ids := make([]string, 0, len(indices))
	for _, index := range indices {
		if index < 0 || index >= len(choices) {
			return ErrOutOfRange
		}
		if choices[index].Sentinel {
			continue
		}
		ids = append(ids, choices[index].ID)
	}
	return p.Select(ids)
}

// Clear empties the field: "" for single pickers, [] for multi pickers.
func (p *Picker) Clear() {
	if p.mode == Multi {
		p.rec.Set(p.field.Name, []string{})
		return
	}
	p.rec.Set(p.field.Name, "")
}

// Filter ranks non-sentinel choices by fuzzy match of term against their
// labels, best match first. An empty term returns every choice.
func (p *Picker) Filter(term string) []Choice {
	choices := p.Choices()
	candidates := make([]Choice, 0, len(choices))
	for _, choice := range choices {
		if !choice.Sentinel {
			candidates = append(candidates, choice)
		}
	}
	term = strings.TrimSpace(term)
	if term == "" {
		return candidates
	}

	labels := make([]string, len(candidates))
	for i, choice := range candidates {
		labels[i] = choice.Label
	}
	ranks := fuzzy.RankFindNormalizedFold(term, labels)
	sort.Stable(ranks)

	out := make([]Choice, 0, len(ranks))
	for _, rank := range ranks {
		out = append(out, candidates[rank.OriginalIndex])
	}
	return out
}
