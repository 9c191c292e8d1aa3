package entity

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"
)

var (
	summarySet = pongo2.NewSet("formsync-summary", pongo2.DefaultLoader)

	summaryMu    sync.RWMutex
	summaryCache = make(map[string]*pongo2.Template)
)

// Summary renders the one-line list description of a raw entity through the
// schema's SummaryTemplate. Relation fields are exposed as objects so a
// template can reach embedded names ("home_team.name") whether or not the
// server expanded them. Schemas without a template, or templates that fail to
// render, fall back to OptionLabel.
func (s Schema) Summary(raw map[string]any) string {
	if strings.TrimSpace(s.SummaryTemplate) == "" {
		return s.OptionLabel(raw)
	}
	line, err := s.RenderSummary(raw)
	if err != nil || line == "" {
		return s.OptionLabel(raw)
	}
	return line
}

// RenderSummary executes SummaryTemplate against raw and collapses the
// result to a single line.
func (s Schema) RenderSummary(raw map[string]any) (string, error) {
	tmpl, err := summaryTemplate(s.SummaryTemplate)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteWriter(s.summaryContext(raw), &buf); err != nil {
		return "", fmt.Errorf("entity: render %s summary: %w", s.Kind, err)
	}
	return strings.Join(strings.Fields(buf.String()), " "), nil
}

func summaryTemplate(source string) (*pongo2.Template, error) {
	summaryMu.RLock()
	if tmpl, ok := summaryCache[source]; ok {
		summaryMu.RUnlock()
		return tmpl, nil
	}
	summaryMu.RUnlock()

	summaryMu.Lock()
	defer summaryMu.Unlock()

	if tmpl, ok := summaryCache[source]; ok {
		return tmpl, nil
	}
	tmpl, err := summarySet.FromString("{% autoescape off %}" + source + "{% endautoescape %}")
	if err != nil {
		return nil, fmt.Errorf("entity: parse summary template: %w", err)
	}
	summaryCache[source] = tmpl
	return tmpl, nil
}

func (s Schema) summaryContext(raw map[string]any) pongo2.Context {
	ctx := make(pongo2.Context, len(raw))
	for key, value := range raw {
		ctx[key] = summaryValue(value)
	}
	for _, field := range s.Relations() {
		value, ok := raw[field.Name]
		if !ok || value == nil {
			continue
		}
		if field.Type == FieldTypeRefSet {
			items, _ := value.([]any)
			views := make([]any, 0, len(items))
			for _, item := range items {
				views = append(views, relationView(item))
			}
			ctx[field.Name] = views
			continue
		}
		ctx[field.Name] = relationView(value)
	}
	return ctx
}

// relationView turns a bare identifier or an embedded object into a map that
// always answers "name".
func relationView(value any) map[string]any {
	obj, ok := value.(map[string]any)
	if !ok {
		return map[string]any{DefaultIDField: summaryValue(value), "name": ""}
	}
	view := make(map[string]any, len(obj)+1)
	for key, v := range obj {
		view[key] = summaryValue(v)
	}
	view["name"] = embeddedName(obj)
	return view
}

// summaryValue keeps floats from printing with six decimals.
func summaryValue(value any) any {
	switch v := value.(type) {
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	default:
		return value
	}
}

func text(raw map[string]any, key string) string {
	value, ok := raw[key]
	if !ok || value == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(value))
}

func embeddedName(obj map[string]any) string {
	if name := text(obj, "name"); name != "" {
		return name
	}
	return joinNonEmpty(" ", text(obj, "first_name"), text(obj, "last_name"))
}

func joinNonEmpty(sep string, parts ...string) string {
	out := parts[:0:0]
	for _, part := range parts {
		if part != "" {
			out = append(out, part)
		}
	}
	return strings.Join(out, sep)
}
