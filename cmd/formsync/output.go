package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/goliatone/go-formsync/pkg/controller"
	"github.com/goliatone/go-formsync/pkg/encode"
	"github.com/goliatone/go-formsync/pkg/entity"
	"github.com/goliatone/go-formsync/pkg/normalize"
	"github.com/goliatone/go-formsync/pkg/record"
	"github.com/goliatone/go-formsync/pkg/resolver"
)

var errNotFound = errors.New("not found")

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func itemID(schema entity.Schema, raw map[string]any) string {
	return normalize.ID(schema, raw)
}

func printItems(w io.Writer, ctrl *controller.Controller) {
	schema := ctrl.Schema()
	items := ctrl.Items()
	if len(items) == 0 {
		fmt.Fprintf(w, "No %s found\n", schema.Kind)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, item := range items {
		fmt.Fprintf(tw, "%s\t%s\n", itemID(schema, item), schema.Summary(item))
	}
	_ = tw.Flush()
	if schema.Paginated && ctrl.TotalPages() > 0 {
		fmt.Fprintf(w, "page %d/%d\n", ctrl.Page(), ctrl.TotalPages())
	}
}

// findItem scans list pages from the first until id is found. The
// controller is left on the page holding the item.
func findItem(ctx context.Context, ctrl *controller.Controller, id string) (map[string]any, error) {
	schema := ctrl.Schema()
	if err := ctrl.Refresh(ctx); err != nil {
		return nil, err
	}
	for {
		for _, item := range ctrl.Items() {
			if itemID(schema, item) == id {
				return item, nil
			}
		}
		if !ctrl.HasNext() {
			return nil, fmt.Errorf("%s %q: %w", schema.Kind, id, errNotFound)
		}
		if err := ctrl.Next(ctx); err != nil {
			return nil, err
		}
	}
}

// printRecord writes one line per field. Relation values are shown with the
// labels of the loaded options when available.
func printRecord(ctx context.Context, w io.Writer, options *resolver.Resolver, schema entity.Schema, raw map[string]any) {
	rec := normalize.Normalize(schema, raw)

	labels := make(map[entity.Kind]map[string]string)
	for _, kind := range schema.Targets() {
		byID := make(map[string]string)
		for _, opt := range options.LoadOptions(ctx, kind) {
			byID[opt.ID] = opt.Label
		}
		labels[kind] = byID
	}
	describe := func(kind entity.Kind, id string) string {
		if label := labels[kind][id]; label != "" {
			return fmt.Sprintf("%s (%s)", label, id)
		}
		return id
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s\n", "ID", rec.ID)
	for _, field := range schema.Fields {
		var value string
		switch field.Type {
		case entity.FieldTypeAttachment:
			continue
		case entity.FieldTypeRef:
			if id := rec.Ref(field.Name); id != "" {
				value = describe(field.Target, id)
			}
		case entity.FieldTypeRefSet:
			ids := rec.Refs(field.Name)
			parts := make([]string, len(ids))
			for i, id := range ids {
				parts[i] = describe(field.Target, id)
			}
			value = strings.Join(parts, ", ")
		default:
			current, _ := rec.Get(field.Name)
			value = encode.FormatScalar(current)
		}
		fmt.Fprintf(tw, "%s\t%s\n", field.DisplayLabel(), value)
	}
	_ = tw.Flush()
}

func printChanges(w io.Writer, changes []record.Change) {
	if len(changes) == 0 {
		fmt.Fprintln(w, "No changes")
		return
	}
	for _, change := range changes {
		if change.Op == "remove" {
			fmt.Fprintf(w, "  %s %s\n", change.Op, change.Path)
			continue
		}
		value, err := json.Marshal(change.Value)
		if err != nil {
			value = []byte(fmt.Sprint(change.Value))
		}
		fmt.Fprintf(w, "  %s %s = %s\n", change.Op, change.Path, value)
	}
}
