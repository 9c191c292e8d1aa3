package prompt_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formsync/pkg/prompt"
)

func TestScripted_ConsumesAnswersInOrder(t *testing.T) {
	driver := &prompt.Scripted{
		Inputs:   []string{"a", "b"},
		Confirms: []bool{true},
		Selects:  []int{2},
		Multis:   [][]int{{0, 1}},
	}
	ctx := context.Background()

	first, _ := driver.Input(ctx, prompt.InputConfig{Message: "first"})
	second, _ := driver.Input(ctx, prompt.InputConfig{Message: "second"})
	ok, _ := driver.Confirm(ctx, prompt.ConfirmConfig{Message: "sure?"})
	idx, _ := driver.Select(ctx, prompt.SelectConfig{Message: "pick", Options: []string{"x", "y", "z"}})
	multi, _ := driver.MultiSelect(ctx, prompt.SelectConfig{Message: "many"})
	_ = driver.Info(ctx, "done")

	if first != "a" || second != "b" || !ok || idx != 2 {
		t.Fatalf("unexpected answers %q %q %v %d", first, second, ok, idx)
	}
	if diff := cmp.Diff([]int{0, 1}, multi); diff != "" {
		t.Fatalf("multi mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"first", "second", "sure?", "pick", "many"}, driver.Asked()); diff != "" {
		t.Fatalf("asked mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"done"}, driver.Infos()); diff != "" {
		t.Fatalf("infos mismatch (-want +got):\n%s", diff)
	}
	if driver.Remaining() != 0 {
		t.Fatalf("expected all answers consumed")
	}
}

func TestScripted_RunsValidatorAndReportsExhaustion(t *testing.T) {
	driver := &prompt.Scripted{Inputs: []string{"nope"}}
	invalid := errors.New("invalid")

	_, err := driver.Input(context.Background(), prompt.InputConfig{
		Validator: func(string) error { return invalid },
	})
	if !errors.Is(err, invalid) {
		t.Fatalf("expected validator error, got %v", err)
	}
	if _, err := driver.Confirm(context.Background(), prompt.ConfirmConfig{}); !errors.Is(err, prompt.ErrNoAnswer) {
		t.Fatalf("expected ErrNoAnswer, got %v", err)
	}
}
