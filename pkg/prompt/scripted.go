package prompt

import (
	"context"
	"errors"
	"sync"
)

// ErrNoAnswer is returned by Scripted when a prompt has no scripted answer.
var ErrNoAnswer = errors.New("prompt: no scripted answer")

// Scripted answers prompts from fixed queues, one per prompt kind. It records
// every prompt message and Info line. Useful for tests and non-interactive
// runs.
type Scripted struct {
	Inputs    []string
	Confirms  []bool
	Selects   []int
	Multis    [][]int
	TextAreas []string

	mu       sync.Mutex
	asked    []string
	infos    []string
	selected []SelectConfig
}

func (s *Scripted) record(message string) {
	s.asked = append(s.asked, message)
}

// Input implements Driver.
func (s *Scripted) Input(_ context.Context, cfg InputConfig) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(cfg.Message)
	if len(s.Inputs) == 0 {
		return "", ErrNoAnswer
	}
	val := s.Inputs[0]
	s.Inputs = s.Inputs[1:]
	if cfg.Validator != nil {
		if err := cfg.Validator(val); err != nil {
			return "", err
		}
	}
	return val, nil
}

// Confirm implements Driver.
func (s *Scripted) Confirm(_ context.Context, cfg ConfirmConfig) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(cfg.Message)
	if len(s.Confirms) == 0 {
		return false, ErrNoAnswer
	}
	val := s.Confirms[0]
	s.Confirms = s.Confirms[1:]
	return val, nil
}

// Select implements Driver.
func (s *Scripted) Select(_ context.Context, cfg SelectConfig) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(cfg.Message)
	s.selected = append(s.selected, cfg)
	if len(s.Selects) == 0 {
		return -1, ErrNoAnswer
	}
	val := s.Selects[0]
	s.Selects = s.Selects[1:]
	return val, nil
}

// MultiSelect implements Driver.
func (s *Scripted) MultiSelect(_ context.Context, cfg SelectConfig) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(cfg.Message)
	s.selected = append(s.selected, cfg)
	if len(s.Multis) == 0 {
		return nil, ErrNoAnswer
	}
	val := s.Multis[0]
	s.Multis = s.Multis[1:]
	return val, nil
}

// TextArea implements Driver.
func (s *Scripted) TextArea(_ context.Context, cfg TextAreaConfig) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(cfg.Message)
	if len(s.TextAreas) == 0 {
		return "", ErrNoAnswer
	}
	val := s.TextAreas[0]
	s.TextAreas = s.TextAreas[1:]
	return val, nil
}

// Info implements Driver.
func (s *Scripted) Info(_ context.Context, msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.infos = append(s.infos, msg)
	return nil
}

// Asked returns the prompt messages in order.
func (s *Scripted) Asked() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.asked...)
}

// Infos returns the Info lines in order.
func (s *Scripted) Infos() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.infos...)
}

// SelectConfigs returns the configurations of every select and multi-select
// prompt in order.
func (s *Scripted) SelectConfigs() []SelectConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SelectConfig(nil), s.selected...)
}

// Remaining reports how many scripted answers were not consumed.
func (s *Scripted) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Inputs) + len(s.Confirms) + len(s.Selects) + len(s.Multis) + len(s.TextAreas)
}
