package entity

import (
	"fmt"
	"sync"
)

// Registry stores schemas by kind and guards against duplicate registration.
type Registry struct {
	mu      sync.RWMutex
	schemas map[Kind]Schema
	order   []Kind
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		schemas: make(map[Kind]Schema),
	}
}

// Register validates and stores a schema. Duplicate kinds return an error.
func (r *Registry) Register(schema Schema) error {
	if err := schema.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.schemas[schema.Kind]; exists {
		return fmt.Errorf("entity: schema %q already registered", schema.Kind)
	}
	r.schemas[schema.Kind] = schema
	r.order = append(r.order, schema.Kind)
	return nil
}

// MustRegister panics on registration failure. Useful for init-time wiring.
func (r *Registry) MustRegister(schema Schema) {
	if err := r.Register(schema); err != nil {
		panic(err)
	}
}

// Get retrieves a schema by kind.
func (r *Registry) Get(kind Kind) (Schema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	schema, ok := r.schemas[kind]
	if !ok {
		return Schema{}, fmt.Errorf("entity: schema %q not found", kind)
	}
	return schema, nil
}

// Has reports whether a schema is registered for the kind.
func (r *Registry) Has(kind Kind) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.schemas[kind]
	return ok
}

// List returns registered kinds in registration order.
func (r *Registry) List() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Kind(nil), r.order...)
}
