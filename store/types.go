package store

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sync"
)

// TypeRegistry maps property names to Go types so values read back from a JSON-backed
// store can be restored with their original types (e.g. []int instead of []any).
type TypeRegistry struct {
	mu    sync.RWMutex
	types map[string]reflect.Type
}

// NewTypeRegistry creates an empty registry
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{types: make(map[string]reflect.Type)}
}

// Register records T as the type of property name.
func Register[T any](r *TypeRegistry, name string) {
	var zero T
	r.RegisterType(name, reflect.TypeOf(&zero).Elem())
}

// RegisterType records t as the type of property name.
func (r *TypeRegistry) RegisterType(name string, t reflect.Type) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[name] = t
}

// Lookup returns the registered type for name.
func (r *TypeRegistry) Lookup(name string) (reflect.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[name]
	return t, ok
}

// Decode converts a generically decoded JSON value into the registered type for name.
// Unregistered names and nil values are returned unchanged.
func (r *TypeRegistry) Decode(name string, value any) (any, error) {
	t, ok := r.Lookup(name)
	if !ok || value == nil {
		return value, nil
	}
	if reflect.TypeOf(value) == t {
		return value, nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to re-encode %s: %w", name, err)
	}
	target := reflect.New(t)
	if err := json.Unmarshal(data, target.Interface()); err != nil {
		return nil, fmt.Errorf("failed to decode %s as %s: %w", name, t, err)
	}
	return target.Elem().Interface(), nil
}

// DecodeValues applies Decode to every entry of values and returns a new map.
func (r *TypeRegistry) DecodeValues(values map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(values))
	for name, v := range values {
		decoded, err := r.Decode(name, v)
		if err != nil {
			return nil, err
		}
		out[name] = decoded
	}
	return out, nil
}
