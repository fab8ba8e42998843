package typesys

import (
	"fmt"
	"sort"
	"sync"
	"unicode"
)

// Namespace maps canonical type names to bound types.
type Namespace struct {
	mu    sync.RWMutex
	types map[string]*Type
}

// NewNamespace creates an empty namespace.
func NewNamespace() *Namespace {
	return &Namespace{types: map[string]*Type{}}
}

// BindOption configures a type before it becomes visible in a namespace.
type BindOption func(*Type)

// WithTable records the backing table of a persistent type.
func WithTable(table string) BindOption {
	return func(t *Type) {
		t.table = table
	}
}

// Bind discards any type bound under name, then creates and binds a new type
// deriving from base. Each call returns a brand-new type. Options are applied
// before the type is published, so a concurrent Lookup never observes a
// partially configured type.
func (n *Namespace) Bind(name string, base *Type, opts ...BindOption) (*Type, error) {
	if base == nil {
		return nil, fmt.Errorf("bind %q: %w: base is required", name, ErrInvalidBase)
	}
	if !validName(name) {
		return nil, fmt.Errorf("bind %q: %w", name, ErrInvalidName)
	}
	t := newType(name, base)
	for _, opt := range opts {
		opt(t)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.types, name)
	n.types[name] = t
	return t, nil
}

// Lookup returns the type bound under name.
func (n *Namespace) Lookup(name string) (*Type, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	t, ok := n.types[name]
	return t, ok
}

// Unbind removes the binding for name and reports whether one existed.
func (n *Namespace) Unbind(name string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, ok := n.types[name]
	delete(n.types, name)
	return ok
}

// Names returns the sorted bound names.
func (n *Namespace) Names() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	names := make([]string, 0, len(n.types))
	for name := range n.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// validName accepts exported Go-style identifiers.
func validName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		if i == 0 && !unicode.IsUpper(r) {
			return false
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}
	return true
}
