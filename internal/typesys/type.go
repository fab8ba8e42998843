// Package typesys models runtime types produced by the class factory.
//
// A Type is a named handle with a base type, a set of inherited capability
// markers and a method table that body extensions populate. Types are bound
// by name in a Namespace; rebinding a name always produces a brand-new Type.
package typesys

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrNoMethod indicates a method lookup failed on a type and all of its bases.
	ErrNoMethod = errors.New("no such method")
	// ErrInvalidBase indicates a type cannot be constructed from the given base.
	ErrInvalidBase = errors.New("invalid base type")
	// ErrInvalidName indicates a type name is not a valid exported identifier.
	ErrInvalidName = errors.New("invalid type name")
)

// Capability marks a behavior shared by a type and everything derived from it.
type Capability string

// Persistent marks types backed by a storage table.
const Persistent Capability = "persistent"

// Method is behavior attached to a type by a body extension.
type Method func(self *Instance, args ...any) (any, error)

var (
	// Object is the root of every type hierarchy.
	Object = &Type{name: "Object", caps: map[Capability]struct{}{}, methods: map[string]Method{}}
	// Record is the persistent-record base type. Types derived from it are
	// provisioned a backing table on every instantiation.
	Record = NewBase("Record", Object, Persistent)
)

// Type is a runtime type handle.
type Type struct {
	name  string
	base  *Type
	caps  map[Capability]struct{}
	table string

	mu      sync.RWMutex
	methods map[string]Method
}

// NewBase creates an unbound base type deriving from base with extra
// capabilities. A nil base derives from Object.
func NewBase(name string, base *Type, caps ...Capability) *Type {
	if base == nil {
		base = Object
	}
	t := newType(name, base)
	for _, c := range caps {
		t.caps[c] = struct{}{}
	}
	return t
}

func newType(name string, base *Type) *Type {
	caps := make(map[Capability]struct{}, len(base.caps))
	for c := range base.caps {
		caps[c] = struct{}{}
	}
	return &Type{
		name:    name,
		base:    base,
		caps:    caps,
		methods: map[string]Method{},
	}
}

// Name returns the bound name of the type.
func (t *Type) Name() string {
	return t.name
}

// Base returns the direct base type, or nil for Object.
func (t *Type) Base() *Type {
	return t.base
}

// Has reports whether the type carries capability c.
func (t *Type) Has(c Capability) bool {
	if t == nil {
		return false
	}
	_, ok := t.caps[c]
	return ok
}

// Is reports whether t is other or derives from it.
func (t *Type) Is(other *Type) bool {
	for cur := t; cur != nil; cur = cur.base {
		if cur == other {
			return true
		}
	}
	return false
}

// TableName returns the backing table of a persistent type, or "" when the
// type has no table. The table is fixed when the type is bound.
func (t *Type) TableName() string {
	return t.table
}

// Define adds or replaces a method on this type.
func (t *Type) Define(name string, fn Method) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.methods[name] = fn
}

// Method resolves a method on this type or the nearest base defining it.
func (t *Type) Method(name string) (Method, bool) {
	for cur := t; cur != nil; cur = cur.base {
		cur.mu.RLock()
		fn, ok := cur.methods[name]
		cur.mu.RUnlock()
		if ok {
			return fn, true
		}
	}
	return nil, false
}

// Methods returns the sorted names of methods defined directly on this type.
func (t *Type) Methods() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, 0, len(t.methods))
	for name := range t.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New returns a fresh instance of the type.
func (t *Type) New() *Instance {
	return &Instance{typ: t, attrs: map[string]any{}}
}

func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	return t.name
}

// Instance is a value of a runtime type.
type Instance struct {
	typ   *Type
	attrs map[string]any
}

// Type returns the type the instance was created from.
func (i *Instance) Type() *Type {
	return i.typ
}

// Set stores an attribute value.
func (i *Instance) Set(name string, value any) {
	i.attrs[name] = value
}

// Get returns an attribute value.
func (i *Instance) Get(name string) (any, bool) {
	value, ok := i.attrs[name]
	return value, ok
}

// Call invokes a method resolved through the instance's type hierarchy.
func (i *Instance) Call(name string, args ...any) (any, error) {
	fn, ok := i.typ.Method(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s#%s", ErrNoMethod, i.typ.name, name)
	}
	return fn(i, args...)
}
