package factory

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	apperrors "github.com/louisbranch/classfactory/internal/platform/errors"
)

var (
	// ErrDefinitionNotFound matches (via errors.Is) lookups of undefined templates.
	ErrDefinitionNotFound = apperrors.New(apperrors.CodeDefinitionNotFound, "definition not found")
	// ErrTemplateNameRequired matches (via errors.Is) Define calls with a blank name.
	ErrTemplateNameRequired = apperrors.New(apperrors.CodeTemplateNameRequired, "template name is required")
)

// Registry stores template definitions by name.
type Registry struct {
	mu          sync.RWMutex
	definitions map[string]Definition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{definitions: map[string]Definition{}}
}

// Define stores a template built from opts, replacing any previous template
// of the same name. A non-nil schemaFn takes precedence over opts.Schema.
func (r *Registry) Define(name string, opts Options, schemaFn SchemaFunc) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return apperrors.New(apperrors.CodeTemplateNameRequired, "template name is required")
	}
	def := newDefinition(name, opts, schemaFn)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.definitions[name] = def
	return nil
}

// Lookup returns a copy of the template stored under name.
func (r *Registry) Lookup(name string) (Definition, error) {
	r.mu.RLock()
	def, ok := r.definitions[strings.TrimSpace(name)]
	r.mu.RUnlock()
	if !ok {
		return Definition{}, apperrors.WithMetadata(
			apperrors.CodeDefinitionNotFound,
			fmt.Sprintf("no class factory defined for %q", name),
			map[string]string{"Template": name},
		)
	}
	return def, nil
}

// Names returns the sorted template names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.definitions))
	for name := range r.definitions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
