package factory

import (
	"strings"

	"github.com/louisbranch/classfactory/internal/naming"
	"github.com/louisbranch/classfactory/internal/schema"
	"github.com/louisbranch/classfactory/internal/typesys"
)

// SchemaFunc declares the columns of a persistent type's table.
type SchemaFunc func(t *schema.Table)

// ExtensionFunc adds behavior to a freshly bound type.
type ExtensionFunc func(t *typesys.Type) error

// Block is the trailing procedure of Create. SchemaFunc and ExtensionFunc
// both implement it; a block replaces only the field matching its own kind.
type Block interface {
	applyTo(d *Definition)
}

func (f SchemaFunc) applyTo(d *Definition) {
	if f != nil {
		d.schema = f
	}
}

func (f ExtensionFunc) applyTo(d *Definition) {
	if f != nil {
		d.extension = f
	}
}

// Options are the template fields a caller may set in Define or override in
// Create. Zero values mean "unset".
type Options struct {
	// Super is the base type; defaults to typesys.Record.
	Super *typesys.Type
	// Class overrides the bound type name (derived from the template name otherwise).
	Class string
	// Table overrides the backing table name.
	Table string
	// Schema declares table columns for persistent types.
	Schema SchemaFunc
	// Extension adds behavior to the bound type.
	Extension ExtensionFunc
}

// Definition is a stored template. It is only handed out by value and has no
// mutating methods.
type Definition struct {
	name      string
	super     *typesys.Type
	class     string
	table     string
	schema    SchemaFunc
	extension ExtensionFunc
}

func newDefinition(name string, opts Options, schemaFn SchemaFunc) Definition {
	def := Definition{
		name:      name,
		super:     opts.Super,
		class:     strings.TrimSpace(opts.Class),
		table:     strings.TrimSpace(opts.Table),
		schema:    opts.Schema,
		extension: opts.Extension,
	}
	if schemaFn != nil {
		def.schema = schemaFn
	}
	return def
}

// Name returns the registry key.
func (d Definition) Name() string { return d.name }

// Super returns the configured base type, or nil when unset.
func (d Definition) Super() *typesys.Type { return d.super }

// ClassOverride returns the configured class name override.
func (d Definition) ClassOverride() string { return d.class }

// TableOverride returns the configured table name override.
func (d Definition) TableOverride() string { return d.table }

// Schema returns the configured schema procedure.
func (d Definition) Schema() SchemaFunc { return d.schema }

// Extension returns the configured body extension.
func (d Definition) Extension() ExtensionFunc { return d.extension }

// merge returns stored with every set field of override substituted, then
// the block applied. stored is received by value and never modified.
func merge(stored Definition, override Options, block Block) Definition {
	merged := stored
	if override.Super != nil {
		merged.super = override.Super
	}
	if class := strings.TrimSpace(override.Class); class != "" {
		merged.class = class
	}
	if table := strings.TrimSpace(override.Table); table != "" {
		merged.table = table
	}
	if override.Schema != nil {
		merged.schema = override.Schema
	}
	if override.Extension != nil {
		merged.extension = override.Extension
	}
	if block != nil {
		block.applyTo(&merged)
	}
	return merged
}

// resolved holds the names and base type of one instantiation.
type resolved struct {
	super      *typesys.Type
	class      string
	table      string
	persistent bool
}

func (d Definition) resolve(defaultSuper *typesys.Type) resolved {
	super := d.super
	if super == nil {
		super = defaultSuper
	}
	source := d.class
	if source == "" {
		source = d.name
	}
	table := d.table
	if table == "" {
		table = naming.TableName(source)
	}
	return resolved{
		super:      super,
		class:      naming.ClassName(source),
		table:      table,
		persistent: super.Has(typesys.Persistent),
	}
}
