// Package manifest loads declarative template definitions from YAML or TOML
// files and registers them with a factory.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/louisbranch/classfactory/internal/factory"
	apperrors "github.com/louisbranch/classfactory/internal/platform/errors"
	"github.com/louisbranch/classfactory/internal/schema"
	"github.com/louisbranch/classfactory/internal/typesys"
	"gopkg.in/yaml.v3"
)

// ErrUnknownColumnType indicates a column type name has no schema kind.
var ErrUnknownColumnType = errors.New("unknown column type")

// Format is a manifest encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", invalid(fmt.Sprintf("unsupported manifest extension %q", filepath.Ext(path)), nil)
	}
}

// Manifest is a set of template declarations.
type Manifest struct {
	Templates []Template `yaml:"templates" toml:"templates"`
}

// Template declares one factory template.
type Template struct {
	Name       string   `yaml:"name" toml:"name"`
	Super      string   `yaml:"super,omitempty" toml:"super,omitempty"`
	Class      string   `yaml:"class,omitempty" toml:"class,omitempty"`
	Table      string   `yaml:"table,omitempty" toml:"table,omitempty"`
	WithoutID  bool     `yaml:"without_id,omitempty" toml:"without_id,omitempty"`
	Timestamps bool     `yaml:"timestamps,omitempty" toml:"timestamps,omitempty"`
	Columns    []Column `yaml:"columns,omitempty" toml:"columns,omitempty"`
}

// Column declares one table column.
type Column struct {
	Name    string `yaml:"name" toml:"name"`
	Type    string `yaml:"type" toml:"type"`
	NotNull bool   `yaml:"not_null,omitempty" toml:"not_null,omitempty"`
	Default any    `yaml:"default,omitempty" toml:"default,omitempty"`
}

// Load reads and validates the manifest at path.
func Load(path string) (Manifest, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return Manifest{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	return Parse(data, format)
}

// Parse decodes and validates manifest data. Unknown fields are rejected.
func Parse(data []byte, format Format) (Manifest, error) {
	var m Manifest
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
			return Manifest{}, invalid("decode yaml manifest", err)
		}
	case FormatTOML:
		md, err := toml.Decode(string(data), &m)
		if err != nil {
			return Manifest{}, invalid("decode toml manifest", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return Manifest{}, invalid(fmt.Sprintf("unknown manifest keys: %v", undecoded), nil)
		}
	default:
		return Manifest{}, invalid(fmt.Sprintf("unsupported manifest format %q", format), nil)
	}
	if err := m.Validate(); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

// validationTable names the scratch table Validate declares columns on.
const validationTable = "manifest_validation"

// Validate checks template names, table overrides and column declarations.
func (m Manifest) Validate() error {
	seen := map[string]struct{}{}
	for i, tpl := range m.Templates {
		name := strings.TrimSpace(tpl.Name)
		if name == "" {
			return invalid(fmt.Sprintf("template %d: name is required", i), nil)
		}
		if _, ok := seen[name]; ok {
			return invalid(fmt.Sprintf("template %q declared twice", name), nil)
		}
		seen[name] = struct{}{}
		for _, col := range tpl.Columns {
			if _, ok := schema.ParseKind(col.Type); !ok {
				return invalid(fmt.Sprintf("template %q column %q", name, col.Name),
					fmt.Errorf("%w: %q", ErrUnknownColumnType, col.Type))
			}
		}
		if table := tpl.Table; table != "" && !schema.ValidIdentifier(table) {
			return invalid(fmt.Sprintf("template %q", name),
				fmt.Errorf("table %q: %w", table, schema.ErrInvalidIdentifier))
		}
		if fn := tpl.schemaFunc(); fn != nil {
			// Dry-run the declaration so bad names and defaults fail here
			// rather than when the table is provisioned.
			tbl := schema.NewTable(validationTable)
			fn(tbl)
			if err := tbl.Err(); err != nil {
				return invalid(fmt.Sprintf("template %q columns", name), err)
			}
		}
	}
	return nil
}

// Names returns the template names in declaration order.
func (m Manifest) Names() []string {
	names := make([]string, len(m.Templates))
	for i, tpl := range m.Templates {
		names[i] = strings.TrimSpace(tpl.Name)
	}
	return names
}

// Definer registers templates.
type Definer interface {
	Define(name string, opts factory.Options, schemaFn factory.SchemaFunc) error
}

// BaseResolver finds a base type by name, typically a type already bound in
// the factory namespace.
type BaseResolver func(name string) (*typesys.Type, bool)

// Apply defines every template in declaration order. "record" (or an empty
// super) and "object" name the built-in bases; other names go to resolve.
func (m Manifest) Apply(d Definer, resolve BaseResolver) error {
	for _, tpl := range m.Templates {
		super, err := resolveSuper(tpl, resolve)
		if err != nil {
			return err
		}
		opts := factory.Options{
			Super: super,
			Class: tpl.Class,
			Table: tpl.Table,
		}
		if err := d.Define(strings.TrimSpace(tpl.Name), opts, tpl.schemaFunc()); err != nil {
			return fmt.Errorf("define %s: %w", tpl.Name, err)
		}
	}
	return nil
}

func resolveSuper(tpl Template, resolve BaseResolver) (*typesys.Type, error) {
	switch name := strings.TrimSpace(tpl.Super); strings.ToLower(name) {
	case "", "record":
		return typesys.Record, nil
	case "object":
		return typesys.Object, nil
	default:
		if resolve != nil {
			if base, ok := resolve(name); ok {
				return base, nil
			}
		}
		return nil, invalid(fmt.Sprintf("template %q: unknown super type %q", tpl.Name, name), nil)
	}
}

func (tpl Template) schemaFunc() factory.SchemaFunc {
	if len(tpl.Columns) == 0 && !tpl.WithoutID && !tpl.Timestamps {
		return nil
	}
	columns := append([]Column(nil), tpl.Columns...)
	withoutID := tpl.WithoutID
	timestamps := tpl.Timestamps
	return func(tbl *schema.Table) {
		if withoutID {
			tbl.WithoutID()
		}
		for _, col := range columns {
			kind, _ := schema.ParseKind(col.Type)
			var opts []schema.ColumnOption
			if col.NotNull {
				opts = append(opts, schema.NotNull())
			}
			if col.Default != nil {
				opts = append(opts, schema.Default(col.Default))
			}
			tbl.Column(col.Name, kind, opts...)
		}
		if timestamps {
			tbl.Timestamps()
		}
	}
}

func invalid(message string, cause error) error {
	return apperrors.Wrap(apperrors.CodeManifestInvalid, message, cause)
}
