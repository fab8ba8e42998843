package manifest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/louisbranch/classfactory/internal/factory"
	apperrors "github.com/louisbranch/classfactory/internal/platform/errors"
	"github.com/louisbranch/classfactory/internal/schema"
	"github.com/louisbranch/classfactory/internal/typesys"
)

const yamlManifest = `
templates:
  - name: person
    columns:
      - {name: first_name, type: string}
      - {name: last_name, type: string}
      - {name: age, type: integer, not_null: true, default: 0}
  - name: model
    table: model_table
    timestamps: true
    columns:
      - {name: name, type: text}
  - name: plain_object
    super: object
`

const tomlManifest = `
[[templates]]
name = "person"

  [[templates.columns]]
  name = "first_name"
  type = "string"

  [[templates.columns]]
  name = "age"
  type = "integer"
  default = 18

[[templates]]
name = "tag"
without_id = true

  [[templates.columns]]
  name = "label"
  type = "text"
`

func TestParseYAML(t *testing.T) {
	t.Parallel()

	m, err := Parse([]byte(yamlManifest), FormatYAML)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if diff := cmp.Diff([]string{"person", "model", "plain_object"}, m.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
	if m.Templates[1].Table != "model_table" || !m.Templates[1].Timestamps {
		t.Fatalf("unexpected model template: %+v", m.Templates[1])
	}
	if !m.Templates[0].Columns[2].NotNull {
		t.Fatal("expected not_null on age")
	}
}

func TestParseTOML(t *testing.T) {
	t.Parallel()

	m, err := Parse([]byte(tomlManifest), FormatTOML)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if diff := cmp.Diff([]string{"person", "tag"}, m.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
	if m.Templates[0].Columns[1].Default != int64(18) {
		t.Fatalf("default = %#v, want int64(18)", m.Templates[0].Columns[1].Default)
	}
}

func TestParseRejectsInvalidManifests(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		data   string
		format Format
	}{
		{name: "unknown yaml field", data: "templates:\n  - name: person\n    colour: red\n", format: FormatYAML},
		{name: "unknown toml key", data: "[[templates]]\nname = \"person\"\ncolour = \"red\"\n", format: FormatTOML},
		{name: "missing name", data: "templates:\n  - table: people\n", format: FormatYAML},
		{name: "duplicate name", data: "templates:\n  - name: a\n  - name: a\n", format: FormatYAML},
		{name: "bad yaml", data: "templates: [", format: FormatYAML},
		{name: "unsupported format", data: "{}", format: Format("json")},
	}
	for _, tt := range tests {
		if _, err := Parse([]byte(tt.data), tt.format); apperrors.CodeOf(err) != apperrors.CodeManifestInvalid {
			t.Fatalf("%s: error = %v, want %s", tt.name, err, apperrors.CodeManifestInvalid)
		}
	}
}

func TestParseRejectsUnknownColumnType(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte("templates:\n  - name: p\n    columns:\n      - {name: x, type: money}\n"), FormatYAML)
	if !errors.Is(err, ErrUnknownColumnType) {
		t.Fatalf("error = %v, want %v", err, ErrUnknownColumnType)
	}
}

func TestParseRejectsInvalidColumnDeclarations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
		want error
	}{
		{
			name: "column name with space",
			data: "templates:\n  - name: p\n    columns:\n      - {name: \"first name\", type: string}\n",
			want: schema.ErrInvalidIdentifier,
		},
		{
			name: "duplicate column",
			data: "templates:\n  - name: p\n    columns:\n      - {name: age, type: integer}\n      - {name: AGE, type: integer}\n",
			want: schema.ErrDuplicateColumn,
		},
		{
			name: "list default",
			data: "templates:\n  - name: p\n    columns:\n      - {name: tags, type: text, default: [a, b]}\n",
			want: schema.ErrUnsupportedDefault,
		},
		{
			name: "table override",
			data: "templates:\n  - name: p\n    table: \"my table\"\n",
			want: schema.ErrInvalidIdentifier,
		},
	}
	for _, tt := range tests {
		_, err := Parse([]byte(tt.data), FormatYAML)
		if apperrors.CodeOf(err) != apperrors.CodeManifestInvalid {
			t.Fatalf("%s: error = %v, want %s", tt.name, err, apperrors.CodeManifestInvalid)
		}
		if !errors.Is(err, tt.want) {
			t.Fatalf("%s: error = %v, want %v", tt.name, err, tt.want)
		}
	}
}

func TestParseEmptyManifest(t *testing.T) {
	t.Parallel()

	m, err := Parse(nil, FormatYAML)
	if err != nil {
		t.Fatalf("parse empty: %v", err)
	}
	if len(m.Templates) != 0 {
		t.Fatalf("templates = %d, want 0", len(m.Templates))
	}
}

func TestLoadPicksFormatFromExtension(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "templates.yml")
	tomlPath := filepath.Join(dir, "templates.toml")
	if err := os.WriteFile(yamlPath, []byte(yamlManifest), 0o600); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	if err := os.WriteFile(tomlPath, []byte(tomlManifest), 0o600); err != nil {
		t.Fatalf("write toml: %v", err)
	}

	if m, err := Load(yamlPath); err != nil || len(m.Templates) != 3 {
		t.Fatalf("load yaml = %d templates, %v", len(m.Templates), err)
	}
	if m, err := Load(tomlPath); err != nil || len(m.Templates) != 2 {
		t.Fatalf("load toml = %d templates, %v", len(m.Templates), err)
	}
	if _, err := Load(filepath.Join(dir, "templates.json")); apperrors.CodeOf(err) != apperrors.CodeManifestInvalid {
		t.Fatalf("load json error = %v, want %s", err, apperrors.CodeManifestInvalid)
	}
	if _, err := Load(filepath.Join(dir, "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("load missing error = %v, want not exist", err)
	}
}

func TestApplyDefinesTemplates(t *testing.T) {
	t.Parallel()

	m, err := Parse([]byte(yamlManifest), FormatYAML)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	backend := &columnBackend{columns: map[string][]string{}}
	f := factory.New(backend)
	if err := m.Apply(f, f.Lookup); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if diff := cmp.Diff([]string{"model", "person", "plain_object"}, f.Registry().Names()); diff != "" {
		t.Fatalf("registry names mismatch (-want +got):\n%s", diff)
	}

	ctx := context.Background()
	for _, name := range m.Names() {
		if _, err := f.Create(ctx, name, factory.Options{}, nil); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}
	want := map[string][]string{
		"people":      {"id", "first_name", "last_name", "age"},
		"model_table": {"id", "name", "created_at", "updated_at"},
	}
	if diff := cmp.Diff(want, backend.columns); diff != "" {
		t.Fatalf("provisioned columns mismatch (-want +got):\n%s", diff)
	}
	plain, ok := f.Lookup("PlainObject")
	if !ok || plain.Base() != typesys.Object {
		t.Fatalf("expected PlainObject < Object, got %v", plain)
	}
}

func TestApplyWithoutID(t *testing.T) {
	t.Parallel()

	m, err := Parse([]byte(tomlManifest), FormatTOML)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	backend := &columnBackend{columns: map[string][]string{}}
	f := factory.New(backend)
	if err := m.Apply(f, nil); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if _, err := f.Create(context.Background(), "tag", factory.Options{}, nil); err != nil {
		t.Fatalf("create tag: %v", err)
	}
	if diff := cmp.Diff([]string{"label"}, backend.columns["tags"]); diff != "" {
		t.Fatalf("columns mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyResolvesCustomSuper(t *testing.T) {
	t.Parallel()

	f := factory.New(nil)
	if err := f.Define("base_widget", factory.Options{Super: typesys.Object}, nil); err != nil {
		t.Fatalf("define base: %v", err)
	}
	if _, err := f.Create(context.Background(), "base_widget", factory.Options{}, nil); err != nil {
		t.Fatalf("create base: %v", err)
	}

	m, err := Parse([]byte("templates:\n  - name: fancy_widget\n    super: BaseWidget\n"), FormatYAML)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := m.Apply(f, f.Lookup); err != nil {
		t.Fatalf("apply: %v", err)
	}
	typ, err := f.Create(context.Background(), "fancy_widget", factory.Options{}, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if typ.Base().Name() != "BaseWidget" {
		t.Fatalf("base = %v, want BaseWidget", typ.Base())
	}

	bad, _ := Parse([]byte("templates:\n  - name: orphan\n    super: Missing\n"), FormatYAML)
	if err := bad.Apply(f, f.Lookup); apperrors.CodeOf(err) != apperrors.CodeManifestInvalid {
		t.Fatalf("apply unknown super error = %v", err)
	}
}

type columnBackend struct {
	columns map[string][]string
}

func (b *columnBackend) ForceCreateTable(_ context.Context, name string, define func(*schema.Table)) error {
	tbl := schema.NewTable(name)
	if define != nil {
		define(tbl)
	}
	b.columns[name] = tbl.ColumnNames()
	return tbl.Err()
}
