package classfactory

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	apperrors "github.com/louisbranch/classfactory/internal/platform/errors"
	"github.com/louisbranch/classfactory/internal/storage/sqlite"
)

const testManifest = `
templates:
  - name: person
    columns:
      - {name: first_name, type: string}
      - {name: last_name, type: string}
      - {name: age, type: integer}
  - name: plain_object
    super: object
  - name: fancy_object
    super: PlainObject
`

func TestParseConfigDefaultsAndFlags(t *testing.T) {
	t.Setenv("CLASSFACTORY_MANIFEST", "env.yaml")

	fs := flag.NewFlagSet("classfactory", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-db", "flag.db", "person", "model"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.DBPath != "flag.db" {
		t.Fatalf("db = %q, want flag.db", cfg.DBPath)
	}
	if cfg.Manifest != "env.yaml" {
		t.Fatalf("manifest = %q, want env.yaml", cfg.Manifest)
	}
	if diff := cmp.Diff([]string{"person", "model"}, cfg.Templates); diff != "" {
		t.Fatalf("templates mismatch (-want +got):\n%s", diff)
	}
}

func TestRunCreatesAllTemplates(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		DBPath:   filepath.Join(dir, "classfactory.db"),
		Manifest: writeManifest(t, dir),
	}

	var out bytes.Buffer
	if err := run(context.Background(), cfg, &out, log.New(io.Discard, "", 0)); err != nil {
		t.Fatalf("run: %v", err)
	}
	want := []string{
		"Person < Record table=people columns=id,first_name,last_name,age",
		"PlainObject < Object",
		"FancyObject < PlainObject",
	}
	if diff := cmp.Diff(want, strings.Split(strings.TrimSpace(out.String()), "\n")); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer store.Close()
	tables, err := store.ProvisionedTables(context.Background())
	if err != nil {
		t.Fatalf("provisioned tables: %v", err)
	}
	if len(tables) != 1 || tables[0].Name != "people" {
		t.Fatalf("provisioned tables = %+v, want only people", tables)
	}
}

func TestRunCreatesSelectedTemplates(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		DBPath:    ":memory:",
		Manifest:  writeManifest(t, dir),
		Templates: []string{"plain_object"},
	}

	var out bytes.Buffer
	if err := run(context.Background(), cfg, &out, log.New(io.Discard, "", 0)); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "PlainObject < Object" {
		t.Fatalf("output = %q", got)
	}
}

func TestRunRejectsUnknownTemplate(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		DBPath:    ":memory:",
		Manifest:  writeManifest(t, dir),
		Templates: []string{"unknown"},
	}
	err := run(context.Background(), cfg, io.Discard, log.New(io.Discard, "", 0))
	if code := apperrors.CodeOf(err); code != apperrors.CodeDefinitionNotFound {
		t.Fatalf("code = %q, want %q (err %v)", code, apperrors.CodeDefinitionNotFound, err)
	}
	if got := ExitCode(err); got != 69 {
		t.Fatalf("exit code = %d, want 69", got)
	}
}

func TestExitCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "success", err: nil, want: 0},
		{name: "invalid manifest", err: fmt.Errorf("load manifest: %w", apperrors.New(apperrors.CodeManifestInvalid, "bad")), want: 67},
		{name: "provision failure", err: apperrors.New(apperrors.CodeStorageProvision, "disk full"), want: 77},
		{name: "bind failure", err: apperrors.New(apperrors.CodeBind, "bind"), want: 73},
		{name: "uncoded", err: errors.New("open storage"), want: 77},
	}
	for _, tt := range tests {
		if got := ExitCode(tt.err); got != tt.want {
			t.Fatalf("%s: exit code = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestRunRequiresManifest(t *testing.T) {
	cfg := Config{DBPath: ":memory:", Manifest: filepath.Join(t.TempDir(), "missing.yaml")}
	if err := run(context.Background(), cfg, io.Discard, log.New(io.Discard, "", 0)); err == nil {
		t.Fatal("expected missing manifest error")
	}
}

func writeManifest(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "templates.yaml")
	if err := os.WriteFile(path, []byte(testManifest), 0o600); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}
