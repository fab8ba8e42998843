// Package classfactory parses classfactory command flags and runs the
// manifest-driven define/create pipeline.
package classfactory

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/louisbranch/classfactory/internal/factory"
	"github.com/louisbranch/classfactory/internal/manifest"
	entrypoint "github.com/louisbranch/classfactory/internal/platform/cmd"
	apperrors "github.com/louisbranch/classfactory/internal/platform/errors"
	"github.com/louisbranch/classfactory/internal/platform/timeouts"
	"github.com/louisbranch/classfactory/internal/storage/sqlite"
)

// Config holds classfactory command configuration.
type Config struct {
	DBPath   string `env:"DB_PATH" envDefault:"classfactory.db"`
	Manifest string `env:"MANIFEST" envDefault:"templates.yaml"`
	// Templates limits creation to these template names; all templates are
	// created when empty.
	Templates []string
}

// ParseConfig parses environment and flags into Config. Remaining
// positional arguments name the templates to create.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite database path (\":memory:\" for a throwaway database)")
	fs.StringVar(&cfg.Manifest, "manifest", cfg.Manifest, "Template manifest (.yaml, .yml or .toml)")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	cfg.Templates = fs.Args()
	return cfg, nil
}

// exitStatusBase offsets gRPC status codes into the sysexits range, as grpcurl
// does, so scripts can tell failure classes apart.
const exitStatusBase = 64

// ExitCode maps a Run error to a process exit status: 0 for nil, otherwise
// 64 plus the gRPC code of the error's domain code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return exitStatusBase + int(apperrors.CodeOf(err).GRPCCode())
}

// Run defines every manifest template and creates the selected ones,
// reporting each bound type on stdout.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceClassFactory, func(ctx context.Context) error {
		return run(ctx, cfg, os.Stdout, log.Default())
	})
}

func run(ctx context.Context, cfg Config, out io.Writer, logger *log.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Provision)
	defer cancel()

	m, err := manifest.Load(cfg.Manifest)
	if err != nil {
		return fmt.Errorf("load manifest: %w", err)
	}
	selected, err := selectTemplates(m, cfg.Templates)
	if err != nil {
		return err
	}

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Printf("close storage: %v", err)
		}
	}()

	f := factory.New(store, factory.WithLogger(logger))
	// Templates are handled in declaration order so a template may use a
	// type created by an earlier one as its super.
	for _, tpl := range m.Templates {
		name := strings.TrimSpace(tpl.Name)
		single := manifest.Manifest{Templates: []manifest.Template{tpl}}
		if err := single.Apply(f, f.Lookup); err != nil {
			return err
		}
		if _, ok := selected[name]; !ok {
			continue
		}
		typ, err := f.Create(ctx, name, factory.Options{}, nil)
		if err != nil {
			return fmt.Errorf("create %s: %w", name, err)
		}
		if typ.TableName() == "" {
			fmt.Fprintf(out, "%s < %s\n", typ.Name(), typ.Base())
			continue
		}
		columns, err := store.Columns(ctx, typ.TableName())
		if err != nil {
			return fmt.Errorf("inspect %s: %w", typ.TableName(), err)
		}
		fmt.Fprintf(out, "%s < %s table=%s columns=%s\n", typ.Name(), typ.Base(), typ.TableName(), strings.Join(columns, ","))
	}
	return nil
}

func selectTemplates(m manifest.Manifest, requested []string) (map[string]struct{}, error) {
	known := map[string]struct{}{}
	for _, name := range m.Names() {
		known[name] = struct{}{}
	}
	if len(requested) == 0 {
		return known, nil
	}
	selected := map[string]struct{}{}
	for _, name := range requested {
		name = strings.TrimSpace(name)
		if _, ok := known[name]; !ok {
			return nil, apperrors.WithMetadata(apperrors.CodeDefinitionNotFound,
				fmt.Sprintf("template %q is not in the manifest", name),
				map[string]string{"Template": name})
		}
		selected[name] = struct{}{}
	}
	return selected, nil
}
