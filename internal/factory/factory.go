// Package factory defines named type templates and instantiates them into
// freshly bound types, provisioning a backing table for persistent ones.
//
// A template is stored once by Define and never changed by Create: per-call
// overrides are merged into a throwaway copy. Every Create binds a brand-new
// type under the resolved class name and, when the base type carries the
// typesys.Persistent capability, first drops and recreates the backing table.
//
// Provisioning happens before binding. When binding fails after a successful
// provisioning the table has already been reset and no type is bound for the
// call; Create returns the bind error without rolling the table back.
package factory

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"

	apperrors "github.com/louisbranch/classfactory/internal/platform/errors"
	"github.com/louisbranch/classfactory/internal/storage"
	"github.com/louisbranch/classfactory/internal/typesys"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/louisbranch/classfactory/internal/factory"

// Factory is the template registry plus the instantiation pipeline.
// Define and Create are serialized by one mutex, so a Create observes a
// consistent lookup, provisioning and binding sequence.
type Factory struct {
	mu           sync.Mutex
	registry     *Registry
	namespace    *typesys.Namespace
	provisioner  *Provisioner
	defaultSuper *typesys.Type
	logger       *log.Logger
	tracer       trace.Tracer
}

// Option configures a Factory.
type Option func(*Factory)

// WithNamespace binds produced types into ns instead of a private namespace.
func WithNamespace(ns *typesys.Namespace) Option {
	return func(f *Factory) {
		if ns != nil {
			f.namespace = ns
		}
	}
}

// WithLogger sets the logger for provisioning and binding events.
func WithLogger(logger *log.Logger) Option {
	return func(f *Factory) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithTracerProvider sets the provider used for instantiation spans.
// The global provider is used by default.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(f *Factory) {
		if tp != nil {
			f.tracer = tp.Tracer(tracerName)
		}
	}
}

// WithDefaultSuper changes the base type used when neither the template nor
// the call sets one.
func WithDefaultSuper(super *typesys.Type) Option {
	return func(f *Factory) {
		if super != nil {
			f.defaultSuper = super
		}
	}
}

// New creates a factory provisioning tables through backend. backend may be
// nil when only non-persistent templates are instantiated.
func New(backend storage.Backend, opts ...Option) *Factory {
	f := &Factory{
		registry:     NewRegistry(),
		namespace:    typesys.NewNamespace(),
		defaultSuper: typesys.Record,
		logger:       log.New(io.Discard, "", 0),
		tracer:       otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.provisioner = NewProvisioner(backend, f.logger)
	return f
}

// Registry returns the template registry.
func (f *Factory) Registry() *Registry {
	return f.registry
}

// Namespace returns the namespace produced types are bound in.
func (f *Factory) Namespace() *typesys.Namespace {
	return f.namespace
}

// Lookup returns the type currently bound under className.
func (f *Factory) Lookup(className string) (*typesys.Type, bool) {
	return f.namespace.Lookup(className)
}

// Define stores a template, replacing any template of the same name.
func (f *Factory) Define(name string, opts Options, schemaFn SchemaFunc) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.registry.Define(name, opts, schemaFn)
}

// Create instantiates the template stored under name.
//
// opts override template fields for this call only. A non-nil block replaces
// the schema (SchemaFunc) or the body extension (ExtensionFunc) for this
// call only.
func (f *Factory) Create(ctx context.Context, name string, opts Options, block Block) (*typesys.Type, error) {
	ctx, span := f.tracer.Start(ctx, "classfactory.create",
		trace.WithAttributes(attribute.String("classfactory.template", name)))
	defer span.End()

	typ, err := f.create(ctx, span, name, opts, block)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}
	return typ, nil
}

func (f *Factory) create(ctx context.Context, span trace.Span, name string, opts Options, block Block) (*typesys.Type, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	stored, err := f.registry.Lookup(name)
	if err != nil {
		return nil, err
	}
	def := merge(stored, opts, block)
	res := def.resolve(f.defaultSuper)
	span.SetAttributes(
		attribute.String("classfactory.class", res.class),
		attribute.Bool("classfactory.persistent", res.persistent),
	)
	meta := map[string]string{"Template": def.name, "Class": res.class}

	if res.persistent {
		span.SetAttributes(attribute.String("classfactory.table", res.table))
		if err := f.provisioner.Provision(ctx, res.table, def.schema); err != nil {
			return nil, err
		}
	}

	var bindOpts []typesys.BindOption
	if res.persistent {
		bindOpts = append(bindOpts, typesys.WithTable(res.table))
	}
	typ, err := f.namespace.Bind(res.class, res.super, bindOpts...)
	if err != nil {
		return nil, apperrors.WrapWithMetadata(apperrors.CodeBind, fmt.Sprintf("bind type %s", res.class), meta, err)
	}

	if def.extension != nil {
		if err := def.extension(typ); err != nil {
			return nil, apperrors.WrapWithMetadata(apperrors.CodeExtension, fmt.Sprintf("extend type %s", res.class), meta, err)
		}
	}

	if res.persistent {
		f.logger.Printf("created %s < %s from template %s (table %s)", res.class, res.super, def.name, res.table)
	} else {
		f.logger.Printf("created %s < %s from template %s", res.class, res.super, def.name)
	}
	return typ, nil
}
