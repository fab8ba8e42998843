package factory

import (
	"context"
	"fmt"
	"io"
	"log"

	apperrors "github.com/louisbranch/classfactory/internal/platform/errors"
	"github.com/louisbranch/classfactory/internal/schema"
	"github.com/louisbranch/classfactory/internal/storage"
)

// Provisioner force-creates backing tables for persistent types.
type Provisioner struct {
	backend storage.Backend
	logger  *log.Logger
}

// NewProvisioner wraps a storage backend. A nil logger discards output.
func NewProvisioner(backend storage.Backend, logger *log.Logger) *Provisioner {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Provisioner{backend: backend, logger: logger}
}

// Provision drops and recreates table, invoking schemaFn once with the table
// builder when it is non-nil. Backend failures are returned as
// CodeStorageProvision errors wrapping the backend error.
func (p *Provisioner) Provision(ctx context.Context, table string, schemaFn SchemaFunc) error {
	meta := map[string]string{"Table": table}
	if p == nil || p.backend == nil {
		return apperrors.WithMetadata(apperrors.CodeStorageProvision, "storage backend is not configured", meta)
	}

	var define func(*schema.Table)
	if schemaFn != nil {
		define = schemaFn
	}
	if err := p.backend.ForceCreateTable(ctx, table, define); err != nil {
		return apperrors.WrapWithMetadata(apperrors.CodeStorageProvision, fmt.Sprintf("provision table %s", table), meta, err)
	}
	p.logger.Printf("provisioned table %s", table)
	return nil
}
