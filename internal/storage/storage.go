package storage

import (
	"context"
	"errors"
	"time"

	"github.com/louisbranch/classfactory/internal/schema"
)

var (
	// ErrTableNotFound indicates an introspection call named a missing table.
	ErrTableNotFound = errors.New("table not found")
	// ErrInvalidTableName indicates a table name is not a plain identifier.
	ErrInvalidTableName = errors.New("invalid table name")
)

// Backend force-creates tables.
type Backend interface {
	// ForceCreateTable drops name if it exists and creates it again with the
	// columns declared by define. A nil define creates a table with only the
	// implicit primary key.
	ForceCreateTable(ctx context.Context, name string, define func(*schema.Table)) error
}

// Inspector exposes read-only table metadata.
type Inspector interface {
	Columns(ctx context.Context, table string) ([]string, error)
	Count(ctx context.Context, table string) (int64, error)
	TableExists(ctx context.Context, table string) (bool, error)
}

// ProvisionedTable records the last provisioning of one table.
type ProvisionedTable struct {
	Name          string
	Columns       []string
	ProvisionedAt time.Time
}
