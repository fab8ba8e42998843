// Package sqlite provides a SQLite-backed storage backend for persistent types.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/louisbranch/classfactory/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/classfactory/internal/schema"
	"github.com/louisbranch/classfactory/internal/storage"
	"github.com/louisbranch/classfactory/internal/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

const (
	memoryPath   = ":memory:"
	catalogTable = "provisioned_tables"
	dsnPragmas   = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
)

// Store provisions and inspects tables in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite store and applies embedded catalog migrations.
// The special path ":memory:" opens a private in-memory database.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := memoryPath
	if path != memoryPath {
		dsn = filepath.Clean(path) + "?" + dsnPragmas
	}
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if path == memoryPath {
		// Each pooled connection would otherwise see its own empty database.
		sqlDB.SetMaxOpenConns(1)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(context.Background(), sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// DB exposes the underlying handle for host programs that read or write rows.
func (s *Store) DB() *sql.DB {
	if s == nil {
		return nil
	}
	return s.sqlDB
}

// ForceCreateTable drops and recreates name with the declared columns and
// records the provisioning in the catalog, all in one transaction. Names that
// differ only in case address the same table and the same catalog entry.
func (s *Store) ForceCreateTable(ctx context.Context, name string, define func(*schema.Table)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if err := checkTableName(name); err != nil {
		return err
	}

	table := schema.NewTable(name)
	if define != nil {
		define(table)
	}
	createSQL, err := table.CreateSQL()
	if err != nil {
		return fmt.Errorf("declare table %s: %w", name, err)
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin provision %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+schema.QuoteIdent(name)); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("drop table %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, createSQL); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("create table %s: %w", name, err)
	}
	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO provisioned_tables (table_name, columns, provisioned_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(table_name) DO UPDATE SET
		   table_name = excluded.table_name,
		   columns = excluded.columns,
		   provisioned_at = excluded.provisioned_at`,
		name,
		strings.Join(table.ColumnNames(), ","),
		toMillis(time.Now()),
	); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("record table %s: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit provision %s: %w", name, err)
	}
	return nil
}

// Columns returns the column names of table in declaration order.
func (s *Store) Columns(ctx context.Context, table string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if !schema.ValidIdentifier(table) {
		return nil, fmt.Errorf("%w: %q", storage.ErrInvalidTableName, table)
	}

	rows, err := s.sqlDB.QueryContext(ctx, "PRAGMA table_info("+schema.QuoteIdent(table)+")")
	if err != nil {
		return nil, fmt.Errorf("table info %s: %w", table, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var (
			cid       int
			name      string
			declType  string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &declType, &notNull, &dfltValue, &pk); err != nil {
			return nil, fmt.Errorf("table info %s: %w", table, err)
		}
		columns = append(columns, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("table info %s: %w", table, err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: %s", storage.ErrTableNotFound, table)
	}
	return columns, nil
}

// Count returns the number of rows stored in table.
func (s *Store) Count(ctx context.Context, table string) (int64, error) {
	exists, err := s.TableExists(ctx, table)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, fmt.Errorf("%w: %s", storage.ErrTableNotFound, table)
	}
	var count int64
	row := s.sqlDB.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+schema.QuoteIdent(table))
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return count, nil
}

// TableExists reports whether table is present. Table names compare
// case-insensitively, as SQLite resolves them.
func (s *Store) TableExists(ctx context.Context, table string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if s == nil || s.sqlDB == nil {
		return false, fmt.Errorf("storage is not configured")
	}
	var name string
	row := s.sqlDB.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type = 'table' AND name = ? COLLATE NOCASE", table)
	if err := row.Scan(&name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check table %s: %w", table, err)
	}
	return true, nil
}

// ProvisionedTables lists catalog entries ordered by table name.
func (s *Store) ProvisionedTables(ctx context.Context) ([]storage.ProvisionedTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT table_name, columns, provisioned_at
		   FROM provisioned_tables
		  ORDER BY table_name ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list provisioned tables: %w", err)
	}
	defer rows.Close()

	var tables []storage.ProvisionedTable
	for rows.Next() {
		var (
			entry         storage.ProvisionedTable
			columns       string
			provisionedAt int64
		)
		if err := rows.Scan(&entry.Name, &columns, &provisionedAt); err != nil {
			return nil, fmt.Errorf("list provisioned tables: %w", err)
		}
		if columns != "" {
			entry.Columns = strings.Split(columns, ",")
		}
		entry.ProvisionedAt = fromMillis(provisionedAt)
		tables = append(tables, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list provisioned tables: %w", err)
	}
	return tables, nil
}

func checkTableName(name string) error {
	if !schema.ValidIdentifier(name) {
		return fmt.Errorf("%w: %q", storage.ErrInvalidTableName, name)
	}
	lower := strings.ToLower(name)
	if lower == catalogTable || lower == sqlitemigrate.MigrationTable || strings.HasPrefix(lower, "sqlite_") {
		return fmt.Errorf("%w: %q is reserved", storage.ErrInvalidTableName, name)
	}
	return nil
}

var (
	_ storage.Backend   = (*Store)(nil)
	_ storage.Inspector = (*Store)(nil)
)
