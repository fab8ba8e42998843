// Package schema provides the table builder handed to template schema
// procedures and renders the declared columns as SQLite DDL.
package schema

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// ErrInvalidIdentifier indicates a table or column name is not a plain identifier.
	ErrInvalidIdentifier = errors.New("invalid identifier")
	// ErrDuplicateColumn indicates a column was declared twice.
	ErrDuplicateColumn = errors.New("duplicate column")
	// ErrUnsupportedDefault indicates a default value cannot be rendered as SQL.
	ErrUnsupportedDefault = errors.New("unsupported default value")
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// PrimaryKeyColumn is the implicit primary key added to every table unless
// WithoutID is called.
const PrimaryKeyColumn = "id"

// Kind is the declared type of a column.
type Kind string

// Column kinds and their SQLite declared types.
const (
	KindString    Kind = "string"
	KindText      Kind = "text"
	KindInteger   Kind = "integer"
	KindFloat     Kind = "float"
	KindBoolean   Kind = "boolean"
	KindTimestamp Kind = "timestamp"
	KindBlob      Kind = "blob"
)

// SQLType returns the SQLite declared type for the kind.
func (k Kind) SQLType() string {
	switch k {
	case KindString:
		return "VARCHAR(255)"
	case KindText:
		return "TEXT"
	case KindInteger:
		return "INTEGER"
	case KindFloat:
		return "REAL"
	case KindBoolean:
		return "BOOLEAN"
	case KindTimestamp:
		return "DATETIME"
	case KindBlob:
		return "BLOB"
	default:
		return ""
	}
}

// ParseKind resolves a column kind by name.
func ParseKind(name string) (Kind, bool) {
	kind := Kind(strings.ToLower(strings.TrimSpace(name)))
	if kind.SQLType() == "" {
		return "", false
	}
	return kind, true
}

// Column is one declared column.
type Column struct {
	Name       string
	Kind       Kind
	NotNull    bool
	Default    any
	HasDefault bool
	PrimaryKey bool
}

// ColumnOption adjusts a column declaration.
type ColumnOption func(*Column)

// NotNull forbids NULL values in the column.
func NotNull() ColumnOption {
	return func(c *Column) { c.NotNull = true }
}

// Default sets the column default value.
func Default(value any) ColumnOption {
	return func(c *Column) {
		c.Default = value
		c.HasDefault = true
	}
}

// Table collects column declarations for one table.
//
// Declaration methods do not return errors; malformed declarations are
// accumulated and reported by Err.
type Table struct {
	name    string
	noID    bool
	columns []Column
	seen    map[string]struct{}
	errs    []error
}

// NewTable starts a table definition.
func NewTable(name string) *Table {
	t := &Table{name: name, seen: map[string]struct{}{PrimaryKeyColumn: {}}}
	if !identifierPattern.MatchString(name) {
		t.errs = append(t.errs, fmt.Errorf("table %q: %w", name, ErrInvalidIdentifier))
	}
	return t
}

// Name returns the table name.
func (t *Table) Name() string {
	return t.name
}

// WithoutID drops the implicit id primary key.
func (t *Table) WithoutID() {
	t.noID = true
	delete(t.seen, PrimaryKeyColumn)
}

// Column declares a column of the given kind.
func (t *Table) Column(name string, kind Kind, opts ...ColumnOption) {
	if kind.SQLType() == "" {
		t.errs = append(t.errs, fmt.Errorf("column %q: unknown kind %q", name, kind))
		return
	}
	if !identifierPattern.MatchString(name) {
		t.errs = append(t.errs, fmt.Errorf("column %q: %w", name, ErrInvalidIdentifier))
		return
	}
	key := strings.ToLower(name)
	if _, ok := t.seen[key]; ok {
		t.errs = append(t.errs, fmt.Errorf("column %q: %w", name, ErrDuplicateColumn))
		return
	}
	col := Column{Name: name, Kind: kind}
	for _, opt := range opts {
		opt(&col)
	}
	if col.HasDefault {
		if _, err := literal(col.Default); err != nil {
			t.errs = append(t.errs, fmt.Errorf("column %q: %w", name, err))
			return
		}
	}
	t.seen[key] = struct{}{}
	t.columns = append(t.columns, col)
}

// String declares a short string column.
func (t *Table) String(name string, opts ...ColumnOption) { t.Column(name, KindString, opts...) }

// Text declares a text column.
func (t *Table) Text(name string, opts ...ColumnOption) { t.Column(name, KindText, opts...) }

// Integer declares an integer column.
func (t *Table) Integer(name string, opts ...ColumnOption) { t.Column(name, KindInteger, opts...) }

// Float declares a floating point column.
func (t *Table) Float(name string, opts ...ColumnOption) { t.Column(name, KindFloat, opts...) }

// Boolean declares a boolean column.
func (t *Table) Boolean(name string, opts ...ColumnOption) { t.Column(name, KindBoolean, opts...) }

// Timestamp declares a timestamp column.
func (t *Table) Timestamp(name string, opts ...ColumnOption) { t.Column(name, KindTimestamp, opts...) }

// Blob declares a binary column.
func (t *Table) Blob(name string, opts ...ColumnOption) { t.Column(name, KindBlob, opts...) }

// References declares a <name>_id integer column.
func (t *Table) References(name string, opts ...ColumnOption) {
	t.Column(name+"_id", KindInteger, opts...)
}

// Timestamps declares created_at and updated_at columns.
func (t *Table) Timestamps() {
	t.Timestamp("created_at")
	t.Timestamp("updated_at")
}

// Columns returns the declared columns, including the implicit primary key.
func (t *Table) Columns() []Column {
	out := make([]Column, 0, len(t.columns)+1)
	if !t.noID {
		out = append(out, Column{Name: PrimaryKeyColumn, Kind: KindInteger, NotNull: true, PrimaryKey: true})
	}
	return append(out, t.columns...)
}

// ColumnNames returns the column names in declaration order.
func (t *Table) ColumnNames() []string {
	cols := t.Columns()
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}

// Err returns every malformed declaration joined, or nil.
func (t *Table) Err() error {
	return errors.Join(t.errs...)
}

// CreateSQL renders the CREATE TABLE statement.
func (t *Table) CreateSQL() (string, error) {
	if err := t.Err(); err != nil {
		return "", err
	}
	cols := t.Columns()
	if len(cols) == 0 {
		return "", fmt.Errorf("table %q: no columns declared", t.name)
	}
	defs := make([]string, 0, len(cols))
	for _, c := range cols {
		defs = append(defs, columnSQL(c))
	}
	return fmt.Sprintf("CREATE TABLE %s (\n    %s\n)", QuoteIdent(t.name), strings.Join(defs, ",\n    ")), nil
}

func columnSQL(c Column) string {
	if c.PrimaryKey {
		return QuoteIdent(c.Name) + " INTEGER PRIMARY KEY AUTOINCREMENT NOT NULL"
	}
	def := QuoteIdent(c.Name) + " " + c.Kind.SQLType()
	if c.NotNull {
		def += " NOT NULL"
	}
	if c.HasDefault {
		value, _ := literal(c.Default)
		def += " DEFAULT " + value
	}
	return def
}

// QuoteIdent quotes an SQL identifier.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// ValidIdentifier reports whether name is a plain SQL identifier.
func ValidIdentifier(name string) bool {
	return identifierPattern.MatchString(name)
}

func literal(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "NULL", nil
	case string:
		return "'" + strings.ReplaceAll(v, "'", "''") + "'", nil
	case bool:
		if v {
			return "1", nil
		}
		return "0", nil
	case int:
		return strconv.Itoa(v), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32), nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	default:
		return "", fmt.Errorf("%w: %T", ErrUnsupportedDefault, value)
	}
}
