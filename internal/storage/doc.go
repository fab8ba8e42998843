// Package storage defines the persistence contract used to provision tables
// for persistent types.
//
// Backend is the only capability the factory needs: force-create a table
// from a schema declaration, discarding any previous table of that name.
// Inspector exposes read-only introspection used by tests and the command
// line. The SQLite implementation lives in the sqlite subpackage.
//
// # Error Types
//
//   - ErrTableNotFound: an introspection call named a table that does not exist.
//   - ErrInvalidTableName: a table name is not a plain identifier or is reserved.
package storage
