// Package types defines the Store interface, the grid entity types (bases,
// tables, columns, rows), the read-time Aggregate projection, and the
// standard error types shared by the storage backends, the service layer,
// and the editor.
package types
