// Package postgres provides PostgreSQL-specific implementations for the data
// storage interfaces defined in the internal/store package.
// It handles query execution, error mapping and the embedded schema migrations
// for the tasks and settings tables.
package postgres
