// Package ormerrors is Aurum's error taxonomy: a flat set of typed
// errors, one per failure family, each wrapping the underlying cause so
// callers can branch with errors.As/errors.Is while still getting the
// original driver/parse error via Unwrap.
package ormerrors

import "fmt"

// ConfigurationError reports a malformed or missing configuration value
// (bad DSN, unknown dialect name, ...).
type ConfigurationError struct {
	Key string
	Err error
}

func (e *ConfigurationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("aurum: configuration error for %q", e.Key)
	}
	return fmt.Sprintf("aurum: configuration error for %q: %v", e.Key, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func NewConfigurationError(key string, err error) *ConfigurationError {
	return &ConfigurationError{Key: key, Err: err}
}

// MetadataError reports a problem describing an entity: ambiguous
// inheritance, unmapped field, conflicting discriminator values, an
// unsupported inheritance strategy.
type MetadataError struct {
	Entity string
	Reason string
	Err    error
}

func (e *MetadataError) Error() string {
	msg := fmt.Sprintf("aurum: metadata error for %s: %s", e.Entity, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MetadataError) Unwrap() error { return e.Err }

func NewMetadataError(entity, reason string, err error) *MetadataError {
	return &MetadataError{Entity: entity, Reason: reason, Err: err}
}

// PersistenceError reports a failure flushing the unit of work: a
// constraint violation, a failed cascade, a broken two-phase insert.
type PersistenceError struct {
	Operation string // "insert", "update", "delete"
	Entity    string
	Err       error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("aurum: persistence error during %s of %s: %v", e.Operation, e.Entity, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func NewPersistenceError(operation, entity string, err error) *PersistenceError {
	return &PersistenceError{Operation: operation, Entity: entity, Err: err}
}

// QueryError reports a failure building or executing a query: an
// unresolvable join path, an invalid column reference, a driver error.
type QueryError struct {
	SQL string
	Err error
}

func (e *QueryError) Error() string {
	if e.SQL == "" {
		return fmt.Sprintf("aurum: query error: %v", e.Err)
	}
	return fmt.Sprintf("aurum: query error executing %q: %v", e.SQL, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

func NewQueryError(sql string, err error) *QueryError {
	return &QueryError{SQL: sql, Err: err}
}

// HydrationError reports a failure converting a result row into an
// entity: a column that doesn't match any field, a value that fails its
// logical-type conversion.
type HydrationError struct {
	Column string
	Entity string
	Err    error
}

func (e *HydrationError) Error() string {
	return fmt.Sprintf("aurum: hydration error mapping column %q onto %s: %v", e.Column, e.Entity, e.Err)
}

func (e *HydrationError) Unwrap() error { return e.Err }

func NewHydrationError(column, entity string, err error) *HydrationError {
	return &HydrationError{Column: column, Entity: entity, Err: err}
}

// MigrationError reports a failure applying or rolling back a migration
// unit.
type MigrationError struct {
	Migration string
	Operation string // "up", "down", "diff"
	Err       error
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("aurum: migration %q failed during %s: %v", e.Migration, e.Operation, e.Err)
}

func (e *MigrationError) Unwrap() error { return e.Err }

func NewMigrationError(migration, operation string, err error) *MigrationError {
	return &MigrationError{Migration: migration, Operation: operation, Err: err}
}

// SkipMigration is a control-flow signal a Migration's Up/Down method
// returns to mean "nothing to do here", distinct from a real failure —
// the runner logs the unit as skipped, does not treat it as an error,
// and leaves the tracking table untouched.
type SkipMigration struct {
	Reason string
}

func (e *SkipMigration) Error() string {
	if e.Reason == "" {
		return "aurum: migration skipped"
	}
	return fmt.Sprintf("aurum: migration skipped: %s", e.Reason)
}

func NewSkipMigration(reason string) *SkipMigration {
	return &SkipMigration{Reason: reason}
}

// NotFound reports that a lookup by identity key found no row.
type NotFound struct {
	Entity string
	Key    interface{}
}

func (e *NotFound) Error() string {
	return fmt.Sprintf("aurum: %s not found for key %v", e.Entity, e.Key)
}

func NewNotFound(entity string, key interface{}) *NotFound {
	return &NotFound{Entity: entity, Key: key}
}
