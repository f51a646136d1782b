// Package migrate is Aurum's Migration Engine: a dependency-ordered,
// transactional schema-change runner with generation, execution,
// rollback and status tracking, driven by a schema-diff comparator
// (Differ). It depends only on Connection and Metadata (spec.md §2).
package migrate

import (
	"context"
	"database/sql"
	"fmt"
)

// Executor is the subset of Conn/Tx a migration unit needs to issue
// SQL. A transactional unit is handed the active *conn.Tx; a
// non-transactional unit is handed the bare *conn.Conn, since it owns
// its own commit boundary (spec.md §4.5 "Execution semantics").
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Migration is a named, versioned schema-change unit. Version must be
// the 14-digit YYYYMMDDHHMMSS form produced by Generate; Dependencies
// names other units' versions that must already be applied before this
// one runs.
type Migration interface {
	Version() string
	Description() string
	Up(ctx context.Context, exec Executor) error
	Down(ctx context.Context, exec Executor) error
	Dependencies() []string
	Transactional() bool
}

// BaseMigration provides the common plumbing for a concrete migration:
// version/description bookkeeping and default Up/Down bodies that
// fail loudly when a concrete type forgets to override them. Mirrors
// the teacher's BaseMigration in root migrations.go, generalized with
// a Dependencies list the teacher never needed.
type BaseMigration struct {
	version       string
	description   string
	dependencies  []string
	transactional bool
}

// NewBaseMigration constructs the embeddable base for a concrete
// migration. transactional defaults to true; call
// (*BaseMigration).SetTransactional(false) for a unit that manages its
// own transaction (e.g. one issuing DDL a driver can't run inside a
// transaction).
func NewBaseMigration(version, description string, dependencies ...string) *BaseMigration {
	return &BaseMigration{
		version:       version,
		description:   description,
		dependencies:  dependencies,
		transactional: true,
	}
}

func (bm *BaseMigration) Version() string        { return bm.version }
func (bm *BaseMigration) Description() string    { return bm.description }
func (bm *BaseMigration) Dependencies() []string { return bm.dependencies }
func (bm *BaseMigration) Transactional() bool    { return bm.transactional }

func (bm *BaseMigration) SetTransactional(t bool) { bm.transactional = t }

func (bm *BaseMigration) Up(ctx context.Context, exec Executor) error {
	return fmt.Errorf("migrate: Up() must be implemented by %s", bm.version)
}

func (bm *BaseMigration) Down(ctx context.Context, exec Executor) error {
	return fmt.Errorf("migrate: Down() must be implemented by %s", bm.version)
}

// String renders a short identifier, useful in log lines.
func (bm *BaseMigration) String() string {
	return fmt.Sprintf("%s_%s", bm.version, bm.description)
}
