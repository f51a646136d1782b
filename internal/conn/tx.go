package conn

import (
	"context"
	"database/sql"
	"fmt"
)

// Tx is an in-flight transaction plus the savepoint depth of the
// UnitOfWork operating on it; nested UoWs issue deterministically named
// savepoints keyed off this depth (spec.md §4.2 "Concurrency of
// sub-UoWs").
type Tx struct {
	tx     *sql.Tx
	dialect Dialect
	depth  int
}

// Begin starts the outer transaction a flush runs inside.
func (c *Conn) Begin(ctx context.Context) (*Tx, error) {
	sqlTx, err := c.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	return &Tx{tx: sqlTx, dialect: c.dialect, depth: 0}, nil
}

func (t *Tx) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return t.tx.ExecContext(ctx, query, args...)
}

func (t *Tx) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, query, args...)
}

func (t *Tx) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return t.tx.QueryRowContext(ctx, query, args...)
}

func (t *Tx) Commit() error   { return t.tx.Commit() }
func (t *Tx) Rollback() error { return t.tx.Rollback() }

func (t *Tx) savepointName() string {
	return fmt.Sprintf("aurum_sp_%d", t.depth+1)
}

// Savepoint opens a nested transaction scope. Commit releases the
// savepoint (merging the nested UoW's effects into this one); Rollback
// rolls back to it, discarding everything issued since.
func (t *Tx) Savepoint(ctx context.Context) (*Savepoint, error) {
	name := t.savepointName()
	if _, err := t.tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return nil, fmt.Errorf("conn: failed to create savepoint %s: %w", name, err)
	}
	return &Savepoint{parent: t, name: name}, nil
}

// Savepoint is a reversible marker inside an enclosing transaction.
type Savepoint struct {
	parent *Tx
	name   string
}

func (s *Savepoint) Nested() *Tx {
	return &Tx{tx: s.parent.tx, dialect: s.parent.dialect, depth: s.parent.depth + 1}
}

func (s *Savepoint) Commit(ctx context.Context) error {
	_, err := s.parent.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+s.name)
	return err
}

func (s *Savepoint) Rollback(ctx context.Context) error {
	_, err := s.parent.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+s.name)
	return err
}
