package conn

import (
	"context"
	"testing"
)

func openMemory(t *testing.T) *Conn {
	t.Helper()
	c, err := Open(Config{Driver: "sqlite", Path: ":memory:"})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestQuoteUsesDialectSpecificIdentifierStyle(t *testing.T) {
	sqliteConn := openMemory(t)
	if got := sqliteConn.Quote("users"); got != `"users"` {
		t.Errorf("expected double-quoted identifier on sqlite, got %s", got)
	}

	mysqlConn := Wrap(sqliteConn.DB(), MySQL)
	if got := mysqlConn.Quote("users"); got != "`users`" {
		t.Errorf("expected backtick-quoted identifier on mysql, got %s", got)
	}
}

func TestSavepointRollbackDiscardsNestedWrites(t *testing.T) {
	ctx := context.Background()
	c := openMemory(t)

	if _, err := c.ExecContext(ctx, "CREATE TABLE widgets (id INTEGER PRIMARY KEY, name TEXT)"); err != nil {
		t.Fatalf("create table: %v", err)
	}

	tx, err := c.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "INSERT INTO widgets (name) VALUES ('outer')"); err != nil {
		t.Fatalf("insert: %v", err)
	}

	sp, err := tx.Savepoint(ctx)
	if err != nil {
		t.Fatalf("savepoint: %v", err)
	}
	nested := sp.Nested()
	if nested.savepointName() != "aurum_sp_2" {
		t.Errorf("expected deterministic nested savepoint name, got %s", nested.savepointName())
	}

	if _, err := tx.ExecContext(ctx, "INSERT INTO widgets (name) VALUES ('should be undone')"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := sp.Rollback(ctx); err != nil {
		t.Fatalf("rollback savepoint: %v", err)
	}

	row := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM widgets")
	var count int
	if err := row.Scan(&count); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 row surviving the savepoint rollback, got %d", count)
	}
}
