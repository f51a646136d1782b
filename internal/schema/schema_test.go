package schema

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/aurum-go/aurum/internal/conn"
)

func openTestConn(t *testing.T) *conn.Conn {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return conn.Wrap(db, conn.SQLite)
}

func TestCreateTableThenHasTableAndColumns(t *testing.T) {
	c := openTestConn(t)
	b := New(c)
	ctx := context.Background()

	err := b.Create(ctx, "accounts", func(tbl *Table) {
		tbl.ID()
		tbl.String("email").NotNull().Unique()
		tbl.Decimal("balance", 10, 2).Default(0)
		tbl.Timestamps()
		tbl.Index("email")
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	has, err := b.HasTable(ctx, "accounts")
	if err != nil {
		t.Fatalf("has table: %v", err)
	}
	if !has {
		t.Fatalf("expected accounts to exist")
	}

	columns, err := b.GetColumnListing(ctx, "accounts")
	if err != nil {
		t.Fatalf("column listing: %v", err)
	}
	want := map[string]bool{"id": true, "email": true, "balance": true, "created_at": true, "updated_at": true}
	if len(columns) != len(want) {
		t.Fatalf("expected %d columns, got %v", len(want), columns)
	}
	for _, c := range columns {
		if !want[c] {
			t.Errorf("unexpected column %q", c)
		}
	}
}

func TestAlterAddsColumn(t *testing.T) {
	c := openTestConn(t)
	b := New(c)
	ctx := context.Background()

	if err := b.Create(ctx, "widgets", func(tbl *Table) { tbl.ID() }); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := b.Alter(ctx, "widgets", func(tbl *Table) { tbl.String("name") }); err != nil {
		t.Fatalf("alter: %v", err)
	}

	columns, err := b.GetColumnListing(ctx, "widgets")
	if err != nil {
		t.Fatalf("column listing: %v", err)
	}
	found := false
	for _, c := range columns {
		if c == "name" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected altered table to contain the added column, got %v", columns)
	}
}

func TestDropTableIsIdempotent(t *testing.T) {
	c := openTestConn(t)
	b := New(c)
	ctx := context.Background()

	if err := b.Create(ctx, "temp", func(tbl *Table) { tbl.ID() }); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := b.Drop(ctx, "temp"); err != nil {
		t.Fatalf("drop: %v", err)
	}
	if err := b.Drop(ctx, "temp"); err != nil {
		t.Fatalf("second drop should be a no-op, got: %v", err)
	}

	has, err := b.HasTable(ctx, "temp")
	if err != nil {
		t.Fatalf("has table: %v", err)
	}
	if has {
		t.Errorf("expected temp to no longer exist")
	}
}

func TestForeignKeyEmbeddedInCreateTable(t *testing.T) {
	c := openTestConn(t)
	b := New(c)
	ctx := context.Background()

	if err := b.Create(ctx, "authors", func(tbl *Table) { tbl.ID() }); err != nil {
		t.Fatalf("create authors: %v", err)
	}
	err := b.Create(ctx, "books", func(tbl *Table) {
		tbl.ID()
		tbl.BigInteger("author_id")
		tbl.Foreign("author_id", "authors", "id").OnDelete(ActionCascade)
	})
	if err != nil {
		t.Fatalf("create books: %v", err)
	}

	has, err := b.HasTable(ctx, "books")
	if err != nil {
		t.Fatalf("has table: %v", err)
	}
	if !has {
		t.Fatalf("expected books to exist")
	}
}
