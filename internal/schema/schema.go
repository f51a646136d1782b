// Package schema is Aurum's SchemaBuilder collaborator: declarative
// table/column/index/foreign-key operations compiled to SQLite or
// MySQL DDL, plus introspection calls (HasTable, GetColumnListing,
// GetColumnType); the migration engine's Differ uses the first two.
package schema

import (
	"context"
	"fmt"

	"github.com/aurum-go/aurum/internal/conn"
	"github.com/aurum-go/aurum/internal/ormerrors"
	"github.com/aurum-go/aurum/internal/types"
)

// ColumnDefinition holds the complete definition of one physical
// column, dialect-agnostic until a Generator renders it.
type ColumnDefinition struct {
	Name          string
	Logical       types.Logical
	Length        int
	Precision     int
	Scale         int
	Nullable      bool
	Default       interface{}
	AutoIncrement bool
	Unsigned      bool
	Primary       bool
	Unique        bool
}

// IndexDefinition holds the complete definition of one index.
type IndexDefinition struct {
	Name    string
	Columns []string
	Type    string // "", "unique"
}

// ForeignKeyDefinition holds the complete definition of one foreign
// key constraint.
type ForeignKeyDefinition struct {
	Name             string
	Column           string
	ReferencedTable  string
	ReferencedColumn string
	OnDelete         string
	OnUpdate         string
}

// TableDefinition holds the complete definition of a table, built up
// by a Table's fluent calls and handed to a Generator.
type TableDefinition struct {
	Name        string
	Columns     []ColumnDefinition
	Indexes     []IndexDefinition
	ForeignKeys []ForeignKeyDefinition
}

// Foreign key actions, passed to Column.OnDelete/OnUpdate.
const (
	ActionCascade  = "CASCADE"
	ActionSetNull  = "SET NULL"
	ActionRestrict = "RESTRICT"
	ActionNoAction = "NO ACTION"
)

// Builder is Aurum's SchemaBuilder: the spec's external collaborator,
// given a concrete implementation here so migrations are exercisable
// end to end (SPEC_FULL.md §4.5).
type Builder struct {
	conn *conn.Conn
	gen  Generator
}

// New returns a Builder bound to c, selecting the DDL Generator for
// c's dialect.
func New(c *conn.Conn) *Builder {
	return &Builder{conn: c, gen: generatorFor(c.Dialect())}
}

// Create builds a new table via callback and executes the resulting
// CREATE TABLE plus its indexes/foreign keys.
func (b *Builder) Create(ctx context.Context, tableName string, callback func(*Table)) error {
	table := &Table{name: tableName}
	callback(table)
	def := table.definition()

	statements := []string{b.gen.CreateTable(def)}
	for _, idx := range def.Indexes {
		statements = append(statements, b.gen.CreateIndex(tableName, idx))
	}
	for _, fk := range def.ForeignKeys {
		statements = append(statements, b.gen.AddForeignKey(tableName, fk))
	}
	return b.execute(ctx, tableName, statements)
}

// Alter adds columns to an existing table via callback.
func (b *Builder) Alter(ctx context.Context, tableName string, callback func(*Table)) error {
	table := &Table{name: tableName}
	callback(table)
	def := table.definition()
	return b.execute(ctx, tableName, b.gen.AddColumns(tableName, def.Columns))
}

// Drop drops a table, tolerating its absence.
func (b *Builder) Drop(ctx context.Context, tableName string) error {
	return b.execute(ctx, tableName, []string{b.gen.DropTable(tableName)})
}

func (b *Builder) execute(ctx context.Context, tableName string, statements []string) error {
	tx, err := b.conn.Begin(ctx)
	if err != nil {
		return ormerrors.NewPersistenceError("schema", tableName, err)
	}
	for _, stmt := range statements {
		if stmt == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return ormerrors.NewPersistenceError("schema", tableName, fmt.Errorf("%s: %w", stmt, err))
		}
	}
	if err := tx.Commit(); err != nil {
		return ormerrors.NewPersistenceError("schema", tableName, err)
	}
	return nil
}

// HasTable reports whether tableName exists.
func (b *Builder) HasTable(ctx context.Context, tableName string) (bool, error) {
	var count int
	row := b.conn.QueryRowContext(ctx, b.gen.TableExistsQuery(), tableName)
	if err := row.Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetColumnListing returns every column name on tableName, in
// declared/ordinal order.
func (b *Builder) GetColumnListing(ctx context.Context, tableName string) ([]string, error) {
	rows, err := b.conn.QueryContext(ctx, b.gen.ColumnListingQuery(), tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		columns = append(columns, name)
	}
	return columns, rows.Err()
}

// GetColumnType returns the dialect-reported type string for one
// column. migrate.Differ does not call it; it compares column names
// only.
func (b *Builder) GetColumnType(ctx context.Context, tableName, columnName string) (string, error) {
	return b.gen.ColumnType(ctx, b.conn, tableName, columnName)
}
