package schema

import (
	"context"
	"fmt"
	"strings"

	"github.com/aurum-go/aurum/internal/conn"
)

// sqliteGenerator targets SQLite, which lacks ALTER TABLE ADD
// CONSTRAINT, ENGINE options and information_schema; introspection
// goes through the pragma_table_info table-valued function instead.
type sqliteGenerator struct{}

func (g *sqliteGenerator) columnSQL(col ColumnDefinition) string {
	sql := col.Name + " " + columnTypeSQL(col, false)
	if col.Primary && col.AutoIncrement {
		sql += " PRIMARY KEY AUTOINCREMENT"
	} else if col.Primary {
		sql += " PRIMARY KEY"
	}
	if !col.Nullable && !col.Primary {
		sql += " NOT NULL"
	}
	if col.Unique && !col.Primary {
		sql += " UNIQUE"
	}
	if col.Default != nil {
		if col.Default == "CURRENT_TIMESTAMP" {
			sql += " DEFAULT CURRENT_TIMESTAMP"
		} else {
			sql += " DEFAULT " + formatDefault(col.Default)
		}
	}
	return sql
}

func (g *sqliteGenerator) CreateTable(def *TableDefinition) string {
	var parts []string
	for _, col := range def.Columns {
		parts = append(parts, "  "+g.columnSQL(col))
	}
	for _, fk := range def.ForeignKeys {
		fkSQL := fmt.Sprintf("  FOREIGN KEY (%s) REFERENCES %s (%s)", fk.Column, fk.ReferencedTable, fk.ReferencedColumn)
		if fk.OnDelete != "" {
			fkSQL += " ON DELETE " + fk.OnDelete
		}
		if fk.OnUpdate != "" {
			fkSQL += " ON UPDATE " + fk.OnUpdate
		}
		parts = append(parts, fkSQL)
	}
	return fmt.Sprintf("CREATE TABLE %s (\n%s\n)", def.Name, strings.Join(parts, ",\n"))
}

func (g *sqliteGenerator) AddColumns(tableName string, columns []ColumnDefinition) []string {
	var out []string
	for _, col := range columns {
		out = append(out, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", tableName, g.columnSQL(col)))
	}
	return out
}

func (g *sqliteGenerator) DropTable(tableName string) string {
	return "DROP TABLE IF EXISTS " + tableName
}

func (g *sqliteGenerator) CreateIndex(tableName string, index IndexDefinition) string {
	prefix := "INDEX"
	if index.Type == "unique" {
		prefix = "UNIQUE INDEX"
	}
	return fmt.Sprintf("CREATE %s %s ON %s (%s)", prefix, index.Name, tableName, joinColumns(index.Columns))
}

// AddForeignKey returns an empty statement for SQLite: foreign keys are
// emitted inline by CreateTable, since SQLite cannot ALTER TABLE ADD
// CONSTRAINT. Builder.Create still calls it for each foreign key, and
// Builder.execute skips the empty statement.
func (g *sqliteGenerator) AddForeignKey(tableName string, fk ForeignKeyDefinition) string {
	return ""
}

func (g *sqliteGenerator) TableExistsQuery() string {
	return "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?"
}

func (g *sqliteGenerator) ColumnListingQuery() string {
	return "SELECT name FROM pragma_table_info(?)"
}

func (g *sqliteGenerator) ColumnType(ctx context.Context, c *conn.Conn, tableName, columnName string) (string, error) {
	var colType string
	row := c.QueryRowContext(ctx, "SELECT type FROM pragma_table_info(?) WHERE name = ?", tableName, columnName)
	if err := row.Scan(&colType); err != nil {
		return "", err
	}
	return colType, nil
}

var _ Generator = (*sqliteGenerator)(nil)
