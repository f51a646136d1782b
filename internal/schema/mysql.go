package schema

import (
	"context"
	"fmt"
	"strings"

	"github.com/aurum-go/aurum/internal/conn"
)

type mysqlGenerator struct{}

func (g *mysqlGenerator) columnSQL(col ColumnDefinition) string {
	sql := col.Name + " " + columnTypeSQL(col, true)
	if col.Unsigned {
		sql += " UNSIGNED"
	}
	if !col.Nullable {
		sql += " NOT NULL"
	}
	if col.AutoIncrement {
		sql += " AUTO_INCREMENT"
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

func (g *mysqlGenerator) CreateTable(def *TableDefinition) string {
	var parts []string
	var primary []string
	for _, col := range def.Columns {
		parts = append(parts, "  "+g.columnSQL(col))
		if col.Primary {
			primary = append(primary, col.Name)
		}
		if col.Unique {
			parts = append(parts, fmt.Sprintf("  UNIQUE KEY unq_%s_%s (%s)", def.Name, col.Name, col.Name))
		}
	}
	if len(primary) > 0 {
		parts = append(parts, fmt.Sprintf("  PRIMARY KEY (%s)", joinColumns(primary)))
	}
	return fmt.Sprintf("CREATE TABLE %s (\n%s\n) ENGINE=InnoDB", def.Name, strings.Join(parts, ",\n"))
}

func (g *mysqlGenerator) AddColumns(tableName string, columns []ColumnDefinition) []string {
	var out []string
	for _, col := range columns {
		out = append(out, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", tableName, g.columnSQL(col)))
	}
	return out
}

func (g *mysqlGenerator) DropTable(tableName string) string {
	return "DROP TABLE IF EXISTS " + tableName
}

func (g *mysqlGenerator) CreateIndex(tableName string, index IndexDefinition) string {
	prefix := "INDEX"
	if index.Type == "unique" {
		prefix = "UNIQUE INDEX"
	}
	return fmt.Sprintf("CREATE %s %s ON %s (%s)", prefix, index.Name, tableName, joinColumns(index.Columns))
}

func (g *mysqlGenerator) AddForeignKey(tableName string, fk ForeignKeyDefinition) string {
	sql := fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
		tableName, fk.Name, fk.Column, fk.ReferencedTable, fk.ReferencedColumn)
	if fk.OnDelete != "" {
		sql += " ON DELETE " + fk.OnDelete
	}
	if fk.OnUpdate != "" {
		sql += " ON UPDATE " + fk.OnUpdate
	}
	return sql
}

func (g *mysqlGenerator) TableExistsQuery() string {
	return "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?"
}

func (g *mysqlGenerator) ColumnListingQuery() string {
	return "SELECT column_name FROM information_schema.columns WHERE table_schema = DATABASE() AND table_name = ? ORDER BY ordinal_position"
}

func (g *mysqlGenerator) ColumnType(ctx context.Context, c *conn.Conn, tableName, columnName string) (string, error) {
	var dataType string
	row := c.QueryRowContext(ctx,
		"SELECT data_type FROM information_schema.columns WHERE table_schema = DATABASE() AND table_name = ? AND column_name = ?",
		tableName, columnName)
	if err := row.Scan(&dataType); err != nil {
		return "", err
	}
	return dataType, nil
}

var _ Generator = (*mysqlGenerator)(nil)
