package schema

import (
	"context"
	"fmt"
	"strings"

	"github.com/aurum-go/aurum/internal/conn"
	"github.com/aurum-go/aurum/internal/types"
)

// Generator renders dialect-specific DDL and introspection SQL from
// the dialect-agnostic definitions Table assembles. Only SQLite and
// MySQL are implemented (spec.md's dialect scope).
type Generator interface {
	CreateTable(def *TableDefinition) string
	AddColumns(tableName string, columns []ColumnDefinition) []string
	DropTable(tableName string) string
	CreateIndex(tableName string, index IndexDefinition) string
	AddForeignKey(tableName string, fk ForeignKeyDefinition) string

	TableExistsQuery() string
	ColumnListingQuery() string
	ColumnType(ctx context.Context, c *conn.Conn, tableName, columnName string) (string, error)

	columnSQL(col ColumnDefinition) string
}

func generatorFor(dialect conn.Dialect) Generator {
	if dialect == conn.MySQL {
		return &mysqlGenerator{}
	}
	return &sqliteGenerator{}
}

// mapLogical renders the portion of a column type common to both
// dialects; callers still special-case length/precision.
func mapLogical(logical types.Logical, mysql bool) string {
	switch logical {
	case types.String, types.UUID:
		return "VARCHAR"
	case types.Text:
		return "TEXT"
	case types.Integer:
		return "INTEGER"
	case types.BigInteger:
		if mysql {
			return "BIGINT"
		}
		return "INTEGER"
	case types.Float:
		return "FLOAT"
	case types.Decimal:
		return "DECIMAL"
	case types.Boolean:
		if mysql {
			return "TINYINT(1)"
		}
		return "BOOLEAN"
	case types.Date:
		return "DATE"
	case types.Time:
		return "TIME"
	case types.DateTime, types.DateTimeTz:
		if mysql {
			return "DATETIME"
		}
		return "TEXT"
	case types.JSON:
		if mysql {
			return "JSON"
		}
		return "TEXT"
	case types.Binary:
		if mysql {
			return "BLOB"
		}
		return "BLOB"
	default:
		return "TEXT"
	}
}

func columnTypeSQL(col ColumnDefinition, mysql bool) string {
	base := mapLogical(col.Logical, mysql)
	switch col.Logical {
	case types.String, types.UUID:
		length := col.Length
		if length == 0 {
			length = 255
		}
		return fmt.Sprintf("VARCHAR(%d)", length)
	case types.Decimal:
		precision, scale := col.Precision, col.Scale
		if precision == 0 {
			precision = 10
		}
		return fmt.Sprintf("DECIMAL(%d,%d)", precision, scale)
	default:
		return base
	}
}

func formatDefault(v interface{}) string {
	switch val := v.(type) {
	case string:
		return "'" + val + "'"
	default:
		return fmt.Sprintf("%v", val)
	}
}

func joinColumns(columns []string) string { return strings.Join(columns, ", ") }
