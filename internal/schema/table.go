package schema

import "github.com/aurum-go/aurum/internal/types"

// Table is the fluent column/index/foreign-key builder a Create/Alter
// callback receives, mirroring the shape of the teacher's tableBuilder
// but keyed on the ORM's own types.Logical vocabulary instead of a
// parallel DDL-only type enum.
type Table struct {
	name        string
	columns     []*columnSpec
	indexes     []IndexDefinition
	foreignKeys []ForeignKeyDefinition
}

type columnSpec struct {
	def ColumnDefinition
}

// ID adds an auto-incrementing integer primary key named "id".
func (t *Table) ID() *columnSpec {
	c := &columnSpec{def: ColumnDefinition{
		Name: "id", Logical: types.BigInteger,
		AutoIncrement: true, Primary: true, Unsigned: true,
	}}
	t.columns = append(t.columns, c)
	return c
}

// Column adds a column of the given logical type.
func (t *Table) Column(name string, logical types.Logical) *columnSpec {
	c := &columnSpec{def: ColumnDefinition{Name: name, Logical: logical, Nullable: true}}
	t.columns = append(t.columns, c)
	return c
}

// String adds a VARCHAR-backed column, defaulting to length 255.
func (t *Table) String(name string, length ...int) *columnSpec {
	c := t.Column(name, types.String)
	if len(length) > 0 {
		c.def.Length = length[0]
	} else {
		c.def.Length = 255
	}
	return c
}

// Text adds an unbounded-length text column.
func (t *Table) Text(name string) *columnSpec { return t.Column(name, types.Text) }

// Integer adds an INT column.
func (t *Table) Integer(name string) *columnSpec { return t.Column(name, types.Integer) }

// BigInteger adds a BIGINT column, typically an owning FK column.
func (t *Table) BigInteger(name string) *columnSpec { return t.Column(name, types.BigInteger) }

// Boolean adds a BOOLEAN column.
func (t *Table) Boolean(name string) *columnSpec { return t.Column(name, types.Boolean) }

// Decimal adds a DECIMAL(precision, scale) column.
func (t *Table) Decimal(name string, precision, scale int) *columnSpec {
	c := t.Column(name, types.Decimal)
	c.def.Precision, c.def.Scale = precision, scale
	return c
}

// DateTime adds a DATETIME column.
func (t *Table) DateTime(name string) *columnSpec { return t.Column(name, types.DateTime) }

// JSON adds a JSON column.
func (t *Table) JSON(name string) *columnSpec { return t.Column(name, types.JSON) }

// UUID adds a UUID column, rendered as VARCHAR(255).
func (t *Table) UUID(name string) *columnSpec { return t.Column(name, types.UUID) }

// Timestamps adds created_at/updated_at DATETIME columns.
func (t *Table) Timestamps() *Table {
	t.columns = append(t.columns,
		&columnSpec{def: ColumnDefinition{Name: "created_at", Logical: types.DateTime, Nullable: true}},
		&columnSpec{def: ColumnDefinition{Name: "updated_at", Logical: types.DateTime, Nullable: true}},
	)
	return t
}

func (c *columnSpec) Nullable() *columnSpec      { c.def.Nullable = true; return c }
func (c *columnSpec) NotNull() *columnSpec       { c.def.Nullable = false; return c }
func (c *columnSpec) Unique() *columnSpec        { c.def.Unique = true; return c }
func (c *columnSpec) Unsigned() *columnSpec      { c.def.Unsigned = true; return c }
func (c *columnSpec) Default(v interface{}) *columnSpec { c.def.Default = v; return c }

// Index adds a plain (non-unique) index over columns.
func (t *Table) Index(columns ...string) *Table {
	t.indexes = append(t.indexes, IndexDefinition{
		Name: "idx_" + t.name + "_" + joinUnderscore(columns), Columns: columns,
	})
	return t
}

// Unique adds a unique index over columns.
func (t *Table) Unique(columns ...string) *Table {
	t.indexes = append(t.indexes, IndexDefinition{
		Name: "unq_" + t.name + "_" + joinUnderscore(columns), Columns: columns, Type: "unique",
	})
	return t
}

// ForeignKeyBuilder configures one constraint after Foreign.
type ForeignKeyBuilder struct {
	def *ForeignKeyDefinition
}

// Foreign declares column as an owning foreign key, referencing
// referencedTable(referencedColumn).
func (t *Table) Foreign(column, referencedTable, referencedColumn string) *ForeignKeyBuilder {
	def := ForeignKeyDefinition{
		Name:             "fk_" + t.name + "_" + column,
		Column:           column,
		ReferencedTable:  referencedTable,
		ReferencedColumn: referencedColumn,
	}
	t.foreignKeys = append(t.foreignKeys, def)
	return &ForeignKeyBuilder{def: &t.foreignKeys[len(t.foreignKeys)-1]}
}

func (f *ForeignKeyBuilder) OnDelete(action string) *ForeignKeyBuilder { f.def.OnDelete = action; return f }
func (f *ForeignKeyBuilder) OnUpdate(action string) *ForeignKeyBuilder { f.def.OnUpdate = action; return f }

func (t *Table) definition() *TableDefinition {
	def := &TableDefinition{Name: t.name, Indexes: t.indexes, ForeignKeys: t.foreignKeys}
	for _, c := range t.columns {
		def.Columns = append(def.Columns, c.def)
	}
	return def
}

func joinUnderscore(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += "_"
		}
		out += p
	}
	return out
}
