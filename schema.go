package aurum

import (
	"github.com/aurum-go/aurum/internal/schema"
)

// SchemaBuilder re-exports, the declarative DDL collaborator spec.md
// §4.5 treats as an external interface.
type (
	SchemaBuilder    = schema.Builder
	SchemaTable      = schema.Table
	ColumnDefinition = schema.ColumnDefinition
	IndexDefinition  = schema.IndexDefinition
	ForeignKeyDefinition = schema.ForeignKeyDefinition
)

// Schema returns a SchemaBuilder bound to the Engine's Connection, for
// declarative Create/Alter/Drop table operations.
func (e *Engine) Schema() *SchemaBuilder {
	return schema.New(e.conn)
}
