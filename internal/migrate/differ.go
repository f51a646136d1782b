package migrate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/aurum-go/aurum/internal/conn"
	"github.com/aurum-go/aurum/internal/metadata"
	"github.com/aurum-go/aurum/internal/ormerrors"
	"github.com/aurum-go/aurum/internal/schema"
	"github.com/aurum-go/aurum/internal/types"
)

// Differ is the schema-diff collaborator spec.md §4.5 describes: it
// compares the declarative target schema derived from an
// EntityDescriptor against the live introspected schema and emits an
// (up-DDL, down-DDL) Plan, via internal/schema's HasTable/
// GetColumnListing introspection — the same methods the teacher's
// DefaultSchemaBuilder exposes. Column types are not compared.
type Differ struct {
	conn    *conn.Conn
	builder *schema.Builder
}

// NewDiffer constructs a Differ bound to c.
func NewDiffer(c *conn.Conn) *Differ {
	return &Differ{conn: c, builder: schema.New(c)}
}

// Plan is the result of diffing one entity's declarative schema
// against the live database: the SQL (or missing-column list) needed
// to bring the table in line, plus its reverse.
type Plan struct {
	TableName      string
	TableExists    bool
	MissingColumns []schema.ColumnDefinition
	UpSQL          []string
	DownSQL        []string
}

// Diff produces the Plan for one entity descriptor's table. When the
// table does not exist, the plan is a full CREATE TABLE; when it
// exists, the plan adds only the columns the descriptor names that
// the live table lacks (spec.md never asks for column drops — removing
// a column the application still maps would be silently destructive).
func (d *Differ) Diff(ctx context.Context, descriptor *metadata.EntityDescriptor) (*Plan, error) {
	tableName := descriptor.TableName
	exists, err := d.builder.HasTable(ctx, tableName)
	if err != nil {
		return nil, ormerrors.NewMigrationError(tableName, "diff", err)
	}

	columns := descriptorColumns(descriptor)
	plan := &Plan{TableName: tableName, TableExists: exists}

	if !exists {
		plan.UpSQL = []string{createTablePreview(tableName, columns)}
		plan.DownSQL = []string{"DROP TABLE " + tableName}
		plan.MissingColumns = columns
		return plan, nil
	}

	existingColumns, err := d.builder.GetColumnListing(ctx, tableName)
	if err != nil {
		return nil, ormerrors.NewMigrationError(tableName, "diff", err)
	}
	present := make(map[string]bool, len(existingColumns))
	for _, c := range existingColumns {
		present[c] = true
	}

	for _, col := range columns {
		if !present[col.Name] {
			plan.MissingColumns = append(plan.MissingColumns, col)
		}
	}

	for _, col := range plan.MissingColumns {
		plan.UpSQL = append(plan.UpSQL, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", tableName, col.Name))
		plan.DownSQL = append(plan.DownSQL, fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", tableName, col.Name))
	}
	return plan, nil
}

// Apply executes the plan's additive changes via the Differ's own
// schema.Builder — used by callers that want the diff applied
// immediately rather than turned into a migration unit.
func (d *Differ) Apply(ctx context.Context, plan *Plan) error {
	if len(plan.MissingColumns) == 0 {
		return nil
	}
	if !plan.TableExists {
		return d.builder.Create(ctx, plan.TableName, func(tbl *schema.Table) {
			applyColumns(tbl, plan.MissingColumns)
		})
	}
	return d.builder.Alter(ctx, plan.TableName, func(tbl *schema.Table) {
		applyColumns(tbl, plan.MissingColumns)
	})
}

// TextualPreview renders the plan as a human-readable SQL preview —
// the first of the three output modes spec.md §4.5 names.
func (p *Plan) TextualPreview() string {
	var b strings.Builder
	fmt.Fprintf(&b, "-- up: %s\n", p.TableName)
	for _, stmt := range p.UpSQL {
		fmt.Fprintf(&b, "%s;\n", stmt)
	}
	fmt.Fprintf(&b, "-- down: %s\n", p.TableName)
	for _, stmt := range p.DownSQL {
		fmt.Fprintf(&b, "%s;\n", stmt)
	}
	return b.String()
}

// BuilderBlock renders the plan as a declarative internal/schema.Table
// callback — the second output mode — so it can be copied into a
// hand-authored migration body instead of the raw-SQL one.
func (p *Plan) BuilderBlock() string {
	var b strings.Builder
	if p.TableExists {
		fmt.Fprintf(&b, "schemaBuilder.Alter(ctx, %q, func(tbl *schema.Table) {\n", p.TableName)
	} else {
		fmt.Fprintf(&b, "schemaBuilder.Create(ctx, %q, func(tbl *schema.Table) {\n", p.TableName)
	}
	for _, col := range p.MissingColumns {
		fmt.Fprintf(&b, "\ttbl.%s\n", builderCallFor(col))
	}
	b.WriteString("})\n")
	return b.String()
}

// diffUnitTemplate is the third output mode: a persisted migration
// unit whose Up/Down issue the diff's raw SQL through Executor,
// reusing the same template shape as Generate's scaffolded unit.
var diffUnitTemplate = template.Must(template.New("diff-migration").Parse(`package {{.Package}}

import (
	"context"

	"github.com/aurum-go/aurum/internal/migrate"
)

// {{.TypeName}} was generated by aurum's schema differ.
type {{.TypeName}} struct {
	*migrate.BaseMigration
}

func New{{.TypeName}}() *{{.TypeName}} {
	return &{{.TypeName}}{
		BaseMigration: migrate.NewBaseMigration("{{.Version}}", "{{.Description}}"),
	}
}

func (m *{{.TypeName}}) Up(ctx context.Context, exec migrate.Executor) error {
{{range .UpSQL}}	if _, err := exec.ExecContext(ctx, {{printf "%q" .}}); err != nil {
		return err
	}
{{end}}	return nil
}

func (m *{{.TypeName}}) Down(ctx context.Context, exec migrate.Executor) error {
{{range .DownSQL}}	if _, err := exec.ExecContext(ctx, {{printf "%q" .}}); err != nil {
		return err
	}
{{end}}	return nil
}
`))

// PersistedUnitFile writes the plan as a migration unit file — the
// third output mode — reusing Generate's version/naming conventions.
func (p *Plan) PersistedUnitFile(registry *Registry, dir, packageName string, now time.Time) (version string, path string, err error) {
	description := "diff_" + p.TableName
	version = NewVersion(now)
	if registry != nil {
		if _, exists := registry.Get(version); exists {
			return "", "", ormerrors.NewMigrationError(version, "generation-conflict",
				fmt.Errorf("a migration unit already exists for version %s", version))
		}
	}

	typeName := camelCase(slugify(description))
	filename := fmt.Sprintf("%s_%s.go", version, slugify(description))
	path = filepath.Join(dir, filename)

	f, err := os.Create(path)
	if err != nil {
		return "", "", ormerrors.NewConfigurationError("migrations_dir", err)
	}
	defer f.Close()

	data := struct {
		Package     string
		TypeName    string
		Version     string
		Description string
		UpSQL       []string
		DownSQL     []string
	}{
		Package:     packageName,
		TypeName:    typeName,
		Version:     version,
		Description: description,
		UpSQL:       p.UpSQL,
		DownSQL:     p.DownSQL,
	}
	if err := diffUnitTemplate.Execute(f, data); err != nil {
		return "", "", ormerrors.NewMigrationError(version, "generation-conflict", err)
	}
	return version, path, nil
}

func descriptorColumns(descriptor *metadata.EntityDescriptor) []schema.ColumnDefinition {
	var out []schema.ColumnDefinition
	for _, f := range descriptor.Fields {
		out = append(out, fieldToColumn(f))
	}
	for _, mf := range descriptor.MultiColumnFields {
		for _, name := range mf.ColumnNames() {
			out = append(out, schema.ColumnDefinition{Name: name, Nullable: mf.Nullable})
		}
	}
	if descriptor.Inheritance != nil {
		out = append(out, schema.ColumnDefinition{
			Name:    descriptor.Inheritance.DiscriminatorColumn,
			Logical: types.String,
			Length:  descriptor.Inheritance.DiscriminatorLength,
		})
	}
	return out
}

func fieldToColumn(f *metadata.FieldDescriptor) schema.ColumnDefinition {
	return schema.ColumnDefinition{
		Name:          f.ColumnName,
		Logical:       f.Logical,
		Length:        f.Length,
		Precision:     f.Precision,
		Scale:         f.Scale,
		Nullable:      f.Nullable,
		Default:       f.Default,
		Unique:        f.Unique,
		Primary:       f.IsIdentifier,
		AutoIncrement: f.IsIdentifier && f.GenerationStrategy == metadata.GenerationAuto,
	}
}

func createTablePreview(tableName string, columns []schema.ColumnDefinition) string {
	var names []string
	for _, c := range columns {
		names = append(names, c.Name)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", tableName, strings.Join(names, ", "))
}

func applyColumns(tbl *schema.Table, columns []schema.ColumnDefinition) {
	for _, col := range columns {
		if col.Primary && col.AutoIncrement {
			tbl.ID()
			continue
		}
		spec := tbl.Column(col.Name, col.Logical)
		if !col.Nullable {
			spec.NotNull()
		}
		if col.Unique {
			spec.Unique()
		}
		if col.Unsigned {
			spec.Unsigned()
		}
		if col.Default != nil {
			spec.Default(col.Default)
		}
	}
}

func builderCallFor(col schema.ColumnDefinition) string {
	return fmt.Sprintf("Column(%q, %q)", col.Name, col.Logical)
}
