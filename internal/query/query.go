// Package query is Aurum's Query Builder & Join Resolver: a fluent,
// chainable SQL builder that resolves relationship joins and
// inheritance discriminator filters against entity metadata, in the
// style of the teacher's internal/database.queryBuilder.
package query

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/aurum-go/aurum/internal/conn"
	"github.com/aurum-go/aurum/internal/hydrate"
	"github.com/aurum-go/aurum/internal/metadata"
	"github.com/aurum-go/aurum/internal/ormerrors"
)

type whereClause struct {
	boolean   string // "AND" / "OR"
	fragment  string
	args      []interface{}
}

type joinClause struct {
	kind string // INNER/LEFT/RIGHT
	sql  string
	args []interface{}
}

// Builder accumulates query state through a fluent chain and compiles
// it to parameterised SQL on demand.
type Builder struct {
	conn     *conn.Conn
	registry *metadata.Registry

	rootDescriptor *metadata.EntityDescriptor
	rootAlias      string
	aliasClasses   map[string]reflect.Type // alias -> concrete class for auto-join resolution
	aliasDescs     map[string]*metadata.EntityDescriptor

	selects  []string
	joins    []joinClause
	wheres   []whereClause
	groupBy  []string
	having   []whereClause
	orders   []string
	limit    int
	offset   int
	junction int // counter for unique junction aliases
	eager    []string // relation names requested via With

	err error
}

// New starts a query builder bound to conn/registry.
func New(c *conn.Conn, registry *metadata.Registry) *Builder {
	return &Builder{
		conn:         c,
		registry:     registry,
		aliasClasses: make(map[string]reflect.Type),
		aliasDescs:   make(map[string]*metadata.EntityDescriptor),
		selects:      []string{"*"},
	}
}

// From sets the root entity class and its alias, emitting an
// inheritance discriminator predicate when the class participates in a
// hierarchy (spec.md §4.3 "From-clause resolution").
func (b *Builder) From(class reflect.Type, alias string) *Builder {
	descriptor, err := b.registry.Describe(class)
	if err != nil {
		b.err = err
		return b
	}
	b.rootDescriptor = descriptor
	b.rootAlias = alias
	b.aliasClasses[alias] = descriptor.Class
	b.aliasDescs[alias] = descriptor

	if descriptor.Inheritance == nil {
		return b
	}

	if descriptor.Class == descriptor.Inheritance.Root {
		values := descriptor.Inheritance.AllDiscriminatorValues()
		if len(values) > 1 {
			b.Where(alias+"."+descriptor.Inheritance.DiscriminatorColumn, "IN", toAnySlice(values))
		}
		return b
	}

	value, ok := descriptor.Inheritance.DiscriminatorForClass(descriptor.Class)
	if !ok {
		b.err = ormerrors.NewQueryError("", fmt.Errorf("no discriminator value registered for %s", descriptor.Class.Name()))
		return b
	}
	b.Where(alias+"."+descriptor.Inheritance.DiscriminatorColumn, "=", value)
	return b
}

func toAnySlice(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// Select overrides the selected columns (default "*").
func (b *Builder) Select(columns ...string) *Builder {
	b.selects = columns
	return b
}

// Where adds an AND-joined predicate.
func (b *Builder) Where(column, operator string, value interface{}) *Builder {
	return b.addWhere(&b.wheres, "AND", column, operator, value)
}

// AndWhere is an alias for Where, read more naturally after an initial
// Where call.
func (b *Builder) AndWhere(column, operator string, value interface{}) *Builder {
	return b.Where(column, operator, value)
}

// OrWhere adds an OR-joined predicate.
func (b *Builder) OrWhere(column, operator string, value interface{}) *Builder {
	return b.addWhere(&b.wheres, "OR", column, operator, value)
}

// WhereIn adds a `column IN (...)` predicate.
func (b *Builder) WhereIn(column string, values []interface{}) *Builder {
	return b.Where(column, "IN", values)
}

// WhereExists adds a `EXISTS (subquery)` predicate.
func (b *Builder) WhereExists(sub *Builder) *Builder {
	return b.whereSubquery("EXISTS", sub)
}

// WhereNotExists adds a `NOT EXISTS (subquery)` predicate.
func (b *Builder) WhereNotExists(sub *Builder) *Builder {
	return b.whereSubquery("NOT EXISTS", sub)
}

func (b *Builder) whereSubquery(keyword string, sub *Builder) *Builder {
	subSQL, subArgs, err := sub.ToSQL()
	if err != nil {
		b.err = err
		return b
	}
	b.wheres = append(b.wheres, whereClause{
		boolean:  "AND",
		fragment: fmt.Sprintf("%s (%s)", keyword, subSQL),
		args:     subArgs,
	})
	return b
}

// SubQuery returns a fresh Builder usable as a correlated or
// uncorrelated subquery in WhereExists/WhereNotExists or a bare IN.
func (b *Builder) SubQuery() *Builder {
	return New(b.conn, b.registry)
}

func (b *Builder) addWhere(target *[]whereClause, boolean, column, operator string, value interface{}) *Builder {
	frag, args := compareFragment(column, operator, value)
	*target = append(*target, whereClause{boolean: boolean, fragment: frag, args: args})
	return b
}

func compareFragment(column, operator string, value interface{}) (string, []interface{}) {
	switch strings.ToUpper(operator) {
	case "IN", "NOT IN":
		values := toInterfaceSlice(value)
		placeholders := make([]string, len(values))
		for i := range values {
			placeholders[i] = "?"
		}
		return fmt.Sprintf("%s %s (%s)", column, strings.ToUpper(operator), strings.Join(placeholders, ", ")), values
	case "IS", "IS NOT":
		if value == nil {
			return fmt.Sprintf("%s %s NULL", column, strings.ToUpper(operator)), nil
		}
		return fmt.Sprintf("%s %s ?", column, strings.ToUpper(operator)), []interface{}{value}
	default:
		return fmt.Sprintf("%s %s ?", column, operator), []interface{}{value}
	}
}

func toInterfaceSlice(value interface{}) []interface{} {
	if values, ok := value.([]interface{}); ok {
		return values
	}
	return []interface{}{value}
}

// GroupBy adds GROUP BY columns.
func (b *Builder) GroupBy(columns ...string) *Builder {
	b.groupBy = append(b.groupBy, columns...)
	return b
}

// Having adds an AND-joined HAVING predicate.
func (b *Builder) Having(column, operator string, value interface{}) *Builder {
	return b.addWhere(&b.having, "AND", column, operator, value)
}

// OrderBy adds an ORDER BY column, defaulting to ascending.
func (b *Builder) OrderBy(column string, direction ...string) *Builder {
	dir := "ASC"
	if len(direction) > 0 && strings.EqualFold(direction[0], "DESC") {
		dir = "DESC"
	}
	b.orders = append(b.orders, column+" "+dir)
	return b
}

// With requests relation be eager-loaded alongside the root query
// instead of left for a caller to join or query lazily: GetEntities
// issues one follow-up `WHERE IN` query per requested relation and
// stitches the results back onto each root entity by identity,
// avoiding the row multiplication a single mega-join would cause
// against the hydrator's one-row-at-a-time contract (spec.md §4.4,
// §9 "eager ManyToMany loading").
func (b *Builder) With(relation string) *Builder {
	b.eager = append(b.eager, relation)
	return b
}

// Limit sets the LIMIT clause.
func (b *Builder) Limit(n int) *Builder { b.limit = n; return b }

// Offset sets the OFFSET clause.
func (b *Builder) Offset(n int) *Builder { b.offset = n; return b }

// InnerJoin, LeftJoin, RightJoin join another entity's table into the
// query. source is either "alias.property" (triggering auto-join
// resolution) or an explicit "table alias" pair; on, if given, overrides
// auto-resolution with an explicit condition.
func (b *Builder) InnerJoin(source, alias string, on ...string) *Builder {
	return b.join("INNER", source, alias, on)
}

func (b *Builder) LeftJoin(source, alias string, on ...string) *Builder {
	return b.join("LEFT", source, alias, on)
}

func (b *Builder) RightJoin(source, alias string, on ...string) *Builder {
	return b.join("RIGHT", source, alias, on)
}

func (b *Builder) join(kind, source, alias string, explicitOn []string) *Builder {
	if len(explicitOn) > 0 {
		return b.rawJoin(kind, source, alias, explicitOn[0], nil)
	}
	return b.autoJoin(kind, source, alias)
}

func (b *Builder) rawJoin(kind, table, alias, on string, args []interface{}) *Builder {
	sql := fmt.Sprintf("%s JOIN %s %s ON %s", kind, b.conn.Quote(table), alias, on)
	b.joins = append(b.joins, joinClause{kind: kind, sql: sql, args: args})
	return b
}

// autoJoin resolves `alias.property` against the association metadata
// registered for the source alias's class (spec.md §4.3 "Auto-join
// resolution").
func (b *Builder) autoJoin(kind, source, alias string) *Builder {
	parts := strings.SplitN(source, ".", 2)
	var sourceAlias, property string
	if len(parts) == 2 {
		sourceAlias, property = parts[0], parts[1]
	} else {
		sourceAlias, property = b.rootAlias, parts[0]
	}

	sourceDesc, ok := b.aliasDescs[sourceAlias]
	if !ok {
		b.err = ormerrors.NewQueryError("", fmt.Errorf("unknown alias %q in join source", sourceAlias))
		return b
	}

	assoc, ok := sourceDesc.AssociationByName(property)
	if !ok {
		b.err = ormerrors.NewQueryError("", fmt.Errorf("unresolved join: %s has no association %q", sourceDesc.Class.Name(), property))
		return b
	}

	targetDesc, err := b.registry.Describe(assoc.Target)
	if err != nil {
		b.err = err
		return b
	}
	b.aliasClasses[alias] = targetDesc.Class
	b.aliasDescs[alias] = targetDesc

	switch assoc.Kind {
	case metadata.ManyToOne, metadata.OneToOne:
		if assoc.Owning {
			on := fmt.Sprintf("%s.%s = %s.%s", sourceAlias, assoc.JoinColumn, alias, assoc.ReferencedColumn)
			return b.rawJoin(kind, targetDesc.TableName, alias, on, nil)
		}
		inverse, ok := targetDesc.AssociationByName(assoc.MappedBy)
		if !ok {
			b.err = ormerrors.NewQueryError("", fmt.Errorf("unresolved join: inverse side %q missing mappedBy target", property))
			return b
		}
		on := fmt.Sprintf("%s.%s = %s.%s", sourceAlias, sourceDesc.Identifier.ColumnName, alias, inverse.JoinColumn)
		return b.rawJoin(kind, targetDesc.TableName, alias, on, nil)

	case metadata.OneToMany:
		inverse, ok := targetDesc.AssociationByName(assoc.MappedBy)
		if !ok {
			b.err = ormerrors.NewQueryError("", fmt.Errorf("unresolved join: %q has no mappedBy association on %s", assoc.MappedBy, targetDesc.Class.Name()))
			return b
		}
		on := fmt.Sprintf("%s.%s = %s.%s", sourceAlias, sourceDesc.Identifier.ColumnName, alias, inverse.JoinColumn)
		return b.rawJoin(kind, targetDesc.TableName, alias, on, nil)

	case metadata.ManyToMany:
		join := assoc.JoinTable
		ownerColumn, inverseColumn := "", ""
		if assoc.Owning {
			if join == nil {
				join = metadata.DefaultJoinTable(sourceDesc.TableName, targetDesc.TableName)
			}
			ownerColumn, inverseColumn = join.OwnerColumn, join.InverseColumn
		} else {
			owningAssoc, ok := targetDesc.AssociationByName(assoc.MappedBy)
			if !ok {
				b.err = ormerrors.NewQueryError("", fmt.Errorf("unresolved join: ManyToMany inverse %q missing owning side", property))
				return b
			}
			join = owningAssoc.JoinTable
			if join == nil {
				join = metadata.DefaultJoinTable(targetDesc.TableName, sourceDesc.TableName)
			}
			// swap roles: the inverse side's "owner" column in the
			// junction actually points at the target, and vice versa.
			ownerColumn, inverseColumn = join.InverseColumn, join.OwnerColumn
		}

		b.junction++
		junctionAlias := fmt.Sprintf("j%d", b.junction)
		onOwner := fmt.Sprintf("%s.%s = %s.%s", sourceAlias, sourceDesc.Identifier.ColumnName, junctionAlias, ownerColumn)
		b.rawJoin(kind, join.TableName, junctionAlias, onOwner, nil)

		onTarget := fmt.Sprintf("%s.%s = %s.%s", junctionAlias, inverseColumn, alias, targetDesc.Identifier.ColumnName)
		return b.rawJoin(kind, targetDesc.TableName, alias, onTarget, nil)
	}

	b.err = ormerrors.NewQueryError("", fmt.Errorf("unsupported association kind %q for auto-join", assoc.Kind))
	return b
}

// ToSQL compiles the builder to a parameterised SQL string and its
// bound arguments.
func (b *Builder) ToSQL() (string, []interface{}, error) {
	if b.err != nil {
		return "", nil, b.err
	}
	if b.rootDescriptor == nil {
		return "", nil, ormerrors.NewQueryError("", fmt.Errorf("missing FROM"))
	}

	var sqlb strings.Builder
	args := []interface{}{}

	sqlb.WriteString("SELECT ")
	sqlb.WriteString(strings.Join(b.selects, ", "))
	sqlb.WriteString(" FROM ")
	sqlb.WriteString(b.conn.Quote(b.rootDescriptor.TableName))
	sqlb.WriteString(" ")
	sqlb.WriteString(b.rootAlias)

	for _, j := range b.joins {
		sqlb.WriteString(" ")
		sqlb.WriteString(j.sql)
		args = append(args, j.args...)
	}

	if len(b.wheres) > 0 {
		frag, whereArgs := compileClauses(b.wheres)
		sqlb.WriteString(" WHERE ")
		sqlb.WriteString(frag)
		args = append(args, whereArgs...)
	}

	if len(b.groupBy) > 0 {
		sqlb.WriteString(" GROUP BY ")
		sqlb.WriteString(strings.Join(b.groupBy, ", "))
	}

	if len(b.having) > 0 {
		frag, havingArgs := compileClauses(b.having)
		sqlb.WriteString(" HAVING ")
		sqlb.WriteString(frag)
		args = append(args, havingArgs...)
	}

	if len(b.orders) > 0 {
		sqlb.WriteString(" ORDER BY ")
		sqlb.WriteString(strings.Join(b.orders, ", "))
	}

	if b.limit > 0 {
		sqlb.WriteString(" LIMIT " + strconv.Itoa(b.limit))
	}
	if b.offset > 0 {
		sqlb.WriteString(" OFFSET " + strconv.Itoa(b.offset))
	}

	return sqlb.String(), args, nil
}

func compileClauses(clauses []whereClause) (string, []interface{}) {
	var parts []string
	var args []interface{}
	for i, c := range clauses {
		if i == 0 {
			parts = append(parts, c.fragment)
		} else {
			parts = append(parts, c.boolean+" "+c.fragment)
		}
		args = append(args, c.args...)
	}
	return strings.Join(parts, " "), args
}

// ArrayIterator streams raw associative rows without any hydration.
type ArrayIterator struct {
	rows    *sql.Rows
	columns []string
	current map[string]interface{}
	err     error
}

func (it *ArrayIterator) Next(ctx context.Context) bool {
	if err := ctx.Err(); err != nil {
		it.err = err
		return false
	}
	if !it.rows.Next() {
		it.err = it.rows.Err()
		return false
	}
	if it.columns == nil {
		cols, err := it.rows.Columns()
		if err != nil {
			it.err = err
			return false
		}
		it.columns = cols
	}
	values := make([]interface{}, len(it.columns))
	scanArgs := make([]interface{}, len(it.columns))
	for i := range values {
		scanArgs[i] = &values[i]
	}
	if err := it.rows.Scan(scanArgs...); err != nil {
		it.err = err
		return false
	}
	row := make(map[string]interface{}, len(it.columns))
	for i, c := range it.columns {
		row[c] = values[i]
	}
	it.current = row
	return true
}

func (it *ArrayIterator) Row() map[string]interface{} { return it.current }
func (it *ArrayIterator) Err() error                   { return it.err }
func (it *ArrayIterator) Close() error                 { return it.rows.Close() }

// Columns returns the driver-reported column names in result order,
// populated once the first row has been read.
func (it *ArrayIterator) Columns() []string { return it.columns }

// ToArrayIterator executes the query and returns a lazy iterator of raw
// associative rows.
func (b *Builder) ToArrayIterator(ctx context.Context) (*ArrayIterator, error) {
	sqlStr, args, err := b.ToSQL()
	if err != nil {
		return nil, err
	}
	rows, err := b.conn.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, ormerrors.NewQueryError(sqlStr, err)
	}
	return &ArrayIterator{rows: rows}, nil
}

// ToEntityIterator executes the query and returns a lazy iterator of
// detached hydrated entities (not registered in any unit of work).
func (b *Builder) ToEntityIterator(ctx context.Context) (*hydrate.Iterator, error) {
	sqlStr, args, err := b.ToSQL()
	if err != nil {
		return nil, err
	}
	rows, err := b.conn.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, ormerrors.NewQueryError(sqlStr, err)
	}
	h := hydrate.New(b.rootDescriptor, b.registry, nil)
	return h.Stream(rows), nil
}

// GetEntities executes the query to completion and returns every
// matching row as a detached hydrated entity, resolving any relations
// requested via With before returning (spec.md §9 "eager ManyToMany
// loading"). Prefer ToEntityIterator for large result sets that don't
// need eager loading; eager loading requires every root in memory at
// once to batch its follow-up queries.
func (b *Builder) GetEntities(ctx context.Context) ([]interface{}, error) {
	it, err := b.ToEntityIterator(ctx)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var entities []interface{}
	for it.Next(ctx) {
		entities = append(entities, it.Entity())
	}
	if err := it.Err(); err != nil {
		return nil, err
	}

	if err := b.loadEager(ctx, entities); err != nil {
		return nil, err
	}
	return entities, nil
}

func (b *Builder) loadEager(ctx context.Context, entities []interface{}) error {
	if len(b.eager) == 0 || len(entities) == 0 {
		return nil
	}

	rootIDs := make([]interface{}, 0, len(entities))
	rootByKey := make(map[string]reflect.Value, len(entities))
	for _, e := range entities {
		ev := reflect.ValueOf(e).Elem()
		id := b.rootDescriptor.Identifier.Get(ev)
		rootIDs = append(rootIDs, id)
		rootByKey[eagerKey(id)] = ev
	}

	for _, relation := range b.eager {
		assoc, ok := b.rootDescriptor.AssociationByName(relation)
		if !ok {
			return ormerrors.NewQueryError("", fmt.Errorf("unresolved eager load: %s has no association %q", b.rootDescriptor.Class.Name(), relation))
		}
		if err := b.loadEagerAssociation(ctx, assoc, rootIDs, rootByKey); err != nil {
			return err
		}
	}
	return nil
}

// loadEagerAssociation fetches the "many" or inverse side of assoc for
// every root in rootByKey with a single WHERE IN query and assigns the
// result onto each root's association field.
func (b *Builder) loadEagerAssociation(ctx context.Context, assoc *metadata.AssociationDescriptor, rootIDs []interface{}, rootByKey map[string]reflect.Value) error {
	targetDescriptor, err := b.registry.Describe(assoc.Target)
	if err != nil {
		return err
	}

	switch assoc.Kind {
	case metadata.OneToMany, metadata.OneToOne:
		if assoc.Owning {
			return ormerrors.NewQueryError("", fmt.Errorf("eager load %q: owning %s side has no raw foreign key available after hydration, query it explicitly with a join instead", assoc.FieldName, assoc.Kind))
		}
		inverse, ok := targetDescriptor.AssociationByName(assoc.MappedBy)
		if !ok {
			return ormerrors.NewQueryError("", fmt.Errorf("eager load %q: %s has no mappedBy association %q", assoc.FieldName, targetDescriptor.Class.Name(), assoc.MappedBy))
		}
		rows, err := b.fetchRows(ctx, targetDescriptor, func(sub *Builder) {
			sub.Where("t."+inverse.JoinColumn, "IN", rootIDs)
		})
		if err != nil {
			return err
		}
		return b.stitchRows(targetDescriptor, rows, inverse.JoinColumn, assoc, rootByKey)

	case metadata.ManyToMany:
		join, ownerColumn, inverseColumn, err := b.manyToManyJoin(assoc, targetDescriptor)
		if err != nil {
			return err
		}
		const ownerAlias = "__eager_owner_id"
		rows, err := b.fetchRows(ctx, targetDescriptor, func(sub *Builder) {
			on := fmt.Sprintf("t.%s = j.%s", targetDescriptor.Identifier.ColumnName, inverseColumn)
			sub.InnerJoin(join.TableName, "j", on)
			sub.Where("j."+ownerColumn, "IN", rootIDs)
			sub.Select("t.*", "j."+ownerColumn+" AS "+ownerAlias)
		})
		if err != nil {
			return err
		}
		return b.stitchRows(targetDescriptor, rows, ownerAlias, assoc, rootByKey)

	default:
		return ormerrors.NewQueryError("", fmt.Errorf("eager load %q: unsupported association kind %q", assoc.FieldName, assoc.Kind))
	}
}

func (b *Builder) manyToManyJoin(assoc *metadata.AssociationDescriptor, targetDescriptor *metadata.EntityDescriptor) (*metadata.JoinTableDescriptor, string, string, error) {
	if assoc.Owning {
		join := assoc.JoinTable
		if join == nil {
			join = metadata.DefaultJoinTable(b.rootDescriptor.TableName, targetDescriptor.TableName)
		}
		return join, join.OwnerColumn, join.InverseColumn, nil
	}
	owningAssoc, ok := targetDescriptor.AssociationByName(assoc.MappedBy)
	if !ok {
		return nil, "", "", ormerrors.NewQueryError("", fmt.Errorf("eager load %q: ManyToMany inverse missing owning side %q", assoc.FieldName, assoc.MappedBy))
	}
	join := owningAssoc.JoinTable
	if join == nil {
		join = metadata.DefaultJoinTable(targetDescriptor.TableName, b.rootDescriptor.TableName)
	}
	return join, join.InverseColumn, join.OwnerColumn, nil
}

// fetchRows runs a fresh query over target's table (aliased "t"),
// configured by configure, and returns every raw associative row.
func (b *Builder) fetchRows(ctx context.Context, target *metadata.EntityDescriptor, configure func(*Builder)) ([]map[string]interface{}, error) {
	sub := New(b.conn, b.registry).From(target.Class, "t")
	configure(sub)
	it, err := sub.ToArrayIterator(ctx)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var rows []map[string]interface{}
	for it.Next(ctx) {
		rows = append(rows, it.Row())
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

// stitchRows hydrates each raw row into a target entity, groups them by
// the value of keyColumn, and assigns the grouped slice (OneToMany) or
// single value (OneToOne) onto the matching root's association field.
func (b *Builder) stitchRows(targetDescriptor *metadata.EntityDescriptor, rows []map[string]interface{}, keyColumn string, assoc *metadata.AssociationDescriptor, rootByKey map[string]reflect.Value) error {
	h := hydrate.New(targetDescriptor, b.registry, nil)
	buckets := make(map[string][]interface{})

	for _, row := range rows {
		columns := make([]string, 0, len(row))
		values := make([]interface{}, 0, len(row))
		for c, v := range row {
			columns = append(columns, c)
			values = append(values, v)
		}
		child, err := h.One(columns, values)
		if err != nil {
			return err
		}
		buckets[eagerKey(row[keyColumn])] = append(buckets[eagerKey(row[keyColumn])], child)
	}

	elemType := reflect.PointerTo(assoc.Target)
	for key, rootValue := range rootByKey {
		children := buckets[key]
		if assoc.Kind == metadata.ManyToMany || assoc.Kind == metadata.OneToMany {
			slice := reflect.MakeSlice(reflect.SliceOf(elemType), len(children), len(children))
			for i, c := range children {
				slice.Index(i).Set(reflect.ValueOf(c))
			}
			assoc.Set(rootValue, slice.Interface())
			continue
		}
		if len(children) > 0 {
			assoc.Set(rootValue, children[0])
		}
	}
	return nil
}

// eagerKey normalises a raw column/identifier value (which may arrive
// as int64 from the driver even when the Go field is a narrower numeric
// type) into a comparable bucket key.
func eagerKey(v interface{}) string {
	return fmt.Sprint(v)
}

// FirstOrNull executes the query with an implicit LIMIT 1 and returns
// the first raw row, or nil if there were none.
func (b *Builder) FirstOrNull(ctx context.Context) (map[string]interface{}, error) {
	b.limit = 1
	it, err := b.ToArrayIterator(ctx)
	if err != nil {
		return nil, err
	}
	defer it.Close()
	if !it.Next(ctx) {
		return nil, it.Err()
	}
	return it.Row(), nil
}

// SingleScalar returns the first column of the first row, failing with
// NotFound when the result set is empty. "First column" means the
// first name the driver reports for the row, not map iteration order,
// which Go deliberately randomises.
func (b *Builder) SingleScalar(ctx context.Context) (interface{}, error) {
	b.limit = 1
	it, err := b.ToArrayIterator(ctx)
	if err != nil {
		return nil, err
	}
	defer it.Close()
	if !it.Next(ctx) {
		if err := it.Err(); err != nil {
			return nil, err
		}
		return nil, ormerrors.NewNotFound(b.rootDescriptor.Class.Name(), nil)
	}

	row := it.Row()
	for _, c := range b.selects {
		if v, ok := row[c]; ok {
			return v, nil
		}
	}
	if cols := it.Columns(); len(cols) > 0 {
		return row[cols[0]], nil
	}
	return nil, ormerrors.NewNotFound(b.rootDescriptor.Class.Name(), nil)
}
