package metadata

import (
	"reflect"

	"github.com/aurum-go/aurum/internal/types"
)

// Builder is the runtime replacement for the source system's
// attribute-driven metadata (spec.md §9): callers describe an entity
// class through a fluent chain instead of declarative annotations, and
// the result is an identical descriptor graph.
type Builder struct {
	class     reflect.Type
	tableName string
	fields    []*FieldDescriptor
	multi     []*MultiColumnFieldDescriptor
	assocs    []*AssociationDescriptor
	identifier *FieldDescriptor
}

// Define starts a new EntityDescriptor builder for a struct type. class
// must be a struct type (not a pointer); entities are addressed by
// pointer everywhere else in Aurum, but the descriptor itself describes
// the value type so reflect.New(class) produces a fresh instance.
func Define(class reflect.Type, tableName string) *Builder {
	if class.Kind() == reflect.Ptr {
		class = class.Elem()
	}
	return &Builder{class: class, tableName: tableName}
}

// Field registers a single-column field, locating its Go struct field
// by name and compiling its accessor pair once.
func (b *Builder) Field(fieldName, columnName string, logical types.Logical) *FieldBuilder {
	sf, ok := b.class.FieldByName(fieldName)
	if !ok {
		panic("metadata: field " + fieldName + " not found on " + b.class.Name())
	}

	fd := &FieldDescriptor{
		FieldName:  fieldName,
		ColumnName: columnName,
		Logical:    logical,
		accessor:   compileAccessor(sf, logical),
	}
	b.fields = append(b.fields, fd)
	return &FieldBuilder{fd: fd}
}

// ID registers the identifier field. Exactly one identifier is allowed
// per descriptor (spec.md §3 "exactly one identifier field").
func (b *Builder) ID(fieldName, columnName string, logical types.Logical, strategy GenerationStrategy) *Builder {
	fb := b.Field(fieldName, columnName, logical)
	fb.fd.IsIdentifier = true
	fb.fd.GenerationStrategy = strategy
	b.identifier = fb.fd
	return b
}

// MultiColumnField registers a value type spanning several physical
// columns, such as a timezone-aware timestamp.
func (b *Builder) MultiColumnField(fieldName, baseColumn string, codec types.MultiColumnCodec) *Builder {
	sf, ok := b.class.FieldByName(fieldName)
	if !ok {
		panic("metadata: field " + fieldName + " not found on " + b.class.Name())
	}

	b.multi = append(b.multi, &MultiColumnFieldDescriptor{
		FieldName:  fieldName,
		BaseColumn: baseColumn,
		Codec:      codec,
		accessor:   compileValueAccessor(sf),
	})
	return b
}

// HasMany registers an inverse OneToMany association.
func (b *Builder) HasMany(fieldName string, target reflect.Type, mappedBy string) *AssociationBuilder {
	return b.association(fieldName, OneToMany, target, false, mappedBy)
}

// BelongsTo registers an owning ManyToOne association.
func (b *Builder) BelongsTo(fieldName string, target reflect.Type, joinColumn, referencedColumn string) *AssociationBuilder {
	ab := b.association(fieldName, ManyToOne, target, true, "")
	ab.ad.JoinColumn = joinColumn
	ab.ad.ReferencedColumn = referencedColumn
	return ab
}

// HasOne registers an inverse OneToOne association.
func (b *Builder) HasOne(fieldName string, target reflect.Type, mappedBy string) *AssociationBuilder {
	return b.association(fieldName, OneToOne, target, false, mappedBy)
}

// OwnsOne registers an owning OneToOne association.
func (b *Builder) OwnsOne(fieldName string, target reflect.Type, joinColumn, referencedColumn string) *AssociationBuilder {
	ab := b.association(fieldName, OneToOne, target, true, "")
	ab.ad.JoinColumn = joinColumn
	ab.ad.ReferencedColumn = referencedColumn
	return ab
}

// HasManyToMany registers an owning ManyToMany association. join may be
// nil; the descriptor then keeps a nil JoinTable, and the query builder
// and unit of work fall back to DefaultJoinTable(owner, target) where
// they use it (spec.md §4.3 "default junction naming").
func (b *Builder) HasManyToMany(fieldName string, target reflect.Type, join *JoinTableDescriptor) *AssociationBuilder {
	ab := b.association(fieldName, ManyToMany, target, true, "")
	ab.ad.JoinTable = join
	return ab
}

// HasManyToManyInverse registers the non-owning side of a ManyToMany,
// pointing back at the owning field via mappedBy.
func (b *Builder) HasManyToManyInverse(fieldName string, target reflect.Type, mappedBy string) *AssociationBuilder {
	return b.association(fieldName, ManyToMany, target, false, mappedBy)
}

func (b *Builder) association(fieldName string, kind AssociationKind, target reflect.Type, owning bool, mappedBy string) *AssociationBuilder {
	sf, ok := b.class.FieldByName(fieldName)
	if !ok {
		panic("metadata: field " + fieldName + " not found on " + b.class.Name())
	}

	ad := &AssociationDescriptor{
		FieldName: fieldName,
		Kind:      kind,
		Target:    target,
		Owning:    owning,
		MappedBy:  mappedBy,
		Cascade:   make(map[CascadeOp]bool),
		Fetch:     Lazy,
		accessor:  compileValueAccessor(sf),
	}
	b.assocs = append(b.assocs, ad)
	return &AssociationBuilder{ad: ad}
}

// Build finalizes the descriptor. Inheritance, if any, is attached
// separately via the Registry's InheritanceRoot/InheritanceRegister calls
// so that a single InheritanceDescriptor can be shared across a
// hierarchy's many EntityDescriptors.
func (b *Builder) Build() *EntityDescriptor {
	if b.identifier == nil {
		panic("metadata: " + b.class.Name() + " has no identifier field")
	}
	return &EntityDescriptor{
		Class:             b.class,
		TableName:         b.tableName,
		Fields:            b.fields,
		MultiColumnFields: b.multi,
		Associations:      b.assocs,
		Identifier:        b.identifier,
	}
}

// FieldBuilder configures a FieldDescriptor after Field().
type FieldBuilder struct{ fd *FieldDescriptor }

func (f *FieldBuilder) Nullable() *FieldBuilder       { f.fd.Nullable = true; return f }
func (f *FieldBuilder) Unique() *FieldBuilder         { f.fd.Unique = true; return f }
func (f *FieldBuilder) Length(n int) *FieldBuilder     { f.fd.Length = n; return f }
func (f *FieldBuilder) Precision(p, s int) *FieldBuilder { f.fd.Precision, f.fd.Scale = p, s; return f }
func (f *FieldBuilder) Default(v interface{}) *FieldBuilder { f.fd.Default = v; return f }

// AssociationBuilder configures an AssociationDescriptor after a
// relationship-declaring call.
type AssociationBuilder struct{ ad *AssociationDescriptor }

func (a *AssociationBuilder) CascadePersist() *AssociationBuilder {
	a.ad.Cascade[CascadePersist] = true
	return a
}

func (a *AssociationBuilder) CascadeRemove() *AssociationBuilder {
	a.ad.Cascade[CascadeRemove] = true
	return a
}

func (a *AssociationBuilder) CascadeAll() *AssociationBuilder {
	a.ad.Cascade[CascadePersist] = true
	a.ad.Cascade[CascadeRemove] = true
	return a
}

func (a *AssociationBuilder) EagerLoad() *AssociationBuilder {
	a.ad.Fetch = Eager
	return a
}

func (a *AssociationBuilder) OrphanRemoval() *AssociationBuilder {
	a.ad.OrphanRemoval = true
	return a
}
