// Package metadata is Aurum's Metadata & Inheritance Model: the static,
// process-wide description of entity classes compiled once from a
// fluent Builder and reused by the unit of work, query builder and
// hydrator.
package metadata

import (
	"reflect"

	"github.com/aurum-go/aurum/internal/types"
)

// AssociationKind enumerates the four relationship shapes Aurum
// resolves joins for.
type AssociationKind string

const (
	ManyToOne  AssociationKind = "many-to-one"
	OneToMany  AssociationKind = "one-to-many"
	OneToOne   AssociationKind = "one-to-one"
	ManyToMany AssociationKind = "many-to-many"
)

// CascadeOp is one of the two cascade operations a persist/remove can
// propagate across an association.
type CascadeOp string

const (
	CascadePersist CascadeOp = "persist"
	CascadeRemove  CascadeOp = "remove"
)

// FetchMode controls whether an association is loaded alongside its
// owner or only on explicit access.
type FetchMode string

const (
	Lazy  FetchMode = "lazy"
	Eager FetchMode = "eager"
)

// InheritanceStrategy enumerates the supported inheritance mapping
// strategies. Only SingleTable is fully implemented; see DESIGN.md for
// the Joined open-question resolution.
type InheritanceStrategy string

const (
	SingleTable InheritanceStrategy = "single-table"
	Joined      InheritanceStrategy = "joined"
)

// GenerationStrategy controls how an identifier field's value is
// produced on insert.
type GenerationStrategy string

const (
	GenerationNone   GenerationStrategy = "none"
	GenerationAuto   GenerationStrategy = "auto-increment"
	GenerationUUID   GenerationStrategy = "uuid"
)

// accessor is the precompiled (get, set) pair for one field, built once
// at describe() time so the unit of work and hydrator never walk
// reflect.Type themselves (spec.md §9 "Dynamic property access").
type accessor struct {
	get func(entity reflect.Value) interface{}
	set func(entity reflect.Value, dbValue interface{})
}

// FieldDescriptor describes a single-column field.
type FieldDescriptor struct {
	FieldName          string
	ColumnName         string
	Logical            types.Logical
	Nullable           bool
	Unique             bool
	Length             int
	Precision           int
	Scale              int
	Default            interface{}
	IsIdentifier       bool
	GenerationStrategy GenerationStrategy

	accessor accessor
}

// Get reads the field's current serialised (database-ready) value off
// an entity.
func (f *FieldDescriptor) Get(entity reflect.Value) interface{} {
	return f.accessor.get(entity)
}

// Set writes a value scanned from the database onto an entity's field.
func (f *FieldDescriptor) Set(entity reflect.Value, dbValue interface{}) {
	f.accessor.set(entity, dbValue)
}

// MultiColumnFieldDescriptor describes a value type whose persisted
// representation spans more than one physical column (spec.md §3).
type MultiColumnFieldDescriptor struct {
	FieldName  string
	BaseColumn string
	Codec      types.MultiColumnCodec
	Nullable   bool

	accessor accessor
}

func (f *MultiColumnFieldDescriptor) Get(entity reflect.Value) interface{} {
	return f.accessor.get(entity)
}

func (f *MultiColumnFieldDescriptor) Set(entity reflect.Value, value interface{}) {
	f.accessor.set(entity, value)
}

// ColumnNames returns the physical column names this field occupies:
// BaseColumn+postfix for each postfix in the codec.
func (f *MultiColumnFieldDescriptor) ColumnNames() []string {
	postfixes := f.Codec.Postfixes()
	out := make([]string, len(postfixes))
	for i, p := range postfixes {
		out[i] = f.BaseColumn + p
	}
	return out
}

// JoinTableDescriptor describes the junction table backing an owning
// ManyToMany association.
type JoinTableDescriptor struct {
	TableName         string
	OwnerColumn       string
	InverseColumn     string
}

// AssociationDescriptor describes a relationship to another entity
// class.
type AssociationDescriptor struct {
	FieldName  string
	Kind       AssociationKind
	Target     reflect.Type
	Owning     bool
	MappedBy   string // inverse field name on the target, for non-owning sides
	Cascade    map[CascadeOp]bool
	Fetch      FetchMode
	OrphanRemoval bool

	// Owning ManyToOne/OneToOne
	JoinColumn       string
	ReferencedColumn string

	// Owning ManyToMany
	JoinTable *JoinTableDescriptor

	accessor accessor
}

func (a *AssociationDescriptor) Get(entity reflect.Value) interface{} {
	return a.accessor.get(entity)
}

func (a *AssociationDescriptor) Set(entity reflect.Value, value interface{}) {
	a.accessor.set(entity, value)
}

func (a *AssociationDescriptor) CascadePersist() bool { return a.Cascade[CascadePersist] }
func (a *AssociationDescriptor) CascadeRemove() bool  { return a.Cascade[CascadeRemove] }

// InheritanceDescriptor describes a single-table (or, per the open
// question, joined) inheritance hierarchy.
type InheritanceDescriptor struct {
	Strategy           InheritanceStrategy
	DiscriminatorColumn string
	DiscriminatorLength int
	Root               reflect.Type
	Parent             reflect.Type
	Children           []reflect.Type

	// discriminatorToClass / classToDiscriminator form the bidirectional
	// map spec.md §3 requires.
	discriminatorToClass map[string]reflect.Type
	classToDiscriminator map[reflect.Type]string
}

// ClassForDiscriminator resolves a discriminator value to its concrete
// class, or (nil, false) if the value is not registered — the
// "discriminator value not in the discriminator map" HydrationError
// case from spec.md §7.
func (i *InheritanceDescriptor) ClassForDiscriminator(value string) (reflect.Type, bool) {
	t, ok := i.discriminatorToClass[value]
	return t, ok
}

// DiscriminatorForClass resolves a concrete class to its discriminator
// value.
func (i *InheritanceDescriptor) DiscriminatorForClass(t reflect.Type) (string, bool) {
	v, ok := i.classToDiscriminator[t]
	return v, ok
}

// AllDiscriminatorValues returns every registered discriminator value,
// root first, in registration order — used for the root-class `disc IN
// (...)` predicate (spec.md §4.3).
func (i *InheritanceDescriptor) AllDiscriminatorValues() []string {
	out := make([]string, 0, len(i.discriminatorToClass)+1)
	if v, ok := i.classToDiscriminator[i.Root]; ok {
		out = append(out, v)
	}
	for _, child := range i.Children {
		if v, ok := i.classToDiscriminator[child]; ok {
			out = append(out, v)
		}
	}
	return out
}

// IdentityKey deduplicates instances within a unit of work: same root
// class, same identifier value (spec.md §3). RootClass, not the
// concrete class, so inheritance siblings sharing a table share an
// identity space.
type IdentityKey struct {
	RootClass reflect.Type
	ID        interface{}
}

// EntityDescriptor is the compiled metadata for a single entity class.
type EntityDescriptor struct {
	Class           reflect.Type
	TableName       string
	Fields          []*FieldDescriptor
	MultiColumnFields []*MultiColumnFieldDescriptor
	Associations    []*AssociationDescriptor
	Identifier      *FieldDescriptor
	Inheritance     *InheritanceDescriptor
}

// RootClass returns the class identity keys are computed against: the
// inheritance root when the descriptor belongs to a hierarchy,
// otherwise the descriptor's own class.
func (e *EntityDescriptor) RootClass() reflect.Type {
	if e.Inheritance != nil {
		return e.Inheritance.Root
	}
	return e.Class
}

// FieldByName finds a single-column field by its Go field name.
func (e *EntityDescriptor) FieldByName(name string) (*FieldDescriptor, bool) {
	for _, f := range e.Fields {
		if f.FieldName == name {
			return f, true
		}
	}
	return nil, false
}

// AssociationByName finds an association by its Go field name.
func (e *EntityDescriptor) AssociationByName(name string) (*AssociationDescriptor, bool) {
	for _, a := range e.Associations {
		if a.FieldName == name {
			return a, true
		}
	}
	return nil, false
}

// ColumnNames returns every physical column name on the table,
// expanding multi-column fields and including the inheritance
// discriminator column when present (spec.md §4.1).
func (e *EntityDescriptor) ColumnNames() []string {
	names := make([]string, 0, len(e.Fields)+len(e.MultiColumnFields))
	for _, f := range e.Fields {
		names = append(names, f.ColumnName)
	}
	for _, f := range e.MultiColumnFields {
		names = append(names, f.ColumnNames()...)
	}
	for _, a := range e.Associations {
		if a.Owning && a.JoinColumn != "" {
			names = append(names, a.JoinColumn)
		}
	}
	if e.Inheritance != nil && e.Inheritance.DiscriminatorColumn != "" {
		names = append(names, e.Inheritance.DiscriminatorColumn)
	}
	return names
}

// FieldNameForColumn resolves a physical column name back to a field
// name, returning the synthetic "__discriminator" for the inheritance
// discriminator column (spec.md §4.1).
func (e *EntityDescriptor) FieldNameForColumn(column string) (string, bool) {
	if e.Inheritance != nil && column == e.Inheritance.DiscriminatorColumn {
		return "__discriminator", true
	}
	for _, f := range e.Fields {
		if f.ColumnName == column {
			return f.FieldName, true
		}
	}
	for _, f := range e.MultiColumnFields {
		for _, c := range f.ColumnNames() {
			if c == column {
				return f.FieldName, true
			}
		}
	}
	for _, a := range e.Associations {
		if a.Owning && a.JoinColumn == column {
			return a.FieldName, true
		}
	}
	return "", false
}
