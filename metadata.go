package aurum

import (
	"reflect"

	"github.com/aurum-go/aurum/internal/metadata"
	"github.com/aurum-go/aurum/internal/types"
)

// Metadata & Inheritance Model re-exports. internal/metadata cannot be
// imported outside this module, so the Builder/EntityDescriptor surface
// application code needs to describe its classes is aliased here —
// exactly the "Type aliases for backward compatibility" idiom the
// teacher applies to its own http types in application.go.
type (
	Builder                  = metadata.Builder
	FieldBuilder              = metadata.FieldBuilder
	AssociationBuilder        = metadata.AssociationBuilder
	EntityDescriptor          = metadata.EntityDescriptor
	FieldDescriptor           = metadata.FieldDescriptor
	MultiColumnFieldDescriptor = metadata.MultiColumnFieldDescriptor
	AssociationDescriptor     = metadata.AssociationDescriptor
	InheritanceDescriptor     = metadata.InheritanceDescriptor
	JoinTableDescriptor       = metadata.JoinTableDescriptor
	IdentityKey               = metadata.IdentityKey

	AssociationKind     = metadata.AssociationKind
	CascadeOp           = metadata.CascadeOp
	FetchMode           = metadata.FetchMode
	InheritanceStrategy = metadata.InheritanceStrategy
	GenerationStrategy  = metadata.GenerationStrategy

	Logical          = types.Logical
	MultiColumnCodec = types.MultiColumnCodec
	ZonedTime        = types.ZonedTime
)

const (
	ManyToOne  = metadata.ManyToOne
	OneToMany  = metadata.OneToMany
	OneToOne   = metadata.OneToOne
	ManyToMany = metadata.ManyToMany

	CascadePersist = metadata.CascadePersist
	CascadeRemove  = metadata.CascadeRemove

	Lazy  = metadata.Lazy
	Eager = metadata.Eager

	SingleTable = metadata.SingleTable
	Joined      = metadata.Joined

	GenerationNone = metadata.GenerationNone
	GenerationAuto = metadata.GenerationAuto
	GenerationUUID = metadata.GenerationUUID
)

const (
	String     = types.String
	Text       = types.Text
	Integer    = types.Integer
	BigInteger = types.BigInteger
	Float      = types.Float
	Decimal    = types.Decimal
	Boolean    = types.Boolean
	Date       = types.Date
	Time       = types.Time
	DateTime   = types.DateTime
	DateTimeTz = types.DateTimeTz
	JSON       = types.JSON
	UUID       = types.UUID
	Binary     = types.Binary
)

// NewZonedTimeCodec returns the built-in MultiColumnCodec for a
// timezone-aware timestamp stored across three columns (_utc, _local,
// _timezone) —
// the codec spec.md §8's "multi-column round-trip" property exercises.
func NewZonedTimeCodec() MultiColumnCodec {
	return types.NewZonedTimeCodec()
}

// Define starts a fluent entity descriptor for class, mapped to
// tableName — the entry point application code uses inside the
// factory it hands to Engine.Register.
func Define(class reflect.Type, tableName string) *Builder {
	return metadata.Define(class, tableName)
}

// InheritanceRoot declares root as the base of a class hierarchy using
// strategy, with the given discriminator column/length/value.
func (e *Engine) InheritanceRoot(root reflect.Type, strategy InheritanceStrategy, discriminatorColumn string, discriminatorLength int, discriminatorValue string) *InheritanceDescriptor {
	return e.registry.InheritanceRoot(root, strategy, discriminatorColumn, discriminatorLength, discriminatorValue)
}

// InheritanceRegister adds child as a concrete descendant of root,
// identified by discriminatorValue.
func (e *Engine) InheritanceRegister(root, child reflect.Type, discriminatorValue string) error {
	return e.registry.InheritanceRegister(root, child, discriminatorValue)
}

// Describe resolves (building and caching, if not already built) the
// EntityDescriptor for class.
func (e *Engine) Describe(class reflect.Type) (*EntityDescriptor, error) {
	return e.registry.Describe(class)
}
