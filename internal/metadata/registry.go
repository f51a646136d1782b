package metadata

import (
	"reflect"
	"sync"

	"github.com/aurum-go/aurum/internal/ormerrors"
)

// Registry is the process-wide, append-only metadata cache (spec.md §5
// "Shared-resource policy"): reads take a shared read lock,
// and first-time construction of a given class's descriptor is
// serialized behind a per-class sync.Once so concurrent sessions never
// build the same descriptor twice.
type Registry struct {
	mutex       sync.RWMutex
	descriptors map[reflect.Type]*EntityDescriptor
	factories   map[reflect.Type]func() *EntityDescriptor
	once        map[reflect.Type]*sync.Once

	inheritance map[reflect.Type]*InheritanceDescriptor // keyed by root class
}

// NewRegistry returns an empty metadata registry.
func NewRegistry() *Registry {
	return &Registry{
		descriptors: make(map[reflect.Type]*EntityDescriptor),
		factories:   make(map[reflect.Type]func() *EntityDescriptor),
		once:        make(map[reflect.Type]*sync.Once),
		inheritance: make(map[reflect.Type]*InheritanceDescriptor),
	}
}

func normalize(class reflect.Type) reflect.Type {
	if class.Kind() == reflect.Ptr {
		return class.Elem()
	}
	return class
}

// RegisterFactory installs the builder function used to construct a
// class's EntityDescriptor the first time Describe is called for it.
// Registering twice for the same class is idempotent (the later call
// wins before the first Describe).
func (r *Registry) RegisterFactory(class reflect.Type, factory func() *EntityDescriptor) {
	class = normalize(class)

	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.factories[class] = factory
	if _, ok := r.once[class]; !ok {
		r.once[class] = &sync.Once{}
	}
}

// Describe returns the EntityDescriptor for class, building and
// caching it on first use (spec.md §4.1: "idempotent; caches results").
func (r *Registry) Describe(class reflect.Type) (*EntityDescriptor, error) {
	class = normalize(class)

	r.mutex.RLock()
	if d, ok := r.descriptors[class]; ok {
		r.mutex.RUnlock()
		return d, nil
	}
	once, hasFactory := r.once[class]
	factory := r.factories[class]
	r.mutex.RUnlock()

	if !hasFactory {
		return nil, ormerrors.NewMetadataError(class.Name(), "no metadata registered for this class", nil)
	}

	var built *EntityDescriptor
	var buildErr error
	once.Do(func() {
		built = factory()
		if built.Identifier == nil {
			buildErr = ormerrors.NewMetadataError(class.Name(), "missing identifier field", nil)
			return
		}
		r.mutex.Lock()
		r.descriptors[class] = built
		r.mutex.Unlock()
	})

	if buildErr != nil {
		return nil, buildErr
	}

	r.mutex.RLock()
	d := r.descriptors[class]
	r.mutex.RUnlock()
	if d == nil {
		return nil, ormerrors.NewMetadataError(class.Name(), "descriptor construction failed", nil)
	}
	return d, nil
}

// InheritanceRoot declares class as the root of a new hierarchy using
// strategy, with the given discriminator column/length, and registers
// its own discriminator value. Calling it twice for the same root is
// idempotent.
func (r *Registry) InheritanceRoot(root reflect.Type, strategy InheritanceStrategy, discriminatorColumn string, discriminatorLength int, discriminatorValue string) *InheritanceDescriptor {
	root = normalize(root)

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if existing, ok := r.inheritance[root]; ok {
		return existing
	}

	desc := &InheritanceDescriptor{
		Strategy:             strategy,
		DiscriminatorColumn:  discriminatorColumn,
		DiscriminatorLength:  discriminatorLength,
		Root:                 root,
		discriminatorToClass: map[string]reflect.Type{discriminatorValue: root},
		classToDiscriminator: map[reflect.Type]string{root: discriminatorValue},
	}
	r.inheritance[root] = desc
	return desc
}

// InheritanceRegister grows a hierarchy as children are introspected
// (spec.md §4.1 "inheritanceRegister"). It is idempotent on duplicate
// (root, child, value) registrations, and fatal (MetadataError) on a
// discriminator collision between siblings.
func (r *Registry) InheritanceRegister(root, child reflect.Type, discriminatorValue string) error {
	root = normalize(root)
	child = normalize(child)

	r.mutex.Lock()
	defer r.mutex.Unlock()

	desc, ok := r.inheritance[root]
	if !ok {
		return ormerrors.NewMetadataError(root.Name(), "inheritance root not registered", nil)
	}

	if existingClass, taken := desc.discriminatorToClass[discriminatorValue]; taken {
		if existingClass == child {
			return nil // idempotent re-registration
		}
		return ormerrors.NewMetadataError(child.Name(), "ambiguous inheritance: discriminator value \""+discriminatorValue+"\" already used by "+existingClass.Name(), nil)
	}

	if v, already := desc.classToDiscriminator[child]; already && v != discriminatorValue {
		return ormerrors.NewMetadataError(child.Name(), "ambiguous inheritance: class already registered under a different discriminator value", nil)
	}

	if desc.Strategy == Joined {
		return ormerrors.NewMetadataError(child.Name(), "joined inheritance not supported", nil)
	}

	desc.discriminatorToClass[discriminatorValue] = child
	desc.classToDiscriminator[child] = discriminatorValue
	alreadyChild := false
	for _, c := range desc.Children {
		if c == child {
			alreadyChild = true
			break
		}
	}
	if !alreadyChild {
		desc.Children = append(desc.Children, child)
	}
	return nil
}

// Inheritance returns the InheritanceDescriptor registered for root, if
// any.
func (r *Registry) Inheritance(root reflect.Type) (*InheritanceDescriptor, bool) {
	root = normalize(root)
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	d, ok := r.inheritance[root]
	return d, ok
}

// DefaultJoinTable derives the junction table/column names spec.md
// §4.3 specifies when a ManyToMany association carries no explicit
// JoinTableDescriptor: table = ownerTable_targetTable, columns =
// ownerTable_id / targetTable_id.
func DefaultJoinTable(ownerTable, targetTable string) *JoinTableDescriptor {
	return &JoinTableDescriptor{
		TableName:     ownerTable + "_" + targetTable,
		OwnerColumn:   ownerTable + "_id",
		InverseColumn: targetTable + "_id",
	}
}
