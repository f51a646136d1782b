// Package uow is Aurum's Unit of Work & Identity Map: it tracks
// entities across a session, computes minimal SQL writes at flush time,
// enforces cascade/dependency ordering, and provides savepoint-scoped
// sub-units of work.
package uow

import (
	"fmt"
	"reflect"

	"github.com/aurum-go/aurum/internal/conn"
	"github.com/aurum-go/aurum/internal/metadata"
	"github.com/aurum-go/aurum/internal/ormerrors"
)

// EntityState is the lifecycle state of a single managed instance
// (spec.md §4.2 "State machine").
type EntityState string

const (
	StateNew      EntityState = "new"
	StateManaged  EntityState = "managed"
	StateRemoved  EntityState = "removed"
	StateDetached EntityState = "detached"
)

// AssocDelta is the add/remove buffer for one owning ManyToMany field
// on one managed entity, flushed as junction inserts/deletes.
type AssocDelta struct {
	Added   []interface{} // identifier values of targets added this session
	Removed []interface{} // identifier values of targets removed this session
}

// UnitOfWork tracks entities for the duration of a session.
type UnitOfWork struct {
	registry *metadata.Registry
	conn     *conn.Conn
	tx       *conn.Tx

	parent    *UnitOfWork   // set on a nested UoW created via CreateNestedUoW
	savepoint *conn.Savepoint

	identityMap map[metadata.IdentityKey]interface{}
	snapshots   map[metadata.IdentityKey]map[string]interface{}
	states      map[metadata.IdentityKey]EntityState
	assocBuffers map[metadata.IdentityKey]map[string]*AssocDelta

	// assocSnapshots holds, per managed entity and per orphan-removal
	// association field, the identifier values of the children it
	// pointed at as of the last Flush/registration — the baseline
	// Flush diffs against to detect a child detached from the
	// collection (spec.md §4.2 "Orphan-removal").
	assocSnapshots map[metadata.IdentityKey]map[string][]interface{}

	scheduledInserts []interface{} // insertion order
	scheduledDeletes []interface{}
}

// New returns an empty unit of work bound to c.
func New(registry *metadata.Registry, c *conn.Conn) *UnitOfWork {
	return &UnitOfWork{
		registry:       registry,
		conn:           c,
		identityMap:    make(map[metadata.IdentityKey]interface{}),
		snapshots:      make(map[metadata.IdentityKey]map[string]interface{}),
		states:         make(map[metadata.IdentityKey]EntityState),
		assocBuffers:   make(map[metadata.IdentityKey]map[string]*AssocDelta),
		assocSnapshots: make(map[metadata.IdentityKey]map[string][]interface{}),
	}
}

func (u *UnitOfWork) describe(entity interface{}) (*metadata.EntityDescriptor, reflect.Value, error) {
	v := reflect.ValueOf(entity)
	if v.Kind() != reflect.Ptr {
		return nil, reflect.Value{}, ormerrors.NewPersistenceError("describe", fmt.Sprintf("%T", entity), fmt.Errorf("entities must be addressed by pointer"))
	}
	descriptor, err := u.registry.Describe(v.Type())
	if err != nil {
		return nil, reflect.Value{}, err
	}
	return descriptor, v.Elem(), nil
}

func (u *UnitOfWork) keyFor(descriptor *metadata.EntityDescriptor, entityValue reflect.Value) metadata.IdentityKey {
	id := descriptor.Identifier.Get(entityValue)
	return metadata.IdentityKey{RootClass: descriptor.RootClass(), ID: id}
}

// Persist marks a new entity for insertion, recursively following
// cascade-persist associations.
func (u *UnitOfWork) Persist(entity interface{}) error {
	return u.persist(entity, make(map[interface{}]bool))
}

func (u *UnitOfWork) persist(entity interface{}, visited map[interface{}]bool) error {
	if visited[entity] {
		return nil
	}
	visited[entity] = true

	descriptor, entityValue, err := u.describe(entity)
	if err != nil {
		return err
	}

	key := u.keyFor(descriptor, entityValue)
	if state, ok := u.states[key]; ok && state != StateDetached {
		return nil // already tracked
	}

	u.states[key] = StateNew
	u.scheduledInserts = append(u.scheduledInserts, entity)

	for _, assoc := range descriptor.Associations {
		if !assoc.CascadePersist() {
			continue
		}
		targets := associationTargets(assoc, entityValue)
		for _, target := range targets {
			if err := u.persist(target, visited); err != nil {
				return err
			}
		}
	}
	return nil
}

// Remove marks a managed entity for deletion, cascading per
// cascade-remove.
func (u *UnitOfWork) Remove(entity interface{}) error {
	return u.remove(entity, make(map[interface{}]bool))
}

func (u *UnitOfWork) remove(entity interface{}, visited map[interface{}]bool) error {
	if visited[entity] {
		return nil
	}
	visited[entity] = true

	descriptor, entityValue, err := u.describe(entity)
	if err != nil {
		return err
	}
	key := u.keyFor(descriptor, entityValue)
	u.states[key] = StateRemoved
	u.scheduledDeletes = append(u.scheduledDeletes, entity)

	for _, assoc := range descriptor.Associations {
		if !assoc.CascadeRemove() {
			continue
		}
		targets := associationTargets(assoc, entityValue)
		for _, target := range targets {
			if err := u.remove(target, visited); err != nil {
				return err
			}
		}
	}
	return nil
}

// Manage attaches a detached entity by identifier; if an instance with
// the same IdentityKey is already present, that instance is returned
// and entity is discarded.
func (u *UnitOfWork) Manage(entity interface{}) (interface{}, error) {
	descriptor, entityValue, err := u.describe(entity)
	if err != nil {
		return nil, err
	}
	key := u.keyFor(descriptor, entityValue)
	if existing, ok := u.identityMap[key]; ok {
		return existing, nil
	}
	u.register(key, entity, descriptor, entityValue)
	return entity, nil
}

func (u *UnitOfWork) register(key metadata.IdentityKey, entity interface{}, descriptor *metadata.EntityDescriptor, entityValue reflect.Value) {
	u.identityMap[key] = entity
	u.states[key] = StateManaged
	u.snapshots[key] = snapshot(descriptor, entityValue)
	u.assocSnapshots[key] = u.snapshotOrphanAssociations(descriptor, entityValue)
}

// snapshotOrphanAssociations captures the identifier values of every
// child currently reachable through an orphan-removal OneToMany/OneToOne
// association, the baseline the next Flush diffs against.
func (u *UnitOfWork) snapshotOrphanAssociations(descriptor *metadata.EntityDescriptor, entityValue reflect.Value) map[string][]interface{} {
	out := make(map[string][]interface{})
	for _, assoc := range descriptor.Associations {
		if !assoc.OrphanRemoval {
			continue
		}
		if assoc.Kind != metadata.OneToMany && assoc.Kind != metadata.OneToOne {
			continue
		}
		out[assoc.FieldName] = u.associationIdentifiers(assoc, entityValue)
	}
	return out
}

// associationIdentifiers returns the identifier value of every entity
// currently reachable through assoc on entityValue.
func (u *UnitOfWork) associationIdentifiers(assoc *metadata.AssociationDescriptor, entityValue reflect.Value) []interface{} {
	targets := associationTargets(assoc, entityValue)
	if len(targets) == 0 {
		return nil
	}
	targetDescriptor, err := u.registry.Describe(assoc.Target)
	if err != nil {
		return nil
	}
	ids := make([]interface{}, 0, len(targets))
	for _, t := range targets {
		tv := reflect.ValueOf(t)
		if tv.Kind() == reflect.Ptr {
			tv = tv.Elem()
		}
		ids = append(ids, targetDescriptor.Identifier.Get(tv))
	}
	return ids
}

// Contains reports whether entity is tracked by this unit of work.
func (u *UnitOfWork) Contains(entity interface{}) bool {
	descriptor, entityValue, err := u.describe(entity)
	if err != nil {
		return false
	}
	key := u.keyFor(descriptor, entityValue)
	_, ok := u.states[key]
	return ok
}

// Clear detaches all managed entities; issues no SQL.
func (u *UnitOfWork) Clear() {
	u.identityMap = make(map[metadata.IdentityKey]interface{})
	u.snapshots = make(map[metadata.IdentityKey]map[string]interface{})
	u.states = make(map[metadata.IdentityKey]EntityState)
	u.assocBuffers = make(map[metadata.IdentityKey]map[string]*AssocDelta)
	u.assocSnapshots = make(map[metadata.IdentityKey]map[string][]interface{})
	u.scheduledInserts = nil
	u.scheduledDeletes = nil
}

// Lookup implements hydrate.IdentityResolver for managed hydration.
func (u *UnitOfWork) Lookup(key metadata.IdentityKey) (interface{}, bool) {
	v, ok := u.identityMap[key]
	return v, ok
}

// Register implements hydrate.IdentityResolver, snapshotting the
// freshly hydrated instance for later change detection.
func (u *UnitOfWork) Register(key metadata.IdentityKey, entity interface{}) {
	descriptor, err := u.registry.Describe(reflect.TypeOf(entity))
	if err != nil {
		return
	}
	entityValue := reflect.ValueOf(entity).Elem()
	u.register(key, entity, descriptor, entityValue)
}

// BufferAssocAdd records that target was added to entity's owning
// ManyToMany field this session.
func (u *UnitOfWork) BufferAssocAdd(entity interface{}, fieldName string, targetID interface{}) error {
	return u.bufferAssoc(entity, fieldName, targetID, true)
}

// BufferAssocRemove records that target was removed from entity's
// owning ManyToMany field this session.
func (u *UnitOfWork) BufferAssocRemove(entity interface{}, fieldName string, targetID interface{}) error {
	return u.bufferAssoc(entity, fieldName, targetID, false)
}

func (u *UnitOfWork) bufferAssoc(entity interface{}, fieldName string, targetID interface{}, added bool) error {
	descriptor, entityValue, err := u.describe(entity)
	if err != nil {
		return err
	}
	key := u.keyFor(descriptor, entityValue)

	buffers, ok := u.assocBuffers[key]
	if !ok {
		buffers = make(map[string]*AssocDelta)
		u.assocBuffers[key] = buffers
	}
	delta, ok := buffers[fieldName]
	if !ok {
		delta = &AssocDelta{}
		buffers[fieldName] = delta
	}

	if added {
		delta.Removed = removeID(delta.Removed, targetID)
		delta.Added = appendIfAbsent(delta.Added, targetID)
	} else {
		delta.Added = removeID(delta.Added, targetID)
		delta.Removed = appendIfAbsent(delta.Removed, targetID)
	}
	return nil
}

func appendIfAbsent(ids []interface{}, id interface{}) []interface{} {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

func removeID(ids []interface{}, id interface{}) []interface{} {
	out := ids[:0]
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}

// snapshot captures every single-column field's current value, used
// both for change detection and for the "original" values a failed
// flush must restore.
func snapshot(descriptor *metadata.EntityDescriptor, entityValue reflect.Value) map[string]interface{} {
	values := make(map[string]interface{}, len(descriptor.Fields))
	for _, f := range descriptor.Fields {
		values[f.FieldName] = f.Get(entityValue)
	}
	return values
}

// changeSet diffs entityValue's current field values against snapshot,
// returning only the changed columns (spec.md §4.2 "Change detection").
func changeSet(descriptor *metadata.EntityDescriptor, entityValue reflect.Value, snap map[string]interface{}) map[string]interface{} {
	changes := make(map[string]interface{})
	for _, f := range descriptor.Fields {
		if f.IsIdentifier {
			continue
		}
		current := f.Get(entityValue)
		if old, ok := snap[f.FieldName]; !ok || old != current {
			changes[f.ColumnName] = current
		}
	}
	return changes
}

// associationTargets returns the concrete entities reachable from one
// association field, whether it is a single reference or a slice.
func associationTargets(assoc *metadata.AssociationDescriptor, entityValue reflect.Value) []interface{} {
	value := assoc.Get(entityValue)
	if value == nil {
		return nil
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Slice {
		out := make([]interface{}, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			elem := rv.Index(i).Interface()
			if elem != nil {
				out = append(out, elem)
			}
		}
		return out
	}
	if rv.Kind() == reflect.Ptr && rv.IsNil() {
		return nil
	}
	return []interface{}{value}
}
