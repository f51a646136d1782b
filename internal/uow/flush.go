package uow

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/aurum-go/aurum/internal/conn"
	"github.com/aurum-go/aurum/internal/metadata"
	"github.com/aurum-go/aurum/internal/ormerrors"
)

type deferredFK struct {
	entity interface{}
	assoc  *metadata.AssociationDescriptor
	target interface{}
}

// Flush applies pending changes: insertions precede updates, updates
// precede deletions, and insertions within a batch are topologically
// ordered so an owning side's referenced rows exist first (cycle
// breaking via deferred updates). Any per-statement failure rolls the
// whole flush back and leaves the in-memory identity map unchanged
// relative to the flush's start.
func (u *UnitOfWork) Flush(ctx context.Context) error {
	savedIdentityMap := cloneIdentityMap(u.identityMap)
	savedStates := cloneStates(u.states)
	savedSnapshots := cloneSnapshots(u.snapshots)
	savedAssocSnapshots := cloneAssocSnapshots(u.assocSnapshots)
	savedInserts := append([]interface{}{}, u.scheduledInserts...)
	savedDeletes := append([]interface{}{}, u.scheduledDeletes...)

	restore := func() {
		u.identityMap = savedIdentityMap
		u.states = savedStates
		u.snapshots = savedSnapshots
		u.assocSnapshots = savedAssocSnapshots
		u.scheduledInserts = savedInserts
		u.scheduledDeletes = savedDeletes
	}

	// A nested unit of work (created via CreateNestedUoW) already has an
	// active savepoint-scoped tx and commits/rolls back through its
	// parent, not here; flushing it only executes statements.
	if u.tx != nil {
		if err := u.runFlush(ctx, u.tx); err != nil {
			restore()
			return err
		}
		u.scheduledInserts = nil
		u.scheduledDeletes = nil
		return nil
	}

	tx, err := u.conn.Begin(ctx)
	if err != nil {
		return ormerrors.NewPersistenceError("flush", "", err)
	}

	if err := u.runFlush(ctx, tx); err != nil {
		_ = tx.Rollback()
		restore()
		return err
	}

	if err := tx.Commit(); err != nil {
		restore()
		return ormerrors.NewPersistenceError("flush", "", err)
	}

	u.scheduledInserts = nil
	u.scheduledDeletes = nil
	return nil
}

func (u *UnitOfWork) runFlush(ctx context.Context, tx *conn.Tx) error {
	deferred, err := u.executeInserts(ctx, tx)
	if err != nil {
		return err
	}
	if err := u.applyDeferredFKs(ctx, tx, deferred); err != nil {
		return err
	}
	if err := u.executeUpdates(ctx, tx); err != nil {
		return err
	}
	if err := u.processOrphans(ctx, tx); err != nil {
		return err
	}
	if err := u.flushAssocBuffers(ctx, tx); err != nil {
		return err
	}
	if err := u.executeDeletes(ctx, tx); err != nil {
		return err
	}
	return nil
}

// processOrphans implements orphan-removal (spec.md §4.2): for every
// managed entity and every OneToOne/OneToMany association flagged
// OrphanRemoval, a child present in the association's last-known
// snapshot but absent from its current value was detached from the
// collection this session and is scheduled for deletion — unless
// another managed entity of the same owning class still references it
// through the same association, in which case the child was merely
// re-parented and removing it would be a cascade violation
// (ormerrors.PersistenceError, spec.md §7).
func (u *UnitOfWork) processOrphans(ctx context.Context, tx *conn.Tx) error {
	type owner struct {
		key   metadata.IdentityKey
		value reflect.Value
	}
	groups := make(map[reflect.Type]*struct {
		descriptor *metadata.EntityDescriptor
		owners     []owner
	})

	for key, entity := range u.identityMap {
		if u.states[key] != StateManaged {
			continue
		}
		descriptor, err := u.registry.Describe(reflect.TypeOf(entity))
		if err != nil {
			return err
		}
		g, ok := groups[descriptor.Class]
		if !ok {
			g = &struct {
				descriptor *metadata.EntityDescriptor
				owners     []owner
			}{descriptor: descriptor}
			groups[descriptor.Class] = g
		}
		g.owners = append(g.owners, owner{key: key, value: reflect.ValueOf(entity).Elem()})
	}

	for _, g := range groups {
		for _, assoc := range g.descriptor.Associations {
			if !assoc.OrphanRemoval {
				continue
			}
			if assoc.Kind != metadata.OneToMany && assoc.Kind != metadata.OneToOne {
				continue
			}

			current := make(map[metadata.IdentityKey][]interface{}, len(g.owners))
			stillReferenced := make(map[interface{}]bool)
			for _, o := range g.owners {
				ids := u.associationIdentifiers(assoc, o.value)
				current[o.key] = ids
				for _, id := range ids {
					stillReferenced[id] = true
				}
			}

			for _, o := range g.owners {
				ownerCurrent := current[o.key]
				if u.assocSnapshots[o.key] == nil {
					u.assocSnapshots[o.key] = make(map[string][]interface{})
				}
				previous := u.assocSnapshots[o.key][assoc.FieldName]
				if len(previous) == 0 {
					u.assocSnapshots[o.key][assoc.FieldName] = ownerCurrent
					continue
				}
				currentSet := make(map[interface{}]bool, len(ownerCurrent))
				for _, id := range ownerCurrent {
					currentSet[id] = true
				}

				for _, oldID := range previous {
					if currentSet[oldID] {
						continue
					}
					if stillReferenced[oldID] {
						return ormerrors.NewPersistenceError("orphan-remove", g.descriptor.Class.Name(),
							fmt.Errorf("entity %v detached from %s.%s is still referenced by another %s", oldID, g.descriptor.Class.Name(), assoc.FieldName, g.descriptor.Class.Name()))
					}
					if err := u.scheduleOrphanDelete(ctx, tx, assoc, oldID); err != nil {
						return err
					}
				}
				u.assocSnapshots[o.key][assoc.FieldName] = ownerCurrent
			}
		}
	}
	return nil
}

// scheduleOrphanDelete removes the orphaned child from tracking: if it
// is managed within this unit of work, it is cascaded through the
// normal Remove path so its own cascade-remove associations still run;
// otherwise (it was never loaded this session) it is deleted directly.
func (u *UnitOfWork) scheduleOrphanDelete(ctx context.Context, tx *conn.Tx, assoc *metadata.AssociationDescriptor, childID interface{}) error {
	targetDescriptor, err := u.registry.Describe(assoc.Target)
	if err != nil {
		return err
	}
	childKey := metadata.IdentityKey{RootClass: targetDescriptor.RootClass(), ID: childID}
	if childEntity, ok := u.identityMap[childKey]; ok {
		return u.remove(childEntity, make(map[interface{}]bool))
	}

	sqlText := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", u.conn.Quote(targetDescriptor.TableName), u.conn.Quote(targetDescriptor.Identifier.ColumnName))
	if _, err := tx.ExecContext(ctx, sqlText, childID); err != nil {
		return ormerrors.NewPersistenceError("orphan-remove", targetDescriptor.Class.Name(), err)
	}
	return nil
}

// insertOrder topologically sorts scheduled inserts so that an owning
// side's referenced row is inserted before its dependent (Kahn's
// algorithm); any entity left over because of a cycle is appended in
// original order and resolved via a deferred FK update instead.
func (u *UnitOfWork) insertOrder() []interface{} {
	inSet := make(map[interface{}]bool, len(u.scheduledInserts))
	for _, e := range u.scheduledInserts {
		inSet[e] = true
	}

	indegree := make(map[interface{}]int, len(u.scheduledInserts))
	dependents := make(map[interface{}][]interface{})
	for _, e := range u.scheduledInserts {
		indegree[e] = 0
	}

	for _, e := range u.scheduledInserts {
		descriptor, ev, err := u.describe(e)
		if err != nil {
			continue
		}
		for _, assoc := range descriptor.Associations {
			if !assoc.Owning || assoc.JoinColumn == "" {
				continue
			}
			if assoc.Kind != metadata.ManyToOne && assoc.Kind != metadata.OneToOne {
				continue
			}
			target := assoc.Get(ev)
			if target == nil || !inSet[target] {
				continue
			}
			dependents[target] = append(dependents[target], e)
			indegree[e]++
		}
	}

	var queue []interface{}
	for _, e := range u.scheduledInserts {
		if indegree[e] == 0 {
			queue = append(queue, e)
		}
	}

	visited := make(map[interface{}]bool, len(u.scheduledInserts))
	var order []interface{}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if visited[n] {
			continue
		}
		visited[n] = true
		order = append(order, n)
		for _, dep := range dependents[n] {
			indegree[dep]--
			if indegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	for _, e := range u.scheduledInserts {
		if !visited[e] {
			order = append(order, e)
		}
	}
	return order
}

func (u *UnitOfWork) executeInserts(ctx context.Context, tx *conn.Tx) ([]deferredFK, error) {
	var deferred []deferredFK

	for _, entity := range u.insertOrder() {
		descriptor, ev, err := u.describe(entity)
		if err != nil {
			return nil, err
		}

		var columns []string
		var values []interface{}

		for _, f := range descriptor.Fields {
			if f.IsIdentifier && f.GenerationStrategy == metadata.GenerationAuto {
				continue
			}
			columns = append(columns, f.ColumnName)
			values = append(values, f.Get(ev))
		}

		for _, mc := range descriptor.MultiColumnFields {
			value := mc.Get(ev)
			byPostfix, err := mc.Codec.ToColumns(value)
			if err != nil {
				return nil, ormerrors.NewPersistenceError("insert", descriptor.Class.Name(), err)
			}
			for _, postfix := range mc.Codec.Postfixes() {
				columns = append(columns, mc.BaseColumn+postfix)
				values = append(values, byPostfix[postfix])
			}
		}

		for _, assoc := range descriptor.Associations {
			if !assoc.Owning || assoc.JoinColumn == "" {
				continue
			}
			if assoc.Kind != metadata.ManyToOne && assoc.Kind != metadata.OneToOne {
				continue
			}
			target := assoc.Get(ev)
			if target == nil {
				columns = append(columns, assoc.JoinColumn)
				values = append(values, nil)
				continue
			}
			targetDescriptor, targetEV, err := u.describe(target)
			if err != nil {
				return nil, err
			}
			fk := targetDescriptor.Identifier.Get(targetEV)
			if isZero(fk) {
				columns = append(columns, assoc.JoinColumn)
				values = append(values, nil)
				deferred = append(deferred, deferredFK{entity: entity, assoc: assoc, target: target})
				continue
			}
			columns = append(columns, assoc.JoinColumn)
			values = append(values, fk)
		}

		if descriptor.Inheritance != nil {
			if value, ok := descriptor.Inheritance.DiscriminatorForClass(descriptor.Class); ok {
				columns = append(columns, descriptor.Inheritance.DiscriminatorColumn)
				values = append(values, value)
			}
		}

		sqlText := buildInsert(u.conn, descriptor.TableName, columns)
		result, err := tx.ExecContext(ctx, sqlText, values...)
		if err != nil {
			return nil, ormerrors.NewPersistenceError("insert", descriptor.Class.Name(), err)
		}

		if descriptor.Identifier.GenerationStrategy == metadata.GenerationAuto {
			id, err := result.LastInsertId()
			if err != nil {
				return nil, ormerrors.NewPersistenceError("insert", descriptor.Class.Name(), err)
			}
			descriptor.Identifier.Set(ev, id)
		}

		key := u.keyFor(descriptor, ev)
		u.identityMap[key] = entity
		u.states[key] = StateManaged
		u.snapshots[key] = snapshot(descriptor, ev)
		u.assocSnapshots[key] = u.snapshotOrphanAssociations(descriptor, ev)
	}

	return deferred, nil
}

func (u *UnitOfWork) applyDeferredFKs(ctx context.Context, tx *conn.Tx, deferred []deferredFK) error {
	for _, d := range deferred {
		descriptor, ev, err := u.describe(d.entity)
		if err != nil {
			return err
		}
		targetDescriptor, targetEV, err := u.describe(d.target)
		if err != nil {
			return err
		}
		fk := targetDescriptor.Identifier.Get(targetEV)

		sqlText := fmt.Sprintf("UPDATE %s SET %s = ? WHERE %s = ?",
			u.conn.Quote(descriptor.TableName), u.conn.Quote(d.assoc.JoinColumn), u.conn.Quote(descriptor.Identifier.ColumnName))
		id := descriptor.Identifier.Get(ev)
		if _, err := tx.ExecContext(ctx, sqlText, fk, id); err != nil {
			return ormerrors.NewPersistenceError("update", descriptor.Class.Name(), err)
		}
	}
	return nil
}

func (u *UnitOfWork) executeUpdates(ctx context.Context, tx *conn.Tx) error {
	for key, entity := range u.identityMap {
		if u.states[key] != StateManaged {
			continue
		}
		descriptor, err := u.registry.Describe(reflect.TypeOf(entity))
		if err != nil {
			return err
		}
		ev := reflect.ValueOf(entity).Elem()
		changes := changeSet(descriptor, ev, u.snapshots[key])
		if len(changes) == 0 {
			continue
		}

		var setClauses []string
		var values []interface{}
		for column, value := range changes {
			setClauses = append(setClauses, u.conn.Quote(column)+" = ?")
			values = append(values, value)
		}
		values = append(values, descriptor.Identifier.Get(ev))

		sqlText := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?",
			u.conn.Quote(descriptor.TableName), strings.Join(setClauses, ", "), u.conn.Quote(descriptor.Identifier.ColumnName))
		if _, err := tx.ExecContext(ctx, sqlText, values...); err != nil {
			return ormerrors.NewPersistenceError("update", descriptor.Class.Name(), err)
		}
		u.snapshots[key] = snapshot(descriptor, ev)
	}
	return nil
}

func (u *UnitOfWork) flushAssocBuffers(ctx context.Context, tx *conn.Tx) error {
	for key, buffers := range u.assocBuffers {
		entity, ok := u.identityMap[key]
		if !ok {
			continue
		}
		descriptor, err := u.registry.Describe(reflect.TypeOf(entity))
		if err != nil {
			return err
		}
		ev := reflect.ValueOf(entity).Elem()
		ownerID := descriptor.Identifier.Get(ev)

		for fieldName, delta := range buffers {
			assoc, ok := descriptor.AssociationByName(fieldName)
			if !ok {
				continue
			}
			targetDescriptor, err := u.registry.Describe(assoc.Target)
			if err != nil {
				return err
			}
			join := assoc.JoinTable
			if join == nil {
				join = metadata.DefaultJoinTable(descriptor.TableName, targetDescriptor.TableName)
			}

			for _, targetID := range delta.Added {
				sqlText := fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES (?, ?)",
					u.conn.Quote(join.TableName), u.conn.Quote(join.OwnerColumn), u.conn.Quote(join.InverseColumn))
				if _, err := tx.ExecContext(ctx, sqlText, ownerID, targetID); err != nil {
					return ormerrors.NewPersistenceError("insert", join.TableName, err)
				}
			}
			for _, targetID := range delta.Removed {
				sqlText := fmt.Sprintf("DELETE FROM %s WHERE %s = ? AND %s = ?",
					u.conn.Quote(join.TableName), u.conn.Quote(join.OwnerColumn), u.conn.Quote(join.InverseColumn))
				if _, err := tx.ExecContext(ctx, sqlText, ownerID, targetID); err != nil {
					return ormerrors.NewPersistenceError("delete", join.TableName, err)
				}
			}
		}
		delete(u.assocBuffers, key)
	}
	return nil
}

func (u *UnitOfWork) executeDeletes(ctx context.Context, tx *conn.Tx) error {
	for _, entity := range u.scheduledDeletes {
		descriptor, ev, err := u.describe(entity)
		if err != nil {
			return err
		}
		id := descriptor.Identifier.Get(ev)
		sqlText := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", u.conn.Quote(descriptor.TableName), u.conn.Quote(descriptor.Identifier.ColumnName))
		if _, err := tx.ExecContext(ctx, sqlText, id); err != nil {
			return ormerrors.NewPersistenceError("delete", descriptor.Class.Name(), err)
		}
		key := u.keyFor(descriptor, ev)
		delete(u.identityMap, key)
		delete(u.states, key)
		delete(u.snapshots, key)
		delete(u.assocSnapshots, key)
	}
	return nil
}

func buildInsert(c *conn.Conn, table string, columns []string) string {
	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = c.Quote(col)
		placeholders[i] = "?"
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", c.Quote(table), strings.Join(quoted, ", "), strings.Join(placeholders, ", "))
}

func isZero(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.IsZero()
}

func cloneIdentityMap(m map[metadata.IdentityKey]interface{}) map[metadata.IdentityKey]interface{} {
	out := make(map[metadata.IdentityKey]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneStates(m map[metadata.IdentityKey]EntityState) map[metadata.IdentityKey]EntityState {
	out := make(map[metadata.IdentityKey]EntityState, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneSnapshots(m map[metadata.IdentityKey]map[string]interface{}) map[metadata.IdentityKey]map[string]interface{} {
	out := make(map[metadata.IdentityKey]map[string]interface{}, len(m))
	for k, v := range m {
		inner := make(map[string]interface{}, len(v))
		for fk, fv := range v {
			inner[fk] = fv
		}
		out[k] = inner
	}
	return out
}

func cloneAssocSnapshots(m map[metadata.IdentityKey]map[string][]interface{}) map[metadata.IdentityKey]map[string][]interface{} {
	out := make(map[metadata.IdentityKey]map[string][]interface{}, len(m))
	for k, v := range m {
		inner := make(map[string][]interface{}, len(v))
		for fieldName, ids := range v {
			inner[fieldName] = append([]interface{}{}, ids...)
		}
		out[k] = inner
	}
	return out
}
