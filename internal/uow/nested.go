package uow

import (
	"context"
)

// CreateNestedUoW begins a SQL savepoint inside the current
// transaction and returns a new UnitOfWork scoped to it. If the parent
// has no transaction yet, one is begun on its connection and kept as
// the parent's transaction. Commit merges the nested identity-map
// deltas into the parent; Rollback drops the savepoint and discards
// them (spec.md §4.2 "Concurrency of sub-UoWs").
func (u *UnitOfWork) CreateNestedUoW(ctx context.Context) (*UnitOfWork, error) {
	if u.tx == nil {
		tx, err := u.conn.Begin(ctx)
		if err != nil {
			return nil, err
		}
		u.tx = tx
	}

	savepoint, err := u.tx.Savepoint(ctx)
	if err != nil {
		return nil, err
	}

	child := New(u.registry, u.conn)
	child.tx = savepoint.Nested()
	child.parent = u
	child.savepoint = savepoint
	return child, nil
}

// Commit releases this nested unit of work's savepoint and merges its
// identity-map/state/snapshot deltas into the parent. Calling Commit on
// a top-level UnitOfWork (one not created via CreateNestedUoW) is a
// no-op.
func (u *UnitOfWork) Commit(ctx context.Context) error {
	if u.savepoint == nil {
		return nil
	}
	if err := u.savepoint.Commit(ctx); err != nil {
		return err
	}
	for key, entity := range u.identityMap {
		u.parent.identityMap[key] = entity
		u.parent.states[key] = u.states[key]
		u.parent.snapshots[key] = u.snapshots[key]
		u.parent.assocSnapshots[key] = u.assocSnapshots[key]
	}
	return nil
}

// Rollback discards this nested unit of work's savepoint and every
// change made within it; the parent's in-memory state is left exactly
// as it was before CreateNestedUoW.
func (u *UnitOfWork) Rollback(ctx context.Context) error {
	if u.savepoint == nil {
		return nil
	}
	return u.savepoint.Rollback(ctx)
}
