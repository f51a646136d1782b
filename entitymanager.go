package aurum

import (
	"context"
	"reflect"

	"github.com/aurum-go/aurum/internal/query"
	"github.com/aurum-go/aurum/internal/uow"
)

// EntityManager is the session-scoped façade spec.md §4.2 describes:
// persist/remove/find/flush/clear over a single Unit of Work, plus a
// Query entry point. One EntityManager belongs to one goroutine for
// its lifetime, per spec.md §5 ("A session is not safe to share across
// threads; each thread uses its own EntityManager").
type EntityManager struct {
	engine *Engine
	uow    *uow.UnitOfWork
}

func newEntityManager(e *Engine) *EntityManager {
	return &EntityManager{
		engine: e,
		uow:    uow.New(e.registry, e.conn),
	}
}

// Persist marks entity for insertion on the next flush, cascading to
// any association marked CascadePersist.
func (em *EntityManager) Persist(entity interface{}) error {
	return em.uow.Persist(entity)
}

// Remove marks a managed entity for deletion on the next flush,
// cascading to any association marked CascadeRemove.
func (em *EntityManager) Remove(entity interface{}) error {
	return em.uow.Remove(entity)
}

// Find returns the identity-map instance for (class, id) if already
// managed, otherwise loads it. It returns (nil, nil) when no row
// matches — find() is not an error for a missing row, per spec.md §7.
func (em *EntityManager) Find(ctx context.Context, class reflect.Type, id interface{}) (interface{}, error) {
	return em.uow.Find(ctx, class, id)
}

// Flush applies all pending insertions, updates and deletions inside a
// single transaction (or savepoint, for a nested session). Insertions
// precede updates; updates precede deletions; insertions within a
// batch are topologically ordered.
func (em *EntityManager) Flush(ctx context.Context) error {
	return em.uow.Flush(ctx)
}

// Clear detaches every managed entity without issuing SQL.
func (em *EntityManager) Clear() {
	em.uow.Clear()
}

// Contains reports whether entity is currently managed by this
// session's identity map.
func (em *EntityManager) Contains(entity interface{}) bool {
	return em.uow.Contains(entity)
}

// Query starts a fluent query against class, aliased as alias, using
// this session's Registry and Connection.
func (em *EntityManager) Query(class reflect.Type, alias string) *query.Builder {
	return query.New(em.engine.conn, em.engine.registry).From(class, alias)
}

// AddAssociation records that the entity identified by targetID was
// added to entity's owning ManyToMany field this session. The junction
// row is written on the next Flush; adding and then removing the same
// target before a Flush cancels out (spec.md §8 "association add/remove
// symmetry").
func (em *EntityManager) AddAssociation(entity interface{}, fieldName string, targetID interface{}) error {
	return em.uow.BufferAssocAdd(entity, fieldName, targetID)
}

// RemoveAssociation records that the entity identified by targetID was
// removed from entity's owning ManyToMany field this session.
func (em *EntityManager) RemoveAssociation(entity interface{}, fieldName string, targetID interface{}) error {
	return em.uow.BufferAssocRemove(entity, fieldName, targetID)
}

// Nested opens a savepoint-scoped sub-session: its Flush/Commit targets
// a SAVEPOINT nested inside the parent's transaction, and a Rollback of
// the parent invalidates it, per spec.md §5's transaction model.
func (em *EntityManager) Nested(ctx context.Context) (*EntityManager, error) {
	nested, err := em.uow.CreateNestedUoW(ctx)
	if err != nil {
		return nil, err
	}
	return &EntityManager{engine: em.engine, uow: nested}, nil
}

// Commit commits a nested session's savepoint. It is only meaningful on
// an EntityManager returned by Nested.
func (em *EntityManager) Commit(ctx context.Context) error {
	return em.uow.Commit(ctx)
}

// Rollback rolls back a nested session's savepoint. It is only
// meaningful on an EntityManager returned by Nested.
func (em *EntityManager) Rollback(ctx context.Context) error {
	return em.uow.Rollback(ctx)
}

// Engine returns the Engine this session was opened from.
func (em *EntityManager) Engine() *Engine { return em.engine }
