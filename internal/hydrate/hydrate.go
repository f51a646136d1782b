// Package hydrate converts raw database rows into domain objects,
// honouring inheritance and multi-column value types, without buffering
// the whole result set in memory.
package hydrate

import (
	"context"
	"database/sql"
	"reflect"

	"github.com/aurum-go/aurum/internal/metadata"
	"github.com/aurum-go/aurum/internal/ormerrors"
)

// IdentityResolver reuses a live managed instance for a given identity
// key instead of instantiating a fresh one, and records newly hydrated
// instances so later reads see the same object. The unit of work
// implements this; detached hydration passes a nil resolver.
type IdentityResolver interface {
	Lookup(key metadata.IdentityKey) (interface{}, bool)
	Register(key metadata.IdentityKey, entity interface{})
}

// Hydrator builds domain objects from *sql.Rows for a single entity
// descriptor, resolving inheritance-aware class selection per row.
type Hydrator struct {
	descriptor *metadata.EntityDescriptor
	registry   *metadata.Registry
	resolver   IdentityResolver // nil => detached mode
}

// New returns a Hydrator for descriptor. registry resolves inheritance
// sibling descriptors by discriminator value; resolver, if non-nil,
// switches hydration into managed mode.
func New(descriptor *metadata.EntityDescriptor, registry *metadata.Registry, resolver IdentityResolver) *Hydrator {
	return &Hydrator{descriptor: descriptor, registry: registry, resolver: resolver}
}

// Stream wraps rows in an Iterator that yields at most one hydrated
// object alive at a time (spec.md §4.4 "Iterator contract").
func (h *Hydrator) Stream(rows *sql.Rows) *Iterator {
	return &Iterator{hydrator: h, rows: rows}
}

// One hydrates a single row already positioned by row.Scan semantics,
// used by singleton reads (firstOrNull) where an *sql.Row, not
// *sql.Rows, is in hand.
func (h *Hydrator) One(columns []string, values []interface{}) (interface{}, error) {
	return h.hydrateRow(columns, values)
}

// Iterator streams hydrated entities one at a time from *sql.Rows. It
// is not rewindable once Next has been called.
type Iterator struct {
	hydrator *Hydrator
	rows     *sql.Rows
	current  interface{}
	columns  []string
	err      error
	done     bool
}

// Next advances the iterator, returning false at end-of-result or on
// error (inspect Err() to distinguish the two).
func (it *Iterator) Next(ctx context.Context) bool {
	if it.done {
		return false
	}
	if err := ctx.Err(); err != nil {
		it.err = err
		it.done = true
		return false
	}
	if !it.rows.Next() {
		it.done = true
		it.err = it.rows.Err()
		return false
	}

	if it.columns == nil {
		cols, err := it.rows.Columns()
		if err != nil {
			it.err = err
			it.done = true
			return false
		}
		it.columns = cols
	}

	scanArgs := make([]interface{}, len(it.columns))
	values := make([]interface{}, len(it.columns))
	for i := range values {
		scanArgs[i] = &values[i]
	}
	if err := it.rows.Scan(scanArgs...); err != nil {
		it.err = err
		it.done = true
		return false
	}

	entity, err := it.hydrator.hydrateRow(it.columns, values)
	if err != nil {
		it.err = err
		it.done = true
		return false
	}
	it.current = entity
	return true
}

// Entity returns the object produced by the most recent successful Next.
func (it *Iterator) Entity() interface{} { return it.current }

// Err returns the error that ended iteration, if any.
func (it *Iterator) Err() error { return it.err }

// Close releases the underlying cursor.
func (it *Iterator) Close() error { return it.rows.Close() }

// hydrateRow is the shared row → object path for both streaming and
// singleton reads.
func (h *Hydrator) hydrateRow(columns []string, values []interface{}) (interface{}, error) {
	byColumn := make(map[string]interface{}, len(columns))
	for i, c := range columns {
		byColumn[c] = values[i]
	}

	descriptor := h.descriptor
	var key metadata.IdentityKey

	if descriptor.Inheritance != nil {
		raw, ok := byColumn[descriptor.Inheritance.DiscriminatorColumn]
		if !ok {
			return nil, ormerrors.NewHydrationError(descriptor.Inheritance.DiscriminatorColumn, descriptor.Class.Name(), ormerrors.NewNotFound("discriminator column", descriptor.Inheritance.DiscriminatorColumn))
		}
		discValue := stringify(raw)
		class, ok := descriptor.Inheritance.ClassForDiscriminator(discValue)
		if !ok {
			return nil, ormerrors.NewHydrationError(descriptor.Inheritance.DiscriminatorColumn, descriptor.Class.Name(), nil)
		}
		resolved, err := h.registry.Describe(class)
		if err != nil {
			return nil, err
		}
		descriptor = resolved
	}

	if h.resolver != nil {
		idRaw, ok := byColumn[descriptor.Identifier.ColumnName]
		if !ok {
			return nil, ormerrors.NewHydrationError(descriptor.Identifier.ColumnName, descriptor.Class.Name(), nil)
		}
		key = metadata.IdentityKey{RootClass: descriptor.RootClass(), ID: idRaw}
		if existing, found := h.resolver.Lookup(key); found {
			return existing, nil
		}
	}

	instance := reflect.New(descriptor.Class)
	entityValue := instance.Elem()

	for _, f := range descriptor.Fields {
		v, ok := byColumn[f.ColumnName]
		if !ok {
			if f.IsIdentifier {
				return nil, ormerrors.NewHydrationError(f.ColumnName, descriptor.Class.Name(), nil)
			}
			continue
		}
		f.Set(entityValue, v)
	}

	for _, mc := range descriptor.MultiColumnFields {
		postfixes := mc.Codec.Postfixes()
		columnValues := make(map[string]interface{}, len(postfixes))
		missing := false
		for _, p := range postfixes {
			v, ok := byColumn[mc.BaseColumn+p]
			if !ok {
				missing = true
				break
			}
			columnValues[p] = v
		}
		if missing {
			continue
		}
		domainValue, err := mc.Codec.FromColumns(columnValues)
		if err != nil {
			return nil, ormerrors.NewHydrationError(mc.BaseColumn, descriptor.Class.Name(), err)
		}
		mc.Set(entityValue, domainValue)
	}

	result := instance.Interface()
	if h.resolver != nil {
		h.resolver.Register(key, result)
	}
	return result, nil
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return ""
	}
}
