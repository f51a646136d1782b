package uow

import (
	"context"
	"reflect"

	"github.com/aurum-go/aurum/internal/hydrate"
	"github.com/aurum-go/aurum/internal/metadata"
	"github.com/aurum-go/aurum/internal/ormerrors"
)

// Find returns the identity-map hit for (class, id) if one exists,
// otherwise loads the row and registers the resulting instance as
// managed. A missing row is not an error: it returns (nil, nil).
func (u *UnitOfWork) Find(ctx context.Context, class reflect.Type, id interface{}) (interface{}, error) {
	descriptor, err := u.registry.Describe(class)
	if err != nil {
		return nil, err
	}

	key := metadata.IdentityKey{RootClass: descriptor.RootClass(), ID: id}
	if existing, ok := u.identityMap[key]; ok {
		return existing, nil
	}

	columns := descriptor.ColumnNames()
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = u.conn.Quote(c)
	}

	sqlText := "SELECT "
	for i, c := range quoted {
		if i > 0 {
			sqlText += ", "
		}
		sqlText += c
	}
	sqlText += " FROM " + u.conn.Quote(descriptor.TableName) + " WHERE " + u.conn.Quote(descriptor.Identifier.ColumnName) + " = ?"

	rows, err := u.conn.QueryContext(ctx, sqlText, id)
	if err != nil {
		return nil, ormerrors.NewQueryError(sqlText, err)
	}
	defer rows.Close()

	h := hydrate.New(descriptor, u.registry, u)
	it := h.Stream(rows)
	if !it.Next(ctx) {
		if err := it.Err(); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return it.Entity(), nil
}
