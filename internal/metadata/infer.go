package metadata

import (
	"reflect"
	"time"

	"github.com/aurum-go/aurum/internal/ormerrors"
	"github.com/aurum-go/aurum/internal/types"
)

// InferLogical maps a Go field's native type to a logical type when the
// caller omits an explicit one, per spec.md §4.1's type-inference rules.
func InferLogical(goType reflect.Type) (types.Logical, error) {
	if goType.Kind() == reflect.Ptr {
		goType = goType.Elem()
	}

	switch goType {
	case reflect.TypeOf(time.Time{}):
		return types.DateTime, nil
	case reflect.TypeOf(uuidZeroValue):
		return types.UUID, nil
	}

	switch goType.Kind() {
	case reflect.String:
		return types.String, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return types.Integer, nil
	case reflect.Int64, reflect.Uint64:
		return types.BigInteger, nil
	case reflect.Float32, reflect.Float64:
		return types.Float, nil
	case reflect.Bool:
		return types.Boolean, nil
	default:
		return "", ormerrors.NewMetadataError(goType.String(), "unknown logical type", nil)
	}
}

// uuidZeroValue gives InferLogical a concrete reflect.Type to compare
// against without importing google/uuid into a hot path; the metadata
// package still depends on internal/types, which owns the uuid import.
var uuidZeroValue = types.NewUUID()
