package metadata

import (
	"reflect"

	"github.com/aurum-go/aurum/internal/types"
)

// compileAccessor builds the (get, set) closure pair for a
// single-column field, applying the field's Converter so callers always
// deal in database-ready values. This replaces ad hoc reflection calls
// scattered through the unit of work and hydrator with one reflection
// walk per field, done once.
func compileAccessor(sf reflect.StructField, logical types.Logical) accessor {
	index := sf.Index
	converter := types.ForLogical(logical)

	return accessor{
		get: func(entity reflect.Value) interface{} {
			fv := entity.FieldByIndex(index)
			dbValue, err := converter.ToDB(fv.Interface())
			if err != nil {
				return fv.Interface()
			}
			return dbValue
		},
		set: func(entity reflect.Value, dbValue interface{}) {
			fv := entity.FieldByIndex(index)
			goValue, err := converter.FromDB(dbValue)
			if err != nil {
				return
			}
			assign(fv, goValue)
		},
	}
}

// compileValueAccessor builds an accessor pair for fields whose Go
// value IS the serialised value (multi-column codecs, association
// references) — no Converter indirection.
func compileValueAccessor(sf reflect.StructField) accessor {
	index := sf.Index
	return accessor{
		get: func(entity reflect.Value) interface{} {
			return entity.FieldByIndex(index).Interface()
		},
		set: func(entity reflect.Value, value interface{}) {
			assign(entity.FieldByIndex(index), value)
		},
	}
}

// assign sets fv to value, handling the common case where value's
// dynamic type doesn't exactly match fv's static type (e.g. a driver
// returning int64 for a field declared as uint, or a nil interface for
// a pointer field).
func assign(fv reflect.Value, value interface{}) {
	if !fv.CanSet() {
		return
	}
	if value == nil {
		fv.Set(reflect.Zero(fv.Type()))
		return
	}

	rv := reflect.ValueOf(value)
	if rv.Type().AssignableTo(fv.Type()) {
		fv.Set(rv)
		return
	}
	if rv.Type().ConvertibleTo(fv.Type()) {
		fv.Set(rv.Convert(fv.Type()))
		return
	}
	if fv.Kind() == reflect.Ptr {
		ptr := reflect.New(fv.Type().Elem())
		if rv.Type().ConvertibleTo(fv.Type().Elem()) {
			ptr.Elem().Set(rv.Convert(fv.Type().Elem()))
			fv.Set(ptr)
		}
	}
}
