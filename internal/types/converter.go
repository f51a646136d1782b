package types

import (
	"database/sql/driver"
	"fmt"

	"github.com/google/uuid"
)

// Converter adapts between a Go field value and the driver.Value(s) a
// single-column field is persisted as.
type Converter interface {
	// ToDB converts a Go value into a database/sql-compatible value.
	ToDB(value interface{}) (driver.Value, error)
	// FromDB converts a scanned database value back into the Go value
	// the field holds.
	FromDB(value interface{}) (interface{}, error)
}

var converters = map[Logical]Converter{
	String:     passthroughConverter{},
	Text:       passthroughConverter{},
	Integer:    passthroughConverter{},
	BigInteger: passthroughConverter{},
	Float:      passthroughConverter{},
	Decimal:    passthroughConverter{},
	Boolean:    boolConverter{},
	JSON:       passthroughConverter{},
	Binary:     passthroughConverter{},
	UUID:       uuidConverter{},
}

// ForLogical returns the registered Converter for a logical type,
// defaulting to a passthrough for types database/sql already
// round-trips natively (dates/times are handled by MultiColumnCodec or
// the driver's native time.Time support).
func ForLogical(t Logical) Converter {
	if c, ok := converters[t]; ok {
		return c
	}
	return passthroughConverter{}
}

// Register lets a caller install a Converter for a custom logical type.
func Register(t Logical, c Converter) {
	converters[t] = c
}

type passthroughConverter struct{}

func (passthroughConverter) ToDB(value interface{}) (driver.Value, error) {
	return driver.Value(value), nil
}

func (passthroughConverter) FromDB(value interface{}) (interface{}, error) {
	return value, nil
}

type boolConverter struct{}

func (boolConverter) ToDB(value interface{}) (driver.Value, error) {
	b, ok := value.(bool)
	if !ok {
		return nil, fmt.Errorf("types: expected bool, got %T", value)
	}
	if b {
		return int64(1), nil
	}
	return int64(0), nil
}

func (boolConverter) FromDB(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case int64:
		return v != 0, nil
	case int:
		return v != 0, nil
	case nil:
		return false, nil
	default:
		return nil, fmt.Errorf("types: cannot convert %T to bool", value)
	}
}

type uuidConverter struct{}

func (uuidConverter) ToDB(value interface{}) (driver.Value, error) {
	switch v := value.(type) {
	case uuid.UUID:
		return v.String(), nil
	case string:
		return v, nil
	default:
		return nil, fmt.Errorf("types: expected uuid.UUID or string, got %T", value)
	}
}

func (uuidConverter) FromDB(value interface{}) (interface{}, error) {
	str, ok := value.(string)
	if !ok {
		if b, ok := value.([]byte); ok {
			str = string(b)
		} else {
			return nil, fmt.Errorf("types: cannot convert %T to uuid", value)
		}
	}
	id, err := uuid.Parse(str)
	if err != nil {
		return nil, fmt.Errorf("types: invalid uuid %q: %w", str, err)
	}
	return id, nil
}

// NewUUID generates a new random identifier for fields whose
// GenerationStrategy is "uuid".
func NewUUID() uuid.UUID {
	return uuid.New()
}
