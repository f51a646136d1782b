package ormconfig

import (
	"fmt"
	"reflect"
	"strconv"
)

// Required rejects a nil or empty-string configuration value.
func Required(key string, value interface{}) error {
	if value == nil {
		return fmt.Errorf("ormconfig: key %s is required", key)
	}
	if str, ok := value.(string); ok && str == "" {
		return fmt.Errorf("ormconfig: key %s cannot be empty", key)
	}
	return nil
}

// IntRange validates that an integer configuration value falls within
// [min, max], e.g. connection.max_open_conns.
func IntRange(min, max int) Validator {
	return func(key string, value interface{}) error {
		var n int
		switch v := value.(type) {
		case int:
			n = v
		case int64:
			n = int(v)
		case float64:
			n = int(v)
		case string:
			var err error
			if n, err = strconv.Atoi(v); err != nil {
				return fmt.Errorf("ormconfig: key %s must be an integer", key)
			}
		default:
			return fmt.Errorf("ormconfig: key %s must be an integer", key)
		}
		if n < min || n > max {
			return fmt.Errorf("ormconfig: key %s must be between %d and %d", key, min, max)
		}
		return nil
	}
}

// OneOf validates that a value is one of a fixed set, e.g.
// connection.driver being "sqlite" or "mysql".
func OneOf(validValues ...interface{}) Validator {
	return func(key string, value interface{}) error {
		for _, valid := range validValues {
			if reflect.DeepEqual(value, valid) {
				return nil
			}
		}
		return fmt.Errorf("ormconfig: key %s must be one of %v", key, validValues)
	}
}
