// Package ormconfig loads and serves the configuration keys Aurum's core
// recognizes: connection.*, migrations.*, and metadata.*.
package ormconfig

import "time"

// Provider is a source of configuration values, merged in registration
// order (later providers override earlier ones).
type Provider interface {
	Load() (map[string]interface{}, error)
	Name() string
}

// Validator checks a configuration value before it is accepted.
type Validator func(key string, value interface{}) error

// Repository is the read surface every caller sees, independent of how
// values were loaded.
type Repository interface {
	Get(key string, defaultValue ...interface{}) interface{}
	GetString(key string, defaultValue ...string) string
	GetInt(key string, defaultValue ...int) int
	GetBool(key string, defaultValue ...bool) bool
	GetDuration(key string, defaultValue ...time.Duration) time.Duration
	GetStringSlice(key string, defaultValue ...[]string) []string
	Set(key string, value interface{}) error
	Has(key string) bool
	All() map[string]interface{}
}

// Manager adds loading/validation/provider management on top of Repository.
type Manager interface {
	Repository
	AddProvider(provider Provider)
	AddValidator(key string, validator Validator)
	Load() error
	Reload() error
	Env() string
}
