// Package ormlog is Aurum's structured logging ambient stack: the query
// builder logs generated SQL at debug level, the unit of work logs flush
// summaries, and the migration engine logs each applied/skipped unit.
package ormlog

import (
	"context"
	"time"
)

// Level is the severity of a log entry.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// Entry is a single structured log record.
type Entry struct {
	Level     Level
	Message   string
	Timestamp time.Time
	Channel   string
	Context   map[string]interface{}
}

// Logger is the contract every Aurum component logs through.
type Logger interface {
	DebugContext(ctx context.Context, message string, fields ...map[string]interface{})
	InfoContext(ctx context.Context, message string, fields ...map[string]interface{})
	WarnContext(ctx context.Context, message string, fields ...map[string]interface{})
	ErrorContext(ctx context.Context, message string, fields ...map[string]interface{})

	Debug(message string, fields ...map[string]interface{})
	Info(message string, fields ...map[string]interface{})
	Warn(message string, fields ...map[string]interface{})
	Error(message string, fields ...map[string]interface{})

	WithFields(fields map[string]interface{}) Logger
	WithChannel(channel string) Logger
}

// Driver is a logging backend (console, JSON file, ...).
type Driver interface {
	Write(ctx context.Context, entry Entry) error
	Close() error
}

// Manager owns a set of named channels, each bound to a Driver and a
// minimum Level.
type Manager interface {
	AddChannel(name string, driver Driver, level Level)
	Channel(name string) Logger
	SetDefaultChannel(name string)
	Default() Logger
	Close() error
}
