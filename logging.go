package aurum

import (
	"github.com/aurum-go/aurum/internal/ormlog"
)

// Structured logging re-exports, for callers supplying their own
// Logger via WithLogger or building one of the built-in drivers.
type (
	Logger       = ormlog.Logger
	LogLevel     = ormlog.Level
	LogEntry     = ormlog.Entry
	LogDriver    = ormlog.Driver
	LogManager   = ormlog.Manager
	ConsoleLogDriver = ormlog.ConsoleDriver
	JSONLogDriver    = ormlog.JSONDriver
)

// NewConsoleLogger builds a Logger that writes to stdout, colorized
// when colorize is true — the teacher's default console channel.
func NewConsoleLogger(colorize bool) Logger {
	manager := ormlog.NewManager()
	manager.AddChannel("console", ormlog.NewConsoleDriver(colorize), ormlog.InfoLevel)
	manager.SetDefaultChannel("console")
	return manager.Default()
}

// NewNullLogger returns a Logger that discards everything, the
// Engine's default when no logger is supplied.
func NewNullLogger() Logger {
	return ormlog.NewNullLogger()
}
