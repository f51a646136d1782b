package ormlog

import (
	"context"
	"sync"
	"time"
)

// channel is a named Logger bound to a driver and a minimum level.
type channel struct {
	name   string
	driver Driver
	level  Level
	fields map[string]interface{}
	mutex  sync.RWMutex
}

func (c *channel) LogContext(ctx context.Context, level Level, message string, fields ...map[string]interface{}) {
	if level < c.level {
		return
	}

	entry := Entry{
		Level:     level,
		Message:   message,
		Timestamp: time.Now(),
		Channel:   c.name,
		Context:   c.mergeWithRequestContext(ctx, fields...),
	}
	c.driver.Write(ctx, entry)
}

func (c *channel) DebugContext(ctx context.Context, message string, fields ...map[string]interface{}) {
	c.LogContext(ctx, DebugLevel, message, fields...)
}

func (c *channel) InfoContext(ctx context.Context, message string, fields ...map[string]interface{}) {
	c.LogContext(ctx, InfoLevel, message, fields...)
}

func (c *channel) WarnContext(ctx context.Context, message string, fields ...map[string]interface{}) {
	c.LogContext(ctx, WarnLevel, message, fields...)
}

func (c *channel) ErrorContext(ctx context.Context, message string, fields ...map[string]interface{}) {
	c.LogContext(ctx, ErrorLevel, message, fields...)
}

func (c *channel) Debug(message string, fields ...map[string]interface{}) {
	c.LogContext(context.Background(), DebugLevel, message, fields...)
}

func (c *channel) Info(message string, fields ...map[string]interface{}) {
	c.LogContext(context.Background(), InfoLevel, message, fields...)
}

func (c *channel) Warn(message string, fields ...map[string]interface{}) {
	c.LogContext(context.Background(), WarnLevel, message, fields...)
}

func (c *channel) Error(message string, fields ...map[string]interface{}) {
	c.LogContext(context.Background(), ErrorLevel, message, fields...)
}

func (c *channel) WithFields(fields map[string]interface{}) Logger {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return &channel{
		name:   c.name,
		driver: c.driver,
		level:  c.level,
		fields: c.merge(fields),
	}
}

func (c *channel) WithChannel(name string) Logger {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return &channel{
		name:   name,
		driver: c.driver,
		level:  c.level,
		fields: c.fields,
	}
}

func (c *channel) merge(extra ...map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{})
	for k, v := range c.fields {
		merged[k] = v
	}
	for _, m := range extra {
		for k, v := range m {
			merged[k] = v
		}
	}
	return merged
}

func (c *channel) mergeWithRequestContext(ctx context.Context, extra ...map[string]interface{}) map[string]interface{} {
	merged := c.merge(extra...)
	if ctx == nil {
		return merged
	}
	if sessionID := ctx.Value(sessionIDKey{}); sessionID != nil {
		merged["session_id"] = sessionID
	}
	if migration := ctx.Value(migrationKey{}); migration != nil {
		merged["migration"] = migration
	}
	return merged
}

type sessionIDKey struct{}
type migrationKey struct{}

// WithSessionID annotates a context so log entries emitted while it is in
// scope carry the originating Session's identity.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey{}, id)
}

// WithMigration annotates a context with the migration unit currently
// being applied.
func WithMigration(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, migrationKey{}, name)
}
