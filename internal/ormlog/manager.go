package ormlog

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

type manager struct {
	channels       map[string]*channel
	defaultChannel string
	mutex          sync.RWMutex
}

// NewManager returns an empty channel manager; callers add channels via
// AddChannel before logging through it.
func NewManager() Manager {
	return &manager{
		channels:       make(map[string]*channel),
		defaultChannel: "console",
	}
}

func (m *manager) AddChannel(name string, driver Driver, level Level) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.channels[name] = &channel{name: name, driver: driver, level: level, fields: make(map[string]interface{})}
}

func (m *manager) Channel(name string) Logger {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if ch, ok := m.channels[name]; ok {
		return ch
	}
	if ch, ok := m.channels[m.defaultChannel]; ok {
		return ch
	}
	return &nullLogger{}
}

func (m *manager) SetDefaultChannel(name string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.defaultChannel = name
}

func (m *manager) Default() Logger {
	return m.Channel(m.defaultChannel)
}

func (m *manager) Close() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	var errs []string
	for name, ch := range m.channels {
		if err := ch.driver.Close(); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", name, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("ormlog: errors closing channels: %s", strings.Join(errs, ", "))
	}
	return nil
}

// nullLogger discards everything; used when no channel is configured
// (e.g. in unit tests that don't care about log output).
type nullLogger struct{}

func (nullLogger) DebugContext(context.Context, string, ...map[string]interface{}) {}
func (nullLogger) InfoContext(context.Context, string, ...map[string]interface{})  {}
func (nullLogger) WarnContext(context.Context, string, ...map[string]interface{})  {}
func (nullLogger) ErrorContext(context.Context, string, ...map[string]interface{}) {}
func (nullLogger) Debug(string, ...map[string]interface{})                        {}
func (nullLogger) Info(string, ...map[string]interface{})                         {}
func (nullLogger) Warn(string, ...map[string]interface{})                         {}
func (nullLogger) Error(string, ...map[string]interface{})                        {}
func (n nullLogger) WithFields(map[string]interface{}) Logger                     { return n }
func (n nullLogger) WithChannel(string) Logger                                    { return n }

// NewNullLogger exposes the discard logger for callers (tests, CLI dry
// runs) that want a Logger without configuring a manager.
func NewNullLogger() Logger { return nullLogger{} }
