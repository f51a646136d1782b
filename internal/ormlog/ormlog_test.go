package ormlog

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestConsoleDriverWritesLevelAndMessage(t *testing.T) {
	buf := &bytes.Buffer{}
	driver := NewConsoleDriver(false)
	driver.SetWriter(buf)

	m := NewManager()
	m.AddChannel("console", driver, DebugLevel)
	logger := m.Channel("console")

	logger.Info("migration applied", map[string]interface{}{"version": "20260101000000"})

	out := buf.String()
	if !strings.Contains(out, "INFO") {
		t.Errorf("expected level name in output, got %q", out)
	}
	if !strings.Contains(out, "migration applied") {
		t.Errorf("expected message in output, got %q", out)
	}
	if !strings.Contains(out, "20260101000000") {
		t.Errorf("expected context field in output, got %q", out)
	}
}

func TestChannelFiltersBelowMinimumLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	driver := NewConsoleDriver(false)
	driver.SetWriter(buf)

	m := NewManager()
	m.AddChannel("console", driver, WarnLevel)
	logger := m.Channel("console")

	logger.Debug("should be skipped")
	logger.Info("should also be skipped")

	if buf.Len() != 0 {
		t.Errorf("expected no output below channel level, got %q", buf.String())
	}
}

func TestWithFieldsMergesIntoEntries(t *testing.T) {
	buf := &bytes.Buffer{}
	driver := NewConsoleDriver(false)
	driver.SetWriter(buf)

	m := NewManager()
	m.AddChannel("console", driver, DebugLevel)
	logger := m.Channel("console").WithFields(map[string]interface{}{"session_id": "s1"})

	logger.InfoContext(context.Background(), "flushed unit of work")

	if !strings.Contains(buf.String(), "s1") {
		t.Errorf("expected merged field in output, got %q", buf.String())
	}
}

func TestUnknownChannelFallsBackToDefault(t *testing.T) {
	buf := &bytes.Buffer{}
	driver := NewConsoleDriver(false)
	driver.SetWriter(buf)

	m := NewManager()
	m.AddChannel("console", driver, DebugLevel)
	m.SetDefaultChannel("console")

	logger := m.Channel("does-not-exist")
	logger.Info("fallback message")

	if !strings.Contains(buf.String(), "fallback message") {
		t.Errorf("expected fallback to default channel, got %q", buf.String())
	}
}
