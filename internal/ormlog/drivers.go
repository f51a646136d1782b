package ormlog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// ConsoleDriver writes human-readable lines to stdout/stderr.
type ConsoleDriver struct {
	colorize bool
	writer   io.Writer
}

func NewConsoleDriver(colorize bool) *ConsoleDriver {
	return &ConsoleDriver{colorize: colorize, writer: os.Stdout}
}

func (cd *ConsoleDriver) SetWriter(w io.Writer) { cd.writer = w }

func (cd *ConsoleDriver) Write(ctx context.Context, entry Entry) error {
	levelName := strings.ToUpper(levelName(entry.Level))
	var line string
	if cd.colorize {
		line = fmt.Sprintf("%s[%s]%s [%s] [%s] %s",
			levelColor(entry.Level), levelName, colorReset,
			entry.Timestamp.Format("2006-01-02 15:04:05"), entry.Channel, entry.Message)
	} else {
		line = fmt.Sprintf("[%s] [%s] [%s] %s",
			levelName, entry.Timestamp.Format("2006-01-02 15:04:05"), entry.Channel, entry.Message)
	}

	if len(entry.Context) > 0 {
		if encoded, err := json.Marshal(entry.Context); err == nil {
			line += fmt.Sprintf(" %s", string(encoded))
		}
	}
	line += "\n"

	w := cd.writer
	if entry.Level >= ErrorLevel && cd.writer == os.Stdout {
		w = os.Stderr
	}
	_, err := w.Write([]byte(line))
	return err
}

func (cd *ConsoleDriver) Close() error { return nil }

// JSONDriver writes one JSON object per line, for log aggregation.
type JSONDriver struct {
	writer io.Writer
}

func NewJSONDriver(writer io.Writer) *JSONDriver {
	return &JSONDriver{writer: writer}
}

func (jd *JSONDriver) Write(ctx context.Context, entry Entry) error {
	record := map[string]interface{}{
		"level":     levelName(entry.Level),
		"message":   entry.Message,
		"timestamp": entry.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"),
		"channel":   entry.Channel,
	}
	if len(entry.Context) > 0 {
		record["context"] = entry.Context
	}

	encoded, err := json.Marshal(record)
	if err != nil {
		return err
	}
	_, err = jd.writer.Write(append(encoded, '\n'))
	return err
}

func (jd *JSONDriver) Close() error {
	if closer, ok := jd.writer.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
