package types

import (
	"fmt"
	"time"
)

// MultiColumnCodec converts between a single Go value and the set of
// database column values a MultiColumnFieldDescriptor spans, keyed by
// column postfix. The set of postfixes produced by ToColumns must be
// identical to the set FromColumns expects.
type MultiColumnCodec interface {
	Postfixes() []string
	ToColumns(value interface{}) (map[string]interface{}, error)
	FromColumns(columns map[string]interface{}) (interface{}, error)
}

// ZonedTime is the domain value for a timezone-aware timestamp: an
// instant plus the timezone name it was originally expressed in,
// spanning three physical columns (_utc, _local, _timezone) as
// described by spec.md's multi-column round-trip scenario.
type ZonedTime struct {
	Instant  time.Time
	Location string // IANA timezone name, e.g. "America/New_York"
}

type zonedTimeCodec struct{}

// NewZonedTimeCodec returns the codec for timezone-aware timestamp
// fields.
func NewZonedTimeCodec() MultiColumnCodec {
	return zonedTimeCodec{}
}

func (zonedTimeCodec) Postfixes() []string {
	return []string{"_utc", "_local", "_timezone"}
}

const zonedTimeLayout = "2006-01-02 15:04:05"

func (zonedTimeCodec) ToColumns(value interface{}) (map[string]interface{}, error) {
	zt, ok := value.(ZonedTime)
	if !ok {
		return nil, fmt.Errorf("types: expected ZonedTime, got %T", value)
	}

	loc, err := time.LoadLocation(zt.Location)
	if err != nil {
		return nil, fmt.Errorf("types: unknown timezone %q: %w", zt.Location, err)
	}

	local := zt.Instant.In(loc)
	utc := zt.Instant.UTC()

	return map[string]interface{}{
		"_utc":      utc.Format(zonedTimeLayout),
		"_local":    local.Format(zonedTimeLayout),
		"_timezone": zt.Location,
	}, nil
}

func (zonedTimeCodec) FromColumns(columns map[string]interface{}) (interface{}, error) {
	localRaw, ok := columns["_local"]
	if !ok {
		return nil, fmt.Errorf("types: missing _local column for zoned time")
	}
	tzRaw, ok := columns["_timezone"]
	if !ok {
		return nil, fmt.Errorf("types: missing _timezone column for zoned time")
	}

	localStr, ok := localRaw.(string)
	if !ok {
		return nil, fmt.Errorf("types: _local column must be a string, got %T", localRaw)
	}
	tzName, ok := tzRaw.(string)
	if !ok {
		return nil, fmt.Errorf("types: _timezone column must be a string, got %T", tzRaw)
	}

	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("types: unknown timezone %q: %w", tzName, err)
	}

	parsed, err := time.ParseInLocation(zonedTimeLayout, localStr, loc)
	if err != nil {
		return nil, fmt.Errorf("types: invalid local timestamp %q: %w", localStr, err)
	}

	return ZonedTime{Instant: parsed, Location: tzName}, nil
}
