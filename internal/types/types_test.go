package types

import (
	"testing"
	"time"
)

func TestZonedTimeRoundTrip(t *testing.T) {
	codec := NewZonedTimeCodec()

	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	instant := time.Date(2023, 12, 1, 15, 30, 45, 0, loc)

	columns, err := codec.ToColumns(ZonedTime{Instant: instant, Location: "America/New_York"})
	if err != nil {
		t.Fatalf("ToColumns: %v", err)
	}

	if columns["_local"] != "2023-12-01 15:30:45" {
		t.Errorf("expected local column 2023-12-01 15:30:45, got %v", columns["_local"])
	}
	if columns["_utc"] != "2023-12-01 20:30:45" {
		t.Errorf("expected utc column 2023-12-01 20:30:45, got %v", columns["_utc"])
	}
	if columns["_timezone"] != "America/New_York" {
		t.Errorf("expected timezone column America/New_York, got %v", columns["_timezone"])
	}

	roundTripped, err := codec.FromColumns(columns)
	if err != nil {
		t.Fatalf("FromColumns: %v", err)
	}

	zt, ok := roundTripped.(ZonedTime)
	if !ok {
		t.Fatalf("expected ZonedTime, got %T", roundTripped)
	}
	if !zt.Instant.Equal(instant) {
		t.Errorf("expected instant %v, got %v", instant, zt.Instant)
	}
	if zt.Location != "America/New_York" {
		t.Errorf("expected location America/New_York, got %s", zt.Location)
	}
}

func TestBoolConverterRoundTrip(t *testing.T) {
	conv := ForLogical(Boolean)

	dbValue, err := conv.ToDB(true)
	if err != nil {
		t.Fatalf("ToDB: %v", err)
	}
	if dbValue != int64(1) {
		t.Errorf("expected 1, got %v", dbValue)
	}

	back, err := conv.FromDB(int64(1))
	if err != nil {
		t.Fatalf("FromDB: %v", err)
	}
	if back != true {
		t.Errorf("expected true, got %v", back)
	}
}

func TestUUIDConverterRejectsInvalidString(t *testing.T) {
	conv := ForLogical(UUID)
	if _, err := conv.FromDB("not-a-uuid"); err == nil {
		t.Errorf("expected an error for an invalid uuid string")
	}
}

func TestLengthHeuristicFollowsFieldNameRules(t *testing.T) {
	cases := map[string]int{
		"contactEmail": 255,
		"avatarUrl":    500,
		"countryCode":  50,
	}
	for field, want := range cases {
		got, isText := LengthHeuristic(field)
		if isText {
			t.Errorf("%s: expected a length, not a text type", field)
		}
		if got != want {
			t.Errorf("%s: expected length %d, got %d", field, want, got)
		}
	}

	if _, isText := LengthHeuristic("shortDescription"); !isText {
		t.Errorf("expected shortDescription to infer as text")
	}
}

func TestDecimalHeuristicFollowsFieldNameRules(t *testing.T) {
	if p, s := DecimalHeuristic("unitPrice"); p != 10 || s != 2 {
		t.Errorf("expected price heuristic 10/2, got %d/%d", p, s)
	}
	if p, s := DecimalHeuristic("taxRate"); p != 5 || s != 4 {
		t.Errorf("expected rate heuristic 5/4, got %d/%d", p, s)
	}
}
