package ormerrors

import (
	"errors"
	"testing"
)

func TestMigrationErrorUnwraps(t *testing.T) {
	cause := errors.New("duplicate column")
	err := NewMigrationError("20260101000000_create_users", "up", cause)

	if !errors.Is(err, cause) {
		t.Errorf("expected errors.Is to find the wrapped cause")
	}
	if err.Error() == "" {
		t.Errorf("expected a non-empty error message")
	}
}

func TestNotFoundIsDistinguishableFromOtherErrors(t *testing.T) {
	var err error = NewNotFound("User", 42)

	var nf *NotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected errors.As to match *NotFound")
	}
	if nf.Key != 42 {
		t.Errorf("expected key 42, got %v", nf.Key)
	}
}

func TestSkipMigrationCarriesReason(t *testing.T) {
	skip := NewSkipMigration("already applied by a prior deploy")
	if skip.Error() == "aurum: migration skipped" {
		t.Errorf("expected the reason to appear in the message")
	}
}
