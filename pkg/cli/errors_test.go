package cli

import (
	"errors"
	"strings"
	"testing"
)

func TestConfigError(t *testing.T) {
	err := NewConfigError("migration.db_path", "flag database path is required")
	want := "configuration error in migration.db_path: flag database path is required"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestConfigErrorWithoutField(t *testing.T) {
	err := NewConfigError("", "failed to read config file")
	if got := err.Error(); got != "configuration error: failed to read config file" {
		t.Errorf("Error() = %q", got)
	}
}

func TestCommandErrorUnwrap(t *testing.T) {
	cause := errors.New("flag store unavailable")
	err := NewCommandError("run", cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
	if !strings.Contains(err.Error(), `"run"`) {
		t.Errorf("Error() = %q, should name the command", err.Error())
	}
}
