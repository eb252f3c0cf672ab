package logging

import "testing"

func TestNewLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "bogus", ""} {
		logger := New(level)
		if logger == nil || logger.Logger == nil {
			t.Fatalf("New(%q) returned nil logger", level)
		}
	}
}

func TestDefault(t *testing.T) {
	logger := Default()
	if logger == nil {
		t.Fatal("Default() returned nil")
	}
}

func TestWith(t *testing.T) {
	logger := Default().With("component", "test")
	if logger == nil || logger.Logger == nil {
		t.Fatal("With() returned nil logger")
	}
}
