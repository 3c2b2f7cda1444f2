package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew_WritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coinpulse.log")
	log, err := New(Options{Level: "debug", Format: "console", File: path})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	log.Infow("tick complete", "tick", 7)
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"tick":7`) {
		t.Errorf("log file missing structured field: %s", data)
	}
}

func TestNew_RejectsBadOptions(t *testing.T) {
	if _, err := New(Options{Level: "loud"}); err == nil {
		t.Error("expected error for unknown level")
	}
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Error("expected error for unknown format")
	}
}
