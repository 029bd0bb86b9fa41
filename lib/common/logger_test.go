package common

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/lni/dragonboat/v4/logger"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    logger.LogLevel
		wantErr bool
	}{
		{"debug", logger.DEBUG, false},
		{"INFO", logger.INFO, false},
		{"warn", logger.WARNING, false},
		{"warning", logger.WARNING, false},
		{"error", logger.ERROR, false},
		{"verbose", logger.INFO, true},
	}

	for _, tt := range tests {
		got, err := ParseLogLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLogLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stdout)

	l := CreateLogger("table")
	l.SetLevel(logger.WARNING)
	l.Infof("hidden %d", 1)
	l.Warningf("agent %d failed", 3)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message written at warning level: %q", out)
	}
	if !strings.Contains(out, "WARN  | table    | agent 3 failed") {
		t.Errorf("unexpected log line: %q", out)
	}
}

func TestInitLoggers(t *testing.T) {
	if err := InitLoggers("nope"); err == nil {
		t.Fatal("expected an error for an invalid level")
	}
	for _, level := range []string{"error", "debug", "info"} {
		if err := InitLoggers(level); err != nil {
			t.Fatalf("InitLoggers(%q) failed: %v", level, err)
		}
	}
}
