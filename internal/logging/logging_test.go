package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Level
		wantErr bool
	}{
		{name: "debug", input: "debug", want: LevelDebug},
		{name: "info", input: "info", want: LevelInfo},
		{name: "empty defaults to info", input: "", want: LevelInfo},
		{name: "warn", input: "warn", want: LevelWarn},
		{name: "warning alias", input: "warning", want: LevelWarn},
		{name: "error uppercase", input: "ERROR", want: LevelError},
		{name: "unknown", input: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseLevel(%q) error = nil, want error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseLevel(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestLoggerFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(LevelWarn, &buf)

	l.Debugf("debug %d", 1)
	l.Infof("info %d", 2)
	l.Warnf("warn %d", 3)
	l.Errorf("error %d", 4)

	out := buf.String()
	if strings.Contains(out, "debug 1") || strings.Contains(out, "info 2") {
		t.Errorf("output contains filtered lines: %q", out)
	}
	if !strings.Contains(out, "warn 3") || !strings.Contains(out, "error 4") {
		t.Errorf("output missing expected lines: %q", out)
	}
	if !strings.Contains(out, "[WARN]") {
		t.Errorf("output missing level tag: %q", out)
	}
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(LevelError, &buf)

	l.Infof("hidden")
	l.SetLevel(LevelDebug)
	l.Infof("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("output contains line logged below level: %q", out)
	}
	if !strings.Contains(out, "visible") {
		t.Errorf("output missing line after SetLevel: %q", out)
	}
}
