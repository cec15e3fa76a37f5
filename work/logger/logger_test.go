package logger

import "testing"

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"DEBUG", DEBUG},
		{"debug", DEBUG},
		{"INFO", INFO},
		{"WARN", WARN},
		{"WARNING", WARN},
		{"ERROR", ERROR},
		{"", INFO},
		{"nonsense", INFO},
	}
	for _, tt := range tests {
		if got := ParseLogLevel(tt.in); got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSetAndGetLogLevel(t *testing.T) {
	defer SetLogLevel("INFO")

	for _, level := range []string{"DEBUG", "INFO", "WARN", "ERROR"} {
		SetLogLevel(level)
		if got := GetLogLevel(); got != level {
			t.Errorf("after SetLogLevel(%q), GetLogLevel = %q", level, got)
		}
	}

	// unknown strings fall back to INFO
	SetLogLevel("bogus")
	if got := GetLogLevel(); got != "INFO" {
		t.Errorf("GetLogLevel after bogus level = %q, want INFO", got)
	}
}
