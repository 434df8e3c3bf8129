package util

import (
	"testing"
	"time"
)

func TestParseBoolEnv(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		def      bool
		expected bool
	}{
		{"unset uses default", "", true, true},
		{"true", "true", false, true},
		{"one", "1", false, true},
		{"yes uppercase", "YES", false, true},
		{"on with whitespace", " on ", false, true},
		{"false", "false", true, false},
		{"zero", "0", true, false},
		{"off", "off", true, false},
		{"garbage uses default", "maybe", true, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.value != "" {
				t.Setenv("TEST_BOOL", tc.value)
			}
			if got := ParseBoolEnv("TEST_BOOL", tc.def); got != tc.expected {
				t.Errorf("ParseBoolEnv(%q, %v) = %v, want %v", tc.value, tc.def, got, tc.expected)
			}
		})
	}
}

func TestParseDurationEnv(t *testing.T) {
	if got := ParseDurationEnv("TEST_DURATION", 2*time.Minute); got != 2*time.Minute {
		t.Errorf("unset: got %v", got)
	}
	t.Setenv("TEST_DURATION", "45s")
	if got := ParseDurationEnv("TEST_DURATION", 2*time.Minute); got != 45*time.Second {
		t.Errorf("valid: got %v", got)
	}
	t.Setenv("TEST_DURATION", "soon")
	if got := ParseDurationEnv("TEST_DURATION", 2*time.Minute); got != 2*time.Minute {
		t.Errorf("invalid: got %v", got)
	}
}

func TestParseIntEnv(t *testing.T) {
	if got := ParseIntEnv("TEST_INT", 8); got != 8 {
		t.Errorf("unset: got %d", got)
	}
	t.Setenv("TEST_INT", "12")
	if got := ParseIntEnv("TEST_INT", 8); got != 12 {
		t.Errorf("valid: got %d", got)
	}
	t.Setenv("TEST_INT", "twelve")
	if got := ParseIntEnv("TEST_INT", 8); got != 8 {
		t.Errorf("invalid: got %d", got)
	}
}
