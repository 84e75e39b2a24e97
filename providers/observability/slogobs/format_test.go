package slogobs

import "testing"

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input    string
		expected Format
	}{
		{"compact", FormatCompact},
		{"PRETTY", FormatPretty},
		{"json", FormatJSON},
		{" JSON ", FormatJSON},
		{"unknown", FormatCompact},
		{"", FormatCompact},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseFormat(tt.input); got != tt.expected {
				t.Errorf("ParseFormat(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestGetFormatFromEnv(t *testing.T) {
	tests := []struct {
		name     string
		redline  string
		generic  string
		expected Format
	}{
		{"REDLINE_LOG_FORMAT takes precedence", "json", "pretty", FormatJSON},
		{"fallback to LOG_FORMAT", "", "pretty", FormatPretty},
		{"default compact", "", "", FormatCompact},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("REDLINE_LOG_FORMAT", tt.redline)
			t.Setenv("LOG_FORMAT", tt.generic)

			if got := GetFormatFromEnv(); got != tt.expected {
				t.Errorf("GetFormatFromEnv() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestFormat_String(t *testing.T) {
	if FormatJSON.String() != "json" {
		t.Errorf("Expected 'json', got %q", FormatJSON.String())
	}
}
