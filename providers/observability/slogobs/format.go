package slogobs

import (
	"os"
	"strings"
)

// Format represents the output format for logs.
type Format string

const (
	// FormatCompact renders one line per record with attributes as a JSON object.
	//   2026-10-19 10:40:35  INFO mirror write | {"storage.key":"history"}
	FormatCompact Format = "compact"

	// FormatPretty renders the message line followed by one indented line per attribute.
	FormatPretty Format = "pretty"

	// FormatJSON renders each record as a single JSON object.
	FormatJSON Format = "json"
)

// ParseFormat maps s to a Format, defaulting to FormatCompact.
func ParseFormat(s string) Format {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pretty":
		return FormatPretty
	case "json":
		return FormatJSON
	default:
		return FormatCompact
	}
}

// GetFormatFromEnv reads REDLINE_LOG_FORMAT, then LOG_FORMAT.
func GetFormatFromEnv() Format {
	if format := os.Getenv("REDLINE_LOG_FORMAT"); format != "" {
		return ParseFormat(format)
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		return ParseFormat(format)
	}
	return FormatCompact
}

// String returns the string representation of the Format.
func (f Format) String() string {
	return string(f)
}
