package storage

import (
	"errors"
	"fmt"
	"testing"
)

func TestValidateKey(t *testing.T) {
	tests := []struct {
		key     string
		wantErr bool
	}{
		{"history", false},
		{"user.prefs", false},
		{"with space", false},
		{"", true},
		{".", true},
		{"..", true},
		{"a/b", true},
		{`a\b`, true},
		{"nul\x00byte", true},
	}
	for _, tt := range tests {
		err := ValidateKey(tt.key)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateKey(%q) error = %v, wantErr %v", tt.key, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrInvalidKey) {
			t.Errorf("ValidateKey(%q) error does not wrap ErrInvalidKey: %v", tt.key, err)
		}
	}
}

func TestStatusString(t *testing.T) {
	tests := map[Status]string{
		StatusAbsent:  "absent",
		StatusFound:   "found",
		StatusCorrupt: "corrupt",
		Status(99):    "absent",
	}
	for status, want := range tests {
		if got := status.String(); got != want {
			t.Errorf("Status(%d).String() = %q, want %q", int(status), got, want)
		}
	}
}

func TestResult_Decode(t *testing.T) {
	found := Result{Key: "prefs", Status: StatusFound, Data: []byte(`{"theme":"dark"}`)}
	var prefs struct {
		Theme string `json:"theme"`
	}
	if err := found.Decode(&prefs); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if prefs.Theme != "dark" {
		t.Errorf("Expected theme dark, got %q", prefs.Theme)
	}

	var wrongType []string
	if err := found.Decode(&wrongType); err == nil {
		t.Error("Expected type mismatch error")
	}

	for _, r := range []Result{Absent("prefs"), {Key: "prefs", Status: StatusCorrupt, Cause: errors.New("bad")}} {
		if r.Usable() {
			t.Errorf("%s result reported usable", r.Status)
		}
		if err := r.Decode(&prefs); err == nil {
			t.Errorf("Expected Decode error for %s result", r.Status)
		}
	}
}

func TestErrors(t *testing.T) {
	cause := errors.New("disk full")

	writeErr := error(&WriteError{Key: "history", Err: cause})
	if !errors.Is(writeErr, cause) {
		t.Error("WriteError should unwrap to its cause")
	}
	if errors.Is(writeErr, ErrUnreachable) {
		t.Error("WriteError must not match ErrUnreachable")
	}
	if got := writeErr.Error(); got != `storage: write "history": disk full` {
		t.Errorf("unexpected WriteError message %q", got)
	}

	readErr := fmt.Errorf("wrapped: %w", &ReadError{Key: "history", Err: cause})
	if !errors.Is(readErr, ErrUnreachable) {
		t.Error("ReadError should match ErrUnreachable")
	}
	if !errors.Is(readErr, cause) {
		t.Error("ReadError should unwrap to its cause")
	}
	var target *ReadError
	if !errors.As(readErr, &target) || target.Key != "history" {
		t.Errorf("errors.As(*ReadError) failed: %v", readErr)
	}

	clearErr := &ClearError{Err: cause}
	if got := clearErr.Error(); got != "storage: clear: disk full" {
		t.Errorf("unexpected ClearError message %q", got)
	}
	clearErr.Namespace = "/tmp/mem"
	if got := clearErr.Error(); got != `storage: clear "/tmp/mem": disk full` {
		t.Errorf("unexpected ClearError message %q", got)
	}
	if !errors.Is(clearErr, cause) {
		t.Error("ClearError should unwrap to its cause")
	}
}
