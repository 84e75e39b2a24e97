package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// HistoryKey is the reserved key under which the conversation transcript is mirrored.
const HistoryKey = "history"

// Storage is a keyed blob store. Implementations must be safe for concurrent use.
type Storage interface {
	// Save encodes value as JSON and replaces whatever was stored under key.
	// Failures are returned as *WriteError.
	Save(ctx context.Context, key string, value any) error

	// Load returns the most recent value saved under key. Missing and
	// undecodable values are reported through Result.Status, not as errors.
	Load(ctx context.Context, key string) (Result, error)

	// Clear removes the values owned by this instance. Clearing an empty
	// store is not an error.
	Clear(ctx context.Context) error
}

// Status tags the outcome of a Load.
type Status int

const (
	// StatusAbsent means nothing was ever saved under the key.
	StatusAbsent Status = iota
	// StatusFound means Result.Data holds the stored JSON.
	StatusFound
	// StatusCorrupt means bytes exist but do not decode as JSON.
	StatusCorrupt
)

func (s Status) String() string {
	switch s {
	case StatusFound:
		return "found"
	case StatusCorrupt:
		return "corrupt"
	default:
		return "absent"
	}
}

// Result is the tagged outcome of Storage.Load.
type Result struct {
	Key    string
	Status Status
	// Data is set only for StatusFound.
	Data json.RawMessage
	// Cause explains a StatusCorrupt result.
	Cause error
	// Repaired is true when Data was recovered by JSON repair.
	Repaired bool
}

// Absent builds the result for a key that was never saved.
func Absent(key string) Result {
	return Result{Key: key, Status: StatusAbsent}
}

// Found reports whether the result carries a value.
func (r Result) Found() bool {
	return r.Status == StatusFound
}

// Usable is false for both absent and corrupt results: either way there is
// no value to use.
func (r Result) Usable() bool {
	return r.Status == StatusFound && len(r.Data) > 0
}

// Decode unmarshals the stored value into v.
func (r Result) Decode(v any) error {
	if !r.Usable() {
		return fmt.Errorf("storage: decode %q: no usable value (%s)", r.Key, r.Status)
	}
	if err := json.Unmarshal(r.Data, v); err != nil {
		return fmt.Errorf("storage: decode %q: %w", r.Key, err)
	}
	return nil
}

// ValidateKey rejects keys that cannot be used as an opaque, flat identifier
// on every medium: empty keys, path separators, NUL, "." and "..".
func ValidateKey(key string) error {
	switch {
	case key == "":
		return fmt.Errorf("%w: empty key", ErrInvalidKey)
	case key == "." || key == "..":
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	case strings.ContainsAny(key, "/\\\x00"):
		return fmt.Errorf("%w: %q contains a separator", ErrInvalidKey, key)
	}
	return nil
}
