package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidKey is wrapped by operations given a key ValidateKey rejects.
	ErrInvalidKey = errors.New("storage: invalid key")

	// ErrUnencodable is wrapped by Save when the value has no JSON form.
	ErrUnencodable = errors.New("storage: value cannot be encoded")

	// ErrUnreachable is matched by every *ReadError.
	ErrUnreachable = errors.New("storage: backend unreachable")
)

// WriteError reports a failed Save. The previous value under Key may or may
// not have survived.
type WriteError struct {
	Key string
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("storage: write %q: %v", e.Key, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// ReadError reports a Load that failed for a reason other than absence or
// corruption.
type ReadError struct {
	Key string
	Err error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("storage: read %q: %v", e.Key, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// Is makes every ReadError match ErrUnreachable.
func (e *ReadError) Is(target error) bool {
	return target == ErrUnreachable
}

// ClearError reports a failed Clear.
type ClearError struct {
	Namespace string
	Err       error
}

func (e *ClearError) Error() string {
	if e.Namespace == "" {
		return fmt.Sprintf("storage: clear: %v", e.Err)
	}
	return fmt.Sprintf("storage: clear %q: %v", e.Namespace, e.Err)
}

func (e *ClearError) Unwrap() error { return e.Err }
