package statebox

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-statebox/internal/values"
)

var (
	// ErrAlreadyInitialized is returned when an exclusive store is constructed
	// while another exclusive store is still open.
	ErrAlreadyInitialized = errors.New("statebox: store already initialized")
	// ErrValueNotSerializable is returned when debug mode finds a callable
	// value inside a partial update.
	ErrValueNotSerializable = errors.New("statebox: value not serializable")
	// ErrInvalidPath indicates a malformed dotted path.
	ErrInvalidPath = errors.New("statebox: invalid path")
	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("statebox: store closed")
	// ErrStorageNotConfigured is returned by storage accessors when the
	// matching storage was not supplied.
	ErrStorageNotConfigured = errors.New("statebox: storage not configured")
	// ErrSlotEmpty is returned when the storage slot holds no state yet.
	ErrSlotEmpty = errors.New("statebox: storage slot empty")
)

// SerializationError describes the value that made a partial update
// unstorable.
type SerializationError struct {
	Path string
	Kind string
	Err  error
}

func (e *SerializationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	path := e.Path
	if path == "" {
		path = "<root>"
	}
	return fmt.Sprintf("statebox: can't store %s at %q: %v", e.Kind, path, e.Err)
}

func (e *SerializationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is lets errors.Is match ErrValueNotSerializable.
func (e *SerializationError) Is(target error) bool {
	return target == ErrValueNotSerializable
}

func wrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	var invalid *values.InvalidValueError
	if errors.As(err, &invalid) {
		return &SerializationError{
			Path: invalid.Path,
			Kind: invalid.Kind.String(),
			Err:  err,
		}
	}
	return fmt.Errorf("%w: %v", ErrValueNotSerializable, err)
}

// PersistError reports a storage write that failed after the state was
// already updated.
type PersistError struct {
	Target string
	Err    error
}

func (e *PersistError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("statebox: persist to %s storage: %v", e.Target, e.Err)
}

func (e *PersistError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func invalidPath(raw, reason string) error {
	return fmt.Errorf("%w %q: %s", ErrInvalidPath, raw, strings.TrimSpace(reason))
}
