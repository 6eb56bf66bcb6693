package store

import (
	"errors"
	"fmt"
	"strings"
)

// Common store operation errors.
var (
	// ErrKeyNotFound is returned when a requested key does not exist
	ErrKeyNotFound = errors.New("store: key not found")

	// ErrInvalidKey is returned when a key is empty, too long, or contains control characters
	ErrInvalidKey = errors.New("store: invalid key")

	// ErrInvalidValue is returned when a value cannot be encoded or decoded
	ErrInvalidValue = errors.New("store: invalid value")

	// ErrUnavailable is returned when a backend is temporarily unreachable
	ErrUnavailable = errors.New("store: backend unavailable")

	// ErrVersionConflict is returned when an optimistic update sees a stale version
	ErrVersionConflict = errors.New("store: version conflict")

	// ErrClosed is returned when operating on a closed store
	ErrClosed = errors.New("store: closed")
)

// IsNotFound checks if the given error indicates a missing key.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrKeyNotFound)
}

// IsUnavailable checks if the given error indicates an unreachable backend.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// IsVersionConflict checks if the given error indicates a stale optimistic update.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}

// WrapError wraps an error with backend and operation context.
func WrapError(err error, backend string, operation string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("store %s %s: %w", backend, operation, err)
}

// ClassifyError returns a string classification of the error for metrics.
func ClassifyError(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrKeyNotFound):
		return "key_not_found"
	case errors.Is(err, ErrVersionConflict):
		return "version_conflict"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	case errors.Is(err, ErrInvalidKey):
		return "invalid_key"
	case errors.Is(err, ErrInvalidValue):
		return "invalid_value"
	case errors.Is(err, ErrClosed):
		return "closed"
	default:
		msg := strings.ToLower(err.Error())
		switch {
		case strings.Contains(msg, "connect") || strings.Contains(msg, "dial"):
			return "connection"
		case strings.Contains(msg, "marshal") || strings.Contains(msg, "unmarshal"):
			return "serialization"
		default:
			return "other"
		}
	}
}
