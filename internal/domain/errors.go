package domain

import (
	"errors"
)

// ErrorKind classifies a failed operation
type ErrorKind string

const (
	// KindValidation is a missing/empty field or an unusable path. Never touches the filesystem.
	KindValidation ErrorKind = "validation"
	// KindWrite is a failed filesystem write or delete
	KindWrite ErrorKind = "write"
	// KindNetwork is a failed remote fetch (connection, non-2xx, timeout)
	KindNetwork ErrorKind = "network"
)

// Common domain errors
var (
	ErrEmptyField         = errors.New("required field is empty")
	ErrPathOutsideSandbox = errors.New("path resolves outside the sandbox root")
	ErrRootProtected      = errors.New("sandbox root cannot be removed")
	ErrNotDirectory       = errors.New("path exists and is not a directory")
	ErrInvalidFileName    = errors.New("file name does not name a file inside the directory")
	ErrUnexpectedStatus   = errors.New("unexpected response status")
	ErrCircuitOpen        = errors.New("source temporarily unavailable")
)

// OpError is the error returned by every core operation.
// Kind drives how the caller reports it; Err keeps the underlying cause.
type OpError struct {
	Kind ErrorKind
	Op   string
	Path string
	Err  error
}

// Error returns the error message
func (e *OpError) Error() string {
	msg := e.Op
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Err != nil {
		if msg != "" {
			return msg + ": " + e.Err.Error()
		}
		return e.Err.Error()
	}
	if msg != "" {
		return msg + ": " + string(e.Kind) + " error"
	}
	return string(e.Kind) + " error"
}

// Unwrap returns the underlying error
func (e *OpError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a validation error
func NewValidationError(op, path string, err error) *OpError {
	return &OpError{Kind: KindValidation, Op: op, Path: path, Err: err}
}

// NewWriteError creates a filesystem write error
func NewWriteError(op, path string, err error) *OpError {
	return &OpError{Kind: KindWrite, Op: op, Path: path, Err: err}
}

// NewNetworkError creates a remote fetch error
func NewNetworkError(op, url string, err error) *OpError {
	return &OpError{Kind: KindNetwork, Op: op, Path: url, Err: err}
}

// MissingField returns a validation error naming the empty field
func MissingField(op, field string) *OpError {
	return &OpError{Kind: KindValidation, Op: op, Err: &FieldError{Field: field}}
}

// FieldError names a required field that was empty
type FieldError struct {
	Field string
}

func (e *FieldError) Error() string {
	return e.Field + " is required"
}

// Is lets errors.Is(err, ErrEmptyField) match any FieldError
func (e *FieldError) Is(target error) bool {
	return target == ErrEmptyField
}

// KindOf returns the kind of err, or "" when err is not an OpError
func KindOf(err error) ErrorKind {
	var oe *OpError
	if errors.As(err, &oe) {
		return oe.Kind
	}
	return ""
}

// IsValidation returns true if the error is a validation error
func IsValidation(err error) bool {
	return KindOf(err) == KindValidation
}

// IsWrite returns true if the error is a filesystem write error
func IsWrite(err error) bool {
	return KindOf(err) == KindWrite
}

// IsNetwork returns true if the error is a remote fetch error
func IsNetwork(err error) bool {
	return KindOf(err) == KindNetwork
}
