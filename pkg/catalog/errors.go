package catalog

import "errors"

// StoreError represents a domain error from catalog operations.
//
// These are business logic errors (record not found, name conflict, etc.)
// as opposed to infrastructure errors (disk failure, corrupt database).
// The orchestrator and HTTP adapter translate StoreError codes into the
// user-visible error taxonomy.
type StoreError struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// Ref identifies the record related to the error (if applicable),
	// typically a UUID, digest, or name. This helps with debugging and
	// error reporting.
	Ref string
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.Ref != "" {
		return e.Message + ": " + e.Ref
	}
	return e.Message
}

// ErrorCode represents the category of a catalog error.
type ErrorCode int

const (
	// ErrNotFound indicates the requested file/folder/share/version
	// doesn't exist
	ErrNotFound ErrorCode = iota

	// ErrConflict indicates a uniqueness constraint was violated, e.g.
	// two files with the same name in the same folder for one owner, or
	// a lost insert race that exhausted its retries
	ErrConflict

	// ErrParentNotFound indicates the referenced parent folder is absent
	// or deleted
	ErrParentNotFound

	// ErrNotEmpty indicates a folder still contains files or subfolders
	// and cannot be removed
	ErrNotEmpty

	// ErrInvalidArgument indicates invalid parameters were provided.
	// Examples: empty name, unknown visibility, non-positive size
	ErrInvalidArgument

	// ErrIOError indicates the underlying database failed
	ErrIOError
)

// IsCode reports whether err is (or wraps) a *StoreError carrying the
// given code.
func IsCode(err error, code ErrorCode) bool {
	var storeErr *StoreError
	return errors.As(err, &storeErr) && storeErr.Code == code
}
