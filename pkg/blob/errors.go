package blob

import "errors"

// Standard blob store errors.
//
// These provide a consistent way to indicate common failure conditions
// across all blob store implementations. The orchestrator checks for these
// with errors.Is and maps them to its own error taxonomy; the blob layer
// itself never makes authorization or quota decisions, so every error here
// is mechanical.
//
// Implementations should wrap these with context:
//
//	if !exists {
//	    return fmt.Errorf("blob %s: %w", path, blob.ErrBlobNotFound)
//	}
var (
	// ErrBlobNotFound indicates the requested storage path holds no bytes.
	//
	// When the catalog has a record pointing at the path, this is a
	// data-integrity fault and the orchestrator surfaces it as a server
	// error rather than a client error.
	ErrBlobNotFound = errors.New("blob not found")

	// ErrStorageFull indicates the backing medium has no available space.
	// Transient: may succeed after reclamation.
	ErrStorageFull = errors.New("storage full")

	// ErrInvalidPath indicates a storage path that the store refuses to
	// touch (empty, absolute, or escaping the storage root).
	ErrInvalidPath = errors.New("invalid storage path")

	// ErrReadOnly indicates a write was attempted on a read-only store.
	ErrReadOnly = errors.New("blob store is read-only")

	// ErrUnavailable indicates the backend is temporarily unreachable
	// (network failure, maintenance). Retrying may succeed.
	ErrUnavailable = errors.New("blob store unavailable")
)
