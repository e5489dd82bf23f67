package drive

import (
	"errors"
	"fmt"

	"github.com/drivevault/drivevault/pkg/catalog"
)

// The drive service surfaces every failure as one of these sentinels,
// checked with errors.Is. The HTTP adapter maps them onto status codes;
// other callers branch on them directly.
var (
	// ErrPayloadTooLarge indicates the upload exceeds the configured
	// maximum payload size. Rejected before any byte is hashed or stored.
	ErrPayloadTooLarge = errors.New("payload too large")

	// ErrQuotaExceeded indicates the upload would push the owner past
	// their storage ceiling.
	ErrQuotaExceeded = errors.New("storage quota exceeded")

	// ErrNotFound indicates the requested record does not exist. The
	// anonymous token path also collapses denied access into this error
	// so a probe cannot distinguish "absent" from "forbidden".
	ErrNotFound = errors.New("not found")

	// ErrBlobMissing indicates a catalog row exists but its bytes are
	// absent from storage. This is an integrity fault, surfaced as a
	// server error and logged distinctly, never blamed on the client.
	ErrBlobMissing = errors.New("stored content missing")

	// ErrAccessDenied indicates the actor holds no access path to the
	// record.
	ErrAccessDenied = errors.New("access denied")

	// ErrNotOwner indicates an operation reserved for the record's owner
	// (delete, share, restore) was attempted by someone else.
	ErrNotOwner = errors.New("operation requires ownership")

	// ErrParentNotFound indicates the referenced parent folder is absent
	// or deleted.
	ErrParentNotFound = errors.New("parent folder not found")

	// ErrInvalidMediaType indicates the file's extension is on the
	// blocked list.
	ErrInvalidMediaType = errors.New("media type not allowed")

	// ErrConflict indicates a name collision or a lost insert race that
	// exhausted its retries.
	ErrConflict = errors.New("conflicting record exists")

	// ErrFolderNotEmpty indicates a folder deletion was attempted while
	// the folder still holds files or subfolders.
	ErrFolderNotEmpty = errors.New("folder is not empty")

	// ErrInvalidInput indicates a malformed request (empty name, unknown
	// visibility, bad version number).
	ErrInvalidInput = errors.New("invalid input")
)

// mapCatalogErr translates catalog domain errors into the service's
// sentinel taxonomy, passing infrastructure errors through wrapped.
func mapCatalogErr(err error) error {
	if err == nil {
		return nil
	}

	var storeErr *catalog.StoreError
	if !errors.As(err, &storeErr) {
		return err
	}

	switch storeErr.Code {
	case catalog.ErrNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, storeErr.Message)
	case catalog.ErrConflict:
		return fmt.Errorf("%w: %s", ErrConflict, storeErr.Message)
	case catalog.ErrParentNotFound:
		return fmt.Errorf("%w: %s", ErrParentNotFound, storeErr.Message)
	case catalog.ErrNotEmpty:
		return fmt.Errorf("%w: %s", ErrFolderNotEmpty, storeErr.Message)
	case catalog.ErrInvalidArgument:
		return fmt.Errorf("%w: %s", ErrInvalidInput, storeErr.Message)
	default:
		return err
	}
}
