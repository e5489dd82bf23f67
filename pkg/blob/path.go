package blob

import (
	"fmt"
	"strings"
	"time"
)

// AllocatePath derives the storage path for a digest being written for the
// first time.
//
// The layout is drive/<year>/<month>/<digest><extension>, partitioning
// blobs by allocation time to bound directory fan-out. The path is a pure
// function of (digest, extension, first allocation time): once the catalog
// records a digest's path it never changes, so this function is only called
// on a dedup miss — later uploads of the same bytes look up the recorded
// path instead of reallocating.
//
// Parameters:
//   - digest: Hex content digest (the dedup key)
//   - extension: File-type suffix including the dot ("" for none)
//   - now: Allocation time (injected so tests are deterministic)
//
// Returns:
//   - string: Relative storage path, e.g. "drive/2026/08/ab12...ef.pdf"
func AllocatePath(digest, extension string, now time.Time) string {
	return fmt.Sprintf("drive/%04d/%02d/%s%s", now.Year(), int(now.Month()), digest, extension)
}

// ValidPath reports whether p is a storage path the stores will accept:
// relative, slash-separated, and free of traversal segments.
func ValidPath(p string) bool {
	if p == "" || strings.HasPrefix(p, "/") {
		return false
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return false
		}
	}
	return true
}
