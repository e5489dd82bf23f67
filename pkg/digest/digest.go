// Package digest computes the content digests used as deduplication keys.
//
// The digest is the only link between a catalog record and the bytes on
// durable storage: two uploads with identical bytes produce identical
// digests and therefore share one canonical blob. The digest must be
// deterministic across processes and restarts, so the algorithm (SHA-256)
// is fixed rather than configurable.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"regexp"
)

// Size is the length in bytes of a raw digest.
const Size = sha256.Size

// HexLen is the length of the lowercase hex encoding of a digest.
const HexLen = Size * 2

var hexPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// Bytes returns the lowercase hex SHA-256 digest of data.
//
// Deterministic and side-effect free: identical byte sequences always
// produce identical digests regardless of call order or process.
func Bytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Reader consumes r to EOF and returns the lowercase hex SHA-256 digest of
// everything read, along with the number of bytes consumed.
//
// This is the streaming counterpart of Bytes, used by the upload path to
// hash request bodies without holding more than one copy in memory.
//
// Parameters:
//   - r: Source of the bytes to hash (read to EOF)
//
// Returns:
//   - string: Hex digest of the bytes read
//   - int64: Number of bytes read
//   - error: Read errors from r (the digest is invalid if err != nil)
func Reader(r io.Reader) (string, int64, error) {
	h := sha256.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return "", n, fmt.Errorf("failed to hash content: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// Valid reports whether s is a well-formed hex digest.
//
// Used to reject malformed digests at API boundaries before they reach the
// catalog or the blob store.
func Valid(s string) bool {
	return hexPattern.MatchString(s)
}
