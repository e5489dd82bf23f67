package badger

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/drivevault/drivevault/pkg/catalog"
)

// Serialization Strategy
// ======================
//
// BadgerDB stores raw bytes, so records are serialized before storage.
// Two strategies, chosen by value shape:
//
// 1. JSON Encoding (record types)
//    - Files, folders, shares, versions, canonical blob records
//    - Human-readable, flexible schema evolution, easy debugging
//
// 2. Binary Encoding (scalar values)
//    - Usage counters (big-endian int64), index values (UUID bytes)
//    - Compact and fast; the schema is a single number or identifier
//      and will not evolve

func encodeFile(f *catalog.File) ([]byte, error) {
	bytes, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("failed to encode file: %w", err)
	}
	return bytes, nil
}

func decodeFile(bytes []byte) (*catalog.File, error) {
	var f catalog.File
	if err := json.Unmarshal(bytes, &f); err != nil {
		return nil, fmt.Errorf("failed to decode file: %w", err)
	}
	return &f, nil
}

func encodeFolder(f *catalog.Folder) ([]byte, error) {
	bytes, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("failed to encode folder: %w", err)
	}
	return bytes, nil
}

func decodeFolder(bytes []byte) (*catalog.Folder, error) {
	var f catalog.Folder
	if err := json.Unmarshal(bytes, &f); err != nil {
		return nil, fmt.Errorf("failed to decode folder: %w", err)
	}
	return &f, nil
}

func encodeShare(s *catalog.Share) ([]byte, error) {
	bytes, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode share: %w", err)
	}
	return bytes, nil
}

func decodeShare(bytes []byte) (*catalog.Share, error) {
	var s catalog.Share
	if err := json.Unmarshal(bytes, &s); err != nil {
		return nil, fmt.Errorf("failed to decode share: %w", err)
	}
	return &s, nil
}

func encodeVersion(v *catalog.Version) ([]byte, error) {
	bytes, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode version: %w", err)
	}
	return bytes, nil
}

func decodeVersion(bytes []byte) (*catalog.Version, error) {
	var v catalog.Version
	if err := json.Unmarshal(bytes, &v); err != nil {
		return nil, fmt.Errorf("failed to decode version: %w", err)
	}
	return &v, nil
}

func encodeBlobRef(ref *catalog.BlobRef) ([]byte, error) {
	bytes, err := json.Marshal(ref)
	if err != nil {
		return nil, fmt.Errorf("failed to encode blob record: %w", err)
	}
	return bytes, nil
}

func decodeBlobRef(bytes []byte) (*catalog.BlobRef, error) {
	var ref catalog.BlobRef
	if err := json.Unmarshal(bytes, &ref); err != nil {
		return nil, fmt.Errorf("failed to decode blob record: %w", err)
	}
	return &ref, nil
}

// encodeUUID stores an identifier as its canonical string bytes, keeping
// index values greppable in database dumps.
func encodeUUID(id uuid.UUID) []byte {
	return []byte(id.String())
}

func decodeUUID(bytes []byte) (uuid.UUID, error) {
	id, err := uuid.Parse(string(bytes))
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to decode identifier: %w", err)
	}
	return id, nil
}

// encodeInt64 stores a counter as big-endian fixed-width bytes.
func encodeInt64(n int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(n))
	return buf
}

func decodeInt64(bytes []byte) (int64, error) {
	if len(bytes) != 8 {
		return 0, fmt.Errorf("failed to decode counter: expected 8 bytes, got %d", len(bytes))
	}
	return int64(binary.BigEndian.Uint64(bytes)), nil
}
