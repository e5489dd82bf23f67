package badger

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// Database Key Namespace Design
// ==============================
//
// BadgerDB is a key-value store, so we use prefixed keys to organize the
// catalog's record types into logical namespaces. This design:
//   - Prevents key collisions between record types
//   - Enables efficient range scans (listings, version history)
//   - Lets uniqueness constraints ride on key existence checks
//   - Makes the database structure self-documenting
//
// Key Namespace Prefixes:
//
// Record Type           Prefix   Key Format                               Value Type
// ===================================================================================
// File Data             "f:"     f:<fileUUID>                            File (JSON)
// File Name Index       "n:"     n:<owner>:<folderUUID|->:<name>         fileUUID (bytes)
// Owner File Index      "o:"     o:<owner>:<fileUUID>                    (empty)
// Folder Membership     "m:"     m:<folderUUID>:<fileUUID>               (empty)
// Canonical Blobs       "d:"     d:<digest>                              BlobRef (JSON)
// Folder Data           "dir:"   dir:<folderUUID>                        Folder (JSON)
// Folder Name Index     "dn:"    dn:<owner>:<parentUUID|->:<name>        folderUUID (bytes)
// Owner Folder Index    "do:"    do:<owner>:<folderUUID>                 (empty)
// Share Data            "s:"     s:<shareUUID>                           Share (JSON)
// Public Token Index    "st:"    st:<token>                              shareUUID (bytes)
// File Share Index      "sf:"    sf:<fileUUID>:<shareUUID>               (empty)
// Version Data          "v:"     v:<fileUUID>:<number BE64>              Version (JSON)
// Owner Usage           "u:"     u:<owner>                               int64 (BE64)
//
// Key Design Rationale:
//
// 1. Name indexes (n:, dn:)
//    - One entry per live record; existence of the key IS the uniqueness
//      constraint on (owner, container, name). Inserts probe the key and
//      fail with Conflict if present; soft-delete removes it, freeing the
//      name for reuse while the deleted row stays addressable by UUID.
//    - "-" stands in for the nil container so root-level names get their
//      own namespace per owner.
//
// 2. Owner indexes (o:, do:)
//    - Listings are always per-owner, so a range scan over "o:<owner>:"
//      touches exactly the rows that can match, no full-table scan.
//
// 3. Canonical blobs (d:)
//    - The dedup index. Key existence is the uniqueness constraint on
//      digest canonicality: a losing racer finds the key already set and
//      adopts the winner's storage path instead of erroring.
//
// 4. Versions (v:)
//    - The version number is encoded as big-endian uint64 so the natural
//      byte order of a prefix scan yields ascending version order.
//
// 5. Owner usage (u:)
//    - A running counter updated inside the same transaction as the
//      insert/delete it reflects, making the quota read O(1) instead of a
//      per-request scan over the owner's files.

const (
	prefixFile       = "f:"
	prefixFileName   = "n:"
	prefixOwnerFile  = "o:"
	prefixMembership = "m:"
	prefixBlobRef    = "d:"
	prefixFolder     = "dir:"
	prefixFolderName = "dn:"
	prefixOwnerDir   = "do:"
	prefixShare      = "s:"
	prefixShareToken = "st:"
	prefixFileShare  = "sf:"
	prefixVersion    = "v:"
	prefixUsage      = "u:"
)

// rootContainer stands in for a nil folder/parent reference in name index
// keys, keeping root-level names in their own per-owner namespace.
const rootContainer = "-"

func containerSegment(id *uuid.UUID) string {
	if id == nil {
		return rootContainer
	}
	return id.String()
}

// keyFile generates the key for file data.
//
// Format: "f:<uuid>"
func keyFile(id uuid.UUID) []byte {
	return []byte(prefixFile + id.String())
}

// keyFileName generates the uniqueness key for a file name within one
// owner's folder (or root).
//
// Format: "n:<owner>:<folderUUID|->:<name>"
func keyFileName(ownerID string, folderID *uuid.UUID, name string) []byte {
	return []byte(prefixFileName + ownerID + ":" + containerSegment(folderID) + ":" + name)
}

// keyOwnerFile generates the owner index entry for a file.
//
// Format: "o:<owner>:<fileUUID>"
func keyOwnerFile(ownerID string, id uuid.UUID) []byte {
	return []byte(prefixOwnerFile + ownerID + ":" + id.String())
}

// keyOwnerFilePrefix generates the range-scan prefix over one owner's
// files.
func keyOwnerFilePrefix(ownerID string) []byte {
	return []byte(prefixOwnerFile + ownerID + ":")
}

// keyMembership generates the folder membership entry for a file.
//
// Format: "m:<folderUUID>:<fileUUID>"
func keyMembership(folderID, fileID uuid.UUID) []byte {
	return []byte(prefixMembership + folderID.String() + ":" + fileID.String())
}

// keyMembershipPrefix generates the range-scan prefix over a folder's
// direct files.
func keyMembershipPrefix(folderID uuid.UUID) []byte {
	return []byte(prefixMembership + folderID.String() + ":")
}

// keyBlobRef generates the canonical blob record key for a digest.
//
// Format: "d:<digest>"
func keyBlobRef(digest string) []byte {
	return []byte(prefixBlobRef + digest)
}

// keyFolder generates the key for folder data.
//
// Format: "dir:<uuid>"
func keyFolder(id uuid.UUID) []byte {
	return []byte(prefixFolder + id.String())
}

// keyFolderName generates the sibling uniqueness key for a folder name.
//
// Format: "dn:<owner>:<parentUUID|->:<name>"
func keyFolderName(ownerID string, parentID *uuid.UUID, name string) []byte {
	return []byte(prefixFolderName + ownerID + ":" + containerSegment(parentID) + ":" + name)
}

// keyOwnerFolder generates the owner index entry for a folder.
//
// Format: "do:<owner>:<folderUUID>"
func keyOwnerFolder(ownerID string, id uuid.UUID) []byte {
	return []byte(prefixOwnerDir + ownerID + ":" + id.String())
}

// keyOwnerFolderPrefix generates the range-scan prefix over one owner's
// folders.
func keyOwnerFolderPrefix(ownerID string) []byte {
	return []byte(prefixOwnerDir + ownerID + ":")
}

// keyFolderChildPrefix generates the range-scan prefix over a folder's
// direct subfolders in the name index.
//
// Format: "dn:<owner>:<parentUUID>:"
func keyFolderChildPrefix(ownerID string, parentID uuid.UUID) []byte {
	return []byte(prefixFolderName + ownerID + ":" + parentID.String() + ":")
}

// keyShare generates the key for share data.
//
// Format: "s:<uuid>"
func keyShare(id uuid.UUID) []byte {
	return []byte(prefixShare + id.String())
}

// keyShareToken generates the anonymous lookup key for a public token.
//
// Format: "st:<token>"
func keyShareToken(token string) []byte {
	return []byte(prefixShareToken + token)
}

// keyFileShare generates the shares-by-file index entry.
//
// Format: "sf:<fileUUID>:<shareUUID>"
func keyFileShare(fileID, shareID uuid.UUID) []byte {
	return []byte(prefixFileShare + fileID.String() + ":" + shareID.String())
}

// keyFileSharePrefix generates the range-scan prefix over a file's shares.
func keyFileSharePrefix(fileID uuid.UUID) []byte {
	return []byte(prefixFileShare + fileID.String() + ":")
}

// keyVersion generates the key for a version snapshot. The number is
// big-endian so prefix scans yield ascending version order.
//
// Format: "v:<fileUUID>:<number BE64>"
func keyVersion(fileID uuid.UUID, number int) []byte {
	key := make([]byte, 0, len(prefixVersion)+36+1+8)
	key = append(key, prefixVersion...)
	key = append(key, fileID.String()...)
	key = append(key, ':')
	key = binary.BigEndian.AppendUint64(key, uint64(number))
	return key
}

// keyVersionPrefix generates the range-scan prefix over a file's versions.
func keyVersionPrefix(fileID uuid.UUID) []byte {
	return []byte(prefixVersion + fileID.String() + ":")
}

// keyUsage generates the owner usage counter key.
//
// Format: "u:<owner>"
func keyUsage(ownerID string) []byte {
	return []byte(prefixUsage + ownerID)
}
