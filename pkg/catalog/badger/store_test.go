package badger

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drivevault/drivevault/pkg/catalog"
	"github.com/drivevault/drivevault/pkg/digest"
)

// hexDigest derives a well-formed content digest from a seed, for version
// rows whose digests are validated.
func hexDigest(seed string) string {
	return digest.Bytes([]byte(seed))
}

func newTestCatalog(t *testing.T) *BadgerCatalog {
	t.Helper()

	store, err := NewBadgerCatalog(context.Background(), BadgerCatalogConfig{
		InMemory: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store
}

func testFile(owner, name, digest string, size int64) *catalog.File {
	now := time.Date(2026, time.August, 10, 12, 0, 0, 0, time.UTC)
	return &catalog.File{
		ID:          uuid.New(),
		Name:        name,
		Slug:        name,
		Digest:      digest,
		StoragePath: "drive/2026/08/" + digest,
		MediaType:   "application/octet-stream",
		Size:        size,
		OwnerID:     owner,
		Visibility:  catalog.VisibilityPrivate,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func testFolder(owner, name string) *catalog.Folder {
	now := time.Date(2026, time.August, 10, 12, 0, 0, 0, time.UTC)
	return &catalog.Folder{
		ID:         uuid.New(),
		Name:       name,
		Slug:       name,
		OwnerID:    owner,
		Visibility: catalog.VisibilityPrivate,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestInsertFile_Basic(t *testing.T) {
	store := newTestCatalog(t)
	ctx := context.Background()

	file := testFile("alice", "report.pdf", "aaa1", 1024)
	inserted, err := store.InsertFile(ctx, file)
	require.NoError(t, err)
	assert.Equal(t, file.ID, inserted.ID)

	got, err := store.GetFile(ctx, file.ID)
	require.NoError(t, err)
	assert.Equal(t, "report.pdf", got.Name)
	assert.Equal(t, int64(1024), got.Size)

	usage, err := store.Usage(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1024), usage)
}

func TestInsertFile_NameConflict(t *testing.T) {
	store := newTestCatalog(t)
	ctx := context.Background()

	_, err := store.InsertFile(ctx, testFile("alice", "report.pdf", "aaa1", 10))
	require.NoError(t, err)

	_, err = store.InsertFile(ctx, testFile("alice", "report.pdf", "bbb2", 20))
	assert.True(t, catalog.IsCode(err, catalog.ErrConflict))

	// Same name under a different owner is fine.
	_, err = store.InsertFile(ctx, testFile("bob", "report.pdf", "ccc3", 30))
	require.NoError(t, err)
}

func TestInsertFile_ParentNotFound(t *testing.T) {
	store := newTestCatalog(t)
	ctx := context.Background()

	missing := uuid.New()
	file := testFile("alice", "report.pdf", "aaa1", 10)
	file.FolderID = &missing

	_, err := store.InsertFile(ctx, file)
	assert.True(t, catalog.IsCode(err, catalog.ErrParentNotFound))
}

func TestInsertFile_DedupSharesCanonicalPath(t *testing.T) {
	store := newTestCatalog(t)
	ctx := context.Background()

	first := testFile("alice", "a.txt", "dedup1", 100)
	inserted1, err := store.InsertFile(ctx, first)
	require.NoError(t, err)

	// Second upload of identical bytes under a different path proposal
	// must adopt the canonical path.
	second := testFile("bob", "b.txt", "dedup1", 100)
	second.StoragePath = "drive/2026/09/dedup1"
	inserted2, err := store.InsertFile(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, inserted1.StoragePath, inserted2.StoragePath)

	ref, err := store.FindByDigest(ctx, "dedup1")
	require.NoError(t, err)
	require.NotNil(t, ref)
	assert.Equal(t, int64(2), ref.RefCount)

	// Deleting one reference keeps the canonical record alive.
	require.NoError(t, store.SoftDeleteFile(ctx, inserted1.ID, time.Now()))
	ref, err = store.FindByDigest(ctx, "dedup1")
	require.NoError(t, err)
	require.NotNil(t, ref)
	assert.Equal(t, int64(1), ref.RefCount)

	// Deleting the last reference removes the dedup entry so a stale
	// digest can never resolve to a missing blob.
	require.NoError(t, store.SoftDeleteFile(ctx, inserted2.ID, time.Now()))
	ref, err = store.FindByDigest(ctx, "dedup1")
	require.NoError(t, err)
	assert.Nil(t, ref)
}

func TestSoftDeleteFile_Semantics(t *testing.T) {
	store := newTestCatalog(t)
	ctx := context.Background()
	now := time.Now().UTC()

	file := testFile("alice", "doomed.txt", "del1", 500)
	_, err := store.InsertFile(ctx, file)
	require.NoError(t, err)

	require.NoError(t, store.SoftDeleteFile(ctx, file.ID, now))

	// The row stays addressable, marked deleted.
	got, err := store.GetFile(ctx, file.ID)
	require.NoError(t, err)
	assert.True(t, got.Deleted())

	// Gone from listings and usage.
	files, err := store.ListFiles(ctx, catalog.FileFilter{OwnerID: "alice"})
	require.NoError(t, err)
	assert.Empty(t, files)

	usage, err := store.Usage(ctx, "alice")
	require.NoError(t, err)
	assert.Zero(t, usage)

	// The name is free for reuse.
	_, err = store.InsertFile(ctx, testFile("alice", "doomed.txt", "del2", 100))
	require.NoError(t, err)

	// A second delete reports not found.
	err = store.SoftDeleteFile(ctx, file.ID, now)
	assert.True(t, catalog.IsCode(err, catalog.ErrNotFound))
}

func TestListFiles_Filters(t *testing.T) {
	store := newTestCatalog(t)
	ctx := context.Background()

	folder, err := store.CreateFolder(ctx, testFolder("alice", "docs"))
	require.NoError(t, err)

	inFolder := testFile("alice", "inside.txt", "f1", 10)
	inFolder.FolderID = &folder.ID
	inFolder.Tags = []string{"work", "q3"}
	_, err = store.InsertFile(ctx, inFolder)
	require.NoError(t, err)

	atRoot := testFile("alice", "outside.txt", "f2", 20)
	atRoot.Visibility = catalog.VisibilityPublic
	_, err = store.InsertFile(ctx, atRoot)
	require.NoError(t, err)

	all, err := store.ListFiles(ctx, catalog.FileFilter{OwnerID: "alice"})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	folderOnly, err := store.ListFiles(ctx, catalog.FileFilter{OwnerID: "alice", FolderID: &folder.ID})
	require.NoError(t, err)
	require.Len(t, folderOnly, 1)
	assert.Equal(t, "inside.txt", folderOnly[0].Name)

	rootOnly, err := store.ListFiles(ctx, catalog.FileFilter{OwnerID: "alice", RootOnly: true})
	require.NoError(t, err)
	require.Len(t, rootOnly, 1)
	assert.Equal(t, "outside.txt", rootOnly[0].Name)

	public := catalog.VisibilityPublic
	byVisibility, err := store.ListFiles(ctx, catalog.FileFilter{OwnerID: "alice", Visibility: &public})
	require.NoError(t, err)
	assert.Len(t, byVisibility, 1)

	tagged, err := store.ListFiles(ctx, catalog.FileFilter{OwnerID: "alice", Tags: []string{"work", "q3"}})
	require.NoError(t, err)
	assert.Len(t, tagged, 1)

	noMatch, err := store.ListFiles(ctx, catalog.FileFilter{OwnerID: "alice", Tags: []string{"missing"}})
	require.NoError(t, err)
	assert.Empty(t, noMatch)
}

func TestFolderAggregates_ConcurrentUploads(t *testing.T) {
	store := newTestCatalog(t)
	ctx := context.Background()

	folder, err := store.CreateFolder(ctx, testFolder("alice", "burst"))
	require.NoError(t, err)

	// Every insert touches the shared owner usage counter on top of the
	// folder aggregates, so all of these invalidate each other's
	// snapshots. Conflicts must be absorbed by the retry loop, never
	// surfaced to the uploader.
	const uploads = 64
	var wg sync.WaitGroup
	errs := make(chan error, uploads)

	for i := 0; i < uploads; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			file := testFile("alice", fmt.Sprintf("file-%d.bin", i), fmt.Sprintf("digest-%d", i), 100)
			file.FolderID = &folder.ID
			_, err := store.InsertFile(ctx, file)
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	got, err := store.GetFolder(ctx, folder.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(uploads), got.FileCount)
	assert.Equal(t, int64(uploads*100), got.TotalSizeBytes)

	usage, err := store.Usage(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(uploads*100), usage)
}

func TestCreateFolder_Hierarchy(t *testing.T) {
	store := newTestCatalog(t)
	ctx := context.Background()

	root, err := store.CreateFolder(ctx, testFolder("alice", "projects"))
	require.NoError(t, err)
	assert.Equal(t, 0, root.Depth)
	assert.Equal(t, "/projects", root.Path)

	childInput := testFolder("alice", "reports")
	childInput.ParentID = &root.ID
	child, err := store.CreateFolder(ctx, childInput)
	require.NoError(t, err)
	assert.Equal(t, 1, child.Depth)
	assert.Equal(t, "/projects/reports", child.Path)

	// Sibling name collision.
	dup := testFolder("alice", "reports")
	dup.ParentID = &root.ID
	_, err = store.CreateFolder(ctx, dup)
	assert.True(t, catalog.IsCode(err, catalog.ErrConflict))

	// Missing parent.
	missing := uuid.New()
	orphan := testFolder("alice", "lost")
	orphan.ParentID = &missing
	_, err = store.CreateFolder(ctx, orphan)
	assert.True(t, catalog.IsCode(err, catalog.ErrParentNotFound))
}

func TestUpdateFolder_RenameRewritesDescendants(t *testing.T) {
	store := newTestCatalog(t)
	ctx := context.Background()
	now := time.Now().UTC()

	root, err := store.CreateFolder(ctx, testFolder("alice", "old"))
	require.NoError(t, err)

	childInput := testFolder("alice", "sub")
	childInput.ParentID = &root.ID
	child, err := store.CreateFolder(ctx, childInput)
	require.NoError(t, err)

	grandInput := testFolder("alice", "deep")
	grandInput.ParentID = &child.ID
	grand, err := store.CreateFolder(ctx, grandInput)
	require.NoError(t, err)

	newName := "new"
	renamed, err := store.UpdateFolder(ctx, root.ID, catalog.FolderUpdate{Name: &newName}, now)
	require.NoError(t, err)
	assert.Equal(t, "/new", renamed.Path)

	gotChild, err := store.GetFolder(ctx, child.ID)
	require.NoError(t, err)
	assert.Equal(t, "/new/sub", gotChild.Path)

	gotGrand, err := store.GetFolder(ctx, grand.ID)
	require.NoError(t, err)
	assert.Equal(t, "/new/sub/deep", gotGrand.Path)
}

func TestSoftDeleteFolder_OnlyWhenEmpty(t *testing.T) {
	store := newTestCatalog(t)
	ctx := context.Background()
	now := time.Now().UTC()

	folder, err := store.CreateFolder(ctx, testFolder("alice", "busy"))
	require.NoError(t, err)

	file := testFile("alice", "occupant.txt", "occ1", 10)
	file.FolderID = &folder.ID
	_, err = store.InsertFile(ctx, file)
	require.NoError(t, err)

	err = store.SoftDeleteFolder(ctx, folder.ID, now)
	assert.True(t, catalog.IsCode(err, catalog.ErrNotEmpty))

	require.NoError(t, store.SoftDeleteFile(ctx, file.ID, now))
	require.NoError(t, store.SoftDeleteFolder(ctx, folder.ID, now))

	// Subfolders block deletion too.
	parent, err := store.CreateFolder(ctx, testFolder("alice", "parent"))
	require.NoError(t, err)
	childInput := testFolder("alice", "child")
	childInput.ParentID = &parent.ID
	child, err := store.CreateFolder(ctx, childInput)
	require.NoError(t, err)

	err = store.SoftDeleteFolder(ctx, parent.ID, now)
	assert.True(t, catalog.IsCode(err, catalog.ErrNotEmpty))

	require.NoError(t, store.SoftDeleteFolder(ctx, child.ID, now))
	require.NoError(t, store.SoftDeleteFolder(ctx, parent.ID, now))
}

func TestShares_PublicTokenLifecycle(t *testing.T) {
	store := newTestCatalog(t)
	ctx := context.Background()
	now := time.Now().UTC()

	file := testFile("alice", "shared.txt", "sh1", 10)
	_, err := store.InsertFile(ctx, file)
	require.NoError(t, err)

	share := &catalog.Share{
		ID:         uuid.New(),
		FileID:     file.ID,
		Grant:      catalog.PublicGrant("tok-abc123"),
		Permission: catalog.PermissionRead,
		GrantedBy:  "alice",
		CreatedAt:  now,
	}
	_, err = store.CreateShare(ctx, share)
	require.NoError(t, err)

	found, err := store.FindShareByToken(ctx, "tok-abc123")
	require.NoError(t, err)
	assert.Equal(t, share.ID, found.ID)

	require.NoError(t, store.RecordShareAccess(ctx, share.ID, now))
	got, err := store.GetShare(ctx, share.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.AccessCount)

	require.NoError(t, store.RevokeShare(ctx, share.ID, now))

	// A revoked token stops resolving.
	_, err = store.FindShareByToken(ctx, "tok-abc123")
	assert.True(t, catalog.IsCode(err, catalog.ErrNotFound))

	// Revoking twice reports not found.
	err = store.RevokeShare(ctx, share.ID, now)
	assert.True(t, catalog.IsCode(err, catalog.ErrNotFound))
}

func TestShares_UserGrantListing(t *testing.T) {
	store := newTestCatalog(t)
	ctx := context.Background()
	now := time.Now().UTC()

	file := testFile("alice", "granted.txt", "gr1", 10)
	_, err := store.InsertFile(ctx, file)
	require.NoError(t, err)

	for _, grantee := range []string{"bob", "carol"} {
		_, err = store.CreateShare(ctx, &catalog.Share{
			ID:         uuid.New(),
			FileID:     file.ID,
			Grant:      catalog.UserGrant(grantee),
			Permission: catalog.PermissionRead,
			GrantedBy:  "alice",
			CreatedAt:  now,
		})
		require.NoError(t, err)
	}

	shares, err := store.ListSharesForFile(ctx, file.ID)
	require.NoError(t, err)
	assert.Len(t, shares, 2)
}

func TestRestoreVersion(t *testing.T) {
	store := newTestCatalog(t)
	ctx := context.Background()
	now := time.Now().UTC()

	folder, err := store.CreateFolder(ctx, testFolder("alice", "versioned"))
	require.NoError(t, err)

	// Live row at version 2, with the superseded version 1 in history.
	file := testFile("alice", "doc.txt", "v1digest", 100)
	file.FolderID = &folder.ID
	file.Version = 2
	inserted, err := store.InsertFile(ctx, file)
	require.NoError(t, err)

	oldDigest := hexDigest("old")
	seedVersionForTest(t, store, &catalog.Version{
		ID:          uuid.New(),
		FileID:      inserted.ID,
		Number:      1,
		Digest:      oldDigest,
		StoragePath: "drive/2026/07/" + oldDigest,
		Size:        60,
		UploaderID:  "alice",
		CreatedAt:   now.Add(-time.Hour),
	})

	restored, err := store.RestoreVersion(ctx, inserted.ID, 1, "alice", now)
	require.NoError(t, err)
	assert.Equal(t, oldDigest, restored.Digest)
	assert.Equal(t, int64(60), restored.Size)
	assert.Equal(t, 3, restored.Version)

	// The pre-restore state was preserved as a new snapshot at number 2.
	versions, err := store.ListVersions(ctx, inserted.ID)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, 1, versions[0].Number)
	assert.Equal(t, 2, versions[1].Number)
	assert.Equal(t, "v1digest", versions[1].Digest)

	// Aggregates and usage moved with the size delta.
	gotFolder, err := store.GetFolder(ctx, folder.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(60), gotFolder.TotalSizeBytes)

	usage, err := store.Usage(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(60), usage)

	// Restoring an unknown version fails.
	_, err = store.RestoreVersion(ctx, inserted.ID, 99, "alice", now)
	assert.True(t, catalog.IsCode(err, catalog.ErrNotFound))
}

func TestCreateVersion_Guards(t *testing.T) {
	store := newTestCatalog(t)
	ctx := context.Background()
	now := time.Now().UTC()

	file := testFile("alice", "doc.txt", "digest1", 100)
	inserted, err := store.InsertFile(ctx, file)
	require.NoError(t, err)

	snapshot := &catalog.Version{
		FileID:      inserted.ID,
		Number:      1,
		Digest:      hexDigest("snap"),
		StoragePath: "drive/2026/07/" + hexDigest("snap"),
		Size:        50,
		UploaderID:  "alice",
		CreatedAt:   now,
	}
	created, err := store.CreateVersion(ctx, snapshot)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)

	// Snapshotting the live number advanced the live row, so number 1 is
	// now restorable history.
	got, err := store.GetFile(ctx, inserted.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Version)

	// Occupied number.
	_, err = store.CreateVersion(ctx, snapshot)
	assert.True(t, catalog.IsCode(err, catalog.ErrConflict))

	// Ahead of the live version.
	future := *snapshot
	future.Number = 5
	_, err = store.CreateVersion(ctx, &future)
	assert.True(t, catalog.IsCode(err, catalog.ErrInvalidArgument))

	// Unknown file.
	orphan := *snapshot
	orphan.FileID = uuid.New()
	_, err = store.CreateVersion(ctx, &orphan)
	assert.True(t, catalog.IsCode(err, catalog.ErrNotFound))

	// Malformed number.
	bad := *snapshot
	bad.Number = 0
	_, err = store.CreateVersion(ctx, &bad)
	assert.True(t, catalog.IsCode(err, catalog.ErrInvalidArgument))

	// Malformed digest.
	garbled := *snapshot
	garbled.Number = 2
	garbled.Digest = "not-a-digest"
	_, err = store.CreateVersion(ctx, &garbled)
	assert.True(t, catalog.IsCode(err, catalog.ErrInvalidArgument))
}

func TestReferencedPaths(t *testing.T) {
	store := newTestCatalog(t)
	ctx := context.Background()
	now := time.Now().UTC()

	live := testFile("alice", "live.txt", "ref1", 10)
	_, err := store.InsertFile(ctx, live)
	require.NoError(t, err)

	deleted := testFile("alice", "gone.txt", "ref2", 10)
	_, err = store.InsertFile(ctx, deleted)
	require.NoError(t, err)
	require.NoError(t, store.SoftDeleteFile(ctx, deleted.ID, now))

	versionPath := "drive/2026/06/" + hexDigest("ref3")
	seedVersionForTest(t, store, &catalog.Version{
		ID:          uuid.New(),
		FileID:      live.ID,
		Number:      1,
		Digest:      hexDigest("ref3"),
		StoragePath: versionPath,
		Size:        10,
		UploaderID:  "alice",
		CreatedAt:   now,
	})

	referenced, err := store.ReferencedPaths(ctx)
	require.NoError(t, err)

	assert.Contains(t, referenced, live.StoragePath)
	assert.Contains(t, referenced, deleted.StoragePath)
	assert.Contains(t, referenced, versionPath)
}

func TestHealthcheck(t *testing.T) {
	store := newTestCatalog(t)
	require.NoError(t, store.Healthcheck(context.Background()))
}

// seedVersionForTest records a history fixture through the public
// snapshot operation.
func seedVersionForTest(t *testing.T, store *BadgerCatalog, version *catalog.Version) {
	t.Helper()
	_, err := store.CreateVersion(context.Background(), version)
	require.NoError(t, err)
}
