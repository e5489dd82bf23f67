package drive

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drivevault/drivevault/pkg/access"
	"github.com/drivevault/drivevault/pkg/blob/memory"
	"github.com/drivevault/drivevault/pkg/catalog"
	badgercatalog "github.com/drivevault/drivevault/pkg/catalog/badger"
	"github.com/drivevault/drivevault/pkg/quota"
)

// driveEnv wires the service against the in-memory catalog and blob
// store. The clock is a plain field so tests can advance it.
type driveEnv struct {
	service *Service
	catalog *badgercatalog.BadgerCatalog
	blobs   *memory.MemoryBlobStore
	now     time.Time
}

func newDriveEnv(t *testing.T, quotaCeiling int64) *driveEnv {
	t.Helper()

	cat, err := badgercatalog.NewBadgerCatalog(context.Background(), badgercatalog.BadgerCatalogConfig{
		InMemory: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { cat.Close() })

	env := &driveEnv{
		catalog: cat,
		blobs:   memory.NewMemoryBlobStore(),
		now:     time.Date(2026, time.August, 10, 12, 0, 0, 0, time.UTC),
	}
	env.service = NewService(ServiceConfig{
		Catalog:           cat,
		Blobs:             env.blobs,
		Quota:             quota.NewAccountant(cat, quotaCeiling),
		MaxUploadBytes:    1 << 20,
		BlockedExtensions: []string{"exe", ".bat"},
		Now:               func() time.Time { return env.now },
	})

	return env
}

func user(id string) access.Actor {
	return access.Actor{UserID: id}
}

func (env *driveEnv) mustUpload(t *testing.T, owner, name string, content []byte) *catalog.File {
	t.Helper()

	file, err := env.service.Upload(context.Background(), UploadRequest{
		Content:      bytes.NewReader(content),
		Filename:     name,
		DeclaredSize: int64(len(content)),
		OwnerID:      owner,
	})
	require.NoError(t, err)
	return file
}

func TestUpload_Commit(t *testing.T) {
	env := newDriveEnv(t, 0)
	ctx := context.Background()

	file := env.mustUpload(t, "alice", "Quarterly Report.pdf", []byte("report body"))

	assert.Equal(t, "Quarterly Report.pdf", file.Name)
	assert.Equal(t, "quarterly-report-pdf", file.Slug)
	assert.Equal(t, ".pdf", file.Extension)
	assert.Equal(t, int64(len("report body")), file.Size)
	assert.Equal(t, 1, file.Version)
	assert.Equal(t, catalog.VisibilityPrivate, file.Visibility)

	// The bytes landed under the content-addressed path.
	present, err := env.blobs.Exists(ctx, file.StoragePath)
	require.NoError(t, err)
	assert.True(t, present)

	// The declared size is charged to the owner.
	report, err := env.service.Usage(ctx, user("alice"))
	require.NoError(t, err)
	assert.Equal(t, int64(len("report body")), report.UsedBytes)
}

func TestUpload_DedupReusesBlob(t *testing.T) {
	env := newDriveEnv(t, 0)
	ctx := context.Background()
	content := []byte("identical bytes")

	first := env.mustUpload(t, "alice", "one.txt", content)
	second := env.mustUpload(t, "bob", "two.txt", content)

	assert.Equal(t, first.Digest, second.Digest)
	assert.Equal(t, first.StoragePath, second.StoragePath)

	// One physical blob serves both logical files.
	paths, err := env.blobs.ListPaths(ctx)
	require.NoError(t, err)
	assert.Len(t, paths, 1)
}

func TestUpload_Gates(t *testing.T) {
	env := newDriveEnv(t, 0)
	ctx := context.Background()

	t.Run("declared size too large", func(t *testing.T) {
		_, err := env.service.Upload(ctx, UploadRequest{
			Content:      strings.NewReader("x"),
			Filename:     "big.bin",
			DeclaredSize: 2 << 20,
			OwnerID:      "alice",
		})
		assert.ErrorIs(t, err, ErrPayloadTooLarge)
	})

	t.Run("actual size too large despite declaration", func(t *testing.T) {
		_, err := env.service.Upload(ctx, UploadRequest{
			Content:      bytes.NewReader(make([]byte, (1<<20)+1)),
			Filename:     "liar.bin",
			DeclaredSize: 10,
			OwnerID:      "alice",
		})
		assert.ErrorIs(t, err, ErrPayloadTooLarge)
	})

	t.Run("blocked extension", func(t *testing.T) {
		_, err := env.service.Upload(ctx, UploadRequest{
			Content:  strings.NewReader("MZ"),
			Filename: "setup.EXE",
			OwnerID:  "alice",
		})
		assert.ErrorIs(t, err, ErrInvalidMediaType)
	})

	t.Run("missing parent folder", func(t *testing.T) {
		missing := uuid.New()
		_, err := env.service.Upload(ctx, UploadRequest{
			Content:  strings.NewReader("body"),
			Filename: "orphan.txt",
			OwnerID:  "alice",
			FolderID: &missing,
		})
		assert.ErrorIs(t, err, ErrParentNotFound)
	})

	t.Run("name conflict", func(t *testing.T) {
		env.mustUpload(t, "carol", "taken.txt", []byte("a"))
		_, err := env.service.Upload(ctx, UploadRequest{
			Content:  strings.NewReader("b"),
			Filename: "taken.txt",
			OwnerID:  "carol",
		})
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("missing owner", func(t *testing.T) {
		_, err := env.service.Upload(ctx, UploadRequest{
			Content:  strings.NewReader("body"),
			Filename: "nobody.txt",
		})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

// TestUpload_QuotaLifecycle walks the quota ceiling end to end: dedup
// gives no discount, the ceiling rejects, and deletion frees headroom.
func TestUpload_QuotaLifecycle(t *testing.T) {
	env := newDriveEnv(t, 10)
	ctx := context.Background()

	four := []byte("aaaa")

	first := env.mustUpload(t, "alice", "a1.txt", four)
	env.mustUpload(t, "alice", "a2.txt", four)

	// 8 of 10 bytes used even though only one blob exists.
	report, err := env.service.Usage(ctx, user("alice"))
	require.NoError(t, err)
	assert.Equal(t, int64(8), report.UsedBytes)
	assert.Equal(t, int64(2), report.RemainingBytes)

	// Three more bytes would exceed the ceiling.
	_, err = env.service.Upload(ctx, UploadRequest{
		Content:  strings.NewReader("bbb"),
		Filename: "b.txt",
		OwnerID:  "alice",
	})
	assert.ErrorIs(t, err, ErrQuotaExceeded)

	// Deleting one 4-byte file frees its declared size.
	require.NoError(t, env.service.DeleteFile(ctx, first.ID, user("alice")))

	_, err = env.service.Upload(ctx, UploadRequest{
		Content:  strings.NewReader("bbb"),
		Filename: "b.txt",
		OwnerID:  "alice",
	})
	require.NoError(t, err)

	// Landing exactly on the ceiling is admitted.
	_, err = env.service.Upload(ctx, UploadRequest{
		Content:  strings.NewReader("ccc"),
		Filename: "c.txt",
		OwnerID:  "alice",
	})
	require.NoError(t, err)
}

func TestGetFile_AccessPaths(t *testing.T) {
	env := newDriveEnv(t, 0)
	ctx := context.Background()

	file := env.mustUpload(t, "alice", "private.txt", []byte("secret"))

	t.Run("owner reads", func(t *testing.T) {
		got, err := env.service.GetFile(ctx, file.ID, user("alice"))
		require.NoError(t, err)
		assert.Equal(t, file.ID, got.ID)
	})

	t.Run("stranger denied", func(t *testing.T) {
		_, err := env.service.GetFile(ctx, file.ID, user("bob"))
		assert.ErrorIs(t, err, ErrAccessDenied)
	})

	t.Run("anonymous denied", func(t *testing.T) {
		_, err := env.service.GetFile(ctx, file.ID, access.Actor{})
		assert.ErrorIs(t, err, ErrAccessDenied)
	})

	t.Run("user share grants read", func(t *testing.T) {
		_, err := env.service.ShareFile(ctx, file.ID, user("alice"), "bob", nil)
		require.NoError(t, err)

		got, err := env.service.GetFile(ctx, file.ID, user("bob"))
		require.NoError(t, err)
		assert.Equal(t, file.ID, got.ID)

		// The share names bob, not everyone.
		_, err = env.service.GetFile(ctx, file.ID, user("carol"))
		assert.ErrorIs(t, err, ErrAccessDenied)
	})

	t.Run("public visibility readable by anyone", func(t *testing.T) {
		pub, err := env.service.Upload(ctx, UploadRequest{
			Content:    strings.NewReader("open"),
			Filename:   "open.txt",
			OwnerID:    "alice",
			Visibility: catalog.VisibilityPublic,
		})
		require.NoError(t, err)

		_, err = env.service.GetFile(ctx, pub.ID, user("bob"))
		assert.NoError(t, err)
	})

	t.Run("deleted file reports not found", func(t *testing.T) {
		gone := env.mustUpload(t, "alice", "gone.txt", []byte("x"))
		require.NoError(t, env.service.DeleteFile(ctx, gone.ID, user("alice")))

		_, err := env.service.GetFile(ctx, gone.ID, user("alice"))
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestDownload_StreamsAndCounts(t *testing.T) {
	env := newDriveEnv(t, 0)
	ctx := context.Background()
	content := []byte("download me")

	file := env.mustUpload(t, "alice", "dl.txt", content)

	got, reader, err := env.service.Download(ctx, file.ID, user("alice"))
	require.NoError(t, err)
	defer reader.Close()

	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, content, data)
	assert.Equal(t, file.ID, got.ID)

	// Counter and last-access stamp recorded.
	row, err := env.catalog.GetFile(ctx, file.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), row.Downloads)
	require.NotNil(t, row.LastAccessedAt)
}

func TestDownload_MissingBlobIsIntegrityFault(t *testing.T) {
	env := newDriveEnv(t, 0)
	ctx := context.Background()

	file := env.mustUpload(t, "alice", "hollow.txt", []byte("bytes"))
	require.NoError(t, env.blobs.Remove(ctx, file.StoragePath))

	_, _, err := env.service.Download(ctx, file.ID, user("alice"))
	assert.ErrorIs(t, err, ErrBlobMissing)
}

func TestPublicLink_Lifecycle(t *testing.T) {
	env := newDriveEnv(t, 0)
	ctx := context.Background()
	content := []byte("linked bytes")

	file := env.mustUpload(t, "alice", "linked.txt", content)

	expiry := env.now.Add(time.Hour)
	link, err := env.service.CreatePublicLink(ctx, file.ID, user("alice"), &expiry)
	require.NoError(t, err)
	require.Equal(t, catalog.GrantKindPublic, link.Grant.Kind)
	require.NotEmpty(t, link.Grant.Token)

	// Anonymous download by token.
	got, reader, err := env.service.DownloadByToken(ctx, link.Grant.Token)
	require.NoError(t, err)
	data, err := io.ReadAll(reader)
	reader.Close()
	require.NoError(t, err)
	assert.Equal(t, content, data)
	assert.Equal(t, file.ID, got.ID)

	// Access was counted on the share.
	share, err := env.catalog.GetShare(ctx, link.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), share.AccessCount)

	// Expired link collapses to not found.
	env.now = expiry.Add(time.Minute)
	_, _, err = env.service.DownloadByToken(ctx, link.Grant.Token)
	assert.ErrorIs(t, err, ErrNotFound)
	env.now = expiry.Add(-time.Hour)

	// Revocation kills the token for good.
	require.NoError(t, env.service.RevokeShare(ctx, link.ID, user("alice")))
	_, _, err = env.service.DownloadByToken(ctx, link.Grant.Token)
	assert.ErrorIs(t, err, ErrNotFound)

	// Garbage tokens look identical to revoked ones.
	_, _, err = env.service.DownloadByToken(ctx, "no-such-token")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestShares_OwnerOnly(t *testing.T) {
	env := newDriveEnv(t, 0)
	ctx := context.Background()

	file := env.mustUpload(t, "alice", "mine.txt", []byte("x"))

	_, err := env.service.ShareFile(ctx, file.ID, user("bob"), "carol", nil)
	assert.ErrorIs(t, err, ErrNotOwner)

	_, err = env.service.CreatePublicLink(ctx, file.ID, user("bob"), nil)
	assert.ErrorIs(t, err, ErrNotOwner)

	// Self-grants are rejected.
	_, err = env.service.ShareFile(ctx, file.ID, user("alice"), "alice", nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	share, err := env.service.ShareFile(ctx, file.ID, user("alice"), "bob", nil)
	require.NoError(t, err)

	// The grantee cannot revoke, only the owner.
	err = env.service.RevokeShare(ctx, share.ID, user("bob"))
	assert.ErrorIs(t, err, ErrNotOwner)
	require.NoError(t, env.service.RevokeShare(ctx, share.ID, user("alice")))

	// Revoking twice reports not found.
	err = env.service.RevokeShare(ctx, share.ID, user("alice"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteFile_OwnerOnly(t *testing.T) {
	env := newDriveEnv(t, 0)
	ctx := context.Background()

	file := env.mustUpload(t, "alice", "doomed.txt", []byte("x"))

	err := env.service.DeleteFile(ctx, file.ID, user("bob"))
	assert.ErrorIs(t, err, ErrNotOwner)

	require.NoError(t, env.service.DeleteFile(ctx, file.ID, user("alice")))

	err = env.service.DeleteFile(ctx, file.ID, user("alice"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFolders_Lifecycle(t *testing.T) {
	env := newDriveEnv(t, 0)
	ctx := context.Background()
	alice := user("alice")

	parent, err := env.service.CreateFolder(ctx, alice, CreateFolderRequest{Name: "projects"})
	require.NoError(t, err)
	assert.Equal(t, "/projects", parent.Path)

	child, err := env.service.CreateFolder(ctx, alice, CreateFolderRequest{
		Name:     "reports",
		ParentID: &parent.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "/projects/reports", child.Path)
	assert.Equal(t, 1, child.Depth)

	// Deleting a folder with children is refused.
	err = env.service.DeleteFolder(ctx, parent.ID, alice)
	assert.ErrorIs(t, err, ErrFolderNotEmpty)

	// Rename cascades into the child's materialized path.
	name := "archive"
	renamed, err := env.service.UpdateFolder(ctx, parent.ID, alice, UpdateFolderRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "/archive", renamed.Path)

	gotChild, err := env.service.GetFolder(ctx, child.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, "/archive/reports", gotChild.Path)

	// Strangers cannot see or mutate the tree.
	_, err = env.service.GetFolder(ctx, parent.ID, user("bob"))
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = env.service.UpdateFolder(ctx, parent.ID, user("bob"), UpdateFolderRequest{Name: &name})
	assert.ErrorIs(t, err, ErrNotOwner)

	// Empty folders delete bottom-up.
	require.NoError(t, env.service.DeleteFolder(ctx, child.ID, alice))
	require.NoError(t, env.service.DeleteFolder(ctx, parent.ID, alice))

	folders, err := env.service.ListFolders(ctx, alice, catalog.FolderFilter{})
	require.NoError(t, err)
	assert.Empty(t, folders)
}

func TestListFiles_ScopedToActor(t *testing.T) {
	env := newDriveEnv(t, 0)
	ctx := context.Background()

	env.mustUpload(t, "alice", "a.txt", []byte("a"))
	env.mustUpload(t, "bob", "b.txt", []byte("b"))

	files, err := env.service.ListFiles(ctx, user("alice"), catalog.FileFilter{})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "a.txt", files[0].Name)

	_, err = env.service.ListFiles(ctx, access.Actor{}, catalog.FileFilter{})
	assert.ErrorIs(t, err, ErrAccessDenied)
}

// seedVersionedFile uploads liveContent, records oldContent as the file's
// version 1 snapshot (which advances the live row to version 2), then
// restores version 1.
func (env *driveEnv) seedVersionedFile(t *testing.T, owner string, oldContent, liveContent []byte) *catalog.File {
	t.Helper()
	ctx := context.Background()

	live := env.mustUpload(t, owner, "versioned.txt", liveContent)

	// Write the historical blob and bump the live row to version 2.
	oldFile := env.mustUpload(t, owner, "versioned-old.txt", oldContent)
	_, err := env.catalog.CreateVersion(ctx, &catalog.Version{
		FileID:      live.ID,
		Number:      1,
		Digest:      oldFile.Digest,
		StoragePath: oldFile.StoragePath,
		Size:        oldFile.Size,
		UploaderID:  owner,
		CreatedAt:   env.now.Add(-time.Hour),
	})
	require.NoError(t, err)
	require.NoError(t, env.service.DeleteFile(ctx, oldFile.ID, user(owner)))

	restored, err := env.service.RestoreVersion(ctx, live.ID, 1, user(owner))
	require.NoError(t, err)
	return restored
}

func TestRestoreVersion_Flow(t *testing.T) {
	env := newDriveEnv(t, 0)
	ctx := context.Background()
	oldContent := []byte("old body")
	liveContent := []byte("new body longer")

	restored := env.seedVersionedFile(t, "alice", oldContent, liveContent)

	// The live row now serves the historical content. The restore itself
	// snapshotted the pre-restore state, so the live number advanced past
	// the snapshot that was taken at version 2.
	assert.Equal(t, int64(len(oldContent)), restored.Size)
	assert.Equal(t, 3, restored.Version)

	_, reader, err := env.service.Download(ctx, restored.ID, user("alice"))
	require.NoError(t, err)
	data, err := io.ReadAll(reader)
	reader.Close()
	require.NoError(t, err)
	assert.Equal(t, oldContent, data)

	// The pre-restore state joined the history.
	versions, err := env.service.ListVersions(ctx, restored.ID, user("alice"))
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, int64(len(liveContent)), versions[1].Size)
}

func TestRestoreVersion_Guards(t *testing.T) {
	env := newDriveEnv(t, 0)
	ctx := context.Background()

	file := env.mustUpload(t, "alice", "plain.txt", []byte("x"))

	_, err := env.service.RestoreVersion(ctx, file.ID, 1, user("alice"))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.service.RestoreVersion(ctx, file.ID, 0, user("alice"))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.service.RestoreVersion(ctx, file.ID, 5, user("bob"))
	assert.ErrorIs(t, err, ErrNotOwner)

	_, err = env.service.ListVersions(ctx, file.ID, user("bob"))
	assert.ErrorIs(t, err, ErrNotOwner)
}
