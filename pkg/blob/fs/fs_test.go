package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drivevault/drivevault/pkg/blob"
	blobtesting "github.com/drivevault/drivevault/pkg/blob/testing"
)

// TestFSBlobStore runs the complete blob store test suite against the
// filesystem implementation.
func TestFSBlobStore(t *testing.T) {
	suite := &blobtesting.StoreTestSuite{
		NewStore: func(t *testing.T) blob.Store {
			store, err := NewFSBlobStore(context.Background(), t.TempDir())
			if err != nil {
				t.Fatalf("Failed to create FSBlobStore: %v", err)
			}
			return store
		},
	}

	suite.Run(t)
}

// TestFSBlobStore_ListSkipsStagedFiles verifies that leftover temp files
// from a crashed write never appear as stored blobs.
func TestFSBlobStore_ListSkipsStagedFiles(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	store, err := NewFSBlobStore(ctx, root)
	require.NoError(t, err)

	// Simulate a crash mid-write: a staged file in a blob directory.
	dir := filepath.Join(root, "drive", "2026", "08")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, tempPrefix+"abc123-xyz"), []byte("partial"), 0644))

	paths, err := store.ListPaths(ctx)
	require.NoError(t, err)
	assert.Empty(t, paths)
}

// TestFSBlobStore_ResolveRejectsEscapes verifies path traversal cannot
// reach outside the storage root.
func TestFSBlobStore_ResolveRejectsEscapes(t *testing.T) {
	ctx := context.Background()

	store, err := NewFSBlobStore(ctx, t.TempDir())
	require.NoError(t, err)

	for _, path := range []string{"../outside", "drive/../../etc/shadow", "/abs/path"} {
		_, err := store.Open(ctx, path)
		assert.ErrorIs(t, err, blob.ErrInvalidPath, "path %q", path)
	}
}
