package testing

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drivevault/drivevault/pkg/blob"
	"github.com/drivevault/drivevault/pkg/digest"
)

// AssertErrorIs checks if the error matches the expected error using errors.Is.
func AssertErrorIs(t *testing.T, expected error, actual error) {
	t.Helper()
	if !errors.Is(actual, expected) {
		t.Errorf("Expected error %v, got %v", expected, actual)
	}
}

// testPath derives a realistic content-addressed storage path from the data
// itself, the same way the upload pipeline would.
func testPath(data []byte, extension string) string {
	allocated := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)
	return blob.AllocatePath(digest.Bytes(data), extension, allocated)
}

// mustWrite writes data at path and fails the test if it errors.
func mustWrite(t *testing.T, store blob.WritableStore, path string, data []byte) {
	t.Helper()
	err := store.Write(testContext(), path, bytes.NewReader(data))
	require.NoError(t, err, "Write should succeed")
}

// mustRead opens and fully reads the blob at path.
func mustRead(t *testing.T, store blob.Store, path string) []byte {
	t.Helper()
	reader, err := store.Open(testContext(), path)
	require.NoError(t, err, "Open should succeed")
	defer reader.Close()

	data, err := io.ReadAll(reader)
	require.NoError(t, err, "Reading blob should succeed")
	return data
}

// mustRemove removes the blob at path and fails the test if it errors.
func mustRemove(t *testing.T, store blob.WritableStore, path string) {
	t.Helper()
	err := store.Remove(testContext(), path)
	require.NoError(t, err, "Remove should succeed")
}

// assertExists checks blob presence against expectation.
func assertExists(t *testing.T, store blob.Store, path string, expected bool) {
	t.Helper()
	exists, err := store.Exists(testContext(), path)
	require.NoError(t, err, "Exists should not error")
	assert.Equal(t, expected, exists, "Blob existence mismatch")
}

// assertBlobEquals checks if stored bytes match expected data.
func assertBlobEquals(t *testing.T, store blob.Store, path string, expected []byte) {
	t.Helper()
	actual := mustRead(t, store, path)
	assert.Equal(t, expected, actual, "Blob data mismatch")
}

// assertBlobSize checks if the reported size matches expected.
func assertBlobSize(t *testing.T, store blob.Store, path string, expected int64) {
	t.Helper()
	size, err := store.Size(testContext(), path)
	require.NoError(t, err, "Size should succeed")
	assert.Equal(t, expected, size, "Blob size mismatch")
}

// generateTestData creates test data of specified size.
func generateTestData(size int) []byte {
	data := make([]byte, size)
	for i := 0; i < size; i++ {
		data[i] = byte(i % 256)
	}
	return data
}
