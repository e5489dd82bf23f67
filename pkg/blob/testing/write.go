package testing

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/drivevault/drivevault/pkg/blob"
)

// RunWriteTests executes all WritableStore operation tests.
func (suite *StoreTestSuite) RunWriteTests(t *testing.T) {
	t.Run("Write_Basic", suite.testWriteBasic)
	t.Run("Write_Empty", suite.testWriteEmpty)
	t.Run("Write_Idempotent", suite.testWriteIdempotent)
	t.Run("Write_InvalidPath", suite.testWriteInvalidPath)
	t.Run("Remove_Success", suite.testRemoveSuccess)
	t.Run("Remove_Idempotent", suite.testRemoveIdempotent)
}

func (suite *StoreTestSuite) testWriteBasic(t *testing.T) {
	store := suite.NewStore(t)
	writable, ok := store.(blob.WritableStore)
	if !ok {
		t.Skip("Store does not implement WritableStore")
	}

	data := generateTestData(1024)
	path := testPath(data, ".pdf")

	mustWrite(t, writable, path, data)

	assertExists(t, store, path, true)
	assertBlobEquals(t, store, path, data)
	assertBlobSize(t, store, path, 1024)
}

func (suite *StoreTestSuite) testWriteEmpty(t *testing.T) {
	store := suite.NewStore(t)
	writable, ok := store.(blob.WritableStore)
	if !ok {
		t.Skip("Store does not implement WritableStore")
	}

	// Zero-byte uploads are legal; the blob must still be observable.
	data := []byte{}
	path := testPath(data, "")

	mustWrite(t, writable, path, data)

	assertExists(t, store, path, true)
	assertBlobSize(t, store, path, 0)
}

func (suite *StoreTestSuite) testWriteIdempotent(t *testing.T) {
	store := suite.NewStore(t)
	writable, ok := store.(blob.WritableStore)
	if !ok {
		t.Skip("Store does not implement WritableStore")
	}

	data := []byte("write-once bytes")
	path := testPath(data, ".txt")

	mustWrite(t, writable, path, data)

	// A second write to the same path must succeed without altering the
	// stored bytes. Content addressing means both writers carry the same
	// payload; feed different bytes here to prove the store ignores them.
	err := writable.Write(testContext(), path, bytes.NewReader([]byte("imposter")))
	require.NoError(t, err)

	assertBlobEquals(t, store, path, data)
}

func (suite *StoreTestSuite) testWriteInvalidPath(t *testing.T) {
	store := suite.NewStore(t)
	writable, ok := store.(blob.WritableStore)
	if !ok {
		t.Skip("Store does not implement WritableStore")
	}

	for _, path := range []string{"", "/etc/passwd", "drive/../../../escape", "drive/./x"} {
		err := writable.Write(testContext(), path, bytes.NewReader([]byte("x")))
		AssertErrorIs(t, blob.ErrInvalidPath, err)
	}
}

func (suite *StoreTestSuite) testRemoveSuccess(t *testing.T) {
	store := suite.NewStore(t)
	writable, ok := store.(blob.WritableStore)
	if !ok {
		t.Skip("Store does not implement WritableStore")
	}

	data := []byte("to be swept")
	path := testPath(data, ".tmp")

	mustWrite(t, writable, path, data)
	assertExists(t, store, path, true)

	mustRemove(t, writable, path)
	assertExists(t, store, path, false)

	_, err := store.Open(testContext(), path)
	AssertErrorIs(t, blob.ErrBlobNotFound, err)
}

func (suite *StoreTestSuite) testRemoveIdempotent(t *testing.T) {
	store := suite.NewStore(t)
	writable, ok := store.(blob.WritableStore)
	if !ok {
		t.Skip("Store does not implement WritableStore")
	}

	path := testPath([]byte("never written"), "")

	// Removing an absent blob should succeed, twice.
	require.NoError(t, writable.Remove(testContext(), path))
	require.NoError(t, writable.Remove(testContext(), path))
}
