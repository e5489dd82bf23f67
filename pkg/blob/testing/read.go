package testing

import (
	"testing"

	"github.com/drivevault/drivevault/pkg/blob"
)

// RunReadTests executes all read-side contract tests.
func (suite *StoreTestSuite) RunReadTests(t *testing.T) {
	t.Run("Open_Basic", suite.testOpenBasic)
	t.Run("Open_NotFound", suite.testOpenNotFound)
	t.Run("Size_Basic", suite.testSizeBasic)
	t.Run("Size_NotFound", suite.testSizeNotFound)
	t.Run("Exists_Present", suite.testExistsPresent)
	t.Run("Exists_Absent", suite.testExistsAbsent)
}

func (suite *StoreTestSuite) testOpenBasic(t *testing.T) {
	store := suite.NewStore(t)
	writable, ok := store.(blob.WritableStore)
	if !ok {
		t.Skip("Store does not implement WritableStore")
	}

	data := []byte("Hello, World!")
	path := testPath(data, ".txt")

	mustWrite(t, writable, path, data)
	assertBlobEquals(t, store, path, data)
}

func (suite *StoreTestSuite) testOpenNotFound(t *testing.T) {
	store := suite.NewStore(t)

	data := []byte("never stored")
	_, err := store.Open(testContext(), testPath(data, ""))
	AssertErrorIs(t, blob.ErrBlobNotFound, err)
}

func (suite *StoreTestSuite) testSizeBasic(t *testing.T) {
	store := suite.NewStore(t)
	writable, ok := store.(blob.WritableStore)
	if !ok {
		t.Skip("Store does not implement WritableStore")
	}

	data := generateTestData(4096)
	path := testPath(data, ".bin")

	mustWrite(t, writable, path, data)
	assertBlobSize(t, store, path, 4096)
}

func (suite *StoreTestSuite) testSizeNotFound(t *testing.T) {
	store := suite.NewStore(t)

	data := []byte("sizeless")
	_, err := store.Size(testContext(), testPath(data, ""))
	AssertErrorIs(t, blob.ErrBlobNotFound, err)
}

func (suite *StoreTestSuite) testExistsPresent(t *testing.T) {
	store := suite.NewStore(t)
	writable, ok := store.(blob.WritableStore)
	if !ok {
		t.Skip("Store does not implement WritableStore")
	}

	data := []byte("present")
	path := testPath(data, ".dat")

	mustWrite(t, writable, path, data)
	assertExists(t, store, path, true)
}

func (suite *StoreTestSuite) testExistsAbsent(t *testing.T) {
	store := suite.NewStore(t)

	data := []byte("absent")
	assertExists(t, store, testPath(data, ".dat"), false)
}
