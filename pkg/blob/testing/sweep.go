package testing

import (
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drivevault/drivevault/pkg/blob"
)

// RunSweepTests executes all SweepableStore operation tests.
func (suite *StoreTestSuite) RunSweepTests(t *testing.T) {
	t.Run("ListPaths_Empty", suite.testListPathsEmpty)
	t.Run("ListPaths_All", suite.testListPathsAll)
	t.Run("RemoveBatch_Basic", suite.testRemoveBatchBasic)
	t.Run("RemoveBatch_AbsentPaths", suite.testRemoveBatchAbsentPaths)
}

func (suite *StoreTestSuite) testListPathsEmpty(t *testing.T) {
	store := suite.NewStore(t)
	sweepable, ok := store.(blob.SweepableStore)
	if !ok {
		t.Skip("Store does not implement SweepableStore")
	}

	paths, err := sweepable.ListPaths(testContext())
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func (suite *StoreTestSuite) testListPathsAll(t *testing.T) {
	store := suite.NewStore(t)
	sweepable, ok := store.(blob.SweepableStore)
	if !ok {
		t.Skip("Store does not implement SweepableStore")
	}
	writable, ok := store.(blob.WritableStore)
	if !ok {
		t.Skip("Store does not implement WritableStore")
	}

	var want []string
	for i := 0; i < 5; i++ {
		data := []byte(fmt.Sprintf("blob-%d", i))
		path := testPath(data, ".bin")
		mustWrite(t, writable, path, data)
		want = append(want, path)
	}

	got, err := sweepable.ListPaths(testContext())
	require.NoError(t, err)

	sort.Strings(want)
	sort.Strings(got)
	assert.Equal(t, want, got)
}

func (suite *StoreTestSuite) testRemoveBatchBasic(t *testing.T) {
	store := suite.NewStore(t)
	sweepable, ok := store.(blob.SweepableStore)
	if !ok {
		t.Skip("Store does not implement SweepableStore")
	}
	writable, ok := store.(blob.WritableStore)
	if !ok {
		t.Skip("Store does not implement WritableStore")
	}

	var orphans []string
	for i := 0; i < 3; i++ {
		data := []byte(fmt.Sprintf("orphan-%d", i))
		path := testPath(data, "")
		mustWrite(t, writable, path, data)
		orphans = append(orphans, path)
	}

	kept := []byte("still referenced")
	keptPath := testPath(kept, ".txt")
	mustWrite(t, writable, keptPath, kept)

	failures, err := sweepable.RemoveBatch(testContext(), orphans)
	require.NoError(t, err)
	assert.Empty(t, failures)

	for _, p := range orphans {
		assertExists(t, store, p, false)
	}
	assertExists(t, store, keptPath, true)
}

func (suite *StoreTestSuite) testRemoveBatchAbsentPaths(t *testing.T) {
	store := suite.NewStore(t)
	sweepable, ok := store.(blob.SweepableStore)
	if !ok {
		t.Skip("Store does not implement SweepableStore")
	}

	// Absent paths count as successes, not failures.
	absent := []string{
		testPath([]byte("ghost-1"), ""),
		testPath([]byte("ghost-2"), ""),
	}

	failures, err := sweepable.RemoveBatch(testContext(), absent)
	require.NoError(t, err)
	assert.Empty(t, failures)
}
